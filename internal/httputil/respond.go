package httputil

import (
	"encoding/json"
	"net/http"

	apperrors "github.com/ViveCali/community_layer/internal/errors"
)

// WriteJSON writes v as a JSON response with the given status.
func WriteJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

type errorBody struct {
	Error errorDetail `json:"error"`
}

type errorDetail struct {
	Kind    string `json:"kind"`
	Message string `json:"message"`
}

// WriteError writes err as a JSON error response, mapping the error
// kind to an HTTP status.
func WriteError(w http.ResponseWriter, err error) {
	kind := apperrors.KindOf(err)
	WriteJSON(w, apperrors.HTTPStatus(err), errorBody{
		Error: errorDetail{
			Kind:    kind.String(),
			Message: err.Error(),
		},
	})
}
