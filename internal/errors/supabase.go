package errors

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/tidwall/gjson"
)

// PostgREST and Postgres error codes observed from the managed service.
const (
	codeNoRows        = "PGRST116" // .single() found no rows
	codeUniqueViolate = "23505"    // unique_violation
	codeInsufficient  = "42501"    // insufficient_privilege (row level security)
)

// FromSupabase normalizes a failed Supabase response into a typed error.
// The body may come from PostgREST ({code, message, details, hint}) or
// GoTrue ({error, error_description} / {msg, code}); gjson tolerates both.
func FromSupabase(op string, status int, body []byte) *Error {
	code := gjson.GetBytes(body, "code").String()
	message := firstNonEmpty(
		gjson.GetBytes(body, "message").String(),
		gjson.GetBytes(body, "msg").String(),
		gjson.GetBytes(body, "error_description").String(),
		gjson.GetBytes(body, "error").String(),
	)

	switch code {
	case codeNoRows:
		return Wrap(KindNotFound, op, remoteError(status, message))
	case codeUniqueViolate:
		return Wrap(KindConflict, op, remoteError(status, message))
	case codeInsufficient:
		return Wrap(KindForbidden, op, remoteError(status, message))
	}

	lower := strings.ToLower(message)
	switch {
	case strings.Contains(lower, "duplicate key"):
		return Wrap(KindConflict, op, remoteError(status, message))
	case strings.Contains(lower, "already registered"),
		strings.Contains(lower, "already been registered"):
		return Wrap(KindDuplicateAccount, op, remoteError(status, message))
	case strings.Contains(lower, "invalid login credentials"),
		strings.Contains(lower, "invalid_grant"):
		return Wrap(KindAuth, op, remoteError(status, message))
	}

	switch {
	case status == http.StatusUnauthorized:
		return Wrap(KindAuth, op, remoteError(status, message))
	case status == http.StatusForbidden:
		return Wrap(KindForbidden, op, remoteError(status, message))
	case status == http.StatusNotFound, status == http.StatusNotAcceptable:
		// PostgREST reports a missing .single() row as 406.
		return Wrap(KindNotFound, op, remoteError(status, message))
	case status == http.StatusConflict:
		return Wrap(KindConflict, op, remoteError(status, message))
	case status >= http.StatusInternalServerError:
		return Wrap(KindPersistence, op, remoteError(status, message))
	default:
		return Wrap(KindPersistence, op, remoteError(status, message))
	}
}

func remoteError(status int, message string) error {
	if message == "" {
		return fmt.Errorf("remote service status %d", status)
	}
	return fmt.Errorf("remote service status %d: %s", status, message)
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
