package client

import (
	"context"
	"io"
	"net/http"
	"testing"

	apperrors "github.com/ViveCali/community_layer/internal/errors"
)

func TestStorageUpload(t *testing.T) {
	var gotPath, gotUpsert, gotType string
	var gotBody []byte
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotUpsert = r.Header.Get("x-upsert")
		gotType = r.Header.Get("Content-Type")
		gotBody, _ = io.ReadAll(r.Body)
		w.WriteHeader(http.StatusOK)
	})

	err := c.Storage("content-images").Upload(context.Background(),
		"events/e-1.jpg", "image/jpeg", []byte("jpeg-bytes"), "user-token")
	if err != nil {
		t.Fatalf("upload: %v", err)
	}
	if gotPath != "/storage/v1/object/content-images/events/e-1.jpg" {
		t.Errorf("path = %q", gotPath)
	}
	if gotUpsert != "true" || gotType != "image/jpeg" {
		t.Errorf("headers = upsert %q type %q", gotUpsert, gotType)
	}
	if string(gotBody) != "jpeg-bytes" {
		t.Errorf("body = %q", gotBody)
	}
}

func TestStorageUploadForbidden(t *testing.T) {
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
		w.Write([]byte(`{"message":"new row violates row-level security policy"}`))
	})

	err := c.Storage("content-images").Upload(context.Background(),
		"x.jpg", "image/jpeg", nil, "")
	if apperrors.KindOf(err) != apperrors.KindForbidden {
		t.Errorf("kind = %v, want forbidden", apperrors.KindOf(err))
	}
}

func TestGetPublicURL(t *testing.T) {
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {})
	got := c.Storage("content-images").GetPublicURL("events/e-1.jpg")
	want := c.BaseURL() + "/storage/v1/object/public/content-images/events/e-1.jpg"
	if got != want {
		t.Errorf("url = %q, want %q", got, want)
	}
}
