package client

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	apperrors "github.com/ViveCali/community_layer/internal/errors"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) (*Client, *httptest.Server) {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	c, err := New(Config{URL: srv.URL, APIKey: "test-key"})
	if err != nil {
		t.Fatalf("New() error: %v", err)
	}
	return c, srv
}

func TestQueryBuilderSelect(t *testing.T) {
	var gotPath, gotAuth, gotAPIKey string
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.String()
		gotAuth = r.Header.Get("Authorization")
		gotAPIKey = r.Header.Get("apikey")
		w.Write([]byte(`[{"id":"e-1","title":"Concierto"}]`))
	})

	resp, err := c.From("events").
		Select("*").
		Eq("status", "approved").
		Order("date", true).
		Limit(10).
		Execute(context.Background())
	if err != nil {
		t.Fatalf("Execute() error: %v", err)
	}
	if err := resp.Error(); err != nil {
		t.Fatalf("Error() = %v, want nil", err)
	}

	wantPath := "/rest/v1/events?limit=10&order=date.asc&select=%2A&status=eq.approved"
	if gotPath != wantPath {
		t.Errorf("path = %q, want %q", gotPath, wantPath)
	}
	if gotAPIKey != "test-key" {
		t.Errorf("apikey header = %q, want %q", gotAPIKey, "test-key")
	}
	if gotAuth != "Bearer test-key" {
		t.Errorf("Authorization = %q, want bearer api key", gotAuth)
	}

	var rows []struct {
		ID    string `json:"id"`
		Title string `json:"title"`
	}
	if err := resp.JSON(&rows); err != nil {
		t.Fatalf("JSON() error: %v", err)
	}
	if len(rows) != 1 || rows[0].Title != "Concierto" {
		t.Errorf("rows = %+v, want single Concierto row", rows)
	}
}

func TestQueryBuilderSingleAndAsUser(t *testing.T) {
	var gotAccept, gotAuth string
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		gotAccept = r.Header.Get("Accept")
		gotAuth = r.Header.Get("Authorization")
		w.Write([]byte(`{"id":"u-1"}`))
	})

	_, err := c.From("profiles").
		Select("*").
		Eq("id", "u-1").
		Single().
		AsUser("user-token").
		Execute(context.Background())
	if err != nil {
		t.Fatalf("Execute() error: %v", err)
	}

	if gotAccept != "application/vnd.pgrst.object+json" {
		t.Errorf("Accept = %q, want pgrst object", gotAccept)
	}
	if gotAuth != "Bearer user-token" {
		t.Errorf("Authorization = %q, want user token bearer", gotAuth)
	}
}

func TestQueryBuilderInsert(t *testing.T) {
	var gotMethod, gotPrefer, gotContentType string
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		gotMethod = r.Method
		gotPrefer = r.Header.Get("Prefer")
		gotContentType = r.Header.Get("Content-Type")
		w.WriteHeader(http.StatusCreated)
		w.Write([]byte(`[{"id":"e-1"}]`))
	})

	resp, err := c.From("events").ExecuteInsert(context.Background(), map[string]any{"title": "x"})
	if err != nil {
		t.Fatalf("ExecuteInsert() error: %v", err)
	}
	if resp.StatusCode != http.StatusCreated {
		t.Errorf("status = %d, want 201", resp.StatusCode)
	}
	if gotMethod != http.MethodPost {
		t.Errorf("method = %q, want POST", gotMethod)
	}
	if gotPrefer != "return=representation" {
		t.Errorf("Prefer = %q, want return=representation", gotPrefer)
	}
	if gotContentType != "application/json" {
		t.Errorf("Content-Type = %q, want application/json", gotContentType)
	}
}

func TestQueryBuilderUpsertOnConflict(t *testing.T) {
	var gotQuery, gotPrefer string
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		gotQuery = r.URL.RawQuery
		gotPrefer = r.Header.Get("Prefer")
		w.Write([]byte(`[{"id":"m-1"}]`))
	})

	_, err := c.From("moods").
		OnConflict("user_id,day").
		ExecuteUpsert(context.Background(), map[string]any{"mood": "happy"})
	if err != nil {
		t.Fatalf("ExecuteUpsert() error: %v", err)
	}

	if gotQuery != "on_conflict=user_id%2Cday" {
		t.Errorf("query = %q, want on_conflict target", gotQuery)
	}
	if gotPrefer != "resolution=merge-duplicates,return=representation" {
		t.Errorf("Prefer = %q, want merge-duplicates", gotPrefer)
	}
}

func TestResponseErrorMapping(t *testing.T) {
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotAcceptable)
		w.Write([]byte(`{"code":"PGRST116","message":"no rows"}`))
	})

	resp, err := c.From("profiles").Select("*").Single().Execute(context.Background())
	if err != nil {
		t.Fatalf("Execute() error: %v", err)
	}
	if !apperrors.IsKind(resp.Error(), apperrors.KindNotFound) {
		t.Errorf("Error() = %v, want KindNotFound", resp.Error())
	}
}

func TestTransportErrorIsTyped(t *testing.T) {
	c, err := New(Config{URL: "http://127.0.0.1:1", APIKey: "k"})
	if err != nil {
		t.Fatalf("New() error: %v", err)
	}

	_, err = c.From("events").Select("*").Execute(context.Background())
	if !apperrors.IsKind(err, apperrors.KindTransport) {
		t.Errorf("err = %v, want KindTransport", err)
	}
}
