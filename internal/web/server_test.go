package web

import (
	"bytes"
	"database/sql"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/recallkit/recallkit/internal/domain"
	"github.com/recallkit/recallkit/internal/fsrs"
	"github.com/recallkit/recallkit/internal/review"
	"github.com/recallkit/recallkit/internal/session"
	"github.com/recallkit/recallkit/internal/storage"
)

func newTestServer(t *testing.T) (*Server, *storage.DB) {
	t.Helper()
	db, err := storage.Open(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("Failed to open test database: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	loop := session.NewLoop(nil, db, db, db, db, review.NewApplicator(fsrs.New()))
	return NewServer(db, loop, domain.DefaultSettings()), db
}

func doJSON(t *testing.T, srv *Server, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatal(err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	if err := json.NewDecoder(rec.Body).Decode(&v); err != nil {
		t.Fatalf("Failed to decode response %q: %v", rec.Body.String(), err)
	}
	return v
}

func TestDeckEndpoints(t *testing.T) {
	srv, _ := newTestServer(t)

	rec := doJSON(t, srv, http.MethodPost, "/decks", map[string]string{"name": "go basics"})
	if rec.Code != http.StatusCreated {
		t.Fatalf("Expected 201, got %d: %s", rec.Code, rec.Body.String())
	}
	created := decode[map[string]int64](t, rec)
	if created["id"] == 0 {
		t.Fatal("Expected a deck id")
	}

	rec = doJSON(t, srv, http.MethodPost, "/decks", map[string]string{"name": ""})
	if rec.Code != http.StatusBadRequest {
		t.Errorf("Expected 400 for an empty deck name, got %d", rec.Code)
	}

	rec = doJSON(t, srv, http.MethodGet, "/decks", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d", rec.Code)
	}
	decks := decode[[]map[string]any](t, rec)
	if len(decks) != 1 || decks[0]["name"] != "go basics" {
		t.Errorf("Unexpected deck list: %+v", decks)
	}

	rec = doJSON(t, srv, http.MethodGet, fmt.Sprintf("/decks/%d/counts", created["id"]), nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d", rec.Code)
	}
	counts := decode[map[string]int](t, rec)
	if counts["total"] != 0 {
		t.Errorf("Expected an empty deck, got %+v", counts)
	}
}

func TestSessionEndpoints(t *testing.T) {
	srv, db := newTestServer(t)

	deckID, err := db.InsertDeck("practice", "", domain.DefaultSettings(), time.Now().Add(-time.Hour))
	if err != nil {
		t.Fatal(err)
	}
	for i := 0; i < 2; i++ {
		card := domain.NewCard(0, deckID, domain.PromptText(fmt.Sprintf("q%d", i)), "a", time.Now().Add(-time.Hour))
		if _, err := db.InsertCard(card, fmt.Sprintf("fp-%d", i), sql.NullInt64{}); err != nil {
			t.Fatal(err)
		}
	}

	rec := doJSON(t, srv, http.MethodPost, fmt.Sprintf("/decks/%d/sessions", deckID), nil)
	if rec.Code != http.StatusCreated {
		t.Fatalf("Expected 201, got %d: %s", rec.Code, rec.Body.String())
	}
	started := decode[map[string]any](t, rec)
	sessID := int64(started["session_id"].(float64))
	if int(started["total"].(float64)) != 2 {
		t.Fatalf("Expected 2 cards in the session, got %v", started["total"])
	}

	rec = doJSON(t, srv, http.MethodPost, fmt.Sprintf("/sessions/%d/answer", sessID), map[string]string{"grade": "bad"})
	if rec.Code != http.StatusBadRequest {
		t.Errorf("Expected 400 for a malformed grade, got %d", rec.Code)
	}

	// Grade 2 = Good.
	rec = doJSON(t, srv, http.MethodPost, fmt.Sprintf("/sessions/%d/answer", sessID), map[string]int{"grade": 2})
	if rec.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	first := decode[map[string]any](t, rec)
	if first["complete"].(bool) {
		t.Fatal("Expected the session still active after one of two answers")
	}

	rec = doJSON(t, srv, http.MethodPost, fmt.Sprintf("/sessions/%d/answer", sessID), map[string]int{"grade": 0})
	second := decode[map[string]any](t, rec)
	if !second["complete"].(bool) {
		t.Fatal("Expected the session complete")
	}
	if _, ok := second["summary_id"]; !ok {
		t.Fatal("Expected a summary id on completion")
	}

	rec = doJSON(t, srv, http.MethodPost, fmt.Sprintf("/sessions/%d/answer", sessID), map[string]int{"grade": 2})
	if rec.Code != http.StatusConflict {
		t.Errorf("Expected 409 answering a complete session, got %d", rec.Code)
	}

	// Finalize is idempotent once the summary exists, and evicts the
	// finished session from the registry.
	rec = doJSON(t, srv, http.MethodPost, fmt.Sprintf("/sessions/%d/finalize", sessID), nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d", rec.Code)
	}
	rec = doJSON(t, srv, http.MethodPost, fmt.Sprintf("/sessions/%d/finalize", sessID), nil)
	if rec.Code != http.StatusNotFound {
		t.Errorf("Expected 404 finalizing an evicted session, got %d", rec.Code)
	}
	rec = doJSON(t, srv, http.MethodGet, fmt.Sprintf("/sessions/%d", sessID), nil)
	if rec.Code != http.StatusNotFound {
		t.Errorf("Expected 404 fetching an evicted session, got %d", rec.Code)
	}

	rec = doJSON(t, srv, http.MethodGet, fmt.Sprintf("/decks/%d/summaries", deckID), nil)
	summaries := decode[[]map[string]any](t, rec)
	if len(summaries) != 1 || int(summaries[0]["total_reviews"].(float64)) != 2 {
		t.Errorf("Unexpected summary history: %+v", summaries)
	}
}

func TestStartSessionEmptyDeck(t *testing.T) {
	srv, db := newTestServer(t)
	deckID, err := db.InsertDeck("empty", "", domain.DefaultSettings(), time.Now())
	if err != nil {
		t.Fatal(err)
	}

	rec := doJSON(t, srv, http.MethodPost, fmt.Sprintf("/decks/%d/sessions", deckID), nil)
	if rec.Code != http.StatusConflict {
		t.Errorf("Expected 409 for an empty deck, got %d", rec.Code)
	}

	rec = doJSON(t, srv, http.MethodPost, "/decks/9999/sessions", nil)
	if rec.Code != http.StatusNotFound {
		t.Errorf("Expected 404 for a missing deck, got %d", rec.Code)
	}
}

func TestSourceEndpoints(t *testing.T) {
	srv, db := newTestServer(t)
	deckID, err := db.InsertDeck("sourced", "", domain.DefaultSettings(), time.Now())
	if err != nil {
		t.Fatal(err)
	}

	rec := doJSON(t, srv, http.MethodPost, "/sources", map[string]any{
		"path":    "https://github.com/user/cards.git",
		"deck_id": deckID,
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("Expected 201, got %d: %s", rec.Code, rec.Body.String())
	}
	created := decode[map[string]int64](t, rec)

	rec = doJSON(t, srv, http.MethodGet, "/sources", nil)
	sources := decode[[]map[string]any](t, rec)
	if len(sources) != 1 || sources[0]["type"] != "git" {
		t.Errorf("Unexpected source list: %+v", sources)
	}

	rec = doJSON(t, srv, http.MethodPost, "/sources", map[string]any{"path": ""})
	if rec.Code != http.StatusBadRequest {
		t.Errorf("Expected 400 for an empty path, got %d", rec.Code)
	}

	req := httptest.NewRequest(http.MethodDelete, fmt.Sprintf("/sources/%d", created["id"]), nil)
	recorder := httptest.NewRecorder()
	srv.ServeHTTP(recorder, req)
	if recorder.Code != http.StatusNoContent {
		t.Fatalf("Expected 204, got %d", recorder.Code)
	}

	rec = doJSON(t, srv, http.MethodGet, "/sources", nil)
	sources = decode[[]map[string]any](t, rec)
	if len(sources) != 0 {
		t.Errorf("Expected no sources after delete, got %+v", sources)
	}
}
