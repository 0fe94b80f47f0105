package admin

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"

	"github.com/hostfolk/porter/internal/archive"
	"github.com/hostfolk/porter/internal/session"
)

func newTestServer(t *testing.T, opts ...Option) (*Server, *session.Store) {
	t.Helper()

	store := session.NewStore(session.Config{}, nil)
	s, err := NewServer(Config{BearerToken: "secret"}, store, NewMetrics(), opts...)
	if err != nil {
		t.Fatal(err)
	}
	return s, store
}

func doRequest(t *testing.T, s *Server, method, path, token string) *httptest.ResponseRecorder {
	t.Helper()

	req := httptest.NewRequest(method, path, nil)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)
	return rec
}

func TestHealth(t *testing.T) {
	t.Parallel()

	s, store := newTestServer(t)
	store.RecordUserMessage("C1", "alice", "hello")

	rec := doRequest(t, s, http.MethodGet, "/health", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}

	var resp HealthResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatal(err)
	}
	if resp.Status != "ok" || resp.Channels != 1 {
		t.Errorf("health = %+v", resp)
	}
}

func TestMetricsEndpoint(t *testing.T) {
	t.Parallel()

	s, _ := newTestServer(t)
	s.metrics.Messages.Inc()

	rec := doRequest(t, s, http.MethodGet, "/metrics", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "porter_messages_total 1") {
		t.Errorf("metrics output missing counter:\n%s", rec.Body.String())
	}
}

func TestAuthRequired(t *testing.T) {
	t.Parallel()

	s, _ := newTestServer(t)

	if rec := doRequest(t, s, http.MethodGet, "/status", ""); rec.Code != http.StatusUnauthorized {
		t.Errorf("missing token: status = %d", rec.Code)
	}
	if rec := doRequest(t, s, http.MethodGet, "/status", "wrong"); rec.Code != http.StatusUnauthorized {
		t.Errorf("wrong token: status = %d", rec.Code)
	}
	if rec := doRequest(t, s, http.MethodGet, "/status", "secret"); rec.Code != http.StatusOK {
		t.Errorf("valid token: status = %d", rec.Code)
	}
}

func TestAdminRoutesNotMountedWithoutToken(t *testing.T) {
	t.Parallel()

	store := session.NewStore(session.Config{}, nil)
	s, err := NewServer(Config{}, store, NewMetrics())
	if err != nil {
		t.Fatal(err)
	}

	rec := doRequest(t, s, http.MethodGet, "/status", "")
	if rec.Code != http.StatusNotFound {
		t.Errorf("status route mounted without auth: %d", rec.Code)
	}
}

func TestListConversations(t *testing.T) {
	t.Parallel()

	s, store := newTestServer(t)
	store.RecordUserMessage("C2", "bob", "hi")
	store.RecordUserMessage("C1", "alice", "hello")
	store.RecordAssistantMessage("C1", "hey")

	rec := doRequest(t, s, http.MethodGet, "/api/conversations", "secret")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}

	var resp []conversationJSON
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatal(err)
	}
	if len(resp) != 2 || resp[0].ChannelID != "C1" || resp[0].Messages != 2 {
		t.Errorf("conversations = %+v", resp)
	}
}

func TestGetConversation(t *testing.T) {
	t.Parallel()

	s, store := newTestServer(t)
	store.RecordUserMessage("C1", "alice", "hello")

	rec := doRequest(t, s, http.MethodGet, "/api/conversations/C1", "secret")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}

	var msgs []session.Message
	if err := json.Unmarshal(rec.Body.Bytes(), &msgs); err != nil {
		t.Fatal(err)
	}
	if len(msgs) != 1 || msgs[0].Role != session.RoleUser {
		t.Errorf("messages = %+v", msgs)
	}

	if rec := doRequest(t, s, http.MethodGet, "/api/conversations/missing", "secret"); rec.Code != http.StatusNotFound {
		t.Errorf("missing conversation: status = %d", rec.Code)
	}
}

func TestDeleteConversation(t *testing.T) {
	t.Parallel()

	s, store := newTestServer(t)
	store.RecordUserMessage("C1", "alice", "hello")

	if rec := doRequest(t, s, http.MethodDelete, "/api/conversations/C1", "secret"); rec.Code != http.StatusNoContent {
		t.Errorf("delete: status = %d", rec.Code)
	}
	if store.History("C1") != nil {
		t.Error("conversation survived delete")
	}
	if rec := doRequest(t, s, http.MethodDelete, "/api/conversations/C1", "secret"); rec.Code != http.StatusNotFound {
		t.Errorf("second delete: status = %d", rec.Code)
	}
}

func TestGetTranscript(t *testing.T) {
	t.Parallel()

	a, err := archive.Open(filepath.Join(t.TempDir(), "transcripts.db"))
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { _ = a.Close() })

	if err := a.Record(t.Context(), archive.Entry{
		ChannelID: "C1", AuthorID: "U1", Role: "user", Content: "help",
	}); err != nil {
		t.Fatal(err)
	}

	s, _ := newTestServer(t, WithArchive(a))

	rec := doRequest(t, s, http.MethodGet, "/api/transcripts/C1", "secret")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d: %s", rec.Code, rec.Body.String())
	}

	var entries []archive.Entry
	if err := json.Unmarshal(rec.Body.Bytes(), &entries); err != nil {
		t.Fatal(err)
	}
	if len(entries) != 1 || entries[0].Content != "help" {
		t.Errorf("entries = %+v", entries)
	}

	if rec := doRequest(t, s, http.MethodGet, "/api/transcripts/none", "secret"); rec.Code != http.StatusNotFound {
		t.Errorf("empty transcript: status = %d", rec.Code)
	}
	if rec := doRequest(t, s, http.MethodGet, "/api/transcripts/C1?limit=bogus", "secret"); rec.Code != http.StatusBadRequest {
		t.Errorf("bad limit: status = %d", rec.Code)
	}
}

func TestTranscriptWithoutArchive(t *testing.T) {
	t.Parallel()

	s, _ := newTestServer(t)
	if rec := doRequest(t, s, http.MethodGet, "/api/transcripts/C1", "secret"); rec.Code != http.StatusServiceUnavailable {
		t.Errorf("status = %d", rec.Code)
	}
}
