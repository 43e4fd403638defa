package booking

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"medibot-backend/internal/auth"
	"medibot-backend/internal/middleware"
	"medibot-backend/internal/validation"

	"github.com/go-chi/chi/v5"
)

// recordingCache captures prefix invalidations so tests can assert which
// cached availability entries a mutation dropped.
type recordingCache struct {
	deleted []string
}

func (c *recordingCache) Get(ctx context.Context, key string) ([]byte, bool, error) {
	return nil, false, nil
}

func (c *recordingCache) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	return nil
}

func (c *recordingCache) Delete(ctx context.Context, key string) error {
	return nil
}

func (c *recordingCache) DeletePrefix(ctx context.Context, prefix string) error {
	c.deleted = append(c.deleted, prefix)
	return nil
}

func (c *recordingCache) contains(prefix string) bool {
	for _, d := range c.deleted {
		if d == prefix {
			return true
		}
	}
	return false
}

func testRouter(t *testing.T, h *Handler, tokens *auth.Manager) http.Handler {
	t.Helper()
	r := chi.NewRouter()
	r.Use(middleware.RequireUser(tokens))
	r.Put("/appointments/{id}/reschedule", h.Reschedule)
	return r
}

// Moving an appointment frees a seat on the old day, so the cached
// availability for both the old and the new date must be dropped.
func TestRescheduleInvalidatesBothDates(t *testing.T) {
	svc, _, _ := testService(3)
	appt := mustBook(t, svc, "u1")

	rec := &recordingCache{}
	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	h := NewHandler(svc, validation.New(), log, rec, time.Minute)

	tokens := &auth.Manager{Secret: []byte("test-secret"), AccessTTL: time.Hour, Issuer: "test"}
	token, err := tokens.NewToken("u1", false)
	if err != nil {
		t.Fatalf("NewToken failed: %v", err)
	}

	body := `{"date":"2026-03-03","slot":"morning"}`
	req := httptest.NewRequest(http.MethodPut, "/appointments/"+appt.ID+"/reschedule", strings.NewReader(body))
	req.Header.Set("Authorization", "Bearer "+token)
	w := httptest.NewRecorder()
	testRouter(t, h, tokens).ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", w.Code, w.Body.String())
	}
	if !rec.contains("availability:doc1:2026-03-03") {
		t.Errorf("new date not invalidated, deleted = %v", rec.deleted)
	}
	if !rec.contains("availability:doc1:2026-03-02") {
		t.Errorf("vacated date not invalidated, deleted = %v", rec.deleted)
	}
}

func TestRescheduleSameDateInvalidatesOnce(t *testing.T) {
	svc, _, _ := testService(3)
	appt := mustBook(t, svc, "u1")

	rec := &recordingCache{}
	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	h := NewHandler(svc, validation.New(), log, rec, time.Minute)

	tokens := &auth.Manager{Secret: []byte("test-secret"), AccessTTL: time.Hour, Issuer: "test"}
	token, err := tokens.NewToken("u1", false)
	if err != nil {
		t.Fatalf("NewToken failed: %v", err)
	}

	body := `{"date":"2026-03-02","slot":"afternoon"}`
	req := httptest.NewRequest(http.MethodPut, "/appointments/"+appt.ID+"/reschedule", strings.NewReader(body))
	req.Header.Set("Authorization", "Bearer "+token)
	w := httptest.NewRecorder()
	testRouter(t, h, tokens).ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", w.Code, w.Body.String())
	}
	if len(rec.deleted) != 1 || !rec.contains("availability:doc1:2026-03-02") {
		t.Errorf("same-date move should invalidate once, deleted = %v", rec.deleted)
	}
}
