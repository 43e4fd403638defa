package reminder

import (
	"context"
	"io"
	"log/slog"
	"strings"
	"sync"
	"testing"
	"time"

	"medibot-backend/internal/chat"
)

type fakeSource struct {
	mu      sync.Mutex
	records map[string]*fakeRecord
}

type fakeRecord struct {
	due    Due
	sent24 bool
	sent2  bool
}

func newFakeSource(records ...Due) *fakeSource {
	s := &fakeSource{records: make(map[string]*fakeRecord)}
	for _, due := range records {
		s.records[due.ID] = &fakeRecord{due: due}
	}
	return s
}

func (s *fakeSource) Due(ctx context.Context, now time.Time, window Window) ([]Due, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Due, 0)
	until := now.Add(window.Duration())
	for _, record := range s.records {
		sent := record.sent24
		if window == Window2h {
			sent = record.sent2
		}
		if !sent && record.due.When.After(now) && !record.due.When.After(until) {
			out = append(out, record.due)
		}
	}
	return out, nil
}

func (s *fakeSource) MarkSent(ctx context.Context, id string, window Window) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	record, ok := s.records[id]
	if !ok {
		return false, nil
	}
	if window == Window2h {
		if record.sent2 {
			return false, nil
		}
		record.sent2 = true
	} else {
		if record.sent24 {
			return false, nil
		}
		record.sent24 = true
	}
	return true, nil
}

type fakeChats struct {
	mu       sync.Mutex
	appended map[string][]chat.Message
}

func newFakeChats() *fakeChats {
	return &fakeChats{appended: make(map[string][]chat.Message)}
}

func (f *fakeChats) Append(ctx context.Context, userID string, messages ...chat.Message) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.appended[userID] = append(f.appended[userID], messages...)
	return nil
}

func (f *fakeChats) count(userID string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.appended[userID])
}

type countingNotifier struct {
	mu   sync.Mutex
	sent []string
}

func (n *countingNotifier) Send(ctx context.Context, phone, message string) (string, error) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.sent = append(n.sent, message)
	return "msg-1", nil
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestSweepSendsWithinWindowOnly(t *testing.T) {
	now := time.Now()
	source := newFakeSource(
		Due{ID: "a1", UserID: "u1", Label: "appointment", When: now.Add(20 * time.Hour)},
		Due{ID: "a2", UserID: "u2", Label: "appointment", When: now.Add(90 * time.Minute)},
		Due{ID: "a3", UserID: "u3", Label: "appointment", When: now.Add(72 * time.Hour)},
	)
	chats := newFakeChats()
	notifier := &countingNotifier{}

	sweeper := NewSweeper([]Source{source}, chats, notifier, discardLogger(), time.Hour)
	sweeper.Sweep(context.Background())

	// a1: 24h reminder only. a2: inside both windows, one reminder per
	// window. a3: outside both.
	if got := chats.count("u1"); got != 1 {
		t.Errorf("u1 reminders = %d, want 1", got)
	}
	if got := chats.count("u2"); got != 2 {
		t.Errorf("u2 reminders = %d, want 2", got)
	}
	if got := chats.count("u3"); got != 0 {
		t.Errorf("u3 reminders = %d, want 0", got)
	}
	if len(notifier.sent) != 3 {
		t.Errorf("notifier sends = %d, want 3", len(notifier.sent))
	}
}

func TestSweepIsIdempotent(t *testing.T) {
	now := time.Now()
	source := newFakeSource(
		Due{ID: "a1", UserID: "u1", Label: "appointment", When: now.Add(20 * time.Hour)},
	)
	chats := newFakeChats()
	notifier := &countingNotifier{}

	sweeper := NewSweeper([]Source{source}, chats, notifier, discardLogger(), time.Hour)
	sweeper.Sweep(context.Background())
	sweeper.Sweep(context.Background())

	if got := chats.count("u1"); got != 1 {
		t.Fatalf("repeated sweep duplicated reminder: %d appends", got)
	}
}

func TestConcurrentSweepsSingleSend(t *testing.T) {
	now := time.Now()
	source := newFakeSource(
		Due{ID: "a1", UserID: "u1", Label: "appointment", When: now.Add(20 * time.Hour)},
	)
	chats := newFakeChats()
	notifier := &countingNotifier{}
	sweeper := NewSweeper([]Source{source}, chats, notifier, discardLogger(), time.Hour)

	var wg sync.WaitGroup
	for i := 0; i < 4; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			sweeper.Sweep(context.Background())
		}()
	}
	wg.Wait()

	if got := chats.count("u1"); got != 1 {
		t.Fatalf("overlapping sweeps double-sent: %d appends", got)
	}
}

func TestRenderMessageMentionsLabel(t *testing.T) {
	due := Due{Label: "video consultation", When: time.Date(2026, 3, 5, 10, 0, 0, 0, time.UTC)}
	msg := renderMessage(due, Window2h)
	if !strings.Contains(msg, "video consultation") || !strings.Contains(msg, "2 hours") {
		t.Fatalf("unexpected message: %s", msg)
	}
}
