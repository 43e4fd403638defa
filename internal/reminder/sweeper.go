package reminder

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"medibot-backend/internal/chat"
)

// Window identifies which of the two reminder horizons a sweep is serving.
type Window int

const (
	Window24h Window = iota
	Window2h
)

func (w Window) Duration() time.Duration {
	if w == Window2h {
		return 2 * time.Hour
	}
	return 24 * time.Hour
}

func (w Window) String() string {
	if w == Window2h {
		return "2h"
	}
	return "24h"
}

// Due is one record that needs a reminder.
type Due struct {
	ID     string
	UserID string
	Phone  string
	Label  string
	When   time.Time
}

// Source lists due records for a window and marks them sent. MarkSent must be
// conditional on the unsent flag and report false when another sweep got
// there first.
type Source interface {
	Due(ctx context.Context, now time.Time, window Window) ([]Due, error)
	MarkSent(ctx context.Context, id string, window Window) (bool, error)
}

// ChatAppender receives the reminder text in the user's conversation.
type ChatAppender interface {
	Append(ctx context.Context, userID string, messages ...chat.Message) error
}

// Sweeper periodically scans all sources for upcoming records and fans each
// reminder out to the chat store and the notifier.
type Sweeper struct {
	sources  []Source
	chats    ChatAppender
	notifier Notifier
	log      *slog.Logger
	interval time.Duration
}

func NewSweeper(sources []Source, chats ChatAppender, notifier Notifier, log *slog.Logger, interval time.Duration) *Sweeper {
	if interval <= 0 {
		interval = time.Hour
	}
	return &Sweeper{
		sources:  sources,
		chats:    chats,
		notifier: notifier,
		log:      log,
		interval: interval,
	}
}

// Run sweeps once immediately and then on every tick until the context is
// cancelled.
func (s *Sweeper) Run(ctx context.Context) {
	s.Sweep(ctx)

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			s.log.Info("reminder run: stopped")
			return
		case <-ticker.C:
			s.Sweep(ctx)
		}
	}
}

// Sweep processes both windows across all sources. The flag is flipped before
// anything is sent, so a record is reminded at most once per window even when
// two sweeps overlap.
func (s *Sweeper) Sweep(ctx context.Context) {
	now := time.Now()
	for _, source := range s.sources {
		for _, window := range []Window{Window24h, Window2h} {
			s.sweepWindow(ctx, source, now, window)
		}
	}
}

func (s *Sweeper) sweepWindow(ctx context.Context, source Source, now time.Time, window Window) {
	due, err := source.Due(ctx, now, window)
	if err != nil {
		s.log.Error("reminder sweep: list failed",
			slog.String("window", window.String()),
			slog.String("error", err.Error()),
		)
		return
	}

	for _, record := range due {
		marked, err := source.MarkSent(ctx, record.ID, window)
		if err != nil {
			s.log.Error("reminder sweep: mark failed",
				slog.String("id", record.ID),
				slog.String("error", err.Error()),
			)
			continue
		}
		if !marked {
			continue
		}

		message := renderMessage(record, window)
		if err := s.chats.Append(ctx, record.UserID, chat.Message{
			Role:      chat.RoleSystem,
			Content:   message,
			Timestamp: now,
		}); err != nil {
			s.log.Error("reminder sweep: chat append failed",
				slog.String("id", record.ID),
				slog.String("error", err.Error()),
			)
		}

		if _, err := s.notifier.Send(ctx, record.Phone, message); err != nil {
			s.log.Error("reminder sweep: notify failed",
				slog.String("id", record.ID),
				slog.String("error", err.Error()),
			)
		}
	}
}

func renderMessage(record Due, window Window) string {
	when := record.When.Format("Monday, 02 Jan 2006 at 15:04")
	if window == Window2h {
		return fmt.Sprintf("Reminder: your %s is coming up in about 2 hours, on %s. Please arrive 15 minutes early.", record.Label, when)
	}
	return fmt.Sprintf("Reminder: your %s is scheduled for %s. Reply here if you need to reschedule.", record.Label, when)
}
