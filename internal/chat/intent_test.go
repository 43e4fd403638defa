package chat

import (
	"testing"
	"time"

	"medibot-backend/internal/models"
)

// Wednesday 2026-03-04 is the fixed "now" for date resolution tests.
func fixedNow() time.Time {
	return time.Date(2026, 3, 4, 11, 30, 0, 0, time.UTC)
}

func TestExtractIgnoresNonBookingMessages(t *testing.T) {
	e := NewKeywordExtractor()
	for _, message := range []string{
		"what are the visiting hours?",
		"where is the pharmacy",
		"hello",
	} {
		if _, ok := e.Extract(message, fixedNow()); ok {
			t.Errorf("Extract(%q) should not parse as booking", message)
		}
	}
}

func TestExtractDoctorName(t *testing.T) {
	e := NewKeywordExtractor()
	tests := []struct {
		message string
		want    string
	}{
		{"book appointment with Dr. Sharma tomorrow", "Sharma"},
		{"book an appointment with doctor Mehta today", "Mehta"},
		{"I want to book with Iyer on friday", "Iyer"},
		{"book an appointment tomorrow", ""},
	}
	for _, tt := range tests {
		intent, ok := e.Extract(tt.message, fixedNow())
		if !ok {
			t.Fatalf("Extract(%q) did not parse", tt.message)
		}
		if intent.DoctorQuery != tt.want {
			t.Errorf("Extract(%q) doctor = %q, want %q", tt.message, intent.DoctorQuery, tt.want)
		}
	}
}

func TestExtractDateResolution(t *testing.T) {
	e := NewKeywordExtractor()
	now := fixedNow()
	tests := []struct {
		message string
		want    string
		hasDate bool
	}{
		{"book with Dr. Rao today", "2026-03-04", true},
		{"book with Dr. Rao tomorrow", "2026-03-05", true},
		{"book with Dr. Rao on friday", "2026-03-06", true},
		// A weekday matching today maps a full week forward.
		{"book with Dr. Rao on wednesday", "2026-03-11", true},
		{"book with Dr. Rao sometime", "", false},
	}
	for _, tt := range tests {
		intent, ok := e.Extract(tt.message, now)
		if !ok {
			t.Fatalf("Extract(%q) did not parse", tt.message)
		}
		if intent.HasDate != tt.hasDate {
			t.Errorf("Extract(%q) hasDate = %v, want %v", tt.message, intent.HasDate, tt.hasDate)
			continue
		}
		if tt.hasDate && intent.Date.Format("2006-01-02") != tt.want {
			t.Errorf("Extract(%q) date = %s, want %s", tt.message, intent.Date.Format("2006-01-02"), tt.want)
		}
	}
}

func TestExtractSlotResolution(t *testing.T) {
	e := NewKeywordExtractor()
	tests := []struct {
		message string
		want    string
	}{
		{"book with Dr. Rao tomorrow morning", models.SlotMorning},
		{"book with Dr. Rao tomorrow at 10 am", models.SlotMorning},
		{"book with Dr. Rao tomorrow afternoon", models.SlotAfternoon},
		{"book with Dr. Rao tomorrow at 3 pm", models.SlotAfternoon},
		{"book with Dr. Rao tomorrow at 10:30 am", models.SlotMorning},
		{"book with Dr. Rao tomorrow evening", models.SlotEvening},
		{"book with Dr. Rao tomorrow at 6 pm in the evening", models.SlotEvening},
		// First-person "am" is not a time phrase.
		{"I am hoping to book an appointment with Dr. Rao tomorrow evening", models.SlotEvening},
		{"I am looking to book with Dr. Rao tomorrow afternoon", models.SlotAfternoon},
		{"I am free tomorrow, book with Dr. Rao", models.SlotMorning},
		{"book with Dr. Rao tomorrow", models.SlotMorning},
	}
	for _, tt := range tests {
		intent, ok := e.Extract(tt.message, fixedNow())
		if !ok {
			t.Fatalf("Extract(%q) did not parse", tt.message)
		}
		if intent.Slot != tt.want {
			t.Errorf("Extract(%q) slot = %s, want %s", tt.message, intent.Slot, tt.want)
		}
	}
}
