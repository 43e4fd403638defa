package chat

import (
	"regexp"
	"strings"
	"time"

	"medibot-backend/internal/models"
	"medibot-backend/internal/scheduling"
)

// BookingIntent is the slot-filled result of scanning a chat message for a
// booking request. DoctorQuery and Date may be unset; the caller decides how
// to prompt for the missing pieces.
type BookingIntent struct {
	DoctorQuery string
	Date        time.Time
	HasDate     bool
	Slot        string
}

// IntentExtractor turns free text into a BookingIntent. The second return is
// false when the message is not a booking request at all.
type IntentExtractor interface {
	Extract(message string, now time.Time) (BookingIntent, bool)
}

// KeywordExtractor fills intent slots from keyword and pattern matches. Each
// slot is independent, so a partially stated request still parses and the
// conversation can ask for what is missing.
type KeywordExtractor struct{}

func NewKeywordExtractor() *KeywordExtractor {
	return &KeywordExtractor{}
}

var (
	doctorPattern = regexp.MustCompile(`(?i)(?:dr\.?|doctor)\s+([\p{L}]+)`)
	withPattern   = regexp.MustCompile(`(?i)\bwith\s+([\p{L}]+)`)
)

var weekdays = map[string]time.Weekday{
	"sunday":    time.Sunday,
	"monday":    time.Monday,
	"tuesday":   time.Tuesday,
	"wednesday": time.Wednesday,
	"thursday":  time.Thursday,
	"friday":    time.Friday,
	"saturday":  time.Saturday,
}

func (e *KeywordExtractor) Extract(message string, now time.Time) (BookingIntent, bool) {
	lower := strings.ToLower(message)

	if !strings.Contains(lower, "book") && !strings.Contains(lower, "appointment") && !strings.Contains(lower, "schedule") {
		return BookingIntent{}, false
	}

	intent := BookingIntent{Slot: extractSlot(lower)}

	if m := doctorPattern.FindStringSubmatch(message); m != nil {
		intent.DoctorQuery = m[1]
	} else if m := withPattern.FindStringSubmatch(message); m != nil {
		intent.DoctorQuery = m[1]
	}

	if date, ok := extractDate(lower, now); ok {
		intent.Date = date
		intent.HasDate = true
	}

	return intent, true
}

// extractDate resolves "today", "tomorrow" and weekday names. A weekday name
// always maps forward to the next occurrence, never the same day.
func extractDate(lower string, now time.Time) (time.Time, bool) {
	today := scheduling.Normalize(now)

	if strings.Contains(lower, "today") {
		return today, true
	}
	if strings.Contains(lower, "tomorrow") {
		return today.AddDate(0, 0, 1), true
	}
	for name, day := range weekdays {
		if strings.Contains(lower, name) {
			return scheduling.NextOccurrence(day, today), true
		}
	}
	return time.Time{}, false
}

// am/pm only count as a time phrase when anchored to a clock digit, so the
// bare "am" in "I am hoping to book" never reads as a morning request.
var (
	amPattern = regexp.MustCompile(`\b\d{1,2}(?::\d{2})?\s*am\b`)
	pmPattern = regexp.MustCompile(`\b\d{1,2}(?::\d{2})?\s*pm\b`)
)

func extractSlot(lower string) string {
	switch {
	case strings.Contains(lower, "morning"), amPattern.MatchString(lower):
		return models.SlotMorning
	case strings.Contains(lower, "evening"):
		return models.SlotEvening
	case strings.Contains(lower, "afternoon"), pmPattern.MatchString(lower):
		return models.SlotAfternoon
	}
	return models.SlotMorning
}
