package scheduling

import (
	"errors"
	"testing"
	"time"

	"medibot-backend/internal/models"
)

func weekdayDoctor() models.Doctor {
	return models.Doctor{
		Name:          "Sharma",
		DaysAvailable: []string{"Monday", "Tuesday", "Wednesday", "Thursday", "Friday"},
		Timings: models.Timings{
			Morning:   models.SlotTiming{Start: "09:00", End: "12:00", Available: true},
			Afternoon: models.SlotTiming{Start: "14:00", End: "17:00", Available: true},
			Evening:   models.SlotTiming{Start: "18:00", End: "20:00", Available: false},
		},
		MaxPatientsPerSlot: 5,
	}
}

func TestParseDateNormalizesToMidnightUTC(t *testing.T) {
	date, err := ParseDate("2026-03-02")
	if err != nil {
		t.Fatalf("ParseDate error: %v", err)
	}
	if date.Hour() != 0 || date.Minute() != 0 || date.Location() != time.UTC {
		t.Fatalf("date not normalized: %v", date)
	}
	if DayName(date) != "Monday" {
		t.Fatalf("expected Monday, got %s", DayName(date))
	}
}

func TestParseDateRejectsGarbage(t *testing.T) {
	for _, value := range []string{"", "02-03-2026", "2026/03/02", "tomorrow"} {
		if _, err := ParseDate(value); !errors.Is(err, ErrInvalidDate) {
			t.Errorf("ParseDate(%q) expected ErrInvalidDate, got %v", value, err)
		}
	}
}

func TestCheckAvailabilityWeekday(t *testing.T) {
	doctor := weekdayDoctor()
	monday, _ := ParseDate("2026-03-02")

	if err := CheckAvailability(doctor, monday, models.SlotMorning); err != nil {
		t.Fatalf("expected available, got %v", err)
	}
}

func TestCheckAvailabilityDayOff(t *testing.T) {
	doctor := weekdayDoctor()
	sunday, _ := ParseDate("2026-03-01")

	err := CheckAvailability(doctor, sunday, models.SlotMorning)
	var dayErr *DayUnavailableError
	if !errors.As(err, &dayErr) {
		t.Fatalf("expected DayUnavailableError, got %v", err)
	}
	if dayErr.Day != "Sunday" {
		t.Fatalf("expected Sunday in rejection, got %s", dayErr.Day)
	}
}

func TestCheckAvailabilityDisabledSlot(t *testing.T) {
	doctor := weekdayDoctor()
	monday, _ := ParseDate("2026-03-02")

	err := CheckAvailability(doctor, monday, models.SlotEvening)
	var slotErr *SlotDisabledError
	if !errors.As(err, &slotErr) {
		t.Fatalf("expected SlotDisabledError, got %v", err)
	}
}

func TestCheckAvailabilityUnknownSlot(t *testing.T) {
	doctor := weekdayDoctor()
	monday, _ := ParseDate("2026-03-02")

	if err := CheckAvailability(doctor, monday, "night"); !errors.Is(err, ErrInvalidSlot) {
		t.Fatalf("expected ErrInvalidSlot, got %v", err)
	}
}

func TestEstimatedWait(t *testing.T) {
	tests := []struct {
		token int
		want  int
	}{
		{1, 0},
		{2, 15},
		{5, 60},
		{0, 0},
	}
	for _, tt := range tests {
		if got := EstimatedWait(tt.token); got != tt.want {
			t.Errorf("EstimatedWait(%d) = %d, want %d", tt.token, got, tt.want)
		}
	}
}

func TestNextOccurrenceNeverSameDay(t *testing.T) {
	monday, _ := ParseDate("2026-03-02")

	next := NextOccurrence(time.Monday, monday)
	if !next.Equal(monday.AddDate(0, 0, 7)) {
		t.Fatalf("expected next Monday a week out, got %v", next)
	}

	friday := NextOccurrence(time.Friday, monday)
	if !friday.Equal(monday.AddDate(0, 0, 4)) {
		t.Fatalf("expected Friday of same week, got %v", friday)
	}
}
