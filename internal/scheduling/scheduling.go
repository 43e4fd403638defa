package scheduling

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"medibot-backend/internal/models"
)

// WaitMinutesPerPatient is the fixed per-patient service time used for queue
// estimates.
const WaitMinutesPerPatient = 15

var ErrInvalidDate = errors.New("invalid date format")
var ErrInvalidSlot = errors.New("invalid slot name")

// DayUnavailableError reports a booking attempt on a weekday the doctor does
// not sit.
type DayUnavailableError struct {
	DoctorName string
	Day        string
	Days       []string
}

func (e *DayUnavailableError) Error() string {
	return fmt.Sprintf("Dr. %s is not available on %s. Available days: %s",
		e.DoctorName, e.Day, strings.Join(e.Days, ", "))
}

// SlotDisabledError reports a booking attempt against a slot the doctor has
// switched off.
type SlotDisabledError struct {
	DoctorName string
	Slot       string
}

func (e *SlotDisabledError) Error() string {
	return fmt.Sprintf("%s slot is not available for Dr. %s", e.Slot, e.DoctorName)
}

// ParseDate parses a calendar date and normalizes it to midnight UTC. Dates
// are day-granular throughout: every call site stores and queries the value
// returned here, so two bookings for the same day always collide.
func ParseDate(value string) (time.Time, error) {
	parsed, err := time.Parse("2006-01-02", value)
	if err != nil {
		return time.Time{}, ErrInvalidDate
	}
	return Normalize(parsed), nil
}

// Normalize truncates a timestamp to midnight UTC.
func Normalize(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

// DayName resolves the English weekday name for a normalized date.
func DayName(date time.Time) string {
	return date.Weekday().String()
}

func ValidSlot(slot string) bool {
	switch slot {
	case models.SlotMorning, models.SlotAfternoon, models.SlotEvening:
		return true
	}
	return false
}

// CheckAvailability verifies the availability descriptor: the doctor's
// weekday list must contain the date's weekday and the named slot must be
// enabled. It does not look at occupancy.
func CheckAvailability(doctor models.Doctor, date time.Time, slot string) error {
	if !ValidSlot(slot) {
		return ErrInvalidSlot
	}

	day := DayName(date)
	available := false
	for _, d := range doctor.DaysAvailable {
		if d == day {
			available = true
			break
		}
	}
	if !available {
		return &DayUnavailableError{DoctorName: doctor.Name, Day: day, Days: doctor.DaysAvailable}
	}

	timing, ok := doctor.Timings.Get(slot)
	if !ok || !timing.Available {
		return &SlotDisabledError{DoctorName: doctor.Name, Slot: slot}
	}

	return nil
}

// EstimatedWait converts a token number into the linear wait estimate in
// minutes.
func EstimatedWait(token int) int {
	if token <= 1 {
		return 0
	}
	return (token - 1) * WaitMinutesPerPatient
}

// NextOccurrence maps a weekday name to its next calendar occurrence after
// "from", never the same day. Used by the conversational date resolver.
func NextOccurrence(day time.Weekday, from time.Time) time.Time {
	from = Normalize(from)
	delta := (int(day) - int(from.Weekday()) + 7) % 7
	if delta == 0 {
		delta = 7
	}
	return from.AddDate(0, 0, delta)
}
