package chat

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"medibot-backend/internal/booking"
	"medibot-backend/internal/scheduling"
)

// InsuranceSource supplies the active provider names embedded in the prompt.
type InsuranceSource interface {
	ActiveProviderNames(ctx context.Context) ([]string, error)
}

// NameSource resolves the display name of the chatting user.
type NameSource interface {
	Name(ctx context.Context, userID string) (string, error)
}

const promptHistoryWindow = 6

var emergencyKeywords = []string{
	"emergency",
	"chest pain",
	"heart attack",
	"stroke",
	"unconscious",
	"not breathing",
	"severe bleeding",
	"accident",
	"suicide",
}

type Service struct {
	store     Store
	llm       Generator
	extractor IntentExtractor
	booking   *booking.Service
	doctors   booking.DoctorStore
	insurance InsuranceSource
	names     NameSource
	log       *slog.Logger

	hospitalName string
	helpline     string
	timezone     *time.Location
}

type ServiceParams struct {
	Store        Store
	LLM          Generator
	Extractor    IntentExtractor
	Booking      *booking.Service
	Doctors      booking.DoctorStore
	Insurance    InsuranceSource
	Names        NameSource
	Log          *slog.Logger
	HospitalName string
	Helpline     string
	Timezone     *time.Location
}

func NewService(p ServiceParams) *Service {
	tz := p.Timezone
	if tz == nil {
		tz = time.UTC
	}
	return &Service{
		store:        p.Store,
		llm:          p.LLM,
		extractor:    p.Extractor,
		booking:      p.Booking,
		doctors:      p.Doctors,
		insurance:    p.Insurance,
		names:        p.Names,
		log:          p.Log,
		hospitalName: p.HospitalName,
		helpline:     p.Helpline,
		timezone:     tz,
	}
}

// Handle processes one user message and returns the assistant reply. Both
// sides of the exchange are appended to the conversation.
func (s *Service) Handle(ctx context.Context, userID, message string) (string, error) {
	message = strings.TrimSpace(message)

	conv, err := s.store.History(ctx, userID)
	if err != nil {
		return "", err
	}

	if lang := Detect(message); lang != "en" && lang != conv.Language {
		conv.Language = lang
		if err := s.store.SetLanguage(ctx, userID, lang); err != nil {
			s.log.Warn("chat handle: language update failed", slog.String("error", err.Error()))
		}
	}

	now := time.Now()
	userMsg := Message{Role: RoleUser, Content: message, Timestamp: now}

	reply := s.replyFor(ctx, userID, conv, message)

	assistantMsg := Message{Role: RoleAssistant, Content: reply, Timestamp: time.Now()}
	if err := s.store.Append(ctx, userID, userMsg, assistantMsg); err != nil {
		return "", err
	}
	return reply, nil
}

func (s *Service) replyFor(ctx context.Context, userID string, conv Conversation, message string) string {
	if isEmergency(message) {
		return fmt.Sprintf(
			"This sounds like a medical emergency. Please call our emergency helpline %s immediately or go to the nearest emergency room. Do not wait for a chat response.",
			s.helpline)
	}

	if intent, ok := s.extractor.Extract(message, time.Now().In(s.timezone)); ok {
		return s.autoBook(ctx, userID, intent)
	}

	reply, err := s.llm.Generate(ctx, s.buildPrompt(ctx, conv, message))
	if err != nil {
		s.log.Warn("chat handle: llm unavailable", slog.String("error", err.Error()))
		return fmt.Sprintf(
			"I am sorry, I am having trouble responding right now. Please try again in a moment, or call our helpline %s for assistance.",
			s.helpline)
	}
	return reply
}

// autoBook runs the extracted intent through the regular booking path. Every
// failure comes back as a conversational sentence rather than an error.
func (s *Service) autoBook(ctx context.Context, userID string, intent BookingIntent) string {
	if intent.DoctorQuery == "" {
		return "I can help you book an appointment. Which doctor or department would you like to visit?"
	}
	if !intent.HasDate {
		return fmt.Sprintf("Which day would you like to see Dr. %s? You can say today, tomorrow, or a weekday.", intent.DoctorQuery)
	}

	doctor, err := s.doctors.FindByName(ctx, intent.DoctorQuery)
	if err != nil {
		doctor, err = s.doctors.FindByDepartment(ctx, intent.DoctorQuery)
	}
	if err != nil {
		return fmt.Sprintf("I could not find a doctor matching %q. You can ask me to list our doctors or departments.", intent.DoctorQuery)
	}

	name, err := s.names.Name(ctx, userID)
	if err != nil || name == "" {
		name = "Patient"
	}

	appt, _, err := s.booking.Book(ctx, booking.BookParams{
		UserID:      userID,
		DoctorID:    doctor.ID,
		PatientName: name,
		Date:        intent.Date.Format("2006-01-02"),
		Slot:        intent.Slot,
	})
	if err != nil {
		var dayErr *scheduling.DayUnavailableError
		var slotErr *scheduling.SlotDisabledError
		switch {
		case errors.As(err, &dayErr), errors.As(err, &slotErr):
			return err.Error() + " Would you like to try another day?"
		case errors.Is(err, scheduling.ErrSlotFull):
			return fmt.Sprintf("The %s slot for Dr. %s on %s is fully booked. Would you like to try another slot or day?",
				intent.Slot, doctor.Name, intent.Date.Format("2006-01-02"))
		default:
			s.log.Error("chat autobook: booking failed", slog.String("error", err.Error()))
			return fmt.Sprintf("Something went wrong while booking your appointment. Please try again or call %s.", s.helpline)
		}
	}

	return fmt.Sprintf(
		"Your appointment with Dr. %s is booked for %s (%s slot) at %s. Your token number is %d and the estimated wait is %d minutes.",
		doctor.Name, appt.Date.Format("Monday, 02 Jan 2006"), appt.Slot, appt.Time, appt.TokenNumber, appt.EstimatedWaitTime)
}

func (s *Service) buildPrompt(ctx context.Context, conv Conversation, message string) string {
	var b strings.Builder
	b.WriteString(Persona(conv.Language))
	b.WriteString("\n\nHospital: ")
	b.WriteString(s.hospitalName)
	b.WriteString(". Helpline: ")
	b.WriteString(s.helpline)
	b.WriteString(".\n")

	if s.insurance != nil {
		if providers, err := s.insurance.ActiveProviderNames(ctx); err == nil && len(providers) > 0 {
			b.WriteString("Accepted insurance providers: ")
			b.WriteString(strings.Join(providers, ", "))
			b.WriteString(".\n")
		}
	}

	history := conv.Messages
	if len(history) > promptHistoryWindow {
		history = history[len(history)-promptHistoryWindow:]
	}
	if len(history) > 0 {
		b.WriteString("\nConversation so far:\n")
		for _, msg := range history {
			b.WriteString(msg.Role)
			b.WriteString(": ")
			b.WriteString(msg.Content)
			b.WriteString("\n")
		}
	}

	b.WriteString("\nuser: ")
	b.WriteString(message)
	b.WriteString("\nassistant:")
	return b.String()
}

func isEmergency(message string) bool {
	lower := strings.ToLower(message)
	for _, keyword := range emergencyKeywords {
		if strings.Contains(lower, keyword) {
			return true
		}
	}
	return false
}
