package booking

import (
	"context"
	"errors"
	"strings"
	"time"

	"medibot-backend/internal/models"
	"medibot-backend/internal/scheduling"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

var (
	ErrDoctorNotFound   = errors.New("doctor not found")
	ErrNotFound         = errors.New("appointment not found")
	ErrAlreadyCancelled = errors.New("appointment is already cancelled")
	ErrNotActive        = errors.New("appointment is not active")
)

type DoctorStore interface {
	GetByID(ctx context.Context, id string) (models.Doctor, error)
	FindByName(ctx context.Context, name string) (models.Doctor, error)
	FindByDepartment(ctx context.Context, department string) (models.Doctor, error)
}

type AppointmentStore interface {
	Insert(ctx context.Context, appt models.Appointment) error
	GetForUser(ctx context.Context, id, userID string) (models.Appointment, error)
	ListForUser(ctx context.Context, userID string) ([]models.Appointment, error)
	Update(ctx context.Context, appt models.Appointment) error
	CountActive(ctx context.Context, doctorID string, date time.Time, slot string) (int64, error)
	CountAhead(ctx context.Context, doctorID string, date time.Time, slot string, token int) (int64, error)
}

type SlotReserver interface {
	Reserve(ctx context.Context, doctorID string, date time.Time, slot string, capacity int) (int, error)
	Release(ctx context.Context, doctorID string, date time.Time, slot string) error
}

type Service struct {
	doctors      DoctorStore
	appointments AppointmentStore
	slots        SlotReserver
}

func NewService(doctors DoctorStore, appointments AppointmentStore, slots SlotReserver) *Service {
	return &Service{
		doctors:      doctors,
		appointments: appointments,
		slots:        slots,
	}
}

type BookParams struct {
	UserID      string
	DoctorID    string
	PatientName string
	Date        string
	Slot        string
	Time        string
	Notes       string
}

// Book runs the full allocation path: availability descriptor checks, an
// atomic seat reservation, then the appointment write. The reservation is
// compensated if the write fails.
func (s *Service) Book(ctx context.Context, params BookParams) (models.Appointment, models.Doctor, error) {
	doctor, err := s.doctors.GetByID(ctx, params.DoctorID)
	if err != nil {
		return models.Appointment{}, models.Doctor{}, err
	}

	date, err := scheduling.ParseDate(params.Date)
	if err != nil {
		return models.Appointment{}, models.Doctor{}, err
	}

	if err := scheduling.CheckAvailability(doctor, date, params.Slot); err != nil {
		return models.Appointment{}, models.Doctor{}, err
	}

	token, err := s.slots.Reserve(ctx, doctor.ID, date, params.Slot, doctor.MaxPatientsPerSlot)
	if err != nil {
		return models.Appointment{}, models.Doctor{}, err
	}

	slotTime := strings.TrimSpace(params.Time)
	if slotTime == "" {
		timing, _ := doctor.Timings.Get(params.Slot)
		slotTime = timing.Start
	}

	appt := models.Appointment{
		ID:                primitive.NewObjectID().Hex(),
		UserID:            params.UserID,
		DoctorID:          doctor.ID,
		PatientName:       strings.TrimSpace(params.PatientName),
		Date:              date,
		Slot:              params.Slot,
		Time:              slotTime,
		Status:            models.AppointmentStatusScheduled,
		TokenNumber:       token,
		QueuePosition:     token,
		EstimatedWaitTime: scheduling.EstimatedWait(token),
		Notes:             strings.TrimSpace(params.Notes),
		CreatedAt:         time.Now(),
	}

	if err := s.appointments.Insert(ctx, appt); err != nil {
		_ = s.slots.Release(ctx, doctor.ID, date, params.Slot)
		return models.Appointment{}, models.Doctor{}, err
	}

	return appt, doctor, nil
}

func (s *Service) ListForUser(ctx context.Context, userID string) ([]models.Appointment, error) {
	return s.appointments.ListForUser(ctx, userID)
}

// Cancel marks the appointment cancelled and frees its seat. Cancelling an
// already-cancelled appointment is rejected rather than absorbed.
func (s *Service) Cancel(ctx context.Context, appointmentID, userID string) (models.Appointment, error) {
	appt, err := s.appointments.GetForUser(ctx, appointmentID, userID)
	if err != nil {
		return models.Appointment{}, err
	}

	if appt.Status == models.AppointmentStatusCancelled {
		return models.Appointment{}, ErrAlreadyCancelled
	}

	wasActive := appt.Status == models.AppointmentStatusScheduled || appt.Status == models.AppointmentStatusRescheduled

	appt.Status = models.AppointmentStatusCancelled
	if err := s.appointments.Update(ctx, appt); err != nil {
		return models.Appointment{}, err
	}

	if wasActive {
		_ = s.slots.Release(ctx, appt.DoctorID, appt.Date, appt.Slot)
	}

	return appt, nil
}

type RescheduleParams struct {
	AppointmentID string
	UserID        string
	Date          string
	Slot          string
	Time          string
}

// RescheduleResult carries the updated appointment together with the vacated
// (date, slot), so callers can refresh anything keyed on the old group.
type RescheduleResult struct {
	Appointment  models.Appointment
	PreviousDate time.Time
	PreviousSlot string
	Moved        bool
}

// Reschedule moves the appointment to a new (date, slot): the new seat is
// reserved before the old one is released, so the move never drops both.
// Token numbers in the vacated slot are left untouched. Moving within the
// same (date, slot) keeps the existing token.
func (s *Service) Reschedule(ctx context.Context, params RescheduleParams) (RescheduleResult, error) {
	appt, err := s.appointments.GetForUser(ctx, params.AppointmentID, params.UserID)
	if err != nil {
		return RescheduleResult{}, err
	}

	if appt.Status == models.AppointmentStatusCancelled {
		return RescheduleResult{}, ErrAlreadyCancelled
	}

	doctor, err := s.doctors.GetByID(ctx, appt.DoctorID)
	if err != nil {
		return RescheduleResult{}, err
	}

	date, err := scheduling.ParseDate(params.Date)
	if err != nil {
		return RescheduleResult{}, err
	}

	if err := scheduling.CheckAvailability(doctor, date, params.Slot); err != nil {
		return RescheduleResult{}, err
	}

	sameSlot := date.Equal(appt.Date) && params.Slot == appt.Slot

	oldDate, oldSlot := appt.Date, appt.Slot
	if !sameSlot {
		token, err := s.slots.Reserve(ctx, doctor.ID, date, params.Slot, doctor.MaxPatientsPerSlot)
		if err != nil {
			return RescheduleResult{}, err
		}
		appt.TokenNumber = token
		appt.QueuePosition = token
		appt.EstimatedWaitTime = scheduling.EstimatedWait(token)
	}

	appt.Date = date
	appt.Slot = params.Slot
	if t := strings.TrimSpace(params.Time); t != "" {
		appt.Time = t
	}
	appt.Status = models.AppointmentStatusRescheduled
	appt.ReminderSent24h = false
	appt.ReminderSent2h = false

	if err := s.appointments.Update(ctx, appt); err != nil {
		if !sameSlot {
			_ = s.slots.Release(ctx, doctor.ID, date, params.Slot)
		}
		return RescheduleResult{}, err
	}

	if !sameSlot {
		_ = s.slots.Release(ctx, doctor.ID, oldDate, oldSlot)
	}

	return RescheduleResult{
		Appointment:  appt,
		PreviousDate: oldDate,
		PreviousSlot: oldSlot,
		Moved:        !sameSlot,
	}, nil
}

type WaitInfo struct {
	TokenNumber       int       `json:"tokenNumber"`
	PatientsAhead     int       `json:"patientsAhead"`
	EstimatedWaitTime int       `json:"estimatedWaitTime"`
	DoctorName        string    `json:"doctorName"`
	AppointmentDate   time.Time `json:"appointmentDate"`
	AppointmentTime   string    `json:"appointmentTime"`
}

// WaitTime recomputes the live queue position: cancelled patients ahead no
// longer count, so the estimate shrinks as the queue drains.
func (s *Service) WaitTime(ctx context.Context, appointmentID, userID string) (WaitInfo, error) {
	appt, err := s.appointments.GetForUser(ctx, appointmentID, userID)
	if err != nil {
		return WaitInfo{}, err
	}

	if appt.Status != models.AppointmentStatusScheduled && appt.Status != models.AppointmentStatusRescheduled {
		return WaitInfo{}, ErrNotActive
	}

	doctor, err := s.doctors.GetByID(ctx, appt.DoctorID)
	if err != nil {
		return WaitInfo{}, err
	}

	ahead, err := s.appointments.CountAhead(ctx, appt.DoctorID, appt.Date, appt.Slot, appt.TokenNumber)
	if err != nil {
		return WaitInfo{}, err
	}

	return WaitInfo{
		TokenNumber:       appt.TokenNumber,
		PatientsAhead:     int(ahead),
		EstimatedWaitTime: int(ahead) * scheduling.WaitMinutesPerPatient,
		DoctorName:        doctor.Name,
		AppointmentDate:   appt.Date,
		AppointmentTime:   appt.Time,
	}, nil
}

type SlotAvailability struct {
	Start     string `json:"start"`
	End       string `json:"end"`
	Available bool   `json:"available"`
	SlotsLeft int    `json:"slotsLeft"`
}

type DayAvailability struct {
	Available bool                        `json:"available"`
	Day       string                      `json:"day"`
	Message   string                      `json:"message,omitempty"`
	Slots     map[string]SlotAvailability `json:"slots,omitempty"`
}

// Availability aggregates active occupancy (scheduled and rescheduled, the
// same statuses that hold allocator seats) across all three slots for one
// doctor and date.
func (s *Service) Availability(ctx context.Context, doctorID, dateStr string) (models.Doctor, DayAvailability, error) {
	doctor, err := s.doctors.GetByID(ctx, doctorID)
	if err != nil {
		return models.Doctor{}, DayAvailability{}, err
	}

	date, err := scheduling.ParseDate(dateStr)
	if err != nil {
		return models.Doctor{}, DayAvailability{}, err
	}

	day := scheduling.DayName(date)
	onDuty := false
	for _, d := range doctor.DaysAvailable {
		if d == day {
			onDuty = true
			break
		}
	}
	if !onDuty {
		dayErr := &scheduling.DayUnavailableError{DoctorName: doctor.Name, Day: day, Days: doctor.DaysAvailable}
		return doctor, DayAvailability{Available: false, Day: day, Message: dayErr.Error()}, nil
	}

	slots := make(map[string]SlotAvailability, 3)
	for _, slot := range []string{models.SlotMorning, models.SlotAfternoon, models.SlotEvening} {
		timing, _ := doctor.Timings.Get(slot)
		count, err := s.appointments.CountActive(ctx, doctor.ID, date, slot)
		if err != nil {
			return models.Doctor{}, DayAvailability{}, err
		}
		left := doctor.MaxPatientsPerSlot - int(count)
		if left < 0 {
			left = 0
		}
		slots[slot] = SlotAvailability{
			Start:     timing.Start,
			End:       timing.End,
			Available: timing.Available && left > 0,
			SlotsLeft: left,
		}
	}

	return doctor, DayAvailability{Available: true, Day: day, Slots: slots}, nil
}
