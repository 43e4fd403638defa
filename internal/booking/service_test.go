package booking

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"medibot-backend/internal/models"
	"medibot-backend/internal/scheduling"
)

type fakeDoctorStore struct {
	doctors map[string]models.Doctor
}

func (f *fakeDoctorStore) GetByID(ctx context.Context, id string) (models.Doctor, error) {
	doctor, ok := f.doctors[id]
	if !ok {
		return models.Doctor{}, ErrDoctorNotFound
	}
	return doctor, nil
}

func (f *fakeDoctorStore) FindByName(ctx context.Context, name string) (models.Doctor, error) {
	for _, doctor := range f.doctors {
		if strings.Contains(strings.ToLower(doctor.Name), strings.ToLower(name)) {
			return doctor, nil
		}
	}
	return models.Doctor{}, ErrDoctorNotFound
}

func (f *fakeDoctorStore) FindByDepartment(ctx context.Context, department string) (models.Doctor, error) {
	for _, doctor := range f.doctors {
		if strings.Contains(strings.ToLower(doctor.Department), strings.ToLower(department)) {
			return doctor, nil
		}
	}
	return models.Doctor{}, ErrDoctorNotFound
}

type fakeAppointmentStore struct {
	mu    sync.Mutex
	items map[string]models.Appointment
}

func newFakeAppointmentStore() *fakeAppointmentStore {
	return &fakeAppointmentStore{items: make(map[string]models.Appointment)}
}

func (f *fakeAppointmentStore) Insert(ctx context.Context, appt models.Appointment) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.items[appt.ID] = appt
	return nil
}

func (f *fakeAppointmentStore) GetForUser(ctx context.Context, id, userID string) (models.Appointment, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	appt, ok := f.items[id]
	if !ok || appt.UserID != userID {
		return models.Appointment{}, ErrNotFound
	}
	return appt, nil
}

func (f *fakeAppointmentStore) ListForUser(ctx context.Context, userID string) ([]models.Appointment, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]models.Appointment, 0)
	for _, appt := range f.items {
		if appt.UserID == userID {
			out = append(out, appt)
		}
	}
	return out, nil
}

func (f *fakeAppointmentStore) Update(ctx context.Context, appt models.Appointment) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.items[appt.ID]; !ok {
		return ErrNotFound
	}
	f.items[appt.ID] = appt
	return nil
}

func isActive(status string) bool {
	return status == models.AppointmentStatusScheduled || status == models.AppointmentStatusRescheduled
}

func (f *fakeAppointmentStore) CountActive(ctx context.Context, doctorID string, date time.Time, slot string) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var count int64
	for _, appt := range f.items {
		if appt.DoctorID == doctorID && appt.Date.Equal(date) && appt.Slot == slot && isActive(appt.Status) {
			count++
		}
	}
	return count, nil
}

func (f *fakeAppointmentStore) CountAhead(ctx context.Context, doctorID string, date time.Time, slot string, token int) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var count int64
	for _, appt := range f.items {
		if appt.DoctorID == doctorID && appt.Date.Equal(date) && appt.Slot == slot &&
			isActive(appt.Status) && appt.TokenNumber < token {
			count++
		}
	}
	return count, nil
}

// fakeReserver mirrors the counter-document semantics: booked never exceeds
// capacity, tokens never repeat, releasing frees a seat without recycling the
// token.
type fakeReserver struct {
	mu       sync.Mutex
	counters map[string]*fakeCounter
}

type fakeCounter struct {
	booked    int
	nextToken int
}

func newFakeReserver() *fakeReserver {
	return &fakeReserver{counters: make(map[string]*fakeCounter)}
}

func (f *fakeReserver) key(doctorID string, date time.Time, slot string) string {
	return doctorID + "|" + date.Format("2006-01-02") + "|" + slot
}

func (f *fakeReserver) Reserve(ctx context.Context, doctorID string, date time.Time, slot string, capacity int) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	key := f.key(doctorID, date, slot)
	counter, ok := f.counters[key]
	if !ok {
		counter = &fakeCounter{}
		f.counters[key] = counter
	}
	if counter.booked >= capacity {
		return 0, scheduling.ErrSlotFull
	}
	counter.booked++
	counter.nextToken++
	return counter.nextToken, nil
}

func (f *fakeReserver) Release(ctx context.Context, doctorID string, date time.Time, slot string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if counter, ok := f.counters[f.key(doctorID, date, slot)]; ok && counter.booked > 0 {
		counter.booked--
	}
	return nil
}

func (f *fakeReserver) booked(doctorID string, date time.Time, slot string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	if counter, ok := f.counters[f.key(doctorID, date, slot)]; ok {
		return counter.booked
	}
	return 0
}

func testService(capacity int) (*Service, *fakeAppointmentStore, *fakeReserver) {
	doctors := &fakeDoctorStore{doctors: map[string]models.Doctor{
		"doc1": {
			ID:            "doc1",
			Name:          "Sharma",
			Department:    "Cardiology",
			DaysAvailable: []string{"Monday", "Tuesday", "Wednesday", "Thursday", "Friday"},
			Timings: models.Timings{
				Morning:   models.SlotTiming{Start: "09:00", End: "12:00", Available: true},
				Afternoon: models.SlotTiming{Start: "14:00", End: "17:00", Available: true},
				Evening:   models.SlotTiming{Start: "18:00", End: "20:00", Available: true},
			},
			MaxPatientsPerSlot: capacity,
		},
	}}
	appointments := newFakeAppointmentStore()
	reserver := newFakeReserver()
	return NewService(doctors, appointments, reserver), appointments, reserver
}

func mustBook(t *testing.T, svc *Service, user string) models.Appointment {
	t.Helper()
	appt, _, err := svc.Book(context.Background(), BookParams{
		UserID:      user,
		DoctorID:    "doc1",
		PatientName: "Patient " + user,
		Date:        "2026-03-02",
		Slot:        models.SlotMorning,
	})
	if err != nil {
		t.Fatalf("Book failed for %s: %v", user, err)
	}
	return appt
}

func TestBookAssignsSequentialTokens(t *testing.T) {
	svc, _, _ := testService(5)

	first := mustBook(t, svc, "u1")
	second := mustBook(t, svc, "u2")
	third := mustBook(t, svc, "u3")

	if first.TokenNumber != 1 || second.TokenNumber != 2 || third.TokenNumber != 3 {
		t.Fatalf("tokens not sequential: %d, %d, %d", first.TokenNumber, second.TokenNumber, third.TokenNumber)
	}
	if third.QueuePosition != 3 {
		t.Errorf("queue position = %d, want 3", third.QueuePosition)
	}
	if third.EstimatedWaitTime != 30 {
		t.Errorf("estimated wait = %d, want 30", third.EstimatedWaitTime)
	}
	if first.Time != "09:00" {
		t.Errorf("default time = %q, want slot start", first.Time)
	}
}

func TestBookRejectsFullSlot(t *testing.T) {
	svc, appointments, _ := testService(2)

	mustBook(t, svc, "u1")
	mustBook(t, svc, "u2")

	_, _, err := svc.Book(context.Background(), BookParams{
		UserID:      "u3",
		DoctorID:    "doc1",
		PatientName: "Third",
		Date:        "2026-03-02",
		Slot:        models.SlotMorning,
	})
	if !errors.Is(err, scheduling.ErrSlotFull) {
		t.Fatalf("expected ErrSlotFull, got %v", err)
	}
	if len(appointments.items) != 2 {
		t.Fatalf("rejected booking left a record: %d appointments", len(appointments.items))
	}
}

func TestBookRejectsDayOff(t *testing.T) {
	svc, _, reserver := testService(5)

	_, _, err := svc.Book(context.Background(), BookParams{
		UserID:      "u1",
		DoctorID:    "doc1",
		PatientName: "Weekend",
		Date:        "2026-03-01",
		Slot:        models.SlotMorning,
	})
	var dayErr *scheduling.DayUnavailableError
	if !errors.As(err, &dayErr) {
		t.Fatalf("expected DayUnavailableError, got %v", err)
	}
	date, _ := scheduling.ParseDate("2026-03-01")
	if reserver.booked("doc1", date, models.SlotMorning) != 0 {
		t.Fatal("rejected booking consumed a seat")
	}
}

func TestConcurrentBookingLastSeat(t *testing.T) {
	svc, appointments, _ := testService(2)

	mustBook(t, svc, "u0")

	var wg sync.WaitGroup
	results := make([]error, 2)
	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, _, err := svc.Book(context.Background(), BookParams{
				UserID:      "racer",
				DoctorID:    "doc1",
				PatientName: "Racer",
				Date:        "2026-03-02",
				Slot:        models.SlotMorning,
			})
			results[i] = err
		}(i)
	}
	wg.Wait()

	var ok, full int
	for _, err := range results {
		switch {
		case err == nil:
			ok++
		case errors.Is(err, scheduling.ErrSlotFull):
			full++
		default:
			t.Fatalf("unexpected error: %v", err)
		}
	}
	if ok != 1 || full != 1 {
		t.Fatalf("expected one success and one conflict, got %d/%d", ok, full)
	}
	if len(appointments.items) != 2 {
		t.Fatalf("appointment count = %d, want 2", len(appointments.items))
	}
}

func TestCancelFreesSeatKeepsTokenGap(t *testing.T) {
	svc, _, reserver := testService(3)

	first := mustBook(t, svc, "u1")
	mustBook(t, svc, "u2")

	if _, err := svc.Cancel(context.Background(), first.ID, "u1"); err != nil {
		t.Fatalf("Cancel failed: %v", err)
	}

	date, _ := scheduling.ParseDate("2026-03-02")
	if got := reserver.booked("doc1", date, models.SlotMorning); got != 1 {
		t.Fatalf("booked after cancel = %d, want 1", got)
	}

	// The freed seat is reusable but the cancelled token is not.
	third := mustBook(t, svc, "u3")
	if third.TokenNumber != 3 {
		t.Fatalf("token after cancel = %d, want 3 (gap preserved)", third.TokenNumber)
	}
}

func TestCancelTwiceRejected(t *testing.T) {
	svc, _, _ := testService(3)

	appt := mustBook(t, svc, "u1")
	if _, err := svc.Cancel(context.Background(), appt.ID, "u1"); err != nil {
		t.Fatalf("first cancel failed: %v", err)
	}
	if _, err := svc.Cancel(context.Background(), appt.ID, "u1"); !errors.Is(err, ErrAlreadyCancelled) {
		t.Fatalf("expected ErrAlreadyCancelled, got %v", err)
	}
}

func TestCancelWrongUser(t *testing.T) {
	svc, _, _ := testService(3)

	appt := mustBook(t, svc, "u1")
	if _, err := svc.Cancel(context.Background(), appt.ID, "intruder"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound for foreign user, got %v", err)
	}
}

func TestRescheduleToNewSlot(t *testing.T) {
	svc, _, reserver := testService(3)

	appt := mustBook(t, svc, "u1")
	mustBook(t, svc, "u2")

	res, err := svc.Reschedule(context.Background(), RescheduleParams{
		AppointmentID: appt.ID,
		UserID:        "u1",
		Date:          "2026-03-02",
		Slot:          models.SlotAfternoon,
	})
	if err != nil {
		t.Fatalf("Reschedule failed: %v", err)
	}
	moved := res.Appointment
	if moved.Status != models.AppointmentStatusRescheduled {
		t.Errorf("status = %s, want rescheduled", moved.Status)
	}
	if moved.TokenNumber != 1 {
		t.Errorf("new-slot token = %d, want 1", moved.TokenNumber)
	}
	if moved.ReminderSent24h || moved.ReminderSent2h {
		t.Error("reminder flags not reset")
	}
	if !res.Moved || res.PreviousSlot != models.SlotMorning || !res.PreviousDate.Equal(appt.Date) {
		t.Errorf("vacated slot = %+v, want moved from %s morning", res, appt.Date.Format("2006-01-02"))
	}

	date, _ := scheduling.ParseDate("2026-03-02")
	if got := reserver.booked("doc1", date, models.SlotMorning); got != 1 {
		t.Errorf("old slot booked = %d, want 1", got)
	}
	if got := reserver.booked("doc1", date, models.SlotAfternoon); got != 1 {
		t.Errorf("new slot booked = %d, want 1", got)
	}
}

func TestRescheduleSameSlotKeepsToken(t *testing.T) {
	svc, _, reserver := testService(3)

	appt := mustBook(t, svc, "u1")
	res, err := svc.Reschedule(context.Background(), RescheduleParams{
		AppointmentID: appt.ID,
		UserID:        "u1",
		Date:          "2026-03-02",
		Slot:          models.SlotMorning,
		Time:          "10:30",
	})
	if err != nil {
		t.Fatalf("Reschedule failed: %v", err)
	}
	moved := res.Appointment
	if moved.TokenNumber != appt.TokenNumber {
		t.Fatalf("same-slot move changed token: %d -> %d", appt.TokenNumber, moved.TokenNumber)
	}
	if moved.Time != "10:30" {
		t.Errorf("time = %q, want 10:30", moved.Time)
	}
	if res.Moved {
		t.Error("same-slot move should not report a vacated seat")
	}

	date, _ := scheduling.ParseDate("2026-03-02")
	if got := reserver.booked("doc1", date, models.SlotMorning); got != 1 {
		t.Fatalf("same-slot move changed seat count: %d", got)
	}
}

func TestRescheduleFullTargetKeepsOriginal(t *testing.T) {
	svc, appointments, _ := testService(1)

	appt := mustBook(t, svc, "u1")

	// Take the only afternoon seat so the target is at capacity.
	date, _ := scheduling.ParseDate("2026-03-02")
	if _, err := svc.slots.Reserve(context.Background(), "doc1", date, models.SlotAfternoon, 1); err != nil {
		t.Fatalf("setup reserve failed: %v", err)
	}

	_, err := svc.Reschedule(context.Background(), RescheduleParams{
		AppointmentID: appt.ID,
		UserID:        "u1",
		Date:          "2026-03-02",
		Slot:          models.SlotAfternoon,
	})
	if !errors.Is(err, scheduling.ErrSlotFull) {
		t.Fatalf("expected ErrSlotFull, got %v", err)
	}

	kept, err := appointments.GetForUser(context.Background(), appt.ID, "u1")
	if err != nil {
		t.Fatalf("original appointment lost: %v", err)
	}
	if kept.Status != models.AppointmentStatusScheduled || kept.Slot != models.SlotMorning {
		t.Fatalf("failed move mutated original: %+v", kept)
	}
}

func TestWaitTimeShrinksAsQueueDrains(t *testing.T) {
	svc, _, _ := testService(5)

	first := mustBook(t, svc, "u1")
	second := mustBook(t, svc, "u2")
	third := mustBook(t, svc, "u3")

	info, err := svc.WaitTime(context.Background(), third.ID, "u3")
	if err != nil {
		t.Fatalf("WaitTime failed: %v", err)
	}
	if info.PatientsAhead != 2 || info.EstimatedWaitTime != 30 {
		t.Fatalf("ahead=%d wait=%d, want 2/30", info.PatientsAhead, info.EstimatedWaitTime)
	}

	if _, err := svc.Cancel(context.Background(), first.ID, "u1"); err != nil {
		t.Fatalf("Cancel failed: %v", err)
	}

	info, err = svc.WaitTime(context.Background(), third.ID, "u3")
	if err != nil {
		t.Fatalf("WaitTime after cancel failed: %v", err)
	}
	if info.PatientsAhead != 1 || info.EstimatedWaitTime != 15 {
		t.Fatalf("ahead=%d wait=%d after cancel, want 1/15", info.PatientsAhead, info.EstimatedWaitTime)
	}

	if _, err := svc.WaitTime(context.Background(), second.ID, "u1"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound for foreign appointment, got %v", err)
	}
}

func TestWaitTimeRejectsCancelled(t *testing.T) {
	svc, _, _ := testService(5)

	appt := mustBook(t, svc, "u1")
	if _, err := svc.Cancel(context.Background(), appt.ID, "u1"); err != nil {
		t.Fatalf("Cancel failed: %v", err)
	}
	if _, err := svc.WaitTime(context.Background(), appt.ID, "u1"); !errors.Is(err, ErrNotActive) {
		t.Fatalf("expected ErrNotActive, got %v", err)
	}
}

func TestAvailabilityExcludesCancelled(t *testing.T) {
	svc, _, _ := testService(3)

	first := mustBook(t, svc, "u1")
	mustBook(t, svc, "u2")
	if _, err := svc.Cancel(context.Background(), first.ID, "u1"); err != nil {
		t.Fatalf("Cancel failed: %v", err)
	}

	_, day, err := svc.Availability(context.Background(), "doc1", "2026-03-02")
	if err != nil {
		t.Fatalf("Availability failed: %v", err)
	}
	if !day.Available || day.Day != "Monday" {
		t.Fatalf("day = %+v, want available Monday", day)
	}
	morning := day.Slots[models.SlotMorning]
	if morning.SlotsLeft != 2 {
		t.Errorf("morning slots left = %d, want 2 (cancelled seat freed)", morning.SlotsLeft)
	}
	if !morning.Available {
		t.Error("morning should be available")
	}
}

// A rescheduled appointment still holds its seat, so both the availability
// view and the queue position must count it exactly like a scheduled one.
func TestAvailabilityCountsRescheduledSeat(t *testing.T) {
	svc, _, _ := testService(3)

	mustBook(t, svc, "u1")
	second := mustBook(t, svc, "u2")

	if _, err := svc.Reschedule(context.Background(), RescheduleParams{
		AppointmentID: second.ID,
		UserID:        "u2",
		Date:          "2026-03-02",
		Slot:          models.SlotAfternoon,
	}); err != nil {
		t.Fatalf("Reschedule failed: %v", err)
	}

	_, day, err := svc.Availability(context.Background(), "doc1", "2026-03-02")
	if err != nil {
		t.Fatalf("Availability failed: %v", err)
	}
	if got := day.Slots[models.SlotMorning].SlotsLeft; got != 2 {
		t.Errorf("morning slots left = %d, want 2 (vacated seat freed)", got)
	}
	if got := day.Slots[models.SlotAfternoon].SlotsLeft; got != 2 {
		t.Errorf("afternoon slots left = %d, want 2 (rescheduled seat held)", got)
	}
}

func TestWaitTimeCountsRescheduledAhead(t *testing.T) {
	svc, _, _ := testService(5)

	first := mustBook(t, svc, "u1")
	if _, err := svc.Reschedule(context.Background(), RescheduleParams{
		AppointmentID: first.ID,
		UserID:        "u1",
		Date:          "2026-03-02",
		Slot:          models.SlotMorning,
		Time:          "09:30",
	}); err != nil {
		t.Fatalf("Reschedule failed: %v", err)
	}

	second := mustBook(t, svc, "u2")
	info, err := svc.WaitTime(context.Background(), second.ID, "u2")
	if err != nil {
		t.Fatalf("WaitTime failed: %v", err)
	}
	if info.PatientsAhead != 1 || info.EstimatedWaitTime != 15 {
		t.Fatalf("ahead=%d wait=%d, want 1/15 (rescheduled patient still queued)", info.PatientsAhead, info.EstimatedWaitTime)
	}
}

func TestAvailabilityDayOff(t *testing.T) {
	svc, _, _ := testService(3)

	_, day, err := svc.Availability(context.Background(), "doc1", "2026-03-01")
	if err != nil {
		t.Fatalf("Availability failed: %v", err)
	}
	if day.Available {
		t.Fatal("expected unavailable day")
	}
	if day.Day != "Sunday" || day.Message == "" {
		t.Fatalf("day = %+v, want Sunday with message", day)
	}
}
