package booking

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"medibot-backend/internal/cache"
	"medibot-backend/internal/httpx"
	"medibot-backend/internal/middleware"
	"medibot-backend/internal/scheduling"
	"medibot-backend/internal/transport"
	"medibot-backend/internal/validation"

	"github.com/go-chi/chi/v5"
)

type Handler struct {
	service  *Service
	val      *validation.Validator
	log      *slog.Logger
	cache    cache.Cache
	cacheTTL time.Duration
}

func NewHandler(service *Service, val *validation.Validator, log *slog.Logger, c cache.Cache, cacheTTL time.Duration) *Handler {
	return &Handler{
		service:  service,
		val:      val,
		log:      log,
		cache:    c,
		cacheTTL: cacheTTL,
	}
}

type BookRequest struct {
	DoctorID    string `json:"doctorId" validate:"required"`
	PatientName string `json:"patientName" validate:"required"`
	Date        string `json:"date" validate:"required,date"`
	Slot        string `json:"slot" validate:"required,slot"`
	Time        string `json:"time" validate:"omitempty,clock"`
	Notes       string `json:"notes"`
}

func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	log := h.logWithRequest(r)

	var req BookRequest
	if err := httpx.DecodeJSON(r.Body, &req); err != nil {
		log.Warn("booking create: invalid json")
		transport.WriteError(w, http.StatusBadRequest, "invalid json", nil)
		return
	}

	if err := h.val.Struct(req); err != nil {
		log.Warn("booking create: validation error")
		transport.WriteError(w, http.StatusBadRequest, "validation error", httpx.ValidationDetails(h.val.ValidationErrors(err)))
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 8*time.Second)
	defer cancel()

	appt, doctor, err := h.service.Book(ctx, BookParams{
		UserID:      middleware.UserIDFromContext(r.Context()),
		DoctorID:    req.DoctorID,
		PatientName: req.PatientName,
		Date:        req.Date,
		Slot:        req.Slot,
		Time:        req.Time,
		Notes:       req.Notes,
	})
	if err != nil {
		h.writeBookingError(w, log, "booking create", err)
		return
	}

	h.invalidateAvailability(r.Context(), doctor.ID, req.Date)

	log.Info("booking create: booked",
		slog.String("appointment_id", appt.ID),
		slog.String("doctor_id", doctor.ID),
		slog.String("date", req.Date),
		slog.String("slot", appt.Slot),
		slog.Int("token", appt.TokenNumber),
	)
	transport.WriteJSON(w, http.StatusCreated, map[string]interface{}{
		"success":     true,
		"message":     "Appointment booked successfully",
		"appointment": appt,
		"doctor":      doctor,
	})
}

func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	log := h.logWithRequest(r)

	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	items, err := h.service.ListForUser(ctx, middleware.UserIDFromContext(r.Context()))
	if err != nil {
		log.Error("booking list: database error", slog.String("error", err.Error()))
		transport.WriteError(w, http.StatusInternalServerError, "Error fetching appointments", nil)
		return
	}

	transport.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"success":      true,
		"appointments": items,
	})
}

func (h *Handler) Cancel(w http.ResponseWriter, r *http.Request) {
	log := h.logWithRequest(r)
	id := strings.TrimSpace(chi.URLParam(r, "id"))
	if id == "" {
		transport.WriteError(w, http.StatusBadRequest, "missing id", nil)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	appt, err := h.service.Cancel(ctx, id, middleware.UserIDFromContext(r.Context()))
	if err != nil {
		h.writeBookingError(w, log, "booking cancel", err)
		return
	}

	h.invalidateAvailability(r.Context(), appt.DoctorID, appt.Date.Format("2006-01-02"))

	log.Info("booking cancel: ok", slog.String("appointment_id", id))
	transport.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"success":     true,
		"message":     "Appointment cancelled successfully",
		"appointment": appt,
	})
}

type RescheduleRequest struct {
	Date string `json:"date" validate:"required,date"`
	Slot string `json:"slot" validate:"required,slot"`
	Time string `json:"time" validate:"omitempty,clock"`
}

func (h *Handler) Reschedule(w http.ResponseWriter, r *http.Request) {
	log := h.logWithRequest(r)
	id := strings.TrimSpace(chi.URLParam(r, "id"))
	if id == "" {
		transport.WriteError(w, http.StatusBadRequest, "missing id", nil)
		return
	}

	var req RescheduleRequest
	if err := httpx.DecodeJSON(r.Body, &req); err != nil {
		log.Warn("booking reschedule: invalid json")
		transport.WriteError(w, http.StatusBadRequest, "invalid json", nil)
		return
	}

	if err := h.val.Struct(req); err != nil {
		log.Warn("booking reschedule: validation error")
		transport.WriteError(w, http.StatusBadRequest, "validation error", httpx.ValidationDetails(h.val.ValidationErrors(err)))
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 8*time.Second)
	defer cancel()

	res, err := h.service.Reschedule(ctx, RescheduleParams{
		AppointmentID: id,
		UserID:        middleware.UserIDFromContext(r.Context()),
		Date:          req.Date,
		Slot:          req.Slot,
		Time:          req.Time,
	})
	if err != nil {
		h.writeBookingError(w, log, "booking reschedule", err)
		return
	}

	appt := res.Appointment
	h.invalidateAvailability(r.Context(), appt.DoctorID, req.Date)
	// A move frees a seat on the vacated day, whose cached counts are now
	// stale as well.
	if prev := res.PreviousDate.Format("2006-01-02"); res.Moved && prev != req.Date {
		h.invalidateAvailability(r.Context(), appt.DoctorID, prev)
	}

	log.Info("booking reschedule: ok",
		slog.String("appointment_id", id),
		slog.String("date", req.Date),
		slog.String("slot", req.Slot),
		slog.Int("token", appt.TokenNumber),
	)
	transport.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"success":     true,
		"message":     "Appointment rescheduled successfully",
		"appointment": appt,
	})
}

func (h *Handler) WaitTime(w http.ResponseWriter, r *http.Request) {
	log := h.logWithRequest(r)
	id := strings.TrimSpace(chi.URLParam(r, "id"))
	if id == "" {
		transport.WriteError(w, http.StatusBadRequest, "missing id", nil)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	info, err := h.service.WaitTime(ctx, id, middleware.UserIDFromContext(r.Context()))
	if err != nil {
		h.writeBookingError(w, log, "booking wait", err)
		return
	}

	transport.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"success":  true,
		"waitInfo": info,
	})
}

// DoctorAvailability serves the aggregated three-slot view, cached per
// doctor and date.
func (h *Handler) DoctorAvailability(w http.ResponseWriter, r *http.Request) {
	log := h.logWithRequest(r)
	doctorID := strings.TrimSpace(chi.URLParam(r, "id"))
	dateStr := strings.TrimSpace(r.URL.Query().Get("date"))
	if dateStr == "" {
		dateStr = time.Now().Format("2006-01-02")
	}

	cacheKey := "availability:" + doctorID + ":" + dateStr
	if h.cache != nil {
		if cached, ok, err := h.cache.Get(r.Context(), cacheKey); err == nil && ok {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusOK)
			w.Write(cached)
			return
		}
	}

	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	doctor, availability, err := h.service.Availability(ctx, doctorID, dateStr)
	if err != nil {
		h.writeBookingError(w, log, "booking availability", err)
		return
	}

	response := map[string]interface{}{
		"success":      true,
		"doctor":       doctor,
		"availability": availability,
	}

	if h.cache != nil {
		if payload, err := json.Marshal(response); err == nil {
			_ = h.cache.Set(r.Context(), cacheKey, payload, h.cacheTTL)
		}
	}

	log.Info("booking availability: ok", slog.String("doctor_id", doctorID), slog.String("date", dateStr))
	transport.WriteJSON(w, http.StatusOK, response)
}

func (h *Handler) AdminList(w http.ResponseWriter, r *http.Request) {
	log := h.logWithRequest(r)

	limit, offset, err := httpx.ParseLimitOffset(r.URL.Query(), 20, 100)
	if err != nil {
		transport.WriteError(w, http.StatusBadRequest, err.Error(), nil)
		return
	}

	filter := AdminFilter{
		DoctorID: strings.TrimSpace(r.URL.Query().Get("doctorId")),
		Status:   strings.TrimSpace(r.URL.Query().Get("status")),
	}
	if dateStr := strings.TrimSpace(r.URL.Query().Get("date")); dateStr != "" {
		date, err := scheduling.ParseDate(dateStr)
		if err != nil {
			transport.WriteError(w, http.StatusBadRequest, "invalid date", nil)
			return
		}
		filter.Date = &date
	}

	store, ok := h.service.appointments.(*MongoAppointmentStore)
	if !ok {
		transport.WriteError(w, http.StatusInternalServerError, "admin listing unavailable", nil)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 8*time.Second)
	defer cancel()

	items, total, err := store.ListAdmin(ctx, filter, limit, offset)
	if err != nil {
		log.Error("booking admin list: database error", slog.String("error", err.Error()))
		transport.WriteError(w, http.StatusInternalServerError, "database error", nil)
		return
	}

	transport.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"success":      true,
		"appointments": items,
		"limit":        limit,
		"offset":       offset,
		"total":        total,
	})
}

type AdminStatusRequest struct {
	Status string `json:"status" validate:"required,oneof=scheduled completed cancelled rescheduled"`
}

func (h *Handler) AdminUpdateStatus(w http.ResponseWriter, r *http.Request) {
	log := h.logWithRequest(r)
	id := strings.TrimSpace(chi.URLParam(r, "id"))
	if id == "" {
		transport.WriteError(w, http.StatusBadRequest, "missing id", nil)
		return
	}

	var req AdminStatusRequest
	if err := httpx.DecodeJSON(r.Body, &req); err != nil {
		transport.WriteError(w, http.StatusBadRequest, "invalid json", nil)
		return
	}
	if err := h.val.Struct(req); err != nil {
		transport.WriteError(w, http.StatusBadRequest, "validation error", httpx.ValidationDetails(h.val.ValidationErrors(err)))
		return
	}

	store, ok := h.service.appointments.(*MongoAppointmentStore)
	if !ok {
		transport.WriteError(w, http.StatusInternalServerError, "admin update unavailable", nil)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	appt, err := store.SetStatus(ctx, id, req.Status)
	if err != nil {
		h.writeBookingError(w, log, "booking admin status", err)
		return
	}

	log.Info("booking admin status: ok", slog.String("appointment_id", id), slog.String("status", req.Status))
	transport.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"success":     true,
		"appointment": appt,
	})
}

func (h *Handler) writeBookingError(w http.ResponseWriter, log *slog.Logger, op string, err error) {
	var dayErr *scheduling.DayUnavailableError
	var slotErr *scheduling.SlotDisabledError

	switch {
	case errors.Is(err, ErrDoctorNotFound):
		log.Warn(op + ": doctor not found")
		transport.WriteError(w, http.StatusNotFound, "Doctor not found", nil)
	case errors.Is(err, ErrNotFound):
		log.Warn(op + ": appointment not found")
		transport.WriteError(w, http.StatusNotFound, "Appointment not found", nil)
	case errors.Is(err, scheduling.ErrInvalidDate):
		transport.WriteError(w, http.StatusBadRequest, "invalid date", nil)
	case errors.Is(err, scheduling.ErrInvalidSlot):
		transport.WriteError(w, http.StatusBadRequest, "invalid slot", nil)
	case errors.As(err, &dayErr), errors.As(err, &slotErr):
		log.Warn(op+": unavailable", slog.String("reason", err.Error()))
		transport.WriteError(w, http.StatusBadRequest, err.Error(), nil)
	case errors.Is(err, scheduling.ErrSlotFull):
		log.Warn(op + ": slot full")
		transport.WriteError(w, http.StatusConflict, "This slot is fully booked. Please choose another time.", nil)
	case errors.Is(err, ErrAlreadyCancelled):
		transport.WriteError(w, http.StatusBadRequest, "Appointment is already cancelled", nil)
	case errors.Is(err, ErrNotActive):
		transport.WriteError(w, http.StatusBadRequest, "Appointment is not active", nil)
	default:
		log.Error(op+": error", slog.String("error", err.Error()))
		transport.WriteError(w, http.StatusInternalServerError, "Something went wrong", nil)
	}
}

func (h *Handler) invalidateAvailability(ctx context.Context, doctorID, date string) {
	if h.cache == nil {
		return
	}
	_ = h.cache.DeletePrefix(ctx, "availability:"+doctorID+":"+date)
}

func (h *Handler) logWithRequest(r *http.Request) *slog.Logger {
	if r == nil {
		return h.log
	}
	if id := middleware.RequestIDFromContext(r.Context()); id != "" {
		return h.log.With(slog.String("request_id", id))
	}
	return h.log
}
