package doctors

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"regexp"
	"strings"
	"time"

	"medibot-backend/internal/httpx"
	"medibot-backend/internal/middleware"
	"medibot-backend/internal/models"
	"medibot-backend/internal/transport"
	"medibot-backend/internal/validation"

	"github.com/go-chi/chi/v5"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type Handler struct {
	doctors      *mongo.Collection
	appointments *mongo.Collection
	users        *mongo.Collection
	val          *validation.Validator
	log          *slog.Logger
}

func NewHandler(doctors, appointments, users *mongo.Collection, val *validation.Validator, log *slog.Logger) *Handler {
	return &Handler{
		doctors:      doctors,
		appointments: appointments,
		users:        users,
		val:          val,
		log:          log,
	}
}

// List supports filtering by name, department and weekday, all optional and
// combinable.
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	log := h.logWithRequest(r)

	query := bson.M{}
	if name := strings.TrimSpace(r.URL.Query().Get("name")); name != "" {
		query["name"] = bson.M{"$regex": regexp.QuoteMeta(name), "$options": "i"}
	}
	if department := strings.TrimSpace(r.URL.Query().Get("department")); department != "" {
		query["department"] = bson.M{"$regex": regexp.QuoteMeta(department), "$options": "i"}
	}
	if day := strings.TrimSpace(r.URL.Query().Get("day")); day != "" {
		query["daysAvailable"] = weekdayName(day)
	}

	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	opts := options.Find().SetSort(bson.D{{Key: "department", Value: 1}, {Key: "name", Value: 1}})
	cursor, err := h.doctors.Find(ctx, query, opts)
	if err != nil {
		log.Error("doctors list: database error", slog.String("error", err.Error()))
		transport.WriteError(w, http.StatusInternalServerError, "database error", nil)
		return
	}
	defer cursor.Close(ctx)

	items := make([]models.Doctor, 0)
	for cursor.Next(ctx) {
		var doctor models.Doctor
		if err := cursor.Decode(&doctor); err != nil {
			log.Error("doctors list: decode error", slog.String("error", err.Error()))
			transport.WriteError(w, http.StatusInternalServerError, "database error", nil)
			return
		}
		items = append(items, doctor)
	}
	if err := cursor.Err(); err != nil {
		log.Error("doctors list: cursor error", slog.String("error", err.Error()))
		transport.WriteError(w, http.StatusInternalServerError, "database error", nil)
		return
	}

	transport.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"success": true,
		"doctors": items,
		"count":   len(items),
	})
}

func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	log := h.logWithRequest(r)
	id := strings.TrimSpace(chi.URLParam(r, "id"))
	if id == "" {
		transport.WriteError(w, http.StatusBadRequest, "missing id", nil)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	var doctor models.Doctor
	if err := h.doctors.FindOne(ctx, bson.M{"_id": id}).Decode(&doctor); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			transport.WriteError(w, http.StatusNotFound, "Doctor not found", nil)
			return
		}
		log.Error("doctors get: database error", slog.String("error", err.Error()))
		transport.WriteError(w, http.StatusInternalServerError, "database error", nil)
		return
	}

	transport.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"success": true,
		"doctor":  doctor,
	})
}

type SlotTimingRequest struct {
	Start     string `json:"start" validate:"required,clock"`
	End       string `json:"end" validate:"required,clock"`
	Available bool   `json:"available"`
}

type UpsertDoctorRequest struct {
	Name               string            `json:"name" validate:"required,min=2,max=100"`
	Department         string            `json:"department" validate:"required"`
	Specialization     string            `json:"specialization"`
	Qualification      string            `json:"qualification"`
	Experience         int               `json:"experience" validate:"gte=0,lte=70"`
	DaysAvailable      []string          `json:"daysAvailable" validate:"required,min=1,dive,oneof=Monday Tuesday Wednesday Thursday Friday Saturday Sunday"`
	Morning            SlotTimingRequest `json:"morning" validate:"required"`
	Afternoon          SlotTimingRequest `json:"afternoon" validate:"required"`
	Evening            SlotTimingRequest `json:"evening" validate:"required"`
	ConsultationFee    int               `json:"consultationFee" validate:"gte=0"`
	FollowUpFee        int               `json:"followUpFee" validate:"gte=0"`
	MaxPatientsPerSlot int               `json:"maxPatientsPerSlot" validate:"required,gte=1,lte=100"`
}

func (req *UpsertDoctorRequest) toDoctor(id string, createdAt time.Time) models.Doctor {
	return models.Doctor{
		ID:             id,
		Name:           strings.TrimSpace(req.Name),
		Department:     strings.TrimSpace(req.Department),
		Specialization: strings.TrimSpace(req.Specialization),
		Qualification:  strings.TrimSpace(req.Qualification),
		Experience:     req.Experience,
		DaysAvailable:  req.DaysAvailable,
		Timings: models.Timings{
			Morning:   models.SlotTiming(req.Morning),
			Afternoon: models.SlotTiming(req.Afternoon),
			Evening:   models.SlotTiming(req.Evening),
		},
		Fees:               models.Fees{Consultation: req.ConsultationFee, FollowUp: req.FollowUpFee},
		MaxPatientsPerSlot: req.MaxPatientsPerSlot,
		CreatedAt:          createdAt,
	}
}

func (h *Handler) AdminCreate(w http.ResponseWriter, r *http.Request) {
	log := h.logWithRequest(r)

	var req UpsertDoctorRequest
	if err := httpx.DecodeJSON(r.Body, &req); err != nil {
		transport.WriteError(w, http.StatusBadRequest, "invalid json", nil)
		return
	}
	if err := h.val.Struct(req); err != nil {
		transport.WriteError(w, http.StatusBadRequest, "validation error", httpx.ValidationDetails(h.val.ValidationErrors(err)))
		return
	}

	doctor := req.toDoctor(primitive.NewObjectID().Hex(), time.Now())

	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	if _, err := h.doctors.InsertOne(ctx, doctor); err != nil {
		log.Error("doctors create: database error", slog.String("error", err.Error()))
		transport.WriteError(w, http.StatusInternalServerError, "database error", nil)
		return
	}

	log.Info("doctors create: ok", slog.String("doctor_id", doctor.ID), slog.String("name", doctor.Name))
	transport.WriteJSON(w, http.StatusCreated, map[string]interface{}{
		"success": true,
		"message": "Doctor added successfully",
		"doctor":  doctor,
	})
}

func (h *Handler) AdminUpdate(w http.ResponseWriter, r *http.Request) {
	log := h.logWithRequest(r)
	id := strings.TrimSpace(chi.URLParam(r, "id"))
	if id == "" {
		transport.WriteError(w, http.StatusBadRequest, "missing id", nil)
		return
	}

	var req UpsertDoctorRequest
	if err := httpx.DecodeJSON(r.Body, &req); err != nil {
		transport.WriteError(w, http.StatusBadRequest, "invalid json", nil)
		return
	}
	if err := h.val.Struct(req); err != nil {
		transport.WriteError(w, http.StatusBadRequest, "validation error", httpx.ValidationDetails(h.val.ValidationErrors(err)))
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	var existing models.Doctor
	if err := h.doctors.FindOne(ctx, bson.M{"_id": id}).Decode(&existing); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			transport.WriteError(w, http.StatusNotFound, "Doctor not found", nil)
			return
		}
		log.Error("doctors update: database error", slog.String("error", err.Error()))
		transport.WriteError(w, http.StatusInternalServerError, "database error", nil)
		return
	}

	doctor := req.toDoctor(id, existing.CreatedAt)
	if _, err := h.doctors.ReplaceOne(ctx, bson.M{"_id": id}, doctor); err != nil {
		log.Error("doctors update: database error", slog.String("error", err.Error()))
		transport.WriteError(w, http.StatusInternalServerError, "database error", nil)
		return
	}

	log.Info("doctors update: ok", slog.String("doctor_id", id))
	transport.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"success": true,
		"message": "Doctor updated successfully",
		"doctor":  doctor,
	})
}

func (h *Handler) AdminDelete(w http.ResponseWriter, r *http.Request) {
	log := h.logWithRequest(r)
	id := strings.TrimSpace(chi.URLParam(r, "id"))
	if id == "" {
		transport.WriteError(w, http.StatusBadRequest, "missing id", nil)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	res, err := h.doctors.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		log.Error("doctors delete: database error", slog.String("error", err.Error()))
		transport.WriteError(w, http.StatusInternalServerError, "database error", nil)
		return
	}
	if res.DeletedCount == 0 {
		transport.WriteError(w, http.StatusNotFound, "Doctor not found", nil)
		return
	}

	log.Info("doctors delete: ok", slog.String("doctor_id", id))
	transport.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"success": true,
		"message": "Doctor removed successfully",
	})
}

// AdminStats aggregates the counters shown on the admin dashboard.
func (h *Handler) AdminStats(w http.ResponseWriter, r *http.Request) {
	log := h.logWithRequest(r)

	ctx, cancel := context.WithTimeout(r.Context(), 8*time.Second)
	defer cancel()

	doctorCount, err := h.doctors.CountDocuments(ctx, bson.M{})
	if err != nil {
		log.Error("doctors stats: database error", slog.String("error", err.Error()))
		transport.WriteError(w, http.StatusInternalServerError, "database error", nil)
		return
	}
	userCount, err := h.users.CountDocuments(ctx, bson.M{})
	if err != nil {
		log.Error("doctors stats: database error", slog.String("error", err.Error()))
		transport.WriteError(w, http.StatusInternalServerError, "database error", nil)
		return
	}

	today := time.Now().UTC().Truncate(24 * time.Hour)
	todayCount, err := h.appointments.CountDocuments(ctx, bson.M{
		"date":   today,
		"status": models.AppointmentStatusScheduled,
	})
	if err != nil {
		log.Error("doctors stats: database error", slog.String("error", err.Error()))
		transport.WriteError(w, http.StatusInternalServerError, "database error", nil)
		return
	}

	statusCounts := make(map[string]int64, 4)
	for _, status := range []string{
		models.AppointmentStatusScheduled,
		models.AppointmentStatusCompleted,
		models.AppointmentStatusCancelled,
		models.AppointmentStatusRescheduled,
	} {
		count, err := h.appointments.CountDocuments(ctx, bson.M{"status": status})
		if err != nil {
			log.Error("doctors stats: database error", slog.String("error", err.Error()))
			transport.WriteError(w, http.StatusInternalServerError, "database error", nil)
			return
		}
		statusCounts[status] = count
	}

	transport.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"success": true,
		"stats": map[string]interface{}{
			"doctors":           doctorCount,
			"patients":          userCount,
			"appointmentsToday": todayCount,
			"appointments":      statusCounts,
		},
	})
}

// weekdayName normalizes "monday"/"MONDAY" to "Monday" so the day filter
// matches stored values.
func weekdayName(day string) string {
	day = strings.ToLower(strings.TrimSpace(day))
	if day == "" {
		return day
	}
	return strings.ToUpper(day[:1]) + day[1:]
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
