package videoconsult

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"medibot-backend/internal/httpx"
	"medibot-backend/internal/middleware"
	"medibot-backend/internal/models"
	"medibot-backend/internal/scheduling"
	"medibot-backend/internal/transport"
	"medibot-backend/internal/validation"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// Consultation shares the reminder field shape with in-person appointments.
type Consultation struct {
	ID              string    `bson:"_id,omitempty" json:"id"`
	UserID          string    `bson:"userId" json:"userId"`
	DoctorID        string    `bson:"doctorId" json:"doctorId"`
	DoctorName      string    `bson:"doctorName" json:"doctorName"`
	PatientName     string    `bson:"patientName" json:"patientName"`
	Date            time.Time `bson:"date" json:"date"`
	Time            string    `bson:"time" json:"time"`
	MeetingID       string    `bson:"meetingId" json:"meetingId"`
	MeetingLink     string    `bson:"meetingLink" json:"meetingLink"`
	MeetingPassword string    `bson:"meetingPassword" json:"meetingPassword"`
	Status          string    `bson:"status" json:"status"`
	Prescription    string    `bson:"prescription,omitempty" json:"prescription,omitempty"`
	FollowUpDate    time.Time `bson:"followUpDate,omitempty" json:"followUpDate,omitempty"`
	ReminderSent24h bool      `bson:"reminderSent24h" json:"reminderSent24h"`
	ReminderSent2h  bool      `bson:"reminderSent2h" json:"reminderSent2h"`
	CreatedAt       time.Time `bson:"createdAt" json:"createdAt"`
}

type Handler struct {
	consultations *mongo.Collection
	doctors       *mongo.Collection
	val           *validation.Validator
	log           *slog.Logger
	meetingHost   string
}

func NewHandler(consultations, doctors *mongo.Collection, val *validation.Validator, log *slog.Logger, meetingHost string) *Handler {
	return &Handler{
		consultations: consultations,
		doctors:       doctors,
		val:           val,
		log:           log,
		meetingHost:   meetingHost,
	}
}

type BookRequest struct {
	DoctorID    string `json:"doctorId" validate:"required"`
	PatientName string `json:"patientName" validate:"required"`
	Date        string `json:"date" validate:"required,date"`
	Time        string `json:"time" validate:"required,clock"`
}

func (h *Handler) Book(w http.ResponseWriter, r *http.Request) {
	log := h.logWithRequest(r)

	var req BookRequest
	if err := httpx.DecodeJSON(r.Body, &req); err != nil {
		transport.WriteError(w, http.StatusBadRequest, "invalid json", nil)
		return
	}
	if err := h.val.Struct(req); err != nil {
		transport.WriteError(w, http.StatusBadRequest, "validation error", httpx.ValidationDetails(h.val.ValidationErrors(err)))
		return
	}

	date, err := scheduling.ParseDate(req.Date)
	if err != nil {
		transport.WriteError(w, http.StatusBadRequest, "invalid date", nil)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	var doctor models.Doctor
	if err := h.doctors.FindOne(ctx, bson.M{"_id": req.DoctorID}).Decode(&doctor); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			transport.WriteError(w, http.StatusNotFound, "Doctor not found", nil)
			return
		}
		log.Error("videoconsult book: database error", slog.String("error", err.Error()))
		transport.WriteError(w, http.StatusInternalServerError, "database error", nil)
		return
	}

	meetingID := uuid.NewString()
	password, err := meetingPassword()
	if err != nil {
		log.Error("videoconsult book: password error", slog.String("error", err.Error()))
		transport.WriteError(w, http.StatusInternalServerError, "Something went wrong", nil)
		return
	}

	consultation := Consultation{
		ID:              primitive.NewObjectID().Hex(),
		UserID:          middleware.UserIDFromContext(r.Context()),
		DoctorID:        doctor.ID,
		DoctorName:      doctor.Name,
		PatientName:     strings.TrimSpace(req.PatientName),
		Date:            date,
		Time:            req.Time,
		MeetingID:       meetingID,
		MeetingLink:     fmt.Sprintf("https://%s/room/%s", h.meetingHost, meetingID),
		MeetingPassword: password,
		Status:          models.AppointmentStatusScheduled,
		CreatedAt:       time.Now(),
	}

	if _, err := h.consultations.InsertOne(ctx, consultation); err != nil {
		log.Error("videoconsult book: database error", slog.String("error", err.Error()))
		transport.WriteError(w, http.StatusInternalServerError, "database error", nil)
		return
	}

	log.Info("videoconsult book: ok",
		slog.String("consultation_id", consultation.ID),
		slog.String("doctor_id", doctor.ID),
		slog.String("meeting_id", meetingID),
	)
	transport.WriteJSON(w, http.StatusCreated, map[string]interface{}{
		"success":      true,
		"message":      "Video consultation booked",
		"consultation": consultation,
	})
}

func (h *Handler) ListMine(w http.ResponseWriter, r *http.Request) {
	log := h.logWithRequest(r)

	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	opts := options.Find().SetSort(bson.D{{Key: "date", Value: 1}})
	cursor, err := h.consultations.Find(ctx, bson.M{"userId": middleware.UserIDFromContext(r.Context())}, opts)
	if err != nil {
		log.Error("videoconsult list: database error", slog.String("error", err.Error()))
		transport.WriteError(w, http.StatusInternalServerError, "database error", nil)
		return
	}
	defer cursor.Close(ctx)

	items := make([]Consultation, 0)
	for cursor.Next(ctx) {
		var consultation Consultation
		if err := cursor.Decode(&consultation); err != nil {
			log.Error("videoconsult list: decode error", slog.String("error", err.Error()))
			transport.WriteError(w, http.StatusInternalServerError, "database error", nil)
			return
		}
		items = append(items, consultation)
	}

	transport.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"success":       true,
		"consultations": items,
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

	res, err := h.consultations.UpdateOne(ctx,
		bson.M{
			"_id":    id,
			"userId": middleware.UserIDFromContext(r.Context()),
			"status": models.AppointmentStatusScheduled,
		},
		bson.M{"$set": bson.M{"status": models.AppointmentStatusCancelled}},
	)
	if err != nil {
		log.Error("videoconsult cancel: database error", slog.String("error", err.Error()))
		transport.WriteError(w, http.StatusInternalServerError, "database error", nil)
		return
	}
	if res.ModifiedCount == 0 {
		transport.WriteError(w, http.StatusNotFound, "Scheduled consultation not found", nil)
		return
	}

	log.Info("videoconsult cancel: ok", slog.String("consultation_id", id))
	transport.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"success": true,
		"message": "Video consultation cancelled",
	})
}

type CompleteRequest struct {
	Prescription string `json:"prescription"`
	FollowUpDate string `json:"followUpDate" validate:"omitempty,date"`
}

// AdminComplete closes a consultation with the doctor's notes.
func (h *Handler) AdminComplete(w http.ResponseWriter, r *http.Request) {
	log := h.logWithRequest(r)
	id := strings.TrimSpace(chi.URLParam(r, "id"))
	if id == "" {
		transport.WriteError(w, http.StatusBadRequest, "missing id", nil)
		return
	}

	var req CompleteRequest
	if err := httpx.DecodeJSON(r.Body, &req); err != nil {
		transport.WriteError(w, http.StatusBadRequest, "invalid json", nil)
		return
	}
	if err := h.val.Struct(req); err != nil {
		transport.WriteError(w, http.StatusBadRequest, "validation error", httpx.ValidationDetails(h.val.ValidationErrors(err)))
		return
	}

	set := bson.M{"status": models.AppointmentStatusCompleted}
	if req.Prescription != "" {
		set["prescription"] = req.Prescription
	}
	if req.FollowUpDate != "" {
		followUp, _ := scheduling.ParseDate(req.FollowUpDate)
		set["followUpDate"] = followUp
	}

	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)
	var updated Consultation
	err := h.consultations.FindOneAndUpdate(ctx,
		bson.M{"_id": id, "status": models.AppointmentStatusScheduled},
		bson.M{"$set": set},
		opts,
	).Decode(&updated)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			transport.WriteError(w, http.StatusNotFound, "Scheduled consultation not found", nil)
			return
		}
		log.Error("videoconsult complete: database error", slog.String("error", err.Error()))
		transport.WriteError(w, http.StatusInternalServerError, "database error", nil)
		return
	}

	log.Info("videoconsult complete: ok", slog.String("consultation_id", id))
	transport.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"success":      true,
		"message":      "Consultation completed",
		"consultation": updated,
	})
}

func meetingPassword() (string, error) {
	buf := make([]byte, 4)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return hex.EncodeToString(buf), nil
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
