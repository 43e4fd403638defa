package vaccination

import (
	"context"
	"errors"
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
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type Vaccine struct {
	ID          string    `bson:"_id,omitempty" json:"id"`
	Name        string    `bson:"name" json:"name"`
	Type        string    `bson:"type" json:"type"`
	AgeGroup    string    `bson:"ageGroup" json:"ageGroup"`
	Doses       int       `bson:"doses" json:"doses"`
	Price       int       `bson:"price" json:"price"`
	Description string    `bson:"description,omitempty" json:"description,omitempty"`
	Available   bool      `bson:"available" json:"available"`
	CreatedAt   time.Time `bson:"createdAt" json:"createdAt"`
}

// Appointment shares the reminder field shape with doctor appointments so the
// sweep can treat both uniformly.
type Appointment struct {
	ID              string    `bson:"_id,omitempty" json:"id"`
	UserID          string    `bson:"userId" json:"userId"`
	VaccineID       string    `bson:"vaccineId" json:"vaccineId"`
	VaccineName     string    `bson:"vaccineName" json:"vaccineName"`
	PatientName     string    `bson:"patientName" json:"patientName"`
	DoseNumber      int       `bson:"doseNumber" json:"doseNumber"`
	Date            time.Time `bson:"date" json:"date"`
	Time            string    `bson:"time" json:"time"`
	Status          string    `bson:"status" json:"status"`
	ReminderSent24h bool      `bson:"reminderSent24h" json:"reminderSent24h"`
	ReminderSent2h  bool      `bson:"reminderSent2h" json:"reminderSent2h"`
	CreatedAt       time.Time `bson:"createdAt" json:"createdAt"`
}

type Handler struct {
	catalog      *mongo.Collection
	appointments *mongo.Collection
	val          *validation.Validator
	log          *slog.Logger
}

func NewHandler(catalog, appointments *mongo.Collection, val *validation.Validator, log *slog.Logger) *Handler {
	return &Handler{catalog: catalog, appointments: appointments, val: val, log: log}
}

func (h *Handler) Catalog(w http.ResponseWriter, r *http.Request) {
	log := h.logWithRequest(r)

	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	opts := options.Find().SetSort(bson.D{{Key: "name", Value: 1}})
	cursor, err := h.catalog.Find(ctx, bson.M{"available": true}, opts)
	if err != nil {
		log.Error("vaccination catalog: database error", slog.String("error", err.Error()))
		transport.WriteError(w, http.StatusInternalServerError, "database error", nil)
		return
	}
	defer cursor.Close(ctx)

	items := make([]Vaccine, 0)
	for cursor.Next(ctx) {
		var vaccine Vaccine
		if err := cursor.Decode(&vaccine); err != nil {
			log.Error("vaccination catalog: decode error", slog.String("error", err.Error()))
			transport.WriteError(w, http.StatusInternalServerError, "database error", nil)
			return
		}
		items = append(items, vaccine)
	}

	transport.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"success":  true,
		"vaccines": items,
	})
}

type BookRequest struct {
	VaccineID   string `json:"vaccineId" validate:"required"`
	PatientName string `json:"patientName" validate:"required"`
	DoseNumber  int    `json:"doseNumber" validate:"required,gte=1,lte=5"`
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

	var vaccine Vaccine
	if err := h.catalog.FindOne(ctx, bson.M{"_id": req.VaccineID, "available": true}).Decode(&vaccine); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			transport.WriteError(w, http.StatusNotFound, "Vaccine not found or unavailable", nil)
			return
		}
		log.Error("vaccination book: database error", slog.String("error", err.Error()))
		transport.WriteError(w, http.StatusInternalServerError, "database error", nil)
		return
	}

	if req.DoseNumber > vaccine.Doses {
		transport.WriteError(w, http.StatusBadRequest, "Dose number exceeds the vaccine schedule", nil)
		return
	}

	appt := Appointment{
		ID:          primitive.NewObjectID().Hex(),
		UserID:      middleware.UserIDFromContext(r.Context()),
		VaccineID:   vaccine.ID,
		VaccineName: vaccine.Name,
		PatientName: strings.TrimSpace(req.PatientName),
		DoseNumber:  req.DoseNumber,
		Date:        date,
		Time:        req.Time,
		Status:      models.AppointmentStatusScheduled,
		CreatedAt:   time.Now(),
	}

	if _, err := h.appointments.InsertOne(ctx, appt); err != nil {
		log.Error("vaccination book: database error", slog.String("error", err.Error()))
		transport.WriteError(w, http.StatusInternalServerError, "database error", nil)
		return
	}

	log.Info("vaccination book: ok",
		slog.String("appointment_id", appt.ID),
		slog.String("vaccine", vaccine.Name),
		slog.Int("dose", appt.DoseNumber),
	)
	transport.WriteJSON(w, http.StatusCreated, map[string]interface{}{
		"success":     true,
		"message":     "Vaccination appointment booked",
		"appointment": appt,
	})
}

func (h *Handler) ListMine(w http.ResponseWriter, r *http.Request) {
	log := h.logWithRequest(r)

	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	opts := options.Find().SetSort(bson.D{{Key: "date", Value: 1}})
	cursor, err := h.appointments.Find(ctx, bson.M{"userId": middleware.UserIDFromContext(r.Context())}, opts)
	if err != nil {
		log.Error("vaccination list: database error", slog.String("error", err.Error()))
		transport.WriteError(w, http.StatusInternalServerError, "database error", nil)
		return
	}
	defer cursor.Close(ctx)

	items := make([]Appointment, 0)
	for cursor.Next(ctx) {
		var appt Appointment
		if err := cursor.Decode(&appt); err != nil {
			log.Error("vaccination list: decode error", slog.String("error", err.Error()))
			transport.WriteError(w, http.StatusInternalServerError, "database error", nil)
			return
		}
		items = append(items, appt)
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

	res, err := h.appointments.UpdateOne(ctx,
		bson.M{
			"_id":    id,
			"userId": middleware.UserIDFromContext(r.Context()),
			"status": models.AppointmentStatusScheduled,
		},
		bson.M{"$set": bson.M{"status": models.AppointmentStatusCancelled}},
	)
	if err != nil {
		log.Error("vaccination cancel: database error", slog.String("error", err.Error()))
		transport.WriteError(w, http.StatusInternalServerError, "database error", nil)
		return
	}
	if res.ModifiedCount == 0 {
		transport.WriteError(w, http.StatusNotFound, "Scheduled appointment not found", nil)
		return
	}

	log.Info("vaccination cancel: ok", slog.String("appointment_id", id))
	transport.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"success": true,
		"message": "Vaccination appointment cancelled",
	})
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
