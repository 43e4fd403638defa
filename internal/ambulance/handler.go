package ambulance

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"medibot-backend/internal/httpx"
	"medibot-backend/internal/middleware"
	"medibot-backend/internal/transport"
	"medibot-backend/internal/validation"

	"github.com/go-chi/chi/v5"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const (
	StatusAvailable   = "available"
	StatusBusy        = "busy"
	StatusMaintenance = "maintenance"

	RequestDispatched = "dispatched"
	RequestCompleted  = "completed"
	RequestCancelled  = "cancelled"
)

type Ambulance struct {
	ID            string    `bson:"_id,omitempty" json:"id"`
	VehicleNumber string    `bson:"vehicleNumber" json:"vehicleNumber"`
	Type          string    `bson:"type" json:"type"`
	DriverName    string    `bson:"driverName" json:"driverName"`
	DriverPhone   string    `bson:"driverPhone" json:"driverPhone"`
	Status        string    `bson:"status" json:"status"`
	CreatedAt     time.Time `bson:"createdAt" json:"createdAt"`
}

type Request struct {
	ID            string    `bson:"_id,omitempty" json:"id"`
	UserID        string    `bson:"userId" json:"userId"`
	PatientName   string    `bson:"patientName" json:"patientName"`
	ContactPhone  string    `bson:"contactPhone" json:"contactPhone"`
	PickupAddress string    `bson:"pickupAddress" json:"pickupAddress"`
	Urgency       string    `bson:"urgency" json:"urgency"`
	AmbulanceID   string    `bson:"ambulanceId" json:"ambulanceId"`
	ETAMinutes    int       `bson:"etaMinutes" json:"etaMinutes"`
	Status        string    `bson:"status" json:"status"`
	CreatedAt     time.Time `bson:"createdAt" json:"createdAt"`
}

// ETAMinutes maps urgency to the promised arrival window.
func ETAMinutes(urgency string) int {
	switch urgency {
	case "critical":
		return 8
	case "high":
		return 12
	default:
		return 15
	}
}

type Handler struct {
	fleet    *mongo.Collection
	requests *mongo.Collection
	val      *validation.Validator
	log      *slog.Logger
}

func NewHandler(fleet, requests *mongo.Collection, val *validation.Validator, log *slog.Logger) *Handler {
	return &Handler{fleet: fleet, requests: requests, val: val, log: log}
}

type DispatchRequest struct {
	PatientName   string `json:"patientName" validate:"required"`
	ContactPhone  string `json:"contactPhone" validate:"required,phone"`
	PickupAddress string `json:"pickupAddress" validate:"required,min=10"`
	Urgency       string `json:"urgency" validate:"required,oneof=critical high normal"`
}

// Dispatch claims the first available ambulance atomically and opens a
// request against it.
func (h *Handler) Dispatch(w http.ResponseWriter, r *http.Request) {
	log := h.logWithRequest(r)

	var req DispatchRequest
	if err := httpx.DecodeJSON(r.Body, &req); err != nil {
		transport.WriteError(w, http.StatusBadRequest, "invalid json", nil)
		return
	}
	if err := h.val.Struct(req); err != nil {
		transport.WriteError(w, http.StatusBadRequest, "validation error", httpx.ValidationDetails(h.val.ValidationErrors(err)))
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 8*time.Second)
	defer cancel()

	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)
	var assigned Ambulance
	err := h.fleet.FindOneAndUpdate(ctx,
		bson.M{"status": StatusAvailable},
		bson.M{"$set": bson.M{"status": StatusBusy}},
		opts,
	).Decode(&assigned)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			log.Warn("ambulance dispatch: none available")
			transport.WriteError(w, http.StatusServiceUnavailable,
				"All ambulances are currently busy. Please call the emergency helpline.", nil)
			return
		}
		log.Error("ambulance dispatch: database error", slog.String("error", err.Error()))
		transport.WriteError(w, http.StatusInternalServerError, "database error", nil)
		return
	}

	request := Request{
		ID:            primitive.NewObjectID().Hex(),
		UserID:        middleware.UserIDFromContext(r.Context()),
		PatientName:   strings.TrimSpace(req.PatientName),
		ContactPhone:  strings.TrimSpace(req.ContactPhone),
		PickupAddress: strings.TrimSpace(req.PickupAddress),
		Urgency:       req.Urgency,
		AmbulanceID:   assigned.ID,
		ETAMinutes:    ETAMinutes(req.Urgency),
		Status:        RequestDispatched,
		CreatedAt:     time.Now(),
	}

	if _, err := h.requests.InsertOne(ctx, request); err != nil {
		// Free the vehicle again; the claim would otherwise leak.
		_, _ = h.fleet.UpdateOne(ctx, bson.M{"_id": assigned.ID}, bson.M{"$set": bson.M{"status": StatusAvailable}})
		log.Error("ambulance dispatch: database error", slog.String("error", err.Error()))
		transport.WriteError(w, http.StatusInternalServerError, "database error", nil)
		return
	}

	log.Info("ambulance dispatch: ok",
		slog.String("request_id", request.ID),
		slog.String("ambulance_id", assigned.ID),
		slog.String("urgency", request.Urgency),
		slog.Int("eta_minutes", request.ETAMinutes),
	)
	transport.WriteJSON(w, http.StatusCreated, map[string]interface{}{
		"success":   true,
		"message":   "Ambulance dispatched",
		"request":   request,
		"ambulance": assigned,
	})
}

func (h *Handler) ListRequests(w http.ResponseWriter, r *http.Request) {
	log := h.logWithRequest(r)

	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	opts := options.Find().SetSort(bson.D{{Key: "createdAt", Value: -1}})
	cursor, err := h.requests.Find(ctx, bson.M{"userId": middleware.UserIDFromContext(r.Context())}, opts)
	if err != nil {
		log.Error("ambulance list: database error", slog.String("error", err.Error()))
		transport.WriteError(w, http.StatusInternalServerError, "database error", nil)
		return
	}
	defer cursor.Close(ctx)

	items := make([]Request, 0)
	for cursor.Next(ctx) {
		var request Request
		if err := cursor.Decode(&request); err != nil {
			log.Error("ambulance list: decode error", slog.String("error", err.Error()))
			transport.WriteError(w, http.StatusInternalServerError, "database error", nil)
			return
		}
		items = append(items, request)
	}

	transport.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"success":  true,
		"requests": items,
	})
}

// Cancel releases the assigned vehicle back to the pool.
func (h *Handler) Cancel(w http.ResponseWriter, r *http.Request) {
	log := h.logWithRequest(r)
	id := strings.TrimSpace(chi.URLParam(r, "id"))
	if id == "" {
		transport.WriteError(w, http.StatusBadRequest, "missing id", nil)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)
	var request Request
	err := h.requests.FindOneAndUpdate(ctx,
		bson.M{"_id": id, "userId": middleware.UserIDFromContext(r.Context()), "status": RequestDispatched},
		bson.M{"$set": bson.M{"status": RequestCancelled}},
		opts,
	).Decode(&request)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			transport.WriteError(w, http.StatusNotFound, "Active request not found", nil)
			return
		}
		log.Error("ambulance cancel: database error", slog.String("error", err.Error()))
		transport.WriteError(w, http.StatusInternalServerError, "database error", nil)
		return
	}

	if _, err := h.fleet.UpdateOne(ctx, bson.M{"_id": request.AmbulanceID}, bson.M{"$set": bson.M{"status": StatusAvailable}}); err != nil {
		log.Error("ambulance cancel: release failed",
			slog.String("ambulance_id", request.AmbulanceID),
			slog.String("error", err.Error()),
		)
	}

	log.Info("ambulance cancel: ok", slog.String("request_id", id))
	transport.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"success": true,
		"message": "Ambulance request cancelled",
		"request": request,
	})
}

// AdminComplete closes a trip and frees the vehicle.
func (h *Handler) AdminComplete(w http.ResponseWriter, r *http.Request) {
	log := h.logWithRequest(r)
	id := strings.TrimSpace(chi.URLParam(r, "id"))
	if id == "" {
		transport.WriteError(w, http.StatusBadRequest, "missing id", nil)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)
	var request Request
	err := h.requests.FindOneAndUpdate(ctx,
		bson.M{"_id": id, "status": RequestDispatched},
		bson.M{"$set": bson.M{"status": RequestCompleted}},
		opts,
	).Decode(&request)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			transport.WriteError(w, http.StatusNotFound, "Active request not found", nil)
			return
		}
		log.Error("ambulance complete: database error", slog.String("error", err.Error()))
		transport.WriteError(w, http.StatusInternalServerError, "database error", nil)
		return
	}

	if _, err := h.fleet.UpdateOne(ctx, bson.M{"_id": request.AmbulanceID}, bson.M{"$set": bson.M{"status": StatusAvailable}}); err != nil {
		log.Error("ambulance complete: release failed",
			slog.String("ambulance_id", request.AmbulanceID),
			slog.String("error", err.Error()),
		)
	}

	log.Info("ambulance complete: ok", slog.String("request_id", id))
	transport.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"success": true,
		"message": "Trip completed",
		"request": request,
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
