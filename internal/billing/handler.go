package billing

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
	EstimateActive    = "active"
	EstimateAccepted  = "accepted"
	EstimateCancelled = "cancelled"

	estimateValidity = 7 * 24 * time.Hour
)

type LineItem struct {
	Description string  `bson:"description" json:"description"`
	Quantity    int     `bson:"quantity" json:"quantity"`
	UnitPrice   float64 `bson:"unitPrice" json:"unitPrice"`
	Amount      float64 `bson:"amount" json:"amount"`
}

type Estimate struct {
	ID          string     `bson:"_id,omitempty" json:"id"`
	UserID      string     `bson:"userId" json:"userId"`
	PatientName string     `bson:"patientName" json:"patientName"`
	Items       []LineItem `bson:"items" json:"items"`
	Breakdown   Breakdown  `bson:"breakdown,inline" json:"breakdown"`
	Status      string     `bson:"status" json:"status"`
	ValidUntil  time.Time  `bson:"validUntil" json:"validUntil"`
	Expired     bool       `bson:"-" json:"expired"`
	CreatedAt   time.Time  `bson:"createdAt" json:"createdAt"`
}

type Handler struct {
	col *mongo.Collection
	val *validation.Validator
	log *slog.Logger
}

func NewHandler(col *mongo.Collection, val *validation.Validator, log *slog.Logger) *Handler {
	return &Handler{col: col, val: val, log: log}
}

type LineItemRequest struct {
	Description string  `json:"description" validate:"required"`
	Quantity    int     `json:"quantity" validate:"required,gte=1,lte=1000"`
	UnitPrice   float64 `json:"unitPrice" validate:"required,gte=0"`
}

type CreateEstimateRequest struct {
	PatientName     string            `json:"patientName" validate:"required"`
	Items           []LineItemRequest `json:"items" validate:"required,min=1,max=50,dive"`
	DiscountPercent float64           `json:"discountPercent" validate:"gte=0,lte=100"`
	InsuranceCover  float64           `json:"insuranceCover" validate:"gte=0"`
}

func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	log := h.logWithRequest(r)

	var req CreateEstimateRequest
	if err := httpx.DecodeJSON(r.Body, &req); err != nil {
		transport.WriteError(w, http.StatusBadRequest, "invalid json", nil)
		return
	}
	if err := h.val.Struct(req); err != nil {
		transport.WriteError(w, http.StatusBadRequest, "validation error", httpx.ValidationDetails(h.val.ValidationErrors(err)))
		return
	}

	items := make([]LineItem, 0, len(req.Items))
	subtotal := 0.0
	for _, item := range req.Items {
		amount := round2(float64(item.Quantity) * item.UnitPrice)
		items = append(items, LineItem{
			Description: strings.TrimSpace(item.Description),
			Quantity:    item.Quantity,
			UnitPrice:   item.UnitPrice,
			Amount:      amount,
		})
		subtotal += amount
	}

	breakdown, err := Compute(subtotal, req.DiscountPercent, req.InsuranceCover)
	if err != nil {
		transport.WriteError(w, http.StatusBadRequest, err.Error(), nil)
		return
	}

	now := time.Now()
	estimate := Estimate{
		ID:          primitive.NewObjectID().Hex(),
		UserID:      middleware.UserIDFromContext(r.Context()),
		PatientName: strings.TrimSpace(req.PatientName),
		Items:       items,
		Breakdown:   breakdown,
		Status:      EstimateActive,
		ValidUntil:  now.Add(estimateValidity),
		CreatedAt:   now,
	}

	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	if _, err := h.col.InsertOne(ctx, estimate); err != nil {
		log.Error("billing create: database error", slog.String("error", err.Error()))
		transport.WriteError(w, http.StatusInternalServerError, "database error", nil)
		return
	}

	log.Info("billing create: ok",
		slog.String("estimate_id", estimate.ID),
		slog.Float64("payable", breakdown.Payable),
	)
	transport.WriteJSON(w, http.StatusCreated, map[string]interface{}{
		"success":  true,
		"message":  "Estimate generated. It is valid for 7 days.",
		"estimate": estimate,
	})
}

func (h *Handler) ListMine(w http.ResponseWriter, r *http.Request) {
	log := h.logWithRequest(r)

	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	opts := options.Find().SetSort(bson.D{{Key: "createdAt", Value: -1}})
	cursor, err := h.col.Find(ctx, bson.M{"userId": middleware.UserIDFromContext(r.Context())}, opts)
	if err != nil {
		log.Error("billing list: database error", slog.String("error", err.Error()))
		transport.WriteError(w, http.StatusInternalServerError, "database error", nil)
		return
	}
	defer cursor.Close(ctx)

	now := time.Now()
	items := make([]Estimate, 0)
	for cursor.Next(ctx) {
		var estimate Estimate
		if err := cursor.Decode(&estimate); err != nil {
			log.Error("billing list: decode error", slog.String("error", err.Error()))
			transport.WriteError(w, http.StatusInternalServerError, "database error", nil)
			return
		}
		estimate.Expired = now.After(estimate.ValidUntil)
		items = append(items, estimate)
	}

	transport.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"success":   true,
		"estimates": items,
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

	var estimate Estimate
	err := h.col.FindOne(ctx, bson.M{"_id": id, "userId": middleware.UserIDFromContext(r.Context())}).Decode(&estimate)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			transport.WriteError(w, http.StatusNotFound, "Estimate not found", nil)
			return
		}
		log.Error("billing get: database error", slog.String("error", err.Error()))
		transport.WriteError(w, http.StatusInternalServerError, "database error", nil)
		return
	}
	estimate.Expired = time.Now().After(estimate.ValidUntil)

	transport.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"success":  true,
		"estimate": estimate,
	})
}

type StatusRequest struct {
	Status string `json:"status" validate:"required,oneof=active accepted cancelled"`
}

func (h *Handler) UpdateStatus(w http.ResponseWriter, r *http.Request) {
	log := h.logWithRequest(r)
	id := strings.TrimSpace(chi.URLParam(r, "id"))
	if id == "" {
		transport.WriteError(w, http.StatusBadRequest, "missing id", nil)
		return
	}

	var req StatusRequest
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

	res, err := h.col.UpdateOne(ctx,
		bson.M{"_id": id, "userId": middleware.UserIDFromContext(r.Context())},
		bson.M{"$set": bson.M{"status": req.Status}},
	)
	if err != nil {
		log.Error("billing status: database error", slog.String("error", err.Error()))
		transport.WriteError(w, http.StatusInternalServerError, "database error", nil)
		return
	}
	if res.MatchedCount == 0 {
		transport.WriteError(w, http.StatusNotFound, "Estimate not found", nil)
		return
	}

	log.Info("billing status: ok", slog.String("estimate_id", id), slog.String("status", req.Status))
	transport.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"success": true,
		"message": "Estimate updated",
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
