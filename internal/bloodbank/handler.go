package bloodbank

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
	RequestStatusPending   = "pending"
	RequestStatusFulfilled = "fulfilled"
	RequestStatusCancelled = "cancelled"
)

type InventoryItem struct {
	ID             string    `bson:"_id,omitempty" json:"id"`
	BloodGroup     string    `bson:"bloodGroup" json:"bloodGroup"`
	UnitsAvailable int       `bson:"unitsAvailable" json:"unitsAvailable"`
	UpdatedAt      time.Time `bson:"updatedAt" json:"updatedAt"`
}

type Request struct {
	ID          string    `bson:"_id,omitempty" json:"id"`
	UserID      string    `bson:"userId" json:"userId"`
	PatientName string    `bson:"patientName" json:"patientName"`
	BloodGroup  string    `bson:"bloodGroup" json:"bloodGroup"`
	Units       int       `bson:"units" json:"units"`
	Urgency     string    `bson:"urgency" json:"urgency"`
	RequiredBy  time.Time `bson:"requiredBy" json:"requiredBy"`
	Reason      string    `bson:"reason,omitempty" json:"reason,omitempty"`
	Status      string    `bson:"status" json:"status"`
	CreatedAt   time.Time `bson:"createdAt" json:"createdAt"`
}

type Handler struct {
	inventory *mongo.Collection
	requests  *mongo.Collection
	val       *validation.Validator
	log       *slog.Logger
}

func NewHandler(inventory, requests *mongo.Collection, val *validation.Validator, log *slog.Logger) *Handler {
	return &Handler{inventory: inventory, requests: requests, val: val, log: log}
}

func (h *Handler) Inventory(w http.ResponseWriter, r *http.Request) {
	log := h.logWithRequest(r)

	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	opts := options.Find().SetSort(bson.D{{Key: "bloodGroup", Value: 1}})
	cursor, err := h.inventory.Find(ctx, bson.M{}, opts)
	if err != nil {
		log.Error("bloodbank inventory: database error", slog.String("error", err.Error()))
		transport.WriteError(w, http.StatusInternalServerError, "database error", nil)
		return
	}
	defer cursor.Close(ctx)

	items := make([]InventoryItem, 0)
	total := 0
	for cursor.Next(ctx) {
		var item InventoryItem
		if err := cursor.Decode(&item); err != nil {
			log.Error("bloodbank inventory: decode error", slog.String("error", err.Error()))
			transport.WriteError(w, http.StatusInternalServerError, "database error", nil)
			return
		}
		items = append(items, item)
		total += item.UnitsAvailable
	}

	transport.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"success":    true,
		"inventory":  items,
		"totalUnits": total,
	})
}

type CreateRequestRequest struct {
	PatientName string `json:"patientName" validate:"required"`
	BloodGroup  string `json:"bloodGroup" validate:"required,bloodgroup"`
	Units       int    `json:"units" validate:"required,gte=1,lte=20"`
	Urgency     string `json:"urgency" validate:"required,oneof=critical high normal"`
	RequiredBy  string `json:"requiredBy" validate:"required,date"`
	Reason      string `json:"reason"`
}

func (h *Handler) CreateRequest(w http.ResponseWriter, r *http.Request) {
	log := h.logWithRequest(r)

	var req CreateRequestRequest
	if err := httpx.DecodeJSON(r.Body, &req); err != nil {
		transport.WriteError(w, http.StatusBadRequest, "invalid json", nil)
		return
	}
	if err := h.val.Struct(req); err != nil {
		transport.WriteError(w, http.StatusBadRequest, "validation error", httpx.ValidationDetails(h.val.ValidationErrors(err)))
		return
	}

	requiredBy, _ := time.Parse("2006-01-02", req.RequiredBy)
	request := Request{
		ID:          primitive.NewObjectID().Hex(),
		UserID:      middleware.UserIDFromContext(r.Context()),
		PatientName: strings.TrimSpace(req.PatientName),
		BloodGroup:  req.BloodGroup,
		Units:       req.Units,
		Urgency:     req.Urgency,
		RequiredBy:  requiredBy.UTC(),
		Reason:      strings.TrimSpace(req.Reason),
		Status:      RequestStatusPending,
		CreatedAt:   time.Now(),
	}

	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	if _, err := h.requests.InsertOne(ctx, request); err != nil {
		log.Error("bloodbank request: database error", slog.String("error", err.Error()))
		transport.WriteError(w, http.StatusInternalServerError, "database error", nil)
		return
	}

	log.Info("bloodbank request: created",
		slog.String("request_id", request.ID),
		slog.String("blood_group", request.BloodGroup),
		slog.Int("units", request.Units),
	)
	transport.WriteJSON(w, http.StatusCreated, map[string]interface{}{
		"success": true,
		"message": "Blood request submitted. Our blood bank team will contact you shortly.",
		"request": request,
	})
}

func (h *Handler) ListRequests(w http.ResponseWriter, r *http.Request) {
	log := h.logWithRequest(r)

	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	opts := options.Find().SetSort(bson.D{{Key: "createdAt", Value: -1}})
	cursor, err := h.requests.Find(ctx, bson.M{"userId": middleware.UserIDFromContext(r.Context())}, opts)
	if err != nil {
		log.Error("bloodbank list: database error", slog.String("error", err.Error()))
		transport.WriteError(w, http.StatusInternalServerError, "database error", nil)
		return
	}
	defer cursor.Close(ctx)

	items := make([]Request, 0)
	for cursor.Next(ctx) {
		var request Request
		if err := cursor.Decode(&request); err != nil {
			log.Error("bloodbank list: decode error", slog.String("error", err.Error()))
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

type UpdateInventoryRequest struct {
	BloodGroup     string `json:"bloodGroup" validate:"required,bloodgroup"`
	UnitsAvailable int    `json:"unitsAvailable" validate:"gte=0"`
}

func (h *Handler) AdminUpdateInventory(w http.ResponseWriter, r *http.Request) {
	log := h.logWithRequest(r)

	var req UpdateInventoryRequest
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

	opts := options.Update().SetUpsert(true)
	_, err := h.inventory.UpdateOne(ctx,
		bson.M{"bloodGroup": req.BloodGroup},
		bson.M{
			"$set":         bson.M{"unitsAvailable": req.UnitsAvailable, "updatedAt": time.Now()},
			"$setOnInsert": bson.M{"_id": primitive.NewObjectID().Hex()},
		},
		opts,
	)
	if err != nil {
		log.Error("bloodbank update: database error", slog.String("error", err.Error()))
		transport.WriteError(w, http.StatusInternalServerError, "database error", nil)
		return
	}

	log.Info("bloodbank update: ok",
		slog.String("blood_group", req.BloodGroup),
		slog.Int("units", req.UnitsAvailable),
	)
	transport.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"success": true,
		"message": "Inventory updated",
	})
}

// AdminFulfil marks a pending request fulfilled and draws the units from
// inventory. The decrement is guarded so stock cannot go negative.
func (h *Handler) AdminFulfil(w http.ResponseWriter, r *http.Request) {
	log := h.logWithRequest(r)
	id := strings.TrimSpace(chi.URLParam(r, "id"))
	if id == "" {
		transport.WriteError(w, http.StatusBadRequest, "missing id", nil)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 8*time.Second)
	defer cancel()

	var request Request
	if err := h.requests.FindOne(ctx, bson.M{"_id": id}).Decode(&request); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			transport.WriteError(w, http.StatusNotFound, "Request not found", nil)
			return
		}
		log.Error("bloodbank fulfil: database error", slog.String("error", err.Error()))
		transport.WriteError(w, http.StatusInternalServerError, "database error", nil)
		return
	}
	if request.Status != RequestStatusPending {
		transport.WriteError(w, http.StatusBadRequest, "Request is not pending", nil)
		return
	}

	res, err := h.inventory.UpdateOne(ctx,
		bson.M{"bloodGroup": request.BloodGroup, "unitsAvailable": bson.M{"$gte": request.Units}},
		bson.M{"$inc": bson.M{"unitsAvailable": -request.Units}, "$set": bson.M{"updatedAt": time.Now()}},
	)
	if err != nil {
		log.Error("bloodbank fulfil: database error", slog.String("error", err.Error()))
		transport.WriteError(w, http.StatusInternalServerError, "database error", nil)
		return
	}
	if res.ModifiedCount == 0 {
		transport.WriteError(w, http.StatusConflict, "Not enough units in stock for this blood group", nil)
		return
	}

	if _, err := h.requests.UpdateOne(ctx, bson.M{"_id": id}, bson.M{"$set": bson.M{"status": RequestStatusFulfilled}}); err != nil {
		// Put the units back so stock stays consistent with the request state.
		_, _ = h.inventory.UpdateOne(ctx,
			bson.M{"bloodGroup": request.BloodGroup},
			bson.M{"$inc": bson.M{"unitsAvailable": request.Units}},
		)
		log.Error("bloodbank fulfil: database error", slog.String("error", err.Error()))
		transport.WriteError(w, http.StatusInternalServerError, "database error", nil)
		return
	}

	log.Info("bloodbank fulfil: ok", slog.String("request_id", id))
	transport.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"success": true,
		"message": "Request fulfilled",
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
