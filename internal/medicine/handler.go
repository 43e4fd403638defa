package medicine

import (
	"context"
	"log/slog"
	"net/http"
	"regexp"
	"strings"
	"time"

	"medibot-backend/internal/httpx"
	"medibot-backend/internal/middleware"
	"medibot-backend/internal/transport"
	"medibot-backend/internal/validation"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type Medicine struct {
	ID           string    `bson:"_id,omitempty" json:"id"`
	Name         string    `bson:"name" json:"name"`
	GenericName  string    `bson:"genericName,omitempty" json:"genericName,omitempty"`
	Category     string    `bson:"category" json:"category"`
	Price        float64   `bson:"price" json:"price"`
	Stock        int       `bson:"stock" json:"stock"`
	Prescription bool      `bson:"prescriptionRequired" json:"prescriptionRequired"`
	HomeDelivery bool      `bson:"homeDelivery" json:"homeDelivery"`
	CreatedAt    time.Time `bson:"createdAt" json:"createdAt"`
}

type Handler struct {
	col *mongo.Collection
	val *validation.Validator
	log *slog.Logger
}

func NewHandler(col *mongo.Collection, val *validation.Validator, log *slog.Logger) *Handler {
	return &Handler{col: col, val: val, log: log}
}

// Search matches name or generic name, optionally limited to in-stock items.
func (h *Handler) Search(w http.ResponseWriter, r *http.Request) {
	log := h.logWithRequest(r)

	query := bson.M{}
	if name := strings.TrimSpace(r.URL.Query().Get("name")); name != "" {
		pattern := bson.M{"$regex": regexp.QuoteMeta(name), "$options": "i"}
		query["$or"] = bson.A{
			bson.M{"name": pattern},
			bson.M{"genericName": pattern},
		}
	}
	if r.URL.Query().Get("inStock") == "true" {
		query["stock"] = bson.M{"$gt": 0}
	}

	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	opts := options.Find().SetSort(bson.D{{Key: "name", Value: 1}}).SetLimit(100)
	cursor, err := h.col.Find(ctx, query, opts)
	if err != nil {
		log.Error("medicine search: database error", slog.String("error", err.Error()))
		transport.WriteError(w, http.StatusInternalServerError, "database error", nil)
		return
	}
	defer cursor.Close(ctx)

	items := make([]Medicine, 0)
	for cursor.Next(ctx) {
		var medicine Medicine
		if err := cursor.Decode(&medicine); err != nil {
			log.Error("medicine search: decode error", slog.String("error", err.Error()))
			transport.WriteError(w, http.StatusInternalServerError, "database error", nil)
			return
		}
		items = append(items, medicine)
	}

	transport.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"success":   true,
		"medicines": items,
	})
}

type UpsertRequest struct {
	Name         string  `json:"name" validate:"required"`
	GenericName  string  `json:"genericName"`
	Category     string  `json:"category" validate:"required"`
	Price        float64 `json:"price" validate:"gte=0"`
	Stock        int     `json:"stock" validate:"gte=0"`
	Prescription bool    `json:"prescriptionRequired"`
	HomeDelivery bool    `json:"homeDelivery"`
}

func (h *Handler) AdminUpsert(w http.ResponseWriter, r *http.Request) {
	log := h.logWithRequest(r)

	var req UpsertRequest
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
	_, err := h.col.UpdateOne(ctx,
		bson.M{"name": strings.TrimSpace(req.Name)},
		bson.M{
			"$set": bson.M{
				"genericName":          strings.TrimSpace(req.GenericName),
				"category":             strings.TrimSpace(req.Category),
				"price":                req.Price,
				"stock":                req.Stock,
				"prescriptionRequired": req.Prescription,
				"homeDelivery":         req.HomeDelivery,
			},
			"$setOnInsert": bson.M{
				"_id":       primitive.NewObjectID().Hex(),
				"createdAt": time.Now(),
			},
		},
		opts,
	)
	if err != nil {
		log.Error("medicine upsert: database error", slog.String("error", err.Error()))
		transport.WriteError(w, http.StatusInternalServerError, "database error", nil)
		return
	}

	log.Info("medicine upsert: ok", slog.String("name", req.Name), slog.Int("stock", req.Stock))
	transport.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"success": true,
		"message": "Medicine saved",
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
