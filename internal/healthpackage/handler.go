package healthpackage

import (
	"context"
	"log/slog"
	"net/http"
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

type Package struct {
	ID          string    `bson:"_id,omitempty" json:"id"`
	Name        string    `bson:"name" json:"name"`
	Description string    `bson:"description,omitempty" json:"description,omitempty"`
	Tests       []string  `bson:"tests" json:"tests"`
	Price       float64   `bson:"price" json:"price"`
	AgeGroup    string    `bson:"ageGroup,omitempty" json:"ageGroup,omitempty"`
	Active      bool      `bson:"active" json:"active"`
	CreatedAt   time.Time `bson:"createdAt" json:"createdAt"`
}

type Handler struct {
	col *mongo.Collection
	val *validation.Validator
	log *slog.Logger
}

func NewHandler(col *mongo.Collection, val *validation.Validator, log *slog.Logger) *Handler {
	return &Handler{col: col, val: val, log: log}
}

func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	log := h.logWithRequest(r)

	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	opts := options.Find().SetSort(bson.D{{Key: "price", Value: 1}})
	cursor, err := h.col.Find(ctx, bson.M{"active": true}, opts)
	if err != nil {
		log.Error("healthpackage list: database error", slog.String("error", err.Error()))
		transport.WriteError(w, http.StatusInternalServerError, "database error", nil)
		return
	}
	defer cursor.Close(ctx)

	items := make([]Package, 0)
	for cursor.Next(ctx) {
		var pkg Package
		if err := cursor.Decode(&pkg); err != nil {
			log.Error("healthpackage list: decode error", slog.String("error", err.Error()))
			transport.WriteError(w, http.StatusInternalServerError, "database error", nil)
			return
		}
		items = append(items, pkg)
	}

	transport.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"success":  true,
		"packages": items,
	})
}

type UpsertRequest struct {
	Name        string   `json:"name" validate:"required"`
	Description string   `json:"description"`
	Tests       []string `json:"tests" validate:"required,min=1"`
	Price       float64  `json:"price" validate:"required,gte=0"`
	AgeGroup    string   `json:"ageGroup"`
	Active      bool     `json:"active"`
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
				"description": strings.TrimSpace(req.Description),
				"tests":       req.Tests,
				"price":       req.Price,
				"ageGroup":    strings.TrimSpace(req.AgeGroup),
				"active":      req.Active,
			},
			"$setOnInsert": bson.M{
				"_id":       primitive.NewObjectID().Hex(),
				"createdAt": time.Now(),
			},
		},
		opts,
	)
	if err != nil {
		log.Error("healthpackage upsert: database error", slog.String("error", err.Error()))
		transport.WriteError(w, http.StatusInternalServerError, "database error", nil)
		return
	}

	log.Info("healthpackage upsert: ok", slog.String("name", req.Name))
	transport.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"success": true,
		"message": "Package saved",
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
