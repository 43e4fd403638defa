package insurance

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

type Provider struct {
	ID        string    `bson:"_id,omitempty" json:"id"`
	Name      string    `bson:"name" json:"name"`
	Type      string    `bson:"type" json:"type"`
	Cashless  bool      `bson:"cashless" json:"cashless"`
	TPADesk   string    `bson:"tpaDesk,omitempty" json:"tpaDesk,omitempty"`
	Active    bool      `bson:"active" json:"active"`
	CreatedAt time.Time `bson:"createdAt" json:"createdAt"`
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

	opts := options.Find().SetSort(bson.D{{Key: "name", Value: 1}})
	cursor, err := h.col.Find(ctx, bson.M{"active": true}, opts)
	if err != nil {
		log.Error("insurance list: database error", slog.String("error", err.Error()))
		transport.WriteError(w, http.StatusInternalServerError, "database error", nil)
		return
	}
	defer cursor.Close(ctx)

	items := make([]Provider, 0)
	for cursor.Next(ctx) {
		var provider Provider
		if err := cursor.Decode(&provider); err != nil {
			log.Error("insurance list: decode error", slog.String("error", err.Error()))
			transport.WriteError(w, http.StatusInternalServerError, "database error", nil)
			return
		}
		items = append(items, provider)
	}

	transport.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"success":   true,
		"providers": items,
	})
}

type UpsertRequest struct {
	Name     string `json:"name" validate:"required"`
	Type     string `json:"type" validate:"required,oneof=insurer tpa"`
	Cashless bool   `json:"cashless"`
	TPADesk  string `json:"tpaDesk"`
	Active   bool   `json:"active"`
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
				"type":     req.Type,
				"cashless": req.Cashless,
				"tpaDesk":  strings.TrimSpace(req.TPADesk),
				"active":   req.Active,
			},
			"$setOnInsert": bson.M{
				"_id":       primitive.NewObjectID().Hex(),
				"createdAt": time.Now(),
			},
		},
		opts,
	)
	if err != nil {
		log.Error("insurance upsert: database error", slog.String("error", err.Error()))
		transport.WriteError(w, http.StatusInternalServerError, "database error", nil)
		return
	}

	log.Info("insurance upsert: ok", slog.String("name", req.Name))
	transport.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"success": true,
		"message": "Provider saved",
	})
}

// Snapshot feeds the chat prompt with the active provider names.
type Snapshot struct {
	col *mongo.Collection
}

func NewSnapshot(col *mongo.Collection) *Snapshot {
	return &Snapshot{col: col}
}

func (s *Snapshot) ActiveProviderNames(ctx context.Context) ([]string, error) {
	opts := options.Find().
		SetProjection(bson.M{"name": 1}).
		SetSort(bson.D{{Key: "name", Value: 1}})
	cursor, err := s.col.Find(ctx, bson.M{"active": true}, opts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	names := make([]string, 0)
	for cursor.Next(ctx) {
		var doc struct {
			Name string `bson:"name"`
		}
		if err := cursor.Decode(&doc); err != nil {
			return nil, err
		}
		names = append(names, doc.Name)
	}
	return names, cursor.Err()
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
