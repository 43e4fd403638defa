package navigation

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"regexp"
	"strings"
	"time"

	"medibot-backend/internal/middleware"
	"medibot-backend/internal/transport"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// Node is one named location inside the hospital with walking directions
// from the main entrance.
type Node struct {
	ID         string   `bson:"_id,omitempty" json:"id"`
	Location   string   `bson:"location" json:"location"`
	Floor      string   `bson:"floor" json:"floor"`
	Landmarks  []string `bson:"landmarks" json:"landmarks"`
	Directions string   `bson:"directions" json:"directions"`
}

type Handler struct {
	col *mongo.Collection
	log *slog.Logger
}

func NewHandler(col *mongo.Collection, log *slog.Logger) *Handler {
	return &Handler{col: col, log: log}
}

func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	log := h.logWithRequest(r)

	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	opts := options.Find().SetSort(bson.D{{Key: "location", Value: 1}})
	cursor, err := h.col.Find(ctx, bson.M{}, opts)
	if err != nil {
		log.Error("navigation list: database error", slog.String("error", err.Error()))
		transport.WriteError(w, http.StatusInternalServerError, "database error", nil)
		return
	}
	defer cursor.Close(ctx)

	items := make([]Node, 0)
	for cursor.Next(ctx) {
		var node Node
		if err := cursor.Decode(&node); err != nil {
			log.Error("navigation list: decode error", slog.String("error", err.Error()))
			transport.WriteError(w, http.StatusInternalServerError, "database error", nil)
			return
		}
		items = append(items, node)
	}

	transport.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"success":   true,
		"locations": items,
	})
}

// Directions looks a location up by case-insensitive substring.
func (h *Handler) Directions(w http.ResponseWriter, r *http.Request) {
	log := h.logWithRequest(r)
	location := strings.TrimSpace(r.URL.Query().Get("to"))
	if location == "" {
		transport.WriteError(w, http.StatusBadRequest, "missing 'to' query parameter", nil)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	var node Node
	err := h.col.FindOne(ctx, bson.M{
		"location": bson.M{"$regex": regexp.QuoteMeta(location), "$options": "i"},
	}).Decode(&node)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			transport.WriteError(w, http.StatusNotFound,
				"We could not find that location. Please ask at the front desk.", nil)
			return
		}
		log.Error("navigation directions: database error", slog.String("error", err.Error()))
		transport.WriteError(w, http.StatusInternalServerError, "database error", nil)
		return
	}

	transport.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"success":  true,
		"location": node,
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
