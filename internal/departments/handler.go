package departments

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

type Department struct {
	ID         string    `bson:"_id,omitempty" json:"id"`
	Name       string    `bson:"name" json:"name"`
	Head       string    `bson:"head" json:"head"`
	Floor      string    `bson:"floor" json:"floor"`
	OPDTimings string    `bson:"opdTimings" json:"opdTimings"`
	Phone      string    `bson:"phone,omitempty" json:"phone,omitempty"`
	CreatedAt  time.Time `bson:"createdAt" json:"createdAt"`
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
	cursor, err := h.col.Find(ctx, bson.M{}, opts)
	if err != nil {
		log.Error("departments list: database error", slog.String("error", err.Error()))
		transport.WriteError(w, http.StatusInternalServerError, "database error", nil)
		return
	}
	defer cursor.Close(ctx)

	items := make([]Department, 0)
	for cursor.Next(ctx) {
		var department Department
		if err := cursor.Decode(&department); err != nil {
			log.Error("departments list: decode error", slog.String("error", err.Error()))
			transport.WriteError(w, http.StatusInternalServerError, "database error", nil)
			return
		}
		items = append(items, department)
	}

	transport.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"success":     true,
		"departments": items,
	})
}

type UpsertRequest struct {
	Name       string `json:"name" validate:"required"`
	Head       string `json:"head"`
	Floor      string `json:"floor"`
	OPDTimings string `json:"opdTimings"`
	Phone      string `json:"phone" validate:"omitempty,phone"`
}

func (h *Handler) AdminCreate(w http.ResponseWriter, r *http.Request) {
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

	department := Department{
		ID:         primitive.NewObjectID().Hex(),
		Name:       strings.TrimSpace(req.Name),
		Head:       strings.TrimSpace(req.Head),
		Floor:      strings.TrimSpace(req.Floor),
		OPDTimings: strings.TrimSpace(req.OPDTimings),
		Phone:      strings.TrimSpace(req.Phone),
		CreatedAt:  time.Now(),
	}

	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	if _, err := h.col.InsertOne(ctx, department); err != nil {
		log.Error("departments create: database error", slog.String("error", err.Error()))
		transport.WriteError(w, http.StatusInternalServerError, "database error", nil)
		return
	}

	log.Info("departments create: ok", slog.String("department", department.Name))
	transport.WriteJSON(w, http.StatusCreated, map[string]interface{}{
		"success":    true,
		"message":    "Department added",
		"department": department,
	})
}

func (h *Handler) AdminUpdate(w http.ResponseWriter, r *http.Request) {
	log := h.logWithRequest(r)
	id := strings.TrimSpace(chi.URLParam(r, "id"))
	if id == "" {
		transport.WriteError(w, http.StatusBadRequest, "missing id", nil)
		return
	}

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

	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)
	var updated Department
	err := h.col.FindOneAndUpdate(ctx, bson.M{"_id": id}, bson.M{"$set": bson.M{
		"name":       strings.TrimSpace(req.Name),
		"head":       strings.TrimSpace(req.Head),
		"floor":      strings.TrimSpace(req.Floor),
		"opdTimings": strings.TrimSpace(req.OPDTimings),
		"phone":      strings.TrimSpace(req.Phone),
	}}, opts).Decode(&updated)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			transport.WriteError(w, http.StatusNotFound, "Department not found", nil)
			return
		}
		log.Error("departments update: database error", slog.String("error", err.Error()))
		transport.WriteError(w, http.StatusInternalServerError, "database error", nil)
		return
	}

	log.Info("departments update: ok", slog.String("department_id", id))
	transport.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"success":    true,
		"message":    "Department updated",
		"department": updated,
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

	res, err := h.col.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		log.Error("departments delete: database error", slog.String("error", err.Error()))
		transport.WriteError(w, http.StatusInternalServerError, "database error", nil)
		return
	}
	if res.DeletedCount == 0 {
		transport.WriteError(w, http.StatusNotFound, "Department not found", nil)
		return
	}

	log.Info("departments delete: ok", slog.String("department_id", id))
	transport.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"success": true,
		"message": "Department removed",
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
