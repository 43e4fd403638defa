package chat

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"medibot-backend/internal/httpx"
	"medibot-backend/internal/middleware"
	"medibot-backend/internal/transport"
	"medibot-backend/internal/validation"
)

type Handler struct {
	service *Service
	store   Store
	val     *validation.Validator
	log     *slog.Logger
}

func NewHandler(service *Service, store Store, val *validation.Validator, log *slog.Logger) *Handler {
	return &Handler{service: service, store: store, val: val, log: log}
}

type SendRequest struct {
	Message string `json:"message" validate:"required,min=1,max=2000"`
}

func (h *Handler) Send(w http.ResponseWriter, r *http.Request) {
	log := h.logWithRequest(r)

	var req SendRequest
	if err := httpx.DecodeJSON(r.Body, &req); err != nil {
		transport.WriteError(w, http.StatusBadRequest, "invalid json", nil)
		return
	}
	if err := h.val.Struct(req); err != nil {
		transport.WriteError(w, http.StatusBadRequest, "validation error", httpx.ValidationDetails(h.val.ValidationErrors(err)))
		return
	}

	// The LLM round trip dominates; give it more room than the usual
	// database-bound budget.
	ctx, cancel := context.WithTimeout(r.Context(), 70*time.Second)
	defer cancel()

	userID := middleware.UserIDFromContext(r.Context())
	reply, err := h.service.Handle(ctx, userID, req.Message)
	if err != nil {
		log.Error("chat send: error", slog.String("error", err.Error()))
		transport.WriteError(w, http.StatusInternalServerError, "Something went wrong", nil)
		return
	}

	log.Info("chat send: ok", slog.String("user_id", userID))
	transport.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"success":  true,
		"response": reply,
	})
}

func (h *Handler) History(w http.ResponseWriter, r *http.Request) {
	log := h.logWithRequest(r)

	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	conv, err := h.store.History(ctx, middleware.UserIDFromContext(r.Context()))
	if err != nil {
		log.Error("chat history: database error", slog.String("error", err.Error()))
		transport.WriteError(w, http.StatusInternalServerError, "database error", nil)
		return
	}

	transport.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"success":  true,
		"language": conv.Language,
		"messages": conv.Messages,
	})
}

func (h *Handler) Clear(w http.ResponseWriter, r *http.Request) {
	log := h.logWithRequest(r)

	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	if err := h.store.Clear(ctx, middleware.UserIDFromContext(r.Context())); err != nil {
		log.Error("chat clear: database error", slog.String("error", err.Error()))
		transport.WriteError(w, http.StatusInternalServerError, "database error", nil)
		return
	}

	transport.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"success": true,
		"message": "Chat history cleared",
	})
}

type LanguageRequest struct {
	Language string `json:"language" validate:"required,oneof=en hi ta te bn mr kn"`
}

func (h *Handler) UpdateLanguage(w http.ResponseWriter, r *http.Request) {
	log := h.logWithRequest(r)

	var req LanguageRequest
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

	if err := h.store.SetLanguage(ctx, middleware.UserIDFromContext(r.Context()), req.Language); err != nil {
		log.Error("chat language: database error", slog.String("error", err.Error()))
		transport.WriteError(w, http.StatusInternalServerError, "database error", nil)
		return
	}

	transport.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"success": true,
		"message": "Language preference updated",
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
