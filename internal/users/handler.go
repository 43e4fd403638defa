package users

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"medibot-backend/internal/auth"
	"medibot-backend/internal/httpx"
	"medibot-backend/internal/middleware"
	"medibot-backend/internal/models"
	"medibot-backend/internal/transport"
	"medibot-backend/internal/validation"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type Handler struct {
	col    *mongo.Collection
	val    *validation.Validator
	log    *slog.Logger
	tokens *auth.Manager
}

func NewHandler(col *mongo.Collection, val *validation.Validator, log *slog.Logger, tokens *auth.Manager) *Handler {
	return &Handler{col: col, val: val, log: log, tokens: tokens}
}

type RegisterRequest struct {
	Name     string `json:"name" validate:"required,min=2,max=100"`
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=8,max=72"`
	Mobile   string `json:"mobile" validate:"omitempty,phone"`
	Age      int    `json:"age" validate:"omitempty,gte=0,lte=120"`
	Gender   string `json:"gender" validate:"omitempty,oneof=male female other"`
	Language string `json:"language"`
}

func (h *Handler) Register(w http.ResponseWriter, r *http.Request) {
	log := h.logWithRequest(r)

	var req RegisterRequest
	if err := httpx.DecodeJSON(r.Body, &req); err != nil {
		log.Warn("users register: invalid json")
		transport.WriteError(w, http.StatusBadRequest, "invalid json", nil)
		return
	}

	if err := h.val.Struct(req); err != nil {
		log.Warn("users register: validation error")
		transport.WriteError(w, http.StatusBadRequest, "validation error", httpx.ValidationDetails(h.val.ValidationErrors(err)))
		return
	}

	hash, err := auth.HashPassword(req.Password)
	if err != nil {
		log.Error("users register: hash error", slog.String("error", err.Error()))
		transport.WriteError(w, http.StatusInternalServerError, "Something went wrong", nil)
		return
	}

	language := strings.TrimSpace(req.Language)
	if language == "" {
		language = "en"
	}

	user := models.User{
		ID:           primitive.NewObjectID().Hex(),
		Name:         strings.TrimSpace(req.Name),
		Email:        strings.ToLower(strings.TrimSpace(req.Email)),
		Mobile:       strings.TrimSpace(req.Mobile),
		Age:          req.Age,
		Gender:       req.Gender,
		Language:     language,
		Preferences:  models.ReminderPreferences{SMS: true, WhatsApp: false, Email: true},
		PasswordHash: hash,
		CreatedAt:    time.Now(),
	}

	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	if _, err := h.col.InsertOne(ctx, user); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			log.Warn("users register: duplicate email", slog.String("email", user.Email))
			transport.WriteError(w, http.StatusConflict, "An account with this email already exists", nil)
			return
		}
		log.Error("users register: database error", slog.String("error", err.Error()))
		transport.WriteError(w, http.StatusInternalServerError, "database error", nil)
		return
	}

	token, err := h.tokens.NewToken(user.ID, user.IsAdmin)
	if err != nil {
		log.Error("users register: token error", slog.String("error", err.Error()))
		transport.WriteError(w, http.StatusInternalServerError, "Something went wrong", nil)
		return
	}

	log.Info("users register: created", slog.String("user_id", user.ID))
	transport.WriteJSON(w, http.StatusCreated, map[string]interface{}{
		"success": true,
		"message": "Registration successful",
		"token":   token,
		"user":    user,
	})
}

type LoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	log := h.logWithRequest(r)

	var req LoginRequest
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

	var user models.User
	err := h.col.FindOne(ctx, bson.M{"email": strings.ToLower(strings.TrimSpace(req.Email))}).Decode(&user)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			log.Warn("users login: unknown email")
			transport.WriteError(w, http.StatusUnauthorized, "Invalid email or password", nil)
			return
		}
		log.Error("users login: database error", slog.String("error", err.Error()))
		transport.WriteError(w, http.StatusInternalServerError, "database error", nil)
		return
	}

	if auth.ComparePassword(user.PasswordHash, req.Password) != nil {
		log.Warn("users login: bad password", slog.String("user_id", user.ID))
		transport.WriteError(w, http.StatusUnauthorized, "Invalid email or password", nil)
		return
	}

	token, err := h.tokens.NewToken(user.ID, user.IsAdmin)
	if err != nil {
		log.Error("users login: token error", slog.String("error", err.Error()))
		transport.WriteError(w, http.StatusInternalServerError, "Something went wrong", nil)
		return
	}

	log.Info("users login: ok", slog.String("user_id", user.ID))
	transport.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"success": true,
		"message": "Login successful",
		"token":   token,
		"user":    user,
	})
}

func (h *Handler) Profile(w http.ResponseWriter, r *http.Request) {
	log := h.logWithRequest(r)

	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	var user models.User
	err := h.col.FindOne(ctx, bson.M{"_id": middleware.UserIDFromContext(r.Context())}).Decode(&user)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			transport.WriteError(w, http.StatusNotFound, "User not found", nil)
			return
		}
		log.Error("users profile: database error", slog.String("error", err.Error()))
		transport.WriteError(w, http.StatusInternalServerError, "database error", nil)
		return
	}

	transport.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"success": true,
		"user":    user,
	})
}

type UpdateProfileRequest struct {
	Name             string                      `json:"name" validate:"omitempty,min=2,max=100"`
	Mobile           string                      `json:"mobile" validate:"omitempty,phone"`
	Age              int                         `json:"age" validate:"omitempty,gte=0,lte=120"`
	Gender           string                      `json:"gender" validate:"omitempty,oneof=male female other"`
	Language         string                      `json:"language"`
	WhatsAppNumber   string                      `json:"whatsappNumber" validate:"omitempty,phone"`
	EmergencyContact *models.EmergencyContact    `json:"emergencyContact"`
	MedicalHistory   *models.MedicalHistory      `json:"medicalHistory"`
	Preferences      *models.ReminderPreferences `json:"preferences"`
}

func (h *Handler) UpdateProfile(w http.ResponseWriter, r *http.Request) {
	log := h.logWithRequest(r)

	var req UpdateProfileRequest
	if err := httpx.DecodeJSON(r.Body, &req); err != nil {
		transport.WriteError(w, http.StatusBadRequest, "invalid json", nil)
		return
	}
	if err := h.val.Struct(req); err != nil {
		transport.WriteError(w, http.StatusBadRequest, "validation error", httpx.ValidationDetails(h.val.ValidationErrors(err)))
		return
	}
	if req.MedicalHistory != nil && req.MedicalHistory.BloodGroup != "" {
		if err := h.val.Var(req.MedicalHistory.BloodGroup, "bloodgroup"); err != nil {
			transport.WriteError(w, http.StatusBadRequest, "invalid blood group", nil)
			return
		}
	}

	set := bson.M{}
	if req.Name != "" {
		set["name"] = strings.TrimSpace(req.Name)
	}
	if req.Mobile != "" {
		set["mobile"] = strings.TrimSpace(req.Mobile)
	}
	if req.Age != 0 {
		set["age"] = req.Age
	}
	if req.Gender != "" {
		set["gender"] = req.Gender
	}
	if req.Language != "" {
		set["language"] = strings.TrimSpace(req.Language)
	}
	if req.WhatsAppNumber != "" {
		set["whatsappNumber"] = strings.TrimSpace(req.WhatsAppNumber)
	}
	if req.EmergencyContact != nil {
		set["emergencyContact"] = *req.EmergencyContact
	}
	if req.MedicalHistory != nil {
		set["medicalHistory"] = *req.MedicalHistory
	}
	if req.Preferences != nil {
		set["preferences"] = *req.Preferences
	}
	if len(set) == 0 {
		transport.WriteError(w, http.StatusBadRequest, "nothing to update", nil)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)
	var updated models.User
	err := h.col.FindOneAndUpdate(ctx,
		bson.M{"_id": middleware.UserIDFromContext(r.Context())},
		bson.M{"$set": set},
		opts,
	).Decode(&updated)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			transport.WriteError(w, http.StatusNotFound, "User not found", nil)
			return
		}
		log.Error("users update: database error", slog.String("error", err.Error()))
		transport.WriteError(w, http.StatusInternalServerError, "database error", nil)
		return
	}

	log.Info("users update: ok", slog.String("user_id", updated.ID))
	transport.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"success": true,
		"message": "Profile updated successfully",
		"user":    updated,
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
