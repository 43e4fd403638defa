package lab

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

var (
	ErrNoOTP       = errors.New("no otp requested")
	ErrOTPExpired  = errors.New("otp expired")
	ErrOTPMismatch = errors.New("otp does not match")
)

// Report is one lab result. The OTP fields never leave the server.
type Report struct {
	ID            string    `bson:"_id,omitempty" json:"id"`
	ReportID      string    `bson:"reportId" json:"reportId"`
	UserID        string    `bson:"userId" json:"userId"`
	PatientName   string    `bson:"patientName" json:"patientName"`
	TestName      string    `bson:"testName" json:"testName"`
	Date          time.Time `bson:"date" json:"date"`
	Status        string    `bson:"status" json:"status"`
	FileURL       string    `bson:"fileUrl" json:"-"`
	OTP           string    `bson:"otp,omitempty" json:"-"`
	OTPExpiry     time.Time `bson:"otpExpiry,omitempty" json:"-"`
	Downloaded    bool      `bson:"downloaded" json:"downloaded"`
	DownloadCount int       `bson:"downloadCount" json:"downloadCount"`
	CreatedAt     time.Time `bson:"createdAt" json:"createdAt"`
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

	opts := options.Find().SetSort(bson.D{{Key: "date", Value: -1}})
	cursor, err := h.col.Find(ctx, bson.M{"userId": middleware.UserIDFromContext(r.Context())}, opts)
	if err != nil {
		log.Error("lab list: database error", slog.String("error", err.Error()))
		transport.WriteError(w, http.StatusInternalServerError, "database error", nil)
		return
	}
	defer cursor.Close(ctx)

	items := make([]Report, 0)
	for cursor.Next(ctx) {
		var report Report
		if err := cursor.Decode(&report); err != nil {
			log.Error("lab list: decode error", slog.String("error", err.Error()))
			transport.WriteError(w, http.StatusInternalServerError, "database error", nil)
			return
		}
		items = append(items, report)
	}

	transport.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"success": true,
		"reports": items,
	})
}

// RequestOTP issues a fresh download code for one report. Re-requesting
// replaces the previous code.
func (h *Handler) RequestOTP(w http.ResponseWriter, r *http.Request) {
	log := h.logWithRequest(r)
	reportID := strings.TrimSpace(chi.URLParam(r, "reportId"))
	if reportID == "" {
		transport.WriteError(w, http.StatusBadRequest, "missing report id", nil)
		return
	}

	otp, err := GenerateOTP()
	if err != nil {
		log.Error("lab otp: generate error", slog.String("error", err.Error()))
		transport.WriteError(w, http.StatusInternalServerError, "Something went wrong", nil)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	expiry := time.Now().Add(OTPValidity)
	res, err := h.col.UpdateOne(ctx,
		bson.M{"reportId": reportID, "userId": middleware.UserIDFromContext(r.Context())},
		bson.M{"$set": bson.M{"otp": otp, "otpExpiry": expiry}},
	)
	if err != nil {
		log.Error("lab otp: database error", slog.String("error", err.Error()))
		transport.WriteError(w, http.StatusInternalServerError, "database error", nil)
		return
	}
	if res.MatchedCount == 0 {
		transport.WriteError(w, http.StatusNotFound, "Report not found", nil)
		return
	}

	// Delivery would go through the SMS gateway; until then the code lands
	// in the server log only.
	log.Info("lab otp: issued",
		slog.String("report_id", reportID),
		slog.String("otp", otp),
		slog.Time("expires", expiry),
	)
	transport.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"success":   true,
		"message":   "An OTP has been sent to your registered mobile number. It is valid for 10 minutes.",
		"expiresAt": expiry,
	})
}

type DownloadRequest struct {
	OTP string `json:"otp" validate:"required,len=6,numeric"`
}

// Download verifies the OTP, clears it, and hands out the file link.
func (h *Handler) Download(w http.ResponseWriter, r *http.Request) {
	log := h.logWithRequest(r)
	reportID := strings.TrimSpace(chi.URLParam(r, "reportId"))
	if reportID == "" {
		transport.WriteError(w, http.StatusBadRequest, "missing report id", nil)
		return
	}

	var req DownloadRequest
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

	var report Report
	err := h.col.FindOne(ctx, bson.M{
		"reportId": reportID,
		"userId":   middleware.UserIDFromContext(r.Context()),
	}).Decode(&report)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			transport.WriteError(w, http.StatusNotFound, "Report not found", nil)
			return
		}
		log.Error("lab download: database error", slog.String("error", err.Error()))
		transport.WriteError(w, http.StatusInternalServerError, "database error", nil)
		return
	}

	if err := ValidateOTP(report.OTP, req.OTP, report.OTPExpiry, time.Now()); err != nil {
		var message string
		switch {
		case errors.Is(err, ErrNoOTP):
			message = "Please request an OTP before downloading"
		case errors.Is(err, ErrOTPExpired):
			message = "The OTP has expired. Please request a new one"
		default:
			message = "The OTP is incorrect"
		}
		log.Warn("lab download: otp rejected", slog.String("report_id", reportID), slog.String("reason", err.Error()))
		transport.WriteError(w, http.StatusBadRequest, message, nil)
		return
	}

	_, err = h.col.UpdateOne(ctx, bson.M{"_id": report.ID}, bson.M{
		"$set":   bson.M{"downloaded": true},
		"$unset": bson.M{"otp": "", "otpExpiry": ""},
		"$inc":   bson.M{"downloadCount": 1},
	})
	if err != nil {
		log.Error("lab download: database error", slog.String("error", err.Error()))
		transport.WriteError(w, http.StatusInternalServerError, "database error", nil)
		return
	}

	log.Info("lab download: ok", slog.String("report_id", reportID))
	transport.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"success": true,
		"message": "Report ready for download",
		"fileUrl": report.FileURL,
	})
}

type CreateReportRequest struct {
	UserID      string `json:"userId" validate:"required"`
	PatientName string `json:"patientName" validate:"required"`
	TestName    string `json:"testName" validate:"required"`
	Date        string `json:"date" validate:"required,date"`
	FileURL     string `json:"fileUrl" validate:"required,url"`
}

// AdminCreate registers a finished report against a patient.
func (h *Handler) AdminCreate(w http.ResponseWriter, r *http.Request) {
	log := h.logWithRequest(r)

	var req CreateReportRequest
	if err := httpx.DecodeJSON(r.Body, &req); err != nil {
		transport.WriteError(w, http.StatusBadRequest, "invalid json", nil)
		return
	}
	if err := h.val.Struct(req); err != nil {
		transport.WriteError(w, http.StatusBadRequest, "validation error", httpx.ValidationDetails(h.val.ValidationErrors(err)))
		return
	}

	date, _ := time.Parse("2006-01-02", req.Date)
	report := Report{
		ID:          primitive.NewObjectID().Hex(),
		ReportID:    "LAB-" + primitive.NewObjectID().Hex()[:10],
		UserID:      req.UserID,
		PatientName: strings.TrimSpace(req.PatientName),
		TestName:    strings.TrimSpace(req.TestName),
		Date:        date.UTC(),
		Status:      "ready",
		FileURL:     req.FileURL,
		CreatedAt:   time.Now(),
	}

	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	if _, err := h.col.InsertOne(ctx, report); err != nil {
		log.Error("lab create: database error", slog.String("error", err.Error()))
		transport.WriteError(w, http.StatusInternalServerError, "database error", nil)
		return
	}

	log.Info("lab create: ok", slog.String("report_id", report.ReportID))
	transport.WriteJSON(w, http.StatusCreated, map[string]interface{}{
		"success": true,
		"message": "Report added successfully",
		"report":  report,
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
