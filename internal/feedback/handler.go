package feedback

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

	"github.com/go-chi/chi/v5"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type Feedback struct {
	ID             string    `bson:"_id,omitempty" json:"id"`
	UserID         string    `bson:"userId" json:"userId"`
	OverallRating  int       `bson:"overallRating" json:"overallRating"`
	DoctorRating   int       `bson:"doctorRating,omitempty" json:"doctorRating,omitempty"`
	FacilityRating int       `bson:"facilityRating,omitempty" json:"facilityRating,omitempty"`
	ServiceRating  int       `bson:"serviceRating,omitempty" json:"serviceRating,omitempty"`
	NPS            int       `bson:"nps" json:"nps"`
	WouldRecommend bool      `bson:"wouldRecommend" json:"wouldRecommend"`
	Comments       string    `bson:"comments,omitempty" json:"comments,omitempty"`
	AdminResponse  string    `bson:"adminResponse,omitempty" json:"adminResponse,omitempty"`
	Reviewed       bool      `bson:"reviewed" json:"reviewed"`
	CreatedAt      time.Time `bson:"createdAt" json:"createdAt"`
}

type Handler struct {
	col *mongo.Collection
	val *validation.Validator
	log *slog.Logger
}

func NewHandler(col *mongo.Collection, val *validation.Validator, log *slog.Logger) *Handler {
	return &Handler{col: col, val: val, log: log}
}

type CreateRequest struct {
	OverallRating  int    `json:"overallRating" validate:"required,gte=1,lte=5"`
	DoctorRating   int    `json:"doctorRating" validate:"omitempty,gte=1,lte=5"`
	FacilityRating int    `json:"facilityRating" validate:"omitempty,gte=1,lte=5"`
	ServiceRating  int    `json:"serviceRating" validate:"omitempty,gte=1,lte=5"`
	NPS            int    `json:"nps" validate:"gte=0,lte=10"`
	WouldRecommend bool   `json:"wouldRecommend"`
	Comments       string `json:"comments" validate:"max=2000"`
}

func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	log := h.logWithRequest(r)

	var req CreateRequest
	if err := httpx.DecodeJSON(r.Body, &req); err != nil {
		transport.WriteError(w, http.StatusBadRequest, "invalid json", nil)
		return
	}
	if err := h.val.Struct(req); err != nil {
		transport.WriteError(w, http.StatusBadRequest, "validation error", httpx.ValidationDetails(h.val.ValidationErrors(err)))
		return
	}

	feedback := Feedback{
		ID:             primitive.NewObjectID().Hex(),
		UserID:         middleware.UserIDFromContext(r.Context()),
		OverallRating:  req.OverallRating,
		DoctorRating:   req.DoctorRating,
		FacilityRating: req.FacilityRating,
		ServiceRating:  req.ServiceRating,
		NPS:            req.NPS,
		WouldRecommend: req.WouldRecommend,
		Comments:       strings.TrimSpace(req.Comments),
		CreatedAt:      time.Now(),
	}

	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	if _, err := h.col.InsertOne(ctx, feedback); err != nil {
		log.Error("feedback create: database error", slog.String("error", err.Error()))
		transport.WriteError(w, http.StatusInternalServerError, "database error", nil)
		return
	}

	log.Info("feedback create: ok",
		slog.String("feedback_id", feedback.ID),
		slog.Int("rating", feedback.OverallRating),
		slog.Int("nps", feedback.NPS),
	)
	transport.WriteJSON(w, http.StatusCreated, map[string]interface{}{
		"success":  true,
		"message":  "Thank you for your feedback",
		"feedback": feedback,
	})
}

func (h *Handler) AdminList(w http.ResponseWriter, r *http.Request) {
	log := h.logWithRequest(r)

	limit, offset, err := httpx.ParseLimitOffset(r.URL.Query(), 20, 100)
	if err != nil {
		transport.WriteError(w, http.StatusBadRequest, err.Error(), nil)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	opts := options.Find().
		SetSort(bson.D{{Key: "createdAt", Value: -1}}).
		SetLimit(limit).
		SetSkip(offset)
	cursor, err := h.col.Find(ctx, bson.M{}, opts)
	if err != nil {
		log.Error("feedback list: database error", slog.String("error", err.Error()))
		transport.WriteError(w, http.StatusInternalServerError, "database error", nil)
		return
	}
	defer cursor.Close(ctx)

	items := make([]Feedback, 0)
	for cursor.Next(ctx) {
		var feedback Feedback
		if err := cursor.Decode(&feedback); err != nil {
			log.Error("feedback list: decode error", slog.String("error", err.Error()))
			transport.WriteError(w, http.StatusInternalServerError, "database error", nil)
			return
		}
		items = append(items, feedback)
	}

	transport.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"success":  true,
		"feedback": items,
		"limit":    limit,
		"offset":   offset,
	})
}

type RespondRequest struct {
	Response string `json:"response" validate:"required,max=2000"`
}

func (h *Handler) AdminRespond(w http.ResponseWriter, r *http.Request) {
	log := h.logWithRequest(r)
	id := strings.TrimSpace(chi.URLParam(r, "id"))
	if id == "" {
		transport.WriteError(w, http.StatusBadRequest, "missing id", nil)
		return
	}

	var req RespondRequest
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

	res, err := h.col.UpdateOne(ctx, bson.M{"_id": id}, bson.M{
		"$set": bson.M{"adminResponse": strings.TrimSpace(req.Response), "reviewed": true},
	})
	if err != nil {
		log.Error("feedback respond: database error", slog.String("error", err.Error()))
		transport.WriteError(w, http.StatusInternalServerError, "database error", nil)
		return
	}
	if res.MatchedCount == 0 {
		transport.WriteError(w, http.StatusNotFound, "Feedback not found", nil)
		return
	}

	log.Info("feedback respond: ok", slog.String("feedback_id", id))
	transport.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"success": true,
		"message": "Response recorded",
	})
}

// AdminSummary aggregates average ratings and the NPS score (percent
// promoters minus percent detractors).
func (h *Handler) AdminSummary(w http.ResponseWriter, r *http.Request) {
	log := h.logWithRequest(r)

	ctx, cancel := context.WithTimeout(r.Context(), 8*time.Second)
	defer cancel()

	pipeline := mongo.Pipeline{
		bson.D{{Key: "$group", Value: bson.D{
			{Key: "_id", Value: nil},
			{Key: "count", Value: bson.D{{Key: "$sum", Value: 1}}},
			{Key: "avgOverall", Value: bson.D{{Key: "$avg", Value: "$overallRating"}}},
			{Key: "avgNPS", Value: bson.D{{Key: "$avg", Value: "$nps"}}},
			{Key: "promoters", Value: bson.D{{Key: "$sum", Value: bson.D{
				{Key: "$cond", Value: bson.A{bson.D{{Key: "$gte", Value: bson.A{"$nps", 9}}}, 1, 0}},
			}}}},
			{Key: "detractors", Value: bson.D{{Key: "$sum", Value: bson.D{
				{Key: "$cond", Value: bson.A{bson.D{{Key: "$lte", Value: bson.A{"$nps", 6}}}, 1, 0}},
			}}}},
			{Key: "recommend", Value: bson.D{{Key: "$sum", Value: bson.D{
				{Key: "$cond", Value: bson.A{"$wouldRecommend", 1, 0}},
			}}}},
		}}},
	}

	cursor, err := h.col.Aggregate(ctx, pipeline)
	if err != nil {
		log.Error("feedback summary: database error", slog.String("error", err.Error()))
		transport.WriteError(w, http.StatusInternalServerError, "database error", nil)
		return
	}
	defer cursor.Close(ctx)

	var agg struct {
		Count      int64   `bson:"count"`
		AvgOverall float64 `bson:"avgOverall"`
		AvgNPS     float64 `bson:"avgNPS"`
		Promoters  int64   `bson:"promoters"`
		Detractors int64   `bson:"detractors"`
		Recommend  int64   `bson:"recommend"`
	}
	if cursor.Next(ctx) {
		if err := cursor.Decode(&agg); err != nil {
			log.Error("feedback summary: decode error", slog.String("error", err.Error()))
			transport.WriteError(w, http.StatusInternalServerError, "database error", nil)
			return
		}
	}

	npsScore := 0.0
	if agg.Count > 0 {
		npsScore = float64(agg.Promoters-agg.Detractors) / float64(agg.Count) * 100
	}

	transport.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"success": true,
		"summary": map[string]interface{}{
			"count":          agg.Count,
			"averageRating":  agg.AvgOverall,
			"averageNps":     agg.AvgNPS,
			"npsScore":       npsScore,
			"wouldRecommend": agg.Recommend,
		},
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
