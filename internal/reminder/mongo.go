package reminder

import (
	"context"
	"time"

	"medibot-backend/internal/models"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// MongoSource adapts any collection that carries the shared reminder shape
// (userId, date, time, status, reminderSent24h, reminderSent2h) into a sweep
// source. Appointments, vaccination appointments and video consultations all
// store these fields under the same names.
type MongoSource struct {
	col   *mongo.Collection
	users *mongo.Collection
	label string
	tz    *time.Location
}

func NewMongoSource(col, users *mongo.Collection, label string, tz *time.Location) *MongoSource {
	if tz == nil {
		tz = time.UTC
	}
	return &MongoSource{col: col, users: users, label: label, tz: tz}
}

type reminderDoc struct {
	ID     string    `bson:"_id"`
	UserID string    `bson:"userId"`
	Date   time.Time `bson:"date"`
	Time   string    `bson:"time"`
}

func flagField(window Window) string {
	if window == Window2h {
		return "reminderSent2h"
	}
	return "reminderSent24h"
}

func (s *MongoSource) Due(ctx context.Context, now time.Time, window Window) ([]Due, error) {
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)

	// Dates are day-granular; fetch a two-day span and filter by the
	// combined date+time below.
	filter := bson.M{
		"status":          bson.M{"$in": []string{models.AppointmentStatusScheduled, models.AppointmentStatusRescheduled}},
		flagField(window): false,
		"date": bson.M{
			"$gte": today,
			"$lte": today.AddDate(0, 0, 2),
		},
	}

	cursor, err := s.col.Find(ctx, filter)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	until := now.Add(window.Duration())
	due := make([]Due, 0)
	for cursor.Next(ctx) {
		var doc reminderDoc
		if err := cursor.Decode(&doc); err != nil {
			return nil, err
		}
		when := s.combine(doc.Date, doc.Time)
		if when.After(now) && !when.After(until) {
			due = append(due, Due{
				ID:     doc.ID,
				UserID: doc.UserID,
				Phone:  s.phone(ctx, doc.UserID),
				Label:  s.label,
				When:   when,
			})
		}
	}
	return due, cursor.Err()
}

func (s *MongoSource) MarkSent(ctx context.Context, id string, window Window) (bool, error) {
	field := flagField(window)
	res, err := s.col.UpdateOne(ctx,
		bson.M{"_id": id, field: false},
		bson.M{"$set": bson.M{field: true}},
	)
	if err != nil {
		return false, err
	}
	return res.ModifiedCount == 1, nil
}

func (s *MongoSource) combine(date time.Time, clock string) time.Time {
	parsed, err := time.Parse("15:04", clock)
	if err != nil {
		parsed = time.Date(0, 1, 1, 9, 0, 0, 0, time.UTC)
	}
	return time.Date(date.Year(), date.Month(), date.Day(), parsed.Hour(), parsed.Minute(), 0, 0, s.tz)
}

func (s *MongoSource) phone(ctx context.Context, userID string) string {
	if s.users == nil {
		return ""
	}
	var user struct {
		Mobile string `bson:"mobile"`
	}
	opts := options.FindOne().SetProjection(bson.M{"mobile": 1})
	if err := s.users.FindOne(ctx, bson.M{"_id": userID}, opts).Decode(&user); err != nil {
		return ""
	}
	return user.Mobile
}
