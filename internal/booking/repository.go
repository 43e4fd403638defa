package booking

import (
	"context"
	"errors"
	"regexp"
	"time"

	"medibot-backend/internal/models"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type MongoDoctorStore struct {
	col *mongo.Collection
}

func NewDoctorStore(col *mongo.Collection) *MongoDoctorStore {
	return &MongoDoctorStore{col: col}
}

func (r *MongoDoctorStore) GetByID(ctx context.Context, id string) (models.Doctor, error) {
	var doctor models.Doctor
	if err := r.col.FindOne(ctx, bson.M{"_id": id}).Decode(&doctor); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return models.Doctor{}, ErrDoctorNotFound
		}
		return models.Doctor{}, err
	}
	return doctor, nil
}

func (r *MongoDoctorStore) FindByName(ctx context.Context, name string) (models.Doctor, error) {
	return r.findByField(ctx, "name", name)
}

func (r *MongoDoctorStore) FindByDepartment(ctx context.Context, department string) (models.Doctor, error) {
	return r.findByField(ctx, "department", department)
}

func (r *MongoDoctorStore) findByField(ctx context.Context, field, value string) (models.Doctor, error) {
	pattern := primitiveRegex(value)
	var doctor models.Doctor
	if err := r.col.FindOne(ctx, bson.M{field: pattern}).Decode(&doctor); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return models.Doctor{}, ErrDoctorNotFound
		}
		return models.Doctor{}, err
	}
	return doctor, nil
}

// primitiveRegex builds a case-insensitive substring matcher with the input
// escaped, so a patient typing "Dr. O'Brien (cardio)" cannot inject pattern
// syntax.
func primitiveRegex(value string) bson.M {
	return bson.M{"$regex": regexp.QuoteMeta(value), "$options": "i"}
}

type MongoAppointmentStore struct {
	col *mongo.Collection
}

func NewAppointmentStore(col *mongo.Collection) *MongoAppointmentStore {
	return &MongoAppointmentStore{col: col}
}

func (r *MongoAppointmentStore) Insert(ctx context.Context, appt models.Appointment) error {
	_, err := r.col.InsertOne(ctx, appt)
	return err
}

func (r *MongoAppointmentStore) GetForUser(ctx context.Context, id, userID string) (models.Appointment, error) {
	var appt models.Appointment
	if err := r.col.FindOne(ctx, bson.M{"_id": id, "userId": userID}).Decode(&appt); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return models.Appointment{}, ErrNotFound
		}
		return models.Appointment{}, err
	}
	return appt, nil
}

func (r *MongoAppointmentStore) ListForUser(ctx context.Context, userID string) ([]models.Appointment, error) {
	opts := options.Find().SetSort(bson.D{{Key: "date", Value: 1}})
	cursor, err := r.col.Find(ctx, bson.M{"userId": userID}, opts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	items := make([]models.Appointment, 0)
	for cursor.Next(ctx) {
		var appt models.Appointment
		if err := cursor.Decode(&appt); err != nil {
			return nil, err
		}
		items = append(items, appt)
	}
	return items, cursor.Err()
}

func (r *MongoAppointmentStore) Update(ctx context.Context, appt models.Appointment) error {
	res, err := r.col.ReplaceOne(ctx, bson.M{"_id": appt.ID}, appt)
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}

// activeStatuses are the statuses that hold an allocator seat, so counts
// built on them stay consistent with what Reserve will grant.
var activeStatuses = bson.M{"$in": bson.A{
	models.AppointmentStatusScheduled,
	models.AppointmentStatusRescheduled,
}}

// CountActive counts seat-holding occupancy for a (doctor, date, slot) group
// by exact date equality; dates are normalized to midnight UTC at every
// boundary.
func (r *MongoAppointmentStore) CountActive(ctx context.Context, doctorID string, date time.Time, slot string) (int64, error) {
	return r.col.CountDocuments(ctx, bson.M{
		"doctorId": doctorID,
		"date":     date,
		"slot":     slot,
		"status":   activeStatuses,
	})
}

func (r *MongoAppointmentStore) CountAhead(ctx context.Context, doctorID string, date time.Time, slot string, token int) (int64, error) {
	return r.col.CountDocuments(ctx, bson.M{
		"doctorId":    doctorID,
		"date":        date,
		"slot":        slot,
		"status":      activeStatuses,
		"tokenNumber": bson.M{"$lt": token},
	})
}

type AdminFilter struct {
	DoctorID string
	Status   string
	Date     *time.Time
}

func (r *MongoAppointmentStore) ListAdmin(ctx context.Context, filter AdminFilter, limit, offset int64) ([]models.Appointment, int64, error) {
	query := bson.M{}
	if filter.DoctorID != "" {
		query["doctorId"] = filter.DoctorID
	}
	if filter.Status != "" {
		query["status"] = filter.Status
	}
	if filter.Date != nil {
		query["date"] = *filter.Date
	}

	total, err := r.col.CountDocuments(ctx, query)
	if err != nil {
		return nil, 0, err
	}

	opts := options.Find().
		SetSort(bson.D{{Key: "date", Value: -1}, {Key: "tokenNumber", Value: 1}}).
		SetLimit(limit).
		SetSkip(offset)

	cursor, err := r.col.Find(ctx, query, opts)
	if err != nil {
		return nil, 0, err
	}
	defer cursor.Close(ctx)

	items := make([]models.Appointment, 0)
	for cursor.Next(ctx) {
		var appt models.Appointment
		if err := cursor.Decode(&appt); err != nil {
			return nil, 0, err
		}
		items = append(items, appt)
	}
	return items, total, cursor.Err()
}

func (r *MongoAppointmentStore) SetStatus(ctx context.Context, id, status string) (models.Appointment, error) {
	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)
	var updated models.Appointment
	err := r.col.FindOneAndUpdate(ctx, bson.M{"_id": id}, bson.M{"$set": bson.M{"status": status}}, opts).Decode(&updated)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return models.Appointment{}, ErrNotFound
		}
		return models.Appointment{}, err
	}
	return updated, nil
}
