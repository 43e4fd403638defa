package scheduling

import (
	"context"
	"errors"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// ErrSlotFull rejects a reservation against a slot at capacity.
var ErrSlotFull = errors.New("slot is fully booked")

// Allocator hands out token numbers for (doctor, date, slot) groups through a
// counter document per group. The reservation is a single conditional
// findOneAndUpdate, so two concurrent bookings against the last free seat
// resolve to exactly one success.
//
// booked tracks seats currently held and is decremented when a seat is
// released; nextToken only ever grows, so a cancelled token leaves a gap
// rather than being handed to a later patient.
type Allocator struct {
	col counterCollection
}

// counterCollection is the slice of *mongo.Collection the allocator touches.
type counterCollection interface {
	FindOneAndUpdate(ctx context.Context, filter, update interface{}, opts ...*options.FindOneAndUpdateOptions) *mongo.SingleResult
	UpdateOne(ctx context.Context, filter, update interface{}, opts ...*options.UpdateOptions) (*mongo.UpdateResult, error)
}

func NewAllocator(col *mongo.Collection) *Allocator {
	return &Allocator{col: col}
}

type counterDoc struct {
	ID        string `bson:"_id"`
	Booked    int    `bson:"booked"`
	NextToken int    `bson:"nextToken"`
}

func slotKey(doctorID string, date time.Time, slot string) string {
	return doctorID + "|" + date.Format("2006-01-02") + "|" + slot
}

// Reserve takes one seat in the slot and returns the assigned token number.
// Returns ErrSlotFull when the slot already holds capacity seats.
func (a *Allocator) Reserve(ctx context.Context, doctorID string, date time.Time, slot string, capacity int) (int, error) {
	if capacity <= 0 {
		return 0, ErrSlotFull
	}

	filter := bson.M{
		"_id":    slotKey(doctorID, date, slot),
		"booked": bson.M{"$lt": capacity},
	}
	update := bson.M{"$inc": bson.M{"booked": 1, "nextToken": 1}}
	opts := options.FindOneAndUpdate().SetUpsert(true).SetReturnDocument(options.After)

	var doc counterDoc
	err := a.col.FindOneAndUpdate(ctx, filter, update, opts).Decode(&doc)
	if mongo.IsDuplicateKeyError(err) {
		// The _id conflict covers two cases: a full slot fails the filter and
		// the upsert collides with the existing counter, or two first
		// bookings race to insert the counter and one loses. The document
		// exists either way now, so a retry without the upsert lets the
		// capacity filter decide.
		retry := options.FindOneAndUpdate().SetReturnDocument(options.After)
		err = a.col.FindOneAndUpdate(ctx, filter, update, retry).Decode(&doc)
		if errors.Is(err, mongo.ErrNoDocuments) {
			return 0, ErrSlotFull
		}
	}
	if err != nil {
		return 0, err
	}

	return doc.NextToken, nil
}

// Release frees one seat after a cancellation or a reschedule away from the
// slot. The guard keeps booked from going negative if a release is replayed.
func (a *Allocator) Release(ctx context.Context, doctorID string, date time.Time, slot string) error {
	filter := bson.M{
		"_id":    slotKey(doctorID, date, slot),
		"booked": bson.M{"$gt": 0},
	}
	_, err := a.col.UpdateOne(ctx, filter, bson.M{"$inc": bson.M{"booked": -1}})
	return err
}
