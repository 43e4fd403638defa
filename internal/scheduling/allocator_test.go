package scheduling

import (
	"context"
	"errors"
	"testing"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// scriptedCounterCol replays a fixed sequence of findOneAndUpdate outcomes
// and records whether each call asked for an upsert.
type scriptedCounterCol struct {
	results []*mongo.SingleResult
	calls   int
	upserts []bool
}

func (s *scriptedCounterCol) FindOneAndUpdate(ctx context.Context, filter, update interface{}, opts ...*options.FindOneAndUpdateOptions) *mongo.SingleResult {
	upsert := false
	for _, opt := range opts {
		if opt != nil && opt.Upsert != nil && *opt.Upsert {
			upsert = true
		}
	}
	s.upserts = append(s.upserts, upsert)

	if s.calls >= len(s.results) {
		panic("scriptedCounterCol: no result scripted for call")
	}
	res := s.results[s.calls]
	s.calls++
	return res
}

func (s *scriptedCounterCol) UpdateOne(ctx context.Context, filter, update interface{}, opts ...*options.UpdateOptions) (*mongo.UpdateResult, error) {
	return &mongo.UpdateResult{}, nil
}

func counterResult(booked, nextToken int) *mongo.SingleResult {
	doc := bson.D{
		{Key: "_id", Value: "doc1|2026-03-02|morning"},
		{Key: "booked", Value: booked},
		{Key: "nextToken", Value: nextToken},
	}
	return mongo.NewSingleResultFromDocument(doc, nil, nil)
}

func errorResult(err error) *mongo.SingleResult {
	return mongo.NewSingleResultFromDocument(bson.D{}, err, nil)
}

func duplicateKeyErr() error {
	return mongo.CommandError{Code: 11000, Message: "E11000 duplicate key error"}
}

func TestReserveAssignsToken(t *testing.T) {
	col := &scriptedCounterCol{results: []*mongo.SingleResult{counterResult(1, 1)}}
	a := &Allocator{col: col}

	token, err := a.Reserve(context.Background(), "doc1", reserveDate(t), "morning", 5)
	if err != nil {
		t.Fatalf("Reserve failed: %v", err)
	}
	if token != 1 {
		t.Errorf("token = %d, want 1", token)
	}
	if col.calls != 1 {
		t.Errorf("calls = %d, want 1", col.calls)
	}
}

// Two concurrent first bookings both miss the filter while the counter
// document does not exist yet; the loser's upsert hits the _id index. The
// retry must grant the seat instead of reporting a full slot.
func TestReserveRetriesUpsertRaceOnEmptySlot(t *testing.T) {
	col := &scriptedCounterCol{results: []*mongo.SingleResult{
		errorResult(duplicateKeyErr()),
		counterResult(2, 2),
	}}
	a := &Allocator{col: col}

	token, err := a.Reserve(context.Background(), "doc1", reserveDate(t), "morning", 5)
	if err != nil {
		t.Fatalf("Reserve after upsert race failed: %v", err)
	}
	if token != 2 {
		t.Errorf("token = %d, want 2", token)
	}
	if col.calls != 2 {
		t.Fatalf("calls = %d, want 2", col.calls)
	}
	if !col.upserts[0] || col.upserts[1] {
		t.Errorf("upsert flags = %v, want [true false]", col.upserts)
	}
}

// A genuinely full slot also surfaces as an _id conflict; the retry then
// finds no document passing the capacity filter.
func TestReserveFullSlotAfterRetry(t *testing.T) {
	col := &scriptedCounterCol{results: []*mongo.SingleResult{
		errorResult(duplicateKeyErr()),
		errorResult(mongo.ErrNoDocuments),
	}}
	a := &Allocator{col: col}

	_, err := a.Reserve(context.Background(), "doc1", reserveDate(t), "morning", 5)
	if !errors.Is(err, ErrSlotFull) {
		t.Fatalf("expected ErrSlotFull, got %v", err)
	}
	if col.calls != 2 {
		t.Fatalf("calls = %d, want 2", col.calls)
	}
}

func TestReserveZeroCapacity(t *testing.T) {
	col := &scriptedCounterCol{}
	a := &Allocator{col: col}

	_, err := a.Reserve(context.Background(), "doc1", reserveDate(t), "morning", 0)
	if !errors.Is(err, ErrSlotFull) {
		t.Fatalf("expected ErrSlotFull, got %v", err)
	}
	if col.calls != 0 {
		t.Errorf("zero capacity should not reach the collection, calls = %d", col.calls)
	}
}

func TestReservePropagatesOtherErrors(t *testing.T) {
	boom := errors.New("network down")
	col := &scriptedCounterCol{results: []*mongo.SingleResult{errorResult(boom)}}
	a := &Allocator{col: col}

	_, err := a.Reserve(context.Background(), "doc1", reserveDate(t), "morning", 5)
	if !errors.Is(err, boom) {
		t.Fatalf("expected wrapped network error, got %v", err)
	}
}

func reserveDate(t *testing.T) time.Time {
	t.Helper()
	return time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC)
}
