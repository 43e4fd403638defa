package db

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type Collections struct {
	Users                   *mongo.Collection
	Doctors                 *mongo.Collection
	Appointments            *mongo.Collection
	SlotCounters            *mongo.Collection
	Departments             *mongo.Collection
	Chats                   *mongo.Collection
	LabReports              *mongo.Collection
	Medicines               *mongo.Collection
	Vaccinations            *mongo.Collection
	VaccinationAppointments *mongo.Collection
	BloodInventory          *mongo.Collection
	BloodRequests           *mongo.Collection
	Feedback                *mongo.Collection
	NavigationNodes         *mongo.Collection
	BillEstimates           *mongo.Collection
	VideoConsultations      *mongo.Collection
	Ambulances              *mongo.Collection
	AmbulanceRequests       *mongo.Collection
	Insurance               *mongo.Collection
	HealthPackages          *mongo.Collection
}

func Connect(ctx context.Context, uri, dbName string) (*mongo.Client, *Collections, error) {
	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, nil, err
	}

	if err := client.Ping(ctx, nil); err != nil {
		return nil, nil, err
	}

	db := client.Database(dbName)

	cols := &Collections{
		Users:                   db.Collection("users"),
		Doctors:                 db.Collection("doctors"),
		Appointments:            db.Collection("appointments"),
		SlotCounters:            db.Collection("slot_counters"),
		Departments:             db.Collection("departments"),
		Chats:                   db.Collection("chats"),
		LabReports:              db.Collection("lab_reports"),
		Medicines:               db.Collection("medicines"),
		Vaccinations:            db.Collection("vaccinations"),
		VaccinationAppointments: db.Collection("vaccination_appointments"),
		BloodInventory:          db.Collection("blood_inventory"),
		BloodRequests:           db.Collection("blood_requests"),
		Feedback:                db.Collection("feedback"),
		NavigationNodes:         db.Collection("navigation_nodes"),
		BillEstimates:           db.Collection("bill_estimates"),
		VideoConsultations:      db.Collection("video_consultations"),
		Ambulances:              db.Collection("ambulances"),
		AmbulanceRequests:       db.Collection("ambulance_requests"),
		Insurance:               db.Collection("insurance"),
		HealthPackages:          db.Collection("health_packages"),
	}

	return client, cols, nil
}

func EnsureIndexes(ctx context.Context, cols *Collections) error {
	indexTimeout, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	_, err := cols.Users.Indexes().CreateMany(indexTimeout, []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "email", Value: 1}},
			Options: options.Index().SetUnique(true),
		},
	})
	if err != nil {
		return err
	}

	_, err = cols.Appointments.Indexes().CreateMany(indexTimeout, []mongo.IndexModel{
		{
			Keys: bson.D{{Key: "doctorId", Value: 1}, {Key: "date", Value: 1}, {Key: "slot", Value: 1}, {Key: "status", Value: 1}},
		},
		{
			Keys: bson.D{{Key: "userId", Value: 1}, {Key: "date", Value: 1}},
		},
	})
	if err != nil {
		return err
	}

	_, err = cols.Chats.Indexes().CreateMany(indexTimeout, []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "userId", Value: 1}},
			Options: options.Index().SetUnique(true),
		},
	})
	if err != nil {
		return err
	}

	_, err = cols.LabReports.Indexes().CreateMany(indexTimeout, []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "reportId", Value: 1}},
			Options: options.Index().SetUnique(true),
		},
	})
	if err != nil {
		return err
	}

	_, err = cols.Doctors.Indexes().CreateMany(indexTimeout, []mongo.IndexModel{
		{
			Keys: bson.D{{Key: "name", Value: 1}},
		},
		{
			Keys: bson.D{{Key: "department", Value: 1}},
		},
	})
	if err != nil {
		return err
	}

	return nil
}
