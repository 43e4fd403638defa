// Command seed loads the catalog collections with demo data so the API is
// usable immediately after a fresh deployment. Every write is an upsert keyed
// on a natural identifier, so reruns are safe.
package main

import (
	"context"
	"log/slog"
	"os"
	"time"

	"medibot-backend/internal/auth"
	"medibot-backend/internal/config"
	"medibot-backend/internal/db"
	"medibot-backend/internal/models"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

func main() {
	log := slog.New(slog.NewJSONHandler(os.Stdout, nil))

	cfg, err := config.Load()
	if err != nil {
		log.Error("seed: config load failed", slog.String("error", err.Error()))
		os.Exit(1)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 60*time.Second)
	defer cancel()

	client, cols, err := db.Connect(ctx, cfg.MongoURI, cfg.MongoDB)
	if err != nil {
		log.Error("seed: mongo connect failed", slog.String("error", err.Error()))
		os.Exit(1)
	}
	defer func() { _ = client.Disconnect(context.Background()) }()

	if err := db.EnsureIndexes(ctx, cols); err != nil {
		log.Error("seed: index creation failed", slog.String("error", err.Error()))
		os.Exit(1)
	}

	steps := []struct {
		name string
		run  func(context.Context) error
	}{
		{"admin user", func(ctx context.Context) error { return seedAdmin(ctx, cols.Users) }},
		{"departments", func(ctx context.Context) error { return seedDepartments(ctx, cols.Departments) }},
		{"doctors", func(ctx context.Context) error { return seedDoctors(ctx, cols.Doctors) }},
		{"insurance providers", func(ctx context.Context) error { return seedInsurance(ctx, cols.Insurance) }},
		{"vaccines", func(ctx context.Context) error { return seedVaccines(ctx, cols.Vaccinations) }},
		{"blood inventory", func(ctx context.Context) error { return seedBloodInventory(ctx, cols.BloodInventory) }},
		{"ambulances", func(ctx context.Context) error { return seedAmbulances(ctx, cols.Ambulances) }},
		{"health packages", func(ctx context.Context) error { return seedHealthPackages(ctx, cols.HealthPackages) }},
		{"medicines", func(ctx context.Context) error { return seedMedicines(ctx, cols.Medicines) }},
		{"navigation nodes", func(ctx context.Context) error { return seedNavigation(ctx, cols.NavigationNodes) }},
	}

	for _, step := range steps {
		if err := step.run(ctx); err != nil {
			log.Error("seed: step failed", slog.String("step", step.name), slog.String("error", err.Error()))
			os.Exit(1)
		}
		log.Info("seed: step done", slog.String("step", step.name))
	}
	log.Info("seed: complete")
}

func upsert(ctx context.Context, col *mongo.Collection, filter bson.M, set bson.M) error {
	update := bson.M{
		"$set": set,
		"$setOnInsert": bson.M{
			"_id":       primitive.NewObjectID().Hex(),
			"createdAt": time.Now(),
		},
	}
	_, err := col.UpdateOne(ctx, filter, update, options.Update().SetUpsert(true))
	return err
}

func seedAdmin(ctx context.Context, col *mongo.Collection) error {
	password := os.Getenv("SEED_ADMIN_PASSWORD")
	if password == "" {
		password = "admin@medibot"
	}
	hash, err := auth.HashPassword(password)
	if err != nil {
		return err
	}
	return upsert(ctx, col, bson.M{"email": "admin@medibot.local"}, bson.M{
		"name":         "Administrator",
		"email":        "admin@medibot.local",
		"language":     "en",
		"passwordHash": hash,
		"isAdmin":      true,
		"preferences":  bson.M{"sms": true, "whatsapp": false, "email": true},
	})
}

func seedDepartments(ctx context.Context, col *mongo.Collection) error {
	departments := []bson.M{
		{"name": "Cardiology", "head": "Dr. Asha Menon", "floor": "2nd Floor, A Wing", "opdTimings": "9:00 AM - 5:00 PM", "phone": "+91-80-4000-1001"},
		{"name": "Orthopedics", "head": "Dr. Vikram Rao", "floor": "1st Floor, B Wing", "opdTimings": "9:00 AM - 5:00 PM", "phone": "+91-80-4000-1002"},
		{"name": "Pediatrics", "head": "Dr. Kavitha Nair", "floor": "3rd Floor, A Wing", "opdTimings": "8:00 AM - 8:00 PM", "phone": "+91-80-4000-1003"},
		{"name": "General Medicine", "head": "Dr. Suresh Iyer", "floor": "Ground Floor, A Wing", "opdTimings": "24 hours", "phone": "+91-80-4000-1004"},
		{"name": "Dermatology", "head": "Dr. Priya Sharma", "floor": "2nd Floor, B Wing", "opdTimings": "10:00 AM - 4:00 PM", "phone": "+91-80-4000-1005"},
		{"name": "ENT", "head": "Dr. Ramesh Gupta", "floor": "1st Floor, A Wing", "opdTimings": "9:00 AM - 5:00 PM", "phone": "+91-80-4000-1006"},
	}
	for _, dep := range departments {
		if err := upsert(ctx, col, bson.M{"name": dep["name"]}, dep); err != nil {
			return err
		}
	}
	return nil
}

func seedDoctors(ctx context.Context, col *mongo.Collection) error {
	weekdays := []string{"monday", "tuesday", "wednesday", "thursday", "friday"}
	allWeek := []string{"monday", "tuesday", "wednesday", "thursday", "friday", "saturday"}
	standard := models.Timings{
		Morning:   models.SlotTiming{Start: "09:00", End: "12:00", Available: true},
		Afternoon: models.SlotTiming{Start: "14:00", End: "17:00", Available: true},
		Evening:   models.SlotTiming{Start: "18:00", End: "21:00", Available: false},
	}
	withEvening := standard
	withEvening.Evening.Available = true

	doctors := []models.Doctor{
		{
			Name: "Asha Menon", Department: "Cardiology", Specialization: "Interventional Cardiology",
			Qualification: "MD, DM (Cardiology)", Experience: 18, DaysAvailable: weekdays,
			Timings: standard, Fees: models.Fees{Consultation: 800, FollowUp: 400}, MaxPatientsPerSlot: 10,
		},
		{
			Name: "Vikram Rao", Department: "Orthopedics", Specialization: "Joint Replacement",
			Qualification: "MS (Ortho)", Experience: 14, DaysAvailable: allWeek,
			Timings: withEvening, Fees: models.Fees{Consultation: 700, FollowUp: 350}, MaxPatientsPerSlot: 12,
		},
		{
			Name: "Kavitha Nair", Department: "Pediatrics", Specialization: "Neonatology",
			Qualification: "MD (Pediatrics)", Experience: 11, DaysAvailable: allWeek,
			Timings: withEvening, Fees: models.Fees{Consultation: 600, FollowUp: 300}, MaxPatientsPerSlot: 15,
		},
		{
			Name: "Suresh Iyer", Department: "General Medicine", Specialization: "Internal Medicine",
			Qualification: "MD (General Medicine)", Experience: 22, DaysAvailable: allWeek,
			Timings: withEvening, Fees: models.Fees{Consultation: 500, FollowUp: 250}, MaxPatientsPerSlot: 20,
		},
		{
			Name: "Priya Sharma", Department: "Dermatology", Specialization: "Cosmetic Dermatology",
			Qualification: "MD (Dermatology)", Experience: 9, DaysAvailable: weekdays,
			Timings: standard, Fees: models.Fees{Consultation: 650, FollowUp: 325}, MaxPatientsPerSlot: 8,
		},
		{
			Name: "Ramesh Gupta", Department: "ENT", Specialization: "Otology",
			Qualification: "MS (ENT)", Experience: 16, DaysAvailable: weekdays,
			Timings: standard, Fees: models.Fees{Consultation: 600, FollowUp: 300}, MaxPatientsPerSlot: 10,
		},
	}
	for _, doc := range doctors {
		set := bson.M{
			"name":               doc.Name,
			"department":         doc.Department,
			"specialization":     doc.Specialization,
			"qualification":      doc.Qualification,
			"experience":         doc.Experience,
			"daysAvailable":      doc.DaysAvailable,
			"timings":            doc.Timings,
			"fees":               doc.Fees,
			"maxPatientsPerSlot": doc.MaxPatientsPerSlot,
		}
		if err := upsert(ctx, col, bson.M{"name": doc.Name}, set); err != nil {
			return err
		}
	}
	return nil
}

func seedInsurance(ctx context.Context, col *mongo.Collection) error {
	providers := []bson.M{
		{"name": "Star Health", "type": "insurer", "cashless": true, "tpaDesk": "Ground Floor, near Billing", "active": true},
		{"name": "HDFC Ergo", "type": "insurer", "cashless": true, "tpaDesk": "Ground Floor, near Billing", "active": true},
		{"name": "ICICI Lombard", "type": "insurer", "cashless": true, "tpaDesk": "Ground Floor, near Billing", "active": true},
		{"name": "Medi Assist", "type": "tpa", "cashless": true, "tpaDesk": "1st Floor, Admin Block", "active": true},
		{"name": "National Insurance", "type": "insurer", "cashless": false, "tpaDesk": "", "active": true},
	}
	for _, p := range providers {
		if err := upsert(ctx, col, bson.M{"name": p["name"]}, p); err != nil {
			return err
		}
	}
	return nil
}

func seedVaccines(ctx context.Context, col *mongo.Collection) error {
	vaccines := []bson.M{
		{"name": "Influenza", "type": "seasonal", "ageGroup": "6 months and above", "doses": 1, "price": 1500, "description": "Annual flu shot", "available": true},
		{"name": "Hepatitis B", "type": "routine", "ageGroup": "all ages", "doses": 3, "price": 500, "description": "Three-dose schedule over six months", "available": true},
		{"name": "Typhoid", "type": "routine", "ageGroup": "2 years and above", "doses": 1, "price": 1200, "description": "Protection for about three years", "available": true},
		{"name": "Tetanus (TT)", "type": "routine", "ageGroup": "all ages", "doses": 1, "price": 300, "description": "Booster every ten years", "available": true},
		{"name": "HPV", "type": "routine", "ageGroup": "9 to 26 years", "doses": 2, "price": 3500, "description": "Two-dose schedule six months apart", "available": true},
	}
	for _, v := range vaccines {
		if err := upsert(ctx, col, bson.M{"name": v["name"]}, v); err != nil {
			return err
		}
	}
	return nil
}

func seedBloodInventory(ctx context.Context, col *mongo.Collection) error {
	units := map[string]int{
		"A+": 25, "A-": 8, "B+": 30, "B-": 6,
		"AB+": 12, "AB-": 4, "O+": 40, "O-": 10,
	}
	for group, count := range units {
		err := upsert(ctx, col, bson.M{"bloodGroup": group}, bson.M{
			"bloodGroup":     group,
			"unitsAvailable": count,
			"updatedAt":      time.Now(),
		})
		if err != nil {
			return err
		}
	}
	return nil
}

func seedAmbulances(ctx context.Context, col *mongo.Collection) error {
	fleet := []bson.M{
		{"vehicleNumber": "KA-01-AB-1234", "type": "basic", "driverName": "Manoj Kumar", "driverPhone": "+91-98450-10001", "status": "available"},
		{"vehicleNumber": "KA-01-AB-5678", "type": "advanced", "driverName": "Ravi Shankar", "driverPhone": "+91-98450-10002", "status": "available"},
		{"vehicleNumber": "KA-01-CD-9012", "type": "advanced", "driverName": "Syed Ali", "driverPhone": "+91-98450-10003", "status": "available"},
		{"vehicleNumber": "KA-01-EF-3456", "type": "basic", "driverName": "Joseph Thomas", "driverPhone": "+91-98450-10004", "status": "available"},
	}
	for _, a := range fleet {
		if err := upsert(ctx, col, bson.M{"vehicleNumber": a["vehicleNumber"]}, a); err != nil {
			return err
		}
	}
	return nil
}

func seedHealthPackages(ctx context.Context, col *mongo.Collection) error {
	packages := []bson.M{
		{
			"name":  "Basic Health Check", "price": 1999.0, "ageGroup": "18 to 40 years", "active": true,
			"description": "Annual screening for working adults",
			"tests":       []string{"CBC", "Fasting Blood Sugar", "Lipid Profile", "Urine Routine", "Chest X-Ray"},
		},
		{
			"name":  "Comprehensive Health Check", "price": 4999.0, "ageGroup": "40 years and above", "active": true,
			"description": "Full-body evaluation including cardiac screening",
			"tests":       []string{"CBC", "HbA1c", "Lipid Profile", "Liver Function", "Kidney Function", "TMT", "Echo", "Ultrasound Abdomen"},
		},
		{
			"name":  "Cardiac Screening", "price": 3499.0, "ageGroup": "30 years and above", "active": true,
			"description": "Focused heart health assessment",
			"tests":       []string{"ECG", "Echo", "TMT", "Lipid Profile", "Cardiology Consultation"},
		},
		{
			"name":  "Women's Wellness", "price": 3999.0, "ageGroup": "21 years and above", "active": true,
			"description": "Preventive screening for women",
			"tests":       []string{"CBC", "Thyroid Profile", "Pap Smear", "Mammogram", "Vitamin D", "Gynecology Consultation"},
		},
	}
	for _, p := range packages {
		if err := upsert(ctx, col, bson.M{"name": p["name"]}, p); err != nil {
			return err
		}
	}
	return nil
}

func seedMedicines(ctx context.Context, col *mongo.Collection) error {
	medicines := []bson.M{
		{"name": "Paracetamol 500mg", "genericName": "Acetaminophen", "category": "Analgesic", "price": 20.0, "stock": 500, "prescriptionRequired": false, "homeDelivery": true},
		{"name": "Amoxicillin 250mg", "genericName": "Amoxicillin", "category": "Antibiotic", "price": 85.0, "stock": 200, "prescriptionRequired": true, "homeDelivery": true},
		{"name": "Cetirizine 10mg", "genericName": "Cetirizine", "category": "Antihistamine", "price": 30.0, "stock": 350, "prescriptionRequired": false, "homeDelivery": true},
		{"name": "Metformin 500mg", "genericName": "Metformin", "category": "Antidiabetic", "price": 45.0, "stock": 400, "prescriptionRequired": true, "homeDelivery": true},
		{"name": "Amlodipine 5mg", "genericName": "Amlodipine", "category": "Antihypertensive", "price": 55.0, "stock": 300, "prescriptionRequired": true, "homeDelivery": true},
		{"name": "ORS Sachet", "genericName": "Oral Rehydration Salts", "category": "Electrolyte", "price": 22.0, "stock": 600, "prescriptionRequired": false, "homeDelivery": false},
	}
	for _, m := range medicines {
		if err := upsert(ctx, col, bson.M{"name": m["name"]}, m); err != nil {
			return err
		}
	}
	return nil
}

func seedNavigation(ctx context.Context, col *mongo.Collection) error {
	nodes := []bson.M{
		{
			"location": "Pharmacy", "floor": "Ground Floor",
			"landmarks":  []string{"Main Entrance", "Billing Counter"},
			"directions": "From the main entrance, walk straight past the reception. The pharmacy is on your right, next to the billing counter.",
		},
		{
			"location": "Laboratory", "floor": "1st Floor",
			"landmarks":  []string{"Lift Lobby A", "Sample Collection"},
			"directions": "Take Lift A to the 1st floor. The laboratory is directly opposite the lift lobby.",
		},
		{
			"location": "Cardiology OPD", "floor": "2nd Floor, A Wing",
			"landmarks":  []string{"Lift Lobby A", "Waiting Area 2"},
			"directions": "Take Lift A to the 2nd floor, turn left, and follow the signs to A Wing. Cardiology OPD is at the end of the corridor.",
		},
		{
			"location": "Emergency", "floor": "Ground Floor",
			"landmarks":  []string{"Ambulance Bay"},
			"directions": "The emergency entrance is on the east side of the building, next to the ambulance bay. Follow the red signs.",
		},
		{
			"location": "Radiology", "floor": "Basement 1",
			"landmarks":  []string{"Lift Lobby B"},
			"directions": "Take Lift B to Basement 1. Radiology reception is to your right as you exit the lift.",
		},
		{
			"location": "Cafeteria", "floor": "3rd Floor",
			"landmarks":  []string{"Lift Lobby B", "Terrace Garden"},
			"directions": "Take Lift B to the 3rd floor. The cafeteria is beside the terrace garden entrance.",
		},
		{
			"location": "Blood Bank", "floor": "Ground Floor",
			"landmarks":  []string{"Emergency", "Laboratory Sample Drop"},
			"directions": "From the main entrance, turn right before the emergency wing. The blood bank is the second door on the left.",
		},
	}
	for _, n := range nodes {
		if err := upsert(ctx, col, bson.M{"location": n["location"]}, n); err != nil {
			return err
		}
	}
	return nil
}
