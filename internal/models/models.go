package models

import "time"

const (
	SlotMorning   = "morning"
	SlotAfternoon = "afternoon"
	SlotEvening   = "evening"

	AppointmentStatusScheduled   = "scheduled"
	AppointmentStatusCompleted   = "completed"
	AppointmentStatusCancelled   = "cancelled"
	AppointmentStatusRescheduled = "rescheduled"
)

type EmergencyContact struct {
	Name     string `bson:"name,omitempty" json:"name,omitempty"`
	Relation string `bson:"relation,omitempty" json:"relation,omitempty"`
	Phone    string `bson:"phone,omitempty" json:"phone,omitempty"`
}

type MedicalHistory struct {
	Allergies          []string `bson:"allergies,omitempty" json:"allergies,omitempty"`
	ChronicConditions  []string `bson:"chronicConditions,omitempty" json:"chronicConditions,omitempty"`
	CurrentMedications []string `bson:"currentMedications,omitempty" json:"currentMedications,omitempty"`
	BloodGroup         string   `bson:"bloodGroup,omitempty" json:"bloodGroup,omitempty"`
}

type ReminderPreferences struct {
	SMS      bool `bson:"sms" json:"sms"`
	WhatsApp bool `bson:"whatsapp" json:"whatsapp"`
	Email    bool `bson:"email" json:"email"`
}

type User struct {
	ID               string              `bson:"_id,omitempty" json:"id"`
	Name             string              `bson:"name" json:"name"`
	Email            string              `bson:"email" json:"email"`
	Mobile           string              `bson:"mobile,omitempty" json:"mobile,omitempty"`
	Age              int                 `bson:"age,omitempty" json:"age,omitempty"`
	Gender           string              `bson:"gender,omitempty" json:"gender,omitempty"`
	UHID             string              `bson:"uhid,omitempty" json:"uhid,omitempty"`
	Language         string              `bson:"language" json:"language"`
	WhatsAppNumber   string              `bson:"whatsappNumber,omitempty" json:"whatsappNumber,omitempty"`
	EmergencyContact EmergencyContact    `bson:"emergencyContact,omitempty" json:"emergencyContact,omitempty"`
	MedicalHistory   MedicalHistory      `bson:"medicalHistory,omitempty" json:"medicalHistory,omitempty"`
	Preferences      ReminderPreferences `bson:"preferences" json:"preferences"`
	PasswordHash     string              `bson:"passwordHash" json:"-"`
	IsAdmin          bool                `bson:"isAdmin" json:"isAdmin"`
	CreatedAt        time.Time           `bson:"createdAt" json:"createdAt"`
}

type SlotTiming struct {
	Start     string `bson:"start" json:"start"`
	End       string `bson:"end" json:"end"`
	Available bool   `bson:"available" json:"available"`
}

type Timings struct {
	Morning   SlotTiming `bson:"morning" json:"morning"`
	Afternoon SlotTiming `bson:"afternoon" json:"afternoon"`
	Evening   SlotTiming `bson:"evening" json:"evening"`
}

// Get returns the timing for a named slot; ok is false for anything outside
// the three enumerated slot names.
func (t Timings) Get(slot string) (SlotTiming, bool) {
	switch slot {
	case SlotMorning:
		return t.Morning, true
	case SlotAfternoon:
		return t.Afternoon, true
	case SlotEvening:
		return t.Evening, true
	}
	return SlotTiming{}, false
}

type Fees struct {
	Consultation int `bson:"consultation" json:"consultation"`
	FollowUp     int `bson:"followUp" json:"followUp"`
}

type Doctor struct {
	ID                 string    `bson:"_id,omitempty" json:"id"`
	Name               string    `bson:"name" json:"name"`
	Department         string    `bson:"department" json:"department"`
	Specialization     string    `bson:"specialization" json:"specialization"`
	Qualification      string    `bson:"qualification" json:"qualification"`
	Experience         int       `bson:"experience" json:"experience"`
	DaysAvailable      []string  `bson:"daysAvailable" json:"daysAvailable"`
	Timings            Timings   `bson:"timings" json:"timings"`
	Fees               Fees      `bson:"fees" json:"fees"`
	MaxPatientsPerSlot int       `bson:"maxPatientsPerSlot" json:"maxPatientsPerSlot"`
	CreatedAt          time.Time `bson:"createdAt" json:"createdAt"`
}

type Appointment struct {
	ID                string    `bson:"_id,omitempty" json:"id"`
	UserID            string    `bson:"userId" json:"userId"`
	DoctorID          string    `bson:"doctorId" json:"doctorId"`
	PatientName       string    `bson:"patientName" json:"patientName"`
	Date              time.Time `bson:"date" json:"date"`
	Slot              string    `bson:"slot" json:"slot"`
	Time              string    `bson:"time" json:"time"`
	Status            string    `bson:"status" json:"status"`
	TokenNumber       int       `bson:"tokenNumber" json:"tokenNumber"`
	QueuePosition     int       `bson:"queuePosition" json:"queuePosition"`
	EstimatedWaitTime int       `bson:"estimatedWaitTime" json:"estimatedWaitTime"`
	ReminderSent24h   bool      `bson:"reminderSent24h" json:"reminderSent24h"`
	ReminderSent2h    bool      `bson:"reminderSent2h" json:"reminderSent2h"`
	Notes             string    `bson:"notes,omitempty" json:"notes,omitempty"`
	CheckedIn         bool      `bson:"checkedIn" json:"checkedIn"`
	CheckedInAt       time.Time `bson:"checkedInAt,omitempty" json:"checkedInAt,omitempty"`
	CreatedAt         time.Time `bson:"createdAt" json:"createdAt"`
}
