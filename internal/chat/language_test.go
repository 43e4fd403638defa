package chat

import "testing"

func TestDetect(t *testing.T) {
	tests := []struct {
		text string
		want string
	}{
		{"where is the pharmacy", "en"},
		{"", "en"},
		{"मुझे डॉक्टर से मिलना है", "hi"},
		{"আমি ডাক্তার দেখাতে চাই", "bn"},
		{"நான் மருத்துவரை பார்க்க வேண்டும்", "ta"},
		{"నాకు డాక్టర్ కావాలి", "te"},
		{"ನನಗೆ ವೈದ್ಯರು ಬೇಕು", "kn"},
		// Mixed text resolves to the first non-Latin script seen.
		{"appointment कल सुबह", "hi"},
	}
	for _, tt := range tests {
		if got := Detect(tt.text); got != tt.want {
			t.Errorf("Detect(%q) = %s, want %s", tt.text, got, tt.want)
		}
	}
}

func TestPersonaFallsBackToEnglish(t *testing.T) {
	if Persona("fr") != Persona("en") {
		t.Error("unknown language should fall back to the English persona")
	}
	if Persona("hi") == Persona("en") {
		t.Error("hindi persona should differ from english")
	}
}
