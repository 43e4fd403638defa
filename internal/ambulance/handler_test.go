package ambulance

import "testing"

func TestETAMinutes(t *testing.T) {
	tests := []struct {
		urgency string
		want    int
	}{
		{"critical", 8},
		{"high", 12},
		{"normal", 15},
		{"", 15},
		{"unknown", 15},
	}
	for _, tt := range tests {
		if got := ETAMinutes(tt.urgency); got != tt.want {
			t.Errorf("ETAMinutes(%q) = %d, want %d", tt.urgency, got, tt.want)
		}
	}
}
