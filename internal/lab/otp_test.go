package lab

import (
	"errors"
	"testing"
	"time"
)

func TestGenerateOTPFormat(t *testing.T) {
	seen := make(map[string]bool)
	for i := 0; i < 50; i++ {
		otp, err := GenerateOTP()
		if err != nil {
			t.Fatalf("GenerateOTP error: %v", err)
		}
		if len(otp) != 6 {
			t.Fatalf("otp length = %d, want 6 (%q)", len(otp), otp)
		}
		for _, c := range otp {
			if c < '0' || c > '9' {
				t.Fatalf("otp contains non-digit: %q", otp)
			}
		}
		seen[otp] = true
	}
	if len(seen) < 2 {
		t.Fatal("50 generations produced a single value")
	}
}

func TestValidateOTP(t *testing.T) {
	now := time.Now()
	future := now.Add(5 * time.Minute)
	past := now.Add(-1 * time.Minute)

	tests := []struct {
		name      string
		stored    string
		submitted string
		expiry    time.Time
		want      error
	}{
		{"match", "123456", "123456", future, nil},
		{"mismatch", "123456", "654321", future, ErrOTPMismatch},
		{"expired", "123456", "123456", past, ErrOTPExpired},
		{"never requested", "", "123456", future, ErrNoOTP},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateOTP(tt.stored, tt.submitted, tt.expiry, now)
			if !errors.Is(err, tt.want) {
				t.Fatalf("ValidateOTP = %v, want %v", err, tt.want)
			}
		})
	}
}
