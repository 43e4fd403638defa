package lab

import (
	"crypto/rand"
	"fmt"
	"math/big"
	"time"
)

// OTPValidity is how long a generated code stays usable.
const OTPValidity = 10 * time.Minute

// GenerateOTP returns a 6-digit code from crypto/rand. Leading zeros are
// preserved.
func GenerateOTP() (string, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(1000000))
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%06d", n.Int64()), nil
}

// ValidateOTP checks a submitted code against the stored one and its expiry.
func ValidateOTP(stored, submitted string, expiry, now time.Time) error {
	if stored == "" {
		return ErrNoOTP
	}
	if now.After(expiry) {
		return ErrOTPExpired
	}
	if stored != submitted {
		return ErrOTPMismatch
	}
	return nil
}
