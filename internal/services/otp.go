package services

import (
	"context"
	"crypto/rand"
	"fmt"
	"log/slog"
	"math/big"
)

// OTPSender delivers a one-time verification code to a user. Production
// would plug in a mail or SMS gateway; LogOTPSender is the default.
type OTPSender interface {
	SendOTP(ctx context.Context, email, code string) error
}

// LogOTPSender writes the code to the log instead of delivering it.
// Useful for development and as the fallback when no gateway is configured.
type LogOTPSender struct{}

func (LogOTPSender) SendOTP(ctx context.Context, email, code string) error {
	slog.InfoContext(ctx, "OTP issued", "email", email, "code", code)
	return nil
}

// generateOTP returns a 6-digit numeric code, zero-padded.
func generateOTP() (string, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(1_000_000))
	if err != nil {
		return "", fmt.Errorf("generate otp: %w", err)
	}
	return fmt.Sprintf("%06d", n.Int64()), nil
}
