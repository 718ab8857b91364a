package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// OTPRepository stores hashed one-time codes in Redis under otp:{email} with
// a hard expiry. Only the bcrypt hash ever reaches Redis.
type OTPRepository struct {
	client *redis.Client
}

// NewOTPRepository constructs the repository.
func NewOTPRepository(client *redis.Client) *OTPRepository {
	return &OTPRepository{client: client}
}

func otpKey(email string) string {
	return "otp:" + email
}

// Store writes the hashed code with the given TTL, replacing any previous
// code for the email.
func (r *OTPRepository) Store(ctx context.Context, email, hash string, ttl time.Duration) error {
	if err := r.client.SetEx(ctx, otpKey(email), hash, ttl).Err(); err != nil {
		return fmt.Errorf("store otp: %w", err)
	}
	return nil
}

// Hash returns the stored hash and whether a live code exists for the email.
func (r *OTPRepository) Hash(ctx context.Context, email string) (string, bool, error) {
	hash, err := r.client.Get(ctx, otpKey(email)).Result()
	if err == redis.Nil {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("load otp: %w", err)
	}
	return hash, true, nil
}

// Invalidate removes the stored code after a successful verification.
func (r *OTPRepository) Invalidate(ctx context.Context, email string) error {
	if err := r.client.Del(ctx, otpKey(email)).Err(); err != nil {
		return fmt.Errorf("invalidate otp: %w", err)
	}
	return nil
}
