package usecase

import (
	"context"
	"fmt"

	"catalogadmin/utils"
)

// allowSave spends one token of the save bucket for key. A zero capacity
// turns the check off.
func (s *AuthService) allowSave(ctx context.Context, key string) error {
	capacity, rate := s.Security.SaveBucketCapacity, s.Security.SaveBucketRefillPerSec
	if s.Limiter == nil || capacity <= 0 {
		return nil
	}
	allowed, err := s.Limiter.AllowBucket(ctx, key, capacity, rate)
	if err != nil {
		return fmt.Errorf("check save rate: %w", err)
	}
	utils.TrackRateLimit("save_bucket", allowed)
	if allowed {
		return nil
	}
	wait, _ := s.Limiter.NextTokenIn(ctx, key, capacity, rate)
	s.logger().Warn("save rate limited", "key", key, "wait", wait)
	return &RateLimitError{Wait: wait}
}

// allowTwoFactorAttempt counts one code check for userID against a fixed
// window, so a pending secret cannot be brute forced.
func (s *AuthService) allowTwoFactorAttempt(ctx context.Context, userID string) error {
	max, window := s.Security.TwoFactorMaxAttempts, s.Security.TwoFactorWindow
	if s.Limiter == nil || max <= 0 || window <= 0 {
		return nil
	}
	key := "2fa:" + userID
	allowed, err := s.Limiter.Allow(ctx, key, max, window)
	if err != nil {
		return fmt.Errorf("check 2fa rate: %w", err)
	}
	utils.TrackRateLimit("2fa_window", allowed)
	if allowed {
		return nil
	}
	wait, _ := s.Limiter.ResetIn(ctx, key)
	return &RateLimitError{Wait: wait}
}
