package usecase

import (
	"errors"
	"fmt"
	"math"
	"time"
)

var (
	ErrAccountLocked      = errors.New("account temporarily locked")
	ErrRateLimited        = errors.New("too many attempts")
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrTwoFactorRequired  = errors.New("two-factor code required")
	ErrInvalidTwoFactor   = errors.New("invalid two-factor code")
	ErrUserDisabled       = errors.New("user disabled, contact the administrator")
	ErrInvalidSession     = errors.New("invalid or expired session")
	ErrSamePassword       = errors.New("new password must be different from the current one")
	ErrInvalidRole        = errors.New("invalid role")
)

// LockoutError is returned while an account is locked out.
type LockoutError struct {
	Remaining time.Duration
}

func (e *LockoutError) Error() string {
	return fmt.Sprintf("account temporarily locked, try again in %d minutes", Minutes(e.Remaining))
}

func (e *LockoutError) Is(target error) bool { return target == ErrAccountLocked }

// RateLimitError is returned when a rate limit denies the call.
type RateLimitError struct {
	Wait time.Duration
}

func (e *RateLimitError) Error() string {
	return fmt.Sprintf("too many attempts, wait %d minutes", Minutes(e.Wait))
}

func (e *RateLimitError) Is(target error) bool { return target == ErrRateLimited }

// Minutes rounds d up to whole minutes, with a floor of one.
func Minutes(d time.Duration) int {
	m := int(math.Ceil(d.Minutes()))
	if m < 1 {
		return 1
	}
	return m
}
