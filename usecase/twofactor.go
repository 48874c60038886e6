package usecase

import (
	"context"
	"errors"
	"fmt"
	"time"

	"catalogadmin/model"
	"catalogadmin/services"
	"catalogadmin/utils"

	"github.com/pquerna/otp"
	"github.com/pquerna/otp/totp"
)

const TOTPIssuer = "Catalog Admin"

var ErrTwoFactorNotPending = errors.New("two-factor setup was not started")

type TwoFactorSetup struct {
	Secret string `json:"secret"`
	URL    string `json:"url"`
}

func (s *AuthService) validateTOTP(code, secret string) bool {
	ok, err := totp.ValidateCustom(code, secret, s.now(), totp.ValidateOpts{
		Period:    30,
		Skew:      1,
		Digits:    otp.DigitsSix,
		Algorithm: otp.AlgorithmSHA1,
	})
	return err == nil && ok
}

// checkSecondFactor accepts a TOTP code or consumes a recovery code.
func (s *AuthService) checkSecondFactor(ctx context.Context, user *model.User, code, recovery string) error {
	if code != "" {
		if s.validateTOTP(code, user.TwoFactorSecret) {
			utils.TrackAuthAttempt("success", "2fa")
			return nil
		}
		utils.TrackAuthAttempt("failure", "2fa")
		return ErrInvalidTwoFactor
	}

	idx := utils.MatchRecoveryCode(recovery, user.RecoveryCodes)
	if idx < 0 {
		utils.TrackAuthAttempt("failure", "2fa")
		return ErrInvalidTwoFactor
	}
	remaining := append(append([]string{}, user.RecoveryCodes[:idx]...), user.RecoveryCodes[idx+1:]...)
	if err := s.Users.UpdateRecoveryCodes(ctx, user.UserID, remaining); err != nil {
		return fmt.Errorf("consume recovery code: %w", err)
	}
	utils.TrackAuthAttempt("success", "2fa_recovery")
	return nil
}

// SetupTwoFactor generates a new secret and stores it as pending.
func (s *AuthService) SetupTwoFactor(ctx context.Context, userID string) (*TwoFactorSetup, error) {
	user, err := s.Users.FindUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("find user: %w", err)
	}
	if user == nil {
		return nil, ErrInvalidSession
	}

	key, err := totp.Generate(totp.GenerateOpts{
		Issuer:      TOTPIssuer,
		AccountName: user.Email,
	})
	if err != nil {
		return nil, fmt.Errorf("generate totp key: %w", err)
	}
	if err := s.Users.SetPendingTwoFactor(ctx, userID, key.Secret()); err != nil {
		return nil, err
	}
	return &TwoFactorSetup{Secret: key.Secret(), URL: key.URL()}, nil
}

// EnableTwoFactor confirms the pending secret with a code and returns fresh
// recovery codes. Only their hashes are stored.
func (s *AuthService) EnableTwoFactor(ctx context.Context, userID, code string, info RequestInfo) ([]string, error) {
	if err := s.allowTwoFactorAttempt(ctx, userID); err != nil {
		return nil, err
	}
	user, err := s.Users.FindUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("find user: %w", err)
	}
	if user == nil || user.TwoFactorSecret == "" {
		return nil, ErrTwoFactorNotPending
	}
	if !s.validateTOTP(code, user.TwoFactorSecret) {
		return nil, ErrInvalidTwoFactor
	}

	codes, err := utils.GenerateRecoveryCodes()
	if err != nil {
		return nil, fmt.Errorf("generate recovery codes: %w", err)
	}
	if err := s.Users.Enable2FAWithRecoveryCodes(ctx, userID, utils.HashRecoveryCodes(codes)); err != nil {
		return nil, err
	}
	s.audit(model.AuditEvent{
		Action: "2fa_enable", Entity: "user", EntityID: userID, UserID: userID,
		IP: info.IP, UserAgent: info.UserAgent,
	})
	return codes, nil
}

// DisableTwoFactor requires the account password.
func (s *AuthService) DisableTwoFactor(ctx context.Context, userID, password string, info RequestInfo) error {
	if err := s.allowTwoFactorAttempt(ctx, userID); err != nil {
		return err
	}
	user, err := s.Users.FindUser(ctx, userID)
	if err != nil {
		return fmt.Errorf("find user: %w", err)
	}
	if user == nil || !services.ComparePasswords(user.Password, password) {
		return ErrInvalidCredentials
	}
	if err := s.Users.Disable2FA(ctx, userID); err != nil {
		return err
	}
	s.audit(model.AuditEvent{
		Action: "2fa_disable", Entity: "user", EntityID: userID, UserID: userID,
		IP: info.IP, UserAgent: info.UserAgent,
		Meta: map[string]any{"at": s.now().Format(time.RFC3339)},
	})
	return nil
}
