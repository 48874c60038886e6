package services

import (
	"errors"
	"fmt"
	"time"

	"catalogadmin/clock"
	"catalogadmin/config"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

const (
	TokenTypeAccess  = "access"
	TokenTypeRefresh = "refresh"
)

var ErrInvalidToken = errors.New("invalid token")

// Claims carried by access and refresh tokens. Role is the signed role claim
// the permission resolver trusts first.
type Claims struct {
	UserID    string `json:"user_id"`
	Email     string `json:"email,omitempty"`
	Role      string `json:"role,omitempty"`
	SessionID string `json:"sid,omitempty"`
	Type      string `json:"typ"`
	jwt.RegisteredClaims
}

type TokenService struct {
	secret     []byte
	issuer     string
	accessTTL  time.Duration
	refreshTTL time.Duration
	clock      clock.Clock
}

func NewTokenService(cfg config.JWTConfig, clk clock.Clock) *TokenService {
	return &TokenService{
		secret:     []byte(cfg.SecretKey),
		issuer:     cfg.Issuer,
		accessTTL:  cfg.AccessTokenDuration,
		refreshTTL: cfg.RefreshTokenDuration,
		clock:      clock.OrReal(clk),
	}
}

// TokenSubject is what gets signed into a token.
type TokenSubject struct {
	UserID    string
	Email     string
	Role      string
	SessionID string
}

func (s *TokenService) GenerateAccessToken(sub TokenSubject) (string, time.Time, error) {
	return s.generate(sub, TokenTypeAccess, s.accessTTL)
}

// GenerateRefreshToken does not carry the role; a refresh re-reads it.
func (s *TokenService) GenerateRefreshToken(sub TokenSubject) (string, time.Time, error) {
	sub.Role = ""
	return s.generate(sub, TokenTypeRefresh, s.refreshTTL)
}

func (s *TokenService) generate(sub TokenSubject, typ string, ttl time.Duration) (string, time.Time, error) {
	now := s.clock.Now()
	exp := now.Add(ttl)
	claims := Claims{
		UserID:    sub.UserID,
		Email:     sub.Email,
		Role:      sub.Role,
		SessionID: sub.SessionID,
		Type:      typ,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			Subject:   sub.UserID,
			Issuer:    s.issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(exp),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(s.secret)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("sign %s token: %w", typ, err)
	}
	return signed, exp, nil
}

// Parse validates an access token.
func (s *TokenService) Parse(tokenString string) (*Claims, error) {
	return s.parse(tokenString, TokenTypeAccess, true)
}

func (s *TokenService) ParseRefresh(tokenString string) (*Claims, error) {
	return s.parse(tokenString, TokenTypeRefresh, true)
}

// ExpiryOf checks only the signature and returns the token's expiry, so
// already expired tokens can still be revoked until they would lapse.
func (s *TokenService) ExpiryOf(tokenString string) (time.Time, error) {
	claims, err := s.parse(tokenString, "", false)
	if err != nil {
		return time.Time{}, err
	}
	if claims.ExpiresAt == nil {
		return s.clock.Now().Add(s.refreshTTL), nil
	}
	return claims.ExpiresAt.Time, nil
}

func (s *TokenService) parse(tokenString, typ string, validate bool) (*Claims, error) {
	if tokenString == "" {
		return nil, ErrInvalidToken
	}

	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithTimeFunc(s.clock.Now),
	}
	if validate {
		opts = append(opts, jwt.WithIssuer(s.issuer), jwt.WithExpirationRequired())
	} else {
		opts = append(opts, jwt.WithoutClaimsValidation())
	}

	claims := &Claims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(*jwt.Token) (any, error) {
		return s.secret, nil
	}, opts...)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidToken, err)
	}
	if !token.Valid {
		return nil, ErrInvalidToken
	}
	if typ != "" && claims.Type != typ {
		return nil, fmt.Errorf("%w: expected %s token", ErrInvalidToken, typ)
	}
	return claims, nil
}
