package sandbox

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"tellme/internal/core"
	"tellme/internal/idgen"
)

const (
	TokenTypeAccess  = "access"
	TokenTypeRefresh = "refresh"

	DefaultAccessTTL  = 5 * time.Minute
	DefaultRefreshTTL = 24 * time.Hour
)

var (
	ErrInvalidToken   = errors.New("token is invalid or expired")
	ErrWrongTokenType = errors.New("token has wrong type")
)

// IssuerConfig configures token issuing
type IssuerConfig struct {
	Secret     string
	AccessTTL  time.Duration
	RefreshTTL time.Duration
	// Now overrides the clock, for expiry in tests
	Now func() time.Time
}

// Issuer signs and verifies HS256 access/refresh tokens shaped like
// djangorestframework-simplejwt's (token_type, user_id, jti, iat, exp)
type Issuer struct {
	secret     []byte
	accessTTL  time.Duration
	refreshTTL time.Duration
	now        func() time.Time
}

func NewIssuer(cfg IssuerConfig) *Issuer {
	if cfg.AccessTTL <= 0 {
		cfg.AccessTTL = DefaultAccessTTL
	}
	if cfg.RefreshTTL <= 0 {
		cfg.RefreshTTL = DefaultRefreshTTL
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	return &Issuer{
		secret:     []byte(cfg.Secret),
		accessTTL:  cfg.AccessTTL,
		refreshTTL: cfg.RefreshTTL,
		now:        cfg.Now,
	}
}

// Issue returns a fresh access/refresh pair for the user
func (i *Issuer) Issue(userID int64) (core.Credentials, error) {
	access, err := i.sign(userID, TokenTypeAccess, i.accessTTL)
	if err != nil {
		return core.Credentials{}, err
	}
	refresh, err := i.sign(userID, TokenTypeRefresh, i.refreshTTL)
	if err != nil {
		return core.Credentials{}, err
	}
	return core.Credentials{AccessToken: access, RefreshToken: refresh}, nil
}

// Refresh exchanges a valid refresh token for a new access token
func (i *Issuer) Refresh(refresh string) (string, error) {
	userID, err := i.Verify(refresh, TokenTypeRefresh)
	if err != nil {
		return "", err
	}
	return i.sign(userID, TokenTypeAccess, i.accessTTL)
}

// Verify checks signature, expiry and type, returning the user id
func (i *Issuer) Verify(token, tokenType string) (int64, error) {
	claims := jwt.MapClaims{}
	_, err := jwt.ParseWithClaims(token, claims, func(t *jwt.Token) (interface{}, error) {
		return i.secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithTimeFunc(i.now), jwt.WithExpirationRequired())
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}

	if typ, _ := claims["token_type"].(string); typ != tokenType {
		return 0, ErrWrongTokenType
	}
	userID, ok := claims["user_id"].(float64)
	if !ok || userID <= 0 {
		return 0, fmt.Errorf("%w: missing user_id", ErrInvalidToken)
	}
	return int64(userID), nil
}

func (i *Issuer) sign(userID int64, tokenType string, ttl time.Duration) (string, error) {
	now := i.now()
	claims := jwt.MapClaims{
		"token_type": tokenType,
		"user_id":    userID,
		"jti":        idgen.New(),
		"iat":        now.Unix(),
		"exp":        now.Add(ttl).Unix(),
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(i.secret)
	if err != nil {
		return "", fmt.Errorf("failed to sign %s token: %w", tokenType, err)
	}
	return signed, nil
}

// VerifyAccess verifies an access token
func (i *Issuer) VerifyAccess(token string) (int64, error) {
	return i.Verify(token, TokenTypeAccess)
}
