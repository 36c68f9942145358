package tokens

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

var ErrMalformedToken = errors.New("access token is not a JWT")

// TokenInfo is what the client can read from an access token without the
// signing key. It is informational only: refresh is driven by 401 responses.
type TokenInfo struct {
	Subject   string
	UserID    string
	IssuedAt  *time.Time
	ExpiresAt *time.Time
}

// Expired reports whether the token's exp claim is in the past
func (i TokenInfo) Expired(now time.Time) bool {
	return i.ExpiresAt != nil && !now.Before(*i.ExpiresAt)
}

// Inspect decodes the claims of an access token without verifying it
func Inspect(access string) (TokenInfo, error) {
	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(access, claims); err != nil {
		return TokenInfo{}, fmt.Errorf("%w: %v", ErrMalformedToken, err)
	}

	var info TokenInfo
	info.Subject, _ = claims.GetSubject()
	if exp, err := claims.GetExpirationTime(); err == nil && exp != nil {
		t := exp.Time
		info.ExpiresAt = &t
	}
	if iat, err := claims.GetIssuedAt(); err == nil && iat != nil {
		t := iat.Time
		info.IssuedAt = &t
	}

	// simplejwt puts the user primary key in user_id, usually as a number
	switch v := claims["user_id"].(type) {
	case string:
		info.UserID = v
	case float64:
		info.UserID = fmt.Sprintf("%.0f", v)
	}
	if info.UserID == "" {
		info.UserID = info.Subject
	}

	return info, nil
}
