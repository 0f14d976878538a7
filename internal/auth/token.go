package auth

import (
	"errors"
	"net/http"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/ymatsuda/taskboard/internal/constants"
)

var (
	// ErrInvalidToken is returned when the token is missing, malformed, or
	// carries a bad signature.
	ErrInvalidToken = errors.New("invalid session token")
	// ErrExpiredToken is returned when the token has expired. There is no
	// refresh path; expiry requires re-authentication.
	ErrExpiredToken = errors.New("session token has expired")
)

// Claims binds a user id and email to a signed, time-bounded session token.
type Claims struct {
	UserID string `json:"user_id"`
	Email  string `json:"email"`
	jwt.RegisteredClaims
}

// TokenManager is the single stateless verifier shared by the HTTP
// middleware and the websocket handshake. Do not duplicate signature logic
// elsewhere.
type TokenManager struct {
	secret []byte
	ttl    time.Duration
}

// NewTokenManager creates a TokenManager signing with the given secret.
func NewTokenManager(secret string) *TokenManager {
	return &TokenManager{
		secret: []byte(secret),
		ttl:    constants.SessionTokenTTL,
	}
}

// Issue produces a signed HS256 token valid for the session TTL.
func (m *TokenManager) Issue(userID, email string) (string, error) {
	now := time.Now()
	claims := Claims{
		UserID: userID,
		Email:  email,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userID,
			ExpiresAt: jwt.NewNumericDate(now.Add(m.ttl)),
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(m.secret)
}

// Verify validates the token and returns its claims.
func (m *TokenManager) Verify(tokenString string) (*Claims, error) {
	if tokenString == "" {
		return nil, ErrInvalidToken
	}

	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (any, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, ErrInvalidToken
		}
		return m.secret, nil
	})
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrExpiredToken
		}
		return nil, ErrInvalidToken
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return nil, ErrInvalidToken
	}

	return claims, nil
}

// TokenFromRequest extracts the session token from the request cookie.
// Returns "" when no cookie is present.
func TokenFromRequest(r *http.Request) string {
	cookie, err := r.Cookie(constants.SessionCookieName)
	if err != nil {
		return ""
	}
	return cookie.Value
}

// TokenFromHandshake extracts the session token from a websocket handshake
// request: an explicit token query parameter is preferred, with the
// forwarded cookie header as fallback.
func TokenFromHandshake(r *http.Request) string {
	if token := r.URL.Query().Get("token"); token != "" {
		return token
	}
	return TokenFromRequest(r)
}
