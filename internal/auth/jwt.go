package auth

import (
	"errors"
	"strconv"
	"strings"
	"time"

	jwt "github.com/golang-jwt/jwt/v5"

	"civicReporting/models"
)

// Principal represents the authenticated caller from a bearer token.
type Principal struct {
	UserID int64
	Role   models.Role
}

type tokenClaims struct {
	Role string `json:"role"`
	jwt.RegisteredClaims
}

// IssueToken signs an HS256 token for u that expires after ttl.
func IssueToken(secret string, u *models.User, ttl time.Duration, now time.Time) (string, time.Time, error) {
	if secret == "" {
		return "", time.Time{}, errors.New("jwt secret is empty")
	}
	if u == nil || u.ID == 0 {
		return "", time.Time{}, errors.New("user is required")
	}
	exp := now.Add(ttl)
	claims := tokenClaims{
		Role: string(u.Role),
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   strconv.FormatInt(u.ID, 10),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(exp),
		},
	}
	s, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
	if err != nil {
		return "", time.Time{}, err
	}
	return s, exp, nil
}

// ParseBearer extracts and validates a token from an Authorization header value.
func ParseBearer(header, secret string) (*Principal, error) {
	if header == "" {
		return nil, errors.New("missing authorization")
	}
	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return nil, errors.New("invalid authorization header")
	}
	return parseJWT(strings.TrimSpace(parts[1]), secret)
}

// parseJWT validates and extracts claims from a JWT token.
func parseJWT(tokenStr string, secret string) (*Principal, error) {
	if secret == "" {
		return nil, errors.New("jwt secret is empty")
	}
	tok, err := jwt.ParseWithClaims(tokenStr, &tokenClaims{}, func(t *jwt.Token) (interface{}, error) {
		if t.Method.Alg() != jwt.SigningMethodHS256.Alg() {
			return nil, errors.New("unexpected signing method")
		}
		return []byte(secret), nil
	}, jwt.WithExpirationRequired())
	if err != nil || !tok.Valid {
		if err == nil {
			err = errors.New("invalid token")
		}
		return nil, err
	}
	c, _ := tok.Claims.(*tokenClaims)
	if c == nil {
		return nil, errors.New("invalid claims")
	}
	id, err := strconv.ParseInt(c.Subject, 10, 64)
	if err != nil || id <= 0 {
		return nil, errors.New("invalid subject")
	}
	role := models.Role(strings.ToLower(c.Role))
	if !role.Valid() {
		return nil, errors.New("invalid role claim")
	}
	return &Principal{UserID: id, Role: role}, nil
}
