package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/mindwell/clinic-scheduling/internal/scheduling"
)

var ErrInvalidToken = errors.New("invalid or expired token")

// Claims are the bearer-token claims the scheduling API cares about. Token
// issuance belongs to the identity service; this package only needs to
// mint tokens for tooling and verify them at the edge.
type Claims struct {
	Role string `json:"role"`
	Name string `json:"name"`
	jwt.RegisteredClaims
}

// NewToken mints an HS256 token for an actor. Used by the seeder, the
// simulator and tests.
func NewToken(secret string, actorID uuid.UUID, role scheduling.Role, name string, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := Claims{
		Role: string(role),
		Name: name,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   actorID.String(),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte(secret))
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}
	return signed, nil
}

// ParseActor verifies a bearer token and extracts the acting user.
func ParseActor(secret, tokenString string) (scheduling.Actor, error) {
	var claims Claims
	token, err := jwt.ParseWithClaims(tokenString, &claims, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return []byte(secret), nil
	})
	if err != nil || !token.Valid {
		return scheduling.Actor{}, ErrInvalidToken
	}

	id, err := uuid.Parse(claims.Subject)
	if err != nil {
		return scheduling.Actor{}, ErrInvalidToken
	}

	role := scheduling.Role(claims.Role)
	switch role {
	case scheduling.RolePatient, scheduling.RoleProfessional, scheduling.RoleAdmin:
	default:
		return scheduling.Actor{}, ErrInvalidToken
	}

	return scheduling.Actor{ID: id, Role: role, Name: claims.Name}, nil
}
