package auth

import (
	"errors"
	"fmt"
	"relay-story-server/internal/domain"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

const RoleAdmin = "ADMIN"

var ErrInvalidClaims = errors.New("token claims invalid")

// Verifier checks access tokens issued by the member service.
type Verifier struct {
	secret []byte
}

func NewVerifier(secret string) *Verifier {
	return &Verifier{secret: []byte(secret)}
}

func (v *Verifier) VerifyJWT(tokenString string) (*jwt.Token, error) {
	token, err := jwt.Parse(tokenString, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return v.secret, nil
	})
	if err != nil {
		return nil, err
	}

	if !token.Valid {
		return nil, errors.New("token invalid")
	}

	return token, nil
}

// IdentityFromToken reads the caller id and role claims.
func IdentityFromToken(token *jwt.Token) (domain.Identity, error) {
	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return domain.Identity{}, ErrInvalidClaims
	}

	// numeric claims decode as float64
	rawID, ok := claims["user_id"].(float64)
	if !ok || rawID <= 0 {
		return domain.Identity{}, ErrInvalidClaims
	}
	role, _ := claims["role"].(string)

	return domain.Identity{
		UserID:  uint64(rawID),
		IsAdmin: role == RoleAdmin,
	}, nil
}

// GenerateAccessToken signs a token for userID. Tokens are normally minted by
// the member service; this exists for local development and tests.
func (v *Verifier) GenerateAccessToken(userID uint64, role string, ttl time.Duration) (string, error) {
	claims := jwt.MapClaims{
		"user_id": userID,
		"role":    role,
		"exp":     time.Now().Add(ttl).Unix(),
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(v.secret)
}
