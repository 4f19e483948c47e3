package auth

import (
	"time"

	"task-hub/domain"
	"task-hub/errors"

	"github.com/golang-jwt/jwt/v5"
)

// CustomClaims defines the structure of the data stored inside the JWT.
type CustomClaims struct {
	UserID   string `json:"user_id"`
	Username string `json:"username"`
	Role     string `json:"role"`
	jwt.RegisteredClaims
}

func (c *CustomClaims) Identity() domain.Identity {
	return domain.Identity{UserID: c.UserID, Username: c.Username, Role: c.Role}
}

// Gate verifies a caller's identity once, before a live connection is
// accepted. Token issuance belongs to the external auth service; the
// generator here exists for that service and for tests.
type Gate struct {
	secret []byte
}

func NewGate(secret string) *Gate {
	return &Gate{secret: []byte(secret)}
}

// GenerateToken creates a signed JWT for a specific user.
func (g *Gate) GenerateToken(identity domain.Identity, ttl time.Duration) (string, error) {
	expirationTime := time.Now().Add(ttl)

	claims := &CustomClaims{
		UserID:   identity.UserID,
		Username: identity.Username,
		Role:     identity.Role,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(expirationTime),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
			Issuer:    "task-hub",
		},
	}

	// Create the token using the HS256 algorithm (HMAC with SHA256).
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)

	// Sign the token with the server's secret key.
	return token.SignedString(g.secret)
}

// ValidateToken parses and validates the signature and expiration of a JWT string.
func (g *Gate) ValidateToken(tokenString string) (*CustomClaims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &CustomClaims{}, func(token *jwt.Token) (interface{}, error) {
		return g.secret, nil
	})

	if err != nil {
		return nil, errors.ErrInvalidToken
	}

	if claims, ok := token.Claims.(*CustomClaims); ok && token.Valid {
		return claims, nil
	}

	return nil, errors.ErrInvalidToken
}
