package utils

import (
	"errors"
	"fmt"
	"time"

	"portfolio/api/models"

	"github.com/golang-jwt/jwt/v5"
)

const (
	jwtIssuer = "portfolio-api"
	jwtTTL    = 24 * time.Hour
)

// Claims embeds jwt.RegisteredClaims and adds the caller's identity and role.
type Claims struct {
	UserID  int    `json:"user_id"`
	Email   string `json:"email"`
	IsAdmin bool   `json:"is_admin"`
	jwt.RegisteredClaims
}

// JWTManager signs and validates HS256 tokens with a shared secret.
type JWTManager struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

func NewJWTManager(secret string) (*JWTManager, error) {
	if secret == "" {
		return nil, errors.New("JWT secret must not be empty")
	}
	return &JWTManager{secret: []byte(secret), ttl: jwtTTL, now: time.Now}, nil
}

// TTL is how long issued tokens stay valid.
func (m *JWTManager) TTL() time.Duration {
	return m.ttl
}

// GenerateJWT generates a new JWT token for a given user.
func (m *JWTManager) GenerateJWT(user *models.User) (string, error) {
	now := m.now()

	claims := &Claims{
		UserID:  user.ID,
		Email:   user.Email,
		IsAdmin: user.IsAdmin,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(now.Add(m.ttl)),
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			Issuer:    jwtIssuer,
			Subject:   fmt.Sprintf("%d", user.ID),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	tokenString, err := token.SignedString(m.secret)
	if err != nil {
		return "", fmt.Errorf("failed to sign token: %w", err)
	}

	return tokenString, nil
}

// ValidateJWT parses and validates a JWT token string.
func (m *JWTManager) ValidateJWT(tokenString string) (*Claims, error) {
	claims := &Claims{}

	token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return m.secret, nil
	}, jwt.WithIssuer(jwtIssuer))

	if err != nil {
		return nil, fmt.Errorf("invalid token: %w", err)
	}

	if !token.Valid {
		return nil, fmt.Errorf("token is not valid")
	}

	return claims, nil
}
