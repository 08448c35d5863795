package middleware

import (
	"fmt"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"

	"budgetapp/internal/config"
	apperrors "budgetapp/internal/errors"
	"budgetapp/internal/models"
)

const tokenIssuer = "budgetapp-api"

// getJWTKey returns the JWT key from configuration
func getJWTKey() []byte {
	return []byte(config.Get().JWTSecret)
}

func tokenExpiry() time.Duration {
	if d := config.Get().JWTExpirationDur; d > 0 {
		return d
	}
	return 24 * time.Hour
}

// JWTClaims represents the claims in the JWT
type JWTClaims struct {
	UserID string `json:"user_id"`
	Email  string `json:"email"`
	jwt.RegisteredClaims
}

// GenerateAccessToken signs a bearer token for user and reports when it expires.
func GenerateAccessToken(user *models.User) (string, time.Time, error) {
	now := time.Now()
	expiresAt := now.Add(tokenExpiry())
	claims := &JWTClaims{
		UserID: user.ID,
		Email:  user.Email,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(expiresAt),
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			Issuer:    tokenIssuer,
			Subject:   user.ID,
		},
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(getJWTKey())
	if err != nil {
		return "", time.Time{}, err
	}
	return signed, expiresAt, nil
}

func unauthorized(c *gin.Context, message string) {
	abortWithAppError(c, apperrors.WithMessage(apperrors.ErrUnauthorized, message))
}

// AuthMiddleware verifies the JWT token and sets the user in the context
func AuthMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			unauthorized(c, "Authorization header is required")
			return
		}

		parts := strings.Split(authHeader, " ")
		if len(parts) != 2 || parts[0] != "Bearer" {
			unauthorized(c, "Invalid authorization header format")
			return
		}

		claims := &JWTClaims{}
		token, err := jwt.ParseWithClaims(parts[1], claims, func(token *jwt.Token) (interface{}, error) {
			if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
			}
			return getJWTKey(), nil
		}, jwt.WithIssuer(tokenIssuer))

		if err != nil || !token.Valid || claims.UserID == "" {
			unauthorized(c, "Invalid or expired token")
			return
		}

		c.Set("userID", claims.UserID)
		c.Set("email", claims.Email)
		c.Next()
	}
}
