package middleware

import (
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"

	"sniksnak-service/internal/models"
)

const sessionTTL = 24 * time.Hour

// SessionClaims is the JWT payload of a session token.
type SessionClaims struct {
	Role models.Role `json:"role"`
	jwt.RegisteredClaims
}

// IssueSession signs a session token for the account.
func IssueSession(secret []byte, account models.Account) (string, error) {
	claims := SessionClaims{
		Role: account.Role,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   strconv.Itoa(account.ID),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(sessionTTL)),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(secret)
}

// ParseSession validates a session token and returns the account id and role.
func ParseSession(secret []byte, token string) (int, models.Role, error) {
	var claims SessionClaims
	parsed, err := jwt.ParseWithClaims(token, &claims, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("unexpected signing method")
		}
		return secret, nil
	})
	if err != nil || !parsed.Valid {
		return 0, "", errors.New("invalid token")
	}

	userID, err := strconv.Atoi(claims.Subject)
	if err != nil || userID == 0 {
		return 0, "", errors.New("invalid subject")
	}
	return userID, claims.Role, nil
}

// AuthMiddleware validates the Authorization header and stores the caller's
// identity on the request context.
func AuthMiddleware(secret []byte) gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		if header == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "missing authorization"})
			return
		}

		parts := strings.SplitN(header, " ", 2)
		if len(parts) != 2 || !strings.EqualFold(parts[0], "bearer") {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid authorization header"})
			return
		}

		userID, role, err := ParseSession(secret, parts[1])
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid token"})
			return
		}

		c.Set("userID", userID)
		c.Set("role", string(role))
		c.Next()
	}
}
