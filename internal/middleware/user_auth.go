package middleware

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

const UserIDKey = "userId"

func userIDFromHeader(header, secret string) (primitive.ObjectID, error) {
	claims, err := bearerClaims(header, secret)
	if err != nil {
		return primitive.NilObjectID, err
	}

	userIDValue, ok := claims["userId"].(string)
	if !ok || strings.TrimSpace(userIDValue) == "" {
		return primitive.NilObjectID, errInvalidToken
	}

	userID, err := primitive.ObjectIDFromHex(userIDValue)
	if err != nil {
		return primitive.NilObjectID, errInvalidToken
	}
	return userID, nil
}

// UserAuth validates user JWT tokens and injects the userId into the context.
func UserAuth(secret string, logger *zap.Logger) gin.HandlerFunc {
	log := logger.Named("auth")
	return func(c *gin.Context) {
		userID, err := userIDFromHeader(c.GetHeader("Authorization"), secret)
		if errors.Is(err, errMissingToken) {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "missing token"})
			return
		}
		if err != nil {
			log.Warn("user token rejected", zap.Error(err))
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
			return
		}

		c.Set(UserIDKey, userID)
		c.Next()
	}
}

// OptionalUser attaches the userId when a token is present. Guests pass
// through, a present but invalid token is rejected.
func OptionalUser(secret string, logger *zap.Logger) gin.HandlerFunc {
	log := logger.Named("auth")
	return func(c *gin.Context) {
		userID, err := userIDFromHeader(c.GetHeader("Authorization"), secret)
		if errors.Is(err, errMissingToken) {
			c.Next()
			return
		}
		if err != nil {
			log.Warn("user token rejected", zap.Error(err))
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
			return
		}

		c.Set(UserIDKey, userID)
		c.Next()
	}
}

// UserID returns the authenticated user, or nil for a guest.
func UserID(c *gin.Context) *primitive.ObjectID {
	value, ok := c.Get(UserIDKey)
	if !ok {
		return nil
	}
	id, ok := value.(primitive.ObjectID)
	if !ok {
		return nil
	}
	return &id
}
