package handlers

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"storefront/internal/orders"
	"storefront/internal/payment"
)

func handlePanic(c *gin.Context, log *zap.Logger, route string) {
	if r := recover(); r != nil {
		log.Error("panic recovered", zap.String("route", route), zap.Any("panic", r))
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "internal server error"})
	}
}

func ensureDBConnection(ctx context.Context, db Pinger) error {
	checkCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()

	return db.Ping(checkCtx)
}

func respondWithError(c *gin.Context, log *zap.Logger, status int, route string, message string) {
	log.Warn("returning error", zap.String("route", route), zap.Int("status", status), zap.String("error", message))
	c.AbortWithStatusJSON(status, gin.H{"error": message})
}

func respondValidationError(c *gin.Context, err error) {
	var validationErrors validator.ValidationErrors
	if errors.As(err, &validationErrors) {
		details := make([]string, 0, len(validationErrors))
		for _, fieldError := range validationErrors {
			field := lowerCamel(fieldError.Field())
			switch fieldError.Tag() {
			case "required":
				details = append(details, fmt.Sprintf("%s is required", field))
			default:
				details = append(details, fmt.Sprintf("%s is invalid", field))
			}
		}
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{
			"error":   "validation failed",
			"details": details,
		})
		return
	}

	c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "invalid body"})
}

func lowerCamel(field string) string {
	if field == "" {
		return field
	}
	return strings.ToLower(field[:1]) + field[1:]
}

// respondServiceError maps lifecycle and gateway errors to HTTP responses.
// Anything unrecognised is logged in full and reported as a bare 500.
func respondServiceError(c *gin.Context, log *zap.Logger, route string, err error) {
	var (
		validationErr *orders.ValidationError
		notFoundErr   *orders.ProductNotFoundError
		transitionErr *orders.InvalidTransitionError
		configErr     *orders.ConfigurationError
	)

	switch {
	case errors.As(err, &validationErr):
		respondWithError(c, log, http.StatusBadRequest, route, validationErr.Reason)
	case errors.As(err, &notFoundErr):
		log.Warn("products not found", zap.String("route", route), zap.Strings("product_ids", notFoundErr.IDs))
		c.AbortWithStatusJSON(http.StatusNotFound, gin.H{
			"error":      "products not found",
			"productIds": notFoundErr.IDs,
		})
	case errors.Is(err, orders.ErrOrderNotFound):
		respondWithError(c, log, http.StatusNotFound, route, "order not found")
	case errors.As(err, &transitionErr):
		log.Warn("transition rejected", zap.String("route", route), zap.String("from", string(transitionErr.From)), zap.String("to", string(transitionErr.To)))
		c.AbortWithStatusJSON(http.StatusConflict, gin.H{
			"error": "invalid status transition",
			"from":  transitionErr.From,
			"to":    transitionErr.To,
		})
	case errors.Is(err, orders.ErrOrderNotPayable):
		respondWithError(c, log, http.StatusConflict, route, "order cannot be paid in its current status")
	case errors.Is(err, orders.ErrStatusConflict):
		respondWithError(c, log, http.StatusConflict, route, "order was modified concurrently, retry")
	case errors.Is(err, payment.ErrGatewayRequestFailed):
		log.Warn("payment gateway failure", zap.String("route", route), zap.Error(err))
		c.AbortWithStatusJSON(http.StatusBadGateway, gin.H{"error": "payment provider unavailable, try again"})
	case errors.As(err, &configErr), errors.Is(err, orders.ErrCodeSpaceExhausted):
		log.Error("configuration error", zap.String("route", route), zap.Error(err))
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "internal server error"})
	default:
		log.Error("unexpected error", zap.String("route", route), zap.Error(err))
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "internal server error"})
	}
}
