package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"gorm.io/gorm"

	"restaurant-inventory/src/logger"
	"restaurant-inventory/src/models"
	"restaurant-inventory/src/services"
)

// respondError maps service errors onto HTTP statuses. Unknown errors are
// logged and returned as 500 without leaking internals.
func respondError(c *gin.Context, err error) {
	var (
		validation   *services.ValidationError
		notFound     *services.NotFoundError
		insufficient *services.InsufficientStockError
		conflict     *services.ConcurrencyConflictError
		approval     *services.ApprovalRequiredError
		transition   *services.InvalidStateTransitionError
	)

	switch {
	case errors.As(err, &validation):
		c.JSON(http.StatusBadRequest, gin.H{"error": validation.Error()})
	case errors.As(err, &notFound):
		c.JSON(http.StatusNotFound, gin.H{"error": notFound.Error()})
	case errors.As(err, &insufficient):
		c.JSON(http.StatusConflict, gin.H{
			"error":      insufficient.Error(),
			"shortfalls": insufficient.Shortfalls,
		})
	case errors.As(err, &conflict):
		c.JSON(http.StatusConflict, gin.H{"error": conflict.Error()})
	case errors.As(err, &transition):
		c.JSON(http.StatusConflict, gin.H{"error": transition.Error()})
	case errors.As(err, &approval):
		c.JSON(http.StatusAccepted, gin.H{
			"message":          "variance exceeds threshold, approval required",
			"movement_id":      approval.MovementID,
			"variance_percent": approval.VariancePercent,
		})
	case errors.Is(err, gorm.ErrRecordNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "record not found"})
	default:
		logger.Log.Error().Err(err).Str("path", c.FullPath()).Msg("request failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal server error"})
	}
}

// actorFrom resolves the acting identity: a user when the request names
// one, the system otherwise.
func actorFrom(performedBy *uuid.UUID) models.Actor {
	if performedBy != nil && *performedBy != uuid.Nil {
		return models.UserActor(*performedBy)
	}
	return models.SystemActor()
}
