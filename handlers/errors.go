package handlers

import (
	"errors"
	"net/http"

	"bitbucket.org/mmdatafocus/tradelog_backend/config"
	"bitbucket.org/mmdatafocus/tradelog_backend/models"
	"bitbucket.org/mmdatafocus/tradelog_backend/workflow"
	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

// respondError maps ledger errors to status codes. Unknown errors are logged
// and returned as 500 without their message.
func (h *Handler) respondError(c *gin.Context, funcName string, err error) {
	var validationErr *models.ValidationError
	var balanceErr *models.InsufficientBalanceError

	switch {
	case errors.As(err, &validationErr):
		c.JSON(http.StatusBadRequest, gin.H{"error": validationErr.Error(), "field": validationErr.Field})
	case errors.As(err, &balanceErr):
		c.JSON(http.StatusUnprocessableEntity, gin.H{
			"error":     "insufficient balance",
			"available": balanceErr.Available,
			"requested": balanceErr.Requested,
		})
	case errors.Is(err, models.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "not found"})
	case errors.Is(err, models.ErrOwnershipViolation):
		c.JSON(http.StatusForbidden, gin.H{"error": "forbidden"})
	case errors.Is(err, models.ErrConcurrencyConflict):
		c.JSON(http.StatusConflict, gin.H{"error": "conflicting update, try again"})
	case errors.Is(err, workflow.ErrInvalidCredentials), errors.Is(err, workflow.ErrUnauthorized):
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
	case errors.Is(err, workflow.ErrUserDisabled):
		c.JSON(http.StatusForbidden, gin.H{"error": "user is disabled"})
	default:
		config.LogError(h.logger, moduleName, funcName, "unexpected error", logrus.Fields{"path": c.Request.URL.Path}, err)
		_ = c.Error(err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal server error"})
	}
}
