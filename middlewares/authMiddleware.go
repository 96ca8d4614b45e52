package middlewares

import (
	"errors"
	"net/http"
	"strings"

	"bitbucket.org/mmdatafocus/tradelog_backend/utils"
	"bitbucket.org/mmdatafocus/tradelog_backend/workflow"
	"github.com/gin-gonic/gin"
)

func isUnauthorized(err error) bool {
	return errors.Is(err, workflow.ErrUnauthorized) || errors.Is(err, workflow.ErrUserDisabled)
}

// requestToken reads "Authorization: Bearer <jwt>" and falls back to the
// legacy "token" header.
func requestToken(c *gin.Context) string {
	auth := strings.TrimSpace(c.Request.Header.Get("Authorization"))
	const bearer = "Bearer "
	if len(auth) > len(bearer) && strings.EqualFold(auth[:len(bearer)], bearer) {
		return strings.TrimSpace(auth[len(bearer):])
	}
	return strings.TrimSpace(c.Request.Header.Get("token"))
}

// RequireOwner aborts with 401 unless SessionMiddleware resolved an owner.
func RequireOwner() gin.HandlerFunc {
	return func(c *gin.Context) {
		if ownerId, ok := utils.GetOwnerIdFromContext(c.Request.Context()); !ok || ownerId <= 0 {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
			c.Abort()
			return
		}
		c.Next()
	}
}

// CorrelationId propagates X-Correlation-Id, generating one when absent.
func CorrelationId(newId func() string) gin.HandlerFunc {
	return func(c *gin.Context) {
		id := strings.TrimSpace(c.GetHeader("X-Correlation-Id"))
		if id == "" {
			id = newId()
		}
		c.Writer.Header().Set("X-Correlation-Id", id)
		ctx := utils.SetCorrelationIdInContext(c.Request.Context(), id)
		c.Request = c.Request.WithContext(ctx)
		c.Next()
	}
}
