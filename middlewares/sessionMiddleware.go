package middlewares

import (
	"context"
	"net/http"

	"bitbucket.org/mmdatafocus/tradelog_backend/config"
	"bitbucket.org/mmdatafocus/tradelog_backend/models"
	"bitbucket.org/mmdatafocus/tradelog_backend/utils"
	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

// Authenticator resolves a bearer token to the user that owns the session.
type Authenticator interface {
	Authenticate(ctx context.Context, token string) (*models.User, string, error)
}

// SessionMiddleware attaches the authenticated owner to the request context.
// Requests without a token pass through; RequireOwner rejects them later.
func SessionMiddleware(auth Authenticator) gin.HandlerFunc {
	return func(c *gin.Context) {
		token := requestToken(c)
		if token == "" {
			c.Next()
			return
		}

		user, sessionId, err := auth.Authenticate(c.Request.Context(), token)
		if err != nil {
			if !isUnauthorized(err) {
				config.LogError(config.GetLogger(), "middlewares", "SessionMiddleware", "authenticate", logrus.Fields{"path": c.Request.URL.Path}, err)
			}
			c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
			c.Abort()
			return
		}

		ctx := utils.SetTokenInContext(c.Request.Context(), token)
		ctx = utils.SetSessionIdInContext(ctx, sessionId)
		ctx = utils.SetOwnerIdInContext(ctx, user.ID)
		ctx = utils.SetUsernameInContext(ctx, user.Username)
		c.Request = c.Request.WithContext(ctx)
		c.Next()
	}
}
