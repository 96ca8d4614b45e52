// Package handlers exposes the ledger over HTTP.
package handlers

import (
	"net/http"
	"strconv"
	"strings"

	"bitbucket.org/mmdatafocus/tradelog_backend/config"
	"bitbucket.org/mmdatafocus/tradelog_backend/middlewares"
	"bitbucket.org/mmdatafocus/tradelog_backend/utils"
	"bitbucket.org/mmdatafocus/tradelog_backend/workflow"
	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

const moduleName = "handlers"

type Handler struct {
	ledger   *workflow.Ledger
	accounts *workflow.Accounts
	logger   *logrus.Logger
}

func New(ledger *workflow.Ledger, accounts *workflow.Accounts, logger *logrus.Logger) *Handler {
	if logger == nil {
		logger = config.GetLogger()
	}
	return &Handler{ledger: ledger, accounts: accounts, logger: logger}
}

// Register mounts every route on r. SessionMiddleware must already run on r.
func (h *Handler) Register(r gin.IRouter) {
	api := r.Group("/api")

	auth := api.Group("/auth")
	auth.POST("/register", h.register)
	auth.POST("/login", h.login)

	secured := api.Group("")
	secured.Use(middlewares.RequireOwner())

	secured.POST("/auth/logout", h.logout)
	secured.GET("/auth/me", h.me)

	secured.POST("/acquisitions", h.createAcquisition)
	secured.GET("/acquisitions", h.pageAcquisitions)
	secured.GET("/acquisitions/search", h.searchAcquisitions)
	secured.GET("/acquisitions/export", h.exportAcquisitions)
	secured.GET("/acquisitions/:id", h.getAcquisition)
	secured.PUT("/acquisitions/:id", h.updateAcquisition)
	secured.DELETE("/acquisitions/:id", h.deleteAcquisition)
	secured.POST("/acquisitions/:id/reconcile", h.reconcileAcquisition)

	secured.POST("/consumptions", h.createConsumption)
	secured.GET("/consumptions", h.pageConsumptions)
	secured.GET("/consumptions/export", h.exportConsumptions)
	secured.GET("/consumptions/:id", h.getConsumption)
	secured.PUT("/consumptions/:id", h.updateConsumption)
	secured.DELETE("/consumptions/:id", h.deleteConsumption)

	secured.POST("/batches", h.allocateBatch)
	secured.GET("/batches", h.pageBatches)
	secured.DELETE("/batches/:code", h.deleteBatch)

	secured.POST("/reconcile", h.reconcileOwner)
}

func ownerId(c *gin.Context) int {
	id, _ := utils.GetOwnerIdFromContext(c.Request.Context())
	return id
}

func pathId(c *gin.Context) (int, bool) {
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil || id <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid id"})
		return 0, false
	}
	return id, true
}

func queryPage(c *gin.Context) int {
	page, err := strconv.Atoi(c.DefaultQuery("page", "1"))
	if err != nil {
		return 1
	}
	return page
}

func queryBool(c *gin.Context, key string) bool {
	return queryBoolDefault(c, key, false)
}

// queryBoolDefault returns def when key is absent or unparsable.
func queryBoolDefault(c *gin.Context, key string, def bool) bool {
	v, err := strconv.ParseBool(strings.TrimSpace(c.Query(key)))
	if err != nil {
		return def
	}
	return v
}

func queryInt(c *gin.Context, key string) (int, bool) {
	raw := strings.TrimSpace(c.Query(key))
	if raw == "" {
		return 0, true
	}
	v, err := strconv.Atoi(raw)
	if err != nil || v < 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid " + key})
		return 0, false
	}
	return v, true
}

func bindJSON(c *gin.Context, v any) bool {
	if err := c.ShouldBindJSON(v); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request", "message": err.Error()})
		return false
	}
	return true
}
