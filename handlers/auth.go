package handlers

import (
	"net/http"

	"bitbucket.org/mmdatafocus/tradelog_backend/models"
	"bitbucket.org/mmdatafocus/tradelog_backend/utils"
	"github.com/gin-gonic/gin"
)

func (h *Handler) register(c *gin.Context) {
	var input models.NewUser
	if !bindJSON(c, &input) {
		return
	}
	user, err := h.accounts.Register(c.Request.Context(), &input)
	if err != nil {
		h.respondError(c, "register", err)
		return
	}
	c.JSON(http.StatusCreated, user)
}

func (h *Handler) login(c *gin.Context) {
	var input models.LoginInput
	if !bindJSON(c, &input) {
		return
	}
	info, err := h.accounts.Login(c.Request.Context(), &input)
	if err != nil {
		h.respondError(c, "login", err)
		return
	}
	c.JSON(http.StatusOK, info)
}

func (h *Handler) logout(c *gin.Context) {
	ctx := c.Request.Context()
	sessionId, _ := utils.GetSessionIdFromContext(ctx)
	username, _ := utils.GetUsernameFromContext(ctx)
	if err := h.accounts.Logout(ctx, sessionId, username); err != nil {
		h.respondError(c, "logout", err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *Handler) me(c *gin.Context) {
	user, err := h.accounts.Me(c.Request.Context(), ownerId(c))
	if err != nil {
		h.respondError(c, "me", err)
		return
	}
	c.JSON(http.StatusOK, user)
}
