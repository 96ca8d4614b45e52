package handlers

import (
	"net/http"
	"strings"

	"bitbucket.org/mmdatafocus/tradelog_backend/models"
	"bitbucket.org/mmdatafocus/tradelog_backend/models/reports"
	"github.com/gin-gonic/gin"
)

func (h *Handler) createAcquisition(c *gin.Context) {
	var input models.NewAcquisitionLot
	if !bindJSON(c, &input) {
		return
	}
	lot, err := h.ledger.CreateAcquisition(c.Request.Context(), ownerId(c), &input)
	if err != nil {
		h.respondError(c, "createAcquisition", err)
		return
	}
	c.JSON(http.StatusCreated, lot)
}

func (h *Handler) pageAcquisitions(c *gin.Context) {
	// listings show depleted and oversold lots unless asked not to
	filter := models.LotFilter{IncludeDepleted: queryBoolDefault(c, "include_depleted", true)}
	if raw := strings.TrimSpace(c.Query("item_type")); raw != "" {
		itemType, err := models.ParseItemType(raw)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		filter.ItemType = itemType
	}
	page, err := h.ledger.PageAcquisitions(c.Request.Context(), ownerId(c), queryPage(c), filter)
	if err != nil {
		h.respondError(c, "pageAcquisitions", err)
		return
	}
	c.JSON(http.StatusOK, page)
}

func (h *Handler) searchAcquisitions(c *gin.Context) {
	search := models.LotSearch{
		Query:           c.Query("search"),
		IncludeDepleted: queryBool(c, "include_depleted"),
	}
	lots, err := h.ledger.SearchAcquisitions(c.Request.Context(), ownerId(c), search)
	if err != nil {
		h.respondError(c, "searchAcquisitions", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": lots})
}

func (h *Handler) getAcquisition(c *gin.Context) {
	id, ok := pathId(c)
	if !ok {
		return
	}
	lot, err := h.ledger.GetAcquisition(c.Request.Context(), ownerId(c), id)
	if err != nil {
		h.respondError(c, "getAcquisition", err)
		return
	}
	c.JSON(http.StatusOK, lot)
}

func (h *Handler) updateAcquisition(c *gin.Context) {
	id, ok := pathId(c)
	if !ok {
		return
	}
	var input models.UpdateAcquisitionLot
	if !bindJSON(c, &input) {
		return
	}
	lot, err := h.ledger.UpdateAcquisition(c.Request.Context(), ownerId(c), id, &input)
	if err != nil {
		h.respondError(c, "updateAcquisition", err)
		return
	}
	c.JSON(http.StatusOK, lot)
}

func (h *Handler) deleteAcquisition(c *gin.Context) {
	id, ok := pathId(c)
	if !ok {
		return
	}
	lot, err := h.ledger.SoftDeleteAcquisition(c.Request.Context(), ownerId(c), id)
	if err != nil {
		h.respondError(c, "deleteAcquisition", err)
		return
	}
	c.JSON(http.StatusOK, lot)
}

func (h *Handler) reconcileAcquisition(c *gin.Context) {
	id, ok := pathId(c)
	if !ok {
		return
	}
	lot, err := h.ledger.ReconcileLot(c.Request.Context(), ownerId(c), id)
	if err != nil {
		h.respondError(c, "reconcileAcquisition", err)
		return
	}
	c.JSON(http.StatusOK, lot)
}

func (h *Handler) reconcileOwner(c *gin.Context) {
	summary, err := h.ledger.ReconcileOwner(c.Request.Context(), ownerId(c))
	if err != nil {
		h.respondError(c, "reconcileOwner", err)
		return
	}
	c.JSON(http.StatusOK, summary)
}

func (h *Handler) exportAcquisitions(c *gin.Context) {
	lots, err := h.ledger.ListAcquisitions(c.Request.Context(), ownerId(c))
	if err != nil {
		h.respondError(c, "exportAcquisitions", err)
		return
	}
	c.Header("Content-Type", reports.ExcelContentType)
	c.Header("Content-Disposition", "attachment; filename=acquisitions.xlsx")
	if err := reports.WriteLots(c.Writer, lots); err != nil {
		h.respondError(c, "exportAcquisitions", err)
	}
}
