package handlers

import (
	"net/http"

	"bitbucket.org/mmdatafocus/tradelog_backend/models"
	"bitbucket.org/mmdatafocus/tradelog_backend/models/reports"
	"github.com/gin-gonic/gin"
)

func (h *Handler) createConsumption(c *gin.Context) {
	var input models.CreateConsumptionCommand
	if !bindJSON(c, &input) {
		return
	}
	record, err := h.ledger.Apply(c.Request.Context(), ownerId(c), &input)
	if err != nil {
		h.respondError(c, "createConsumption", err)
		return
	}
	c.JSON(http.StatusCreated, record)
}

func (h *Handler) updateConsumption(c *gin.Context) {
	id, ok := pathId(c)
	if !ok {
		return
	}
	var input models.UpdateConsumptionCommand
	if !bindJSON(c, &input) {
		return
	}
	input.Id = id
	record, err := h.ledger.Apply(c.Request.Context(), ownerId(c), &input)
	if err != nil {
		h.respondError(c, "updateConsumption", err)
		return
	}
	c.JSON(http.StatusOK, record)
}

func (h *Handler) deleteConsumption(c *gin.Context) {
	id, ok := pathId(c)
	if !ok {
		return
	}
	record, err := h.ledger.Apply(c.Request.Context(), ownerId(c), &models.DeleteConsumptionCommand{Id: id})
	if err != nil {
		h.respondError(c, "deleteConsumption", err)
		return
	}
	c.JSON(http.StatusOK, record)
}

func (h *Handler) getConsumption(c *gin.Context) {
	id, ok := pathId(c)
	if !ok {
		return
	}
	record, err := h.ledger.GetConsumption(c.Request.Context(), ownerId(c), id)
	if err != nil {
		h.respondError(c, "getConsumption", err)
		return
	}
	c.JSON(http.StatusOK, record)
}

func (h *Handler) pageConsumptions(c *gin.Context) {
	lotId, ok := queryInt(c, "lot_id")
	if !ok {
		return
	}
	filter := models.ConsumptionFilter{BatchCode: c.Query("batch_code"), LotId: lotId}
	page, err := h.ledger.PageConsumptions(c.Request.Context(), ownerId(c), queryPage(c), filter)
	if err != nil {
		h.respondError(c, "pageConsumptions", err)
		return
	}
	c.JSON(http.StatusOK, page)
}

func (h *Handler) exportConsumptions(c *gin.Context) {
	records, err := h.ledger.ListConsumptions(c.Request.Context(), ownerId(c))
	if err != nil {
		h.respondError(c, "exportConsumptions", err)
		return
	}
	c.Header("Content-Type", reports.ExcelContentType)
	c.Header("Content-Disposition", "attachment; filename=consumptions.xlsx")
	if err := reports.WriteConsumptions(c.Writer, records); err != nil {
		h.respondError(c, "exportConsumptions", err)
	}
}
