package handlers

import (
	"net/http"

	"bitbucket.org/mmdatafocus/tradelog_backend/models"
	"github.com/gin-gonic/gin"
)

func (h *Handler) allocateBatch(c *gin.Context) {
	var input models.BatchAllocationRequest
	if !bindJSON(c, &input) {
		return
	}
	allocation, err := h.ledger.AllocateBatchConsumption(c.Request.Context(), ownerId(c), &input)
	if err != nil {
		h.respondError(c, "allocateBatch", err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{
		"batch_code":     allocation.BatchCode(),
		"total_consumed": allocation.TotalConsumed(),
		"batch":          allocation.Batch,
		"records":        allocation.Records,
	})
}

func (h *Handler) pageBatches(c *gin.Context) {
	page, err := h.ledger.PageBatchActions(c.Request.Context(), ownerId(c), queryPage(c))
	if err != nil {
		h.respondError(c, "pageBatches", err)
		return
	}
	c.JSON(http.StatusOK, page)
}

func (h *Handler) deleteBatch(c *gin.Context) {
	batch, err := h.ledger.SoftDeleteBatch(c.Request.Context(), ownerId(c), c.Param("code"))
	if err != nil {
		h.respondError(c, "deleteBatch", err)
		return
	}
	c.JSON(http.StatusOK, batch)
}
