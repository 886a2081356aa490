package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/opentracing/opentracing-go"

	custom_err "github.com/wahajws/amast-crm-sub001/api/errors"
	"github.com/wahajws/amast-crm-sub001/interfaces"
	"github.com/wahajws/amast-crm-sub001/internal/enum"
	"github.com/wahajws/amast-crm-sub001/internal/models"
	"github.com/wahajws/amast-crm-sub001/internal/tracing"
	"github.com/wahajws/amast-crm-sub001/internal/utils"
)

// Label ids travel in bodies and query strings: IMAP folder names contain
// slashes.
type SyncLabelRequest struct {
	LabelID string `json:"labelId" binding:"required"`
}

type SetLabelSyncingRequest struct {
	LabelID   string `json:"labelId" binding:"required"`
	IsSyncing *bool  `json:"isSyncing" binding:"required"`
}

type SyncHandler struct {
	sync interfaces.SyncService
}

func NewSyncHandler(syncService interfaces.SyncService) *SyncHandler {
	return &SyncHandler{sync: syncService}
}

// SyncLabel runs a manual sync of one label and waits for the result.
func (h *SyncHandler) SyncLabel() gin.HandlerFunc {
	return func(c *gin.Context) {
		span, ctx := opentracing.StartSpanFromContext(c.Request.Context(), "SyncHandler.SyncLabel")
		defer span.Finish()
		tracing.SetDefaultRestSpanTags(ctx, span)

		var req SyncLabelRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			custom_err.BadRequest(c, span, err)
			return
		}
		tracing.TagLabel(span, req.LabelID)

		result, err := h.sync.SyncLabelEmails(ctx, utils.GetUserIdFromContext(ctx), req.LabelID, enum.SyncTriggerManual)
		if err != nil {
			custom_err.Respond(c, span, err)
			return
		}
		c.JSON(http.StatusOK, result)
	}
}

func (h *SyncHandler) SyncAll() gin.HandlerFunc {
	return func(c *gin.Context) {
		span, ctx := opentracing.StartSpanFromContext(c.Request.Context(), "SyncHandler.SyncAll")
		defer span.Finish()
		tracing.SetDefaultRestSpanTags(ctx, span)

		result, err := h.sync.SyncAllLabels(ctx, utils.GetUserIdFromContext(ctx), enum.SyncTriggerManual)
		if err != nil {
			custom_err.Respond(c, span, err)
			return
		}
		c.JSON(http.StatusOK, result)
	}
}

// ListLabels returns the cached labels; refresh=true reloads them from the
// provider first.
func (h *SyncHandler) ListLabels() gin.HandlerFunc {
	return func(c *gin.Context) {
		span, ctx := opentracing.StartSpanFromContext(c.Request.Context(), "SyncHandler.ListLabels")
		defer span.Finish()
		tracing.SetDefaultRestSpanTags(ctx, span)

		refresh, err := queryBool(c, "refresh")
		if err != nil {
			custom_err.BadRequest(c, span, err)
			return
		}

		userID := utils.GetUserIdFromContext(ctx)
		var labels []*models.LabelSyncSetting
		if refresh {
			labels, err = h.sync.RefreshLabels(ctx, userID)
		} else {
			labels, err = h.sync.ListLabels(ctx, userID)
		}
		if err != nil {
			custom_err.Respond(c, span, err)
			return
		}
		if labels == nil {
			labels = []*models.LabelSyncSetting{}
		}
		c.JSON(http.StatusOK, labels)
	}
}

func (h *SyncHandler) SetLabelSyncing() gin.HandlerFunc {
	return func(c *gin.Context) {
		span, ctx := opentracing.StartSpanFromContext(c.Request.Context(), "SyncHandler.SetLabelSyncing")
		defer span.Finish()
		tracing.SetDefaultRestSpanTags(ctx, span)

		var req SetLabelSyncingRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			custom_err.BadRequest(c, span, err)
			return
		}
		tracing.TagLabel(span, req.LabelID)

		if err := h.sync.SetLabelSyncing(ctx, utils.GetUserIdFromContext(ctx), req.LabelID, *req.IsSyncing); err != nil {
			custom_err.Respond(c, span, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"labelId": req.LabelID, "isSyncing": *req.IsSyncing})
	}
}

func (h *SyncHandler) ListSyncLogs() gin.HandlerFunc {
	return func(c *gin.Context) {
		span, ctx := opentracing.StartSpanFromContext(c.Request.Context(), "SyncHandler.ListSyncLogs")
		defer span.Finish()
		tracing.SetDefaultRestSpanTags(ctx, span)

		limit, err := queryInt(c, "limit", 20)
		if err != nil {
			custom_err.BadRequest(c, span, err)
			return
		}
		offset, err := queryInt(c, "offset", 0)
		if err != nil {
			custom_err.BadRequest(c, span, err)
			return
		}

		logs, total, err := h.sync.ListSyncLogs(ctx, utils.GetUserIdFromContext(ctx), c.Query("labelId"), limit, offset)
		if err != nil {
			custom_err.Respond(c, span, err)
			return
		}
		if logs == nil {
			logs = []*models.SyncLog{}
		}
		c.JSON(http.StatusOK, ListResponse[*models.SyncLog]{Items: logs, Total: total, Limit: limit, Offset: offset})
	}
}
