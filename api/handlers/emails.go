package handlers

import (
	"context"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/opentracing/opentracing-go"

	custom_err "github.com/wahajws/amast-crm-sub001/api/errors"
	"github.com/wahajws/amast-crm-sub001/interfaces"
	"github.com/wahajws/amast-crm-sub001/internal/models"
	"github.com/wahajws/amast-crm-sub001/internal/tracing"
	"github.com/wahajws/amast-crm-sub001/internal/utils"
)

type SetFlagRequest struct {
	Value *bool `json:"value" binding:"required"`
}

// LinkEmailRequest replaces both links; a missing or empty id clears it.
type LinkEmailRequest struct {
	ContactID *string `json:"contactId"`
	AccountID *string `json:"accountId"`
}

type EmailsHandler struct {
	emails interfaces.EmailService
}

func NewEmailsHandler(emailService interfaces.EmailService) *EmailsHandler {
	return &EmailsHandler{emails: emailService}
}

func (h *EmailsHandler) SetRead() gin.HandlerFunc {
	return h.setFlag("EmailsHandler.SetRead", h.emails.SetRead)
}

func (h *EmailsHandler) SetStarred() gin.HandlerFunc {
	return h.setFlag("EmailsHandler.SetStarred", h.emails.SetStarred)
}

func (h *EmailsHandler) setFlag(operation string, apply func(ctx context.Context, userID, emailID string, value bool) error) gin.HandlerFunc {
	return func(c *gin.Context) {
		span, ctx := opentracing.StartSpanFromContext(c.Request.Context(), operation)
		defer span.Finish()
		tracing.SetDefaultRestSpanTags(ctx, span)

		var req SetFlagRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			custom_err.BadRequest(c, span, err)
			return
		}

		if err := apply(ctx, utils.GetUserIdFromContext(ctx), c.Param("id"), *req.Value); err != nil {
			custom_err.Respond(c, span, err)
			return
		}
		c.Status(http.StatusNoContent)
	}
}

func (h *EmailsHandler) Link() gin.HandlerFunc {
	return func(c *gin.Context) {
		span, ctx := opentracing.StartSpanFromContext(c.Request.Context(), "EmailsHandler.Link")
		defer span.Finish()
		tracing.SetDefaultRestSpanTags(ctx, span)

		var req LinkEmailRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			custom_err.BadRequest(c, span, err)
			return
		}

		if err := h.emails.Link(ctx, utils.GetUserIdFromContext(ctx), c.Param("id"), req.ContactID, req.AccountID); err != nil {
			custom_err.Respond(c, span, err)
			return
		}
		c.Status(http.StatusNoContent)
	}
}

func (h *EmailsHandler) Delete() gin.HandlerFunc {
	return func(c *gin.Context) {
		span, ctx := opentracing.StartSpanFromContext(c.Request.Context(), "EmailsHandler.Delete")
		defer span.Finish()
		tracing.SetDefaultRestSpanTags(ctx, span)

		if err := h.emails.Delete(ctx, utils.GetUserIdFromContext(ctx), c.Param("id")); err != nil {
			custom_err.Respond(c, span, err)
			return
		}
		c.Status(http.StatusNoContent)
	}
}

func (h *EmailsHandler) ListUnlinked() gin.HandlerFunc {
	return func(c *gin.Context) {
		span, ctx := opentracing.StartSpanFromContext(c.Request.Context(), "EmailsHandler.ListUnlinked")
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

		emails, total, err := h.emails.ListUnlinked(ctx, utils.GetUserIdFromContext(ctx), limit, offset)
		if err != nil {
			custom_err.Respond(c, span, err)
			return
		}
		if emails == nil {
			emails = []*models.Email{}
		}
		c.JSON(http.StatusOK, ListResponse[*models.Email]{Items: emails, Total: total, Limit: limit, Offset: offset})
	}
}

// DownloadAttachment streams the attachment bytes from storage or the
// provider.
func (h *EmailsHandler) DownloadAttachment() gin.HandlerFunc {
	return func(c *gin.Context) {
		span, ctx := opentracing.StartSpanFromContext(c.Request.Context(), "EmailsHandler.DownloadAttachment")
		defer span.Finish()
		tracing.SetDefaultRestSpanTags(ctx, span)

		attachment, data, err := h.emails.GetAttachmentData(ctx, utils.GetUserIdFromContext(ctx), c.Param("id"))
		if err != nil {
			custom_err.Respond(c, span, err)
			return
		}

		contentType := attachment.ContentType
		if contentType == "" {
			contentType = "application/octet-stream"
		}
		c.Header("Content-Disposition", "attachment; filename="+strconv.Quote(attachment.Filename))
		c.Data(http.StatusOK, contentType, data)
	}
}
