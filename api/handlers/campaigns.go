package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/opentracing/opentracing-go"

	custom_err "github.com/wahajws/amast-crm-sub001/api/errors"
	"github.com/wahajws/amast-crm-sub001/dto"
	"github.com/wahajws/amast-crm-sub001/interfaces"
	"github.com/wahajws/amast-crm-sub001/internal/tracing"
	"github.com/wahajws/amast-crm-sub001/internal/utils"
)

type ToggleCommunicationRequest struct {
	Started *bool `json:"started" binding:"required"`
}

type BulkMarkSentRequest struct {
	ContactIDs []string `json:"contactIds" binding:"required,min=1"`
}

type OutreachTemplateRequest struct {
	Subject string `json:"subject"`
	Body    string `json:"body"`
}

type CampaignsHandler struct {
	campaigns interfaces.CampaignService
}

func NewCampaignsHandler(campaignService interfaces.CampaignService) *CampaignsHandler {
	return &CampaignsHandler{campaigns: campaignService}
}

func (h *CampaignsHandler) GetStatus() gin.HandlerFunc {
	return func(c *gin.Context) {
		span, ctx := opentracing.StartSpanFromContext(c.Request.Context(), "CampaignsHandler.GetStatus")
		defer span.Finish()
		tracing.SetDefaultRestSpanTags(ctx, span)
		tracing.TagEntity(span, c.Param("contactId"))

		view, err := h.campaigns.GetStatus(ctx, c.Param("contactId"))
		if err != nil {
			custom_err.Respond(c, span, err)
			return
		}
		c.JSON(http.StatusOK, view)
	}
}

func (h *CampaignsHandler) MarkAsSent() gin.HandlerFunc {
	return func(c *gin.Context) {
		span, ctx := opentracing.StartSpanFromContext(c.Request.Context(), "CampaignsHandler.MarkAsSent")
		defer span.Finish()
		tracing.SetDefaultRestSpanTags(ctx, span)
		tracing.TagEntity(span, c.Param("contactId"))

		campaign, err := h.campaigns.MarkAsSent(ctx, c.Param("contactId"), utils.GetUserIdFromContext(ctx))
		if err != nil {
			custom_err.Respond(c, span, err)
			return
		}
		c.JSON(http.StatusOK, campaign)
	}
}

func (h *CampaignsHandler) ToggleCommunicationStarted() gin.HandlerFunc {
	return func(c *gin.Context) {
		span, ctx := opentracing.StartSpanFromContext(c.Request.Context(), "CampaignsHandler.ToggleCommunicationStarted")
		defer span.Finish()
		tracing.SetDefaultRestSpanTags(ctx, span)
		tracing.TagEntity(span, c.Param("contactId"))

		var req ToggleCommunicationRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			custom_err.BadRequest(c, span, err)
			return
		}

		campaign, err := h.campaigns.ToggleCommunicationStarted(ctx, c.Param("contactId"), *req.Started, utils.GetUserIdFromContext(ctx))
		if err != nil {
			custom_err.Respond(c, span, err)
			return
		}
		c.JSON(http.StatusOK, campaign)
	}
}

// BulkMarkAsSent always answers 200; failures are reported per contact.
func (h *CampaignsHandler) BulkMarkAsSent() gin.HandlerFunc {
	return func(c *gin.Context) {
		span, ctx := opentracing.StartSpanFromContext(c.Request.Context(), "CampaignsHandler.BulkMarkAsSent")
		defer span.Finish()
		tracing.SetDefaultRestSpanTags(ctx, span)

		var req BulkMarkSentRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			custom_err.BadRequest(c, span, err)
			return
		}
		span.LogKV("contacts", len(req.ContactIDs))

		results := h.campaigns.BulkMarkAsSent(ctx, req.ContactIDs, utils.GetUserIdFromContext(ctx))
		c.JSON(http.StatusOK, gin.H{"results": results})
	}
}

func (h *CampaignsHandler) SaveOutreachTemplate() gin.HandlerFunc {
	return func(c *gin.Context) {
		span, ctx := opentracing.StartSpanFromContext(c.Request.Context(), "CampaignsHandler.SaveOutreachTemplate")
		defer span.Finish()
		tracing.SetDefaultRestSpanTags(ctx, span)
		tracing.TagEntity(span, c.Param("contactId"))

		var req OutreachTemplateRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			custom_err.BadRequest(c, span, err)
			return
		}

		contact, err := h.campaigns.SaveOutreachTemplate(ctx, c.Param("contactId"), req.Subject, req.Body)
		if err != nil {
			custom_err.Respond(c, span, err)
			return
		}
		c.JSON(http.StatusOK, contact)
	}
}

// Upsert is the bulk import and lead generation entry point.
func (h *CampaignsHandler) Upsert() gin.HandlerFunc {
	return func(c *gin.Context) {
		span, ctx := opentracing.StartSpanFromContext(c.Request.Context(), "CampaignsHandler.Upsert")
		defer span.Finish()
		tracing.SetDefaultRestSpanTags(ctx, span)

		var req dto.CampaignUpsert
		if err := c.ShouldBindJSON(&req); err != nil {
			custom_err.BadRequest(c, span, err)
			return
		}
		if req.OwnerID == "" {
			req.OwnerID = utils.GetUserIdFromContext(ctx)
		}

		campaign, err := h.campaigns.UpsertCampaign(ctx, req)
		if err != nil {
			custom_err.Respond(c, span, err)
			return
		}
		c.JSON(http.StatusOK, campaign)
	}
}

func (h *CampaignsHandler) Analytics() gin.HandlerFunc {
	return func(c *gin.Context) {
		span, ctx := opentracing.StartSpanFromContext(c.Request.Context(), "CampaignsHandler.Analytics")
		defer span.Finish()
		tracing.SetDefaultRestSpanTags(ctx, span)

		analytics, err := h.campaigns.GetAnalytics(ctx, utils.GetUserIdFromContext(ctx))
		if err != nil {
			custom_err.Respond(c, span, err)
			return
		}
		c.JSON(http.StatusOK, analytics)
	}
}

func (h *CampaignsHandler) UrgentRecommendations() gin.HandlerFunc {
	return func(c *gin.Context) {
		span, ctx := opentracing.StartSpanFromContext(c.Request.Context(), "CampaignsHandler.UrgentRecommendations")
		defer span.Finish()
		tracing.SetDefaultRestSpanTags(ctx, span)

		limit, err := queryInt(c, "limit", 0)
		if err != nil {
			custom_err.BadRequest(c, span, err)
			return
		}

		recommendations, err := h.campaigns.GetUrgentRecommendations(ctx, utils.GetUserIdFromContext(ctx), limit)
		if err != nil {
			custom_err.Respond(c, span, err)
			return
		}
		if recommendations == nil {
			recommendations = []dto.CampaignRecommendation{}
		}
		c.JSON(http.StatusOK, recommendations)
	}
}
