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

type AccountsHandler struct {
	aggregator interfaces.AggregatorService
}

func NewAccountsHandler(aggregator interfaces.AggregatorService) *AccountsHandler {
	return &AccountsHandler{aggregator: aggregator}
}

// EmailCounts ranks accounts by matched email volume. Admins and managers
// may pass scope=all; everyone else only sees owned accounts.
func (h *AccountsHandler) EmailCounts() gin.HandlerFunc {
	return func(c *gin.Context) {
		span, ctx := opentracing.StartSpanFromContext(c.Request.Context(), "AccountsHandler.EmailCounts")
		defer span.Finish()
		tracing.SetDefaultRestSpanTags(ctx, span)

		includeZero, err := queryBool(c, "includeZero")
		if err != nil {
			custom_err.BadRequest(c, span, err)
			return
		}

		userID := utils.GetUserIdFromContext(ctx)
		scope := dto.AccountScope{OwnerID: userID}
		if c.Query("scope") == "all" && utils.HasAnyRole(ctx, utils.RoleAdmin, utils.RoleManager) {
			scope.AllAccounts = true
		}
		span.LogKV("scope.all", scope.AllAccounts, "includeZero", includeZero)

		counts, err := h.aggregator.GetAccountsWithEmailCounts(ctx, userID, scope, includeZero)
		if err != nil {
			custom_err.Respond(c, span, err)
			return
		}
		if counts == nil {
			counts = []dto.AccountEmailCount{}
		}
		c.JSON(http.StatusOK, counts)
	}
}
