package handler

import (
	"github.com/gin-gonic/gin"

	billingapp "github.com/rentledger/backend/internal/application/billing"
)

// StatsHandler handles reconciliation reporting endpoints
type StatsHandler struct {
	BaseHandler
	statsService *billingapp.BillingStatsService
}

// NewStatsHandler creates a new StatsHandler
func NewStatsHandler(statsService *billingapp.BillingStatsService) *StatsHandler {
	return &StatsHandler{statsService: statsService}
}

// GetReconciliationStats godoc
// @Summary      Get reconciliation statistics
// @Description  Aggregates invoice counts and amounts by status, optionally scoped to one billing period
// @Tags         stats
// @Produce      json
// @Param        period_month query int false "Billing month (1-12)"
// @Param        period_year query int false "Billing year"
// @Success      200 {object} dto.Response{data=billingapp.ReconciliationStats}
// @Failure      400 {object} dto.Response{error=dto.ErrorInfo}
// @Security     BearerAuth
// @Router       /stats/reconciliation [get]
func (h *StatsHandler) GetReconciliationStats(c *gin.Context) {
	tenantID, err := getTenantID(c)
	if err != nil {
		h.BadRequest(c, "Invalid tenant ID")
		return
	}

	var filter billingapp.StatsFilter
	if err := c.ShouldBindQuery(&filter); err != nil {
		h.BadRequest(c, err.Error())
		return
	}

	stats, err := h.statsService.GetReconciliationStats(c.Request.Context(), tenantID, filter)
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}

	h.Success(c, stats)
}
