package admin

import (
	"strings"

	"github.com/milhas-next/internal/constants"
	"github.com/milhas-next/internal/http/handlers/shared"
	"github.com/milhas-next/internal/http/response"
	"github.com/milhas-next/internal/queue"
	"github.com/milhas-next/internal/repository"
	"github.com/milhas-next/internal/service"

	"github.com/gin-gonic/gin"
)

// GetVipSetting 获取团队 VIP 分配配置
func (h *Handler) GetVipSetting(c *gin.Context) {
	teamID, ok := parseTeamID(c)
	if !ok {
		return
	}
	setting, err := h.VipService.GetSetting(c.Request.Context(), teamID)
	if err != nil {
		respondServiceError(c, err, "error.vip_setting_failed")
		return
	}
	response.Success(c, setting)
}

// UpdateVipSetting 更新团队 VIP 分配配置
func (h *Handler) UpdateVipSetting(c *gin.Context) {
	teamID, ok := parseTeamID(c)
	if !ok {
		return
	}
	var req service.VipSettingInput
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, response.CodeBadRequest, "error.bad_request", err)
		return
	}
	setting, err := h.VipService.UpdateSetting(c.Request.Context(), teamID, req)
	if err != nil {
		respondServiceError(c, err, "error.vip_setting_failed")
		return
	}
	response.Success(c, setting)
}

// CreateVipPayment 录入 VIP 收款
func (h *Handler) CreateVipPayment(c *gin.Context) {
	var req service.VipPaymentInput
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, response.CodeBadRequest, "error.bad_request", err)
		return
	}
	payment, err := h.VipService.RecordPayment(c.Request.Context(), req)
	if err != nil {
		respondServiceError(c, err, "error.vip_payment_failed")
		return
	}
	response.Success(c, payment)
}

// GetVipPayments VIP 收款列表
func (h *Handler) GetVipPayments(c *gin.Context) {
	teamID, ok := parseTeamID(c)
	if !ok {
		return
	}
	responsibleID, ok := shared.ParseUintQuery(c, "responsible_id", false)
	if !ok {
		return
	}
	page, pageSize := shared.ParsePagination(c)
	payments, total, err := h.VipService.ListPayments(c.Request.Context(), repository.VipPaymentListFilter{
		Page:          page,
		PageSize:      pageSize,
		TeamID:        teamID,
		ResponsibleID: responsibleID,
		Status:        strings.ToUpper(strings.TrimSpace(c.Query("status"))),
	})
	if err != nil {
		respondServiceError(c, err, "error.vip_payment_failed")
		return
	}
	response.SuccessWithPage(c, payments, shared.BuildPagination(page, pageSize, total))
}

// GetVipDistribution 团队月度 VIP 分配汇总，month 为空时取业务时区当月
// async=true 时仅入队预计算任务
func (h *Handler) GetVipDistribution(c *gin.Context) {
	teamID, ok := parseTeamID(c)
	if !ok {
		return
	}
	month := strings.TrimSpace(c.Query("month"))
	if month == "" {
		month = h.PayoutService.Now().Format(constants.MonthLayout)
	}
	if c.Query("async") == "true" {
		if !h.QueueClient.Enabled() {
			respondError(c, response.CodeUnavailable, "error.queue_unavailable", nil)
			return
		}
		queued, err := h.QueueClient.EnqueueVipDistribution(queue.VipMonthlyDistributionPayload{TeamID: teamID, Month: month})
		if err != nil {
			respondError(c, response.CodeInternal, "error.enqueue_failed", err)
			return
		}
		response.Success(c, gin.H{"team_id": teamID, "month": month, "queued": queued})
		return
	}
	summary, err := h.VipService.Distribute(c.Request.Context(), teamID, month)
	if err != nil {
		respondServiceError(c, err, "error.vip_distribution_failed")
		return
	}
	response.Success(c, summary)
}
