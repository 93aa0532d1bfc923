package admin

import (
	"strings"

	"github.com/milhas-next/internal/http/handlers/shared"
	"github.com/milhas-next/internal/http/response"
	"github.com/milhas-next/internal/queue"
	"github.com/milhas-next/internal/repository"

	"github.com/gin-gonic/gin"
)

// RecomputePayoutRequest 日结重算请求，date 为空时取业务时区今天
type RecomputePayoutRequest struct {
	TeamID uint   `json:"team_id" binding:"required"`
	Date   string `json:"date"`
	Async  bool   `json:"async"`
}

// RecomputePayouts 重算团队某日的日结记录
func (h *Handler) RecomputePayouts(c *gin.Context) {
	var req RecomputePayoutRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, response.CodeBadRequest, "error.bad_request", err)
		return
	}
	date := strings.TrimSpace(req.Date)
	if date == "" {
		date = h.PayoutService.Today()
	}
	if _, _, err := h.PayoutService.DayWindow(date); err != nil {
		respondServiceError(c, err, "error.bad_request")
		return
	}

	if req.Async {
		if !h.QueueClient.Enabled() {
			respondError(c, response.CodeUnavailable, "error.queue_unavailable", nil)
			return
		}
		queued, err := h.QueueClient.EnqueuePayoutRecompute(queue.PayoutDailyRecomputePayload{TeamID: req.TeamID, Date: date})
		if err != nil {
			respondError(c, response.CodeInternal, "error.enqueue_failed", err)
			return
		}
		response.Success(c, gin.H{
			"team_id": req.TeamID,
			"date":    date,
			"queued":  queued,
		})
		return
	}

	result, err := h.PayoutService.RecomputeDay(c.Request.Context(), req.TeamID, date)
	if err != nil {
		respondServiceError(c, err, "error.payout_recompute_failed")
		return
	}
	response.Success(c, result)
}

// GetPayouts 日结记录列表
func (h *Handler) GetPayouts(c *gin.Context) {
	teamID, ok := parseTeamID(c)
	if !ok {
		return
	}
	userID, ok := shared.ParseUintQuery(c, "user_id", false)
	if !ok {
		return
	}
	page, pageSize := shared.ParsePagination(c)
	filter := repository.PayoutListFilter{
		Page:     page,
		PageSize: pageSize,
		TeamID:   teamID,
		Date:     strings.TrimSpace(c.Query("date")),
		DateFrom: strings.TrimSpace(c.Query("date_from")),
		DateTo:   strings.TrimSpace(c.Query("date_to")),
		UserID:   userID,
	}
	switch strings.ToLower(strings.TrimSpace(c.Query("paid"))) {
	case "true", "1":
		paid := true
		filter.Paid = &paid
	case "false", "0":
		paid := false
		filter.Paid = &paid
	}

	rows, total, err := h.PayoutService.ListPayouts(c.Request.Context(), filter)
	if err != nil {
		respondServiceError(c, err, "error.payout_fetch_failed")
		return
	}
	response.SuccessWithPage(c, rows, shared.BuildPagination(page, pageSize, total))
}

// MarkPayoutPaid 标记日结记录已付款，paid_by 取当前登录管理员
func (h *Handler) MarkPayoutPaid(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	adminID, ok := getAdminID(c)
	if !ok {
		return
	}
	payout, err := h.PayoutService.MarkPaid(c.Request.Context(), id, adminID)
	if err != nil {
		respondServiceError(c, err, "error.payout_mark_paid_failed")
		return
	}
	response.Success(c, payout)
}

// GetSaleCommission 单笔销售的佣金与分润明细（只读）
func (h *Handler) GetSaleCommission(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	preview, err := h.PayoutService.PreviewSale(c.Request.Context(), id)
	if err != nil {
		respondServiceError(c, err, "error.sale_fetch_failed")
		return
	}
	response.Success(c, preview)
}
