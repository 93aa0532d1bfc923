package admin

import (
	"github.com/milhas-next/internal/http/handlers/shared"
	"github.com/milhas-next/internal/http/response"
	"github.com/milhas-next/internal/service"

	"github.com/gin-gonic/gin"
)

// GetProfitSharePlans 分润方案历史
func (h *Handler) GetProfitSharePlans(c *gin.Context) {
	teamID, ok := parseTeamID(c)
	if !ok {
		return
	}
	ownerID, ok := shared.ParseUintQuery(c, "owner_id", false)
	if !ok {
		return
	}
	plans, err := h.PlanService.ListPlans(c.Request.Context(), teamID, ownerID)
	if err != nil {
		respondServiceError(c, err, "error.plan_fetch_failed")
		return
	}
	response.Success(c, plans)
}

// UpsertProfitSharePlan 新建方案；同一负责人同一生效日的方案原地替换
func (h *Handler) UpsertProfitSharePlan(c *gin.Context) {
	var req service.PlanUpsertInput
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, response.CodeBadRequest, "error.bad_request", err)
		return
	}
	plan, err := h.PlanService.Upsert(c.Request.Context(), req)
	if err != nil {
		respondServiceError(c, err, "error.plan_save_failed")
		return
	}
	adminID, _ := c.Get("admin_id")
	requestLog(c).Infow("admin_plan_upserted",
		"admin_id", adminID,
		"plan_id", plan.ID,
		"team_id", plan.TeamID,
		"owner_id", plan.OwnerID,
	)
	response.Success(c, plan)
}

// ResolveProfitSharePlan 查询负责人在某一时刻生效的方案
func (h *Handler) ResolveProfitSharePlan(c *gin.Context) {
	teamID, ok := parseTeamID(c)
	if !ok {
		return
	}
	ownerID, ok := shared.ParseUintQuery(c, "owner_id", true)
	if !ok {
		return
	}
	at, ok := parseInstant(c, c.Query("at"), h.PayoutService.Location(), h.PayoutService.Now())
	if !ok {
		return
	}
	plan, err := h.PlanService.Resolve(c.Request.Context(), ownerID, teamID, at)
	if err != nil {
		respondServiceError(c, err, "error.plan_fetch_failed")
		return
	}
	data := gin.H{
		"plan":       plan,
		"at":         at,
		"consistent": plan.Warning == nil,
	}
	if plan.Warning != nil {
		data["warning"] = plan.Warning.Error()
	}
	response.Success(c, data)
}

// DeactivateProfitSharePlan 停用方案
func (h *Handler) DeactivateProfitSharePlan(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	plan, err := h.PlanService.DeactivatePlan(c.Request.Context(), id)
	if err != nil {
		respondServiceError(c, err, "error.plan_save_failed")
		return
	}
	response.Success(c, plan)
}
