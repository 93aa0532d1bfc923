package admin

import (
	"github.com/milhas-next/internal/http/response"
	"github.com/milhas-next/internal/service"

	"github.com/gin-gonic/gin"
)

// GetProgramCostSetting 获取各积分项目默认成本
func (h *Handler) GetProgramCostSetting(c *gin.Context) {
	setting, err := h.SettingService.GetProgramCostSetting()
	if err != nil {
		respondServiceError(c, err, "error.setting_fetch_failed")
		return
	}
	response.Success(c, setting)
}

// UpdateProgramCostSetting 更新各积分项目默认成本
func (h *Handler) UpdateProgramCostSetting(c *gin.Context) {
	var req service.ProgramCostSetting
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, response.CodeBadRequest, "error.bad_request", err)
		return
	}
	setting, err := h.SettingService.UpdateProgramCostSetting(req)
	if err != nil {
		respondServiceError(c, err, "error.setting_update_failed")
		return
	}
	requestLog(c).Infow("admin_program_cost_updated", "costs", setting.CostMilheiroCents)
	response.Success(c, setting)
}

// ResetProgramCostSetting 恢复各积分项目默认成本
func (h *Handler) ResetProgramCostSetting(c *gin.Context) {
	setting, err := h.SettingService.ResetProgramCostSetting()
	if err != nil {
		respondServiceError(c, err, "error.setting_update_failed")
		return
	}
	requestLog(c).Infow("admin_program_cost_reset")
	response.Success(c, setting)
}
