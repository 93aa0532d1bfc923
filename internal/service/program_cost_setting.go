package service

import (
	"strings"

	"github.com/milhas-next/internal/constants"
	"github.com/milhas-next/internal/models"
)

// ProgramCostSetting 各积分项目默认每千积分成本（分）
// 仅在采购批次未提供成本时使用
type ProgramCostSetting struct {
	CostMilheiroCents map[string]int64 `json:"cost_milheiro_cents"`
}

// ProgramCostDefaultSetting 默认成本配置（全部为 0）
func ProgramCostDefaultSetting() ProgramCostSetting {
	return NormalizeProgramCostSetting(ProgramCostSetting{})
}

// NormalizeProgramCostSetting 归一化：项目名大写，补齐所有已知项目，丢弃未知项目
func NormalizeProgramCostSetting(setting ProgramCostSetting) ProgramCostSetting {
	normalized := make(map[string]int64, len(constants.Programs))
	for _, program := range constants.Programs {
		normalized[program] = 0
	}
	for program, cost := range setting.CostMilheiroCents {
		key := strings.ToUpper(strings.TrimSpace(program))
		if _, ok := normalized[key]; !ok {
			continue
		}
		normalized[key] = cost
	}
	return ProgramCostSetting{CostMilheiroCents: normalized}
}

// ValidateProgramCostSetting 校验成本配置
func ValidateProgramCostSetting(setting ProgramCostSetting) error {
	for program, cost := range setting.CostMilheiroCents {
		key := strings.ToUpper(strings.TrimSpace(program))
		if !isKnownProgram(key) {
			return newValidationError("cost_milheiro_cents", "unknown program %s", program)
		}
		if cost < 0 {
			return newValidationError("cost_milheiro_cents", "cost for %s must be non-negative", key)
		}
	}
	return nil
}

// CostFor 获取项目默认成本，未知项目返回 0
func (s ProgramCostSetting) CostFor(program string) int64 {
	return s.CostMilheiroCents[strings.ToUpper(strings.TrimSpace(program))]
}

// ProgramCostSettingToMap 转换为 settings 存储结构
func ProgramCostSettingToMap(setting ProgramCostSetting) map[string]interface{} {
	normalized := NormalizeProgramCostSetting(setting)
	costs := make(map[string]interface{}, len(normalized.CostMilheiroCents))
	for program, cost := range normalized.CostMilheiroCents {
		costs[program] = cost
	}
	return map[string]interface{}{
		"cost_milheiro_cents": costs,
	}
}

func programCostSettingFromJSON(raw models.JSON, fallback ProgramCostSetting) ProgramCostSetting {
	result := NormalizeProgramCostSetting(fallback)
	costsRaw, ok := raw["cost_milheiro_cents"].(map[string]interface{})
	if !ok {
		return result
	}
	for program, value := range costsRaw {
		key := strings.ToUpper(strings.TrimSpace(program))
		if !isKnownProgram(key) {
			continue
		}
		if parsed, err := parseSettingCents(value); err == nil && parsed >= 0 {
			result.CostMilheiroCents[key] = parsed
		}
	}
	return result
}

func isKnownProgram(program string) bool {
	for _, known := range constants.Programs {
		if known == program {
			return true
		}
	}
	return false
}

// GetProgramCostSetting 获取项目默认成本（优先 settings，空时回退默认）
func (s *SettingService) GetProgramCostSetting() (ProgramCostSetting, error) {
	fallback := ProgramCostDefaultSetting()
	if s == nil {
		return fallback, nil
	}
	value, err := s.GetByKey(constants.SettingKeyProgramCostConfig)
	if err != nil {
		return fallback, err
	}
	if value == nil {
		return fallback, nil
	}
	return programCostSettingFromJSON(value, fallback), nil
}

// UpdateProgramCostSetting 校验并保存项目默认成本
func (s *SettingService) UpdateProgramCostSetting(setting ProgramCostSetting) (ProgramCostSetting, error) {
	if err := ValidateProgramCostSetting(setting); err != nil {
		return ProgramCostSetting{}, err
	}
	normalized := NormalizeProgramCostSetting(setting)
	if _, err := s.Update(constants.SettingKeyProgramCostConfig, ProgramCostSettingToMap(normalized)); err != nil {
		return ProgramCostSetting{}, err
	}
	return normalized, nil
}

// ResetProgramCostSetting 清除已保存的项目成本，恢复默认值
func (s *SettingService) ResetProgramCostSetting() (ProgramCostSetting, error) {
	if _, err := s.repo.Reset(constants.SettingKeyProgramCostConfig); err != nil {
		return ProgramCostSetting{}, err
	}
	return ProgramCostDefaultSetting(), nil
}
