package service

import (
	"context"
	"strings"
	"time"

	"github.com/milhas-next/internal/allocation"
	"github.com/milhas-next/internal/constants"
	"github.com/milhas-next/internal/logger"
	"github.com/milhas-next/internal/models"
	"github.com/milhas-next/internal/repository"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// ResolvedPlan 某一时刻生效的分润方案
type ResolvedPlan struct {
	PlanID    uint                `json:"plan_id"` // 0 表示默认方案
	OwnerID   uint                `json:"owner_id"`
	IsDefault bool                `json:"is_default"`
	Shares    []allocation.Share  `json:"shares"`
	Warning   *ConsistencyWarning `json:"-"`
}

// DefaultPlan 默认方案：100% 归负责人本人
func DefaultPlan(ownerID uint) *ResolvedPlan {
	return &ResolvedPlan{
		OwnerID:   ownerID,
		IsDefault: true,
		Shares:    []allocation.Share{{Key: ownerID, Bps: constants.BpsScale}},
	}
}

// PlanItemInput 分润明细输入，percent 按 percent*100 四舍五入转换为基点
type PlanItemInput struct {
	PayeeID uint            `json:"payee_id" validate:"required"`
	Percent decimal.Decimal `json:"percent"`
}

// PlanUpsertInput 创建或替换分润方案
type PlanUpsertInput struct {
	TeamID        uint            `json:"team_id" validate:"required"`
	OwnerID       uint            `json:"owner_id" validate:"required"`
	EffectiveFrom string          `json:"effective_from" validate:"required,datetime=2006-01-02"`
	Items         []PlanItemInput `json:"items" validate:"required,min=1,dive"`
}

// ProfitSharePlanService 分润方案服务
type ProfitSharePlanService struct {
	repo         repository.ProfitSharePlanRepository
	employeeRepo repository.EmployeeRepository
	location     *time.Location
}

// NewProfitSharePlanService 创建分润方案服务
func NewProfitSharePlanService(repo repository.ProfitSharePlanRepository, employeeRepo repository.EmployeeRepository, location *time.Location) *ProfitSharePlanService {
	if location == nil {
		location = time.UTC
	}
	return &ProfitSharePlanService{
		repo:         repo,
		employeeRepo: employeeRepo,
		location:     location,
	}
}

// Resolve 解析负责人在某一时刻生效的方案；无方案或方案不合法时返回默认方案
func (s *ProfitSharePlanService) Resolve(ctx context.Context, ownerID, teamID uint, at time.Time) (*ResolvedPlan, error) {
	return s.resolve(ctx, s.repo, ownerID, teamID, at)
}

func (s *ProfitSharePlanService) resolve(ctx context.Context, repo repository.ProfitSharePlanRepository, ownerID, teamID uint, at time.Time) (*ResolvedPlan, error) {
	plan, err := repo.FindEffective(teamID, ownerID, at)
	if err != nil {
		return nil, err
	}
	if plan == nil {
		return DefaultPlan(ownerID), nil
	}
	if warning := checkPlanConsistency(plan); warning != nil {
		logger.Ctx(ctx).Warnw("plan_consistency_warning",
			"plan_id", plan.ID,
			"owner_id", ownerID,
			"team_id", teamID,
			"items", warning.Items,
			"total_bps", warning.TotalBps,
		)
		fallback := DefaultPlan(ownerID)
		fallback.Warning = warning
		return fallback, nil
	}
	resolved := &ResolvedPlan{PlanID: plan.ID, OwnerID: ownerID, Shares: make([]allocation.Share, 0, len(plan.Items))}
	for _, item := range plan.Items {
		resolved.Shares = append(resolved.Shares, allocation.Share{Key: item.PayeeID, Bps: item.Bps})
	}
	return resolved, nil
}

// checkPlanConsistency 历史方案可能无明细或合计不为 10000
func checkPlanConsistency(plan *models.ProfitSharePlan) *ConsistencyWarning {
	warning := &ConsistencyWarning{PlanID: plan.ID, OwnerID: plan.OwnerID, TotalBps: plan.TotalBps(), Items: len(plan.Items)}
	if len(plan.Items) == 0 || warning.TotalBps != constants.BpsScale {
		return warning
	}
	seen := make(map[uint]struct{}, len(plan.Items))
	for _, item := range plan.Items {
		if item.Bps < 0 || item.Bps > constants.BpsScale {
			return warning
		}
		if _, ok := seen[item.PayeeID]; ok {
			return warning
		}
		seen[item.PayeeID] = struct{}{}
	}
	return nil
}

// Upsert 创建或替换方案：关闭前一方案、衔接后一方案，整体在一个事务内完成
func (s *ProfitSharePlanService) Upsert(ctx context.Context, input PlanUpsertInput) (*models.ProfitSharePlan, error) {
	if err := validateStruct(input); err != nil {
		return nil, err
	}
	from, err := time.ParseInLocation(constants.DateLayout, strings.TrimSpace(input.EffectiveFrom), s.location)
	if err != nil {
		return nil, newValidationError("effective_from", "invalid date %q", input.EffectiveFrom)
	}
	items, err := planItemsFromInput(input.Items)
	if err != nil {
		return nil, err
	}
	if err := s.ensureTeamMembers(input.TeamID, input.OwnerID, items); err != nil {
		return nil, err
	}

	var planID uint
	err = s.repo.Transaction(func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)

		predecessor, err := repo.FindPredecessor(input.TeamID, input.OwnerID, from)
		if err != nil {
			return err
		}
		if predecessor != nil {
			predecessor.EffectiveTo = &from
			if err := repo.Update(predecessor); err != nil {
				return err
			}
		}

		var effectiveTo *time.Time
		successor, err := repo.FindSuccessor(input.TeamID, input.OwnerID, from)
		if err != nil {
			return err
		}
		if successor != nil {
			next := successor.EffectiveFrom
			effectiveTo = &next
		}

		existing, err := repo.FindByEffectiveFrom(input.TeamID, input.OwnerID, from)
		if err != nil {
			return err
		}
		if existing != nil {
			existing.EffectiveTo = effectiveTo
			if err := repo.Update(existing); err != nil {
				return err
			}
			if err := repo.ReplaceItems(existing.ID, items); err != nil {
				return err
			}
			planID = existing.ID
			return nil
		}

		plan := &models.ProfitSharePlan{
			TeamID:        input.TeamID,
			OwnerID:       input.OwnerID,
			IsActive:      true,
			EffectiveFrom: from,
			EffectiveTo:   effectiveTo,
			Items:         items,
		}
		if err := repo.Create(plan); err != nil {
			return err
		}
		planID = plan.ID
		return nil
	})
	if err != nil {
		return nil, err
	}

	logger.Ctx(ctx).Infow("plan_upserted",
		"plan_id", planID,
		"team_id", input.TeamID,
		"owner_id", input.OwnerID,
		"effective_from", input.EffectiveFrom,
	)
	return s.repo.GetByID(planID)
}

func planItemsFromInput(inputs []PlanItemInput) ([]models.ProfitSharePlanItem, error) {
	hundred := decimal.NewFromInt(100)
	items := make([]models.ProfitSharePlanItem, 0, len(inputs))
	seen := make(map[uint]struct{}, len(inputs))
	var total int64
	for i, input := range inputs {
		if _, ok := seen[input.PayeeID]; ok {
			return nil, newValidationError("items", "duplicate payee %d", input.PayeeID)
		}
		seen[input.PayeeID] = struct{}{}
		bps := input.Percent.Mul(hundred).Round(0).IntPart()
		if bps < 0 || bps > constants.BpsScale {
			return nil, newValidationError("items", "payee %d percent out of range", input.PayeeID)
		}
		total += bps
		items = append(items, models.ProfitSharePlanItem{PayeeID: input.PayeeID, Bps: bps, Position: i})
	}
	if total != constants.BpsScale {
		return nil, newValidationError("items", "bps must sum to %d, got %d", constants.BpsScale, total)
	}
	return items, nil
}

func (s *ProfitSharePlanService) ensureTeamMembers(teamID, ownerID uint, items []models.ProfitSharePlanItem) error {
	ids := []uint{ownerID}
	seen := map[uint]struct{}{ownerID: {}}
	for _, item := range items {
		if _, ok := seen[item.PayeeID]; ok {
			continue
		}
		seen[item.PayeeID] = struct{}{}
		ids = append(ids, item.PayeeID)
	}
	count, err := s.employeeRepo.CountInTeam(teamID, ids)
	if err != nil {
		return err
	}
	if count != int64(len(ids)) {
		return newValidationError("items", "owner or payee outside team %d", teamID)
	}
	return nil
}

// ListPlans 方案历史（按生效开始倒序），ownerID 为 0 时返回团队全部方案
func (s *ProfitSharePlanService) ListPlans(ctx context.Context, teamID, ownerID uint) ([]models.ProfitSharePlan, error) {
	if teamID == 0 {
		return nil, newValidationError("team_id", "required")
	}
	return s.repo.ListByOwner(teamID, ownerID)
}

// DeactivatePlan 停用方案，解析时跳过
func (s *ProfitSharePlanService) DeactivatePlan(ctx context.Context, id uint) (*models.ProfitSharePlan, error) {
	plan, err := s.repo.GetByID(id)
	if err != nil {
		return nil, err
	}
	if plan == nil {
		return nil, &NotFoundError{Entity: "profit_share_plan", ID: id}
	}
	if !plan.IsActive {
		return plan, nil
	}
	plan.IsActive = false
	if err := s.repo.Update(plan); err != nil {
		return nil, err
	}
	logger.Ctx(ctx).Infow("plan_deactivated", "plan_id", id, "owner_id", plan.OwnerID)
	return plan, nil
}
