package service

import (
	"github.com/milhas-next/internal/constants"
	"github.com/milhas-next/internal/models"

	"github.com/shopspring/decimal"
)

const (
	// DefaultFlatRateBps 固定佣金 1%
	DefaultFlatRateBps int64 = 100
	// DefaultBonusRateBps 超额奖金 30%
	DefaultBonusRateBps int64 = 3000
)

// SaleInput 单笔销售的计算输入
// 预计算字段为 nil 表示未提供，需要由原始字段推导
type SaleInput struct {
	SaleID                      uint
	Program                     string
	Points                      int64
	MilheiroCents               int64
	FeeCents                    int64
	TargetMilheiroCents         int64
	PurchaseTargetMilheiroCents int64
	PurchaseCostMilheiroCents   int64
	PointsValueCents            *int64
	CommissionCents             *int64
	BonusCents                  *int64
}

// SaleInputFromModel 在读取存储数据的边界把“0 表示未计算”转换为可选值
func SaleInputFromModel(sale *models.Sale) SaleInput {
	input := SaleInput{
		SaleID:              sale.ID,
		Program:             sale.Program,
		Points:              sale.Points,
		MilheiroCents:       sale.MilheiroCents,
		FeeCents:            sale.FeeCents,
		TargetMilheiroCents: sale.TargetMilheiroCents,
		PointsValueCents:    models.PositiveCents(sale.PointsValueCents),
		CommissionCents:     models.PositiveCents(sale.CommissionCents),
		BonusCents:          models.PositiveCents(sale.BonusCents),
	}
	if sale.Purchase != nil {
		input.PurchaseTargetMilheiroCents = sale.Purchase.TargetMilheiroCents
		input.PurchaseCostMilheiroCents = sale.Purchase.CostMilheiroCents
	}
	return input
}

// SaleCommission 单笔销售的佣金拆解
type SaleCommission struct {
	SaleID                  uint  `json:"sale_id"`
	PointsValueCents        int64 `json:"points_value_cents"`
	MilheiroWithoutFeeCents int64 `json:"milheiro_without_fee_cents"`
	FlatCommissionCents     int64 `json:"flat_commission_cents"`
	BonusCommissionCents    int64 `json:"bonus_commission_cents"`
	TargetMilheiroCents     int64 `json:"target_milheiro_cents"`
	CostMilheiroCents       int64 `json:"cost_milheiro_cents"`
	CostCents               int64 `json:"cost_cents"`
	ProfitCents             int64 `json:"profit_cents"`
	FeeCents                int64 `json:"fee_cents"`
}

// Pool 可分润金额：max(0, 利润 - 固定佣金 - 超额奖金)
func (c SaleCommission) Pool() int64 {
	return models.MaxCents(0, c.ProfitCents-c.FlatCommissionCents-c.BonusCommissionCents)
}

// CommissionCalculator 单笔销售佣金计算器
type CommissionCalculator struct {
	FlatRateBps  int64
	BonusRateBps int64
	costs        ProgramCostSetting
}

// NewCommissionCalculator 创建计算器，比例为 0 时使用默认值
func NewCommissionCalculator(flatRateBps, bonusRateBps int64, costs ProgramCostSetting) *CommissionCalculator {
	if flatRateBps <= 0 {
		flatRateBps = DefaultFlatRateBps
	}
	if bonusRateBps <= 0 {
		bonusRateBps = DefaultBonusRateBps
	}
	return &CommissionCalculator{
		FlatRateBps:  flatRateBps,
		BonusRateBps: bonusRateBps,
		costs:        NormalizeProgramCostSetting(costs),
	}
}

// Calculate 计算单笔销售的积分净值、固定佣金、超额奖金与利润
// 推导值一律四舍五入（远离 0），金额单位为分。
func (c *CommissionCalculator) Calculate(in SaleInput) (SaleCommission, error) {
	if err := validateSaleInput(in); err != nil {
		return SaleCommission{}, err
	}
	out := SaleCommission{SaleID: in.SaleID, FeeCents: in.FeeCents}

	if in.PointsValueCents != nil {
		out.PointsValueCents = *in.PointsValueCents
	} else {
		gross := perMilheiro(in.Points, in.MilheiroCents)
		out.PointsValueCents = models.MaxCents(0, gross-in.FeeCents)
	}

	// 除以零：无积分时单价视为 0
	if in.Points > 0 {
		out.MilheiroWithoutFeeCents = decimal.NewFromInt(out.PointsValueCents).
			Mul(decimal.NewFromInt(constants.PointsPerMilheiro)).
			DivRound(decimal.NewFromInt(in.Points), 0).
			IntPart()
	}

	if in.CommissionCents != nil {
		out.FlatCommissionCents = *in.CommissionCents
	} else {
		out.FlatCommissionCents = applyBps(out.PointsValueCents, c.FlatRateBps)
	}

	switch {
	case in.TargetMilheiroCents > 0:
		out.TargetMilheiroCents = in.TargetMilheiroCents
	case in.PurchaseTargetMilheiroCents > 0:
		out.TargetMilheiroCents = in.PurchaseTargetMilheiroCents
	}
	if in.BonusCents != nil {
		out.BonusCommissionCents = *in.BonusCents
	} else if out.TargetMilheiroCents > 0 && out.MilheiroWithoutFeeCents > out.TargetMilheiroCents {
		excess := perMilheiro(in.Points, out.MilheiroWithoutFeeCents-out.TargetMilheiroCents)
		out.BonusCommissionCents = applyBps(excess, c.BonusRateBps)
	}

	out.CostMilheiroCents = in.PurchaseCostMilheiroCents
	if out.CostMilheiroCents <= 0 {
		out.CostMilheiroCents = c.costs.CostFor(in.Program)
	}
	out.CostCents = perMilheiro(in.Points, out.CostMilheiroCents)
	out.ProfitCents = out.PointsValueCents - out.CostCents
	return out, nil
}

func validateSaleInput(in SaleInput) error {
	switch {
	case in.Points < 0:
		return newValidationError("points", "sale %d has negative points", in.SaleID)
	case in.MilheiroCents < 0:
		return newValidationError("milheiro_cents", "sale %d has negative milheiro", in.SaleID)
	case in.FeeCents < 0:
		return newValidationError("fee_cents", "sale %d has negative fee", in.SaleID)
	case in.TargetMilheiroCents < 0, in.PurchaseTargetMilheiroCents < 0:
		return newValidationError("target_milheiro_cents", "sale %d has negative target", in.SaleID)
	case in.PurchaseCostMilheiroCents < 0:
		return newValidationError("cost_milheiro_cents", "sale %d has negative cost", in.SaleID)
	}
	precomputed := []struct {
		field string
		value *int64
	}{
		{"points_value_cents", in.PointsValueCents},
		{"commission_cents", in.CommissionCents},
		{"bonus_cents", in.BonusCents},
	}
	for _, item := range precomputed {
		if item.value != nil && *item.value < 0 {
			return newValidationError(item.field, "sale %d has negative precomputed value", in.SaleID)
		}
	}
	return nil
}

// perMilheiro round(points/1000 * rate)
func perMilheiro(points, rateCents int64) int64 {
	return decimal.NewFromInt(points).
		Mul(decimal.NewFromInt(rateCents)).
		DivRound(decimal.NewFromInt(constants.PointsPerMilheiro), 0).
		IntPart()
}

// applyBps round(amount * bps / 10000)
func applyBps(amount, bps int64) int64 {
	return decimal.NewFromInt(amount).
		Mul(decimal.NewFromInt(bps)).
		DivRound(decimal.NewFromInt(constants.BpsScale), 0).
		IntPart()
}
