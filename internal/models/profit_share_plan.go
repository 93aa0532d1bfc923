package models

import (
	"time"

	"gorm.io/gorm"
)

// ProfitSharePlan 账户负责人的分润方案（按时间生效，同一负责人任一时刻至多一个生效）
type ProfitSharePlan struct {
	ID            uint       `gorm:"primarykey" json:"id"`                                     // 主键
	TeamID        uint       `gorm:"not null;index" json:"team_id"`                            // 所属团队
	OwnerID       uint       `gorm:"not null;index:idx_plan_owner_from" json:"owner_id"`       // 负责员工ID
	IsActive      bool       `gorm:"not null;default:true" json:"is_active"`                   // 是否启用
	EffectiveFrom time.Time  `gorm:"not null;index:idx_plan_owner_from" json:"effective_from"` // 生效开始（含）
	EffectiveTo   *time.Time `gorm:"index" json:"effective_to"`                                // 生效结束（不含），为空表示长期有效
	CreatedAt     time.Time  `gorm:"index" json:"created_at"`                                  // 创建时间
	UpdatedAt     time.Time  `gorm:"index" json:"updated_at"`                                  // 更新时间

	Items []ProfitSharePlanItem `gorm:"foreignKey:PlanID" json:"items"` // 分润明细
}

// TableName 指定表名
func (ProfitSharePlan) TableName() string {
	return "profit_share_plans"
}

// TotalBps 合计基点
func (p *ProfitSharePlan) TotalBps() int64 {
	if p == nil {
		return 0
	}
	var total int64
	for _, item := range p.Items {
		total += item.Bps
	}
	return total
}

// CoversInstant 判断方案是否覆盖某一时刻：from <= at 且 (to 为空 或 at < to)
func (p *ProfitSharePlan) CoversInstant(at time.Time) bool {
	if p == nil {
		return false
	}
	if at.Before(p.EffectiveFrom) {
		return false
	}
	return p.EffectiveTo == nil || at.Before(*p.EffectiveTo)
}

// ProfitSharePlanItem 分润明细项
type ProfitSharePlanItem struct {
	ID       uint  `gorm:"primarykey" json:"id"`               // 主键
	PlanID   uint  `gorm:"not null;index" json:"plan_id"`      // 方案ID
	PayeeID  uint  `gorm:"not null" json:"payee_id"`           // 收款员工ID
	Bps      int64 `gorm:"not null" json:"bps"`                // 基点（0-10000）
	Position int   `gorm:"not null;default:0" json:"position"` // 输入顺序
}

// TableName 指定表名
func (ProfitSharePlanItem) TableName() string {
	return "profit_share_plan_items"
}

// BeforeSave 统一以 UTC 存储生效区间
func (p *ProfitSharePlan) BeforeSave(tx *gorm.DB) error {
	p.EffectiveFrom = p.EffectiveFrom.UTC()
	if p.EffectiveTo != nil {
		to := p.EffectiveTo.UTC()
		p.EffectiveTo = &to
	}
	return nil
}
