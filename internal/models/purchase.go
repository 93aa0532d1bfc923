package models

import "time"

// Purchase 积分采购批次，提供成本与目标单价
type Purchase struct {
	ID                  uint      `gorm:"primarykey" json:"id"`                            // 主键
	TeamID              uint      `gorm:"not null;index" json:"team_id"`                   // 所属团队
	CedenteID           uint      `gorm:"not null;index" json:"cedente_id"`                // 积分账户ID
	Program             string    `gorm:"type:varchar(20);not null" json:"program"`        // 积分项目
	Points              int64     `gorm:"not null;default:0" json:"points"`                // 采购积分数
	CostMilheiroCents   int64     `gorm:"not null;default:0" json:"cost_milheiro_cents"`   // 每千积分成本（分），0 表示未设置
	TargetMilheiroCents int64     `gorm:"not null;default:0" json:"target_milheiro_cents"` // 每千积分目标售价（分），0 表示未设置
	PurchasedAt         time.Time `gorm:"index" json:"purchased_at"`                       // 采购时间
	CreatedAt           time.Time `gorm:"index" json:"created_at"`                         // 创建时间
	UpdatedAt           time.Time `gorm:"index" json:"updated_at"`                         // 更新时间
}

// TableName 指定表名
func (Purchase) TableName() string {
	return "purchases"
}
