package models

import (
	"time"

	"gorm.io/gorm"
)

// Sale 积分销售记录（财务事实，仅取消时修改状态）
type Sale struct {
	ID                  uint      `gorm:"primarykey" json:"id"`                                  // 主键
	TeamID              uint      `gorm:"not null;index:idx_sale_team_sold_at" json:"team_id"`   // 所属团队
	CedenteID           uint      `gorm:"not null;index" json:"cedente_id"`                      // 积分账户ID
	SellerID            uint      `gorm:"not null;index" json:"seller_id"`                       // 销售员工ID
	PurchaseID          *uint     `gorm:"index" json:"purchase_id,omitempty"`                    // 采购批次ID
	Program             string    `gorm:"type:varchar(20);not null" json:"program"`              // 积分项目
	Points              int64     `gorm:"not null;default:0" json:"points"`                      // 积分数量
	MilheiroCents       int64     `gorm:"not null;default:0" json:"milheiro_cents"`              // 每千积分售价（分）
	FeeCents            int64     `gorm:"not null;default:0" json:"fee_cents"`                   // 登机费报销（分）
	TargetMilheiroCents int64     `gorm:"not null;default:0" json:"target_milheiro_cents"`       // 销售级目标单价（分），0 表示未设置
	PointsValueCents    int64     `gorm:"not null;default:0" json:"points_value_cents"`          // 预计算积分净值（分），0 表示未计算
	CommissionCents     int64     `gorm:"not null;default:0" json:"commission_cents"`            // 预计算固定佣金（分），0 表示未计算
	BonusCents          int64     `gorm:"not null;default:0" json:"bonus_cents"`                 // 预计算超额奖金（分），0 表示未计算
	PaymentStatus       string    `gorm:"type:varchar(20);not null;index" json:"payment_status"` // 支付状态
	SoldAt              time.Time `gorm:"not null;index:idx_sale_team_sold_at" json:"sold_at"`   // 销售时间
	CreatedAt           time.Time `gorm:"index" json:"created_at"`                               // 创建时间
	UpdatedAt           time.Time `gorm:"index" json:"updated_at"`                               // 更新时间

	Cedente  *Cedente  `gorm:"foreignKey:CedenteID" json:"cedente,omitempty"`   // 积分账户
	Purchase *Purchase `gorm:"foreignKey:PurchaseID" json:"purchase,omitempty"` // 采购批次
}

// TableName 指定表名
func (Sale) TableName() string {
	return "sales"
}

// BeforeSave 统一以 UTC 存储时间，保证跨时区区间查询一致
func (s *Sale) BeforeSave(tx *gorm.DB) error {
	s.SoldAt = s.SoldAt.UTC()
	return nil
}
