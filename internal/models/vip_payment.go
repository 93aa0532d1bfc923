package models

import (
	"time"

	"gorm.io/gorm"
)

// VipPayment VIP 渠道收款（订阅类收入），仅作为月度分配输入
type VipPayment struct {
	ID            uint      `gorm:"primarykey" json:"id"`                                       // 主键
	TeamID        uint      `gorm:"not null;index:idx_vip_payment_team_paid_at" json:"team_id"` // 所属团队
	AmountCents   int64     `gorm:"not null;default:0" json:"amount_cents"`                     // 收款金额（分）
	ResponsibleID uint      `gorm:"not null;index" json:"responsible_id"`                       // 负责员工ID
	Status        string    `gorm:"type:varchar(20);not null;index" json:"status"`              // 收款状态
	Description   string    `gorm:"type:varchar(255)" json:"description"`                       // 备注
	PaidAt        time.Time `gorm:"not null;index:idx_vip_payment_team_paid_at" json:"paid_at"` // 收款时间
	CreatedAt     time.Time `gorm:"index" json:"created_at"`                                    // 创建时间
	UpdatedAt     time.Time `gorm:"index" json:"updated_at"`                                    // 更新时间
}

// TableName 指定表名
func (VipPayment) TableName() string {
	return "vip_payments"
}

// BeforeSave 统一以 UTC 存储收款时间
func (p *VipPayment) BeforeSave(tx *gorm.DB) error {
	p.PaidAt = p.PaidAt.UTC()
	return nil
}
