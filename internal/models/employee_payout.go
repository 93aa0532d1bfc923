package models

import "time"

// EmployeePayout 员工日结佣金快照（团队+日期+员工唯一，标记已付后冻结）
type EmployeePayout struct {
	ID                   uint       `gorm:"primarykey" json:"id"`                                                         // 主键
	TeamID               uint       `gorm:"not null;uniqueIndex:idx_employee_payout_unique" json:"team_id"`               // 所属团队
	PayoutDate           string     `gorm:"type:varchar(10);not null;uniqueIndex:idx_employee_payout_unique" json:"date"` // 结算日（业务时区，YYYY-MM-DD）
	UserID               uint       `gorm:"not null;uniqueIndex:idx_employee_payout_unique;index" json:"user_id"`         // 员工ID
	GrossCents           int64      `gorm:"not null;default:0" json:"gross_cents"`                                        // 税前佣金合计
	TaxCents             int64      `gorm:"not null;default:0" json:"tax_cents"`                                          // 代扣税
	FeeCents             int64      `gorm:"not null;default:0" json:"fee_cents"`                                          // 登机费报销（不计税不分润）
	NetCents             int64      `gorm:"not null;default:0" json:"net_cents"`                                          // 实发金额
	FlatCommissionCents  int64      `gorm:"not null;default:0" json:"flat_commission_cents"`                              // 固定佣金
	BonusCommissionCents int64      `gorm:"not null;default:0" json:"bonus_commission_cents"`                             // 超额奖金
	PoolShareCents       int64      `gorm:"not null;default:0" json:"pool_share_cents"`                                   // 利润池分润
	SaleCount            int        `gorm:"not null;default:0" json:"sale_count"`                                         // 销售笔数
	PaidAt               *time.Time `gorm:"index" json:"paid_at"`                                                         // 付款时间
	PaidBy               *uint      `gorm:"index" json:"paid_by"`                                                         // 付款操作人
	CreatedAt            time.Time  `gorm:"index" json:"created_at"`                                                      // 创建时间
	UpdatedAt            time.Time  `gorm:"index" json:"updated_at"`                                                      // 更新时间
}

// TableName 指定表名
func (EmployeePayout) TableName() string {
	return "employee_payouts"
}

// IsPaid 已标记付款的记录不可再被重算覆盖
func (p *EmployeePayout) IsPaid() bool {
	return p != nil && p.PaidBy != nil
}

// SameFinancials 判断财务字段是否一致
func (p *EmployeePayout) SameFinancials(other *EmployeePayout) bool {
	if p == nil || other == nil {
		return p == other
	}
	return p.GrossCents == other.GrossCents &&
		p.TaxCents == other.TaxCents &&
		p.FeeCents == other.FeeCents &&
		p.NetCents == other.NetCents &&
		p.FlatCommissionCents == other.FlatCommissionCents &&
		p.BonusCommissionCents == other.BonusCommissionCents &&
		p.PoolShareCents == other.PoolShareCents &&
		p.SaleCount == other.SaleCount
}
