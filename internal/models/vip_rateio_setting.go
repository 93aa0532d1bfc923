package models

import (
	"time"

	"gorm.io/datatypes"
)

// VipRateioSetting VIP 月度分配配置（每个团队一行）
type VipRateioSetting struct {
	ID             uint                     `gorm:"primarykey" json:"id"`                       // 主键
	TeamID         uint                     `gorm:"not null;uniqueIndex" json:"team_id"`        // 所属团队
	OwnerShareBps  int64                    `gorm:"not null;default:0" json:"owner_share_bps"`  // 负责人份额（仅记录，实际为净额减其余员工份额）
	OthersShareBps int64                    `gorm:"not null;default:0" json:"others_share_bps"` // 其余员工份额（税后净额基点）
	TaxBps         int64                    `gorm:"not null;default:0" json:"tax_bps"`          // 税率基点（先于分配扣除）
	PayoutDays     datatypes.JSONSlice[int] `gorm:"type:json" json:"payout_days"`               // 每月付款日
	CreatedAt      time.Time                `gorm:"index" json:"created_at"`                    // 创建时间
	UpdatedAt      time.Time                `gorm:"index" json:"updated_at"`                    // 更新时间
}

// TableName 指定表名
func (VipRateioSetting) TableName() string {
	return "vip_rateio_settings"
}
