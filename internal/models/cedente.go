package models

import "time"

// Cedente 积分账户持有人，每个账户归属一名员工
type Cedente struct {
	ID        uint      `gorm:"primarykey" json:"id"`                   // 主键
	TeamID    uint      `gorm:"not null;index" json:"team_id"`          // 所属团队
	OwnerID   uint      `gorm:"not null;index" json:"owner_id"`         // 负责员工ID
	Name      string    `gorm:"type:varchar(120);not null" json:"name"` // 持有人姓名
	Document  string    `gorm:"type:varchar(32);index" json:"document"` // 证件号
	CreatedAt time.Time `gorm:"index" json:"created_at"`                // 创建时间
	UpdatedAt time.Time `gorm:"index" json:"updated_at"`                // 更新时间
}

// TableName 指定表名
func (Cedente) TableName() string {
	return "cedentes"
}
