package models

import "time"

// Team 团队（业务隔离范围）
type Team struct {
	ID        uint      `gorm:"primarykey" json:"id"`                   // 主键
	Name      string    `gorm:"type:varchar(120);not null" json:"name"` // 团队名称
	CreatedAt time.Time `gorm:"index" json:"created_at"`                // 创建时间
	UpdatedAt time.Time `gorm:"index" json:"updated_at"`                // 更新时间
}

// TableName 指定表名
func (Team) TableName() string {
	return "teams"
}
