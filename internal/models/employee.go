package models

import "time"

// Employee 员工（卖家、账户负责人、分润收款人）
type Employee struct {
	ID        uint      `gorm:"primarykey" json:"id"`                          // 主键
	TeamID    uint      `gorm:"not null;index" json:"team_id"`                 // 所属团队
	Name      string    `gorm:"type:varchar(120);not null" json:"name"`        // 姓名
	Email     string    `gorm:"type:varchar(255);index" json:"email"`          // 邮箱
	Status    string    `gorm:"type:varchar(20);not null;index" json:"status"` // 状态
	CreatedAt time.Time `gorm:"index" json:"created_at"`                       // 创建时间
	UpdatedAt time.Time `gorm:"index" json:"updated_at"`                       // 更新时间
}

// TableName 指定表名
func (Employee) TableName() string {
	return "employees"
}
