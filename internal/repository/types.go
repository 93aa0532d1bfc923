package repository

// PayoutListFilter 查询日结佣金列表的过滤条件
type PayoutListFilter struct {
	Page     int
	PageSize int
	TeamID   uint
	Date     string // 单日（YYYY-MM-DD）
	DateFrom string // 起始日（含）
	DateTo   string // 结束日（含）
	UserID   uint
	Paid     *bool
}

// VipPaymentListFilter 查询 VIP 收款列表的过滤条件
type VipPaymentListFilter struct {
	Page          int
	PageSize      int
	TeamID        uint
	ResponsibleID uint
	Status        string
}
