package constants

// 销售支付状态常量
const (
	SalePaymentStatusPending  = "PENDING"
	SalePaymentStatusPaid     = "PAID"
	SalePaymentStatusCanceled = "CANCELED"
)

// 里程计划（航空积分项目）常量
const (
	ProgramLatam  = "LATAM"
	ProgramSmiles = "SMILES"
	ProgramAzul   = "AZUL"
	ProgramTap    = "TAP"
)

// Programs 支持的积分项目（顺序固定）
var Programs = []string{ProgramLatam, ProgramSmiles, ProgramAzul, ProgramTap}

// 员工状态常量
const (
	EmployeeStatusActive   = "active"
	EmployeeStatusDisabled = "disabled"
)

// VIP 收款状态常量
const (
	VipPaymentStatusPending  = "PENDING"
	VipPaymentStatusPaid     = "PAID"
	VipPaymentStatusCanceled = "CANCELED"
)

// 金额与比例常量
const (
	BpsScale          = 10000 // 10000 bps = 100%
	PointsPerMilheiro = 1000
)

// 队列与任务常量
const (
	QueueDefault               = "default"
	QueueCritical              = "critical"
	TaskPayoutDailyRecompute   = "payout:daily_recompute"
	TaskVipMonthlyDistribution = "vip:monthly_distribution"
)

// 设置键常量
const (
	SettingKeyProgramCostConfig = "program_cost_config"
)

// 日期格式常量
const (
	DateLayout  = "2006-01-02"
	MonthLayout = "2006-01"
)
