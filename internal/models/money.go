package models

// 金额统一使用 int64 表示最小货币单位（分），不使用浮点数。

// PositiveCents 将存储层的“0 表示未预计算”转换为可选值
// 仅在读取存储数据的边界调用一次，业务逻辑只处理 nil / 非 nil。
func PositiveCents(value int64) *int64 {
	if value <= 0 {
		return nil
	}
	v := value
	return &v
}

// CentsOrZero 读取可选金额，缺省为 0
func CentsOrZero(value *int64) int64 {
	if value == nil {
		return 0
	}
	return *value
}

// MaxCents 返回两者较大值
func MaxCents(a, b int64) int64 {
	if a > b {
		return a
	}
	return b
}
