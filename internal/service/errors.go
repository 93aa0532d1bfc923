package service

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrValidation 输入校验失败，写入前拒绝
	ErrValidation = errors.New("validation failed")
	// ErrNotFound 引用的记录不存在
	ErrNotFound = errors.New("not found")
	// ErrConsistency 历史数据不一致（已回退处理）
	ErrConsistency = errors.New("consistency warning")
	// ErrPayoutAlreadyPaid 日结记录已标记付款
	ErrPayoutAlreadyPaid = errors.New("payout already paid")
	// ErrPayoutRunInProgress 同一团队同一日的重算正在进行
	ErrPayoutRunInProgress = errors.New("payout run in progress")
	// ErrInvalidCredentials 账号或密码错误
	ErrInvalidCredentials = errors.New("invalid credentials")
	// ErrConservationViolated 分配结果与总额不一致
	ErrConservationViolated = errors.New("distribution conservation violated")
	// ErrQueueUnavailable 异步队列未启用
	ErrQueueUnavailable = errors.New("queue unavailable")
)

// ValidationError 可修正的输入错误
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return fmt.Sprintf("%s: %s", ErrValidation, e.Message)
	}
	return fmt.Sprintf("%s: %s: %s", ErrValidation, e.Field, e.Message)
}

// Unwrap 支持 errors.Is(err, ErrValidation)
func (e *ValidationError) Unwrap() error {
	return ErrValidation
}

func newValidationError(field, format string, args ...interface{}) *ValidationError {
	return &ValidationError{Field: field, Message: fmt.Sprintf(format, args...)}
}

// NotFoundError 计算过程中引用缺失，携带重试所需上下文
type NotFoundError struct {
	Entity string
	ID     uint
	TeamID uint
	Date   string
	SaleID uint
}

func (e *NotFoundError) Error() string {
	parts := []string{fmt.Sprintf("%s %d", e.Entity, e.ID)}
	if e.TeamID > 0 {
		parts = append(parts, fmt.Sprintf("team=%d", e.TeamID))
	}
	if e.Date != "" {
		parts = append(parts, "date="+e.Date)
	}
	if e.SaleID > 0 {
		parts = append(parts, fmt.Sprintf("sale=%d", e.SaleID))
	}
	return fmt.Sprintf("%s: %s", ErrNotFound, strings.Join(parts, " "))
}

// Unwrap 支持 errors.Is(err, ErrNotFound)
func (e *NotFoundError) Unwrap() error {
	return ErrNotFound
}

// ConsistencyWarning 历史方案不合法，记录后回退到默认方案
type ConsistencyWarning struct {
	PlanID   uint
	OwnerID  uint
	TotalBps int64
	Items    int
}

func (e *ConsistencyWarning) Error() string {
	return fmt.Sprintf("%s: plan=%d owner=%d items=%d total_bps=%d", ErrConsistency, e.PlanID, e.OwnerID, e.Items, e.TotalBps)
}

// Unwrap 支持 errors.Is(err, ErrConsistency)
func (e *ConsistencyWarning) Unwrap() error {
	return ErrConsistency
}
