package queue

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/milhas-next/internal/constants"

	"github.com/hibiken/asynq"
)

const (
	// TaskPayoutDailyRecompute 团队日结重算任务
	TaskPayoutDailyRecompute = constants.TaskPayoutDailyRecompute
	// TaskVipMonthlyDistribution VIP 月度分配任务
	TaskVipMonthlyDistribution = constants.TaskVipMonthlyDistribution
)

// PayoutDailyRecomputePayload 日结重算任务载荷
type PayoutDailyRecomputePayload struct {
	TeamID uint   `json:"team_id"`
	Date   string `json:"date"`
}

// VipMonthlyDistributionPayload VIP 月度分配任务载荷
type VipMonthlyDistributionPayload struct {
	TeamID uint   `json:"team_id"`
	Month  string `json:"month"`
}

// TaskID 同一团队同一日只保留一个排队中的任务
func (p PayoutDailyRecomputePayload) TaskID() string {
	return fmt.Sprintf("%s:%d:%s", TaskPayoutDailyRecompute, p.TeamID, strings.TrimSpace(p.Date))
}

// TaskID 同一团队同一月只保留一个排队中的任务
func (p VipMonthlyDistributionPayload) TaskID() string {
	return fmt.Sprintf("%s:%d:%s", TaskVipMonthlyDistribution, p.TeamID, strings.TrimSpace(p.Month))
}

// NewPayoutDailyRecomputeTask 创建日结重算任务
func NewPayoutDailyRecomputeTask(payload PayoutDailyRecomputePayload) (*asynq.Task, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskPayoutDailyRecompute, body), nil
}

// NewVipMonthlyDistributionTask 创建 VIP 月度分配任务
func NewVipMonthlyDistributionTask(payload VipMonthlyDistributionPayload) (*asynq.Task, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskVipMonthlyDistribution, body), nil
}

// ParsePayoutDailyRecomputePayload 解析日结重算任务载荷
func ParsePayoutDailyRecomputePayload(task *asynq.Task) (PayoutDailyRecomputePayload, error) {
	var payload PayoutDailyRecomputePayload
	if task == nil {
		return payload, fmt.Errorf("nil task")
	}
	if err := json.Unmarshal(task.Payload(), &payload); err != nil {
		return payload, err
	}
	if payload.TeamID == 0 || strings.TrimSpace(payload.Date) == "" {
		return payload, fmt.Errorf("invalid payout recompute payload: %s", string(task.Payload()))
	}
	return payload, nil
}

// ParseVipMonthlyDistributionPayload 解析 VIP 月度分配任务载荷
func ParseVipMonthlyDistributionPayload(task *asynq.Task) (VipMonthlyDistributionPayload, error) {
	var payload VipMonthlyDistributionPayload
	if task == nil {
		return payload, fmt.Errorf("nil task")
	}
	if err := json.Unmarshal(task.Payload(), &payload); err != nil {
		return payload, err
	}
	if payload.TeamID == 0 || strings.TrimSpace(payload.Month) == "" {
		return payload, fmt.Errorf("invalid vip distribution payload: %s", string(task.Payload()))
	}
	return payload, nil
}
