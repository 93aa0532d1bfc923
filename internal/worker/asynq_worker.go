package worker

import (
	"context"
	"errors"
	"fmt"

	"github.com/milhas-next/internal/logger"
	"github.com/milhas-next/internal/provider"
	"github.com/milhas-next/internal/queue"
	"github.com/milhas-next/internal/service"

	"github.com/hibiken/asynq"
)

// Consumer 异步任务消费者
type Consumer struct {
	*provider.Container
}

// NewConsumer 创建消费者
func NewConsumer(c *provider.Container) *Consumer {
	return &Consumer{
		Container: c,
	}
}

// Register 注册消费者
func (c *Consumer) Register(mux *asynq.ServeMux) {
	if c == nil || mux == nil {
		logger.Debugw("worker_register_skip_nil", "consumer_nil", c == nil, "mux_nil", mux == nil)
		return
	}
	mux.HandleFunc(queue.TaskPayoutDailyRecompute, c.handlePayoutDailyRecompute)
	mux.HandleFunc(queue.TaskVipMonthlyDistribution, c.handleVipMonthlyDistribution)
}

func (c *Consumer) handlePayoutDailyRecompute(ctx context.Context, task *asynq.Task) error {
	if c == nil || c.Container == nil || task == nil || c.PayoutService == nil {
		logger.Debugw("worker_payout_recompute_skip_nil", "consumer_nil", c == nil, "task_nil", task == nil)
		return nil
	}
	payload, err := queue.ParsePayoutDailyRecomputePayload(task)
	if err != nil {
		logger.Warnw("worker_payout_recompute_invalid_payload", "error", err)
		return fmt.Errorf("%w: %v", asynq.SkipRetry, err)
	}
	ctx = logger.WithContext(ctx, "team_id", payload.TeamID, "date", payload.Date)
	result, err := c.PayoutService.RecomputeDay(ctx, payload.TeamID, payload.Date)
	return classifyPayoutError(ctx, result, err)
}

// classifyPayoutError 校验错误不重试；运行中与引用缺失交由 asynq 退避重试
func classifyPayoutError(ctx context.Context, result *service.DailyPayoutResult, err error) error {
	log := logger.Ctx(ctx)
	switch {
	case err == nil:
		if result != nil {
			log.Debugw("worker_payout_recompute_done", "rows", len(result.Rows), "sales", result.SaleCount)
		}
		return nil
	case errors.Is(err, service.ErrValidation):
		log.Warnw("worker_payout_recompute_rejected", "error", err)
		return fmt.Errorf("%w: %v", asynq.SkipRetry, err)
	case errors.Is(err, service.ErrPayoutRunInProgress):
		log.Debugw("worker_payout_recompute_busy")
		return err
	case errors.Is(err, service.ErrNotFound):
		var notFound *service.NotFoundError
		if errors.As(err, &notFound) {
			log.Warnw("worker_payout_recompute_missing_reference",
				"entity", notFound.Entity,
				"entity_id", notFound.ID,
				"sale_id", notFound.SaleID,
			)
		}
		return err
	default:
		log.Errorw("worker_payout_recompute_failed", "error", err)
		return err
	}
}

func (c *Consumer) handleVipMonthlyDistribution(ctx context.Context, task *asynq.Task) error {
	if c == nil || c.Container == nil || task == nil || c.VipService == nil {
		logger.Debugw("worker_vip_distribution_skip_nil", "consumer_nil", c == nil, "task_nil", task == nil)
		return nil
	}
	payload, err := queue.ParseVipMonthlyDistributionPayload(task)
	if err != nil {
		logger.Warnw("worker_vip_distribution_invalid_payload", "error", err)
		return fmt.Errorf("%w: %v", asynq.SkipRetry, err)
	}
	ctx = logger.WithContext(ctx, "team_id", payload.TeamID, "month", payload.Month)
	summary, err := c.VipService.Distribute(ctx, payload.TeamID, payload.Month)
	if err != nil {
		if errors.Is(err, service.ErrValidation) {
			logger.Ctx(ctx).Warnw("worker_vip_distribution_rejected", "error", err)
			return fmt.Errorf("%w: %v", asynq.SkipRetry, err)
		}
		logger.Ctx(ctx).Errorw("worker_vip_distribution_failed", "error", err)
		return err
	}
	logger.Ctx(ctx).Debugw("worker_vip_distribution_done",
		"payments", summary.PaymentCount,
		"total_earnings_cents", summary.TotalEarningsCents,
	)
	return nil
}
