package worker

import (
	"context"
	"errors"
	"time"

	"github.com/milhas-next/internal/constants"
	"github.com/milhas-next/internal/logger"
	"github.com/milhas-next/internal/queue"
	"github.com/milhas-next/internal/service"
)

// TeamLister 列出需要定时重算的团队
type TeamLister interface {
	ListTeamIDs() ([]uint, error)
}

// Dispatcher 定时任务的执行方式：入队或进程内直接执行
type Dispatcher interface {
	DispatchPayout(ctx context.Context, teamID uint, date string) error
	DispatchVip(ctx context.Context, teamID uint, month string) error
}

// QueueDispatcher 推送到 asynq 队列，同一团队同一日重复入队会被忽略
type QueueDispatcher struct {
	Client *queue.Client
}

// DispatchPayout 推送日结重算任务
func (d QueueDispatcher) DispatchPayout(_ context.Context, teamID uint, date string) error {
	_, err := d.Client.EnqueuePayoutRecompute(queue.PayoutDailyRecomputePayload{TeamID: teamID, Date: date})
	return err
}

// DispatchVip 推送 VIP 月度分配任务
func (d QueueDispatcher) DispatchVip(_ context.Context, teamID uint, month string) error {
	_, err := d.Client.EnqueueVipDistribution(queue.VipMonthlyDistributionPayload{TeamID: teamID, Month: month})
	return err
}

// InlineDispatcher 未启用队列时在当前进程内执行
type InlineDispatcher struct {
	Payouts *service.PayoutService
	Vip     *service.VipDistributionService
}

// DispatchPayout 直接重算；其他进程正在运行时跳过
func (d InlineDispatcher) DispatchPayout(ctx context.Context, teamID uint, date string) error {
	_, err := d.Payouts.RecomputeDay(ctx, teamID, date)
	if errors.Is(err, service.ErrPayoutRunInProgress) {
		return nil
	}
	return err
}

// DispatchVip 直接计算并写入缓存
func (d InlineDispatcher) DispatchVip(ctx context.Context, teamID uint, month string) error {
	if d.Vip == nil {
		return nil
	}
	_, err := d.Vip.Distribute(ctx, teamID, month)
	return err
}

// Scheduler 定时为每个团队触发今天及回看天数内的日结重算
type Scheduler struct {
	name       string
	teams      TeamLister
	dispatcher Dispatcher
	location   *time.Location
	interval   time.Duration
	lookback   int
	now        func() time.Time
	stop       chan struct{}
}

// NewScheduler 创建定时调度器
func NewScheduler(teams TeamLister, dispatcher Dispatcher, location *time.Location, interval time.Duration, lookbackDays int) *Scheduler {
	if location == nil {
		location = time.UTC
	}
	if interval <= 0 {
		interval = 15 * time.Minute
	}
	if lookbackDays < 0 {
		lookbackDays = 0
	}
	return &Scheduler{
		name:       "scheduler",
		teams:      teams,
		dispatcher: dispatcher,
		location:   location,
		interval:   interval,
		lookback:   lookbackDays,
		now:        time.Now,
		stop:       make(chan struct{}),
	}
}

// Name 服务名称
func (s *Scheduler) Name() string {
	return s.name
}

// Start 立即执行一次，之后按间隔执行，直到 ctx 取消或 Stop
func (s *Scheduler) Start(ctx context.Context) error {
	s.RunOnce(ctx)
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-s.stop:
			return nil
		case <-ticker.C:
			s.RunOnce(ctx)
		}
	}
}

// Stop 停止调度
func (s *Scheduler) Stop(_ context.Context) error {
	select {
	case <-s.stop:
	default:
		close(s.stop)
	}
	return nil
}

// RunOnce 遍历团队触发一轮重算，单个团队失败不影响其他团队
func (s *Scheduler) RunOnce(ctx context.Context) {
	teamIDs, err := s.teams.ListTeamIDs()
	if err != nil {
		logger.Warnw("scheduler_list_teams_failed", "error", err)
		return
	}
	now := s.now().In(s.location)
	dates := ScheduleDates(now, s.lookback)
	month := now.Format(constants.MonthLayout)
	for _, teamID := range teamIDs {
		if ctx.Err() != nil {
			return
		}
		for _, date := range dates {
			if err := s.dispatcher.DispatchPayout(ctx, teamID, date); err != nil {
				logger.Warnw("scheduler_dispatch_payout_failed", "team_id", teamID, "date", date, "error", err)
			}
		}
		if err := s.dispatcher.DispatchVip(ctx, teamID, month); err != nil {
			logger.Warnw("scheduler_dispatch_vip_failed", "team_id", teamID, "month", month, "error", err)
		}
	}
	logger.Debugw("scheduler_round_done", "teams", len(teamIDs), "dates", dates)
}

// ScheduleDates 今天及之前 lookback 天的日期（业务时区），按时间倒序
func ScheduleDates(now time.Time, lookback int) []string {
	dates := make([]string, 0, lookback+1)
	day := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
	for i := 0; i <= lookback; i++ {
		dates = append(dates, day.AddDate(0, 0, -i).Format(constants.DateLayout))
	}
	return dates
}
