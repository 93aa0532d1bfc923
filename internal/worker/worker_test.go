package worker

import (
	"context"
	"errors"
	"reflect"
	"sync"
	"testing"
	"time"

	"github.com/milhas-next/internal/config"
	"github.com/milhas-next/internal/queue"
	"github.com/milhas-next/internal/service"

	"github.com/hibiken/asynq"
)

type stubTeams struct {
	ids []uint
	err error
}

func (s stubTeams) ListTeamIDs() ([]uint, error) {
	return s.ids, s.err
}

type recordingDispatcher struct {
	mu      sync.Mutex
	payouts []string
	vips    []string
	failFor uint
}

func (d *recordingDispatcher) DispatchPayout(_ context.Context, teamID uint, date string) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.payouts = append(d.payouts, queue.PayoutDailyRecomputePayload{TeamID: teamID, Date: date}.TaskID())
	if teamID == d.failFor {
		return errors.New("boom")
	}
	return nil
}

func (d *recordingDispatcher) DispatchVip(_ context.Context, teamID uint, month string) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.vips = append(d.vips, queue.VipMonthlyDistributionPayload{TeamID: teamID, Month: month}.TaskID())
	return nil
}

func TestScheduleDatesIncludesLookback(t *testing.T) {
	loc := time.FixedZone("BRT", -3*3600)
	now := time.Date(2024, 3, 1, 0, 30, 0, 0, loc)
	got := ScheduleDates(now, 2)
	want := []string{"2024-03-01", "2024-02-29", "2024-02-28"}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("unexpected dates: %v", got)
	}
	if got := ScheduleDates(now, 0); !reflect.DeepEqual(got, []string{"2024-03-01"}) {
		t.Fatalf("unexpected dates without lookback: %v", got)
	}
}

func TestSchedulerRunOnceUsesBusinessTimezone(t *testing.T) {
	loc := time.FixedZone("BRT", -3*3600)
	dispatcher := &recordingDispatcher{failFor: 1}
	scheduler := NewScheduler(stubTeams{ids: []uint{1, 2}}, dispatcher, loc, time.Minute, 1)
	// 02:00 UTC 对应业务时区前一日 23:00
	scheduler.now = func() time.Time { return time.Date(2024, 5, 11, 2, 0, 0, 0, time.UTC) }

	scheduler.RunOnce(context.Background())

	wantPayouts := []string{
		"payout:daily_recompute:1:2024-05-10",
		"payout:daily_recompute:1:2024-05-09",
		"payout:daily_recompute:2:2024-05-10",
		"payout:daily_recompute:2:2024-05-09",
	}
	if !reflect.DeepEqual(dispatcher.payouts, wantPayouts) {
		t.Fatalf("unexpected payout dispatches: %v", dispatcher.payouts)
	}
	wantVips := []string{"vip:monthly_distribution:1:2024-05", "vip:monthly_distribution:2:2024-05"}
	if !reflect.DeepEqual(dispatcher.vips, wantVips) {
		t.Fatalf("unexpected vip dispatches: %v", dispatcher.vips)
	}
}

func TestSchedulerRunOnceStopsOnListError(t *testing.T) {
	dispatcher := &recordingDispatcher{}
	scheduler := NewScheduler(stubTeams{err: errors.New("db down")}, dispatcher, time.UTC, time.Minute, 1)
	scheduler.RunOnce(context.Background())
	if len(dispatcher.payouts) != 0 || len(dispatcher.vips) != 0 {
		t.Fatalf("expected no dispatch, got %v %v", dispatcher.payouts, dispatcher.vips)
	}
}

func TestSchedulerStopIsIdempotent(t *testing.T) {
	scheduler := NewScheduler(stubTeams{}, &recordingDispatcher{}, nil, 0, -1)
	if scheduler.interval != 15*time.Minute || scheduler.lookback != 0 || scheduler.location != time.UTC {
		t.Fatalf("unexpected defaults: %v %d %v", scheduler.interval, scheduler.lookback, scheduler.location)
	}
	done := make(chan struct{})
	go func() {
		_ = scheduler.Start(context.Background())
		close(done)
	}()
	_ = scheduler.Stop(context.Background())
	_ = scheduler.Stop(context.Background())
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatalf("scheduler did not stop")
	}
}

func TestClassifyPayoutError(t *testing.T) {
	ctx := context.Background()
	if err := classifyPayoutError(ctx, &service.DailyPayoutResult{}, nil); err != nil {
		t.Fatalf("expected nil, got %v", err)
	}
	validation := &service.ValidationError{Field: "date", Message: "invalid"}
	if err := classifyPayoutError(ctx, nil, validation); !errors.Is(err, asynq.SkipRetry) {
		t.Fatalf("expected skip retry for validation error, got %v", err)
	}
	if err := classifyPayoutError(ctx, nil, service.ErrPayoutRunInProgress); !errors.Is(err, service.ErrPayoutRunInProgress) {
		t.Fatalf("expected retryable busy error, got %v", err)
	}
	notFound := &service.NotFoundError{Entity: "cedente", ID: 9, SaleID: 4}
	err := classifyPayoutError(ctx, nil, notFound)
	if !errors.Is(err, service.ErrNotFound) || errors.Is(err, asynq.SkipRetry) {
		t.Fatalf("expected retryable not found error, got %v", err)
	}
}

func TestConsumerSkipsWithoutServices(t *testing.T) {
	consumer := NewConsumer(nil)
	task := asynq.NewTask(queue.TaskPayoutDailyRecompute, []byte(`{"team_id":0}`))
	// 未装配服务时直接跳过
	if err := consumer.handlePayoutDailyRecompute(context.Background(), task); err != nil {
		t.Fatalf("expected nil for consumer without services, got %v", err)
	}
}

func TestNewServiceRequiresEnabledQueue(t *testing.T) {
	if _, err := NewService(&config.QueueConfig{Enabled: false}, &Consumer{}, nil); err == nil {
		t.Fatalf("expected error for disabled queue")
	}
	if _, err := NewService(nil, &Consumer{}, nil); err == nil {
		t.Fatalf("expected error for nil config")
	}
}
