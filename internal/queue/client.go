package queue

import (
	"errors"
	"fmt"
	"strings"

	"github.com/milhas-next/internal/config"
	"github.com/milhas-next/internal/constants"

	"github.com/hibiken/asynq"
)

const (
	// DefaultQueue 默认队列名称
	DefaultQueue = constants.QueueDefault
	// CriticalQueue 资金相关任务队列
	CriticalQueue = constants.QueueCritical
)

const payoutTaskMaxRetry = 5

// ErrQueueDisabled 队列未启用
var ErrQueueDisabled = errors.New("queue disabled")

// Client 队列客户端封装
type Client struct {
	client        *asynq.Client
	enabled       bool
	defaultQueue  string
	criticalQueue string
}

// NewClient 创建队列客户端
func NewClient(cfg *config.QueueConfig) (*Client, error) {
	if cfg == nil || !cfg.Enabled {
		return &Client{enabled: false, defaultQueue: DefaultQueue, criticalQueue: CriticalQueue}, nil
	}
	opt := buildRedisOpt(cfg)
	client := asynq.NewClient(opt)
	return &Client{
		client:        client,
		enabled:       true,
		defaultQueue:  DefaultQueue,
		criticalQueue: CriticalQueue,
	}, nil
}

// Enabled 判断是否启用
func (c *Client) Enabled() bool {
	return c != nil && c.enabled && c.client != nil
}

// Close 关闭客户端
func (c *Client) Close() error {
	if c == nil || c.client == nil {
		return nil
	}
	return c.client.Close()
}

// EnqueuePayoutRecompute 推送日结重算任务
// 同一团队同一日已有排队任务时返回 queued=false 且不报错
func (c *Client) EnqueuePayoutRecompute(payload PayoutDailyRecomputePayload, opts ...asynq.Option) (bool, error) {
	if !c.Enabled() {
		return false, ErrQueueDisabled
	}
	task, err := NewPayoutDailyRecomputeTask(payload)
	if err != nil {
		return false, err
	}
	options := append([]asynq.Option{
		asynq.Queue(c.criticalQueue),
		asynq.TaskID(payload.TaskID()),
		asynq.MaxRetry(payoutTaskMaxRetry),
	}, opts...)
	return c.enqueue(task, options)
}

// EnqueueVipDistribution 推送 VIP 月度分配任务
func (c *Client) EnqueueVipDistribution(payload VipMonthlyDistributionPayload, opts ...asynq.Option) (bool, error) {
	if !c.Enabled() {
		return false, ErrQueueDisabled
	}
	task, err := NewVipMonthlyDistributionTask(payload)
	if err != nil {
		return false, err
	}
	options := append([]asynq.Option{
		asynq.Queue(c.defaultQueue),
		asynq.TaskID(payload.TaskID()),
	}, opts...)
	return c.enqueue(task, options)
}

func (c *Client) enqueue(task *asynq.Task, options []asynq.Option) (bool, error) {
	_, err := c.client.Enqueue(task, options...)
	if errors.Is(err, asynq.ErrTaskIDConflict) || errors.Is(err, asynq.ErrDuplicateTask) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

// BuildServerConfig 生成队列服务配置
func BuildServerConfig(cfg *config.QueueConfig) (asynq.RedisClientOpt, asynq.Config) {
	opt := buildRedisOpt(cfg)
	concurrency := 10
	if cfg != nil && cfg.Concurrency > 0 {
		concurrency = cfg.Concurrency
	}
	queues := map[string]int{CriticalQueue: 6, DefaultQueue: 3}
	if cfg != nil && len(cfg.Queues) > 0 {
		queues = cfg.Queues
	}
	return opt, asynq.Config{
		Concurrency: concurrency,
		Queues:      queues,
	}
}

func buildRedisOpt(cfg *config.QueueConfig) asynq.RedisClientOpt {
	host := "127.0.0.1"
	port := 6379
	password := ""
	db := 0
	if cfg != nil {
		if strings.TrimSpace(cfg.Host) != "" {
			host = strings.TrimSpace(cfg.Host)
		}
		if cfg.Port > 0 {
			port = cfg.Port
		}
		password = cfg.Password
		db = cfg.DB
	}
	return asynq.RedisClientOpt{
		Addr:     fmt.Sprintf("%s:%d", host, port),
		Password: password,
		DB:       db,
	}
}
