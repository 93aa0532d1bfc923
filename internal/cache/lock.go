package cache

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

var (
	// ErrLockNotAcquired 锁已被其他运行持有
	ErrLockNotAcquired = errors.New("lock not acquired")
	// ErrLockLost 锁已过期或被其他持有者取得
	ErrLockLost = errors.New("lock lost")
)

// Lease 已持有的锁
type Lease interface {
	// Extend 把有效期从当前时刻顺延一个 ttl；锁已不属于自己时返回 ErrLockLost
	Extend(ctx context.Context) error
	// Release 释放锁，只删除自己持有的锁
	Release()
}

// Locker 运行锁：同一 key 同时只允许一个持有者
type Locker interface {
	// Acquire 获取锁；锁被占用时返回 ErrLockNotAcquired
	Acquire(ctx context.Context, key string, ttl time.Duration) (Lease, error)
}

var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

var extendScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("PEXPIRE", KEYS[1], ARGV[2])
end
return 0
`)

// RedisLocker 基于 SET NX PX 的分布式锁
type RedisLocker struct {
	client *redis.Client
}

// NewRedisLocker 创建分布式锁
func NewRedisLocker(client *redis.Client) *RedisLocker {
	return &RedisLocker{client: client}
}

// Acquire 获取锁，持有者标识为随机 token，续期与释放时校验避免误操作他人锁
func (l *RedisLocker) Acquire(ctx context.Context, key string, ttl time.Duration) (Lease, error) {
	token := uuid.NewString()
	fullKey := buildKey("lock:" + key)
	ok, err := l.client.SetNX(ctx, fullKey, token, ttl).Result()
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrLockNotAcquired
	}
	return &redisLease{client: l.client, key: fullKey, token: token, ttl: ttl}, nil
}

type redisLease struct {
	client *redis.Client
	key    string
	token  string
	ttl    time.Duration
}

func (l *redisLease) Extend(ctx context.Context) error {
	extended, err := extendScript.Run(ctx, l.client, []string{l.key}, l.token, l.ttl.Milliseconds()).Int64()
	if err != nil {
		return err
	}
	if extended == 0 {
		return ErrLockLost
	}
	return nil
}

func (l *redisLease) Release() {
	// 使用独立 ctx，请求取消后仍能释放
	releaseCtx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	_ = releaseScript.Run(releaseCtx, l.client, []string{l.key}, l.token).Err()
}

// LocalLocker 进程内锁（未启用 Redis 时使用）
type LocalLocker struct {
	mu     sync.Mutex
	held   map[string]localHold
	serial uint64
}

type localHold struct {
	token    uint64
	expireAt time.Time
}

// NewLocalLocker 创建进程内锁
func NewLocalLocker() *LocalLocker {
	return &LocalLocker{held: make(map[string]localHold)}
}

// Acquire 获取锁，过期的锁视为已释放
func (l *LocalLocker) Acquire(_ context.Context, key string, ttl time.Duration) (Lease, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	now := time.Now()
	if hold, ok := l.held[key]; ok && now.Before(hold.expireAt) {
		return nil, ErrLockNotAcquired
	}
	l.serial++
	l.held[key] = localHold{token: l.serial, expireAt: now.Add(ttl)}
	return &localLease{locker: l, key: key, token: l.serial, ttl: ttl}, nil
}

type localLease struct {
	locker *LocalLocker
	key    string
	token  uint64
	ttl    time.Duration
}

func (l *localLease) Extend(_ context.Context) error {
	l.locker.mu.Lock()
	defer l.locker.mu.Unlock()
	now := time.Now()
	hold, ok := l.locker.held[l.key]
	if !ok || hold.token != l.token || !now.Before(hold.expireAt) {
		return ErrLockLost
	}
	hold.expireAt = now.Add(l.ttl)
	l.locker.held[l.key] = hold
	return nil
}

func (l *localLease) Release() {
	l.locker.mu.Lock()
	defer l.locker.mu.Unlock()
	if hold, ok := l.locker.held[l.key]; ok && hold.token == l.token {
		delete(l.locker.held, l.key)
	}
}

// KeepAlive 后台按 interval 续期，直到 Stop；续期失败后停止并记录错误
type KeepAlive struct {
	stop     chan struct{}
	done     chan struct{}
	stopOnce sync.Once
	mu       sync.Mutex
	err      error
}

// StartKeepAlive 为 lease 启动续期，interval 通常取 ttl 的三分之一
func StartKeepAlive(lease Lease, interval time.Duration) *KeepAlive {
	k := &KeepAlive{stop: make(chan struct{}), done: make(chan struct{})}
	if interval <= 0 {
		interval = time.Second
	}
	go func() {
		defer close(k.done)
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-k.stop:
				return
			case <-ticker.C:
				ctx, cancel := context.WithTimeout(context.Background(), interval)
				err := lease.Extend(ctx)
				cancel()
				if err != nil {
					k.mu.Lock()
					k.err = err
					k.mu.Unlock()
					return
				}
			}
		}
	}()
	return k
}

// Err 续期失败的原因；仍持有锁时为 nil
func (k *KeepAlive) Err() error {
	k.mu.Lock()
	defer k.mu.Unlock()
	return k.err
}

// Stop 停止续期并等待后台协程退出，可重复调用
func (k *KeepAlive) Stop() {
	k.stopOnce.Do(func() { close(k.stop) })
	<-k.done
}

// NewLocker 根据 Redis 是否启用选择锁实现
func NewLocker() Locker {
	if Enabled() {
		return NewRedisLocker(redisClient)
	}
	return NewLocalLocker()
}
