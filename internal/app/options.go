package app

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/milhas-next/internal/config"
	"github.com/milhas-next/internal/logger"

	"go.uber.org/zap"
)

// 启动模式：all 同时运行管理接口与日结 worker
const (
	ModeAll    = "all"
	ModeAPI    = "api"
	ModeWorker = "worker"
)

// Options 应用启动选项
type Options struct {
	Config          *config.Config
	Logger          *zap.SugaredLogger
	Signals         []os.Signal
	ShutdownTimeout time.Duration
	Mode            string
}

// ParseMode 解析启动模式，空值为 all
func ParseMode(raw string) (string, error) {
	mode := strings.ToLower(strings.TrimSpace(raw))
	switch mode {
	case "":
		return ModeAll, nil
	case ModeAll, ModeAPI, ModeWorker:
		return mode, nil
	default:
		return "", fmt.Errorf("unknown mode %q (all, api, worker)", raw)
	}
}

// normalizeOptions 补齐默认参数；停机超时需覆盖一次日结重算的锁有效期
func normalizeOptions(opts Options) Options {
	if opts.Logger == nil {
		opts.Logger = logger.S()
	}
	if opts.ShutdownTimeout <= 0 {
		opts.ShutdownTimeout = 10 * time.Second
		if opts.Config != nil {
			if lockTTL := time.Duration(opts.Config.Payout.LockTTLSeconds) * time.Second; lockTTL > opts.ShutdownTimeout {
				opts.ShutdownTimeout = lockTTL
			}
		}
	}
	if opts.Mode == "" {
		opts.Mode = ModeAll
	}
	return opts
}
