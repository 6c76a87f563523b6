package monitor

import (
	"context"
	"errors"
	"time"

	"github.com/KNICEX/candle-sentry/internal/service/market"
)

var (
	ErrAlreadyRunning = errors.New("monitoring already running")
	ErrNotRunning     = errors.New("monitoring not running")
	ErrNoPeriod       = errors.New("no period configured")
	ErrUnknownPeriod  = errors.New("unknown period")
	ErrNoSymbols      = errors.New("no symbols to monitor")
	ErrSeedFailed     = errors.New("failed to initialize bar history")
)

// Clock 校准后的时间来源, 所有收盘边界计算都走它
type Clock interface {
	Now() time.Time
	TimeToClose(period market.Interval) (time.Duration, time.Time)
}

// Service 监控编排服务接口
type Service interface {
	// Start 为用户启动一个监控会话, period为空时使用用户已选周期
	Start(ctx context.Context, userID int64, symbols []string, period market.Interval) error
	// Stop 取消用户的会话并等待所有worker退出
	Stop(ctx context.Context, userID int64) error
	// SelectPeriod 记录用户的周期选择, 对下一次Start生效
	SelectPeriod(userID int64, period market.Interval) error
	// Period 返回用户当前选择的周期, 未选择时为空
	Period(userID int64) market.Interval
	// Running 当前是否有该用户的会话在运行
	Running(userID int64) bool
}
