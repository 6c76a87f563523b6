package clock

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/KNICEX/candle-sentry/internal/service/market"
)

// TimeSource 权威服务器时间来源
type TimeSource interface {
	ServerTime(ctx context.Context) (time.Time, error)
}

// Service 本地时钟相对交易所时钟的校准服务
// 所有K线边界计算都基于校准后的UTC时间
type Service struct {
	source      TimeSource
	resyncAfter time.Duration
	syncTimeout time.Duration

	mu       sync.RWMutex
	offset   time.Duration
	lastSync time.Time

	syncing atomic.Bool
	now     func() time.Time
}

func NewService(source TimeSource) *Service {
	return &Service{
		source:      source,
		resyncAfter: time.Hour,
		syncTimeout: 10 * time.Second,
		now:         time.Now,
	}
}

// Sync 获取服务器时间并更新偏移量
// 失败时保留旧偏移量继续运行, 只记日志
func (s *Service) Sync(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, s.syncTimeout)
	defer cancel()

	serverTime, err := s.source.ServerTime(ctx)
	if err != nil {
		slog.Warn("server time sync failed, keeping previous offset", "error", err)
		return err
	}

	local := s.now()
	s.mu.Lock()
	s.offset = serverTime.Sub(local)
	s.lastSync = local
	s.mu.Unlock()

	slog.Info("synced with server time", "offset", serverTime.Sub(local))
	return nil
}

// Now 返回校准后的当前UTC时间
// 偏移量超过一小时未刷新时触发一次异步重新同步, 不阻塞调用方
func (s *Service) Now() time.Time {
	s.mu.RLock()
	offset := s.offset
	lastSync := s.lastSync
	s.mu.RUnlock()

	if s.now().Sub(lastSync) > s.resyncAfter && s.syncing.CompareAndSwap(false, true) {
		go func() {
			defer s.syncing.Store(false)
			_ = s.Sync(context.Background())
		}()
	}

	return s.now().Add(offset).UTC()
}

// TimeToClose 返回距离下一个K线收盘的剩余时间和收盘时刻
// 收盘边界按整点起算, 是周期长度的整数倍; 未知周期返回 (0, now)
func (s *Service) TimeToClose(period market.Interval) (time.Duration, time.Time) {
	now := s.Now()

	minutes := period.Minutes()
	if minutes == 0 {
		return 0, now
	}

	totalMinutes := now.Hour()*60 + now.Minute()
	remainder := totalMinutes % minutes
	minutesRemaining := minutes - remainder

	closeAt := now.Truncate(time.Minute).Add(time.Duration(minutesRemaining) * time.Minute)
	remaining := closeAt.Sub(now)
	if remaining < 0 {
		remaining = 0
	}
	return remaining, closeAt
}
