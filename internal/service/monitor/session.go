package monitor

import (
	"context"
	"sync"
	"sync/atomic"

	"github.com/google/uuid"

	"github.com/KNICEX/candle-sentry/internal/service/detector"
	"github.com/KNICEX/candle-sentry/internal/service/market"
)

const (
	stateRunning int32 = iota
	stateStopping
)

// session 一个用户的一次监控运行
// 生命周期: Start创建 -> worker运行 -> cancel -> supervisor等待worker退出并从表中摘除
type session struct {
	id      string
	userID  int64
	period  market.Interval
	symbols []string
	det     *detector.Detector

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
	state  atomic.Int32

	// signalOnce 保证会话只发出一个信号, 首个信号触发整个会话停止
	signalOnce sync.Once

	// done 由supervisor在清理完成后关闭
	done chan struct{}
}

func newSession(userID int64, symbols []string, period market.Interval, capacity int) *session {
	ctx, cancel := context.WithCancel(context.Background())
	return &session{
		id:      uuid.NewString(),
		userID:  userID,
		period:  period,
		symbols: symbols,
		det:     detector.New(period, capacity),
		ctx:     ctx,
		cancel:  cancel,
		done:    make(chan struct{}),
	}
}

func (s *session) stopping() bool {
	return s.state.Load() == stateStopping
}

func (s *session) markStopping() {
	s.state.Store(stateStopping)
}
