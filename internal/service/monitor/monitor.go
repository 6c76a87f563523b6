package monitor

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/samber/lo"

	"github.com/KNICEX/candle-sentry/internal/entity"
	"github.com/KNICEX/candle-sentry/internal/repo"
	"github.com/KNICEX/candle-sentry/internal/service/detector"
	"github.com/KNICEX/candle-sentry/internal/service/market"
	"github.com/KNICEX/candle-sentry/internal/service/notification"
)

type Config struct {
	// HistorySize 每个交易对滚动窗口的容量, 取值2~3
	HistorySize int
	// StopTimeout 等待worker退出的上限, 超时则放弃等待只记日志
	StopTimeout time.Duration
	// PostCloseDelay 收盘后到拉取新K线之间的缓冲, 给交易所落账时间
	PostCloseDelay time.Duration
	// ProgressRefresh 倒计时指示器的刷新间隔
	ProgressRefresh time.Duration
	// SendTimeout 单条通知的发送超时
	SendTimeout time.Duration
}

func DefaultConfig() Config {
	return Config{
		HistorySize:     detector.MaxWindow,
		StopTimeout:     15 * time.Second,
		PostCloseDelay:  2 * time.Second,
		ProgressRefresh: 10 * time.Second,
		SendTimeout:     10 * time.Second,
	}
}

// CandleMonitor 按收盘边界驱动的订单块监控编排器
// 每个用户至多一个会话, 每个会话为每个交易对起一个worker, 外加一个倒计时worker
type CandleMonitor struct {
	gateway  market.Gateway
	clk      Clock
	notifier notification.ProgressNotifier
	signals  repo.SignalRepo
	cfg      Config

	mu       sync.Mutex
	sessions map[int64]*session
	periods  map[int64]market.Interval
}

var _ Service = (*CandleMonitor)(nil)

type Option func(m *CandleMonitor)

func WithConfig(cfg Config) Option {
	return func(m *CandleMonitor) {
		m.cfg = cfg
	}
}

func WithNotifier(notifier notification.ProgressNotifier) Option {
	return func(m *CandleMonitor) {
		m.notifier = notifier
	}
}

func NewCandleMonitor(gateway market.Gateway, clk Clock, signals repo.SignalRepo, opts ...Option) *CandleMonitor {
	m := &CandleMonitor{
		gateway:  gateway,
		clk:      clk,
		notifier: notification.NewConsoleNotifier(),
		signals:  signals,
		cfg:      DefaultConfig(),
		sessions: make(map[int64]*session),
		periods:  make(map[int64]market.Interval),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

func (m *CandleMonitor) Start(ctx context.Context, userID int64, symbols []string, period market.Interval) error {
	symbols = lo.Uniq(symbols)
	if len(symbols) == 0 {
		return ErrNoSymbols
	}

	m.mu.Lock()
	if period == "" {
		period = m.periods[userID]
	}
	if period == "" {
		m.mu.Unlock()
		return ErrNoPeriod
	}
	if !period.Valid() {
		m.mu.Unlock()
		return ErrUnknownPeriod
	}
	if _, exists := m.sessions[userID]; exists {
		m.mu.Unlock()
		return ErrAlreadyRunning
	}
	sess := newSession(userID, symbols, period, m.cfg.HistorySize)
	m.sessions[userID] = sess
	m.mu.Unlock()

	if err := m.seedHistory(ctx, sess); err != nil {
		m.mu.Lock()
		delete(m.sessions, userID)
		m.mu.Unlock()
		sess.cancel()
		close(sess.done)
		return err
	}

	for _, symbol := range sess.symbols {
		sess.wg.Add(1)
		go m.runSymbolWorker(sess, symbol)
	}
	sess.wg.Add(1)
	go m.runHeartbeat(sess)
	go m.supervise(sess)

	slog.Info("monitoring session started",
		"session", sess.id, "user", userID, "period", period, "symbols", symbols)
	return nil
}

func (m *CandleMonitor) Stop(ctx context.Context, userID int64) error {
	m.mu.Lock()
	sess, ok := m.sessions[userID]
	m.mu.Unlock()
	if !ok {
		return ErrNotRunning
	}

	sess.markStopping()
	sess.cancel()

	select {
	case <-sess.done:
	case <-time.After(m.cfg.StopTimeout):
		slog.Warn("timed out waiting for session to stop", "session", sess.id, "user", userID)
	case <-ctx.Done():
		return ctx.Err()
	}
	return nil
}

func (m *CandleMonitor) SelectPeriod(userID int64, period market.Interval) error {
	if !period.Valid() {
		return ErrUnknownPeriod
	}
	m.mu.Lock()
	m.periods[userID] = period
	m.mu.Unlock()
	return nil
}

func (m *CandleMonitor) Period(userID int64) market.Interval {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.periods[userID]
}

// Running 仅视为"活跃": 正在停止中的会话不算运行
func (m *CandleMonitor) Running(userID int64) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	sess, ok := m.sessions[userID]
	return ok && !sess.stopping()
}

// seedHistory 为每个交易对预加载一根已收盘K线
// 单个交易对失败只记日志, 全部失败视为会话无法建立
func (m *CandleMonitor) seedHistory(ctx context.Context, sess *session) error {
	seeded := 0
	for _, symbol := range sess.symbols {
		bar, err := m.gateway.FetchBar(ctx, symbol, sess.period)
		if err != nil {
			slog.Warn("failed to seed bar history", "session", sess.id, "symbol", symbol, "error", err)
			continue
		}
		sess.det.Seed(symbol, bar)
		seeded++
	}
	if seeded == 0 {
		return fmt.Errorf("%w: none of %d symbols reachable", ErrSeedFailed, len(sess.symbols))
	}
	return nil
}

// runSymbolWorker 单个交易对的收盘驱动循环
// 行情拉取失败跳过本周期; panic只终止本worker, 不影响同会话其他交易对
func (m *CandleMonitor) runSymbolWorker(sess *session, symbol string) {
	defer sess.wg.Done()
	defer func() {
		if r := recover(); r != nil {
			slog.Error("symbol worker panicked", "session", sess.id, "symbol", symbol, "panic", r)
		}
	}()

	for {
		remaining, closeAt := m.clk.TimeToClose(sess.period)
		if remaining == 0 && !sess.period.Valid() {
			m.failSession(sess, "monitoring period is no longer valid")
			return
		}
		if !sleepCtx(sess.ctx, remaining+m.cfg.PostCloseDelay) {
			return
		}

		bar, err := m.gateway.FetchBar(sess.ctx, symbol, sess.period)
		if err != nil {
			if sess.ctx.Err() != nil {
				return
			}
			slog.Warn("failed to fetch closed bar, skipping cycle",
				"session", sess.id, "symbol", symbol, "close_at", closeAt, "error", err)
			continue
		}

		signal := sess.det.AppendAndEvaluate(symbol, bar)
		if signal == nil {
			continue
		}
		m.handleSignal(sess, signal)
		return
	}
}

// handleSignal 落库、通知并停掉整个会话
// 会话级去重: 并发检出的多个信号只有第一个生效
func (m *CandleMonitor) handleSignal(sess *session, signal *detector.Signal) {
	sess.signalOnce.Do(func() {
		slog.Info("order block detected",
			"session", sess.id, "symbol", signal.Symbol, "kind", signal.Kind,
			"period", signal.Period, "body_ratio", signal.BodyRatio())

		ctx, cancel := context.WithTimeout(context.Background(), m.cfg.SendTimeout)
		defer cancel()

		record := entity.SignalRecord{
			UserId:    sess.userID,
			Symbol:    signal.Symbol,
			Period:    signal.Period.ToString(),
			Kind:      string(signal.Kind),
			Price:     signal.Current.Close,
			BodyRatio: signal.BodyRatio(),
			Status:    entity.SignalStatusRunning,
		}
		if signal.Imbalance != nil {
			record.ImbalanceHigh = signal.Imbalance.High
			record.ImbalanceLow = signal.Imbalance.Low
		}
		if _, err := m.signals.Create(ctx, record); err != nil {
			slog.Error("failed to persist signal record", "session", sess.id, "error", err)
		}

		m.notifier.Send(ctx, sess.userID, FormatSignal(signal))
		sess.cancel()
	})
}

// failSession 不可恢复的编排错误: 通知用户后整会话下线
func (m *CandleMonitor) failSession(sess *session, reason string) {
	slog.Error("monitoring session failed", "session", sess.id, "user", sess.userID, "reason", reason)
	ctx, cancel := context.WithTimeout(context.Background(), m.cfg.SendTimeout)
	defer cancel()
	m.notifier.Send(ctx, sess.userID, fmt.Sprintf("⚠️ Monitoring stopped: %s", reason))
	sess.cancel()
}

// runHeartbeat 维护一条随时间编辑的倒计时消息
// 无论会话怎么退出, 指示器都会被删掉
func (m *CandleMonitor) runHeartbeat(sess *session) {
	defer sess.wg.Done()
	defer func() {
		if r := recover(); r != nil {
			slog.Error("heartbeat worker panicked", "session", sess.id, "panic", r)
		}
	}()

	for {
		remaining, closeAt := m.clk.TimeToClose(sess.period)
		if remaining <= 0 {
			if !sleepCtx(sess.ctx, time.Second) {
				return
			}
			continue
		}

		m.countdown(sess, closeAt)

		if sess.ctx.Err() != nil {
			return
		}
		if !sleepCtx(sess.ctx, m.cfg.PostCloseDelay+time.Second) {
			return
		}
	}
}

// countdown 一根K线内的指示器生命周期: 创建 -> 周期性编辑 -> 删除
func (m *CandleMonitor) countdown(sess *session, closeAt time.Time) {
	remaining := closeAt.Sub(m.clk.Now())
	prog, err := m.notifier.BeginProgress(sess.ctx, sess.userID, FormatCountdown(sess.period, closeAt, remaining))
	if err != nil {
		slog.Warn("failed to start countdown indicator", "session", sess.id, "error", err)
		sleepCtx(sess.ctx, remaining)
		return
	}
	defer func() {
		ctx, cancel := context.WithTimeout(context.Background(), m.cfg.SendTimeout)
		defer cancel()
		prog.Close(ctx)
	}()

	ticker := time.NewTicker(m.cfg.ProgressRefresh)
	defer ticker.Stop()

	for {
		select {
		case <-sess.ctx.Done():
			return
		case <-ticker.C:
			remaining = closeAt.Sub(m.clk.Now())
			if remaining <= 0 {
				return
			}
			if err := prog.Update(sess.ctx, FormatCountdown(sess.period, closeAt, remaining)); err != nil {
				slog.Warn("failed to refresh countdown indicator", "session", sess.id, "error", err)
			}
		}
	}
}

// supervise 等待会话取消, 回收worker并把会话从表中摘除
func (m *CandleMonitor) supervise(sess *session) {
	<-sess.ctx.Done()

	workersDone := make(chan struct{})
	go func() {
		sess.wg.Wait()
		close(workersDone)
	}()

	select {
	case <-workersDone:
	case <-time.After(m.cfg.StopTimeout):
		slog.Warn("abandoning workers that did not exit in time", "session", sess.id)
	}

	m.mu.Lock()
	delete(m.sessions, sess.userID)
	m.mu.Unlock()
	close(sess.done)

	slog.Info("monitoring session closed", "session", sess.id, "user", sess.userID)
}

// sleepCtx 可取消的睡眠, 被取消时返回false
func sleepCtx(ctx context.Context, d time.Duration) bool {
	if d <= 0 {
		return ctx.Err() == nil
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-timer.C:
		return true
	}
}
