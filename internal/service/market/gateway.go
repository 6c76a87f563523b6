package market

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/samber/lo"
)

var _ Gateway = (*CachingGateway)(nil)

type GatewayConfig struct {
	// CacheTTL 缓存有效期
	CacheTTL time.Duration
	// RequestTimeout 单次上游请求超时
	RequestTimeout time.Duration
	// MaxRetries 上游请求最大尝试次数
	MaxRetries int
	// RetryDelay 线性退避基础延迟, 第n次失败后等待 RetryDelay*n
	RetryDelay time.Duration
	// MaxConcurrent 进程级并发上游请求上限
	MaxConcurrent int
}

func DefaultGatewayConfig() GatewayConfig {
	return GatewayConfig{
		CacheTTL:       30 * time.Second,
		RequestTimeout: 10 * time.Second,
		MaxRetries:     3,
		RetryDelay:     time.Second,
		MaxConcurrent:  10,
	}
}

type barEntry struct {
	bar       Bar
	fetchedAt time.Time
}

type priceEntry struct {
	price     float64
	fetchedAt time.Time
}

// CachingGateway 在已注册数据源之上提供短TTL缓存、并发闸门和重试
// 缓存与闸门为进程级共享, 所有用户的worker走同一个实例
type CachingGateway struct {
	sources []Source
	cfg     GatewayConfig

	mu     sync.RWMutex
	bars   map[string]barEntry
	prices map[string]priceEntry

	// slots bounds the number of outstanding upstream calls.
	slots chan struct{}

	now func() time.Time
}

func NewCachingGateway(cfg GatewayConfig, sources ...Source) *CachingGateway {
	if cfg.MaxConcurrent <= 0 {
		cfg.MaxConcurrent = 1
	}
	return &CachingGateway{
		sources: sources,
		cfg:     cfg,
		bars:    make(map[string]barEntry),
		prices:  make(map[string]priceEntry),
		slots:   make(chan struct{}, cfg.MaxConcurrent),
		now:     time.Now,
	}
}

func (g *CachingGateway) source(symbol string) (Source, error) {
	src, ok := lo.Find(g.sources, func(s Source) bool {
		return s.Supports(symbol)
	})
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNoSource, symbol)
	}
	return src, nil
}

func barKey(symbol string, interval Interval) string {
	return symbol + "/" + interval.ToString()
}

func (g *CachingGateway) cachedBar(key string) (Bar, bool) {
	g.mu.RLock()
	defer g.mu.RUnlock()
	entry, ok := g.bars[key]
	if !ok || g.now().Sub(entry.fetchedAt) >= g.cfg.CacheTTL {
		return Bar{}, false
	}
	return entry.bar, true
}

func (g *CachingGateway) cachedPrice(symbol string) (float64, bool) {
	g.mu.RLock()
	defer g.mu.RUnlock()
	entry, ok := g.prices[symbol]
	if !ok || g.now().Sub(entry.fetchedAt) >= g.cfg.CacheTTL {
		return 0, false
	}
	return entry.price, true
}

func (g *CachingGateway) FetchBar(ctx context.Context, symbol string, interval Interval) (Bar, error) {
	key := barKey(symbol, interval)
	if bar, ok := g.cachedBar(key); ok {
		return bar, nil
	}

	src, err := g.source(symbol)
	if err != nil {
		return Bar{}, err
	}

	var bar Bar
	err = g.withSlot(ctx, func() error {
		var fetchErr error
		bar, fetchErr = retryCall(ctx, g.cfg, symbol, func(callCtx context.Context) (Bar, error) {
			return src.FetchBar(callCtx, symbol, interval)
		})
		return fetchErr
	})
	if err != nil {
		return Bar{}, fmt.Errorf("fetch bar %s %s: %w", symbol, interval, err)
	}

	g.mu.Lock()
	g.bars[key] = barEntry{bar: bar, fetchedAt: g.now()}
	g.mu.Unlock()
	return bar, nil
}

func (g *CachingGateway) FetchPrice(ctx context.Context, symbol string) (float64, error) {
	if price, ok := g.cachedPrice(symbol); ok {
		return price, nil
	}

	src, err := g.source(symbol)
	if err != nil {
		return 0, err
	}

	var price float64
	err = g.withSlot(ctx, func() error {
		var fetchErr error
		price, fetchErr = retryCall(ctx, g.cfg, symbol, func(callCtx context.Context) (float64, error) {
			return src.FetchPrice(callCtx, symbol)
		})
		return fetchErr
	})
	if err != nil {
		return 0, fmt.Errorf("fetch price %s: %w", symbol, err)
	}

	g.mu.Lock()
	g.prices[symbol] = priceEntry{price: price, fetchedAt: g.now()}
	g.mu.Unlock()
	return price, nil
}

// withSlot 占用一个并发槽位后执行fn, ctx取消时直接返回
func (g *CachingGateway) withSlot(ctx context.Context, fn func() error) error {
	select {
	case g.slots <- struct{}{}:
	case <-ctx.Done():
		return ctx.Err()
	}
	defer func() { <-g.slots }()
	return fn()
}

// retryCall runs fn up to MaxRetries times with linear backoff.
func retryCall[T any](ctx context.Context, cfg GatewayConfig, symbol string, fn func(ctx context.Context) (T, error)) (T, error) {
	var zero T
	var lastErr error
	for attempt := 1; attempt <= cfg.MaxRetries; attempt++ {
		callCtx, cancel := context.WithTimeout(ctx, cfg.RequestTimeout)
		res, err := fn(callCtx)
		cancel()
		if err == nil {
			return res, nil
		}
		lastErr = err
		slog.Warn("market request failed", "symbol", symbol, "attempt", attempt, "error", err)
		if attempt == cfg.MaxRetries {
			break
		}
		select {
		case <-time.After(cfg.RetryDelay * time.Duration(attempt)):
		case <-ctx.Done():
			return zero, ctx.Err()
		}
	}
	return zero, fmt.Errorf("after %d attempts: %w", cfg.MaxRetries, lastErr)
}
