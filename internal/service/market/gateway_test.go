package market

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

type stubSource struct {
	name       string
	symbols    map[string]bool
	bar        Bar
	price      float64
	err        error
	barCalls   int
	priceCalls int
}

func (s *stubSource) Name() string { return s.name }

func (s *stubSource) Supports(symbol string) bool {
	return s.symbols[symbol]
}

func (s *stubSource) FetchBar(ctx context.Context, symbol string, interval Interval) (Bar, error) {
	s.barCalls++
	if s.err != nil {
		return Bar{}, s.err
	}
	return s.bar, nil
}

func (s *stubSource) FetchPrice(ctx context.Context, symbol string) (float64, error) {
	s.priceCalls++
	if s.err != nil {
		return 0, s.err
	}
	return s.price, nil
}

func testConfig() GatewayConfig {
	cfg := DefaultGatewayConfig()
	cfg.RetryDelay = time.Millisecond
	return cfg
}

func TestCachingGateway_CacheHit(t *testing.T) {
	src := &stubSource{
		name:    "stub",
		symbols: map[string]bool{"BTCUSDT": true},
		bar:     Bar{Close: 43000, Timestamp: 1},
	}
	g := NewCachingGateway(testConfig(), src)

	ctx := context.Background()
	bar1, err := g.FetchBar(ctx, "BTCUSDT", Interval1h)
	assert.NoError(t, err)
	bar2, err := g.FetchBar(ctx, "BTCUSDT", Interval1h)
	assert.NoError(t, err)

	assert.Equal(t, bar1, bar2)
	assert.Equal(t, 1, src.barCalls, "TTL内的第二次请求应命中缓存")
}

func TestCachingGateway_CacheExpiry(t *testing.T) {
	src := &stubSource{
		name:    "stub",
		symbols: map[string]bool{"BTCUSDT": true},
		bar:     Bar{Close: 43000, Timestamp: 1},
	}
	g := NewCachingGateway(testConfig(), src)

	current := time.Date(2024, 3, 1, 14, 0, 0, 0, time.UTC)
	g.now = func() time.Time { return current }

	ctx := context.Background()
	_, err := g.FetchBar(ctx, "BTCUSDT", Interval1h)
	assert.NoError(t, err)

	current = current.Add(31 * time.Second)
	_, err = g.FetchBar(ctx, "BTCUSDT", Interval1h)
	assert.NoError(t, err)
	assert.Equal(t, 2, src.barCalls, "TTL过期后应回源")
}

func TestCachingGateway_IntervalsCachedSeparately(t *testing.T) {
	src := &stubSource{
		name:    "stub",
		symbols: map[string]bool{"BTCUSDT": true},
		bar:     Bar{Close: 43000, Timestamp: 1},
	}
	g := NewCachingGateway(testConfig(), src)

	ctx := context.Background()
	_, _ = g.FetchBar(ctx, "BTCUSDT", Interval1h)
	_, _ = g.FetchBar(ctx, "BTCUSDT", Interval15m)
	assert.Equal(t, 2, src.barCalls)
}

func TestCachingGateway_RetryExhaustion(t *testing.T) {
	src := &stubSource{
		name:    "stub",
		symbols: map[string]bool{"BTCUSDT": true},
		err:     errors.New("upstream down"),
	}
	g := NewCachingGateway(testConfig(), src)

	_, err := g.FetchBar(context.Background(), "BTCUSDT", Interval1h)
	assert.Error(t, err)
	assert.Equal(t, 3, src.barCalls, "失败请求重试到上限为止")
}

func TestCachingGateway_RetryStopsOnSuccess(t *testing.T) {
	src := &stubSource{
		name:    "stub",
		symbols: map[string]bool{"BTCUSDT": true},
		price:   43000,
	}
	g := NewCachingGateway(testConfig(), src)

	price, err := g.FetchPrice(context.Background(), "BTCUSDT")
	assert.NoError(t, err)
	assert.Equal(t, 43000.0, price)
	assert.Equal(t, 1, src.priceCalls)
}

func TestCachingGateway_NoSource(t *testing.T) {
	src := &stubSource{name: "stub", symbols: map[string]bool{}}
	g := NewCachingGateway(testConfig(), src)

	_, err := g.FetchBar(context.Background(), "IMOEX", Interval1h)
	assert.ErrorIs(t, err, ErrNoSource)
}

func TestCachingGateway_SourceRouting(t *testing.T) {
	index := &stubSource{
		name:    "moex",
		symbols: map[string]bool{"IMOEX": true},
		bar:     Bar{Close: 3200, Timestamp: 1},
	}
	crypto := &stubSource{
		name:    "binance",
		symbols: map[string]bool{"BTCUSDT": true},
		bar:     Bar{Close: 43000, Timestamp: 1},
	}
	g := NewCachingGateway(testConfig(), index, crypto)

	ctx := context.Background()
	bar, err := g.FetchBar(ctx, "IMOEX", Interval1h)
	assert.NoError(t, err)
	assert.Equal(t, 3200.0, bar.Close)
	assert.Equal(t, 0, crypto.barCalls)

	bar, err = g.FetchBar(ctx, "BTCUSDT", Interval1h)
	assert.NoError(t, err)
	assert.Equal(t, 43000.0, bar.Close)
}

func TestCachingGateway_CancelledContext(t *testing.T) {
	src := &stubSource{
		name:    "stub",
		symbols: map[string]bool{"BTCUSDT": true},
		err:     errors.New("slow upstream"),
	}
	g := NewCachingGateway(testConfig(), src)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := g.FetchBar(ctx, "BTCUSDT", Interval1h)
	assert.Error(t, err)
}
