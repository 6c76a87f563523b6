package binance

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/adshao/go-binance/v2"
	"github.com/shopspring/decimal"

	"github.com/KNICEX/candle-sentry/internal/service/market"
)

var _ market.Source = (*Source)(nil)

// 币安现货支持的计价币种
var quoteSuffixes = []string{"USDT", "USDC", "BUSD", "BTC", "ETH"}

// Source 币安现货行情数据源
type Source struct {
	cli *binance.Client
}

func NewSource(cli *binance.Client) *Source {
	return &Source{cli: cli}
}

func (s *Source) Name() string {
	return "binance"
}

func (s *Source) Supports(symbol string) bool {
	for _, quote := range quoteSuffixes {
		if strings.HasSuffix(symbol, quote) && len(symbol) > len(quote) {
			return true
		}
	}
	return false
}

func parseBar(k *binance.Kline) (market.Bar, error) {
	fields := map[string]string{
		"open":   k.Open,
		"high":   k.High,
		"low":    k.Low,
		"close":  k.Close,
		"volume": k.Volume,
	}
	parsed := make(map[string]float64, len(fields))
	for name, raw := range fields {
		d, err := decimal.NewFromString(raw)
		if err != nil {
			return market.Bar{}, fmt.Errorf("parse kline %s %q: %w", name, raw, err)
		}
		parsed[name] = d.InexactFloat64()
	}
	return market.Bar{
		Open:      parsed["open"],
		High:      parsed["high"],
		Low:       parsed["low"],
		Close:     parsed["close"],
		Volume:    parsed["volume"],
		Timestamp: k.OpenTime,
	}, nil
}

// FetchBar 拉取最近一根已收盘K线
// limit=2 的返回里最后一根通常还在走, 取倒数第二根保证已收盘
func (s *Source) FetchBar(ctx context.Context, symbol string, interval market.Interval) (market.Bar, error) {
	klines, err := s.cli.NewKlinesService().
		Symbol(symbol).
		Interval(interval.ToString()).
		Limit(2).
		Do(ctx)
	if err != nil {
		return market.Bar{}, err
	}
	if len(klines) == 0 {
		return market.Bar{}, fmt.Errorf("no klines returned for %s", symbol)
	}

	k := klines[len(klines)-1]
	if len(klines) >= 2 && time.UnixMilli(k.CloseTime).After(time.Now()) {
		k = klines[len(klines)-2]
	}
	return parseBar(k)
}

func (s *Source) FetchPrice(ctx context.Context, symbol string) (float64, error) {
	prices, err := s.cli.NewListPricesService().Symbol(symbol).Do(ctx)
	if err != nil {
		// ticker失败时退回到1mK线的收盘价
		return s.priceFromKline(ctx, symbol, err)
	}
	if len(prices) == 0 {
		return 0, fmt.Errorf("symbol %s not found", symbol)
	}
	price, err := decimal.NewFromString(prices[0].Price)
	if err != nil {
		return 0, fmt.Errorf("parse price %q: %w", prices[0].Price, err)
	}
	return price.InexactFloat64(), nil
}

func (s *Source) priceFromKline(ctx context.Context, symbol string, tickerErr error) (float64, error) {
	klines, err := s.cli.NewKlinesService().
		Symbol(symbol).
		Interval("1m").
		Limit(1).
		Do(ctx)
	if err != nil {
		return 0, fmt.Errorf("ticker failed (%v), kline fallback failed: %w", tickerErr, err)
	}
	if len(klines) == 0 {
		return 0, fmt.Errorf("ticker failed (%v), kline fallback returned no data", tickerErr)
	}
	price, err := decimal.NewFromString(klines[0].Close)
	if err != nil {
		return 0, err
	}
	return price.InexactFloat64(), nil
}

// ServerTime 返回币安服务器时间, 供时钟服务校准本地时钟
func (s *Source) ServerTime(ctx context.Context) (time.Time, error) {
	millis, err := s.cli.NewServerTimeService().Do(ctx)
	if err != nil {
		return time.Time{}, err
	}
	return time.UnixMilli(millis).UTC(), nil
}
