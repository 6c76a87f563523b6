package market

import (
	"context"
	"errors"
	"time"
)

var (
	// ErrNoSource 没有数据源支持该交易对
	ErrNoSource = errors.New("no source registered for symbol")
)

// Interval K线周期
type Interval string

func (i Interval) ToString() string {
	return string(i)
}

const (
	Interval5m  Interval = "5m"
	Interval15m Interval = "15m"
	Interval30m Interval = "30m"
	Interval1h  Interval = "1h"
	Interval4h  Interval = "4h"
	Interval1d  Interval = "1d"
)

var intervalMinutes = map[Interval]int{
	Interval5m:  5,
	Interval15m: 15,
	Interval30m: 30,
	Interval1h:  60,
	Interval4h:  240,
	Interval1d:  1440,
}

// Minutes returns the interval length in minutes, 0 for an unknown interval.
func (i Interval) Minutes() int {
	return intervalMinutes[i]
}

func (i Interval) Valid() bool {
	_, ok := intervalMinutes[i]
	return ok
}

// Intervals 支持的K线周期, 从短到长
func Intervals() []Interval {
	return []Interval{Interval5m, Interval15m, Interval30m, Interval1h, Interval4h, Interval1d}
}

// Bar 一根已完成的K线, 构造后不可变
type Bar struct {
	Open      float64
	High      float64
	Low       float64
	Close     float64
	Volume    float64
	Timestamp int64 // open time, epoch milliseconds
}

// IsUp reports the bar color: close at or above open counts as up.
func (b Bar) IsUp() bool {
	return b.Close >= b.Open
}

func (b Bar) BodySize() float64 {
	if b.Close > b.Open {
		return b.Close - b.Open
	}
	return b.Open - b.Close
}

func (b Bar) Range() float64 {
	return b.High - b.Low
}

func (b Bar) UpperWick() float64 {
	if b.Close > b.Open {
		return b.High - b.Close
	}
	return b.High - b.Open
}

func (b Bar) LowerWick() float64 {
	if b.Close > b.Open {
		return b.Open - b.Low
	}
	return b.Close - b.Low
}

func (b Bar) OpenTime() time.Time {
	return time.UnixMilli(b.Timestamp).UTC()
}

// Source 一个上游行情数据源, 每个数据源负责一部分交易对
type Source interface {
	Name() string
	// Supports reports whether this source serves the given symbol.
	Supports(symbol string) bool
	// FetchBar returns the latest closed bar for the symbol.
	FetchBar(ctx context.Context, symbol string, interval Interval) (Bar, error)
	// FetchPrice returns the latest traded price for the symbol.
	FetchPrice(ctx context.Context, symbol string) (float64, error)
}

// Gateway 行情访问入口, 在数据源之上提供缓存/限流/重试
type Gateway interface {
	FetchBar(ctx context.Context, symbol string, interval Interval) (Bar, error)
	FetchPrice(ctx context.Context, symbol string) (float64, error)
}
