package detector

import (
	"time"

	"github.com/KNICEX/candle-sentry/internal/service/market"
)

// Kind 信号方向
type Kind string

const (
	Buy  Kind = "buy"
	Sell Kind = "sell"
)

// Imbalance 两根K线之间的价格缺口, 检出后不可变
type Imbalance struct {
	High float64
	Low  float64
	Kind Kind
}

func (im Imbalance) Size() float64 {
	return im.High - im.Low
}

// MidPrice 缺口中轴, 作为挂单参考价
func (im Imbalance) MidPrice() float64 {
	return (im.High + im.Low) / 2
}

// Signal 一次检测周期的产出
type Signal struct {
	Symbol     string
	Kind       Kind
	Period     market.Interval
	Prev       market.Bar
	Current    market.Bar
	Imbalance  *Imbalance
	DetectedAt time.Time
}

// BodyRatio 当前K线实体相对前一根的倍数
func (s Signal) BodyRatio() float64 {
	prev := s.Prev.BodySize()
	if prev == 0 {
		return 0
	}
	return s.Current.BodySize() / prev
}
