package detector

import (
	"sync"
	"time"

	"github.com/KNICEX/candle-sentry/internal/service/market"
)

const (
	// MinWindow / MaxWindow 滚动窗口容量边界
	MinWindow = 2
	MaxWindow = 3

	// orderBlockBodyRatio 当前实体至少是前一根实体的倍数
	orderBlockBodyRatio = 2.0
)

// Detector 持有一个会话内每个交易对的K线滚动窗口并做形态检测
// 每个监控会话建一个实例, 会话之间互不可见; 同一会话的多个worker共享, 内部加锁
type Detector struct {
	mu       sync.Mutex
	capacity int
	period   market.Interval
	windows  map[string][]market.Bar
	lastImb  map[string]*Imbalance
	now      func() time.Time
}

func New(period market.Interval, capacity int) *Detector {
	if capacity < MinWindow {
		capacity = MinWindow
	}
	if capacity > MaxWindow {
		capacity = MaxWindow
	}
	return &Detector{
		capacity: capacity,
		period:   period,
		windows:  make(map[string][]market.Bar),
		lastImb:  make(map[string]*Imbalance),
		now:      time.Now,
	}
}

// Seed 预加载一根历史K线, 不触发检测
func (d *Detector) Seed(symbol string, bar market.Bar) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.append(symbol, bar)
}

// WindowLen 当前窗口内的K线数量
func (d *Detector) WindowLen(symbol string) int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.windows[symbol])
}

func (d *Detector) append(symbol string, bar market.Bar) {
	window := append(d.windows[symbol], bar)
	if len(window) > d.capacity {
		window = window[1:]
	}
	d.windows[symbol] = window
}

// AppendAndEvaluate 将新收盘的K线并入窗口并检测形态
// 返回至多一个订单块信号; 时间戳与上一根相同的K线视为无新数据, 不重复评估
func (d *Detector) AppendAndEvaluate(symbol string, bar market.Bar) *Signal {
	d.mu.Lock()
	defer d.mu.Unlock()

	window := d.windows[symbol]
	if len(window) > 0 && window[len(window)-1].Timestamp == bar.Timestamp {
		return nil
	}

	d.append(symbol, bar)
	window = d.windows[symbol]
	if len(window) < 2 {
		return nil
	}

	prev, current := window[len(window)-2], window[len(window)-1]

	if imb := detectImbalance(prev, current); imb != nil {
		d.lastImb[symbol] = imb
	}

	kind, ok := detectOrderBlock(prev, current)
	if !ok {
		return nil
	}

	return &Signal{
		Symbol:     symbol,
		Kind:       kind,
		Period:     d.period,
		Prev:       prev,
		Current:    current,
		Imbalance:  d.lastImb[symbol],
		DetectedAt: d.now().UTC(),
	}
}

// detectOrderBlock 订单块: 两根K线颜色相反且当前实体不小于前一根的两倍
// 十字星(实体为零)不参与判定
func detectOrderBlock(prev, current market.Bar) (Kind, bool) {
	if prev.BodySize() == 0 || current.BodySize() == 0 {
		return "", false
	}
	if prev.IsUp() == current.IsUp() {
		return "", false
	}
	if current.BodySize() < prev.BodySize()*orderBlockBodyRatio {
		return "", false
	}
	if current.IsUp() {
		return Buy, true
	}
	return Sell, true
}

// detectImbalance 缺口: 两根K线价格区间完全不重叠
func detectImbalance(prev, current market.Bar) *Imbalance {
	if current.Low > prev.High {
		return &Imbalance{High: current.Low, Low: prev.High, Kind: Buy}
	}
	if current.High < prev.Low {
		return &Imbalance{High: prev.Low, Low: current.High, Kind: Sell}
	}
	return nil
}
