package monitor

import (
	"fmt"
	"strings"
	"time"

	"github.com/KNICEX/candle-sentry/internal/service/detector"
	"github.com/KNICEX/candle-sentry/internal/service/market"
	"github.com/KNICEX/candle-sentry/internal/service/notification"
)

// FormatSignal 渲染订单块信号消息, Telegram Markdown格式
func FormatSignal(signal *detector.Signal) string {
	direction := "🟢 LONG"
	title := "Bullish Order Block"
	colors := "RED → GREEN"
	if signal.Kind == detector.Sell {
		direction = "🔴 SHORT"
		title = "Bearish Order Block"
		colors = "GREEN → RED"
	}

	// 交易对来自用户输入, 含下划线会打断Markdown解析导致发送失败
	var b strings.Builder
	fmt.Fprintf(&b, "*%s — %s* (x%.1f)\n", notification.EscapeMarkdown(signal.Symbol), title, signal.BodyRatio())
	fmt.Fprintf(&b, "• Signal: %s\n", direction)
	fmt.Fprintf(&b, "• Period: %s\n", signal.Period)
	fmt.Fprintf(&b, "• Colors: %s\n", colors)
	fmt.Fprintf(&b, "• Close: %s\n", FormatPrice(signal.Current.Close))

	if imb := signal.Imbalance; imb != nil {
		fmt.Fprintf(&b, "• Imbalance zone: %s (%s–%s)\n",
			FormatPrice(imb.MidPrice()), FormatPrice(imb.Low), FormatPrice(imb.High))
	}

	b.WriteString("\n_This is a signal, not financial advice. Confirm with your own analysis._")
	return b.String()
}

// FormatCountdown 倒计时指示器文案
func FormatCountdown(period market.Interval, closeAt time.Time, remaining time.Duration) string {
	return fmt.Sprintf("⏳ Waiting for the %s candle to close\nCloses at %s UTC (in %s)",
		period, closeAt.UTC().Format("15:04"), FormatDuration(remaining))
}

// FormatDuration 人类可读时长, 最多两个单位: "1h 23m", "4m 10s", "42s"
func FormatDuration(d time.Duration) string {
	if d < 0 {
		d = 0
	}
	d = d.Round(time.Second)

	hours := int(d.Hours())
	minutes := int(d.Minutes()) % 60
	seconds := int(d.Seconds()) % 60

	switch {
	case hours > 0:
		return fmt.Sprintf("%dh %dm", hours, minutes)
	case minutes > 0:
		return fmt.Sprintf("%dm %ds", minutes, seconds)
	default:
		return fmt.Sprintf("%ds", seconds)
	}
}

// FormatPrice 按价格量级选精度, 低价币种保留更多小数位
func FormatPrice(price float64) string {
	switch {
	case price >= 1:
		return fmt.Sprintf("%.2f", price)
	case price >= 0.01:
		return fmt.Sprintf("%.4f", price)
	default:
		return fmt.Sprintf("%.6f", price)
	}
}
