package bot

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/samber/lo"
	"github.com/shopspring/decimal"

	"github.com/KNICEX/candle-sentry/internal/service/market"
	"github.com/KNICEX/candle-sentry/internal/service/monitor"
	"github.com/KNICEX/candle-sentry/internal/service/portfolio"
)

type Config struct {
	// DefaultSymbols /monitor 不带参数时监控的交易对
	DefaultSymbols []string
	// CalcBalance /calc 仓位计算用的账户余额
	CalcBalance decimal.Decimal
	// CalcRiskPercent 单笔风险占比, 0.005 = 0.5%
	CalcRiskPercent decimal.Decimal
	// PollTimeout 长轮询超时秒数
	PollTimeout int
}

func DefaultConfig() Config {
	return Config{
		DefaultSymbols:  []string{"BTCUSDT", "ETHUSDT"},
		CalcBalance:     decimal.NewFromInt(1000),
		CalcRiskPercent: portfolio.DefaultRiskPercent,
		PollTimeout:     30,
	}
}

// Bot 命令入口, 把Telegram命令翻译成监控服务调用
type Bot struct {
	api     *tgbotapi.BotAPI
	monitor monitor.Service
	cfg     Config
}

func New(api *tgbotapi.BotAPI, monitorSvc monitor.Service, cfg Config) *Bot {
	return &Bot{
		api:     api,
		monitor: monitorSvc,
		cfg:     cfg,
	}
}

// Run 长轮询命令循环, 阻塞直到ctx取消
func (b *Bot) Run(ctx context.Context) error {
	u := tgbotapi.NewUpdate(0)
	u.Timeout = b.cfg.PollTimeout
	updates := b.api.GetUpdatesChan(u)

	slog.Info("bot command loop started", "username", b.api.Self.UserName)
	for {
		select {
		case <-ctx.Done():
			b.api.StopReceivingUpdates()
			return ctx.Err()
		case update, ok := <-updates:
			if !ok {
				return nil
			}
			if update.Message == nil || !update.Message.IsCommand() {
				continue
			}
			b.handleCommand(ctx, update.Message)
		}
	}
}

func (b *Bot) handleCommand(ctx context.Context, msg *tgbotapi.Message) {
	userID := msg.Chat.ID
	args := strings.Fields(msg.CommandArguments())

	switch msg.Command() {
	case "start", "help":
		b.reply(userID, helpText)
	case "ping":
		b.reply(userID, "pong")
	case "period":
		b.handlePeriod(userID, args)
	case "monitor":
		b.handleMonitor(ctx, userID, args)
	case "stop":
		b.handleStop(ctx, userID)
	case "calc":
		b.handleCalc(userID, args)
	default:
		b.reply(userID, "Unknown command. Try /help")
	}
}

func (b *Bot) handlePeriod(userID int64, args []string) {
	if len(args) == 0 {
		current := b.monitor.Period(userID)
		if current == "" {
			b.reply(userID, fmt.Sprintf("No period selected. Available: %s", periodList()))
			return
		}
		b.reply(userID, fmt.Sprintf("Current period: %s. Available: %s", current, periodList()))
		return
	}

	period := market.Interval(strings.ToLower(args[0]))
	if err := b.monitor.SelectPeriod(userID, period); err != nil {
		b.reply(userID, fmt.Sprintf("Unknown period %q. Available: %s", args[0], periodList()))
		return
	}
	b.reply(userID, fmt.Sprintf("Period set to %s", period))
}

func (b *Bot) handleMonitor(ctx context.Context, userID int64, args []string) {
	symbols := b.cfg.DefaultSymbols
	if len(args) > 0 {
		symbols = lo.Map(args, func(s string, _ int) string {
			return strings.ToUpper(s)
		})
	}

	err := b.monitor.Start(ctx, userID, symbols, "")
	switch {
	case err == nil:
		b.reply(userID, fmt.Sprintf("Monitoring %s on the %s period. I will message you when an order block forms.",
			strings.Join(symbols, ", "), b.monitor.Period(userID)))
	case errors.Is(err, monitor.ErrNoPeriod):
		b.reply(userID, fmt.Sprintf("Pick a period first: /period <%s>", periodList()))
	case errors.Is(err, monitor.ErrAlreadyRunning):
		b.reply(userID, "Monitoring is already running. Use /stop first.")
	case errors.Is(err, monitor.ErrSeedFailed):
		b.reply(userID, "Could not load market data for those symbols. Check the symbols and try again.")
	default:
		slog.Error("failed to start monitoring", "user", userID, "error", err)
		b.reply(userID, "Something went wrong starting the monitor.")
	}
}

func (b *Bot) handleStop(ctx context.Context, userID int64) {
	err := b.monitor.Stop(ctx, userID)
	switch {
	case err == nil:
		b.reply(userID, "Monitoring stopped.")
	case errors.Is(err, monitor.ErrNotRunning):
		b.reply(userID, "Nothing to stop, monitoring is not running.")
	default:
		slog.Error("failed to stop monitoring", "user", userID, "error", err)
		b.reply(userID, "Something went wrong stopping the monitor.")
	}
}

// handleCalc 仓位计算: /calc <entry> <stop> [risk-reward]
// 止损低于入场按做多算, 高于入场按做空算
func (b *Bot) handleCalc(userID int64, args []string) {
	if len(args) < 2 {
		b.reply(userID, "Usage: /calc <entry> <stop> [risk-reward]\nExample: /calc 43200 42800 3")
		return
	}

	entry, err := decimal.NewFromString(args[0])
	if err != nil {
		b.reply(userID, fmt.Sprintf("Bad entry price %q", args[0]))
		return
	}
	stop, err := decimal.NewFromString(args[1])
	if err != nil {
		b.reply(userID, fmt.Sprintf("Bad stop loss %q", args[1]))
		return
	}

	riskReward := decimal.NewFromInt(3)
	if len(args) > 2 {
		riskReward, err = decimal.NewFromString(args[2])
		if err != nil {
			b.reply(userID, fmt.Sprintf("Bad risk-reward %q", args[2]))
			return
		}
	}

	direction := portfolio.Long
	if stop.GreaterThan(entry) {
		direction = portfolio.Short
	}

	params, err := portfolio.Calculate(portfolio.TradeInput{
		EntryPrice:  entry,
		Direction:   direction,
		StopLoss:    stop,
		RiskReward:  riskReward,
		Balance:     b.cfg.CalcBalance,
		RiskPercent: b.cfg.CalcRiskPercent,
	})
	if err != nil {
		b.reply(userID, fmt.Sprintf("Cannot size this trade: %s", err))
		return
	}

	b.replyMarkdown(userID, formatTrade(direction, params))
}

func (b *Bot) reply(chatID int64, text string) {
	msg := tgbotapi.NewMessage(chatID, text)
	if _, err := b.api.Send(msg); err != nil {
		slog.Warn("failed to send reply", "chat", chatID, "error", err)
	}
}

func (b *Bot) replyMarkdown(chatID int64, text string) {
	msg := tgbotapi.NewMessage(chatID, text)
	msg.ParseMode = tgbotapi.ModeMarkdown
	if _, err := b.api.Send(msg); err != nil {
		slog.Warn("failed to send reply", "chat", chatID, "error", err)
	}
}

func periodList() string {
	return strings.Join(lo.Map(market.Intervals(), func(i market.Interval, _ int) string {
		return i.ToString()
	}), ", ")
}

func formatTrade(direction portfolio.Direction, p portfolio.TradeParameters) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "*Position sizing (%s)*\n", strings.ToUpper(string(direction)))
	fmt.Fprintf(&sb, "• Entry: %s\n", p.EntryPrice)
	fmt.Fprintf(&sb, "• Stop loss: %s (%s%% away)\n", p.StopLoss, p.RiskDistancePercent.Round(2))
	fmt.Fprintf(&sb, "• Take profit: %s\n", p.TakeProfit)
	fmt.Fprintf(&sb, "• Volume: %s\n", portfolio.FormatVolume(p.Volume))
	fmt.Fprintf(&sb, "• Position value: %s\n", p.PositionValue.Round(2))
	if p.RequiredLeverage.GreaterThan(decimal.NewFromInt(1)) {
		fmt.Fprintf(&sb, "• Required leverage: x%s\n", p.RequiredLeverage)
	}
	fmt.Fprintf(&sb, "• Risk: %s (loss if stopped)\n", p.PotentialLoss.Round(2))
	fmt.Fprintf(&sb, "• Reward: %s (profit at target)", p.PotentialProfit.Round(2))
	return sb.String()
}

const helpText = `Candle Sentry commands:
/period <5m|15m|30m|1h|4h|1d> - choose the candle period
/monitor [symbols...] - start watching for order blocks
/stop - stop the current monitoring session
/calc <entry> <stop> [rr] - position sizing for a trade
/ping - check the bot is alive`
