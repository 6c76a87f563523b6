package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/shopspring/decimal"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/KNICEX/candle-sentry/internal/bot"
	"github.com/KNICEX/candle-sentry/internal/repo"
	"github.com/KNICEX/candle-sentry/internal/schedule"
	"github.com/KNICEX/candle-sentry/internal/service/clock"
	"github.com/KNICEX/candle-sentry/internal/service/market"
	binancesrc "github.com/KNICEX/candle-sentry/internal/service/market/binance"
	"github.com/KNICEX/candle-sentry/internal/service/market/moex"
	"github.com/KNICEX/candle-sentry/internal/service/monitor"
	"github.com/KNICEX/candle-sentry/internal/service/notification"
	"github.com/KNICEX/candle-sentry/ioc"
)

func initViper() {

	// --config=./config/xxx.yaml
	file := pflag.String("config", "./config/config.dev.yaml", "specify config file")
	pflag.Parse()

	viper.SetConfigFile(*file)
	err := viper.ReadInConfig()
	if err != nil {
		panic(fmt.Errorf("fatal error config file: %s \n", err))
	}
}

func initLogger() {
	level := slog.LevelInfo
	if strings.EqualFold(viper.GetString("log.level"), "debug") {
		level = slog.LevelDebug
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: level})))
}

func initBotConfig() bot.Config {
	type Config struct {
		DefaultSymbols []string `mapstructure:"default_symbols"`
		CalcBalance    float64  `mapstructure:"calc_balance"`
		CalcRisk       float64  `mapstructure:"calc_risk"`
	}

	var cfg Config
	if err := viper.UnmarshalKey("bot", &cfg); err != nil {
		panic(err)
	}

	botCfg := bot.DefaultConfig()
	if len(cfg.DefaultSymbols) > 0 {
		botCfg.DefaultSymbols = cfg.DefaultSymbols
	}
	if cfg.CalcBalance > 0 {
		botCfg.CalcBalance = decimal.NewFromFloat(cfg.CalcBalance)
	}
	if cfg.CalcRisk > 0 {
		botCfg.CalcRiskPercent = decimal.NewFromFloat(cfg.CalcRisk)
	}
	return botCfg
}

func main() {
	initViper()
	initLogger()

	db := ioc.InitDB()
	if err := repo.InitTables(db); err != nil {
		panic(err)
	}
	signalRepo := repo.NewSignalRepo(db)

	bian := ioc.InitBinanceCli()
	binanceSource := binancesrc.NewSource(bian)
	moexSource := moex.NewSource(&http.Client{Timeout: 10 * time.Second},
		viper.GetStringSlice("moex.symbols")...)

	// 指数源在前, 其余交易对都落到binance
	gateway := market.NewCachingGateway(market.DefaultGatewayConfig(), moexSource, binanceSource)

	clk := clock.NewService(binanceSource)
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()
	if err := clk.Sync(ctx); err != nil {
		slog.Warn("initial clock sync failed, starting with local time", "error", err)
	}

	tg := ioc.InitTelegramBot()
	notifier := notification.NewTelegramNotifier(tg)

	candleMonitor := monitor.NewCandleMonitor(gateway, clk, signalRepo, monitor.WithNotifier(notifier))

	c := cron.New()
	if _, err := c.AddJob("@every 5m", schedule.Job(monitor.NewOutcomeTask(signalRepo, gateway), time.Minute)); err != nil {
		panic(err)
	}
	c.Start()
	defer c.Stop()

	b := bot.New(tg, candleMonitor, initBotConfig())
	if err := b.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		slog.Error("bot stopped", "error", err)
	}
	slog.Info("shutting down")
}
