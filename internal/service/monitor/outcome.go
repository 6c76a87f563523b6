package monitor

import (
	"context"
	"log/slog"
	"time"

	"github.com/KNICEX/candle-sentry/internal/entity"
	"github.com/KNICEX/candle-sentry/internal/repo"
	"github.com/KNICEX/candle-sentry/internal/schedule"
	"github.com/KNICEX/candle-sentry/internal/service/detector"
	"github.com/KNICEX/candle-sentry/internal/service/market"
)

const defaultEvalAfter = 30 * time.Minute

// OutcomeTask 回看已触发的信号, 用30分钟后的现价判定预测成败
// 由cron周期性调度
type OutcomeTask struct {
	signals   repo.SignalRepo
	gateway   market.Gateway
	evalAfter time.Duration
	now       func() time.Time
}

var _ schedule.Task = (*OutcomeTask)(nil)

func NewOutcomeTask(signals repo.SignalRepo, gateway market.Gateway) *OutcomeTask {
	return &OutcomeTask{
		signals:   signals,
		gateway:   gateway,
		evalAfter: defaultEvalAfter,
		now:       time.Now,
	}
}

func (t *OutcomeTask) Name() string {
	return "signal-outcome"
}

func (t *OutcomeTask) Run(ctx context.Context) error {
	records, err := t.signals.FindByStatus(ctx, entity.SignalStatusRunning)
	if err != nil {
		return err
	}

	for _, record := range records {
		if t.now().Sub(record.CreatedAt) < t.evalAfter {
			continue
		}

		price, err := t.gateway.FetchPrice(ctx, record.Symbol)
		if err != nil {
			slog.Warn("failed to fetch price for signal outcome",
				"signal", record.Id, "symbol", record.Symbol, "error", err)
			continue
		}

		status := entity.SignalStatusFailed
		if record.Kind == string(detector.Buy) && price > record.Price {
			status = entity.SignalStatusSuccess
		}
		if record.Kind == string(detector.Sell) && price < record.Price {
			status = entity.SignalStatusSuccess
		}

		if err := t.signals.UpdateStatus(ctx, record.Id, status); err != nil {
			slog.Error("failed to update signal status", "signal", record.Id, "error", err)
			continue
		}
		slog.Info("signal outcome settled",
			"signal", record.Id, "symbol", record.Symbol, "kind", record.Kind,
			"entry", record.Price, "current", price, "status", status)
	}
	return nil
}
