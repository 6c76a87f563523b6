package monitor

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/KNICEX/candle-sentry/internal/entity"
	"github.com/KNICEX/candle-sentry/internal/service/market"
)

func TestOutcomeTask_Run(t *testing.T) {
	now := time.Date(2024, 3, 1, 15, 0, 0, 0, time.UTC)

	gateway := newFakeGateway()
	gateway.push("BTCUSDT", market.Bar{Close: 43500, Timestamp: 1})
	gateway.push("ETHUSDT", market.Bar{Close: 1900, Timestamp: 1})
	gateway.push("SOLUSDT", market.Bar{Close: 101, Timestamp: 1})

	signals := &fakeSignalRepo{}
	seed := []entity.SignalRecord{
		// 买入信号, 现价高于入场 -> 成功
		{UserId: 1, Symbol: "BTCUSDT", Kind: "buy", Price: 43000, Status: entity.SignalStatusRunning},
		// 卖出信号, 现价高于入场 -> 失败
		{UserId: 1, Symbol: "ETHUSDT", Kind: "sell", Price: 1800, Status: entity.SignalStatusRunning},
		// 太新的信号本轮跳过
		{UserId: 2, Symbol: "SOLUSDT", Kind: "buy", Price: 100, Status: entity.SignalStatusRunning},
	}
	for i, rec := range seed {
		id, err := signals.Create(context.Background(), rec)
		assert.NoError(t, err)
		age := time.Hour
		if rec.Symbol == "SOLUSDT" {
			age = 5 * time.Minute
		}
		signals.mu.Lock()
		signals.records[i].Id = id
		signals.records[i].CreatedAt = now.Add(-age)
		signals.mu.Unlock()
	}

	task := NewOutcomeTask(signals, gateway)
	task.now = func() time.Time { return now }

	assert.NoError(t, task.Run(context.Background()))

	records := signals.all()
	assert.Equal(t, entity.SignalStatusSuccess, records[0].Status)
	assert.Equal(t, entity.SignalStatusFailed, records[1].Status)
	assert.Equal(t, entity.SignalStatusRunning, records[2].Status, "不足30分钟的信号保持运行中")
}

func TestOutcomeTask_SellSuccess(t *testing.T) {
	now := time.Date(2024, 3, 1, 15, 0, 0, 0, time.UTC)

	gateway := newFakeGateway()
	gateway.push("ETHUSDT", market.Bar{Close: 1700, Timestamp: 1})

	signals := &fakeSignalRepo{}
	_, err := signals.Create(context.Background(), entity.SignalRecord{
		UserId: 1, Symbol: "ETHUSDT", Kind: "sell", Price: 1800, Status: entity.SignalStatusRunning,
	})
	assert.NoError(t, err)
	signals.mu.Lock()
	signals.records[0].CreatedAt = now.Add(-time.Hour)
	signals.mu.Unlock()

	task := NewOutcomeTask(signals, gateway)
	task.now = func() time.Time { return now }

	assert.NoError(t, task.Run(context.Background()))
	assert.Equal(t, entity.SignalStatusSuccess, signals.all()[0].Status)
}

func TestOutcomeTask_PriceFetchFailureSkips(t *testing.T) {
	now := time.Date(2024, 3, 1, 15, 0, 0, 0, time.UTC)

	gateway := newFakeGateway() // 没有脚本数据, FetchPrice会报错

	signals := &fakeSignalRepo{}
	_, err := signals.Create(context.Background(), entity.SignalRecord{
		UserId: 1, Symbol: "BTCUSDT", Kind: "buy", Price: 43000, Status: entity.SignalStatusRunning,
	})
	assert.NoError(t, err)
	signals.mu.Lock()
	signals.records[0].CreatedAt = now.Add(-time.Hour)
	signals.mu.Unlock()

	task := NewOutcomeTask(signals, gateway)
	task.now = func() time.Time { return now }

	assert.NoError(t, task.Run(context.Background()))
	assert.Equal(t, entity.SignalStatusRunning, signals.all()[0].Status, "取价失败的信号留待下一轮")
}
