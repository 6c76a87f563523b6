package clock

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/KNICEX/candle-sentry/internal/service/market"
)

type stubSource struct {
	serverTime time.Time
	err        error
	calls      int
}

func (s *stubSource) ServerTime(ctx context.Context) (time.Time, error) {
	s.calls++
	if s.err != nil {
		return time.Time{}, s.err
	}
	return s.serverTime, nil
}

func fixedNow(t time.Time) func() time.Time {
	return func() time.Time { return t }
}

func TestService_Sync(t *testing.T) {
	local := time.Date(2024, 3, 1, 14, 0, 0, 0, time.UTC)
	source := &stubSource{serverTime: local.Add(3 * time.Second)}

	svc := NewService(source)
	svc.now = fixedNow(local)

	err := svc.Sync(context.Background())
	assert.NoError(t, err)
	assert.Equal(t, local.Add(3*time.Second), svc.Now())
}

func TestService_SyncFailureKeepsOffset(t *testing.T) {
	local := time.Date(2024, 3, 1, 14, 0, 0, 0, time.UTC)
	source := &stubSource{serverTime: local.Add(5 * time.Second)}

	svc := NewService(source)
	svc.now = fixedNow(local)
	assert.NoError(t, svc.Sync(context.Background()))

	// 同步失败保留旧偏移量
	source.err = errors.New("network down")
	err := svc.Sync(context.Background())
	assert.Error(t, err)
	assert.Equal(t, local.Add(5*time.Second), svc.Now())
}

func TestService_TimeToClose(t *testing.T) {
	tests := []struct {
		name          string
		now           time.Time
		period        market.Interval
		wantRemaining time.Duration
		wantCloseAt   time.Time
	}{
		{
			name:          "14:23整 1h周期 还剩37分钟",
			now:           time.Date(2024, 3, 1, 14, 23, 0, 0, time.UTC),
			period:        market.Interval1h,
			wantRemaining: 37 * time.Minute,
			wantCloseAt:   time.Date(2024, 3, 1, 15, 0, 0, 0, time.UTC),
		},
		{
			name:          "14:23:30 15m周期 秒数也计入",
			now:           time.Date(2024, 3, 1, 14, 23, 30, 0, time.UTC),
			period:        market.Interval15m,
			wantRemaining: 6*time.Minute + 30*time.Second,
			wantCloseAt:   time.Date(2024, 3, 1, 14, 30, 0, 0, time.UTC),
		},
		{
			name:          "正好落在边界上 返回整个周期",
			now:           time.Date(2024, 3, 1, 14, 0, 0, 0, time.UTC),
			period:        market.Interval30m,
			wantRemaining: 30 * time.Minute,
			wantCloseAt:   time.Date(2024, 3, 1, 14, 30, 0, 0, time.UTC),
		},
		{
			name:          "4h周期跨越多个小时",
			now:           time.Date(2024, 3, 1, 14, 23, 0, 0, time.UTC),
			period:        market.Interval4h,
			wantRemaining: time.Hour + 37*time.Minute,
			wantCloseAt:   time.Date(2024, 3, 1, 16, 0, 0, 0, time.UTC),
		},
		{
			name:          "1d周期到午夜收盘",
			now:           time.Date(2024, 3, 1, 14, 23, 0, 0, time.UTC),
			period:        market.Interval1d,
			wantRemaining: 9*time.Hour + 37*time.Minute,
			wantCloseAt:   time.Date(2024, 3, 2, 0, 0, 0, 0, time.UTC),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := NewService(&stubSource{serverTime: tt.now})
			svc.now = fixedNow(tt.now)
			assert.NoError(t, svc.Sync(context.Background()))

			remaining, closeAt := svc.TimeToClose(tt.period)
			assert.Equal(t, tt.wantRemaining, remaining)
			assert.Equal(t, tt.wantCloseAt, closeAt)
		})
	}
}

func TestService_TimeToCloseUnknownPeriod(t *testing.T) {
	now := time.Date(2024, 3, 1, 14, 23, 0, 0, time.UTC)
	svc := NewService(&stubSource{serverTime: now})
	svc.now = fixedNow(now)

	remaining, closeAt := svc.TimeToClose("2h")
	assert.Equal(t, time.Duration(0), remaining)
	assert.Equal(t, now, closeAt)
}

func TestService_TimeToCloseUsesOffset(t *testing.T) {
	// 本地时钟慢90秒, 校准后的剩余时间按服务器时间算
	local := time.Date(2024, 3, 1, 14, 58, 30, 0, time.UTC)
	server := local.Add(90 * time.Second) // 15:00:00

	source := &stubSource{serverTime: server}
	svc := NewService(source)
	svc.now = fixedNow(local)
	assert.NoError(t, svc.Sync(context.Background()))

	remaining, closeAt := svc.TimeToClose(market.Interval1h)
	assert.Equal(t, time.Hour, remaining)
	assert.Equal(t, time.Date(2024, 3, 1, 16, 0, 0, 0, time.UTC), closeAt)
}
