package repo

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/KNICEX/candle-sentry/internal/entity"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open("file::memory:"), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, InitTables(db))
	return db
}

func TestSignalRepo_CreateAndFind(t *testing.T) {
	repo := NewSignalRepo(newTestDB(t))
	ctx := context.Background()

	id, err := repo.Create(ctx, entity.SignalRecord{
		UserId:    1,
		Symbol:    "BTCUSDT",
		Period:    "1h",
		Kind:      "buy",
		Price:     43300.75,
		BodyRatio: 2.4,
		Status:    entity.SignalStatusRunning,
	})
	assert.NoError(t, err)
	assert.Greater(t, id, int64(0))

	running, err := repo.FindByStatus(ctx, entity.SignalStatusRunning)
	assert.NoError(t, err)
	assert.Len(t, running, 1)
	assert.Equal(t, "BTCUSDT", running[0].Symbol)
	assert.Equal(t, 43300.75, running[0].Price)
}

func TestSignalRepo_UpdateStatus(t *testing.T) {
	repo := NewSignalRepo(newTestDB(t))
	ctx := context.Background()

	id, err := repo.Create(ctx, entity.SignalRecord{
		UserId: 1, Symbol: "ETHUSDT", Kind: "sell", Price: 1800, Status: entity.SignalStatusRunning,
	})
	require.NoError(t, err)

	assert.NoError(t, repo.UpdateStatus(ctx, id, entity.SignalStatusSuccess))

	running, err := repo.FindByStatus(ctx, entity.SignalStatusRunning)
	assert.NoError(t, err)
	assert.Empty(t, running)

	settled, err := repo.FindByStatus(ctx, entity.SignalStatusSuccess)
	assert.NoError(t, err)
	assert.Len(t, settled, 1)
}
