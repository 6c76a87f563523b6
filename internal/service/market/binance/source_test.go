package binance

import (
	"testing"

	"github.com/adshao/go-binance/v2"
	"github.com/stretchr/testify/assert"
)

func TestSource_Supports(t *testing.T) {
	src := NewSource(nil)

	assert.True(t, src.Supports("BTCUSDT"))
	assert.True(t, src.Supports("SOLUSDC"))
	assert.True(t, src.Supports("ETHBTC"))
	assert.False(t, src.Supports("IMOEX"))
	assert.False(t, src.Supports("USDT"), "光秃秃的计价币种不是交易对")
}

func TestParseBar(t *testing.T) {
	bar, err := parseBar(&binance.Kline{
		OpenTime: 1709301600000,
		Open:     "43000.5",
		High:     "43400.0",
		Low:      "42950.25",
		Close:    "43300.75",
		Volume:   "1234.5",
	})
	assert.NoError(t, err)
	assert.Equal(t, 43000.5, bar.Open)
	assert.Equal(t, 43400.0, bar.High)
	assert.Equal(t, 42950.25, bar.Low)
	assert.Equal(t, 43300.75, bar.Close)
	assert.Equal(t, 1234.5, bar.Volume)
	assert.Equal(t, int64(1709301600000), bar.Timestamp)
}

func TestParseBar_BadNumber(t *testing.T) {
	_, err := parseBar(&binance.Kline{
		Open:  "not-a-number",
		High:  "1",
		Low:   "1",
		Close: "1",
	})
	assert.Error(t, err)
}
