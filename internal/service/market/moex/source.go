package moex

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/KNICEX/candle-sentry/internal/service/market"
)

const defaultBaseURL = "https://iss.moex.com"

var _ market.Source = (*Source)(nil)

// Source 莫斯科交易所指数数据源 (ISS API)
// 指数没有逐根K线接口, FetchBar 用当前点位合成一根平K线
type Source struct {
	cli     *http.Client
	baseURL string
	symbols map[string]struct{}
	now     func() time.Time
}

// NewSource creates a source serving the given index symbols, e.g. "IMOEX".
func NewSource(cli *http.Client, symbols ...string) *Source {
	if cli == nil {
		cli = &http.Client{Timeout: 10 * time.Second}
	}
	set := make(map[string]struct{}, len(symbols))
	for _, s := range symbols {
		set[s] = struct{}{}
	}
	return &Source{
		cli:     cli,
		baseURL: defaultBaseURL,
		symbols: set,
		now:     time.Now,
	}
}

func (s *Source) Name() string {
	return "moex"
}

func (s *Source) Supports(symbol string) bool {
	_, ok := s.symbols[symbol]
	return ok
}

type marketDataResponse struct {
	MarketData struct {
		Columns []string         `json:"columns"`
		Data    [][]*json.Number `json:"data"`
	} `json:"marketdata"`
}

func (s *Source) FetchPrice(ctx context.Context, symbol string) (float64, error) {
	url := fmt.Sprintf(
		"%s/iss/engines/stock/markets/index/boards/SNDX/securities/%s.json?iss.meta=off&iss.only=marketdata&marketdata.columns=CURRENTVALUE",
		s.baseURL, symbol,
	)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return 0, err
	}
	resp, err := s.cli.Do(req)
	if err != nil {
		return 0, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return 0, fmt.Errorf("moex ISS status %d for %s", resp.StatusCode, symbol)
	}

	var payload marketDataResponse
	if err = json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return 0, fmt.Errorf("decode moex response: %w", err)
	}
	if len(payload.MarketData.Data) == 0 || len(payload.MarketData.Data[0]) == 0 ||
		payload.MarketData.Data[0][0] == nil {
		return 0, fmt.Errorf("moex returned no market data for %s", symbol)
	}
	price, err := payload.MarketData.Data[0][0].Float64()
	if err != nil {
		return 0, fmt.Errorf("parse index value: %w", err)
	}
	return price, nil
}

func (s *Source) FetchBar(ctx context.Context, symbol string, _ market.Interval) (market.Bar, error) {
	price, err := s.FetchPrice(ctx, symbol)
	if err != nil {
		return market.Bar{}, err
	}
	return market.Bar{
		Open:      price,
		High:      price,
		Low:       price,
		Close:     price,
		Volume:    0,
		Timestamp: s.now().UnixMilli(),
	}, nil
}
