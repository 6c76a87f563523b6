package portfolio

import (
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
)

// DefaultRiskPercent 默认单笔风险 0.5%
var DefaultRiskPercent = decimal.NewFromFloat(0.005)

var maxRiskPercent = decimal.NewFromFloat(0.1)

var (
	ErrNonPositiveInput = errors.New("all values must be positive numbers")
	ErrStopEqualsEntry  = errors.New("entry price must differ from stop loss")
	ErrBadDirection     = errors.New("direction must be long or short")
	ErrRiskOutOfRange   = errors.New("risk percent must be in (0, 0.1]")
	ErrLongStopAbove    = errors.New("long stop loss must be below entry price")
	ErrShortStopBelow   = errors.New("short stop loss must be above entry price")
)

// Calculate 根据余额、入场价、止损价和风险比例计算仓位大小
// 纯函数, 无任何外部依赖
func Calculate(input TradeInput) (TradeParameters, error) {
	if input.RiskPercent.IsZero() {
		input.RiskPercent = DefaultRiskPercent
	}
	if err := validate(input); err != nil {
		return TradeParameters{}, err
	}

	riskPerUnit := input.EntryPrice.Sub(input.StopLoss).Abs()
	riskDistancePercent := riskPerUnit.Div(input.EntryPrice).Mul(decimal.NewFromInt(100))

	takeProfit := takeProfitPrice(input, riskPerUnit)

	riskMoney := input.Balance.Mul(input.RiskPercent)
	volume := riskMoney.Div(riskPerUnit)
	positionValue := volume.Mul(input.EntryPrice)

	requiredLeverage := decimal.NewFromInt(1)
	if positionValue.GreaterThan(input.Balance) {
		requiredLeverage = positionValue.Div(input.Balance).Round(2)
	}

	potentialProfit := volume.Mul(takeProfit.Sub(input.EntryPrice).Abs())

	return TradeParameters{
		EntryPrice:          input.EntryPrice,
		Direction:           input.Direction,
		StopLoss:            input.StopLoss,
		TakeProfit:          takeProfit,
		RiskReward:          input.RiskReward,
		Balance:             input.Balance,
		RiskPercent:         input.RiskPercent,
		RiskMoney:           riskMoney,
		Volume:              volume,
		PositionValue:       positionValue,
		RequiredLeverage:    requiredLeverage,
		PotentialLoss:       riskMoney,
		PotentialProfit:     potentialProfit,
		RiskPerUnit:         riskPerUnit,
		RiskDistancePercent: riskDistancePercent,
	}, nil
}

func validate(input TradeInput) error {
	for _, v := range []decimal.Decimal{input.Balance, input.EntryPrice, input.StopLoss, input.RiskReward} {
		if !v.IsPositive() {
			return ErrNonPositiveInput
		}
	}
	if input.EntryPrice.Equal(input.StopLoss) {
		return ErrStopEqualsEntry
	}
	if input.Direction != Long && input.Direction != Short {
		return ErrBadDirection
	}
	if !input.RiskPercent.IsPositive() || input.RiskPercent.GreaterThan(maxRiskPercent) {
		return ErrRiskOutOfRange
	}
	if input.Direction == Long && input.StopLoss.GreaterThanOrEqual(input.EntryPrice) {
		return ErrLongStopAbove
	}
	if input.Direction == Short && input.StopLoss.LessThanOrEqual(input.EntryPrice) {
		return ErrShortStopBelow
	}
	return nil
}

func takeProfitPrice(input TradeInput, riskPerUnit decimal.Decimal) decimal.Decimal {
	distance := riskPerUnit.Mul(input.RiskReward)
	if input.Direction == Long {
		return input.EntryPrice.Add(distance)
	}
	return input.EntryPrice.Sub(distance)
}

// FormatVolume 按数量级选择输出精度
func FormatVolume(volume decimal.Decimal) string {
	switch {
	case volume.GreaterThanOrEqual(decimal.NewFromInt(1)):
		return fmt.Sprintf("%.2f", volume.InexactFloat64())
	case volume.GreaterThanOrEqual(decimal.NewFromFloat(0.01)):
		return fmt.Sprintf("%.4f", volume.InexactFloat64())
	default:
		return fmt.Sprintf("%.6f", volume.InexactFloat64())
	}
}
