package portfolio

import (
	"github.com/shopspring/decimal"
)

// Direction 交易方向
type Direction string

const (
	Long  Direction = "long"
	Short Direction = "short"
)

// TradeInput 仓位计算的输入参数
type TradeInput struct {
	EntryPrice decimal.Decimal
	Direction  Direction
	StopLoss   decimal.Decimal
	// RiskReward 盈亏比, 止盈距离 = 止损距离 * RiskReward
	RiskReward decimal.Decimal
	Balance    decimal.Decimal
	// RiskPercent 单笔风险占余额比例, (0, 0.1]
	RiskPercent decimal.Decimal
}

// TradeParameters 仓位计算结果
type TradeParameters struct {
	EntryPrice decimal.Decimal
	Direction  Direction
	StopLoss   decimal.Decimal
	TakeProfit decimal.Decimal
	RiskReward decimal.Decimal

	Balance     decimal.Decimal
	RiskPercent decimal.Decimal
	// RiskMoney 止损触发时的最大亏损金额
	RiskMoney decimal.Decimal

	// Volume 开仓数量(标的单位)
	Volume        decimal.Decimal
	PositionValue decimal.Decimal
	// RequiredLeverage 仓位价值超过余额时需要的杠杆, 否则为1
	RequiredLeverage decimal.Decimal

	PotentialLoss   decimal.Decimal
	PotentialProfit decimal.Decimal

	RiskPerUnit decimal.Decimal
	// RiskDistancePercent 止损距离占入场价的百分比
	RiskDistancePercent decimal.Decimal
}
