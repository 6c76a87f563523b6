package entity

import (
	"time"
)

// SignalRecord 已触发的订单块信号
type SignalRecord struct {
	Id         int64  `gorm:"primaryKey;autoIncrement"`
	UserId     int64  `gorm:"index"`
	Symbol     string `gorm:"index"`
	Period     string
	Kind       string `gorm:"index"` // buy / sell
	Price      float64
	BodyRatio  float64
	ImbalanceHigh float64
	ImbalanceLow  float64
	Status     int       `gorm:"index"` // 预测情况, 0:运行中, 1:成功, 2:失败, 以30min后的价格为标准
	CreatedAt  time.Time `gorm:"index"`
	UpdatedAt  time.Time `gorm:"index"`
}

const (
	SignalStatusRunning = 0
	SignalStatusSuccess = 1
	SignalStatusFailed  = 2
)
