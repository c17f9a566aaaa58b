package store

import "time"

// TradeRecord 对应 trading_history 表，每个完成的周期恰好写入一行，写后不变。
type TradeRecord struct {
	ID           int64     `gorm:"column:id;primaryKey;autoIncrement" json:"id"`
	Timestamp    time.Time `gorm:"column:timestamp;not null;index" json:"timestamp"`
	Decision     string    `gorm:"column:decision;not null" json:"decision"`
	Percentage   float64   `gorm:"column:percentage;not null" json:"percentage"`
	Reason       string    `gorm:"column:reason;not null" json:"reason"`
	BaseBalance  float64   `gorm:"column:base_balance;not null" json:"base_balance"`
	QuoteBalance float64   `gorm:"column:quote_balance;not null" json:"quote_balance"`
	AvgBuyPrice  float64   `gorm:"column:avg_buy_price;not null" json:"avg_buy_price"`
	MarketPrice  float64   `gorm:"column:market_price;not null" json:"market_price"`
}

func (TradeRecord) TableName() string { return "trading_history" }

// ReflectionRecord 对应 trading_reflection 表，trading_id 必须指向已存在的交易行。
type ReflectionRecord struct {
	ID                int64     `gorm:"column:id;primaryKey;autoIncrement" json:"id"`
	TradingID         int64     `gorm:"column:trading_id;not null;index" json:"trading_id"`
	ReflectionDate    time.Time `gorm:"column:reflection_date;not null;index" json:"reflection_date"`
	MarketCondition   string    `gorm:"column:market_condition;not null" json:"market_condition"`
	DecisionAnalysis  string    `gorm:"column:decision_analysis;not null" json:"decision_analysis"`
	ImprovementPoints string    `gorm:"column:improvement_points;not null" json:"improvement_points"`
	SuccessRate       float64   `gorm:"column:success_rate;not null" json:"success_rate"`
	LearningPoints    string    `gorm:"column:learning_points;not null" json:"learning_points"`
}

func (ReflectionRecord) TableName() string { return "trading_reflection" }
