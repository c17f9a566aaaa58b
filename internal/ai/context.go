package ai

import (
	"aurum/internal/market"
	"aurum/internal/news"
	"aurum/internal/store"
)

// MarketContext 一个周期内聚合的全部市场信号。仅存活于内存，
// 不直接持久化；落库的只有其下游的决策与交易结果。
type MarketContext struct {
	Symbol string `json:"symbol"`

	// 必需信号：任一缺失时周期在 DECIDE 之前中止
	Status    market.AccountStatus   `json:"current_status"`
	OrderBook market.OrderBook       `json:"orderbook"`
	Daily     OHLCVBlock             `json:"daily"`
	Hourly    OHLCVBlock             `json:"hourly"`
	FearGreed market.FearGreedData   `json:"fear_greed"`
	News      []news.Item            `json:"news"`

	// 可选信号：缺失不阻断
	ChartNarrative      string `json:"chart_analysis,omitempty"`
	CommentaryNarrative string `json:"commentary_analysis,omitempty"`

	// 反馈环：最近 N 条复盘记录
	PastReflections []store.ReflectionRecord `json:"past_reflections,omitempty"`
}

// OHLCVBlock K 线 + 派生指标。
type OHLCVBlock struct {
	Candles    []market.Candle        `json:"candles"`
	Indicators market.IndicatorReport `json:"indicators"`
}
