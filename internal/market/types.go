package market

import "context"

// OrderBookLevel 单档挂单。
type OrderBookLevel struct {
	Price float64 `json:"price"`
	Size  float64 `json:"size"`
}

// OrderBook 买卖盘前 N 档的快照。
type OrderBook struct {
	Timestamp    int64            `json:"timestamp"`
	Asks         []OrderBookLevel `json:"asks"`
	Bids         []OrderBookLevel `json:"bids"`
	TotalAskSize float64          `json:"total_ask_size"`
	TotalBidSize float64          `json:"total_bid_size"`
}

// AccountStatus 当前持仓与现金状态（已含盈亏推导值）。
type AccountStatus struct {
	QuoteBalance     float64 `json:"quote_balance"`
	BaseBalance      float64 `json:"base_balance"`
	AvgBuyPrice      float64 `json:"avg_buy_price"`
	CurrentPrice     float64 `json:"current_price"`
	TotalValue       float64 `json:"total_value"`
	UnrealizedProfit float64 `json:"unrealized_profit"`
	ProfitPercentage float64 `json:"profit_percentage"`
}

// Derive 基于余额与现价填充总市值/未实现盈亏。
func (s *AccountStatus) Derive() {
	if s == nil {
		return
	}
	s.TotalValue = s.QuoteBalance + s.BaseBalance*s.CurrentPrice
	if s.BaseBalance > 0 && s.AvgBuyPrice > 0 {
		s.UnrealizedProfit = (s.CurrentPrice - s.AvgBuyPrice) * s.BaseBalance
		s.ProfitPercentage = (s.CurrentPrice/s.AvgBuyPrice - 1) * 100
	} else {
		s.UnrealizedProfit = 0
		s.ProfitPercentage = 0
	}
}

// Source 行情数据源。按接口消费，交易所实现见 internal/gateway/binance。
type Source interface {
	FetchHistory(ctx context.Context, symbol, interval string, limit int) ([]Candle, error)
	FetchOrderBook(ctx context.Context, symbol string, depth int) (OrderBook, error)
	CurrentPrice(ctx context.Context, symbol string) (float64, error)
}
