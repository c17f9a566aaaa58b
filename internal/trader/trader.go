package trader

import (
	"context"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"

	"aurum/internal/ai"
	"aurum/internal/fault"
	"aurum/internal/logger"
	"aurum/internal/market"
)

// 中文说明：
// 仓位换算与下单执行。金额换算全程走 decimal, 最后一步才转 float64 提交。
// 置信度闸门与最小名义额对买卖双向同等生效。

// feeBuffer 买入时预留手续费, 避免全仓买入因余额不足被拒单。
var feeBuffer = decimal.NewFromFloat(0.9995)

var (
	boostFactor  = decimal.NewFromFloat(1.2)
	damperFactor = decimal.NewFromFloat(0.8)
	ratioCap     = decimal.NewFromInt(1)
)

const (
	fearExtreme  = 25
	greedExtreme = 75
)

// Exchange 是执行端所需的最小交易所能力, binance.Source 满足该接口。
type Exchange interface {
	Balance(ctx context.Context, asset string) (float64, error)
	CurrentPrice(ctx context.Context, symbol string) (float64, error)
	SubmitMarketBuy(ctx context.Context, notional float64) (string, error)
	SubmitMarketSell(ctx context.Context, quantity float64) (string, error)
}

// Outcome 描述一次执行的结果。未下单时 Executed=false 且 SkipReason 说明原因。
type Outcome struct {
	Executed   bool
	Side       string
	OrderID    string
	Notional   float64
	Quantity   float64
	Ratio      float64
	SkipReason string
}

type Config struct {
	Symbol           string
	BaseAsset        string
	QuoteAsset       string
	MinOrderNotional float64
	ConfidenceGate   int
}

// Engine 将决策转换为订单。
type Engine struct {
	exchange Exchange
	cfg      Config
}

func NewEngine(exchange Exchange, cfg Config) *Engine {
	if cfg.MinOrderNotional <= 0 {
		cfg.MinOrderNotional = 5000
	}
	if cfg.ConfidenceGate <= 0 {
		cfg.ConfidenceGate = 70
	}
	return &Engine{exchange: exchange, cfg: cfg}
}

// AdjustTradeRatio 按恐惧贪婪指数做逆向修正:
// 极度恐惧时加码买入/收缩卖出, 极度贪婪时收缩买入/加码卖出, 上限 1.0。
func AdjustTradeRatio(decision string, ratio decimal.Decimal, fearGreed int) decimal.Decimal {
	switch strings.ToLower(decision) {
	case ai.DecisionBuy:
		if fearGreed <= fearExtreme {
			ratio = decimal.Min(ratio.Mul(boostFactor), ratioCap)
		} else if fearGreed >= greedExtreme {
			ratio = ratio.Mul(damperFactor)
		}
	case ai.DecisionSell:
		if fearGreed >= greedExtreme {
			ratio = decimal.Min(ratio.Mul(boostFactor), ratioCap)
		} else if fearGreed <= fearExtreme {
			ratio = ratio.Mul(damperFactor)
		}
	}
	return ratio
}

// Execute 应用置信度闸门、情绪修正和最小名义额检查后提交市价单。
// 交易所拒单返回 fault.KindExecutionError, 调用方按 hold 对待并照常落库。
func (e *Engine) Execute(ctx context.Context, decision ai.TradingDecision, fearGreed int) (Outcome, error) {
	side := strings.ToLower(decision.Decision)
	if side == ai.DecisionHold {
		return Outcome{Side: side, SkipReason: "决策为持有"}, nil
	}
	if decision.ConfidenceScore <= e.cfg.ConfidenceGate {
		logger.Infof("置信度 %d 未超过阈值 %d, 不下单", decision.ConfidenceScore, e.cfg.ConfidenceGate)
		return Outcome{Side: side, SkipReason: fmt.Sprintf("置信度 %d 不足", decision.ConfidenceScore)}, nil
	}

	ratio := decimal.NewFromInt(int64(decision.Percentage)).Div(decimal.NewFromInt(100))
	ratio = AdjustTradeRatio(side, ratio, fearGreed)
	if ratio.Sign() <= 0 {
		return Outcome{Side: side, SkipReason: "有效仓位比例为零"}, nil
	}

	switch side {
	case ai.DecisionBuy:
		return e.executeBuy(ctx, ratio)
	case ai.DecisionSell:
		return e.executeSell(ctx, ratio)
	default:
		return Outcome{Side: side}, fault.ExecutionError("execute", fmt.Errorf("未知决策 %q", decision.Decision))
	}
}

func (e *Engine) executeBuy(ctx context.Context, ratio decimal.Decimal) (Outcome, error) {
	quote, err := e.exchange.Balance(ctx, e.cfg.QuoteAsset)
	if err != nil {
		return Outcome{Side: ai.DecisionBuy}, fault.ExecutionError("buy.balance", err)
	}
	notional := decimal.NewFromFloat(quote).Mul(ratio).Mul(feeBuffer)
	minNotional := decimal.NewFromFloat(e.cfg.MinOrderNotional)
	if notional.LessThan(minNotional) {
		logger.Infof("买入金额 %s 低于最小名义额 %s, 跳过", notional.StringFixed(2), minNotional.StringFixed(2))
		return Outcome{
			Side:       ai.DecisionBuy,
			Ratio:      ratio.InexactFloat64(),
			SkipReason: fmt.Sprintf("名义额 %s 低于下限 %s", notional.StringFixed(2), minNotional.StringFixed(2)),
		}, nil
	}
	amount := notional.InexactFloat64()
	orderID, err := e.exchange.SubmitMarketBuy(ctx, amount)
	if err != nil {
		return Outcome{Side: ai.DecisionBuy, Ratio: ratio.InexactFloat64()}, fault.ExecutionError("buy.submit", err)
	}
	return Outcome{
		Executed: true,
		Side:     ai.DecisionBuy,
		OrderID:  orderID,
		Notional: amount,
		Ratio:    ratio.InexactFloat64(),
	}, nil
}

func (e *Engine) executeSell(ctx context.Context, ratio decimal.Decimal) (Outcome, error) {
	base, err := e.exchange.Balance(ctx, e.cfg.BaseAsset)
	if err != nil {
		return Outcome{Side: ai.DecisionSell}, fault.ExecutionError("sell.balance", err)
	}
	price, err := e.exchange.CurrentPrice(ctx, e.cfg.Symbol)
	if err != nil {
		return Outcome{Side: ai.DecisionSell}, fault.ExecutionError("sell.price", err)
	}
	quantity := decimal.NewFromFloat(base).Mul(ratio)
	notional := quantity.Mul(decimal.NewFromFloat(price))
	minNotional := decimal.NewFromFloat(e.cfg.MinOrderNotional)
	if notional.LessThan(minNotional) {
		logger.Infof("卖出名义额 %s 低于最小名义额 %s, 跳过", notional.StringFixed(2), minNotional.StringFixed(2))
		return Outcome{
			Side:       ai.DecisionSell,
			Ratio:      ratio.InexactFloat64(),
			SkipReason: fmt.Sprintf("名义额 %s 低于下限 %s", notional.StringFixed(2), minNotional.StringFixed(2)),
		}, nil
	}
	qty := quantity.InexactFloat64()
	orderID, err := e.exchange.SubmitMarketSell(ctx, qty)
	if err != nil {
		return Outcome{Side: ai.DecisionSell, Ratio: ratio.InexactFloat64()}, fault.ExecutionError("sell.submit", err)
	}
	return Outcome{
		Executed: true,
		Side:     ai.DecisionSell,
		OrderID:  orderID,
		Quantity: qty,
		Notional: notional.InexactFloat64(),
		Ratio:    ratio.InexactFloat64(),
	}, nil
}

// Snapshot 拉取执行后余额与现价, 供落库使用。失败时尽量返回已取得的字段。
func (e *Engine) Snapshot(ctx context.Context, avgBuyPrice float64) (market.AccountStatus, error) {
	status := market.AccountStatus{AvgBuyPrice: avgBuyPrice}
	quote, err := e.exchange.Balance(ctx, e.cfg.QuoteAsset)
	if err != nil {
		return status, fault.ExecutionError("snapshot.quote", err)
	}
	status.QuoteBalance = quote
	base, err := e.exchange.Balance(ctx, e.cfg.BaseAsset)
	if err != nil {
		return status, fault.ExecutionError("snapshot.base", err)
	}
	status.BaseBalance = base
	price, err := e.exchange.CurrentPrice(ctx, e.cfg.Symbol)
	if err != nil {
		return status, fault.ExecutionError("snapshot.price", err)
	}
	status.CurrentPrice = price
	status.Derive()
	return status, nil
}
