package binance

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"aurum/internal/logger"
	"aurum/internal/market"

	gobinance "github.com/adshao/go-binance/v2"
)

// 中文说明：
// 基于 go-binance 现货 SDK 实现行情源（market.Source）与下单原语。
// 单交易对；数量/金额统一格式化为 8 位小数后去尾零。

const avgPriceTradeLookback = 500

// Source 封装现货客户端。
type Source struct {
	cfg    Config
	client *gobinance.Client
}

func New(cfg Config) (*Source, error) {
	final := cfg.withDefaults()
	if strings.TrimSpace(final.APIKey) == "" || strings.TrimSpace(final.SecretKey) == "" {
		return nil, fmt.Errorf("binance source: 缺少 API 凭证")
	}
	client := gobinance.NewClient(final.APIKey, final.SecretKey)
	if base := strings.TrimSpace(final.RESTBaseURL); base != "" {
		client.BaseURL = base
	}
	client.HTTPClient = &http.Client{Timeout: final.HTTPTimeout}
	return &Source{cfg: final, client: client}, nil
}

func (s *Source) Symbol() string { return s.cfg.Symbol }

// FetchHistory 拉取 K 线。interval 直接使用交易所语义（"1h"/"1d"）。
func (s *Source) FetchHistory(ctx context.Context, symbol, interval string, limit int) ([]market.Candle, error) {
	if limit <= 0 {
		limit = 100
	}
	symbol = s.normalizeSymbol(symbol)
	interval = strings.ToLower(strings.TrimSpace(interval))
	if interval == "" {
		return nil, fmt.Errorf("interval is required")
	}
	kls, err := s.client.NewKlinesService().Symbol(symbol).Interval(interval).Limit(limit).Do(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]market.Candle, 0, len(kls))
	for _, kl := range kls {
		if kl == nil {
			continue
		}
		out = append(out, market.Candle{
			OpenTime:  kl.OpenTime,
			CloseTime: kl.CloseTime,
			Open:      parseFloat(kl.Open),
			High:      parseFloat(kl.High),
			Low:       parseFloat(kl.Low),
			Close:     parseFloat(kl.Close),
			Volume:    parseFloat(kl.Volume),
		})
	}
	return out, nil
}

func (s *Source) FetchOrderBook(ctx context.Context, symbol string, depth int) (market.OrderBook, error) {
	if depth <= 0 {
		depth = 5
	}
	symbol = s.normalizeSymbol(symbol)
	resp, err := s.client.NewDepthService().Symbol(symbol).Limit(depth).Do(ctx)
	if err != nil {
		return market.OrderBook{}, err
	}
	book := market.OrderBook{}
	for _, ask := range resp.Asks {
		level := market.OrderBookLevel{Price: parseFloat(ask.Price), Size: parseFloat(ask.Quantity)}
		book.Asks = append(book.Asks, level)
		book.TotalAskSize += level.Size
	}
	for _, bid := range resp.Bids {
		level := market.OrderBookLevel{Price: parseFloat(bid.Price), Size: parseFloat(bid.Quantity)}
		book.Bids = append(book.Bids, level)
		book.TotalBidSize += level.Size
	}
	if len(book.Asks) == 0 && len(book.Bids) == 0 {
		return market.OrderBook{}, fmt.Errorf("empty order book for %s", symbol)
	}
	return book, nil
}

func (s *Source) CurrentPrice(ctx context.Context, symbol string) (float64, error) {
	symbol = s.normalizeSymbol(symbol)
	prices, err := s.client.NewListPricesService().Symbol(symbol).Do(ctx)
	if err != nil {
		return 0, err
	}
	for _, p := range prices {
		if p != nil && strings.EqualFold(p.Symbol, symbol) {
			val := parseFloat(p.Price)
			if val <= 0 {
				return 0, fmt.Errorf("invalid price %q for %s", p.Price, symbol)
			}
			return val, nil
		}
	}
	return 0, fmt.Errorf("no price for %s", symbol)
}

// Balance 返回指定资产的可用余额。
func (s *Source) Balance(ctx context.Context, asset string) (float64, error) {
	asset = strings.ToUpper(strings.TrimSpace(asset))
	account, err := s.client.NewGetAccountService().Do(ctx)
	if err != nil {
		return 0, err
	}
	for _, b := range account.Balances {
		if strings.EqualFold(b.Asset, asset) {
			return parseFloat(b.Free), nil
		}
	}
	return 0, nil
}

// AvgBuyPrice 用近期成交推导买入均价（现货没有服务端均价，取买方成交的量加权均值）。
func (s *Source) AvgBuyPrice(ctx context.Context) (float64, error) {
	trades, err := s.client.NewListTradesService().Symbol(s.cfg.Symbol).Limit(avgPriceTradeLookback).Do(ctx)
	if err != nil {
		return 0, err
	}
	var qtySum, quoteSum float64
	for _, t := range trades {
		if t == nil || !t.IsBuyer {
			continue
		}
		qty := parseFloat(t.Quantity)
		quote := parseFloat(t.QuoteQuantity)
		if qty <= 0 || quote <= 0 {
			continue
		}
		qtySum += qty
		quoteSum += quote
	}
	if qtySum <= 0 {
		return 0, nil
	}
	return quoteSum / qtySum, nil
}

// SubmitMarketBuy 以 quote 金额市价买入。
func (s *Source) SubmitMarketBuy(ctx context.Context, notional float64) (string, error) {
	if notional <= 0 {
		return "", fmt.Errorf("notional must be positive")
	}
	order, err := s.client.NewCreateOrderService().
		Symbol(s.cfg.Symbol).
		Side(gobinance.SideTypeBuy).
		Type(gobinance.OrderTypeMarket).
		QuoteOrderQty(formatAmount(notional)).
		Do(ctx)
	if err != nil {
		return "", err
	}
	logger.Infof("市价买入已提交 symbol=%s notional=%s order_id=%d", s.cfg.Symbol, formatAmount(notional), order.OrderID)
	return strconv.FormatInt(order.OrderID, 10), nil
}

// SubmitMarketSell 以基础资产数量市价卖出。
func (s *Source) SubmitMarketSell(ctx context.Context, quantity float64) (string, error) {
	if quantity <= 0 {
		return "", fmt.Errorf("quantity must be positive")
	}
	order, err := s.client.NewCreateOrderService().
		Symbol(s.cfg.Symbol).
		Side(gobinance.SideTypeSell).
		Type(gobinance.OrderTypeMarket).
		Quantity(formatAmount(quantity)).
		Do(ctx)
	if err != nil {
		return "", err
	}
	logger.Infof("市价卖出已提交 symbol=%s quantity=%s order_id=%d", s.cfg.Symbol, formatAmount(quantity), order.OrderID)
	return strconv.FormatInt(order.OrderID, 10), nil
}

func (s *Source) normalizeSymbol(symbol string) string {
	symbol = strings.ToUpper(strings.TrimSpace(strings.ReplaceAll(symbol, "/", "")))
	if symbol == "" {
		return s.cfg.Symbol
	}
	return symbol
}

func parseFloat(raw string) float64 {
	val, err := strconv.ParseFloat(strings.TrimSpace(raw), 64)
	if err != nil {
		return 0
	}
	return val
}

func formatAmount(val float64) string {
	out := strconv.FormatFloat(val, 'f', 8, 64)
	out = strings.TrimRight(out, "0")
	out = strings.TrimRight(out, ".")
	if out == "" || out == "-" {
		return "0"
	}
	return out
}
