package agent

import (
	"context"

	"golang.org/x/sync/errgroup"

	"aurum/internal/ai"
	"aurum/internal/fault"
	"aurum/internal/market"
	"aurum/internal/news"
)

// 中文说明：
// GATHER 阶段的信号聚合。必需信号并发拉取, 任一失败整个周期在
// DECIDE 之前中止（fault.KindDataUnavailable）; 可选信号由编排器补充。

// MarketGateway 在行情源之上追加账户能力, binance.Source 满足该接口。
type MarketGateway interface {
	market.Source
	Balance(ctx context.Context, asset string) (float64, error)
	AvgBuyPrice(ctx context.Context) (float64, error)
}

type NewsFetcher interface {
	Fetch(ctx context.Context, maxItems int) ([]news.Item, error)
}

type SentimentFetcher interface {
	Fetch(ctx context.Context, limit int) (market.FearGreedData, error)
}

type AggregatorConfig struct {
	Symbol         string
	BaseAsset      string
	QuoteAsset     string
	DailyCandles   int
	HourlyCandles  int
	OrderBookDepth int
	FearGreedLimit int
	NewsMaxItems   int
}

// Aggregator 组装决策所需的完整市场上下文。
type Aggregator struct {
	gateway   MarketGateway
	sentiment SentimentFetcher
	news      NewsFetcher
	cfg       AggregatorConfig
}

func NewAggregator(gateway MarketGateway, sentiment SentimentFetcher, newsFetcher NewsFetcher, cfg AggregatorConfig) *Aggregator {
	if cfg.DailyCandles <= 0 {
		cfg.DailyCandles = 30
	}
	if cfg.HourlyCandles <= 0 {
		cfg.HourlyCandles = 24
	}
	if cfg.OrderBookDepth <= 0 {
		cfg.OrderBookDepth = 5
	}
	if cfg.FearGreedLimit <= 0 {
		cfg.FearGreedLimit = 7
	}
	if cfg.NewsMaxItems <= 0 {
		cfg.NewsMaxItems = 10
	}
	return &Aggregator{gateway: gateway, sentiment: sentiment, news: newsFetcher, cfg: cfg}
}

// Gather 并发拉取全部必需信号。各 goroutine 写入互不重叠的字段,
// 首个失败即取消其余拉取。
func (a *Aggregator) Gather(ctx context.Context) (ai.MarketContext, error) {
	mc := ai.MarketContext{Symbol: a.cfg.Symbol}
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		status, err := a.fetchStatus(gctx)
		if err != nil {
			return fault.DataUnavailable("gather.status", err)
		}
		mc.Status = status
		return nil
	})
	g.Go(func() error {
		book, err := a.gateway.FetchOrderBook(gctx, a.cfg.Symbol, a.cfg.OrderBookDepth)
		if err != nil {
			return fault.DataUnavailable("gather.orderbook", err)
		}
		mc.OrderBook = book
		return nil
	})
	g.Go(func() error {
		block, err := a.fetchBlock(gctx, "1d", a.cfg.DailyCandles)
		if err != nil {
			return fault.DataUnavailable("gather.daily", err)
		}
		mc.Daily = block
		return nil
	})
	g.Go(func() error {
		block, err := a.fetchBlock(gctx, "1h", a.cfg.HourlyCandles)
		if err != nil {
			return fault.DataUnavailable("gather.hourly", err)
		}
		mc.Hourly = block
		return nil
	})
	g.Go(func() error {
		fg, err := a.sentiment.Fetch(gctx, a.cfg.FearGreedLimit)
		if err != nil {
			return fault.DataUnavailable("gather.fear_greed", err)
		}
		mc.FearGreed = fg
		return nil
	})
	g.Go(func() error {
		items, err := a.news.Fetch(gctx, a.cfg.NewsMaxItems)
		if err != nil {
			return fault.DataUnavailable("gather.news", err)
		}
		mc.News = items
		return nil
	})

	if err := g.Wait(); err != nil {
		return ai.MarketContext{}, err
	}
	return mc, nil
}

func (a *Aggregator) fetchStatus(ctx context.Context) (market.AccountStatus, error) {
	var status market.AccountStatus
	quote, err := a.gateway.Balance(ctx, a.cfg.QuoteAsset)
	if err != nil {
		return status, err
	}
	base, err := a.gateway.Balance(ctx, a.cfg.BaseAsset)
	if err != nil {
		return status, err
	}
	price, err := a.gateway.CurrentPrice(ctx, a.cfg.Symbol)
	if err != nil {
		return status, err
	}
	avg, err := a.gateway.AvgBuyPrice(ctx)
	if err != nil {
		return status, err
	}
	status.QuoteBalance = quote
	status.BaseBalance = base
	status.CurrentPrice = price
	status.AvgBuyPrice = avg
	status.Derive()
	return status, nil
}

func (a *Aggregator) fetchBlock(ctx context.Context, interval string, limit int) (ai.OHLCVBlock, error) {
	candles, err := a.gateway.FetchHistory(ctx, a.cfg.Symbol, interval, limit)
	if err != nil {
		return ai.OHLCVBlock{}, err
	}
	report, err := market.ComputeIndicators(candles, interval)
	if err != nil {
		return ai.OHLCVBlock{}, err
	}
	return ai.OHLCVBlock{Candles: candles, Indicators: report}, nil
}
