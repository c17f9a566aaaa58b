package agent

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"aurum/internal/ai"
	"aurum/internal/fault"
	"aurum/internal/market"
	"aurum/internal/news"
	"aurum/internal/store"
	"aurum/internal/trader"
	"aurum/internal/visual"
)

// ---- fakes ----

type fakeGateway struct {
	bookErr error
}

func (f *fakeGateway) FetchHistory(_ context.Context, _, _ string, limit int) ([]market.Candle, error) {
	if limit < 40 {
		limit = 40
	}
	candles := make([]market.Candle, 0, limit)
	base := time.Now().Add(-time.Duration(limit) * time.Hour)
	for i := 0; i < limit; i++ {
		price := 60000 + float64(i%7)*120
		open := base.Add(time.Duration(i) * time.Hour)
		candles = append(candles, market.Candle{
			OpenTime:  open.UnixMilli(),
			CloseTime: open.Add(time.Hour).UnixMilli(),
			Open:      price,
			High:      price * 1.01,
			Low:       price * 0.99,
			Close:     price * 1.002,
			Volume:    100 + float64(i),
		})
	}
	return candles, nil
}

func (f *fakeGateway) FetchOrderBook(context.Context, string, int) (market.OrderBook, error) {
	if f.bookErr != nil {
		return market.OrderBook{}, f.bookErr
	}
	return market.OrderBook{
		Asks:         []market.OrderBookLevel{{Price: 60010, Size: 1}},
		Bids:         []market.OrderBookLevel{{Price: 59990, Size: 2}},
		TotalAskSize: 1,
		TotalBidSize: 2,
	}, nil
}

func (f *fakeGateway) CurrentPrice(context.Context, string) (float64, error) { return 60000, nil }

func (f *fakeGateway) Balance(_ context.Context, asset string) (float64, error) {
	if asset == "USDT" {
		return 100000, nil
	}
	return 0.5, nil
}

func (f *fakeGateway) AvgBuyPrice(context.Context) (float64, error) { return 58000, nil }

type fakeSentiment struct{ value int }

func (f *fakeSentiment) Fetch(context.Context, int) (market.FearGreedData, error) {
	return market.FearGreedData{Value: f.value, Classification: "Fear"}, nil
}

type fakeNews struct{ err error }

func (f *fakeNews) Fetch(context.Context, int) ([]news.Item, error) {
	if f.err != nil {
		return nil, f.err
	}
	return []news.Item{{Title: "BTC holds above 60k", Source: "coindesk.com"}}, nil
}

type fakeOracle struct {
	decision    ai.TradingDecision
	decisionErr error
	decideCalls int
	reflectIn   *ai.ReflectionInput
	reflection  ai.Reflection
	reflectErr  error
}

func (f *fakeOracle) GetDecision(context.Context, string, ai.MarketContext) (ai.TradingDecision, error) {
	f.decideCalls++
	if f.decisionErr != nil {
		return ai.TradingDecision{}, f.decisionErr
	}
	return f.decision, nil
}

func (f *fakeOracle) Reflect(_ context.Context, _ string, input ai.ReflectionInput) (ai.Reflection, error) {
	f.reflectIn = &input
	if f.reflectErr != nil {
		return ai.Reflection{}, f.reflectErr
	}
	return f.reflection, nil
}

func (f *fakeOracle) AnalyzeChart(context.Context, string, visual.ImageResult) (string, error) {
	return "", errors.New("vision unavailable")
}

func (f *fakeOracle) SummarizeCommentary(_ context.Context, _, text string) (string, error) {
	return "summary: " + text, nil
}

type fakeExecutor struct {
	outcome trader.Outcome
	err     error
	calls   int
}

func (f *fakeExecutor) Execute(context.Context, ai.TradingDecision, int) (trader.Outcome, error) {
	f.calls++
	return f.outcome, f.err
}

func (f *fakeExecutor) Snapshot(_ context.Context, avg float64) (market.AccountStatus, error) {
	s := market.AccountStatus{QuoteBalance: 40000, BaseBalance: 1.5, AvgBuyPrice: avg, CurrentPrice: 60000}
	s.Derive()
	return s, nil
}

type fakeHistory struct {
	trades      []store.TradeRecord
	reflections []store.ReflectionRecord
	recorded    []store.TradeRecord
	added       []store.ReflectionRecord
	recordErr   error
}

func (f *fakeHistory) RecordTrade(_ context.Context, rec store.TradeRecord) (int64, error) {
	if f.recordErr != nil {
		return 0, f.recordErr
	}
	f.recorded = append(f.recorded, rec)
	return int64(len(f.recorded)), nil
}

func (f *fakeHistory) AddReflection(_ context.Context, rec store.ReflectionRecord) error {
	f.added = append(f.added, rec)
	return nil
}

func (f *fakeHistory) GetRecentTrades(context.Context, int) ([]store.TradeRecord, error) {
	return f.trades, nil
}

func (f *fakeHistory) GetReflectionHistory(context.Context, int) ([]store.ReflectionRecord, error) {
	return f.reflections, nil
}

func newTestOrchestrator(gw *fakeGateway, sentiment *fakeSentiment, nf *fakeNews, oracle *fakeOracle, ex *fakeExecutor, history *fakeHistory) *Orchestrator {
	agg := NewAggregator(gw, sentiment, nf, AggregatorConfig{
		Symbol: "BTCUSDT", BaseAsset: "BTC", QuoteAsset: "USDT", HourlyCandles: 40, DailyCandles: 40,
	})
	return NewOrchestrator(agg, oracle, ex, history, OrchestratorConfig{Symbol: "BTCUSDT"})
}

func confidentBuy() ai.TradingDecision {
	return ai.TradingDecision{Decision: ai.DecisionBuy, Percentage: 30, ConfidenceScore: 85, Reason: "oversold"}
}

// ---- tests ----

func TestRunCycleHappyPath(t *testing.T) {
	oracle := &fakeOracle{decision: confidentBuy()}
	ex := &fakeExecutor{outcome: trader.Outcome{Executed: true, Side: ai.DecisionBuy, OrderID: "o-1"}}
	history := &fakeHistory{}
	o := newTestOrchestrator(&fakeGateway{}, &fakeSentiment{value: 20}, &fakeNews{}, oracle, ex, history)

	result, err := o.RunCycle(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, oracle.decideCalls)
	assert.Equal(t, 1, ex.calls)
	require.Len(t, history.recorded, 1)
	assert.Equal(t, ai.DecisionBuy, history.recorded[0].Decision)
	assert.InDelta(t, 30, history.recorded[0].Percentage, 1e-9)
	assert.InDelta(t, 40000, history.recorded[0].QuoteBalance, 1e-9)
	assert.Equal(t, int64(1), result.TradeID)
	// 无历史时不触发复盘
	assert.Nil(t, oracle.reflectIn)
	assert.Empty(t, history.added)
}

func TestRunCycleMissingSignalAborts(t *testing.T) {
	oracle := &fakeOracle{decision: confidentBuy()}
	ex := &fakeExecutor{}
	history := &fakeHistory{}
	o := newTestOrchestrator(&fakeGateway{}, &fakeSentiment{value: 50},
		&fakeNews{err: errors.New("all sources failed")}, oracle, ex, history)

	_, err := o.RunCycle(context.Background())
	require.Error(t, err)
	assert.True(t, fault.Is(err, fault.KindDataUnavailable))
	// 信号缺失周期中止: 不决策、不下单、不落库
	assert.Zero(t, oracle.decideCalls)
	assert.Zero(t, ex.calls)
	assert.Empty(t, history.recorded)
}

func TestRunCycleDecideFailureLeavesNoRecord(t *testing.T) {
	oracle := &fakeOracle{decisionErr: fault.OracleFailure("decision", errors.New("schema mismatch"))}
	ex := &fakeExecutor{}
	history := &fakeHistory{}
	o := newTestOrchestrator(&fakeGateway{}, &fakeSentiment{value: 50}, &fakeNews{}, oracle, ex, history)

	_, err := o.RunCycle(context.Background())
	require.Error(t, err)
	assert.True(t, fault.Is(err, fault.KindOracleFailure))
	assert.Zero(t, ex.calls)
	assert.Empty(t, history.recorded)
}

func TestRunCycleExecutionErrorStillPersists(t *testing.T) {
	oracle := &fakeOracle{decision: confidentBuy()}
	ex := &fakeExecutor{err: fault.ExecutionError("buy.submit", errors.New("rejected"))}
	history := &fakeHistory{}
	o := newTestOrchestrator(&fakeGateway{}, &fakeSentiment{value: 50}, &fakeNews{}, oracle, ex, history)

	result, err := o.RunCycle(context.Background())
	require.NoError(t, err)
	require.Len(t, history.recorded, 1)
	assert.False(t, result.Outcome.Executed)
	assert.NotEmpty(t, result.Outcome.SkipReason)
}

func TestRunCycleSkippedOrderStillPersists(t *testing.T) {
	// 置信度不足未下单, 但记录照常写入
	oracle := &fakeOracle{decision: ai.TradingDecision{Decision: ai.DecisionBuy, Percentage: 50, ConfidenceScore: 65}}
	ex := &fakeExecutor{outcome: trader.Outcome{Side: ai.DecisionBuy, SkipReason: "置信度 65 不足"}}
	history := &fakeHistory{}
	o := newTestOrchestrator(&fakeGateway{}, &fakeSentiment{value: 50}, &fakeNews{}, oracle, ex, history)

	result, err := o.RunCycle(context.Background())
	require.NoError(t, err)
	assert.False(t, result.Outcome.Executed)
	require.Len(t, history.recorded, 1)
	assert.InDelta(t, 50, history.recorded[0].Percentage, 1e-9)
}

func TestRunCyclePersistFailureIsFatalKind(t *testing.T) {
	oracle := &fakeOracle{decision: confidentBuy()}
	ex := &fakeExecutor{outcome: trader.Outcome{Executed: true, Side: ai.DecisionBuy}}
	history := &fakeHistory{recordErr: fault.PersistenceError("insert", errors.New("disk full"))}
	o := newTestOrchestrator(&fakeGateway{}, &fakeSentiment{value: 50}, &fakeNews{}, oracle, ex, history)

	_, err := o.RunCycle(context.Background())
	require.Error(t, err)
	assert.True(t, fault.Is(err, fault.KindPersistenceError))
}

func TestRunCycleReflectsOnExistingHistory(t *testing.T) {
	past := []store.TradeRecord{
		{ID: 7, Decision: "buy", Percentage: 20, MarketPrice: 59000, Timestamp: time.Now().Add(-6 * time.Hour)},
	}
	oracle := &fakeOracle{
		decision:   confidentBuy(),
		reflection: ai.Reflection{MarketCondition: "choppy", SuccessRate: 55, DecisionAnalysis: "d", ImprovementPoints: "i", LearningPoints: "l"},
	}
	ex := &fakeExecutor{outcome: trader.Outcome{Executed: true, Side: ai.DecisionBuy}}
	history := &fakeHistory{trades: past}
	o := newTestOrchestrator(&fakeGateway{}, &fakeSentiment{value: 50}, &fakeNews{}, oracle, ex, history)

	_, err := o.RunCycle(context.Background())
	require.NoError(t, err)
	require.NotNil(t, oracle.reflectIn)
	assert.Len(t, oracle.reflectIn.RecentTrades, 1)
	require.Len(t, history.added, 1)
	assert.Equal(t, int64(7), history.added[0].TradingID)
	assert.InDelta(t, 55, history.added[0].SuccessRate, 1e-9)
}

func TestRunCycleReflectFailureDoesNotAbort(t *testing.T) {
	past := []store.TradeRecord{{ID: 3, Decision: "sell", MarketPrice: 61000}}
	oracle := &fakeOracle{
		decision:   confidentBuy(),
		reflectErr: fault.OracleFailure("reflection", fmt.Errorf("timeout")),
	}
	ex := &fakeExecutor{outcome: trader.Outcome{Executed: true, Side: ai.DecisionBuy}}
	history := &fakeHistory{trades: past}
	o := newTestOrchestrator(&fakeGateway{}, &fakeSentiment{value: 50}, &fakeNews{}, oracle, ex, history)

	_, err := o.RunCycle(context.Background())
	require.NoError(t, err)
	assert.Empty(t, history.added)
	require.Len(t, history.recorded, 1)
}
