package trader

import (
	"context"
	"errors"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"aurum/internal/ai"
	"aurum/internal/fault"
)

type fakeExchange struct {
	quoteBalance float64
	baseBalance  float64
	price        float64

	buyNotional  float64
	sellQuantity float64
	buyCalled    bool
	sellCalled   bool
	submitErr    error
}

func (f *fakeExchange) Balance(_ context.Context, asset string) (float64, error) {
	if asset == "USDT" {
		return f.quoteBalance, nil
	}
	return f.baseBalance, nil
}

func (f *fakeExchange) CurrentPrice(context.Context, string) (float64, error) {
	return f.price, nil
}

func (f *fakeExchange) SubmitMarketBuy(_ context.Context, notional float64) (string, error) {
	f.buyCalled = true
	f.buyNotional = notional
	if f.submitErr != nil {
		return "", f.submitErr
	}
	return "order-1", nil
}

func (f *fakeExchange) SubmitMarketSell(_ context.Context, quantity float64) (string, error) {
	f.sellCalled = true
	f.sellQuantity = quantity
	if f.submitErr != nil {
		return "", f.submitErr
	}
	return "order-2", nil
}

func newTestEngine(ex Exchange) *Engine {
	return NewEngine(ex, Config{
		Symbol:           "BTCUSDT",
		BaseAsset:        "BTC",
		QuoteAsset:       "USDT",
		MinOrderNotional: 5000,
		ConfidenceGate:   70,
	})
}

func TestAdjustTradeRatio(t *testing.T) {
	half := decimal.NewFromFloat(0.5)

	cases := []struct {
		name     string
		decision string
		fg       int
		want     string
	}{
		{"极度恐惧时加码买入", ai.DecisionBuy, 10, "0.6"},
		{"极度贪婪时收缩买入", ai.DecisionBuy, 90, "0.4"},
		{"中性区间买入不调整", ai.DecisionBuy, 50, "0.5"},
		{"极度贪婪时加码卖出", ai.DecisionSell, 90, "0.6"},
		{"极度恐惧时收缩卖出", ai.DecisionSell, 10, "0.4"},
		{"中性区间卖出不调整", ai.DecisionSell, 50, "0.5"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := AdjustTradeRatio(tc.decision, half, tc.fg)
			assert.Equal(t, tc.want, got.String())
		})
	}
}

func TestAdjustTradeRatioCapsAtOne(t *testing.T) {
	got := AdjustTradeRatio(ai.DecisionBuy, decimal.NewFromFloat(0.9), 10)
	assert.True(t, got.Equal(decimal.NewFromInt(1)), "0.9*1.2 应封顶到 1.0, got %s", got)
}

func TestExecuteHoldDoesNothing(t *testing.T) {
	ex := &fakeExchange{quoteBalance: 100000}
	eng := newTestEngine(ex)

	outcome, err := eng.Execute(context.Background(), ai.TradingDecision{
		Decision: ai.DecisionHold, Percentage: 0, ConfidenceScore: 95,
	}, 50)
	require.NoError(t, err)
	assert.False(t, outcome.Executed)
	assert.False(t, ex.buyCalled)
	assert.False(t, ex.sellCalled)
}

func TestExecuteConfidenceGate(t *testing.T) {
	ex := &fakeExchange{quoteBalance: 100000}
	eng := newTestEngine(ex)

	// 阈值是严格大于: 70 本身也不放行
	for _, score := range []int{65, 70} {
		outcome, err := eng.Execute(context.Background(), ai.TradingDecision{
			Decision: ai.DecisionBuy, Percentage: 50, ConfidenceScore: score,
		}, 50)
		require.NoError(t, err)
		assert.False(t, outcome.Executed, "score=%d", score)
		assert.False(t, ex.buyCalled, "score=%d", score)
	}
}

func TestExecuteBuyAppliesFearBoost(t *testing.T) {
	ex := &fakeExchange{quoteBalance: 100000}
	eng := newTestEngine(ex)

	outcome, err := eng.Execute(context.Background(), ai.TradingDecision{
		Decision: ai.DecisionBuy, Percentage: 50, ConfidenceScore: 85,
	}, 10)
	require.NoError(t, err)
	assert.True(t, outcome.Executed)
	assert.Equal(t, "order-1", outcome.OrderID)
	// 100000 * 0.5 * 1.2 * 0.9995
	assert.InDelta(t, 59970, ex.buyNotional, 0.01)
}

func TestExecuteBuyBelowMinNotionalSkips(t *testing.T) {
	ex := &fakeExchange{quoteBalance: 4000}
	eng := newTestEngine(ex)

	outcome, err := eng.Execute(context.Background(), ai.TradingDecision{
		Decision: ai.DecisionBuy, Percentage: 100, ConfidenceScore: 90,
	}, 50)
	require.NoError(t, err)
	assert.False(t, outcome.Executed)
	assert.False(t, ex.buyCalled)
	assert.NotEmpty(t, outcome.SkipReason)
}

func TestExecuteSellBelowMinNotionalSkips(t *testing.T) {
	// 0.05 BTC * 0.5 * 60000 = 1500 < 5000
	ex := &fakeExchange{baseBalance: 0.05, price: 60000}
	eng := newTestEngine(ex)

	outcome, err := eng.Execute(context.Background(), ai.TradingDecision{
		Decision: ai.DecisionSell, Percentage: 50, ConfidenceScore: 90,
	}, 50)
	require.NoError(t, err)
	assert.False(t, outcome.Executed)
	assert.False(t, ex.sellCalled)
}

func TestExecuteSellGreedBoost(t *testing.T) {
	ex := &fakeExchange{baseBalance: 1, price: 60000}
	eng := newTestEngine(ex)

	outcome, err := eng.Execute(context.Background(), ai.TradingDecision{
		Decision: ai.DecisionSell, Percentage: 50, ConfidenceScore: 90,
	}, 90)
	require.NoError(t, err)
	assert.True(t, outcome.Executed)
	assert.InDelta(t, 0.6, ex.sellQuantity, 1e-9)
	assert.InDelta(t, 36000, outcome.Notional, 0.01)
}

func TestExecuteSubmitFailureIsExecutionError(t *testing.T) {
	ex := &fakeExchange{quoteBalance: 100000, submitErr: errors.New("insufficient balance")}
	eng := newTestEngine(ex)

	outcome, err := eng.Execute(context.Background(), ai.TradingDecision{
		Decision: ai.DecisionBuy, Percentage: 50, ConfidenceScore: 90,
	}, 50)
	require.Error(t, err)
	assert.True(t, fault.Is(err, fault.KindExecutionError))
	assert.False(t, outcome.Executed)
}
