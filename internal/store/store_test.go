package store

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"aurum/internal/fault"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "trading.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func sampleTrade() TradeRecord {
	return TradeRecord{
		Timestamp:    time.Now(),
		Decision:     "buy",
		Percentage:   30,
		Reason:       "RSI 超卖",
		BaseBalance:  0.5,
		QuoteBalance: 42000,
		AvgBuyPrice:  58000,
		MarketPrice:  60000,
	}
}

func TestOpenRejectsEmptyPath(t *testing.T) {
	_, err := Open("  ")
	require.Error(t, err)
	assert.True(t, fault.Is(err, fault.KindPersistenceError))
}

func TestRecordTradeAndReadBack(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	id, err := s.RecordTrade(ctx, sampleTrade())
	require.NoError(t, err)
	assert.Positive(t, id)

	trades, err := s.GetRecentTrades(ctx, 10)
	require.NoError(t, err)
	require.Len(t, trades, 1)
	assert.Equal(t, id, trades[0].ID)
	assert.Equal(t, "buy", trades[0].Decision)
	assert.InDelta(t, 60000, trades[0].MarketPrice, 1e-9)
}

func TestGetRecentTradesOrderAndLimit(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	base := time.Now().Add(-time.Hour)
	for i := 0; i < 5; i++ {
		rec := sampleTrade()
		rec.Timestamp = base.Add(time.Duration(i) * time.Minute)
		rec.Percentage = float64(i)
		_, err := s.RecordTrade(ctx, rec)
		require.NoError(t, err)
	}

	trades, err := s.GetRecentTrades(ctx, 3)
	require.NoError(t, err)
	require.Len(t, trades, 3)
	// 最新在前
	assert.InDelta(t, 4, trades[0].Percentage, 1e-9)
	assert.InDelta(t, 2, trades[2].Percentage, 1e-9)
}

func TestGetRecentTradesLimitEdge(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	_, err := s.RecordTrade(ctx, sampleTrade())
	require.NoError(t, err)

	// limit=0 合法, 返回空集
	trades, err := s.GetRecentTrades(ctx, 0)
	require.NoError(t, err)
	assert.Empty(t, trades)

	_, err = s.GetRecentTrades(ctx, -1)
	assert.Error(t, err)
}

func TestAddReflectionRequiresExistingTrade(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	err := s.AddReflection(ctx, ReflectionRecord{
		TradingID:         999,
		ReflectionDate:    time.Now(),
		MarketCondition:   "c",
		DecisionAnalysis:  "d",
		ImprovementPoints: "i",
		SuccessRate:       50,
		LearningPoints:    "l",
	})
	require.Error(t, err)
	assert.True(t, fault.Is(err, fault.KindPersistenceError))
}

func TestReflectionRoundTrip(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	tradeID, err := s.RecordTrade(ctx, sampleTrade())
	require.NoError(t, err)

	err = s.AddReflection(ctx, ReflectionRecord{
		TradingID:         tradeID,
		ReflectionDate:    time.Now(),
		MarketCondition:   "震荡",
		DecisionAnalysis:  "买点偏早",
		ImprovementPoints: "等待确认",
		SuccessRate:       62.5,
		LearningPoints:    "降低极端行情仓位",
	})
	require.NoError(t, err)

	reflections, err := s.GetReflectionHistory(ctx, 5)
	require.NoError(t, err)
	require.Len(t, reflections, 1)
	assert.Equal(t, tradeID, reflections[0].TradingID)
	assert.InDelta(t, 62.5, reflections[0].SuccessRate, 1e-9)
}

func TestRecordTradeIgnoresCallerID(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	rec := sampleTrade()
	rec.ID = 777
	id, err := s.RecordTrade(ctx, rec)
	require.NoError(t, err)
	assert.NotEqual(t, int64(0), id)

	trades, err := s.GetRecentTrades(ctx, 1)
	require.NoError(t, err)
	require.Len(t, trades, 1)
	assert.Equal(t, id, trades[0].ID)
}
