package agent

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"aurum/internal/ai"
	"aurum/internal/logger"
	"aurum/internal/market"
	"aurum/internal/store"
	"aurum/internal/trader"
	"aurum/internal/visual"
)

// 中文说明：
// 单个交易周期的状态机: REFLECT → GATHER → DECIDE → EXECUTE → PERSIST。
// 失败语义:
//   REFLECT 失败   → 记日志, 周期继续
//   GATHER 缺信号  → 周期中止, 不调用模型, 不落库
//   DECIDE 失败    → 周期中止, 不落库
//   EXECUTE 失败   → 按持有处理, 照常落库
//   PERSIST 失败   → 唯一允许致命的错误, 原样上抛

// Oracle 是编排器消费的决策端能力, ai.Engine 满足该接口。
type Oracle interface {
	GetDecision(ctx context.Context, cycleID string, mc ai.MarketContext) (ai.TradingDecision, error)
	Reflect(ctx context.Context, cycleID string, input ai.ReflectionInput) (ai.Reflection, error)
	AnalyzeChart(ctx context.Context, cycleID string, image visual.ImageResult) (string, error)
	SummarizeCommentary(ctx context.Context, cycleID, commentary string) (string, error)
}

// Executor 是仓位执行端能力, trader.Engine 满足该接口。
type Executor interface {
	Execute(ctx context.Context, decision ai.TradingDecision, fearGreed int) (trader.Outcome, error)
	Snapshot(ctx context.Context, avgBuyPrice float64) (market.AccountStatus, error)
}

// HistoryStore 是复盘存储能力, store.Store 满足该接口。
type HistoryStore interface {
	RecordTrade(ctx context.Context, rec store.TradeRecord) (int64, error)
	AddReflection(ctx context.Context, rec store.ReflectionRecord) error
	GetRecentTrades(ctx context.Context, limit int) ([]store.TradeRecord, error)
	GetReflectionHistory(ctx context.Context, limit int) ([]store.ReflectionRecord, error)
}

// Notifier 推送周期摘要, 可为 nil。
type Notifier interface {
	SendText(ctx context.Context, text string) error
}

// ProfileSource 提供人工评论文本, 可为 nil。
type ProfileSource interface {
	Commentary() string
}

type OrchestratorConfig struct {
	Symbol             string
	TradeLookback      int
	ReflectionLookback int
	ChartEnabled       bool
	ChartIntervals     []string
}

type Orchestrator struct {
	aggregator *Aggregator
	oracle     Oracle
	executor   Executor
	history    HistoryStore
	notifier   Notifier
	commentary ProfileSource
	cfg        OrchestratorConfig
}

func NewOrchestrator(aggregator *Aggregator, oracle Oracle, executor Executor, history HistoryStore, cfg OrchestratorConfig) *Orchestrator {
	if cfg.TradeLookback <= 0 {
		cfg.TradeLookback = 10
	}
	if cfg.ReflectionLookback <= 0 {
		cfg.ReflectionLookback = 5
	}
	if len(cfg.ChartIntervals) == 0 {
		cfg.ChartIntervals = []string{"1d", "1h"}
	}
	return &Orchestrator{
		aggregator: aggregator,
		oracle:     oracle,
		executor:   executor,
		history:    history,
		cfg:        cfg,
	}
}

func (o *Orchestrator) WithNotifier(n Notifier) *Orchestrator { o.notifier = n; return o }

func (o *Orchestrator) WithCommentary(p ProfileSource) *Orchestrator { o.commentary = p; return o }

// CycleResult 一次完整周期的产出。
type CycleResult struct {
	CycleID  string
	Decision ai.TradingDecision
	Outcome  trader.Outcome
	TradeID  int64
}

// RunCycle 执行一个完整周期。返回错误时调用方依据 fault.KindOf 决定
// 是冷却重试还是终止进程。
func (o *Orchestrator) RunCycle(ctx context.Context) (CycleResult, error) {
	cycleID := uuid.NewString()
	started := time.Now()
	logger.InfoBlock(fmt.Sprintf("交易周期开始 cycle=%s symbol=%s", cycleID, o.cfg.Symbol))

	o.reflect(ctx, cycleID)

	mc, err := o.gather(ctx, cycleID)
	if err != nil {
		logger.Errorf("cycle=%s 信号缺失, 周期中止: %v", cycleID, err)
		return CycleResult{CycleID: cycleID}, err
	}

	decision, err := o.oracle.GetDecision(ctx, cycleID, mc)
	if err != nil {
		logger.Errorf("cycle=%s 决策失败, 周期中止: %v", cycleID, err)
		return CycleResult{CycleID: cycleID}, err
	}

	outcome := o.execute(ctx, cycleID, decision, mc.FearGreed.Value)

	tradeID, err := o.persist(ctx, cycleID, decision, outcome, mc.Status)
	if err != nil {
		return CycleResult{CycleID: cycleID, Decision: decision, Outcome: outcome}, err
	}

	result := CycleResult{CycleID: cycleID, Decision: decision, Outcome: outcome, TradeID: tradeID}
	logger.Infof("cycle=%s 周期完成 耗时=%s trade_id=%d", cycleID, time.Since(started).Round(time.Millisecond), tradeID)
	o.notify(ctx, result)
	return result, nil
}

// reflect 基于已有历史生成复盘。历史为空直接跳过; 任何失败只降级不阻断。
func (o *Orchestrator) reflect(ctx context.Context, cycleID string) {
	trades, err := o.history.GetRecentTrades(ctx, o.cfg.TradeLookback)
	if err != nil {
		logger.Warnf("cycle=%s 读取交易历史失败, 跳过复盘: %v", cycleID, err)
		return
	}
	if len(trades) == 0 {
		logger.Infof("cycle=%s 暂无交易历史, 跳过复盘", cycleID)
		return
	}
	reflections, err := o.history.GetReflectionHistory(ctx, o.cfg.ReflectionLookback)
	if err != nil {
		logger.Warnf("cycle=%s 读取复盘历史失败: %v", cycleID, err)
		reflections = nil
	}

	input := ai.ReflectionInput{
		RecentTrades:      trades,
		RecentReflections: reflections,
		CurrentPrice:      trades[0].MarketPrice,
	}
	reflection, err := o.oracle.Reflect(ctx, cycleID, input)
	if err != nil {
		logger.Warnf("cycle=%s 复盘生成失败: %v", cycleID, err)
		return
	}
	rec := store.ReflectionRecord{
		TradingID:         trades[0].ID,
		ReflectionDate:    time.Now(),
		MarketCondition:   reflection.MarketCondition,
		DecisionAnalysis:  reflection.DecisionAnalysis,
		ImprovementPoints: reflection.ImprovementPoints,
		SuccessRate:       reflection.SuccessRate,
		LearningPoints:    reflection.LearningPoints,
	}
	if err := o.history.AddReflection(ctx, rec); err != nil {
		logger.Warnf("cycle=%s 复盘写入失败: %v", cycleID, err)
		return
	}
	logger.Infof("cycle=%s 复盘完成 success_rate=%.1f", cycleID, reflection.SuccessRate)
}

// gather 拉取必需信号并补充可选信号与历史复盘。
func (o *Orchestrator) gather(ctx context.Context, cycleID string) (ai.MarketContext, error) {
	mc, err := o.aggregator.Gather(ctx)
	if err != nil {
		return ai.MarketContext{}, err
	}

	if reflections, err := o.history.GetReflectionHistory(ctx, o.cfg.ReflectionLookback); err != nil {
		logger.Warnf("cycle=%s 历史复盘读取失败, 上下文不含反馈环: %v", cycleID, err)
	} else {
		mc.PastReflections = reflections
	}

	if o.cfg.ChartEnabled {
		mc.ChartNarrative = o.chartNarrative(ctx, cycleID, mc)
	}
	if o.commentary != nil {
		if text := o.commentary.Commentary(); text != "" {
			summary, err := o.oracle.SummarizeCommentary(ctx, cycleID, text)
			if err != nil {
				logger.Warnf("cycle=%s 评论摘要失败, 上下文不含评论: %v", cycleID, err)
			} else {
				mc.CommentaryNarrative = summary
			}
		}
	}
	return mc, nil
}

// chartNarrative 渲染 K 线截图并交给视觉模型解读。全链路可选。
func (o *Orchestrator) chartNarrative(ctx context.Context, cycleID string, mc ai.MarketContext) string {
	candles := map[string][]market.Candle{
		"1d": mc.Daily.Candles,
		"1h": mc.Hourly.Candles,
	}
	image, err := visual.RenderComposite(visual.CompositeInput{
		Context:   ctx,
		Symbol:    mc.Symbol,
		Intervals: o.cfg.ChartIntervals,
		Candles:   candles,
	})
	if err != nil {
		logger.Warnf("cycle=%s 图表渲染失败, 上下文不含图表叙述: %v", cycleID, err)
		return ""
	}
	narrative, err := o.oracle.AnalyzeChart(ctx, cycleID, image)
	if err != nil {
		logger.Warnf("cycle=%s 图表解读失败, 上下文不含图表叙述: %v", cycleID, err)
		return ""
	}
	return narrative
}

// execute 提交订单。执行失败按持有处理, 周期继续走落库。
func (o *Orchestrator) execute(ctx context.Context, cycleID string, decision ai.TradingDecision, fearGreed int) trader.Outcome {
	outcome, err := o.executor.Execute(ctx, decision, fearGreed)
	if err != nil {
		logger.Errorf("cycle=%s 执行失败, 按持有处理: %v", cycleID, err)
		outcome.Executed = false
		if outcome.SkipReason == "" {
			outcome.SkipReason = fmt.Sprintf("执行失败: %v", err)
		}
	}
	return outcome
}

// persist 无条件落库。写入失败是唯一允许向上致命传播的错误。
func (o *Orchestrator) persist(ctx context.Context, cycleID string, decision ai.TradingDecision, outcome trader.Outcome, preTrade market.AccountStatus) (int64, error) {
	status, err := o.executor.Snapshot(ctx, preTrade.AvgBuyPrice)
	if err != nil {
		logger.Warnf("cycle=%s 执行后余额快照失败, 回退到周期内快照: %v", cycleID, err)
		status = preTrade
	}
	rec := store.TradeRecord{
		Timestamp:    time.Now(),
		Decision:     decision.Decision,
		Percentage:   float64(decision.Percentage),
		Reason:       decision.Reason,
		BaseBalance:  status.BaseBalance,
		QuoteBalance: status.QuoteBalance,
		AvgBuyPrice:  status.AvgBuyPrice,
		MarketPrice:  status.CurrentPrice,
	}
	// store 层已按 KindPersistenceError 分类, 这里不再二次包装
	id, err := o.history.RecordTrade(ctx, rec)
	if err != nil {
		logger.Errorf("cycle=%s 交易记录写入失败: %v", cycleID, err)
		return 0, err
	}
	return id, nil
}

func (o *Orchestrator) notify(ctx context.Context, result CycleResult) {
	if o.notifier == nil {
		return
	}
	var action string
	if result.Outcome.Executed {
		action = fmt.Sprintf("已下单 %s (order_id=%s)", result.Outcome.Side, result.Outcome.OrderID)
	} else {
		action = fmt.Sprintf("未下单 (%s)", result.Outcome.SkipReason)
	}
	text := fmt.Sprintf("📊 %s 周期完成\n决策: %s %d%%\n置信度: %d\n%s",
		o.cfg.Symbol, result.Decision.Decision, result.Decision.Percentage, result.Decision.ConfidenceScore, action)
	if err := o.notifier.SendText(ctx, text); err != nil {
		logger.Warnf("通知发送失败: %v", err)
	}
}
