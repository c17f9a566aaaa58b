package ai

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/tidwall/gjson"

	"aurum/internal/fault"
	"aurum/internal/logger"
	"aurum/internal/pkg/circuit"
	"aurum/internal/pkg/jsonutil"
	"aurum/internal/store"
	"aurum/internal/store/oracleaudit"
	"aurum/internal/visual"
)

// ReflectionInput 是复盘调用的输入快照。行情部分只取轻量字段, 不带完整上下文。
type ReflectionInput struct {
	RecentTrades      []store.TradeRecord      `json:"recent_trades"`
	RecentReflections []store.ReflectionRecord `json:"recent_reflections"`
	CurrentPrice      float64                  `json:"current_price"`
	FearGreed         any                      `json:"fear_greed,omitempty"`
	Indicators        any                      `json:"technical_indicators,omitempty"`
}

// Engine 封装对决策预言机的全部调用: 决策、复盘、图表解读、评论摘要。
// 所有失败统一分类为 fault.KindOracleFailure, 由熔断器保护连续失败。
type Engine struct {
	client      ChatClient
	model       string
	visionModel string
	breaker     *circuit.Breaker
	audit       *oracleaudit.Store
	timeout     time.Duration

	// GuidanceFn 返回随档案热更新的附加引导文本, 可为 nil。
	GuidanceFn func() string
}

type EngineOptions struct {
	Model       string
	VisionModel string
	Timeout     time.Duration
	Breaker     *circuit.Breaker
	Audit       *oracleaudit.Store
}

func NewEngine(client ChatClient, opts EngineOptions) *Engine {
	if opts.Timeout <= 0 {
		opts.Timeout = 120 * time.Second
	}
	if opts.VisionModel == "" {
		opts.VisionModel = opts.Model
	}
	return &Engine{
		client:      client,
		model:       opts.Model,
		visionModel: opts.VisionModel,
		breaker:     opts.Breaker,
		audit:       opts.Audit,
		timeout:     opts.Timeout,
	}
}

func (e *Engine) guidance() string {
	if e.GuidanceFn == nil {
		return ""
	}
	return e.GuidanceFn()
}

// call 是底层统一通道: 熔断检查、超时、请求/响应日志。
func (e *Engine) call(ctx context.Context, purpose, model string, payload ChatPayload) (string, error) {
	if e.breaker != nil && !e.breaker.Allow() {
		return "", fault.OracleFailure(purpose, fmt.Errorf("熔断器打开, 跳过调用"))
	}
	callCtx, cancel := context.WithTimeout(ctx, e.timeout)
	defer cancel()

	logger.LogLLMRequest(purpose, payload.System, payload.User, len(payload.Images))
	raw, err := e.client.Call(callCtx, model, payload)
	if err != nil {
		if e.breaker != nil {
			e.breaker.RecordFailure()
		}
		return "", fault.OracleFailure(purpose, err)
	}
	if e.breaker != nil {
		e.breaker.RecordSuccess()
	}
	logger.LogLLMResponse(purpose, raw)
	return raw, nil
}

func (e *Engine) record(ctx context.Context, cycleID, stage, model, payload string, accepted bool, reject string) {
	if e.audit == nil {
		return
	}
	// 视觉/评论阶段的载荷是纯文本, 统一转成合法 JSON 再入库
	data := []byte(payload)
	if !gjson.ValidBytes(data) {
		data, _ = json.Marshal(payload)
	}
	e.audit.Append(ctx, oracleaudit.Record{
		CycleID:  cycleID,
		Stage:    stage,
		Model:    model,
		Payload:  data,
		Accepted: accepted,
		Reject:   reject,
	})
}

// GetDecision 将完整市场上下文交给模型, 返回经 schema 校验的交易决策。
func (e *Engine) GetDecision(ctx context.Context, cycleID string, mc MarketContext) (TradingDecision, error) {
	user, err := buildDecisionUserPrompt(mc, e.guidance())
	if err != nil {
		return TradingDecision{}, fault.OracleFailure("decision.prompt", err)
	}
	raw, err := e.call(ctx, "decision", e.model, ChatPayload{
		System:     decisionSystemPrompt,
		User:       user,
		ExpectJSON: true,
	})
	if err != nil {
		return TradingDecision{}, err
	}

	obj, ok := jsonutil.ExtractObject(raw)
	if !ok {
		err := fmt.Errorf("输出中未找到 JSON 对象")
		e.record(ctx, cycleID, oracleaudit.StageDecision, e.model, raw, false, err.Error())
		return TradingDecision{}, fault.OracleFailure("decision.extract", err)
	}
	decision, err := ParseDecision(obj)
	if err != nil {
		e.record(ctx, cycleID, oracleaudit.StageDecision, e.model, obj, false, err.Error())
		return TradingDecision{}, fault.OracleFailure("decision.validate", err)
	}
	e.record(ctx, cycleID, oracleaudit.StageDecision, e.model, obj, true, "")
	logger.Infof("决策结果: %s %d%% 置信度=%d", decision.Decision, decision.Percentage, decision.ConfidenceScore)
	return decision, nil
}

// Reflect 基于近期交易与历史复盘生成新的复盘结论。
// 调用方应在历史为空时跳过, 这里不做空历史判断。
func (e *Engine) Reflect(ctx context.Context, cycleID string, input ReflectionInput) (Reflection, error) {
	user, err := buildReflectionUserPrompt(input)
	if err != nil {
		return Reflection{}, fault.OracleFailure("reflection.prompt", err)
	}
	raw, err := e.call(ctx, "reflection", e.model, ChatPayload{
		System:     reflectionSystemPrompt,
		User:       user,
		ExpectJSON: true,
	})
	if err != nil {
		return Reflection{}, err
	}

	obj, ok := jsonutil.ExtractObject(raw)
	if !ok {
		err := fmt.Errorf("输出中未找到 JSON 对象")
		e.record(ctx, cycleID, oracleaudit.StageReflection, e.model, raw, false, err.Error())
		return Reflection{}, fault.OracleFailure("reflection.extract", err)
	}
	reflection, err := ParseReflection(obj)
	if err != nil {
		e.record(ctx, cycleID, oracleaudit.StageReflection, e.model, obj, false, err.Error())
		return Reflection{}, fault.OracleFailure("reflection.validate", err)
	}
	e.record(ctx, cycleID, oracleaudit.StageReflection, e.model, obj, true, "")
	return reflection, nil
}

// AnalyzeChart 用视觉模型解读 K 线截图, 返回文字叙述。
func (e *Engine) AnalyzeChart(ctx context.Context, cycleID string, image visual.ImageResult) (string, error) {
	raw, err := e.call(ctx, "vision", e.visionModel, ChatPayload{
		User:   chartAnalysisPrompt,
		Images: []string{image.DataURI()},
	})
	if err != nil {
		return "", err
	}
	narrative := strings.TrimSpace(raw)
	if narrative == "" {
		err := fmt.Errorf("视觉模型返回空叙述")
		e.record(ctx, cycleID, oracleaudit.StageVision, e.visionModel, raw, false, err.Error())
		return "", fault.OracleFailure("vision", err)
	}
	e.record(ctx, cycleID, oracleaudit.StageVision, e.visionModel, narrative, true, "")
	return narrative, nil
}

// SummarizeCommentary 把人工投喂的市场评论压缩成可注入决策上下文的摘要。
func (e *Engine) SummarizeCommentary(ctx context.Context, cycleID, commentary string) (string, error) {
	commentary = strings.TrimSpace(commentary)
	if commentary == "" {
		return "", nil
	}
	raw, err := e.call(ctx, "commentary", e.model, ChatPayload{
		System: commentarySystemPrompt,
		User:   commentary,
	})
	if err != nil {
		return "", err
	}
	summary := strings.TrimSpace(raw)
	e.record(ctx, cycleID, oracleaudit.StageCommentary, e.model, summary, true, "")
	return summary, nil
}
