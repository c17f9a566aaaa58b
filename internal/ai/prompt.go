package ai

import (
	"encoding/json"
	"fmt"
	"strings"
)

// 中文说明：
// 提示词构造。上下文统一 JSON 序列化注入 user 段，策略性引导放 system 段。

const decisionSystemPrompt = `You are a cryptocurrency trading analyst. Analyze the provided market data and generate a trading decision.
Respond with a single JSON object with exactly these fields:
{
  "percentage": integer 0-100 (buy: % of available quote balance to spend; sell: % of held base asset to sell; hold: 0),
  "confidence_score": integer 0-100,
  "decision": "buy" | "sell" | "hold",
  "reason": "detailed explanation",
  "reflection_based_adjustments": {
    "risk_adjustment": string,
    "strategy_improvement": string,
    "confidence_factors": [string, ...]
  }
}
Do not add any other top-level fields.`

const reflectionSystemPrompt = `You are an AI trading advisor. Review the recent trading records and market conditions.
Provide your analysis as a JSON object with these exact fields:
{
  "market_condition": "current market state analysis",
  "decision_analysis": "analysis of past trading decisions",
  "improvement_points": "points to improve",
  "success_rate": numeric value between 0-100,
  "learning_points": "key lessons learned"
}`

const chartAnalysisPrompt = `Analyze this cryptocurrency chart and provide insights about: 1) Current trend 2) Key support/resistance levels 3) Technical indicator signals 4) Notable patterns. Keep it under 200 words.`

const commentarySystemPrompt = `You are an expert cryptocurrency trading analyst.
Summarize the following market commentary into actionable insights: trading strategy, market sentiment, important price levels, and risk factors. Keep it under 200 words.`

func buildDecisionUserPrompt(mc MarketContext, guidance string) (string, error) {
	data, err := json.MarshalIndent(mc, "", "  ")
	if err != nil {
		return "", err
	}
	var b strings.Builder
	fmt.Fprintf(&b, "Market Data Analysis:\n%s\n", data)
	if guidance = strings.TrimSpace(guidance); guidance != "" {
		fmt.Fprintf(&b, "\nAdditional guidance:\n%s\n", guidance)
	}
	return b.String(), nil
}

func buildReflectionUserPrompt(input ReflectionInput) (string, error) {
	data, err := json.MarshalIndent(input, "", "  ")
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("Analyze these trading records and market conditions and provide response in JSON format:\n%s\n", data), nil
}
