package ai

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const validDecisionJSON = `{
  "percentage": 30,
  "confidence_score": 82,
  "decision": "buy",
  "reason": "RSI 超卖叠加恐慌情绪",
  "reflection_based_adjustments": {
    "risk_adjustment": "降低单次仓位",
    "strategy_improvement": "等待回踩确认",
    "confidence_factors": ["RSI", "fear index"]
  }
}`

func TestParseDecisionValid(t *testing.T) {
	d, err := ParseDecision(validDecisionJSON)
	require.NoError(t, err)
	assert.Equal(t, DecisionBuy, d.Decision)
	assert.Equal(t, 30, d.Percentage)
	assert.Equal(t, 82, d.ConfidenceScore)
	assert.Equal(t, []string{"RSI", "fear index"}, d.Adjustments.ConfidenceFactors)
}

func TestParseDecisionRejects(t *testing.T) {
	cases := []struct {
		name string
		raw  string
	}{
		{"空输入", ""},
		{"非 JSON", "buy 30%"},
		{"根节点是数组", `[{"decision":"buy"}]`},
		{"缺少必需字段", `{"percentage": 30, "decision": "buy"}`},
		{"未知决策枚举", `{
			"percentage": 30, "confidence_score": 82, "decision": "long",
			"reason": "r",
			"reflection_based_adjustments": {"risk_adjustment":"a","strategy_improvement":"b","confidence_factors":[]}
		}`},
		{"百分比越界", `{
			"percentage": 130, "confidence_score": 82, "decision": "buy",
			"reason": "r",
			"reflection_based_adjustments": {"risk_adjustment":"a","strategy_improvement":"b","confidence_factors":[]}
		}`},
		{"百分比非整数", `{
			"percentage": 30.5, "confidence_score": 82, "decision": "buy",
			"reason": "r",
			"reflection_based_adjustments": {"risk_adjustment":"a","strategy_improvement":"b","confidence_factors":[]}
		}`},
		{"顶层未知字段", `{
			"percentage": 30, "confidence_score": 82, "decision": "buy",
			"reason": "r", "leverage": 10,
			"reflection_based_adjustments": {"risk_adjustment":"a","strategy_improvement":"b","confidence_factors":[]}
		}`},
		{"调整块未知字段", `{
			"percentage": 30, "confidence_score": 82, "decision": "buy",
			"reason": "r",
			"reflection_based_adjustments": {"risk_adjustment":"a","strategy_improvement":"b","confidence_factors":[],"extra":1}
		}`},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := ParseDecision(tc.raw)
			assert.Error(t, err)
		})
	}
}

func TestParseReflectionValid(t *testing.T) {
	raw := `{
	  "market_condition": "震荡偏弱",
	  "decision_analysis": "连续两次买入过早",
	  "improvement_points": "等待趋势确认",
	  "success_rate": 62.5,
	  "learning_points": "极端情绪下降低仓位"
	}`
	r, err := ParseReflection(raw)
	require.NoError(t, err)
	assert.InDelta(t, 62.5, r.SuccessRate, 1e-9)
	assert.Equal(t, "震荡偏弱", r.MarketCondition)
}

func TestParseReflectionToleratesExtraFields(t *testing.T) {
	// 复盘输出宽松: 多余字段忽略, 不视为失败
	raw := `{
	  "market_condition": "c", "decision_analysis": "d",
	  "improvement_points": "i", "success_rate": 50,
	  "learning_points": "l", "mood": "optimistic"
	}`
	_, err := ParseReflection(raw)
	assert.NoError(t, err)
}

func TestParseReflectionRejectsOutOfRangeRate(t *testing.T) {
	raw := `{
	  "market_condition": "c", "decision_analysis": "d",
	  "improvement_points": "i", "success_rate": 120,
	  "learning_points": "l"
	}`
	_, err := ParseReflection(raw)
	assert.Error(t, err)
}
