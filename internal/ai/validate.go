package ai

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/santhosh-tekuri/jsonschema/v5"
	"github.com/tidwall/gjson"
)

// 中文说明：
// 决策输出的强校验：字段齐全、类型正确、取值在界内，顶层不允许未知字段。
// 复盘输出允许多余字段（只校验必需项）。校验不通过一律视为推理失败。

const decisionSchemaJSON = `{
  "type": "object",
  "properties": {
    "percentage": {"type": "integer", "minimum": 0, "maximum": 100},
    "confidence_score": {"type": "integer", "minimum": 0, "maximum": 100},
    "decision": {"type": "string", "enum": ["buy", "sell", "hold"]},
    "reason": {"type": "string"},
    "reflection_based_adjustments": {
      "type": "object",
      "properties": {
        "risk_adjustment": {"type": "string"},
        "strategy_improvement": {"type": "string"},
        "confidence_factors": {"type": "array", "items": {"type": "string"}}
      },
      "required": ["risk_adjustment", "strategy_improvement", "confidence_factors"],
      "additionalProperties": false
    }
  },
  "required": ["percentage", "confidence_score", "decision", "reason", "reflection_based_adjustments"],
  "additionalProperties": false
}`

const reflectionSchemaJSON = `{
  "type": "object",
  "properties": {
    "market_condition": {"type": "string"},
    "decision_analysis": {"type": "string"},
    "improvement_points": {"type": "string"},
    "success_rate": {"type": "number", "minimum": 0, "maximum": 100},
    "learning_points": {"type": "string"}
  },
  "required": ["market_condition", "decision_analysis", "improvement_points", "success_rate", "learning_points"]
}`

var (
	decisionSchema   = jsonschema.MustCompileString("decision.json", decisionSchemaJSON)
	reflectionSchema = jsonschema.MustCompileString("reflection.json", reflectionSchemaJSON)
)

// ParseDecision 校验并解析原始 JSON 文本为 TradingDecision。
func ParseDecision(raw string) (TradingDecision, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return TradingDecision{}, fmt.Errorf("json 内容为空")
	}
	if !gjson.Valid(raw) {
		return TradingDecision{}, fmt.Errorf("json 格式无效")
	}
	if !gjson.Parse(raw).IsObject() {
		return TradingDecision{}, fmt.Errorf("根节点必须是 JSON 对象")
	}
	var doc any
	if err := json.Unmarshal([]byte(raw), &doc); err != nil {
		return TradingDecision{}, err
	}
	if err := decisionSchema.Validate(doc); err != nil {
		return TradingDecision{}, fmt.Errorf("决策 schema 校验失败: %w", err)
	}
	var out TradingDecision
	if err := json.Unmarshal([]byte(raw), &out); err != nil {
		return TradingDecision{}, err
	}
	return out, nil
}

// ParseReflection 校验并解析复盘输出；未知字段忽略。
func ParseReflection(raw string) (Reflection, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return Reflection{}, fmt.Errorf("json 内容为空")
	}
	if !gjson.Valid(raw) {
		return Reflection{}, fmt.Errorf("json 格式无效")
	}
	if !gjson.Parse(raw).IsObject() {
		return Reflection{}, fmt.Errorf("根节点必须是 JSON 对象")
	}
	var doc any
	if err := json.Unmarshal([]byte(raw), &doc); err != nil {
		return Reflection{}, err
	}
	if err := reflectionSchema.Validate(doc); err != nil {
		return Reflection{}, fmt.Errorf("复盘 schema 校验失败: %w", err)
	}
	var out Reflection
	if err := json.Unmarshal([]byte(raw), &out); err != nil {
		return Reflection{}, err
	}
	return out, nil
}
