package ai

// 中文说明：
// 推理服务的输入/输出结构。输出必须先通过 schema 校验再被信任，
// 任何不合规输出都按失败处理，绝不折算成一个伪造的 hold。

const (
	DecisionBuy  = "buy"
	DecisionSell = "sell"
	DecisionHold = "hold"
)

// Adjustments 决策附带的复盘调整块。
type Adjustments struct {
	RiskAdjustment      string   `json:"risk_adjustment"`
	StrategyImprovement string   `json:"strategy_improvement"`
	ConfidenceFactors   []string `json:"confidence_factors"`
}

// TradingDecision 单次决策输出。
type TradingDecision struct {
	Percentage      int         `json:"percentage"`
	ConfidenceScore int         `json:"confidence_score"`
	Decision        string      `json:"decision"`
	Reason          string      `json:"reason"`
	Adjustments     Adjustments `json:"reflection_based_adjustments"`
}

// Reflection 定期自我复盘输出。
type Reflection struct {
	MarketCondition   string  `json:"market_condition"`
	DecisionAnalysis  string  `json:"decision_analysis"`
	ImprovementPoints string  `json:"improvement_points"`
	SuccessRate       float64 `json:"success_rate"`
	LearningPoints    string  `json:"learning_points"`
}
