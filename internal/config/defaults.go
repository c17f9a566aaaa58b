package config

import "strings"

const (
	defaultSymbol     = "BTCUSDT"
	defaultBaseAsset  = "BTC"
	defaultQuoteAsset = "USDT"
)

func (c *Config) applyDefaults() {
	if c == nil {
		return
	}
	if strings.TrimSpace(c.App.Env) == "" {
		c.App.Env = "dev"
	}
	if strings.TrimSpace(c.App.LogLevel) == "" {
		c.App.LogLevel = "info"
	}
	if strings.TrimSpace(c.App.HTTPAddr) == "" {
		c.App.HTTPAddr = ":9980"
	}

	if strings.TrimSpace(c.Exchange.Symbol) == "" {
		c.Exchange.Symbol = defaultSymbol
	}
	if strings.TrimSpace(c.Exchange.BaseAsset) == "" {
		c.Exchange.BaseAsset = defaultBaseAsset
	}
	if strings.TrimSpace(c.Exchange.QuoteAsset) == "" {
		c.Exchange.QuoteAsset = defaultQuoteAsset
	}
	if c.Exchange.TimeoutSeconds <= 0 {
		c.Exchange.TimeoutSeconds = 10
	}

	if strings.TrimSpace(c.Oracle.BaseURL) == "" {
		c.Oracle.BaseURL = "https://api.openai.com/v1"
	}
	if strings.TrimSpace(c.Oracle.Model) == "" {
		c.Oracle.Model = "gpt-4o"
	}
	if strings.TrimSpace(c.Oracle.VisionModel) == "" {
		c.Oracle.VisionModel = "gpt-4o-mini"
	}
	if c.Oracle.TimeoutSeconds <= 0 {
		c.Oracle.TimeoutSeconds = 90
	}
	if c.Oracle.MaxRetries < 0 {
		c.Oracle.MaxRetries = 0
	}
	if c.Oracle.BreakerThreshold <= 0 {
		c.Oracle.BreakerThreshold = 3
	}
	if c.Oracle.BreakerCooldownSeconds <= 0 {
		c.Oracle.BreakerCooldownSeconds = 300
	}

	if c.Market.FearGreedLimit <= 0 {
		c.Market.FearGreedLimit = 7
	}
	if c.Market.OrderBookDepth <= 0 {
		c.Market.OrderBookDepth = 5
	}
	if c.Market.DailyCandles <= 0 {
		c.Market.DailyCandles = 30
	}
	if c.Market.HourlyCandles <= 0 {
		c.Market.HourlyCandles = 24
	}

	if c.News.MaxItems <= 0 {
		c.News.MaxItems = 5
	}
	if c.News.TimeoutSeconds <= 0 {
		c.News.TimeoutSeconds = 15
	}

	if len(c.Chart.Intervals) == 0 {
		c.Chart.Intervals = []string{"1h", "1d"}
	}

	if strings.TrimSpace(c.Store.Path) == "" {
		c.Store.Path = "data/trading.db"
	}
	if strings.TrimSpace(c.Store.AuditPath) == "" {
		c.Store.AuditPath = "data/oracle_audit.db"
	}

	if len(c.Schedule.DailyTimes) == 0 {
		c.Schedule.DailyTimes = []string{"09:00", "15:00", "21:00"}
	}
	if c.Schedule.PollSeconds <= 0 {
		c.Schedule.PollSeconds = 30
	}
	if c.Schedule.CooldownSeconds <= 0 {
		c.Schedule.CooldownSeconds = 60
	}

	if c.Trading.MinOrderNotional <= 0 {
		c.Trading.MinOrderNotional = 5000
	}
	if c.Trading.ConfidenceGate <= 0 {
		c.Trading.ConfidenceGate = 70
	}
	if c.Trading.TradeLookback <= 0 {
		c.Trading.TradeLookback = 10
	}
	if c.Trading.ReflectionLookback <= 0 {
		c.Trading.ReflectionLookback = 5
	}

	if strings.TrimSpace(c.Profile.Path) == "" {
		c.Profile.Path = "configs/profile.yaml"
	}
}
