package binance

import (
	"strings"
	"time"
)

type Config struct {
	APIKey      string
	SecretKey   string
	RESTBaseURL string
	Symbol      string
	BaseAsset   string
	QuoteAsset  string
	HTTPTimeout time.Duration
}

func (c Config) withDefaults() Config {
	out := c
	out.Symbol = strings.ToUpper(strings.TrimSpace(out.Symbol))
	if out.Symbol == "" {
		out.Symbol = "BTCUSDT"
	}
	out.BaseAsset = strings.ToUpper(strings.TrimSpace(out.BaseAsset))
	if out.BaseAsset == "" {
		out.BaseAsset = "BTC"
	}
	out.QuoteAsset = strings.ToUpper(strings.TrimSpace(out.QuoteAsset))
	if out.QuoteAsset == "" {
		out.QuoteAsset = "USDT"
	}
	if out.HTTPTimeout <= 0 {
		out.HTTPTimeout = 10 * time.Second
	}
	return out
}
