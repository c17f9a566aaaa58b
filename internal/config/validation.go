package config

import (
	"fmt"
	"strings"
	"time"
)

// validate 做启动前的硬校验：缺少必需凭证直接拒绝启动。
func validate(c *Config) error {
	if c == nil {
		return fmt.Errorf("nil config")
	}
	var missing []string
	if strings.TrimSpace(c.Exchange.APIKey) == "" {
		missing = append(missing, "exchange.api_key")
	}
	if strings.TrimSpace(c.Exchange.SecretKey) == "" {
		missing = append(missing, "exchange.secret_key")
	}
	if strings.TrimSpace(c.Oracle.APIKey) == "" {
		missing = append(missing, "oracle.api_key")
	}
	if len(missing) > 0 {
		return fmt.Errorf("缺少必需凭证: %s", strings.Join(missing, ", "))
	}

	for _, at := range c.Schedule.DailyTimes {
		if _, err := time.Parse("15:04", strings.TrimSpace(at)); err != nil {
			return fmt.Errorf("schedule.daily_times 含非法时间 %q（期望 HH:MM）", at)
		}
	}
	if c.Trading.ConfidenceGate >= 100 {
		return fmt.Errorf("trading.confidence_gate 必须 <100")
	}
	if c.Notify.Telegram.Enabled {
		if strings.TrimSpace(c.Notify.Telegram.BotToken) == "" || strings.TrimSpace(c.Notify.Telegram.ChatID) == "" {
			return fmt.Errorf("telegram 已启用但缺少 bot_token/chat_id")
		}
	}
	return nil
}
