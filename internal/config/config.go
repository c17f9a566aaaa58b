package config

import (
	"fmt"
	"strings"

	"github.com/mitchellh/mapstructure"
	"github.com/spf13/viper"
)

// Load 读取 YAML 配置并叠加环境变量（AURUM_ 前缀）。
// 凭证类字段只允许来自环境变量，YAML 中出现也会被环境覆盖。
func Load(path string) (*Config, error) {
	v := viper.New()
	v.SetConfigType("yaml")
	if strings.TrimSpace(path) != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("reading config file failed (%s): %w", path, err)
		}
	}

	v.SetEnvPrefix("AURUM")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	bindCredentialEnvs(v)

	var cfg Config
	if err := v.Unmarshal(&cfg, func(dc *mapstructure.DecoderConfig) {
		dc.TagName = "mapstructure"
		dc.WeaklyTypedInput = true
	}); err != nil {
		return nil, fmt.Errorf("parsing config failed: %w", err)
	}
	cfg.applyDefaults()
	if err := validate(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// bindCredentialEnvs 绑定常见的凭证环境变量别名，便于复用交易所/模型侧的
// 既有命名（BINANCE_API_KEY / OPENAI_API_KEY 等）。
func bindCredentialEnvs(v *viper.Viper) {
	_ = v.BindEnv("exchange.api_key", "AURUM_EXCHANGE_API_KEY", "BINANCE_API_KEY")
	_ = v.BindEnv("exchange.secret_key", "AURUM_EXCHANGE_SECRET_KEY", "BINANCE_SECRET_KEY")
	_ = v.BindEnv("oracle.api_key", "AURUM_ORACLE_API_KEY", "OPENAI_API_KEY")
	_ = v.BindEnv("notify.telegram.bot_token", "AURUM_TELEGRAM_BOT_TOKEN")
	_ = v.BindEnv("notify.telegram.chat_id", "AURUM_TELEGRAM_CHAT_ID")
}
