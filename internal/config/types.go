package config

// Config 是 Aurum 的主配置载体。
type Config struct {
	App      AppConfig      `mapstructure:"app"`
	Exchange ExchangeConfig `mapstructure:"exchange"`
	Oracle   OracleConfig   `mapstructure:"oracle"`
	Market   MarketConfig   `mapstructure:"market"`
	News     NewsConfig     `mapstructure:"news"`
	Chart    ChartConfig    `mapstructure:"chart"`
	Store    StoreConfig    `mapstructure:"store"`
	Schedule ScheduleConfig `mapstructure:"schedule"`
	Trading  TradingConfig  `mapstructure:"trading"`
	Notify   NotifyConfig   `mapstructure:"notify"`
	Profile  ProfileConfig  `mapstructure:"profile"`
}

type AppConfig struct {
	Env      string `mapstructure:"env"`
	LogLevel string `mapstructure:"log_level"`
	LogPath  string `mapstructure:"log_path"`
	LLMLog   string `mapstructure:"llm_log_path"`
	LLMDump  bool   `mapstructure:"llm_dump_payload"`
	HTTPAddr string `mapstructure:"http_addr"`
}

type ExchangeConfig struct {
	APIKey         string `mapstructure:"api_key"`
	SecretKey      string `mapstructure:"secret_key"`
	RESTBaseURL    string `mapstructure:"rest_base_url"`
	Symbol         string `mapstructure:"symbol"`
	BaseAsset      string `mapstructure:"base_asset"`
	QuoteAsset     string `mapstructure:"quote_asset"`
	TimeoutSeconds int    `mapstructure:"timeout_seconds"`
}

type OracleConfig struct {
	BaseURL                string `mapstructure:"base_url"`
	APIKey                 string `mapstructure:"api_key"`
	Model                  string `mapstructure:"model"`
	VisionModel            string `mapstructure:"vision_model"`
	TimeoutSeconds         int    `mapstructure:"timeout_seconds"`
	MaxRetries             int    `mapstructure:"max_retries"`
	BreakerThreshold       int    `mapstructure:"breaker_threshold"`
	BreakerCooldownSeconds int    `mapstructure:"breaker_cooldown_seconds"`
}

type MarketConfig struct {
	FearGreedLimit int `mapstructure:"fear_greed_limit"`
	OrderBookDepth int `mapstructure:"orderbook_depth"`
	DailyCandles   int `mapstructure:"daily_candles"`
	HourlyCandles  int `mapstructure:"hourly_candles"`
}

type NewsConfig struct {
	MaxItems       int `mapstructure:"max_items"`
	TimeoutSeconds int `mapstructure:"timeout_seconds"`
}

type ChartConfig struct {
	Enabled   bool     `mapstructure:"enabled"`
	Intervals []string `mapstructure:"intervals"`
}

type StoreConfig struct {
	Path      string `mapstructure:"path"`
	AuditPath string `mapstructure:"audit_path"`
}

type ScheduleConfig struct {
	DailyTimes      []string `mapstructure:"daily_times"`
	PollSeconds     int      `mapstructure:"poll_seconds"`
	CooldownSeconds int      `mapstructure:"cooldown_seconds"`
	RunImmediately  bool     `mapstructure:"run_immediately"`
}

type TradingConfig struct {
	MinOrderNotional   float64 `mapstructure:"min_order_notional"`
	ConfidenceGate     int     `mapstructure:"confidence_gate"`
	TradeLookback      int     `mapstructure:"trade_lookback"`
	ReflectionLookback int     `mapstructure:"reflection_lookback"`
}

type NotifyConfig struct {
	Telegram TelegramConfig `mapstructure:"telegram"`
}

type TelegramConfig struct {
	Enabled  bool   `mapstructure:"enabled"`
	BotToken string `mapstructure:"bot_token"`
	ChatID   string `mapstructure:"chat_id"`
}

type ProfileConfig struct {
	Path  string `mapstructure:"path"`
	Watch bool   `mapstructure:"watch"`
}
