package app

import (
	"context"
	"fmt"
	"time"

	"aurum/internal/agent"
	"aurum/internal/ai"
	aucfg "aurum/internal/config"
	"aurum/internal/gateway/binance"
	"aurum/internal/market"
	"aurum/internal/news"
	"aurum/internal/notifier"
	"aurum/internal/pkg/circuit"
	"aurum/internal/profile"
	"aurum/internal/scheduler"
	"aurum/internal/store"
	"aurum/internal/store/oracleaudit"
	"aurum/internal/trader"
	"aurum/internal/transport/http/dashboard"
)

// 中文说明：
// 依赖装配：配置 → 各子系统实例 → App。装配按数据流顺序进行,
// 任何一步失败立即返回, 不做半初始化状态。

func Build(cfg *aucfg.Config) (*App, error) {
	if cfg == nil {
		return nil, fmt.Errorf("nil config")
	}

	source, err := binance.New(binance.Config{
		APIKey:      cfg.Exchange.APIKey,
		SecretKey:   cfg.Exchange.SecretKey,
		RESTBaseURL: cfg.Exchange.RESTBaseURL,
		Symbol:      cfg.Exchange.Symbol,
		BaseAsset:   cfg.Exchange.BaseAsset,
		QuoteAsset:  cfg.Exchange.QuoteAsset,
		HTTPTimeout: time.Duration(cfg.Exchange.TimeoutSeconds) * time.Second,
	})
	if err != nil {
		return nil, fmt.Errorf("初始化交易所网关失败: %w", err)
	}

	tradeStore, err := store.Open(cfg.Store.Path)
	if err != nil {
		return nil, fmt.Errorf("初始化交易存储失败: %w", err)
	}
	auditStore, err := oracleaudit.Open(cfg.Store.AuditPath)
	if err != nil {
		return nil, fmt.Errorf("初始化审计存储失败: %w", err)
	}

	profileMgr, err := profile.NewManager(cfg.Profile.Path)
	if err != nil {
		return nil, fmt.Errorf("加载档案失败: %w", err)
	}

	breaker := circuit.NewBreaker("oracle",
		cfg.Oracle.BreakerThreshold,
		time.Duration(cfg.Oracle.BreakerCooldownSeconds)*time.Second)
	chatClient := &ai.OpenAIChatClient{
		BaseURL:    cfg.Oracle.BaseURL,
		APIKey:     cfg.Oracle.APIKey,
		Timeout:    time.Duration(cfg.Oracle.TimeoutSeconds) * time.Second,
		MaxRetries: cfg.Oracle.MaxRetries,
	}
	oracle := ai.NewEngine(chatClient, ai.EngineOptions{
		Model:       cfg.Oracle.Model,
		VisionModel: cfg.Oracle.VisionModel,
		Timeout:     time.Duration(cfg.Oracle.TimeoutSeconds) * time.Second,
		Breaker:     breaker,
		Audit:       auditStore,
	})
	oracle.GuidanceFn = profileMgr.Guidance

	aggregator := agent.NewAggregator(
		source,
		market.NewFearGreedService(),
		news.NewScraper(time.Duration(cfg.News.TimeoutSeconds)*time.Second),
		agent.AggregatorConfig{
			Symbol:         cfg.Exchange.Symbol,
			BaseAsset:      cfg.Exchange.BaseAsset,
			QuoteAsset:     cfg.Exchange.QuoteAsset,
			DailyCandles:   cfg.Market.DailyCandles,
			HourlyCandles:  cfg.Market.HourlyCandles,
			OrderBookDepth: cfg.Market.OrderBookDepth,
			FearGreedLimit: cfg.Market.FearGreedLimit,
			NewsMaxItems:   cfg.News.MaxItems,
		})

	executor := trader.NewEngine(source, trader.Config{
		Symbol:           cfg.Exchange.Symbol,
		BaseAsset:        cfg.Exchange.BaseAsset,
		QuoteAsset:       cfg.Exchange.QuoteAsset,
		MinOrderNotional: cfg.Trading.MinOrderNotional,
		ConfidenceGate:   cfg.Trading.ConfidenceGate,
	})

	orchestrator := agent.NewOrchestrator(aggregator, oracle, executor, tradeStore,
		agent.OrchestratorConfig{
			Symbol:             cfg.Exchange.Symbol,
			TradeLookback:      cfg.Trading.TradeLookback,
			ReflectionLookback: cfg.Trading.ReflectionLookback,
			ChartEnabled:       cfg.Chart.Enabled,
			ChartIntervals:     cfg.Chart.Intervals,
		}).WithCommentary(profileMgr)

	if cfg.Notify.Telegram.Enabled {
		orchestrator.WithNotifier(notifier.NewTelegram(cfg.Notify.Telegram.BotToken, cfg.Notify.Telegram.ChatID))
	}

	times, err := scheduler.ParseDayTimes(cfg.Schedule.DailyTimes)
	if err != nil {
		return nil, fmt.Errorf("解析时刻表失败: %w", err)
	}
	sched, err := scheduler.New(scheduler.Config{
		Times:          times,
		PollInterval:   time.Duration(cfg.Schedule.PollSeconds) * time.Second,
		Cooldown:       time.Duration(cfg.Schedule.CooldownSeconds) * time.Second,
		RunImmediately: cfg.Schedule.RunImmediately,
	}, func(ctx context.Context) error {
		_, err := orchestrator.RunCycle(ctx)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("初始化调度器失败: %w", err)
	}

	var httpSrv *dashboard.Server
	if cfg.App.HTTPAddr != "" {
		httpSrv, err = dashboard.NewServer(dashboard.Config{
			Addr:   cfg.App.HTTPAddr,
			Symbol: cfg.Exchange.Symbol,
			Trades: tradeStore,
			Audit:  auditStore,
		})
		if err != nil {
			return nil, fmt.Errorf("初始化面板服务失败: %w", err)
		}
	}

	return &App{
		cfg:        cfg,
		scheduler:  sched,
		httpSrv:    httpSrv,
		profileMgr: profileMgr,
		tradeStore: tradeStore,
		auditStore: auditStore,
	}, nil
}
