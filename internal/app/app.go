package app

import (
	"context"
	"errors"
	"fmt"

	"golang.org/x/sync/errgroup"

	aucfg "aurum/internal/config"
	"aurum/internal/logger"
	"aurum/internal/profile"
	"aurum/internal/scheduler"
	"aurum/internal/store"
	"aurum/internal/store/oracleaudit"
	"aurum/internal/transport/http/dashboard"
)

// App 应用级编排：调度循环 + 面板服务 + 档案监听, 共享同一个生命周期。
type App struct {
	cfg        *aucfg.Config
	scheduler  *scheduler.DailyScheduler
	httpSrv    *dashboard.Server
	profileMgr *profile.Manager
	tradeStore *store.Store
	auditStore *oracleaudit.Store
}

// Run 启动全部子系统, 阻塞到 ctx 取消或任一子系统致命退出。
func (a *App) Run(ctx context.Context) error {
	if a == nil || a.cfg == nil {
		return fmt.Errorf("app not initialized")
	}
	defer a.close()

	logger.InfoBlock(fmt.Sprintf("Aurum 启动 symbol=%s env=%s", a.cfg.Exchange.Symbol, a.cfg.App.Env))

	group, ctx := errgroup.WithContext(ctx)

	group.Go(func() error {
		return a.scheduler.Run(ctx)
	})

	if a.httpSrv != nil {
		group.Go(func() error {
			if err := a.httpSrv.Start(ctx); err != nil {
				return fmt.Errorf("dashboard server error: %w", err)
			}
			return nil
		})
	}

	if a.cfg.Profile.Watch {
		group.Go(func() error {
			err := a.profileMgr.Watch(ctx)
			if err != nil && ctx.Err() == nil {
				// 监听失败不致命, 档案继续以最后一次加载的内容生效
				logger.Warnf("档案监听中止: %v", err)
			}
			return nil
		})
	}

	err := group.Wait()
	if err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}

func (a *App) close() {
	if a.tradeStore != nil {
		if err := a.tradeStore.Close(); err != nil {
			logger.Warnf("交易存储关闭失败: %v", err)
		}
	}
	if a.auditStore != nil {
		if err := a.auditStore.Close(); err != nil {
			logger.Warnf("审计存储关闭失败: %v", err)
		}
	}
}
