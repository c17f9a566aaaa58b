package scheduler

import (
	"context"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"aurum/internal/fault"
	"aurum/internal/logger"
)

// 中文说明：
// 固定时刻表调度: 每天在配置的 HH:MM 时刻各触发一次周期,
// 可选启动后立即先跑一轮。轮询粒度与失败冷却时间可配。
// 周期内 panic 被捕获并按失败处理, 不拖垮调度循环。

// DayTime 一天内的触发时刻（本地时区）。
type DayTime struct {
	Hour   int
	Minute int
}

func (d DayTime) String() string { return fmt.Sprintf("%02d:%02d", d.Hour, d.Minute) }

// ParseDayTimes 解析 "HH:MM" 列表并按时刻升序排序。
func ParseDayTimes(raw []string) ([]DayTime, error) {
	if len(raw) == 0 {
		return nil, fmt.Errorf("时刻表不能为空")
	}
	out := make([]DayTime, 0, len(raw))
	for _, item := range raw {
		parts := strings.SplitN(strings.TrimSpace(item), ":", 2)
		if len(parts) != 2 {
			return nil, fmt.Errorf("非法时刻 %q, 期望 HH:MM", item)
		}
		hour, err := strconv.Atoi(parts[0])
		if err != nil || hour < 0 || hour > 23 {
			return nil, fmt.Errorf("非法小时 %q", item)
		}
		minute, err := strconv.Atoi(parts[1])
		if err != nil || minute < 0 || minute > 59 {
			return nil, fmt.Errorf("非法分钟 %q", item)
		}
		out = append(out, DayTime{Hour: hour, Minute: minute})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Hour != out[j].Hour {
			return out[i].Hour < out[j].Hour
		}
		return out[i].Minute < out[j].Minute
	})
	return out, nil
}

// Runner 一次周期的执行体。
type Runner func(ctx context.Context) error

type Config struct {
	Times          []DayTime
	PollInterval   time.Duration
	Cooldown       time.Duration
	RunImmediately bool
}

type DailyScheduler struct {
	cfg    Config
	runner Runner
	now    func() time.Time
}

func New(cfg Config, runner Runner) (*DailyScheduler, error) {
	if len(cfg.Times) == 0 {
		return nil, fmt.Errorf("时刻表不能为空")
	}
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = 30 * time.Second
	}
	if cfg.Cooldown <= 0 {
		cfg.Cooldown = 60 * time.Second
	}
	return &DailyScheduler{cfg: cfg, runner: runner, now: time.Now}, nil
}

// NextRun 返回严格晚于 after 的下一个触发时刻。
func (s *DailyScheduler) NextRun(after time.Time) time.Time {
	for _, t := range s.cfg.Times {
		candidate := time.Date(after.Year(), after.Month(), after.Day(), t.Hour, t.Minute, 0, 0, after.Location())
		if candidate.After(after) {
			return candidate
		}
	}
	first := s.cfg.Times[0]
	next := after.AddDate(0, 0, 1)
	return time.Date(next.Year(), next.Month(), next.Day(), first.Hour, first.Minute, 0, 0, after.Location())
}

// Run 阻塞运行调度循环直到 ctx 取消。
func (s *DailyScheduler) Run(ctx context.Context) error {
	times := make([]string, 0, len(s.cfg.Times))
	for _, t := range s.cfg.Times {
		times = append(times, t.String())
	}
	logger.Infof("调度器启动 时刻表=[%s] 轮询=%s 冷却=%s", strings.Join(times, " "), s.cfg.PollInterval, s.cfg.Cooldown)

	if s.cfg.RunImmediately {
		logger.Infof("启动即刻执行一轮")
		if err := s.runOnce(ctx); err != nil {
			return err
		}
	}

	ticker := time.NewTicker(s.cfg.PollInterval)
	defer ticker.Stop()

	next := s.NextRun(s.now())
	logger.Infof("下一轮触发时刻 %s", next.Format("2006-01-02 15:04"))

	for {
		select {
		case <-ctx.Done():
			logger.Infof("调度器退出: %v", ctx.Err())
			return ctx.Err()
		case <-ticker.C:
			now := s.now()
			if now.Before(next) {
				continue
			}
			if err := s.runOnce(ctx); err != nil {
				return err
			}
			next = s.NextRun(s.now())
			logger.Infof("下一轮触发时刻 %s", next.Format("2006-01-02 15:04"))
		}
	}
}

// runOnce 执行一轮并吸收非致命失败。返回非 nil 仅代表调度循环必须终止
// （ctx 取消, 或 runner 判定为致命的错误原样上抛）。
func (s *DailyScheduler) runOnce(ctx context.Context) error {
	err := s.safeRun(ctx)
	if err == nil {
		return nil
	}
	if ctx.Err() != nil {
		return ctx.Err()
	}
	if isFatal(err) {
		logger.Errorf("致命错误, 调度终止: %v", err)
		return err
	}
	logger.Errorf("周期失败, %s 后恢复轮询: %v", s.cfg.Cooldown, err)
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(s.cfg.Cooldown):
	}
	return nil
}

// 只有持久化失败允许终止进程, 其余错误一律冷却后继续。
func isFatal(err error) bool {
	return fault.Is(err, fault.KindPersistenceError)
}

func (s *DailyScheduler) safeRun(ctx context.Context) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("周期 panic: %v", r)
		}
	}()
	return s.runner(ctx)
}
