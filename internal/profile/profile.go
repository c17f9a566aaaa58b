package profile

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"gopkg.in/yaml.v3"

	"aurum/internal/logger"
)

// 中文说明：
// 运行期档案: 人工投喂的市场评论与策略引导文本。
// 文件变化通过 fsnotify 热加载, 生效无需重启进程。

// Profile 是档案文件的内容。两个字段都允许为空。
type Profile struct {
	// Guidance 附加到决策提示词末尾的策略引导。
	Guidance string `yaml:"guidance"`
	// Commentary 人工市场评论原文, 周期内先经模型摘要再注入上下文。
	Commentary string `yaml:"commentary"`
}

func (p Profile) Empty() bool {
	return strings.TrimSpace(p.Guidance) == "" && strings.TrimSpace(p.Commentary) == ""
}

// Manager 持有当前档案并监听文件变化。
type Manager struct {
	path string

	mu      sync.RWMutex
	current Profile
}

// NewManager 加载初始档案。文件不存在不算错误, 档案按空处理。
func NewManager(path string) (*Manager, error) {
	m := &Manager{path: path}
	if err := m.reload(); err != nil {
		if !os.IsNotExist(err) {
			return nil, err
		}
		logger.Infof("档案文件 %s 不存在, 按空档案运行", path)
	}
	return m, nil
}

func (m *Manager) Current() Profile {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.current
}

// Guidance 供 ai.Engine 作为 GuidanceFn 直接挂载。
func (m *Manager) Guidance() string {
	return m.Current().Guidance
}

// Commentary 供编排器在 GATHER 阶段读取评论原文。
func (m *Manager) Commentary() string {
	return strings.TrimSpace(m.Current().Commentary)
}

func (m *Manager) reload() error {
	data, err := os.ReadFile(m.path)
	if err != nil {
		return err
	}
	var p Profile
	if err := yaml.Unmarshal(data, &p); err != nil {
		return err
	}
	m.mu.Lock()
	m.current = p
	m.mu.Unlock()
	return nil
}

// Watch 阻塞监听档案目录直到 ctx 取消。监听目录而非文件本身,
// 以兼容编辑器的原子改名写入。
func (m *Manager) Watch(ctx context.Context) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer watcher.Close()

	dir := filepath.Dir(m.path)
	if err := watcher.Add(dir); err != nil {
		return err
	}
	target := filepath.Clean(m.path)
	logger.Infof("开始监听档案 %s", target)

	// 去抖: 编辑器保存常触发多个事件
	var timer *time.Timer
	defer func() {
		if timer != nil {
			timer.Stop()
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(event.Name) != target {
				continue
			}
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) {
				continue
			}
			if timer != nil {
				timer.Stop()
			}
			timer = time.AfterFunc(200*time.Millisecond, func() {
				if err := m.reload(); err != nil {
					logger.Warnf("档案重载失败: %v", err)
					return
				}
				logger.Infof("档案已重载")
			})
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			logger.Warnf("档案监听错误: %v", err)
		}
	}
}
