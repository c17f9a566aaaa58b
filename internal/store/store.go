package store

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"aurum/internal/fault"
)

// 中文说明：
// 交易与复盘记录的唯一持久化入口。契约是追加式：不暴露任何更新/删除操作，
// 每条插入独立落盘（单行事务），崩溃不会让两张表互相污染。

// Store 基于 Gorm + SQLite。
type Store struct {
	db *gorm.DB
}

// Open 打开（必要时创建）存储文件并迁移两张表。存储介质不可达时返回
// PersistenceError，调用方可视为致命。
func Open(path string) (*Store, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		return nil, fault.PersistenceError("open", fmt.Errorf("存储路径不能为空"))
	}
	if err := ensureDir(path); err != nil {
		return nil, fault.PersistenceError("open", err)
	}
	dsn := fmt.Sprintf("file:%s?_busy_timeout=5000&_journal_mode=WAL", path)
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	if err != nil {
		return nil, fault.PersistenceError("open", err)
	}
	if err := db.AutoMigrate(&TradeRecord{}, &ReflectionRecord{}); err != nil {
		return nil, fault.PersistenceError("migrate", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		return nil, fault.PersistenceError("open", err)
	}
	// 单线程周期 + HTTP 只读查询，两个连接足够
	sqlDB.SetMaxOpenConns(2)
	sqlDB.SetMaxIdleConns(2)
	return &Store{db: db}, nil
}

func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// RecordTrade 插入一行交易记录并返回分配的 id。时间戳为零值时取当前时间。
func (s *Store) RecordTrade(ctx context.Context, rec TradeRecord) (int64, error) {
	if s == nil || s.db == nil {
		return 0, fault.PersistenceError("record_trade", fmt.Errorf("store 未初始化"))
	}
	rec.ID = 0
	if rec.Timestamp.IsZero() {
		rec.Timestamp = time.Now()
	}
	if err := s.db.WithContext(ctx).Create(&rec).Error; err != nil {
		return 0, fault.PersistenceError("record_trade", err)
	}
	return rec.ID, nil
}

// AddReflection 插入一行复盘记录。trading_id 不存在时拒绝写入。
func (s *Store) AddReflection(ctx context.Context, rec ReflectionRecord) error {
	if s == nil || s.db == nil {
		return fault.PersistenceError("add_reflection", fmt.Errorf("store 未初始化"))
	}
	var count int64
	if err := s.db.WithContext(ctx).Model(&TradeRecord{}).
		Where("id = ?", rec.TradingID).Count(&count).Error; err != nil {
		return fault.PersistenceError("add_reflection", err)
	}
	if count == 0 {
		return fault.PersistenceError("add_reflection",
			fmt.Errorf("trading_id=%d 不存在", rec.TradingID))
	}
	rec.ID = 0
	if rec.ReflectionDate.IsZero() {
		rec.ReflectionDate = time.Now()
	}
	if err := s.db.WithContext(ctx).Create(&rec).Error; err != nil {
		return fault.PersistenceError("add_reflection", err)
	}
	return nil
}

// GetRecentTrades 按时间倒序返回最近 limit 条交易记录；limit=0 返回空。
func (s *Store) GetRecentTrades(ctx context.Context, limit int) ([]TradeRecord, error) {
	if s == nil || s.db == nil {
		return nil, fault.PersistenceError("get_recent_trades", fmt.Errorf("store 未初始化"))
	}
	if limit < 0 {
		return nil, fault.PersistenceError("get_recent_trades", fmt.Errorf("limit 必须 >=0"))
	}
	if limit == 0 {
		return []TradeRecord{}, nil
	}
	var out []TradeRecord
	if err := s.db.WithContext(ctx).
		Order("timestamp DESC").Order("id DESC").
		Limit(limit).Find(&out).Error; err != nil {
		return nil, fault.PersistenceError("get_recent_trades", err)
	}
	return out, nil
}

// GetReflectionHistory 按复盘时间倒序返回最近 limit 条；limit=0 返回空。
func (s *Store) GetReflectionHistory(ctx context.Context, limit int) ([]ReflectionRecord, error) {
	if s == nil || s.db == nil {
		return nil, fault.PersistenceError("get_reflection_history", fmt.Errorf("store 未初始化"))
	}
	if limit < 0 {
		return nil, fault.PersistenceError("get_reflection_history", fmt.Errorf("limit 必须 >=0"))
	}
	if limit == 0 {
		return []ReflectionRecord{}, nil
	}
	var out []ReflectionRecord
	if err := s.db.WithContext(ctx).
		Order("reflection_date DESC").Order("id DESC").
		Limit(limit).Find(&out).Error; err != nil {
		return nil, fault.PersistenceError("get_reflection_history", err)
	}
	return out, nil
}

func ensureDir(path string) error {
	dir := filepath.Dir(path)
	if dir == "." || dir == "" {
		return nil
	}
	return os.MkdirAll(dir, 0o755)
}
