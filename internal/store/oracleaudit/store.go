package oracleaudit

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"gorm.io/datatypes"
	_ "modernc.org/sqlite"

	"aurum/internal/logger"
)

// 中文说明：
// 推理调用审计日志：每次决策/复盘调用的原始载荷，无论是否通过 schema 校验
// 都追加一条，便于事后排查被拒绝的输出。与交易存储分库，审计写失败不影响周期。

const (
	StageDecision   = "decision"
	StageReflection = "reflection"
	StageVision     = "vision"
	StageCommentary = "commentary"
)

type Record struct {
	ID        int64          `json:"id"`
	CycleID   string         `json:"cycle_id"`
	Timestamp int64          `json:"ts"`
	Stage     string         `json:"stage"`
	Model     string         `json:"model"`
	Payload   datatypes.JSON `json:"payload"`
	Accepted  bool           `json:"accepted"`
	Reject    string         `json:"reject_reason,omitempty"`
}

type Store struct {
	mu   sync.Mutex
	db   *sql.DB
	path string
}

func Open(path string) (*Store, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		return nil, fmt.Errorf("oracle audit: 路径不能为空")
	}
	if dir := filepath.Dir(path); dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, err
		}
	}
	db, err := sql.Open("sqlite", fmt.Sprintf("file:%s?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)", path))
	if err != nil {
		return nil, err
	}
	const ddl = `
CREATE TABLE IF NOT EXISTS oracle_audit (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	cycle_id TEXT NOT NULL,
	ts INTEGER NOT NULL,
	stage TEXT NOT NULL,
	model TEXT NOT NULL,
	payload TEXT NOT NULL,
	accepted INTEGER NOT NULL,
	reject_reason TEXT NOT NULL DEFAULT ''
);
CREATE INDEX IF NOT EXISTS idx_oracle_audit_ts ON oracle_audit(ts);
`
	if _, err := db.Exec(ddl); err != nil {
		db.Close()
		return nil, err
	}
	return &Store{db: db, path: path}, nil
}

func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// Append 追加一条审计记录。失败只记日志，不向上传播。
func (s *Store) Append(ctx context.Context, rec Record) {
	if s == nil || s.db == nil {
		return
	}
	if rec.Timestamp == 0 {
		rec.Timestamp = time.Now().Unix()
	}
	payload := rec.Payload
	if len(payload) == 0 {
		payload = datatypes.JSON([]byte("null"))
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO oracle_audit (cycle_id, ts, stage, model, payload, accepted, reject_reason)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		rec.CycleID, rec.Timestamp, rec.Stage, rec.Model, string(payload), boolToInt(rec.Accepted), rec.Reject)
	if err != nil {
		logger.Warnf("审计日志写入失败 stage=%s err=%v", rec.Stage, err)
	}
}

// Recent 按时间倒序返回最近 limit 条。
func (s *Store) Recent(ctx context.Context, limit int) ([]Record, error) {
	if s == nil || s.db == nil {
		return nil, fmt.Errorf("oracle audit 未初始化")
	}
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, cycle_id, ts, stage, model, payload, accepted, reject_reason
		 FROM oracle_audit ORDER BY ts DESC, id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []Record
	for rows.Next() {
		var rec Record
		var payload string
		var accepted int
		if err := rows.Scan(&rec.ID, &rec.CycleID, &rec.Timestamp, &rec.Stage, &rec.Model,
			&payload, &accepted, &rec.Reject); err != nil {
			return nil, err
		}
		rec.Payload = datatypes.JSON([]byte(payload))
		rec.Accepted = accepted != 0
		out = append(out, rec)
	}
	return out, rows.Err()
}

func boolToInt(v bool) int {
	if v {
		return 1
	}
	return 0
}
