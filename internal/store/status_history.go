// 状态检查历史存储
package store

import (
	"context"
	"database/sql"
	"fmt"
	"sync"
	"time"
)

// StatusCheckRecord 表示数据库中的一次后端状态检查。
type StatusCheckRecord struct {
	ID int64 `json:"id"`

	// CheckID 全局唯一检查 id（uuid），与前端事件对账用。
	CheckID   string    `json:"check_id"`
	CheckedAt time.Time `json:"checked_at"`

	// 探测结果
	Reachable bool `json:"reachable"`
	Healthy   bool `json:"healthy"`
	CeleryOK  bool `json:"celery_ok"`

	// 后端资源计数（不可达时为 0）
	Jobs    int `json:"jobs"`
	Plugins int `json:"plugins"`
	Events  int `json:"events"`

	LatencyMS int64  `json:"latency_ms"`
	Source    string `json:"source"` // poll / manual
	Error     string `json:"error"`
}

// StatusSummary 一段时间窗口内的可用性汇总。
type StatusSummary struct {
	WindowStart  time.Time `json:"window_start"`
	WindowEnd    time.Time `json:"window_end"`
	TotalChecks  int       `json:"total_checks"`
	Reachable    int       `json:"reachable"`
	Availability float64   `json:"availability"` // 0-100
	AvgLatencyMS float64   `json:"avg_latency_ms"`
}

// StatusHistoryStore 定义状态检查历史存储接口。
type StatusHistoryStore interface {
	Insert(ctx context.Context, record *StatusCheckRecord) error
	ListRecent(ctx context.Context, limit int) ([]*StatusCheckRecord, error)
	Latest(ctx context.Context) (*StatusCheckRecord, error)
	Summary(ctx context.Context, window time.Duration) (*StatusSummary, error)
	PurgeOlderThan(ctx context.Context, cutoff time.Time) (int64, error)
	Count(ctx context.Context) (int, error)
}

// SQLiteStatusHistoryStore 实现 StatusHistoryStore 接口。
type SQLiteStatusHistoryStore struct {
	db *sql.DB
	mu sync.RWMutex
}

// NewSQLiteStatusHistoryStore 创建新的 SQLite 状态历史存储。
func NewSQLiteStatusHistoryStore(db *sql.DB) *SQLiteStatusHistoryStore {
	return &SQLiteStatusHistoryStore{db: db}
}

// Insert 写入一条检查记录。
func (s *SQLiteStatusHistoryStore) Insert(ctx context.Context, record *StatusCheckRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if record.CheckID == "" {
		return fmt.Errorf("check_id 不能为空")
	}
	if record.CheckedAt.IsZero() {
		record.CheckedAt = time.Now()
	}
	if record.Source == "" {
		record.Source = "poll"
	}

	query := `
		INSERT INTO status_checks
			(check_id, checked_at, reachable, healthy, celery_ok, jobs, plugins, events, latency_ms, source, error)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	_, err := s.db.ExecContext(ctx, query,
		record.CheckID,
		record.CheckedAt.UTC().Format("2006-01-02 15:04:05.000"),
		boolToInt(record.Reachable), boolToInt(record.Healthy), boolToInt(record.CeleryOK),
		record.Jobs, record.Plugins, record.Events,
		record.LatencyMS, record.Source, record.Error,
	)
	if err != nil {
		return fmt.Errorf("写入状态检查记录失败: %w", err)
	}

	return nil
}

// ListRecent 返回最近的 limit 条记录（时间倒序）。limit <= 0 时取 100。
func (s *SQLiteStatusHistoryStore) ListRecent(ctx context.Context, limit int) ([]*StatusCheckRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if limit <= 0 {
		limit = 100
	}

	query := `
		SELECT id, check_id, checked_at, reachable, healthy, celery_ok,
			jobs, plugins, events, latency_ms, source, error
		FROM status_checks
		ORDER BY checked_at DESC, id DESC
		LIMIT ?
	`

	rows, err := queryWithBusyRetry(ctx, func() (*sql.Rows, error) {
		return s.db.QueryContext(ctx, query, limit)
	})
	if err != nil {
		return nil, fmt.Errorf("查询状态检查记录失败: %w", err)
	}
	defer rows.Close()

	return scanStatusChecks(rows)
}

// Latest 返回最新一条记录，表为空时返回 nil。
func (s *SQLiteStatusHistoryStore) Latest(ctx context.Context) (*StatusCheckRecord, error) {
	records, err := s.ListRecent(ctx, 1)
	if err != nil {
		return nil, err
	}
	if len(records) == 0 {
		return nil, nil
	}
	return records[0], nil
}

// Summary 统计最近 window 时间内的可用性。window <= 0 时取 24h。
func (s *SQLiteStatusHistoryStore) Summary(ctx context.Context, window time.Duration) (*StatusSummary, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if window <= 0 {
		window = 24 * time.Hour
	}

	now := time.Now()
	start := now.Add(-window)

	query := `
		SELECT COUNT(*),
			COALESCE(SUM(reachable), 0),
			COALESCE(AVG(CASE WHEN reachable = 1 THEN latency_ms END), 0)
		FROM status_checks
		WHERE checked_at >= ?
	`

	summary := &StatusSummary{
		WindowStart: start,
		WindowEnd:   now,
	}
	err := s.db.QueryRowContext(ctx, query, start.UTC().Format("2006-01-02 15:04:05.000")).Scan(
		&summary.TotalChecks, &summary.Reachable, &summary.AvgLatencyMS,
	)
	if err != nil {
		return nil, fmt.Errorf("统计状态检查失败: %w", err)
	}

	if summary.TotalChecks > 0 {
		summary.Availability = float64(summary.Reachable) / float64(summary.TotalChecks) * 100
	}

	return summary, nil
}

// PurgeOlderThan 删除 cutoff 之前的记录，返回删除条数。
func (s *SQLiteStatusHistoryStore) PurgeOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	result, err := s.db.ExecContext(ctx,
		`DELETE FROM status_checks WHERE checked_at < ?`,
		cutoff.UTC().Format("2006-01-02 15:04:05.000"),
	)
	if err != nil {
		return 0, fmt.Errorf("清理状态检查记录失败: %w", err)
	}

	deleted, _ := result.RowsAffected()
	return deleted, nil
}

// Count 返回记录总数。
func (s *SQLiteStatusHistoryStore) Count(ctx context.Context) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var count int
	err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM status_checks").Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("获取状态检查数量失败: %w", err)
	}

	return count, nil
}

// scanStatusChecks 扫描多条检查记录。
func scanStatusChecks(rows *sql.Rows) ([]*StatusCheckRecord, error) {
	var records []*StatusCheckRecord
	for rows.Next() {
		var record StatusCheckRecord
		var reachable, healthy, celeryOK int
		var checkedAt string

		err := rows.Scan(
			&record.ID, &record.CheckID, &checkedAt,
			&reachable, &healthy, &celeryOK,
			&record.Jobs, &record.Plugins, &record.Events,
			&record.LatencyMS, &record.Source, &record.Error,
		)
		if err != nil {
			return nil, fmt.Errorf("扫描状态检查记录失败: %w", err)
		}

		record.Reachable = reachable == 1
		record.Healthy = healthy == 1
		record.CeleryOK = celeryOK == 1
		record.CheckedAt = parseStoredTime(checkedAt)

		records = append(records, &record)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("遍历状态检查记录失败: %w", err)
	}

	return records, nil
}
