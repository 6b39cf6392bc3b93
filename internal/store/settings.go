// Package store 提供数据存储层实现
// 设置存储
package store

import (
	"context"
	"database/sql"
	"fmt"
	"sync"
	"time"
)

// SettingRecord 表示数据库中的设置记录
type SettingRecord struct {
	ID int64 `json:"id"`

	// 设置标识
	Category string `json:"category"` // 分类: backend, window, logging, retention
	Key      string `json:"key"`      // 配置键

	// 设置值
	Value     string `json:"value"`      // 值 (支持 JSON)
	ValueType string `json:"value_type"` // 类型: string, int, float, bool, duration, json

	// 显示信息
	Label        string `json:"label"`         // 显示名称
	Description  string `json:"description"`   // 配置说明
	DisplayOrder int    `json:"display_order"` // 显示顺序

	// 元信息
	RequiresRestart bool `json:"requires_restart"` // 是否需要重启生效

	// 审计字段
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// SettingsStore 定义设置服务所需的存储接口
type SettingsStore interface {
	Get(ctx context.Context, category, key string) (*SettingRecord, error)
	Set(ctx context.Context, category, key, value string) error

	GetByCategory(ctx context.Context, category string) ([]*SettingRecord, error)
	GetAll(ctx context.Context) ([]*SettingRecord, error)
	BatchSet(ctx context.Context, records []*SettingRecord) error
	BatchUpdateValues(ctx context.Context, records []*SettingRecord) error // 只更新value
	DeleteByCategory(ctx context.Context, category string) error

	IsInitialized(ctx context.Context) (bool, error)
	SyncMetadata(ctx context.Context, defaults []*SettingRecord) error // 同步元数据
}

// settingColumns 读取侧统一的列清单，顺序必须与 scanSettingRow 一致。
const settingColumns = `id, category, key, value, value_type,
	COALESCE(label, '') as label,
	COALESCE(description, '') as description,
	display_order, requires_restart, created_at, updated_at`

// SQLiteSettingsStore 实现 SettingsStore 接口
type SQLiteSettingsStore struct {
	db *sql.DB
	mu sync.RWMutex
}

// NewSQLiteSettingsStore 创建新的 SQLite 设置存储
func NewSQLiteSettingsStore(db *sql.DB) *SQLiteSettingsStore {
	return &SQLiteSettingsStore{db: db}
}

// Get 获取单个设置，不存在时返回 nil
func (s *SQLiteSettingsStore) Get(ctx context.Context, category, key string) (*SettingRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	row := s.db.QueryRowContext(ctx,
		`SELECT `+settingColumns+` FROM settings WHERE category = ? AND key = ?`,
		category, key,
	)

	record, err := scanSettingRow(row.Scan)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("获取设置失败: %w", err)
	}

	return record, nil
}

// Set 设置单个值（存在则更新，不存在则插入），并刷新 updated_at
func (s *SQLiteSettingsStore) Set(ctx context.Context, category, key, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	query := `
		INSERT INTO settings (category, key, value)
		VALUES (?, ?, ?)
		ON CONFLICT(category, key) DO UPDATE SET
			value = excluded.value,
			updated_at = CURRENT_TIMESTAMP
	`

	if _, err := s.db.ExecContext(ctx, query, category, key, value); err != nil {
		return fmt.Errorf("设置值失败: %w", err)
	}

	return nil
}

// GetByCategory 获取分类下的所有设置
func (s *SQLiteSettingsStore) GetByCategory(ctx context.Context, category string) ([]*SettingRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	query := `SELECT ` + settingColumns + `
		FROM settings
		WHERE category = ?
		ORDER BY display_order ASC, key ASC`

	return s.querySettings(ctx, query, category)
}

// GetAll 获取所有设置
func (s *SQLiteSettingsStore) GetAll(ctx context.Context) ([]*SettingRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	query := `SELECT ` + settingColumns + `
		FROM settings
		ORDER BY category ASC, display_order ASC, key ASC`

	return s.querySettings(ctx, query)
}

// BatchSet 批量设置（事务），值与元数据全量覆盖
func (s *SQLiteSettingsStore) BatchSet(ctx context.Context, records []*SettingRecord) error {
	query := `
		INSERT INTO settings (category, key, value, value_type, label, description, display_order, requires_restart)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(category, key) DO UPDATE SET
			value = excluded.value,
			value_type = excluded.value_type,
			label = excluded.label,
			description = excluded.description,
			display_order = excluded.display_order,
			requires_restart = excluded.requires_restart,
			updated_at = CURRENT_TIMESTAMP
	`
	return s.execPerRecord(ctx, "设置", query, records, upsertArgs)
}

// BatchUpdateValues 批量更新值（只更新 value，保留其他元数据），并刷新 updated_at
func (s *SQLiteSettingsStore) BatchUpdateValues(ctx context.Context, records []*SettingRecord) error {
	query := `UPDATE settings SET value = ?, updated_at = CURRENT_TIMESTAMP WHERE category = ? AND key = ?`
	return s.execPerRecord(ctx, "更新", query, records, func(r *SettingRecord) []interface{} {
		return []interface{}{r.Value, r.Category, r.Key}
	})
}

// DeleteByCategory 删除分类下的所有设置
func (s *SQLiteSettingsStore) DeleteByCategory(ctx context.Context, category string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, err := s.db.ExecContext(ctx, `DELETE FROM settings WHERE category = ?`, category); err != nil {
		return fmt.Errorf("删除分类设置失败: %w", err)
	}

	return nil
}

// IsInitialized 检查设置表是否已有数据
func (s *SQLiteSettingsStore) IsInitialized(ctx context.Context) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var exists int
	err := s.db.QueryRowContext(ctx, `SELECT EXISTS(SELECT 1 FROM settings)`).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("检查设置初始化状态失败: %w", err)
	}

	return exists == 1, nil
}

// SyncMetadata 同步设置元数据（label、description等），保留用户设置的value；
// 记录不存在时插入默认值
func (s *SQLiteSettingsStore) SyncMetadata(ctx context.Context, defaults []*SettingRecord) error {
	query := `
		INSERT INTO settings (category, key, value, value_type, label, description, display_order, requires_restart)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(category, key) DO UPDATE SET
			value_type = excluded.value_type,
			label = excluded.label,
			description = excluded.description,
			display_order = excluded.display_order,
			requires_restart = excluded.requires_restart
	`
	return s.execPerRecord(ctx, "同步元数据", query, defaults, upsertArgs)
}

// execPerRecord 在单个事务里对每条记录执行同一条预编译语句。
func (s *SQLiteSettingsStore) execPerRecord(ctx context.Context, action, query string, records []*SettingRecord, args func(*SettingRecord) []interface{}) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if len(records) == 0 {
		return nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("开始事务失败: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, query)
	if err != nil {
		return fmt.Errorf("准备语句失败: %w", err)
	}
	defer stmt.Close()

	for _, record := range records {
		if _, err := stmt.ExecContext(ctx, args(record)...); err != nil {
			return fmt.Errorf("%s %s.%s 失败: %w", action, record.Category, record.Key, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("提交事务失败: %w", err)
	}

	return nil
}

func upsertArgs(r *SettingRecord) []interface{} {
	return []interface{}{
		r.Category, r.Key, r.Value, r.ValueType,
		r.Label, r.Description, r.DisplayOrder,
		boolToInt(r.RequiresRestart),
	}
}

// querySettings 执行读取查询并扫描多条记录
func (s *SQLiteSettingsStore) querySettings(ctx context.Context, query string, args ...interface{}) ([]*SettingRecord, error) {
	rows, err := queryWithBusyRetry(ctx, func() (*sql.Rows, error) {
		return s.db.QueryContext(ctx, query, args...)
	})
	if err != nil {
		return nil, fmt.Errorf("查询设置失败: %w", err)
	}
	defer rows.Close()

	var records []*SettingRecord
	for rows.Next() {
		record, err := scanSettingRow(rows.Scan)
		if err != nil {
			return nil, fmt.Errorf("扫描设置记录失败: %w", err)
		}
		records = append(records, record)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("遍历设置记录失败: %w", err)
	}

	return records, nil
}

// scanSettingRow 按 settingColumns 的列顺序扫描一条记录
func scanSettingRow(scan func(dest ...interface{}) error) (*SettingRecord, error) {
	var record SettingRecord
	var requiresRestart int
	var createdAt, updatedAt string

	err := scan(
		&record.ID, &record.Category, &record.Key, &record.Value, &record.ValueType,
		&record.Label, &record.Description, &record.DisplayOrder,
		&requiresRestart, &createdAt, &updatedAt,
	)
	if err != nil {
		return nil, err
	}

	record.RequiresRestart = requiresRestart == 1
	record.CreatedAt = parseStoredTime(createdAt)
	record.UpdatedAt = parseStoredTime(updatedAt)

	return &record, nil
}
