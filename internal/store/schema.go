package store

import (
	"context"
	"database/sql"
	"fmt"
)

// InitSchema 创建应用所需的全部表与索引（幂等）。
func InitSchema(ctx context.Context, db *sql.DB) error {
	statements := []string{
		`CREATE TABLE IF NOT EXISTS settings (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			category TEXT NOT NULL,
			key TEXT NOT NULL,
			value TEXT NOT NULL DEFAULT '',
			value_type TEXT NOT NULL DEFAULT 'string',
			label TEXT,
			description TEXT,
			display_order INTEGER NOT NULL DEFAULT 0,
			requires_restart INTEGER NOT NULL DEFAULT 0,
			created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
			updated_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
			UNIQUE(category, key)
		)`,
		`CREATE TABLE IF NOT EXISTS status_checks (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			check_id TEXT NOT NULL UNIQUE,
			checked_at DATETIME NOT NULL,
			reachable INTEGER NOT NULL DEFAULT 0,
			healthy INTEGER NOT NULL DEFAULT 0,
			celery_ok INTEGER NOT NULL DEFAULT 0,
			jobs INTEGER NOT NULL DEFAULT 0,
			plugins INTEGER NOT NULL DEFAULT 0,
			events INTEGER NOT NULL DEFAULT 0,
			latency_ms INTEGER NOT NULL DEFAULT 0,
			source TEXT NOT NULL DEFAULT 'poll',
			error TEXT NOT NULL DEFAULT ''
		)`,
		`CREATE INDEX IF NOT EXISTS idx_status_checks_checked_at ON status_checks(checked_at)`,
	}

	for _, stmt := range statements {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("初始化数据库表失败: %w", err)
		}
	}

	return nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
