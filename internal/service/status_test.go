package service

import (
	"context"
	"database/sql"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"reveris-desktop/internal/backend"
	"reveris-desktop/internal/store"
)

// createServiceTestDB 创建测试用的 SQLite 数据库
func createServiceTestDB(t *testing.T) (*sql.DB, func()) {
	t.Helper()

	tmpDir, err := os.MkdirTemp("", "service_test_*")
	if err != nil {
		t.Fatalf("创建临时目录失败: %v", err)
	}

	dbPath := filepath.Join(tmpDir, "test.db")
	db, err := sql.Open("sqlite", dbPath+"?_journal_mode=WAL&_synchronous=NORMAL")
	if err != nil {
		os.RemoveAll(tmpDir)
		t.Fatalf("打开数据库失败: %v", err)
	}
	db.SetMaxOpenConns(1)

	if err := store.InitSchema(context.Background(), db); err != nil {
		db.Close()
		os.RemoveAll(tmpDir)
		t.Fatalf("初始化数据库表失败: %v", err)
	}

	cleanup := func() {
		db.Close()
		os.RemoveAll(tmpDir)
	}
	return db, cleanup
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func checkResult(reachable bool, at time.Time) backend.CheckResult {
	res := backend.CheckResult{
		CheckID: uuid.NewString(),
		Time:    at,
		Source:  "poll",
	}
	if reachable {
		res.Status = backend.Status{
			Reachable: true,
			Healthy:   true,
			CeleryOK:  true,
			Counts:    backend.StatusCounts{Jobs: 1, Plugins: 2, Events: 3},
			LatencyMS: 12,
		}
	} else {
		res.Status = backend.Status{Error: backend.StatusNotRunning}
	}
	return res
}

func TestStatusServiceRecordAndQuery(t *testing.T) {
	db, cleanup := createServiceTestDB(t)
	defer cleanup()
	svc := NewStatusService(store.NewSQLiteStatusHistoryStore(db), discardLogger())
	ctx := context.Background()

	now := time.Now()
	if err := svc.RecordCheck(ctx, checkResult(true, now.Add(-time.Minute))); err != nil {
		t.Fatalf("落库失败: %v", err)
	}
	if err := svc.RecordCheck(ctx, checkResult(false, now)); err != nil {
		t.Fatalf("落库失败: %v", err)
	}

	latest, err := svc.LatestCheck(ctx)
	if err != nil {
		t.Fatalf("查询最新记录失败: %v", err)
	}
	if latest == nil || latest.Reachable {
		t.Fatalf("最新记录应为不可达: %+v", latest)
	}
	if latest.Error != backend.StatusNotRunning {
		t.Errorf("错误信息未落库: %q", latest.Error)
	}

	records, err := svc.RecentChecks(ctx, 10)
	if err != nil {
		t.Fatalf("查询历史失败: %v", err)
	}
	if len(records) != 2 {
		t.Fatalf("应有 2 条记录: got %d", len(records))
	}
	if records[1].Jobs != 1 || records[1].Plugins != 2 || records[1].Events != 3 {
		t.Errorf("计数字段落库错误: %+v", records[1])
	}

	summary, err := svc.Summary(ctx, time.Hour)
	if err != nil {
		t.Fatalf("汇总失败: %v", err)
	}
	if summary.TotalChecks != 2 || summary.Reachable != 1 {
		t.Errorf("汇总不正确: %+v", summary)
	}
}

func TestStatusServicePurge(t *testing.T) {
	db, cleanup := createServiceTestDB(t)
	defer cleanup()
	svc := NewStatusService(store.NewSQLiteStatusHistoryStore(db), discardLogger())
	ctx := context.Background()

	now := time.Now()
	if err := svc.RecordCheck(ctx, checkResult(true, now.AddDate(0, 0, -40))); err != nil {
		t.Fatalf("落库失败: %v", err)
	}
	if err := svc.RecordCheck(ctx, checkResult(true, now)); err != nil {
		t.Fatalf("落库失败: %v", err)
	}

	// retention_days = 0 表示永久保留，不删任何东西。
	deleted, err := svc.Purge(ctx, 0)
	if err != nil {
		t.Fatalf("清理失败: %v", err)
	}
	if deleted != 0 {
		t.Fatalf("永久保留不应删除记录: %d", deleted)
	}

	deleted, err = svc.Purge(ctx, 30)
	if err != nil {
		t.Fatalf("清理失败: %v", err)
	}
	if deleted != 1 {
		t.Fatalf("应删除 1 条过期记录: got %d", deleted)
	}

	records, err := svc.RecentChecks(ctx, 10)
	if err != nil {
		t.Fatalf("查询失败: %v", err)
	}
	if len(records) != 1 {
		t.Fatalf("应保留 1 条记录: got %d", len(records))
	}
}
