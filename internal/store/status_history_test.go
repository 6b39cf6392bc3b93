package store

import (
	"context"
	"database/sql"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"
)

// createTestDB 创建测试用的 SQLite 数据库
func createTestDB(t *testing.T) (*sql.DB, func()) {
	t.Helper()

	// 创建临时目录
	tmpDir, err := os.MkdirTemp("", "status_store_test_*")
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

	if err := InitSchema(context.Background(), db); err != nil {
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

func insertCheck(t *testing.T, s *SQLiteStatusHistoryStore, checkedAt time.Time, reachable bool, latency int64) *StatusCheckRecord {
	t.Helper()
	record := &StatusCheckRecord{
		CheckID:   uuid.NewString(),
		CheckedAt: checkedAt,
		Reachable: reachable,
		Healthy:   reachable,
		CeleryOK:  reachable,
		Jobs:      3,
		Plugins:   5,
		Events:    12,
		LatencyMS: latency,
		Source:    "poll",
	}
	if !reachable {
		record.Error = "Backend is not running"
		record.Jobs, record.Plugins, record.Events = 0, 0, 0
	}
	if err := s.Insert(context.Background(), record); err != nil {
		t.Fatalf("写入检查记录失败: %v", err)
	}
	return record
}

func TestStatusHistoryInsertAndListRecent(t *testing.T) {
	db, cleanup := createTestDB(t)
	defer cleanup()
	s := NewSQLiteStatusHistoryStore(db)

	now := time.Now()
	for i := 0; i < 5; i++ {
		insertCheck(t, s, now.Add(time.Duration(i)*time.Minute), true, int64(10+i))
	}

	records, err := s.ListRecent(context.Background(), 3)
	if err != nil {
		t.Fatalf("查询失败: %v", err)
	}
	if len(records) != 3 {
		t.Fatalf("应返回 3 条记录: got %d", len(records))
	}
	// 时间倒序，最新在前；读回的时间必须是真实值，不能是零值。
	for i, r := range records {
		if r.CheckedAt.IsZero() {
			t.Fatalf("第 %d 条记录的 checked_at 读回为零值", i)
		}
	}
	if !records[0].CheckedAt.After(records[2].CheckedAt) {
		t.Errorf("记录应按时间倒序: first=%v last=%v", records[0].CheckedAt, records[2].CheckedAt)
	}
	if records[0].Jobs != 3 || records[0].Plugins != 5 || records[0].Events != 12 {
		t.Errorf("计数字段读回错误: %+v", records[0])
	}
	if !records[0].Reachable || !records[0].Healthy {
		t.Errorf("布尔字段读回错误: %+v", records[0])
	}
}

func TestStatusHistoryInsertRejectsEmptyCheckID(t *testing.T) {
	db, cleanup := createTestDB(t)
	defer cleanup()
	s := NewSQLiteStatusHistoryStore(db)

	err := s.Insert(context.Background(), &StatusCheckRecord{})
	if err == nil {
		t.Fatal("空 check_id 应该报错")
	}
}

func TestStatusHistoryLatest(t *testing.T) {
	db, cleanup := createTestDB(t)
	defer cleanup()
	s := NewSQLiteStatusHistoryStore(db)

	latest, err := s.Latest(context.Background())
	if err != nil {
		t.Fatalf("空表查询最新记录失败: %v", err)
	}
	if latest != nil {
		t.Fatal("空表应返回 nil")
	}

	now := time.Now()
	insertCheck(t, s, now.Add(-time.Hour), false, 0)
	want := insertCheck(t, s, now, true, 15)

	latest, err = s.Latest(context.Background())
	if err != nil {
		t.Fatalf("查询最新记录失败: %v", err)
	}
	if latest == nil || latest.CheckID != want.CheckID {
		t.Fatalf("最新记录不正确: %+v", latest)
	}
}

func TestStatusHistorySummary(t *testing.T) {
	db, cleanup := createTestDB(t)
	defer cleanup()
	s := NewSQLiteStatusHistoryStore(db)

	now := time.Now()
	// 窗口内：3 可达 + 1 不可达；窗口外的旧记录不应计入。
	insertCheck(t, s, now.Add(-48*time.Hour), false, 0)
	for i := 0; i < 3; i++ {
		insertCheck(t, s, now.Add(-time.Duration(i+1)*time.Minute), true, 20)
	}
	insertCheck(t, s, now.Add(-10*time.Minute), false, 0)

	summary, err := s.Summary(context.Background(), 24*time.Hour)
	if err != nil {
		t.Fatalf("统计失败: %v", err)
	}
	if summary.TotalChecks != 4 {
		t.Fatalf("窗口内应有 4 条记录: got %d", summary.TotalChecks)
	}
	if summary.Reachable != 3 {
		t.Errorf("可达数错误: %d", summary.Reachable)
	}
	if summary.Availability != 75 {
		t.Errorf("可用率应为 75: %v", summary.Availability)
	}
	if summary.AvgLatencyMS != 20 {
		t.Errorf("平均延迟只应统计可达记录: %v", summary.AvgLatencyMS)
	}
}

func TestStatusHistoryPurgeOlderThan(t *testing.T) {
	db, cleanup := createTestDB(t)
	defer cleanup()
	s := NewSQLiteStatusHistoryStore(db)

	now := time.Now()
	insertCheck(t, s, now.Add(-72*time.Hour), true, 10)
	insertCheck(t, s, now.Add(-48*time.Hour), true, 10)
	kept := insertCheck(t, s, now, true, 10)

	deleted, err := s.PurgeOlderThan(context.Background(), now.Add(-24*time.Hour))
	if err != nil {
		t.Fatalf("清理失败: %v", err)
	}
	if deleted != 2 {
		t.Fatalf("应删除 2 条旧记录: got %d", deleted)
	}

	count, err := s.Count(context.Background())
	if err != nil {
		t.Fatalf("统计失败: %v", err)
	}
	if count != 1 {
		t.Fatalf("应只保留 1 条: got %d", count)
	}

	latest, err := s.Latest(context.Background())
	if err != nil {
		t.Fatalf("查询失败: %v", err)
	}
	if latest.CheckID != kept.CheckID {
		t.Errorf("保留的记录不正确: %+v", latest)
	}
}

func TestStatusHistoryDuplicateCheckID(t *testing.T) {
	db, cleanup := createTestDB(t)
	defer cleanup()
	s := NewSQLiteStatusHistoryStore(db)

	record := insertCheck(t, s, time.Now(), true, 10)
	dup := *record
	dup.ID = 0
	if err := s.Insert(context.Background(), &dup); err == nil {
		t.Fatal("重复 check_id 应该报错")
	}
}

func TestStatusHistoryCheckedAtRoundTrip(t *testing.T) {
	db, cleanup := createTestDB(t)
	defer cleanup()
	s := NewSQLiteStatusHistoryStore(db)

	// 写入一个毫秒精度的时间，经数据库读回后必须保持同一时刻。
	want := time.Date(2026, 8, 23, 10, 30, 45, 123000000, time.UTC)
	insertCheck(t, s, want, true, 10)

	latest, err := s.Latest(context.Background())
	if err != nil {
		t.Fatalf("查询失败: %v", err)
	}
	if latest.CheckedAt.IsZero() {
		t.Fatal("checked_at 读回为零值")
	}
	if !latest.CheckedAt.Equal(want) {
		t.Errorf("checked_at 读回不一致: want=%v got=%v", want, latest.CheckedAt)
	}
}
