package service

import (
	"context"
	"testing"
	"time"

	"reveris-desktop/internal/store"
)

func newTestSettingsService(t *testing.T) (*SettingsService, func()) {
	t.Helper()
	db, cleanup := createServiceTestDB(t)
	svc := NewSettingsService(store.NewSQLiteSettingsStore(db))
	return svc, cleanup
}

func TestSettingsServiceInitDefaultsAndTypedGetters(t *testing.T) {
	svc, cleanup := newTestSettingsService(t)
	defer cleanup()
	ctx := context.Background()

	if err := svc.InitDefaults(ctx); err != nil {
		t.Fatalf("初始化默认设置失败: %v", err)
	}

	if got := svc.GetString(ctx, CategoryBackend, "base_url", ""); got != "http://localhost:8000" {
		t.Errorf("base_url 默认值错误: %q", got)
	}
	if got := svc.GetDuration(ctx, CategoryBackend, "poll_interval", 0); got != 30*time.Second {
		t.Errorf("poll_interval 默认值错误: %v", got)
	}
	if !svc.GetBool(ctx, CategoryWindow, "hide_on_close", false) {
		t.Error("hide_on_close 默认应为 true")
	}
	if got := svc.GetInt(ctx, CategoryRetention, "retention_days", 0); got != 30 {
		t.Errorf("retention_days 默认值错误: %d", got)
	}
}

func TestSettingsServiceGettersFallBackOnMissingOrInvalid(t *testing.T) {
	svc, cleanup := newTestSettingsService(t)
	defer cleanup()
	ctx := context.Background()

	// 不存在的 key 返回默认值。
	if got := svc.GetInt(ctx, CategoryBackend, "missing", 42); got != 42 {
		t.Errorf("缺失设置应回退默认值: %d", got)
	}
	if got := svc.GetDuration(ctx, CategoryBackend, "missing", 5*time.Second); got != 5*time.Second {
		t.Errorf("缺失设置应回退默认值: %v", got)
	}

	// 非法值也回退默认值。
	if err := svc.Set(ctx, CategoryBackend, "poll_interval", "not-a-duration"); err != nil {
		t.Fatalf("写入失败: %v", err)
	}
	if got := svc.GetDuration(ctx, CategoryBackend, "poll_interval", 30*time.Second); got != 30*time.Second {
		t.Errorf("非法 duration 应回退默认值: %v", got)
	}

	if err := svc.Set(ctx, CategoryRetention, "retention_days", "abc"); err != nil {
		t.Fatalf("写入失败: %v", err)
	}
	if got := svc.GetInt(ctx, CategoryRetention, "retention_days", 30); got != 30 {
		t.Errorf("非法 int 应回退默认值: %d", got)
	}
}

func TestSettingsServiceSetTriggersOnChange(t *testing.T) {
	svc, cleanup := newTestSettingsService(t)
	defer cleanup()
	ctx := context.Background()

	if err := svc.InitDefaults(ctx); err != nil {
		t.Fatalf("初始化失败: %v", err)
	}

	changed := 0
	svc.SetOnChangeCallback(func() { changed++ })

	// 普通设置触发热更新。
	if err := svc.Set(ctx, CategoryBackend, "poll_interval", "10s"); err != nil {
		t.Fatalf("写入失败: %v", err)
	}
	if changed != 1 {
		t.Fatalf("普通设置应触发一次回调: %d", changed)
	}

	// requires_restart 的设置不触发热更新。
	if err := svc.Set(ctx, CategoryBackend, "base_url", "http://localhost:9000"); err != nil {
		t.Fatalf("写入失败: %v", err)
	}
	if changed != 1 {
		t.Errorf("需重启的设置不应触发热更新: %d", changed)
	}
}

func TestSettingsServiceUpdateAndApply(t *testing.T) {
	svc, cleanup := newTestSettingsService(t)
	defer cleanup()
	ctx := context.Background()

	if err := svc.InitDefaults(ctx); err != nil {
		t.Fatalf("初始化失败: %v", err)
	}

	changed := false
	svc.SetOnChangeCallback(func() { changed = true })

	err := svc.UpdateAndApply(ctx, []*store.SettingRecord{
		{Category: CategoryBackend, Key: "poll_interval", Value: "5s"},
		{Category: CategoryWindow, Key: "hide_on_close", Value: "false"},
	})
	if err != nil {
		t.Fatalf("批量更新失败: %v", err)
	}
	if !changed {
		t.Error("批量更新应触发回调")
	}

	if got := svc.GetDuration(ctx, CategoryBackend, "poll_interval", 0); got != 5*time.Second {
		t.Errorf("批量更新未生效: %v", got)
	}
	if svc.GetBool(ctx, CategoryWindow, "hide_on_close", true) {
		t.Error("批量更新未生效: hide_on_close")
	}

	// 只更新了 value，label 等元数据保留。
	record, err := svc.Get(ctx, CategoryBackend, "poll_interval")
	if err != nil {
		t.Fatalf("读取失败: %v", err)
	}
	if record.Label == "" {
		t.Error("批量更新不应清空元数据")
	}
}

func TestSettingsServiceResetCategory(t *testing.T) {
	svc, cleanup := newTestSettingsService(t)
	defer cleanup()
	ctx := context.Background()

	if err := svc.InitDefaults(ctx); err != nil {
		t.Fatalf("初始化失败: %v", err)
	}
	if err := svc.Set(ctx, CategoryRetention, "retention_days", "7"); err != nil {
		t.Fatalf("写入失败: %v", err)
	}

	if err := svc.ResetCategory(ctx, CategoryRetention); err != nil {
		t.Fatalf("重置失败: %v", err)
	}
	if got := svc.GetInt(ctx, CategoryRetention, "retention_days", 0); got != 30 {
		t.Errorf("重置后应回到默认值: %d", got)
	}
}

func TestSettingsServiceCategories(t *testing.T) {
	svc, cleanup := newTestSettingsService(t)
	defer cleanup()

	categories := svc.GetCategories()
	if len(categories) != 4 {
		t.Fatalf("应有 4 个分类: got %d", len(categories))
	}
	// 按 Order 排序
	for i := 1; i < len(categories); i++ {
		if categories[i-1].Order > categories[i].Order {
			t.Errorf("分类未按 Order 排序: %+v", categories)
		}
	}

	if svc.GetCategoryInfo(CategoryBackend) == nil {
		t.Error("应能查到 backend 分类信息")
	}
	if svc.GetCategoryInfo("bogus") != nil {
		t.Error("未知分类应返回 nil")
	}
}
