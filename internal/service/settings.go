// Package service 提供业务逻辑层实现
// 设置服务
package service

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"reveris-desktop/internal/store"
)

// SettingCategory 设置分类常量
const (
	CategoryBackend   = "backend"
	CategoryWindow    = "window"
	CategoryLogging   = "logging"
	CategoryRetention = "retention"
)

// SettingValueType 设置值类型常量
const (
	ValueTypeString   = "string"
	ValueTypeInt      = "int"
	ValueTypeFloat    = "float"
	ValueTypeBool     = "bool"
	ValueTypeDuration = "duration"
)

// CategoryInfo 分类信息
type CategoryInfo struct {
	Name        string `json:"name"`
	Label       string `json:"label"`
	Description string `json:"description"`
	Icon        string `json:"icon"`
	Order       int    `json:"order"`
}

// SettingsService 设置管理业务服务
type SettingsService struct {
	store          store.SettingsStore
	onChangeFunc   func() // 配置变更回调
	categoryLabels map[string]CategoryInfo
}

// NewSettingsService 创建设置服务实例
func NewSettingsService(store store.SettingsStore) *SettingsService {
	svc := &SettingsService{
		store: store,
		categoryLabels: map[string]CategoryInfo{
			CategoryBackend: {
				Name:        CategoryBackend,
				Label:       "后端服务",
				Description: "配置后端地址与状态探测",
				Icon:        "📡",
				Order:       1,
			},
			CategoryWindow: {
				Name:        CategoryWindow,
				Label:       "窗口行为",
				Description: "配置主窗口与托盘交互",
				Icon:        "🪟",
				Order:       2,
			},
			CategoryLogging: {
				Name:        CategoryLogging,
				Label:       "日志",
				Description: "配置日志级别与文件输出",
				Icon:        "📊",
				Order:       3,
			},
			CategoryRetention: {
				Name:        CategoryRetention,
				Label:       "数据保留",
				Description: "配置状态检查历史保留策略",
				Icon:        "📦",
				Order:       4,
			},
		},
	}
	return svc
}

// SetOnChangeCallback 设置配置变更回调
func (s *SettingsService) SetOnChangeCallback(fn func()) {
	s.onChangeFunc = fn
}

// GetCategories 获取所有分类信息
func (s *SettingsService) GetCategories() []CategoryInfo {
	categories := make([]CategoryInfo, 0, len(s.categoryLabels))
	for _, info := range s.categoryLabels {
		categories = append(categories, info)
	}
	// 按 Order 排序
	for i := 0; i < len(categories)-1; i++ {
		for j := i + 1; j < len(categories); j++ {
			if categories[i].Order > categories[j].Order {
				categories[i], categories[j] = categories[j], categories[i]
			}
		}
	}
	return categories
}

// GetCategoryInfo 获取分类信息
func (s *SettingsService) GetCategoryInfo(category string) *CategoryInfo {
	if info, ok := s.categoryLabels[category]; ok {
		return &info
	}
	return nil
}

// Get 获取单个设置值
func (s *SettingsService) Get(ctx context.Context, category, key string) (*store.SettingRecord, error) {
	return s.store.Get(ctx, category, key)
}

// GetValue 获取设置值（仅返回值字符串）
func (s *SettingsService) GetValue(ctx context.Context, category, key string) (string, error) {
	record, err := s.store.Get(ctx, category, key)
	if err != nil {
		return "", err
	}
	if record == nil {
		return "", nil
	}
	return record.Value, nil
}

// GetString 获取字符串值
func (s *SettingsService) GetString(ctx context.Context, category, key, defaultVal string) string {
	val, err := s.GetValue(ctx, category, key)
	if err != nil || val == "" {
		return defaultVal
	}
	return val
}

// GetInt 获取整数值
func (s *SettingsService) GetInt(ctx context.Context, category, key string, defaultVal int) int {
	val, err := s.GetValue(ctx, category, key)
	if err != nil || val == "" {
		return defaultVal
	}
	if i, err := strconv.Atoi(val); err == nil {
		return i
	}
	return defaultVal
}

// GetBool 获取布尔值
func (s *SettingsService) GetBool(ctx context.Context, category, key string, defaultVal bool) bool {
	val, err := s.GetValue(ctx, category, key)
	if err != nil || val == "" {
		return defaultVal
	}
	return val == "true" || val == "1" || val == "yes"
}

// GetDuration 获取时间间隔值
func (s *SettingsService) GetDuration(ctx context.Context, category, key string, defaultVal time.Duration) time.Duration {
	val, err := s.GetValue(ctx, category, key)
	if err != nil || val == "" {
		return defaultVal
	}
	if d, err := time.ParseDuration(val); err == nil {
		return d
	}
	return defaultVal
}

// GetByCategory 获取分类下的所有设置
func (s *SettingsService) GetByCategory(ctx context.Context, category string) ([]*store.SettingRecord, error) {
	return s.store.GetByCategory(ctx, category)
}

// GetAll 获取所有设置
func (s *SettingsService) GetAll(ctx context.Context) ([]*store.SettingRecord, error) {
	return s.store.GetAll(ctx)
}

// Set 设置单个值
func (s *SettingsService) Set(ctx context.Context, category, key, value string) error {
	if err := s.store.Set(ctx, category, key, value); err != nil {
		return err
	}
	s.triggerOnChange(category, key)
	return nil
}

// UpdateAndApply 批量更新并应用（触发热更新）
// 只更新 value，保留 label、description 等元数据
func (s *SettingsService) UpdateAndApply(ctx context.Context, records []*store.SettingRecord) error {
	if err := s.store.BatchUpdateValues(ctx, records); err != nil {
		return fmt.Errorf("保存设置失败: %w", err)
	}

	// 触发配置热更新
	if s.onChangeFunc != nil {
		s.onChangeFunc()
		slog.Info("✅ [SettingsService] 设置已保存并应用热更新")
	}

	return nil
}

// ResetCategory 重置分类设置为默认值
func (s *SettingsService) ResetCategory(ctx context.Context, category string) error {
	// 删除当前分类的所有设置
	if err := s.store.DeleteByCategory(ctx, category); err != nil {
		return fmt.Errorf("删除分类设置失败: %w", err)
	}

	// 重新初始化默认值
	defaults := s.getDefaultsForCategory(category)
	if len(defaults) > 0 {
		if err := s.store.BatchSet(ctx, defaults); err != nil {
			return fmt.Errorf("重置默认值失败: %w", err)
		}
	}

	// 触发热更新
	if s.onChangeFunc != nil {
		s.onChangeFunc()
	}

	slog.Info(fmt.Sprintf("✅ [SettingsService] 分类 %s 已重置为默认值", category))
	return nil
}

// triggerOnChange 触发变更回调（检查是否需要重启）
func (s *SettingsService) triggerOnChange(category, key string) {
	record, _ := s.store.Get(context.Background(), category, key)
	if record != nil && record.RequiresRestart {
		slog.Info(fmt.Sprintf("⚠️ [SettingsService] 设置 %s.%s 已保存，需要重启生效", category, key))
		return // 需要重启的配置不触发热更新
	}

	if s.onChangeFunc != nil {
		s.onChangeFunc()
	}
}

// InitDefaults 初始化默认设置
func (s *SettingsService) InitDefaults(ctx context.Context) error {
	defaults := s.GetAllDefaults()

	// 始终同步元数据（label、description、value_type等）
	// 即使数据库中已有数据也能更新到最新元数据，但保留用户设置的 value。
	return s.store.SyncMetadata(ctx, defaults)
}

// IsInitialized 检查是否已初始化
func (s *SettingsService) IsInitialized(ctx context.Context) (bool, error) {
	return s.store.IsInitialized(ctx)
}

// GetAllDefaults 获取所有默认设置
func (s *SettingsService) GetAllDefaults() []*store.SettingRecord {
	var defaults []*store.SettingRecord
	defaults = append(defaults, s.getDefaultsForCategory(CategoryBackend)...)
	defaults = append(defaults, s.getDefaultsForCategory(CategoryWindow)...)
	defaults = append(defaults, s.getDefaultsForCategory(CategoryLogging)...)
	defaults = append(defaults, s.getDefaultsForCategory(CategoryRetention)...)
	return defaults
}

// getDefaultsForCategory 获取分类的默认设置
func (s *SettingsService) getDefaultsForCategory(category string) []*store.SettingRecord {
	switch category {
	case CategoryBackend:
		return []*store.SettingRecord{
			{Category: CategoryBackend, Key: "base_url", Value: "http://localhost:8000", ValueType: ValueTypeString, Label: "后端地址", Description: "后端服务的基础 URL", DisplayOrder: 1, RequiresRestart: true},
			{Category: CategoryBackend, Key: "probe_timeout", Value: "10s", ValueType: ValueTypeDuration, Label: "探测超时", Description: "单次状态探测的超时时间", DisplayOrder: 2},
			{Category: CategoryBackend, Key: "poll_enabled", Value: "true", ValueType: ValueTypeBool, Label: "周期探测", Description: "是否定时探测后端状态", DisplayOrder: 3},
			{Category: CategoryBackend, Key: "poll_interval", Value: "30s", ValueType: ValueTypeDuration, Label: "探测间隔", Description: "周期探测的时间间隔", DisplayOrder: 4},
		}

	case CategoryWindow:
		return []*store.SettingRecord{
			{Category: CategoryWindow, Key: "hide_on_close", Value: "true", ValueType: ValueTypeBool, Label: "关闭时隐藏", Description: "点击关闭按钮时隐藏到托盘而非退出", DisplayOrder: 1},
			{Category: CategoryWindow, Key: "start_hidden", Value: "false", ValueType: ValueTypeBool, Label: "启动时隐藏", Description: "应用启动后直接隐藏到托盘", DisplayOrder: 2, RequiresRestart: true},
		}

	case CategoryLogging:
		return []*store.SettingRecord{
			{Category: CategoryLogging, Key: "level", Value: "info", ValueType: ValueTypeString, Label: "日志级别", Description: "debug / info / warn / error", DisplayOrder: 1},
			{Category: CategoryLogging, Key: "file_enabled", Value: "false", ValueType: ValueTypeBool, Label: "文件日志", Description: "是否写入日志文件", DisplayOrder: 2, RequiresRestart: true},
		}

	case CategoryRetention:
		return []*store.SettingRecord{
			{Category: CategoryRetention, Key: "retention_days", Value: "30", ValueType: ValueTypeInt, Label: "历史保留天数", Description: "状态检查历史保留天数，0 表示永久保留", DisplayOrder: 1},
			{Category: CategoryRetention, Key: "cleanup_interval", Value: "24h", ValueType: ValueTypeDuration, Label: "清理间隔", Description: "自动清理任务的执行间隔", DisplayOrder: 2},
		}

	default:
		return nil
	}
}
