// app_api_settings.go - 系统设置管理 API (Wails Bindings)
// 提供 SQLite 设置存储的增删改查功能

package main

import (
	"context"
	"fmt"
	"time"

	"reveris-desktop/internal/store"
)

// ============================================================
// 系统设置管理 API (SQLite)
// ============================================================

// SettingInfo 设置信息（给前端用的结构体）
type SettingInfo struct {
	ID              int64  `json:"id"`
	Category        string `json:"category"`
	Key             string `json:"key"`
	Value           string `json:"value"`
	ValueType       string `json:"value_type"`
	Label           string `json:"label"`
	Description     string `json:"description"`
	DisplayOrder    int    `json:"display_order"`
	RequiresRestart bool   `json:"requires_restart"`
	CreatedAt       string `json:"created_at"`
	UpdatedAt       string `json:"updated_at"`
}

// CategoryInfo 分类信息
type CategoryInfo struct {
	Name        string `json:"name"`
	Label       string `json:"label"`
	Description string `json:"description"`
	Icon        string `json:"icon"`
	Order       int    `json:"order"`
}

// UpdateSettingInput 更新单个设置的输入
type UpdateSettingInput struct {
	Category string `json:"category"`
	Key      string `json:"key"`
	Value    string `json:"value"`
}

// BatchUpdateSettingsInput 批量更新设置的输入
type BatchUpdateSettingsInput struct {
	Settings []UpdateSettingInput `json:"settings"`
}

func (a *App) errSettingsServiceDisabled() error {
	return fmt.Errorf("设置服务未启用（数据库未就绪）。请稍后重试；若一直失败，请检查是否有另一个 Reveris 实例占用数据库或重启应用。")
}

// GetSettingCategories 获取所有设置分类
func (a *App) GetSettingCategories() []CategoryInfo {
	a.mu.RLock()
	settingsService := a.settingsService
	a.mu.RUnlock()

	if settingsService == nil {
		return []CategoryInfo{}
	}

	serviceCategories := settingsService.GetCategories()
	result := make([]CategoryInfo, 0, len(serviceCategories))

	for _, cat := range serviceCategories {
		result = append(result, CategoryInfo{
			Name:        cat.Name,
			Label:       cat.Label,
			Description: cat.Description,
			Icon:        cat.Icon,
			Order:       cat.Order,
		})
	}

	return result
}

// GetAllSettings 获取所有设置
func (a *App) GetAllSettings() ([]SettingInfo, error) {
	a.mu.RLock()
	settingsService := a.settingsService
	a.mu.RUnlock()

	if settingsService == nil {
		return nil, a.errSettingsServiceDisabled()
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	records, err := settingsService.GetAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("获取设置列表失败: %w", err)
	}

	result := make([]SettingInfo, 0, len(records))
	for _, r := range records {
		result = append(result, settingRecordToInfo(r))
	}

	return result, nil
}

// GetSettingsByCategory 获取指定分类的设置
func (a *App) GetSettingsByCategory(category string) ([]SettingInfo, error) {
	a.mu.RLock()
	settingsService := a.settingsService
	a.mu.RUnlock()

	if settingsService == nil {
		return nil, a.errSettingsServiceDisabled()
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	records, err := settingsService.GetByCategory(ctx, category)
	if err != nil {
		return nil, fmt.Errorf("获取分类设置失败: %w", err)
	}

	result := make([]SettingInfo, 0, len(records))
	for _, r := range records {
		result = append(result, settingRecordToInfo(r))
	}

	return result, nil
}

// GetSetting 获取单个设置
func (a *App) GetSetting(category, key string) (SettingInfo, error) {
	a.mu.RLock()
	settingsService := a.settingsService
	a.mu.RUnlock()

	if settingsService == nil {
		return SettingInfo{}, a.errSettingsServiceDisabled()
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	record, err := settingsService.Get(ctx, category, key)
	if err != nil {
		return SettingInfo{}, fmt.Errorf("获取设置失败: %w", err)
	}
	if record == nil {
		return SettingInfo{}, fmt.Errorf("设置 '%s.%s' 不存在", category, key)
	}

	return settingRecordToInfo(record), nil
}

// UpdateSetting 更新单个设置
func (a *App) UpdateSetting(input UpdateSettingInput) error {
	a.mu.RLock()
	settingsService := a.settingsService
	logger := a.logger
	a.mu.RUnlock()

	if settingsService == nil {
		return a.errSettingsServiceDisabled()
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := settingsService.Set(ctx, input.Category, input.Key, input.Value); err != nil {
		return fmt.Errorf("更新设置失败: %w", err)
	}

	if logger != nil {
		logger.Info("✅ 设置已更新", "category", input.Category, "key", input.Key)
	}

	return nil
}

// BatchUpdateSettings 批量更新设置并应用热更新
func (a *App) BatchUpdateSettings(input BatchUpdateSettingsInput) error {
	a.mu.RLock()
	settingsService := a.settingsService
	logger := a.logger
	a.mu.RUnlock()

	if settingsService == nil {
		return a.errSettingsServiceDisabled()
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	// 转换为 store.SettingRecord
	records := make([]*store.SettingRecord, 0, len(input.Settings))
	for _, s := range input.Settings {
		records = append(records, &store.SettingRecord{
			Category: s.Category,
			Key:      s.Key,
			Value:    s.Value,
		})
	}

	if err := settingsService.UpdateAndApply(ctx, records); err != nil {
		return fmt.Errorf("批量更新设置失败: %w", err)
	}

	if logger != nil {
		logger.Info("✅ 设置已批量更新并应用", "count", len(records))
	}

	return nil
}

// ResetCategorySettings 重置分类设置为默认值
func (a *App) ResetCategorySettings(category string) error {
	a.mu.RLock()
	settingsService := a.settingsService
	logger := a.logger
	a.mu.RUnlock()

	if settingsService == nil {
		return a.errSettingsServiceDisabled()
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := settingsService.ResetCategory(ctx, category); err != nil {
		return fmt.Errorf("重置设置失败: %w", err)
	}

	if logger != nil {
		logger.Info("✅ 设置分类已重置", "category", category)
	}

	return nil
}

// settingRecordToInfo 将数据库记录转换为前端 Info 结构
func settingRecordToInfo(r *store.SettingRecord) SettingInfo {
	info := SettingInfo{
		ID:              r.ID,
		Category:        r.Category,
		Key:             r.Key,
		Value:           r.Value,
		ValueType:       r.ValueType,
		Label:           r.Label,
		Description:     r.Description,
		DisplayOrder:    r.DisplayOrder,
		RequiresRestart: r.RequiresRestart,
	}

	if !r.CreatedAt.IsZero() {
		info.CreatedAt = r.CreatedAt.Format("2006-01-02 15:04:05")
	}
	if !r.UpdatedAt.IsZero() {
		info.UpdatedAt = r.UpdatedAt.Format("2006-01-02 15:04:05")
	}

	return info
}
