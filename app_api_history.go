// app_api_history.go - 状态检查历史 API (Wails Bindings)

package main

import (
	"context"
	"fmt"
	"time"

	"reveris-desktop/internal/store"
)

// ============================================================
// 状态检查历史 API (SQLite)
// ============================================================

// StatusCheckInfo 单条状态检查记录（给前端用的结构体）
type StatusCheckInfo struct {
	CheckID   string `json:"check_id"`
	CheckedAt string `json:"checked_at"`
	Reachable bool   `json:"reachable"`
	Healthy   bool   `json:"healthy"`
	CeleryOK  bool   `json:"celery_ok"`
	Jobs      int    `json:"jobs"`
	Plugins   int    `json:"plugins"`
	Events    int    `json:"events"`
	LatencyMS int64  `json:"latency_ms"`
	Source    string `json:"source"`
	Error     string `json:"error,omitempty"`
}

// StatusSummaryInfo 可用性汇总（给前端用的结构体）
type StatusSummaryInfo struct {
	WindowStart  string  `json:"window_start"`
	WindowEnd    string  `json:"window_end"`
	TotalChecks  int     `json:"total_checks"`
	Reachable    int     `json:"reachable"`
	Availability float64 `json:"availability"` // 0-100
	AvgLatencyMS float64 `json:"avg_latency_ms"`
}

func (a *App) errStatusServiceDisabled() error {
	return fmt.Errorf("状态历史服务未启用（数据库未就绪）")
}

// GetStatusHistory 获取最近的状态检查记录（时间倒序）
func (a *App) GetStatusHistory(limit int) ([]StatusCheckInfo, error) {
	a.mu.RLock()
	statusService := a.statusService
	a.mu.RUnlock()

	if statusService == nil {
		return nil, a.errStatusServiceDisabled()
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	records, err := statusService.RecentChecks(ctx, limit)
	if err != nil {
		return nil, fmt.Errorf("获取状态历史失败: %w", err)
	}

	loc := a.displayLocation()
	result := make([]StatusCheckInfo, 0, len(records))
	for _, r := range records {
		result = append(result, statusRecordToInfo(r, loc))
	}

	return result, nil
}

// GetLatestStatusCheck 获取最新一条状态检查记录
func (a *App) GetLatestStatusCheck() (*StatusCheckInfo, error) {
	a.mu.RLock()
	statusService := a.statusService
	a.mu.RUnlock()

	if statusService == nil {
		return nil, a.errStatusServiceDisabled()
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	record, err := statusService.LatestCheck(ctx)
	if err != nil {
		return nil, fmt.Errorf("获取最新状态失败: %w", err)
	}
	if record == nil {
		return nil, nil
	}

	info := statusRecordToInfo(record, a.displayLocation())
	return &info, nil
}

// GetStatusSummary 获取指定时间窗口内的可用性汇总。
// windowHours <= 0 时默认 24 小时。
func (a *App) GetStatusSummary(windowHours int) (StatusSummaryInfo, error) {
	a.mu.RLock()
	statusService := a.statusService
	a.mu.RUnlock()

	if statusService == nil {
		return StatusSummaryInfo{}, a.errStatusServiceDisabled()
	}

	if windowHours <= 0 {
		windowHours = 24
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	summary, err := statusService.Summary(ctx, time.Duration(windowHours)*time.Hour)
	if err != nil {
		return StatusSummaryInfo{}, fmt.Errorf("获取可用性汇总失败: %w", err)
	}

	loc := a.displayLocation()
	return StatusSummaryInfo{
		WindowStart:  summary.WindowStart.In(loc).Format("2006-01-02 15:04:05"),
		WindowEnd:    summary.WindowEnd.In(loc).Format("2006-01-02 15:04:05"),
		TotalChecks:  summary.TotalChecks,
		Reachable:    summary.Reachable,
		Availability: summary.Availability,
		AvgLatencyMS: summary.AvgLatencyMS,
	}, nil
}

// PurgeStatusHistory 按当前保留策略立即清理过期历史记录
func (a *App) PurgeStatusHistory() (int64, error) {
	a.mu.RLock()
	statusService := a.statusService
	cfg := a.config
	a.mu.RUnlock()

	if statusService == nil {
		return 0, a.errStatusServiceDisabled()
	}

	retentionDays := 0
	if cfg != nil {
		retentionDays = cfg.History.RetentionDays
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	return statusService.Purge(ctx, retentionDays)
}

// displayLocation 前端时间展示使用的时区
func (a *App) displayLocation() *time.Location {
	cfg := a.getConfig()
	if cfg != nil && cfg.Timezone != "" {
		if loc, err := time.LoadLocation(cfg.Timezone); err == nil {
			return loc
		}
	}
	return time.Local
}

// statusRecordToInfo 将数据库记录转换为前端 Info 结构
func statusRecordToInfo(r *store.StatusCheckRecord, loc *time.Location) StatusCheckInfo {
	return StatusCheckInfo{
		CheckID:   r.CheckID,
		CheckedAt: r.CheckedAt.In(loc).Format("2006-01-02 15:04:05"),
		Reachable: r.Reachable,
		Healthy:   r.Healthy,
		CeleryOK:  r.CeleryOK,
		Jobs:      r.Jobs,
		Plugins:   r.Plugins,
		Events:    r.Events,
		LatencyMS: r.LatencyMS,
		Source:    r.Source,
		Error:     r.Error,
	}
}
