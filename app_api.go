// app_api.go - 暴露给前端的 API 方法 (Wails Bindings)
// 这些方法会被自动生成为 JavaScript 调用
//
// API 文件按功能模块拆分:
// - app_api.go          - 系统状态、配置、窗口控制 (本文件)
// - app_api_backend.go  - 后端状态探测
// - app_api_history.go  - 状态检查历史
// - app_api_settings.go - 系统设置管理 (SQLite)
// - app_api_logs.go     - 日志查询

package main

import (
	"fmt"
	"time"

	"github.com/wailsapp/wails/v2/pkg/runtime"

	"reveris-desktop/internal/shell"
)

// ============================================================
// 系统状态 API
// ============================================================

// SystemStatus 系统状态结构
type SystemStatus struct {
	Version       string `json:"version"`
	Uptime        string `json:"uptime"`
	UptimeSeconds int64  `json:"uptime_seconds"`
	StartTime     string `json:"start_time"` // ISO8601 格式的启动时间
	BackendURL    string `json:"backend_url"`
	PollEnabled   bool   `json:"poll_enabled"`
	TrayActive    bool   `json:"tray_active"`
	ConfigPath    string `json:"config_path"`
	Running       bool   `json:"running"`
}

// GetSystemStatus 获取系统状态
func (a *App) GetSystemStatus() SystemStatus {
	a.mu.RLock()
	defer a.mu.RUnlock()

	uptime := time.Since(startTime)

	status := SystemStatus{
		Version:       Version,
		Uptime:        formatDuration(uptime),
		UptimeSeconds: int64(uptime.Seconds()),
		StartTime:     startTime.Format(time.RFC3339),
		TrayActive:    a.trayCtrl != nil,
		ConfigPath:    a.configPath,
		Running:       a.isRunning,
	}

	if a.config != nil {
		status.BackendURL = a.config.Backend.BaseURL
		status.PollEnabled = a.config.PollEnabled()
	}

	return status
}

// ============================================================
// 配置 API
// ============================================================

// ConfigInfo 配置信息（给前端展示）
type ConfigInfo struct {
	BackendURL    string `json:"backend_url"`
	StatusURL     string `json:"status_url"`
	DocsURL       string `json:"docs_url"`
	ProbeTimeout  string `json:"probe_timeout"`
	PollInterval  string `json:"poll_interval"`
	PollEnabled   bool   `json:"poll_enabled"`
	HideOnClose   bool   `json:"hide_on_close"`
	RetentionDays int    `json:"retention_days"`
	Timezone      string `json:"timezone"`
}

// GetConfigInfo 获取当前配置
func (a *App) GetConfigInfo() ConfigInfo {
	cfg := a.getConfig()
	if cfg == nil {
		return ConfigInfo{}
	}

	return ConfigInfo{
		BackendURL:    cfg.Backend.BaseURL,
		StatusURL:     cfg.StatusURL(),
		DocsURL:       cfg.DocsURL(),
		ProbeTimeout:  cfg.Backend.ProbeTimeout.String(),
		PollInterval:  cfg.Backend.PollInterval.String(),
		PollEnabled:   cfg.PollEnabled(),
		HideOnClose:   cfg.HideOnCloseEnabled(),
		RetentionDays: cfg.History.RetentionDays,
		Timezone:      cfg.Timezone,
	}
}

// ============================================================
// 窗口控制 API
// ============================================================

// ShowWindow 显示并聚焦主窗口
func (a *App) ShowWindow() {
	if a.router == nil {
		return
	}
	a.router.Handle(shell.MenuClicked(shell.MenuShow))
}

// HideWindow 隐藏主窗口到托盘
func (a *App) HideWindow() {
	if a.router == nil {
		return
	}
	a.router.Handle(shell.MenuClicked(shell.MenuHide))
}

// Quit 退出应用
func (a *App) Quit() {
	a.requestQuit()
}

// IsWindowVisible 主窗口是否可见（最小化也算不可见）
func (a *App) IsWindowVisible() bool {
	if a.ctx == nil {
		return false
	}
	return !runtime.WindowIsMinimised(a.ctx)
}

// ============================================================
// 辅助函数
// ============================================================

// formatDuration 格式化时长
func formatDuration(d time.Duration) string {
	d = d.Round(time.Second)
	h := d / time.Hour
	d -= h * time.Hour
	m := d / time.Minute
	d -= m * time.Minute
	s := d / time.Second

	if h > 0 {
		return fmt.Sprintf("%dh%dm%ds", h, m, s)
	}
	if m > 0 {
		return fmt.Sprintf("%dm%ds", m, s)
	}
	return fmt.Sprintf("%ds", s)
}
