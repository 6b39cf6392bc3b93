// app_events.go - Wails 事件发射
// 将 Go 后端状态变化通知到前端

package main

import (
	"github.com/wailsapp/wails/v2/pkg/runtime"

	"reveris-desktop/internal/backend"
)

// 事件名称常量
const (
	EventSystemStatus   = "system:status"
	EventBackendStatus  = "backend:status"
	EventNavigate       = "navigate:status"
	EventConfigReloaded = "config:reloaded"
	EventError          = "error"
	EventNotification   = "notification"
)

// emitSystemStatus 发送系统状态更新到前端
func (a *App) emitSystemStatus() {
	if a.ctx == nil {
		return
	}

	status := a.GetSystemStatus()
	runtime.EventsEmit(a.ctx, EventSystemStatus, status)
}

// emitBackendStatus 发送后端探测结果到前端
func (a *App) emitBackendStatus(res backend.CheckResult) {
	if a.ctx == nil {
		return
	}

	if a.logger != nil {
		a.logger.Debug("📡 [Wails Event] 推送后端状态",
			"reachable", res.Status.Reachable, "source", res.Source)
	}

	runtime.EventsEmit(a.ctx, EventBackendStatus, res)
}

// emitNavigate 请求前端跳转到指定页面（托盘“系统状态”入口）
func (a *App) emitNavigate(page string) {
	if a.ctx == nil {
		return
	}

	runtime.EventsEmit(a.ctx, EventNavigate, map[string]string{
		"page": page,
	})
}

// emitConfigReloaded 通知前端配置已热重载
func (a *App) emitConfigReloaded() {
	if a.ctx == nil {
		return
	}

	runtime.EventsEmit(a.ctx, EventConfigReloaded, a.GetConfigInfo())
}

// emitNotification 发送通知到前端
func (a *App) emitNotification(level, title, message string) {
	if a.ctx == nil {
		return
	}

	runtime.EventsEmit(a.ctx, EventNotification, map[string]string{
		"level":   level, // "info", "warning", "error", "success"
		"title":   title,
		"message": message,
	})
}
