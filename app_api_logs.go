// app_api_logs.go - 日志查询 API (Wails Bindings)

package main

import (
	"reveris-desktop/internal/logging"
)

// GetRecentLogs 获取内存缓冲中最近的日志（时间正序）。
// 前端打开日志面板时先拉一次存量，再订阅 log:batch 增量。
func (a *App) GetRecentLogs(limit int) []logging.LogEntry {
	a.mu.RLock()
	handler := a.logHandler
	a.mu.RUnlock()

	if handler == nil {
		return []logging.LogEntry{}
	}

	entries := handler.RecentEntries(limit)
	if entries == nil {
		return []logging.LogEntry{}
	}
	return entries
}
