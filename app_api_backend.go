// app_api_backend.go - 后端状态探测 API (Wails Bindings)

package main

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/wailsapp/wails/v2/pkg/runtime"

	"reveris-desktop/internal/backend"
)

// ============================================================
// 后端状态 API
// ============================================================

// CheckBackendStatus 探测后端是否运行中。
// 阻塞直到探测完成：收到任意 HTTP 响应返回 "Backend is running"，
// 任何传输层失败统一返回错误 "Backend is not running"。
func (a *App) CheckBackendStatus() (string, error) {
	client := a.getBackendClient()
	if client == nil {
		return "", backend.ErrNotRunning
	}

	return client.Probe(a.bindCtx())
}

// OpenBackendDocs 在系统默认浏览器打开后端 API 文档。
// 尽力而为：浏览器打开失败不影响应用，不返回错误。
func (a *App) OpenBackendDocs() {
	if a.ctx == nil {
		return
	}

	client := a.getBackendClient()
	if client == nil {
		return
	}

	runtime.BrowserOpenURL(a.ctx, client.DocsURL())
}

// GetBackendStatus 立即执行一次详细探测（前端手动刷新）。
// 解码 /status 负载，结果同时落库并通过 backend:status 事件推送。
func (a *App) GetBackendStatus() backend.CheckResult {
	poller := a.getPoller()
	if poller != nil {
		return poller.CheckNow(a.bindCtx())
	}

	// 轮询被禁用时直接用客户端探测，结果仍走统一回调
	client := a.getBackendClient()
	res := backend.CheckResult{
		CheckID: uuid.NewString(),
		Time:    time.Now(),
		Source:  "manual",
	}
	if client != nil {
		res.Status = client.FetchStatus(a.bindCtx())
	} else {
		res.Status = backend.Status{Error: backend.StatusNotRunning}
	}
	a.onCheckResult(res)
	return res
}

// bindCtx 绑定方法使用的上下文。启动早期 a.ctx 可能为 nil。
func (a *App) bindCtx() context.Context {
	if a.ctx != nil {
		return a.ctx
	}
	return context.Background()
}
