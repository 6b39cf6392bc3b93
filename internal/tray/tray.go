package tray

import (
	"context"

	"reveris-desktop/internal/shell"
)

// Controller 表示托盘控制器（用于停止托盘）。
type Controller interface {
	Stop()
}

// Options 托盘启动参数。
type Options struct {
	// Icon 托盘图标内容（Windows 推荐 .ico 字节；其它平台可忽略）。
	Icon []byte

	// Tooltip 托盘悬浮提示文本。
	Tooltip string

	// OnEvent 托盘事件回调。菜单点击包装成 shell.Event 上送，
	// 由应用层的 Router 统一分发，托盘本身不做窗口操作。
	OnEvent func(ev shell.Event)
}

// Start 启动系统托盘（平台相关实现）。
func Start(ctx context.Context, opts Options) (Controller, error) {
	return start(ctx, opts)
}
