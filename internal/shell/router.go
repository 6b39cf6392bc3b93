package shell

import "log/slog"

// WindowController 主窗口操作的抽象，由 Wails runtime 适配实现。
type WindowController interface {
	Show()
	Hide()
	Focus()
}

// Router 将托盘/窗口事件分发为窗口操作。
// 所有依赖显式注入，便于在无 GUI 环境下测试。
type Router struct {
	window WindowController

	// quit 触发应用退出（进程以退出码 0 结束）。
	quit func()

	// openURL 调用系统默认浏览器打开链接。尽力而为：
	// 失败只记日志，绝不向上传播。
	openURL func(url string) error

	// docsURL 菜单“API 文档”打开的地址。
	docsURL string

	// onNavigate 请求前端跳转到指定页面（如系统状态页），可为 nil。
	onNavigate func(page string)

	logger *slog.Logger
}

// RouterOptions Router 的构造参数。
type RouterOptions struct {
	Window     WindowController
	Quit       func()
	OpenURL    func(url string) error
	DocsURL    string
	OnNavigate func(page string)
	Logger     *slog.Logger
}

// NewRouter 创建事件路由器。Window 与 Quit 为必填，其余可缺省。
func NewRouter(opts RouterOptions) *Router {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Router{
		window:     opts.Window,
		quit:       opts.Quit,
		openURL:    opts.OpenURL,
		docsURL:    opts.DocsURL,
		onNavigate: opts.OnNavigate,
		logger:     logger,
	}
}

// Handle 处理一个事件。分发规则：
//
//	托盘激活          -> 显示并聚焦主窗口
//	菜单 show/status  -> 显示并聚焦主窗口（status 额外通知前端跳转状态页）
//	菜单 hide         -> 隐藏主窗口
//	菜单 docs         -> 打开 API 文档（尽力而为）
//	菜单 quit         -> 退出应用
//	关闭请求          -> 取消关闭，隐藏到托盘
//	未知菜单 id       -> 忽略
func (r *Router) Handle(ev Event) {
	switch ev.Kind {
	case EventTrayActivated:
		r.showAndFocus()

	case EventMenuClicked:
		r.handleMenu(ev.MenuID)

	case EventCloseRequested:
		// 关闭即隐藏：窗口与进程都保持存活。
		r.logger.Debug("🔄 窗口关闭请求已拦截，隐藏到托盘")
		r.window.Hide()
	}
}

func (r *Router) handleMenu(id MenuID) {
	switch id {
	case MenuShow:
		r.showAndFocus()

	case MenuHide:
		r.window.Hide()

	case MenuStatus:
		r.showAndFocus()
		if r.onNavigate != nil {
			r.onNavigate("status")
		}

	case MenuDocs:
		r.openDocs()

	case MenuQuit:
		r.logger.Info("🔄 用户从托盘菜单退出应用")
		if r.quit != nil {
			r.quit()
		}

	default:
		// 未知 id 不做任何事，也不报错。
		r.logger.Warn("⚠️ 收到未知托盘菜单 id，已忽略", "id", string(id))
	}
}

func (r *Router) showAndFocus() {
	r.window.Show()
	r.window.Focus()
}

func (r *Router) openDocs() {
	if r.openURL == nil || r.docsURL == "" {
		return
	}
	if err := r.openURL(r.docsURL); err != nil {
		// 打开浏览器失败不影响应用，仅记录。
		r.logger.Warn("⚠️ 打开 API 文档失败", "url", r.docsURL, "error", err)
	}
}
