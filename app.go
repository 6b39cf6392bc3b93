// app.go - Reveris Noctis 应用核心
// 负责生命周期管理、配置加载、服务装配与托盘/窗口事件路由

package main

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"sync"
	"sync/atomic"
	"time"

	"github.com/wailsapp/wails/v2/pkg/runtime"
	_ "modernc.org/sqlite"

	"reveris-desktop/config"
	"reveris-desktop/internal/backend"
	"reveris-desktop/internal/logging"
	"reveris-desktop/internal/service"
	"reveris-desktop/internal/shell"
	"reveris-desktop/internal/store"
	"reveris-desktop/internal/tray"
	"reveris-desktop/internal/utils"
)

// App Wails 应用主结构
type App struct {
	ctx    context.Context
	cancel context.CancelFunc

	// 配置
	configPath    string
	configWatcher *config.ConfigWatcher
	config        *config.Config

	// 日志
	logger     *slog.Logger
	logEmitter *logging.EventEmitter
	logHandler *logging.BroadcastHandler

	// 存储
	storeDB         *sql.DB
	settingsService *service.SettingsService
	statusService   *service.StatusService

	// 后端探测
	backendClient *backend.Client
	poller        *backend.Poller

	// 托盘与事件路由
	router   *shell.Router
	trayCtrl tray.Controller

	mu        sync.RWMutex
	isRunning bool
	quitting  int32 // 原子标志：退出流程已启动
}

// NewApp 创建应用实例
func NewApp() *App {
	return &App{}
}

// startup 应用启动回调（Wails OnStartup）
func (a *App) startup(ctx context.Context) {
	a.ctx, a.cancel = context.WithCancel(ctx)

	// 1. 加载配置（配置失败无法继续）
	if err := a.loadConfig(); err != nil {
		fmt.Fprintf(os.Stderr, "❌ 配置加载失败: %v\n", err)
		os.Exit(1)
	}

	// 2. 初始化日志（广播处理器在前端就绪后才真正推送）
	a.logEmitter = logging.NewEventEmitter()
	a.logger, a.logHandler = setupLogger(a.config.Logging, a.logEmitter)
	slog.SetDefault(a.logger)
	a.configWatcher.UpdateLogger(a.logger)

	a.logger.Info("🚀 Reveris Noctis 启动中...", "version", Version)

	// 3. 初始化 SQLite 存储（失败不阻断启动，历史与设置功能降级）
	if err := a.setupStoreDB(); err != nil {
		a.logger.Error("❌ 数据库初始化失败，历史记录与设置持久化不可用", "error", err)
	} else {
		a.setupSettingsService()
		a.setupStatusService()
	}

	// 4. 后端探测客户端与轮询器
	a.setupBackend()

	// 5. 事件路由器与系统托盘
	a.setupRouter()
	a.setupTray()

	// 6. 配置热重载
	a.setupConfigReload()

	a.mu.Lock()
	a.isRunning = true
	a.mu.Unlock()

	a.logger.Info("✅ Reveris Noctis 启动完成",
		"backend_url", a.config.Backend.BaseURL,
		"poll_enabled", a.config.PollEnabled())
}

// domReady 前端 DOM 就绪回调（Wails OnDomReady）
func (a *App) domReady(ctx context.Context) {
	// 前端就绪后才启动日志推送，避免事件丢在空窗期
	a.logEmitter.Start(ctx)

	a.logger.Info("🌐 前端界面已就绪")

	// 启动时隐藏到托盘
	if a.config.Window.StartHidden {
		runtime.WindowHide(ctx)
		a.logger.Info("🪟 按配置启动后直接隐藏到托盘")
	}

	// 推送一次初始状态
	a.emitSystemStatus()
}

// beforeClose 窗口关闭回调（Wails OnBeforeClose）
// 返回 true 表示阻止默认关闭行为。
func (a *App) beforeClose(ctx context.Context) bool {
	// 退出流程已启动（托盘退出或禁用隐藏后的关闭），放行
	if atomic.LoadInt32(&a.quitting) == 1 {
		return false
	}

	// 关闭即隐藏：窗口关闭请求统一交给路由器处理
	if a.config != nil && a.config.HideOnCloseEnabled() && a.router != nil {
		a.router.Handle(shell.CloseRequested())
		return true
	}

	// 配置关闭了“隐藏到托盘”，走正常退出
	if !atomic.CompareAndSwapInt32(&a.quitting, 0, 1) {
		return false
	}
	go runtime.Quit(a.ctx)
	return true
}

// shutdown 应用关闭回调（Wails OnShutdown）
func (a *App) shutdown(ctx context.Context) {
	a.logger.Info("🔄 Reveris Noctis 正在关闭...")

	a.mu.Lock()
	a.isRunning = false
	poller := a.poller
	a.mu.Unlock()

	// 停止后台任务
	if a.cancel != nil {
		a.cancel()
	}
	if poller != nil {
		poller.Stop()
	}
	if a.trayCtrl != nil {
		a.trayCtrl.Stop()
	}

	// 关闭存储
	if a.storeDB != nil {
		if err := a.storeDB.Close(); err != nil {
			a.logger.Warn("⚠️ 数据库关闭失败", "error", err)
		}
	}

	// 停止配置监听
	if a.configWatcher != nil {
		a.configWatcher.Close()
	}

	a.logger.Info("✅ Reveris Noctis 已关闭", "uptime", time.Since(startTime).Round(time.Second).String())

	// 日志推送与文件句柄最后收尾
	a.logEmitter.Stop()
	if currentLogHandler != nil {
		currentLogHandler.Close()
	}
}

// loadConfig 加载配置文件并启动监听。
// 未指定 -config 时使用用户数据目录，首次运行写入内嵌默认配置。
func (a *App) loadConfig() error {
	if err := utils.EnsureAppDirs(); err != nil {
		return fmt.Errorf("创建应用目录失败: %w", err)
	}

	path := a.configPath
	if path == "" {
		path = utils.GetConfigPath()
		if _, err := os.Stat(path); os.IsNotExist(err) {
			if err := os.WriteFile(path, defaultConfigContent, 0644); err != nil {
				return fmt.Errorf("写入默认配置失败: %w", err)
			}
			fmt.Printf("🔧 已生成默认配置文件: %s\n", path)
		}
	}
	a.configPath = path

	watcher, err := config.NewConfigWatcher(path, slog.Default())
	if err != nil {
		return err
	}
	a.configWatcher = watcher
	a.config = watcher.GetConfig()
	return nil
}

// setupStoreDB 初始化 SQLite 数据库连接
func (a *App) setupStoreDB() error {
	dbPath := a.config.History.DatabasePath

	dsn := dbPath + "?_journal_mode=WAL&_synchronous=NORMAL&_cache_size=10000&_foreign_keys=1&_busy_timeout=60000"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return fmt.Errorf("打开数据库失败: %w", err)
	}

	// modernc/sqlite 单写者，限制连接数避免 SQLITE_BUSY
	db.SetMaxOpenConns(1)

	pingCtx, cancel := context.WithTimeout(a.ctx, 10*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		db.Close()
		return fmt.Errorf("数据库连接测试失败: %w", err)
	}

	if err := store.InitSchema(a.ctx, db); err != nil {
		db.Close()
		return fmt.Errorf("初始化数据库表失败: %w", err)
	}

	a.storeDB = db
	a.logger.Info("📊 SQLite 数据库已就绪", "path", dbPath)
	return nil
}

// setupSettingsService 初始化设置服务并注册热更新回调
func (a *App) setupSettingsService() {
	a.settingsService = service.NewSettingsService(store.NewSQLiteSettingsStore(a.storeDB))

	if err := a.settingsService.InitDefaults(a.ctx); err != nil {
		a.logger.Warn("⚠️ 初始化默认设置失败", "error", err)
	}

	a.settingsService.SetOnChangeCallback(func() {
		a.applySettings()
		a.emitSystemStatus()
	})
}

// setupStatusService 初始化状态历史服务与后台清理任务
func (a *App) setupStatusService() {
	a.statusService = service.NewStatusService(store.NewSQLiteStatusHistoryStore(a.storeDB), a.logger)

	a.statusService.StartCleanupLoop(a.ctx, a.config.History.CleanupInterval, func() int {
		if a.settingsService != nil {
			return a.settingsService.GetInt(a.ctx, service.CategoryRetention, "retention_days", a.config.History.RetentionDays)
		}
		return a.config.History.RetentionDays
	})
}

// setupBackend 创建后端探测客户端与轮询器
func (a *App) setupBackend() {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.rebuildBackendLocked()
}

// rebuildBackendLocked 按当前配置重建客户端与轮询器。
// 调用方必须持有 a.mu。
func (a *App) rebuildBackendLocked() {
	if a.poller != nil {
		a.poller.Stop()
		a.poller = nil
	}

	cfg := a.config
	a.backendClient = backend.NewClient(backend.ClientOptions{
		BaseURL:    cfg.Backend.BaseURL,
		StatusPath: cfg.Backend.StatusPath,
		DocsPath:   cfg.Backend.DocsPath,
		Timeout:    cfg.Backend.ProbeTimeout,
		Logger:     a.logger,
	})

	if !cfg.PollEnabled() {
		a.logger.Info("🔄 周期探测已禁用")
		return
	}

	a.poller = backend.NewPoller(backend.PollerOptions{
		Client:   a.backendClient,
		Interval: cfg.Backend.PollInterval,
		OnResult: a.onCheckResult,
		Logger:   a.logger,
	})
	a.poller.Start(a.ctx)
}

// onCheckResult 每次探测完成：落库并推送到前端
func (a *App) onCheckResult(res backend.CheckResult) {
	if a.statusService != nil {
		a.statusService.RecordCheck(a.ctx, res)
	}
	a.emitBackendStatus(res)
}

// setupRouter 创建托盘/窗口事件路由器
func (a *App) setupRouter() {
	a.router = shell.NewRouter(shell.RouterOptions{
		Window: &wailsWindow{app: a},
		Quit:   a.requestQuit,
		OpenURL: func(url string) error {
			runtime.BrowserOpenURL(a.ctx, url)
			return nil
		},
		DocsURL:    a.config.DocsURL(),
		OnNavigate: a.emitNavigate,
		Logger:     a.logger,
	})
}

// setupTray 启动系统托盘
func (a *App) setupTray() {
	ctrl, err := tray.Start(a.ctx, tray.Options{
		Icon:    icon,
		Tooltip: a.config.Window.Title,
		OnEvent: func(ev shell.Event) {
			a.router.Handle(ev)
		},
	})
	if err != nil {
		// 托盘是退出与恢复窗口的唯一入口，注册失败无法继续
		a.logger.Error("❌ 系统托盘注册失败，无法继续运行", "error", err)
		fmt.Fprintf(os.Stderr, "❌ 系统托盘注册失败: %v\n", err)
		os.Exit(1)
	}
	a.trayCtrl = ctrl
	a.logger.Info("✅ 系统托盘已启动")
}

// setupConfigReload 注册配置文件热重载回调
func (a *App) setupConfigReload() {
	a.configWatcher.AddReloadCallback(func(newConfig *config.Config) {
		a.mu.Lock()
		a.config = newConfig
		a.rebuildBackendLocked()
		a.mu.Unlock()

		a.emitConfigReloaded()
		a.emitSystemStatus()
	})
}

// applySettings 把数据库中的设置应用到运行时配置（热更新）
func (a *App) applySettings() {
	if a.settingsService == nil {
		return
	}
	ctx := a.ctx

	a.mu.Lock()
	cfg := *a.config

	cfg.Backend.ProbeTimeout = a.settingsService.GetDuration(ctx, service.CategoryBackend, "probe_timeout", cfg.Backend.ProbeTimeout)
	cfg.Backend.PollInterval = a.settingsService.GetDuration(ctx, service.CategoryBackend, "poll_interval", cfg.Backend.PollInterval)
	pollEnabled := a.settingsService.GetBool(ctx, service.CategoryBackend, "poll_enabled", cfg.PollEnabled())
	cfg.Backend.PollEnabled = &pollEnabled

	hideOnClose := a.settingsService.GetBool(ctx, service.CategoryWindow, "hide_on_close", cfg.HideOnCloseEnabled())
	cfg.Window.HideOnClose = &hideOnClose

	cfg.History.RetentionDays = a.settingsService.GetInt(ctx, service.CategoryRetention, "retention_days", cfg.History.RetentionDays)

	a.config = &cfg
	a.rebuildBackendLocked()
	a.mu.Unlock()

	a.logger.Info("✅ 设置已应用",
		"poll_enabled", pollEnabled,
		"poll_interval", cfg.Backend.PollInterval.String(),
		"hide_on_close", hideOnClose)
}

// requestQuit 触发应用退出（托盘菜单“退出”）。进程以退出码 0 结束。
func (a *App) requestQuit() {
	if !atomic.CompareAndSwapInt32(&a.quitting, 0, 1) {
		return
	}
	runtime.Quit(a.ctx)
}

// getConfig 返回当前配置（线程安全）
func (a *App) getConfig() *config.Config {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.config
}

// getBackendClient 返回当前后端客户端（线程安全）
func (a *App) getBackendClient() *backend.Client {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.backendClient
}

// getPoller 返回当前轮询器（线程安全，可能为 nil）
func (a *App) getPoller() *backend.Poller {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.poller
}

// wailsWindow Wails runtime 的窗口控制适配器
type wailsWindow struct {
	app *App
}

func (w *wailsWindow) Show() {
	if w.app.ctx == nil {
		return
	}
	runtime.WindowShow(w.app.ctx)
}

func (w *wailsWindow) Hide() {
	if w.app.ctx == nil {
		return
	}
	runtime.WindowHide(w.app.ctx)
}

func (w *wailsWindow) Focus() {
	if w.app.ctx == nil {
		return
	}
	// Wails 没有独立的 focus API，取消最小化再置前
	runtime.WindowUnminimise(w.app.ctx)
	runtime.WindowShow(w.app.ctx)
}
