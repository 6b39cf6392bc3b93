package config

import (
	"fmt"
	"log/slog"
	"net/url"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"gopkg.in/yaml.v3"
)

type Config struct {
	Backend  BackendConfig `yaml:"backend"`
	Window   WindowConfig  `yaml:"window"`
	Logging  LoggingConfig `yaml:"logging"`
	History  HistoryConfig `yaml:"history"`  // 状态检查历史配置
	Timezone string        `yaml:"timezone"` // 全局时区（时间展示用）
}

// BackendConfig 后端服务探测配置。
type BackendConfig struct {
	BaseURL      string        `yaml:"base_url"`      // 后端地址，默认 http://localhost:8000
	StatusPath   string        `yaml:"status_path"`   // 健康检查路径，默认 /status
	DocsPath     string        `yaml:"docs_path"`     // API 文档路径，默认 /docs
	ProbeTimeout time.Duration `yaml:"probe_timeout"` // 单次探测超时，默认 10s
	PollInterval time.Duration `yaml:"poll_interval"` // 周期探测间隔，默认 30s（0 以下禁用轮询由 validate 拦截）
	PollEnabled  *bool         `yaml:"poll_enabled"`  // 是否启用周期探测，默认 true
}

// WindowConfig 主窗口行为配置。
type WindowConfig struct {
	Title       string `yaml:"title"`         // 窗口标题
	Width       int    `yaml:"width"`         // 初始宽度
	Height      int    `yaml:"height"`        // 初始高度
	HideOnClose *bool  `yaml:"hide_on_close"` // 关闭按钮是否隐藏到托盘，默认 true
	StartHidden bool   `yaml:"start_hidden"`  // 启动时是否直接隐藏到托盘
}

type LoggingConfig struct {
	Level           string `yaml:"level"`
	FileEnabled     bool   `yaml:"file_enabled"`     // Enable file logging
	FilePath        string `yaml:"file_path"`        // Log file path
	MaxFileSize     string `yaml:"max_file_size"`    // Max file size (e.g., "100MB")
	MaxFiles        int    `yaml:"max_files"`        // Max number of rotated files to keep
	CompressRotated bool   `yaml:"compress_rotated"` // Compress rotated log files
}

// HistoryConfig 状态检查历史的存储配置。
type HistoryConfig struct {
	// DatabasePath SQLite 文件路径。缺省使用跨平台用户目录：
	// Windows: %APPDATA%\Reveris\data\reveris.db
	// macOS: ~/Library/Application Support/Reveris/data/reveris.db
	// Linux: ~/.local/share/reveris/data/reveris.db
	DatabasePath    string        `yaml:"database_path"`
	RetentionDays   int           `yaml:"retention_days"`   // 保留天数（0=永久），默认 30
	CleanupInterval time.Duration `yaml:"cleanup_interval"` // 清理任务周期，默认 24h
}

// HideOnCloseEnabled 关闭按钮是否隐藏到托盘（缺省 true）。
func (c *Config) HideOnCloseEnabled() bool {
	if c.Window.HideOnClose == nil {
		return true
	}
	return *c.Window.HideOnClose
}

// PollEnabled 周期探测是否启用（缺省 true）。
func (c *Config) PollEnabled() bool {
	if c.Backend.PollEnabled == nil {
		return true
	}
	return *c.Backend.PollEnabled
}

// StatusURL 健康检查完整地址。
func (c *Config) StatusURL() string {
	return strings.TrimRight(c.Backend.BaseURL, "/") + c.Backend.StatusPath
}

// DocsURL API 文档完整地址。
func (c *Config) DocsURL() string {
	return strings.TrimRight(c.Backend.BaseURL, "/") + c.Backend.DocsPath
}

// LoadConfig loads configuration from file
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var config Config
	if err := yaml.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	// Set defaults
	config.setDefaults()

	// Validate configuration
	if err := config.validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &config, nil
}

// setDefaults sets default values for configuration
func (c *Config) setDefaults() {
	if c.Backend.BaseURL == "" {
		c.Backend.BaseURL = "http://localhost:8000"
	}
	if c.Backend.StatusPath == "" {
		c.Backend.StatusPath = "/status"
	}
	if c.Backend.DocsPath == "" {
		c.Backend.DocsPath = "/docs"
	}
	if c.Backend.ProbeTimeout == 0 {
		c.Backend.ProbeTimeout = 10 * time.Second
	}
	if c.Backend.PollInterval == 0 {
		c.Backend.PollInterval = 30 * time.Second
	}

	if c.Window.Title == "" {
		c.Window.Title = "Reveris Noctis"
	}
	if c.Window.Width == 0 {
		c.Window.Width = 1200
	}
	if c.Window.Height == 0 {
		c.Window.Height = 800
	}

	if c.Logging.Level == "" {
		c.Logging.Level = "info"
	}
	// Set file logging defaults
	if c.Logging.FileEnabled && c.Logging.FilePath == "" {
		c.Logging.FilePath = filepath.Join(getConfigAppDataDir(), "logs", "reveris.log")
	}
	if c.Logging.FileEnabled && c.Logging.MaxFileSize == "" {
		c.Logging.MaxFileSize = "50MB"
	}
	if c.Logging.FileEnabled && c.Logging.MaxFiles == 0 {
		c.Logging.MaxFiles = 10
	}

	if c.History.DatabasePath == "" {
		c.History.DatabasePath = filepath.Join(getConfigAppDataDir(), "data", "reveris.db")
	}
	if c.History.RetentionDays == 0 {
		c.History.RetentionDays = 30
	}
	if c.History.CleanupInterval == 0 {
		c.History.CleanupInterval = 24 * time.Hour
	}

	if c.Timezone == "" {
		c.Timezone = "Asia/Shanghai"
	}
}

// validate validates the configuration
func (c *Config) validate() error {
	u, err := url.Parse(c.Backend.BaseURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return fmt.Errorf("backend base_url must be a valid http(s) URL: %q", c.Backend.BaseURL)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("backend base_url scheme must be http or https, got %q", u.Scheme)
	}

	if !strings.HasPrefix(c.Backend.StatusPath, "/") {
		return fmt.Errorf("backend status_path must start with '/': %q", c.Backend.StatusPath)
	}
	if !strings.HasPrefix(c.Backend.DocsPath, "/") {
		return fmt.Errorf("backend docs_path must start with '/': %q", c.Backend.DocsPath)
	}

	if c.Backend.ProbeTimeout <= 0 {
		return fmt.Errorf("backend probe_timeout must be greater than 0")
	}
	if c.Backend.PollInterval < time.Second {
		return fmt.Errorf("backend poll_interval must be at least 1s")
	}

	if c.Window.Width < 0 || c.Window.Height < 0 {
		return fmt.Errorf("window size must be non-negative")
	}

	switch strings.ToLower(c.Logging.Level) {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("logging level must be one of debug/info/warn/error, got %q", c.Logging.Level)
	}

	if c.History.RetentionDays < 0 {
		return fmt.Errorf("history retention days cannot be negative")
	}
	if c.History.CleanupInterval <= 0 && c.History.RetentionDays > 0 {
		return fmt.Errorf("history cleanup interval must be greater than 0 when retention is enabled")
	}

	return nil
}

// ConfigWatcher handles automatic configuration reloading
type ConfigWatcher struct {
	configPath    string
	config        *Config
	mutex         sync.RWMutex
	watcher       *fsnotify.Watcher
	logger        *slog.Logger
	callbacks     []func(*Config)
	lastModTime   time.Time
	debounceTimer *time.Timer
}

// NewConfigWatcher creates a new configuration watcher
func NewConfigWatcher(configPath string, logger *slog.Logger) (*ConfigWatcher, error) {
	// Load initial configuration
	config, err := LoadConfig(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load initial config: %w", err)
	}

	// Get initial modification time
	fileInfo, err := os.Stat(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to get file info: %w", err)
	}

	// Create file watcher
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create file watcher: %w", err)
	}

	cw := &ConfigWatcher{
		configPath:  configPath,
		config:      config,
		watcher:     watcher,
		logger:      logger,
		callbacks:   make([]func(*Config), 0),
		lastModTime: fileInfo.ModTime(),
	}

	// Add config file to watcher
	if err := watcher.Add(configPath); err != nil {
		watcher.Close()
		return nil, fmt.Errorf("failed to watch config file: %w", err)
	}

	// Start watching in background
	go cw.watchLoop()

	return cw, nil
}

// GetConfig returns the current configuration (thread-safe)
func (cw *ConfigWatcher) GetConfig() *Config {
	cw.mutex.RLock()
	defer cw.mutex.RUnlock()
	return cw.config
}

// UpdateLogger updates the logger used by the config watcher
func (cw *ConfigWatcher) UpdateLogger(logger *slog.Logger) {
	cw.mutex.Lock()
	defer cw.mutex.Unlock()
	cw.logger = logger
}

// AddReloadCallback adds a callback function that will be called when config is reloaded
func (cw *ConfigWatcher) AddReloadCallback(callback func(*Config)) {
	cw.mutex.Lock()
	defer cw.mutex.Unlock()
	cw.callbacks = append(cw.callbacks, callback)
}

// watchLoop monitors the config file for changes
func (cw *ConfigWatcher) watchLoop() {
	for {
		select {
		case event, ok := <-cw.watcher.Events:
			if !ok {
				return
			}

			// Handle file write events
			if event.Has(fsnotify.Write) {
				// Check if file was actually modified by comparing modification time
				fileInfo, err := os.Stat(cw.configPath)
				if err != nil {
					cw.logger.Warn(fmt.Sprintf("⚠️ 无法获取配置文件信息: %v", err))
					continue
				}

				// Skip if modification time hasn't changed
				if !fileInfo.ModTime().After(cw.lastModTime) {
					continue
				}

				cw.lastModTime = fileInfo.ModTime()

				// Cancel any existing debounce timer and set up a new one
				// to avoid multiple rapid reloads. The timer is also stopped
				// from Close, so access goes through the mutex.
				cw.mutex.Lock()
				if cw.debounceTimer != nil {
					cw.debounceTimer.Stop()
				}
				cw.debounceTimer = time.AfterFunc(500*time.Millisecond, func() {
					cw.logger.Info(fmt.Sprintf("🔄 检测到配置文件变更，正在重新加载... - 文件: %s", event.Name))
					if err := cw.reloadConfig(); err != nil {
						cw.logger.Error(fmt.Sprintf("❌ 配置文件重新加载失败: %v", err))
					} else {
						cw.logger.Info("✅ 配置文件重新加载成功")
					}
				})
				cw.mutex.Unlock()
			}

			// Handle file rename/remove events (some editors rename files during save)
			if event.Has(fsnotify.Remove) || event.Has(fsnotify.Rename) {
				// Re-add the file to watcher in case it was recreated
				time.Sleep(100 * time.Millisecond) // Give time for the file to be recreated
				if _, err := os.Stat(cw.configPath); err == nil {
					cw.watcher.Add(cw.configPath)
					cw.logger.Info(fmt.Sprintf("🔄 重新监听配置文件: %s", cw.configPath))
				}
			}

		case err, ok := <-cw.watcher.Errors:
			if !ok {
				return
			}
			cw.logger.Error(fmt.Sprintf("⚠️ 配置文件监听错误: %v", err))
		}
	}
}

// reloadConfig reloads the configuration from file
func (cw *ConfigWatcher) reloadConfig() error {
	newConfig, err := LoadConfig(cw.configPath)
	if err != nil {
		return err
	}

	cw.mutex.Lock()
	oldConfig := cw.config
	cw.config = newConfig
	callbacks := make([]func(*Config), len(cw.callbacks))
	copy(callbacks, cw.callbacks)
	cw.mutex.Unlock()

	// Call all registered callbacks
	for _, callback := range callbacks {
		callback(newConfig)
	}

	// Log configuration changes
	cw.logConfigChanges(oldConfig, newConfig)

	return nil
}

// logConfigChanges logs the key differences between old and new configurations
func (cw *ConfigWatcher) logConfigChanges(oldConfig, newConfig *Config) {
	if oldConfig.Backend.BaseURL != newConfig.Backend.BaseURL {
		cw.logger.Info("🌐 后端地址变更",
			"old_base_url", oldConfig.Backend.BaseURL,
			"new_base_url", newConfig.Backend.BaseURL)
	}

	if oldConfig.Backend.PollInterval != newConfig.Backend.PollInterval {
		cw.logger.Info("🔄 探测间隔变更",
			"old_interval", oldConfig.Backend.PollInterval.String(),
			"new_interval", newConfig.Backend.PollInterval.String())
	}

	if oldConfig.PollEnabled() != newConfig.PollEnabled() {
		cw.logger.Info("🔄 周期探测开关变更",
			"old_enabled", oldConfig.PollEnabled(),
			"new_enabled", newConfig.PollEnabled())
	}

	if oldConfig.HideOnCloseEnabled() != newConfig.HideOnCloseEnabled() {
		cw.logger.Info("🪟 关闭隐藏行为变更",
			"old_enabled", oldConfig.HideOnCloseEnabled(),
			"new_enabled", newConfig.HideOnCloseEnabled())
	}

	if oldConfig.Logging.Level != newConfig.Logging.Level {
		cw.logger.Info("📊 日志级别变更",
			"old_level", oldConfig.Logging.Level,
			"new_level", newConfig.Logging.Level)
	}

	if oldConfig.History.RetentionDays != newConfig.History.RetentionDays {
		cw.logger.Info("📊 历史保留天数变更",
			"old_retention", oldConfig.History.RetentionDays,
			"new_retention", newConfig.History.RetentionDays)
	}

	if oldConfig.Timezone != newConfig.Timezone {
		cw.logger.Info("🌍 全局时区配置变更",
			"old_timezone", oldConfig.Timezone,
			"new_timezone", newConfig.Timezone)
	}
}

// Close stops the configuration watcher
func (cw *ConfigWatcher) Close() error {
	// Cancel any pending debounce timer; the watch goroutine may be
	// replacing it concurrently, so take the mutex.
	cw.mutex.Lock()
	if cw.debounceTimer != nil {
		cw.debounceTimer.Stop()
		cw.debounceTimer = nil
	}
	cw.mutex.Unlock()
	return cw.watcher.Close()
}

// SaveConfig saves configuration to file
func SaveConfig(config *Config, path string) error {
	// Marshal config to YAML
	data, err := yaml.Marshal(config)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	// Ensure directory exists
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create directory: %w", err)
	}

	// Write to file
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// getConfigAppDataDir 获取应用数据目录（跨平台）
// 复制自 internal/utils/appdir.go，避免循环依赖
// Windows: %APPDATA%\Reveris
// macOS: ~/Library/Application Support/Reveris
// Linux: ~/.local/share/reveris
func getConfigAppDataDir() string {
	var baseDir string

	switch runtime.GOOS {
	case "windows":
		baseDir = os.Getenv("APPDATA")
		if baseDir == "" {
			baseDir = filepath.Join(os.Getenv("USERPROFILE"), "AppData", "Roaming")
		}
		return filepath.Join(baseDir, "Reveris")

	case "darwin":
		homeDir, _ := os.UserHomeDir()
		return filepath.Join(homeDir, "Library", "Application Support", "Reveris")

	case "linux":
		homeDir, _ := os.UserHomeDir()
		xdgDataHome := os.Getenv("XDG_DATA_HOME")
		if xdgDataHome != "" {
			return filepath.Join(xdgDataHome, "reveris")
		}
		return filepath.Join(homeDir, ".local", "share", "reveris")

	default:
		homeDir, _ := os.UserHomeDir()
		return filepath.Join(homeDir, ".reveris")
	}
}
