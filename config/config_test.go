package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func writeTestConfig(t *testing.T, content string) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("写入测试配置失败: %v", err)
	}
	return path
}

func TestLoadConfigDefaults(t *testing.T) {
	path := writeTestConfig(t, "backend:\n  base_url: http://localhost:8000\n")

	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("加载配置失败: %v", err)
	}

	if cfg.Backend.StatusPath != "/status" {
		t.Errorf("status_path 默认值错误: %q", cfg.Backend.StatusPath)
	}
	if cfg.Backend.DocsPath != "/docs" {
		t.Errorf("docs_path 默认值错误: %q", cfg.Backend.DocsPath)
	}
	if cfg.Backend.ProbeTimeout != 10*time.Second {
		t.Errorf("probe_timeout 默认值错误: %v", cfg.Backend.ProbeTimeout)
	}
	if cfg.Backend.PollInterval != 30*time.Second {
		t.Errorf("poll_interval 默认值错误: %v", cfg.Backend.PollInterval)
	}
	if !cfg.PollEnabled() {
		t.Error("周期探测默认应启用")
	}
	if !cfg.HideOnCloseEnabled() {
		t.Error("关闭隐藏默认应启用")
	}
	if cfg.Window.Title != "Reveris Noctis" {
		t.Errorf("窗口标题默认值错误: %q", cfg.Window.Title)
	}
	if cfg.Logging.Level != "info" {
		t.Errorf("日志级别默认值错误: %q", cfg.Logging.Level)
	}
	if cfg.History.RetentionDays != 30 {
		t.Errorf("历史保留天数默认值错误: %d", cfg.History.RetentionDays)
	}
	if cfg.Timezone != "Asia/Shanghai" {
		t.Errorf("时区默认值错误: %q", cfg.Timezone)
	}
}

func TestLoadConfigEmptyFileUsesAllDefaults(t *testing.T) {
	path := writeTestConfig(t, "")

	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("空配置文件应该可加载: %v", err)
	}
	if cfg.Backend.BaseURL != "http://localhost:8000" {
		t.Errorf("base_url 默认值错误: %q", cfg.Backend.BaseURL)
	}
}

func TestLoadConfigURLHelpers(t *testing.T) {
	path := writeTestConfig(t, "backend:\n  base_url: http://127.0.0.1:9000/\n")

	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("加载配置失败: %v", err)
	}
	if got := cfg.StatusURL(); got != "http://127.0.0.1:9000/status" {
		t.Errorf("StatusURL 拼接错误: %q", got)
	}
	if got := cfg.DocsURL(); got != "http://127.0.0.1:9000/docs" {
		t.Errorf("DocsURL 拼接错误: %q", got)
	}
}

func TestLoadConfigExplicitFalseFlags(t *testing.T) {
	path := writeTestConfig(t, `
backend:
  poll_enabled: false
window:
  hide_on_close: false
`)

	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("加载配置失败: %v", err)
	}
	if cfg.PollEnabled() {
		t.Error("显式关闭的周期探测不应被默认值覆盖")
	}
	if cfg.HideOnCloseEnabled() {
		t.Error("显式关闭的关闭隐藏不应被默认值覆盖")
	}
}

func TestLoadConfigValidation(t *testing.T) {
	cases := []struct {
		name    string
		content string
	}{
		{"非法后端地址", "backend:\n  base_url: not-a-url\n"},
		{"非法协议", "backend:\n  base_url: ftp://localhost:8000\n"},
		{"status_path 缺少斜杠", "backend:\n  status_path: status\n"},
		{"探测间隔过短", "backend:\n  poll_interval: 100ms\n"},
		{"非法日志级别", "logging:\n  level: verbose\n"},
		{"负的保留天数", "history:\n  retention_days: -1\n"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			path := writeTestConfig(t, tc.content)
			if _, err := LoadConfig(path); err == nil {
				t.Fatalf("非法配置应该报错: %s", tc.content)
			}
		})
	}
}

func TestLoadConfigMissingFile(t *testing.T) {
	if _, err := LoadConfig(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Fatal("不存在的配置文件应该报错")
	}
}

func TestSaveConfigRoundTrip(t *testing.T) {
	path := writeTestConfig(t, "backend:\n  base_url: http://localhost:8000\n")

	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("加载配置失败: %v", err)
	}

	cfg.Backend.PollInterval = 5 * time.Second
	out := filepath.Join(t.TempDir(), "nested", "config.yaml")
	if err := SaveConfig(cfg, out); err != nil {
		t.Fatalf("保存配置失败: %v", err)
	}

	reloaded, err := LoadConfig(out)
	if err != nil {
		t.Fatalf("重新加载配置失败: %v", err)
	}
	if reloaded.Backend.PollInterval != 5*time.Second {
		t.Errorf("poll_interval 未保存: %v", reloaded.Backend.PollInterval)
	}
}

func TestConfigWatcherReload(t *testing.T) {
	path := writeTestConfig(t, "backend:\n  base_url: http://localhost:8000\n")

	logger := newDiscardLogger()
	cw, err := NewConfigWatcher(path, logger)
	if err != nil {
		t.Fatalf("创建配置监听器失败: %v", err)
	}
	defer cw.Close()

	reloaded := make(chan *Config, 1)
	cw.AddReloadCallback(func(c *Config) {
		select {
		case reloaded <- c:
		default:
		}
	})

	// 确保修改时间前进（部分文件系统精度为秒）。
	time.Sleep(1100 * time.Millisecond)
	if err := os.WriteFile(path, []byte("backend:\n  base_url: http://localhost:9001\n"), 0644); err != nil {
		t.Fatalf("改写配置失败: %v", err)
	}

	select {
	case c := <-reloaded:
		if c.Backend.BaseURL != "http://localhost:9001" {
			t.Errorf("重载后的配置不正确: %q", c.Backend.BaseURL)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("等待配置重载超时")
	}

	if got := cw.GetConfig().Backend.BaseURL; got != "http://localhost:9001" {
		t.Errorf("GetConfig 未返回新配置: %q", got)
	}
}

func TestConfigWatcherCloseWhileReloadPending(t *testing.T) {
	path := writeTestConfig(t, "backend:\n  base_url: http://localhost:8000\n")

	cw, err := NewConfigWatcher(path, newDiscardLogger())
	if err != nil {
		t.Fatalf("创建配置监听器失败: %v", err)
	}

	// 触发写事件后立刻关闭：watch goroutine 还在装防抖定时器，
	// Close 同时停掉它，-race 下不允许有数据竞争。
	time.Sleep(1100 * time.Millisecond)
	if err := os.WriteFile(path, []byte("backend:\n  base_url: http://localhost:9002\n"), 0644); err != nil {
		t.Fatalf("改写配置失败: %v", err)
	}
	if err := cw.Close(); err != nil {
		t.Fatalf("关闭监听器失败: %v", err)
	}
}
