// Package utils 提供通用工具函数
package utils

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"
)

// GetAppDataDir 获取应用数据目录（跨平台）
// Windows: %APPDATA%\Reveris
// macOS: ~/Library/Application Support/Reveris
// Linux: ~/.local/share/reveris
func GetAppDataDir() string {
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

// GetDataDir 获取数据库等数据文件目录
func GetDataDir() string {
	return filepath.Join(GetAppDataDir(), "data")
}

// GetLogDir 获取日志文件目录
func GetLogDir() string {
	return filepath.Join(GetAppDataDir(), "logs")
}

// GetConfigPath 获取配置文件路径
func GetConfigPath() string {
	return filepath.Join(GetAppDataDir(), "config.yaml")
}

// EnsureAppDirs 创建应用所需的全部目录（幂等）
func EnsureAppDirs() error {
	dirs := []string{
		GetAppDataDir(),
		GetDataDir(),
		GetLogDir(),
	}
	for _, dir := range dirs {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("创建目录失败 %s: %w", dir, err)
		}
	}
	return nil
}
