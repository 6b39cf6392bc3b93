package logging

import (
	"compress/gzip"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"
)

// FileRotator 按大小轮转的日志文件写入器。
// 实现 io.Writer，可直接作为 slog handler 的输出目标。
type FileRotator struct {
	mu sync.Mutex

	path     string
	maxSize  int64
	maxFiles int
	compress bool

	file *os.File
	size int64
}

// NewFileRotator 创建日志轮转器并打开（或创建）日志文件。
// maxSize 为单文件大小上限（字节），maxFiles 为保留的轮转文件数。
func NewFileRotator(path string, maxSize int64, maxFiles int, compress bool) (*FileRotator, error) {
	if maxSize <= 0 {
		maxSize = 50 * 1024 * 1024
	}
	if maxFiles <= 0 {
		maxFiles = 10
	}

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("failed to create log directory: %w", err)
	}

	r := &FileRotator{
		path:     path,
		maxSize:  maxSize,
		maxFiles: maxFiles,
		compress: compress,
	}
	if err := r.open(); err != nil {
		return nil, err
	}
	return r, nil
}

func (r *FileRotator) open() error {
	file, err := os.OpenFile(r.path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return fmt.Errorf("failed to open log file: %w", err)
	}
	info, err := file.Stat()
	if err != nil {
		file.Close()
		return fmt.Errorf("failed to stat log file: %w", err)
	}
	r.file = file
	r.size = info.Size()
	return nil
}

// Write 写入日志，超过大小上限时先轮转再写。
func (r *FileRotator) Write(p []byte) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.file == nil {
		return 0, os.ErrClosed
	}

	if r.size+int64(len(p)) > r.maxSize && r.size > 0 {
		if err := r.rotate(); err != nil {
			// 轮转失败继续写当前文件，日志不能因轮转丢失。
			fmt.Fprintf(os.Stderr, "log rotate failed: %v\n", err)
		}
	}

	n, err := r.file.Write(p)
	r.size += int64(n)
	return n, err
}

// Sync 把缓冲数据刷到磁盘。
func (r *FileRotator) Sync() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.file == nil {
		return nil
	}
	return r.file.Sync()
}

// Close 关闭当前日志文件。
func (r *FileRotator) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.file == nil {
		return nil
	}
	err := r.file.Close()
	r.file = nil
	return err
}

// rotate 当前文件改名为带时间戳的历史文件，重新打开新文件。
// 调用方必须持有 r.mu。
func (r *FileRotator) rotate() error {
	if err := r.file.Close(); err != nil {
		return err
	}
	r.file = nil

	rotated := fmt.Sprintf("%s.%s", r.path, time.Now().Format("20060102-150405.000"))
	if err := os.Rename(r.path, rotated); err != nil {
		// 改名失败也要恢复写入。
		_ = r.open()
		return err
	}

	if r.compress {
		// 压缩放后台做，避免阻塞日志写入。
		go compressFile(rotated)
	}

	r.pruneOldFiles()

	return r.open()
}

// pruneOldFiles 删除超出 maxFiles 的最旧历史文件。
func (r *FileRotator) pruneOldFiles() {
	pattern := r.path + ".*"
	matches, err := filepath.Glob(pattern)
	if err != nil || len(matches) <= r.maxFiles {
		return
	}

	// 文件名带时间戳，字典序即时间序。
	sort.Strings(matches)
	for _, old := range matches[:len(matches)-r.maxFiles] {
		os.Remove(old)
	}
}

func compressFile(path string) {
	src, err := os.Open(path)
	if err != nil {
		return
	}

	dst, err := os.Create(path + ".gz")
	if err != nil {
		src.Close()
		return
	}

	gw := gzip.NewWriter(dst)
	_, copyErr := io.Copy(gw, src)
	closeErr := gw.Close()
	dst.Close()
	src.Close()

	if copyErr == nil && closeErr == nil {
		os.Remove(path)
	} else {
		os.Remove(path + ".gz")
	}
}

// ParseSize 解析 "100MB"、"1GB"、"512KB" 这类大小字符串，返回字节数。
func ParseSize(s string) (int64, error) {
	s = strings.TrimSpace(strings.ToUpper(s))
	if s == "" {
		return 0, fmt.Errorf("empty size string")
	}

	multiplier := int64(1)
	switch {
	case strings.HasSuffix(s, "GB"):
		multiplier = 1024 * 1024 * 1024
		s = strings.TrimSuffix(s, "GB")
	case strings.HasSuffix(s, "MB"):
		multiplier = 1024 * 1024
		s = strings.TrimSuffix(s, "MB")
	case strings.HasSuffix(s, "KB"):
		multiplier = 1024
		s = strings.TrimSuffix(s, "KB")
	case strings.HasSuffix(s, "B"):
		s = strings.TrimSuffix(s, "B")
	}

	value, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil {
		return 0, fmt.Errorf("invalid size string: %q", s)
	}
	if value <= 0 {
		return 0, fmt.Errorf("size must be positive: %v", value)
	}

	return int64(value * float64(multiplier)), nil
}
