package logging

import (
	"fmt"
	"io"
	"log/slog"
	"testing"
)

func newTestBroadcastLogger(capacity int) (*slog.Logger, *BroadcastHandler) {
	inner := slog.NewTextHandler(io.Discard, &slog.HandlerOptions{Level: slog.LevelDebug})
	h := NewBroadcastHandler(inner, nil, capacity)
	return slog.New(h), h
}

func TestBroadcastHandlerRecentEntries(t *testing.T) {
	logger, h := newTestBroadcastLogger(100)

	for i := 0; i < 5; i++ {
		logger.Info(fmt.Sprintf("message-%d", i))
	}

	entries := h.RecentEntries(0)
	if len(entries) != 5 {
		t.Fatalf("应有 5 条日志: got %d", len(entries))
	}
	if entries[0].Message != "message-0" || entries[4].Message != "message-4" {
		t.Errorf("日志顺序错误: first=%q last=%q", entries[0].Message, entries[4].Message)
	}

	last2 := h.RecentEntries(2)
	if len(last2) != 2 || last2[1].Message != "message-4" {
		t.Errorf("RecentEntries(2) 应返回最新两条: %+v", last2)
	}
}

func TestBroadcastHandlerRingOverwrite(t *testing.T) {
	logger, h := newTestBroadcastLogger(3)

	for i := 0; i < 7; i++ {
		logger.Info(fmt.Sprintf("message-%d", i))
	}

	entries := h.RecentEntries(0)
	if len(entries) != 3 {
		t.Fatalf("环形缓冲只应保留 3 条: got %d", len(entries))
	}
	want := []string{"message-4", "message-5", "message-6"}
	for i, w := range want {
		if entries[i].Message != w {
			t.Errorf("entries[%d] = %q, want %q", i, entries[i].Message, w)
		}
	}
}

func TestBroadcastHandlerAttrsAndLevel(t *testing.T) {
	logger, h := newTestBroadcastLogger(10)

	logger.With("component", "tray").Warn("启动失败", "retries", 3)

	entries := h.RecentEntries(0)
	if len(entries) != 1 {
		t.Fatalf("派生 logger 的日志也应进入缓冲: got %d", len(entries))
	}
	if entries[0].Level != "WARN" {
		t.Errorf("级别错误: %q", entries[0].Level)
	}
	// 属性拼接进消息正文。
	if entries[0].Message == "启动失败" {
		t.Errorf("消息应包含属性: %q", entries[0].Message)
	}
}
