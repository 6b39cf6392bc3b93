package logging

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
)

// LogEntry 推送给前端的单条日志。
type LogEntry struct {
	Time    string `json:"time"`    // 格式化时间（本地时区）
	Level   string `json:"level"`   // DEBUG/INFO/WARN/ERROR
	Message string `json:"message"` // 消息正文（含拼接后的属性）
}

// BroadcastHandler 在基础 handler 之外，把日志同时写入内存环形缓冲
// 并推送给 EventEmitter（前端日志页）。
// 缓冲固定容量，写满后覆盖最旧的一条。
type BroadcastHandler struct {
	inner   slog.Handler
	emitter *EventEmitter

	mu      sync.Mutex
	entries []LogEntry
	next    int
	full    bool
}

// NewBroadcastHandler 创建广播 handler。capacity <= 0 时使用 1000。
func NewBroadcastHandler(inner slog.Handler, emitter *EventEmitter, capacity int) *BroadcastHandler {
	if capacity <= 0 {
		capacity = 1000
	}
	return &BroadcastHandler{
		inner:   inner,
		emitter: emitter,
		entries: make([]LogEntry, capacity),
	}
}

func (h *BroadcastHandler) Enabled(ctx context.Context, level slog.Level) bool {
	return h.inner.Enabled(ctx, level)
}

func (h *BroadcastHandler) Handle(ctx context.Context, record slog.Record) error {
	entry := LogEntry{
		Time:    record.Time.Format("2006-01-02 15:04:05.000"),
		Level:   record.Level.String(),
		Message: formatMessage(record),
	}

	h.mu.Lock()
	h.entries[h.next] = entry
	h.next++
	if h.next == len(h.entries) {
		h.next = 0
		h.full = true
	}
	h.mu.Unlock()

	if h.emitter != nil {
		h.emitter.Emit(entry)
	}

	return h.inner.Handle(ctx, record)
}

func (h *BroadcastHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	// 环形缓冲在派生 handler 间共享，只替换内部 handler。
	return &sharedBroadcastHandler{parent: h, inner: h.inner.WithAttrs(attrs)}
}

func (h *BroadcastHandler) WithGroup(name string) slog.Handler {
	return &sharedBroadcastHandler{parent: h, inner: h.inner.WithGroup(name)}
}

// RecentEntries 返回最近的 n 条日志（时间正序）。n <= 0 返回全部。
func (h *BroadcastHandler) RecentEntries(n int) []LogEntry {
	h.mu.Lock()
	defer h.mu.Unlock()

	var ordered []LogEntry
	if h.full {
		ordered = make([]LogEntry, 0, len(h.entries))
		ordered = append(ordered, h.entries[h.next:]...)
		ordered = append(ordered, h.entries[:h.next]...)
	} else {
		ordered = make([]LogEntry, h.next)
		copy(ordered, h.entries[:h.next])
	}

	if n > 0 && len(ordered) > n {
		ordered = ordered[len(ordered)-n:]
	}
	return ordered
}

// sharedBroadcastHandler WithAttrs/WithGroup 的派生 handler，
// 广播仍走原始 handler 的缓冲与 emitter。
type sharedBroadcastHandler struct {
	parent *BroadcastHandler
	inner  slog.Handler
}

func (h *sharedBroadcastHandler) Enabled(ctx context.Context, level slog.Level) bool {
	return h.inner.Enabled(ctx, level)
}

func (h *sharedBroadcastHandler) Handle(ctx context.Context, record slog.Record) error {
	entry := LogEntry{
		Time:    record.Time.Format("2006-01-02 15:04:05.000"),
		Level:   record.Level.String(),
		Message: formatMessage(record),
	}

	h.parent.mu.Lock()
	h.parent.entries[h.parent.next] = entry
	h.parent.next++
	if h.parent.next == len(h.parent.entries) {
		h.parent.next = 0
		h.parent.full = true
	}
	h.parent.mu.Unlock()

	if h.parent.emitter != nil {
		h.parent.emitter.Emit(entry)
	}

	return h.inner.Handle(ctx, record)
}

func (h *sharedBroadcastHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return &sharedBroadcastHandler{parent: h.parent, inner: h.inner.WithAttrs(attrs)}
}

func (h *sharedBroadcastHandler) WithGroup(name string) slog.Handler {
	return &sharedBroadcastHandler{parent: h.parent, inner: h.inner.WithGroup(name)}
}

func formatMessage(record slog.Record) string {
	msg := record.Message
	record.Attrs(func(a slog.Attr) bool {
		msg += fmt.Sprintf(" %s=%v", a.Key, a.Value)
		return true
	})
	return msg
}

var _ slog.Handler = (*BroadcastHandler)(nil)
var _ slog.Handler = (*sharedBroadcastHandler)(nil)
