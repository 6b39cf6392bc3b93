package logging

import (
	"context"
	"sync"
	"time"

	"github.com/wailsapp/wails/v2/pkg/runtime"
)

// 前端日志页通过 "log:batch" 事件接收日志。单条推送在日志密集时
// 会压垮 Wails 的事件桥，所以按批发送：攒够一批或到刷新周期就发。
const (
	logBatchEventName = "log:batch"
	logBatchSize      = 10
	logFlushInterval  = 100 * time.Millisecond
	logQueueCapacity  = 2048
)

// EventEmitter 把日志批量推送到前端日志页。
// 窗口未就绪时不推送；队列满时丢弃，优先保住 WARN/ERROR。
type EventEmitter struct {
	mu sync.Mutex

	queue    chan LogEntry
	stopChan chan struct{}
	doneChan chan struct{}
}

// NewEventEmitter 创建事件发射器
func NewEventEmitter() *EventEmitter {
	return &EventEmitter{}
}

// Start 启动批量推送。在 Wails domReady 后调用，ctx 用于 EventsEmit。
func (e *EventEmitter) Start(ctx context.Context) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.queue != nil {
		return // 已启动
	}

	// 有界队列：前端消费慢时不能拖住日志主路径
	e.queue = make(chan LogEntry, logQueueCapacity)
	e.stopChan = make(chan struct{})
	e.doneChan = make(chan struct{})

	go e.flushLoop(ctx, e.queue, e.stopChan, e.doneChan)
}

// Stop 停止推送并等待剩余日志刷完
func (e *EventEmitter) Stop() {
	e.mu.Lock()
	stopChan, doneChan := e.stopChan, e.doneChan
	e.queue = nil
	e.stopChan = nil
	e.doneChan = nil
	e.mu.Unlock()

	if stopChan == nil {
		return
	}
	close(stopChan)
	<-doneChan
}

// Emit 排队一条日志。永不阻塞调用方：队列满时丢弃，
// WARN/ERROR 会先挤掉一条旧日志再尝试入队。
func (e *EventEmitter) Emit(entry LogEntry) {
	e.mu.Lock()
	queue := e.queue
	e.mu.Unlock()
	if queue == nil {
		return
	}

	select {
	case queue <- entry:
		return
	default:
	}

	if entry.Level != "WARN" && entry.Level != "ERROR" {
		return
	}
	select {
	case <-queue:
	default:
	}
	select {
	case queue <- entry:
	default:
	}
}

func (e *EventEmitter) flushLoop(ctx context.Context, queue <-chan LogEntry, stop <-chan struct{}, done chan<- struct{}) {
	defer close(done)

	ticker := time.NewTicker(logFlushInterval)
	defer ticker.Stop()

	batch := make([]LogEntry, 0, logBatchSize)
	flush := func() {
		if len(batch) == 0 {
			return
		}
		// EventsEmit 异步序列化载荷，发送后不能复用切片，拷一份。
		out := make([]LogEntry, len(batch))
		copy(out, batch)
		runtime.EventsEmit(ctx, logBatchEventName, out)
		batch = batch[:0]
	}

	for {
		select {
		case entry := <-queue:
			batch = append(batch, entry)
			if len(batch) >= logBatchSize {
				flush()
			}
		case <-ticker.C:
			flush()
		case <-stop:
			// 退出前把队列里剩余的日志刷完（不阻塞）
			for {
				select {
				case entry := <-queue:
					batch = append(batch, entry)
					if len(batch) >= logBatchSize {
						flush()
					}
				default:
					flush()
					return
				}
			}
		}
	}
}
