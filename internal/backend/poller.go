package backend

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
)

// CheckResult 一次周期探测的结果，带全局唯一 id 便于落库与前端对账。
type CheckResult struct {
	CheckID string    `json:"check_id"`
	Time    time.Time `json:"time"`
	Status  Status    `json:"status"`
	// Source 触发来源：poll（周期探测）或 manual（前端手动刷新）。
	Source string `json:"source"`
}

// Poller 周期性探测后端并上报结果。
type Poller struct {
	client   *Client
	interval time.Duration
	onResult func(res CheckResult)
	logger   *slog.Logger

	stopOnce sync.Once
	stopCh   chan struct{}
	doneCh   chan struct{}
}

// PollerOptions Poller 构造参数。
type PollerOptions struct {
	Client *Client
	// Interval 探测周期，默认 30s。
	Interval time.Duration
	// OnResult 每次探测完成后回调（落库、发事件）。
	OnResult func(res CheckResult)
	Logger   *slog.Logger
}

// NewPoller 创建状态轮询器。
func NewPoller(opts PollerOptions) *Poller {
	if opts.Interval <= 0 {
		opts.Interval = 30 * time.Second
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Poller{
		client:   opts.Client,
		interval: opts.Interval,
		onResult: opts.OnResult,
		logger:   logger,
		stopCh:   make(chan struct{}),
		doneCh:   make(chan struct{}),
	}
}

// Start 启动轮询（非阻塞）。ctx 取消或 Stop 调用后退出。
// 启动后立即做一次探测，不等第一个周期。
func (p *Poller) Start(ctx context.Context) {
	go func() {
		defer close(p.doneCh)

		p.logger.Info("🚀 后端状态轮询已启动", "interval", p.interval.String())

		p.runOnce(ctx)

		ticker := time.NewTicker(p.interval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				p.logger.Info("🔄 后端状态轮询已停止")
				return
			case <-p.stopCh:
				p.logger.Info("🔄 后端状态轮询已停止")
				return
			case <-ticker.C:
				p.runOnce(ctx)
			}
		}
	}()
}

// Stop 停止轮询并等待后台 goroutine 退出。可重复调用。
func (p *Poller) Stop() {
	p.stopOnce.Do(func() { close(p.stopCh) })
	<-p.doneCh
}

// CheckNow 立即执行一次探测（前端手动刷新），同步返回结果。
func (p *Poller) CheckNow(ctx context.Context) CheckResult {
	return p.check(ctx, "manual")
}

func (p *Poller) runOnce(ctx context.Context) {
	res := p.check(ctx, "poll")
	if !res.Status.Reachable {
		p.logger.Debug("⚠️ 后端不可达", "error", res.Status.Error)
	}
}

func (p *Poller) check(ctx context.Context, source string) CheckResult {
	res := CheckResult{
		CheckID: uuid.NewString(),
		Time:    time.Now(),
		Status:  p.client.FetchStatus(ctx),
		Source:  source,
	}
	if p.onResult != nil {
		p.onResult(res)
	}
	return res
}
