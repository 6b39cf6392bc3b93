package backend

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"
)

const (
	// StatusRunning 后端可达时返回给前端的提示文案（对外契约，保持稳定）。
	StatusRunning = "Backend is running"
	// StatusNotRunning 任何传输层失败统一折叠成这一条提示。
	StatusNotRunning = "Backend is not running"
)

// ErrNotRunning 所有传输层失败对外只暴露这一个错误。
var ErrNotRunning = errors.New(StatusNotRunning)

// Client 后端 HTTP 探测客户端。只做可达性探测与 /status 读取，
// 不承载任何业务请求。
type Client struct {
	baseURL    string
	statusPath string
	docsPath   string
	httpClient *http.Client
	logger     *slog.Logger
}

// ClientOptions Client 构造参数。零值字段使用默认值。
type ClientOptions struct {
	// BaseURL 后端地址，默认 http://localhost:8000。
	BaseURL string
	// StatusPath 健康检查路径，默认 /status。
	StatusPath string
	// DocsPath API 文档路径，默认 /docs。
	DocsPath string
	// Timeout 单次探测超时，默认 10s。
	Timeout time.Duration
	Logger  *slog.Logger
}

// NewClient 创建后端探测客户端。
func NewClient(opts ClientOptions) *Client {
	if opts.BaseURL == "" {
		opts.BaseURL = "http://localhost:8000"
	}
	if opts.StatusPath == "" {
		opts.StatusPath = "/status"
	}
	if opts.DocsPath == "" {
		opts.DocsPath = "/docs"
	}
	if opts.Timeout <= 0 {
		opts.Timeout = 10 * time.Second
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Client{
		baseURL:    strings.TrimRight(opts.BaseURL, "/"),
		statusPath: opts.StatusPath,
		docsPath:   opts.DocsPath,
		httpClient: &http.Client{Timeout: opts.Timeout},
		logger:     logger,
	}
}

// StatusURL 健康检查完整地址。
func (c *Client) StatusURL() string {
	return c.baseURL + c.statusPath
}

// DocsURL API 文档完整地址。
func (c *Client) DocsURL() string {
	return c.baseURL + c.docsPath
}

// Probe 探测后端是否可达。语义刻意宽松：
// 只要收到任意 HTTP 响应（含 4xx/5xx）就算“运行中”；
// 连接拒绝、超时、DNS 失败等传输层错误统一折叠为一个固定错误，
// 不向调用方泄露底层细节。
func (c *Client) Probe(ctx context.Context) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.StatusURL(), nil)
	if err != nil {
		return "", ErrNotRunning
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.logger.Debug("🔄 后端探测失败", "url", c.StatusURL(), "error", err)
		return "", ErrNotRunning
	}
	defer resp.Body.Close()
	// 排空响应体以便连接复用，内容本身不参与判定。
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 64*1024))

	return StatusRunning, nil
}

// StatusCounts /status 返回的资源计数。
type StatusCounts struct {
	Jobs    int `json:"jobs"`
	Plugins int `json:"plugins"`
	Events  int `json:"events"`
}

// Status 后端 /status 的结构化视图。Reachable=false 时其余字段无效。
type Status struct {
	Reachable bool         `json:"reachable"`
	Healthy   bool         `json:"healthy"`
	CeleryOK  bool         `json:"celery_ok"`
	Counts    StatusCounts `json:"counts"`
	LatencyMS int64        `json:"latency_ms"`
	Error     string       `json:"error,omitempty"`
}

// FetchStatus 读取并解码 /status。与 Probe 不同，这里解析响应体，
// 供应用内状态页展示细节；解码失败仅视为“可达但不健康”。
func (c *Client) FetchStatus(ctx context.Context) Status {
	start := time.Now()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.StatusURL(), nil)
	if err != nil {
		return Status{Error: err.Error()}
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return Status{Error: StatusNotRunning, LatencyMS: time.Since(start).Milliseconds()}
	}
	defer resp.Body.Close()

	st := Status{
		Reachable: true,
		LatencyMS: time.Since(start).Milliseconds(),
	}

	var payload struct {
		Healthy  bool         `json:"healthy"`
		CeleryOK bool         `json:"celery_ok"`
		Counts   StatusCounts `json:"counts"`
	}
	if err := json.NewDecoder(io.LimitReader(resp.Body, 1<<20)).Decode(&payload); err != nil {
		st.Error = "invalid status payload"
		return st
	}

	st.Healthy = payload.Healthy
	st.CeleryOK = payload.CeleryOK
	st.Counts = payload.Counts
	return st
}
