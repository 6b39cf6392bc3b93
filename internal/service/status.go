// 状态历史服务
package service

import (
	"context"
	"log/slog"
	"time"

	"reveris-desktop/internal/backend"
	"reveris-desktop/internal/store"
)

// StatusService 后端状态历史的业务服务：
// 落库、查询、可用性汇总、按保留策略清理。
type StatusService struct {
	store  store.StatusHistoryStore
	logger *slog.Logger
}

// NewStatusService 创建状态服务实例
func NewStatusService(historyStore store.StatusHistoryStore, logger *slog.Logger) *StatusService {
	if logger == nil {
		logger = slog.Default()
	}
	return &StatusService{store: historyStore, logger: logger}
}

// RecordCheck 把一次探测结果写入历史。
func (s *StatusService) RecordCheck(ctx context.Context, res backend.CheckResult) error {
	record := &store.StatusCheckRecord{
		CheckID:   res.CheckID,
		CheckedAt: res.Time,
		Reachable: res.Status.Reachable,
		Healthy:   res.Status.Healthy,
		CeleryOK:  res.Status.CeleryOK,
		Jobs:      res.Status.Counts.Jobs,
		Plugins:   res.Status.Counts.Plugins,
		Events:    res.Status.Counts.Events,
		LatencyMS: res.Status.LatencyMS,
		Source:    res.Source,
		Error:     res.Status.Error,
	}

	if err := s.store.Insert(ctx, record); err != nil {
		s.logger.Warn("⚠️ 状态检查记录落库失败", "check_id", res.CheckID, "error", err)
		return err
	}
	return nil
}

// RecentChecks 返回最近的检查记录（时间倒序）。
func (s *StatusService) RecentChecks(ctx context.Context, limit int) ([]*store.StatusCheckRecord, error) {
	return s.store.ListRecent(ctx, limit)
}

// LatestCheck 返回最新一条检查记录，无记录时返回 nil。
func (s *StatusService) LatestCheck(ctx context.Context) (*store.StatusCheckRecord, error) {
	return s.store.Latest(ctx)
}

// Summary 返回时间窗口内的可用性汇总。
func (s *StatusService) Summary(ctx context.Context, window time.Duration) (*store.StatusSummary, error) {
	return s.store.Summary(ctx, window)
}

// Purge 删除超出保留天数的记录。retentionDays <= 0 表示永久保留。
func (s *StatusService) Purge(ctx context.Context, retentionDays int) (int64, error) {
	if retentionDays <= 0 {
		return 0, nil
	}

	cutoff := time.Now().AddDate(0, 0, -retentionDays)
	deleted, err := s.store.PurgeOlderThan(ctx, cutoff)
	if err != nil {
		return 0, err
	}
	if deleted > 0 {
		s.logger.Info("📊 已清理过期状态检查记录", "deleted", deleted, "retention_days", retentionDays)
	}
	return deleted, nil
}

// StartCleanupLoop 启动后台清理任务，ctx 取消后退出。
// retentionDays 由回调提供，清理周期内的设置变更即时生效。
func (s *StatusService) StartCleanupLoop(ctx context.Context, interval time.Duration, retentionDays func() int) {
	if interval <= 0 {
		interval = 24 * time.Hour
	}

	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				if _, err := s.Purge(ctx, retentionDays()); err != nil {
					s.logger.Warn("⚠️ 状态历史清理失败", "error", err)
				}
			}
		}
	}()
}
