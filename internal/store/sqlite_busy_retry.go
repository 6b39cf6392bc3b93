// SQLITE_BUSY 读重试
package store

import (
	"context"
	"database/sql"
	"strings"
	"time"
)

// 状态轮询落库、清理任务和前端历史查询共用同一个单连接池，
// 写入高峰期读查询可能撞上 SQLITE_BUSY，指数退避后重试。
const (
	busyRetryBaseWait = 30 * time.Millisecond
	busyRetryMaxWait  = 500 * time.Millisecond
)

func isBusyErr(err error) bool {
	if err == nil {
		return false
	}
	// 用消息判断，不耦合驱动的错误类型。
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "sqlite_busy") || strings.Contains(msg, "database is locked")
}

// queryWithBusyRetry 执行读查询，遇 busy 退避重试直到成功或 ctx 结束。
func queryWithBusyRetry(ctx context.Context, queryFn func() (*sql.Rows, error)) (*sql.Rows, error) {
	if ctx == nil {
		return queryFn()
	}

	wait := busyRetryBaseWait
	for {
		rows, err := queryFn()
		if err == nil || !isBusyErr(err) {
			return rows, err
		}

		// 上层已取消/超时：返回最后一次 busy 错误便于诊断。
		if ctx.Err() != nil {
			return nil, err
		}

		timer := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			timer.Stop()
			return nil, err
		case <-timer.C:
		}

		if wait < busyRetryMaxWait {
			wait *= 2
			if wait > busyRetryMaxWait {
				wait = busyRetryMaxWait
			}
		}
	}
}
