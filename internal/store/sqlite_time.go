// DATETIME 列的读回解析
package store

import (
	"strings"
	"time"
)

// parseStoredTime 解析数据库读回的时间字符串。
//
// 同一个 DATETIME 列会以两种形态读回：
//   - modernc/sqlite 驱动对声明为 DATETIME 的列在扫描时还原成 time.Time，
//     database/sql 扫描进 string 目标时再格式化为 RFC3339（带 'T' 与 'Z'/偏移）；
//   - 应用自己写入的 "2006-01-02 15:04:05.000" UTC 文本与
//     CURRENT_TIMESTAMP 默认值（空格分隔，无时区）。
//
// 两种形态都必须能读回，否则 checked_at / created_at 全部归零。
func parseStoredTime(value string) time.Time {
	value = strings.TrimSpace(value)
	if value == "" {
		return time.Time{}
	}

	// RFC3339 形态（驱动还原路径）
	if strings.ContainsRune(value, 'T') {
		if t, err := time.Parse(time.RFC3339Nano, value); err == nil {
			return t
		}
	}

	// 空格分隔的 SQLite 文本形态。无时区的值按 UTC 解读，
	// 与写入侧的 UTC 格式化和 CURRENT_TIMESTAMP 的 UTC 语义一致。
	for _, layout := range []string{
		"2006-01-02 15:04:05.999999999-07:00",
		"2006-01-02 15:04:05.999999999",
		"2006-01-02 15:04:05",
	} {
		if t, err := time.ParseInLocation(layout, value, time.UTC); err == nil {
			return t
		}
	}

	// 兜底：空格分隔但带时区后缀的写法，换成 'T' 再按 RFC3339 解析。
	if i := strings.IndexByte(value, ' '); i > 0 {
		if t, err := time.Parse(time.RFC3339Nano, value[:i]+"T"+value[i+1:]); err == nil {
			return t
		}
	}

	return time.Time{}
}
