package hotkey

import "time"

// DefaultDebounce 同一组合两次触发之间的最小间隔
const DefaultDebounce = 300 * time.Millisecond

// Coalesce 判断本次按键是否应与上一次合并（丢弃）：
// 上一次的动作仍在处理中，或距上次放行不足 window
func Coalesce(last time.Time, pending bool, now time.Time, window time.Duration) bool {
	if pending {
		return true
	}
	if last.IsZero() {
		return false
	}
	return now.Sub(last) < window
}
