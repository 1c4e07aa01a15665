package cache

import "time"

// SetNow overrides the clock used for expiry checks. Test hook.
func (m *Memory) SetNow(now func() time.Time) {
	m.now = now
}
