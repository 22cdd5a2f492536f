package ratelimit

import "time"

// SetClock replaces the middleware's time source.
func (m *Middleware) SetClock(now func() time.Time) {
	m.now = now
}
