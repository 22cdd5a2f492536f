package service

import "time"

// SetClock replaces the time source used by the service.
func (s *VoteService) SetClock(now func() time.Time) {
	s.now = now
}
