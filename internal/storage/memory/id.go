package memory

import "sync/atomic"

// sequence hands out identity-column style ids starting at 1.
type sequence struct {
	last atomic.Int64
}

func (s *sequence) next() int64 {
	return s.last.Add(1)
}
