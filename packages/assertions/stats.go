package assertions

import "sync/atomic"

// Stats counts evaluated assertions. One Stats may be shared by every
// environment of a run.
type Stats struct {
	passed atomic.Int64
	failed atomic.Int64
}

func (s *Stats) Passed() int64 { return s.passed.Load() }

func (s *Stats) Failed() int64 { return s.failed.Load() }

func (s *Stats) Total() int64 { return s.Passed() + s.Failed() }

func (s *Stats) Reset() {
	s.passed.Store(0)
	s.failed.Store(0)
}

func (s *Stats) record(o Outcome) {
	if s == nil {
		return
	}
	if o.Passed {
		s.passed.Add(1)
	} else {
		s.failed.Add(1)
	}
}
