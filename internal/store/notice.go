package store

import "time"

// DefaultNoticeDuration is how long the "added" notice stays visible.
const DefaultNoticeDuration = 2000 * time.Millisecond

// Timer is a pending one-shot callback.
type Timer interface {
	// Stop prevents the callback from firing. Returns false if it already fired
	// or was stopped.
	Stop() bool
}

// Scheduler runs f once after d on its own goroutine.
type Scheduler func(d time.Duration, f func()) Timer

func afterFunc(d time.Duration, f func()) Timer {
	return time.AfterFunc(d, f)
}

// showNoticeLocked makes the notice visible and (re)arms its single hide
// timer. Any pending hide is cancelled so the notice stays up for the full
// duration after the most recent add. Callers hold s.mu.
func (s *Store) showNoticeLocked() {
	s.noticeVisible = true
	if s.noticeTimer != nil {
		s.noticeTimer.Stop()
	}
	s.noticeGen++
	gen := s.noticeGen
	s.noticeTimer = s.schedule(s.noticeFor, func() { s.hideNotice(gen) })
}

// hideNotice clears the notice unless a newer add re-armed it after this
// callback was scheduled.
func (s *Store) hideNotice(gen uint64) {
	s.mu.Lock()
	if gen != s.noticeGen || !s.noticeVisible {
		s.mu.Unlock()
		return
	}
	s.noticeVisible = false
	s.noticeTimer = nil
	s.mu.Unlock()

	s.log.Debug("notice hidden")
	s.notify()
}

func (s *Store) stopNoticeLocked() {
	if s.noticeTimer != nil {
		s.noticeTimer.Stop()
		s.noticeTimer = nil
	}
	s.noticeGen++
}
