package sequencer

import (
	"sort"
	"sync"
	"time"

	"zynseq/midi"
)

// lockRetries/lockBackoff bound how long the realtime path will spin
// waiting for the scheduler mutex before giving up on this period's
// drain, per the busy-wait contract in §4.7/§5.
const (
	lockRetries = 50
	lockBackoff = 10 * time.Microsecond
)

// Scheduler is a sample-timestamped multimap of pending MIDI
// messages: the sole structure shared between control threads (which
// insert) and the realtime callback (which drains). It is guarded by
// a plain mutex; the realtime side never blocks on it indefinitely -
// see TryLock.
type Scheduler struct {
	mu      sync.Mutex
	entries map[int64][]midi.Message
	keys    []int64 // kept sorted; entries[k] non-empty iff k is present here
}

// NewScheduler creates an empty schedule.
func NewScheduler() *Scheduler {
	return &Scheduler{entries: make(map[int64][]midi.Message)}
}

// InsertAt queues msg for delivery at the given absolute sample frame.
// Used by Sequence.Clock for scheduled note-on/off/control events.
func (s *Scheduler) InsertAt(frame int64, msg midi.Message) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.insertLocked(frame, msg)
}

// InsertNextFree queues msg at the earliest unused integer slot
// starting at 0, for immediate (non-transport-timed) messages such as
// a direct playNote call or a live-input echo.
func (s *Scheduler) InsertNextFree(msg midi.Message) int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	var t int64
	for {
		if _, ok := s.entries[t]; !ok {
			break
		}
		t++
	}
	s.insertLocked(t, msg)
	return t
}

func (s *Scheduler) insertLocked(frame int64, msg midi.Message) {
	if _, ok := s.entries[frame]; !ok {
		idx := sort.Search(len(s.keys), func(i int) bool { return s.keys[i] > frame })
		s.keys = append(s.keys, 0)
		copy(s.keys[idx+1:], s.keys[idx:])
		s.keys[idx] = frame
	}
	s.entries[frame] = append(s.entries[frame], msg)
}

// TryLock attempts to acquire the scheduler for up to lockRetries
// short sleeps, mirroring the bounded busy-wait the original engine
// used in place of a blocking mutex on the realtime thread. It
// returns false if the lock could not be acquired in time, in which
// case the caller should skip its drain for this period.
func (s *Scheduler) TryLock() bool {
	for i := 0; i < lockRetries; i++ {
		if s.mu.TryLock() {
			return true
		}
		time.Sleep(lockBackoff)
	}
	return false
}

func (s *Scheduler) Unlock() { s.mu.Unlock() }

// Reserver reports whether the host's output buffer accepted a
// message reserved at the given in-period sample offset. It returns
// false when the buffer is full, at which point Drain stops early and
// leaves the remaining entries queued for the next period.
type Reserver func(offset uint32, msg midi.Message) bool

// Drain removes and delivers every entry with a key in
// [now, now+framesInPeriod), in ascending key order, calling reserve
// for each with an offset clamped to be non-decreasing across the
// call (the monotonic-bump rule in §4.7). Entries scheduled in the
// past are delivered as early as the buffer allows. Drain must be
// called with the scheduler already locked via TryLock; it does not
// lock itself, since the caller needs the bounded-wait semantics.
func (s *Scheduler) Drain(now int64, framesInPeriod uint32, reserve Reserver) {
	var nextOffset uint32
	consumed := 0
	for _, key := range s.keys {
		if key >= now+int64(framesInPeriod) {
			break
		}
		var offset uint32
		if key < now {
			offset = nextOffset
		} else {
			offset = uint32(key - now)
			if offset < nextOffset {
				offset = nextOffset
			}
		}
		if offset >= framesInPeriod {
			break // bumped beyond this period; retry next time
		}
		msgs := s.entries[key]
		delivered := 0
		for _, msg := range msgs {
			if !reserve(offset, msg) {
				break
			}
			delivered++
			nextOffset = offset + 1
		}
		if delivered < len(msgs) {
			// Buffer rejected a reservation: keep what's left, stop.
			s.entries[key] = msgs[delivered:]
			break
		}
		delete(s.entries, key)
		consumed++
	}
	if consumed > 0 {
		s.keys = s.keys[consumed:]
	}
}

// Len returns the number of distinct scheduled frames (for tests and
// diagnostics).
func (s *Scheduler) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.keys)
}
