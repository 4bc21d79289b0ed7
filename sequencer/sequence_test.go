package sequencer

import "testing"

type mapLookup map[int]*Pattern

func (m mapLookup) Pattern(id int) *Pattern { return m[id] }

func TestAddPatternRejectsOverlapWithoutForce(t *testing.T) {
	lookup := mapLookup{1: NewPattern(4, 4), 2: NewPattern(4, 4)}
	s := NewSequence()

	if !s.AddPattern(0, 1, lookup, false) {
		t.Fatalf("first placement should succeed")
	}
	if s.AddPattern(50, 2, lookup, false) {
		t.Fatalf("overlapping placement should be rejected without force")
	}
	if s.LengthInClocks() != lookup[1].Length() {
		t.Fatalf("length = %d, want %d", s.LengthInClocks(), lookup[1].Length())
	}
}

func TestAddPatternForceDisplacesOverlap(t *testing.T) {
	lookup := mapLookup{1: NewPattern(4, 4), 2: NewPattern(4, 4)}
	s := NewSequence()
	s.AddPattern(0, 1, lookup, false)

	if !s.AddPattern(50, 2, lookup, true) {
		t.Fatalf("forced placement should succeed")
	}
	if _, ok := s.GetPattern(0); ok {
		t.Fatalf("original placement should have been displaced")
	}
	if id, ok := s.GetPattern(50); !ok || id != 2 {
		t.Fatalf("new placement missing or wrong pattern")
	}
}

func TestSetPlayStateFollowsTransitionTable(t *testing.T) {
	s := NewSequence()

	if !s.SetPlayState(Starting) {
		t.Fatalf("STOPPED -> STARTING should be accepted")
	}
	if s.SetPlayState(Stopping) {
		t.Fatalf("STARTING -> STOPPING should be rejected")
	}
	if !s.SetPlayState(Stopped) {
		t.Fatalf("STARTING -> STOPPED should be accepted")
	}

	s.SetPlayState(Playing)
	if !s.SetPlayState(Stopping) {
		t.Fatalf("PLAYING -> STOPPING should be accepted")
	}
	if !s.SetPlayState(Stopped) {
		t.Fatalf("STOPPING -> STOPPED should be accepted")
	}
}

func TestStartingTransitionsToPlayingOnlyOnSyncPulse(t *testing.T) {
	pat := NewPattern(1, 4)
	lookup := mapLookup{1: pat}
	s := NewSequence()
	s.AddPattern(0, 1, lookup, false)
	s.SetPlayState(Starting)

	sched := NewScheduler()
	s.Clock(lookup, 0, sched, false, 100)
	if s.PlayState() != Starting {
		t.Fatalf("state = %v, want STARTING before any sync pulse", s.PlayState())
	}

	s.Clock(lookup, 0, sched, true, 100)
	if s.PlayState() != Playing {
		t.Fatalf("state = %v, want PLAYING after a sync pulse", s.PlayState())
	}
}

func Test24ClocksAdvanceOneBeatWithinPattern(t *testing.T) {
	pat := NewPattern(4, 4) // clocksPerStep = 6
	lookup := mapLookup{1: pat}
	s := NewSequence()
	s.AddPattern(0, 1, lookup, false)
	s.SetPlayState(Playing)

	sched := NewScheduler()
	start := s.PlayPosition()
	for i := 0; i < 24; i++ {
		s.Clock(lookup, int64(i), sched, i == 0, 100)
	}
	if got := s.PlayPosition(); got != (start+24)%s.LengthInClocks() {
		t.Fatalf("play position after 24 clocks = %d, want %d", got, (start+24)%s.LengthInClocks())
	}
}

func TestClockSchedulesNoteOnAndFutureNoteOff(t *testing.T) {
	pat := NewPattern(1, 4)
	pat.AddNote(0, 60, 100, 1)
	lookup := mapLookup{1: pat}

	s := NewSequence()
	s.SetChannel(3)
	s.AddPattern(0, 1, lookup, false)
	s.SetPlayState(Playing)

	sched := NewScheduler()
	emitted := s.Clock(lookup, 1000, sched, true, 50)
	if !emitted {
		t.Fatalf("expected an emission on the first step")
	}
	if sched.Len() != 2 {
		t.Fatalf("expected note-on and note-off queued, got %d distinct frames", sched.Len())
	}
}

func TestOneshotStopsAtPatternEnd(t *testing.T) {
	pat := NewPattern(1, 1) // 24 clocks long
	lookup := mapLookup{1: pat}
	s := NewSequence()
	s.SetPlayMode(Oneshot)
	s.AddPattern(0, 1, lookup, false)
	s.SetPlayState(Playing)

	sched := NewScheduler()
	for i := 0; i < 24; i++ {
		s.Clock(lookup, int64(i), sched, i == 0, 10)
	}
	if s.PlayState() != Stopped {
		t.Fatalf("ONESHOT sequence should be STOPPED after one full pattern, got %v", s.PlayState())
	}
}

func TestLoopKeepsPlayingPastPatternEnd(t *testing.T) {
	pat := NewPattern(1, 1)
	lookup := mapLookup{1: pat}
	s := NewSequence()
	s.SetPlayMode(Loop)
	s.AddPattern(0, 1, lookup, false)
	s.SetPlayState(Playing)

	sched := NewScheduler()
	for i := 0; i < 24; i++ {
		s.Clock(lookup, int64(i), sched, i == 0, 10)
	}
	if s.PlayState() != Playing {
		t.Fatalf("LOOP sequence should keep playing past pattern end, got %v", s.PlayState())
	}
}
