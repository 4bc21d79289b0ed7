package sequencer

import (
	"testing"

	"zynseq/midi"
)

func TestInsertNextFreeFillsEarliestSlot(t *testing.T) {
	s := NewScheduler()
	s.InsertAt(0, midi.NoteOnMsg(0, 60, 100))

	frame := s.InsertNextFree(midi.NoteOnMsg(0, 61, 100))
	if frame != 1 {
		t.Fatalf("InsertNextFree landed on %d, want 1", frame)
	}
}

func TestDrainDeliversInAscendingOrderWithNonDecreasingOffsets(t *testing.T) {
	s := NewScheduler()
	s.InsertAt(105, midi.NoteOnMsg(0, 62, 100))
	s.InsertAt(100, midi.NoteOnMsg(0, 60, 100))
	s.InsertAt(100, midi.NoteOnMsg(0, 61, 100))

	var offsets []uint32
	s.TryLock()
	s.Drain(100, 256, func(offset uint32, msg midi.Message) bool {
		offsets = append(offsets, offset)
		return true
	})
	s.Unlock()

	if len(offsets) != 3 {
		t.Fatalf("expected 3 delivered messages, got %d", len(offsets))
	}
	for i := 1; i < len(offsets); i++ {
		if offsets[i] < offsets[i-1] {
			t.Fatalf("offsets not non-decreasing: %v", offsets)
		}
	}
	if s.Len() != 0 {
		t.Fatalf("expected schedule to be empty after full drain")
	}
}

func TestDrainLeavesEntriesOutsidePeriodQueued(t *testing.T) {
	s := NewScheduler()
	s.InsertAt(500, midi.NoteOnMsg(0, 60, 100))

	s.TryLock()
	s.Drain(0, 256, func(offset uint32, msg midi.Message) bool {
		t.Fatalf("should not have delivered anything this period")
		return true
	})
	s.Unlock()

	if s.Len() != 1 {
		t.Fatalf("expected entry to remain queued, got Len() = %d", s.Len())
	}
}

func TestDrainStopsEarlyWhenBufferRejects(t *testing.T) {
	s := NewScheduler()
	s.InsertAt(0, midi.NoteOnMsg(0, 60, 100))
	s.InsertAt(1, midi.NoteOnMsg(0, 61, 100))

	attempts := 0
	s.TryLock()
	s.Drain(0, 256, func(offset uint32, msg midi.Message) bool {
		attempts++
		return false
	})
	s.Unlock()

	if attempts != 1 {
		t.Fatalf("expected Drain to stop after the first rejected reservation, got %d attempts", attempts)
	}
	if s.Len() != 2 {
		t.Fatalf("expected both entries to remain queued, got %d", s.Len())
	}
}

func TestPastEventsDeliverAsEarlyAsPossible(t *testing.T) {
	s := NewScheduler()
	s.InsertAt(-10, midi.NoteOnMsg(0, 60, 100))
	s.InsertAt(-5, midi.NoteOnMsg(0, 61, 100))

	var offsets []uint32
	s.TryLock()
	s.Drain(0, 256, func(offset uint32, msg midi.Message) bool {
		offsets = append(offsets, offset)
		return true
	})
	s.Unlock()

	if len(offsets) != 2 {
		t.Fatalf("expected both past events delivered, got %d", len(offsets))
	}
	if offsets[0] != 0 {
		t.Fatalf("earliest past event should deliver at offset 0, got %d", offsets[0])
	}
	if offsets[1] < offsets[0] {
		t.Fatalf("offsets not non-decreasing: %v", offsets)
	}
}
