package sequencer

import "testing"

func TestAddNoteThenQuery(t *testing.T) {
	p := NewPattern(4, 4)
	if !p.AddNote(0, 60, 100, 1) {
		t.Fatalf("AddNote rejected a valid note")
	}
	if v := p.GetNoteVelocity(0, 60); v != 100 {
		t.Fatalf("GetNoteVelocity = %d, want 100", v)
	}
	if s := p.GetNoteStart(0, 60); s != 0 {
		t.Fatalf("GetNoteStart = %d, want 0", s)
	}
}

func TestAddNoteDisplacesOverlappingPeer(t *testing.T) {
	p := NewPattern(4, 4)
	p.AddNote(0, 60, 100, 4)
	p.AddNote(2, 60, 80, 1)

	if len(p.events) != 1 {
		t.Fatalf("expected 1 surviving event, got %d", len(p.events))
	}
	if p.events[0].Position() != 2 {
		t.Fatalf("surviving event at position %d, want 2", p.events[0].Position())
	}
}

func TestTransposeRejectsOutOfRangeAsAWhole(t *testing.T) {
	p := NewPattern(4, 8)
	for note := byte(60); note <= 67; note++ {
		if !p.AddNote(uint32(note-60), note, 100, 1) {
			t.Fatalf("setup AddNote(%d) failed", note)
		}
	}
	if p.Transpose(-61) {
		t.Fatalf("Transpose should have been rejected")
	}
	for note := byte(60); note <= 67; note++ {
		if p.GetNoteVelocity(uint32(note-60), note) != 100 {
			t.Fatalf("event for note %d was mutated by a rejected transpose", note)
		}
	}
}

func TestSetStepsPerBeatRescalesPreservingMusicalTime(t *testing.T) {
	p := NewPattern(4, 4)
	p.AddNote(8, 60, 100, 2)

	if !p.SetStepsPerBeat(8) {
		t.Fatalf("SetStepsPerBeat(8) rejected")
	}
	if p.events[0].Position() != 16 {
		t.Fatalf("position after rescale = %d, want 16", p.events[0].Position())
	}
	if p.events[0].Duration() != 4 {
		t.Fatalf("duration after rescale = %v, want 4", p.events[0].Duration())
	}
}

func TestSetStepsPerBeatRejectsInvalidSubdivision(t *testing.T) {
	p := NewPattern(4, 4)
	if p.SetStepsPerBeat(5) {
		t.Fatalf("SetStepsPerBeat(5) should be rejected")
	}
}

func TestChangeDurationAllRejectsWholeOperationOnNegative(t *testing.T) {
	p := NewPattern(2, 4)
	p.AddNote(0, 60, 100, 0.2)
	p.AddNote(1, 61, 100, 5)

	if p.ChangeDurationAll(-1) {
		t.Fatalf("ChangeDurationAll should reject when any note would go <= 0")
	}
	if p.GetNoteDuration(0, 60) != 0.2 {
		t.Fatalf("duration changed despite rejected operation")
	}
}

func TestSetBeatsInPatternTruncatesOutOfRangeEvents(t *testing.T) {
	p := NewPattern(4, 4)
	p.AddNote(0, 60, 100, 1)
	p.AddNote(15, 61, 100, 1)

	p.SetBeatsInPattern(2)
	if len(p.events) != 1 {
		t.Fatalf("expected 1 event after truncation, got %d", len(p.events))
	}
	if p.events[0].Position() != 0 {
		t.Fatalf("surviving event has wrong position %d", p.events[0].Position())
	}
}

func TestEveryEventAtRestRespectsInvariants(t *testing.T) {
	p := NewPattern(4, 4)
	p.AddNote(0, 60, 100, 1)
	p.AddNote(5, 127, 127, 1)

	for _, ev := range p.Events() {
		if ev.Position() >= p.Steps() {
			t.Fatalf("event position %d >= steps %d", ev.Position(), p.Steps())
		}
		if ev.Value1Start() > 127 || ev.Value2Start() > 127 {
			t.Fatalf("event values out of range: %v", ev)
		}
	}
}
