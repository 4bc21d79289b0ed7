package sequencer

import "testing"

func TestTimebaseDefaultsBeforeFirstEvent(t *testing.T) {
	tb := NewTimebase()
	if tb.GetTempo(1, 0) != DefaultTempo {
		t.Fatalf("GetTempo = %v, want default %v", tb.GetTempo(1, 0), DefaultTempo)
	}
	sig := tb.GetTimeSig(1)
	if beats := sig >> 8; beats != DefaultTimeSigBeats {
		t.Fatalf("default beats = %d, want %d", beats, DefaultTimeSigBeats)
	}
}

func TestSetTempoIsPredecessorQueried(t *testing.T) {
	tb := NewTimebase()
	tb.SetTempo(140, 4, 0)
	tb.SetTempo(90, 8, 0)

	if got := tb.GetTempo(1, 0); got != DefaultTempo {
		t.Fatalf("tempo before bar 4 = %v, want default", got)
	}
	if got := tb.GetTempo(5, 0); got != 140 {
		t.Fatalf("tempo at bar 5 = %v, want 140", got)
	}
	if got := tb.GetTempo(8, 0); got != 90 {
		t.Fatalf("tempo at bar 8 = %v, want 90", got)
	}
}

func TestSetTempoUpsertsAtSameKey(t *testing.T) {
	tb := NewTimebase()
	tb.SetTempo(140, 4, 0)
	tb.SetTempo(150, 4, 0)

	if len(tb.Events()) != 1 {
		t.Fatalf("expected a single event at (4,0), got %d", len(tb.Events()))
	}
	if got := tb.GetTempo(4, 0); got != 150 {
		t.Fatalf("GetTempo = %v, want 150", got)
	}
}

func TestGetNextTimebaseEventWalksInOrder(t *testing.T) {
	tb := NewTimebase()
	tb.SetTempo(140, 4, 0)
	tb.SetTempo(160, 2, 0)

	first := tb.GetFirstTimebaseEvent()
	if first.Bar != 2 {
		t.Fatalf("first event at bar %d, want 2", first.Bar)
	}
	second := tb.GetNextTimebaseEvent(first)
	if second == nil || second.Bar != 4 {
		t.Fatalf("second event missing or wrong bar")
	}
	if tb.GetNextTimebaseEvent(second) != nil {
		t.Fatalf("expected no event after the last one")
	}
}
