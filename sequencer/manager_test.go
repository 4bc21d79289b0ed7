package sequencer

import "testing"

func TestManagerTriggerTogglesMatchingSequence(t *testing.T) {
	m := NewPatternManager()
	seqID := m.CreateSequence()
	seq := m.Sequence(seqID)
	seq.SetTriggerNote(60)

	if got := m.Trigger(60); got != seqID {
		t.Fatalf("Trigger returned %d, want %d", got, seqID)
	}
	if seq.PlayState() != Starting {
		t.Fatalf("triggered sequence should be STARTING, got %v", seq.PlayState())
	}
	if got := m.Trigger(61); got != -1 {
		t.Fatalf("Trigger for unbound note should return -1, got %d", got)
	}
}

func TestManagerClockDrivesCurrentSongSequences(t *testing.T) {
	m := NewPatternManager()
	patID := m.CreatePattern(1, 4)
	pat := m.Pattern(patID)
	pat.AddNote(0, 60, 100, 1)

	seqID := m.CreateSequence()
	seq := m.Sequence(seqID)
	seq.AddPattern(0, patID, m, false)
	seq.SetPlayState(Playing)

	song := m.CurrentSong()
	song.AddTrack(seqID)

	sched := NewScheduler()
	playing := m.Clock(0, sched, true, 50)
	if !playing {
		t.Fatalf("expected the song's sequence to report activity")
	}
	if sched.Len() == 0 {
		t.Fatalf("expected the note-on to have been scheduled")
	}
}

func TestUpdateSequenceLengthsReturnsMaxAcrossTracks(t *testing.T) {
	m := NewPatternManager()
	shortPat := m.CreatePattern(1, 4)
	longPat := m.CreatePattern(4, 4)

	seqA := m.CreateSequence()
	m.Sequence(seqA).AddPattern(0, shortPat, m, false)
	seqB := m.CreateSequence()
	m.Sequence(seqB).AddPattern(0, longPat, m, false)

	song := m.CurrentSong()
	song.AddTrack(seqA)
	song.AddTrack(seqB)

	length := m.UpdateSequenceLengths(song)
	if length != m.Pattern(longPat).Length() {
		t.Fatalf("song length = %d, want %d", length, m.Pattern(longPat).Length())
	}
}

func TestUpdateAllSequenceLengthsCoversEverySong(t *testing.T) {
	m := NewPatternManager()
	patID := m.CreatePattern(2, 4)

	seqID := m.CreateSequence()
	m.Sequence(seqID).AddPattern(0, patID, m, false)

	second := m.CreateSong()
	m.Song(second).AddTrack(seqID)
	m.SelectSong(second)

	length := m.UpdateAllSequenceLengths()
	if length != m.Pattern(patID).Length() {
		t.Fatalf("current song length = %d, want %d", length, m.Pattern(patID).Length())
	}
}
