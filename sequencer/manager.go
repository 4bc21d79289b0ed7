package sequencer

import "sync"

// PatternManager is the process-wide registry of patterns, sequences
// and songs. Sequences and songs refer to each other only by stable
// integer id - PatternManager is the single owner of the actual
// objects, which breaks the Pattern/Sequence/Song reference cycle the
// original design had as raw pointers (see DESIGN.md).
type PatternManager struct {
	mu sync.RWMutex

	patterns  map[int]*Pattern
	sequences map[int]*Sequence
	songs     map[int]*Song

	nextPatternID  int
	nextSequenceID int
	nextSongID     int

	currentSongID  int
	triggerChannel byte
}

// NewPatternManager creates an empty registry with one default song.
func NewPatternManager() *PatternManager {
	m := &PatternManager{
		patterns:  make(map[int]*Pattern),
		sequences: make(map[int]*Sequence),
		songs:     make(map[int]*Song),
	}
	m.currentSongID = m.addSong(NewSong())
	return m
}

// Pattern implements PatternLookup for Sequence.
func (m *PatternManager) Pattern(id int) *Pattern {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.patterns[id]
}

// CreatePattern allocates a new pattern and returns its id.
func (m *PatternManager) CreatePattern(beats, stepsPerBeat uint32) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	id := m.nextPatternID
	m.nextPatternID++
	m.patterns[id] = NewPattern(beats, stepsPerBeat)
	return id
}

// RemovePattern releases a pattern from the registry.
func (m *PatternManager) RemovePattern(id int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.patterns, id)
}

// Sequence returns the sequence with the given id, or nil.
func (m *PatternManager) Sequence(id int) *Sequence {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.sequences[id]
}

// CreateSequence allocates a new, stopped sequence and returns its id.
func (m *PatternManager) CreateSequence() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	id := m.nextSequenceID
	m.nextSequenceID++
	m.sequences[id] = NewSequence()
	return id
}

// RemoveSequence releases a sequence from the registry.
func (m *PatternManager) RemoveSequence(id int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.sequences, id)
}

func (m *PatternManager) addSong(s *Song) int {
	id := m.nextSongID
	m.nextSongID++
	m.songs[id] = s
	return id
}

// CreateSong allocates a new, empty song and returns its id.
func (m *PatternManager) CreateSong() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.addSong(NewSong())
}

// Song returns the song with the given id, or nil.
func (m *PatternManager) Song(id int) *Song {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.songs[id]
}

// CurrentSong returns the song currently driving playback.
func (m *PatternManager) CurrentSong() *Song {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.songs[m.currentSongID]
}

// SelectSong switches the currently playing song.
func (m *PatternManager) SelectSong(id int) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.songs[id]; !ok {
		return false
	}
	m.currentSongID = id
	return true
}

// TriggerChannel returns the MIDI channel that fires sequence
// triggers (§4.8b).
func (m *PatternManager) TriggerChannel() byte { return m.triggerChannel }

// SetTriggerChannel sets the trigger channel.
func (m *PatternManager) SetTriggerChannel(ch byte) { m.triggerChannel = ch & 0x0F }

// Trigger looks up the sequence whose trigger note matches and
// advances its play state (STOPPED<->STARTING, or requests STOPPING
// if PLAYING). Returns the sequence's id, or -1 if none matched.
func (m *PatternManager) Trigger(note byte) int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for id, seq := range m.sequences {
		if seq.TriggerNote() == int(note) {
			seq.Trigger()
			return id
		}
	}
	return -1
}

// activeSequences returns every sequence belonging to the current
// song's tracks, plus every "always-on" sequence: one not referenced
// by any track in the current song but bound to a trigger note (a
// standalone pad/clip, not part of the song arrangement).
func (m *PatternManager) activeSequences() []*Sequence {
	song := m.songs[m.currentSongID]
	inSong := make(map[int]bool)
	var seqs []*Sequence
	if song != nil {
		for _, tr := range song.Tracks() {
			if seq, ok := m.sequences[tr.SequenceID]; ok {
				seqs = append(seqs, seq)
				inSong[tr.SequenceID] = true
			}
		}
	}
	for id, seq := range m.sequences {
		if !inSong[id] && seq.TriggerNote() >= 0 {
			seqs = append(seqs, seq)
		}
	}
	return seqs
}

// Clock drives every active sequence for one MIDI clock pulse.
// Returns true iff any sequence produced output or is in a
// non-stopped state - the signal the transport uses to decide whether
// it may auto-stop.
func (m *PatternManager) Clock(absoluteSample int64, sched *Scheduler, syncPulse bool, framesPerClock float64) bool {
	m.mu.RLock()
	seqs := m.activeSequences()
	m.mu.RUnlock()

	playing := false
	for _, seq := range seqs {
		if seq.Clock(m, absoluteSample, sched, syncPulse, framesPerClock) {
			playing = true
		}
	}
	return playing
}

// UpdateSequenceLengths recomputes the length of every sequence
// referenced by song's tracks and returns the song length: the max
// sequence length across those tracks.
func (m *PatternManager) UpdateSequenceLengths(song *Song) uint32 {
	// Snapshot the sequences first: Sequence.UpdateLength calls back
	// into m.Pattern, and RWMutex read-locks do not nest safely
	// against a waiting writer.
	tracks := song.Tracks()
	m.mu.RLock()
	seqs := make([]*Sequence, 0, len(tracks))
	for _, tr := range tracks {
		if seq, ok := m.sequences[tr.SequenceID]; ok {
			seqs = append(seqs, seq)
		}
	}
	m.mu.RUnlock()

	var max uint32
	for _, seq := range seqs {
		length := seq.UpdateLength(m)
		if length > max {
			max = length
		}
	}
	return max
}

// UpdateAllSequenceLengths recomputes lengths for every song and
// returns the current song's length.
func (m *PatternManager) UpdateAllSequenceLengths() uint32 {
	m.mu.RLock()
	songs := make(map[int]*Song, len(m.songs))
	for id, s := range m.songs {
		songs[id] = s
	}
	current := m.currentSongID
	m.mu.RUnlock()

	var currentLength uint32
	for id, song := range songs {
		length := m.UpdateSequenceLengths(song)
		if id == current {
			currentLength = length
		}
	}
	return currentLength
}
