package sequencer

// Track references a Sequence by its stable id within a Song.
type Track struct {
	SequenceID int
}

// Song is an ordered list of tracks plus the Timebase that governs
// their tempo and meter.
type Song struct {
	tracks   []Track
	timebase *Timebase
}

// NewSong creates an empty song with a fresh Timebase seeded with the
// default tempo and time signature at bar 1, so a saved song always
// carries an explicit starting tempo rather than an empty map that
// merely implies the default.
func NewSong() *Song {
	tb := NewTimebase()
	tb.SetTempo(DefaultTempo, 1, 0)
	tb.SetTimeSig((DefaultTimeSigBeats<<8)|DefaultTimeSigType, 1)
	return &Song{timebase: tb}
}

// Tracks returns the song's tracks in order.
func (s *Song) Tracks() []Track { return s.tracks }

// Timebase returns the song's tempo/meter map.
func (s *Song) Timebase() *Timebase { return s.timebase }

// AddTrack appends a track referencing sequenceID and returns its
// index.
func (s *Song) AddTrack(sequenceID int) int {
	s.tracks = append(s.tracks, Track{SequenceID: sequenceID})
	return len(s.tracks) - 1
}

// RemoveTrack removes the track at index, if it exists.
func (s *Song) RemoveTrack(index int) bool {
	if index < 0 || index >= len(s.tracks) {
		return false
	}
	s.tracks = append(s.tracks[:index], s.tracks[index+1:]...)
	return true
}
