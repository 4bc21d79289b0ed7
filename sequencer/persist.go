package sequencer

import (
	"encoding/json"
	"os"
)

// The persisted layout is a plain JSON document; its only contract is
// round-tripping the full data model (§6 persisted state layout). It
// is assembled from/into the registry's unexported fields directly,
// since persist.go lives in this package.

type eventDoc struct {
	Position    uint32  `json:"position"`
	Command     byte    `json:"command"`
	Value1Start byte    `json:"value1Start"`
	Value1End   byte    `json:"value1End"`
	Value2Start byte    `json:"value2Start"`
	Value2End   byte    `json:"value2End"`
	Duration    float64 `json:"duration"`
}

type patternDoc struct {
	ID           int        `json:"id"`
	Beats        uint32     `json:"beats"`
	StepsPerBeat uint32     `json:"stepsPerBeat"`
	Scale        byte       `json:"scale"`
	Tonic        byte       `json:"tonic"`
	RefNote      byte       `json:"refNote"`
	Events       []eventDoc `json:"events"`
}

type placementDoc struct {
	Position  uint32 `json:"position"`
	PatternID int    `json:"patternId"`
}

type sequenceDoc struct {
	ID             int            `json:"id"`
	Placements     []placementDoc `json:"placements"`
	PlayMode       PlayMode       `json:"playMode"`
	Channel        byte           `json:"channel"`
	Output         string         `json:"output"`
	Group          int            `json:"group"`
	TallyChannel   byte           `json:"tallyChannel"`
	TriggerNote    int            `json:"triggerNote"`
}

type timebaseEventDoc struct {
	Bar   uint32            `json:"bar"`
	Clock uint32            `json:"clock"`
	Type  TimebaseEventType `json:"type"`
	Value float64           `json:"value"`
}

type trackDoc struct {
	SequenceID int `json:"sequenceId"`
}

type songDoc struct {
	ID       int                `json:"id"`
	Tracks   []trackDoc         `json:"tracks"`
	Timebase []timebaseEventDoc `json:"timebase"`
}

type documentDoc struct {
	Patterns       []patternDoc  `json:"patterns"`
	Sequences      []sequenceDoc `json:"sequences"`
	Songs          []songDoc     `json:"songs"`
	CurrentSongID  int           `json:"currentSongId"`
	TriggerChannel byte          `json:"triggerChannel"`
	NextPatternID  int           `json:"nextPatternId"`
	NextSequenceID int           `json:"nextSequenceId"`
	NextSongID     int           `json:"nextSongId"`
}

// Save writes the full registry - every pattern, sequence, song and
// timebase - to path as JSON.
func (m *PatternManager) Save(path string) error {
	m.mu.RLock()
	doc := documentDoc{
		CurrentSongID:  m.currentSongID,
		TriggerChannel: m.triggerChannel,
		NextPatternID:  m.nextPatternID,
		NextSequenceID: m.nextSequenceID,
		NextSongID:     m.nextSongID,
	}
	for id, p := range m.patterns {
		doc.Patterns = append(doc.Patterns, patternDocOf(id, p))
	}
	for id, s := range m.sequences {
		doc.Sequences = append(doc.Sequences, sequenceDocOf(id, s))
	}
	for id, s := range m.songs {
		doc.Songs = append(doc.Songs, songDocOf(id, s))
	}
	m.mu.RUnlock()

	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}

// Load replaces the registry's contents with what's in path. On
// failure the registry is left untouched (§7: partial load must not
// corrupt previous state).
func (m *PatternManager) Load(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	var doc documentDoc
	if err := json.Unmarshal(data, &doc); err != nil {
		return err
	}

	patterns := make(map[int]*Pattern, len(doc.Patterns))
	for _, pd := range doc.Patterns {
		patterns[pd.ID] = patternFromDoc(pd)
	}
	sequences := make(map[int]*Sequence, len(doc.Sequences))
	for _, sd := range doc.Sequences {
		sequences[sd.ID] = sequenceFromDoc(sd)
	}
	songs := make(map[int]*Song, len(doc.Songs))
	for _, gd := range doc.Songs {
		songs[gd.ID] = songFromDoc(gd)
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.patterns = patterns
	m.sequences = sequences
	m.songs = songs
	m.currentSongID = doc.CurrentSongID
	m.triggerChannel = doc.TriggerChannel
	m.nextPatternID = doc.NextPatternID
	m.nextSequenceID = doc.NextSequenceID
	m.nextSongID = doc.NextSongID
	return nil
}

func patternDocOf(id int, p *Pattern) patternDoc {
	pd := patternDoc{
		ID:           id,
		Beats:        p.beats,
		StepsPerBeat: p.stepsPerBeat,
		Scale:        p.scale,
		Tonic:        p.tonic,
		RefNote:      p.refNote,
	}
	for _, ev := range p.events {
		pd.Events = append(pd.Events, eventDoc{
			Position:    ev.position,
			Command:     ev.command,
			Value1Start: ev.value1Start,
			Value1End:   ev.value1End,
			Value2Start: ev.value2Start,
			Value2End:   ev.value2End,
			Duration:    ev.duration,
		})
	}
	return pd
}

func patternFromDoc(pd patternDoc) *Pattern {
	p := NewPattern(pd.Beats, pd.StepsPerBeat)
	p.scale = pd.Scale
	p.tonic = pd.Tonic
	p.refNote = pd.RefNote
	p.events = make([]*StepEvent, len(pd.Events))
	for i, ed := range pd.Events {
		p.events[i] = &StepEvent{
			position:    ed.Position,
			command:     ed.Command,
			value1Start: ed.Value1Start,
			value1End:   ed.Value1End,
			value2Start: ed.Value2Start,
			value2End:   ed.Value2End,
			duration:    ed.Duration,
		}
	}
	return p
}

func sequenceDocOf(id int, s *Sequence) sequenceDoc {
	sd := sequenceDoc{
		ID:           id,
		PlayMode:     s.playMode,
		Channel:      s.channel,
		Output:       s.output,
		Group:        s.group,
		TallyChannel: s.tallyChannel,
		TriggerNote:  s.triggerNote,
	}
	for _, pl := range s.placements {
		sd.Placements = append(sd.Placements, placementDoc{Position: pl.position, PatternID: pl.patternID})
	}
	return sd
}

func sequenceFromDoc(sd sequenceDoc) *Sequence {
	s := NewSequence()
	s.playMode = sd.PlayMode
	s.channel = sd.Channel
	s.output = sd.Output
	s.group = sd.Group
	s.tallyChannel = sd.TallyChannel
	s.triggerNote = sd.TriggerNote
	s.placements = make([]placement, len(sd.Placements))
	for i, pd := range sd.Placements {
		s.placements[i] = placement{position: pd.Position, patternID: pd.PatternID}
	}
	return s
}

func songDocOf(id int, s *Song) songDoc {
	gd := songDoc{ID: id}
	for _, tr := range s.tracks {
		gd.Tracks = append(gd.Tracks, trackDoc{SequenceID: tr.SequenceID})
	}
	for _, ev := range s.timebase.events {
		gd.Timebase = append(gd.Timebase, timebaseEventDoc{Bar: ev.Bar, Clock: ev.Clock, Type: ev.Type, Value: ev.Value})
	}
	return gd
}

func songFromDoc(gd songDoc) *Song {
	s := &Song{timebase: NewTimebase()}
	for _, tr := range gd.Tracks {
		s.tracks = append(s.tracks, Track{SequenceID: tr.SequenceID})
	}
	for _, ev := range gd.Timebase {
		s.timebase.events = append(s.timebase.events, TimebaseEvent{Bar: ev.Bar, Clock: ev.Clock, Type: ev.Type, Value: ev.Value})
	}
	return s
}
