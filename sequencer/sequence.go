package sequencer

import (
	"sort"

	"zynseq/midi"
)

// PlayState is a Sequence's position in the STOPPED/STARTING/PLAYING/
// STOPPING state machine (§4.3).
type PlayState int

const (
	Stopped PlayState = iota
	Starting
	Playing
	Stopping
)

// PlayMode selects how a Sequence wraps or stops at its boundary.
// ONESHOT/LOOP act on the single pattern currently playing; the _ALL
// variants act on the whole placement timeline. This distinction is
// an implementation decision for an open question left in the
// original design - see DESIGN.md.
type PlayMode int

const (
	Oneshot PlayMode = iota
	Loop
	OneshotAll
	LoopAll
)

// PatternLookup resolves a stable pattern id to its Pattern. A
// Sequence never holds a *Pattern directly (see DESIGN.md on the
// PatternManager/Sequence/Pattern ownership cycle) - it is always
// handed a lookup by whoever drives its clock.
type PatternLookup interface {
	Pattern(id int) *Pattern
}

type placement struct {
	position  uint32
	patternID int
}

// Sequence is a playable timeline: patterns placed at clock positions
// plus a play state machine.
type Sequence struct {
	placements []placement // sorted by position

	playState PlayState
	playMode  PlayMode

	channel      byte
	output       string
	group        int
	tallyChannel byte
	triggerNote  int // -1 = unbound
	solo         bool

	lengthInClocks uint32
	playPosition   uint32 // clocks, within [0, length)
}

// NewSequence creates an empty, stopped sequence.
func NewSequence() *Sequence {
	return &Sequence{triggerNote: -1}
}

func (s *Sequence) Channel() byte          { return s.channel }
func (s *Sequence) SetChannel(ch byte)     { s.channel = ch & 0x0F }
func (s *Sequence) Output() string         { return s.output }
func (s *Sequence) SetOutput(name string)  { s.output = name }
func (s *Sequence) Group() int             { return s.group }
func (s *Sequence) SetGroup(g int)         { s.group = g }
func (s *Sequence) TallyChannel() byte     { return s.tallyChannel }
func (s *Sequence) SetTallyChannel(c byte) { s.tallyChannel = c }
func (s *Sequence) TriggerNote() int       { return s.triggerNote }
func (s *Sequence) SetTriggerNote(n int)   { s.triggerNote = n }
func (s *Sequence) PlayMode() PlayMode     { return s.playMode }
func (s *Sequence) SetPlayMode(m PlayMode) { s.playMode = m }
func (s *Sequence) PlayState() PlayState   { return s.playState }
func (s *Sequence) LengthInClocks() uint32 { return s.lengthInClocks }
func (s *Sequence) PlayPosition() uint32   { return s.playPosition }

// SetPlayPosition sets the current play position, wrapped into
// [0, length) modulo the sequence length.
func (s *Sequence) SetPlayPosition(clocks uint32) {
	if s.lengthInClocks == 0 {
		s.playPosition = 0
		return
	}
	s.playPosition = clocks % s.lengthInClocks
}

// Solo sets whether this sequence is soloed (playback-mix concern
// handled by the caller; Sequence just stores the flag).
func (s *Sequence) Solo(on bool) { s.solo = on }
func (s *Sequence) IsSolo() bool { return s.solo }

// AddPattern places pattern patternID at position. Without force, the
// insertion is rejected if it would overlap an existing placement.
// With force, any overlapping placements are displaced (removed).
func (s *Sequence) AddPattern(position uint32, patternID int, lookup PatternLookup, force bool) bool {
	pat := lookup.Pattern(patternID)
	if pat == nil {
		return false
	}
	newEnd := position + pat.Length()

	overlaps := func(pl placement) bool {
		otherPat := lookup.Pattern(pl.patternID)
		if otherPat == nil {
			return false
		}
		otherEnd := pl.position + otherPat.Length()
		return pl.position < newEnd && position < otherEnd
	}

	if !force {
		for _, pl := range s.placements {
			if overlaps(pl) {
				return false
			}
		}
	} else {
		kept := s.placements[:0:0]
		for _, pl := range s.placements {
			if !overlaps(pl) {
				kept = append(kept, pl)
			}
		}
		s.placements = kept
	}

	idx := sort.Search(len(s.placements), func(i int) bool {
		return s.placements[i].position > position
	})
	s.placements = append(s.placements, placement{})
	copy(s.placements[idx+1:], s.placements[idx:])
	s.placements[idx] = placement{position: position, patternID: patternID}

	s.updateLength(lookup)
	return true
}

// RemovePattern removes the placement at position, if any.
func (s *Sequence) RemovePattern(position uint32, lookup PatternLookup) bool {
	for i, pl := range s.placements {
		if pl.position == position {
			s.placements = append(s.placements[:i], s.placements[i+1:]...)
			s.updateLength(lookup)
			return true
		}
	}
	return false
}

// Clear removes every placement.
func (s *Sequence) Clear() {
	s.placements = nil
	s.lengthInClocks = 0
	s.playPosition = 0
}

// GetPattern returns the pattern id placed at position, and whether
// one exists there.
func (s *Sequence) GetPattern(position uint32) (int, bool) {
	for _, pl := range s.placements {
		if pl.position == position {
			return pl.patternID, true
		}
	}
	return 0, false
}

// UpdateLength recomputes lengthInClocks as the max over placements of
// (position + pattern.Length()), and returns it.
func (s *Sequence) UpdateLength(lookup PatternLookup) uint32 {
	s.updateLength(lookup)
	return s.lengthInClocks
}

func (s *Sequence) updateLength(lookup PatternLookup) {
	var max uint32
	for _, pl := range s.placements {
		pat := lookup.Pattern(pl.patternID)
		if pat == nil {
			continue
		}
		end := pl.position + pat.Length()
		if end > max {
			max = end
		}
	}
	s.lengthInClocks = max
	if s.lengthInClocks > 0 {
		s.playPosition %= s.lengthInClocks
	} else {
		s.playPosition = 0
	}
}

// placementAt returns the placement covering the given clock offset
// into the sequence, and the local clock offset within that pattern.
func (s *Sequence) placementAt(clock uint32, lookup PatternLookup) (placement, uint32, bool) {
	for _, pl := range s.placements {
		pat := lookup.Pattern(pl.patternID)
		if pat == nil {
			continue
		}
		end := pl.position + pat.Length()
		if clock >= pl.position && clock < end {
			return pl, clock - pl.position, true
		}
	}
	return placement{}, 0, false
}

// SetPlayState attempts the requested transition. Only the
// transitions documented in §4.3 are accepted; everything else is a
// silent no-op.
func (s *Sequence) SetPlayState(target PlayState) bool {
	switch s.playState {
	case Stopped:
		if target == Starting || target == Playing {
			s.playState = target
			if target == Playing {
				s.playPosition = 0
			}
			return true
		}
	case Playing:
		if target == Stopping || target == Stopped {
			s.playState = target
			return true
		}
	case Starting:
		// Only a sync pulse drives Starting -> Playing (see Clock).
		if target == Stopped {
			s.playState = Stopped
			return true
		}
	case Stopping:
		if target == Stopped {
			s.playState = Stopped
			return true
		}
	}
	return false
}

// Trigger toggles STOPPED <-> STARTING, or requests STOPPING if
// currently PLAYING.
func (s *Sequence) Trigger() {
	switch s.playState {
	case Stopped:
		s.playState = Starting
	case Playing:
		s.playState = Stopping
	case Starting:
		s.playState = Stopped
	case Stopping:
		s.playState = Playing
	}
}

// Clock advances the sequence by one MIDI clock pulse. If playing, it
// emits any StepEvents starting exactly at the current position into
// sched, timestamped at absoluteSample, and schedules matching
// note-offs ahead in the schedule rather than spawning timers. It
// returns whether the sequence emitted anything or is in a
// non-stopped state, the signal the transport uses to decide whether
// it may auto-stop.
func (s *Sequence) Clock(lookup PatternLookup, absoluteSample int64, sched *Scheduler, syncPulse bool, framesPerClock float64) bool {
	if s.playState == Starting && syncPulse {
		s.playState = Playing
		s.playPosition = 0
	}

	if s.playState != Playing {
		return s.playState != Stopped
	}

	if s.lengthInClocks == 0 {
		s.playState = Stopped
		return false
	}

	emitted := false
	pl, localClock, ok := s.placementAt(s.playPosition, lookup)
	if ok {
		pat := lookup.Pattern(pl.patternID)
		clocksPerStep := pat.ClocksPerStep()
		if clocksPerStep > 0 && localClock%clocksPerStep == 0 {
			step := localClock / clocksPerStep
			for _, ev := range pat.events {
				if uint32(ev.position) != step {
					continue
				}
				if s.emitEvent(ev, clocksPerStep, absoluteSample, sched, framesPerClock) {
					emitted = true
				}
			}
		}
	}

	atPatternEnd := !ok || localClock+1 >= func() uint32 {
		pat := lookup.Pattern(pl.patternID)
		if pat == nil {
			return 0
		}
		return pat.Length()
	}()
	atSequenceEnd := s.playPosition+1 >= s.lengthInClocks

	s.playPosition++
	if s.playPosition >= s.lengthInClocks {
		s.playPosition = 0
	}
	if s.playMode == Loop && ok && atPatternEnd {
		// LOOP repeats the placement it is on instead of moving on.
		s.playPosition = pl.position
	}

	s.advanceBoundary(atPatternEnd, atSequenceEnd, syncPulse)

	return emitted || s.playState != Stopped
}

// advanceBoundary applies the wrap/stop semantics for the current
// play mode once a boundary has been crossed this clock.
func (s *Sequence) advanceBoundary(atPatternEnd, atSequenceEnd, syncPulse bool) {
	switch s.playMode {
	case Oneshot:
		if s.playState == Stopping && atPatternEnd {
			s.playState = Stopped
		} else if atPatternEnd && s.playState == Playing {
			s.playState = Stopped
		}
	case Loop:
		if s.playState == Stopping && syncPulse {
			s.playState = Stopped
		}
	case OneshotAll:
		if s.playState == Stopping && atPatternEnd {
			s.playState = Stopped
		} else if atSequenceEnd && s.playState == Playing {
			s.playState = Stopped
		}
	case LoopAll:
		if s.playState == Stopping && syncPulse {
			s.playState = Stopped
		}
	}
}

// emitEvent writes the note-on (or control/program) for ev into sched
// at absoluteSample, and for notes, schedules the matching note-off
// ahead by the event's duration converted to frames.
func (s *Sequence) emitEvent(ev *StepEvent, clocksPerStep uint32, absoluteSample int64, sched *Scheduler, framesPerClock float64) bool {
	switch ev.command {
	case CommandNoteOn:
		sched.InsertAt(absoluteSample, midi.NoteOnMsg(s.channel, ev.value1Start, ev.value2Start))
		if ev.duration > 0 {
			durationClocks := ev.duration * float64(clocksPerStep)
			offFrame := absoluteSample + int64(durationClocks*framesPerClock)
			sched.InsertAt(offFrame, midi.NoteOffMsg(s.channel, ev.value1Start))
		}
		return true
	case CommandControl:
		sched.InsertAt(absoluteSample, midi.ControlMsg(s.channel, ev.value1Start, ev.value2Start))
		return true
	case CommandProgram:
		sched.InsertAt(absoluteSample, midi.ProgramMsg(s.channel, ev.value1Start))
		return true
	}
	return false
}
