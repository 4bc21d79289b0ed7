package sequencer

import "sort"

// TimebaseEventType distinguishes a tempo change from a meter change.
type TimebaseEventType int

const (
	TimebaseTempo TimebaseEventType = iota
	TimebaseTimeSig
)

// DefaultTempo and DefaultTimeSigBeats/DefaultTimeSigType apply before the first Timebase
// event, or when a song carries no Timebase of its own.
const (
	DefaultTempo       = 120.0
	DefaultTimeSigBeats = 4
	DefaultTimeSigType  = 4
)

// TimebaseEvent is a tempo or time-signature change keyed by the
// (bar, clock-within-bar) at which it takes effect.
type TimebaseEvent struct {
	Bar   uint32
	Clock uint32 // offset within the bar, in MIDI clocks
	Type  TimebaseEventType
	Value float64 // BPM for tempo; (beats<<8)|beatType for time sig
}

func (e TimebaseEvent) less(o TimebaseEvent) bool {
	if e.Bar != o.Bar {
		return e.Bar < o.Bar
	}
	return e.Clock < o.Clock
}

// Timebase is a sparse, ordered map of tempo/meter changes. At most
// one event of each type may exist at a given (bar, clock) key.
type Timebase struct {
	events []TimebaseEvent // sorted by (Bar, Clock)
}

// NewTimebase creates an empty timebase; queries before the first
// event fall back to the 120 BPM / 4-4 defaults.
func NewTimebase() *Timebase {
	return &Timebase{}
}

func (t *Timebase) indexOf(bar, clock uint32, typ TimebaseEventType) int {
	for i, ev := range t.events {
		if ev.Bar == bar && ev.Clock == clock && ev.Type == typ {
			return i
		}
	}
	return -1
}

func (t *Timebase) insert(ev TimebaseEvent) {
	if i := t.indexOf(ev.Bar, ev.Clock, ev.Type); i >= 0 {
		t.events[i].Value = ev.Value
		return
	}
	idx := sort.Search(len(t.events), func(i int) bool {
		return ev.less(t.events[i])
	})
	t.events = append(t.events, TimebaseEvent{})
	copy(t.events[idx+1:], t.events[idx:])
	t.events[idx] = ev
}

// SetTempo records a tempo change of bpm at (bar, tick), converting
// the tick offset into a within-bar clock count.
func (t *Timebase) SetTempo(bpm float64, bar uint32, tick uint32) {
	t.insert(TimebaseEvent{Bar: bar, Clock: tick / ticksPerClock, Type: TimebaseTempo, Value: bpm})
}

// SetTimeSig records a time-signature change at bar. value packs
// (beats<<8)|beatType.
func (t *Timebase) SetTimeSig(value uint32, bar uint32) {
	t.insert(TimebaseEvent{Bar: bar, Clock: 0, Type: TimebaseTimeSig, Value: float64(value)})
}

// predecessor returns the most recent event of typ at or before
// (bar, clock), or nil if there isn't one.
func (t *Timebase) predecessor(bar, clock uint32, typ TimebaseEventType) *TimebaseEvent {
	var found *TimebaseEvent
	for i := range t.events {
		ev := &t.events[i]
		if ev.Type != typ {
			continue
		}
		if ev.Bar > bar || (ev.Bar == bar && ev.Clock > clock) {
			break
		}
		found = ev
	}
	return found
}

// GetTempo returns the tempo in effect at (bar, tick).
func (t *Timebase) GetTempo(bar uint32, tick uint32) float64 {
	if ev := t.predecessor(bar, tick/ticksPerClock, TimebaseTempo); ev != nil {
		return ev.Value
	}
	return DefaultTempo
}

// GetTimeSig returns the packed (beats<<8)|beatType in effect at bar.
func (t *Timebase) GetTimeSig(bar uint32) uint32 {
	if ev := t.predecessor(bar, 0, TimebaseTimeSig); ev != nil {
		return uint32(ev.Value)
	}
	return (DefaultTimeSigBeats << 8) | DefaultTimeSigType
}

// GetFirstTimebaseEvent returns the earliest event, or nil if empty.
func (t *Timebase) GetFirstTimebaseEvent() *TimebaseEvent {
	if len(t.events) == 0 {
		return nil
	}
	return &t.events[0]
}

// GetNextTimebaseEvent returns the event immediately after after, or
// nil if after is the last one (or nil itself, in which case the
// first event is returned).
func (t *Timebase) GetNextTimebaseEvent(after *TimebaseEvent) *TimebaseEvent {
	if after == nil {
		return t.GetFirstTimebaseEvent()
	}
	for i := range t.events {
		if t.events[i] == *after {
			if i+1 < len(t.events) {
				return &t.events[i+1]
			}
			return nil
		}
	}
	return nil
}

// GetPreviousTimebaseEvent returns the most recent event of typ
// strictly before (bar, tick).
func (t *Timebase) GetPreviousTimebaseEvent(bar, tick uint32, typ TimebaseEventType) *TimebaseEvent {
	clock := tick / ticksPerClock
	var found *TimebaseEvent
	for i := range t.events {
		ev := &t.events[i]
		if ev.Type != typ {
			continue
		}
		if ev.Bar > bar || (ev.Bar == bar && ev.Clock >= clock) {
			break
		}
		found = ev
	}
	return found
}

// Events returns the raw, ordered event list (read-only use expected).
func (t *Timebase) Events() []TimebaseEvent { return t.events }
