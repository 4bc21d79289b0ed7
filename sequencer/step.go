package sequencer

import "zynseq/midi"

// Command identifies the kind of a StepEvent. The values line up with
// the MIDI status bytes they eventually become on the wire.
type Command = byte

// Step commands a Pattern can hold.
const (
	CommandNoteOn  Command = midi.Note
	CommandControl Command = midi.Control
	CommandProgram Command = midi.Program
)

// StepEvent is one entry on a Pattern's grid: a note, control change or
// program change starting at a step position and lasting a (possibly
// fractional) number of steps. Value1/Value2 may ramp from a start to
// an end value across the event's duration; most events simply repeat
// the start value as the end value.
//
// StepEvents are owned by their Pattern and are always referenced by
// pointer so in-place mutation (setters) is visible to the owner -
// copying a StepEvent and mutating the copy is a bug.
type StepEvent struct {
	position    uint32
	command     Command
	value1Start byte
	value1End   byte
	value2Start byte
	value2End   byte
	duration    float64
}

func newStepEvent(position uint32, command Command, value1, value2 byte, duration float64) *StepEvent {
	return &StepEvent{
		position:    position,
		command:     command,
		value1Start: value1,
		value1End:   value1,
		value2Start: value2,
		value2End:   value2,
		duration:    duration,
	}
}

func (e *StepEvent) Position() uint32    { return e.position }
func (e *StepEvent) Command() Command    { return e.command }
func (e *StepEvent) Value1Start() byte   { return e.value1Start }
func (e *StepEvent) Value1End() byte     { return e.value1End }
func (e *StepEvent) Value2Start() byte   { return e.value2Start }
func (e *StepEvent) Value2End() byte     { return e.value2End }
func (e *StepEvent) Duration() float64   { return e.duration }

func (e *StepEvent) SetPosition(p uint32)    { e.position = p }
func (e *StepEvent) SetValue1Start(v byte)   { e.value1Start = v }
func (e *StepEvent) SetValue1End(v byte)     { e.value1End = v }
func (e *StepEvent) SetValue2Start(v byte)   { e.value2Start = v }
func (e *StepEvent) SetValue2End(v byte)     { e.value2End = v }
func (e *StepEvent) SetDuration(d float64)   { e.duration = d }

// containsStep reports whether the integer step lies within the
// event's live range [position, ceil(position+duration)).
func (e *StepEvent) containsStep(step uint32) bool {
	if uint32(step) < e.position {
		return false
	}
	end := e.position + uint32(ceilFrac(e.duration))
	return step < end
}

func ceilFrac(d float64) float64 {
	i := float64(int64(d))
	if d > i {
		return i + 1
	}
	return i
}
