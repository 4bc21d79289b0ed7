package sequencer

import "sort"

// StepsPerBeat values a Pattern's grid may use. 24 divides evenly by
// all of them, which is what lets clocksPerStep stay an integer.
var validStepsPerBeat = map[uint32]bool{
	1: true, 2: true, 3: true, 4: true, 6: true, 8: true, 12: true, 24: true,
}

// clocksPerBeat is the MIDI clock resolution: 24 pulses per quarter
// note, fixed by the MIDI spec.
const clocksPerBeat = 24

// Pattern is an ordered-by-position grid of StepEvents over
// beats*stepsPerBeat steps. It is the unit a Sequence places on its
// timeline.
type Pattern struct {
	events       []*StepEvent // kept sorted by Position
	beats        uint32
	stepsPerBeat uint32
	scale        byte
	tonic        byte
	refNote      byte
}

// NewPattern creates a pattern over the given grid. stepsPerBeat is
// coerced to 4 if it isn't one of the allowed divisors.
func NewPattern(beats uint32, stepsPerBeat uint32) *Pattern {
	if beats == 0 {
		beats = 1
	}
	if !validStepsPerBeat[stepsPerBeat] {
		stepsPerBeat = 4
	}
	return &Pattern{
		beats:        beats,
		stepsPerBeat: stepsPerBeat,
	}
}

// Steps returns beats * stepsPerBeat, the width of the grid.
func (p *Pattern) Steps() uint32 { return p.beats * p.stepsPerBeat }

// Beats returns the number of beats in the pattern.
func (p *Pattern) Beats() uint32 { return p.beats }

// StepsPerBeat returns the current grid subdivision.
func (p *Pattern) StepsPerBeat() uint32 { return p.stepsPerBeat }

// ClocksPerStep returns how many of the 24 MIDI clocks per beat fall
// on a single step of this pattern's grid.
func (p *Pattern) ClocksPerStep() uint32 {
	if p.stepsPerBeat == 0 || p.stepsPerBeat > clocksPerBeat {
		return 1
	}
	return clocksPerBeat / p.stepsPerBeat
}

// Length returns the pattern's duration in MIDI clocks (beats * 24).
func (p *Pattern) Length() uint32 { return p.beats * clocksPerBeat }

func (p *Pattern) Scale() byte      { return p.scale }
func (p *Pattern) SetScale(s byte)  { p.scale = s }
func (p *Pattern) Tonic() byte      { return p.tonic }
func (p *Pattern) SetTonic(t byte)  { p.tonic = t }
func (p *Pattern) RefNote() byte    { return p.refNote }

// SetRefNote sets the pattern's reference note; rejects values > 127.
func (p *Pattern) SetRefNote(note byte) bool {
	if note > 127 {
		return false
	}
	p.refNote = note
	return true
}

// Events returns the pattern's events in position order. Callers must
// not retain the slice across a mutating call.
func (p *Pattern) Events() []*StepEvent { return p.events }

// EventAt returns the event at index, or nil if out of range.
func (p *Pattern) EventAt(index int) *StepEvent {
	if index < 0 || index >= len(p.events) {
		return nil
	}
	return p.events[index]
}

// addEvent inserts a new event in position order. Before insertion,
// any existing event with the same (command, value1Start) whose live
// range overlaps [position, position+duration) is removed - "overlap"
// meaning the two half-open ranges intersect, in either direction
// (the new range may nest inside, contain, or merely clip the
// existing one).
func (p *Pattern) addEvent(position uint32, command Command, value1, value2 byte, duration float64) *StepEvent {
	newStart := float64(position)
	newEnd := newStart + duration

	kept := p.events[:0:0]
	for _, ev := range p.events {
		if ev.command == command && ev.value1Start == value1 {
			checkStart := float64(ev.position)
			checkEnd := checkStart + ev.duration
			overlap := checkStart < newEnd && newStart < checkEnd
			if overlap {
				continue // drop it
			}
		}
		kept = append(kept, ev)
	}
	p.events = kept

	event := newStepEvent(position, command, value1, value2, duration)
	idx := sort.Search(len(p.events), func(i int) bool {
		return p.events[i].position > position
	})
	p.events = append(p.events, nil)
	copy(p.events[idx+1:], p.events[idx:])
	p.events[idx] = event
	return event
}

// AddEvent is the public form of addEvent, usable for non-note
// commands (control changes, program changes) that want the same
// displacement semantics.
func (p *Pattern) AddEvent(position uint32, command Command, value1, value2 byte, duration float64) *StepEvent {
	return p.addEvent(position, command, value1, value2, duration)
}

func (p *Pattern) deleteEvent(position uint32, command Command, value1 byte) bool {
	for i, ev := range p.events {
		if ev.position == position && ev.command == command && ev.value1Start == value1 {
			p.events = append(p.events[:i], p.events[i+1:]...)
			return true
		}
	}
	return false
}

// AddNote adds a NOTE_ON at step with the given note/velocity/duration
// (in steps). Rejects out-of-range step/note/velocity.
func (p *Pattern) AddNote(step uint32, note, velocity byte, duration float64) bool {
	if step >= p.Steps() || note > 127 || velocity > 127 {
		return false
	}
	p.addEvent(step, CommandNoteOn, note, velocity, duration)
	return true
}

// RemoveNote deletes the NOTE_ON at step matching note, if any.
func (p *Pattern) RemoveNote(step uint32, note byte) bool {
	return p.deleteEvent(step, CommandNoteOn, note)
}

// GetNoteVelocity returns the start velocity of the NOTE_ON at step
// matching note, or 0 if none.
func (p *Pattern) GetNoteVelocity(step uint32, note byte) byte {
	for _, ev := range p.events {
		if ev.position == step && ev.command == CommandNoteOn && ev.value1Start == note {
			return ev.value2Start
		}
	}
	return 0
}

// SetNoteVelocity updates the start velocity of the NOTE_ON at step
// matching note. Silently no-ops on invalid velocity or missing note.
func (p *Pattern) SetNoteVelocity(step uint32, note, velocity byte) bool {
	if velocity > 127 {
		return false
	}
	for _, ev := range p.events {
		if ev.position == step && ev.command == CommandNoteOn && ev.value1Start == note {
			ev.SetValue2Start(velocity)
			return true
		}
	}
	return false
}

// GetNoteDuration returns the duration (in steps) of the NOTE_ON at
// step matching note, or 0 if none.
func (p *Pattern) GetNoteDuration(step uint32, note byte) float64 {
	if step >= p.Steps() {
		return 0
	}
	for _, ev := range p.events {
		if ev.position == step && ev.command == CommandNoteOn && ev.value1Start == note {
			return ev.duration
		}
	}
	return 0
}

// GetNoteStart returns the position of the earliest NOTE_ON whose live
// range contains step and matches note, or -1 if none.
func (p *Pattern) GetNoteStart(step uint32, note byte) int64 {
	for _, ev := range p.events {
		if ev.command == CommandNoteOn && ev.value1Start == note && ev.containsStep(step) {
			return int64(ev.position)
		}
	}
	return -1
}

// AddProgramChange adds a PROGRAM CHANGE at step, replacing any
// existing one (only one program change per step is allowed).
func (p *Pattern) AddProgramChange(step uint32, program byte) bool {
	if step >= p.Steps() || program > 127 {
		return false
	}
	p.RemoveProgramChange(step)
	p.addEvent(step, CommandProgram, program, 0, 0)
	return true
}

// RemoveProgramChange removes the PROGRAM CHANGE at step, if any.
func (p *Pattern) RemoveProgramChange(step uint32) bool {
	if step >= p.Steps() {
		return false
	}
	program := p.GetProgramChange(step)
	if program == 0xFF {
		return false
	}
	return p.deleteEvent(step, CommandProgram, program)
}

// GetProgramChange returns the program at step, or 0xFF if none.
func (p *Pattern) GetProgramChange(step uint32) byte {
	if step >= p.Steps() {
		return 0xFF
	}
	for _, ev := range p.events {
		if ev.position == step && ev.command == CommandProgram {
			return ev.value1Start
		}
	}
	return 0xFF
}

// AddControl adds a CONTROL CHANGE at step that may ramp from
// valueStart to valueEnd across duration steps.
func (p *Pattern) AddControl(step uint32, control, valueStart, valueEnd byte, duration float64) bool {
	if step > p.Steps() || control > 127 || valueStart > 127 || valueEnd > 127 || duration > float64(p.Steps()) {
		return false
	}
	ev := p.addEvent(step, CommandControl, control, valueStart, duration)
	ev.SetValue2End(valueEnd)
	return true
}

// RemoveControl removes the CONTROL CHANGE at step matching control.
func (p *Pattern) RemoveControl(step uint32, control byte) bool {
	return p.deleteEvent(step, CommandControl, control)
}

// SetStepsPerBeat rescales the grid to a new subdivision, preserving
// musical time: every event's position and duration are scaled by
// new/old. Rejects subdivisions outside the allowed set.
func (p *Pattern) SetStepsPerBeat(value uint32) bool {
	if !validStepsPerBeat[value] {
		return false
	}
	scale := float64(value) / float64(p.stepsPerBeat)
	p.stepsPerBeat = value
	for _, ev := range p.events {
		ev.SetPosition(uint32(float64(ev.position) * scale))
		ev.SetDuration(ev.duration * scale)
	}
	return true
}

// SetBeatsInPattern resizes the grid to the given beat count. Events
// are stored in position order, so truncation drops every event from
// the first one at or beyond the new grid width onward.
func (p *Pattern) SetBeatsInPattern(beats uint32) {
	if beats == 0 {
		return
	}
	p.beats = beats
	limit := p.Steps()
	cut := len(p.events)
	for i, ev := range p.events {
		if ev.position >= limit {
			cut = i
			break
		}
	}
	p.events = p.events[:cut]
}

// Transpose shifts every NOTE_ON's note by delta. If any note would
// leave [0,127] the whole operation is rejected and nothing changes.
func (p *Pattern) Transpose(delta int) bool {
	for _, ev := range p.events {
		if ev.command != CommandNoteOn {
			continue
		}
		note := int(ev.value1Start) + delta
		if note < 0 || note > 127 {
			return false
		}
	}
	for _, ev := range p.events {
		if ev.command != CommandNoteOn {
			continue
		}
		note := byte(int(ev.value1Start) + delta)
		ev.SetValue1Start(note)
		ev.SetValue1End(note)
	}
	return true
}

// ChangeVelocityAll adds delta to every NOTE_ON's start velocity,
// clamped to [1,127].
func (p *Pattern) ChangeVelocityAll(delta int) {
	for _, ev := range p.events {
		if ev.command != CommandNoteOn {
			continue
		}
		v := int(ev.value2Start) + delta
		if v > 127 {
			v = 127
		}
		if v < 1 {
			v = 1
		}
		ev.SetValue2Start(byte(v))
	}
}

// ChangeDurationAll adds delta to every NOTE_ON's duration. If any
// resulting duration would be <= 0 the whole operation is rejected;
// otherwise results are clamped to a minimum of 0.1 steps.
func (p *Pattern) ChangeDurationAll(delta float64) bool {
	for _, ev := range p.events {
		if ev.command != CommandNoteOn {
			continue
		}
		if ev.duration+delta <= 0 {
			return false
		}
	}
	for _, ev := range p.events {
		if ev.command != CommandNoteOn {
			continue
		}
		d := ev.duration + delta
		if d < 0.1 {
			d = 0.1
		}
		ev.SetDuration(d)
	}
	return true
}

// Clear removes every event from the pattern.
func (p *Pattern) Clear() {
	p.events = nil
}

// FirstEventAtStep returns the index of the first event at step, or
// -1 if none.
func (p *Pattern) FirstEventAtStep(step uint32) int {
	for i, ev := range p.events {
		if ev.position == step {
			return i
		}
	}
	return -1
}

// LastStep returns the position of the last event in the pattern, or
// -1 if the pattern is empty.
func (p *Pattern) LastStep() int64 {
	if len(p.events) == 0 {
		return -1
	}
	max := uint32(0)
	for _, ev := range p.events {
		if ev.position > max {
			max = ev.position
		}
	}
	return int64(max)
}
