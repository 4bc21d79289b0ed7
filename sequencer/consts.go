package sequencer

// Musical-time resolution shared by the whole engine: 1920 ticks per
// beat, 24 MIDI clocks per beat, so 80 ticks per clock.
const (
	TicksPerBeat  = 1920
	ClocksPerBeat = clocksPerBeat
	ticksPerClock = TicksPerBeat / ClocksPerBeat
)

// TicksPerClock exposes the tick resolution of a single MIDI clock
// pulse to other packages (transport coordinate math).
const TicksPerClock = ticksPerClock
