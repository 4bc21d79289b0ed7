package transport

import "zynseq/sequencer"

// Position mirrors the host's per-cycle BBT/frame record: the engine
// either fills it in from Frame (derive) or treats its BBT fields as
// authoritative and computes Frame from them (see Engine.TimebaseCallback).
type Position struct {
	Frame int64

	// Valid reports whether a caller has set Bar/Beat/Tick and wants
	// them treated as authoritative for this cycle. The engine always
	// leaves it true on return.
	Valid bool

	Bar  uint32
	Beat uint32
	Tick uint32

	BarStartTick   uint32
	TicksPerBeat   float64
	BeatsPerMinute float64
	BeatsPerBar    uint32
	BeatType       uint32
}

// framesPerTick converts a tempo to the frame duration of one tick.
func framesPerTick(bpm, sampleRate float64) float64 {
	return 60 * sampleRate / (bpm * sequencer.TicksPerBeat)
}

// framesPerClock converts a tempo to the frame duration of one MIDI
// clock pulse (80 ticks).
func framesPerClock(bpm, sampleRate float64) float64 {
	return framesPerTick(bpm, sampleRate) * sequencer.TicksPerClock
}

// beatsInBar returns the beats-per-bar in effect at bar, from the
// timebase's time-signature events.
func beatsInBar(tb *sequencer.Timebase, bar uint32) uint32 {
	return tb.GetTimeSig(bar) >> 8
}

// absoluteTick converts (bar, tick-within-bar) to a tick count measured
// from the start of bar 1, walking each preceding bar's own
// time-signature so meter changes are honoured.
func absoluteTick(tb *sequencer.Timebase, bar uint32, tickInBar uint64) uint64 {
	var total uint64
	for b := uint32(1); b < bar; b++ {
		total += uint64(beatsInBar(tb, b)) * sequencer.TicksPerBeat
	}
	return total + tickInBar
}

// tickToBBT is the inverse of absoluteTick: splits a tick count from
// the start of bar 1 back into (bar, beat, tick), walking bars of
// varying length.
func tickToBBT(tb *sequencer.Timebase, totalTick uint64) (bar, beat, tick uint32) {
	bar = 1
	for {
		barTicks := uint64(beatsInBar(tb, bar)) * sequencer.TicksPerBeat
		if totalTick < barTicks {
			break
		}
		totalTick -= barTicks
		bar++
	}
	beat = uint32(totalTick/sequencer.TicksPerBeat) + 1
	tick = uint32(totalTick % sequencer.TicksPerBeat)
	return bar, beat, tick
}

// transportGetLocation converts 1-based (bar, beat, tick) to a frame
// offset by walking the timebase's tempo sections: within each section
// frames accumulate at framesPerTick(tempo) per tick, using the
// default tempo before the first event.
func transportGetLocation(tb *sequencer.Timebase, bar, beat, tick uint32, sampleRate float64) int64 {
	target := absoluteTick(tb, bar, uint64(beat-1)*sequencer.TicksPerBeat+uint64(tick))

	var frames float64
	var sectionStart uint64
	tempo := float64(sequencer.DefaultTempo)

	for _, ev := range tb.Events() {
		if ev.Type != sequencer.TimebaseTempo {
			continue
		}
		evTick := absoluteTick(tb, ev.Bar, uint64(ev.Clock)*sequencer.TicksPerClock)
		if evTick >= target {
			break
		}
		if evTick > sectionStart {
			frames += framesPerTick(tempo, sampleRate) * float64(evTick-sectionStart)
			sectionStart = evTick
		}
		tempo = ev.Value
	}
	frames += framesPerTick(tempo, sampleRate) * float64(target-sectionStart)
	return int64(frames)
}

// deriveBBT is the inverse of transportGetLocation: walks the same
// tempo sections accumulating frames until the target frame falls
// inside the current section, then computes the remainder in ticks.
func deriveBBT(tb *sequencer.Timebase, frame int64, sampleRate float64) (bar, beat, tick uint32) {
	target := float64(frame)

	var framesAcc float64
	var tickAcc uint64
	tempo := float64(sequencer.DefaultTempo)

	for _, ev := range tb.Events() {
		if ev.Type != sequencer.TimebaseTempo {
			continue
		}
		evTick := absoluteTick(tb, ev.Bar, uint64(ev.Clock)*sequencer.TicksPerClock)
		if evTick <= tickAcc {
			tempo = ev.Value
			continue
		}
		sectionFrames := framesPerTick(tempo, sampleRate) * float64(evTick-tickAcc)
		if framesAcc+sectionFrames > target {
			break
		}
		framesAcc += sectionFrames
		tickAcc = evTick
		tempo = ev.Value
	}

	remainingFrames := target - framesAcc
	remainingTicks := remainingFrames / framesPerTick(tempo, sampleRate)
	totalTick := tickAcc + uint64(remainingTicks)
	return tickToBBT(tb, totalTick)
}
