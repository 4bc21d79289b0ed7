package transport

import (
	"zynseq/midi"
	"zynseq/sequencer"
)

// Engine is the process-wide transport state described in the data
// model: the audio-frame <-> musical-time mapping, the song play
// state, and the cursor into the current Song's Timebase. One Engine
// drives one host transport; its two callbacks are invoked by whatever
// binds this package to an actual host (out of scope here, see
// DESIGN.md).
type Engine struct {
	host    Host
	manager *sequencer.PatternManager
	sched   *sequencer.Scheduler

	sampleRate float64

	bar, beat, clock, tick uint32

	framesToNextClock   float64
	framesPerClockValue float64

	transportStartFrame int64

	beatsPerBar uint32
	beatType    uint32
	tempo       float64

	songStatus         sequencer.PlayState
	songPositionClocks uint32
	songLengthClocks   uint32

	tbCursor *sequencer.TimebaseEvent
	lastBBT  Position
}

// NewEngine creates a stopped engine at bar 1, beat 1, tick 0, with the
// default tempo and meter in effect until the Timebase says otherwise.
func NewEngine(host Host, manager *sequencer.PatternManager, sched *sequencer.Scheduler) *Engine {
	sampleRate := host.SampleRate()
	e := &Engine{
		host:        host,
		manager:     manager,
		sched:       sched,
		sampleRate:  sampleRate,
		bar:         1,
		beat:        1,
		beatsPerBar: sequencer.DefaultTimeSigBeats,
		beatType:    sequencer.DefaultTimeSigType,
		tempo:       sequencer.DefaultTempo,
	}
	e.framesPerClockValue = framesPerClock(e.tempo, sampleRate)
	e.refreshSongLength()
	return e
}

func (e *Engine) currentTimebase() *sequencer.Timebase {
	song := e.manager.CurrentSong()
	if song == nil {
		return nil
	}
	return song.Timebase()
}

func (e *Engine) refreshSongLength() {
	song := e.manager.CurrentSong()
	if song == nil {
		e.songLengthClocks = 0
		return
	}
	e.songLengthClocks = e.manager.UpdateSequenceLengths(song)
}

// TimebaseCallback implements §4.8a: it is invoked once per period,
// before ProcessCallback, and may run while the transport is stopped.
// hostFrameTime is the host's frame clock value at the start of the
// *next* period; pos describes that next cycle. When update is set or
// a Timebase event was applied this period, pos is recomputed: from
// its BBT fields if pos.Valid is set on entry, otherwise from
// pos.Frame. In any other period pos is overwritten with the values
// filled in by the previous call.
func (e *Engine) TimebaseCallback(rolling bool, framesInPeriod uint32, pos *Position, update bool, hostFrameTime int64) {
	tb := e.currentTimebase()
	if tb == nil {
		return
	}

	changed := e.drainTimebaseEvents(tb)

	switch {
	case update || changed:
		if pos.Valid {
			e.applyAuthoritativeBBT(tb, pos, hostFrameTime)
		} else {
			e.deriveAndFillBBT(tb, pos)
		}
	default:
		*pos = e.lastBBT
	}
	e.lastBBT = *pos

	if rolling {
		e.walkClocks(framesInPeriod, pos, hostFrameTime)
	}
}

// drainTimebaseEvents applies every Timebase event at or before the
// current bar and advances the cursor past them, reporting whether
// anything changed.
func (e *Engine) drainTimebaseEvents(tb *sequencer.Timebase) bool {
	changed := false
	for {
		var ev *sequencer.TimebaseEvent
		if e.tbCursor == nil {
			ev = tb.GetFirstTimebaseEvent()
		} else {
			ev = tb.GetNextTimebaseEvent(e.tbCursor)
		}
		if ev == nil || ev.Bar > e.bar {
			break
		}
		switch ev.Type {
		case sequencer.TimebaseTempo:
			e.tempo = ev.Value
			e.framesPerClockValue = framesPerClock(e.tempo, e.sampleRate)
		case sequencer.TimebaseTimeSig:
			packed := uint32(ev.Value)
			e.beatsPerBar = packed >> 8
			e.beatType = packed & 0xFF
		}
		e.tbCursor = ev
		changed = true
	}
	return changed
}

// applyAuthoritativeBBT treats pos's BBT fields as the truth: it
// normalises tick/beat overflow, derives the corresponding frame, and
// anchors transportStartFrame from it.
func (e *Engine) applyAuthoritativeBBT(tb *sequencer.Timebase, pos *Position, hostFrameTime int64) {
	beatCarry := pos.Tick / sequencer.TicksPerBeat
	pos.Tick %= sequencer.TicksPerBeat
	pos.Beat += beatCarry

	barCarry := (pos.Beat - 1) / e.beatsPerBar
	pos.Beat = (pos.Beat-1)%e.beatsPerBar + 1
	pos.Bar += barCarry

	pos.Frame = transportGetLocation(tb, pos.Bar, pos.Beat, pos.Tick, e.sampleRate)

	e.bar, e.beat, e.tick = pos.Bar, pos.Beat, pos.Tick
	e.transportStartFrame = hostFrameTime + pos.Frame

	e.fillCanonical(tb, pos)
}

// deriveAndFillBBT treats pos.Frame as the truth and computes BBT from
// it by walking the Timebase.
func (e *Engine) deriveAndFillBBT(tb *sequencer.Timebase, pos *Position) {
	bar, beat, tick := deriveBBT(tb, pos.Frame, e.sampleRate)
	pos.Bar, pos.Beat, pos.Tick = bar, beat, tick
	e.bar, e.beat, e.tick = bar, beat, tick
	e.fillCanonical(tb, pos)
}

func (e *Engine) fillCanonical(tb *sequencer.Timebase, pos *Position) {
	pos.Valid = true
	pos.TicksPerBeat = sequencer.TicksPerBeat
	pos.BeatsPerMinute = e.tempo
	pos.BeatsPerBar = e.beatsPerBar
	pos.BeatType = e.beatType
	pos.BarStartTick = uint32(absoluteTick(tb, pos.Bar, 0))
}

// walkClocks implements §4.8a step 4: it steps through every MIDI
// clock pulse landing in this period, driving PatternManager.Clock for
// each and auto-stopping the transport if the last sync pulse left
// nothing playing.
func (e *Engine) walkClocks(framesInPeriod uint32, pos *Position, hostFrameTime int64) {
	remaining := float64(framesInPeriod)

	var lastSyncPulse, lastNothingPlaying bool

	for e.framesToNextClock <= remaining {
		absoluteClockSample := int64(e.framesToNextClock) + pos.Frame + e.transportStartFrame + int64(framesInPeriod)

		syncPulse := false
		if e.clock == 0 {
			syncPulse = e.beat == 1
			e.songPositionClocks++
			if e.songStatus == sequencer.Playing && e.songPositionClocks > e.songLengthClocks {
				e.songStatus = sequencer.Stopped
			}
			if syncPulse && e.songStatus == sequencer.Starting {
				e.songStatus = sequencer.Playing
			}
		}

		playing := e.manager.Clock(absoluteClockSample, e.sched, syncPulse, e.framesPerClockValue)
		lastSyncPulse = syncPulse
		lastNothingPlaying = !playing

		remaining -= e.framesToNextClock
		e.framesToNextClock = e.framesPerClockValue
		e.clock++
		if e.clock > 23 {
			e.clock = 0
			e.beat++
		}
		if e.beat > e.beatsPerBar {
			e.beat = 1
			if e.songStatus == sequencer.Playing {
				e.bar++
			}
		}
	}
	e.framesToNextClock -= remaining

	if lastSyncPulse && lastNothingPlaying {
		e.host.Stop()
		e.host.Locate(0)
	}
}

// ProcessCallback implements §4.8b: it must complete within the
// period. It interprets realtime input bytes, then drains the
// scheduler into the host's output buffer via reserve.
func (e *Engine) ProcessCallback(hostFrameTime int64, framesInPeriod uint32, input []midi.Message, reserve sequencer.Reserver) {
	for _, msg := range input {
		e.handleInput(msg)
	}

	if !e.sched.TryLock() {
		return
	}
	defer e.sched.Unlock()
	e.sched.Drain(hostFrameTime, framesInPeriod, reserve)
}

func (e *Engine) handleInput(msg midi.Message) {
	switch msg.Command {
	case midi.Stop:
		e.pauseSong()
		return
	case midi.Start:
		e.stopSong()
		e.startSong()
		return
	case midi.Continue:
		e.startSong()
		return
	case midi.Position:
		e.setSongPosition(uint32(msg.Value1) | uint32(msg.Value2)<<7)
		return
	case midi.SongSelect:
		e.selectSong(int(msg.Value1))
		return
	case midi.Clock:
		// The engine is the timebase authority; clock bytes from the
		// host's input are not re-derived from.
		return
	}

	if msg.IsNoteOn() && msg.Channel() == e.manager.TriggerChannel() {
		id := e.manager.Trigger(msg.Value1)
		if id < 0 {
			return
		}
		if seq := e.manager.Sequence(id); seq != nil && seq.PlayState() != sequencer.Stopped && !e.host.Rolling() {
			e.host.Start()
		}
	}

	// NOTE_ON on an input/edit channel toggling the current step of
	// sequence 1's current pattern is the MIDI-to-pattern-programming
	// convenience path; it is out of scope (see spec.md §1) and not
	// wired here.
}

func (e *Engine) startSong() {
	if e.songStatus == sequencer.Stopped {
		e.songStatus = sequencer.Starting
	}
}

func (e *Engine) stopSong() {
	e.songStatus = sequencer.Stopped
	e.songPositionClocks = 0
}

func (e *Engine) pauseSong() {
	if e.songStatus == sequencer.Playing {
		e.songStatus = sequencer.Stopping
	}
}

func (e *Engine) setSongPosition(clocks uint32) {
	if e.songLengthClocks == 0 {
		e.songPositionClocks = 0
		return
	}
	e.songPositionClocks = clocks % e.songLengthClocks
}

func (e *Engine) selectSong(id int) {
	if e.manager.SelectSong(id) {
		e.refreshSongLength()
	}
}

// SongStatus reports the current song's play state (§3 song_status).
func (e *Engine) SongStatus() sequencer.PlayState { return e.songStatus }

// SongPosition reports the current song position in clocks.
func (e *Engine) SongPosition() uint32 { return e.songPositionClocks }

// Bar, Beat, Tick, Clock expose the engine's current musical-time
// cursor (mostly for tests and diagnostics).
func (e *Engine) Bar() uint32   { return e.bar }
func (e *Engine) Beat() uint32  { return e.beat }
func (e *Engine) Tick() uint32  { return e.tick }
func (e *Engine) Clock() uint32 { return e.clock }
