package transport

import (
	"math"
	"testing"

	"zynseq/sequencer"
)

func TestFramesPerClockAtDefaultTempo(t *testing.T) {
	got := framesPerClock(120, 44100)
	want := 60 * 44100 / (120 * 24.0)
	if math.Abs(got-want) > 0.01 {
		t.Fatalf("framesPerClock = %v, want %v", got, want)
	}
}

func TestTransportGetLocationRoundTripsWithDeriveBBT(t *testing.T) {
	tb := sequencer.NewTimebase()
	sampleRate := 44100.0

	frame := transportGetLocation(tb, 3, 2, 500, sampleRate)
	bar, beat, tick := deriveBBT(tb, frame, sampleRate)

	if bar != 3 || beat != 2 {
		t.Fatalf("derived (bar,beat) = (%d,%d), want (3,2)", bar, beat)
	}
	if diff := int(tick) - 500; diff < -1 || diff > 1 {
		t.Fatalf("derived tick = %d, want ~500", tick)
	}
}

func TestTransportGetLocationHonoursTempoChange(t *testing.T) {
	tb := sequencer.NewTimebase()
	tb.SetTempo(240, 2, 0) // double speed from bar 2 onward
	sampleRate := 44100.0

	oneBarAt120 := transportGetLocation(tb, 2, 1, 0, sampleRate)
	twoBarsIn := transportGetLocation(tb, 3, 1, 0, sampleRate)

	elapsedAt240 := twoBarsIn - oneBarAt120
	expected := int64(framesPerTick(240, sampleRate) * sequencer.TicksPerBeat * 4)
	if diff := elapsedAt240 - expected; diff < -4 || diff > 4 {
		t.Fatalf("bar at 240bpm took %d frames, want ~%d", elapsedAt240, expected)
	}
}

func TestAbsoluteTickHonoursTimeSigChanges(t *testing.T) {
	tb := sequencer.NewTimebase()
	tb.SetTimeSig(3<<8|4, 2) // 3/4 from bar 2

	barTwoStart := absoluteTick(tb, 2, 0)
	oneBarOfFour := uint64(4) * sequencer.TicksPerBeat
	if barTwoStart != oneBarOfFour {
		t.Fatalf("bar 2 starts at tick %d, want %d", barTwoStart, oneBarOfFour)
	}

	barThreeStart := absoluteTick(tb, 3, 0)
	if barThreeStart != oneBarOfFour+3*sequencer.TicksPerBeat {
		t.Fatalf("bar 3 starts at tick %d, want %d", barThreeStart, oneBarOfFour+3*sequencer.TicksPerBeat)
	}
}
