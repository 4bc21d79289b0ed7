package midi

import "testing"

func TestNoteOnVelocityZeroIsNoteOff(t *testing.T) {
	on := NoteOnMsg(0, 60, 0)
	if !on.IsNoteOff() {
		t.Fatalf("NOTE_ON with velocity 0 should be recognised as note-off")
	}
	if on.IsNoteOn() {
		t.Fatalf("velocity-0 NOTE_ON should not also report as note-on")
	}
}

func TestNoteOnVelocityNonZeroIsNoteOn(t *testing.T) {
	on := NoteOnMsg(2, 60, 100)
	if !on.IsNoteOn() {
		t.Fatalf("expected IsNoteOn to be true")
	}
	if on.Channel() != 2 {
		t.Fatalf("Channel() = %d, want 2", on.Channel())
	}
}

func TestEncodeDecodeRoundTrip(t *testing.T) {
	cases := []Message{
		NoteOnMsg(1, 60, 100),
		NoteOffMsg(1, 60),
		ControlMsg(3, 7, 64),
		ProgramMsg(5, 12),
		RealtimeMsg(Clock),
		RealtimeMsg(Start),
	}
	for _, msg := range cases {
		raw := encode(msg)
		decoded, ok := decode(raw)
		if !ok {
			t.Fatalf("decode failed for %+v", msg)
		}
		if decoded != msg {
			t.Fatalf("round trip mismatch: got %+v, want %+v", decoded, msg)
		}
	}
}
