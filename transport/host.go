// Package transport owns the audio-frame <-> musical-time mapping and
// the per-period clock walk that drives the sequencer core. It is
// invoked from a host's timebase and process callbacks; it never owns
// the transport's rolling/stopped state itself (see Host).
package transport

// Host abstracts whatever audio server actually owns the transport
// clock (JACK, a software simulator, a test harness). The engine is a
// timebase *provider* only - Host remains the authority on whether
// playback is rolling and on the sample clock itself.
type Host interface {
	SampleRate() float64
	Rolling() bool
	Start()
	Stop()
	Locate(frame int64)
}
