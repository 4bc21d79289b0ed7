// Command zynseqd runs the sequencer engine against real MIDI ports,
// driving its own software transport clock in place of a JACK host
// (the host binding itself is out of scope, see spec.md §1).
package main

import (
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/spf13/cobra"

	"zynseq/config"
	"zynseq/debug"
	"zynseq/midi"
	"zynseq/sequencer"
	"zynseq/transport"
)

var debugFlag bool

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "zynseqd",
	Short: "Tempo-aware MIDI step sequencer engine",
	Long: `zynseqd drives pattern, sequence and song playback against real MIDI
ports using its own software transport clock in place of a JACK host.`,
}

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the sequencer engine until interrupted",
	RunE:  runEngine,
}

var portsCmd = &cobra.Command{
	Use:   "ports",
	Short: "List available MIDI input and output ports",
	RunE:  runPorts,
}

func init() {
	rootCmd.PersistentFlags().BoolVar(&debugFlag, "debug", false, "enable debug logging to ~/.config/zynseq/debug.log")
	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(portsCmd)
}

func runPorts(cmd *cobra.Command, args []string) error {
	fmt.Println("outputs:")
	for _, name := range midi.ListOutputs() {
		fmt.Printf("  %s\n", name)
	}
	fmt.Println("inputs:")
	for _, name := range midi.ListInputs() {
		fmt.Printf("  %s\n", name)
	}
	return nil
}

func runEngine(cmd *cobra.Command, args []string) error {
	if debugFlag {
		if err := debug.Enable(); err != nil {
			fmt.Fprintf(os.Stderr, "debug log: %v\n", err)
		}
		defer debug.Disable()
	}

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	manager := sequencer.NewPatternManager()
	manager.SetTriggerChannel(byte(cfg.TriggerChannel))
	if songPath, err := cfg.SongFilePath(); err == nil {
		if err := manager.Load(songPath); err != nil {
			debug.Log("persist", "no saved song at %s (%v), starting empty", songPath, err)
		}
	}

	sched := sequencer.NewScheduler()
	host := newSoftwareHost(cfg.SampleRate)
	engine := transport.NewEngine(host, manager, sched)

	var output *midi.Output
	if cfg.OutputPort != "" {
		output, err = midi.OpenOutput(cfg.OutputPort)
		if err != nil {
			return fmt.Errorf("open midi output %q: %w", cfg.OutputPort, err)
		}
		defer output.Close()
	}

	inbox := make(chan midi.Message, 256)
	if cfg.InputPort != "" {
		in, err := midi.OpenInput(cfg.InputPort, func(m midi.Message) {
			select {
			case inbox <- m:
			default:
			}
		})
		if err != nil {
			return fmt.Errorf("open midi input %q: %w", cfg.InputPort, err)
		}
		defer in.Close()
	}

	runTransportLoop(engine, host, inbox, output, cfg)
	return nil
}

// softwareHost is a minimal Host that derives its sample clock from
// wall-clock ticks rather than a real audio callback, following the
// same wall-clock-driven loop style this codebase's tooling uses
// elsewhere for non-realtime simulation.
type softwareHost struct {
	sampleRate float64

	mu      sync.Mutex
	rolling bool
	frame   int64
}

func newSoftwareHost(sampleRate float64) *softwareHost {
	return &softwareHost{sampleRate: sampleRate}
}

func (h *softwareHost) SampleRate() float64 { return h.sampleRate }

func (h *softwareHost) Rolling() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.rolling
}

func (h *softwareHost) Start() {
	h.mu.Lock()
	h.rolling = true
	h.mu.Unlock()
	debug.Log("transport", "start")
}

func (h *softwareHost) Stop() {
	h.mu.Lock()
	h.rolling = false
	h.mu.Unlock()
	debug.Log("transport", "stop")
}

func (h *softwareHost) Locate(frame int64) {
	h.mu.Lock()
	h.frame = frame
	h.mu.Unlock()
	debug.Log("transport", "locate %d", frame)
}

// runTransportLoop drives TimebaseCallback/ProcessCallback once per
// period, at wall-clock intervals matching PeriodFrames/SampleRate.
func runTransportLoop(engine *transport.Engine, host *softwareHost, inbox <-chan midi.Message, output *midi.Output, cfg *config.Config) {
	periodDuration := time.Duration(float64(cfg.PeriodFrames) / cfg.SampleRate * float64(time.Second))
	ticker := time.NewTicker(periodDuration)
	defer ticker.Stop()

	var hostFrameTime int64

	for range ticker.C {
		pos := &transport.Position{Frame: hostFrameTime}
		engine.TimebaseCallback(host.Rolling(), cfg.PeriodFrames, pos, false, hostFrameTime)

		var input []midi.Message
	drain:
		for {
			select {
			case m := <-inbox:
				input = append(input, m)
			default:
				break drain
			}
		}

		engine.ProcessCallback(hostFrameTime, cfg.PeriodFrames, input, func(offset uint32, msg midi.Message) bool {
			if output == nil {
				return true
			}
			if err := output.Send(msg); err != nil {
				debug.Log("midi", "send failed at offset %d: %v", offset, err)
				return false
			}
			return true
		})

		hostFrameTime += int64(cfg.PeriodFrames)
	}
}
