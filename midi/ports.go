package midi

import (
	"fmt"
	"strings"

	gomidi "gitlab.com/gomidi/midi/v2"
	"gitlab.com/gomidi/midi/v2/drivers"
	_ "gitlab.com/gomidi/midi/v2/drivers/rtmididrv" // register the platform driver
)

// Output is an opened MIDI output port the transport engine drains its
// scheduler into.
type Output struct {
	port drivers.Out
	send func(gomidi.Message) error
}

// OpenOutput opens the first output port whose name contains name
// (case-insensitive).
func OpenOutput(name string) (*Output, error) {
	port, err := findOutPort(name)
	if err != nil {
		return nil, err
	}
	send, err := gomidi.SendTo(port)
	if err != nil {
		return nil, fmt.Errorf("open midi output %q: %w", name, err)
	}
	return &Output{port: port, send: send}, nil
}

// Send writes msg's wire bytes to the port.
func (o *Output) Send(msg Message) error {
	return o.send(encode(msg))
}

func (o *Output) Close() error {
	return o.port.Close()
}

// Input is an opened MIDI input port, delivering decoded messages to a
// callback on gomidi's own listener goroutine.
type Input struct {
	port drivers.In
	stop func()
}

// OpenInput opens the first input port whose name contains name
// (case-insensitive) and calls onMessage for every message it can
// decode; malformed or unrecognised bytes are dropped.
func OpenInput(name string, onMessage func(Message)) (*Input, error) {
	port, err := findInPort(name)
	if err != nil {
		return nil, err
	}
	stop, err := gomidi.ListenTo(port, func(msg gomidi.Message, _ int32) {
		if decoded, ok := decode(msg); ok {
			onMessage(decoded)
		}
	})
	if err != nil {
		return nil, fmt.Errorf("open midi input %q: %w", name, err)
	}
	return &Input{port: port, stop: stop}, nil
}

func (i *Input) Close() {
	if i.stop != nil {
		i.stop()
	}
}

// ListOutputs and ListInputs expose port names for config/diagnostics.
func ListOutputs() []string { return portNames(gomidi.GetOutPorts()) }
func ListInputs() []string  { return portNames(gomidi.GetInPorts()) }

func portNames[T fmt.Stringer](ports []T) []string {
	names := make([]string, len(ports))
	for i, p := range ports {
		names[i] = p.String()
	}
	return names
}

func findOutPort(name string) (drivers.Out, error) {
	for _, p := range gomidi.GetOutPorts() {
		if strings.Contains(strings.ToLower(p.String()), strings.ToLower(name)) {
			return p, nil
		}
	}
	return nil, fmt.Errorf("midi output port %q not found", name)
}

func findInPort(name string) (drivers.In, error) {
	for _, p := range gomidi.GetInPorts() {
		if strings.Contains(strings.ToLower(p.String()), strings.ToLower(name)) {
			return p, nil
		}
	}
	return nil, fmt.Errorf("midi input port %q not found", name)
}

// encode renders a Message to its wire byte sequence.
func encode(msg Message) gomidi.Message {
	switch msg.Command {
	case Clock, Start, Continue, Stop:
		return gomidi.Message{msg.Command}
	case Position:
		return gomidi.Message{msg.Command, msg.Value1, msg.Value2}
	case SongSelect:
		return gomidi.Message{msg.Command, msg.Value1}
	}
	if msg.Command&0xF0 == Program {
		return gomidi.Message{msg.Command, msg.Value1}
	}
	return gomidi.Message{msg.Command, msg.Value1, msg.Value2}
}

// decode parses a raw wire message into a Message. Unrecognised or
// truncated messages are reported via the second return value.
func decode(raw gomidi.Message) (Message, bool) {
	if len(raw) == 0 {
		return Message{}, false
	}
	status := raw[0]
	switch status {
	case Clock, Start, Continue, Stop:
		return Message{Command: status}, true
	case Position:
		if len(raw) < 3 {
			return Message{}, false
		}
		return Message{Command: status, Value1: raw[1], Value2: raw[2]}, true
	case SongSelect:
		if len(raw) < 2 {
			return Message{}, false
		}
		return Message{Command: status, Value1: raw[1]}, true
	}
	switch status & 0xF0 {
	case Note, Control:
		if len(raw) < 3 {
			return Message{}, false
		}
		return Message{Command: status, Value1: raw[1], Value2: raw[2]}, true
	case Program:
		if len(raw) < 2 {
			return Message{}, false
		}
		return Message{Command: status, Value1: raw[1]}, true
	}
	return Message{}, false
}
