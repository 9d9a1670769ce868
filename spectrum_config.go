// spectrum_config.go - Machine configuration and its command-line flags

package main

import (
	"errors"
	"flag"
	"fmt"
	"strings"
	"time"
)

type DecodePolicy int

const (
	DecodeHalt DecodePolicy = iota
	DecodeSkip
	DecodeLog
)

// decodeSkipCycles is charged for an undefined opcode under skip and log.
const decodeSkipCycles = 8

func (p DecodePolicy) String() string {
	switch p {
	case DecodeSkip:
		return "skip"
	case DecodeLog:
		return "log"
	default:
		return "halt"
	}
}

func ParseDecodePolicy(s string) (DecodePolicy, error) {
	switch strings.ToLower(s) {
	case "halt", "":
		return DecodeHalt, nil
	case "skip":
		return DecodeSkip, nil
	case "log":
		return DecodeLog, nil
	}
	return DecodeHalt, fmt.Errorf("unknown decode policy %q (want halt, skip or log)", s)
}

type MachineConfig struct {
	ROMPath    string
	ClockHz    int
	SampleRate int
	Scale      int
	Headless   bool
	Turbo      bool
	Trace      bool
	Decode     DecodePolicy

	TapePoll     time.Duration
	TapeAutoplay bool
	RecordTo     string

	SaveSnapshot string
	ExtractIndex int
	ExtractTo    string

	Script    string
	StatsAddr string
	Control   bool
}

func DefaultMachineConfig() MachineConfig {
	return MachineConfig{
		ROMPath:      "48.rom",
		ClockHz:      SPECTRUM_CLOCK_HZ,
		SampleRate:   44100,
		Scale:        2,
		Decode:       DecodeHalt,
		TapePoll:     100 * time.Millisecond,
		TapeAutoplay: true,
		ExtractIndex: -1,
	}
}

func (c MachineConfig) Validate() error {
	var errs []error
	if c.ClockHz <= 0 {
		errs = append(errs, fmt.Errorf("clock must be positive, got %d", c.ClockHz))
	}
	if c.SampleRate < 8000 || c.SampleRate > 192000 {
		errs = append(errs, fmt.Errorf("sample rate %d out of range 8000-192000", c.SampleRate))
	}
	if c.Scale < 1 || c.Scale > 8 {
		errs = append(errs, fmt.Errorf("scale %d out of range 1-8", c.Scale))
	}
	if c.TapePoll <= 0 {
		errs = append(errs, fmt.Errorf("tape poll interval must be positive, got %v", c.TapePoll))
	}
	if (c.ExtractIndex >= 0) != (c.ExtractTo != "") {
		errs = append(errs, errors.New("-extract-block and -extract-to must be given together"))
	}
	return errors.Join(errs...)
}

// decodePolicyFlag adapts DecodePolicy to flag.Value.
type decodePolicyFlag struct{ p *DecodePolicy }

func (f decodePolicyFlag) String() string {
	if f.p == nil {
		return DecodeHalt.String()
	}
	return f.p.String()
}

func (f decodePolicyFlag) Set(s string) error {
	p, err := ParseDecodePolicy(s)
	if err != nil {
		return err
	}
	*f.p = p
	return nil
}

// RegisterFlags binds every configuration key to fs.
func (c *MachineConfig) RegisterFlags(fs *flag.FlagSet) {
	fs.StringVar(&c.ROMPath, "rom", c.ROMPath, "ROM image loaded at 0x0000")
	fs.IntVar(&c.ClockHz, "clock", c.ClockHz, "CPU clock in Hz")
	fs.IntVar(&c.SampleRate, "sample-rate", c.SampleRate, "audio sample rate")
	fs.IntVar(&c.Scale, "scale", c.Scale, "window scale factor")
	fs.BoolVar(&c.Headless, "headless", c.Headless, "run without a window; keys come from the terminal")
	fs.BoolVar(&c.Turbo, "turbo", c.Turbo, "run as fast as possible")
	fs.BoolVar(&c.Trace, "trace", c.Trace, "print every instruction before it runs")
	fs.Var(decodePolicyFlag{&c.Decode}, "on-bad-opcode", "undefined opcode handling: halt, skip or log")
	fs.DurationVar(&c.TapePoll, "tape-poll", c.TapePoll, "tape file poll interval")
	fs.BoolVar(&c.TapeAutoplay, "tape-autoplay", c.TapeAutoplay, "start the tape as soon as it is inserted")
	fs.StringVar(&c.RecordTo, "record-to", c.RecordTo, "capture MIC output to a .tap, .tzx or .wav file")
	fs.StringVar(&c.SaveSnapshot, "save-snapshot", c.SaveSnapshot, "write a .sna snapshot on exit")
	fs.IntVar(&c.ExtractIndex, "extract-block", c.ExtractIndex, "tape block index to extract")
	fs.StringVar(&c.ExtractTo, "extract-to", c.ExtractTo, "file or FIFO receiving the extracted block")
	fs.StringVar(&c.Script, "script", c.Script, "Lua debugger script")
	fs.StringVar(&c.StatsAddr, "statsview", c.StatsAddr, "runtime statistics viewer address (statsview builds)")
	fs.BoolVar(&c.Control, "control", c.Control, "accept commands on a control socket; a file argument goes to the running instance if there is one")
}
