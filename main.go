// main.go - Command line entry point for the Spectrum Engine

/*
 ██▓ ███▄    █ ▄▄▄█████▓ █    ██  ██▓▄▄▄█████▓ ██▓ ▒█████   ███▄    █    ▓█████  ███▄    █   ▄████  ██▓ ███▄    █ ▓█████
▓██▒ ██ ▀█   █ ▓  ██▒ ▓▒ ██  ▓██▒▓██▒▓  ██▒ ▓▒▓██▒▒██▒  ██▒ ██ ▀█   █    ▓█   ▀  ██ ▀█   █  ██▒ ▀█▒▓██▒ ██ ▀█   █ ▓█   ▀
▒██▒▓██  ▀█ ██▒▒ ▓██░ ▒░▓██  ▒██░▒██▒▒ ▓██░ ▒░▒██▒▒██░  ██▒▓██  ▀█ ██▒   ▒███   ▓██  ▀█ ██▒▒██░▄▄▄░▒██▒▓██  ▀█ ██▒▒███
░██░▓██▒  ▐▌██▒░ ▓██▓ ░ ▓▓█  ░██░░██░░ ▓██▓ ░ ░██░▒██   ██░▓██▒  ▐▌██▒   ▒▓█  ▄ ▓██▒  ▐▌██▒░▓█  ██▓░██░▓██▒  ▐▌██▒▒▓█  ▄
░██░▒██░   ▓██░  ▒██▒ ░ ▒▒█████▓ ░██░  ▒██▒ ░ ░██░░ ████▓▒░▒██░   ▓██░   ░▒████▒▒██░   ▓██░░▒▓███▀▒░██░▒██░   ▓██░░▒████▒
░▓  ░ ▒░   ▒ ▒   ▒ ░░   ░▒▓▒ ▒ ▒ ░▓    ▒ ░░   ░▓  ░ ▒░▒░▒░ ░ ▒░   ▒ ▒    ░░ ▒░ ░░ ▒░   ▒ ▒  ░▒   ▒ ░▓  ░ ▒░   ▒ ▒ ░░ ▒░ ░
 ▒ ░░ ░░   ░ ▒░    ░    ░░▒░ ░ ░  ▒ ░    ░     ▒ ░  ░ ▒ ▒░ ░ ░░   ░ ▒░    ░ ░  ░░ ░░   ░ ▒░  ░   ░  ▒ ░░ ░░   ░ ▒░ ░ ░  ░
 ▒ ░   ░   ░ ░   ░       ░░░ ░ ░  ▒ ░  ░       ▒ ░░ ░ ░ ▒     ░   ░ ░       ░      ░   ░ ░ ░ ░   ░  ▒ ░   ░   ░ ░    ░
 ░           ░             ░      ░            ░      ░ ░           ░       ░  ░         ░       ░  ░           ░    ░  ░

(c) 2024 - 2026 Zayn Otley
https://github.com/IntuitionAmiga/IntuitionEngine
License: GPLv3 or later
*/

package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"strings"

	"golang.org/x/term"
)

func boilerPlate() {
	fmt.Println("\n\033[38;2;255;20;147m ██▓ ███▄    █ ▄▄▄█████▓ █    ██  ██▓▄▄▄█████▓ ██▓ ▒█████   ███▄    █    ▓█████  ███▄    █   ▄████  ██▓ ███▄    █ ▓█████\033[0m\n\033[38;2;255;50;147m▓██▒ ██ ▀█   █ ▓  ██▒ ▓▒ ██  ▓██▒▓██▒▓  ██▒ ▓▒▓██▒▒██▒  ██▒ ██ ▀█   █    ▓█   ▀  ██ ▀█   █  ██▒ ▀█▒▓██▒ ██ ▀█   █ ▓█   ▀\033[0m\n\033[38;2;255;80;147m▒██▒▓██  ▀█ ██▒▒ ▓██░ ▒░▓██  ▒██░▒██▒▒ ▓██░ ▒░▒██▒▒██░  ██▒▓██  ▀█ ██▒   ▒███   ▓██  ▀█ ██▒▒██░▄▄▄░▒██▒▓██  ▀█ ██▒▒███\033[0m\n\033[38;2;255;110;147m░██░▓██▒  ▐▌██▒░ ▓██▓ ░ ▓▓█  ░██░░██░░ ▓██▓ ░ ░██░▒██   ██░▓██▒  ▐▌██▒   ▒▓█  ▄ ▓██▒  ▐▌██▒░▓█  ██▓░██░▓██▒  ▐▌██▒▒▓█  ▄\033[0m\n\033[38;2;255;140;147m░██░▒██░   ▓██░  ▒██▒ ░ ▒▒█████▓ ░██░  ▒██▒ ░ ░██░░ ████▓▒░▒██░   ▓██░   ░▒████▒▒██░   ▓██░░▒▓███▀▒░██░▒██░   ▓██░░▒████▒\033[0m\n\033[38;2;255;170;147m░▓  ░ ▒░   ▒ ▒   ▒ ░░   ░▒▓▒ ▒ ▒ ░▓    ▒ ░░   ░▓  ░ ▒░▒░▒░ ░ ▒░   ▒ ▒    ░░ ▒░ ░░ ▒░   ▒ ▒  ░▒   ▒ ░▓  ░ ▒░   ▒ ▒ ░░ ▒░ ░\033[0m\n\033[38;2;255;200;147m ▒ ░░ ░░   ░ ▒░    ░    ░░▒░ ░ ░  ▒ ░    ░     ▒ ░  ░ ▒ ▒░ ░ ░░   ░ ▒░    ░ ░  ░░ ░░   ░ ▒░  ░   ░  ▒ ░░ ░░   ░ ▒░ ░ ░  ░\033[0m\n\033[38;2;255;230;147m ▒ ░   ░   ░ ░   ░       ░░░ ░ ░  ▒ ░  ░       ▒ ░░ ░ ░ ▒     ░   ░ ░       ░      ░   ░ ░ ░ ░   ░  ▒ ░   ░   ░ ░    ░\033[0m\n\033[38;2;255;255;147m ░           ░             ░      ░            ░      ░ ░           ░       ░  ░         ░       ░  ░           ░    ░  ░\033[0m")
	fmt.Println("\nA ZX Spectrum 48K built on the Intuition Engine Z80 core.")
	fmt.Println("(c) 2024 - 2026 Zayn Otley")
	fmt.Println("https://github.com/IntuitionAmiga/IntuitionEngine")
	fmt.Println("License: GPLv3 or later")
}

// inputKind is what the positional file argument holds, by extension.
type inputKind int

const (
	inputNone inputKind = iota
	inputROM
	inputSnapshot
	inputTape
)

func classifyInput(path string) (inputKind, error) {
	if path == "" {
		return inputNone, nil
	}
	switch strings.ToLower(filepath.Ext(path)) {
	case ".rom", ".bin":
		return inputROM, nil
	case ".sna":
		return inputSnapshot, nil
	case ".tzx", ".tap", ".wav", ".mp3":
		return inputTape, nil
	}
	return inputNone, fmt.Errorf("unsupported file type: %s", path)
}

func usage(fs *flag.FlagSet) func() {
	return func() {
		fs.SetOutput(os.Stdout)
		fmt.Println("Usage: spectrumengine [flags] [file.rom|file.sna|file.tzx|file.tap|file.wav|file.mp3]")
		fs.PrintDefaults()
	}
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	err := run(ctx, os.Args[1:])
	if errors.Is(err, flag.ErrHelp) {
		return
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		stop()
		os.Exit(1)
	}
}

func run(ctx context.Context, args []string) error {
	cfg := DefaultMachineConfig()
	flagSet := flag.NewFlagSet("spectrumengine", flag.ContinueOnError)
	flagSet.SetOutput(io.Discard)
	cfg.RegisterFlags(flagSet)
	flagSet.Usage = usage(flagSet)
	if err := flagSet.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return err
		}
		return fmt.Errorf("%w (run with -h for usage)", err)
	}
	if flagSet.NArg() > 1 {
		return fmt.Errorf("expected one file argument, got %d", flagSet.NArg())
	}
	filename := flagSet.Arg(0)
	kind, err := classifyInput(filename)
	if err != nil {
		return err
	}
	if cfg.ExtractTo != "" && kind != inputTape {
		return errors.New("-extract-block needs a tape file argument")
	}

	if cfg.Control && (kind == inputSnapshot || kind == inputTape) {
		if err := SendIPCOpen(filename); err == nil {
			fmt.Printf("%s sent to the running instance\n", filename)
			return nil
		}
	}

	if !cfg.Headless {
		boilerPlate()
	}

	m, err := NewSpectrum(cfg)
	if err != nil {
		return err
	}

	rom := cfg.ROMPath
	if kind == inputROM {
		rom = filename
	}
	if err := m.LoadROM(rom); err != nil {
		return err
	}
	switch kind {
	case inputSnapshot:
		if err := m.LoadSnapshot(filename); err != nil {
			return err
		}
	case inputTape:
		if err := m.InsertTape(filename); err != nil {
			return err
		}
		if cfg.ExtractTo != "" {
			m.Go(func(ctx context.Context) error {
				return extractBlock(ctx, filename, cfg.ExtractTo, cfg.ExtractIndex, cfg.ClockHz)
			})
		}
	}

	var script *LuaScript
	if cfg.Script != "" {
		script = NewLuaScript(m)
		defer script.Close()
		if err := script.LoadFile(cfg.Script); err != nil {
			return err
		}
		m.SetScript(script)
	}

	if cfg.Control {
		srv, err := NewIPCServer(spectrumControl(m))
		if err != nil {
			return err
		}
		m.Go(srv.Run)
	}

	out, err := NewVideoOutput(cfg.Headless, m)
	if err != nil {
		return err
	}
	w, h := m.ULA().GetDimensions()
	if err := out.SetDisplayConfig(DisplayConfig{
		Width:  w,
		Height: h,
		Scale:  cfg.Scale,
		Title:  "Spectrum Engine",
	}); err != nil {
		return err
	}
	m.ULA().SetSink(out)
	if err := out.Start(); err != nil {
		return err
	}
	defer out.Close()
	m.Go(func(ctx context.Context) error {
		select {
		case <-out.Done():
			m.Stop()
		case <-ctx.Done():
		}
		return nil
	})

	if !cfg.Headless {
		player, err := NewOtoPlayer(cfg.SampleRate)
		if err != nil {
			fmt.Fprintf(os.Stderr, "audio: %v, continuing without sound\n", err)
		} else {
			player.SetupPlayer(m.Beeper())
			player.Start()
			defer player.Close()
		}
	} else if term.IsTerminal(int(os.Stdin.Fd())) {
		m.Go(NewTerminalHost(m).Run)
	}

	launchStatsView(m, cfg.StatsAddr)

	runErr := m.Run(ctx)
	if errors.Is(runErr, context.Canceled) {
		runErr = nil
	}

	if cfg.SaveSnapshot != "" {
		if err := m.SaveSnapshot(cfg.SaveSnapshot); err != nil {
			return errors.Join(runErr, err)
		}
		fmt.Printf("snapshot saved to %s\n", cfg.SaveSnapshot)
	}
	if script != nil && script.Err() != nil && runErr == nil {
		runErr = script.Err()
	}
	return runErr
}

// extractBlock writes one block of the tape file as a TZX image. The
// destination may be a FIFO, whose open waits for a reader, so it runs as
// a machine worker.
func extractBlock(ctx context.Context, tapePath, dest string, index, clockHz int) error {
	blocks, err := LoadTapeFile(tapePath, clockHz)
	if err != nil {
		return fmt.Errorf("extract block: %w", err)
	}
	if index >= len(blocks) {
		return fmt.Errorf("extract block: index %d out of range, tape has %d blocks", index, len(blocks))
	}
	errc := make(chan error, 1)
	go func() {
		f, err := os.OpenFile(dest, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0o644)
		if err != nil {
			errc <- err
			return
		}
		err = ExtractTZXBlock(f, blocks, index)
		if cerr := f.Close(); err == nil {
			err = cerr
		}
		errc <- err
	}()
	select {
	case err := <-errc:
		if err != nil {
			return fmt.Errorf("extract block %d: %w", index, err)
		}
		fmt.Printf("tape block %d written to %s\n", index, dest)
		return nil
	case <-ctx.Done():
		return nil
	}
}
