// main.go - entry point: flag-parsed CLI, boots the machine and host loop

package main

import (
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/hajimehoshi/ebiten/v2"
	"golang.org/x/sync/errgroup"
)

func main() {
	romPath := flag.String("rom", "", "path to a raw MIPS64 program image, loaded at the reset vector")
	cyclesPerFrame := flag.Int64("cycles-per-frame", 93750000/60, "CPU cycles advanced per video frame")
	scale := flag.Int("scale", 2, "integer window scale factor")
	monitor := flag.Bool("monitor", false, "enable the interactive machine monitor on stdin/stdout")
	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: %s -rom <file> [-cycles-per-frame N] [-scale N] [-monitor]\n", os.Args[0])
		flag.PrintDefaults()
	}
	flag.Parse()

	if *romPath == "" {
		flag.Usage()
		os.Exit(1)
	}

	program, err := os.ReadFile(*romPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "reading ROM: %v\n", err)
		os.Exit(1)
	}

	machine := NewMachine()
	machine.LoadProgram(program)
	runtimeStatus.setMachine(machine.CPU, machine.MI)
	runtimeStatus.setRunning(true)

	monitorState := NewMachineMonitor(machine)
	loop := NewHostLoop(machine, monitorState, *cyclesPerFrame)
	if err := loop.Output.SetDisplayConfig(DisplayConfig{Width: 320, Height: 240, Scale: ClampScale(*scale)}); err != nil {
		fmt.Fprintf(os.Stderr, "configuring display: %v\n", err)
		os.Exit(1)
	}
	if err := loop.Output.Start(); err != nil {
		fmt.Fprintf(os.Stderr, "starting video output: %v\n", err)
		os.Exit(1)
	}

	var g errgroup.Group
	var termHost *TerminalHost
	if *monitor {
		termHost = NewTerminalHost(monitorState)
		termHost.Start()
	}

	g.Go(func() error {
		return ebiten.RunGame(loop)
	})

	// A second goroutine watches for an interrupt/terminate signal and
	// calls machine.Shutdown, which the host loop goroutine's Update
	// observes at the next frame boundary and responds to by returning
	// ebiten.Termination (spec.md §5's cooperative scheduling applied to
	// host-side shutdown).
	g.Go(func() error {
		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
		<-sigCh
		machine.Shutdown()
		return nil
	})

	if err := g.Wait(); err != nil && err != ebiten.Termination {
		fmt.Fprintf(os.Stderr, "run error: %v\n", err)
	}
	if termHost != nil {
		termHost.Stop()
	}
}
