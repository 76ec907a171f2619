// host_loop.go - ebiten.Game wiring the Subsystem scheduler hook to a frame loop

package main

import (
	"fmt"
	"sync"

	"github.com/hajimehoshi/ebiten/v2"
)

// EbitenOutput is a FrameSink backed by an ebiten window, grounded on the
// teacher's video_backend_ebiten.go — trimmed to the raw-RGBA blit this core
// needs (no palette/sprite/texture paths; this core has no such chips).
type EbitenOutput struct {
	running     bool
	window      *ebiten.Image
	width       int
	height      int
	fullscreen  bool
	scale       int
	windowedW   int
	windowedH   int
	frameBuffer []byte
	bufferMutex sync.RWMutex
	frameCount  uint64
	refreshRate int
	vsyncChan   chan struct{}
}

// NewEbitenOutput returns a FrameSink with a default 320x240 frame, the N64
// VI's common low-resolution output size.
func NewEbitenOutput() *EbitenOutput {
	return &EbitenOutput{
		width:       320,
		height:      240,
		scale:       2,
		windowedW:   640,
		windowedH:   480,
		frameBuffer: make([]byte, 320*240*4),
		refreshRate: 60,
		vsyncChan:   make(chan struct{}, 1),
	}
}

func (eo *EbitenOutput) Start() error {
	if eo.running {
		return nil
	}
	eo.running = true
	ebiten.SetWindowSize(eo.windowedW, eo.windowedH)
	ebiten.SetWindowTitle("n64core")
	ebiten.SetWindowResizable(true)
	ebiten.SetRunnableOnUnfocused(true)
	ebiten.SetVsyncEnabled(true)
	if eo.fullscreen {
		ebiten.SetFullscreen(true)
	}
	return nil
}

func (eo *EbitenOutput) Stop() error {
	eo.running = false
	return nil
}

func (eo *EbitenOutput) Close() error { return eo.Stop() }

func (eo *EbitenOutput) IsStarted() bool { return eo.running }

func (eo *EbitenOutput) UpdateFrame(data []byte) error {
	eo.bufferMutex.Lock()
	defer eo.bufferMutex.Unlock()
	if len(data) != len(eo.frameBuffer) {
		return &VideoError{Operation: "UpdateFrame", Details: fmt.Sprintf("expected %d bytes, got %d", len(eo.frameBuffer), len(data))}
	}
	copy(eo.frameBuffer, data)
	return nil
}

func (eo *EbitenOutput) SetDisplayConfig(config DisplayConfig) error {
	eo.bufferMutex.Lock()
	defer eo.bufferMutex.Unlock()

	width, height := config.Width, config.Height
	if width <= 0 {
		width = eo.width
	}
	if height <= 0 {
		height = eo.height
	}
	eo.width, eo.height = width, height
	eo.scale = ClampScale(config.Scale)
	newSize := width * height * 4
	if len(eo.frameBuffer) != newSize {
		eo.frameBuffer = make([]byte, newSize)
	}
	eo.windowedW = width * eo.scale
	eo.windowedH = height * eo.scale
	eo.fullscreen = config.Fullscreen
	ebiten.SetFullscreen(eo.fullscreen)
	if !eo.fullscreen {
		ebiten.SetWindowSize(eo.windowedW, eo.windowedH)
	}
	if eo.window != nil {
		eo.window.Dispose()
		eo.window = nil
	}
	return nil
}

func (eo *EbitenOutput) GetDisplayConfig() DisplayConfig {
	return DisplayConfig{
		Width: eo.width, Height: eo.height, Scale: eo.scale,
		RefreshRate: eo.refreshRate, VSync: true, Fullscreen: eo.fullscreen,
	}
}

func (eo *EbitenOutput) WaitForVSync() error {
	<-eo.vsyncChan
	return nil
}

func (eo *EbitenOutput) GetFrameCount() uint64 { return eo.frameCount }
func (eo *EbitenOutput) GetRefreshRate() int    { return eo.refreshRate }

func (eo *EbitenOutput) Draw(screen *ebiten.Image) {
	if eo.window == nil {
		eo.window = ebiten.NewImage(eo.width, eo.height)
	}
	eo.bufferMutex.RLock()
	eo.window.WritePixels(eo.frameBuffer)
	eo.bufferMutex.RUnlock()
	screen.DrawImage(eo.window, nil)

	eo.frameCount++
	select {
	case eo.vsyncChan <- struct{}{}:
	default:
	}
}

func (eo *EbitenOutput) Layout(_, _ int) (int, int) {
	return eo.width, eo.height
}

// HostLoop implements ebiten.Game: its Update call is the Subsystem
// scheduler hook (spec.md §4.6) driving the machine forward one video frame
// at a time, and its Draw presents Output's frame buffer. That buffer is
// filled only through EbitenOutput.UpdateFrame, which nothing in this
// module calls; bus memory is not scanned out to it.
type HostLoop struct {
	Machine        *Machine
	Monitor        *MachineMonitor
	Output         *EbitenOutput
	CyclesPerFrame int64
}

// NewHostLoop constructs a HostLoop ready to hand to ebiten.RunGame.
func NewHostLoop(machine *Machine, monitor *MachineMonitor, cyclesPerFrame int64) *HostLoop {
	out := NewEbitenOutput()
	return &HostLoop{Machine: machine, Monitor: monitor, Output: out, CyclesPerFrame: cyclesPerFrame}
}

func (h *HostLoop) Update() error {
	if ebiten.IsWindowBeingClosed() || h.Machine.ShuttingDown() {
		return ebiten.Termination
	}
	h.Machine.RunFrame(h.CyclesPerFrame)
	h.Monitor.CheckBreakpoint()
	return nil
}

func (h *HostLoop) Draw(screen *ebiten.Image) {
	h.Output.Draw(screen)
}

func (h *HostLoop) Layout(w, hgt int) (int, int) {
	return h.Output.Layout(w, hgt)
}
