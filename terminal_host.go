// terminal_host.go - raw-mode stdin reader driving the machine monitor

package main

import (
	"fmt"
	"os"
	"sync"
	"syscall"
	"time"

	"golang.org/x/term"
)

// TerminalHost puts the controlling terminal into raw mode and feeds
// completed lines to a MonitorCommandSink, the same raw-stdin-reading-
// goroutine pattern the teacher's TerminalHost used to feed a TerminalMMIO
// device — adapted here to drive breakpoint/register/memory commands against a
// MachineMonitor instead of emulated UART bytes.
type TerminalHost struct {
	sink MonitorCommandSink

	stopCh       chan struct{}
	done         chan struct{}
	stopped      sync.Once
	fd           int
	nonblockSet  bool
	oldTermState *term.State
}

// MonitorCommandSink receives one completed command line at a time.
type MonitorCommandSink interface {
	RunCommand(line string)
}

// NewTerminalHost creates a host adapter that reads stdin lines into sink.
func NewTerminalHost(sink MonitorCommandSink) *TerminalHost {
	return &TerminalHost{
		sink:   sink,
		stopCh: make(chan struct{}),
		done:   make(chan struct{}),
	}
}

// Start puts stdin into raw mode and begins reading bytes in a goroutine,
// assembling them into lines (echoing and handling backspace itself, since
// raw mode disables the terminal driver's own line editing).
func (h *TerminalHost) Start() {
	h.fd = int(os.Stdin.Fd())

	oldState, err := term.MakeRaw(h.fd)
	if err != nil {
		fmt.Fprintf(os.Stderr, "terminal_host: failed to set raw mode: %v\n", err)
		close(h.done)
		return
	}
	h.oldTermState = oldState

	if err := syscall.SetNonblock(h.fd, true); err != nil {
		fmt.Fprintf(os.Stderr, "terminal_host: failed to set nonblocking stdin: %v\n", err)
		_ = term.Restore(h.fd, h.oldTermState)
		h.oldTermState = nil
		close(h.done)
		return
	}
	h.nonblockSet = true

	go func() {
		defer close(h.done)
		buf := make([]byte, 1)
		var line []byte

		for {
			select {
			case <-h.stopCh:
				return
			default:
			}

			n, err := syscall.Read(h.fd, buf)
			if n > 0 {
				b := buf[0]
				switch {
				case b == '\r' || b == '\n':
					fmt.Print("\r\n")
					h.sink.RunCommand(string(line))
					line = line[:0]
				case b == 0x7F || b == 0x08:
					if len(line) > 0 {
						line = line[:len(line)-1]
						fmt.Print("\b \b")
					}
				default:
					line = append(line, b)
					fmt.Printf("%c", b)
				}
			}
			if err == syscall.EAGAIN || err == syscall.EWOULDBLOCK {
				time.Sleep(5 * time.Millisecond)
				continue
			}
			if err != nil {
				return
			}
			if n == 0 {
				time.Sleep(5 * time.Millisecond)
			}
		}
	}()
}

// Stop terminates the reading goroutine and restores the terminal.
func (h *TerminalHost) Stop() {
	h.stopped.Do(func() {
		close(h.stopCh)
	})
	<-h.done
	if h.nonblockSet {
		_ = syscall.SetNonblock(h.fd, false)
		h.nonblockSet = false
	}
	if h.oldTermState != nil {
		_ = term.Restore(h.fd, h.oldTermState)
		h.oldTermState = nil
	}
}
