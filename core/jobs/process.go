package jobs

import (
	"errors"
	"os"
	"os/exec"
	"sync/atomic"
	"syscall"
)

// Process is a running pipeline stage.
type Process interface {
	// Pid is the OS process id, or 0 for stages that run inside the shell.
	Pid() int
	Signal(sig os.Signal) error
	// Done is closed once the process has exited and been reaped.
	Done() <-chan struct{}
	// ExitCode is valid after Done is closed.
	ExitCode() int
}

// Wait blocks until p exits and returns its status.
func Wait(p Process) int {
	<-p.Done()
	return p.ExitCode()
}

// Exited reports whether p finished without blocking.
func Exited(p Process) bool {
	select {
	case <-p.Done():
		return true
	default:
		return false
	}
}

type cmdProcess struct {
	cmd  *exec.Cmd
	done chan struct{}
	code atomic.Int32
}

var _ Process = (*cmdProcess)(nil)

// Start launches cmd and reaps it in the background as soon as it exits.
func Start(cmd *exec.Cmd) (Process, error) {
	if err := cmd.Start(); err != nil {
		return nil, err
	}

	p := &cmdProcess{cmd: cmd, done: make(chan struct{})}
	go func() {
		p.code.Store(int32(ExitStatus(cmd.Wait())))
		close(p.done)
	}()
	return p, nil
}

func (p *cmdProcess) Pid() int { return p.cmd.Process.Pid }
func (p *cmdProcess) Signal(sig os.Signal) error { return p.cmd.Process.Signal(sig) }
func (p *cmdProcess) Done() <-chan struct{} { return p.done }
func (p *cmdProcess) ExitCode() int { return int(p.code.Load()) }

// ExitStatus converts the result of exec.Cmd.Wait to a shell status. A
// process killed by a signal reports 128 plus the signal number.
func ExitStatus(err error) int {
	if err == nil {
		return 0
	}

	var exitErr *exec.ExitError
	if !errors.As(err, &exitErr) {
		return 1
	}
	if ws, ok := exitErr.Sys().(syscall.WaitStatus); ok && ws.Signaled() {
		return 128 + int(ws.Signal())
	}
	return exitErr.ExitCode() & 0xff
}

type funcProcess struct {
	done chan struct{}
	code atomic.Int32
}

var _ Process = (*funcProcess)(nil)

// Go runs fn in a goroutine and exposes it as a Process.
func Go(fn func() int) Process {
	p := &funcProcess{done: make(chan struct{})}
	go func() {
		defer close(p.done)
		p.code.Store(int32(fn()))
	}()
	return p
}

// Finished is a Process that already exited with code.
func Finished(code int) Process {
	p := &funcProcess{done: make(chan struct{})}
	p.code.Store(int32(code))
	close(p.done)
	return p
}

func (p *funcProcess) Pid() int { return 0 }
func (p *funcProcess) Signal(os.Signal) error { return nil }
func (p *funcProcess) Done() <-chan struct{} { return p.done }
func (p *funcProcess) ExitCode() int { return int(p.code.Load()) }
