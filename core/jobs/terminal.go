package jobs

import (
	"os"

	"golang.org/x/sys/unix"
	"golang.org/x/term"
)

// Terminal controls which process group owns a terminal.
type Terminal interface {
	// Foreground returns the process group that currently owns the terminal.
	Foreground() (int, error)
	// SetForeground hands the terminal to pgid.
	SetForeground(pgid int) error
}

type ttyTerminal struct {
	fd int
}

// NewTerminal wraps f if it is a terminal, otherwise it returns nil.
func NewTerminal(f *os.File) Terminal {
	if f == nil || !term.IsTerminal(int(f.Fd())) {
		return nil
	}
	return &ttyTerminal{fd: int(f.Fd())}
}

func (t *ttyTerminal) Foreground() (int, error) {
	return unix.IoctlGetInt(t.fd, unix.TIOCGPGRP)
}

func (t *ttyTerminal) SetForeground(pgid int) error {
	return unix.IoctlSetPointerInt(t.fd, unix.TIOCSPGRP, pgid)
}

// signalGroup sends sig to every process in the group pgid.
func signalGroup(pgid int, sig unix.Signal) error {
	return unix.Kill(-pgid, sig)
}
