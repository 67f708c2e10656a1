package core

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"strings"

	"github.com/josephlewis42/xsh/core/lineedit"
	"github.com/josephlewis42/xsh/core/shell"
)

// statusInterrupted is $? after the line being typed is interrupted.
const statusInterrupted = 130

// LineReader reads lines typed at a prompt.
type LineReader interface {
	ReadLine(prompt string) (string, error)
}

// terminalReader is implemented by readers that know whether a person is
// typing at them.
type terminalReader interface {
	IsTerminal() bool
}

// Run is the interactive loop. It returns the last status once input ends
// or exit is called. Lines are only recorded in the history when r is
// attached to a terminal.
func (s *Shell) Run(ctx context.Context, r LineReader) int {
	record := true
	if t, ok := r.(terminalReader); ok {
		record = t.IsTerminal()
	}

	for !s.Quit && ctx.Err() == nil {
		s.Jobs.Poll(s.stdio.Stdout)

		line, err := r.ReadLine(s.Prompt())
		switch {
		case errors.Is(err, io.EOF):
			return s.lastRet

		case errors.Is(err, lineedit.ErrInterrupt):
			s.lastRet = statusInterrupted
			continue

		case err != nil:
			s.Log.Error("read line", err)
			fmt.Fprintf(s.stdio.Stderr, "xsh: %v\n", err)
			return 1

		case strings.TrimSpace(line) == "":
			continue
		}

		if record {
			s.History.Add(strings.TrimLeft(line, " \t"))
		}
		s.RunLine(ctx, line)
	}
	return s.lastRet
}

// RunScript runs every line read from r. Blank lines and comments are
// skipped. It stops early when exit is called.
func (s *Shell) RunScript(ctx context.Context, ec ExecContext, r io.Reader) (int, error) {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 4096), shell.MaxLineLength+1)

	status := 0
	for scanner.Scan() {
		if s.Quit || ctx.Err() != nil {
			break
		}

		line := strings.TrimRight(scanner.Text(), "\r")
		if trimmed := strings.TrimSpace(line); trimmed == "" || trimmed[0] == '#' {
			continue
		}

		node, err := shell.ParseTree(line)
		if err != nil {
			fmt.Fprintf(ec.Stderr, "xsh: %v\n", err)
			status = 1
			s.lastRet = status
			continue
		}
		status = s.Execute(ctx, ec, node)
		s.Log.CommandExit(line, status)
	}
	return status, scanner.Err()
}

// Source runs the file at path in this shell.
func (s *Shell) Source(ec ExecContext, path string) (int, error) {
	fd, err := s.Fs.Open(s.absPath(path))
	if err != nil {
		return 1, err
	}
	defer fd.Close()

	return s.RunScript(ec.Context(), ec, fd)
}

// SourceRC runs the configured rc file if it exists.
func (s *Shell) SourceRC(ctx context.Context) error {
	path := s.Config.RCPath(s.Env.UserHomeDir())
	if path == "" {
		return nil
	}

	_, err := s.Source(s.stdio.WithContext(ctx), path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	return err
}

// LoadHistory reads the history file. A missing file is not an error.
func (s *Shell) LoadHistory() error {
	err := s.History.Load(s.Fs, s.Config.HistoryPath(s.Env.UserHomeDir()))
	if errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	return err
}

// SaveHistory writes the history file.
func (s *Shell) SaveHistory() error {
	return s.History.Save(s.Fs, s.Config.HistoryPath(s.Env.UserHomeDir()))
}
