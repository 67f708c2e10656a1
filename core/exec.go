package core

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"runtime/debug"
	"strings"
	"syscall"

	"github.com/josephlewis42/xsh/core/expand"
	"github.com/josephlewis42/xsh/core/jobs"
	"github.com/josephlewis42/xsh/core/shell"
	"github.com/josephlewis42/xsh/core/vos"
)

// statusNotFound is returned when a command can't be resolved or started.
const statusNotFound = 127

// RunLine parses and runs one command line.
func (s *Shell) RunLine(ctx context.Context, line string) int {
	node, err := shell.ParseTree(line)
	if err != nil {
		fmt.Fprintf(s.stdio.Stderr, "xsh: %v\n", err)
		s.lastRet = 1
		return 1
	}

	status := s.Execute(ctx, s.stdio, node)
	s.Log.CommandExit(line, status)
	return status
}

// Execute runs node with the streams in ec and returns its exit status,
// which also becomes $?.
func (s *Shell) Execute(ctx context.Context, ec ExecContext, node shell.Node) int {
	return s.execute(ec.WithContext(ctx), node, true)
}

func (s *Shell) execute(ec ExecContext, node shell.Node, resolve bool) int {
	switch n := node.(type) {
	case *shell.Sequence:
		status := s.lastRet
		for _, item := range n.Items {
			if s.Quit || ec.Context().Err() != nil {
				break
			}
			status = s.execute(ec, item, resolve)
		}
		return status

	case *shell.And:
		status := s.execute(ec, n.Left, resolve)
		if status != 0 || s.Quit {
			return status
		}
		return s.execute(ec, n.Right, resolve)

	case *shell.Or:
		status := s.execute(ec, n.Left, resolve)
		if status == 0 || s.Quit {
			return status
		}
		return s.execute(ec, n.Right, resolve)

	case *shell.Pipeline:
		if len(n.Commands) == 0 {
			s.lastRet = 0
			return 0
		}

		if resolve {
			resolved, err := s.resolveAliases(n, nil, 0)
			if err != nil {
				fmt.Fprintf(ec.Stderr, "xsh: alias: %v\n", err)
				s.lastRet = 1
				return 1
			}
			if resolved != shell.Node(n) {
				return s.execute(ec, resolved, false)
			}
		}

		var status int
		if len(n.Commands) == 1 && !n.Background {
			status = s.runForeground(ec, n)
		} else {
			status = s.runStages(ec, n)
		}
		s.lastRet = status
		return status
	}
	return s.lastRet
}

func (s *Shell) expander(ec ExecContext) *expand.Expander {
	return &expand.Expander{
		Env:    s.Env,
		Pid:    s.pid,
		Status: func() int { return s.lastRet },
		Substitute: func(cmd string) string {
			return s.substitute(ec, cmd)
		},
	}
}

// substitute runs cmd in a copy of the shell and returns its output.
func (s *Shell) substitute(ec ExecContext, cmd string) string {
	node, err := shell.ParseTree(cmd)
	if err != nil {
		return ""
	}

	var out bytes.Buffer
	sub := s.clone()
	subEC := ec
	subEC.Stdout = &out
	subEC.assignments = nil
	sub.execute(subEC, node, true)
	return out.String()
}

// words expands a command's raw arguments. Leading NAME=value words are
// returned apart, expanded but not globbed.
func (s *Shell) words(ec ExecContext, args []string) (assignments, words []string) {
	exp := s.expander(ec)
	i := 0
	for ; i < len(args) && isAssignment(args[i]); i++ {
		assignments = append(assignments, exp.Expand(args[i]))
	}
	for _, arg := range args[i:] {
		words = append(words, exp.Expand(arg))
	}
	return assignments, expand.Globs(s.Fs, s.Dir, words)
}

// isAssignment reports whether word has the form NAME=value.
func isAssignment(word string) bool {
	name, _, ok := strings.Cut(word, "=")
	if !ok || name == "" {
		return false
	}
	for i := 0; i < len(name); i++ {
		c := name[i]
		switch {
		case c == '_', c >= 'a' && c <= 'z', c >= 'A' && c <= 'Z':
		case c >= '0' && c <= '9' && i > 0:
		default:
			return false
		}
	}
	return true
}

// setVariables applies NAME=value pairs to the shell environment.
func (s *Shell) setVariables(assignments []string) {
	for _, a := range assignments {
		name, value, _ := strings.Cut(a, "=")
		s.Env.Setenv(name, value)
	}
}

// redirects are the files opened for a pipeline.
type redirects []io.Closer

func (r redirects) Close() error {
	var errs []error
	for _, c := range r {
		errs = append(errs, c.Close())
	}
	return errors.Join(errs...)
}

// openRedirects opens the pipeline's files and binds them to a copy of ec.
func (s *Shell) openRedirects(ec ExecContext, r shell.Redirects) (ExecContext, redirects, error) {
	var files redirects
	exp := s.expander(ec)

	if r.Input != "" {
		name := exp.Expand(r.Input)
		f, err := s.Fs.Open(s.absPath(name))
		if err != nil {
			return ec, nil, fmt.Errorf("%s: %w", name, unwrapPathError(err))
		}
		files = append(files, f)
		ec.Stdin = f
	}

	if r.Output != "" {
		name := exp.Expand(r.Output)
		flags := os.O_CREATE | os.O_WRONLY | os.O_TRUNC
		if r.Append {
			flags = os.O_CREATE | os.O_WRONLY | os.O_APPEND
		}
		f, err := s.Fs.OpenFile(s.absPath(name), flags, 0644)
		if err != nil {
			files.Close()
			return ec, nil, fmt.Errorf("%s: %w", name, unwrapPathError(err))
		}
		files = append(files, f)
		ec.Stdout = f
	}

	return ec, files, nil
}

func unwrapPathError(err error) error {
	var pathErr *os.PathError
	if errors.As(err, &pathErr) {
		return pathErr.Err
	}
	return err
}

// runForeground runs a single command and waits for it.
func (s *Shell) runForeground(ec ExecContext, p *shell.Pipeline) int {
	assignments, args := s.words(ec, p.Commands[0].Args)
	if len(args) == 0 {
		s.setVariables(assignments)
		return 0
	}

	stdio, files, err := s.openRedirects(ec, p.Redirects)
	if err != nil {
		return s.printError(ec, err)
	}
	defer files.Close()

	stdio.assignments = assignments
	return s.runCommand(stdio, args)
}

func (s *Shell) printError(ec ExecContext, err error) int {
	fmt.Fprintf(ec.Stderr, "xsh: %v\n", err)
	return 1
}

// runCommand runs a builtin or an external program in the foreground.
func (s *Shell) runCommand(ec ExecContext, args []string) int {
	if b, ok := AllBuiltins[args[0]]; ok {
		s.Log.RunCommand(args, "")
		return s.runBuiltin(ec, b, args)
	}

	path, err := s.lookPath(args[0])
	if err != nil {
		return s.commandError(ec, args, err)
	}

	s.Log.RunCommand(args, path)
	proc, err := jobs.Start(s.command(ec, path, args))
	if err != nil {
		return s.commandError(ec, args, err)
	}
	return jobs.Wait(proc)
}

// runBuiltin calls b, turning a panic into an error status.
func (s *Shell) runBuiltin(ec ExecContext, b ShellBuiltin, args []string) (status int) {
	defer func() {
		if r := recover(); r != nil {
			s.Log.Error("builtin panic", fmt.Errorf("%s: %v\n%s", args[0], r, debug.Stack()))
			fmt.Fprintf(ec.Stderr, "xsh: %s: internal error\n", args[0])
			status = 1
		}
	}()
	return b.Main(s, ec, args)
}

func (s *Shell) lookPath(name string) (string, error) {
	return vos.LookPath(s.Env, s.Fs, s.Dir, name)
}

// command builds the child process for an external command.
func (s *Shell) command(ec ExecContext, path string, args []string) *exec.Cmd {
	cmd := exec.CommandContext(ec.Context(), path)
	cmd.Args = args
	cmd.Env = append(s.Env.Environ(), ec.assignments...)
	cmd.Dir = s.Dir
	cmd.Stdin = ec.Stdin
	cmd.Stdout = ec.Stdout
	cmd.Stderr = ec.Stderr
	return cmd
}

func (s *Shell) commandError(ec ExecContext, args []string, err error) int {
	s.Log.UnknownCommand(args, err)
	if errors.Is(err, vos.ErrNotFound) {
		fmt.Fprintf(ec.Stderr, "xsh: %s: command not found\n", args[0])
	} else {
		fmt.Fprintf(ec.Stderr, "xsh: %s: %v\n", args[0], unwrapPathError(err))
	}
	return statusNotFound
}

// runStages runs a pipeline of several stages, or any pipeline in the
// background.
func (s *Shell) runStages(ec ExecContext, p *shell.Pipeline) int {
	stdio, files, err := s.openRedirects(ec, p.Redirects)
	if err != nil {
		return s.printError(ec, err)
	}

	if p.Background && s.Jobs.Full() {
		files.Close()
		fmt.Fprintf(ec.Stderr, "xsh: %v\n", jobs.ErrTableFull)
		return 1
	}

	n := len(p.Commands)
	readers := make([]*os.File, n)
	writers := make([]*os.File, n)
	closeAll := func() {
		for i := range readers {
			if readers[i] != nil {
				readers[i].Close()
			}
			if writers[i] != nil {
				writers[i].Close()
			}
		}
	}
	for i := 0; i < n-1; i++ {
		r, w, err := os.Pipe()
		if err != nil {
			closeAll()
			files.Close()
			return s.printError(ec, fmt.Errorf("pipe: %w", err))
		}
		writers[i] = w
		readers[i+1] = r
	}

	procs := make([]jobs.Process, 0, n)
	pgid := 0
	for i, cmd := range p.Commands {
		stage := stdio
		var own []io.Closer
		if r := readers[i]; r != nil {
			stage.Stdin = r
			own = append(own, r)
		}
		if w := writers[i]; w != nil {
			stage.Stdout = w
			own = append(own, w)
		}

		proc := s.startStage(stage, cmd, p.Background, &pgid, own)
		procs = append(procs, proc)
	}

	if p.Background {
		job, err := s.Jobs.Add(procs, p.Text)
		if err != nil {
			fmt.Fprintf(ec.Stderr, "xsh: %v\n", err)
		} else {
			fmt.Fprintf(s.stdio.Stdout, "[%d] %d\n", job.ID, job.Pid())
			s.Log.JobStarted(job.ID, job.Pid(), job.Text)
		}
		go func() {
			for _, proc := range procs {
				jobs.Wait(proc)
			}
			files.Close()
		}()
		return 0
	}

	statuses := make([]int, len(procs))
	for i, proc := range procs {
		statuses[i] = jobs.Wait(proc)
	}
	files.Close()
	return s.pipelineStatus(statuses)
}

// pipelineStatus is the last stage's status, or with pipefail the status
// of the last stage that failed.
func (s *Shell) pipelineStatus(statuses []int) int {
	last := statuses[len(statuses)-1]
	if !s.Config.Pipefail {
		return last
	}
	for i := len(statuses) - 1; i >= 0; i-- {
		if statuses[i] != 0 {
			return statuses[i]
		}
	}
	return 0
}

// startStage launches one pipeline stage. own are the pipe ends handed to
// the stage, they are closed once the stage no longer needs them.
func (s *Shell) startStage(ec ExecContext, cmd *shell.Simple, background bool, pgid *int, own []io.Closer) jobs.Process {
	closeOwn := func() {
		for _, c := range own {
			c.Close()
		}
	}

	assignments, args := s.words(ec, cmd.Args)
	if len(args) == 0 {
		closeOwn()
		return jobs.Finished(0)
	}

	if b, ok := AllBuiltins[args[0]]; ok {
		s.Log.RunCommand(args, "")
		sub := s.clone()
		return jobs.Go(func() int {
			defer closeOwn()
			return sub.runBuiltin(ec, b, args)
		})
	}

	path, err := s.lookPath(args[0])
	if err != nil {
		closeOwn()
		return jobs.Finished(s.commandError(ec, args, err))
	}

	s.Log.RunCommand(args, path)
	ec.assignments = assignments
	c := s.command(ec, path, args)
	if background {
		c.SysProcAttr = &syscall.SysProcAttr{Setpgid: true, Pgid: *pgid}
	}
	proc, err := jobs.Start(c)
	closeOwn()
	if err != nil {
		return jobs.Finished(s.commandError(ec, args, err))
	}
	if *pgid == 0 {
		*pgid = proc.Pid()
	}
	return proc
}
