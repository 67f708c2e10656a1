package core

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/fatih/color"
	"github.com/josephlewis42/xsh/core/alias"
	"github.com/josephlewis42/xsh/core/config"
	"github.com/josephlewis42/xsh/core/history"
	"github.com/josephlewis42/xsh/core/jobs"
	"github.com/josephlewis42/xsh/core/logger"
	"github.com/josephlewis42/xsh/core/vos"
	"github.com/spf13/afero"
)

const (
	EnvHome     = "HOME"
	EnvPWD      = "PWD"
	EnvOldPWD   = "OLDPWD"
	EnvPath     = "PATH"
	EnvPrompt   = "PS1"
	EnvHostname = "HOSTNAME"
	EnvUser     = "USER"
	EnvShell    = "SHELL"
	EnvVersion  = "XSH_VERSION"

	Version = "1.0.0"
)

var (
	promptUserColor = shellColor(color.FgGreen, color.Bold)
	promptDirColor  = shellColor(color.FgBlue, color.Bold)
	errorMarkColor  = shellColor(color.FgRed)
	pathColor       = shellColor(color.FgGreen)
	nameColor       = shellColor(color.FgCyan)
)

// shellColor creates a color that ignores color.NoColor. Whether it is used
// is up to the shell's own color setting.
func shellColor(attrs ...color.Attribute) *color.Color {
	c := color.New(attrs...)
	c.EnableColor()
	return c
}

// ExecContext holds the streams a command runs with.
type ExecContext struct {
	Stdin  io.Reader
	Stdout io.Writer
	Stderr io.Writer

	// assignments are NAME=value pairs that prefixed the command.
	assignments []string
	ctx         context.Context
}

// Context is the context commands are bound to.
func (ec ExecContext) Context() context.Context {
	if ec.ctx == nil {
		return context.Background()
	}
	return ec.ctx
}

// WithContext returns a copy of ec bound to ctx.
func (ec ExecContext) WithContext(ctx context.Context) ExecContext {
	ec.ctx = ctx
	return ec
}

// Shell is the interpreter state shared by every command of a session.
type Shell struct {
	Env     *vos.MapEnv
	Fs      afero.Fs
	Aliases *alias.Table
	History *history.Store
	Jobs    *jobs.Table
	Config  *config.Configuration
	Log     *logger.SessionLogger
	// Terminal is the controlling terminal handed to jobs brought to the
	// foreground, nil when the shell isn't interactive.
	Terminal jobs.Terminal
	// Dir is the working directory. Children start in it and relative paths
	// resolve against it.
	Dir string
	// Quit is set by the exit builtin.
	Quit bool

	stdio    ExecContext
	color    bool
	pid      int
	lastRet  int
	subshell bool
}

// NewShell creates a shell that reads and writes stdio and takes its
// environment from the process.
func NewShell(cfg *config.Configuration, stdio ExecContext) *Shell {
	if cfg == nil {
		cfg = config.Default()
	}

	s := &Shell{
		Env:     vos.NewOSEnv(),
		Fs:      afero.NewOsFs(),
		Aliases: alias.New(),
		History: history.New(cfg.HistorySize),
		Jobs:    jobs.NewTable(cfg.MaxJobs),
		Config:  cfg,
		Log:     logger.Nop().Sessionless(),
		stdio:   stdio,
		pid:     os.Getpid(),
	}
	s.Jobs.OnDone = func(job *jobs.Job) {
		s.Log.JobDone(job.ID, job.Text, job.Procs[len(job.Procs)-1].ExitCode())
	}
	s.SetColor(cfg.Color, false)
	return s
}

// Init sets up the environment the way a login does.
func (s *Shell) Init() {
	if _, ok := s.Env.LookupEnv(EnvShell); !ok {
		if exe, err := os.Executable(); err == nil {
			s.Env.Setenv(EnvShell, exe)
		} else {
			s.Env.Setenv(EnvShell, config.AppName)
		}
	}
	s.Env.Setenv(EnvVersion, Version)

	if s.Dir == "" {
		if wd, err := os.Getwd(); err == nil {
			s.Dir = wd
		} else {
			s.Dir = "/"
		}
	}
	s.Env.Setenv(EnvPWD, s.Dir)
}

// SetColor decides whether output is colored from a config mode, tty tells
// whether stdout is a terminal.
func (s *Shell) SetColor(mode string, tty bool) {
	switch mode {
	case config.ColorAlways:
		s.color = true
	case config.ColorNever:
		s.color = false
	default:
		s.color = tty
	}
}

// InstallAliases defines every alias from the configuration, in name order.
func (s *Shell) InstallAliases() {
	names := make([]string, 0, len(s.Config.Aliases))
	for name := range s.Config.Aliases {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		s.Aliases.Set(name, s.Config.Aliases[name])
	}
}

// LastStatus is the value of $?.
func (s *Shell) LastStatus() int {
	return s.lastRet
}

// Stdio returns the shell's own streams.
func (s *Shell) Stdio() ExecContext {
	return s.stdio
}

// sprint colors text when color is enabled.
func (s *Shell) sprint(c *color.Color, text string) string {
	if !s.color {
		return text
	}
	return c.Sprint(text)
}

// absPath resolves name against the working directory.
func (s *Shell) absPath(name string) string {
	if name == "" || filepath.IsAbs(name) {
		return name
	}
	return filepath.Join(s.Dir, name)
}

// clone returns a copy of the shell that can run commands without
// affecting this one.
func (s *Shell) clone() *Shell {
	sub := *s
	sub.Env = s.Env.Clone()
	sub.Aliases = s.Aliases.Clone()
	sub.History = s.History.Clone()
	sub.Jobs = jobs.NewTable(s.Config.MaxJobs)
	sub.Terminal = nil
	sub.Quit = false
	sub.subshell = true
	return &sub
}

// Prompt renders PS1, or the configured prompt when PS1 is unset.
func (s *Shell) Prompt() string {
	prompt, ok := s.Env.LookupEnv(EnvPrompt)
	if !ok {
		prompt = s.Config.Prompt
	}

	user := s.Env.Getenv(EnvUser)
	host := s.Env.Getenv(EnvHostname)
	if host == "" {
		host, _ = os.Hostname()
	}
	if i := strings.IndexByte(host, '.'); i > 0 {
		host = host[:i]
	}

	dir := s.Dir
	if home := s.Env.Getenv(EnvHome); home != "" && strings.HasPrefix(dir, home) {
		if rest := strings.TrimPrefix(dir, home); rest == "" || rest[0] == '/' {
			dir = "~" + rest
		}
	}

	sign := "$"
	if os.Geteuid() == 0 {
		sign = "#"
	}

	prompt = unescapePrompt(prompt)
	var sb strings.Builder
	for i := 0; i < len(prompt); i++ {
		if prompt[i] != '\\' || i+1 == len(prompt) {
			sb.WriteByte(prompt[i])
			continue
		}

		i++
		switch prompt[i] {
		case 'u':
			sb.WriteString(s.sprint(promptUserColor, user))
		case 'h':
			sb.WriteString(s.sprint(promptUserColor, host))
		case 'w':
			sb.WriteString(s.sprint(promptDirColor, dir))
		case 'W':
			sb.WriteString(s.sprint(promptDirColor, filepath.Base(dir)))
		case '$':
			sb.WriteString(sign)
		case '\\':
			sb.WriteByte('\\')
		default:
			sb.WriteByte('\\')
			sb.WriteByte(prompt[i])
		}
	}
	return sb.String()
}

var promptEscapes = strings.NewReplacer(
	`\[`, "",
	`\]`, "",
	`\e`, "\x1b",
	`\033`, "\x1b",
)

func unescapePrompt(s string) string {
	return promptEscapes.Replace(s)
}
