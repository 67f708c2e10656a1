package cmd

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/fatih/color"
	"github.com/josephlewis42/xsh/core"
	"github.com/josephlewis42/xsh/core/config"
	"github.com/josephlewis42/xsh/core/jobs"
	"github.com/josephlewis42/xsh/core/lineedit"
	"github.com/josephlewis42/xsh/core/logger"
	"github.com/spf13/afero"
	"github.com/spf13/cobra"
	"golang.org/x/term"
)

var (
	cfgPath     string
	commandLine string
	noRC        bool

	// exitStatus is the status of the last shell run by rootCmd.
	exitStatus int
)

// statusScriptNotFound is returned when the script can't be opened.
const statusScriptNotFound = 127

func loadConfig() (*config.Configuration, error) {
	configuration, err := config.Load(afero.NewOsFs(), cfgPath)
	if errors.Is(err, fs.ErrNotExist) {
		return config.Default(), nil
	}
	return configuration, err
}

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "xsh [flags] [script]",
	Short: "Xtreme Shell",
	Long: `An interactive command shell with pipes, redirection, job control,
aliases, history and tab completion.

With no arguments xsh reads commands from the terminal. With -c it runs a
single command line and with a script argument it runs each line of the
file.`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cmd.SilenceUsage = true

		configuration, err := loadConfig()
		if err != nil {
			return err
		}

		s, closeLog, err := newShell(cmd, configuration)
		if err != nil {
			return err
		}
		defer closeLog()

		switch {
		case cmd.Flags().Changed("command"):
			exitStatus = runCommand(cmd.Context(), s)
		case len(args) == 1:
			exitStatus = runScript(cmd.Context(), s, args[0])
		default:
			exitStatus = runInteractive(cmd.Context(), s)
		}
		return nil
	},
}

// newShell creates the shell and its event log. The returned function
// flushes and closes the log.
func newShell(cmd *cobra.Command, configuration *config.Configuration) (*core.Shell, func(), error) {
	s := core.NewShell(configuration, core.ExecContext{
		Stdin:  cmd.InOrStdin(),
		Stdout: cmd.OutOrStdout(),
		Stderr: cmd.ErrOrStderr(),
	})

	tty := term.IsTerminal(int(os.Stdout.Fd()))
	s.SetColor(configuration.Color, tty)
	switch configuration.Color {
	case config.ColorAlways:
		color.NoColor = false
	case config.ColorNever:
		color.NoColor = true
	}

	logPath := configuration.LogPath(s.Env.UserHomeDir())
	if logPath == "" {
		return s, func() {}, nil
	}

	fd, err := os.OpenFile(logPath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0600)
	if err != nil {
		return nil, nil, fmt.Errorf("opening log: %w", err)
	}
	events := logger.NewJSONLinesLogger(fd)
	s.Log = events.NewSession()

	return s, func() {
		events.Sync()
		fd.Close()
	}, nil
}

func runCommand(ctx context.Context, s *core.Shell) int {
	s.Init()
	return s.RunLine(ctx, commandLine)
}

func runScript(ctx context.Context, s *core.Shell, path string) int {
	s.Init()

	devNull, err := os.Open(os.DevNull)
	if err != nil {
		log.Printf("xsh: %v", err)
		return 1
	}
	defer devNull.Close()

	ec := s.Stdio()
	ec.Stdin = devNull

	status, err := s.Source(ec.WithContext(ctx), path)
	if err != nil {
		var pathErr *fs.PathError
		if errors.As(err, &pathErr) {
			err = pathErr.Err
		}
		fmt.Fprintf(ec.Stderr, "xsh: %s: %v\n", path, err)
		return statusScriptNotFound
	}
	return status
}

func runInteractive(ctx context.Context, s *core.Shell) int {
	// fg hands the terminal to other process groups and takes it back.
	signal.Ignore(syscall.SIGTTOU, syscall.SIGTTIN)

	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGQUIT, syscall.SIGTSTP)
	defer signal.Stop(sigs)
	go func() {
		for range sigs {
		}
	}()

	s.Terminal = jobs.NewTerminal(os.Stdin)
	s.Init()

	editor := lineedit.New(os.Stdin, s.Stdio().Stdout)
	editor.History = s.History
	editor.Completer = s

	// Piped input skips the startup files and the saved history.
	interactive := editor.IsTerminal()

	stderr := s.Stdio().Stderr
	if interactive {
		if err := s.LoadHistory(); err != nil {
			fmt.Fprintf(stderr, "xsh: history: %v\n", err)
		}
		s.InstallAliases()
		if !noRC {
			if err := s.SourceRC(ctx); err != nil {
				fmt.Fprintf(stderr, "xsh: rc: %v\n", err)
			}
		}
	}

	status := s.Run(ctx, editor)
	if interactive {
		if err := s.SaveHistory(); err != nil {
			fmt.Fprintf(stderr, "xsh: history: %v\n", err)
		}
	}
	return status
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
// It returns the process exit status.
func Execute() int {
	if err := rootCmd.Execute(); err != nil {
		return 1
	}
	return exitStatus
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgPath, "config", config.DefaultDir(os.Getenv), "config path")
	rootCmd.Flags().StringVarP(&commandLine, "command", "c", "", "run a single command line and exit")
	rootCmd.Flags().BoolVar(&noRC, "norc", false, "don't source the rc file")
}
