package core

import (
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"syscall"

	"github.com/josephlewis42/xsh/core/vos"
	"mvdan.cc/sh/v3/syntax"
)

// AllBuiltins holds a list of all registered shell builtins
var AllBuiltins = make(map[string]ShellBuiltin)

// BuiltinDoc is the help entry of a builtin.
type BuiltinDoc struct {
	Name  string
	Usage string
	Short string
}

// BuiltinDocs lists the builtins in the order help shows them.
var BuiltinDocs []BuiltinDoc

func addBuiltin(name, usage, short string, fn ShellBuiltinFunc) {
	AllBuiltins[name] = fn
	BuiltinDocs = append(BuiltinDocs, BuiltinDoc{Name: name, Usage: usage, Short: short})
}

// BuiltinNames returns the names of every builtin, sorted.
func BuiltinNames() []string {
	names := make([]string, 0, len(AllBuiltins))
	for name := range AllBuiltins {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Cd is the cd shell builtin
func Cd(s *Shell, ec ExecContext, args []string) int {
	var target string
	switch {
	case len(args) > 2:
		fmt.Fprintf(ec.Stderr, "xsh: %s: too many arguments\n", args[0])
		return 1
	case len(args) == 1:
		target = s.Env.Getenv(EnvHome)
		if target == "" {
			target = "/"
		}
	case args[1] == "-":
		old, ok := s.Env.LookupEnv(EnvOldPWD)
		if !ok {
			fmt.Fprintf(ec.Stderr, "xsh: %s: OLDPWD not set\n", args[0])
			return 1
		}
		target = old
		fmt.Fprintln(ec.Stdout, target)
	default:
		target = args[1]
	}

	dir := s.absPath(target)
	fi, err := s.Fs.Stat(dir)
	if err == nil && !fi.IsDir() {
		err = syscall.ENOTDIR
	}
	if err != nil {
		fmt.Fprintf(ec.Stderr, "%s xsh: %s: %s: %v\n", s.sprint(errorMarkColor, "✗"), args[0], target, unwrapPathError(err))
		return 1
	}

	s.Env.Setenv(EnvOldPWD, s.Dir)
	s.Dir = dir
	s.Env.Setenv(EnvPWD, dir)
	return 0
}

// Pwd prints the working directory.
func Pwd(s *Shell, ec ExecContext, args []string) int {
	fmt.Fprintln(ec.Stdout, s.sprint(pathColor, s.Dir))
	return 0
}

var echoEscapes = strings.NewReplacer(
	`\\`, `\`,
	`\n`, "\n",
	`\t`, "\t",
	`\r`, "\r",
	`\e`, "\x1b",
)

// Echo writes its arguments separated by spaces. Backslash escapes are
// always interpreted.
func Echo(s *Shell, ec ExecContext, args []string) int {
	args = args[1:]
	newline := true
	if len(args) > 0 && args[0] == "-n" {
		newline = false
		args = args[1:]
	}

	var sb strings.Builder
	for i, arg := range args {
		if i > 0 {
			sb.WriteByte(' ')
		}
		sb.WriteString(echoEscapes.Replace(arg))
	}
	if newline {
		sb.WriteByte('\n')
	}
	fmt.Fprint(ec.Stdout, sb.String())
	return 0
}

// Export sets environment variables or lists them.
func Export(s *Shell, ec ExecContext, args []string) int {
	cmd := &builtinCommand{
		Use:   "export [-p] [NAME=VALUE ...]",
		Short: "Set environment variables, or list them.",
	}
	list := cmd.Flags().Bool('p', "list all exported variables")

	return cmd.Run(s, ec, args, func() int {
		operands := cmd.Flags().Args()
		if *list || len(operands) == 0 {
			for _, entry := range s.Env.Environ() {
				name, value, _ := strings.Cut(entry, "=")
				quoted, err := syntax.Quote(value, syntax.LangBash)
				if err != nil {
					quoted = strconv.Quote(value)
				}
				fmt.Fprintf(ec.Stdout, "%s %s=%s\n", s.sprint(nameColor, "export"), name, quoted)
			}
			return 0
		}

		status := 0
		for _, op := range operands {
			name, value, hasValue := strings.Cut(op, "=")
			if !isAssignment(name + "=") {
				fmt.Fprintf(ec.Stderr, "xsh: %s: `%s': not a valid identifier\n", args[0], op)
				status = 1
				continue
			}
			if hasValue {
				s.Env.Setenv(name, value)
			}
		}
		return status
	})
}

// Unset removes environment variables.
func Unset(s *Shell, ec ExecContext, args []string) int {
	cmd := &builtinCommand{
		Use:   "unset [-fv] [NAME...]",
		Short: "Unset shell variables.",
	}
	cmd.Flags().Bool('f', "treat NAME as a function")
	cmd.Flags().Bool('v', "treat NAME as a variable")

	return cmd.RunEachArg(s, ec, args, func(name string) error {
		return s.Env.Unsetenv(name)
	})
}

// History shows or clears the command history.
func History(s *Shell, ec ExecContext, args []string) int {
	cmd := &builtinCommand{
		Use:   "history [-c] [N]",
		Short: "Display the history list with line numbers, or the last N lines.",
	}
	clearAll := cmd.Flags().Bool('c', "clear the history by deleting all entries")

	return cmd.Run(s, ec, args, func() int {
		if *clearAll {
			s.History.Clear()
			return 0
		}

		start := 0
		if operands := cmd.Flags().Args(); len(operands) > 0 {
			n, err := strconv.Atoi(operands[0])
			if err != nil || n < 0 {
				fmt.Fprintf(ec.Stderr, "xsh: %s: %s: numeric argument required\n", args[0], operands[0])
				return 1
			}
			if n < s.History.Len() {
				start = s.History.Len() - n
			}
		}

		for i := start; i < s.History.Len(); i++ {
			num := fmt.Sprintf("%4d", s.History.Number(i))
			fmt.Fprintf(ec.Stdout, " %s %s\n", s.sprint(nameColor, num), s.History.At(i))
		}
		return 0
	})
}

// Alias defines aliases or prints them.
func Alias(s *Shell, ec ExecContext, args []string) int {
	printAlias := func(name, value string) {
		fmt.Fprintf(ec.Stdout, "%s %s='%s'\n", s.sprint(nameColor, "alias"), name, value)
	}

	if len(args) == 1 {
		s.Aliases.Each(printAlias)
		return 0
	}

	status := 0
	for _, arg := range args[1:] {
		name, value, ok := strings.Cut(arg, "=")
		if !ok {
			if value, found := s.Aliases.Get(name); found {
				printAlias(name, value)
				continue
			}
			fmt.Fprintf(ec.Stderr, "xsh: %s: %s: not found\n", args[0], name)
			status = 1
			continue
		}

		if name == "" || strings.ContainsAny(name, " \t/$") {
			fmt.Fprintf(ec.Stderr, "xsh: %s: `%s': invalid alias name\n", args[0], name)
			status = 1
			continue
		}
		s.Aliases.Set(name, trimQuotes(value))
	}
	return status
}

// trimQuotes removes one pair of matching surrounding quotes.
func trimQuotes(v string) string {
	if len(v) >= 2 && (v[0] == '\'' || v[0] == '"') && v[len(v)-1] == v[0] {
		return v[1 : len(v)-1]
	}
	return v
}

// Unalias removes aliases.
func Unalias(s *Shell, ec ExecContext, args []string) int {
	cmd := &builtinCommand{
		Use:   "unalias [-a] NAME...",
		Short: "Remove each NAME from the list of defined aliases.",
	}
	all := cmd.Flags().Bool('a', "remove all alias definitions")

	return cmd.Run(s, ec, args, func() int {
		if *all {
			s.Aliases.Clear()
			return 0
		}

		status := 0
		for _, name := range cmd.Flags().Args() {
			if !s.Aliases.Remove(name) {
				fmt.Fprintf(ec.Stderr, "xsh: %s: %s: not found\n", args[0], name)
				status = 1
			}
		}
		return status
	})
}

var errNotFound = errors.New("not found")

// Which prints the path a command resolves to.
func Which(s *Shell, ec ExecContext, args []string) int {
	cmd := &builtinCommand{
		Use:   "which [COMMAND...]",
		Short: "Locate a command.",
		// Never bail, even if args are bad.
		NeverBail: true,
	}

	return cmd.RunEachArg(s, ec, args, func(arg string) error {
		res, err := s.lookPath(arg)
		if errors.Is(err, vos.ErrNotFound) {
			return errNotFound
		}
		if err != nil {
			return unwrapPathError(err)
		}
		fmt.Fprintln(ec.Stdout, s.sprint(pathColor, res))
		return nil
	})
}

// Type tells how each name would be interpreted as a command.
func Type(s *Shell, ec ExecContext, args []string) int {
	cmd := &builtinCommand{
		Use:   "type NAME...",
		Short: "Display information about command type.",
	}

	return cmd.RunEachArg(s, ec, args, func(name string) error {
		if value, ok := s.Aliases.Get(name); ok {
			fmt.Fprintf(ec.Stdout, "%s is an alias for '%s'\n", name, value)
			return nil
		}
		if _, ok := AllBuiltins[name]; ok {
			fmt.Fprintf(ec.Stdout, "%s is a shell builtin\n", name)
			return nil
		}
		res, err := s.lookPath(name)
		if err != nil {
			return errNotFound
		}
		fmt.Fprintf(ec.Stdout, "%s is %s\n", name, res)
		return nil
	})
}

// Jobs lists the background jobs.
func Jobs(s *Shell, ec ExecContext, args []string) int {
	cmd := &builtinCommand{
		Use:   "jobs [-l]",
		Short: "Display status of jobs.",
	}
	long := cmd.Flags().Bool('l', "list process IDs in addition to the normal information")

	return cmd.Run(s, ec, args, func() int {
		s.Jobs.List(ec.Stdout, *long)
		return 0
	})
}

func jobRef(args []string) string {
	if len(args) > 1 {
		return args[1]
	}
	return ""
}

// Fg moves a job to the foreground and waits for it.
func Fg(s *Shell, ec ExecContext, args []string) int {
	ref := jobRef(args)
	job, err := s.Jobs.Get(ref)
	if err != nil {
		fmt.Fprintf(ec.Stderr, "xsh: %s: %v\n", args[0], err)
		return 1
	}
	fmt.Fprintln(ec.Stdout, job.Text)

	status, err := s.Jobs.Foreground(ref, s.Terminal)
	if err != nil {
		fmt.Fprintf(ec.Stderr, "xsh: %s: %v\n", args[0], err)
		return 1
	}
	s.Log.JobDone(job.ID, job.Text, status)
	return status
}

// Bg resumes a stopped job in the background.
func Bg(s *Shell, ec ExecContext, args []string) int {
	if err := s.Jobs.Background(jobRef(args), ec.Stdout); err != nil {
		fmt.Fprintf(ec.Stderr, "xsh: %s: %v\n", args[0], err)
		return 1
	}
	return 0
}

// Source runs the commands of a file in the current shell.
func Source(s *Shell, ec ExecContext, args []string) int {
	if len(args) < 2 {
		fmt.Fprintf(ec.Stderr, "xsh: %s: filename required\n", args[0])
		return 1
	}

	status, err := s.Source(ec, args[1])
	if err != nil {
		fmt.Fprintf(ec.Stderr, "xsh: %s: %s: %v\n", args[0], args[1], unwrapPathError(err))
		return 1
	}
	return status
}

// True does nothing, successfully.
func True(s *Shell, ec ExecContext, args []string) int {
	return 0
}

// False does nothing, unsuccessfully.
func False(s *Shell, ec ExecContext, args []string) int {
	return 1
}

// Exit quits the shell
func Exit(s *Shell, ec ExecContext, args []string) int {
	code := s.lastRet
	if len(args) > 1 {
		n, err := strconv.Atoi(args[1])
		if err != nil {
			fmt.Fprintf(ec.Stderr, "xsh: %s: %s: numeric argument required\n", args[0], args[1])
			n = 2
		}
		code = n & 0xff
	}
	s.Quit = true
	s.lastRet = code
	return code
}

// Help lists the builtins.
func Help(s *Shell, ec ExecContext, args []string) int {
	cmd := &builtinCommand{
		Use:   "help [NAME...]",
		Short: "Display information about builtin commands.",
	}

	return cmd.Run(s, ec, args, func() int {
		w := ec.Stdout
		if names := cmd.Flags().Args(); len(names) > 0 {
			status := 0
			for _, name := range names {
				doc, ok := builtinDoc(name)
				if !ok {
					fmt.Fprintf(ec.Stderr, "xsh: %s: no help topics match `%s'\n", args[0], name)
					status = 1
					continue
				}
				fmt.Fprintf(w, "%s: %s\n    %s\n", doc.Name, doc.Usage, doc.Short)
			}
			return status
		}

		fmt.Fprintf(w, "xsh version %s\n", Version)
		fmt.Fprintln(w, "These shell commands are defined internally. Type `help name' to find out more about `name'.")
		fmt.Fprintln(w)
		for _, doc := range BuiltinDocs {
			fmt.Fprintf(w, "  %s  %s\n", s.sprint(nameColor, fmt.Sprintf("%-18s", doc.Usage)), doc.Short)
		}
		fmt.Fprintln(w)
		fmt.Fprintln(w, "Features: pipes (|), redirection (< > >>), background (&), && || ;,")
		fmt.Fprintln(w, "          glob expansion, env variables ($VAR), ~expansion, $(command)")
		return 0
	})
}

func builtinDoc(name string) (BuiltinDoc, bool) {
	for _, doc := range BuiltinDocs {
		if doc.Name == name {
			return doc, true
		}
	}
	return BuiltinDoc{}, false
}

func init() {
	addBuiltin("cd", "cd [dir|-]", "Change directory (- for previous)", Cd)
	addBuiltin("pwd", "pwd", "Print working directory", Pwd)
	addBuiltin("echo", "echo [-n] [args]", "Print text (-n to suppress newline)", Echo)
	addBuiltin("export", "export [k=v]", "Set/show environment variables", Export)
	addBuiltin("unset", "unset [var]", "Unset environment variable", Unset)
	addBuiltin("history", "history [-c] [n]", "Show command history", History)
	addBuiltin("jobs", "jobs [-l]", "List background jobs", Jobs)
	addBuiltin("fg", "fg [job]", "Bring job to foreground", Fg)
	addBuiltin("bg", "bg [job]", "Resume job in background", Bg)
	addBuiltin("source", "source [file]", "Execute commands from file", Source)
	addBuiltin(".", ". [file]", "Execute commands from file", Source)
	addBuiltin("alias", "alias [k=v]", "Create or list aliases", Alias)
	addBuiltin("unalias", "unalias [-a] [name]", "Remove an alias", Unalias)
	addBuiltin("which", "which [cmd]", "Show command path", Which)
	addBuiltin("type", "type [cmd]", "Describe a command", Type)
	addBuiltin("true", "true", "Return exit code 0", True)
	addBuiltin("false", "false", "Return exit code 1", False)
	addBuiltin("exit", "exit [n]", "Exit shell with code n", Exit)
	addBuiltin("help", "help [name]", "Show this help", Help)
}
