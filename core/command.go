package core

import (
	"fmt"
	"io"

	getopt "github.com/pborman/getopt/v2"
)

// ShellBuiltin is a command that runs inside the shell.
type ShellBuiltin interface {
	Main(s *Shell, ec ExecContext, args []string) int
}

// ShellBuiltinFunc adapts a function to ShellBuiltin.
type ShellBuiltinFunc func(s *Shell, ec ExecContext, args []string) int

// Main implements ShellBuiltin.
func (f ShellBuiltinFunc) Main(s *Shell, ec ExecContext, args []string) int {
	return f(s, ec, args)
}

var _ ShellBuiltin = (ShellBuiltinFunc)(nil)

// builtinCommand parses the options of a builtin.
type builtinCommand struct {
	// Use holds a one line usage string.
	Use string
	// Short holds a one line description of the command.
	Short string
	// ShowHelp is the help flag, one is added by Run if nil.
	ShowHelp *bool
	// NeverBail runs the callback even when the options don't parse.
	NeverBail bool

	flags *getopt.Set
}

// Flags gets the command's flag set.
func (c *builtinCommand) Flags() *getopt.Set {
	if c.flags == nil {
		c.flags = getopt.New()
	}
	return c.flags
}

// PrintHelp writes help for the command to the given writer.
func (c *builtinCommand) PrintHelp(w io.Writer) {
	fmt.Fprint(w, "usage: ")
	fmt.Fprintln(w, c.Use)
	fmt.Fprintln(w, c.Short)
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Flags:")
	c.Flags().PrintOptions(w)
}

// Run parses args and calls callback if parsing was successful.
func (c *builtinCommand) Run(s *Shell, ec ExecContext, args []string, callback func() int) int {
	opts := c.Flags()

	if c.ShowHelp == nil {
		c.ShowHelp = opts.BoolLong("help", 'h', "show this help and exit")
	}

	err := opts.Getopt(args, nil)
	if err != nil {
		s.Log.InvalidInvocation(args, err)
	}

	if err != nil && !c.NeverBail {
		fmt.Fprintf(ec.Stderr, "xsh: %s: %s\n\n", args[0], err)
		c.PrintHelp(ec.Stderr)
		return 2
	}

	if *c.ShowHelp {
		c.PrintHelp(ec.Stdout)
		return 0
	}

	return callback()
}

// RunEachArg calls callback for every operand. Errors are printed and make
// the status 1, the remaining operands are still processed.
func (c *builtinCommand) RunEachArg(s *Shell, ec ExecContext, args []string, callback func(arg string) error) int {
	return c.Run(s, ec, args, func() int {
		status := 0
		for _, arg := range c.Flags().Args() {
			if err := callback(arg); err != nil {
				fmt.Fprintf(ec.Stderr, "xsh: %s: %s: %v\n", args[0], arg, err)
				status = 1
			}
		}
		return status
	})
}
