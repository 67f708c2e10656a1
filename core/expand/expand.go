// Package expand rewrites tokens before a command runs: variables, command
// substitution, the home directory and file name patterns.
package expand

import (
	"strconv"
	"strings"

	"github.com/josephlewis42/xsh/core/vos"
)

// Expander performs variable, substitution and tilde expansion.
type Expander struct {
	Env vos.VEnv
	// Pid is substituted for $$.
	Pid int
	// Status returns the value of $?.
	Status func() int
	// Substitute runs a command line and returns its output. Substitution
	// expands to nothing when it is nil.
	Substitute func(cmd string) string
}

// Expand rewrites a single token. It never fails, unknown or malformed
// references expand to the empty string.
func (e *Expander) Expand(token string) string {
	var out strings.Builder

	for i := 0; i < len(token); {
		c := token[i]

		if c == '~' && i == 0 {
			if home, ok := e.lookup("HOME"); ok {
				out.WriteString(home)
			} else {
				out.WriteByte('~')
			}
			i++
			continue
		}

		if c != '$' || i+1 >= len(token) {
			out.WriteByte(c)
			i++
			continue
		}

		next := token[i+1]
		switch {
		case next == '$':
			out.WriteString(strconv.Itoa(e.Pid))
			i += 2

		case next == '?':
			out.WriteString(strconv.Itoa(e.status()))
			i += 2

		case next == '{':
			name, rest := token[i+2:], ""
			if end := strings.IndexByte(name, '}'); end >= 0 {
				name, rest = name[:end], name[end+1:]
			}
			out.WriteString(e.getenv(name))
			i = len(token) - len(rest)

		case next == '(':
			cmd, n := substitution(token[i+2:])
			out.WriteString(e.substitute(cmd))
			i += 2 + n

		case isNameByte(next):
			j := i + 1
			for j < len(token) && isNameByte(token[j]) {
				j++
			}
			out.WriteString(e.getenv(token[i+1 : j]))
			i = j

		default:
			out.WriteByte('$')
			i++
		}
	}

	return out.String()
}

// substitution returns the command inside a $( ... ) whose opening has
// already been consumed, and the number of bytes used including the
// closing parenthesis. An unclosed substitution runs to the end of s.
func substitution(s string) (string, int) {
	depth := 1
	for i := 0; i < len(s); i++ {
		switch s[i] {
		case '(':
			depth++
		case ')':
			depth--
			if depth == 0 {
				return s[:i], i + 1
			}
		}
	}
	return s, len(s)
}

func (e *Expander) substitute(cmd string) string {
	if e.Substitute == nil {
		return ""
	}
	return strings.TrimRight(e.Substitute(cmd), "\n")
}

func (e *Expander) status() int {
	if e.Status == nil {
		return 0
	}
	return e.Status()
}

func (e *Expander) lookup(name string) (string, bool) {
	if e.Env == nil {
		return "", false
	}
	return e.Env.LookupEnv(name)
}

func (e *Expander) getenv(name string) string {
	val, _ := e.lookup(name)
	return val
}

func isNameByte(c byte) bool {
	return c == '_' || c >= 'a' && c <= 'z' || c >= 'A' && c <= 'Z' || c >= '0' && c <= '9'
}
