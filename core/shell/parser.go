// Package shell turns command lines into tokens and command trees.
//
// Loosely follows the token recognition rules of
// https://pubs.opengroup.org/onlinepubs/9699919799/utilities/V3_chap02.html
// with a reduced grammar: words, quotes, pipes, one input and one output
// redirection, command substitution and the control operators ; & && ||.
package shell

import (
	"errors"
	"strings"
)

// MaxLineLength is the longest line accepted by Parse and ParseTree.
const MaxLineLength = 64 * 1024

// ErrLineTooLong is returned for lines over MaxLineLength bytes.
var ErrLineTooLong = errors.New("line too long")

// Expander rewrites a single token.
type Expander interface {
	Expand(token string) string
}

// ExpanderFunc adapts a function to Expander.
type ExpanderFunc func(token string) string

// Expand implements Expander.
func (f ExpanderFunc) Expand(token string) string {
	return f(token)
}

// ParsedCommand is the flat form of one pipeline.
type ParsedCommand struct {
	Tokens []string
	// Boundaries holds the token indices where each pipeline stage after the
	// first begins. They are strictly increasing and within [1, len(Tokens)).
	Boundaries []int

	InputFile  string
	OutputFile string
	Append     bool
	Background bool
}

// Commands splits Tokens at the pipe boundaries.
func (p *ParsedCommand) Commands() [][]string {
	if len(p.Tokens) == 0 {
		return nil
	}

	var out [][]string
	start := 0
	for _, b := range p.Boundaries {
		out = append(out, p.Tokens[start:b])
		start = b
	}
	return append(out, p.Tokens[start:])
}

// Pipeline converts the flat form into a tree node.
func (p *ParsedCommand) Pipeline() *Pipeline {
	out := &Pipeline{
		Redirects: Redirects{
			Input:  p.InputFile,
			Output: p.OutputFile,
			Append: p.Append,
		},
		Background: p.Background,
	}
	for _, args := range p.Commands() {
		out.Commands = append(out.Commands, &Simple{Args: args})
	}
	return out
}

type redirectTarget int

const (
	targetNone redirectTarget = iota
	targetInput
	targetOutput
)

// Parse tokenizes one pipeline. Quote characters are removed, unquoted
// blanks separate words and unquoted | < > >> are operators. The text of a
// $( ... ) substitution is copied verbatim. Each finished token is passed
// through exp when it is non-nil.
func Parse(line string, exp Expander) (*ParsedCommand, error) {
	if len(line) > MaxLineLength {
		return nil, ErrLineTooLong
	}

	out := &ParsedCommand{}

	var (
		word    strings.Builder
		inWord  bool
		single  bool
		double  bool
		depth   int
		pending = targetNone
	)

	expand := func(s string) string {
		if exp == nil {
			return s
		}
		return exp.Expand(s)
	}

	flush := func() {
		if !inWord {
			return
		}
		tok := expand(word.String())
		word.Reset()
		inWord = false

		switch pending {
		case targetInput:
			out.InputFile = tok
		case targetOutput:
			out.OutputFile = tok
		default:
			out.Tokens = append(out.Tokens, tok)
		}
		pending = targetNone
	}

	// operator ends the current word and any redirection still waiting for
	// its target.
	operator := func() {
		flush()
		pending = targetNone
	}

	for i := 0; i < len(line); i++ {
		c := line[i]

		switch {
		case depth > 0:
			switch c {
			case '(':
				depth++
			case ')':
				depth--
			}
			word.WriteByte(c)

		case c == '\'' && !double:
			single = !single
			inWord = true

		case single:
			word.WriteByte(c)

		case c == '$' && i+1 < len(line) && line[i+1] == '(':
			word.WriteString("$(")
			inWord = true
			depth = 1
			i++

		case c == '"':
			double = !double
			inWord = true

		case double:
			word.WriteByte(c)

		case isBlank(c):
			flush()

		case c == '|':
			if i+1 < len(line) && line[i+1] == '|' {
				word.WriteString("||")
				inWord = true
				i++
				continue
			}
			operator()
			out.Boundaries = append(out.Boundaries, len(out.Tokens))

		case c == '<':
			operator()
			pending = targetInput

		case c == '>':
			operator()
			out.Append = i+1 < len(line) && line[i+1] == '>'
			if out.Append {
				i++
			}
			pending = targetOutput

		default:
			word.WriteByte(c)
			inWord = true
		}
	}
	flush()

	if n := len(out.Tokens); n > 0 && out.Tokens[n-1] == "&" {
		out.Tokens = out.Tokens[:n-1]
		out.Background = true
	}
	out.Boundaries = cleanBoundaries(out.Boundaries, len(out.Tokens))

	return out, nil
}

// cleanBoundaries drops boundaries that would create empty stages.
func cleanBoundaries(in []int, count int) []int {
	var out []int
	last := 0
	for _, b := range in {
		if b <= last || b >= count {
			continue
		}
		out = append(out, b)
		last = b
	}
	return out
}

func isBlank(c byte) bool {
	return c == ' ' || c == '\t' || c == '\n' || c == '\r'
}
