package shell

import "strings"

// Node is an element of a parsed command line.
type Node interface {
	node()
}

// Simple is one command and its raw arguments.
type Simple struct {
	Args []string
}

// Redirects are the file redirections of a pipeline. Input binds to the
// first stage and Output to the last one.
type Redirects struct {
	Input  string
	Output string
	Append bool
}

// Pipeline is one or more commands connected by pipes.
type Pipeline struct {
	Commands []*Simple
	Redirects
	Background bool
	// Text is the source text, used to describe jobs.
	Text string
}

// Sequence runs its items in order.
type Sequence struct {
	Items []Node
}

// And runs Right only if Left succeeds.
type And struct {
	Left, Right Node
}

// Or runs Right only if Left fails.
type Or struct {
	Left, Right Node
}

func (*Pipeline) node() {}
func (*Sequence) node() {}
func (*And) node()      {}
func (*Or) node()       {}

// ParseTree splits line on the control operators and parses each leaf
// pipeline with Parse. Tokens are left unexpanded.
func ParseTree(line string) (Node, error) {
	if len(line) > MaxLineLength {
		return nil, ErrLineTooLong
	}

	trimmed := strings.TrimLeft(line, " \t")
	if trimmed == "" || trimmed[0] == '#' {
		return &Sequence{}, nil
	}

	items := splitList(trimmed)
	if len(items) == 1 && !items[0].background {
		return parseAndOr(items[0].text)
	}

	seq := &Sequence{}
	for _, item := range items {
		n, err := parseAndOr(item.text)
		if err != nil {
			return nil, err
		}
		if item.background {
			if p := Rightmost(n); p != nil {
				p.Background = true
			}
		}
		seq.Items = append(seq.Items, n)
	}
	return seq, nil
}

// Rightmost returns the pipeline that runs last in n.
func Rightmost(n Node) *Pipeline {
	switch n := n.(type) {
	case *Pipeline:
		return n
	case *And:
		return Rightmost(n.Right)
	case *Or:
		return Rightmost(n.Right)
	case *Sequence:
		for i := len(n.Items) - 1; i >= 0; i-- {
			if p := Rightmost(n.Items[i]); p != nil {
				return p
			}
		}
	}
	return nil
}

type listItem struct {
	text       string
	background bool
}

// splitList cuts s at every top-level ; and lone &.
func splitList(s string) []listItem {
	mask := topLevel(s)

	var items []listItem
	add := func(text string, background bool) {
		if strings.TrimSpace(text) == "" {
			return
		}
		items = append(items, listItem{text: text, background: background})
	}

	start := 0
	for i := 0; i < len(s); i++ {
		if !mask[i] {
			continue
		}
		switch s[i] {
		case ';':
			add(s[start:i], false)
			start = i + 1
		case '&':
			if i+1 < len(s) && s[i+1] == '&' {
				i++
				continue
			}
			if i > 0 && (s[i-1] == '<' || s[i-1] == '>') {
				continue
			}
			add(s[start:i], true)
			start = i + 1
		}
	}
	add(s[start:], false)
	return items
}

// parseAndOr splits s at its first top-level && or, failing that, its
// first top-level ||.
func parseAndOr(s string) (Node, error) {
	if i := findOperator(s, "&&"); i >= 0 {
		left, right, err := parseSides(s[:i], s[i+2:])
		if err != nil {
			return nil, err
		}
		return &And{Left: left, Right: right}, nil
	}

	if i := findOperator(s, "||"); i >= 0 {
		left, right, err := parseSides(s[:i], s[i+2:])
		if err != nil {
			return nil, err
		}
		return &Or{Left: left, Right: right}, nil
	}

	parsed, err := Parse(s, nil)
	if err != nil {
		return nil, err
	}
	p := parsed.Pipeline()
	p.Text = strings.TrimSpace(s)
	return p, nil
}

func parseSides(l, r string) (Node, Node, error) {
	left, err := parseAndOr(l)
	if err != nil {
		return nil, nil, err
	}
	right, err := parseAndOr(r)
	if err != nil {
		return nil, nil, err
	}
	return left, right, nil
}

func findOperator(s, op string) int {
	mask := topLevel(s)
	for i := 0; i+len(op) <= len(s); i++ {
		if mask[i] && s[i:i+len(op)] == op {
			return i
		}
	}
	return -1
}

// topLevel marks the bytes of s that are outside quotes and command
// substitutions.
func topLevel(s string) []bool {
	mask := make([]bool, len(s))

	var single, double bool
	depth := 0
	for i := 0; i < len(s); i++ {
		c := s[i]
		switch {
		case depth > 0:
			if c == '(' {
				depth++
			} else if c == ')' {
				depth--
			}
		case c == '\'' && !double:
			single = !single
		case single:
		case c == '$' && i+1 < len(s) && s[i+1] == '(':
			depth = 1
			i++
		case c == '"':
			double = !double
		case double:
		default:
			mask[i] = true
		}
	}
	return mask
}
