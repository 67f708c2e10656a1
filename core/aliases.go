package core

import (
	"errors"
	"fmt"

	"github.com/josephlewis42/xsh/core/shell"
)

var (
	errAliasDepth      = errors.New("expansion too deep")
	errAliasInPipeline = errors.New("must expand to a simple pipeline")
)

// resolveAliases replaces alias command words in node by their values. seen
// holds the aliases currently being expanded, they are not expanded again.
func (s *Shell) resolveAliases(node shell.Node, seen map[string]bool, depth int) (shell.Node, error) {
	switch n := node.(type) {
	case *shell.Sequence:
		out := &shell.Sequence{}
		for _, item := range n.Items {
			r, err := s.resolveAliases(item, seen, depth)
			if err != nil {
				return nil, err
			}
			out.Items = append(out.Items, r)
		}
		return out, nil

	case *shell.And:
		l, r, err := s.resolveSides(n.Left, n.Right, seen, depth)
		if err != nil {
			return nil, err
		}
		return &shell.And{Left: l, Right: r}, nil

	case *shell.Or:
		l, r, err := s.resolveSides(n.Left, n.Right, seen, depth)
		if err != nil {
			return nil, err
		}
		return &shell.Or{Left: l, Right: r}, nil

	case *shell.Pipeline:
		if len(n.Commands) == 1 {
			return s.resolveCommand(n, seen, depth)
		}
		return s.resolveStages(n, seen, depth)
	}
	return node, nil
}

func (s *Shell) resolveSides(l, r shell.Node, seen map[string]bool, depth int) (shell.Node, shell.Node, error) {
	left, err := s.resolveAliases(l, seen, depth)
	if err != nil {
		return nil, nil, err
	}
	right, err := s.resolveAliases(r, seen, depth)
	if err != nil {
		return nil, nil, err
	}
	return left, right, nil
}

// lookupAlias returns the parsed value of the alias named by args[0].
func (s *Shell) lookupAlias(args []string, seen map[string]bool, depth int) (shell.Node, bool, error) {
	if len(args) == 0 || seen[args[0]] {
		return nil, false, nil
	}
	name := args[0]
	value, ok := s.Aliases.Get(name)
	if !ok {
		return nil, false, nil
	}
	if depth >= s.Config.MaxAliasDepth {
		return nil, false, fmt.Errorf("%w: %s", errAliasDepth, name)
	}

	node, err := shell.ParseTree(value)
	if err != nil {
		return nil, false, fmt.Errorf("%s: %w", name, err)
	}
	if shell.Rightmost(node) == nil {
		node = &shell.Pipeline{}
	}
	return node, true, nil
}

// resolveCommand expands a single command pipeline. The alias value may be
// any command line, the remaining words and the redirections go to the
// pipeline that runs last.
func (s *Shell) resolveCommand(p *shell.Pipeline, seen map[string]bool, depth int) (shell.Node, error) {
	args := p.Commands[0].Args
	node, ok, err := s.lookupAlias(args, seen, depth)
	if err != nil || !ok {
		return p, err
	}

	last := shell.Rightmost(node)
	if rest := args[1:]; len(rest) > 0 {
		if len(last.Commands) == 0 {
			last.Commands = append(last.Commands, &shell.Simple{})
		}
		cmd := last.Commands[len(last.Commands)-1]
		cmd.Args = append(cmd.Args, rest...)
	}
	if p.Input != "" {
		last.Input = p.Input
	}
	if p.Output != "" {
		last.Output = p.Output
		last.Append = p.Append
	}
	last.Background = last.Background || p.Background
	if _, single := node.(*shell.Pipeline); single {
		last.Text = p.Text
	}

	return s.resolveAliases(node, withAlias(seen, args[0]), depth+1)
}

// resolveStages expands the stages of a multi-stage pipeline. An alias used
// there must expand to a plain pipeline, whose stages are spliced in.
func (s *Shell) resolveStages(p *shell.Pipeline, seen map[string]bool, depth int) (shell.Node, error) {
	out := &shell.Pipeline{
		Redirects:  p.Redirects,
		Background: p.Background,
		Text:       p.Text,
	}
	for _, cmd := range p.Commands {
		stages, err := s.resolveStage(cmd, seen, depth)
		if err != nil {
			return nil, err
		}
		out.Commands = append(out.Commands, stages...)
	}
	return out, nil
}

func (s *Shell) resolveStage(cmd *shell.Simple, seen map[string]bool, depth int) ([]*shell.Simple, error) {
	node, ok, err := s.lookupAlias(cmd.Args, seen, depth)
	if err != nil {
		return nil, err
	}
	if !ok {
		return []*shell.Simple{cmd}, nil
	}

	value, isPipeline := node.(*shell.Pipeline)
	if !isPipeline || value.Background || value.Redirects != (shell.Redirects{}) {
		return nil, fmt.Errorf("%s: %w", cmd.Args[0], errAliasInPipeline)
	}
	if len(value.Commands) == 0 {
		value.Commands = []*shell.Simple{{}}
	}
	last := value.Commands[len(value.Commands)-1]
	last.Args = append(last.Args, cmd.Args[1:]...)

	inner := withAlias(seen, cmd.Args[0])
	var out []*shell.Simple
	for _, c := range value.Commands {
		if len(c.Args) == 0 {
			continue
		}
		stages, err := s.resolveStage(c, inner, depth+1)
		if err != nil {
			return nil, err
		}
		out = append(out, stages...)
	}
	if len(out) == 0 {
		out = []*shell.Simple{{}}
	}
	return out, nil
}

func withAlias(seen map[string]bool, name string) map[string]bool {
	out := make(map[string]bool, len(seen)+1)
	for k := range seen {
		out[k] = true
	}
	out[name] = true
	return out
}
