package core

import (
	"path/filepath"
	"sort"
	"strings"

	"github.com/josephlewis42/xsh/core/expand"
	"github.com/josephlewis42/xsh/core/vos"
)

// Complete returns the words that can replace word. Command words complete
// to builtins, aliases and executables on PATH, everything else completes
// to file names.
func (s *Shell) Complete(word string, command bool) []string {
	if command {
		return s.completeCommand(word)
	}
	return s.completePath(word)
}

func (s *Shell) completeCommand(prefix string) []string {
	seen := make(map[string]bool)
	var out []string
	add := func(name string) {
		if !seen[name] && strings.HasPrefix(name, prefix) {
			seen[name] = true
			out = append(out, name)
		}
	}

	for name := range AllBuiltins {
		add(name)
	}
	for _, name := range s.Aliases.Names() {
		add(name)
	}
	for _, name := range vos.Executables(s.Env, s.Fs, s.Dir, prefix) {
		add(name)
	}

	sort.Strings(out)
	return out
}

// completePath lists the files starting with word. The typed prefix,
// including a leading ~, is kept and directories end with a slash.
func (s *Shell) completePath(word string) []string {
	pat := word
	if home := s.Env.Getenv(EnvHome); home != "" && (word == "~" || strings.HasPrefix(word, "~/")) {
		if word == "~" {
			word = "~/"
		}
		pat = home + word[1:]
	}

	// Only the last element is matched; everything up to the final slash
	// is kept exactly as typed.
	split := strings.LastIndex(pat, "/") + 1
	dir, name := pat[:split], pat[split:]
	typed := word[:strings.LastIndex(word, "/")+1]

	if !filepath.IsAbs(dir) {
		dir = filepath.Join(s.Dir, dir)
	}
	// name isn't cleaned so "." keeps selecting dot files.
	matches, err := expand.Glob(s.Fs, strings.TrimSuffix(dir, "/")+"/"+name+"*")
	if err != nil {
		return nil
	}

	out := make([]string, 0, len(matches))
	for _, m := range matches {
		candidate := typed + filepath.Base(m)
		if fi, err := s.Fs.Stat(m); err == nil && fi.IsDir() {
			candidate += "/"
		}
		out = append(out, candidate)
	}
	return out
}
