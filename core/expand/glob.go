package expand

import (
	"path/filepath"
	"strings"

	"github.com/spf13/afero"
	"mvdan.cc/sh/v3/pattern"
)

// HasGlob reports whether token contains pattern metacharacters.
func HasGlob(token string) bool {
	return pattern.HasMeta(token, 0)
}

// Glob matches pattern against fsys. Like glob(3), names starting with a
// dot only match a pattern whose last element starts with a dot.
func Glob(fsys afero.Fs, pat string) ([]string, error) {
	matches, err := afero.Glob(fsys, pat)
	if err != nil {
		return nil, err
	}
	if strings.HasPrefix(filepath.Base(pat), ".") {
		return matches, nil
	}

	out := matches[:0]
	for _, m := range matches {
		if !strings.HasPrefix(filepath.Base(m), ".") {
			out = append(out, m)
		}
	}
	return out, nil
}

// Globs replaces every token that contains a pattern with its matches. A
// pattern without matches, or a malformed one, stays as typed. Relative
// patterns are matched under dir and their matches stay relative.
func Globs(fsys afero.Fs, dir string, tokens []string) []string {
	out := make([]string, 0, len(tokens))
	for _, tok := range tokens {
		if !HasGlob(tok) {
			out = append(out, tok)
			continue
		}

		pat := tok
		if !filepath.IsAbs(pat) && dir != "" {
			pat = filepath.Join(dir, pat)
		}
		matches, err := Glob(fsys, pat)
		if err != nil || len(matches) == 0 {
			out = append(out, tok)
			continue
		}
		if pat != tok {
			for i, m := range matches {
				if rel, err := filepath.Rel(dir, m); err == nil {
					matches[i] = rel
				}
			}
		}
		out = append(out, matches...)
	}
	return out
}
