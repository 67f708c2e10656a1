package core

import (
	"os"
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
)

func newCompletionShell(t *testing.T) *Shell {
	t.Helper()

	s, _ := newMemShell(t)
	s.Env.Setenv("PATH", "/bin")
	for path, mode := range map[string]os.FileMode{
		"/home/test/setup.sh":    0644,
		"/home/test/.hidden":     0644,
		"/home/test/src/main.go": 0644,
		"/home/test/src/.env":    0644,
		"/home/test2/notes.txt":  0644,
		"/bin/echo":              0755,
		"/bin/ecat":              0755,
		"/bin/edata":             0644,
	} {
		assert.Nil(t, afero.WriteFile(s.Fs, path, nil, mode))
		assert.Nil(t, s.Fs.Chmod(path, mode))
	}
	s.Aliases.Set("ee", "echo echo")
	return s
}

func TestCompletePath(t *testing.T) {
	cases := map[string]struct {
		word string
		want []string
	}{
		"prefix":        {word: "s", want: []string{"setup.sh", "src/"}},
		"empty":         {word: "", want: []string{"setup.sh", "src/"}},
		"directory":     {word: "src/", want: []string{"src/main.go"}},
		"partial":       {word: "src/m", want: []string{"src/main.go"}},
		"hidden":        {word: ".h", want: []string{".hidden"}},
		"home":          {word: "~/se", want: []string{"~/setup.sh"}},
		"absolute":      {word: "/home/test/sr", want: []string{"/home/test/src/"}},
		"root children": {word: "/b", want: []string{"/bin/"}},
		"dot":           {word: ".", want: []string{".hidden"}},
		"dot slash":     {word: "./", want: []string{"./setup.sh", "./src/"}},
		"nested dot":    {word: "src/.", want: []string{"src/.env"}},
		"home dir":      {word: "~", want: []string{"~/setup.sh", "~/src/"}},
	}

	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			s := newCompletionShell(t)
			assert.Equal(t, tc.want, s.Complete(tc.word, false))
		})
	}
}

func TestCompletePathNoMatch(t *testing.T) {
	s := newCompletionShell(t)
	assert.Empty(t, s.Complete("zz", false))
}

func TestCompletePathRelativeToDir(t *testing.T) {
	s := newCompletionShell(t)
	assert.Equal(t, 0, runLines(s, "cd src"))
	assert.Equal(t, []string{"main.go"}, s.Complete("m", false))
}

func TestCompleteCommand(t *testing.T) {
	s := newCompletionShell(t)

	// builtins, aliases and executables, each name once
	assert.Equal(t, []string{"ecat", "echo", "ee", "exit", "export"}, s.Complete("e", true))
	assert.Equal(t, []string{"unalias", "unset"}, s.Complete("un", true))
	assert.Empty(t, s.Complete("edat", true))
}

func TestCompleteCommandRelativePath(t *testing.T) {
	s := newCompletionShell(t)
	assert.Nil(t, afero.WriteFile(s.Fs, "/home/test/tools/xrun", nil, 0755))
	assert.Nil(t, s.Fs.Chmod("/home/test/tools/xrun", 0755))
	s.Env.Setenv("PATH", "tools")

	assert.Equal(t, []string{"xrun"}, s.Complete("xr", true))
	path, err := s.lookPath("xrun")
	assert.Nil(t, err)
	assert.Equal(t, "/home/test/tools/xrun", path)

	assert.Equal(t, 0, runLines(s, "cd /"))
	assert.Empty(t, s.Complete("xr", true))
}
