package core

import (
	"bytes"
	"context"
	"os"
	"os/exec"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/fatih/color"
	"github.com/josephlewis42/xsh/core/config"
	"github.com/josephlewis42/xsh/core/jobs"
	"github.com/josephlewis42/xsh/core/shell"
	"github.com/josephlewis42/xsh/core/vos"
	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
)

func init() {
	color.NoColor = true
}

// lockedBuffer collects output written by several goroutines.
type lockedBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *lockedBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *lockedBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

func (b *lockedBuffer) Bytes() []byte {
	return []byte(b.String())
}

// newMemShell creates a shell on an in-memory filesystem. Only builtins
// can run in it.
func newMemShell(t *testing.T) (*Shell, *lockedBuffer) {
	t.Helper()

	out := &lockedBuffer{}
	s := NewShell(config.Default(), ExecContext{Stdout: out, Stderr: out})
	s.Env = vos.NewMapEnvFromEnvList([]string{"HOME=/home/test", "USER=test"})
	s.Fs = afero.NewMemMapFs()
	s.Dir = "/home/test"
	assert.Nil(t, s.Fs.MkdirAll(s.Dir, 0755))
	return s, out
}

// newOSShell creates a shell that can start real programs, working in a
// temporary directory.
func newOSShell(t *testing.T, programs ...string) (*Shell, *lockedBuffer) {
	t.Helper()

	for _, p := range programs {
		if _, err := exec.LookPath(p); err != nil {
			t.Skipf("%s not available: %v", p, err)
		}
	}

	dir := t.TempDir()
	out := &lockedBuffer{}
	s := NewShell(config.Default(), ExecContext{Stdout: out, Stderr: out})
	s.Env = vos.NewMapEnvFromEnvList([]string{"HOME=" + dir, "PATH=" + os.Getenv("PATH")})
	s.Dir = dir
	return s, out
}

func runLines(s *Shell, lines ...string) int {
	status := 0
	for _, line := range lines {
		status = s.RunLine(context.Background(), line)
	}
	return status
}

func TestRunLineStatus(t *testing.T) {
	cases := map[string]struct {
		lines []string
		want  int
		out   string
	}{
		"true":              {lines: []string{"true"}, want: 0},
		"false":             {lines: []string{"false"}, want: 1},
		"sequence":          {lines: []string{"false; true"}, want: 0},
		"and short circuit": {lines: []string{"false && echo no"}, want: 1},
		"or":                {lines: []string{"false || echo yes"}, want: 0, out: "yes\n"},
		"status variable":   {lines: []string{"false; echo $?"}, want: 0, out: "1\n"},
		"status kept":       {lines: []string{"false", "", "echo $?"}, want: 0, out: "1\n"},
		"not found":         {lines: []string{"nosuchcommand arg"}, want: 127, out: "xsh: nosuchcommand: command not found\n"},
		"pipeline last":     {lines: []string{"false | true"}, want: 0},
		"pipeline failure":  {lines: []string{"true | false"}, want: 1},
		"builtin pipeline":  {lines: []string{"echo one | echo two"}, want: 0, out: "two\n"},
		"empty line":        {lines: []string{"   "}, want: 0},
		"comment":           {lines: []string{"# echo nothing"}, want: 0},
		"exit":              {lines: []string{"exit 3"}, want: 3},
		"exit truncates":    {lines: []string{"exit 258"}, want: 2},
		"exit reuses":       {lines: []string{"false", "exit"}, want: 1},
		"exit not numeric":  {lines: []string{"exit abc"}, want: 2, out: "xsh: exit: abc: numeric argument required\n"},
		"exit stops line":   {lines: []string{"exit 4; echo never"}, want: 4},
	}

	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			s, out := newMemShell(t)
			got := runLines(s, tc.lines...)
			assert.Equal(t, tc.want, got)
			assert.Equal(t, tc.want, s.LastStatus())
			assert.Equal(t, tc.out, out.String())
		})
	}
}

func TestRunLineTooLong(t *testing.T) {
	s, out := newMemShell(t)
	got := s.RunLine(context.Background(), "echo "+strings.Repeat("a", shell.MaxLineLength))
	assert.Equal(t, 1, got)
	assert.Equal(t, "xsh: line too long\n", out.String())
}

func TestPipefail(t *testing.T) {
	s, _ := newMemShell(t)
	s.Config.Pipefail = true

	assert.Equal(t, 1, runLines(s, "false | true"))
	assert.Equal(t, 0, runLines(s, "true | true"))
}

func TestVariables(t *testing.T) {
	s, out := newMemShell(t)

	runLines(s,
		"X=1",
		"echo $X ${X}y $NOPE. $ ~/bin",
		"A=first B=second",
		"echo $A-$B",
	)
	assert.Equal(t, "1 1y . $ /home/test/bin\nfirst-second\n", out.String())

	x, ok := s.Env.LookupEnv("X")
	assert.True(t, ok)
	assert.Equal(t, "1", x)
}

func TestCommandSubstitution(t *testing.T) {
	s, out := newMemShell(t)
	assert.Nil(t, s.Fs.MkdirAll("/tmp", 0755))

	runLines(s,
		"X=1; echo $(X=2; echo $X) $X",
		"echo $(cd /tmp; pwd)",
		"pwd",
		`echo "x$(echo a; echo b)y"`,
	)
	assert.Equal(t, "2 1\n/tmp\n/home/test\nxa\nby\n", out.String())
}

func TestGlobArguments(t *testing.T) {
	s, out := newMemShell(t)
	for _, name := range []string{"b.txt", "a.txt", ".hidden.txt", "c.md"} {
		assert.Nil(t, afero.WriteFile(s.Fs, "/home/test/"+name, nil, 0644))
	}

	runLines(s, "echo *.txt", "echo *.none", "echo /home/test/*.md")
	assert.Equal(t, "a.txt b.txt\n*.none\n/home/test/c.md\n", out.String())
}

func TestRedirects(t *testing.T) {
	s, out := newMemShell(t)

	assert.Equal(t, 0, runLines(s, "echo one > out.txt", "echo two >> out.txt"))
	got, err := afero.ReadFile(s.Fs, "/home/test/out.txt")
	assert.Nil(t, err)
	assert.Equal(t, "one\ntwo\n", string(got))

	assert.Equal(t, 0, runLines(s, "echo three > out.txt"))
	got, err = afero.ReadFile(s.Fs, "/home/test/out.txt")
	assert.Nil(t, err)
	assert.Equal(t, "three\n", string(got))

	assert.Equal(t, 0, runLines(s, "echo home > $HOME/home.txt"))
	got, err = afero.ReadFile(s.Fs, "/home/test/home.txt")
	assert.Nil(t, err)
	assert.Equal(t, "home\n", string(got))

	assert.Empty(t, out.String())

	assert.Equal(t, 1, runLines(s, "echo x < missing.txt"))
	assert.Equal(t, "xsh: missing.txt: file does not exist\n", out.String())
}

func TestExternalPipeline(t *testing.T) {
	s, out := newOSShell(t, "tr", "cat")

	assert.Equal(t, 0, runLines(s, "echo hi | tr a-z A-Z"))
	assert.Equal(t, 0, runLines(s, "echo hello | cat | cat"))
	assert.Equal(t, "HI\nhello\n", out.String())
}

func TestExternalRedirects(t *testing.T) {
	s, out := newOSShell(t, "cat", "tr")

	assert.Equal(t, 0, runLines(s,
		"echo piped > in.txt",
		"tr a-z A-Z < in.txt > out.txt",
		"cat < out.txt",
	))
	assert.Equal(t, "PIPED\n", out.String())
}

func TestExternalStatus(t *testing.T) {
	s, _ := newOSShell(t, "sh")

	assert.Equal(t, 3, runLines(s, "sh -c 'exit 3'"))
	assert.Equal(t, 0, runLines(s, "sh -c 'exit 5' | true"))

	s.Config.Pipefail = true
	assert.Equal(t, 5, runLines(s, "sh -c 'exit 5' | true"))
}

func TestAssignmentPrefix(t *testing.T) {
	s, out := newOSShell(t, "env", "grep")

	assert.Equal(t, 0, runLines(s, "XSH_TEST_VAR=scoped env | grep XSH_TEST_VAR"))
	assert.Equal(t, "XSH_TEST_VAR=scoped\n", out.String())

	_, ok := s.Env.LookupEnv("XSH_TEST_VAR")
	assert.False(t, ok)
}

func TestNotExecutable(t *testing.T) {
	s, out := newOSShell(t)
	assert.Nil(t, os.WriteFile(s.absPath("script.sh"), []byte("#!/bin/sh\n"), 0644))

	assert.Equal(t, 127, runLines(s, "./script.sh"))
	assert.Equal(t, "xsh: ./script.sh: permission denied\n", out.String())
}

func TestAliasResolution(t *testing.T) {
	cases := map[string]struct {
		lines []string
		want  string
	}{
		"arguments appended": {
			lines: []string{"alias hi='echo hello'", "hi world"},
			want:  "hello world\n",
		},
		"chained": {
			lines: []string{"alias hi='echo hello'", "alias greet='hi there'", "greet you"},
			want:  "hello there you\n",
		},
		"self reference": {
			lines: []string{"alias echo='echo +'", "echo self"},
			want:  "+ self\n",
		},
		"cycle": {
			lines: []string{"alias loop1=loop2", "alias loop2=loop1", "loop1"},
			want:  "xsh: loop1: command not found\n",
		},
		"control operators": {
			lines: []string{"alias both='echo a; echo b'", "both c"},
			want:  "a\nb c\n",
		},
		"and list": {
			lines: []string{"alias check='false && echo no'", "check || echo fallback"},
			want:  "fallback\n",
		},
		"empty value": {
			lines: []string{"alias nothing=''", "nothing echo ran"},
			want:  "ran\n",
		},
		"pipeline stage": {
			lines: []string{"alias two='echo a | echo b'", "echo x | two c"},
			want:  "b c\n",
		},
		"not in pipeline": {
			lines: []string{"alias seq='echo a; echo b'", "echo x | seq"},
			want:  "xsh: alias: seq: must expand to a simple pipeline\n",
		},
		"expanded at run time": {
			lines: []string{"alias later='echo late'; later"},
			want:  "late\n",
		},
	}

	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			s, out := newMemShell(t)
			runLines(s, tc.lines...)
			assert.Equal(t, tc.want, out.String())
		})
	}
}

func TestAliasDepth(t *testing.T) {
	s, out := newMemShell(t)
	for i := 0; i < 20; i++ {
		s.Aliases.Set(aliasName(i), aliasName(i+1))
	}

	assert.Equal(t, 1, runLines(s, aliasName(0)))
	assert.Equal(t, "xsh: alias: expansion too deep: a16\n", out.String())
}

func aliasName(i int) string {
	return "a" + strconv.Itoa(i)
}

func TestAliasRedirect(t *testing.T) {
	s, _ := newMemShell(t)

	runLines(s, "alias say='echo said'", "say it > said.txt")
	got, err := afero.ReadFile(s.Fs, "/home/test/said.txt")
	assert.Nil(t, err)
	assert.Equal(t, "said it\n", string(got))
}

func TestBackgroundBuiltin(t *testing.T) {
	s, out := newMemShell(t)

	assert.Equal(t, 0, runLines(s, "echo from the background &"))
	assert.Equal(t, 1, s.Jobs.Len())

	job := s.Jobs.Jobs()[0]
	assert.Equal(t, "echo from the background", job.Text)
	assert.Equal(t, 0, job.Wait())

	assert.Contains(t, out.String(), "[1] 0\n")
	assert.Contains(t, out.String(), "from the background\n")

	var polled bytes.Buffer
	s.Jobs.Poll(&polled)
	assert.Equal(t, "[1]  Done      echo from the background\n", polled.String())
	assert.Equal(t, 0, s.Jobs.Len())
}

func TestBackgroundExternal(t *testing.T) {
	s, out := newOSShell(t, "sleep")

	assert.Equal(t, 0, runLines(s, "sleep 0.1 &"))
	job, err := s.Jobs.Get("")
	assert.Nil(t, err)
	assert.NotZero(t, job.Pid())
	assert.Equal(t, job.Pid(), job.Pgid, "background jobs lead their own process group")
	assert.Contains(t, out.String(), "[1] ")

	status, err := s.Jobs.Foreground("%1", nil)
	assert.Nil(t, err)
	assert.Equal(t, 0, status)
	assert.Equal(t, 0, s.Jobs.Len())
}

func TestBackgroundTableFull(t *testing.T) {
	s, out := newMemShell(t)
	s.Jobs = jobs.NewTable(1)

	assert.Equal(t, 0, runLines(s, "true &"))
	assert.Equal(t, 1, runLines(s, "true &"))
	assert.Contains(t, out.String(), "xsh: job table full\n")
}

func TestBuiltinPanic(t *testing.T) {
	AllBuiltins["boom"] = ShellBuiltinFunc(func(s *Shell, ec ExecContext, args []string) int {
		panic("kaboom")
	})
	defer delete(AllBuiltins, "boom")

	s, out := newMemShell(t)
	assert.Equal(t, 1, runLines(s, "boom"))
	assert.Equal(t, "xsh: boom: internal error\n", out.String())

	assert.Equal(t, 1, runLines(s, "true | boom"))
}

func TestContextCancel(t *testing.T) {
	s, _ := newOSShell(t, "sleep")

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	start := time.Now()
	status := s.RunLine(ctx, "sleep 5")
	assert.NotEqual(t, 0, status)
	assert.Less(t, time.Since(start), 4*time.Second)
}

func TestIsAssignment(t *testing.T) {
	for word, want := range map[string]bool{
		"A=1":     true,
		"_x=":     true,
		"a1=b=c":  true,
		"=x":      false,
		"1a=x":    false,
		"a-b=x":   false,
		"plain":   false,
		"$(x)=y":  false,
		"X Y=bad": false,
	} {
		assert.Equal(t, want, isAssignment(word), word)
	}
}
