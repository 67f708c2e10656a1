// Package lineedit is a small raw-mode line editor with history browsing
// and tab completion.
package lineedit

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"golang.org/x/term"
)

// ErrInterrupt is returned by ReadLine when the user presses Ctrl-C.
var ErrInterrupt = errors.New("Interrupt")

const defaultWidth = 80

// History is the list of lines browsed with the arrow keys, oldest first.
type History interface {
	Len() int
	At(i int) string
}

// Completer suggests replacements for the word under the cursor. command
// is set when the word is in command position.
type Completer interface {
	Complete(word string, command bool) []string
}

// Terminal is the raw-mode capable device behind the editor.
type Terminal interface {
	// MakeRaw puts the terminal into raw mode and returns a function that
	// restores the previous state.
	MakeRaw() (restore func() error, err error)
	// Width is the number of columns, or 0 if unknown.
	Width() int
}

type ttyTerminal struct {
	fd int
}

func (t ttyTerminal) MakeRaw() (func() error, error) {
	state, err := term.MakeRaw(t.fd)
	if err != nil {
		return nil, err
	}
	return func() error { return term.Restore(t.fd, state) }, nil
}

func (t ttyTerminal) Width() int {
	w, _, err := term.GetSize(t.fd)
	if err != nil {
		return 0
	}
	return w
}

// Editor reads lines from a terminal, or plain lines from anything else.
type Editor struct {
	History   History
	Completer Completer

	in   *bufio.Reader
	out  io.Writer
	term Terminal
}

// New creates an editor. Editing is enabled only when in is a terminal.
func New(in io.Reader, out io.Writer) *Editor {
	var t Terminal
	if f, ok := in.(*os.File); ok && term.IsTerminal(int(f.Fd())) {
		t = ttyTerminal{fd: int(f.Fd())}
	}
	return NewWithTerminal(in, out, t)
}

// NewWithTerminal creates an editor on an explicit terminal, nil disables
// editing.
func NewWithTerminal(in io.Reader, out io.Writer, t Terminal) *Editor {
	return &Editor{
		in:   bufio.NewReader(in),
		out:  out,
		term: t,
	}
}

// IsTerminal reports whether the editor is interactive.
func (e *Editor) IsTerminal() bool {
	return e.term != nil
}

func (e *Editor) width() int {
	if e.term == nil {
		return defaultWidth
	}
	if w := e.term.Width(); w > 0 {
		return w
	}
	return defaultWidth
}

// ReadLine shows prompt and returns the next line without its newline. It
// returns io.EOF at the end of input or on Ctrl-D with an empty line, and
// ErrInterrupt on Ctrl-C.
func (e *Editor) ReadLine(prompt string) (line string, err error) {
	if e.term == nil {
		return e.readPlain()
	}

	restore, err := e.term.MakeRaw()
	if err != nil {
		return "", err
	}
	defer func() {
		if rerr := restore(); rerr != nil && err == nil {
			err = rerr
		}
	}()

	fmt.Fprint(e.out, prompt)

	st := newLineState(e.historyLen())
	var dec keyDecoder
	for {
		b, rerr := e.in.ReadByte()
		if rerr != nil {
			fmt.Fprint(e.out, "\r\n")
			if len(st.buf) > 0 {
				return st.String(), nil
			}
			return "", io.EOF
		}

		key, ok := dec.Feed(b)
		if !ok {
			continue
		}

		switch key.Code {
		case KeyEnter:
			fmt.Fprint(e.out, "\r\n")
			return st.String(), nil
		case KeyInterrupt:
			fmt.Fprint(e.out, "^C\r\n")
			return "", ErrInterrupt
		case KeyEOF:
			if len(st.buf) == 0 {
				fmt.Fprint(e.out, "\r\n")
				return "", io.EOF
			}
			st.deleteForward()
		case KeyRune:
			st.insert(key.Rune)
		case KeyBackspace:
			st.backspace()
		case KeyDelete:
			st.deleteForward()
		case KeyDeleteWord:
			st.deleteWord()
		case KeyKillLine:
			st.killLine()
		case KeyHome:
			st.home()
		case KeyEnd:
			st.end()
		case KeyLeft:
			st.left()
		case KeyRight:
			st.right()
		case KeyUp:
			st.historyPrev(e.History)
		case KeyDown:
			st.historyNext(e.History)
		case KeyClear:
			fmt.Fprint(e.out, "\x1b[H\x1b[2J")
		case KeyTab:
			e.complete(st)
		}
		e.refresh(prompt, st)
	}
}

func (e *Editor) historyLen() int {
	if e.History == nil {
		return 0
	}
	return e.History.Len()
}

// refresh redraws the prompt and buffer and places the cursor.
func (e *Editor) refresh(prompt string, st *lineState) {
	var sb strings.Builder
	sb.WriteString("\r\x1b[K")
	sb.WriteString(prompt)
	sb.WriteString(string(st.buf))
	if back := len(st.buf) - st.cursor; back > 0 {
		fmt.Fprintf(&sb, "\x1b[%dD", back)
	}
	io.WriteString(e.out, sb.String())
}

func (e *Editor) readPlain() (string, error) {
	line, err := e.in.ReadString('\n')
	switch {
	case err == nil:
	case errors.Is(err, io.EOF) && line != "":
	default:
		return "", err
	}
	return strings.TrimRight(line, "\r\n"), nil
}
