package lineedit

import (
	"io"
	"strings"
	"unicode/utf8"

	"github.com/fatih/color"
)

var directoryColor = color.New(color.FgCyan, color.Bold)

// complete acts on the word before the cursor: a single candidate is
// spliced in, several candidates are extended to their common prefix or
// listed when there is nothing to extend.
func (e *Editor) complete(st *lineState) {
	if e.Completer == nil {
		return
	}

	start := st.cursor
	for start > 0 && !isSpace(st.buf[start-1]) {
		start--
	}
	word := string(st.buf[start:st.cursor])
	leading := strings.TrimSpace(string(st.buf[:start]))
	command := leading == "" &&
		!strings.ContainsRune(word, '/') &&
		!strings.HasPrefix(word, ".") &&
		!strings.HasPrefix(word, "~")

	candidates := e.Completer.Complete(word, command)
	switch len(candidates) {
	case 0:
		return
	case 1:
		completion := candidates[0]
		if !strings.HasSuffix(completion, "/") {
			completion += " "
		}
		st.replace(start, []rune(completion))
		return
	}

	if prefix := commonPrefix(candidates); utf8.RuneCountInString(prefix) > utf8.RuneCountInString(word) {
		st.replace(start, []rune(prefix))
		return
	}
	listColumns(e.out, candidates, e.width())
}

// listColumns prints names in as many columns as fit in width.
func listColumns(w io.Writer, names []string, width int) {
	longest := 0
	for _, n := range names {
		if l := utf8.RuneCountInString(n); l > longest {
			longest = l
		}
	}
	colWidth := longest + 2
	cols := width / colWidth
	if cols < 1 {
		cols = 1
	}

	var sb strings.Builder
	sb.WriteString("\r\n")
	for i, n := range names {
		if strings.HasSuffix(n, "/") {
			sb.WriteString(directoryColor.Sprint(n))
		} else {
			sb.WriteString(n)
		}

		if (i+1)%cols == 0 || i == len(names)-1 {
			sb.WriteString("\r\n")
			continue
		}
		sb.WriteString(strings.Repeat(" ", colWidth-utf8.RuneCountInString(n)))
	}
	io.WriteString(w, sb.String())
}

func commonPrefix(words []string) string {
	if len(words) == 0 {
		return ""
	}
	prefix := []rune(words[0])
	for _, w := range words[1:] {
		rs := []rune(w)
		n := 0
		for n < len(prefix) && n < len(rs) && prefix[n] == rs[n] {
			n++
		}
		prefix = prefix[:n]
	}
	return string(prefix)
}
