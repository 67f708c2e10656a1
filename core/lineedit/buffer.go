package lineedit

// lineState is the line being edited. cursor is always within [0, len(buf)]
// and histIdx equals the history length when not browsing.
type lineState struct {
	buf     []rune
	cursor  int
	histIdx int
	draft   []rune
}

func newLineState(historyLen int) *lineState {
	return &lineState{histIdx: historyLen}
}

func (s *lineState) String() string {
	return string(s.buf)
}

func (s *lineState) insert(rs ...rune) {
	tail := append([]rune(nil), s.buf[s.cursor:]...)
	s.buf = append(append(s.buf[:s.cursor], rs...), tail...)
	s.cursor += len(rs)
}

// replace swaps buf[start:cursor] for rs and leaves the cursor after it.
func (s *lineState) replace(start int, rs []rune) {
	tail := append([]rune(nil), s.buf[s.cursor:]...)
	s.buf = append(append(s.buf[:start], rs...), tail...)
	s.cursor = start + len(rs)
}

func (s *lineState) backspace() {
	if s.cursor == 0 {
		return
	}
	s.buf = append(s.buf[:s.cursor-1], s.buf[s.cursor:]...)
	s.cursor--
}

func (s *lineState) deleteForward() {
	if s.cursor >= len(s.buf) {
		return
	}
	s.buf = append(s.buf[:s.cursor], s.buf[s.cursor+1:]...)
}

// deleteWord removes the blanks before the cursor, then the word before them.
func (s *lineState) deleteWord() {
	start := s.cursor
	for start > 0 && isSpace(s.buf[start-1]) {
		start--
	}
	for start > 0 && !isSpace(s.buf[start-1]) {
		start--
	}
	s.buf = append(s.buf[:start], s.buf[s.cursor:]...)
	s.cursor = start
}

func (s *lineState) killLine() {
	s.buf = s.buf[:0]
	s.cursor = 0
}

func (s *lineState) home() { s.cursor = 0 }
func (s *lineState) end() { s.cursor = len(s.buf) }

func (s *lineState) left() {
	if s.cursor > 0 {
		s.cursor--
	}
}

func (s *lineState) right() {
	if s.cursor < len(s.buf) {
		s.cursor++
	}
}

func (s *lineState) set(line []rune) {
	s.buf = append(s.buf[:0], line...)
	s.cursor = len(s.buf)
}

// historyPrev moves to the previous history entry, saving the draft the
// first time browsing starts.
func (s *lineState) historyPrev(h History) {
	if h == nil || s.histIdx <= 0 {
		return
	}
	if s.histIdx >= h.Len() {
		s.histIdx = h.Len()
		s.draft = append([]rune(nil), s.buf...)
	}
	s.histIdx--
	s.set([]rune(h.At(s.histIdx)))
}

// historyNext moves to the next history entry, restoring the draft after
// the newest one.
func (s *lineState) historyNext(h History) {
	if h == nil || s.histIdx >= h.Len() {
		return
	}
	s.histIdx++
	if s.histIdx == h.Len() {
		s.set(s.draft)
		return
	}
	s.set([]rune(h.At(s.histIdx)))
}

func isSpace(r rune) bool {
	return r == ' ' || r == '\t'
}
