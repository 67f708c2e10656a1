package lineedit

import "unicode/utf8"

// KeyCode identifies an editing key.
type KeyCode int

const (
	KeyRune KeyCode = iota
	KeyEnter
	KeyInterrupt
	KeyEOF
	KeyBackspace
	KeyDelete
	KeyDeleteWord
	KeyKillLine
	KeyHome
	KeyEnd
	KeyLeft
	KeyRight
	KeyUp
	KeyDown
	KeyClear
	KeyTab
)

// Key is a decoded key press. Rune is set for KeyRune.
type Key struct {
	Code KeyCode
	Rune rune
}

type decoderState int

const (
	stateNormal decoderState = iota
	stateEscape
	stateCSI
	stateCSIParam
	stateUTF8
)

// keyDecoder turns raw terminal bytes into keys one byte at a time.
type keyDecoder struct {
	state decoderState
	param []byte
	utf8  []byte
}

// Feed consumes b and returns a key once a complete one has been read.
// Unknown sequences are dropped.
func (d *keyDecoder) Feed(b byte) (Key, bool) {
	switch d.state {
	case stateEscape:
		if b == '[' || b == 'O' {
			d.state = stateCSI
			return Key{}, false
		}
		d.reset()
		return Key{}, false

	case stateCSI:
		if b >= '0' && b <= '9' {
			d.param = append(d.param[:0], b)
			d.state = stateCSIParam
			return Key{}, false
		}
		d.reset()
		switch b {
		case 'A':
			return Key{Code: KeyUp}, true
		case 'B':
			return Key{Code: KeyDown}, true
		case 'C':
			return Key{Code: KeyRight}, true
		case 'D':
			return Key{Code: KeyLeft}, true
		case 'H':
			return Key{Code: KeyHome}, true
		case 'F':
			return Key{Code: KeyEnd}, true
		}
		return Key{}, false

	case stateCSIParam:
		switch {
		case b >= '0' && b <= '9' || b == ';':
			d.param = append(d.param, b)
			return Key{}, false
		case b == '~':
			param := string(d.param)
			d.reset()
			switch param {
			case "1", "7":
				return Key{Code: KeyHome}, true
			case "4", "8":
				return Key{Code: KeyEnd}, true
			case "3":
				return Key{Code: KeyDelete}, true
			}
			return Key{}, false
		}
		d.reset()
		return Key{}, false

	case stateUTF8:
		d.utf8 = append(d.utf8, b)
		if !utf8.FullRune(d.utf8) {
			return Key{}, false
		}
		r, _ := utf8.DecodeRune(d.utf8)
		d.reset()
		if r == utf8.RuneError {
			return Key{}, false
		}
		return Key{Code: KeyRune, Rune: r}, true
	}

	switch b {
	case '\r', '\n':
		return Key{Code: KeyEnter}, true
	case 1:
		return Key{Code: KeyHome}, true
	case 3:
		return Key{Code: KeyInterrupt}, true
	case 4:
		return Key{Code: KeyEOF}, true
	case 5:
		return Key{Code: KeyEnd}, true
	case 8, 127:
		return Key{Code: KeyBackspace}, true
	case '\t':
		return Key{Code: KeyTab}, true
	case 12:
		return Key{Code: KeyClear}, true
	case 21:
		return Key{Code: KeyKillLine}, true
	case 23:
		return Key{Code: KeyDeleteWord}, true
	case 27:
		d.state = stateEscape
		return Key{}, false
	}

	switch {
	case b >= utf8.RuneSelf:
		d.utf8 = append(d.utf8[:0], b)
		d.state = stateUTF8
		return Key{}, false
	case b >= ' ':
		return Key{Code: KeyRune, Rune: rune(b)}, true
	}
	return Key{}, false
}

func (d *keyDecoder) reset() {
	d.state = stateNormal
	d.param = d.param[:0]
	d.utf8 = d.utf8[:0]
}
