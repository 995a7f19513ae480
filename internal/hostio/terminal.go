package hostio

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"golang.org/x/term"
)

// ANSI escape sequences, the same constants the teacher's ansi.go
// names, reused here behind the DisplaySink interface instead of
// scattered through the editor package.
const (
	ansiClearScreen = "\x1b[2J"
	ansiClearLine   = "\x1b[K"
	ansiCursorHome  = "\x1b[H"
	ansiCursorHide  = "\x1b[?25l"
	ansiCursorShow  = "\x1b[?25h"
	ansiColorReset  = "\x1b[m"
)

// Terminal is the raw-mode stdin/stdout pair: an InputSource and a
// DisplaySink both backed by the host's controlling TTY.
type Terminal struct {
	in            *os.File
	out           *os.File
	originalState *term.State

	buf strings.Builder
}

// NewTerminal returns a Terminal over os.Stdin/os.Stdout.
func NewTerminal() *Terminal {
	return &Terminal{in: os.Stdin, out: os.Stdout}
}

// EnableRawMode puts the terminal into raw mode, disabling echo and
// line buffering so ReadKey sees every byte as it arrives.
func (t *Terminal) EnableRawMode() error {
	if !term.IsTerminal(int(t.in.Fd())) {
		return errors.New("hostio: not running in a terminal")
	}
	state, err := term.MakeRaw(int(t.in.Fd()))
	if err != nil {
		return fmt.Errorf("hostio: enabling raw mode: %w", err)
	}
	t.originalState = state
	return nil
}

// RestoreTerminal undoes EnableRawMode; safe to call more than once.
func (t *Terminal) RestoreTerminal() {
	if t.originalState != nil {
		term.Restore(int(t.in.Fd()), t.originalState)
		t.originalState = nil
	}
}

// Size implements DisplaySink.
func (t *Terminal) Size() (cols, rows int, err error) {
	return term.GetSize(int(t.out.Fd()))
}

// Paint queues cells for the next Flush. cmd/kigo hands it one cell per
// byte with its own color; Paint emits a color escape only where a
// cell's foreground differs from the previous cell's.
func (t *Terminal) Paint(x, y int, cells []Cell) {
	fmt.Fprintf(&t.buf, "\x1b[%d;%dH", y+1, x+1)
	currentColor := -1
	for _, c := range cells {
		fg := c.Color.FG
		if fg != currentColor {
			if fg == 0 {
				t.buf.WriteString(ansiColorReset)
			} else {
				fmt.Fprintf(&t.buf, "\x1b[%dm", fg)
			}
			currentColor = fg
		}
		t.buf.WriteRune(c.Rune)
	}
	t.buf.WriteString(ansiColorReset)
	t.buf.WriteString(ansiClearLine)
}

// MoveCursor queues a cursor repositioning for the next Flush.
func (t *Terminal) MoveCursor(x, y int) {
	fmt.Fprintf(&t.buf, "\x1b[%d;%dH", y+1, x+1)
}

// Flush writes the queued escape sequences and cell runs in one write,
// hiding the cursor during the write the way RefreshScreen does.
func (t *Terminal) Flush() error {
	pending := ansiCursorHide + t.buf.String() + ansiCursorShow
	t.buf.Reset()
	_, err := t.out.WriteString(pending)
	return err
}

// ReadKey blocks for the next key, decoding arrow/home/end/page/delete
// escape sequences the way editor.go's readKey does.
func (t *Terminal) ReadKey() (Key, error) {
	var b [1]byte
	for {
		n, err := t.in.Read(b[:])
		if n == 1 {
			break
		}
		if err != nil {
			return Key{}, fmt.Errorf("hostio: reading keyboard input: %w", err)
		}
	}

	c := b[0]
	if c != '\x1b' {
		return decodeByte(c), nil
	}

	var seq [2]byte
	if n, err := t.in.Read(seq[0:1]); n != 1 || err != nil {
		return Key{Kind: KeySpecial, Special: KeyEscape}, nil
	}
	if n, err := t.in.Read(seq[1:2]); n != 1 || err != nil {
		return Key{Kind: KeySpecial, Special: KeyEscape}, nil
	}

	switch seq[0] {
	case '[':
		if seq[1] >= '0' && seq[1] <= '9' {
			var tilde [1]byte
			if n, err := t.in.Read(tilde[:]); n != 1 || err != nil || tilde[0] != '~' {
				return Key{Kind: KeySpecial, Special: KeyEscape}, nil
			}
			switch seq[1] {
			case '1', '7':
				return Key{Kind: KeySpecial, Special: KeyHome}, nil
			case '3':
				return Key{Kind: KeySpecial, Special: KeyDelete}, nil
			case '4', '8':
				return Key{Kind: KeySpecial, Special: KeyEnd}, nil
			case '5':
				return Key{Kind: KeySpecial, Special: KeyPageUp}, nil
			case '6':
				return Key{Kind: KeySpecial, Special: KeyPageDown}, nil
			}
		} else {
			switch seq[1] {
			case 'A':
				return Key{Kind: KeySpecial, Special: KeyArrowUp}, nil
			case 'B':
				return Key{Kind: KeySpecial, Special: KeyArrowDown}, nil
			case 'C':
				return Key{Kind: KeySpecial, Special: KeyArrowRight}, nil
			case 'D':
				return Key{Kind: KeySpecial, Special: KeyArrowLeft}, nil
			case 'H':
				return Key{Kind: KeySpecial, Special: KeyHome}, nil
			case 'F':
				return Key{Kind: KeySpecial, Special: KeyEnd}, nil
			}
		}
	case 'O':
		switch seq[1] {
		case 'H':
			return Key{Kind: KeySpecial, Special: KeyHome}, nil
		case 'F':
			return Key{Kind: KeySpecial, Special: KeyEnd}, nil
		}
	}
	return Key{Kind: KeySpecial, Special: KeyEscape}, nil
}

func decodeByte(c byte) Key {
	switch c {
	case '\r':
		return Key{Kind: KeySpecial, Special: KeyEnter}
	case '\t':
		return Key{Kind: KeySpecial, Special: KeyTab}
	case 127, 8:
		return Key{Kind: KeySpecial, Special: KeyBackspace}
	default:
		return Key{Kind: KeyRune, Rune: rune(c)}
	}
}
