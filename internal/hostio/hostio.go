// Package hostio defines the embedding contract between the core and
// its host: reading keys, painting the screen, and touching the
// filesystem. internal/buffer, internal/syntax and internal/view never
// import os or os/exec directly; cmd/kigo wires a concrete
// implementation of these interfaces into the command layer instead.
package hostio

import (
	"context"
	"io"
	"os"
)

// KeyKind tags which field of a Key is meaningful.
type KeyKind int

const (
	KeyRune KeyKind = iota
	KeySpecial
	KeyPaste
)

// SpecialKey enumerates the non-rune keys the terminal driver decodes
// from an escape sequence, grounded on editor.go's readKey switch.
type SpecialKey int

const (
	KeyNone SpecialKey = iota
	KeyArrowUp
	KeyArrowDown
	KeyArrowLeft
	KeyArrowRight
	KeyHome
	KeyEnd
	KeyPageUp
	KeyPageDown
	KeyDelete
	KeyBackspace
	KeyEnter
	KeyEscape
	KeyTab
)

// Key is one input event: a decoded rune, a special key, or a bracketed
// paste's raw bytes.
type Key struct {
	Kind    KeyKind
	Rune    rune
	Special SpecialKey
	Paste   []byte
}

// Attrs are the text attributes a Color may carry alongside its fg/bg.
type Attrs struct {
	Bold      bool
	Italic    bool
	Underline bool
	Reverse   bool
}

// Color is a terminal color triple the display sink understands.
type Color struct {
	FG, BG int
	Attrs  Attrs
}

// Cell is one screen position's content: the rune to draw and the
// color to draw it in.
type Cell struct {
	Rune  rune
	Color Color
}

// DisplaySink is the host's screen: painting is always a full row of
// cells at a time, matching the teacher's DrawRows building one escape
// sequence per line rather than per cell.
type DisplaySink interface {
	// Size reports the sink's current dimensions in character cells.
	Size() (cols, rows int, err error)
	// Paint draws cells starting at (x, y), left to right.
	Paint(x, y int, cells []Cell)
	// MoveCursor positions the hardware cursor for the next Flush.
	MoveCursor(x, y int)
	// Flush commits pending Paint/MoveCursor calls to the terminal.
	Flush() error
}

// InputSource is the host's keyboard.
type InputSource interface {
	ReadKey() (Key, error)
}

// File is the minimal handle Filesystem hands back: read, write, close.
type File interface {
	io.Reader
	io.Writer
	io.Closer
}

// Filesystem is the host's disk and process table: opening buffers,
// stat'ing them for external-change detection, taking an advisory lock
// while a buffer is open, and running a filter command through a
// buffer's selection.
type Filesystem interface {
	Open(name string) (File, error)
	Create(name string) (File, error)
	Stat(name string) (os.FileInfo, error)

	// Lock takes an advisory lock on name for as long as a buffer has
	// it open, returning a function that releases it.
	Lock(name string) (unlock func() error, err error)

	// Spawn runs argv with stdin piped from the reader (typically the
	// current selection) and returns its captured stdout, the filter-
	// process contract of original_source/spawn.c and fork.c.
	Spawn(ctx context.Context, argv []string, stdin io.Reader) ([]byte, error)
}
