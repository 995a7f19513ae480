// Command kigo is the terminal entrypoint: raw mode, the read-render
// loop, and the thin glue between internal/buffer, internal/view,
// internal/syntax and internal/hostio. Of the internal/* packages only
// internal/hostio imports os, os/exec or golang.org/x/term; this file
// drives the terminal and disk through hostio's Terminal and
// OSFilesystem, mirroring how github.com/hnnsb/kigo's root main.go
// drove its editor package.
package main

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/kigo-editor/kigo/internal/buffer"
	"github.com/kigo-editor/kigo/internal/errbuf"
	"github.com/kigo-editor/kigo/internal/hostio"
	"github.com/kigo-editor/kigo/internal/iter"
	"github.com/kigo-editor/kigo/internal/syntax"
	"github.com/kigo-editor/kigo/internal/view"
)

const quitTimes = 3

func main() {
	syntaxPath := flag.String("syntax", "", "path to a syntax description file")
	flag.Parse()

	term := hostio.NewTerminal()
	if err := term.EnableRawMode(); err != nil {
		fmt.Fprintln(os.Stderr, "kigo:", err)
		os.Exit(1)
	}
	defer term.RestoreTerminal()

	fs := hostio.OSFilesystem{}
	ed := newEditor(term, fs)

	if *syntaxPath != "" {
		if err := ed.loadSyntax(*syntaxPath); err != nil {
			ed.setError("%v", err)
		}
	}
	if filename := flag.Arg(0); filename != "" {
		ed.open(filename)
	}

	ed.setInfo("HELP: Ctrl-S = save | Ctrl-Q = quit")
	ed.run()
}

// editor wires one buffer, one view, and an optional highlighter to a
// host terminal for the duration of one process.
type editor struct {
	term *hostio.Terminal
	fs   hostio.Filesystem

	buf  *buffer.Buffer
	view *buffer.View
	lines *bufferLines

	hl      *syntax.Highlighter
	palette *syntax.Palette

	filename string
	history  hostio.History

	status       errbuf.Buffer
	statusSetAt  time.Time
	quitTimes    int
}

func (ed *editor) setError(format string, args ...any) {
	ed.status.SetError(format, args...)
	ed.statusSetAt = time.Now()
}

func (ed *editor) setInfo(format string, args ...any) {
	ed.status.SetInfo(format, args...)
	ed.statusSetAt = time.Now()
}

func newEditor(term *hostio.Terminal, fs hostio.Filesystem) *editor {
	buf := buffer.New()
	ed := &editor{
		term:      term,
		fs:        fs,
		buf:       buf,
		view:      buffer.NewView(buf),
		lines:     newBufferLines(buf),
		palette:   syntax.NewPalette(),
		quitTimes: quitTimes,
	}
	return ed
}

func (ed *editor) loadSyntax(path string) error {
	f, err := ed.fs.Open(path)
	if err != nil {
		return errbuf.New(errbuf.IoError, "opening syntax file %s: %v", path, err)
	}
	defer f.Close()

	def, err := syntax.LoadDefinition(namedFile{f, path})
	if err != nil {
		return errbuf.New(errbuf.InvalidInput, "%v", err)
	}
	ed.hl = syntax.NewHighlighter(def, ed.lines)
	return nil
}

type namedFile struct {
	hostio.File
	name string
}

func (n namedFile) Name() string { return n.name }

func (ed *editor) open(filename string) {
	ed.filename = filename
	f, err := ed.fs.Open(filename)
	if err != nil {
		ed.setError("can't open %s: %v", filename, err)
		return
	}
	defer f.Close()

	data, err := readAll(f)
	if err != nil {
		ed.setError("reading %s: %v", filename, err)
		return
	}

	cur := iter.New(ed.buf.Store.First(), 0)
	ed.buf.InsertBytes(&cur, data)
	ed.buf.Changes.MarkSaved()
	ed.lines.invalidate()
	view.MoveBof(ed.view)

	if hist, err := loadHistory(ed.fs); err == nil {
		ed.history = hist
		if row, col, ok := ed.history.Lookup(filename); ok && row > 0 {
			view.MoveDown(ed.view, row-1)
			view.MoveToColumn(ed.view, col-1)
		}
	}
}

func readAll(r hostio.File) ([]byte, error) {
	var out []byte
	buf := make([]byte, 64*1024)
	for {
		n, err := r.Read(buf)
		if n > 0 {
			out = append(out, buf[:n]...)
		}
		if err != nil {
			if errors.Is(err, io.EOF) {
				return out, nil
			}
			return out, err
		}
		if n == 0 {
			return out, nil
		}
	}
}

const historyFileName = ".kigo_history"

func historyPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return historyFileName
	}
	return filepath.Join(home, historyFileName)
}

func loadHistory(fs hostio.Filesystem) (hostio.History, error) {
	var h hostio.History
	f, err := fs.Open(historyPath())
	if err != nil {
		return h, err
	}
	defer f.Close()
	err = h.Load(f)
	return h, err
}

func saveHistory(fs hostio.Filesystem, h *hostio.History) {
	f, err := fs.Create(historyPath())
	if err != nil {
		return
	}
	defer f.Close()
	h.Save(f)
}

func (ed *editor) save() {
	if ed.filename == "" {
		ed.setError("no filename to save to")
		return
	}
	f, err := ed.fs.Create(ed.filename)
	if err != nil {
		ed.setError("can't save! I/O error: %v", err)
		return
	}
	defer f.Close()

	data := ed.lines.fullText()
	n, err := f.Write(data)
	if err != nil {
		ed.setError("can't save! I/O error: %v", err)
		return
	}
	ed.buf.Changes.MarkSaved()
	ed.setInfo("%d bytes written to disk", n)
}

func (ed *editor) run() {
	for {
		ed.refreshScreen()
		if !ed.processKeypress() {
			ed.quit()
			return
		}
	}
}

func (ed *editor) quit() {
	if ed.filename != "" {
		ed.history.Remember(ed.view.CY+1, ed.view.CXDisplay+1, ed.filename)
		saveHistory(ed.fs, &ed.history)
	}
	ed.term.RestoreTerminal()
}

// processKeypress reads and dispatches one key; it returns false when
// the user has asked to quit.
func (ed *editor) processKeypress() (keepGoing bool) {
	keepGoing = true
	defer errbuf.Recover(&ed.status)

	key, err := ed.term.ReadKey()
	if err != nil {
		ed.setError("reading key: %v", err)
		return true
	}

	isQuit := key.Kind == hostio.KeyRune && key.Rune == ctrlKey('q')
	if isQuit {
		if ed.buf.Dirty() && ed.quitTimes > 0 {
			ed.setError("WARNING: File has unsaved changes. Press Ctrl-Q %d more times to quit.", ed.quitTimes)
			ed.quitTimes--
			return true
		}
		return false
	}
	ed.quitTimes = quitTimes

	switch {
	case key.Kind == hostio.KeyRune && key.Rune == ctrlKey('s'):
		ed.save()
	case key.Kind == hostio.KeySpecial && key.Special == hostio.KeyEnter:
		ed.insertNewline()
	case key.Kind == hostio.KeySpecial && (key.Special == hostio.KeyBackspace || key.Special == hostio.KeyDelete):
		ed.deleteChar(key.Special == hostio.KeyDelete)
	case key.Kind == hostio.KeySpecial && key.Special == hostio.KeyArrowLeft:
		view.MoveLeft(ed.view, 1)
	case key.Kind == hostio.KeySpecial && key.Special == hostio.KeyArrowRight:
		view.MoveRight(ed.view, 1)
	case key.Kind == hostio.KeySpecial && key.Special == hostio.KeyArrowUp:
		view.MoveUp(ed.view, 1)
	case key.Kind == hostio.KeySpecial && key.Special == hostio.KeyArrowDown:
		view.MoveDown(ed.view, 1)
	case key.Kind == hostio.KeySpecial && key.Special == hostio.KeyHome:
		view.MoveBol(ed.view)
	case key.Kind == hostio.KeySpecial && key.Special == hostio.KeyEnd:
		view.MoveEol(ed.view)
	case key.Kind == hostio.KeySpecial && key.Special == hostio.KeyPageUp:
		_, rows, _ := ed.term.Size()
		view.MoveUp(ed.view, rows)
	case key.Kind == hostio.KeySpecial && key.Special == hostio.KeyPageDown:
		_, rows, _ := ed.term.Size()
		view.MoveDown(ed.view, rows)
	case key.Kind == hostio.KeySpecial && key.Special == hostio.KeyTab:
		ed.insertBytes([]byte("\t"))
	case key.Kind == hostio.KeyRune && key.Rune == ctrlKey('z'):
		ed.undo()
	case key.Kind == hostio.KeyRune && key.Rune == ctrlKey('y'):
		ed.redo()
	case key.Kind == hostio.KeyRune:
		ed.insertBytes([]byte(string(key.Rune)))
	}

	return true
}

func ctrlKey(r rune) rune { return r & 0x1f }

func (ed *editor) insertBytes(b []byte) {
	from := ed.view.CY
	nl := ed.buf.InsertBytes(&ed.view.Cursor, b)
	ed.lines.invalidate()
	view.AfterInsert(ed.view, nl)
	if ed.hl != nil {
		ed.hl.OnInsertLines(from, nl)
	}
	view.RecomputeColumn(ed.view)
	ed.view.PreferredX = -1
}

func (ed *editor) insertNewline() {
	ed.insertBytes([]byte("\n"))
}

func (ed *editor) deleteChar(forward bool) {
	if !forward {
		if ed.view.Cursor.GetOffset() == 0 {
			return
		}
		_, n := ed.view.Cursor.PrevChar()
		if n == 0 {
			return
		}
		from := ed.view.CY
		_, nl := ed.buf.DeleteBytes(&ed.view.Cursor, n, true)
		ed.lines.invalidate()
		view.AfterDelete(ed.view, nl, true)
		if ed.hl != nil {
			ed.hl.OnDeleteLines(from-nl, nl)
		}
	} else {
		save := ed.view.Cursor
		_, n := save.NextChar()
		if n == 0 {
			return
		}
		from := ed.view.CY
		_, nl := ed.buf.DeleteBytes(&ed.view.Cursor, n, false)
		ed.lines.invalidate()
		view.AfterDelete(ed.view, nl, false)
		if ed.hl != nil {
			ed.hl.OnDeleteLines(from, nl)
		}
	}
	view.RecomputeColumn(ed.view)
	ed.view.PreferredX = -1
}

// undo and redo can reverse a change far from the cursor's current
// line (or a whole chain of them), so unlike insertBytes/deleteChar
// they can't hand the highlighter a precise line range -- they force a
// full rehighlight instead.
func (ed *editor) undo() {
	n, ok := view.Undo(ed.view)
	if !ok {
		ed.setInfo("Nothing to undo")
		return
	}
	ed.lines.invalidate()
	if ed.hl != nil {
		ed.hl.InvalidateAll()
	}
	ed.setInfo("Undid %d change(s)", n)
}

func (ed *editor) redo() {
	n, ok := view.Redo(ed.view, 0)
	if !ok {
		ed.setInfo("Nothing to redo")
		return
	}
	ed.lines.invalidate()
	if ed.hl != nil {
		ed.hl.InvalidateAll()
	}
	ed.setInfo("Redid %d change(s)", n)
}

func (ed *editor) refreshScreen() {
	cols, rows := 0, 0
	if c, r, err := ed.term.Size(); err == nil {
		cols, rows = c, r
	}
	textRows := rows - 2
	if textRows < 1 {
		textRows = 1
	}

	view.Scroll(ed.view, cols, textRows)

	for y := 0; y < textRows; y++ {
		lineIdx := ed.view.VY + y
		ed.term.Paint(0, y, ed.renderLine(lineIdx, cols))
	}

	ed.term.Paint(0, textRows, statusLine(ed, cols))
	ed.term.Paint(0, textRows+1, messageLine(ed, cols))

	ed.term.MoveCursor(ed.view.CXDisplay-ed.view.VX, ed.view.CY-ed.view.VY)
	ed.term.Flush()
}

func (ed *editor) renderLine(lineIdx, cols int) []hostio.Cell {
	if lineIdx >= ed.lines.LineCount() {
		return []hostio.Cell{{Rune: '~'}}
	}

	raw := ed.lines.Line(lineIdx)
	text := trimTrailingNewline(raw)

	var colorNames []string
	if ed.hl != nil {
		colorNames = ed.hl.PaintLine(lineIdx)
	}

	cells := make([]hostio.Cell, 0, len(text))
	col := 0
	for i, b := range text {
		var c hostio.Color
		if i < len(colorNames) && colorNames[i] != "" {
			if sc, ok := ed.palette.Resolve(ed.hl.Def, colorNames[i]); ok {
				c = toHostColor(sc)
			}
		}
		if b == '\t' {
			width := view.TabStop - col%view.TabStop
			for k := 0; k < width; k++ {
				cells = append(cells, hostio.Cell{Rune: ' ', Color: c})
			}
			col += width
			continue
		}
		cells = append(cells, hostio.Cell{Rune: rune(b), Color: c})
		col++
		if col >= cols {
			break
		}
	}
	return cells
}

func trimTrailingNewline(b []byte) []byte {
	if len(b) > 0 && b[len(b)-1] == '\n' {
		return b[:len(b)-1]
	}
	return b
}

func toHostColor(c syntax.Color) hostio.Color {
	return hostio.Color{
		FG: c.FG,
		BG: c.BG,
		Attrs: hostio.Attrs{
			Bold:      c.Bold,
			Italic:    c.Italic,
			Underline: c.Under,
		},
	}
}

func statusLine(ed *editor, cols int) []hostio.Cell {
	name := ed.filename
	if name == "" {
		name = "[No Name]"
	}
	dirty := ""
	if ed.buf.Dirty() {
		dirty = "(modified)"
	}
	left := fmt.Sprintf("%.20s - %d lines %s", name, ed.lines.LineCount(), dirty)
	right := fmt.Sprintf("%d/%d", ed.view.CY+1, ed.lines.LineCount())
	return textCells(padStatus(left, right, cols), cols, hostio.Color{Attrs: hostio.Attrs{Reverse: true}})
}

func padStatus(left, right string, cols int) string {
	if len(left) > cols {
		left = left[:cols]
	}
	for len(left)+len(right) < cols {
		left += " "
	}
	if len(left)+len(right) > cols {
		return left
	}
	return left + right
}

func messageLine(ed *editor, cols int) []hostio.Cell {
	msg := ed.status.String()
	if ed.lastStatusAge() > 5*time.Second {
		msg = ""
	}
	return textCells(msg, cols, hostio.Color{})
}

func (ed *editor) lastStatusAge() time.Duration { return time.Since(ed.statusSetAt) }

func textCells(s string, cols int, c hostio.Color) []hostio.Cell {
	if len(s) > cols {
		s = s[:cols]
	}
	cells := make([]hostio.Cell, len(s))
	for i, r := range []byte(s) {
		cells[i] = hostio.Cell{Rune: rune(r), Color: c}
	}
	return cells
}

// bufferLines adapts a buffer.Buffer to syntax.LineSource. Rebuilding
// from scratch on every edit is the "thin cmd/kigo glue" trade the
// SPEC_FULL ambient stack calls for rather than a cached, incrementally
// maintained line index inside the core packages.
type bufferLines struct {
	buf   *buffer.Buffer
	lines [][]byte
	valid bool
}

func newBufferLines(buf *buffer.Buffer) *bufferLines {
	return &bufferLines{buf: buf}
}

func (l *bufferLines) invalidate() { l.valid = false }

func (l *bufferLines) ensure() {
	if l.valid {
		return
	}
	text := l.fullText()
	l.lines = splitLines(text)
	l.valid = true
}

func (l *bufferLines) fullText() []byte {
	var out []byte
	for b := l.buf.Store.First(); b != nil; b = b.Next() {
		out = append(out, b.Data()...)
	}
	return out
}

func splitLines(text []byte) [][]byte {
	var lines [][]byte
	start := 0
	for i, b := range text {
		if b == '\n' {
			lines = append(lines, text[start:i+1])
			start = i + 1
		}
	}
	if start < len(text) {
		lines = append(lines, text[start:])
	}
	if len(lines) == 0 {
		lines = append(lines, nil)
	}
	return lines
}

func (l *bufferLines) Line(i int) []byte {
	l.ensure()
	if i < 0 || i >= len(l.lines) {
		return nil
	}
	return l.lines[i]
}

func (l *bufferLines) LineCount() int {
	l.ensure()
	return len(l.lines)
}
