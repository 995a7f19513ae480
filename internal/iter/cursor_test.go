package iter

import (
	"testing"

	"github.com/kigo-editor/kigo/internal/block"
)

func newCursor(t *testing.T, text string) (*block.Store, Cursor) {
	t.Helper()
	s := block.NewStore()
	s.InsertBytes(s.First(), 0, []byte(text))
	return s, New(s.First(), 0)
}

func TestNextByteAndEof(t *testing.T) {
	_, c := newCursor(t, "ab")
	if c.Eof() {
		t.Fatal("unexpected eof at start")
	}
	b, n := c.NextByte()
	if n != 1 || b != 'a' {
		t.Fatalf("expected 'a', got %q n=%d", b, n)
	}
	c.NextByte()
	if !c.Eof() {
		t.Fatal("expected eof after consuming both bytes")
	}
	if _, n := c.NextByte(); n != 0 {
		t.Fatal("expected (0,0) past eof")
	}
}

func TestPrevByte(t *testing.T) {
	_, c := newCursor(t, "ab")
	c.SkipBytes(2)
	b, n := c.PrevByte()
	if n != 1 || b != 'b' {
		t.Fatalf("expected 'b', got %q", b)
	}
	b, n = c.PrevByte()
	if n != 1 || b != 'a' {
		t.Fatalf("expected 'a', got %q", b)
	}
	if _, n := c.PrevByte(); n != 0 {
		t.Fatal("expected (0,0) before bof")
	}
}

func TestNextCharASCII(t *testing.T) {
	_, c := newCursor(t, "x")
	r, n := c.NextChar()
	if r != 'x' || n != 1 {
		t.Fatalf("expected 'x'/1, got %q/%d", r, n)
	}
}

func TestNextCharMultibyte(t *testing.T) {
	// 'é' (U+00E9) encodes as 0xC3 0xA9.
	_, c := newCursor(t, "\xc3\xa9")
	r, n := c.NextChar()
	if n != 2 || r != 0xE9 {
		t.Fatalf("expected U+00E9/2, got %U/%d", r, n)
	}
}

func TestNextCharInvalidContinuation(t *testing.T) {
	// 0xC3 with a non-continuation follower is invalid; only the first
	// byte is consumed.
	_, c := newCursor(t, "\xc3X")
	r, n := c.NextChar()
	if n != 1 {
		t.Fatalf("expected invalid decode to consume 1 byte, got %d", n)
	}
	if r&InvalidMask == 0 {
		t.Fatalf("expected InvalidMask set, got %x", r)
	}
	if r&^InvalidMask != 0xc3 {
		t.Fatalf("expected sentinel byte 0xc3, got %x", r&^InvalidMask)
	}
	// Cursor must have advanced by exactly one byte, not two.
	b, _ := c.NextByte()
	if b != 'X' {
		t.Fatalf("expected next byte 'X', got %q", b)
	}
}

func TestPrevCharMultibyte(t *testing.T) {
	_, c := newCursor(t, "a\xc3\xa9b")
	c.SkipBytes(4)
	r, n := c.PrevChar()
	if n != 1 || r != 'b' {
		t.Fatalf("expected 'b', got %q/%d", r, n)
	}
	r, n = c.PrevChar()
	if n != 2 || r != 0xE9 {
		t.Fatalf("expected U+00E9/2, got %U/%d", r, n)
	}
	r, n = c.PrevChar()
	if n != 1 || r != 'a' {
		t.Fatalf("expected 'a', got %q/%d", r, n)
	}
}

func TestBolEol(t *testing.T) {
	_, c := newCursor(t, "abc\ndef\n")
	c.SkipBytes(5) // land on 'e'
	count := c.Bol()
	if count != 1 {
		t.Errorf("expected 1 byte crossed to bol, got %d", count)
	}
	if c.GetOffset() != 4 {
		t.Errorf("expected offset 4 at bol, got %d", c.GetOffset())
	}
	count = c.Eol()
	if count != 3 {
		t.Errorf("expected 3 bytes crossed to eol, got %d", count)
	}
	if c.GetOffset() != 7 {
		t.Errorf("expected offset 7 at eol ('\\n'), got %d", c.GetOffset())
	}
}

func TestNextLinePrevLine(t *testing.T) {
	_, c := newCursor(t, "abc\ndef\nghi\n")
	n := c.NextLine()
	if n != 4 || c.GetOffset() != 4 {
		t.Fatalf("expected to cross 4 bytes to offset 4, got n=%d offset=%d", n, c.GetOffset())
	}
	n = c.NextLine()
	if n != 4 || c.GetOffset() != 8 {
		t.Fatalf("expected to cross 4 bytes to offset 8, got n=%d offset=%d", n, c.GetOffset())
	}
	n = c.PrevLine()
	if n != 4 || c.GetOffset() != 4 {
		t.Fatalf("expected prev line back to offset 4, got n=%d offset=%d", n, c.GetOffset())
	}
}

func TestSkipBytesAndGotoOffset(t *testing.T) {
	s, c := newCursor(t, "abcdef\n")
	c.SkipBytes(3)
	if c.GetOffset() != 3 {
		t.Fatalf("expected offset 3, got %d", c.GetOffset())
	}
	var c2 Cursor
	c2.GotoOffset(s.First(), 3)
	if c2.GetOffset() != 3 {
		t.Fatalf("GotoOffset: expected offset 3, got %d", c2.GetOffset())
	}
}

func TestGetOffsetAcrossBlocks(t *testing.T) {
	// Force a real split to get two linked blocks, then verify GetOffset
	// accounts for the preceding block's size.
	store := block.NewStore()
	blk := store.First()
	data := make([]byte, 0, 501)
	for i := 0; i < 500; i++ {
		data = append(data, 'x')
	}
	data = append(data, '\n')
	store.InsertBytes(blk, 0, data)
	store.InsertBytes(blk, 250, []byte("\n"))
	if store.Len() != 2 {
		t.Fatalf("expected split into 2 blocks, got %d", store.Len())
	}
	second := store.Last()
	c := New(second, 3)
	if got := c.GetOffset(); got != 251+3 {
		t.Errorf("expected offset %d, got %d", 251+3, got)
	}
}

func TestNextGraphemeCombiningMark(t *testing.T) {
	// 'e' + combining acute accent (U+0301, 0xCC 0x81) forms one cluster.
	_, c := newCursor(t, "e\xcc\x81x")
	cluster, width := c.NextGrapheme()
	if string(cluster) != "e\xcc\x81" {
		t.Fatalf("expected combined cluster, got %q", cluster)
	}
	if width < 1 {
		t.Errorf("expected positive width, got %d", width)
	}
	cluster, _ = c.NextGrapheme()
	if string(cluster) != "x" {
		t.Fatalf("expected 'x', got %q", cluster)
	}
}

func TestPrevGraphemeCombiningMark(t *testing.T) {
	_, c := newCursor(t, "e\xcc\x81x")
	c.SkipBytes(4)
	cluster, _ := c.PrevGrapheme()
	if string(cluster) != "x" {
		t.Fatalf("expected 'x', got %q", cluster)
	}
	cluster, _ = c.PrevGrapheme()
	if string(cluster) != "e\xcc\x81" {
		t.Fatalf("expected combined cluster, got %q", cluster)
	}
}
