package buffer

import (
	"testing"

	"github.com/kigo-editor/kigo/internal/iter"
)

func newTestBuffer(t *testing.T, text string) (*Buffer, *View) {
	t.Helper()
	b := New()
	v := NewView(b)
	if len(text) > 0 {
		b.InsertBytes(&v.Cursor, []byte(text))
		b.Changes.EndChange()
		v.Cursor.GotoOffset(b.Store.First(), 0)
	}
	return b, v
}

func contents(b *Buffer) string {
	return string(blockConcat(b))
}

func blockConcat(b *Buffer) []byte {
	var out []byte
	for blk := b.Store.First(); blk != nil; blk = blk.Next() {
		out = append(out, blk.Data()...)
	}
	return out
}

// Scenario 1 from spec: insert with newline, undo.
func TestInsertWithNewlineUndo(t *testing.T) {
	b, v := newTestBuffer(t, "ab\n")
	v.Cursor.GotoOffset(b.Store.First(), 1)

	b.Changes.BeginChange(MergeNone)
	nl := b.InsertBytes(&v.Cursor, []byte("X\nY"))
	b.Changes.EndChange()

	if nl != 1 {
		t.Fatalf("expected 1 newline inserted, got %d", nl)
	}
	if contents(b) != "aX\nYb\n" {
		t.Fatalf("expected %q, got %q", "aX\nYb\n", contents(b))
	}
	if b.NL != 2 {
		t.Fatalf("expected buffer nl=2, got %d", b.NL)
	}
	if off := v.Cursor.GetOffset(); off != 4 {
		t.Fatalf("expected cursor offset 4, got %d", off)
	}

	count, ok := b.Undo(&v.Cursor)
	if !ok || count != 1 {
		t.Fatalf("expected undo to reverse 1 change, got count=%d ok=%v", count, ok)
	}
	if contents(b) != "ab\n" {
		t.Fatalf("expected %q after undo, got %q", "ab\n", contents(b))
	}
	if b.NL != 1 {
		t.Fatalf("expected buffer nl=1 after undo, got %d", b.NL)
	}
	if off := v.Cursor.GetOffset(); off != 1 {
		t.Fatalf("expected cursor offset 1 after undo, got %d", off)
	}
}

// Scenario 2: delete merging.
func TestDeleteMerging(t *testing.T) {
	b, v := newTestBuffer(t, "hello\n")
	v.Cursor.GotoOffset(b.Store.First(), 4)

	b.Changes.BeginChange(MergeDelete)
	b.DeleteBytes(&v.Cursor, 1, false)
	b.Changes.EndChange()

	b.Changes.BeginChange(MergeDelete)
	b.DeleteBytes(&v.Cursor, 1, false)
	b.Changes.EndChange()

	c := b.Changes.cur
	if c.delCount != 2 || string(c.buf) != "o\n" {
		t.Fatalf("expected merged record {del=2, buf=%q}, got {del=%d, buf=%q}", "o\n", c.delCount, c.buf)
	}
	if c.offset != 4 {
		t.Fatalf("expected merged record offset 4, got %d", c.offset)
	}

	if _, ok := b.Undo(&v.Cursor); !ok {
		t.Fatal("expected undo to succeed")
	}
	if contents(b) != "hello\n" {
		t.Fatalf("expected %q after undo, got %q", "hello\n", contents(b))
	}
}

// Scenario 3: erase (backspace) merging.
func TestEraseMerging(t *testing.T) {
	b, v := newTestBuffer(t, "abc\n")
	v.Cursor.GotoOffset(b.Store.First(), 3)

	for i := 0; i < 3; i++ {
		v.Cursor.PrevByte()
		b.Changes.BeginChange(MergeErase)
		b.DeleteBytes(&v.Cursor, 1, true)
		b.Changes.EndChange()
	}

	c := b.Changes.cur
	if c.delCount != 3 || string(c.buf) != "abc" {
		t.Fatalf("expected merged record {del=3, buf=%q}, got {del=%d, buf=%q}", "abc", c.delCount, c.buf)
	}
	if c.offset != 0 {
		t.Fatalf("expected merged record offset 0, got %d", c.offset)
	}

	if _, ok := b.Undo(&v.Cursor); !ok {
		t.Fatal("expected undo to succeed")
	}
	if contents(b) != "abc\n" {
		t.Fatalf("expected %q after undo, got %q", "abc\n", contents(b))
	}
	if off := v.Cursor.GetOffset(); off != 3 {
		t.Fatalf("expected cursor restored to offset 3 (move_after), got %d", off)
	}
}

// Scenario 6: undo across a chain restores the pre-chain state in one step.
func TestChainAtomicity(t *testing.T) {
	b, v := newTestBuffer(t, "foo foo foo\n")

	b.Changes.BeginChangeChain()
	for i := 0; i < 3; i++ {
		v.Cursor.GotoOffset(b.Store.First(), 0)
		for j := 0; j < i; j++ {
			v.Cursor.NextChar()
			v.Cursor.NextChar()
			v.Cursor.NextChar()
			v.Cursor.NextChar()
		}
		b.Changes.BeginChange(MergeNone)
		b.ReplaceBytes(&v.Cursor, 3, []byte("bar"))
		b.Changes.EndChange()
	}
	b.Changes.EndChangeChain()

	if contents(b) != "bar bar bar\n" {
		t.Fatalf("expected %q after replace-all, got %q", "bar bar bar\n", contents(b))
	}

	count, ok := b.Undo(&v.Cursor)
	if !ok {
		t.Fatal("expected undo to succeed")
	}
	if count != 3 {
		t.Fatalf("expected 3 primitive edits reversed, got %d", count)
	}
	if contents(b) != "foo foo foo\n" {
		t.Fatalf("expected original text restored, got %q", contents(b))
	}
}

// Undo/redo symmetry: undo then redo(newest) is a no-op on content.
func TestUndoRedoSymmetry(t *testing.T) {
	b, v := newTestBuffer(t, "hello\n")
	v.Cursor.GotoOffset(b.Store.First(), 5)

	b.Changes.BeginChange(MergeNone)
	b.InsertBytes(&v.Cursor, []byte(" world"))
	b.Changes.EndChange()

	before := contents(b)
	curBefore := b.Changes.cur

	if _, ok := b.Undo(&v.Cursor); !ok {
		t.Fatal("expected undo to succeed")
	}
	if contents(b) == before {
		t.Fatal("expected content to change after undo")
	}

	if _, ok := b.Redo(&v.Cursor, 0); !ok {
		t.Fatal("expected redo to succeed")
	}
	if contents(b) != before {
		t.Fatalf("expected content restored by redo, got %q", contents(b))
	}
	if b.Changes.cur != curBefore {
		t.Fatal("expected cur to return to its pre-undo position")
	}
}

// Insert/delete round-trip per spec's invariant.
func TestInsertDeleteRoundTrip(t *testing.T) {
	b, v := newTestBuffer(t, "abcdef\n")
	before := contents(b)
	v.Cursor.GotoOffset(b.Store.First(), 3)

	b.InsertBytes(&v.Cursor, []byte("XYZ"))
	v.Cursor.Retreat(3)
	b.DeleteBytes(&v.Cursor, 3, true)

	if contents(b) != before {
		t.Fatalf("expected round-trip to restore %q, got %q", before, contents(b))
	}
}

func TestReplaceBytesSingleUndoStep(t *testing.T) {
	b, v := newTestBuffer(t, "hello world\n")
	v.Cursor.GotoOffset(b.Store.First(), 0)

	before := b.Changes.cur
	b.ReplaceBytes(&v.Cursor, 5, []byte("bye"))
	if contents(b) != "bye world\n" {
		t.Fatalf("expected %q, got %q", "bye world\n", contents(b))
	}
	if b.Changes.cur.parent != before {
		t.Fatal("expected exactly one new change node for the replace")
	}

	if _, ok := b.Undo(&v.Cursor); !ok {
		t.Fatal("expected undo to succeed")
	}
	if contents(b) != "hello world\n" {
		t.Fatalf("expected %q after undo, got %q", "hello world\n", contents(b))
	}
}

func TestDirtyFlag(t *testing.T) {
	b, v := newTestBuffer(t, "a\n")
	b.Changes.MarkSaved()
	if b.Dirty() {
		t.Fatal("expected clean buffer immediately after marking saved")
	}
	b.InsertBytes(&v.Cursor, []byte("b"))
	if !b.Dirty() {
		t.Fatal("expected dirty after an edit")
	}
	b.Undo(&v.Cursor)
	if b.Dirty() {
		t.Fatal("expected clean again after undoing back to the saved state")
	}
}

func TestRedoBranchSelection(t *testing.T) {
	b, v := newTestBuffer(t, "x\n")
	v.Cursor.GotoOffset(b.Store.First(), 0)

	b.InsertBytes(&v.Cursor, []byte("A"))
	b.Undo(&v.Cursor)

	v.Cursor.GotoOffset(b.Store.First(), 0)
	b.InsertBytes(&v.Cursor, []byte("B"))

	common := b.Changes.cur.parent
	if len(common.children) != 2 {
		t.Fatalf("expected 2 redo branches off the common ancestor, got %d", len(common.children))
	}

	b.Undo(&v.Cursor)
	if _, ok := b.Redo(&v.Cursor, 1); !ok {
		t.Fatal("expected redo branch 1 to succeed")
	}
	if contents(b) != "Ax\n" {
		t.Fatalf("expected %q selecting the first branch, got %q", "Ax\n", contents(b))
	}
}

func TestViewSelectingAndDeactivate(t *testing.T) {
	b := New()
	v := NewView(b)
	b.InsertBytes(&v.Cursor, []byte("hello\n"))
	if v.Selecting() {
		t.Fatal("expected no active selection")
	}
	v.SelKind = SelectionChars
	if !v.Selecting() {
		t.Fatal("expected Selecting() true once a kind is set")
	}
	v.Cursor.GotoOffset(b.Store.First(), 3)
	v.Deactivate()
	if !v.RestoreCursor {
		t.Fatal("expected RestoreCursor set after Deactivate")
	}
	v.Cursor = iter.Cursor{}
	v.Reactivate()
	if off := v.Cursor.GetOffset(); off != 3 {
		t.Fatalf("expected cursor restored to offset 3, got %d", off)
	}
}
