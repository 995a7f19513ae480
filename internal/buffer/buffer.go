// Package buffer implements the editable text model: the mutator
// (insert/delete/replace preserving block invariants) and the
// branching undo history layered on top of internal/block.
package buffer

import (
	"github.com/kigo-editor/kigo/internal/block"
	"github.com/kigo-editor/kigo/internal/iter"
)

// LineEnding selects the save-time line terminator.
type LineEnding int

const (
	LineEndingUnix LineEnding = iota
	LineEndingDOS
)

// Buffer owns a chunked byte store and its undo history. It has no
// notion of cursors, selection, or viewport -- those belong to View.
type Buffer struct {
	Store    *block.Store
	NL       int
	Changes  *ChangeGraph
	LineEnd  LineEnding
	Encoding string
}

// New returns an empty buffer: one empty block, a root-only change graph.
func New() *Buffer {
	return &Buffer{
		Store:    block.NewStore(),
		Changes:  NewChangeGraph(),
		Encoding: "UTF-8",
	}
}

// Dirty reports whether the buffer differs from its last saved state.
func (b *Buffer) Dirty() bool { return b.Changes.Dirty() }

// InsertBytes inserts data at cur, advances cur past it, and records
// the edit. It returns the number of newlines inserted.
func (b *Buffer) InsertBytes(cur *iter.Cursor, data []byte) int {
	if len(data) == 0 {
		return 0
	}
	offset := cur.GetOffset()
	nb, nOff, nl := b.Store.InsertBytes(cur.Block(), cur.Offset(), data)
	b.NL += nl
	cur.Set(nb, nOff)
	cur.SkipBytes(len(data))
	cur.Normalize()
	b.Changes.recordInsert(offset, len(data))
	return nl
}

// DeleteBytes removes length bytes starting at cur, leaving cur at the
// same absolute position (renormalized if its block was freed).
// moveAfter records how undo should restore the cursor: false leaves it
// at the deletion point (forward delete), true advances it past the
// reinserted bytes (backspace/erase).
func (b *Buffer) DeleteBytes(cur *iter.Cursor, length int, moveAfter bool) ([]byte, int) {
	if length == 0 {
		return nil, 0
	}
	offset := cur.GetOffset()
	deleted, nl, cb, coff := b.Store.DeleteBytes(cur.Block(), cur.Offset(), length)
	b.NL -= nl
	cur.Set(cb, coff)
	b.Changes.recordDelete(offset, deleted, moveAfter)
	return deleted, nl
}

// ReplaceBytes deletes del bytes at cur and inserts data in their
// place, as a single undo step. Pure insert (del == 0) and pure delete
// (len(data) == 0) degrade to InsertBytes/DeleteBytes.
func (b *Buffer) ReplaceBytes(cur *iter.Cursor, del int, data []byte) (deleted []byte, deletedNL, insertedNL int) {
	if del == 0 {
		return nil, 0, b.InsertBytes(cur, data)
	}
	if len(data) == 0 {
		deleted, deletedNL = b.DeleteBytes(cur, del, false)
		return deleted, deletedNL, 0
	}

	offset := cur.GetOffset()
	blk, localOff := cur.Block(), cur.Offset()
	d, dnl, ins, ok := b.Store.ReplaceBytes(blk, localOff, del, data)
	if ok {
		b.NL += ins - dnl
		cur.Set(blk, localOff+len(data))
		b.Changes.recordReplace(offset, d, len(data))
		return d, dnl, ins
	}

	delBytes, delNL, cb, coff := b.Store.DeleteBytes(blk, localOff, del)
	b.NL -= delNL
	nb, noff, insNL := b.Store.InsertBytes(cb, coff, data)
	b.NL += insNL
	cur.Set(nb, noff)
	cur.SkipBytes(len(data))
	cur.Normalize()
	b.Changes.recordReplace(offset, delBytes, len(data))
	return delBytes, delNL, insNL
}

// reverseChange applies the inverse of c at cur, then rewrites c in
// place to describe the edit that would now reverse THAT: an undo
// toggles a change's own fields between its forward and backward
// descriptions, so calling this same function again (from redo) flips
// it right back.
func (b *Buffer) reverseChange(c *Change, cur *iter.Cursor) {
	cur.GotoOffset(b.Store.First(), c.offset)

	switch {
	case c.insCount == 0:
		// Convert a delete back into an insert.
		nb, noff, nl := b.Store.InsertBytes(cur.Block(), cur.Offset(), c.buf)
		b.NL += nl
		cur.Set(nb, noff)
		if c.moveAfter {
			cur.SkipBytes(len(c.buf))
		}
		c.insCount = c.delCount
		c.delCount = 0
		c.buf = nil
	case c.delCount != 0:
		// Reverse a replace: delete what was inserted, reinsert what was deleted.
		insCount := c.insCount
		deleted, dnl, cb, coff := b.Store.DeleteBytes(cur.Block(), cur.Offset(), insCount)
		b.NL -= dnl
		nb, noff, inl := b.Store.InsertBytes(cb, coff, c.buf)
		b.NL += inl
		cur.Set(nb, noff)
		c.buf = deleted
		c.insCount = c.delCount
		c.delCount = insCount
	default:
		// Convert an insert back into a delete.
		deleted, dnl, cb, coff := b.Store.DeleteBytes(cur.Block(), cur.Offset(), c.insCount)
		b.NL -= dnl
		cur.Set(cb, coff)
		c.buf = deleted
		c.delCount = c.insCount
		c.insCount = 0
	}
}

// Undo reverses the most recent change (or, if it closed a chain, every
// change back to the chain's opening barrier). It returns the number of
// primitive edits reversed and whether there was anything to undo.
func (b *Buffer) Undo(cur *iter.Cursor) (int, bool) {
	head := b.Changes.cur
	if head.parent == nil {
		return 0, false
	}

	change := head
	count := 0
	if change.isBarrier() {
		for {
			head = head.parent
			change = head
			if change.isBarrier() {
				break
			}
			b.reverseChange(change, cur)
			count++
		}
	} else {
		b.reverseChange(change, cur)
		count = 1
	}
	b.Changes.cur = head.parent
	return count, true
}

// Redo reapplies a previously undone change. branch selects which
// redo child to follow when more than one exists (1-based; 0 defaults
// to the newest). It returns the number of primitive edits reapplied,
// and false if there is nothing to redo or branch is out of range.
func (b *Buffer) Redo(cur *iter.Cursor, branch int) (int, bool) {
	head := b.Changes.cur
	if len(head.children) == 0 {
		return 0, false
	}

	idx := branch
	if idx == 0 {
		idx = len(head.children) - 1
	} else {
		idx--
		if idx < 0 || idx >= len(head.children) {
			return 0, false
		}
	}
	head = head.children[idx]

	change := head
	count := 0
	if change.isBarrier() {
		for {
			head = head.children[len(head.children)-1]
			change = head
			if change.isBarrier() {
				break
			}
			b.reverseChange(change, cur)
			count++
		}
	} else {
		b.reverseChange(change, cur)
		count = 1
	}
	b.Changes.cur = head
	return count, true
}
