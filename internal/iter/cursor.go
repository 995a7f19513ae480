// Package iter implements byte-, UTF-8-character-, and line-level
// navigation over a block.Store, the cursor type dex calls a block_iter.
package iter

import (
	"github.com/rivo/uniseg"

	"github.com/kigo-editor/kigo/internal/block"
)

// InvalidMask flags the sentinel rune returned when UTF-8 decoding fails:
// the scalar value is the offending first byte with this bit set.
const InvalidMask rune = 0x40000000

var firstByteMask = [5]rune{0, 0, 0x1F, 0x0F, 0x07}
var minVal = [5]rune{0, 0, 0x80, 0x800, 0x10000}
var maxVal = [5]rune{0, 0, 0x7FF, 0xFFFF, 0x10FFFF}

// utf8SeqLen classifies a lead byte: 1 for ASCII, 2/3/4 for a multi-byte
// lead, 0 for a continuation byte, -1 for a byte that can never start a
// valid sequence (0xF5-0xFF).
func utf8SeqLen(b byte) int {
	switch {
	case b < 0x80:
		return 1
	case b < 0xC0:
		return 0
	case b < 0xE0:
		return 2
	case b < 0xF0:
		return 3
	case b < 0xF5:
		return 4
	default:
		return -1
	}
}

// Cursor is a position within a block.Store: a block reference plus a
// byte offset within it. Positions are only ever compared or advanced
// relative to the store they were created from.
type Cursor struct {
	blk    *block.Block
	offset int
}

// New returns a cursor positioned at (blk, offset).
func New(blk *block.Block, offset int) Cursor {
	return Cursor{blk: blk, offset: offset}
}

// Block returns the block the cursor currently references.
func (it *Cursor) Block() *block.Block { return it.blk }

// Offset returns the cursor's byte offset within its current block.
func (it *Cursor) Offset() int { return it.offset }

// Set repositions the cursor.
func (it *Cursor) Set(blk *block.Block, offset int) {
	it.blk, it.offset = blk, offset
}

func (it *Cursor) clone() Cursor { return *it }

// Normalize ensures offset never equals the block size while a next
// block exists, so the cursor always names a concrete byte position
// (or legitimate EOF).
func (it *Cursor) Normalize() {
	if it.offset == it.blk.Size() && it.blk.Next() != nil {
		it.blk = it.blk.Next()
		it.offset = 0
	}
}

// Eof reports whether the cursor is at the end of the buffer.
func (it *Cursor) Eof() bool {
	return it.offset == it.blk.Size() && it.blk.Next() == nil
}

// NextByte advances past one byte, returning it and 1, or (0, 0) at EOF.
func (it *Cursor) NextByte() (byte, int) {
	if it.offset == it.blk.Size() {
		if it.blk.Next() == nil {
			return 0, 0
		}
		it.blk = it.blk.Next()
		it.offset = 0
	}
	b := it.blk.ByteAt(it.offset)
	it.offset++
	return b, 1
}

// PrevByte retreats past one byte, returning it and 1, or (0, 0) at BOF.
func (it *Cursor) PrevByte() (byte, int) {
	if it.offset == 0 {
		if it.blk.Prev() == nil {
			return 0, 0
		}
		it.blk = it.blk.Prev()
		it.offset = it.blk.Size()
	}
	it.offset--
	return it.blk.ByteAt(it.offset), 1
}

// NextChar decodes and advances past one UTF-8 scalar. On malformed
// input it advances exactly one byte and returns that byte OR'd with
// InvalidMask.
func (it *Cursor) NextChar() (rune, int) {
	b, n := it.NextByte()
	if n == 0 {
		return 0, 0
	}
	if b < 0x80 {
		return rune(b), 1
	}
	length := utf8SeqLen(b)
	if length < 1 {
		return rune(b) | InvalidMask, 1
	}
	save := it.clone()
	u := rune(b) & firstByteMask[length]
	ok := true
	for i := 1; i < length; i++ {
		cb, n := it.NextByte()
		if n == 0 || cb&0xC0 != 0x80 {
			ok = false
			break
		}
		u = u<<6 | rune(cb&0x3f)
	}
	if ok && u >= minVal[length] && u <= maxVal[length] {
		return u, length
	}
	*it = save
	return rune(b) | InvalidMask, 1
}

// PrevChar decodes and retreats past one UTF-8 scalar, mirroring NextChar.
func (it *Cursor) PrevChar() (rune, int) {
	b, n := it.PrevByte()
	if n == 0 {
		return 0, 0
	}
	if b < 0x80 {
		return rune(b), 1
	}
	save := it.clone()
	cur := b
	var u rune
	var shift uint
	c := 1
	for c < 4 {
		if utf8SeqLen(cur) != 0 {
			break
		}
		u |= rune(cur&0x3f) << shift
		shift += 6
		nb, n := it.PrevByte()
		if n == 0 {
			*it = save
			return rune(b) | InvalidMask, 1
		}
		cur = nb
		c++
	}
	length := utf8SeqLen(cur)
	if length != c {
		*it = save
		return rune(b) | InvalidMask, 1
	}
	u |= (rune(cur) & firstByteMask[length]) << shift
	if u < minVal[length] || u > maxVal[length] {
		*it = save
		return rune(b) | InvalidMask, 1
	}
	return u, length
}

// NextLine moves to the first byte of the following line, returning the
// number of bytes crossed, or 0 if there is no next line (the cursor is
// then left at EOF).
func (it *Cursor) NextLine() int {
	count := 0
	for {
		b, n := it.NextByte()
		if n == 0 {
			return 0
		}
		count++
		if b == '\n' {
			return count
		}
	}
}

// PrevLine moves to the first byte of the preceding line, returning the
// number of bytes crossed, or 0 if already on the first line.
func (it *Cursor) PrevLine() int {
	blk := it.blk
	offset := it.offset
	start := offset

	for offset > 0 && blk.ByteAt(offset-1) != '\n' {
		offset--
	}
	if offset == 0 {
		if blk.Prev() == nil {
			return 0
		}
		blk = blk.Prev()
		offset = blk.Size()
		start += offset
	}
	offset--
	for offset > 0 && blk.ByteAt(offset-1) != '\n' {
		offset--
	}
	it.blk, it.offset = blk, offset
	return start - offset
}

// Bol moves to the first byte of the current line.
func (it *Cursor) Bol() int {
	count := 0
	for {
		b, n := it.PrevByte()
		if n == 0 {
			break
		}
		if b == '\n' {
			it.NextByte()
			break
		}
		count++
	}
	return count
}

// Eol moves to the last byte of the current line (the '\n' itself, or
// EOF if the line has none).
func (it *Cursor) Eol() int {
	count := 0
	for {
		b, n := it.NextByte()
		if n == 0 {
			break
		}
		if b == '\n' {
			it.PrevByte()
			break
		}
		count++
	}
	return count
}

// SkipBytes advances n bytes, crossing block boundaries as needed.
func (it *Cursor) SkipBytes(n int) {
	blk := it.blk
	offset := it.offset
	for {
		avail := blk.Size() - offset
		if n <= avail {
			it.blk, it.offset = blk, offset+n
			return
		}
		n -= avail
		blk = blk.Next()
		offset = 0
	}
}

// Retreat moves n bytes backward, crossing block boundaries as needed.
func (it *Cursor) Retreat(n int) {
	blk := it.blk
	offset := it.offset
	for {
		if n <= offset {
			it.blk, it.offset = blk, offset-n
			return
		}
		n -= offset
		blk = blk.Prev()
		offset = blk.Size()
	}
}

// GotoOffset seeks to an absolute byte offset, walking from head.
func (it *Cursor) GotoOffset(head *block.Block, offset int) {
	for b := head; b != nil; b = b.Next() {
		if offset <= b.Size() {
			it.blk, it.offset = b, offset
			return
		}
		offset -= b.Size()
	}
}

// GetOffset returns the cursor's absolute byte offset from the start of
// the buffer, walking backward over preceding blocks.
func (it *Cursor) GetOffset() int {
	offset := it.offset
	for b := it.blk.Prev(); b != nil; b = b.Prev() {
		offset += b.Size()
	}
	return offset
}

// NextGrapheme advances past one grapheme cluster (the unit a terminal
// treats as a single glyph), returning its bytes and uniseg's width
// category (0, 1, or 2 columns). It is an approximation when a cluster
// would be split across the lookahead window; lone combining marks this
// deep into a line are vanishingly rare in source text.
func (it *Cursor) NextGrapheme() ([]byte, int) {
	if it.Eof() {
		return nil, 0
	}
	ahead := block.ConcatForward(it.blk, it.offset, 256)
	if len(ahead) == 0 {
		return nil, 0
	}
	cluster, _, width, _ := uniseg.FirstGraphemeCluster(ahead, -1)
	if len(cluster) == 0 {
		return nil, 0
	}
	it.SkipBytes(len(cluster))
	return cluster, width
}

// PrevGrapheme retreats past one grapheme cluster. uniseg exposes only
// forward segmentation, so this re-segments from the start of the
// current line to find the cluster boundary immediately before the
// cursor.
func (it *Cursor) PrevGrapheme() ([]byte, int) {
	origOffset := it.GetOffset()
	if origOffset == 0 {
		return nil, 0
	}
	lineStart := it.clone()
	lineStart.Bol()
	lineStartOffset := lineStart.GetOffset()

	data := block.ConcatForward(lineStart.blk, lineStart.offset, origOffset-lineStartOffset)
	state := -1
	pos := 0
	var cluster []byte
	var width int
	for pos < len(data) {
		cl, rest, w, ns := uniseg.FirstGraphemeCluster(data[pos:], state)
		if len(cl) == 0 {
			break
		}
		cluster, width = cl, w
		pos = len(data) - len(rest)
		state = ns
	}
	if cluster == nil {
		return nil, 0
	}
	it.Retreat(len(cluster))
	return cluster, width
}
