package buffer

import "github.com/kigo-editor/kigo/internal/iter"

// SelectionKind distinguishes an empty selection from a character range
// or a whole-line range.
type SelectionKind int

const (
	SelectionNone SelectionKind = iota
	SelectionChars
	SelectionLines
)

// View projects a Buffer for one window: its own cursor, viewport, and
// selection. Multiple views may share one Buffer; each tracks its own
// navigation state independently. The projection algorithms that keep
// these fields consistent after an edit live in internal/view, not
// here -- this type only holds the data.
type View struct {
	Buf *Buffer

	Cursor iter.Cursor

	// CY is the cursor's 0-based display row; CXChar is its 0-based
	// character column; CXDisplay is the width-aware column (tabs
	// 1-8, wide runes 2, invalid bytes 4).
	CY, CXChar, CXDisplay int

	// VX, VY is the viewport's top-left corner in display coordinates.
	VX, VY int

	// PreferredX is the display column vertical motion tries to land
	// on; horizontal motion invalidates it (set to -1).
	PreferredX int

	SelSO, SelEO int
	SelKind      SelectionKind

	CenterOnScroll bool
	ForceCenter    bool

	// RestoreCursor and SavedOffset let a non-active view persist its
	// position as an absolute byte offset instead of holding a
	// potentially-dangling cursor across edits made through another
	// view of the same buffer.
	RestoreCursor bool
	SavedOffset   int
}

// NewView returns a view positioned at the start of buf.
func NewView(buf *Buffer) *View {
	return &View{
		Buf:        buf,
		Cursor:     iter.New(buf.Store.First(), 0),
		PreferredX: -1,
	}
}

// Selecting reports whether the view currently has an active selection.
func (v *View) Selecting() bool { return v.SelKind != SelectionNone }

// Unselect clears the current selection.
func (v *View) Unselect() { v.SelKind = SelectionNone }

// Deactivate persists the cursor as an absolute offset so the view can
// be safely reactivated even if another view's edits moved or freed
// the block it referenced.
func (v *View) Deactivate() {
	v.SavedOffset = v.Cursor.GetOffset()
	v.RestoreCursor = true
}

// Reactivate resolves a persisted offset back into a live cursor.
func (v *View) Reactivate() {
	if !v.RestoreCursor {
		return
	}
	v.Cursor.GotoOffset(v.Buf.Store.First(), v.SavedOffset)
	v.RestoreCursor = false
}
