package buffer

// MergePolicy tags the kind of primitive edit the command layer is
// currently performing, so consecutive edits from one user action (e.g.
// holding down backspace) collapse into a single undo step.
type MergePolicy int

const (
	MergeNone MergePolicy = iota
	MergeInsert
	MergeDelete
	MergeErase
)

// Change is one node of the undo DAG: either a real edit (insCount or
// delCount non-zero) or a chain barrier (both zero) bracketing an
// atomic multi-edit user action. parent points toward the state before
// this change (the undo direction); children holds every redo branch
// that has ever been made from this state, in creation order.
type Change struct {
	parent   *Change
	children []*Change

	offset    int
	delCount  int
	insCount  int
	moveAfter bool
	buf       []byte // deleted bytes; inserted bytes are never stored
}

func (c *Change) isBarrier() bool { return c.insCount == 0 && c.delCount == 0 }

// ChangeGraph is the branching undo history of one Buffer.
type ChangeGraph struct {
	root  *Change
	cur   *Change
	saved *Change

	undoMerge, prevUndoMerge MergePolicy
	pendingBarrier           *Change
}

// NewChangeGraph returns a graph positioned at its root, the state of a
// freshly created buffer with no edit history.
func NewChangeGraph() *ChangeGraph {
	root := &Change{}
	return &ChangeGraph{root: root, cur: root, saved: root}
}

// Dirty reports whether the buffer has unsaved changes.
func (g *ChangeGraph) Dirty() bool { return g.cur != g.saved }

// MarkSaved records the current position as the last saved state.
func (g *ChangeGraph) MarkSaved() { g.saved = g.cur }

func (g *ChangeGraph) addChange(c *Change) {
	parent := g.cur
	c.parent = parent
	parent.children = append(parent.children, c)
	g.cur = c
}

func (g *ChangeGraph) newChange() *Change {
	if g.pendingBarrier != nil {
		g.addChange(g.pendingBarrier)
		g.pendingBarrier = nil
	}
	c := &Change{}
	g.addChange(c)
	return c
}

// BeginChange sets the merge tag the following primitive edit should be
// compared against. The command layer calls this once per primitive
// edit, before performing it.
func (g *ChangeGraph) BeginChange(m MergePolicy) { g.undoMerge = m }

// EndChange latches the merge tag used by BeginChange so the next call
// can detect whether it continues the same run.
func (g *ChangeGraph) EndChange() { g.prevUndoMerge = g.undoMerge }

// BeginChangeChain opens an atomic multi-edit action. The barrier is
// only actually linked into the graph on the first real edit recorded
// inside the chain, so an empty chain leaves no trace.
func (g *ChangeGraph) BeginChangeChain() {
	g.pendingBarrier = &Change{}
	g.undoMerge = MergeNone
}

// EndChangeChain closes a chain opened by BeginChangeChain, appending a
// closing barrier iff the opening barrier was actually inserted.
func (g *ChangeGraph) EndChangeChain() {
	if g.pendingBarrier != nil {
		g.pendingBarrier = nil
		return
	}
	g.addChange(&Change{})
}

func (g *ChangeGraph) recordInsert(offset, length int) {
	if g.undoMerge == g.prevUndoMerge && g.undoMerge == MergeInsert {
		g.cur.insCount += length
		return
	}
	c := g.newChange()
	c.offset = offset
	c.insCount = length
}

func (g *ChangeGraph) recordDelete(offset int, buf []byte, moveAfter bool) {
	if g.undoMerge == g.prevUndoMerge {
		switch g.undoMerge {
		case MergeDelete:
			c := g.cur
			c.buf = append(c.buf, buf...)
			c.delCount += len(buf)
			return
		case MergeErase:
			c := g.cur
			merged := make([]byte, 0, len(buf)+len(c.buf))
			merged = append(merged, buf...)
			merged = append(merged, c.buf...)
			c.buf = merged
			c.delCount += len(buf)
			c.offset -= len(buf)
			return
		}
	}
	c := g.newChange()
	c.offset = offset
	c.delCount = len(buf)
	c.moveAfter = moveAfter
	c.buf = buf
}

func (g *ChangeGraph) recordReplace(offset int, deleted []byte, insCount int) {
	c := g.newChange()
	c.offset = offset
	c.insCount = insCount
	c.delCount = len(deleted)
	c.buf = deleted
}

// Free walks the DAG in post-order, clearing every node's captured
// bytes and child list. Go's GC reclaims memory on its own, but a long
// editing session can otherwise pin megabytes of old deleted text
// until the whole tree happens to become unreachable; this drops it
// eagerly, one freed buffer at a time. An explicit stack is used since
// Go gives no tail-call guarantee and the DAG can be arbitrarily deep.
func (g *ChangeGraph) Free() {
	if g.root == nil {
		return
	}
	type frame struct {
		c     *Change
		child int
	}
	stack := []*frame{{c: g.root}}
	for len(stack) > 0 {
		top := stack[len(stack)-1]
		if top.child < len(top.c.children) {
			next := top.c.children[top.child]
			top.child++
			stack = append(stack, &frame{c: next})
			continue
		}
		top.c.buf = nil
		top.c.children = nil
		stack = stack[:len(stack)-1]
	}
	g.root, g.cur, g.saved = nil, nil, nil
}
