package syntax

// LineSource is the minimal view onto buffer text the highlighter needs:
// lines indexed from 0, each returned with its trailing newline except
// possibly the last line of the buffer.
type LineSource interface {
	Line(i int) []byte
	LineCount() int
}

// Highlighter holds one buffer's per-line start-state array: S[i] is the
// automaton state at the start of line i. Entries at or after FirstHole
// may be stale or absent (nil); FillHoles recomputes them lazily.
type Highlighter struct {
	Def   *Definition
	Lines LineSource

	S         []*State
	FirstHole int
}

// NewHighlighter returns a Highlighter with only S[0] known: the
// definition's entry state.
func NewHighlighter(def *Definition, src LineSource) *Highlighter {
	var entry *State
	if def != nil && len(def.States) > 0 {
		entry = def.States[0]
	}
	return &Highlighter{
		Def:       def,
		Lines:     src,
		S:         []*State{entry},
		FirstHole: 1,
	}
}

// OnInsertLines records that L lines were inserted right after firstLine.
// The start state at firstLine+1 is invalidated even when L is 0: an
// in-line edit (no newline crossed) can still change what firstLine
// feeds into the next line's start state.
func (h *Highlighter) OnInsertLines(firstLine, l int) {
	if l < 0 {
		return
	}
	if firstLine >= len(h.S) {
		return
	}
	idx := firstLine + 1
	if idx > len(h.S) {
		idx = len(h.S)
	}
	hole := make([]*State, l)
	tail := append([]*State{}, h.S[idx:]...)
	h.S = append(h.S[:idx:idx], hole...)
	h.S = append(h.S, tail...)
	h.FirstHole = firstLine + 1

	lastLine := firstLine + l
	if lastLine+1 < len(h.S) {
		h.S[lastLine+1] = nil
	}
}

// OnDeleteLines records that L lines ending at lastLine (== firstLine+l)
// were removed. As with OnInsertLines, the start state at firstLine+1 is
// invalidated even when L is 0.
func (h *Highlighter) OnDeleteLines(firstLine, l int) {
	if l < 0 {
		return
	}
	start := firstLine + 1
	if start >= len(h.S) {
		return
	}
	end := start + l
	if end > len(h.S) {
		end = len(h.S)
	}
	h.S = append(h.S[:start:start], h.S[end:]...)
	if start < len(h.S) {
		h.S[start] = nil
	}
	h.FirstHole = start
}

// InvalidateAll discards every start state but S[0], forcing a full
// rehighlight on the next PaintLine. Used when an edit's affected line
// range isn't known precisely enough for OnInsertLines/OnDeleteLines --
// an undo or redo can reverse a change far from the cursor's current
// line, unlike a direct keystroke edit.
func (h *Highlighter) InvalidateAll() {
	h.S = h.S[:1]
	h.FirstHole = 1
}

// FillHoles recomputes start states up to and including target, stopping
// early once the gap has healed (a recomputed state matches the one
// already stored) or the buffer runs out of lines.
func (h *Highlighter) FillHoles(target int) {
	for h.FirstHole <= target {
		lineIdx := h.FirstHole - 1
		if lineIdx < 0 || lineIdx >= h.Lines.LineCount() {
			return
		}
		start := h.lineStart(lineIdx)
		_, ns := ExecLine(start, h.Lines.Line(lineIdx))

		switch {
		case h.FirstHole >= len(h.S):
			h.S = append(h.S, ns)
			h.FirstHole++
		case h.S[h.FirstHole] == nil:
			h.S[h.FirstHole] = ns
			h.FirstHole++
		case Equal(h.S[h.FirstHole], ns):
			idx := h.FirstHole + 1
			for idx < len(h.S) && h.S[idx] != nil {
				idx++
			}
			h.FirstHole = idx
		default:
			h.S[h.FirstHole] = ns
			h.FirstHole++
		}
	}
}

func (h *Highlighter) lineStart(idx int) *State {
	if idx < len(h.S) {
		return h.S[idx]
	}
	return nil
}

// PaintLine fills holes up to lineIdx, then runs the automaton over it.
// Callers cache the returned colors only for currently visible lines.
func (h *Highlighter) PaintLine(lineIdx int) []string {
	h.FillHoles(lineIdx)
	colors, _ := ExecLine(h.lineStart(lineIdx), h.Lines.Line(lineIdx))
	return colors
}
