package syntax

// ExecLine runs the automaton over one line, starting in state start, and
// returns a color name per byte (empty string where nothing painted) plus
// the state to start the next line in. line should include its trailing
// newline unless it is the buffer's last line, matching how callers slice
// lines out of the block store.
//
// Conditions of the current state are tried in order; the first match
// performs its action and the scan restarts from the (possibly new)
// current state without advancing past bytes a condition declines to eat.
// If none match, the state's default action runs: eat/noeat/noeat_buffer,
// or heredocbegin, which instantiates (or reuses) a delimiter-bound copy
// of the pushed subsyntax and jumps into its entry state.
func ExecLine(start *State, line []byte) (colors []string, next *State) {
	colors = make([]string, len(line))
	state := start
	i := 0
	sidx := -1
	var lastCapture []byte

	n := len(line)
top:
	for i < n {
		ch := line[i]
		matched := false
		for _, cond := range state.Conditions {
			switch cond.Kind {
			case CondCharSetBuffered:
				if !bitmapGet(cond.Bitmap, ch) {
					continue
				}
				if sidx < 0 {
					sidx = i
				}
				colors[i] = cond.Color
				i++
				state = cond.Dest
				matched = true
			case CondCharSet:
				if !bitmapGet(cond.Bitmap, ch) {
					continue
				}
				colors[i] = cond.Color
				i++
				sidx = -1
				state = cond.Dest
				matched = true
			case CondBufis:
				if sidx < 0 || !matchBuffered(line[sidx:i], cond.Str, cond.ICase) {
					continue
				}
				paintRange(colors, sidx, i, cond.Color)
				lastCapture = append(lastCapture[:0], line[sidx:i]...)
				sidx = -1
				state = cond.Dest
				matched = true
			case CondInList:
				if sidx < 0 || cond.List == nil || !cond.List.has(string(line[sidx:i])) {
					continue
				}
				paintRange(colors, sidx, i, cond.Color)
				lastCapture = append(lastCapture[:0], line[sidx:i]...)
				sidx = -1
				state = cond.Dest
				matched = true
			case CondStr, CondStrICase:
				end := i + len(cond.Str)
				if end > n || !matchBuffered(line[i:end], cond.Str, cond.Kind == CondStrICase) {
					continue
				}
				paintRange(colors, i, end, cond.Color)
				lastCapture = append(lastCapture[:0], line[i:end]...)
				i = end
				sidx = -1
				state = cond.Dest
				matched = true
			case CondStr2:
				if len(cond.Str) != 2 || i+1 >= n || ch != cond.Str[0] || line[i+1] != cond.Str[1] {
					continue
				}
				paintRange(colors, i, i+2, cond.Color)
				lastCapture = append(lastCapture[:0], line[i:i+2]...)
				i += 2
				sidx = -1
				state = cond.Dest
				matched = true
			case CondRecolor:
				start := i - cond.RecolorLen
				if start < 0 {
					start = 0
				}
				paintRange(colors, start, i, cond.Color)
				continue
			case CondRecolorBuffer:
				start := sidx
				if start < 0 {
					start = i
				}
				paintRange(colors, start, i, cond.Color)
				continue
			case CondHeredocEnd:
				end := i + len(cond.Str)
				if len(cond.Str) == 0 || end > n || string(line[i:end]) != string(cond.Str) {
					continue
				}
				paintRange(colors, i, end, cond.Color)
				i = end
				sidx = -1
				state = cond.Dest
				matched = true
			}
			if matched {
				goto top
			}
		}

		switch state.Kind {
		case StateEat:
			colors[i] = state.ActionColor
			i++
			sidx = -1
			state = state.Dest
		case StateNoEat:
			sidx = -1
			state = state.Dest
		case StateNoEatBuffer:
			state = state.Dest
		case StateHeredocBegin:
			state = state.enterHeredoc(lastCapture)
		}
	}

	return colors, state
}

func bitmapGet(bitmap [32]byte, ch byte) bool {
	return bitmap[ch/8]&(1<<(ch%8)) != 0
}

func matchBuffered(run, want []byte, icase bool) bool {
	if len(run) != len(want) {
		return false
	}
	if !icase {
		for i := range run {
			if run[i] != want[i] {
				return false
			}
		}
		return true
	}
	return equalFold(string(run), string(want))
}

func paintRange(colors []string, from, to int, color string) {
	if from < 0 {
		from = 0
	}
	if to > len(colors) {
		to = len(colors)
	}
	for i := from; i < to; i++ {
		colors[i] = color
	}
}

// enterHeredoc returns the entry state of a copy of s.HeredocSub whose
// heredocend conditions are bound to delim, instantiating and caching one
// copy per distinct delimiter the way the teacher's loader caches one
// merged subsyntax per call site.
func (s *State) enterHeredoc(delim []byte) *State {
	key := string(delim)
	if s.heredocInstances == nil {
		s.heredocInstances = make(map[string]*State)
	}
	if entry, ok := s.heredocInstances[key]; ok {
		return entry
	}
	entry := instantiateSubsyntax(s.HeredocSub, s.HeredocReturn, delim)
	s.heredocInstances[key] = entry
	return entry
}

// Equal reports whether two start states are structurally interchangeable
// for hole-healing purposes. Because heredoc instances and subsyntax
// copies are deduplicated (instantiateSubsyntax, enterHeredoc) rather than
// re-allocated on every use, two starts describe the same continuation
// iff they are the same *State: there is no separate "heredoc offset"
// field on State that could make two otherwise-identical pointers diverge.
func Equal(a, b *State) bool { return a == b }
