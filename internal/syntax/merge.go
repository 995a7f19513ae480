package syntax

// mergeSubsyntax copies every state of sub into fresh State values, and
// returns the copy of sub's first state (its entry point). Every
// destination that pointed at sub's own states now points at the
// corresponding copy; every destination that meant END (nil in the
// parsed subsyntax, since END is only legal inside a subsyntax) now
// points at ret instead. When delim is non-nil, any heredocend
// condition's empty Str is bound to it -- this is how a single syntax
// file heredocend directive becomes a concrete byte match once the
// buffer supplies an actual delimiter.
//
// If dst is non-nil the copies are also appended to dst.States, the way
// the teacher's merge_syntax appends into the calling syntax's own state
// list for an eager "subsyntax:returnstate" destination. Heredoc
// instantiation passes a nil dst: those copies are reachable only through
// the cache on the State that pushed them, never listed in any
// Definition's own States.
func mergeSubsyntax(dst *Definition, sub *Definition, ret *State, delim []byte) *State {
	if sub == nil || len(sub.States) == 0 {
		return ret
	}

	copies := make(map[*State]*State, len(sub.States))
	for _, st := range sub.States {
		copies[st] = &State{Name: sub.Name + ":" + st.Name, Color: st.Color, emitRaw: st.emitRaw, ActionColor: st.ActionColor, merged: true, defined: true}
	}

	resolve := func(orig *State) *State {
		if orig == nil {
			return ret
		}
		if c, ok := copies[orig]; ok {
			return c
		}
		return orig
	}

	for _, st := range sub.States {
		c := copies[st]
		c.Kind = st.Kind
		c.Dest = resolve(st.Dest)
		c.HeredocSub = st.HeredocSub
		c.HeredocReturn = resolve(st.HeredocReturn)
		c.Conditions = make([]*Condition, len(st.Conditions))
		for i, cond := range st.Conditions {
			nc := &Condition{
				Kind:       cond.Kind,
				Bitmap:     cond.Bitmap,
				Str:        cond.Str,
				ICase:      cond.ICase,
				List:       cond.List,
				RecolorLen: cond.RecolorLen,
				Color:      cond.Color,
				Dest:       resolve(cond.Dest),
			}
			if delim != nil && nc.Kind == CondHeredocEnd {
				nc.Str = append([]byte(nil), delim...)
			}
			c.Conditions[i] = nc
		}
	}

	if dst != nil {
		for _, st := range sub.States {
			dst.States = append(dst.States, copies[st])
		}
	}

	return copies[sub.States[0]]
}

// instantiateSubsyntax is mergeSubsyntax's entry point for a runtime
// heredoc push: a fresh, uncached copy bound to delim. Callers (State.
// enterHeredoc) are responsible for caching the result per delimiter.
func instantiateSubsyntax(sub *Definition, ret *State, delim []byte) *State {
	return mergeSubsyntax(nil, sub, ret, delim)
}
