// Package syntax implements the incremental highlighter: a per-state
// condition-matching execution engine, a per-line start-state array with
// lazy hole filling, and a loader for the on-disk syntax description
// format.
package syntax

// ConditionKind tags the variant held by a Condition. Conditions are
// matched in order against the byte at the cursor; the first match wins.
type ConditionKind int

const (
	CondCharSet ConditionKind = iota
	CondCharSetBuffered
	CondBufis
	CondInList
	CondStr
	CondStrICase
	CondStr2
	CondRecolor
	CondRecolorBuffer
	CondHeredocEnd
)

// Condition is one test inside a State's ordered condition list. Only the
// fields relevant to Kind are populated; the rest are zero.
type Condition struct {
	Kind ConditionKind

	Bitmap [32]byte // CondCharSet / CondCharSetBuffered: 256-bit membership set

	Str   []byte // CondBufis / CondStr / CondStrICase / CondStr2: literal bytes to match
	ICase bool   // case-insensitive comparison for Bufis / Str variants

	List *WordList // CondInList

	RecolorLen int // CondRecolor: 0 means "recolor the whole buffered run" (CondRecolorBuffer)

	Dest  *State // transition target; nil for CondRecolor/CondRecolorBuffer and for an END destination inside a subsyntax
	Color string // unqualified emit name, resolved by resolveColors at finalize time; Palette.Resolve dot-qualifies it

	// emitRaw is the unqualified emit name as written in the syntax file;
	// empty means "inherit Dest's own emit name", resolved once the whole
	// syntax block has been parsed (Dest may be a forward reference).
	emitRaw string
}

// StateKind is a State's default action, taken when no condition matches.
type StateKind int

const (
	StateEat StateKind = iota
	StateNoEat
	StateNoEatBuffer
	StateHeredocBegin
)

// State is one node of the highlighter automaton.
type State struct {
	Name  string
	Color string // unqualified emit name used when this state is a destination, resolved by resolveColors
	Kind  StateKind

	emitRaw string // unqualified name from `state NAME EMIT`; never empty

	// ActionColor is the default action's own color (painted when Kind's
	// action actually eats a byte); actionEmitRaw, like a condition's, may
	// be empty and then falls back to Dest's emitRaw.
	ActionColor   string
	actionEmitRaw string

	// merged marks a state copied in by mergeSubsyntax from an already-
	// finalized subsyntax: its Color/ActionColor (and its conditions')
	// are copied verbatim, so resolveColors must leave it untouched.
	merged bool

	Conditions []*Condition

	// Dest is the default action's destination for StateEat/StateNoEat/
	// StateNoEatBuffer. For StateHeredocBegin it is unused; HeredocReturn
	// plays that role instead.
	Dest *State

	// HeredocSub/HeredocReturn describe a StateHeredocBegin's pushed
	// subsyntax and its return point (nil HeredocReturn means END: the
	// caller-supplied return state captured at the call site that
	// referenced this syntax as a heredoc body).
	HeredocSub    *Definition
	HeredocReturn *State

	// heredocInstances caches, per captured delimiter, the entry state of
	// a fresh copy of HeredocSub with its heredocend conditions bound to
	// that delimiter -- mirrors add_heredoc_subsyntax's per-delimiter
	// instance cache, so two heredocs with the same delimiter reuse one
	// automaton fragment instead of growing without bound.
	heredocInstances map[string]*State

	defined bool

	// hasAction is set once a terminating eat/noeat/heredocbegin directive
	// has run for this state; closeState rejects a state block that ends
	// without one, since Kind/Dest would otherwise be left zero-valued.
	hasAction bool
}

// WordList is a named set of words tested by CondInList conditions.
type WordList struct {
	Name  string
	ICase bool
	Words map[string]struct{}

	used    bool
	defined bool
}

func (l *WordList) has(s string) bool {
	if l.ICase {
		for w := range l.Words {
			if len(w) == len(s) && equalFold(w, s) {
				return true
			}
		}
		return false
	}
	_, ok := l.Words[s]
	return ok
}

func equalFold(a, b string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := 0; i < len(a); i++ {
		ca, cb := a[i], b[i]
		if 'A' <= ca && ca <= 'Z' {
			ca += 'a' - 'A'
		}
		if 'A' <= cb && cb <= 'Z' {
			cb += 'a' - 'A'
		}
		if ca != cb {
			return false
		}
	}
	return true
}

// Definition is one parsed `syntax NAME ... ` block: a named automaton
// plus its word lists and color aliases. A Definition whose first
// referenced destination is END is a subsyntax: it is never entered
// directly, only invoked from another Definition via a "sub:ret"
// destination or a heredocbegin.
type Definition struct {
	Name string

	States      []*State
	stateByName map[string]*State

	Lists map[string]*WordList

	// DefaultColors aliases emit names to a color name, the `default`
	// directive's effect, applied after the whole file is parsed.
	DefaultColors map[string]string

	IsSubsyntax bool
	HasHeredoc  bool

	used     bool
	sawDest  bool
}

func (d *Definition) sawDestination() bool { return d.sawDest }
func (d *Definition) markDestination()      { d.sawDest = true }

// Unused reports whether this is a subsyntax that no state or heredoc in
// the same load ever referenced -- a definition-authoring mistake the
// loader can flag after parsing a whole file.
func (d *Definition) Unused() bool { return d.IsSubsyntax && !d.used }

// resolveColors fills in every state and condition's emit name, falling
// back to a condition's destination state's emit name when the condition
// named none -- the only point at which a forward-declared Dest's name
// needs to be known, so it runs once the whole syntax block has been
// parsed. Names are left unqualified here; Palette.Resolve dot-qualifies
// them against this Definition at paint time.
func (d *Definition) resolveColors() {
	for _, st := range d.States {
		if st.merged {
			continue
		}
		st.Color = st.emitRaw
	}
	for _, st := range d.States {
		if st.merged {
			continue
		}
		actionName := st.actionEmitRaw
		if actionName == "" && st.Dest != nil {
			actionName = st.Dest.emitRaw
		}
		st.ActionColor = actionName

		for _, c := range st.Conditions {
			name := c.emitRaw
			if name == "" && c.Dest != nil {
				name = c.Dest.emitRaw
			}
			c.Color = name
		}
	}
}

func newDefinition(name string) *Definition {
	return &Definition{
		Name:          name,
		stateByName:   make(map[string]*State),
		Lists:         make(map[string]*WordList),
		DefaultColors: make(map[string]string),
	}
}

func (d *Definition) addState(name string, defined bool) *State {
	if st, ok := d.stateByName[name]; ok {
		if defined && !st.defined {
			st.defined = true
		}
		return st
	}
	st := &State{Name: name, defined: defined}
	d.stateByName[name] = st
	d.States = append(d.States, st)
	return st
}

func (d *Definition) addList(name string) *WordList {
	if l, ok := d.Lists[name]; ok {
		return l
	}
	l := &WordList{Name: name, Words: make(map[string]struct{})}
	d.Lists[name] = l
	return l
}
