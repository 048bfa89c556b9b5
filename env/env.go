// Package env implements the scope model that binds names to values
// while a document is evaluated (spec.md ยง5).
package env

import "strings"

// Value is the tagged union bound to a name: either rendered Text or a
// LoopItem carrying a for-loop iteration's rendered emission and the
// block-namespace produced by compiling that iteration's file.
type Value struct {
	isLoopItem bool

	text          string
	perFileBlocks map[string]string

	loopIndex    int
	loopPosition int
	loopFirst    bool
	loopLast     bool
	loopSize     int
}

// Text constructs a rendered-string Value.
func Text(s string) Value { return Value{text: s} }

// LoopItem constructs a Value describing one for-loop iteration:
// rendered is the captured emission produced by compiling that
// iteration's file (what bare "{{ loop_var }}" emits), blocks is the
// per-file block namespace, index/size locate it within the
// iteration for loop metadata (spec.md ยง4.5, SPEC_FULL ยง3).
func LoopItem(rendered string, blocks map[string]string, index, size int) Value {
	return Value{
		isLoopItem:    true,
		text:          rendered,
		perFileBlocks: blocks,
		loopIndex:     index,
		loopPosition:  index + 1,
		loopFirst:     index == 0,
		loopLast:      index == size-1,
		loopSize:      size,
	}
}

// IsLoopItem reports whether v was built by LoopItem.
func (v Value) IsLoopItem() bool { return v.isLoopItem }

// String renders v as its substitution text.
func (v Value) String() string { return v.text }

// IsEmpty implements spec.md ยง4.2's emptiness test: true iff the
// value's text, after stripping ASCII whitespace, has zero length.
func (v Value) IsEmpty() bool {
	return strings.TrimSpace(v.text) == ""
}

// Block looks up a block name within a LoopItem's per-file namespace.
func (v Value) Block(name string) (Value, bool) {
	if !v.isLoopItem {
		return Value{}, false
	}
	s, ok := v.perFileBlocks[name]
	if !ok {
		return Value{}, false
	}
	return Text(s), true
}

// LoopMeta looks up one of the reserved "loop.*" metadata fields
// against a LoopItem.
func (v Value) LoopMeta(field string) (Value, bool) {
	if !v.isLoopItem {
		return Value{}, false
	}
	switch field {
	case "index":
		return Text(itoa(v.loopIndex)), true
	case "position":
		return Text(itoa(v.loopPosition)), true
	case "first":
		if !v.loopFirst {
			return Value{}, false
		}
		return Text("true"), true
	case "last":
		if !v.loopLast {
			return Value{}, false
		}
		return Text("true"), true
	case "size", "max":
		return Text(itoa(v.loopSize)), true
	default:
		return Value{}, false
	}
}

func itoa(n int) string {
	if n == 0 {
		return "0"
	}
	neg := n < 0
	if neg {
		n = -n
	}
	var buf [20]byte
	i := len(buf)
	for n > 0 {
		i--
		buf[i] = byte('0' + n%10)
		n /= 10
	}
	if neg {
		i--
		buf[i] = '-'
	}
	return string(buf[i:])
}

// Frame is one level of binding: the body of a block, a for-loop
// iteration, or the top-level seed bindings supplied by a caller.
type Frame map[string]Value

// Environment is a stack of Frames, searched innermost-first
// (spec.md ยง4.4).
type Environment struct {
	frames []Frame
}

// New returns an empty Environment with a single base frame.
func New() *Environment {
	return &Environment{frames: []Frame{{}}}
}

// Clone returns an independent copy of e, safe to mutate (via Bind,
// PushFrame, PopFrame) without affecting e itself. Used by vgd to
// compile many entries from one shared seed environment.
func (e *Environment) Clone() *Environment {
	frames := make([]Frame, len(e.frames))
	for i, f := range e.frames {
		nf := make(Frame, len(f))
		for k, v := range f {
			nf[k] = v
		}
		frames[i] = nf
	}
	return &Environment{frames: frames}
}

// PushFrame opens a new binding scope.
func (e *Environment) PushFrame() {
	e.frames = append(e.frames, Frame{})
}

// PopFrame closes the innermost binding scope. It is a no-op on an
// Environment with only its base frame.
func (e *Environment) PopFrame() {
	if len(e.frames) > 1 {
		e.frames = e.frames[:len(e.frames)-1]
	}
}

// Bind sets name to v in the innermost frame. name may itself be a
// dotted path (used by "include ... as alias" to bind "alias.block").
func (e *Environment) Bind(name string, v Value) {
	e.frames[len(e.frames)-1][name] = v
}

// Lookup resolves namePath against the frame stack, innermost frame
// first. It first tries an exact match of the full dotted path
// (covers flat "alias.block" bindings from aliased includes), then
// falls back to splitting on the first '.' and indexing into the
// head binding's LoopItem metadata or per-file blocks (covers
// "item.n", "item.loop.index").
func (e *Environment) Lookup(namePath string) (Value, bool) {
	for i := len(e.frames) - 1; i >= 0; i-- {
		if v, ok := e.frames[i][namePath]; ok {
			return v, true
		}
	}

	head, rest := splitHead(namePath)
	if rest == "" {
		return Value{}, false
	}
	var v Value
	found := false
	for i := len(e.frames) - 1; i >= 0; i-- {
		if val, ok := e.frames[i][head]; ok {
			v, found = val, true
			break
		}
	}
	if !found {
		return Value{}, false
	}
	for rest != "" {
		var seg string
		seg, rest = splitHead(rest)
		if seg == "loop" {
			if rest == "" {
				return Value{}, false
			}
			seg, rest = splitHead(rest)
			mv, ok := v.LoopMeta(seg)
			if !ok {
				return Value{}, false
			}
			v = mv
			continue
		}
		if bv, ok := v.Block(seg); ok {
			v = bv
			continue
		}
		return Value{}, false
	}
	return v, true
}

// Exists reports whether namePath resolves to a binding.
func (e *Environment) Exists(namePath string) bool {
	_, ok := e.Lookup(namePath)
	return ok
}

// IsEmpty reports whether namePath resolves to a binding whose
// textual value is empty; a missing binding is also considered empty.
func (e *Environment) IsEmpty(namePath string) bool {
	v, ok := e.Lookup(namePath)
	if !ok {
		return true
	}
	return v.IsEmpty()
}

func splitHead(namePath string) (head, rest string) {
	idx := strings.IndexByte(namePath, '.')
	if idx == -1 {
		return namePath, ""
	}
	return namePath[:idx], namePath[idx+1:]
}
