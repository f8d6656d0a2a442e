package responsetree

import (
	"strconv"
	"strings"
)

// PathElement is either a response-key string (object field) or an int
// (list index), mirroring the teacher's `PathElement any` (executor.Path).
type PathElement any

// Path is a response-tree location, root to leaf.
type Path []PathElement

// Append returns a new Path with elem appended; the receiver is never
// mutated so callers can branch a path for siblings safely.
func (p Path) Append(elem PathElement) Path {
	out := make(Path, len(p)+1)
	copy(out, p)
	out[len(p)] = elem
	return out
}

// String renders a path as "a.b[2].c", used as the tombstone-map key and
// for human-readable error messages.
func (p Path) String() string {
	var b strings.Builder
	for i, e := range p {
		switch v := e.(type) {
		case string:
			if i > 0 {
				b.WriteByte('.')
			}
			b.WriteString(v)
		case int:
			b.WriteByte('[')
			b.WriteString(strconv.Itoa(v))
			b.WriteByte(']')
		}
	}
	return b.String()
}

// TopLevelField returns the path truncated to its first element — the
// root-selection-set field name the executor nulls out when a deeply
// nested non-null violation has nowhere nullable to propagate to short of
// the operation root.
func (p Path) TopLevelField() Path {
	if len(p) == 0 {
		return p
	}
	return p[:1]
}
