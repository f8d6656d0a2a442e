package schema

// Contracts accumulates directive-site inaccessibility marks before
// finalize() computes the transitive closure described in spec.md §3's
// invariants: a union whose members are all inaccessible becomes
// inaccessible, and an interface with no accessible implementors becomes
// unreachable.
type Contracts struct {
	s              *Schema
	inaccessibleTypes  map[TypeID]bool
	inaccessibleFields map[FieldID]bool
}

// NewContracts begins a contracts pass over s. Call MarkTypeInaccessible /
// MarkFieldInaccessible as needed from `@inaccessible` directive uses found
// during Build, then call Finalize once.
func NewContracts(s *Schema) *Contracts {
	return &Contracts{
		s:                  s,
		inaccessibleTypes:  map[TypeID]bool{},
		inaccessibleFields: map[FieldID]bool{},
	}
}

func (c *Contracts) MarkTypeInaccessible(id TypeID)   { c.inaccessibleTypes[id] = true }
func (c *Contracts) MarkFieldInaccessible(id FieldID) { c.inaccessibleFields[id] = true }

// Finalize computes the transitive closure of inaccessibility and writes it
// into the schema's records. It must be the last step of Build.
func (c *Contracts) Finalize() {
	s := c.s
	for id := range c.inaccessibleFields {
		s.fields[id].Inaccessible = true
	}
	for id := range c.inaccessibleTypes {
		s.types[id].Inaccessible = true
	}

	// Fixed-point closure: a union is inaccessible once every member is; an
	// interface is unreachable once it has no accessible possible type.
	// Converges in at most len(types) passes since inaccessibility only
	// grows monotonically.
	for changed := true; changed; {
		changed = false
		for i := range s.types {
			t := &s.types[i]
			if t.Inaccessible {
				continue
			}
			switch t.Kind {
			case TypeKindUnion:
				if allInaccessible(s, t.PossibleTypes) {
					t.Inaccessible = true
					changed = true
				}
			case TypeKindInterface:
				if len(t.PossibleTypes) > 0 && allInaccessible(s, t.PossibleTypes) {
					t.Inaccessible = true
					changed = true
				}
			}
		}
	}
}

func allInaccessible(s *Schema, ids []TypeID) bool {
	if len(ids) == 0 {
		return false
	}
	for _, id := range ids {
		if !s.types[id].Inaccessible {
			return false
		}
	}
	return true
}
