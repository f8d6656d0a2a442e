package responsetree

// NodeID addresses one node in a Tree's arena.
type NodeID int32

// NoNode is the zero value for a NodeID slot that has not been set yet
// (an object field whose value hasn't arrived, or a list slot not yet
// filled in).
const NoNode NodeID = -1

// NodeKind distinguishes the four shapes a response-tree node can take.
type NodeKind uint8

const (
	KindNull NodeKind = iota
	KindScalar
	KindList
	KindObject
)

// objectField is one insertion-ordered (responseName, value) pair of an
// object node. Name is the string response key rather than an
// operation.ResponseKey so the tree has no dependency on the operation
// package — it is shared by every resolver variant, including ones (like
// introspection) that never bind an Operation at all.
type objectField struct {
	Name  string
	Value NodeID
}

// Node is one arena entry. Only the field(s) matching Kind are populated.
type Node struct {
	Kind   NodeKind
	Scalar any
	Items  []NodeID
	Fields []objectField
}

// Tree is the arena-backed response document for one request, built up by
// the executor as subgraph fetches complete and serialized once execution
// finishes.
type Tree struct {
	nodes []Node
	Root  NodeID

	Errors []GraphQLError

	// nullified records every path whose nearest non-null ancestor has
	// already been nulled out, so later writes/errors under that prefix are
	// silently dropped instead of double-reported — ported from the
	// teacher's `nullifiedPrefix` tombstone map (executor.executionState).
	nullified map[string]struct{}
}

// New creates an empty Tree with an object node pre-allocated as Root.
func New() *Tree {
	t := &Tree{nullified: map[string]struct{}{}}
	t.Root = t.NewObject()
	return t
}

func (t *Tree) alloc(n Node) NodeID {
	id := NodeID(len(t.nodes))
	t.nodes = append(t.nodes, n)
	return id
}

// NewObject allocates an empty object node and returns its id.
func (t *Tree) NewObject() NodeID { return t.alloc(Node{Kind: KindObject}) }

// NewList allocates a list node with n slots, all initially NoNode.
func (t *Tree) NewList(n int) NodeID {
	items := make([]NodeID, n)
	for i := range items {
		items[i] = NoNode
	}
	return t.alloc(Node{Kind: KindList, Items: items})
}

// NewScalar allocates a leaf scalar/enum value node.
func (t *Tree) NewScalar(v any) NodeID { return t.alloc(Node{Kind: KindScalar, Scalar: v}) }

// NewNull allocates a null node.
func (t *Tree) NewNull() NodeID { return t.alloc(Node{Kind: KindNull}) }

// Node returns the node at id.
func (t *Tree) Node(id NodeID) Node { return t.nodes[id] }

// SetField upserts (name -> value) on an object node, preserving the
// response-key ordering of first insertion (GraphQL requires object field
// order follow selection order).
func (t *Tree) SetField(objID NodeID, name string, value NodeID) {
	n := &t.nodes[objID]
	for i := range n.Fields {
		if n.Fields[i].Name == name {
			n.Fields[i].Value = value
			return
		}
	}
	n.Fields = append(n.Fields, objectField{Name: name, Value: value})
}

// FieldValue returns the NodeID stored at name on an object node, or
// NoNode if unset.
func (t *Tree) FieldValue(objID NodeID, name string) NodeID {
	for _, f := range t.nodes[objID].Fields {
		if f.Name == name {
			return f.Value
		}
	}
	return NoNode
}

// SetListItem sets the value at index idx of a list node.
func (t *Tree) SetListItem(listID NodeID, idx int, value NodeID) {
	t.nodes[listID].Items[idx] = value
}

// IsNullish reports whether id refers to a null node or is NoNode (value
// never arrived), mirroring the teacher's `isNullish` helper.
func (t *Tree) IsNullish(id NodeID) bool {
	return id == NoNode || t.nodes[id].Kind == KindNull
}

// AddError appends a GraphQLError unless its path already falls under a
// previously nullified prefix (the error has already been reported via the
// ancestor that swallowed it).
func (t *Tree) AddError(err GraphQLError) {
	if t.HasNullifiedPrefix(err.Path) {
		return
	}
	t.Errors = append(t.Errors, err)
}

// MarkNullifiedPrefix records that every path under prefix has already been
// collapsed to null, so later writes/errors targeting it are no-ops.
func (t *Tree) MarkNullifiedPrefix(prefix Path) {
	t.nullified[prefix.String()] = struct{}{}
}

// HasNullifiedPrefix reports whether path falls under (or equals) any
// previously marked nullified prefix.
func (t *Tree) HasNullifiedPrefix(path Path) bool {
	for i := len(path); i >= 0; i-- {
		if _, ok := t.nullified[path[:i].String()]; ok {
			return true
		}
	}
	return false
}
