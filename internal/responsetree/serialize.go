package responsetree

// Serialize walks the arena from id and produces the native Go
// map[string]any / []any / scalar value the transport layer JSON-encodes
// as the `data` member of the response.
func (t *Tree) Serialize(id NodeID) any {
	if t.IsNullish(id) {
		return nil
	}
	n := t.nodes[id]
	switch n.Kind {
	case KindScalar:
		return n.Scalar
	case KindList:
		out := make([]any, len(n.Items))
		for i, item := range n.Items {
			out[i] = t.Serialize(item)
		}
		return out
	case KindObject:
		out := make(map[string]any, len(n.Fields))
		for _, f := range n.Fields {
			out[f.Name] = t.Serialize(f.Value)
		}
		return out
	default:
		return nil
	}
}

// Response is the top-level JSON shape returned to clients.
type Response struct {
	Data   any              `json:"data,omitempty"`
	Errors []map[string]any `json:"errors,omitempty"`
}

// SerializeResponse renders the whole tree, including the accumulated
// error list, in GraphQL response-envelope shape. If the root itself was
// nullified, Data is omitted entirely rather than serialized as null,
// matching the GraphQL-over-HTTP convention of dropping `data` when the
// whole operation failed before producing a result.
func (t *Tree) SerializeResponse() Response {
	resp := Response{}
	if !t.HasNullifiedPrefix(nil) {
		resp.Data = t.Serialize(t.Root)
	}
	for _, e := range t.Errors {
		resp.Errors = append(resp.Errors, e.Serialize())
	}
	return resp
}
