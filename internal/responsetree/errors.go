package responsetree

// GraphQLError is one entry of a response's top-level `errors` array, per
// the GraphQL spec's error result format.
type GraphQLError struct {
	Message    string
	Path       Path
	Extensions map[string]any
}

// Serialize renders a GraphQLError into the JSON shape the GraphQL spec
// requires (`message`, `path`, `extensions`; `locations` is left to the
// transport layer, which has the source document's line/column table).
func (e GraphQLError) Serialize() map[string]any {
	out := map[string]any{"message": e.Message}
	if len(e.Path) > 0 {
		path := make([]any, len(e.Path))
		for i, elem := range e.Path {
			path[i] = elem
		}
		out["path"] = path
	}
	if len(e.Extensions) > 0 {
		out["extensions"] = e.Extensions
	}
	return out
}
