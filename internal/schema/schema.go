package schema

// Well-known directive names recognized by the planner and builder. Names
// are matched case-sensitively against subgraph SDL, as GraphQL requires.
const (
	DirectiveKey            = "key"
	DirectiveRequires       = "requires"
	DirectiveProvides       = "provides"
	DirectiveOverride       = "override"
	DirectiveInaccessible   = "inaccessible"
	DirectiveAuthenticated  = "authenticated"
	DirectiveRequiresScopes = "requiresScopes"
	DirectiveAuthorized     = "authorized"
	DirectiveJoinField      = "join__field"
	DirectiveJoinImplements = "join__implements"
	DirectiveJoinType       = "join__type"
	DirectiveListSize       = "listSize"
	DirectiveSkip           = "skip"
	DirectiveInclude        = "include"
)

// Schema is the immutable, indexed supergraph model. It is built once (via
// Builder) and shared read-only for the lifetime of a deployment version;
// Contracts.Finalize is the last build step that writes to it. No code in
// this module replaces a live *Schema; requests keep the reference they
// captured at bind time.
type Schema struct {
	QueryType        TypeID
	MutationType     TypeID
	SubscriptionType TypeID

	types         []TypeRecord
	fields        []FieldRecord
	arguments     []ArgumentRecord
	inputFields   []InputFieldRecord
	enumValues    []EnumValueRecord
	directiveDefs []DirectiveDefRecord
	subgraphs     []SubgraphRecord
	resolvers     []ResolverRecord
	entityKeys    []EntityKeyRecord

	typeByName      map[string]TypeID
	subgraphByName  map[string]SubgraphID
	directiveByName map[string]DirectiveID
}

// LookupType returns the TypeID for a named type, if present.
func (s *Schema) LookupType(name string) (TypeID, bool) {
	id, ok := s.typeByName[name]
	return id, ok
}

// FieldByName returns the FieldID for a field declared on the given type.
func (s *Schema) FieldByName(t TypeID, name string) (FieldID, bool) {
	for _, id := range s.types[t].Fields {
		if s.fields[id].Name == name {
			return id, true
		}
	}
	return NoField, false
}

// LookupSubgraph returns the SubgraphID for a named subgraph, if present.
func (s *Schema) LookupSubgraph(name string) (SubgraphID, bool) {
	id, ok := s.subgraphByName[name]
	return id, ok
}

// LookupDirective returns the DirectiveID for a named directive definition.
func (s *Schema) LookupDirective(name string) (DirectiveID, bool) {
	id, ok := s.directiveByName[name]
	return id, ok
}

// IterSubgraphs returns walkers for every subgraph, in build order.
func (s *Schema) IterSubgraphs() []Subgraph {
	out := make([]Subgraph, len(s.subgraphs))
	for i := range s.subgraphs {
		out[i] = s.Subgraph(SubgraphID(i))
	}
	return out
}

// IterResolversFor returns every candidate resolver for a field.
func (s *Schema) IterResolversFor(f FieldID) []Resolver {
	return s.Field(f).Resolvers()
}

// IterTypes returns walkers for every named type, in build order.
func (s *Schema) IterTypes() []Type {
	out := make([]Type, len(s.types))
	for i := range s.types {
		out[i] = s.Type(TypeID(i))
	}
	return out
}

// IterDirectiveDefs returns walkers for every directive definition, in build
// order (built-ins first, then each subgraph's custom directives).
func (s *Schema) IterDirectiveDefs() []DirectiveDef {
	out := make([]DirectiveDef, len(s.directiveDefs))
	for i := range s.directiveDefs {
		out[i] = s.DirectiveDef(DirectiveID(i))
	}
	return out
}

// QueryRoot/MutationRoot/SubscriptionRoot return the walker for the
// corresponding root type, or the zero Type if the schema has none.
func (s *Schema) QueryRoot() Type { return s.Type(s.QueryType) }
func (s *Schema) MutationRoot() Type {
	if s.MutationType == NoType {
		return Type{}
	}
	return s.Type(s.MutationType)
}
func (s *Schema) SubscriptionRoot() Type {
	if s.SubscriptionType == NoType {
		return Type{}
	}
	return s.Type(s.SubscriptionType)
}

// HasDirective reports whether a directive site carries the named directive
// and returns its use (first occurrence — only `@requiresScopes` is
// meaningfully repeatable, and planner logic ORs across repeats itself).
func HasDirective(uses []DirectiveUse, s *Schema, name string) (DirectiveUse, bool) {
	for _, u := range uses {
		if s.directiveDefs[u.Definition].Name == name {
			return u, true
		}
	}
	return DirectiveUse{}, false
}

// AllDirectives returns every use of the named directive at a site (for
// repeatable directives like `@requiresScopes`).
func AllDirectives(uses []DirectiveUse, s *Schema, name string) []DirectiveUse {
	var out []DirectiveUse
	for _, u := range uses {
		if s.directiveDefs[u.Definition].Name == name {
			out = append(out, u)
		}
	}
	return out
}
