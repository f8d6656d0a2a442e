package schema

// ResolverKind distinguishes the variants of ResolverRecord, mirroring
// spec.md §3's `Resolver` union
// (`GraphqlRootField|GraphqlFederationEntity|Introspection|
// FieldResolverExtension|SelectionSetResolverExtension|Lookup`).
type ResolverKind string

const (
	ResolverGraphqlRootField        ResolverKind = "GRAPHQL_ROOT_FIELD"
	ResolverGraphqlFederationEntity ResolverKind = "GRAPHQL_FEDERATION_ENTITY"
	ResolverIntrospection           ResolverKind = "INTROSPECTION"
	ResolverFieldExtension          ResolverKind = "FIELD_RESOLVER_EXTENSION"
	ResolverSelectionSetExtension   ResolverKind = "SELECTION_SET_RESOLVER_EXTENSION"
	ResolverLookup                  ResolverKind = "LOOKUP"
)

// ResolverRecord is the storage record for one candidate resolver. Only the
// fields relevant to Kind are populated; this mirrors the teacher's tagged
// FieldResolveBySource/ByResolver/ByLoader split
// (internal/ir/types.go), generalized to the six ResolverKind variants.
type ResolverRecord struct {
	Kind ResolverKind

	// Subgraph is set for GraphqlRootField and GraphqlFederationEntity.
	Subgraph SubgraphID

	// Field is the root field this resolver serves, for GraphqlRootField.
	Field FieldID

	// KeySelection is the `@key` selection set consumed by an
	// entity resolver's `_entities(representations: ...)` request.
	KeySelection *RequiredSelectionSet

	// ExtensionID + DirectiveArgs identify a hosted extension capability and
	// the (already-validated) arguments of the directive that requested it,
	// for FieldResolverExtension / SelectionSetResolverExtension.
	ExtensionID   string
	DirectiveArgs map[string]any

	// Inner + Batch describe a Lookup resolver: it derives its value from
	// another resolver, optionally batched.
	Inner ResolverID
	Batch bool
}

type Resolver struct {
	id ResolverID
	s  *Schema
}

func (s *Schema) Resolver(id ResolverID) Resolver { return Resolver{id: id, s: s} }
func (r Resolver) ID() ResolverID                 { return r.id }
func (r Resolver) rec() *ResolverRecord           { return &r.s.resolvers[r.id] }
func (r Resolver) Kind() ResolverKind             { return r.rec().Kind }

func (r Resolver) Subgraph() Subgraph { return r.s.Subgraph(r.rec().Subgraph) }
func (r Resolver) Field() Field       { return r.s.Field(r.rec().Field) }

func (r Resolver) KeySelection() *RequiredSelectionSet { return r.rec().KeySelection }

func (r Resolver) ExtensionID() string            { return r.rec().ExtensionID }
func (r Resolver) DirectiveArgs() map[string]any  { return r.rec().DirectiveArgs }

func (r Resolver) Inner() Resolver { return r.s.Resolver(r.rec().Inner) }
func (r Resolver) Batch() bool     { return r.rec().Batch }
