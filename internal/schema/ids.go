// Package schema holds the immutable, indexed representation of a composed
// supergraph: types, fields, directives, subgraphs, entity keys and
// resolvers. Every entity is addressed by a dense integer id; walkers pair an
// id with the owning *Schema so callers get value-type ergonomics without
// copying the underlying arenas.
package schema

// TypeID identifies a named type (object, interface, union, enum, input,
// scalar) within a Schema. Ids are dense and start at zero.
type TypeID int32

// FieldID identifies a field definition on an object or interface type.
type FieldID int32

// ArgumentID identifies an argument definition on a field or directive.
type ArgumentID int32

// InputFieldID identifies a field of an input object type.
type InputFieldID int32

// EnumValueID identifies a member of an enum type.
type EnumValueID int32

// DirectiveID identifies a directive definition.
type DirectiveID int32

// SubgraphID identifies a subgraph owned by the supergraph.
type SubgraphID int32

// ResolverID identifies one candidate resolver for a field or entity.
type ResolverID int32

// EntityKeyID identifies one `@key` selection set declared on an
// object/interface, possibly by more than one subgraph.
type EntityKeyID int32

const (
	// NoType is the zero value for a TypeID slot that has not been set.
	NoType TypeID = -1
	// NoField is the zero value for a FieldID slot that has not been set.
	NoField FieldID = -1
	// NoResolver marks a field resolved inline by whatever subgraph produced
	// its parent object, needing no distinct Resolver of its own (the
	// common case for non-entity nested object/scalar fields).
	NoResolver ResolverID = -1
	// NoSubgraph marks a QueryPartition that isn't backed by any upstream
	// subgraph — currently only the introspection partition, which the
	// executor answers out of the Schema itself.
	NoSubgraph SubgraphID = -1
)
