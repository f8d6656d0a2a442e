package schema

// TypeKind is the GraphQL kind of a named type.
type TypeKind string

const (
	TypeKindScalar      TypeKind = "SCALAR"
	TypeKindObject      TypeKind = "OBJECT"
	TypeKindInterface   TypeKind = "INTERFACE"
	TypeKindUnion       TypeKind = "UNION"
	TypeKindEnum        TypeKind = "ENUM"
	TypeKindInputObject TypeKind = "INPUT_OBJECT"
)

// TypeRecord is the storage record for a named type. Records are never
// mutated after Build/finalize; Type is the read-only walker over one.
type TypeRecord struct {
	Name        string
	Kind        TypeKind
	Description string

	// Fields holds the FieldIDs declared on an OBJECT or INTERFACE type, in
	// SDL declaration order.
	Fields []FieldID

	// Implements holds the interfaces a OBJECT/INTERFACE type declares via
	// `implements`, independent of any per-subgraph join metadata.
	Implements []TypeID

	// PossibleTypes holds, for INTERFACE and UNION types, the concrete
	// object TypeIDs that can occur at this position.
	PossibleTypes []TypeID

	// EnumValues holds the EnumValueIDs of an ENUM type, in declaration order.
	EnumValues []EnumValueID

	// InputFields holds the InputFieldIDs of an INPUT_OBJECT type.
	InputFields []InputFieldID

	// EntityKeys holds the `@key` declarations on this type, if it is an
	// entity (object or interface with at least one resolvable key).
	EntityKeys []EntityKeyID

	Directives []DirectiveUse

	// Inaccessible is computed by finalize(): true if every directive site
	// reachable from this type is inaccessible, or if it was marked
	// directly via the contracts API.
	Inaccessible bool
}

// Type is a walker over a TypeRecord.
type Type struct {
	id TypeID
	s  *Schema
}

func (s *Schema) Type(id TypeID) Type { return Type{id: id, s: s} }

func (t Type) ID() TypeID { return t.id }
func (t Type) rec() *TypeRecord { return &t.s.types[t.id] }
func (t Type) Name() string        { return t.rec().Name }
func (t Type) Kind() TypeKind      { return t.rec().Kind }
func (t Type) Description() string { return t.rec().Description }
func (t Type) Inaccessible() bool  { return t.rec().Inaccessible }

func (t Type) Fields() []Field {
	ids := t.rec().Fields
	out := make([]Field, len(ids))
	for i, id := range ids {
		out[i] = t.s.Field(id)
	}
	return out
}

func (t Type) FieldByName(name string) (Field, bool) {
	for _, id := range t.rec().Fields {
		if t.s.fields[id].Name == name {
			return t.s.Field(id), true
		}
	}
	return Field{}, false
}

func (t Type) Implements() []Type {
	ids := t.rec().Implements
	out := make([]Type, len(ids))
	for i, id := range ids {
		out[i] = t.s.Type(id)
	}
	return out
}

func (t Type) PossibleTypes() []Type {
	ids := t.rec().PossibleTypes
	out := make([]Type, len(ids))
	for i, id := range ids {
		out[i] = t.s.Type(id)
	}
	return out
}

// EntityKeys returns the walkers for this type's `@key` declarations.
func (t Type) EntityKeys() []EntityKey {
	ids := t.rec().EntityKeys
	out := make([]EntityKey, len(ids))
	for i, id := range ids {
		out[i] = t.s.EntityKey(id)
	}
	return out
}

// IsEntity reports whether the type has at least one resolvable `@key`.
func (t Type) IsEntity() bool {
	for _, id := range t.rec().EntityKeys {
		if t.s.entityKeys[id].Resolvable {
			return true
		}
	}
	return false
}

func (t Type) Directives() []DirectiveUse { return t.rec().Directives }

// InputFields returns the walkers for an INPUT_OBJECT type's fields.
func (t Type) InputFields() []InputField {
	ids := t.rec().InputFields
	out := make([]InputField, len(ids))
	for i, id := range ids {
		out[i] = t.s.InputField(id)
	}
	return out
}

// EnumValues returns the walkers for an ENUM type's members.
func (t Type) EnumValues() []EnumValue {
	ids := t.rec().EnumValues
	out := make([]EnumValue, len(ids))
	for i, id := range ids {
		out[i] = t.s.EnumValue(id)
	}
	return out
}

// FieldRecord is the storage record for a field definition.
type FieldRecord struct {
	ParentType TypeID
	Name       string
	Description string
	Args       []ArgumentID
	Type       *TypeExpr
	Directives []DirectiveUse

	// ExistsInSubgraphs lists the subgraphs whose SDL declares this field
	// (via `@join__field(graph: ...)` or implicit ownership).
	ExistsInSubgraphs []SubgraphID

	// Resolvers lists every candidate ResolverID that can produce this
	// field's value. A field may have more than one (root field in one
	// subgraph, plus reachability through an entity resolver of an
	// ancestor key in another).
	Resolvers []ResolverID

	// ListSize is the build-time-resolved `@listSize` directive, if any.
	ListSize *ListSize

	Inaccessible bool
}

// ListSize is a field's `@listSize` directive with its `slicingArguments`/
// `sizedFields` names already bound to concrete ArgumentID/FieldID, per
// spec.md §4.1's "Algorithm notes": a cost estimator consults this to size
// a list-returning field before the request is even sent, rather than
// parsing directive strings at plan time.
type ListSize struct {
	AssumedSize               *int
	SlicingArguments          []ArgumentID
	SizedFields               []FieldID
	RequireOneSlicingArgument bool
}

type Field struct {
	id FieldID
	s  *Schema
}

func (s *Schema) Field(id FieldID) Field { return Field{id: id, s: s} }

func (f Field) ID() FieldID          { return f.id }
func (f Field) rec() *FieldRecord    { return &f.s.fields[f.id] }
func (f Field) ParentType() Type     { return f.s.Type(f.rec().ParentType) }
func (f Field) Name() string         { return f.rec().Name }
func (f Field) Description() string  { return f.rec().Description }
func (f Field) Type() *TypeExpr      { return f.rec().Type }
func (f Field) Inaccessible() bool   { return f.rec().Inaccessible }
func (f Field) Directives() []DirectiveUse { return f.rec().Directives }
func (f Field) ListSize() *ListSize         { return f.rec().ListSize }

func (f Field) Args() []Argument {
	ids := f.rec().Args
	out := make([]Argument, len(ids))
	for i, id := range ids {
		out[i] = f.s.Argument(id)
	}
	return out
}

func (f Field) ArgByName(name string) (Argument, bool) {
	for _, id := range f.rec().Args {
		if f.s.arguments[id].Name == name {
			return f.s.Argument(id), true
		}
	}
	return Argument{}, false
}

// RequiresSelection parses this field's `@requires(fields: ...)` directive,
// if any, against its parent type. Parse failures are surfaced as `ok =
// false` rather than an error, the same as an absent directive. The builder
// does not parse `@requires` strings, so a malformed one is first noticed
// here.
func (f Field) RequiresSelection() (*RequiredSelectionSet, bool) {
	use, ok := HasDirective(f.rec().Directives, f.s, DirectiveRequires)
	if !ok {
		return nil, false
	}
	raw, _ := use.Args["fields"].(string)
	sel, err := ParseFieldSet(f.s, f.rec().ParentType, raw)
	if err != nil {
		return nil, false
	}
	return sel, true
}

// ProvidesSelection parses this field's `@provides(fields: ...)` directive,
// if any, against its own return type: the extra sub-fields this field's
// resolver can additionally supply on the object it returns, letting a
// child selection resolve inline here instead of crossing to that field's
// nominal owning subgraph.
func (f Field) ProvidesSelection() (*RequiredSelectionSet, bool) {
	use, ok := HasDirective(f.rec().Directives, f.s, DirectiveProvides)
	if !ok {
		return nil, false
	}
	raw, _ := use.Args["fields"].(string)
	sel, err := ParseFieldSet(f.s, f.rec().Type.NamedTypeID(), raw)
	if err != nil {
		return nil, false
	}
	return sel, true
}

func (f Field) ExistsInSubgraphs() []Subgraph {
	ids := f.rec().ExistsInSubgraphs
	out := make([]Subgraph, len(ids))
	for i, id := range ids {
		out[i] = f.s.Subgraph(id)
	}
	return out
}

func (f Field) Resolvers() []Resolver {
	ids := f.rec().Resolvers
	out := make([]Resolver, len(ids))
	for i, id := range ids {
		out[i] = f.s.Resolver(id)
	}
	return out
}

// ArgumentRecord is the storage record for an argument definition (on a
// field or a directive).
type ArgumentRecord struct {
	Name         string
	Description  string
	Type         *TypeExpr
	DefaultValue any
}

type Argument struct {
	id ArgumentID
	s  *Schema
}

func (s *Schema) Argument(id ArgumentID) Argument { return Argument{id: id, s: s} }
func (a Argument) ID() ArgumentID                 { return a.id }
func (a Argument) rec() *ArgumentRecord           { return &a.s.arguments[a.id] }
func (a Argument) Name() string                   { return a.rec().Name }
func (a Argument) Description() string            { return a.rec().Description }
func (a Argument) Type() *TypeExpr                { return a.rec().Type }
func (a Argument) DefaultValue() any              { return a.rec().DefaultValue }

// InputFieldRecord is the storage record for a field of an input object.
type InputFieldRecord struct {
	ParentType   TypeID
	Name         string
	Description  string
	Type         *TypeExpr
	DefaultValue any
}

type InputField struct {
	id InputFieldID
	s  *Schema
}

func (s *Schema) InputField(id InputFieldID) InputField { return InputField{id: id, s: s} }
func (i InputField) ID() InputFieldID                   { return i.id }
func (i InputField) rec() *InputFieldRecord             { return &i.s.inputFields[i.id] }
func (i InputField) Name() string                       { return i.rec().Name }
func (i InputField) Description() string                { return i.rec().Description }
func (i InputField) Type() *TypeExpr                    { return i.rec().Type }
func (i InputField) DefaultValue() any                  { return i.rec().DefaultValue }

// EnumValueRecord is the storage record for one enum member.
type EnumValueRecord struct {
	ParentType  TypeID
	Name        string
	Description string
	Deprecated  bool
	DeprecationReason string
}

type EnumValue struct {
	id EnumValueID
	s  *Schema
}

func (s *Schema) EnumValue(id EnumValueID) EnumValue { return EnumValue{id: id, s: s} }
func (e EnumValue) ID() EnumValueID                  { return e.id }
func (e EnumValue) rec() *EnumValueRecord            { return &e.s.enumValues[e.id] }
func (e EnumValue) Name() string                     { return e.rec().Name }
func (e EnumValue) Description() string              { return e.rec().Description }
func (e EnumValue) Deprecated() bool                  { return e.rec().Deprecated }
func (e EnumValue) DeprecationReason() string         { return e.rec().DeprecationReason }

// DirectiveDefRecord is the storage record for a directive definition.
type DirectiveDefRecord struct {
	Name       string
	Args       []ArgumentID
	Repeatable bool
	Locations  []string
}

type DirectiveDef struct {
	id DirectiveID
	s  *Schema
}

func (s *Schema) DirectiveDef(id DirectiveID) DirectiveDef { return DirectiveDef{id: id, s: s} }
func (d DirectiveDef) ID() DirectiveID                     { return d.id }
func (d DirectiveDef) rec() *DirectiveDefRecord            { return &d.s.directiveDefs[d.id] }
func (d DirectiveDef) Name() string                        { return d.rec().Name }
func (d DirectiveDef) Repeatable() bool                    { return d.rec().Repeatable }
func (d DirectiveDef) Locations() []string                 { return d.rec().Locations }

func (d DirectiveDef) Args() []Argument {
	ids := d.rec().Args
	out := make([]Argument, len(ids))
	for i, id := range ids {
		out[i] = d.s.Argument(id)
	}
	return out
}

// DirectiveUse is one application of a directive at a site, with already
// schema-validated argument values keyed by argument name.
type DirectiveUse struct {
	Definition DirectiveID
	Args       map[string]any
}

// TypeExprKind distinguishes the three ways a type reference can be wrapped.
type TypeExprKind string

const (
	TypeExprKindNamed   TypeExprKind = "NAMED"
	TypeExprKindList    TypeExprKind = "LIST"
	TypeExprKindNonNull TypeExprKind = "NON_NULL"
)

// TypeExpr is a (possibly wrapped) reference to a named type, e.g. `[User!]!`.
type TypeExpr struct {
	Kind   TypeExprKind
	OfType *TypeExpr
	Named  TypeID
}

func NamedTypeExpr(id TypeID) *TypeExpr { return &TypeExpr{Kind: TypeExprKindNamed, Named: id} }
func ListTypeExpr(of *TypeExpr) *TypeExpr {
	return &TypeExpr{Kind: TypeExprKindList, OfType: of}
}
func NonNullTypeExpr(of *TypeExpr) *TypeExpr {
	return &TypeExpr{Kind: TypeExprKindNonNull, OfType: of}
}

func (t *TypeExpr) IsNonNull() bool { return t != nil && t.Kind == TypeExprKindNonNull }

func (t *TypeExpr) IsList() bool {
	if t == nil {
		return false
	}
	if t.Kind == TypeExprKindList {
		return true
	}
	if t.Kind == TypeExprKindNonNull && t.OfType != nil {
		return t.OfType.Kind == TypeExprKindList
	}
	return false
}

func (t *TypeExpr) Unwrap() *TypeExpr {
	if t.Kind == TypeExprKindNonNull || t.Kind == TypeExprKindList {
		return t.OfType
	}
	return t
}

// NamedTypeID returns the innermost named TypeID of the expression.
func (t *TypeExpr) NamedTypeID() TypeID {
	cur := t
	for cur != nil {
		if cur.Kind == TypeExprKindNamed {
			return cur.Named
		}
		cur = cur.OfType
	}
	return NoType
}

func (t *TypeExpr) String(s *Schema) string {
	if t == nil {
		return "Unknown"
	}
	switch t.Kind {
	case TypeExprKindNamed:
		return s.Type(t.Named).Name()
	case TypeExprKindList:
		return "[" + t.OfType.String(s) + "]"
	case TypeExprKindNonNull:
		return t.OfType.String(s) + "!"
	default:
		return "Unknown"
	}
}
