package schema

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/grafbase/gatewaycore/internal/language"
)

// SubgraphInput is one upstream service's SDL plus its transport
// configuration, as read from the `[subgraphs.<name>]` config surface
// (spec.md §6). Builder composes N of these into one Schema.
type SubgraphInput struct {
	Name           string
	URL            string
	SDL            string
	Timeout        time.Duration
	Retry          RetryPolicy
	MTLS           MTLSConfig
	HeaderRules    []HeaderRule
	EntityCacheTTL time.Duration
}

// Builder accumulates subgraph SDL and composes it into an immutable
// Schema. Composition here is deliberately minimal — spec.md §1 scopes the
// full composition engine out as an offline build step — but the core must
// still validate `@key`/`@join__*` metadata on whatever supergraph SDL it is
// handed, per spec.md §4.1.
type Builder struct {
	s          *Schema
	contracts  *Contracts
	errs       BuildErrors
	fieldOwner map[FieldID][]SubgraphID // accumulated across subgraphs before commit
	overrides  []overrideUse
	listSizes  []listSizeUse
}

// overrideUse is one `@override(from: "<subgraph>")` use recorded during
// merge and resolved once every subgraph's SDL has been merged — the
// overriding subgraph may be added to the Builder before or after the
// overridden one, so this can't be applied inline at directive-attach time.
type overrideUse struct {
	Field    FieldID
	From     string
	Subgraph string // the overriding subgraph, for diagnostics
}

// listSizeUse is one `@listSize(...)` use recorded during merge; its
// `slicingArguments`/`sizedFields` name lists are resolved to concrete
// ArgumentID/FieldID once, in resolveListSizes, after every subgraph's SDL
// (and therefore every field/argument it names) has been merged.
type listSizeUse struct {
	Field                     FieldID
	AssumedSize               *int
	SlicingArgumentNames      []string
	SizedFieldNames           []string
	RequireOneSlicingArgument bool
	Subgraph                  string
}

// NewBuilder starts a build. QueryType/MutationType/SubscriptionType default
// to "Query"/"Mutation"/"Subscription" unless a subgraph's `schema { ... }`
// block says otherwise.
func NewBuilder() *Builder {
	s := &Schema{
		QueryType:        NoType,
		MutationType:     NoType,
		SubscriptionType: NoType,
		typeByName:      map[string]TypeID{},
		subgraphByName:  map[string]SubgraphID{},
		directiveByName: map[string]DirectiveID{},
	}
	b := &Builder{s: s, fieldOwner: map[FieldID][]SubgraphID{}}
	b.contracts = NewContracts(s)
	b.registerBuiltins()
	return b
}

func (b *Builder) registerBuiltins() {
	for _, name := range builtinScalarNames {
		b.internType(name, TypeKindScalar, builtinScalarDescriptions[name])
	}
	for _, name := range []string{
		DirectiveKey, DirectiveRequires, DirectiveProvides, DirectiveOverride,
		DirectiveInaccessible, DirectiveAuthenticated, DirectiveRequiresScopes,
		DirectiveAuthorized, DirectiveJoinField, DirectiveJoinImplements,
		DirectiveJoinType, DirectiveListSize, DirectiveSkip, DirectiveInclude,
	} {
		b.internDirectiveDef(name)
	}
}

func (b *Builder) internType(name string, kind TypeKind, desc string) TypeID {
	if id, ok := b.s.typeByName[name]; ok {
		return id
	}
	id := TypeID(len(b.s.types))
	b.s.types = append(b.s.types, TypeRecord{Name: name, Kind: kind, Description: desc})
	b.s.typeByName[name] = id
	return id
}

func (b *Builder) internDirectiveDef(name string) DirectiveID {
	if id, ok := b.s.directiveByName[name]; ok {
		return id
	}
	id := DirectiveID(len(b.s.directiveDefs))
	b.s.directiveDefs = append(b.s.directiveDefs, DirectiveDefRecord{Name: name})
	b.s.directiveByName[name] = id
	return id
}

func (b *Builder) addError(tpl BuildErrorTemplate, subgraph string, pos *language.Position, format string, args ...any) {
	span := Span{Subgraph: subgraph}
	if pos != nil {
		span.Line, span.Column = pos.Line, pos.Column
	}
	b.errs = append(b.errs, &BuildError{Template: tpl, Message: fmt.Sprintf(format, args...), Span: span})
}

// AddSubgraph parses one subgraph's SDL and merges its type/field
// declarations into the composed schema under construction.
func (b *Builder) AddSubgraph(in SubgraphInput) {
	sgID := SubgraphID(len(b.s.subgraphs))
	if _, dup := b.s.subgraphByName[in.Name]; dup {
		b.addError(ErrDuplicateDefinition, in.Name, nil, "duplicate subgraph %q", in.Name)
		return
	}
	b.s.subgraphByName[in.Name] = sgID
	b.s.subgraphs = append(b.s.subgraphs, SubgraphRecord{
		Name: in.Name, URL: in.URL, HeaderRules: in.HeaderRules,
		Timeout: in.Timeout, Retry: in.Retry, MTLS: in.MTLS,
		EntityCacheTTL: in.EntityCacheTTL,
	})

	doc, err := language.ParseSchema(in.Name, in.SDL)
	if err != nil {
		b.addError(ErrMalformedJoinMetadata, in.Name, nil, "parse error: %v", err)
		return
	}

	for _, def := range doc.Definitions {
		b.mergeDefinition(sgID, def)
	}
	for _, sd := range doc.Schema {
		for _, op := range sd.OperationTypes {
			switch op.Operation {
			case language.Query:
				b.s.QueryType = b.internType(op.Type, TypeKindObject, "")
			case language.Mutation:
				b.s.MutationType = b.internType(op.Type, TypeKindObject, "")
			case language.Subscription:
				b.s.SubscriptionType = b.internType(op.Type, TypeKindObject, "")
			}
		}
	}
}

func (b *Builder) mergeDefinition(sg SubgraphID, def *language.Definition) {
	kind := astKindToTypeKind(def.Kind)
	typeID := b.internType(def.Name, kind, def.Description)
	switch {
	case def.Name == "Query" && b.s.QueryType == NoType:
		b.s.QueryType = typeID
	case def.Name == "Mutation" && b.s.MutationType == NoType:
		b.s.MutationType = typeID
	case def.Name == "Subscription" && b.s.SubscriptionType == NoType:
		b.s.SubscriptionType = typeID
	}
	rec := &b.s.types[typeID]
	rec.Kind = kind

	for _, iface := range def.Interfaces {
		ifaceID := b.internType(iface, TypeKindInterface, "")
		if !containsType(rec.Implements, ifaceID) {
			rec.Implements = append(rec.Implements, ifaceID)
		}
		ifaceRec := &b.s.types[ifaceID]
		if !containsType(ifaceRec.PossibleTypes, typeID) {
			ifaceRec.PossibleTypes = append(ifaceRec.PossibleTypes, typeID)
		}
	}
	for _, u := range def.Types {
		memberID := b.internType(u, TypeKindObject, "")
		if !containsType(rec.PossibleTypes, memberID) {
			rec.PossibleTypes = append(rec.PossibleTypes, memberID)
		}
	}
	for _, ev := range def.EnumValues {
		b.mergeEnumValue(typeID, sg, ev)
	}
	for _, f := range def.Fields {
		if kind == TypeKindInputObject {
			b.mergeInputField(typeID, f)
		} else {
			b.mergeField(typeID, sg, f)
		}
	}
	for _, d := range def.Directives {
		b.attachTypeDirective(typeID, sg, d)
	}

	// Query/Mutation/Subscription root fields resolve via the owning
	// subgraph's GraphQL endpoint, unless a `@join__field(graph:)` already
	// narrowed ownership (handled in mergeField).
}

func (b *Builder) mergeEnumValue(typeID TypeID, sg SubgraphID, ev *language.EnumValueDefinition) {
	rec := &b.s.types[typeID]
	for _, id := range rec.EnumValues {
		if b.s.enumValues[id].Name == ev.Name {
			return
		}
	}
	id := EnumValueID(len(b.s.enumValues))
	b.s.enumValues = append(b.s.enumValues, EnumValueRecord{ParentType: typeID, Name: ev.Name, Description: ev.Description})
	rec.EnumValues = append(rec.EnumValues, id)
}

func (b *Builder) mergeInputField(typeID TypeID, f *language.FieldDefinition) {
	rec := &b.s.types[typeID]
	for _, id := range rec.InputFields {
		if b.s.inputFields[id].Name == f.Name {
			return
		}
	}
	id := InputFieldID(len(b.s.inputFields))
	b.s.inputFields = append(b.s.inputFields, InputFieldRecord{
		ParentType: typeID, Name: f.Name, Description: f.Description,
		Type: b.typeExprFromAST(f.Type), DefaultValue: valueFromAST(f.DefaultValue),
	})
	rec.InputFields = append(rec.InputFields, id)
}

func (b *Builder) mergeField(typeID TypeID, sg SubgraphID, f *language.FieldDefinition) {
	rec := &b.s.types[typeID]
	fieldID, exists := b.s.FieldByName(typeID, f.Name)
	if !exists {
		fieldID = FieldID(len(b.s.fields))
		b.s.fields = append(b.s.fields, FieldRecord{
			ParentType: typeID, Name: f.Name, Description: f.Description,
			Type: b.typeExprFromAST(f.Type),
		})
		rec.Fields = append(rec.Fields, fieldID)
		for _, arg := range f.Arguments {
			b.s.fields[fieldID].Args = append(b.s.fields[fieldID].Args, b.internArgument(arg))
		}
	}
	frec := &b.s.fields[fieldID]

	owningSubgraph := sg
	for _, d := range f.Directives {
		b.attachFieldDirective(fieldID, sg, d)
		if d.Name == DirectiveJoinField {
			if graphArg := directiveArgRaw(d, "graph"); graphArg != "" {
				if gid, ok := b.s.subgraphByName[graphNameFromEnum(graphArg)]; ok {
					owningSubgraph = gid
				}
			}
		}
	}
	if !containsSubgraph(frec.ExistsInSubgraphs, owningSubgraph) {
		frec.ExistsInSubgraphs = append(frec.ExistsInSubgraphs, owningSubgraph)
	}

	if typeID == b.s.QueryType || typeID == b.s.MutationType || typeID == b.s.SubscriptionType {
		b.addRootFieldResolver(fieldID, owningSubgraph)
	}
}

func (b *Builder) addRootFieldResolver(fieldID FieldID, sg SubgraphID) {
	for _, rid := range b.s.fields[fieldID].Resolvers {
		r := b.s.resolvers[rid]
		if r.Kind == ResolverGraphqlRootField && r.Subgraph == sg {
			return
		}
	}
	rid := ResolverID(len(b.s.resolvers))
	b.s.resolvers = append(b.s.resolvers, ResolverRecord{Kind: ResolverGraphqlRootField, Subgraph: sg, Field: fieldID})
	b.s.fields[fieldID].Resolvers = append(b.s.fields[fieldID].Resolvers, rid)
	b.s.subgraphs[sg].Resolvers = append(b.s.subgraphs[sg].Resolvers, rid)
}

func (b *Builder) internArgument(a *language.ArgumentDefinition) ArgumentID {
	id := ArgumentID(len(b.s.arguments))
	b.s.arguments = append(b.s.arguments, ArgumentRecord{
		Name: a.Name, Description: a.Description, Type: b.typeExprFromAST(a.Type),
		DefaultValue: valueFromAST(a.DefaultValue),
	})
	return id
}

func (b *Builder) typeExprFromAST(t *language.Type) *TypeExpr {
	if t == nil {
		return nil
	}
	if t.Elem != nil {
		inner := b.typeExprFromAST(t.Elem)
		e := ListTypeExpr(inner)
		if t.NonNull {
			return NonNullTypeExpr(e)
		}
		return e
	}
	named := b.internType(t.NamedType, TypeKindScalar, "")
	n := NamedTypeExpr(named)
	if t.NonNull {
		return NonNullTypeExpr(n)
	}
	return n
}

// attachTypeDirective records a directive use on a type, and handles the
// `@key`/`@inaccessible` cases that feed EntityKeys/Contracts directly.
func (b *Builder) attachTypeDirective(typeID TypeID, sg SubgraphID, d *language.Directive) {
	use := b.directiveUse(d)
	rec := &b.s.types[typeID]
	rec.Directives = append(rec.Directives, use)

	switch d.Name {
	case DirectiveInaccessible:
		b.contracts.MarkTypeInaccessible(typeID)
	case DirectiveKey:
		fieldsRaw, _ := use.Args["fields"].(string)
		resolvable := true
		if v, ok := use.Args["resolvable"].(bool); ok {
			resolvable = v
		}
		sel, err := b.parseFieldSet(typeID, fieldsRaw)
		if err != nil {
			b.addError(ErrUnresolvableKey, b.s.subgraphs[sg].Name, d.Position, "type %s: invalid @key(fields: %q): %v", b.s.types[typeID].Name, fieldsRaw, err)
			return
		}
		kid := EntityKeyID(len(b.s.entityKeys))
		b.s.entityKeys = append(b.s.entityKeys, EntityKeyRecord{OwnerType: typeID, Selection: sel, Resolvable: resolvable, Subgraph: sg})
		rec.EntityKeys = append(rec.EntityKeys, kid)

		rid := ResolverID(len(b.s.resolvers))
		b.s.resolvers = append(b.s.resolvers, ResolverRecord{Kind: ResolverGraphqlFederationEntity, Subgraph: sg, KeySelection: sel})
		b.s.subgraphs[sg].Resolvers = append(b.s.subgraphs[sg].Resolvers, rid)
		// Every field this subgraph exposes on the entity type becomes
		// reachable through this entity resolver as an alternative to a
		// direct root-field path, per spec.md §3's join-metadata invariant.
		for _, fid := range rec.Fields {
			if containsSubgraph(b.s.fields[fid].ExistsInSubgraphs, sg) {
				b.s.fields[fid].Resolvers = append(b.s.fields[fid].Resolvers, rid)
			}
		}
	}
}

func (b *Builder) attachFieldDirective(fieldID FieldID, sg SubgraphID, d *language.Directive) {
	use := b.directiveUse(d)
	frec := &b.s.fields[fieldID]
	frec.Directives = append(frec.Directives, use)
	switch d.Name {
	case DirectiveInaccessible:
		b.contracts.MarkFieldInaccessible(fieldID)
	case DirectiveOverride:
		if from := directiveArgRaw(d, "from"); from != "" {
			b.overrides = append(b.overrides, overrideUse{Field: fieldID, From: from, Subgraph: b.s.subgraphs[sg].Name})
		}
	case DirectiveListSize:
		b.listSizes = append(b.listSizes, listSizeUse{
			Field:                     fieldID,
			AssumedSize:               intDirectiveArg(use.Args["assumedSize"]),
			SlicingArgumentNames:      stringListDirectiveArg(use.Args["slicingArguments"]),
			SizedFieldNames:           stringListDirectiveArg(use.Args["sizedFields"]),
			RequireOneSlicingArgument: boolDirectiveArg(use.Args["requireOneSlicingArgument"]),
			Subgraph:                  b.s.subgraphs[sg].Name,
		})
	}
}

func intDirectiveArg(v any) *int {
	s, ok := v.(string)
	if !ok {
		return nil
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return nil
	}
	return &n
}

func boolDirectiveArg(v any) bool {
	b, _ := v.(bool)
	return b
}

func stringListDirectiveArg(v any) []string {
	items, ok := v.([]any)
	if !ok {
		return nil
	}
	out := make([]string, 0, len(items))
	for _, item := range items {
		if s, ok := item.(string); ok {
			out = append(out, s)
		}
	}
	return out
}

func (b *Builder) directiveUse(d *language.Directive) DirectiveUse {
	defID := b.internDirectiveDef(d.Name)
	args := map[string]any{}
	for _, a := range d.Arguments {
		args[a.Name] = valueFromAST(a.Value)
	}
	return DirectiveUse{Definition: defID, Args: args}
}

// parseFieldSet parses a federation field-set string against ownerType. See
// ParseFieldSet for the grammar.
func (b *Builder) parseFieldSet(ownerType TypeID, raw string) (*RequiredSelectionSet, error) {
	return ParseFieldSet(b.s, ownerType, raw)
}

// Build finalizes the composed schema: runs the contracts closure and
// returns either the immutable *Schema or the accumulated BuildErrors.
func (b *Builder) Build() (*Schema, error) {
	if len(b.errs) > 0 {
		return nil, b.errs
	}
	b.applyOverrides()
	b.resolveListSizes()
	if len(b.errs) > 0 {
		return nil, b.errs
	}
	b.registerIntrospection()
	b.contracts.Finalize()
	if err := b.validateJoinConsistency(); err != nil {
		return nil, err
	}
	return b.s, nil
}

// applyOverrides reassigns field ownership away from every subgraph named
// by a `@override(from: ...)` using a field in some other subgraph: the
// named subgraph is dropped from the field's ExistsInSubgraphs and from its
// candidate Resolvers, so neither the root-field nor the entity-candidate
// picker in internal/solver can ever route a hop back to it. Run once, after
// every subgraph's SDL is merged, so override direction doesn't depend on
// the order subgraphs were added in.
func (b *Builder) applyOverrides() {
	for _, ov := range b.overrides {
		fromID, ok := b.s.subgraphByName[ov.From]
		if !ok {
			b.addError(ErrInvalidDirectiveArgs, ov.Subgraph, nil, "@override(from: %q): unknown subgraph", ov.From)
			continue
		}
		frec := &b.s.fields[ov.Field]
		frec.ExistsInSubgraphs = removeSubgraphID(frec.ExistsInSubgraphs, fromID)
		frec.Resolvers = removeResolversFromSubgraph(b.s, frec.Resolvers, fromID)
	}
}

func removeSubgraphID(ids []SubgraphID, drop SubgraphID) []SubgraphID {
	out := ids[:0]
	for _, id := range ids {
		if id != drop {
			out = append(out, id)
		}
	}
	return out
}

func removeResolversFromSubgraph(s *Schema, ids []ResolverID, drop SubgraphID) []ResolverID {
	out := ids[:0]
	for _, id := range ids {
		if s.resolvers[id].Subgraph != drop {
			out = append(out, id)
		}
	}
	return out
}

// resolveListSizes binds every recorded `@listSize` use's
// `slicingArguments`/`sizedFields` name lists to concrete ArgumentID/FieldID,
// grounded on
// original_source/crates/engine/schema/src/builder/graph/directives/common/list_size.rs:
// slicing arguments resolve against the directive's own field's arguments;
// sized fields resolve against the field's return type, which must be an
// object or interface when `sizedFields` is non-empty.
func (b *Builder) resolveListSizes() {
	for _, use := range b.listSizes {
		frec := &b.s.fields[use.Field]

		slicingArgs := make([]ArgumentID, 0, len(use.SlicingArgumentNames))
		for _, name := range use.SlicingArgumentNames {
			id, ok := b.argumentByName(frec.Args, name)
			if !ok {
				b.addError(ErrInvalidDirectiveArgs, use.Subgraph, nil, "@listSize: unknown slicing argument %q on field %s", name, frec.Name)
				continue
			}
			slicingArgs = append(slicingArgs, id)
		}

		var sizedFields []FieldID
		if len(use.SizedFieldNames) > 0 {
			returnType := &b.s.types[frec.Type.NamedTypeID()]
			if returnType.Kind != TypeKindObject && returnType.Kind != TypeKindInterface {
				b.addError(ErrInvalidDirectiveArgs, use.Subgraph, nil, "@listSize: sizedFields can only be used with an object/interface return type, field %s returns %s", frec.Name, returnType.Kind)
				continue
			}
			sizedFields = make([]FieldID, 0, len(use.SizedFieldNames))
			for _, name := range use.SizedFieldNames {
				id, ok := b.s.FieldByName(frec.Type.NamedTypeID(), name)
				if !ok {
					b.addError(ErrInvalidDirectiveArgs, use.Subgraph, nil, "@listSize: unknown sized field %q on %s", name, returnType.Name)
					continue
				}
				sizedFields = append(sizedFields, id)
			}
		}

		frec.ListSize = &ListSize{
			AssumedSize:               use.AssumedSize,
			SlicingArguments:          slicingArgs,
			SizedFields:               sizedFields,
			RequireOneSlicingArgument: use.RequireOneSlicingArgument,
		}
	}
}

func (b *Builder) argumentByName(ids []ArgumentID, name string) (ArgumentID, bool) {
	for _, id := range ids {
		if b.s.arguments[id].Name == name {
			return id, true
		}
	}
	return 0, false
}

// validateJoinConsistency checks spec.md §3's invariant: every object or
// interface with at least one @key has at least one entity resolver, and
// every entity key's selection set is itself resolvable from its owning
// subgraph (no dangling field references).
func (b *Builder) validateJoinConsistency() error {
	var errs BuildErrors
	for i := range b.s.types {
		t := &b.s.types[i]
		if (t.Kind != TypeKindObject && t.Kind != TypeKindInterface) || len(t.EntityKeys) == 0 {
			continue
		}
		hasResolver := false
		for _, kid := range t.EntityKeys {
			if b.s.entityKeys[kid].Resolvable {
				hasResolver = true
			}
		}
		if !hasResolver {
			errs = append(errs, &BuildError{
				Template: ErrUnresolvableKey,
				Message:  fmt.Sprintf("type %s declares @key but has no resolvable entity resolver", t.Name),
			})
		}
	}
	if len(errs) > 0 {
		return errs
	}
	return nil
}

func astKindToTypeKind(k language.DefinitionKind) TypeKind {
	switch k {
	case language.Object:
		return TypeKindObject
	case language.Interface:
		return TypeKindInterface
	case language.Union:
		return TypeKindUnion
	case language.Enum:
		return TypeKindEnum
	case language.InputObject:
		return TypeKindInputObject
	default:
		return TypeKindScalar
	}
}

func valueFromAST(v *language.Value) any {
	if v == nil {
		return nil
	}
	switch v.Kind {
	case language.IntValue, language.FloatValue, language.StringValue, language.BlockValue, language.EnumValue:
		return v.Raw
	case language.BooleanValue:
		return v.Raw == "true"
	case language.NullValue:
		return nil
	case language.ListValue:
		out := make([]any, len(v.Children))
		for i, c := range v.Children {
			out[i] = valueFromAST(c.Value)
		}
		return out
	case language.ObjectValue:
		m := map[string]any{}
		for _, c := range v.Children {
			m[c.Name] = valueFromAST(c.Value)
		}
		return m
	default:
		return nil
	}
}

func directiveArgRaw(d *language.Directive, name string) string {
	for _, a := range d.Arguments {
		if a.Name == name && a.Value != nil {
			return a.Value.Raw
		}
	}
	return ""
}

// graphNameFromEnum lowercases a `@join__field(graph: USERS)` enum value
// back to the subgraph name convention used in this build. The result is
// looked up exactly, so only subgraphs configured under lowercase names
// match the join enum.
func graphNameFromEnum(enumVal string) string {
	return strings.ToLower(enumVal)
}

func containsType(ids []TypeID, id TypeID) bool {
	for _, v := range ids {
		if v == id {
			return true
		}
	}
	return false
}

func containsSubgraph(ids []SubgraphID, id SubgraphID) bool {
	for _, v := range ids {
		if v == id {
			return true
		}
	}
	return false
}
