package schema

// registerIntrospection adds the standard GraphQL introspection meta-types
// (__Schema, __Type, __Field, __InputValue, __EnumValue, __Directive,
// __TypeKind, __DirectiveLocation) to the schema under construction, plus
// `__schema`/`__type(name:)` root fields on the Query type. These are real
// arena-backed types and fields — the executor answers them by walking the
// finished Schema in memory rather than hopping to any subgraph, but to the
// rest of the pipeline (operation binding, the planner's shape pass, the
// solver's field-to-partition routing) they're indistinguishable from any
// other field.
//
// Skipped entirely if no subgraph ever established a Query root: a
// supergraph with no query type can't expose `__schema` on it either.
func (b *Builder) registerIntrospection() {
	if b.s.QueryType == NoType || int(b.s.QueryType) >= len(b.s.types) {
		return
	}

	typeKind := b.internType("__TypeKind", TypeKindEnum, "An enum describing what kind of type a given `__Type` is.")
	for _, v := range []string{"SCALAR", "OBJECT", "INTERFACE", "UNION", "ENUM", "INPUT_OBJECT", "LIST", "NON_NULL"} {
		b.internIntrospectionEnumValue(typeKind, v)
	}

	dirLoc := b.internType("__DirectiveLocation", TypeKindEnum, "A Directive can be adjacent to many parts of the GraphQL language.")
	for _, v := range []string{
		"QUERY", "MUTATION", "SUBSCRIPTION", "FIELD", "FRAGMENT_DEFINITION", "FRAGMENT_SPREAD",
		"INLINE_FRAGMENT", "VARIABLE_DEFINITION", "SCHEMA", "SCALAR", "OBJECT", "FIELD_DEFINITION",
		"ARGUMENT_DEFINITION", "INTERFACE", "UNION", "ENUM", "ENUM_VALUE", "INPUT_OBJECT", "INPUT_FIELD_DEFINITION",
	} {
		b.internIntrospectionEnumValue(dirLoc, v)
	}

	inputValue := b.internType("__InputValue", TypeKindObject, "Arguments provided to Fields or Directives and the input fields of an input object are represented as Input Values.")
	typeT := b.internType("__Type", TypeKindObject, "The fundamental unit of any GraphQL Schema is the type.")
	fieldT := b.internType("__Field", TypeKindObject, "Object and Interface types are described by a list of Fields.")
	enumValueT := b.internType("__EnumValue", TypeKindObject, "One possible value for a given Enum.")
	directiveT := b.internType("__Directive", TypeKindObject, "A Directive provides a way to describe alternate runtime execution and type validation behavior in a GraphQL document.")
	schemaT := b.internType("__Schema", TypeKindObject, "A GraphQL Schema defines the capabilities of a GraphQL server.")

	str := b.internType("String", TypeKindScalar, "")
	boolean := b.internType("Boolean", TypeKindScalar, "")

	nonNullStr := NonNullTypeExpr(NamedTypeExpr(str))
	nonNullBool := NonNullTypeExpr(NamedTypeExpr(boolean))
	nullableStr := NamedTypeExpr(str)
	nullableType := NamedTypeExpr(typeT)
	nonNullType := NonNullTypeExpr(nullableType)
	listOfInputValues := NonNullTypeExpr(ListTypeExpr(NonNullTypeExpr(NamedTypeExpr(inputValue))))

	includeDeprecated := []ArgumentID{b.internIntrospectionArgument("includeDeprecated", NamedTypeExpr(boolean), false)}

	b.internIntrospectionField(inputValue, "name", nonNullStr, nil)
	b.internIntrospectionField(inputValue, "description", nullableStr, nil)
	b.internIntrospectionField(inputValue, "type", nonNullType, nil)
	b.internIntrospectionField(inputValue, "defaultValue", nullableStr, nil)

	b.internIntrospectionField(fieldT, "name", nonNullStr, nil)
	b.internIntrospectionField(fieldT, "description", nullableStr, nil)
	b.internIntrospectionField(fieldT, "args", listOfInputValues, nil)
	b.internIntrospectionField(fieldT, "type", nonNullType, nil)
	b.internIntrospectionField(fieldT, "isDeprecated", nonNullBool, nil)
	b.internIntrospectionField(fieldT, "deprecationReason", nullableStr, nil)

	b.internIntrospectionField(enumValueT, "name", nonNullStr, nil)
	b.internIntrospectionField(enumValueT, "description", nullableStr, nil)
	b.internIntrospectionField(enumValueT, "isDeprecated", nonNullBool, nil)
	b.internIntrospectionField(enumValueT, "deprecationReason", nullableStr, nil)

	b.internIntrospectionField(directiveT, "name", nonNullStr, nil)
	b.internIntrospectionField(directiveT, "description", nullableStr, nil)
	b.internIntrospectionField(directiveT, "locations", NonNullTypeExpr(ListTypeExpr(NonNullTypeExpr(NamedTypeExpr(dirLoc)))), nil)
	b.internIntrospectionField(directiveT, "args", listOfInputValues, nil)
	b.internIntrospectionField(directiveT, "isRepeatable", nonNullBool, nil)

	b.internIntrospectionField(typeT, "kind", NonNullTypeExpr(NamedTypeExpr(typeKind)), nil)
	b.internIntrospectionField(typeT, "name", nullableStr, nil)
	b.internIntrospectionField(typeT, "description", nullableStr, nil)
	b.internIntrospectionField(typeT, "fields", ListTypeExpr(NonNullTypeExpr(NamedTypeExpr(fieldT))), includeDeprecated)
	b.internIntrospectionField(typeT, "interfaces", ListTypeExpr(NonNullTypeExpr(NamedTypeExpr(typeT))), nil)
	b.internIntrospectionField(typeT, "possibleTypes", ListTypeExpr(NonNullTypeExpr(NamedTypeExpr(typeT))), nil)
	b.internIntrospectionField(typeT, "enumValues", ListTypeExpr(NonNullTypeExpr(NamedTypeExpr(enumValueT))), includeDeprecated)
	b.internIntrospectionField(typeT, "inputFields", ListTypeExpr(NonNullTypeExpr(NamedTypeExpr(inputValue))), nil)
	b.internIntrospectionField(typeT, "ofType", nullableType, nil)

	b.internIntrospectionField(schemaT, "description", nullableStr, nil)
	b.internIntrospectionField(schemaT, "types", NonNullTypeExpr(ListTypeExpr(nonNullType)), nil)
	b.internIntrospectionField(schemaT, "queryType", nonNullType, nil)
	b.internIntrospectionField(schemaT, "mutationType", nullableType, nil)
	b.internIntrospectionField(schemaT, "subscriptionType", nullableType, nil)
	b.internIntrospectionField(schemaT, "directives", NonNullTypeExpr(ListTypeExpr(NonNullTypeExpr(NamedTypeExpr(directiveT)))), nil)

	schemaField := b.internIntrospectionField(b.s.QueryType, "__schema", NonNullTypeExpr(NamedTypeExpr(schemaT)), nil)

	nameArg := []ArgumentID{b.internIntrospectionArgument("name", NonNullTypeExpr(NamedTypeExpr(str)), nil)}
	typeField := b.internIntrospectionField(b.s.QueryType, "__type", nullableType, nameArg)

	b.addIntrospectionResolver(schemaField)
	b.addIntrospectionResolver(typeField)
}

func (b *Builder) internIntrospectionEnumValue(typeID TypeID, name string) {
	rec := &b.s.types[typeID]
	id := EnumValueID(len(b.s.enumValues))
	b.s.enumValues = append(b.s.enumValues, EnumValueRecord{ParentType: typeID, Name: name})
	rec.EnumValues = append(rec.EnumValues, id)
}

func (b *Builder) internIntrospectionArgument(name string, t *TypeExpr, def any) ArgumentID {
	id := ArgumentID(len(b.s.arguments))
	b.s.arguments = append(b.s.arguments, ArgumentRecord{Name: name, Type: t, DefaultValue: def})
	return id
}

func (b *Builder) internIntrospectionField(typeID TypeID, name string, t *TypeExpr, args []ArgumentID) FieldID {
	id := FieldID(len(b.s.fields))
	b.s.fields = append(b.s.fields, FieldRecord{ParentType: typeID, Name: name, Type: t, Args: args})
	b.s.types[typeID].Fields = append(b.s.types[typeID].Fields, id)
	return id
}

func (b *Builder) addIntrospectionResolver(fieldID FieldID) {
	rid := ResolverID(len(b.s.resolvers))
	b.s.resolvers = append(b.s.resolvers, ResolverRecord{Kind: ResolverIntrospection, Field: fieldID, Subgraph: NoSubgraph})
	b.s.fields[fieldID].Resolvers = append(b.s.fields[fieldID].Resolvers, rid)
}
