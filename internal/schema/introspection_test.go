package schema_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/grafbase/gatewaycore/internal/schema"
)

func TestBuilder_RegistersIntrospectionRootFields(t *testing.T) {
	s := buildTwoSubgraphSchema(t)

	q := s.Type(s.QueryType)
	schemaField, ok := q.FieldByName("__schema")
	require.True(t, ok)
	require.Equal(t, "__Schema", s.Type(schemaField.Type().NamedTypeID()).Name())

	typeField, ok := q.FieldByName("__type")
	require.True(t, ok)
	require.Equal(t, "__Type", s.Type(typeField.Type().NamedTypeID()).Name())
	require.Len(t, typeField.Args(), 1)
	require.Equal(t, "name", typeField.Args()[0].Name())
}

func TestBuilder_IntrospectionTypesAreWalkable(t *testing.T) {
	s := buildTwoSubgraphSchema(t)

	typeKindID, ok := s.LookupType("__TypeKind")
	require.True(t, ok)
	typeKind := s.Type(typeKindID)
	require.Equal(t, schema.TypeKindEnum, typeKind.Kind())
	names := make([]string, 0, len(typeKind.EnumValues()))
	for _, ev := range typeKind.EnumValues() {
		names = append(names, ev.Name())
	}
	require.Contains(t, names, "OBJECT")
	require.Contains(t, names, "NON_NULL")

	userID, ok := s.LookupType("User")
	require.True(t, ok)
	user := s.Type(userID)
	require.Equal(t, schema.TypeKindObject, user.Kind())
}

func TestBuilder_IntrospectionFieldsCarryAResolver(t *testing.T) {
	s := buildTwoSubgraphSchema(t)

	q := s.Type(s.QueryType)
	schemaField, ok := q.FieldByName("__schema")
	require.True(t, ok)
	require.Len(t, schemaField.Resolvers(), 1)
	require.Equal(t, schema.ResolverIntrospection, schemaField.Resolvers()[0].Kind())
	require.Equal(t, schema.NoSubgraph, schemaField.Resolvers()[0].Subgraph().ID())
}
