package schema

// Builtin scalar descriptions, ported from the teacher's
// internal/ir/builtin.go (same names, same spec-quoted descriptions).
var builtinScalarDescriptions = map[string]string{
	"String":  "The String scalar type represents textual data, represented as UTF-8 character sequences.",
	"Int":     "The Int scalar type represents non-fractional signed whole numeric values.",
	"Float":   "The Float scalar type represents signed double-precision fractional values.",
	"Boolean": "The Boolean scalar type represents true or false.",
	"ID":      "The ID scalar type represents a unique identifier, often used to refetch an object or as a key for caching.",
}

var builtinScalarNames = []string{"String", "Int", "Float", "Boolean", "ID"}
