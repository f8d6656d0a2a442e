// Package introspection answers `__schema`/`__type` queries against a
// composed *schema.Schema. It is ported from the teacher's
// internal/introspection package: a runtime that dispatches on the Go type
// of a "source" value (a schema.Type, schema.Field, schema.Argument, ...) to
// per-kind resolve functions, the same shape as a GraphQL resolver would
// take for these meta-fields if they were backed by a real subgraph.
//
// Unlike the teacher, which mutates a name-keyed schema copy once and lets
// its generic runtime.ResolveSync walk it field by field, this package
// builds the entire requested value tree for one __schema/__type call
// eagerly (Resolve), because the caller (internal/executor) needs a
// complete map[string]any to hand to the same selection-filtering merge
// logic every subgraph response goes through.
package introspection

import (
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/grafbase/gatewaycore/internal/operation"
	"github.com/grafbase/gatewaycore/internal/schema"
	"github.com/grafbase/gatewaycore/internal/solver"
)

// schemaRoot is the source value for `__schema`'s own fields, distinguishing
// it from a schema.Type in the resolveField type switch below.
type schemaRoot struct{ s *schema.Schema }

// Resolve computes the map[string]any for one introspection partition's
// top-level fields (`__schema` and/or `__type`). Keys are response keys
// (alias-or-name), matching the shape internal/executor's merge step
// expects of any partition's response.
func Resolve(s *schema.Schema, op *operation.Operation, variables map[string]any, fields []*solver.PlannedField) map[string]any {
	out := map[string]any{}
	for _, pf := range fields {
		name := op.ResponseKeyNames[pf.Source.ResponseKey]
		switch s.Field(pf.Source.Definition).Name() {
		case "__schema":
			out[name] = project(s, op, variables, schemaRoot{s}, pf.SelectionSet)
		case "__type":
			args := resolveArgs(s, op, variables, pf.Source.Arguments)
			typeName, _ := args["name"].(string)
			tid, ok := s.LookupType(typeName)
			if !ok {
				out[name] = nil
				continue
			}
			out[name] = project(s, op, variables, s.Type(tid), pf.SelectionSet)
		}
	}
	return out
}

// project turns one resolved Go value into the shape the merge step
// expects: a scalar passes through unchanged, a list recurses element-wise,
// and a composite source walks sel to build a response-key-keyed object.
func project(s *schema.Schema, op *operation.Operation, variables map[string]any, value any, sel *solver.PlannedSelectionSet) any {
	if value == nil || sel == nil {
		return value
	}
	if list, ok := value.([]any); ok {
		out := make([]any, len(list))
		for i, item := range list {
			out[i] = project(s, op, variables, item, sel)
		}
		return out
	}

	obj := map[string]any{}
	for _, pf := range sel.Fields {
		name := op.ResponseKeyNames[pf.Source.ResponseKey]
		if pf.Source.Definition == schema.NoField {
			obj[name] = typeNameOf(value)
			continue
		}
		fieldName := s.Field(pf.Source.Definition).Name()
		args := resolveArgs(s, op, variables, pf.Source.Arguments)
		obj[name] = project(s, op, variables, resolveField(s, value, fieldName, args), pf.SelectionSet)
	}
	return obj
}

func resolveArgs(s *schema.Schema, op *operation.Operation, variables map[string]any, args []operation.Argument) map[string]any {
	out := map[string]any{}
	for _, a := range args {
		v, err := operation.ResolveInputValue(op, a.Value, variables)
		if err != nil {
			continue
		}
		out[s.Argument(a.Definition).Name()] = v
	}
	return out
}

func typeNameOf(value any) string {
	switch value.(type) {
	case schemaRoot:
		return "__Schema"
	case schema.Type, *schema.TypeExpr:
		return "__Type"
	case schema.Field:
		return "__Field"
	case schema.Argument, schema.InputField:
		return "__InputValue"
	case schema.EnumValue:
		return "__EnumValue"
	case schema.DirectiveDef:
		return "__Directive"
	default:
		return ""
	}
}

// resolveField dispatches field by name against source, mirroring the
// teacher's IntrospectionWrapper.ResolveSync switch on the Go type of its
// source value.
func resolveField(s *schema.Schema, source any, field string, args map[string]any) any {
	switch src := source.(type) {
	case schemaRoot:
		return resolveSchemaField(src, field)
	case schema.Type:
		return resolveTypeField(src, field, args)
	case *schema.TypeExpr:
		return resolveTypeRefField(s, src, field, args)
	case schema.Field:
		return resolveFieldField(src, field)
	case schema.Argument:
		return resolveArgumentField(src, field)
	case schema.InputField:
		return resolveInputFieldField(src, field)
	case schema.EnumValue:
		return resolveEnumValueField(src, field)
	case schema.DirectiveDef:
		return resolveDirectiveField(src, field)
	default:
		return nil
	}
}

func resolveSchemaField(src schemaRoot, field string) any {
	switch field {
	case "description":
		return nil
	case "types":
		ts := src.s.IterTypes()
		out := make([]any, 0, len(ts))
		for _, t := range ts {
			if t.Inaccessible() {
				continue
			}
			out = append(out, t)
		}
		return out
	case "queryType":
		return src.s.QueryRoot()
	case "mutationType":
		if root := src.s.MutationRoot(); root.Name() != "" {
			return root
		}
		return nil
	case "subscriptionType":
		if root := src.s.SubscriptionRoot(); root.Name() != "" {
			return root
		}
		return nil
	case "directives":
		defs := src.s.IterDirectiveDefs()
		out := make([]any, len(defs))
		for i, d := range defs {
			out[i] = d
		}
		return out
	default:
		return nil
	}
}

func resolveTypeField(t schema.Type, field string, args map[string]any) any {
	switch field {
	case "kind":
		return string(t.Kind())
	case "name":
		return t.Name()
	case "description":
		if t.Description() == "" {
			return nil
		}
		return t.Description()
	case "fields":
		if t.Kind() != schema.TypeKindObject && t.Kind() != schema.TypeKindInterface {
			return nil
		}
		out := make([]any, 0, len(t.Fields()))
		for _, f := range t.Fields() {
			if f.Inaccessible() {
				continue
			}
			out = append(out, f)
		}
		return out
	case "interfaces":
		if t.Kind() != schema.TypeKindObject && t.Kind() != schema.TypeKindInterface {
			return nil
		}
		ifaces := t.Implements()
		out := make([]any, len(ifaces))
		for i, iface := range ifaces {
			out[i] = iface
		}
		return out
	case "possibleTypes":
		if t.Kind() != schema.TypeKindInterface && t.Kind() != schema.TypeKindUnion {
			return nil
		}
		poss := t.PossibleTypes()
		out := make([]any, len(poss))
		for i, p := range poss {
			out[i] = p
		}
		return out
	case "enumValues":
		if t.Kind() != schema.TypeKindEnum {
			return nil
		}
		includeDeprecated, _ := args["includeDeprecated"].(bool)
		out := make([]any, 0, len(t.EnumValues()))
		for _, ev := range t.EnumValues() {
			if ev.Deprecated() && !includeDeprecated {
				continue
			}
			out = append(out, ev)
		}
		return out
	case "inputFields":
		if t.Kind() != schema.TypeKindInputObject {
			return nil
		}
		fields := t.InputFields()
		out := make([]any, len(fields))
		for i, f := range fields {
			out[i] = f
		}
		return out
	case "ofType":
		return nil
	default:
		return nil
	}
}

// resolveTypeRefField handles a (possibly wrapped) type reference. A NAMED
// reference delegates entirely to the underlying named type — the __Type
// it describes is exactly the same object the schema's `types` list would
// hand back for that name, just reached from a field/argument's `type`
// instead of `__schema.types`.
func resolveTypeRefField(s *schema.Schema, t *schema.TypeExpr, field string, args map[string]any) any {
	switch t.Kind {
	case schema.TypeExprKindNonNull:
		switch field {
		case "kind":
			return "NON_NULL"
		case "ofType":
			return t.OfType
		default:
			return nil
		}
	case schema.TypeExprKindList:
		switch field {
		case "kind":
			return "LIST"
		case "ofType":
			return t.OfType
		default:
			return nil
		}
	default:
		return resolveTypeField(s.Type(t.NamedTypeID()), field, args)
	}
}

func resolveFieldField(f schema.Field, field string) any {
	switch field {
	case "name":
		return f.Name()
	case "description":
		if f.Description() == "" {
			return nil
		}
		return f.Description()
	case "args":
		args := f.Args()
		out := make([]any, len(args))
		for i, a := range args {
			out[i] = a
		}
		return out
	case "type":
		return f.Type()
	case "isDeprecated":
		return false
	case "deprecationReason":
		return nil
	default:
		return nil
	}
}

func resolveArgumentField(a schema.Argument, field string) any {
	switch field {
	case "name":
		return a.Name()
	case "description":
		if a.Description() == "" {
			return nil
		}
		return a.Description()
	case "type":
		return a.Type()
	case "defaultValue":
		if a.DefaultValue() == nil {
			return nil
		}
		return formatLiteral(a.DefaultValue())
	default:
		return nil
	}
}

func resolveInputFieldField(i schema.InputField, field string) any {
	switch field {
	case "name":
		return i.Name()
	case "description":
		if i.Description() == "" {
			return nil
		}
		return i.Description()
	case "type":
		return i.Type()
	case "defaultValue":
		if i.DefaultValue() == nil {
			return nil
		}
		return formatLiteral(i.DefaultValue())
	default:
		return nil
	}
}

func resolveEnumValueField(e schema.EnumValue, field string) any {
	switch field {
	case "name":
		return e.Name()
	case "description":
		if e.Description() == "" {
			return nil
		}
		return e.Description()
	case "isDeprecated":
		return e.Deprecated()
	case "deprecationReason":
		if e.DeprecationReason() == "" {
			return nil
		}
		return e.DeprecationReason()
	default:
		return nil
	}
}

func resolveDirectiveField(d schema.DirectiveDef, field string) any {
	switch field {
	case "name":
		return d.Name()
	case "description":
		return nil
	case "locations":
		locs := d.Locations()
		out := make([]any, len(locs))
		for i, l := range locs {
			out[i] = l
		}
		return out
	case "args":
		args := d.Args()
		out := make([]any, len(args))
		for i, a := range args {
			out[i] = a
		}
		return out
	case "isRepeatable":
		return d.Repeatable()
	default:
		return nil
	}
}

// formatLiteral renders a parsed default value back to the GraphQL literal
// text __InputValue.defaultValue is specified as.
func formatLiteral(v any) string {
	switch t := v.(type) {
	case nil:
		return "null"
	case string:
		if _, err := strconv.ParseFloat(t, 64); err == nil {
			return t
		}
		if t == "true" || t == "false" {
			return t
		}
		return strconv.Quote(t)
	case bool:
		return strconv.FormatBool(t)
	case []any:
		parts := make([]string, len(t))
		for i, e := range t {
			parts[i] = formatLiteral(e)
		}
		return "[" + strings.Join(parts, ", ") + "]"
	case map[string]any:
		parts := make([]string, 0, len(t))
		for k, e := range t {
			parts = append(parts, k+": "+formatLiteral(e))
		}
		sort.Strings(parts)
		return "{" + strings.Join(parts, ", ") + "}"
	default:
		return fmt.Sprintf("%v", t)
	}
}
