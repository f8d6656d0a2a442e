package operation

import (
	"fmt"
	"strconv"

	"github.com/grafbase/gatewaycore/internal/language"
	"github.com/grafbase/gatewaycore/internal/schema"
)

// valueBinder turns AST value literals into arena InputValueIDs, coercing
// scalar literals against a target schema.TypeExpr. Variable references are
// preserved as InputValueVariable nodes rather than resolved eagerly — they
// are evaluated at execution time against the request's variable map, per
// spec.md §3 ("a QueryInputValueId may reference variables, evaluated at
// execution time"). Coercion logic (Int/Float/String/Boolean/ID literal
// rules) is adapted from the teacher's executor/values.go coerceValue.
type valueBinder struct {
	s    *schema.Schema
	op   *Operation
}

func (vb *valueBinder) intern(n InputValueNode) InputValueID {
	id := InputValueID(len(vb.op.InputValues))
	vb.op.InputValues = append(vb.op.InputValues, n)
	return id
}

func (vb *valueBinder) bind(v *language.Value, target *schema.TypeExpr) (InputValueID, error) {
	if v == nil {
		return vb.intern(InputValueNode{Kind: InputValueNull}), nil
	}
	if v.Kind == language.Variable {
		return vb.intern(InputValueNode{Kind: InputValueVariable, VarName: v.Raw}), nil
	}
	if v.Kind == language.NullValue {
		return vb.intern(InputValueNode{Kind: InputValueNull}), nil
	}

	unwrapped := target
	if unwrapped != nil && unwrapped.IsNonNull() {
		unwrapped = unwrapped.Unwrap()
	}

	if unwrapped != nil && unwrapped.IsList() {
		if v.Kind != language.ListValue {
			// Single value coerced into a one-item list, per GraphQL spec.
			itemID, err := vb.bind(v, unwrapped.Unwrap())
			if err != nil {
				return 0, err
			}
			return vb.intern(InputValueNode{Kind: InputValueList, Items: []InputValueID{itemID}}), nil
		}
		items := make([]InputValueID, len(v.Children))
		for i, c := range v.Children {
			id, err := vb.bind(c.Value, unwrapped.Unwrap())
			if err != nil {
				return 0, err
			}
			items[i] = id
		}
		return vb.intern(InputValueNode{Kind: InputValueList, Items: items}), nil
	}

	if v.Kind == language.ObjectValue {
		fields := map[string]InputValueID{}
		var fieldType *schema.TypeExpr
		if unwrapped != nil {
			inputType := vb.s.Type(unwrapped.NamedTypeID())
			for _, c := range v.Children {
				if iv, ok := fieldTypeByName(vb.s, inputType.ID(), c.Name); ok {
					fieldType = iv
				} else {
					fieldType = nil
				}
				id, err := vb.bind(c.Value, fieldType)
				if err != nil {
					return 0, err
				}
				fields[c.Name] = id
			}
		} else {
			for _, c := range v.Children {
				id, err := vb.bind(c.Value, nil)
				if err != nil {
					return 0, err
				}
				fields[c.Name] = id
			}
		}
		return vb.intern(InputValueNode{Kind: InputValueInputObj, Fields: fields}), nil
	}

	if v.Kind == language.EnumValue {
		return vb.intern(InputValueNode{Kind: InputValueEnum, EnumName: v.Raw}), nil
	}

	scalar, err := coerceScalarLiteral(v, namedTypeName(vb.s, unwrapped))
	if err != nil {
		return 0, err
	}
	return vb.intern(InputValueNode{Kind: InputValueScalar, Scalar: scalar}), nil
}

func fieldTypeByName(s *schema.Schema, t schema.TypeID, name string) (*schema.TypeExpr, bool) {
	if t == schema.NoType {
		return nil, false
	}
	for _, f := range s.Type(t).InputFields() {
		if f.Name == name {
			return f.Type, true
		}
	}
	return nil, false
}

func namedTypeName(s *schema.Schema, t *schema.TypeExpr) string {
	if t == nil {
		return ""
	}
	id := t.NamedTypeID()
	if id == schema.NoType {
		return ""
	}
	return s.Type(id).Name()
}

func coerceScalarLiteral(v *language.Value, namedType string) (any, error) {
	switch namedType {
	case "Int":
		return strconv.Atoi(v.Raw)
	case "Float":
		return strconv.ParseFloat(v.Raw, 64)
	case "Boolean":
		return v.Raw == "true", nil
	case "String", "ID", "":
		return v.Raw, nil
	default:
		// Custom scalar: pass the literal text through as-is; the resolver
		// layer is responsible for any further coercion.
		return v.Raw, nil
	}
}

// ResolveInputValue evaluates an arena node into a plain Go value, resolving
// any InputValueVariable nodes against variables. Used at execution time by
// resolvers that need concrete argument values to send upstream.
func ResolveInputValue(op *Operation, id InputValueID, variables map[string]any) (any, error) {
	node := op.InputValues[id]
	switch node.Kind {
	case InputValueNull:
		return nil, nil
	case InputValueScalar:
		return node.Scalar, nil
	case InputValueEnum:
		return node.EnumName, nil
	case InputValueVariable:
		val, ok := variables[node.VarName]
		if !ok {
			return nil, nil
		}
		return val, nil
	case InputValueList:
		out := make([]any, len(node.Items))
		for i, item := range node.Items {
			v, err := ResolveInputValue(op, item, variables)
			if err != nil {
				return nil, err
			}
			out[i] = v
		}
		return out, nil
	case InputValueInputObj:
		out := map[string]any{}
		for k, item := range node.Fields {
			v, err := ResolveInputValue(op, item, variables)
			if err != nil {
				return nil, err
			}
			out[k] = v
		}
		return out, nil
	default:
		return nil, fmt.Errorf("unknown input value kind %q", node.Kind)
	}
}
