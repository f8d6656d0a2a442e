package operation

import (
	"fmt"

	"github.com/grafbase/gatewaycore/internal/language"
	"github.com/grafbase/gatewaycore/internal/schema"
)

// Binder parses, binds and validates client documents against one Schema.
// A Binder is safe for concurrent use: it holds no mutable state beyond the
// read-only *schema.Schema reference, mirroring the teacher's stateless
// executor.Runtime contract.
type Binder struct {
	schema *schema.Schema
	limits Limits
}

func NewBinder(s *schema.Schema, limits Limits) *Binder {
	return &Binder{schema: s, limits: limits}
}

// Bind runs the three phases spec.md §4.2 describes: parse, bind, validate.
// variables are the raw (uncoerced) JSON-decoded values from the request.
func (b *Binder) Bind(raw, operationName string, variables map[string]any) (*Operation, error) {
	doc, err := language.ParseQuery(raw)
	if err != nil {
		return nil, &BindError{Code: CodeBadRequest, Message: fmt.Sprintf("parse error: %v", err)}
	}

	astOp := selectOperation(doc, operationName)
	if astOp == nil {
		return nil, parseErr("operation %q not found in document", operationName)
	}

	op := &Operation{Name: operationName, Document: raw, VariableDefs: map[string]VariableDefinition{}}
	switch astOp.Operation {
	case language.Query:
		op.Kind = KindQuery
		op.RootType = b.schema.QueryType
	case language.Mutation:
		op.Kind = KindMutation
		op.RootType = b.schema.MutationType
	case language.Subscription:
		op.Kind = KindSubscription
		op.RootType = b.schema.SubscriptionType
	default:
		return nil, parseErr("unsupported operation type %q", astOp.Operation)
	}
	if op.RootType == schema.NoType {
		return nil, parseErr("schema has no root type for %s operations", astOp.Operation)
	}

	bindCtx := &binding{b: b, op: op, keyIndex: map[string]ResponseKey{}, fragments: doc.Fragments}
	vb := &valueBinder{s: b.schema, op: op}
	bindCtx.vb = vb

	for _, vd := range astOp.VariableDefinitions {
		t := bindCtx.typeExprFromAST(vd.Type)
		def := VariableDefinition{Name: vd.Variable, Type: t}
		if vd.DefaultValue != nil {
			id, err := vb.bind(vd.DefaultValue, t)
			if err != nil {
				return nil, parseErr("variable $%s default value: %v", vd.Variable, err)
			}
			def.HasDefault = true
			def.DefaultValue = id
		}
		op.VariableDefs[vd.Variable] = def
	}

	sels, err := bindCtx.bindSelectionSet(op.RootType, astOp.SelectionSet, 1)
	if err != nil {
		return nil, err
	}
	op.SelectionSet = sels

	if errs := validateOperationLimits(bindCtx, b.limits); len(errs) > 0 {
		return nil, errs
	}
	if errs := validateVariableUsage(op, variables); len(errs) > 0 {
		return nil, errs
	}

	return op, nil
}

func selectOperation(doc *language.QueryDocument, name string) *language.OperationDefinition {
	if len(doc.Operations) == 0 {
		return nil
	}
	if name == "" {
		if len(doc.Operations) == 1 {
			return doc.Operations[0]
		}
		return nil
	}
	for _, o := range doc.Operations {
		if o.Name == name {
			return o
		}
	}
	return nil
}

// binding carries per-Bind-call mutable state: the response-key intern
// table, fragment definitions, and depth/alias counters used by
// validateOperationLimits.
type binding struct {
	b         *Binder
	op        *Operation
	vb        *valueBinder
	keyIndex  map[string]ResponseKey
	fragments []*language.FragmentDefinition
	maxDepth  int
	fieldCount int
}

func (c *binding) internResponseKey(name string) ResponseKey {
	if k, ok := c.keyIndex[name]; ok {
		return k
	}
	k := ResponseKey(len(c.op.ResponseKeyNames))
	c.op.ResponseKeyNames = append(c.op.ResponseKeyNames, name)
	c.keyIndex[name] = k
	return k
}

func (c *binding) typeExprFromAST(t *language.Type) *schema.TypeExpr {
	if t == nil {
		return nil
	}
	if t.Elem != nil {
		inner := c.typeExprFromAST(t.Elem)
		e := schema.ListTypeExpr(inner)
		if t.NonNull {
			return schema.NonNullTypeExpr(e)
		}
		return e
	}
	id, ok := c.b.schema.LookupType(t.NamedType)
	if !ok {
		id = schema.NoType
	}
	n := schema.NamedTypeExpr(id)
	if t.NonNull {
		return schema.NonNullTypeExpr(n)
	}
	return n
}

func (c *binding) bindSelectionSet(parentType schema.TypeID, set language.SelectionSet, depth int) ([]Selection, error) {
	if depth > c.maxDepth {
		c.maxDepth = depth
	}
	out := make([]Selection, 0, len(set))
	for _, sel := range set {
		bound, err := c.bindSelection(parentType, sel, depth)
		if err != nil {
			return nil, err
		}
		out = append(out, bound)
	}
	return out, nil
}

func (c *binding) bindSelection(parentType schema.TypeID, sel language.Selection, depth int) (Selection, error) {
	switch v := sel.(type) {
	case *language.Field:
		return c.bindField(parentType, v, depth)
	case *language.InlineFragment:
		return c.bindInlineFragment(parentType, v, depth)
	case *language.FragmentSpread:
		return c.bindFragmentSpread(parentType, v, depth)
	default:
		return Selection{}, parseErr("unknown selection kind %T", sel)
	}
}

func (c *binding) bindField(parentType schema.TypeID, v *language.Field, depth int) (Selection, error) {
	c.fieldCount++
	responseName := v.Alias
	if responseName == "" {
		responseName = v.Name
	}
	rk := c.internResponseKey(responseName)

	if v.Name == "__typename" {
		f := &Field{ResponseKey: rk, Alias: v.Alias, Name: v.Name, Definition: schema.NoField, Location: *v.Position, SkipInclude: c.bindSkipInclude(v.Directives)}
		return Selection{Field: f}, nil
	}

	fieldID, ok := c.b.schema.FieldByName(parentType, v.Name)
	if !ok {
		return Selection{}, parseErr("cannot query field %q on type %q", v.Name, c.b.schema.Type(parentType).Name())
	}
	if c.b.schema.Field(fieldID).Inaccessible() {
		return Selection{}, parseErr("cannot query field %q: inaccessible", v.Name)
	}

	fieldDef := c.b.schema.Field(fieldID)
	args, err := c.bindArguments(fieldDef, v.Arguments)
	if err != nil {
		return Selection{}, err
	}

	f := &Field{ResponseKey: rk, Alias: v.Alias, Name: v.Name, Definition: fieldID, Arguments: args, Location: *v.Position, SkipInclude: c.bindSkipInclude(v.Directives)}
	if len(v.SelectionSet) > 0 {
		namedType := fieldDef.Type().NamedTypeID()
		subs, err := c.bindSelectionSet(namedType, v.SelectionSet, depth+1)
		if err != nil {
			return Selection{}, err
		}
		f.SelectionSet = subs
	}
	return Selection{Field: f}, nil
}

func (c *binding) bindArguments(fieldDef schema.Field, args language.ArgumentList) ([]Argument, error) {
	out := make([]Argument, 0, len(args))
	seen := map[string]bool{}
	for _, a := range args {
		argDef, ok := fieldDef.ArgByName(a.Name)
		if !ok {
			return nil, parseErr("unknown argument %q on field %q", a.Name, fieldDef.Name())
		}
		id, err := c.vb.bind(a.Value, argDef.Type())
		if err != nil {
			return nil, parseErr("argument %q: %v", a.Name, err)
		}
		out = append(out, Argument{Definition: argDef.ID(), Value: id})
		seen[a.Name] = true
	}
	for _, argDef := range fieldDef.Args() {
		if seen[argDef.Name()] {
			continue
		}
		if argDef.Type().IsNonNull() && argDef.DefaultValue() == nil {
			return nil, parseErr("missing required argument %q on field %q", argDef.Name(), fieldDef.Name())
		}
	}
	return out, nil
}

func (c *binding) bindInlineFragment(parentType schema.TypeID, v *language.InlineFragment, depth int) (Selection, error) {
	cond := parentType
	if v.TypeCondition != "" {
		id, ok := c.b.schema.LookupType(v.TypeCondition)
		if !ok {
			return Selection{}, parseErr("unknown type condition %q", v.TypeCondition)
		}
		cond = id
	}
	subs, err := c.bindSelectionSet(cond, v.SelectionSet, depth+1)
	if err != nil {
		return Selection{}, err
	}
	return Selection{InlineFragment: &InlineFragment{TypeCondition: cond, SelectionSet: subs, SkipInclude: c.bindSkipInclude(v.Directives)}}, nil
}

func (c *binding) bindFragmentSpread(parentType schema.TypeID, v *language.FragmentSpread, depth int) (Selection, error) {
	def := c.findFragment(v.Name)
	if def == nil {
		return Selection{}, parseErr("undefined fragment %q", v.Name)
	}
	id, ok := c.b.schema.LookupType(def.TypeCondition)
	if !ok {
		return Selection{}, parseErr("unknown fragment type condition %q", def.TypeCondition)
	}
	subs, err := c.bindSelectionSet(id, def.SelectionSet, depth+1)
	if err != nil {
		return Selection{}, err
	}
	return Selection{FragmentSpread: &FragmentSpread{TypeCondition: id, SelectionSet: subs, SkipInclude: c.bindSkipInclude(v.Directives)}}, nil
}

func (c *binding) findFragment(name string) *language.FragmentDefinition {
	for _, f := range c.fragments {
		if f.Name == name {
			return f
		}
	}
	return nil
}

func (c *binding) bindSkipInclude(directives language.DirectiveList) []SkipIncludeDirective {
	var out []SkipIncludeDirective
	for _, d := range directives {
		if d.Name != schema.DirectiveSkip && d.Name != schema.DirectiveInclude {
			continue
		}
		var ifArg *language.Value
		for _, a := range d.Arguments {
			if a.Name == "if" {
				ifArg = a.Value
			}
		}
		id, _ := c.vb.bind(ifArg, schema.NonNullTypeExpr(schema.NamedTypeExpr(boolTypeID(c.b.schema))))
		out = append(out, SkipIncludeDirective{Include: d.Name == schema.DirectiveInclude, If: id})
	}
	return out
}

func boolTypeID(s *schema.Schema) schema.TypeID {
	id, _ := s.LookupType("Boolean")
	return id
}
