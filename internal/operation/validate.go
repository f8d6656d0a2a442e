package operation

import "fmt"

// validateOperationLimits enforces the Limits gathered while walking the
// selection set in bindSelectionSet/bindField (spec.md §4.2 "operation
// limits"). A zero limit means unbounded for that dimension.
func validateOperationLimits(c *binding, limits Limits) ValidationErrors {
	var errs ValidationErrors
	if limits.MaxDepth > 0 && c.maxDepth > limits.MaxDepth {
		errs = append(errs, &BindError{Code: CodeBadRequest, Message: fmt.Sprintf("query exceeds max depth of %d", limits.MaxDepth)})
	}
	if limits.MaxRootFields > 0 && len(c.op.SelectionSet) > limits.MaxRootFields {
		errs = append(errs, &BindError{Code: CodeBadRequest, Message: fmt.Sprintf("query exceeds max root fields of %d", limits.MaxRootFields)})
	}
	if limits.MaxAliases > 0 && c.fieldCount > limits.MaxAliases {
		errs = append(errs, &BindError{Code: CodeBadRequest, Message: fmt.Sprintf("query exceeds max field/alias count of %d", limits.MaxAliases)})
	}
	if limits.MaxComplexity > 0 && c.fieldCount > limits.MaxComplexity {
		errs = append(errs, &BindError{Code: CodeBadRequest, Message: fmt.Sprintf("query exceeds max complexity of %d", limits.MaxComplexity)})
	}
	return errs
}

// validateVariableUsage checks that every non-null variable without a
// default value was actually supplied in the request, per the GraphQL spec's
// "All Variable Usages Are Allowed" rule. Only presence is checked: neither
// this function nor ResolveInputValue checks a supplied value against the
// variable's declared type.
func validateVariableUsage(op *Operation, variables map[string]any) ValidationErrors {
	var errs ValidationErrors
	for name, def := range op.VariableDefs {
		if !def.Type.IsNonNull() {
			continue
		}
		if def.HasDefault {
			continue
		}
		if _, ok := variables[name]; !ok {
			errs = append(errs, &BindError{Code: CodeBadRequest, Message: fmt.Sprintf("missing value for required variable $%s", name)})
		}
	}
	return errs
}
