package operation

// Limits bounds the shape of an incoming operation (spec.md §4.2
// "operation limits"). Zero means "no limit" for that dimension.
type Limits struct {
	MaxDepth      int
	MaxRootFields int
	MaxAliases    int
	MaxComplexity int
}

// DefaultLimits are conservative ceilings suitable for a public endpoint,
// grounded on the values the teacher's executor tests exercise
// (internal/executor/executor_*_test.go used small fixed-depth queries; we
// generalize to explicit, documented ceilings rather than leaving them
// unbounded).
var DefaultLimits = Limits{
	MaxDepth:      16,
	MaxRootFields: 64,
	MaxAliases:    256,
	MaxComplexity: 10000,
}
