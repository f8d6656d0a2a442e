package operation

import "fmt"

// ErrorCode mirrors the `extensions.code` values spec.md §6 promises the
// client.
type ErrorCode string

const (
	CodeBadRequest             ErrorCode = "BAD_REQUEST"
	CodePersistedQueryNotFound ErrorCode = "PERSISTED_QUERY_NOT_FOUND"
)

// BindError is returned by Bind when parsing, binding or validation fails.
// It always carries a Code so the HTTP adapter can pick the right status
// per spec.md §7 ("Request malformed" vs "Operation invalid").
type BindError struct {
	Code    ErrorCode
	Message string
	Line    int
	Column  int
}

func (e *BindError) Error() string { return e.Message }

func parseErr(format string, args ...any) *BindError {
	return &BindError{Code: CodeBadRequest, Message: fmt.Sprintf(format, args...)}
}

// ValidationErrors collects every validation failure from one Bind call, so
// a client sees all problems with their operation at once (GraphQL spec
// convention) rather than only the first.
type ValidationErrors []*BindError

func (e ValidationErrors) Error() string {
	if len(e) == 0 {
		return "no validation errors"
	}
	return e[0].Message
}

// ErrPersistedQueryNotFound is returned by the APQ flow (spec.md §4.2, §8.5)
// when a client sends only a hash the TrustedDocumentsClient does not know.
var ErrPersistedQueryNotFound = &BindError{
	Code:    CodePersistedQueryNotFound,
	Message: "PersistedQueryNotFound",
}

// ErrPersistedQueryVersionUnsupported is returned for
// `extensions.persistedQuery.version != 1` (spec.md §6).
var ErrPersistedQueryVersionUnsupported = &BindError{
	Code:    CodeBadRequest,
	Message: "Persisted query version not supported",
}
