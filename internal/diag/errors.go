package diag

import (
	"errors"
	"fmt"
	"strings"
)

// Kind classifies a diagnostics failure.
type Kind int

const (
	// KindTransient marks failures worth retrying (timeouts, throttling,
	// connection resets). Retry exhaustion escalates to a table-scoped
	// failure of the same kind.
	KindTransient Kind = iota

	// KindMetadataNotFound marks tables without a current snapshot or
	// without resolvable metadata.
	KindMetadataNotFound

	// KindMetadataCorrupt marks unparseable metadata, or a manifest corruption
	// rate above the configured threshold.
	KindMetadataCorrupt

	// KindAccessDenied marks authentication and authorization failures.
	KindAccessDenied

	// KindInvalidParameter marks invalid caller-supplied parameters. It aborts
	// the offending invocation before any remote work.
	KindInvalidParameter
)

// String returns the kind name.
func (k Kind) String() string {
	switch k {
	case KindMetadataNotFound:
		return "metadata_not_found"
	case KindMetadataCorrupt:
		return "metadata_corrupt"
	case KindAccessDenied:
		return "access_denied"
	case KindInvalidParameter:
		return "invalid_parameter"
	case KindTransient:
		return "transient"
	default:
		return "unknown"
	}
}

// Error is a classified diagnostics error, optionally scoped to one table.
type Error struct {
	// Kind is the failure classification.
	Kind Kind

	// Table is the table the failure is scoped to (zero value for
	// table-independent failures).
	Table TableIdentifier

	// Err is the underlying error.
	Err error
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Err == nil {
		return e.Kind.String()
	}
	if e.Table == (TableIdentifier{}) {
		return fmt.Sprintf("%s: %v", e.Kind, e.Err)
	}
	return fmt.Sprintf("%s: table %s: %v", e.Kind, e.Table, e.Err)
}

// Unwrap returns the underlying error for errors.Is/As support.
func (e *Error) Unwrap() error {
	return e.Err
}

// NewError creates an Error of the given kind.
func NewError(kind Kind, err error) *Error {
	return &Error{Kind: kind, Err: err}
}

// NewTableError creates an Error scoped to a table.
func NewTableError(kind Kind, table TableIdentifier, err error) *Error {
	return &Error{Kind: kind, Table: table, Err: err}
}

// KindOf returns the kind of a classified error, or Classify's best guess
// for unclassified errors. A nil error has no kind; callers must check for
// nil first.
func KindOf(err error) Kind {
	var de *Error
	if errors.As(err, &de) {
		return de.Kind
	}
	return Classify(err)
}

// IsKind reports whether err is classified as the given kind.
func IsKind(err error, kind Kind) bool {
	if err == nil {
		return false
	}
	return KindOf(err) == kind
}

// Classify maps an unclassified error onto the failure taxonomy by message
// inspection. Catalog and storage clients surface failures as free-form
// strings, so this mirrors the patterns those clients are known to emit.
// Everything unrecognized is treated as transient and worth retrying.
func Classify(err error) Kind {
	if err == nil {
		return KindTransient
	}

	errMsg := strings.ToLower(err.Error())

	notFoundErrors := []string{
		"no such table",
		"table does not exist",
		"no such namespace",
		"namespace does not exist",
		"no current snapshot",
		"entitynotfound",
		"not found",
	}
	for _, pattern := range notFoundErrors {
		if strings.Contains(errMsg, pattern) {
			return KindMetadataNotFound
		}
	}

	accessErrors := []string{
		"unauthorized",
		"unauthenticated",
		"invalid token",
		"token expired",
		"invalid credentials",
		"authentication failed",
		"forbidden",
		"access denied",
		"accessdenied",
		"permission denied",
		"not authorized",
		"insufficient permissions",
	}
	for _, pattern := range accessErrors {
		if strings.Contains(errMsg, pattern) {
			return KindAccessDenied
		}
	}

	corruptErrors := []string{
		"corrupt",
		"unmarshal",
		"cannot parse",
		"failed to parse",
		"invalid json",
		"invalid avro",
		"unexpected eof",
		"malformed",
		"invalid format version",
		"decoding",
	}
	for _, pattern := range corruptErrors {
		if strings.Contains(errMsg, pattern) {
			return KindMetadataCorrupt
		}
	}

	invalidErrors := []string{
		"invalid argument",
		"invalid parameter",
		"validation failed",
	}
	for _, pattern := range invalidErrors {
		if strings.Contains(errMsg, pattern) {
			return KindInvalidParameter
		}
	}

	return KindTransient
}
