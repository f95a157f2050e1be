package catalog

import "errors"

var (
	// ErrNotConfigured means no remote store was wired in.
	ErrNotConfigured = errors.New("remote store not configured")
	// ErrEmptyResult means the remote store answered with no rows. For list
	// accessors this is treated like a failure.
	ErrEmptyResult = errors.New("remote store returned no rows")
	// ErrNotFound means a lookup missed both the remote data and the fallback dataset.
	ErrNotFound = errors.New("not found")
)

// Origin says where a Result's data came from.
type Origin string

const (
	OriginRemote   Origin = "remote"
	OriginCache    Origin = "cache"
	OriginFallback Origin = "fallback"
)

// Result carries accessor data together with its origin. When Origin is
// OriginFallback, Reason holds the error that caused the substitution.
type Result[T any] struct {
	Data   T
	Origin Origin
	Reason error
}

// Fallback reports whether Data is seed data rather than backend data.
func (r Result[T]) Fallback() bool {
	return r.Origin == OriginFallback
}

// reasonCode is a low-cardinality label for a fallback reason.
func reasonCode(err error) string {
	switch {
	case err == nil:
		return "none"
	case errors.Is(err, ErrNotConfigured):
		return "not_configured"
	case errors.Is(err, ErrEmptyResult):
		return "empty"
	case errors.Is(err, ErrNotFound):
		return "not_found"
	default:
		return "error"
	}
}
