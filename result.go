package authclient

// Result is the outcome of a Controller operation. Callers branch on OK or
// Kind instead of recovering from errors.
type Result[T any] struct {
	Value   T
	Kind    ErrorKind
	Message string
	Err     error
}

// Ok builds a successful result.
func Ok[T any](value T, message string) Result[T] {
	return Result[T]{Value: value, Message: message}
}

// Fail builds a failed result, deriving Kind from err.
func Fail[T any](err error, message string) Result[T] {
	kind := KindOf(err)
	if kind == KindNone {
		kind = KindInternal
	}
	if message == "" && err != nil {
		message = err.Error()
	}
	return Result[T]{Kind: kind, Message: message, Err: err}
}

// OK reports success.
func (r Result[T]) OK() bool {
	return r.Kind == KindNone && r.Err == nil
}

// Unwrap returns the value and the error, for callers that prefer Go's
// (value, error) shape.
func (r Result[T]) Unwrap() (T, error) {
	return r.Value, r.Err
}
