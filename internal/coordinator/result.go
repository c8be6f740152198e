package coordinator

// Status is the load state of a request family.
type Status int

const (
	StatusIdle Status = iota
	StatusLoading
	StatusSuccess
	StatusError
)

// String returns the lower-case name of the status.
func (s Status) String() string {
	switch s {
	case StatusIdle:
		return "idle"
	case StatusLoading:
		return "loading"
	case StatusSuccess:
		return "success"
	case StatusError:
		return "error"
	default:
		return "unknown"
	}
}

// Result is the committed outcome of a family. Data is meaningful only when
// Status is StatusSuccess and Err only when Status is StatusError.
type Result[T any] struct {
	Status Status
	Data   T
	Err    string
}

// Idle returns an empty result.
func Idle[T any]() Result[T] {
	return Result[T]{Status: StatusIdle}
}

// Loading returns a result with no data and no error.
func Loading[T any]() Result[T] {
	return Result[T]{Status: StatusLoading}
}

// Succeeded returns a result holding data.
func Succeeded[T any](data T) Result[T] {
	return Result[T]{Status: StatusSuccess, Data: data}
}

// Failed returns a result holding an error message.
func Failed[T any](msg string) Result[T] {
	return Result[T]{Status: StatusError, Err: msg}
}

// HasData reports whether the result holds data.
func (r Result[T]) HasData() bool {
	return r.Status == StatusSuccess
}

// HasError reports whether the result holds an error message.
func (r Result[T]) HasError() bool {
	return r.Status == StatusError
}
