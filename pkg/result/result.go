// Package result distinguishes live remote answers from degraded-mode
// fallbacks, so callers can tell a real upstream response apart from
// canned demo data without inspecting its shape.
package result

type Source uint

const (
	SourceLive Source = iota
	SourceFallback
)

func (s Source) String() string {
	if s == SourceFallback {
		return "fallback"
	}
	return "live"
}

type Result[T any] struct {
	Value  T
	Source Source
}

func Live[T any](v T) Result[T] {
	return Result[T]{Value: v, Source: SourceLive}
}

func Fallback[T any](v T) Result[T] {
	return Result[T]{Value: v, Source: SourceFallback}
}

func (r Result[T]) Degraded() bool {
	return r.Source == SourceFallback
}
