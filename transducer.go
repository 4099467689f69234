package flux

// Step is the Go-idiomatic shape of a Clojure-style three-arity reducing
// function: Call processes one input, returning whether to continue;
// Complete flushes any buffered state once the upstream ends.
type Step[T any] struct {
	Call     func(v T) (cont bool)
	Complete func()
}

// Xform is a transducer: a function from a downstream Step to an upstream
// Step, composable independently of any particular source or sink. This is
// the representation Transform is built on; the step-plus-complete shape
// rather than a bare step callback is what PartitionAllX's trailing flush
// needs.
type Xform[In, Out any] func(next Step[Out]) Step[In]

// MapX transforms every value with f.
func MapX[In, Out any](f func(In) Out) Xform[In, Out] {
	return func(next Step[Out]) Step[In] {
		return Step[In]{
			Call:     func(v In) bool { return next.Call(f(v)) },
			Complete: next.Complete,
		}
	}
}

// FilterX keeps only values for which pred returns true.
func FilterX[T any](pred func(T) bool) Xform[T, T] {
	return func(next Step[T]) Step[T] {
		return Step[T]{
			Call: func(v T) bool {
				if pred(v) {
					return next.Call(v)
				}
				return true
			},
			Complete: next.Complete,
		}
	}
}

// MapcatX expands each input into zero or more outputs via f.
func MapcatX[In, Out any](f func(In) []Out) Xform[In, Out] {
	return func(next Step[Out]) Step[In] {
		return Step[In]{
			Call: func(v In) bool {
				for _, out := range f(v) {
					if !next.Call(out) {
						return false
					}
				}
				return true
			},
			Complete: next.Complete,
		}
	}
}

// PartitionAllX groups every n consecutive inputs into a slice, flushing a
// shorter trailing partition on Complete if one is buffered.
func PartitionAllX[T any](n int) Xform[T, []T] {
	return func(next Step[[]T]) Step[T] {
		var buf []T
		return Step[T]{
			Call: func(v T) bool {
				buf = append(buf, v)
				if len(buf) == n {
					out := buf
					buf = nil
					return next.Call(out)
				}
				return true
			},
			Complete: func() {
				if len(buf) > 0 {
					out := buf
					buf = nil
					next.Call(out)
				}
				next.Complete()
			},
		}
	}
}

// Compose2 chains two transducers into one.
func Compose2[A, B, C any](xf1 Xform[A, B], xf2 Xform[B, C]) Xform[A, C] {
	return func(next Step[C]) Step[A] {
		return xf1(xf2(next))
	}
}

// Compose3 chains three transducers into one.
func Compose3[A, B, C, D any](xf1 Xform[A, B], xf2 Xform[B, C], xf3 Xform[C, D]) Xform[A, D] {
	return func(next Step[D]) Step[A] {
		return xf1(xf2(xf3(next)))
	}
}
