package utils

// ValueOr dereferences v, or returns fallback when v is nil.
func ValueOr[T any](v *T, fallback T) T {
	if v == nil {
		return fallback
	}
	return *v
}

// NonNil returns v, or a pointer to a zero T when v is nil. Views use it
// so templates never walk a nil pointer.
func NonNil[T any](v *T) *T {
	if v == nil {
		return new(T)
	}
	return v
}

func Ptr[T any](v T) *T {
	return &v
}
