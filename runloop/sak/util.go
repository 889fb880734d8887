package sak

// Max returns the larger of a and b.
func Max[T int | int32 | int64 | float64](a, b T) T {
	if a > b {
		return a
	}
	return b
}

// ToPtrSlice returns a slice of pointers to each element of s, in order.
func ToPtrSlice[T any](s []T) []*T {
	out := make([]*T, len(s))
	for i := range s {
		out[i] = &s[i]
	}
	return out
}
