// Package mathutil provides generic min/max helpers for ordered types.
package mathutil

import "cmp"

// Min returns the smaller of a and b.
func Min[T cmp.Ordered](a, b T) T {
	if a < b {
		return a
	}

	return b
}

// Max returns the larger of a and b.
func Max[T cmp.Ordered](a, b T) T {
	if a < b {
		return b
	}

	return a
}
