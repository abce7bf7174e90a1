package util

import (
	"cmp"
	"maps"
	"slices"
)

// FindFirst returns the first element of s that satisfies predicate.
func FindFirst[T any](s []T, predicate func(T) bool) (T, bool) {
	i := slices.IndexFunc(s, predicate)
	if i < 0 {
		var zero T
		return zero, false
	}
	return s[i], true
}

// SortedKeys returns the keys of m in ascending order.
func SortedKeys[M ~map[K]V, K cmp.Ordered, V any](m M) []K {
	return slices.Sorted(maps.Keys(m))
}
