package collections

import (
	"math"
)

// OrderedGroups is a group-by result that remembers first-seen key order.
type OrderedGroups[K comparable, V any] struct {
	keys   []K
	values map[K]V
}

// GroupBy folds items into groups. key extracts the group key; fold merges an
// item into the group's accumulator (the zero value for a new group).
func GroupBy[T any, K comparable, V any](items []T, key func(T) K, fold func(V, T) V) *OrderedGroups[K, V] {
	g := &OrderedGroups[K, V]{values: make(map[K]V)}
	for _, item := range items {
		k := key(item)
		acc, seen := g.values[k]
		if !seen {
			g.keys = append(g.keys, k)
		}
		g.values[k] = fold(acc, item)
	}
	return g
}

// Keys returns group keys in first-seen order.
func (g *OrderedGroups[K, V]) Keys() []K {
	out := make([]K, len(g.keys))
	copy(out, g.keys)
	return out
}

// Get returns the accumulator of a group.
func (g *OrderedGroups[K, V]) Get(k K) (V, bool) {
	v, ok := g.values[k]
	return v, ok
}

// Len is the number of groups.
func (g *OrderedGroups[K, V]) Len() int {
	return len(g.keys)
}

// Reindex returns one value per key in keys, using fill for absent groups.
// Groups whose key is not in keys are dropped.
func (g *OrderedGroups[K, V]) Reindex(keys []K, fill V) []V {
	out := make([]V, len(keys))
	for i, k := range keys {
		if v, ok := g.values[k]; ok {
			out[i] = v
		} else {
			out[i] = fill
		}
	}
	return out
}

// SafeDiv divides n by d, yielding 0 for a zero denominator or any
// non-finite result.
func SafeDiv(n, d float64) float64 {
	if d == 0 {
		return 0
	}
	q := n / d
	if math.IsNaN(q) || math.IsInf(q, 0) {
		return 0
	}
	return q
}
