package shuffle

import (
	"hash/fnv"
	"math/rand"
)

// Seed maps an arbitrary string to a numeric seed. Equal strings always
// produce equal seeds, across process restarts.
func Seed(s string) int64 {
	h := fnv.New64a()
	_, _ = h.Write([]byte(s))
	return int64(h.Sum64())
}

// Deterministic returns a permutation of items driven entirely by seed:
// the same items and seed always produce the same order. The input slice
// is never mutated.
func Deterministic[T any](items []T, seed int64) []T {
	out := make([]T, len(items))
	copy(out, items)
	r := rand.New(rand.NewSource(seed))
	r.Shuffle(len(out), func(i, j int) {
		out[i], out[j] = out[j], out[i]
	})
	return out
}
