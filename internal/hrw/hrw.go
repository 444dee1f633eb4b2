// Package hrw implements rendezvous (highest random weight) hashing: a key
// maps to the target with the highest score, so adding or removing a
// target only moves the keys that were on it.
package hrw

import (
	"encoding/binary"

	"golang.org/x/crypto/blake2b"
)

// Score is the weight of key on target.
func Score(key, target, seed string) uint64 {
	h, _ := blake2b.New(8, nil)
	if seed != "" {
		h.Write([]byte(seed))
		h.Write([]byte{0})
	}
	h.Write([]byte(key))
	h.Write([]byte{0})
	h.Write([]byte(target))
	return binary.BigEndian.Uint64(h.Sum(nil))
}

// Pick returns the index of the target with the highest score for key,
// or -1 when targets is empty. Ties go to the lower index.
func Pick(key string, targets []string, seed string) int {
	best := -1
	var bestScore uint64
	for i, t := range targets {
		s := Score(key, t, seed)
		if best < 0 || s > bestScore {
			best, bestScore = i, s
		}
	}
	return best
}
