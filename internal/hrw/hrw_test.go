package hrw

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestPick_empty(t *testing.T) {
	require.Equal(t, -1, Pick("k", nil, ""))
}

func TestPick_stable(t *testing.T) {
	targets := []string{"a", "b", "c", "d"}
	for i := 0; i < 100; i++ {
		key := fmt.Sprintf("key-%d", i)
		require.Equal(t, Pick(key, targets, "s"), Pick(key, targets, "s"))
	}
}

func TestPick_minimal_movement(t *testing.T) {
	before := []string{"a", "b", "c", "d"}
	after := []string{"a", "b", "c"}

	for i := 0; i < 500; i++ {
		key := fmt.Sprintf("key-%d", i)
		was := before[Pick(key, before, "")]
		now := after[Pick(key, after, "")]
		if was != "d" {
			require.Equal(t, was, now, "key %s moved although its target stayed", key)
		}
	}
}

func TestPick_spreads(t *testing.T) {
	targets := []string{"a", "b", "c"}
	seen := map[int]int{}
	for i := 0; i < 300; i++ {
		seen[Pick(fmt.Sprintf("key-%d", i), targets, "")]++
	}
	require.Len(t, seen, 3)
}

func TestScore_seed_changes_score(t *testing.T) {
	require.NotEqual(t, Score("k", "a", ""), Score("k", "a", "other"))
}
