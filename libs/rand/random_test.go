package rand

import (
	"testing"

	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"
)

func TestSampleDistinctAndBounded(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		n := rapid.IntRange(0, 64).Draw(t, "n").(int)
		k := rapid.IntRange(0, 70).Draw(t, "k").(int)

		got := NewWithSeed(rapid.Int64().Draw(t, "seed").(int64)).Sample(n, k)

		want := k
		if n < k {
			want = n
		}
		if len(got) != want {
			t.Fatalf("Sample(%d, %d) returned %d indices", n, k, len(got))
		}

		seen := make(map[int]bool, len(got))
		for _, idx := range got {
			if idx < 0 || idx >= n {
				t.Fatalf("index %d out of range [0, %d)", idx, n)
			}
			if seen[idx] {
				t.Fatalf("index %d chosen twice", idx)
			}
			seen[idx] = true
		}
	})
}

func TestSampleIsRoughlyUniform(t *testing.T) {
	r := NewWithSeed(7)
	counts := make([]int, 5)
	const rounds = 10000
	for i := 0; i < rounds; i++ {
		for _, idx := range r.Sample(len(counts), 2) {
			counts[idx]++
		}
	}

	// each index is expected rounds*2/5 = 4000 times
	for idx, c := range counts {
		require.InDelta(t, 4000, c, 400, "index %d", idx)
	}
}

func TestStr(t *testing.T) {
	require.Equal(t, "", Str(0))
	s := Str(32)
	require.Len(t, s, 32)
	for _, c := range s {
		require.Contains(t, strChars, string(c))
	}
}
