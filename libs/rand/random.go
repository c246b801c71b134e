package rand

import (
	crand "crypto/rand"
	"encoding/binary"
	mrand "math/rand"
	"sync"
)

const (
	strChars = "0123456789ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz" // 62 characters
)

// NewRand returns a prng, that is seeded with OS randomness.
// The OS randomness is obtained from crypto/rand, however, like with any math/rand.Rand
// object none of the provided methods are suitable for cryptographic usage.
//
// The returned math/rand.Rand is not safe for concurrent use; wrap it in a
// Rand when it is shared.
func NewRand() *mrand.Rand {
	var seed int64
	_ = binary.Read(crand.Reader, binary.BigEndian, &seed)
	return mrand.New(mrand.NewSource(seed))
}

// Rand is a mutex protected prng that may be shared between goroutines.
type Rand struct {
	mtx sync.Mutex
	rnd *mrand.Rand
}

// New returns a Rand seeded with OS randomness.
func New() *Rand {
	return &Rand{rnd: NewRand()}
}

// NewWithSeed returns a deterministic Rand, for tests.
func NewWithSeed(seed int64) *Rand {
	return &Rand{rnd: mrand.New(mrand.NewSource(seed))}
}

// Sample returns min(k, n) distinct indices in [0, n), chosen uniformly at
// random without replacement. The order of the result is random.
func (r *Rand) Sample(n, k int) []int {
	if k > n {
		k = n
	}
	if k <= 0 {
		return []int{}
	}

	// partial Fisher-Yates over a sparse permutation, so the cost is O(k)
	// regardless of n.
	swapped := make(map[int]int, k)
	at := func(i int) int {
		if v, ok := swapped[i]; ok {
			return v
		}
		return i
	}

	out := make([]int, k)

	r.mtx.Lock()
	defer r.mtx.Unlock()
	for i := 0; i < k; i++ {
		j := i + r.rnd.Intn(n-i)
		vi, vj := at(i), at(j)
		swapped[i], swapped[j] = vj, vi
		out[i] = vj
	}
	return out
}

// Str constructs a random alphanumeric string of given length
// from a freshly instantiated prng.
func Str(length int) string {
	rand := NewRand()
	if length <= 0 {
		return ""
	}

	chars := make([]byte, 0, length)
	for {
		val := rand.Int63()
		for i := 0; i < 10; i++ {
			v := int(val & 0x3f) // rightmost 6 bits
			if v >= 62 {         // only 62 characters in strChars
				val >>= 6
				continue
			} else {
				chars = append(chars, strChars[v])
				if len(chars) == length {
					return string(chars)
				}
				val >>= 6
			}
		}
	}
}
