package testutil

import (
	"math/rand"

	fuzz "github.com/google/gofuzz"
	. "github.com/onsi/ginkgo"
)

// Rand and Fuzzer are seeded by ginkgo, so failed run can be reproduced with -seed flag.
var (
	RandSource = rand.NewSource(GinkgoRandomSeed())
	Rand       = rand.New(RandSource)
	Fuzzer     = fuzz.New().NilChance(0).RandSource(RandSource)
	Fuzz       = Fuzzer.Fuzz
)

// FastRand is reader that fills only first byte of every read with random value.
// It is useful for large test data, when content quality doesn't matter.
var FastRand fastRandReader

type fastRandReader struct{}

func (fastRandReader) Read(p []byte) (int, error) {
	if len(p) > 0 {
		p[0] = byte(Rand.Int())
	}
	return len(p), nil
}

// RandKeys returns n keys from small key space, so keys repeat often.
func RandKeys(n, keySpace int) []string {
	keys := make([]string, n)
	for i := range keys {
		keys[i] = string(rune('A' + Rand.Intn(keySpace)))
	}
	return keys
}
