package infer

import (
	"math/rand"

	"github.com/spaolacci/murmur3"
)

// Seed returns the random seed of an accession: the signed 32-bit
// MurmurHash3 (x86_32, seed 0) of its name. Every run over the same
// accession therefore samples the same spots and breaks the same ties.
func Seed(acc string) int64 {
	return int64(int32(murmur3.Sum32([]byte(acc))))
}

// NewRand returns the generator used for every random draw of one
// experiment. The draws happen in a fixed order: slice starts in bin order,
// then for each read group a mate coin flip (paired data only) followed by
// the shuffle of its primary alignments.
func NewRand(acc string) *rand.Rand {
	return rand.New(rand.NewSource(Seed(acc)))
}
