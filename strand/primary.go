package strand

import (
	"math/rand"

	"github.com/grailbio/base/errors"
	"github.com/grailbio/hts/sam"
)

// ErrUnpairedMate is returned by SelectPrimary when a paired-end group holds
// a primary alignment without the paired flag. Mate selection stops at that
// alignment; the alignments kept before it are still returned.
var ErrUnpairedMate = errors.New("unpaired alignment in a paired-end group")

// SelectPrimary returns the alignments of group that tie for the best AS
// score. Alignments without a score are never selected, and a group with no
// scored alignment yields nil without consuming randomness.
//
// For paired-end data, one coin flip is drawn from rng per group to choose
// between first and second mates, and only primaries of that mate are kept.
// The returned slice is newly allocated.
func SelectPrimary(group []Alignment, paired bool, rng *rand.Rand) ([]Alignment, error) {
	best, scored := 0, false
	for _, a := range group {
		if a.Scored && (!scored || a.Score > best) {
			best, scored = a.Score, true
		}
	}
	if !scored {
		return nil, nil
	}
	var primary []Alignment
	for _, a := range group {
		if a.Scored && a.Score == best {
			primary = append(primary, a)
		}
	}
	if !paired {
		return primary, nil
	}
	wantFirst := rng.Intn(2) == 1
	mates := primary[:0]
	for _, a := range primary {
		if a.Flags&sam.Paired == 0 {
			return mates, ErrUnpairedMate
		}
		if (a.Flags&sam.Read1 != 0) == wantFirst {
			mates = append(mates, a)
		}
	}
	return mates, nil
}

func anyScored(group []Alignment) bool {
	for _, a := range group {
		if a.Scored {
			return true
		}
	}
	return false
}
