package strand

import (
	"context"
	"math"
	"math/rand"

	"github.com/grailbio/base/log"
)

// NullP is the success probability of an unstranded library.
const NullP = 0.5

// Stats accumulates the strandedness evidence of one experiment.
//
// Two strategies are tracked side by side. The random strategy draws one
// strand-tagged primary alignment per read. The weighted strategy gives each
// read one unit of weight, split evenly across its strand-tagged primaries.
type Stats struct {
	RandomSense     int
	RandomChecked   int
	WeightedSense   float64
	WeightedChecked float64

	// Groups is the number of read groups seen.
	Groups int
	// Unscored counts groups without any AS-tagged alignment.
	Unscored int
	// NoMate counts paired-end groups where no primary matched the chosen mate.
	NoMate int
	// Untagged counts groups whose primaries all lack an XS:A tag.
	Untagged int
	// UnpairedMate counts paired-end groups that contained an unpaired
	// primary; see ErrUnpairedMate.
	UnpairedMate int
}

// Add folds the primary alignments of one read into s. The primaries are
// shuffled in place using rng; the first tagged alignment in shuffled order
// is the read's random draw.
func (s *Stats) Add(primary []Alignment, rng *rand.Rand) {
	rng.Shuffle(len(primary), func(i, j int) {
		primary[i], primary[j] = primary[j], primary[i]
	})
	var tagged, sense int
	drawn := false
	for _, a := range primary {
		if !a.Tagged() {
			continue
		}
		tagged++
		isSense := Sense(a.Flags, a.Strand)
		if isSense {
			sense++
		}
		if !drawn {
			drawn = true
			s.RandomChecked++
			if isSense {
				s.RandomSense++
			}
		}
	}
	if tagged == 0 {
		s.Untagged++
		return
	}
	s.WeightedSense += float64(sense) / float64(tagged)
	s.WeightedChecked++
}

// RandomAntisense is the number of random draws that were antisense.
func (s Stats) RandomAntisense() int { return s.RandomChecked - s.RandomSense }

// WeightedAntisense is the antisense weight.
func (s Stats) WeightedAntisense() float64 { return s.WeightedChecked - s.WeightedSense }

// PValues returns the two-sided binomial p-values of both strategies against
// NullP. The weighted accumulators are rounded to the nearest integer first.
func (s Stats) PValues() (random, weighted float64) {
	random = BinomTest(s.RandomSense, s.RandomChecked, NullP)
	weighted = BinomTest(int(math.Round(s.WeightedSense)), int(math.Round(s.WeightedChecked)), NullP)
	return
}

// Count groups the records of src by read name, selects primaries and
// accumulates Stats. Random draws are taken from rng in stream order: for
// each group, the mate coin flip (paired only) and then the shuffle.
func Count(ctx context.Context, src RecordSource, paired bool, rng *rand.Rand) (Stats, error) {
	var s Stats
	g := NewGrouper(src)
	for g.Scan() {
		if err := ctx.Err(); err != nil {
			return s, err
		}
		group := g.Group()
		s.Groups++
		primary, err := SelectPrimary(group, paired, rng)
		if err == ErrUnpairedMate {
			log.Debug.Printf("%s: %v", group[0].Name, err)
			s.UnpairedMate++
		} else if err != nil {
			return s, err
		}
		if len(primary) == 0 {
			if err == ErrUnpairedMate {
				continue
			}
			if anyScored(group) {
				s.NoMate++
			} else {
				s.Unscored++
			}
			continue
		}
		s.Add(primary, rng)
	}
	return s, g.Err()
}
