// Package sampling picks the spots of an experiment that are downloaded for
// strandedness inference. The spot space [1, total] is split into equal-width
// bins and one fixed-size contiguous slice is drawn uniformly from each bin,
// so the sample covers the whole run instead of clustering in one region.
package sampling

import (
	"fmt"
	"math/rand"

	"github.com/grailbio/base/errors"
)

// Bin is the inclusive 1-based spot range [Start, Stop].
type Bin struct {
	Index       int
	Start, Stop int64
}

// Width returns the number of spots in the bin.
func (b Bin) Width() int64 { return b.Stop - b.Start + 1 }

func (b Bin) String() string { return fmt.Sprintf("bin %d [%d,%d]", b.Index, b.Start, b.Stop) }

// Slice is the spot range [Start, Start+Size) drawn from a bin.
type Slice struct {
	Bin   int
	Start int64
	Size  int64
}

// Last returns the last spot of the slice, inclusive.
func (s Slice) Last() int64 { return s.Start + s.Size - 1 }

// Bins splits [1, total] into n bins of width total/n. The remainder
// total%n at the end of the run is never sampled.
func Bins(total int64, n int) ([]Bin, error) {
	if n < 1 {
		return nil, errors.E(errors.Invalid, fmt.Sprintf("bin count %d must be positive", n))
	}
	width := total / int64(n)
	if width < 1 {
		return nil, errors.E(errors.Invalid, fmt.Sprintf("%d spots are too few for %d bins", total, n))
	}
	bins := make([]Bin, n)
	for i := range bins {
		bins[i] = Bin{
			Index: i,
			Start: int64(i)*width + 1,
			Stop:  int64(i+1) * width,
		}
	}
	return bins, nil
}

// SliceSize returns the number of spots fetched per bin so that all bins
// together yield required*multiplier spots.
func SliceSize(required, multiplier, nBins int) int64 {
	if nBins < 1 {
		return 0
	}
	return int64(required) * int64(multiplier) / int64(nBins)
}

// Choose draws one slice of the given size per bin, in bin order, with a
// start spot uniform over the positions where the slice fits in the bin:
// [bin.Start, bin.Stop-size+1], both ends inclusive, so that the last spot
// of a slice starting at the upper bound is bin.Stop.
func Choose(bins []Bin, size int64, rng *rand.Rand) ([]Slice, error) {
	if size < 1 {
		return nil, errors.E(errors.Invalid, fmt.Sprintf("slice size %d must be positive", size))
	}
	slices := make([]Slice, len(bins))
	for i, b := range bins {
		if size > b.Width() {
			return nil, errors.E(errors.Invalid, fmt.Sprintf("slice of %d spots does not fit in %v", size, b))
		}
		slices[i] = Slice{
			Bin:   b.Index,
			Start: b.Start + rng.Int63n(b.Width()-size+1),
			Size:  size,
		}
	}
	return slices, nil
}
