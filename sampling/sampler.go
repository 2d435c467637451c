package sampling

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"math/rand"
	"time"

	"github.com/grailbio/base/errors"
	"github.com/grailbio/base/log"
	"github.com/grailbio/strandedness/download"
)

// Opts configures a Sampler.
type Opts struct {
	// Bins is the number of strata the spot space is split into.
	Bins int
	// Required is the number of informative reads wanted per experiment.
	Required int
	// Multiplier scales Required to account for reads that turn out to be
	// uninformative or are filtered by the downloader.
	Multiplier int
}

// DefaultOpts fetches 1000 spots per experiment in 100 slices of 10.
var DefaultOpts = Opts{
	Bins:       100,
	Required:   100,
	Multiplier: 10,
}

// Validate checks that the options describe a non-empty sample.
func (o Opts) Validate() error {
	if o.Bins < 1 {
		return errors.E(errors.Invalid, fmt.Sprintf("bins: %d must be positive", o.Bins))
	}
	if o.Required < 1 || o.Multiplier < 1 {
		return errors.E(errors.Invalid, fmt.Sprintf("required reads %d and multiplier %d must be positive", o.Required, o.Multiplier))
	}
	if SliceSize(o.Required, o.Multiplier, o.Bins) < 1 {
		return errors.E(errors.Invalid, fmt.Sprintf("%d reads x %d over %d bins leaves empty slices", o.Required, o.Multiplier, o.Bins))
	}
	return nil
}

// Sampler draws stratified slices of an experiment and fetches them.
type Sampler struct {
	src  download.Source
	opts Opts
}

// NewSampler creates a Sampler that fetches from src, typically a
// *download.Fetcher.
func NewSampler(src download.Source, opts Opts) *Sampler {
	return &Sampler{src: src, opts: opts}
}

// Plan computes the bins of an experiment with total spots and draws one
// slice per bin from rng.
func (s *Sampler) Plan(total int64, rng *rand.Rand) ([]Slice, error) {
	bins, err := Bins(total, s.opts.Bins)
	if err != nil {
		return nil, err
	}
	return Choose(bins, SliceSize(s.opts.Required, s.opts.Multiplier, s.opts.Bins), rng)
}

// Sample plans the slices of acc, writes their start spots to audit (one per
// line) before anything is fetched, then fetches the slices one at a time
// and passes each payload to visit. The first fetch or visit error aborts
// the experiment and is returned as is.
func (s *Sampler) Sample(ctx context.Context, acc string, total int64, rng *rand.Rand, audit io.Writer,
	visit func(Slice, []byte) error) error {
	slices, err := s.Plan(total, rng)
	if err != nil {
		return errors.E(err, "sampling", acc)
	}
	if audit != nil {
		w := bufio.NewWriter(audit)
		for _, sl := range slices {
			fmt.Fprintf(w, "%d\n", sl.Start)
		}
		if err := w.Flush(); err != nil {
			return errors.E(err, "writing sampled spots of", acc)
		}
	}
	start := time.Now()
	for _, sl := range slices {
		data, err := s.src.Fetch(ctx, acc, sl.Start, sl.Last())
		if err != nil {
			return err
		}
		if err := visit(sl, data); err != nil {
			return err
		}
	}
	log.Printf("%s: total download time was %v", acc, time.Since(start))
	return nil
}
