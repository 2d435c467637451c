package infer

import (
	"bytes"
	"context"
	"fmt"
	"math/rand"
	"sync"
	"time"

	"github.com/grailbio/base/errors"
	"github.com/grailbio/base/file"
	"github.com/grailbio/base/log"
	"github.com/grailbio/base/traverse"
	"github.com/grailbio/strandedness/align"
	"github.com/grailbio/strandedness/download"
	"github.com/grailbio/strandedness/encoding/fastq"
	"github.com/grailbio/strandedness/sampling"
	"github.com/grailbio/strandedness/strand"
)

// Aligner aligns reshaped reads and writes gzip-compressed SAM to outPath.
// align.Hisat2 implements it.
type Aligner interface {
	Align(ctx context.Context, units []byte, outPath string) error
}

// Summary counts what happened to the experiments of a run.
type Summary struct {
	// Experiments is the number of experiments listed in the metadata.
	Experiments int
	// AlreadyDone were skipped because an earlier run finished them.
	AlreadyDone int
	// TooFewSpots were skipped because they have fewer than MinSpots spots.
	TooFewSpots int
	// DownloadTimeouts, AlignmentFailures and Unusable were abandoned
	// because of a download timeout, a failing aligner or input that could
	// not be sampled or parsed.
	DownloadTimeouts  int
	AlignmentFailures int
	Unusable          int
	// Stranded and Unstranded have p-values.
	Stranded, Unstranded int
}

func (s Summary) String() string {
	return fmt.Sprintf("%d experiments: %d stranded, %d unstranded, %d already done, %d too small, "+
		"%d download timeouts, %d alignment failures, %d unusable",
		s.Experiments, s.Stranded, s.Unstranded, s.AlreadyDone, s.TooFewSpots,
		s.DownloadTimeouts, s.AlignmentFailures, s.Unusable)
}

// Pipeline infers the strandedness of experiments. Use NewPipeline to
// create one and Close it when done.
type Pipeline struct {
	opts    Opts
	sampler *sampling.Sampler
	aligner Aligner
	failed  *Ledger
	done    *Ledger
	tables  *Tables
}

// NewPipeline opens the ledgers and tables of a run. Reads are fetched from
// src through a download.Fetcher that records timed-out accessions in the
// failure ledger.
//
// REQUIRES: opts.Validate() succeeded.
func NewPipeline(opts Opts, src download.Source, aligner Aligner) (*Pipeline, error) {
	p := &Pipeline{opts: opts, aligner: aligner}
	var err error
	if p.failed, err = OpenLedger(opts.FailedPath()); err != nil {
		return nil, err
	}
	if p.done, err = OpenLedger(opts.DonePath()); err != nil {
		_ = p.failed.Close()
		return nil, err
	}
	if p.tables, err = OpenTables(&opts); err != nil {
		_ = p.failed.Close()
		_ = p.done.Close()
		return nil, err
	}
	fetcher := download.NewFetcher(src, p.failed, opts.Download)
	p.sampler = sampling.NewSampler(fetcher, opts.Sampling)
	return p, nil
}

// Close closes the ledgers and tables.
func (p *Pipeline) Close() error {
	err := p.tables.Close()
	for _, l := range []*Ledger{p.failed, p.done} {
		if e := l.Close(); e != nil && err == nil {
			err = e
		}
	}
	return err
}

// Run processes exps, up to opts.Parallelism at a time. An experiment that
// cannot be downloaded, aligned or parsed is logged and skipped. Any other
// error, such as an output that cannot be written, stops the run.
func (p *Pipeline) Run(ctx context.Context, exps []Experiment) (Summary, error) {
	summary := Summary{Experiments: len(exps)}
	var todo []Experiment
	for _, exp := range exps {
		switch {
		case p.done.Contains(exp.Accession):
			log.Debug.Printf("%s: already done", exp.Accession)
			summary.AlreadyDone++
		case exp.Spots < p.opts.MinSpots:
			log.Printf("SRA %s skipped due to too few spots (%d)", exp.Accession, exp.Spots)
			summary.TooFewSpots++
		default:
			todo = append(todo, exp)
		}
	}
	var mu sync.Mutex
	err := traverse.Limit(p.opts.Parallelism).Each(len(todo), func(i int) error {
		exp := todo[i]
		result, err := p.Process(ctx, exp)
		mu.Lock()
		defer mu.Unlock()
		switch {
		case err == nil && result.Stranded:
			summary.Stranded++
		case err == nil:
			summary.Unstranded++
		case ctx.Err() != nil:
			return ctx.Err()
		case errors.Is(errors.Timeout, err):
			summary.DownloadTimeouts++
		case errors.Is(errors.Unavailable, err):
			log.Printf("alignment failed for SRA %s: %v", exp.Accession, err)
			summary.AlignmentFailures++
		case errors.Is(errors.Invalid, err):
			log.Error.Printf("SRA %s skipped: %v", exp.Accession, err)
			summary.Unusable++
		default:
			return errors.E(err, "processing", exp.Accession)
		}
		return nil
	})
	log.Printf("%v", summary)
	return summary, err
}

// Process runs one experiment through sampling, alignment and strand
// counting, then appends the result to the tables and the done ledger.
func (p *Pipeline) Process(ctx context.Context, exp Experiment) (Result, error) {
	acc := exp.Accession
	rng := NewRand(acc)
	log.Printf("%s: %d spots, %s, the random seed is %d", acc, exp.Spots, exp.Layout(), Seed(acc))

	units, err := p.sample(ctx, exp, rng)
	if err != nil {
		return Result{}, err
	}
	readsPath := p.opts.ReadsPath(acc)
	if err := p.aligner.Align(ctx, units, readsPath); err != nil {
		return Result{}, err
	}
	stats, err := p.count(ctx, exp, readsPath, rng)
	if err != nil {
		return Result{}, err
	}
	result := Result{Experiment: exp, Stats: stats}
	result.RandomP, result.WeightedP = stats.PValues()
	result.Stranded = result.RandomP < p.opts.Alpha
	logResult(p.opts.Tag, result)
	if err := p.tables.Write(result); err != nil {
		return Result{}, err
	}
	if err := p.done.Add(acc, exp.Layout()); err != nil {
		return Result{}, err
	}
	return result, nil
}

// sample fetches the stratified sample of exp and returns it in aligner
// input format. The sampled offsets are written to the spots file first.
func (p *Pipeline) sample(ctx context.Context, exp Experiment, rng *rand.Rand) (units []byte, err error) {
	spots, err := file.Create(ctx, p.opts.SpotsPath(exp.Accession))
	if err != nil {
		return nil, err
	}
	defer file.CloseAndReport(ctx, spots, &err)
	var (
		buf bytes.Buffer
		n   int
	)
	err = p.sampler.Sample(ctx, exp.Accession, exp.Spots, rng, spots.Writer(ctx),
		func(sl sampling.Slice, data []byte) error {
			k, err := fastq.Reshape(bytes.NewReader(data), &buf, exp.Paired)
			if err != nil {
				return errors.E(errors.Invalid, fmt.Sprintf("%s slice %d-%d", exp.Accession, sl.Start, sl.Last()), err)
			}
			n += k
			return nil
		})
	if err != nil {
		return nil, err
	}
	log.Printf("%s: %d reads sampled", exp.Accession, n)
	return buf.Bytes(), nil
}

func (p *Pipeline) count(ctx context.Context, exp Experiment, readsPath string, rng *rand.Rand) (stats strand.Stats, err error) {
	r, err := align.Open(ctx, readsPath)
	if err != nil {
		return stats, err
	}
	defer func() {
		if e := r.Close(ctx); e != nil && err == nil {
			err = e
		}
	}()
	start := time.Now()
	stats, err = strand.Count(ctx, r, exp.Paired, rng)
	log.Debug.Printf("%s: counted %d read groups in %v", exp.Accession, stats.Groups, time.Since(start))
	return stats, err
}

func logResult(tag string, r Result) {
	log.Printf("The SRA accession number is %s", r.Accession)
	log.Printf("pval file record is %s", tag)
	log.Printf("Drawing one random primary alignment, there are:")
	log.Printf("%d sense reads.", r.RandomSense)
	log.Printf("%d antisense reads.", r.RandomAntisense())
	log.Printf("%d junction reads.", r.RandomChecked)
	log.Printf("The random p-value is %v", r.RandomP)
	log.Printf("Looking at all primary alignments, there are:")
	log.Printf("%v weighted sense reads.", r.WeightedSense)
	log.Printf("%v weighted antisense reads.", r.WeightedAntisense())
	log.Printf("The weighted p-value is %v.", r.WeightedP)
	log.Printf("%s is %s", r.Accession, r.Verdict())
	if r.UnpairedMate > 0 || r.NoMate > 0 {
		log.Printf("%s: %d groups with an unpaired mate, %d without the chosen mate", r.Accession, r.UnpairedMate, r.NoMate)
	}
}

// Run reads the experiments listed in opts.MetadataPath and infers the
// strandedness of each with fastq-dump and hisat2.
func Run(ctx context.Context, opts Opts) (Summary, error) {
	if err := opts.Validate(); err != nil {
		return Summary{}, err
	}
	exps, err := ReadExperiments(ctx, opts.MetadataPath)
	if err != nil {
		return Summary{}, err
	}
	aligner := align.Hisat2{Path: opts.Hisat2Path, Index: opts.RefGenome, MaxAttempts: opts.MaxAttempts}
	p, err := NewPipeline(opts, download.FastqDump{Path: opts.FastqDumpPath}, aligner)
	if err != nil {
		return Summary{}, err
	}
	summary, err := p.Run(ctx, exps)
	if cerr := p.Close(); err == nil {
		err = cerr
	}
	return summary, err
}
