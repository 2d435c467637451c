package infer

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/grailbio/base/errors"
	"github.com/grailbio/strandedness/align"
	"github.com/grailbio/strandedness/download"
	"github.com/grailbio/strandedness/sampling"
)

// Opts configures a strandedness run.
type Opts struct {
	// MetadataPath is the SRA RunInfo CSV listing the experiments to test.
	MetadataPath string
	// OutputDir receives the spot audits, aligner output, ledgers and
	// p-value tables.
	OutputDir string
	// Tag names the ledgers and tables of this run. It defaults to the base
	// name of MetadataPath up to its first ".".
	Tag string

	// FastqDumpPath, Hisat2Path and RefGenome locate the external tools and
	// the hisat2 index.
	FastqDumpPath string
	Hisat2Path    string
	RefGenome     string
	// MaxAttempts bounds the number of aligner runs per experiment.
	MaxAttempts int

	Sampling sampling.Opts
	Download download.Opts

	// MinSpots skips experiments with fewer spots. Single-cell runs are
	// typically far below the default.
	MinSpots int64
	// Alpha is the significance level of the random-draw test below which an
	// experiment is called stranded.
	Alpha float64
	// Parallelism is the number of experiments processed at once.
	Parallelism int
}

// DefaultOpts are the settings of a typical run. MetadataPath and RefGenome
// have no default.
var DefaultOpts = Opts{
	OutputDir:     ".",
	FastqDumpPath: "fastq-dump",
	Hisat2Path:    "hisat2",
	MaxAttempts:   align.DefaultMaxAttempts,
	Sampling:      sampling.DefaultOpts,
	Download:      download.DefaultOpts,
	MinSpots:      10000000,
	Alpha:         0.05,
	Parallelism:   1,
}

// Validate checks the options and fills in Tag.
func (o *Opts) Validate() error {
	if o.MetadataPath == "" {
		return errors.E(errors.Invalid, "no experiment metadata file given")
	}
	if o.OutputDir == "" {
		return errors.E(errors.Invalid, "no output directory given")
	}
	if err := o.Sampling.Validate(); err != nil {
		return err
	}
	if o.Download.Budget <= 0 || o.Download.InitialDelay <= 0 || o.Download.Factor < 1 {
		return errors.E(errors.Invalid, fmt.Sprintf("download budget %v and delay %v must be positive, factor %v at least 1",
			o.Download.Budget, o.Download.InitialDelay, o.Download.Factor))
	}
	if o.MaxAttempts < 1 {
		return errors.E(errors.Invalid, fmt.Sprintf("max attempts: %d must be positive", o.MaxAttempts))
	}
	if o.Alpha <= 0 || o.Alpha >= 1 {
		return errors.E(errors.Invalid, fmt.Sprintf("alpha: %v must be in (0, 1)", o.Alpha))
	}
	if o.Parallelism < 1 {
		o.Parallelism = 1
	}
	if o.Tag == "" {
		o.Tag = DefaultTag(o.MetadataPath)
	}
	return nil
}

// DefaultTag derives a run tag from the metadata file name,
// e.g. "/data/SraRunInfo.human.csv" -> "SraRunInfo".
func DefaultTag(metadataPath string) string {
	base := filepath.Base(metadataPath)
	if i := strings.IndexByte(base, '.'); i >= 0 {
		base = base[:i]
	}
	return base
}

func (o *Opts) path(format string, args ...interface{}) string {
	return filepath.Join(o.OutputDir, fmt.Sprintf(format, args...))
}

// FailedPath lists accessions whose download timed out.
func (o *Opts) FailedPath() string { return o.path("failed_expts_%s.txt", o.Tag) }

// DonePath lists accessions with p-values, with their library layout.
func (o *Opts) DonePath() string { return o.path("downloaded_sras_%s.txt", o.Tag) }

// RandomPath is the table of random-draw p-values.
func (o *Opts) RandomPath() string { return o.path("random_pvals_%s.tsv", o.Tag) }

// WeightedPath is the table of ties-weighted p-values.
func (o *Opts) WeightedPath() string { return o.path("weighted_pvals_%s.tsv", o.Tag) }

// CountsPath is the table of per-experiment counts.
func (o *Opts) CountsPath() string { return o.path("counts_%s.tsv", o.Tag) }

// SpotsPath lists the first spot of every slice sampled from acc.
func (o *Opts) SpotsPath(acc string) string { return o.path("%s_spots.txt", acc) }

// ReadsPath is the gzip-compressed SAM output of the aligner for acc.
func (o *Opts) ReadsPath(acc string) string { return o.path("%s_reads.sam.gz", acc) }
