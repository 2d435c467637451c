package infer

import (
	"context"
	"io"
	"os"
	"strconv"
	"sync"

	"github.com/grailbio/base/errors"
	"github.com/grailbio/base/file"
	"github.com/grailbio/base/tsv"
	"github.com/grailbio/strandedness/strand"
)

// Result is the outcome of one experiment.
type Result struct {
	Experiment
	strand.Stats
	RandomP, WeightedP float64
	// Stranded is set when RandomP is below the significance level.
	Stranded bool
}

// Verdict returns "stranded" or "unstranded".
func (r Result) Verdict() string {
	if r.Stranded {
		return "stranded"
	}
	return "unstranded"
}

// CountsRow is a row of the counts table.
type CountsRow struct {
	Accession         string  `tsv:"accession"`
	Layout            string  `tsv:"layout"`
	Groups            int     `tsv:"groups"`
	Unscored          int     `tsv:"unscored"`
	NoMate            int     `tsv:"no_mate"`
	UnpairedMate      int     `tsv:"unpaired_mate"`
	Untagged          int     `tsv:"untagged"`
	RandomSense       int     `tsv:"random_sense"`
	RandomAntisense   int     `tsv:"random_antisense"`
	WeightedSense     float64 `tsv:"weighted_sense"`
	WeightedAntisense float64 `tsv:"weighted_antisense"`
	RandomP           float64 `tsv:"random_p"`
	WeightedP         float64 `tsv:"weighted_p"`
	Verdict           string  `tsv:"verdict"`
}

var (
	pvalueHeader = []string{"accession", "pvalue"}
	countsHeader = []string{
		"accession", "layout", "groups", "unscored", "no_mate", "unpaired_mate", "untagged",
		"random_sense", "random_antisense", "weighted_sense", "weighted_antisense",
		"random_p", "weighted_p", "verdict",
	}
)

// table is a TSV file opened for appending. The header is written only when
// the file is new.
type table struct {
	path string
	f    *os.File
	w    *tsv.Writer
}

func openTable(path string, header []string) (*table, error) {
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_APPEND|os.O_CREATE, 0644)
	if err != nil {
		return nil, errors.E(err, "opening table")
	}
	info, err := f.Stat()
	if err != nil {
		_ = f.Close()
		return nil, errors.E(err, "opening table", path)
	}
	t := &table{path: path, f: f, w: tsv.NewWriter(f)}
	if info.Size() == 0 {
		t.writeRow(header...)
		if err := t.w.Flush(); err != nil {
			_ = f.Close()
			return nil, errors.E(err, "writing header of", path)
		}
	}
	return t, nil
}

func (t *table) writeRow(fields ...string) {
	for _, field := range fields {
		t.w.WriteString(field)
	}
	t.w.EndLine()
}

func (t *table) flush() error {
	if err := t.w.Flush(); err != nil {
		return errors.E(err, "writing", t.path)
	}
	return nil
}

// Tables holds the output tables of a run: the random-draw and weighted
// p-values per accession, and the counts behind them. Rows are flushed as
// soon as they are written so that the tables are usable while a run is in
// progress. Tables is safe for concurrent use.
type Tables struct {
	mu                      sync.Mutex
	random, weighted, count *table
}

// OpenTables opens the tables named by opts for appending.
func OpenTables(opts *Opts) (*Tables, error) {
	t := &Tables{}
	var err error
	if t.random, err = openTable(opts.RandomPath(), pvalueHeader); err != nil {
		return nil, err
	}
	if t.weighted, err = openTable(opts.WeightedPath(), pvalueHeader); err != nil {
		_ = t.random.f.Close()
		return nil, err
	}
	if t.count, err = openTable(opts.CountsPath(), countsHeader); err != nil {
		_ = t.random.f.Close()
		_ = t.weighted.f.Close()
		return nil, err
	}
	return t, nil
}

func formatFloat(f float64) string { return strconv.FormatFloat(f, 'g', -1, 64) }

// Write appends r to all tables.
func (t *Tables) Write(r Result) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.random.writeRow(r.Accession, formatFloat(r.RandomP))
	t.weighted.writeRow(r.Accession, formatFloat(r.WeightedP))
	t.count.writeRow(
		r.Accession, r.Layout(),
		strconv.Itoa(r.Groups), strconv.Itoa(r.Unscored), strconv.Itoa(r.NoMate),
		strconv.Itoa(r.UnpairedMate), strconv.Itoa(r.Untagged),
		strconv.Itoa(r.RandomSense), strconv.Itoa(r.RandomAntisense()),
		formatFloat(r.WeightedSense), formatFloat(r.WeightedAntisense()),
		formatFloat(r.RandomP), formatFloat(r.WeightedP),
		r.Verdict())
	for _, tab := range []*table{t.random, t.weighted, t.count} {
		if err := tab.flush(); err != nil {
			return err
		}
	}
	return nil
}

// Close closes all tables.
func (t *Tables) Close() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	var err error
	for _, tab := range []*table{t.random, t.weighted, t.count} {
		if e := tab.flush(); e != nil && err == nil {
			err = e
		}
		if e := tab.f.Close(); e != nil && err == nil {
			err = e
		}
	}
	return err
}

// ReadCounts reads a counts table written by Tables.
func ReadCounts(ctx context.Context, path string) (rows []CountsRow, err error) {
	in, err := file.Open(ctx, path)
	if err != nil {
		return nil, err
	}
	defer file.CloseAndReport(ctx, in, &err)
	r := tsv.NewReader(in.Reader(ctx))
	r.HasHeaderRow = true
	r.UseHeaderNames = true
	for {
		var row CountsRow
		if err := r.Read(&row); err == io.EOF {
			break
		} else if err != nil {
			return nil, errors.E(errors.Invalid, path, err)
		}
		rows = append(rows, row)
	}
	return rows, nil
}
