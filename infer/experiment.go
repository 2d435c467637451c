package infer

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/grailbio/base/errors"
	"github.com/grailbio/base/file"
	"github.com/grailbio/base/log"
)

// Experiment is one SRA run.
type Experiment struct {
	Accession string
	// Spots is the number of spots (reads or read pairs) in the run.
	Spots  int64
	Paired bool
}

// Layout returns the SRA library layout, PAIRED or SINGLE.
func (e Experiment) Layout() string {
	if e.Paired {
		return "PAIRED"
	}
	return "SINGLE"
}

// Column positions of an SRA RunInfo CSV, used when the header does not
// name them.
const (
	runCol    = 0
	spotsCol  = 3
	layoutCol = 15
)

// ReadExperiments reads the experiments listed in an SRA RunInfo CSV.
func ReadExperiments(ctx context.Context, path string) (exps []Experiment, err error) {
	in, err := file.Open(ctx, path)
	if err != nil {
		return nil, err
	}
	defer file.CloseAndReport(ctx, in, &err)
	exps, err = parseExperiments(in.Reader(ctx))
	if err != nil {
		return nil, errors.E(errors.Invalid, path, err)
	}
	return exps, nil
}

// parseExperiments parses RunInfo CSV text. The first row is a header; the
// Run, spots and LibraryLayout columns are located by name when present.
// Blank rows and repeated header rows, which appear when RunInfo files are
// concatenated, are skipped.
func parseExperiments(r io.Reader) ([]Experiment, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	header, err := cr.Read()
	if err == io.EOF {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	run, spots, layout := runCol, spotsCol, layoutCol
	for i, name := range header {
		switch strings.TrimSpace(name) {
		case "Run":
			run = i
		case "spots":
			spots = i
		case "LibraryLayout":
			layout = i
		}
	}
	var exps []Experiment
	for line := 2; ; line++ {
		row, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, err
		}
		if len(row) == 1 && strings.TrimSpace(row[0]) == "" {
			continue
		}
		if len(row) <= run || len(row) <= spots || len(row) <= layout {
			return nil, fmt.Errorf("row %d: %d columns, want at least %d", line, len(row), maxInt(run, spots, layout)+1)
		}
		if row[run] == "Run" {
			continue
		}
		n, err := strconv.ParseInt(strings.TrimSpace(row[spots]), 10, 64)
		if err != nil {
			return nil, fmt.Errorf("row %d: spots of %s: %v", line, row[run], err)
		}
		exps = append(exps, Experiment{
			Accession: strings.TrimSpace(row[run]),
			Spots:     n,
			Paired:    strings.TrimSpace(row[layout]) == "PAIRED",
		})
	}
	log.Debug.Printf("read %d experiments", len(exps))
	return exps, nil
}

func maxInt(a int, b ...int) int {
	for _, x := range b {
		if x > a {
			a = x
		}
	}
	return a
}
