// Package align runs the aligner over a batch of sampled reads and reads its
// SAM output back.
package align

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os/exec"
	"strings"
	"time"

	"github.com/grailbio/base/errors"
	"github.com/grailbio/base/file"
	"github.com/grailbio/base/log"
	"github.com/klauspost/compress/gzip"
)

// DefaultMaxAttempts is the number of times a batch is submitted to the
// aligner before the experiment is abandoned.
const DefaultMaxAttempts = 3

// Hisat2 drives the hisat2 aligner.
type Hisat2 struct {
	// Path is the hisat2 executable.
	Path string
	// Index is the basename of the reference genome index (hisat2 -x).
	Index string
	// Args are extra arguments appended to the command line.
	Args []string
	// MaxAttempts bounds the number of runs of a failing batch. Values below
	// one mean DefaultMaxAttempts.
	MaxAttempts int
}

func (h Hisat2) args() []string {
	return append([]string{"--12", "-", "-x", h.Index}, h.Args...)
}

// Align feeds units, in the one-line-per-read format produced by
// fastq.Reshape, to hisat2 and stores its SAM output, header included,
// gzip-compressed at outPath. A failing run is repeated from scratch, with
// outPath truncated, up to MaxAttempts times. Exhausting the attempts
// returns an error of kind errors.Unavailable.
func (h Hisat2) Align(ctx context.Context, units []byte, outPath string) error {
	attempts := h.MaxAttempts
	if attempts < 1 {
		attempts = DefaultMaxAttempts
	}
	start := time.Now()
	var err error
	for attempt := 1; attempt <= attempts; attempt++ {
		var retry bool
		if retry, err = h.run(ctx, units, outPath); err == nil {
			log.Printf("%s: total alignment time was %v", outPath, time.Since(start))
			return nil
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if !retry {
			return err
		}
		log.Printf("%s: alignment attempt %d of %d failed: %v", outPath, attempt, attempts, err)
	}
	return errors.E(errors.Unavailable, fmt.Sprintf("alignment failed after %d attempts", attempts), err)
}

// run executes hisat2 once. retry is false when the output itself could not
// be written, which another run will not fix.
func (h Hisat2) run(ctx context.Context, units []byte, outPath string) (retry bool, err error) {
	out, err := file.Create(ctx, outPath)
	if err != nil {
		return false, err
	}
	defer file.CloseAndReport(ctx, out, &err)
	gz := gzip.NewWriter(out.Writer(ctx))
	if retry, err = h.exec(ctx, units, gz); err != nil {
		return retry, err
	}
	if err := gz.Close(); err != nil {
		return false, errors.E("compressing", outPath, err)
	}
	return false, nil
}

// exec runs hisat2 with its output copied to w. A failure to write to w is
// reported with retry false even though it surfaces as a failed command.
func (h Hisat2) exec(ctx context.Context, units []byte, w io.Writer) (retry bool, err error) {
	sink := &sinkWriter{w: w}
	cmd := exec.CommandContext(ctx, h.Path, h.args()...)
	var stderr bytes.Buffer
	cmd.Stdin = bytes.NewReader(units)
	cmd.Stdout = sink
	cmd.Stderr = &stderr
	err = cmd.Run()
	if sink.err != nil {
		return false, errors.E("writing aligner output", sink.err)
	}
	if err != nil {
		return true, errors.E(fmt.Sprintf("%s %s", h.Path, strings.Join(h.args(), " ")), err, lastLine(stderr.String()))
	}
	return false, nil
}

// sinkWriter remembers the first error of the underlying writer.
type sinkWriter struct {
	w   io.Writer
	err error
}

func (s *sinkWriter) Write(p []byte) (int, error) {
	if s.err != nil {
		return 0, s.err
	}
	n, err := s.w.Write(p)
	s.err = err
	return n, err
}

func lastLine(s string) string {
	s = strings.TrimSpace(s)
	if i := strings.LastIndexByte(s, '\n'); i >= 0 {
		return s[i+1:]
	}
	return s
}
