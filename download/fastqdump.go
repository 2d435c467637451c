package download

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"strconv"
	"strings"

	"github.com/grailbio/base/errors"
)

// FastqDump is a Source backed by the SRA toolkit's fastq-dump.
type FastqDump struct {
	// Path is the fastq-dump executable.
	Path string
}

// Args returns the fastq-dump arguments that write spots [first, last] of
// acc to stdout, one FASTQ record per mate, with read ids suffixed by the
// mate number and technical reads skipped.
func (d FastqDump) Args(acc string, first, last int64) []string {
	return []string{
		"-I", "-B", "-W", "-E",
		"--split-spot", "--skip-technical",
		"-N", strconv.FormatInt(first, 10),
		"-X", strconv.FormatInt(last, 10),
		"-Z", acc,
	}
}

// Fetch implements Source.
func (d FastqDump) Fetch(ctx context.Context, acc string, first, last int64) ([]byte, error) {
	cmd := exec.CommandContext(ctx, d.Path, d.Args(acc, first, last)...)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	out, err := cmd.Output()
	if err != nil {
		return nil, errors.E(err, fmt.Sprintf("%s %s", d.Path, strings.Join(d.Args(acc, first, last), " ")), lastLine(stderr.String()))
	}
	return out, nil
}

func lastLine(s string) string {
	s = strings.TrimSpace(s)
	if i := strings.LastIndexByte(s, '\n'); i >= 0 {
		return s[i+1:]
	}
	return s
}
