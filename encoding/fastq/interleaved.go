package fastq

import (
	"bufio"
	"io"
	"strings"

	"github.com/pkg/errors"
)

const (
	linesPerRead = 4
	// maxLineLen bounds the length of a single FASTQ line.
	maxLineLen = 16 << 20
)

// Reshape converts FASTQ data, as written by fastq-dump --split-spot, into
// the one-line-per-read format accepted by hisat2 --12:
//
//   name <TAB> seq1 <TAB> qual1 [<TAB> seq2 <TAB> qual2]
//
// A single-end read spans 4 input lines. A paired-end spot spans 8: the
// first mate's record followed by the second mate's. Lines are picked by
// their position within the block only; the "+" lines and the second mate's
// header are not inspected. The name is the first header line without its
// "@" and anything after the first blank.
//
// A trailing block with fewer lines than a full record is dropped. Reshape
// returns the number of lines written.
func Reshape(r io.Reader, w io.Writer, paired bool) (int, error) {
	block := linesPerRead
	if paired {
		block *= 2
	}
	scanner := bufio.NewScanner(r)
	scanner.Buffer(nil, maxLineLen)
	fields := make([]string, 0, 1+block/2)
	var n, line int
	for scanner.Scan() {
		pos := line % block
		line++
		switch {
		case pos == 0:
			fields = append(fields[:0], readName(scanner.Text()))
		case pos%2 == 1:
			fields = append(fields, scanner.Text())
		}
		if pos < block-1 {
			continue
		}
		if _, err := io.WriteString(w, strings.Join(fields, "\t")+"\n"); err != nil {
			return n, errors.Wrap(err, "writing aligner input")
		}
		n++
	}
	if err := scanner.Err(); err != nil {
		return n, errors.Wrap(err, "reading FASTQ")
	}
	return n, nil
}

func readName(header string) string {
	name := strings.TrimPrefix(header, "@")
	if i := strings.IndexAny(name, " \t"); i >= 0 {
		name = name[:i]
	}
	return name
}
