package strand

import (
	"io"

	"github.com/grailbio/hts/sam"
)

// RecordSource yields SAM records until it returns io.EOF. *sam.Reader and
// *align.Reader implement it.
type RecordSource interface {
	Read() (*sam.Record, error)
}

// Grouper splits a record stream into runs of alignments that share a read
// name. Records of one read must already be adjacent in the stream, as they
// are in aligner output; the stream is never re-sorted, so a name that shows
// up in two separate runs produces two groups.
//
// Usage:
//
//   g := NewGrouper(src)
//   for g.Scan() {
//     group := g.Group()
//     ...
//   }
//   if err := g.Err(); err != nil {
//     ...
//   }
type Grouper struct {
	src     RecordSource
	pending *Alignment
	group   []Alignment
	done    bool
	err     error
}

// NewGrouper creates a Grouper reading from src.
func NewGrouper(src RecordSource) *Grouper {
	return &Grouper{src: src}
}

// Scan advances to the next group. It returns false at the end of the stream
// or on error.
func (g *Grouper) Scan() bool {
	if g.err != nil {
		return false
	}
	g.group = nil
	if g.pending != nil {
		g.group = append(g.group, *g.pending)
		g.pending = nil
	}
	for !g.done {
		r, err := g.src.Read()
		if err == io.EOF {
			g.done = true
			break
		}
		if err != nil {
			g.err = err
			return false
		}
		a := FromRecord(r)
		if len(g.group) > 0 && a.Name != g.group[0].Name {
			g.pending = &a
			return true
		}
		g.group = append(g.group, a)
	}
	return len(g.group) > 0
}

// Group returns the alignments of the current group. The slice is owned by
// the caller.
//
// REQUIRES: the last Scan call returned true.
func (g *Grouper) Group() []Alignment { return g.group }

// Err returns the error that stopped Scan, if any.
func (g *Grouper) Err() error { return g.err }
