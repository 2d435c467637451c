package strand

import (
	"github.com/grailbio/hts/sam"
)

// Strand is the transcript strand reported by the aligner in the XS:A tag.
type Strand int8

const (
	// Unknown means the record carries no XS:A tag.
	Unknown Strand = iota
	// Forward is XS:A:+.
	Forward
	// Reverse is XS:A:-.
	Reverse
)

// String returns "+", "-" or ".".
func (s Strand) String() string {
	switch s {
	case Forward:
		return "+"
	case Reverse:
		return "-"
	}
	return "."
}

var (
	scoreTag  = sam.Tag{'A', 'S'}
	strandTag = sam.Tag{'X', 'S'}
)

// Alignment is the part of a SAM record needed to call strandedness.
type Alignment struct {
	// Name is the read (or read pair) name.
	Name  string
	Flags sam.Flags
	// Score is the AS:i value. It is meaningful only if Scored is true.
	Score  int
	Scored bool
	Strand Strand
}

// Tagged reports whether the aligner reported a transcript strand.
func (a Alignment) Tagged() bool { return a.Strand != Unknown }

// FromRecord extracts an Alignment from r. A record without an integer AS
// tag is returned with Scored=false.
func FromRecord(r *sam.Record) Alignment {
	a := Alignment{Name: r.Name, Flags: r.Flags}
	if aux := r.AuxFields.Get(scoreTag); aux != nil {
		a.Score, a.Scored = auxInt(aux)
	}
	if aux := r.AuxFields.Get(strandTag); aux != nil && aux.Type() == 'A' {
		switch aux.Value().(byte) {
		case '+':
			a.Strand = Forward
		case '-':
			a.Strand = Reverse
		}
	}
	return a
}

func auxInt(aux sam.Aux) (int, bool) {
	switch aux.Type() {
	case 'c', 'C', 's', 'S', 'i', 'I':
	default:
		return 0, false
	}
	switch v := aux.Value().(type) {
	case int8:
		return int(v), true
	case uint8:
		return int(v), true
	case int16:
		return int(v), true
	case uint16:
		return int(v), true
	case int32:
		return int(v), true
	case uint32:
		return int(v), true
	case int:
		return v, true
	}
	return 0, false
}
