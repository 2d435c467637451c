package strand

import "github.com/grailbio/hts/sam"

// Sense reports whether an alignment agrees with the transcript strand s
// reported by the aligner. First mates and single-end reads are sense when
// their alignment orientation matches s; second mates are sense when it does
// not.
//
// REQUIRES: s != Unknown.
func Sense(flags sam.Flags, s Strand) bool {
	fwdGene := s == Forward
	paired := flags&sam.Paired != 0
	reverse := flags&sam.Reverse != 0
	first := flags&sam.Read1 != 0
	return (fwdGene != reverse) == (first || !paired)
}
