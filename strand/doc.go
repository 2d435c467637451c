/*
Package strand calls the strandedness of an RNA-seq library from the
alignments of a sample of its reads.

The aligner (hisat2) reports, for spliced alignments, the strand of the
transcript the read came from in the XS:A tag. A read is "sense" when its
alignment orientation agrees with that strand (second mates are inverted,
since they are sequenced from the opposite end of the fragment). In an
unstranded library about half of the reads are sense; a stranded library is
heavily skewed one way or the other.

For every read, only the alignments tied for the best AS:i score are
considered. Multi-mapping ties are kept rather than broken, and two
statistics are computed over them:

  - random: one tagged primary alignment is drawn per read.
  - weighted: every tagged primary alignment gets 1/k of the read's weight,
    where k is the number of tagged primaries.

Each statistic is tested against a fair 50/50 split with an exact two-sided
binomial test; see BinomTest.
*/
package strand
