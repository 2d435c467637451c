/*
bio-strandedness tests whether RNA-seq experiments are strand-specific.

For every run listed in an SRA RunInfo CSV it downloads a stratified sample of
spots with fastq-dump, aligns them with hisat2 and classifies each
best-scoring spliced alignment as sense or antisense relative to the strand
hisat2 reports in its XS:A tag. Two exact binomial tests against a 50/50
split are reported per run: one over a single random best alignment per
read, one weighing all tied best alignments equally.

Example:

  bio-strandedness -sra-file SraRunInfo.csv -ref-genome /refs/hg38/genome \
    -output-path /tmp/strandedness

writes, under the output path and tagged with the CSV's base name:

  random_pvals_SraRunInfo.tsv     accession and random-draw p-value
  weighted_pvals_SraRunInfo.tsv   accession and weighted p-value
  counts_SraRunInfo.tsv           sense/antisense counts and verdict
  downloaded_sras_SraRunInfo.txt  finished accessions and their layout
  failed_expts_SraRunInfo.txt     accessions whose download timed out
  SRRxxx_spots.txt                first spot of every sampled slice
  SRRxxx_reads.sam.gz             hisat2 output

Finished accessions are skipped when the command is rerun with the same
output path and tag.
*/
package main
