package main

import (
	"flag"
	"fmt"
	"os"
	"strings"

	"github.com/grailbio/base/grail"
	"github.com/grailbio/base/log"
	"github.com/grailbio/base/vcontext"
	"github.com/grailbio/strandedness/infer"
	"v.io/x/lib/lookpath"
)

var (
	sraFile        = flag.String("sra-file", "", "SRA RunInfo CSV listing the experiments to check for strandedness (required)")
	refGenome      = flag.String("ref-genome", "", "hisat2 index basename of the reference genome (required)")
	fastqDumpPath  = flag.String("fastq-dump-path", infer.DefaultOpts.FastqDumpPath, "Path of fastq-dump")
	hisatPath      = flag.String("hisat-path", infer.DefaultOpts.Hisat2Path, "Path of hisat2")
	outputPath     = flag.String("output-path", infer.DefaultOpts.OutputDir, "Directory for sampled spots, aligned reads, ledgers and p-value tables")
	tag            = flag.String("tag", "", "Name of the ledgers and tables of this run; defaults to the base name of -sra-file")
	requiredReads  = flag.Int("required-reads", infer.DefaultOpts.Sampling.Required, "Target number of useful reads per experiment")
	multiplier     = flag.Int("multiplier", infer.DefaultOpts.Sampling.Multiplier, "Multiplier of -required-reads giving the number of spots to download, to account for quality filtering and uninformative reads")
	bins           = flag.Int("bins", infer.DefaultOpts.Sampling.Bins, "Number of equal-width regions of the run sampled from")
	maxAttempts    = flag.Int("max-attempts", infer.DefaultOpts.MaxAttempts, "Number of hisat2 runs on one experiment before it is skipped")
	downloadBudget = flag.Duration("download-budget", infer.DefaultOpts.Download.Budget, "Time after which a failing download is abandoned")
	minSpots       = flag.Int64("min-spots", infer.DefaultOpts.MinSpots, "Experiments with fewer spots are skipped")
	alpha          = flag.Float64("alpha", infer.DefaultOpts.Alpha, "Random-draw p-value below which an experiment is called stranded")
	parallelism    = flag.Int("parallelism", infer.DefaultOpts.Parallelism, "Number of experiments processed at once")
)

func usage() {
	fmt.Fprintf(os.Stderr, "Usage: %s -sra-file runinfo.csv -ref-genome index [OPTIONS]\n", os.Args[0])
	flag.PrintDefaults()
}

// checkTool fails unless name is an executable file or can be found in PATH.
func checkTool(flagName, name string) {
	if strings.ContainsRune(name, os.PathSeparator) {
		if info, err := os.Stat(name); err != nil || info.IsDir() {
			log.Fatalf("-%s: %s is not an executable file", flagName, name)
		}
		return
	}
	if _, err := lookpath.Look(map[string]string{"PATH": os.Getenv("PATH")}, name); err != nil {
		log.Fatalf("-%s: %v", flagName, err)
	}
}

func main() {
	flag.Usage = usage
	shutdown := grail.Init()
	defer shutdown()

	if flag.NArg() != 0 {
		log.Fatalf("unexpected arguments: %s", strings.Join(flag.Args(), " "))
	}
	if *refGenome == "" {
		log.Fatalf("-ref-genome is required")
	}
	checkTool("fastq-dump-path", *fastqDumpPath)
	checkTool("hisat-path", *hisatPath)

	opts := infer.DefaultOpts
	opts.MetadataPath = *sraFile
	opts.RefGenome = *refGenome
	opts.FastqDumpPath = *fastqDumpPath
	opts.Hisat2Path = *hisatPath
	opts.OutputDir = *outputPath
	opts.Tag = *tag
	opts.Sampling.Required = *requiredReads
	opts.Sampling.Multiplier = *multiplier
	opts.Sampling.Bins = *bins
	opts.MaxAttempts = *maxAttempts
	opts.Download.Budget = *downloadBudget
	opts.MinSpots = *minSpots
	opts.Alpha = *alpha
	opts.Parallelism = *parallelism
	if err := opts.Validate(); err != nil {
		log.Fatalf("%v", err)
	}
	if err := os.MkdirAll(opts.OutputDir, 0755); err != nil {
		log.Fatalf("output path: %v", err)
	}

	ctx := vcontext.Background()
	summary, err := infer.Run(ctx, opts)
	if err != nil {
		log.Fatalf("%v", err)
	}
	log.Printf("done: %v", summary)
}
