/*
Copyright © 2025 NAME HERE <EMAIL ADDRESS>
*/
package cmd

import (
	"io"
	"log"
	"os"

	"github.com/spf13/cobra"

	"github.com/gmaffy/biopet-utils/utils"
)

var (
	cfgFile string
	logFile string
	verbose bool

	config    utils.Config
	logCloser io.Closer
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "biopet-utils",
	Short: "Helper tools for the Biopet pipelines",
	Long: `Standalone helpers used by the Biopet pipelines:
1.	Coverage: covStats, hist2count
2.	FASTQ: seqStat, prefixFastq, gcDist, qualTypeSickle, fastqcContam, summarizeFlexiprep
3.	BAM: bamRna, tophatRecondition, rnaMetrics, insertDist
4.	BED: bedSquish, bedThreshold, findAllCommon, selectSample
5.	Variants: fixMpileup, breakdancer2vcf
6.	CNV: cnvPlot, tarmacPlot
7.	Reports: parseCuffcmp, pdfReport, autodoc
`,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		var err error
		config, err = utils.ReadConfig(cfgFile)
		if err != nil {
			log.Fatalf("Error reading config file: %v", err)
		}
		if logFile == "" {
			logFile = config.LogFile
		}
		logCloser, err = utils.SetupLogger(logFile, verbose)
		if err != nil {
			log.Fatalf("Error opening log file: %v", err)
		}
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if logCloser != nil {
			logCloser.Close()
		}
	},
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	err := rootCmd.Execute()
	if err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "", "path to YAML config file")
	rootCmd.PersistentFlags().StringVar(&logFile, "log-file", "", "append JSON run log to this file; a rerun with the same file skips completed jobs")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "debug logging on stderr")
}

// openInput opens path for reading, with "-" meaning stdin.
func openInput(path string) io.ReadCloser {
	in, err := utils.OpenInput(path)
	if err != nil {
		log.Fatalf("Error opening %s: %v", path, err)
	}
	return in
}

// createOutput creates path for writing, with "-" or "" meaning stdout.
func createOutput(path string) io.WriteCloser {
	out, err := utils.CreateOutput(path)
	if err != nil {
		log.Fatalf("Error creating %s: %v", path, err)
	}
	return out
}

// closeOutput flushes and closes an output; a failure here means lost data.
func closeOutput(out io.Closer, path string) {
	if err := out.Close(); err != nil {
		log.Fatalf("Error writing %s: %v", path, err)
	}
}
