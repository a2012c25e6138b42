/*
Copyright © 2025 NAME HERE <EMAIL ADDRESS>
*/
package cmd

import (
	"fmt"
	"io"
	"log"

	"github.com/spf13/cobra"

	"github.com/gmaffy/biopet-utils/fastq"
	"github.com/gmaffy/biopet-utils/utils"
)

// seqStatCmd represents the seqStat command
var seqStatCmd = &cobra.Command{
	Use:   "seqStat -i <fastq> [args]",
	Short: "Counts base and read qualities of a FASTQ file",
	Long: `Counts, for the quality thresholds 1, 10, 20, 30, 40, 50 and 60, the bases at or
above the threshold and the reads whose mean quality is at or above it. Read lengths
and N content are recorded too. The result is written as JSON.`,
	Run: func(cmd *cobra.Command, args []string) {
		input, iErr := cmd.Flags().GetString("input")
		if iErr != nil {
			log.Fatalf("Error getting input flag: %v", iErr)
		}
		output, oErr := cmd.Flags().GetString("output")
		if oErr != nil {
			log.Fatalf("Error getting output flag: %v", oErr)
		}
		format, fErr := cmd.Flags().GetString("fmt")
		if fErr != nil {
			log.Fatalf("Error getting fmt flag: %v", fErr)
		}
		withSHA1, sErr := cmd.Flags().GetBool("sha1")
		if sErr != nil {
			log.Fatalf("Error getting sha1 flag: %v", sErr)
		}

		st, err := fastq.SeqStatFile(input, format, withSHA1)
		if err != nil {
			log.Fatalf("Error reading %s: %v", input, err)
		}
		out := createOutput(output)
		if err := utils.WriteJSON(out, st); err != nil {
			log.Fatalf("Error writing stats: %v", err)
		}
		closeOutput(out, output)
	},
}

// ------ prefixFastq ------ //

var prefixFastqCmd = &cobra.Command{
	Use:   "prefixFastq -i <fastq> [args]",
	Short: "Prepends a fixed sequence to every read",
	Long: `Prepends --prefix to the sequence of every read, as DeepSAGE libraries need. The
prefix bases get Phred quality 40. A gzipped input is read transparently; --gzip
compresses the output.`,
	Run: func(cmd *cobra.Command, args []string) {
		input, iErr := cmd.Flags().GetString("input")
		if iErr != nil {
			log.Fatalf("Error getting input flag: %v", iErr)
		}
		output, oErr := cmd.Flags().GetString("output")
		if oErr != nil {
			log.Fatalf("Error getting output flag: %v", oErr)
		}
		prefix, pErr := cmd.Flags().GetString("prefix")
		if pErr != nil {
			log.Fatalf("Error getting prefix flag: %v", pErr)
		}
		gzip, gErr := cmd.Flags().GetBool("gzip")
		if gErr != nil {
			log.Fatalf("Error getting gzip flag: %v", gErr)
		}

		in := openInput(input)
		defer in.Close()

		var out io.WriteCloser
		if gzip {
			var err error
			out, err = utils.CreateGzipOutput(output)
			if err != nil {
				log.Fatalf("Error creating %s: %v", output, err)
			}
		} else {
			out = createOutput(output)
		}
		n, err := fastq.PrefixReads(in, out, prefix)
		if err != nil {
			log.Fatalf("Error prefixing %s: %v", input, err)
		}
		closeOutput(out, output)
		if output != "-" {
			fmt.Printf("Prefixed %d reads with %s\n", n, prefix)
		}
	},
}

// ------ gcDist ------ //

var gcDistCmd = &cobra.Command{
	Use:   "gcDist -i <fastq> [args]",
	Short: "Reports the GC content distribution of the reads",
	Long: `Computes the GC percentage of every read and reports the mean, standard
deviation, median and the centred windows holding 20, 40, 60, 80 and 99 percent of
the reads as JSON. --plot draws a histogram with a box plot.`,
	Run: func(cmd *cobra.Command, args []string) {
		input, iErr := cmd.Flags().GetString("input")
		if iErr != nil {
			log.Fatalf("Error getting input flag: %v", iErr)
		}
		output, oErr := cmd.Flags().GetString("output")
		if oErr != nil {
			log.Fatalf("Error getting output flag: %v", oErr)
		}
		plotPath, pErr := cmd.Flags().GetString("plot")
		if pErr != nil {
			log.Fatalf("Error getting plot flag: %v", pErr)
		}

		in := openInput(input)
		dist, err := fastq.GatherGC(in)
		in.Close()
		if err != nil {
			log.Fatalf("Error reading %s: %v", input, err)
		}

		out := createOutput(output)
		if err := utils.WriteJSON(out, dist); err != nil {
			log.Fatalf("Error writing stats: %v", err)
		}
		closeOutput(out, output)

		if plotPath != "" {
			if err := dist.PlotPNG(plotPath, input); err != nil {
				log.Fatalf("Error plotting %s: %v", plotPath, err)
			}
		}
	},
}

func init() {
	rootCmd.AddCommand(seqStatCmd)
	rootCmd.AddCommand(prefixFastqCmd)
	rootCmd.AddCommand(gcDistCmd)

	seqStatCmd.Flags().StringP("input", "i", "-", "FASTQ file, - for stdin")
	seqStatCmd.Flags().StringP("output", "o", "-", "JSON output, - for stdout")
	seqStatCmd.Flags().String("fmt", "sanger", "quality encoding: sanger, illumina or solexa")
	seqStatCmd.Flags().Bool("sha1", false, "record the SHA-1 checksum of the input")

	prefixFastqCmd.Flags().StringP("input", "i", "-", "FASTQ file, - for stdin")
	prefixFastqCmd.Flags().StringP("output", "o", "prep_deepsage_output.fq", "output FASTQ")
	prefixFastqCmd.Flags().StringP("prefix", "p", fastq.DefaultPrefix, "sequence to prepend")
	prefixFastqCmd.Flags().Bool("gzip", false, "gzip the output; a gzipped input is detected without it")

	gcDistCmd.Flags().StringP("input", "i", "-", "FASTQ file, - for stdin")
	gcDistCmd.Flags().StringP("output", "o", "-", "JSON output, - for stdout")
	gcDistCmd.Flags().String("plot", "", "PNG histogram")
}
