/*
Copyright © 2025 NAME HERE <EMAIL ADDRESS>
*/
package cmd

import (
	"fmt"
	"log"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/gmaffy/biopet-utils/bamstats"
	"github.com/gmaffy/biopet-utils/utils"
)

// bamRnaCmd represents the bamRna command
var bamRnaCmd = &cobra.Command{
	Use:   "bamRna <bam> [args]",
	Short: "Counts reads and alignments of an RNA-seq BAM file by mapping class",
	Long: `Classifies every alignment as unmapped, mapped, mapped in a (proper) pair, mapped on
different chromosomes, singleton or spliced, and counts both alignments and distinct
reads per class. QC-failed alignments are counted separately.`,
	Args: cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		suffixLen, sErr := cmd.Flags().GetInt("suffix-len")
		if sErr != nil {
			log.Fatalf("Error getting suffix-len flag: %v", sErr)
		}
		idSorted, iErr := cmd.Flags().GetBool("id-sorted")
		if iErr != nil {
			log.Fatalf("Error getting id-sorted flag: %v", iErr)
		}
		validate, vErr := cmd.Flags().GetBool("validate")
		if vErr != nil {
			log.Fatalf("Error getting validate flag: %v", vErr)
		}
		format, fErr := cmd.Flags().GetString("format")
		if fErr != nil {
			log.Fatalf("Error getting format flag: %v", fErr)
		}
		output, oErr := cmd.Flags().GetString("output")
		if oErr != nil {
			log.Fatalf("Error getting output flag: %v", oErr)
		}
		if format != "json" {
			log.Fatalf("Unsupported output format %q, only json is available", format)
		}

		st, err := bamstats.CountRnaFile(args[0], suffixLen, idSorted)
		if err != nil {
			log.Fatalf("Error counting %s: %v", args[0], err)
		}
		if validate {
			if err := st.Validate(); err != nil {
				log.Fatalf("Validation of %s failed: %v", args[0], err)
			}
		}
		out := createOutput(output)
		if err := utils.WriteJSON(out, st.Report()); err != nil {
			log.Fatalf("Error writing counts: %v", err)
		}
		closeOutput(out, output)
	},
}

// ------ tophatRecondition ------ //

var tophatReconditionCmd = &cobra.Command{
	Use:   "tophatRecondition <tophat output dir> [output dir]",
	Short: "Fixes TopHat's unmapped.bam for downstream tools",
	Long: `Rewrites unmapped.bam from a TopHat output directory as unmapped_fixup.sam:
pair suffixes are dropped, MAPQ is set to 0, pairs that are both unmapped get the
mate-unmapped flag and reads with a mapped mate are placed at the mate's position.
The output directory defaults to the TopHat directory.`,
	Args: cobra.RangeArgs(1, 2),
	Run: func(cmd *cobra.Command, args []string) {
		tophatDir := args[0]
		outDir := tophatDir
		if len(args) == 2 {
			outDir = args[1]
		}
		if _, err := os.Stat(tophatDir); err != nil {
			log.Fatalf("TopHat directory %s is not accessible: %v", tophatDir, err)
		}

		out, err := bamstats.Recondition(tophatDir, outDir, strings.Join(os.Args, " "))
		if err != nil {
			log.Fatalf("Error reconditioning %s: %v", tophatDir, err)
		}
		fmt.Printf("Wrote %s\n", out)
	},
}

func init() {
	rootCmd.AddCommand(bamRnaCmd)
	rootCmd.AddCommand(tophatReconditionCmd)

	bamRnaCmd.Flags().IntP("suffix-len", "s", 0, "characters to strip from the end of read names, e.g. 2 for /1 and /2")
	bamRnaCmd.Flags().Bool("id-sorted", false, "the BAM is sorted by read name")
	bamRnaCmd.Flags().Bool("validate", false, "check that the counts add up")
	bamRnaCmd.Flags().StringP("format", "f", "json", "output format")
	bamRnaCmd.Flags().StringP("output", "o", "-", "output, - for stdout")
}
