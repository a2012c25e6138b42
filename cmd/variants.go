/*
Copyright © 2025 NAME HERE <EMAIL ADDRESS>
*/
package cmd

import (
	"log"
	"time"

	"github.com/spf13/cobra"

	"github.com/gmaffy/biopet-utils/mpileup"
	"github.com/gmaffy/biopet-utils/vcf"
)

// fixMpileupCmd represents the fixMpileup command
var fixMpileupCmd = &cobra.Command{
	Use:   "fixMpileup -i <mpileup> [args]",
	Short: "Repairs read skips and IUPAC reference bases in mpileup output",
	Long: `Removes the '<' and '>' read skip markers from the bases column and corrects the
depth to match. With --iupac, ambiguity codes in the reference column become N;
--iupac-only does just that.`,
	Run: func(cmd *cobra.Command, args []string) {
		input, output := ioFlags(cmd)
		iupac, iErr := cmd.Flags().GetBool("iupac")
		if iErr != nil {
			log.Fatalf("Error getting iupac flag: %v", iErr)
		}
		iupacOnly, oErr := cmd.Flags().GetBool("iupac-only")
		if oErr != nil {
			log.Fatalf("Error getting iupac-only flag: %v", oErr)
		}

		in := openInput(input)
		defer in.Close()
		out := createOutput(output)
		if err := mpileup.Fix(in, out, mpileup.Options{IUPAC: iupac, IUPACOnly: iupacOnly}); err != nil {
			log.Fatalf("Error fixing %s: %v", input, err)
		}
		closeOutput(out, output)
	},
}

// ------ breakdancer2vcf ------ //

var breakdancer2vcfCmd = &cobra.Command{
	Use:   "breakdancer2vcf -i <breakdancer calls> [args]",
	Short: "Converts BreakDancer calls to VCF",
	Long: `Writes one VCF 4.2 record per BreakDancer call, sorted by chromosome and position.
Inter-chromosomal translocations (CTX) get a breakend ALT.`,
	Run: func(cmd *cobra.Command, args []string) {
		input, output := ioFlags(cmd)
		sample, sErr := cmd.Flags().GetString("sample")
		if sErr != nil {
			log.Fatalf("Error getting sample flag: %v", sErr)
		}

		in := openInput(input)
		defer in.Close()
		out := createOutput(output)
		if err := vcf.Breakdancer2VCF(in, out, sample, time.Now()); err != nil {
			log.Fatalf("Error converting %s: %v", input, err)
		}
		closeOutput(out, output)
	},
}

func init() {
	for _, c := range []*cobra.Command{fixMpileupCmd, breakdancer2vcfCmd} {
		rootCmd.AddCommand(c)
		c.Flags().StringP("input", "i", "-", "input file, - for stdin")
		c.Flags().StringP("output", "o", "-", "output, - for stdout")
	}

	fixMpileupCmd.Flags().Bool("iupac", false, "also replace IUPAC codes in the reference column with N")
	fixMpileupCmd.Flags().Bool("iupac-only", false, "only replace IUPAC codes")

	breakdancer2vcfCmd.Flags().StringP("sample", "s", vcf.DefaultSample, "sample name in the VCF header")
}
