/*
Copyright © 2025 NAME HERE <EMAIL ADDRESS>
*/
package cmd

import (
	"log"

	"github.com/spf13/cobra"

	"github.com/gmaffy/biopet-utils/bed"
)

// bedSquishCmd represents the bedSquish command
var bedSquishCmd = &cobra.Command{
	Use:   "bedSquish -i <bed6> [args]",
	Short: "Removes every base covered by more than one feature",
	Long: `Sweeps the features of a BED6 file per chromosome and strand and writes the
regions covered by exactly one feature, named after that feature.`,
	Run: func(cmd *cobra.Command, args []string) {
		input, output := ioFlags(cmd)

		in := openInput(input)
		defer in.Close()
		out := createOutput(output)
		if err := bed.Squish(in, out); err != nil {
			log.Fatalf("Error squishing %s: %v", input, err)
		}
		closeOutput(out, output)
	},
}

// ------ bedThreshold ------ //

var bedThresholdCmd = &cobra.Command{
	Use:   "bedThreshold -i <bed> [args]",
	Short: "Keeps the lines whose last column reaches a threshold",
	Long:  `Prints the lines whose last column has an absolute value of at least --threshold.`,
	Run: func(cmd *cobra.Command, args []string) {
		input, output := ioFlags(cmd)
		threshold, tErr := cmd.Flags().GetFloat64("threshold")
		if tErr != nil {
			log.Fatalf("Error getting threshold flag: %v", tErr)
		}

		in := openInput(input)
		defer in.Close()
		out := createOutput(output)
		if err := bed.Threshold(in, out, threshold); err != nil {
			log.Fatalf("Error filtering %s: %v", input, err)
		}
		closeOutput(out, output)
	},
}

// ------ findAllCommon ------ //

var findAllCommonCmd = &cobra.Command{
	Use:   "findAllCommon -i <bed> --db <bed> [--db <bed> ...]",
	Short: "Keeps the regions present in every database BED file",
	Long:  `Prints the lines of the input whose chrom, start and end occur in every --db file.`,
	Run: func(cmd *cobra.Command, args []string) {
		input, output := ioFlags(cmd)
		dbs, dErr := cmd.Flags().GetStringSlice("db")
		if dErr != nil {
			log.Fatalf("Error getting db flag: %v", dErr)
		}
		if len(dbs) == 0 {
			log.Fatalf("At least one --db file is required")
		}

		in := openInput(input)
		defer in.Close()
		out := createOutput(output)
		if err := bed.FindAllCommon(in, out, dbs); err != nil {
			log.Fatalf("Error comparing %s: %v", input, err)
		}
		closeOutput(out, output)
	},
}

// ------ selectSample ------ //

var selectSampleCmd = &cobra.Command{
	Use:   "selectSample -i <xhmm matrix> --sample <name> [args]",
	Short: "Writes one sample of an XHMM matrix as BED",
	Long: `Reads an XHMM matrix whose header holds chr:start-end regions and writes the row
of --sample as chrom, start, end and value.`,
	Run: func(cmd *cobra.Command, args []string) {
		input, output := ioFlags(cmd)
		sample, sErr := cmd.Flags().GetString("sample")
		if sErr != nil {
			log.Fatalf("Error getting sample flag: %v", sErr)
		}
		if sample == "" {
			log.Fatalf("A sample name is required (--sample)")
		}

		in := openInput(input)
		defer in.Close()
		out := createOutput(output)
		if err := bed.SelectSample(in, out, sample); err != nil {
			log.Fatalf("Error selecting %s from %s: %v", sample, input, err)
		}
		closeOutput(out, output)
	},
}

// ioFlags reads the --input and --output flags every BED command has.
func ioFlags(cmd *cobra.Command) (string, string) {
	input, iErr := cmd.Flags().GetString("input")
	if iErr != nil {
		log.Fatalf("Error getting input flag: %v", iErr)
	}
	output, oErr := cmd.Flags().GetString("output")
	if oErr != nil {
		log.Fatalf("Error getting output flag: %v", oErr)
	}
	return input, output
}

func init() {
	for _, c := range []*cobra.Command{bedSquishCmd, bedThresholdCmd, findAllCommonCmd, selectSampleCmd} {
		rootCmd.AddCommand(c)
		c.Flags().StringP("input", "i", "-", "input file, - for stdin")
		c.Flags().StringP("output", "o", "-", "output, - for stdout")
	}

	bedThresholdCmd.Flags().Float64P("threshold", "t", 5, "minimum absolute value of the last column")
	findAllCommonCmd.Flags().StringSliceP("db", "d", nil, "database BED file, may be repeated")
	selectSampleCmd.Flags().StringP("sample", "s", "", "sample row to select")
}
