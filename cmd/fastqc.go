/*
Copyright © 2025 NAME HERE <EMAIL ADDRESS>
*/
package cmd

import (
	"fmt"
	"log"

	"github.com/spf13/cobra"

	"github.com/gmaffy/biopet-utils/fastqc"
	"github.com/gmaffy/biopet-utils/flexiprep"
	"github.com/gmaffy/biopet-utils/utils"
)

// qualTypeSickleCmd represents the qualTypeSickle command
var qualTypeSickleCmd = &cobra.Command{
	Use:   "qualTypeSickle <fastqc output dir or fastqc_data.txt>",
	Short: "Prints the sickle quality type of a FastQC result",
	Long: `Maps the Encoding reported by FastQC to the quality type sickle expects and prints
"name<TAB>offset".`,
	Args: cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		force, fErr := cmd.Flags().GetString("force")
		if fErr != nil {
			log.Fatalf("Error getting force flag: %v", fErr)
		}

		fq, err := fastqc.LoadFromDir(args[0])
		if err != nil {
			log.Fatalf("Error reading FastQC result %s: %v", args[0], err)
		}
		enc, err := fastqc.SickleQualType(fq, force)
		if err != nil {
			log.Fatalf("Error detecting quality type: %v", err)
		}
		fmt.Printf("%s\t%d\n", enc.Name, enc.Offset)
	},
}

// ------ fastqcContam ------ //

var fastqcContamCmd = &cobra.Command{
	Use:   "fastqcContam <fastqc output dir or fastqc_data.txt> --contam-file <contaminants file> [args]",
	Short: "Lists the known contaminants FastQC found overrepresented",
	Long: `Reads a "name<TAB>sequence" contaminant file and prints every contaminant named as
the possible source of an overrepresented sequence in the FastQC result.`,
	Args: cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		contamFile, cErr := cmd.Flags().GetString("contam-file")
		if cErr != nil {
			log.Fatalf("Error getting contam-file flag: %v", cErr)
		}
		output, oErr := cmd.Flags().GetString("output")
		if oErr != nil {
			log.Fatalf("Error getting output flag: %v", oErr)
		}
		seqOnly, sErr := cmd.Flags().GetBool("seq-only")
		if sErr != nil {
			log.Fatalf("Error getting seq-only flag: %v", sErr)
		}
		if contamFile == "" {
			log.Fatalf("A contaminant file is required (--contam-file)")
		}

		fq, err := fastqc.LoadFromDir(args[0])
		if err != nil {
			log.Fatalf("Error reading FastQC result %s: %v", args[0], err)
		}
		in := openInput(contamFile)
		contams, err := fastqc.Contaminants(in)
		in.Close()
		if err != nil {
			log.Fatalf("Error reading contaminants %s: %v", contamFile, err)
		}

		out := createOutput(output)
		if err := fastqc.WriteContaminants(out, fastqc.PresentContaminants(fq, contams), seqOnly); err != nil {
			log.Fatalf("Error writing contaminants: %v", err)
		}
		closeOutput(out, output)
	},
}

// ------ summarizeFlexiprep ------ //

var summarizeFlexiprepCmd = &cobra.Command{
	Use:   "summarizeFlexiprep <qc mode> <run name> <sample A> [sample B] <run dir>",
	Short: "Summarizes a flexiprep run directory as JSON",
	Long: `Collects the checksums, FastQC results, seqStat reports and the clipping, syncing
and trimming logs of one flexiprep run into a single JSON document.

The QC mode is one of none, clip, trim or cliptrim. Sample B is given for paired-end
libraries.`,
	Args: cobra.RangeArgs(4, 5),
	Run: func(cmd *cobra.Command, args []string) {
		output, oErr := cmd.Flags().GetString("output")
		if oErr != nil {
			log.Fatalf("Error getting output flag: %v", oErr)
		}

		o := flexiprep.Options{QCMode: args[0], RunName: args[1], SampleA: args[2]}
		if len(args) == 5 {
			o.SampleB = args[3]
		}
		o.RunDir = args[len(args)-1]

		doc, err := flexiprep.Summarize(o)
		if err != nil {
			log.Fatalf("Error summarizing %s: %v", o.RunDir, err)
		}
		out := createOutput(output)
		if err := utils.WriteJSON(out, doc.Data()); err != nil {
			log.Fatalf("Error writing summary: %v", err)
		}
		closeOutput(out, output)
	},
}

func init() {
	rootCmd.AddCommand(qualTypeSickleCmd)
	rootCmd.AddCommand(fastqcContamCmd)
	rootCmd.AddCommand(summarizeFlexiprepCmd)

	qualTypeSickleCmd.Flags().StringP("force", "f", "", "use this sickle quality type instead of detecting it")

	fastqcContamCmd.Flags().String("contam-file", "", "contaminant file, name<TAB>sequence per line")
	fastqcContamCmd.Flags().StringP("output", "o", "-", "output, - for stdout")
	fastqcContamCmd.Flags().BoolP("seq-only", "s", false, "print only the sequences")

	summarizeFlexiprepCmd.Flags().StringP("output", "o", "-", "JSON output, - for stdout")
}
