/*
Copyright © 2025 NAME HERE <EMAIL ADDRESS>
*/
package cmd

import (
	"log"
	"os"

	"github.com/spf13/cobra"

	"github.com/gmaffy/biopet-utils/cuffcmp"
	"github.com/gmaffy/biopet-utils/report"
	"github.com/gmaffy/biopet-utils/utils"
)

// parseCuffcmpCmd represents the parseCuffcmp command
var parseCuffcmpCmd = &cobra.Command{
	Use:   "parseCuffcmp -i <cuffcompare .stats> [args]",
	Short: "Converts Cuffcompare statistics to JSON",
	Long: `Reads the .stats file of Cuffcompare and writes the sensitivity and specificity of
every level and the missed and novel exon, intron and locus counts as JSON.`,
	Run: func(cmd *cobra.Command, args []string) {
		input, output := ioFlags(cmd)

		in := openInput(input)
		stats, err := cuffcmp.Parse(in)
		in.Close()
		if err != nil {
			log.Fatalf("Error parsing %s: %v", input, err)
		}
		out := createOutput(output)
		if err := utils.WriteJSON(out, stats); err != nil {
			log.Fatalf("Error writing stats: %v", err)
		}
		closeOutput(out, output)
	},
}

// ------ pdfReport ------ //

var pdfReportCmd = &cobra.Command{
	Use:   "pdfReport <gentrap summary json> [template] [logo] [args]",
	Short: "Renders the LaTeX report of a Gentrap run",
	Long: `Fills a LaTeX template with the samples, libraries, FastQC results and settings of a
Gentrap run summary and prints the result for pdflatex. Template actions are written
as ((( ... ))). Without a template the built-in report is used.`,
	Args: cobra.RangeArgs(1, 3),
	Run: func(cmd *cobra.Command, args []string) {
		output, oErr := cmd.Flags().GetString("output")
		if oErr != nil {
			log.Fatalf("Error getting output flag: %v", oErr)
		}

		var templatePath, logo string
		if len(args) > 1 {
			templatePath = args[1]
		}
		if len(args) > 2 {
			logo = args[2]
		}

		run, err := report.LoadRun(args[0], logo)
		if err != nil {
			log.Fatalf("Error reading run summary: %v", err)
		}
		tmpl, err := report.LoadTemplate(templatePath)
		if err != nil {
			log.Fatalf("Error reading template: %v", err)
		}
		out := createOutput(output)
		if err := report.WriteLaTeX(out, tmpl, run); err != nil {
			log.Fatalf("Error rendering report: %v", err)
		}
		closeOutput(out, output)
	},
}

// ------ autodoc ------ //

var autodocCmd = &cobra.Command{
	Use:   "autodoc -t <template> -o <output> -N <tool name> [args]",
	Short: "Writes the documentation page of a tool",
	Long: `Fills the {{ tool.name }}, {{ tool.output }}, {{ tool.run }} and
{{ tool.option_list }} placeholders of a documentation template. The option list is
read from a file holding the tool's --help output.`,
	Run: func(cmd *cobra.Command, args []string) {
		templatePath, tErr := cmd.Flags().GetString("template")
		if tErr != nil {
			log.Fatalf("Error getting template flag: %v", tErr)
		}
		output, oErr := cmd.Flags().GetString("output")
		if oErr != nil {
			log.Fatalf("Error getting output flag: %v", oErr)
		}
		name, nErr := cmd.Flags().GetString("tool-name")
		if nErr != nil {
			log.Fatalf("Error getting tool-name flag: %v", nErr)
		}
		toolOutput, toErr := cmd.Flags().GetString("tool-output")
		if toErr != nil {
			log.Fatalf("Error getting tool-output flag: %v", toErr)
		}
		toolRun, trErr := cmd.Flags().GetString("tool-run")
		if trErr != nil {
			log.Fatalf("Error getting tool-run flag: %v", trErr)
		}
		optionList, lErr := cmd.Flags().GetString("tool-option-list")
		if lErr != nil {
			log.Fatalf("Error getting tool-option-list flag: %v", lErr)
		}
		if templatePath == "" || name == "" {
			log.Fatalf("--template and --tool-name are required")
		}

		tmpl, err := os.ReadFile(templatePath)
		if err != nil {
			log.Fatalf("Error reading template %s: %v", templatePath, err)
		}
		tool := report.Tool{Name: name, Output: toolOutput, Run: toolRun}
		if optionList != "" {
			help, err := os.ReadFile(optionList)
			if err != nil {
				log.Fatalf("Error reading option list %s: %v", optionList, err)
			}
			tool.OptionList = string(help)
		}

		out := createOutput(output)
		if err := report.WriteAutodoc(out, string(tmpl), tool); err != nil {
			log.Fatalf("Error rendering %s: %v", templatePath, err)
		}
		closeOutput(out, output)
	},
}

func init() {
	rootCmd.AddCommand(parseCuffcmpCmd)
	rootCmd.AddCommand(pdfReportCmd)
	rootCmd.AddCommand(autodocCmd)

	parseCuffcmpCmd.Flags().StringP("input", "i", "-", "Cuffcompare .stats file, - for stdin")
	parseCuffcmpCmd.Flags().StringP("output", "o", "-", "JSON output, - for stdout")

	pdfReportCmd.Flags().StringP("output", "o", "-", "LaTeX output, - for stdout")

	autodocCmd.Flags().StringP("template", "t", "", "documentation template")
	autodocCmd.Flags().StringP("output", "o", "-", "output file, - for stdout")
	autodocCmd.Flags().StringP("tool-name", "N", "", "name of the tool")
	autodocCmd.Flags().StringP("tool-output", "O", "", "description of the tool's output")
	autodocCmd.Flags().StringP("tool-run", "R", "", "example command line")
	autodocCmd.Flags().StringP("tool-option-list", "L", "", "file holding the tool's --help output")
}
