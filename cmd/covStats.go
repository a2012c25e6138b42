/*
Copyright © 2025 NAME HERE <EMAIL ADDRESS>
*/
package cmd

import (
	"context"
	"fmt"
	"log"

	"github.com/spf13/cobra"

	"github.com/gmaffy/biopet-utils/coverage"
	"github.com/gmaffy/biopet-utils/utils"
)

// covStatsCmd represents the covStats command
var covStatsCmd = &cobra.Command{
	Use:   "covStats -i <bedtools coverage -d output> [args]",
	Short: "Computes coverage statistics and plots from bedtools coverage output",
	Long: `Reads the per-base output of "bedtools coverage -d" and writes, per chromosome
and for all chromosomes together, max/median/mean depth, horizontal coverage and the
fraction of positions covered at 10x to 50x as JSON.

Optionally draws a depth histogram with a box plot (--plot) and an interactive
chart (--html).`,
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
		htmlPath, hErr := cmd.Flags().GetString("html")
		if hErr != nil {
			log.Fatalf("Error getting html flag: %v", hErr)
		}
		title, tErr := cmd.Flags().GetString("title")
		if tErr != nil {
			log.Fatalf("Error getting title flag: %v", tErr)
		}
		subtitle, sErr := cmd.Flags().GetString("subtitle")
		if sErr != nil {
			log.Fatalf("Error getting subtitle flag: %v", sErr)
		}
		minCov, mErr := cmd.Flags().GetInt("min-cov-show")
		if mErr != nil {
			log.Fatalf("Error getting min-cov-show flag: %v", mErr)
		}
		maxPct, xErr := cmd.Flags().GetFloat64("max-percentile-show")
		if xErr != nil {
			log.Fatalf("Error getting max-percentile-show flag: %v", xErr)
		}

		in := openInput(input)
		covs, err := coverage.Collect(in)
		in.Close()
		if err != nil {
			log.Fatalf("Error reading coverage from %s: %v", input, err)
		}

		stats, err := coverage.QuickStatsAll(context.Background(), covs)
		if err != nil {
			log.Fatalf("Error computing coverage stats: %v", err)
		}
		out := createOutput(output)
		if err := utils.WriteJSON(out, map[string]any{"coverage": stats}); err != nil {
			log.Fatalf("Error writing stats: %v", err)
		}
		closeOutput(out, output)

		if subtitle == "" {
			subtitle = fmt.Sprintf("%q", input)
		}
		plotOpts := coverage.DefaultPlotOptions()
		plotOpts.MinCovOk = minCov
		plotOpts.PercentileShow = maxPct
		plotOpts.Title = []string{title, subtitle}

		all := covs[coverage.AllChroms]
		if plotPath != "" {
			if err := all.PlotPNG(plotPath, plotOpts); err != nil {
				log.Fatalf("Error plotting %s: %v", plotPath, err)
			}
		}
		if htmlPath != "" {
			if err := all.PlotHTML(htmlPath, plotOpts); err != nil {
				log.Fatalf("Error plotting %s: %v", htmlPath, err)
			}
		}
	},
}

// ------ hist2count ------ //

var hist2countCmd = &cobra.Command{
	Use:   "hist2count",
	Short: "Sums coverageBed -hist output per region",
	Long: `Turns "coverageBed -hist" output into one line per region holding the number of
mapped nucleotides and that number divided by the region length. Columns given with
--copy are appended from the region's first line.`,
	Run: func(cmd *cobra.Command, args []string) {
		input, iErr := cmd.Flags().GetString("input")
		if iErr != nil {
			log.Fatalf("Error getting input flag: %v", iErr)
		}
		output, oErr := cmd.Flags().GetString("output")
		if oErr != nil {
			log.Fatalf("Error getting output flag: %v", oErr)
		}
		copyCols, cErr := cmd.Flags().GetIntSlice("copy")
		if cErr != nil {
			log.Fatalf("Error getting copy flag: %v", cErr)
		}

		in := openInput(input)
		defer in.Close()
		out := createOutput(output)
		if err := coverage.Hist2Count(in, out, copyCols); err != nil {
			log.Fatalf("Error converting %s: %v", input, err)
		}
		closeOutput(out, output)
	},
}

func init() {
	rootCmd.AddCommand(covStatsCmd)
	rootCmd.AddCommand(hist2countCmd)

	covStatsCmd.Flags().StringP("input", "i", "-", "bedtools coverage -d output, - for stdin")
	covStatsCmd.Flags().StringP("output", "o", "-", "JSON output, - for stdout")
	covStatsCmd.Flags().String("plot", "", "PNG coverage plot")
	covStatsCmd.Flags().String("html", "", "interactive HTML coverage plot")
	covStatsCmd.Flags().String("title", "Coverage Plot", "plot title")
	covStatsCmd.Flags().String("subtitle", "", "plot subtitle (default the input path)")
	covStatsCmd.Flags().Int("min-cov-show", 6, "depths below this are shaded")
	covStatsCmd.Flags().Float64("max-percentile-show", 98, "percentile of depth where the x axis stops")

	hist2countCmd.Flags().StringP("input", "i", "-", "coverageBed -hist output, - for stdin")
	hist2countCmd.Flags().StringP("output", "o", "-", "output, - for stdout")
	hist2countCmd.Flags().IntSlice("copy", nil, "0-based column indices to copy to the output")
}
