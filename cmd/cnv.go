/*
Copyright © 2025 NAME HERE <EMAIL ADDRESS>
*/
package cmd

import (
	"context"
	"fmt"
	"log"

	"github.com/spf13/cobra"

	"github.com/gmaffy/biopet-utils/cnv"
)

// cnvPlotCmd represents the cnvPlot command
var cnvPlotCmd = &cobra.Command{
	Use:   "cnvPlot <FREEC ratio.txt> [args]",
	Short: "Plots Control-FREEC copy number ratios per chromosome",
	Long: `Draws, for every chromosome, the ratio times ploidy of every window, colored green
for normal, blue for loss and red for gain. One chr<name>.png is written per
chromosome.`,
	Args: cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		outDir, dErr := cmd.Flags().GetString("output-dir")
		if dErr != nil {
			log.Fatalf("Error getting output-dir flag: %v", dErr)
		}
		ploidy, pErr := cmd.Flags().GetInt("ploidy")
		if pErr != nil {
			log.Fatalf("Error getting ploidy flag: %v", pErr)
		}
		threads, tErr := cmd.Flags().GetInt("threads")
		if tErr != nil {
			log.Fatalf("Error getting threads flag: %v", tErr)
		}
		htmlPath, hErr := cmd.Flags().GetString("html")
		if hErr != nil {
			log.Fatalf("Error getting html flag: %v", hErr)
		}
		if ploidy < 1 {
			log.Fatalf("Ploidy must be at least 1, got %d", ploidy)
		}
		if !cmd.Flags().Changed("threads") {
			threads = config.Threads
		}

		in := openInput(args[0])
		ratios, err := cnv.ReadRatios(in)
		in.Close()
		if err != nil {
			log.Fatalf("Error reading %s: %v", args[0], err)
		}
		if err := cnv.PlotRatios(context.Background(), ratios, outDir, ploidy, threads); err != nil {
			log.Fatalf("Error plotting %s: %v", args[0], err)
		}

		if htmlPath != "" {
			hf := createOutput(htmlPath)
			if err := cnv.WriteRatiosHTML(hf, ratios, ploidy); err != nil {
				log.Fatalf("Error writing %s: %v", htmlPath, err)
			}
			closeOutput(hf, htmlPath)
		}
	},
}

// ------ tarmacPlot ------ //

var tarmacPlotCmd = &cobra.Command{
	Use:   "tarmacPlot --calls <bed> --wisecondor <bed> --xhmm <bed> [--stouffer <bed>] [args]",
	Short: "Plots the z-scores around every CNV call",
	Long: `For every call, draws the WisecondorX and XHMM z-scores, and the aggregated stouffer
z-score when given, within --margin bases of the call. One chrom_start-end.png is
written per call.`,
	Run: func(cmd *cobra.Command, args []string) {
		callsPath, cErr := cmd.Flags().GetString("calls")
		if cErr != nil {
			log.Fatalf("Error getting calls flag: %v", cErr)
		}
		wisecondorPath, wErr := cmd.Flags().GetString("wisecondor")
		if wErr != nil {
			log.Fatalf("Error getting wisecondor flag: %v", wErr)
		}
		xhmmPath, xErr := cmd.Flags().GetString("xhmm")
		if xErr != nil {
			log.Fatalf("Error getting xhmm flag: %v", xErr)
		}
		stoufferPath, sErr := cmd.Flags().GetString("stouffer")
		if sErr != nil {
			log.Fatalf("Error getting stouffer flag: %v", sErr)
		}
		margin, mErr := cmd.Flags().GetInt("margin")
		if mErr != nil {
			log.Fatalf("Error getting margin flag: %v", mErr)
		}
		outDir, dErr := cmd.Flags().GetString("output-dir")
		if dErr != nil {
			log.Fatalf("Error getting output-dir flag: %v", dErr)
		}
		if callsPath == "" || wisecondorPath == "" || xhmmPath == "" {
			log.Fatalf("--calls, --wisecondor and --xhmm are required")
		}

		in := openInput(callsPath)
		calls, err := cnv.ReadCalls(in)
		in.Close()
		if err != nil {
			log.Fatalf("Error reading %s: %v", callsPath, err)
		}

		var tracks cnv.TarmacTracks
		if tracks.Wisecondor, err = cnv.ReadScoresFile(wisecondorPath); err != nil {
			log.Fatalf("Error reading %s: %v", wisecondorPath, err)
		}
		if tracks.XHMM, err = cnv.ReadScoresFile(xhmmPath); err != nil {
			log.Fatalf("Error reading %s: %v", xhmmPath, err)
		}
		if stoufferPath != "" {
			if tracks.Stouffer, err = cnv.ReadScoresFile(stoufferPath); err != nil {
				log.Fatalf("Error reading %s: %v", stoufferPath, err)
			}
		}

		paths, err := cnv.TarmacPlot(calls, tracks, margin, outDir)
		if err != nil {
			log.Fatalf("Error plotting calls: %v", err)
		}
		fmt.Printf("Plotted %d calls to %s\n", len(paths), outDir)
	},
}

func init() {
	rootCmd.AddCommand(cnvPlotCmd)
	rootCmd.AddCommand(tarmacPlotCmd)

	cnvPlotCmd.Flags().StringP("output-dir", "o", ".", "directory for the PNG plots")
	cnvPlotCmd.Flags().IntP("ploidy", "p", cnv.DefaultPloidy, "ploidy of the sample")
	cnvPlotCmd.Flags().IntP("threads", "t", 1, "chromosomes plotted in parallel (default from config)")
	cnvPlotCmd.Flags().String("html", "", "interactive HTML plots")

	tarmacPlotCmd.Flags().String("calls", "", "BED file of CNV calls")
	tarmacPlotCmd.Flags().String("wisecondor", "", "WisecondorX z-score BED")
	tarmacPlotCmd.Flags().String("xhmm", "", "XHMM z-score BED")
	tarmacPlotCmd.Flags().String("stouffer", "", "aggregated stouffer z-score BED")
	tarmacPlotCmd.Flags().IntP("margin", "m", cnv.DefaultMargin, "bases shown on either side of a call")
	tarmacPlotCmd.Flags().StringP("output-dir", "o", ".", "directory for the PNG plots")
}
