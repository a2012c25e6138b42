/*
Copyright © 2025 NAME HERE <EMAIL ADDRESS>
*/
package cmd

import (
	"context"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/gmaffy/biopet-utils/picard"
	"github.com/gmaffy/biopet-utils/utils"
)

// rnaMetricsCmd represents the rnaMetrics command
var rnaMetricsCmd = &cobra.Command{
	Use:   "rnaMetrics <mix bam> --chrs <chromosome list> [--s-bam <bam> --as-bam <bam>] [args]",
	Short: "Collects per chromosome RNA-seq metrics",
	Long: `Counts mapped reads per chromosome of the BAM holding all reads. When sense and
antisense BAMs are given, Picard CollectRnaSeqMetrics is also run on each of them per
chromosome and for the whole file, in parallel.

Extra Picard options come from the picard_rna_options config map and from
OPT_PICARD_COLLECTRNASEQMETRICS_<KEY> environment variables. With --log-file, a rerun
skips the Picard jobs that already completed.`,
	Args: cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		senseBam, sErr := cmd.Flags().GetString("s-bam")
		if sErr != nil {
			log.Fatalf("Error getting s-bam flag: %v", sErr)
		}
		antisenseBam, aErr := cmd.Flags().GetString("as-bam")
		if aErr != nil {
			log.Fatalf("Error getting as-bam flag: %v", aErr)
		}
		chrsFile, cErr := cmd.Flags().GetString("chrs")
		if cErr != nil {
			log.Fatalf("Error getting chrs flag: %v", cErr)
		}
		annotation, anErr := cmd.Flags().GetString("annotation")
		if anErr != nil {
			log.Fatalf("Error getting annotation flag: %v", anErr)
		}
		threads, tErr := cmd.Flags().GetInt("threads")
		if tErr != nil {
			log.Fatalf("Error getting threads flag: %v", tErr)
		}
		jar, jErr := cmd.Flags().GetString("jar")
		if jErr != nil {
			log.Fatalf("Error getting jar flag: %v", jErr)
		}
		java, jvErr := cmd.Flags().GetString("java")
		if jvErr != nil {
			log.Fatalf("Error getting java flag: %v", jvErr)
		}
		samtools, stErr := cmd.Flags().GetString("samtools")
		if stErr != nil {
			log.Fatalf("Error getting samtools flag: %v", stErr)
		}
		output, oErr := cmd.Flags().GetString("output")
		if oErr != nil {
			log.Fatalf("Error getting output flag: %v", oErr)
		}
		htmlPath, hErr := cmd.Flags().GetString("html")
		if hErr != nil {
			log.Fatalf("Error getting html flag: %v", hErr)
		}

		if chrsFile == "" {
			log.Fatalf("A chromosome list is required (--chrs)")
		}
		chroms, err := picard.ReadChroms(chrsFile)
		if err != nil {
			log.Fatalf("Error reading chromosome list %s: %v", chrsFile, err)
		}

		// flags win over the config file
		if !cmd.Flags().Changed("threads") {
			threads = config.Threads
		}
		jar = firstNonEmpty(jar, config.PicardJar)
		java = firstNonEmpty(java, config.Java, "java")
		samtools = firstNonEmpty(samtools, config.Samtools, "samtools")

		var completed []utils.LogEntry
		if logFile != "" {
			completed, err = utils.ParseLogFile(logFile)
			if err != nil {
				log.Fatalf("Error reading run log %s: %v", logFile, err)
			}
		}

		opts := picard.RnaOptions{
			MixBam:        args[0],
			SenseBam:      senseBam,
			AntisenseBam:  antisenseBam,
			Chroms:        chroms,
			Annotation:    annotation,
			Jar:           jar,
			Java:          java,
			Samtools:      samtools,
			Threads:       threads,
			PicardOptions: picard.PicardEnvOptions(os.Environ(), config.PicardRnaOptions),
			Completed:     completed,
		}
		if ss, err := opts.StrandSpecific(); err != nil {
			log.Fatalf("%v", err)
		} else if ss && jar == "" {
			log.Fatalf("The Picard jar is required for strand specific runs (--jar or picard_jar in the config)")
		}

		report, err := picard.CollectRna(context.Background(), opts, picard.ExecRunner{})
		if err != nil {
			log.Fatalf("Error collecting RNA metrics: %v", err)
		}

		out := createOutput(output)
		if err := utils.WriteJSON(out, report); err != nil {
			log.Fatalf("Error writing metrics: %v", err)
		}
		closeOutput(out, output)

		if htmlPath != "" {
			hf := createOutput(htmlPath)
			if err := picard.WriteRnaHTML(hf, report, chroms); err != nil {
				log.Fatalf("Error writing %s: %v", htmlPath, err)
			}
			closeOutput(hf, htmlPath)
		}
	},
}

// ------ insertDist ------ //

var insertDistCmd = &cobra.Command{
	Use:   "insertDist <insert size metrics>... [args]",
	Short: "Plots Picard insert size histograms",
	Long: `Reads CollectInsertSizeMetrics output and draws one PNG per file with a series per
read orientation. The maximum of every orientation is written as JSON.`,
	Args: cobra.MinimumNArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		outDir, dErr := cmd.Flags().GetString("output-dir")
		if dErr != nil {
			log.Fatalf("Error getting output-dir flag: %v", dErr)
		}
		maxX, mErr := cmd.Flags().GetInt("max-x")
		if mErr != nil {
			log.Fatalf("Error getting max-x flag: %v", mErr)
		}
		htmlPath, hErr := cmd.Flags().GetString("html")
		if hErr != nil {
			log.Fatalf("Error getting html flag: %v", hErr)
		}
		summary, sErr := cmd.Flags().GetString("summary")
		if sErr != nil {
			log.Fatalf("Error getting summary flag: %v", sErr)
		}

		if err := os.MkdirAll(outDir, 0755); err != nil {
			log.Fatalf("Error creating %s: %v", outDir, err)
		}
		var hists []*picard.InsertHistogram
		for _, path := range args {
			h, err := picard.ParseInsertSizesFile(path)
			if err != nil {
				log.Fatalf("Error reading %s: %v", path, err)
			}
			name := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
			png := filepath.Join(outDir, name+".png")
			if err := h.PlotPNG(png, maxX); err != nil {
				log.Fatalf("Error plotting %s: %v", png, err)
			}
			if summary != "-" {
				fmt.Printf("Plotted %s to %s\n", path, png)
			}
			hists = append(hists, h)
		}

		out := createOutput(summary)
		if err := utils.WriteJSON(out, picard.InsertSummaries(hists)); err != nil {
			log.Fatalf("Error writing summary: %v", err)
		}
		closeOutput(out, summary)

		if htmlPath != "" {
			hf := createOutput(htmlPath)
			if err := picard.WriteInsertHTML(hf, hists, maxX); err != nil {
				log.Fatalf("Error writing %s: %v", htmlPath, err)
			}
			closeOutput(hf, htmlPath)
		}
	},
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}

func init() {
	rootCmd.AddCommand(rnaMetricsCmd)
	rootCmd.AddCommand(insertDistCmd)

	rnaMetricsCmd.Flags().String("s-bam", "", "BAM with the sense reads")
	rnaMetricsCmd.Flags().String("as-bam", "", "BAM with the antisense reads")
	rnaMetricsCmd.Flags().String("chrs", "", "file with one chromosome name per line")
	rnaMetricsCmd.Flags().StringP("annotation", "a", "", "refFlat annotation for Picard")
	rnaMetricsCmd.Flags().IntP("threads", "t", 1, "parallel Picard jobs (default from config)")
	rnaMetricsCmd.Flags().String("jar", "", "Picard jar (default from config)")
	rnaMetricsCmd.Flags().String("java", "", "java executable (default from config)")
	rnaMetricsCmd.Flags().String("samtools", "", "samtools executable (default from config)")
	rnaMetricsCmd.Flags().StringP("output", "o", "-", "JSON output, - for stdout")
	rnaMetricsCmd.Flags().String("html", "", "HTML tables of the read and base counts")

	insertDistCmd.Flags().StringP("output-dir", "o", ".", "directory for the PNG plots")
	insertDistCmd.Flags().Int("max-x", 0, "largest insert size shown (default the largest observed)")
	insertDistCmd.Flags().String("html", "", "interactive HTML plots")
	insertDistCmd.Flags().String("summary", "-", "JSON summary, - for stdout")
}
