package picard

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"sync"

	"github.com/samber/lo"
	"golang.org/x/sync/errgroup"

	"github.com/gmaffy/biopet-utils/utils"
)

const (
	// AllChroms is the pseudo chromosome for metrics over the whole BAM.
	AllChroms = "ALL"

	// EnvOptionPrefix marks environment variables passed to CollectRnaSeqMetrics.
	EnvOptionPrefix = "OPT_PICARD_COLLECTRNASEQMETRICS_"

	rnaProgram = "COLLECT_RNA_SEQ_METRICS"
)

// Runner executes external tools.
type Runner interface {
	Run(ctx context.Context, name string, args ...string) error
	Output(ctx context.Context, name string, args ...string) ([]byte, error)
}

// ExecRunner runs tools as child processes.
type ExecRunner struct{}

func (ExecRunner) Run(ctx context.Context, name string, args ...string) error {
	return utils.RunCmdVerbose(ctx, name, args...)
}

func (ExecRunner) Output(ctx context.Context, name string, args ...string) ([]byte, error) {
	return utils.RunCmdOutput(ctx, name, args...)
}

type RnaOptions struct {
	MixBam       string
	SenseBam     string
	AntisenseBam string
	// Chroms lists the chromosomes to report. AllChroms is added when missing.
	Chroms     []string
	Annotation string
	Jar        string
	Java       string
	Samtools   string
	Threads    int
	// PicardOptions are extra KEY=VALUE arguments for CollectRnaSeqMetrics.
	PicardOptions []string
	// Completed holds the run log of an earlier attempt. Jobs it marks as
	// completed are skipped when their output exists.
	Completed []utils.LogEntry
}

// StrandSpecific reports whether sense and antisense BAMs were given. Giving
// only one of them is an error.
func (o RnaOptions) StrandSpecific() (bool, error) {
	switch {
	case o.SenseBam != "" && o.AntisenseBam != "":
		return true, nil
	case o.SenseBam == "" && o.AntisenseBam == "":
		return false, nil
	default:
		return false, errors.New("incomplete arguments: both sense and antisense BAM files are required")
	}
}

// ChromMetrics are the metrics of one chromosome of one BAM.
type ChromMetrics struct {
	FileName string  `json:"fileName,omitempty"`
	Metrics  Metrics `json:"metrics"`
}

type BamMetrics struct {
	AllMetrics map[string]ChromMetrics `json:"allMetrics"`
	BamFile    string                  `json:"bamFile"`
}

// RnaReport holds the metrics per read kind: fwd for sense reads, rev for
// antisense reads and mix for all of them.
type RnaReport struct {
	Fwd *BamMetrics `json:"fwd"`
	Mix *BamMetrics `json:"mix"`
	Rev *BamMetrics `json:"rev"`
}

// ReadChroms reads one chromosome name per line and appends AllChroms.
func ReadChroms(path string) ([]string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var chroms []string
	for _, line := range strings.Split(string(data), "\n") {
		if c := strings.TrimSpace(line); c != "" {
			chroms = append(chroms, c)
		}
	}
	return withAll(chroms), nil
}

func withAll(chroms []string) []string {
	chroms = lo.Uniq(chroms)
	if !lo.Contains(chroms, AllChroms) {
		chroms = append(chroms, AllChroms)
	}
	return chroms
}

// PicardEnvOptions collects OPT_PICARD_COLLECTRNASEQMETRICS_* variables from
// environ and merges them with extra. Input, output and annotation keys are
// set by the tool itself and dropped.
func PicardEnvOptions(environ []string, extra map[string]string) []string {
	opts := make(map[string]string)
	for k, v := range extra {
		opts[strings.ToUpper(k)] = v
	}
	for _, kv := range environ {
		k, v, ok := strings.Cut(kv, "=")
		if !ok || !strings.HasPrefix(k, EnvOptionPrefix) {
			continue
		}
		opts[strings.TrimPrefix(k, EnvOptionPrefix)] = v
	}

	var out []string
	for _, k := range utils.SortedKeys(opts) {
		v := opts[k]
		if v == "" || k == "" || strings.HasSuffix(k, "INPUT") || strings.HasSuffix(k, "OUTPUT") || strings.HasSuffix(k, "REF_FLAT") {
			continue
		}
		out = append(out, k+"="+v)
	}
	return out
}

func bamName(bam string) string {
	return strings.TrimSuffix(filepath.Base(bam), filepath.Ext(bam))
}

func metricsDir(bam string) string {
	return strings.TrimSuffix(bam, filepath.Ext(bam)) + ".rna_metrics"
}

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

// metricsTracker records the metrics file written for each BAM and chromosome.
type metricsTracker struct {
	mu    sync.Mutex
	files map[string]map[string]string
}

func newMetricsTracker(bams, chroms []string) *metricsTracker {
	t := &metricsTracker{files: make(map[string]map[string]string)}
	for _, b := range bams {
		t.files[b] = make(map[string]string, len(chroms))
		for _, c := range chroms {
			t.files[b][c] = ""
		}
	}
	return t
}

func (t *metricsTracker) add(bam, chrom, path string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.files[bam][chrom] = path
}

func (t *metricsTracker) check() error {
	for bam, chroms := range t.files {
		for chrom, path := range chroms {
			if path == "" {
				return fmt.Errorf("missing statistics file for %s, chromosome %s", bam, chrom)
			}
		}
	}
	return nil
}

func (t *metricsTracker) aggregate(bam string) (*BamMetrics, error) {
	out := &BamMetrics{BamFile: bamName(bam), AllMetrics: make(map[string]ChromMetrics)}
	for chrom, path := range t.files[bam] {
		m, err := ParseRnaMetricsFile(path)
		if err != nil {
			return nil, err
		}
		out.AllMetrics[chrom] = ChromMetrics{FileName: filepath.Base(path), Metrics: m}
	}
	return out, nil
}

type rnaCollector struct {
	opts    RnaOptions
	runner  Runner
	tracker *metricsTracker
}

// IndexBams runs samtools index for every BAM without a .bai next to it.
func IndexBams(ctx context.Context, runner Runner, samtools string, bams ...string) error {
	for _, bam := range bams {
		if !fileExists(bam) {
			return fmt.Errorf("file %s does not exist", bam)
		}
		if fileExists(bam + ".bai") {
			continue
		}
		if err := runner.Run(ctx, samtools, "index", bam); err != nil {
			return fmt.Errorf("indexing %s: %w", bam, err)
		}
	}
	return nil
}

// collect runs CollectRnaSeqMetrics on one chromosome of bam.
func (c *rnaCollector) collect(ctx context.Context, bam, chrom string) error {
	outDir := metricsDir(bam)
	if err := os.MkdirAll(outDir, 0755); err != nil {
		return err
	}
	outStat := filepath.Join(outDir, chrom+".rna_metrics.txt")
	sample := bamName(bam)

	if utils.StageHasCompleted(c.opts.Completed, rnaProgram, sample, chrom) && fileExists(outStat) {
		fmt.Printf("%s for %s %s has already completed. Skipping...\n", rnaProgram, sample, chrom)
		c.tracker.add(bam, chrom, outStat)
		return nil
	}

	input := bam
	if chrom != AllChroms {
		tmp, err := os.CreateTemp("", "tmp_rna_metrics_*.bam")
		if err != nil {
			return err
		}
		tmp.Close()
		defer os.Remove(tmp.Name())
		if err := c.runner.Run(ctx, c.opts.Samtools, "view", "-bh", "-o", tmp.Name(), bam, chrom); err != nil {
			return fmt.Errorf("extracting %s from %s: %w", chrom, bam, err)
		}
		input = tmp.Name()
	}

	args := []string{"-jar", c.opts.Jar}
	args = append(args, c.opts.PicardOptions...)
	args = append(args,
		"REF_FLAT="+c.opts.Annotation,
		"STRAND_SPECIFICITY=SECOND_READ_TRANSCRIPTION_STRAND",
		"I="+input,
		"O="+outStat,
	)
	cmdLine := c.opts.Java + " " + strings.Join(args, " ")

	slog.Info("RNA_METRICS", "PROGRAM", rnaProgram, "SAMPLE", sample, "CHROMOSOME", chrom, "STATUS", utils.StatusStarted, "CMD", cmdLine)
	if err := c.runner.Run(ctx, c.opts.Java, args...); err != nil {
		slog.Error("RNA_METRICS", "PROGRAM", rnaProgram, "SAMPLE", sample, "CHROMOSOME", chrom, "STATUS", utils.StatusFailed, "CMD", cmdLine)
		return fmt.Errorf("collecting metrics for %s %s: %w", bam, chrom, err)
	}
	if !fileExists(outStat) {
		return fmt.Errorf("metrics file %s was not written", outStat)
	}
	slog.Info("RNA_METRICS", "PROGRAM", rnaProgram, "SAMPLE", sample, "CHROMOSOME", chrom, "STATUS", utils.StatusCompleted, "CMD", cmdLine)
	c.tracker.add(bam, chrom, outStat)
	return nil
}

// CountMapped counts the mapped reads of every chromosome of bam with samtools.
func CountMapped(ctx context.Context, runner Runner, samtools, bam string, chroms []string) (*BamMetrics, error) {
	out := &BamMetrics{BamFile: bamName(bam), AllMetrics: make(map[string]ChromMetrics)}
	for _, chrom := range chroms {
		if chrom == AllChroms {
			continue
		}
		raw, err := runner.Output(ctx, samtools, "view", "-c", "-F", "0x4", bam, chrom)
		if err != nil {
			return nil, fmt.Errorf("counting reads of %s in %s: %w", chrom, bam, err)
		}
		n, err := strconv.ParseInt(string(bytes.TrimSpace(raw)), 10, 64)
		if err != nil {
			return nil, fmt.Errorf("counting reads of %s in %s: %w", chrom, bam, err)
		}
		out.AllMetrics[chrom] = ChromMetrics{Metrics: Metrics{"countMapped": n}}
	}
	return out, nil
}

// CollectRna gathers per chromosome RNA-seq metrics. Strand specific runs use
// Picard on the sense and antisense BAMs and samtools counts on the mixed one;
// otherwise only the samtools counts are made.
func CollectRna(ctx context.Context, opts RnaOptions, runner Runner) (*RnaReport, error) {
	strandSpecific, err := opts.StrandSpecific()
	if err != nil {
		return nil, err
	}
	if runner == nil {
		runner = ExecRunner{}
	}
	if opts.Threads < 1 {
		opts.Threads = 1
	}
	opts.Chroms = withAll(opts.Chroms)

	bams := []string{opts.MixBam}
	if strandSpecific {
		bams = append(bams, opts.SenseBam, opts.AntisenseBam)
	}
	if err := IndexBams(ctx, runner, opts.Samtools, bams...); err != nil {
		return nil, err
	}

	report := &RnaReport{}
	if strandSpecific {
		if _, err := os.Stat(opts.Annotation); errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("annotation file %s not found", opts.Annotation)
		}
		stranded := []string{opts.SenseBam, opts.AntisenseBam}
		c := &rnaCollector{opts: opts, runner: runner, tracker: newMetricsTracker(stranded, opts.Chroms)}

		g, gctx := errgroup.WithContext(ctx)
		g.SetLimit(opts.Threads)
		for _, bam := range stranded {
			for _, chrom := range opts.Chroms {
				bam, chrom := bam, chrom
				g.Go(func() error {
					return c.collect(gctx, bam, chrom)
				})
			}
		}
		if err := g.Wait(); err != nil {
			return nil, err
		}
		if err := c.tracker.check(); err != nil {
			return nil, err
		}
		if report.Fwd, err = c.tracker.aggregate(opts.SenseBam); err != nil {
			return nil, err
		}
		if report.Rev, err = c.tracker.aggregate(opts.AntisenseBam); err != nil {
			return nil, err
		}
	}

	if report.Mix, err = CountMapped(ctx, runner, opts.Samtools, opts.MixBam, opts.Chroms); err != nil {
		return nil, err
	}
	return report, nil
}

// reportChroms lists the chromosomes of the report tables in input order.
func reportChroms(chroms []string) []string {
	out := lo.Filter(chroms, func(c string, _ int) bool { return c != AllChroms })
	if len(out) == 0 {
		return nil
	}
	return out
}

// sortedChroms returns the chromosomes of m in natural order.
func sortedChroms(m map[string]ChromMetrics) []string {
	keys := lo.Keys(m)
	sort.Slice(keys, func(i, j int) bool { return utils.NaturalLess(keys[i], keys[j]) })
	return keys
}
