package picard

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gmaffy/biopet-utils/utils"
)

const rnaMetricsText = `## htsjdk.samtools.metrics.StringHeader
# picard.analysis.CollectRnaSeqMetrics REF_FLAT=ann.refFlat INPUT=in.bam
## METRICS CLASS	picard.analysis.RnaSeqMetrics
PF_BASES	PF_ALIGNED_BASES	CODING_BASES	UTR_BASES	INTRONIC_BASES	INTERGENIC_BASES	CORRECT_STRAND_READS	INCORRECT_STRAND_READS	PCT_CODING_BASES	MEDIAN_CV_COVERAGE	RIBOSOMAL_BASES
1000	800	300	100	200	200	70	30	0.375	?

## HISTOGRAM	java.lang.Integer
`

func TestParseRnaMetrics(t *testing.T) {
	m, err := ParseRnaMetrics(strings.NewReader(rnaMetricsText), "test")
	require.NoError(t, err)
	assert.Equal(t, int64(1000), m["pfBases"])
	assert.Equal(t, int64(800), m.Int("pfAlignedBases"))
	assert.Equal(t, 0.375, m["pctCodingBases"])
	assert.Nil(t, m["medianCvCoverage"])
	assert.Contains(t, m, "ribosomalBases")
	assert.Nil(t, m["ribosomalBases"])
}

func TestParseRnaMetricsErrors(t *testing.T) {
	_, err := ParseRnaMetrics(strings.NewReader("## nothing here\n"), "empty")
	assert.ErrorContains(t, err, "not found")

	_, err = ParseRnaMetrics(strings.NewReader("PF_BASES\tSOMETHING_ELSE\n1\t2\n"), "bad")
	assert.ErrorContains(t, err, "unknown column SOMETHING_ELSE")

	_, err = ParseRnaMetrics(strings.NewReader("PF_BASES\n1.5\n"), "float")
	assert.Error(t, err)
}

func TestPicardEnvOptions(t *testing.T) {
	env := []string{
		"PATH=/bin",
		EnvOptionPrefix + "MINIMUM_LENGTH=600",
		EnvOptionPrefix + "INPUT=x.bam",
		EnvOptionPrefix + "REF_FLAT=y",
		EnvOptionPrefix + "EMPTY=",
	}
	got := PicardEnvOptions(env, map[string]string{"validation_stringency": "LENIENT", "minimum_length": "100"})
	assert.Equal(t, []string{"MINIMUM_LENGTH=600", "VALIDATION_STRINGENCY=LENIENT"}, got)
}

func TestStrandSpecific(t *testing.T) {
	ss, err := RnaOptions{SenseBam: "a", AntisenseBam: "b"}.StrandSpecific()
	require.NoError(t, err)
	assert.True(t, ss)

	ss, err = RnaOptions{}.StrandSpecific()
	require.NoError(t, err)
	assert.False(t, ss)

	_, err = RnaOptions{SenseBam: "a"}.StrandSpecific()
	assert.Error(t, err)
}

// fakeRunner stands in for samtools and java. Every call is recorded.
type fakeRunner struct {
	mu    sync.Mutex
	calls []string
}

func (f *fakeRunner) record(name string, args []string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, name+" "+strings.Join(args, " "))
}

func (f *fakeRunner) Run(_ context.Context, name string, args ...string) error {
	f.record(name, args)
	switch {
	case name == "samtools" && args[0] == "index":
		return os.WriteFile(args[1]+".bai", nil, 0644)
	case name == "samtools" && args[0] == "view":
		return os.WriteFile(args[3], nil, 0644)
	case name == "java":
		for _, a := range args {
			if out, ok := strings.CutPrefix(a, "O="); ok {
				return os.WriteFile(out, []byte(rnaMetricsText), 0644)
			}
		}
	}
	return fmt.Errorf("unexpected command %s", name)
}

func (f *fakeRunner) Output(_ context.Context, name string, args ...string) ([]byte, error) {
	f.record(name, args)
	return []byte("42\n"), nil
}

func (f *fakeRunner) count(prefix string) int {
	n := 0
	for _, c := range f.calls {
		if strings.HasPrefix(c, prefix) {
			n++
		}
	}
	return n
}

func rnaFixture(t *testing.T) RnaOptions {
	dir := t.TempDir()
	opts := RnaOptions{
		MixBam:       filepath.Join(dir, "mix.bam"),
		SenseBam:     filepath.Join(dir, "sense.bam"),
		AntisenseBam: filepath.Join(dir, "antisense.bam"),
		Annotation:   filepath.Join(dir, "ann.refFlat"),
		Chroms:       []string{"chr1", "chr2"},
		Jar:          "picard.jar",
		Java:         "java",
		Samtools:     "samtools",
		Threads:      3,
	}
	for _, p := range []string{opts.MixBam, opts.SenseBam, opts.AntisenseBam, opts.Annotation} {
		require.NoError(t, os.WriteFile(p, nil, 0644))
	}
	return opts
}

func TestCollectRnaStrandSpecific(t *testing.T) {
	opts := rnaFixture(t)
	runner := &fakeRunner{}

	report, err := CollectRna(context.Background(), opts, runner)
	require.NoError(t, err)

	assert.Equal(t, 3, runner.count("samtools index"))
	assert.Equal(t, 6, runner.count("java -jar picard.jar"))
	assert.Equal(t, 4, runner.count("samtools view -bh"))

	require.NotNil(t, report.Fwd)
	require.NotNil(t, report.Rev)
	assert.Equal(t, "sense", report.Fwd.BamFile)
	assert.Equal(t, "antisense", report.Rev.BamFile)
	assert.Len(t, report.Fwd.AllMetrics, 3)
	assert.Equal(t, "ALL.rna_metrics.txt", report.Fwd.AllMetrics[AllChroms].FileName)
	assert.Equal(t, int64(70), report.Rev.AllMetrics["chr2"].Metrics.Int("correctStrandReads"))

	require.NotNil(t, report.Mix)
	assert.Equal(t, "mix", report.Mix.BamFile)
	assert.Len(t, report.Mix.AllMetrics, 2)
	assert.Equal(t, int64(42), report.Mix.AllMetrics["chr1"].Metrics["countMapped"])

	var html bytes.Buffer
	require.NoError(t, WriteRnaHTML(&html, report, opts.Chroms))
	page := html.String()
	assert.Contains(t, page, "<td>chr1</td><td>42</td><td><green>70</green> / <red>30</red></td>")
	assert.Contains(t, page, "<td>Exonic</td><td>400</td><td>50.00</td>")
	assert.Contains(t, page, "border-collapse")

	var js bytes.Buffer
	require.NoError(t, utils.WriteJSON(&js, report))
	assert.Contains(t, js.String(), `"countMapped": 42`)
}

func TestCollectRnaResume(t *testing.T) {
	opts := rnaFixture(t)
	_, err := CollectRna(context.Background(), opts, &fakeRunner{})
	require.NoError(t, err)

	for _, chrom := range []string{"chr1", "chr2", AllChroms} {
		for _, sample := range []string{"sense", "antisense"} {
			opts.Completed = append(opts.Completed, utils.LogEntry{
				Program: rnaProgram, Sample: sample, Chromosome: chrom, Status: utils.StatusCompleted,
			})
		}
	}
	runner := &fakeRunner{}
	report, err := CollectRna(context.Background(), opts, runner)
	require.NoError(t, err)
	assert.Zero(t, runner.count("java"))
	assert.Zero(t, runner.count("samtools index"))
	assert.Len(t, report.Fwd.AllMetrics, 3)
}

func TestCollectRnaMixOnly(t *testing.T) {
	opts := rnaFixture(t)
	opts.SenseBam, opts.AntisenseBam = "", ""
	runner := &fakeRunner{}

	report, err := CollectRna(context.Background(), opts, runner)
	require.NoError(t, err)
	assert.Nil(t, report.Fwd)
	assert.Nil(t, report.Rev)
	assert.Zero(t, runner.count("java"))
	assert.Equal(t, 2, runner.count("samtools view -c -F 0x4"))

	var html bytes.Buffer
	require.NoError(t, WriteRnaHTML(&html, report, opts.Chroms))
	assert.Contains(t, html.String(), "<td>chr2</td><td>42</td>")
	assert.NotContains(t, html.String(), "Base counts")
}

func TestCollectRnaMissingBam(t *testing.T) {
	opts := rnaFixture(t)
	opts.MixBam = filepath.Join(t.TempDir(), "missing.bam")
	_, err := CollectRna(context.Background(), opts, &fakeRunner{})
	assert.ErrorContains(t, err, "does not exist")
}

const insertText = `## htsjdk.samtools.metrics.StringHeader
# picard.analysis.CollectInsertSizeMetrics HISTOGRAM_FILE=x.pdf INPUT=/data/sample1.bam OUTPUT=x.txt
## METRICS CLASS	picard.analysis.InsertSizeMetrics
MEDIAN_INSERT_SIZE	PAIR_ORIENTATION
3	FR

## HISTOGRAM	java.lang.Integer
insert_size	All_Reads.fr_count	All_Reads.rf_count
2	5	1
3	9	0
5	9	2

`

func TestParseInsertSizes(t *testing.T) {
	h, err := ParseInsertSizes(strings.NewReader(insertText), "x.txt")
	require.NoError(t, err)
	assert.Equal(t, "sample1.bam", h.Sample)
	require.Len(t, h.Orientations, 2)
	assert.Equal(t, "inward", h.Orientations[0].Label)
	assert.Equal(t, "outward", h.Orientations[1].Label)
	assert.Equal(t, []float64{0, 5, 9, 0, 9}, h.Counts[0])
	assert.Equal(t, []float64{0, 1, 0, 0, 2}, h.Counts[1])

	s := h.Summary()
	assert.Equal(t, OrientationSummary{Max: 9, MaxAt: []int{3, 5}}, s["inward"])
	assert.Equal(t, OrientationSummary{Max: 2, MaxAt: []int{5}}, s["outward"])

	dir := t.TempDir()
	png := filepath.Join(dir, "insert.png")
	require.NoError(t, h.PlotPNG(png, 0))
	info, err := os.Stat(png)
	require.NoError(t, err)
	assert.Positive(t, info.Size())

	var html bytes.Buffer
	require.NoError(t, WriteInsertHTML(&html, []*InsertHistogram{h}, 4))
	assert.Contains(t, html.String(), "echarts")
	assert.Contains(t, InsertSummaries([]*InsertHistogram{h}), "sample1.bam")
}

func TestParseInsertSizesErrors(t *testing.T) {
	_, err := ParseInsertSizes(strings.NewReader("## METRICS\n"), "none")
	assert.ErrorContains(t, err, "before histogram")

	_, err = ParseInsertSizes(strings.NewReader("## HISTOGRAM\ninsert_size\tAll_Reads.xx_count\n1\t2\n"), "bad")
	assert.ErrorContains(t, err, "unexpected column name")

	_, err = ParseInsertSizes(strings.NewReader("## HISTOGRAM\ninsert_size\tfr_count\n3\t2\n2\t1\n"), "order")
	assert.ErrorContains(t, err, "out of order")
}
