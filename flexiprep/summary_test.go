package flexiprep

import (
	"bytes"
	"os"
	"path/filepath"
	"strconv"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gmaffy/biopet-utils/utils"
)

func write(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
}

func fastqcData(gc int) string {
	return "##FastQC\t0.10.1\n" +
		">>Basic Statistics\tpass\n" +
		"#Measure\tValue\n" +
		"Filename\tx.fq\n" +
		"%GC\t" + strconv.Itoa(gc) + "\n" +
		">>END_MODULE\n"
}

// addFastq lays out the checksum, FastQC and seqstats files of one FASTQ.
func addFastq(t *testing.T, dir, base, statBase string, gc int) {
	write(t, filepath.Join(dir, base+".sha1"), "0123abcd  /elsewhere/"+base+".fq\n")
	fqc := filepath.Join(dir, base+".fastqc", base+"_fastqc")
	write(t, filepath.Join(fqc, "fastqc_data.txt"), fastqcData(gc))
	write(t, filepath.Join(fqc, "Images", "per_base_quality.png"), "png")
	write(t, filepath.Join(dir, statBase+".seqstats.json"), `{"stats": {"reads": {"num_total": 3}}}`)
}

func TestSummarizeSingleClip(t *testing.T) {
	dir := t.TempDir()
	addFastq(t, dir, "r1", "r1", 45)
	addFastq(t, dir, "r1.qc", "r1.clip", 47)
	write(t, filepath.Join(dir, "r1.contams.txt"), "adapter1\tACGTAC\n")
	write(t, filepath.Join(dir, "r1.clip.stats"), "Trimmed reads: 10\nToo short reads: 2\nToo long reads: 1\n"+
		"=== Adapter 'ACGTAC' ===\nSequence: ACGTAC; Length: 6; Trimmed: 7 times.\n"+
		"Adapter 'ACGTAC', length 6, was trimmed 7 times.\n")

	doc, err := Summarize(Options{
		RunName: "run", QCMode: ModeClip, SampleA: "r1", RunDir: dir,
		Now: time.Date(2014, 1, 2, 3, 4, 5, 0, time.UTC),
	})
	require.NoError(t, err)

	assert.Equal(t, "flexiprep", doc.Search("_meta", "module").Data())
	assert.Equal(t, "2014-01-02T03:04:05.000000", doc.Search("_meta", "run_time").Data())
	assert.Equal(t, "single", doc.Search("stats", "lib_type").Data())
	assert.Equal(t, "0123abcd", doc.Search("files", "fastq_raw_1", "checksum_sha1").Data())
	assert.Equal(t, filepath.Join(dir, "r1.qc.fq"), doc.Search("files", "fastq_proc_1", "path").Data())
	assert.True(t, doc.Exists("files", "plot_per_base_quality_proc_1"))
	assert.True(t, doc.Exists("files", "txt_fastqc_raw_1"))
	assert.Equal(t, 45, doc.Search("stats", "fastq_raw_1", "mean_gc").Data())
	assert.Equal(t, 47, doc.Search("stats", "fastq_proc_1", "mean_gc").Data())

	clip := doc.Search("stats", "clip", "fastq_1")
	assert.Equal(t, int64(3), clip.Search("num_reads_discarded").Data())
	assert.Equal(t, int64(10), clip.Search("num_reads_affected").Data())
	assert.Equal(t, []any{"ACGTAC", int64(7)}, clip.Search("adapters", "adapter1").Data())
	assert.False(t, doc.Exists("stats", "trim"))

	var out bytes.Buffer
	require.NoError(t, utils.WriteJSON(&out, doc.Data()))
	assert.Contains(t, out.String(), `"qc_mode": "clip"`)
}

func TestSummarizePairedNone(t *testing.T) {
	dir := t.TempDir()
	addFastq(t, dir, "s_R1", "s_R1", 40)
	addFastq(t, dir, "s_R2", "s_R2", 41)

	doc, err := Summarize(Options{RunName: "run", QCMode: ModeNone, SampleA: "s_R1", SampleB: "s_R2", RunDir: dir})
	require.NoError(t, err)
	assert.Equal(t, "paired", doc.Search("stats", "lib_type").Data())
	assert.Equal(t, 40, doc.Search("stats", "fastq_raw_1", "mean_gc").Data())
	assert.Equal(t, 41, doc.Search("stats", "fastq_raw_2", "mean_gc").Data())
	assert.False(t, doc.Exists("files", "fastq_proc_1"))
}

func TestSummarizeErrors(t *testing.T) {
	dir := t.TempDir()
	_, err := Summarize(Options{QCMode: "bogus", RunDir: dir})
	assert.ErrorContains(t, err, "unknown QC mode")

	addFastq(t, dir, "r1", "r1", 45)
	_, err = Summarize(Options{QCMode: ModeTrim, SampleA: "r1", RunDir: dir})
	assert.ErrorContains(t, err, "expected 2 FastQC")
}

func TestCutadaptWithoutLog(t *testing.T) {
	dir := t.TempDir()
	write(t, filepath.Join(dir, "r1.contams.txt"), "adapter1\tACGT\n")
	stats, err := Options{RunDir: dir}.cutadaptStats("r1")
	require.NoError(t, err)
	assert.Equal(t, 0, stats["num_reads_discarded"])
	assert.Equal(t, map[string]any{"adapter1": []any{"ACGT", nil}}, stats["adapters"])
}

func TestTrimStats(t *testing.T) {
	dir := t.TempDir()
	write(t, filepath.Join(dir, "run.clip.sync.trim.stats"),
		"FastQ paired records kept: 180 (90 pairs)\n"+
			"FastQ single records kept: 6 (from PE1: 4, from PE2: 2)\n"+
			"FastQ paired records discarded: 10 (5 pairs)\n"+
			"FastQ single records discarded: 6 (from PE1: 2, from PE2: 4)\n")
	stats, err := Options{RunName: "run", QCMode: ModeClipTrim, SampleA: "a", SampleB: "b", RunDir: dir}.trimStats()
	require.NoError(t, err)
	assert.Equal(t, map[string]any{
		"num_reads_kept":            int64(90),
		"num_reads_discarded_1":     int64(2),
		"num_reads_discarded_2":     int64(4),
		"num_reads_discarded_both":  int64(5),
		"num_reads_discarded_total": int64(11),
	}, stats)

	write(t, filepath.Join(dir, "run.trim.stats"), "SE input file: x\n\nFastQ records kept: 95\nFastQ records discarded: 5\n")
	stats, err = Options{RunName: "run", QCMode: ModeTrim, SampleA: "a", RunDir: dir}.trimStats()
	require.NoError(t, err)
	assert.Equal(t, map[string]any{"num_reads_kept": int64(95), "num_reads_discarded_total": int64(5)}, stats)
}
