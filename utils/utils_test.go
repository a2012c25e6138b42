package utils

import (
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/klauspost/compress/gzip"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReadConfigLayers(t *testing.T) {
	t.Setenv("BIOPET_SAMTOOLS", "/opt/samtools/bin/samtools")
	t.Setenv("BIOPET_THREADS", "4")

	cfg, err := ReadConfig("")
	require.NoError(t, err)
	assert.Equal(t, "/opt/samtools/bin/samtools", cfg.Samtools)
	assert.Equal(t, "java", cfg.Java)
	assert.Equal(t, 4, cfg.Threads)

	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("java: /usr/lib/jvm/bin/java\npicard_jar: /opt/picard.jar\npicard_rna_options:\n  MINIMUM_LENGTH: \"500\"\n"), 0644))

	cfg, err = ReadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, "/opt/samtools/bin/samtools", cfg.Samtools)
	assert.Equal(t, "/usr/lib/jvm/bin/java", cfg.Java)
	assert.Equal(t, "/opt/picard.jar", cfg.PicardJar)
	assert.Equal(t, map[string]string{"MINIMUM_LENGTH": "500"}, cfg.PicardRnaOptions)
	assert.Equal(t, 4, cfg.Threads)
}

func TestReadConfigMissingFile(t *testing.T) {
	_, err := ReadConfig(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}

func TestParseLog(t *testing.T) {
	logContent := `{"time":"2025-06-18T21:11:02.572267197+02:00","level":"INFO","msg":"RNA METRICS","PROGRAM":"INITIALISE","SAMPLE":"ALL","CHROMOSOME":"ALL","STATUS":"STARTED","CMD":"ALL"}
{"time":"2025-06-18T21:11:03.397122518+02:00","level":"INFO","msg":"RNA METRICS","PROGRAM":"CollectRnaSeqMetrics","SAMPLE":"sample.fwd.bam","CHROMOSOME":"chr1","STATUS":"STARTED"}
{"time":"2025-06-18T21:11:04.124962114+02:00","level":"INFO","msg":"RNA METRICS","PROGRAM":"CollectRnaSeqMetrics","SAMPLE":"sample.fwd.bam","CHROMOSOME":"chr2","STATUS":"STARTED"}
time=2025-06-18T21:11:04 level=INFO msg="not json"
{"time":"2025-06-18T21:20:17.308876904+02:00","level":"INFO","msg":"RNA METRICS","PROGRAM":"CollectRnaSeqMetrics","SAMPLE":"sample.fwd.bam","CHROMOSOME":"chr2","STATUS":"COMPLETED"}
{"time":"2025-06-18T21:23:58.952009702+02:00","level":"INFO","msg":"RNA METRICS","PROGRAM":"CollectRnaSeqMetrics","SAMPLE":"sample.fwd.bam","CHROMOSOME":"chr1","STATUS":"FAILED"}`

	logFilePath := filepath.Join(t.TempDir(), "test.log")
	require.NoError(t, os.WriteFile(logFilePath, []byte(logContent), 0644))

	entries, err := ParseLogFile(logFilePath)
	require.NoError(t, err)
	require.Len(t, entries, 5)
	assert.Equal(t, "RNA METRICS", entries[0].Tool)
	assert.Equal(t, "ALL", entries[0].Cmd)
	assert.Equal(t, "chr1", entries[1].Chromosome)

	assert.True(t, StageHasCompleted(entries, "CollectRnaSeqMetrics", "sample.fwd.bam", "chr2"))
	assert.False(t, StageHasCompleted(entries, "CollectRnaSeqMetrics", "sample.fwd.bam", "chr1"))
	assert.False(t, StageHasCompleted(entries, "CollectRnaSeqMetrics", "sample.rev.bam", "chr2"))
}

func TestParseLogMissing(t *testing.T) {
	entries, err := ParseLogFile(filepath.Join(t.TempDir(), "absent.log"))
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestOpenInputDetectsGzip(t *testing.T) {
	dir := t.TempDir()
	plain := filepath.Join(dir, "plain.txt")
	packed := filepath.Join(dir, "packed.dat")
	require.NoError(t, os.WriteFile(plain, []byte("chr1\t10\n"), 0644))

	f, err := os.Create(packed)
	require.NoError(t, err)
	gz := gzip.NewWriter(f)
	_, err = gz.Write([]byte("chr1\t10\n"))
	require.NoError(t, err)
	require.NoError(t, gz.Close())
	require.NoError(t, f.Close())

	for _, path := range []string{plain, packed} {
		r, err := OpenInput(path)
		require.NoError(t, err)
		data, err := io.ReadAll(r)
		require.NoError(t, err)
		require.NoError(t, r.Close())
		assert.Equal(t, "chr1\t10\n", string(data), path)
	}
}

func TestCreateOutputRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out.txt.gz")
	w, err := CreateOutput(path)
	require.NoError(t, err)
	_, err = io.WriteString(w, "hello\n")
	require.NoError(t, err)
	require.NoError(t, w.Close())

	r, err := OpenInput(path)
	require.NoError(t, err)
	defer r.Close()
	data, err := io.ReadAll(r)
	require.NoError(t, err)
	assert.Equal(t, "hello\n", string(data))
}

func TestNiceNumbers(t *testing.T) {
	assert.Equal(t, "1,234,567", NiceInt(1234567))
	assert.Equal(t, "12", NiceInt(uint64(12)))
	assert.Equal(t, "1,234.57", NiceFloat(1234.567))
}

func TestNaturalSort(t *testing.T) {
	got := NaturalSort([]string{"chr10", "chr2", "Chr1", "chrX", "chr1_random"})
	assert.Equal(t, []string{"Chr1", "chr1_random", "chr2", "chr10", "chrX"}, got)
}

func TestSortedKeys(t *testing.T) {
	assert.Equal(t, []string{"a", "b", "c"}, SortedKeys(map[string]int{"c": 1, "a": 2, "b": 3}))
}
