package fastq

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/klauspost/compress/gzip"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gmaffy/biopet-utils/utils"
)

const reads = `@r1
ACGTN
+
IIIII
@r2
GGCC
+
!!!!
@r3
acgt
+
5555
`

func TestGatherStats(t *testing.T) {
	st, err := GatherStats(strings.NewReader(reads), "sanger")
	require.NoError(t, err)

	b := st.Stats.Bases
	assert.EqualValues(t, 13, b.NumTotal)
	assert.EqualValues(t, 1, b.NumN)
	assert.Equal(t, map[string]int64{"1": 9, "10": 9, "20": 9, "30": 5, "40": 5, "50": 0, "60": 0}, b.NumQualGte)

	r := st.Stats.Reads
	assert.EqualValues(t, 3, r.NumTotal)
	assert.EqualValues(t, 1, r.NumWithN)
	assert.Equal(t, 5, r.LenMax)
	require.NotNil(t, r.LenMin)
	assert.Equal(t, 4, *r.LenMin)
	assert.Equal(t, map[string]int64{"1": 2, "10": 2, "20": 2, "30": 1, "40": 1, "50": 0, "60": 0}, r.NumMeanQualGte)
}

func TestGatherStatsEmpty(t *testing.T) {
	st, err := GatherStats(strings.NewReader(""), "sanger")
	require.NoError(t, err)
	assert.Nil(t, st.Stats.Reads.LenMin)

	var buf bytes.Buffer
	require.NoError(t, utils.WriteJSON(&buf, st))
	var doc map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &doc))
	stats := doc["stats"].(map[string]any)
	assert.Nil(t, stats["reads"].(map[string]any)["len_min"])
	assert.Equal(t, "sanger", stats["qual_encoding"])
}

func TestUnknownEncoding(t *testing.T) {
	_, err := GatherStats(strings.NewReader(reads), "phred64")
	assert.ErrorContains(t, err, "unknown quality encoding")
}

func TestSeqStatFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "reads.fq")
	require.NoError(t, os.WriteFile(path, []byte(reads), 0644))

	st, err := SeqStatFile(path, "sanger", true)
	require.NoError(t, err)
	assert.True(t, filepath.IsAbs(st.Files.Fastq.Path))
	require.NotNil(t, st.Files.Fastq.ChecksumSHA1)
	assert.Len(t, *st.Files.Fastq.ChecksumSHA1, 40)

	st, err = SeqStatFile(path, "sanger", false)
	require.NoError(t, err)
	assert.Nil(t, st.Files.Fastq.ChecksumSHA1)
}

func TestPrefixReads(t *testing.T) {
	var out bytes.Buffer
	n, err := PrefixReads(strings.NewReader(reads), &out, DefaultPrefix)
	require.NoError(t, err)
	assert.Equal(t, 3, n)
	assert.Contains(t, out.String(), "CATGACGTN\n+\nIIIIIIIII\n")
	assert.Contains(t, out.String(), "CATGGGCC\n+\nIIII!!!!\n")

	_, err = PrefixReads(strings.NewReader(reads), &out, "CAXG")
	assert.ErrorContains(t, err, "non-nucleotide")
}

func TestPrefixReadsGzipInput(t *testing.T) {
	path := filepath.Join(t.TempDir(), "reads.fq")
	f, err := os.Create(path)
	require.NoError(t, err)
	zw := gzip.NewWriter(f)
	_, err = zw.Write([]byte(reads))
	require.NoError(t, err)
	require.NoError(t, zw.Close())
	require.NoError(t, f.Close())

	in, err := utils.OpenInput(path)
	require.NoError(t, err)
	defer in.Close()
	var out bytes.Buffer
	n, err := PrefixReads(in, &out, DefaultPrefix)
	require.NoError(t, err)
	assert.Equal(t, 3, n)
	assert.Contains(t, out.String(), "CATGACGTN\n")
}

func TestGatherGC(t *testing.T) {
	d, err := GatherGC(strings.NewReader(reads))
	require.NoError(t, err)
	assert.Equal(t, 3, d.Count)
	assert.InDelta(t, 63.3333, d.Mean, 1e-3)
	assert.InDelta(t, 26.2467, d.Stdev, 1e-3)
	assert.InDelta(t, 50, d.Median, 1e-9)
	assert.Equal(t, map[string][2]float64{"20": {49, 51}}, d.Spans)

	png := filepath.Join(t.TempDir(), "gc.png")
	require.NoError(t, d.PlotPNG(png, "reads.fq"))
	info, err := os.Stat(png)
	require.NoError(t, err)
	assert.Positive(t, info.Size())

	_, err = GatherGC(strings.NewReader(""))
	assert.Error(t, err)
}
