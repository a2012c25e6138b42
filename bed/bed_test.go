package bed

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/biogo/biogo/io/featio/bed"
	"github.com/biogo/biogo/seq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const overlapping = `track name=test
chr1	0	100	A	0	+
chr1	10	20	E	0	-
chr1	50	150	B	0	+
chr1	200	300	C	0	+
chr1	220	250	D	0	+
chr2	5	10	F	0	+
`

type span struct {
	name       string
	start, end int
	strand     seq.Strand
}

func spans(rows []*bed.Bed6) []span {
	var out []span
	for _, r := range rows {
		out = append(out, span{r.FeatName, r.ChromStart, r.ChromEnd, r.FeatStrand})
	}
	return out
}

func TestSquishChrom(t *testing.T) {
	order, byChrom, err := ReadBed6(strings.NewReader(overlapping))
	require.NoError(t, err)
	assert.Equal(t, []string{"chr1", "chr2"}, order)

	rows, err := SquishChrom("chr1", byChrom["chr1"])
	require.NoError(t, err)
	assert.Equal(t, []span{
		{"E", 10, 20, seq.Minus},
		{"A", 0, 50, seq.Plus},
		{"B", 100, 150, seq.Plus},
		{"C", 200, 220, seq.Plus},
		{"C", 250, 300, seq.Plus},
	}, spans(rows))
}

func TestSquishIdenticalFeatures(t *testing.T) {
	_, byChrom, err := ReadBed6(strings.NewReader("chr1\t10\t20\tA\t0\t+\nchr1\t10\t20\tB\t0\t+\n"))
	require.NoError(t, err)
	rows, err := SquishChrom("chr1", byChrom["chr1"])
	require.NoError(t, err)
	assert.Empty(t, rows)
}

func TestSquishWrites(t *testing.T) {
	var out bytes.Buffer
	require.NoError(t, Squish(strings.NewReader(overlapping), &out))
	lines := strings.Split(strings.TrimSpace(out.String()), "\n")
	require.Len(t, lines, 6)
	assert.True(t, strings.HasPrefix(lines[0], "chr1\t10\t20\tE"))
	assert.True(t, strings.HasPrefix(lines[5], "chr2\t5\t10\tF"))
}

func TestReadBed6Inverted(t *testing.T) {
	_, _, err := ReadBed6(strings.NewReader("chr1\t20\t10\tA\t0\t+\n"))
	assert.Error(t, err)
}

func TestThreshold(t *testing.T) {
	in := "chr1\t0\t10\t6.5\nchr1\t10\t20\t-5\nchr1\t20\t30\t4.9\nchr1\t30\t40\tNA\n\n"
	var out bytes.Buffer
	require.NoError(t, Threshold(strings.NewReader(in), &out, 5))
	assert.Equal(t, "chr1\t0\t10\t6.5\nchr1\t10\t20\t-5\n", out.String())
}

func TestFindAllCommon(t *testing.T) {
	dir := t.TempDir()
	db1 := filepath.Join(dir, "db1.bed")
	db2 := filepath.Join(dir, "db2.bed")
	require.NoError(t, os.WriteFile(db1, []byte("chr1\t0\t10\tx\nchr1\t10\t20\ty\nchr2\t0\t5\n"), 0644))
	require.NoError(t, os.WriteFile(db2, []byte("chr1\t10\t20\tz\nchr2\t0\t5\tw\n"), 0644))

	in := "chr1\t0\t10\t7\nchr1\t10\t20\t8\nchr2\t0\t5\t9\n"
	var out bytes.Buffer
	require.NoError(t, FindAllCommon(strings.NewReader(in), &out, []string{db1, db2}))
	assert.Equal(t, "chr1\t10\t20\t8\nchr2\t0\t5\t9\n", out.String())

	out.Reset()
	require.NoError(t, FindAllCommon(strings.NewReader(in), &out, nil))
	assert.Equal(t, in, out.String())
}

func TestSelectSample(t *testing.T) {
	matrix := "Matrix\tchr1:100-200\tchr1:300-400\tchr2:5-50\n" +
		"sampleA\t1.5\t-2.25\t0.0\n" +
		"sampleB\t-7.1\t3.3\t8.0\n"

	var out bytes.Buffer
	require.NoError(t, SelectSample(strings.NewReader(matrix), &out, "sampleB"))
	assert.Equal(t, "chr1\t100\t200\t-7.1\nchr1\t300\t400\t3.3\nchr2\t5\t50\t8.0\n", out.String())

	err := SelectSample(strings.NewReader(matrix), &out, "sampleC")
	assert.ErrorContains(t, err, "sample sampleC does not exist")
}

func TestXhmmRegionToBed(t *testing.T) {
	c, s, e, err := XhmmRegionToBed("chrX:1-99")
	require.NoError(t, err)
	assert.Equal(t, []string{"chrX", "1", "99"}, []string{c, s, e})

	_, _, _, err = XhmmRegionToBed("chrX")
	assert.Error(t, err)
}
