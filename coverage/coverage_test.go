package coverage

import (
	"bytes"
	"context"
	"math"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const bedtoolsOut = `# bedtools coverage -d
chr1	0	4	feat	1	0
chr1	0	4	feat	2	5
chr1	0	4	feat	3	10
chr1	0	4	feat	4	10

chr2	0	2	feat	1	20
chr2	0	2	feat	2	30
`

func TestCollect(t *testing.T) {
	covs, err := Collect(strings.NewReader(bedtoolsOut))
	require.NoError(t, err)
	require.Len(t, covs, 3)

	all := covs[AllChroms]
	assert.EqualValues(t, 6, all.Width())
	assert.EqualValues(t, 5, all.NonZero())
	assert.EqualValues(t, 75, all.Total())
	assert.EqualValues(t, 2, all.Count(10))
	assert.Equal(t, []int{0, 5, 10, 20, 30}, all.Depths())
	assert.Equal(t, 0, all.Min())
	assert.Equal(t, 30, all.Max())

	assert.EqualValues(t, 4, covs["chr1"].Width())
	assert.EqualValues(t, 2, covs["chr2"].Width())
}

func TestCollectErrors(t *testing.T) {
	_, err := Collect(strings.NewReader("# only a comment\n"))
	assert.EqualError(t, err, "no coverage records found")

	_, err = Collect(strings.NewReader("chr1\t0\t4\tfeat\t1\t0\nchr1\t0\t4\tfeat\t2\tx\n"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "line 2")
}

func TestPercentile(t *testing.T) {
	covs, err := Collect(strings.NewReader(bedtoolsOut))
	require.NoError(t, err)

	all := covs[AllChroms]
	assert.InDelta(t, 10, all.Percentile(50), 1e-9)
	assert.InDelta(t, 25, all.Percentile(90), 1e-9)
	assert.InDelta(t, 0, all.Percentile(0), 1e-9)
	assert.InDelta(t, 30, all.Percentile(100), 1e-9)

	assert.InDelta(t, 7.5, covs["chr1"].Percentile(50), 1e-9)
	assert.True(t, math.IsNaN(NewCoverage().Percentile(50)))
}

func TestQuickStats(t *testing.T) {
	covs, err := Collect(strings.NewReader(bedtoolsOut))
	require.NoError(t, err)

	stats, err := QuickStatsAll(context.Background(), covs)
	require.NoError(t, err)
	require.Len(t, stats, 3)

	all := stats[AllChroms]
	assert.InDelta(t, 12.5, all.Mean, 1e-9)
	assert.InDelta(t, 10, all.Median, 1e-9)
	assert.InDelta(t, 5.0/6, all.Horizontal, 1e-9)
	assert.InDelta(t, 4.0/6, all.FracMin10x, 1e-9)
	assert.InDelta(t, 2.0/6, all.FracMin20x, 1e-9)
	assert.InDelta(t, 1.0/6, all.FracMin30x, 1e-9)
	assert.Zero(t, all.FracMin40x)
	assert.Zero(t, all.FracMin50x)
	assert.Equal(t, 30, all.Max)
	assert.EqualValues(t, 75, all.Total)
	assert.EqualValues(t, 6, all.Width)
	assert.EqualValues(t, 5, all.WidthNonzero)

	chr1 := stats["chr1"]
	assert.InDelta(t, 6.25, chr1.Mean, 1e-9)
	assert.InDelta(t, 7.5, chr1.Median, 1e-9)
	assert.Equal(t, 10, chr1.Max)
}

func TestRankAfterAdd(t *testing.T) {
	c := NewCoverage()
	c.AddN(3, 2)
	assert.Equal(t, 3, c.Rank(1))
	c.Add(1)
	assert.Equal(t, 1, c.Rank(0))
	assert.Equal(t, 3, c.Max())
}

func TestPlots(t *testing.T) {
	covs, err := Collect(strings.NewReader(bedtoolsOut))
	require.NoError(t, err)

	dir := t.TempDir()
	o := DefaultPlotOptions()
	o.Title = append(o.Title, "'test.cov'")

	png := filepath.Join(dir, "cov.png")
	require.NoError(t, covs[AllChroms].PlotPNG(png, o))
	info, err := os.Stat(png)
	require.NoError(t, err)
	assert.Positive(t, info.Size())

	html := filepath.Join(dir, "cov.html")
	require.NoError(t, covs[AllChroms].PlotHTML(html, o))
	data, err := os.ReadFile(html)
	require.NoError(t, err)
	assert.Contains(t, string(data), "echarts")

	assert.Error(t, NewCoverage().PlotPNG(filepath.Join(dir, "empty.png"), o))
}

func TestHist2Count(t *testing.T) {
	in := `chr1	0	10	geneA	0	4	10	0.4
chr1	0	10	geneA	2	6	10	0.6
chr1	20	40	geneB	1	20	20	1.0
all	0	4	100	0.5
chr2	5	10	geneC	3	5	5	1.0
`
	var out bytes.Buffer
	require.NoError(t, Hist2Count(strings.NewReader(in), &out, []int{3}))
	assert.Equal(t, "chr1\t0\t10\t12\t1.200000\tgeneA\n"+
		"chr1\t20\t40\t20\t1.000000\tgeneB\n"+
		"chr2\t5\t10\t15\t3.000000\tgeneC\n", out.String())

	out.Reset()
	require.NoError(t, Hist2Count(strings.NewReader(""), &out, nil))
	assert.Empty(t, out.String())

	err := Hist2Count(strings.NewReader(in), &out, []int{12})
	assert.ErrorContains(t, err, "no column 12")
}

func TestQuickStatsAllCancelled(t *testing.T) {
	covs, err := Collect(strings.NewReader(bedtoolsOut))
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	stats, err := QuickStatsAll(ctx, covs)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Nil(t, stats)
}
