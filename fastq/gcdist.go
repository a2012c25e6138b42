package fastq

import (
	"fmt"
	"io"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/biogo/biogo/alphabet"
	"github.com/biogo/biogo/seq/linear"
	"gonum.org/v1/gonum/stat"
	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"

	"github.com/gmaffy/biopet-utils/utils"
)

// SpanLevels are the read fractions (in percent) for which centred GC spans
// are reported.
var SpanLevels = []int{20, 40, 60, 80, 99}

type GCDist struct {
	Count  int                   `json:"count"`
	Mean   float64               `json:"mean"`
	Median float64               `json:"median"`
	Spans  map[string][2]float64 `json:"spans"`
	Stdev  float64               `json:"stdev"`

	values []float64
}

// GCPercent is the share of G, C and S letters in a read.
func GCPercent(s alphabet.QLetters) float64 {
	if len(s) == 0 {
		return 0
	}
	gc := 0
	for _, l := range s {
		switch l.L {
		case 'g', 'G', 'c', 'C', 's', 'S':
			gc++
		}
	}
	return float64(gc) * 100 / float64(len(s))
}

func GatherGC(r io.Reader) (*GCDist, error) {
	var gcs []float64
	sc := NewScanner(r, alphabet.Sanger)
	for sc.Next() {
		s := sc.Seq().(*linear.QSeq)
		if len(s.Seq) == 0 {
			return nil, fmt.Errorf("read %q has no bases", s.Name())
		}
		gcs = append(gcs, GCPercent(s.Seq))
	}
	if err := sc.Error(); err != nil {
		return nil, fmt.Errorf("reading fastq: %w", err)
	}
	if len(gcs) == 0 {
		return nil, fmt.Errorf("no reads found")
	}

	sort.Float64s(gcs)
	d := &GCDist{Count: len(gcs), values: gcs}
	d.Mean, d.Stdev = stat.PopMeanStdDev(gcs, nil)
	d.Median = median(gcs)
	d.Spans = spans(gcs, d.Median)
	return d, nil
}

func median(sorted []float64) float64 {
	n := len(sorted)
	if n%2 == 1 {
		return sorted[n/2]
	}
	return (sorted[n/2-1] + sorted[n/2]) / 2
}

// spans widens a window around the median one percent point at a time and
// records the first window that strictly contains each level's share of
// reads. Levels never reached are left out.
func spans(sorted []float64, med float64) map[string][2]float64 {
	out := make(map[string][2]float64)
	minV, maxV := sorted[0], sorted[len(sorted)-1]
	total := float64(len(sorted))
	low, high := med, med
	for low >= minV || high <= maxV {
		if high > maxV {
			high = maxV
		}
		if low < minV {
			low = minV
		}
		in := 0
		for _, v := range sorted {
			if low < v && v < high {
				in++
			}
		}
		cov := float64(in) / total
		for _, lvl := range SpanLevels {
			key := strconv.Itoa(lvl)
			if _, done := out[key]; !done && cov >= float64(lvl)/100 {
				out[key] = [2]float64{low, high}
			}
		}
		low--
		high++
	}
	return out
}

// gcBins are 0, 2.5, 7.5, ..., 97.5, 100.
func gcBins() []float64 {
	bins := []float64{0}
	for b := 2.5; b < 100; b += 5 {
		bins = append(bins, b)
	}
	return append(bins, 100)
}

// PlotPNG draws the GC histogram with the span windows shaded and a box plot
// underneath.
func (d *GCDist) PlotPNG(path, inputName string) error {
	edges := gcBins()
	bins := make([]plotter.HistogramBin, len(edges)-1)
	for i := range bins {
		bins[i] = plotter.HistogramBin{Min: edges[i], Max: edges[i+1]}
	}
	for _, v := range d.values {
		for i := range bins {
			if v < bins[i].Max || i == len(bins)-1 {
				bins[i].Weight++
				break
			}
		}
	}

	hist := plot.New()
	title := []string{"Distribution of GC Percentage", fmt.Sprintf("'%s'", filepath.Base(inputName)),
		fmt.Sprintf("Mean: %.2f   Stdev: %.2f", d.Mean, d.Stdev)}
	hist.Title.Text = strings.Join(title, "\n")
	hist.Y.Label.Text = "Read count"
	hist.Y.Tick.Marker = utils.GroupedTicks
	hist.Add(plotter.NewGrid())

	var maxW float64
	for _, b := range bins {
		maxW = max(maxW, b.Weight)
	}
	shade := utils.WithAlpha(utils.HexColor("#0099ff"), 0.2)
	for _, lvl := range SpanLevels {
		sp, ok := d.Spans[strconv.Itoa(lvl)]
		if !ok {
			continue
		}
		poly, err := plotter.NewPolygon(plotter.XYs{{X: sp[0], Y: 0}, {X: sp[1], Y: 0}, {X: sp[1], Y: maxW}, {X: sp[0], Y: maxW}})
		if err != nil {
			return err
		}
		poly.Color = shade
		poly.LineStyle.Dashes = []vg.Length{vg.Points(2), vg.Points(2)}
		hist.Add(poly)
	}

	h := &plotter.Histogram{Bins: bins, Width: 5, FillColor: utils.WithAlpha(utils.HexColor("#009933"), 0.9), LineStyle: plotter.DefaultLineStyle}
	hist.Add(h)

	box := plot.New()
	bp, err := plotter.NewBoxPlot(vg.Points(20), 0, plotter.Values(d.values))
	if err != nil {
		return err
	}
	bp.Horizontal = true
	bp.GlyphStyle.Color = utils.HexColor("#e62e00")
	box.Add(bp)
	box.HideY()
	box.X.Label.Text = "% GC"

	hist.X.Min, hist.X.Max = 0, 100
	box.X.Min, box.X.Max = 0, 100
	return utils.SaveStackedPNG(path, 8*vg.Inch, 8*vg.Inch, []*plot.Plot{hist, box}, []float64{5, 1})
}
