package coverage

import (
	"fmt"
	"math"
	"os"
	"strings"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/components"
	"github.com/go-echarts/go-echarts/v2/opts"
	"github.com/go-echarts/go-echarts/v2/types"
	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"

	"github.com/gmaffy/biopet-utils/utils"
)

const (
	Blue = "#2166AC"

	// box plots are drawn from at most this many evenly spaced ranks
	maxBoxValues = 1000000
)

type PlotOptions struct {
	MinCovOk       int
	PercentileShow float64
	Title          []string
}

func DefaultPlotOptions() PlotOptions {
	return PlotOptions{MinCovOk: 6, PercentileShow: 98, Title: []string{"Coverage Plot"}}
}

// xRange returns the depths shown on the bar chart: from the lowest observed
// depth up to the requested percentile.
func (c *Coverage) xRange(o PlotOptions) (int, int) {
	upper := int(math.Ceil(c.Percentile(o.PercentileShow)))
	return c.Min(), upper
}

func (c *Coverage) boxValues() plotter.Values {
	n := c.width
	step := int64(1)
	if n > maxBoxValues {
		step = n / maxBoxValues
	}
	vals := make(plotter.Values, 0, n/step+1)
	for k := int64(0); k < n; k += step {
		vals = append(vals, float64(c.Rank(k)))
	}
	return vals
}

// PlotPNG draws the depth bar chart with a box plot underneath. Depths below
// MinCovOk are shaded, and the x axis stops at the PercentileShow percentile.
func (c *Coverage) PlotPNG(path string, o PlotOptions) error {
	if c.width == 0 {
		return fmt.Errorf("nothing to plot")
	}
	lo, hi := c.xRange(o)

	shaded := make(plotter.Values, 0)
	solid := make(plotter.Values, 0)
	for d := lo; d <= hi; d++ {
		if d < o.MinCovOk {
			shaded = append(shaded, float64(c.counts[d]))
		} else {
			solid = append(solid, float64(c.counts[d]))
		}
	}

	bars := plot.New()
	title := append([]string{}, o.Title...)
	title = append(title, fmt.Sprintf("Mean: %.2fx   Median: %.2fx   Horizontal: %.2f%%",
		c.Mean(), c.Percentile(50), 100*c.Horizontal()))
	bars.Title.Text = strings.Join(title, "\n")
	bars.Y.Label.Text = "Counts"
	bars.Y.Tick.Marker = utils.GroupedTicks
	bars.Add(plotter.NewGrid())

	barWidth := vg.Length(460.0 / float64(hi-lo+1))
	if barWidth < 0.5 {
		barWidth = 0.5
	}
	blue := utils.HexColor(Blue)
	if len(shaded) > 0 {
		b, err := plotter.NewBarChart(shaded, barWidth)
		if err != nil {
			return err
		}
		b.XMin = float64(lo)
		b.Color = utils.WithAlpha(blue, 0.3)
		b.LineStyle.Width = 0
		bars.Add(b)
	}
	if len(solid) > 0 {
		b, err := plotter.NewBarChart(solid, barWidth)
		if err != nil {
			return err
		}
		b.XMin = float64(max(lo, o.MinCovOk))
		b.Color = blue
		b.LineStyle.Width = 0
		bars.Add(b)
	}

	box := plot.New()
	bp, err := plotter.NewBoxPlot(vg.Points(20), 0, c.boxValues())
	if err != nil {
		return err
	}
	bp.Horizontal = true
	bp.BoxStyle.Color = blue
	bp.MedianStyle.Color = blue
	bp.WhiskerStyle.Color = blue
	box.Add(bp)
	box.HideY()
	box.X.Label.Text = "Coverage"

	xmin, xmax := float64(lo)-0.5, float64(hi)+0.5
	if hi == c.Max() {
		space := float64(hi-lo) / 40
		xmax += space
	}
	bars.X.Min, bars.X.Max = xmin, xmax
	box.X.Min, box.X.Max = xmin, xmax

	return utils.SaveStackedPNG(path, 8*vg.Inch, 8*vg.Inch, []*plot.Plot{bars, box}, []float64{5, 1})
}

// PlotHTML renders an interactive bar chart of the same data.
func (c *Coverage) PlotHTML(path string, o PlotOptions) error {
	lo, hi := c.xRange(o)

	var xs []int
	var ys []opts.BarData
	for d := lo; d <= hi; d++ {
		xs = append(xs, d)
		bd := opts.BarData{Value: c.counts[d]}
		if d < o.MinCovOk {
			bd.ItemStyle = &opts.ItemStyle{Color: Blue, Opacity: opts.Float(0.3)}
		}
		ys = append(ys, bd)
	}

	subtitle := ""
	if len(o.Title) > 1 {
		subtitle = strings.Join(o.Title[1:], " ")
	}
	title := "Coverage Plot"
	if len(o.Title) > 0 {
		title = o.Title[0]
	}

	bar := charts.NewBar()
	bar.SetGlobalOptions(
		charts.WithInitializationOpts(opts.Initialization{Theme: types.ThemeWesteros}),
		charts.WithTitleOpts(opts.Title{Title: title, Subtitle: subtitle}),
		charts.WithYAxisOpts(opts.YAxis{Name: "Counts"}),
		charts.WithXAxisOpts(opts.XAxis{Name: "Coverage"}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true)}),
	)
	bar.SetXAxis(xs).AddSeries("positions", ys,
		charts.WithItemStyleOpts(opts.ItemStyle{Color: Blue}))

	page := components.NewPage()
	page.AddCharts(bar)

	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()
	return page.Render(f)
}
