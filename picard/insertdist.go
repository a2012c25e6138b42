package picard

import (
	"bufio"
	"bytes"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/components"
	"github.com/go-echarts/go-echarts/v2/opts"
	"github.com/go-echarts/go-echarts/v2/types"
	"github.com/go-gota/gota/dataframe"
	"github.com/go-gota/gota/series"
	"github.com/samber/lo"
	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"

	"github.com/gmaffy/biopet-utils/utils"
)

// Orientation describes one pair orientation column of the histogram.
type Orientation struct {
	Column string
	Label  string
	Color  string
}

var orientations = map[string]Orientation{
	"fr_count":     {Column: "fr_count", Label: "inward", Color: "#009933"},
	"rf_count":     {Column: "rf_count", Label: "outward", Color: "#FF8000"},
	"tandem_count": {Column: "tandem_count", Label: "same directions", Color: "#E62E00"},
}

var inputArg = regexp.MustCompile(`INPUT=(\S*)`)

// InsertHistogram is the insert size histogram of one BAM. Counts[o][i] is
// the count of orientation o at insert size i+1.
type InsertHistogram struct {
	Sample       string
	Orientations []Orientation
	Counts       [][]float64
}

// MaxSize is the largest insert size in the histogram.
func (h *InsertHistogram) MaxSize() int {
	if len(h.Counts) == 0 {
		return 0
	}
	return len(h.Counts[0])
}

type OrientationSummary struct {
	Max   int64 `json:"max"`
	MaxAt []int `json:"maxAt"`
}

// Summary gives the highest count of each orientation and the insert sizes
// where it occurs, keyed by orientation label.
func (h *InsertHistogram) Summary() map[string]OrientationSummary {
	out := make(map[string]OrientationSummary, len(h.Orientations))
	for i, o := range h.Orientations {
		best := lo.Max(h.Counts[i])
		var at []int
		for j, c := range h.Counts[i] {
			if c == best {
				at = append(at, j+1)
			}
		}
		out[o.Label] = OrientationSummary{Max: int64(best), MaxAt: at}
	}
	return out
}

// ParseInsertSizes reads the histogram of a CollectInsertSizeMetrics file.
// Missing insert sizes are filled with zero counts. name is used as sample
// when the header does not carry an INPUT argument.
func ParseInsertSizes(r io.Reader, name string) (*InsertHistogram, error) {
	h := &InsertHistogram{Sample: filepath.Base(name)}
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)

	found := false
	for scanner.Scan() {
		line := scanner.Text()
		if strings.HasPrefix(line, "#") && strings.Contains(line, "CollectInsertSizeMetrics") {
			if m := inputArg.FindStringSubmatch(line); m != nil {
				h.Sample = filepath.Base(m[1])
			}
		}
		if strings.HasPrefix(line, "## HISTOGRAM") {
			found = true
			break
		}
	}
	if !found {
		if err := scanner.Err(); err != nil {
			return nil, err
		}
		return nil, fmt.Errorf("%s: unexpected end of file before histogram", name)
	}

	var table bytes.Buffer
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			break
		}
		table.WriteString(line)
		table.WriteByte('\n')
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}

	df := dataframe.ReadCSV(&table,
		dataframe.WithDelimiter('\t'),
		dataframe.HasHeader(true),
		dataframe.DefaultType(series.Int),
	)
	if df.Err != nil {
		return nil, fmt.Errorf("%s: reading histogram: %w", name, df.Err)
	}
	names := df.Names()
	if len(names) < 2 {
		return nil, fmt.Errorf("%s: histogram has no count columns", name)
	}
	sizes, err := df.Col(names[0]).Int()
	if err != nil {
		return nil, fmt.Errorf("%s: insert sizes: %w", name, err)
	}

	maxSize := 0
	for i, s := range sizes {
		if s < 1 || s <= maxSize {
			return nil, fmt.Errorf("%s: insert size %d on histogram row %d is out of order", name, s, i+1)
		}
		maxSize = s
	}

	for _, col := range names[1:] {
		parts := strings.Split(col, ".")
		o, ok := orientations[parts[len(parts)-1]]
		if !ok {
			return nil, fmt.Errorf("%s: unexpected column name %q", name, col)
		}
		counts := make([]float64, maxSize)
		for i, c := range df.Col(col).Float() {
			counts[sizes[i]-1] = c
		}
		h.Orientations = append(h.Orientations, o)
		h.Counts = append(h.Counts, counts)
	}
	return h, nil
}

func ParseInsertSizesFile(path string) (*InsertHistogram, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return ParseInsertSizes(f, path)
}

// PlotPNG draws one bar series per orientation and labels the highest bar of
// each. The x axis stops at maxX when it is positive.
func (h *InsertHistogram) PlotPNG(path string, maxX int) error {
	if h.MaxSize() == 0 {
		return fmt.Errorf("%s: empty histogram", h.Sample)
	}
	if maxX <= 0 {
		maxX = h.MaxSize()
	}

	p := plot.New()
	p.Title.Text = "Insert Sizes Distribution\n" + strconv.Quote(h.Sample)
	p.X.Label.Text = "Insert Size"
	p.Y.Label.Text = "Alignment Count"
	p.Y.Tick.Marker = utils.GroupedTicks
	p.Add(plotter.NewGrid())
	p.Legend.Top = true

	yMax := 0.0
	for i, o := range h.Orientations {
		bins := make([]plotter.HistogramBin, len(h.Counts[i]))
		for j, c := range h.Counts[i] {
			size := float64(j + 1)
			bins[j] = plotter.HistogramBin{Min: size - 0.5, Max: size + 0.5, Weight: c}
		}
		hist := &plotter.Histogram{
			Bins:      bins,
			Width:     1,
			FillColor: utils.WithAlpha(utils.HexColor(o.Color), 0.6),
		}
		hist.LineStyle.Width = 0
		p.Add(hist)
		p.Legend.Add(o.Label, hist)

		s := h.Summary()[o.Label]
		yMax = max(yMax, float64(s.Max))
		at := lo.Map(s.MaxAt, func(x int, _ int) string { return strconv.Itoa(x) })
		labels, err := plotter.NewLabels(plotter.XYLabels{
			XYs:    plotter.XYs{{X: float64(s.MaxAt[0]), Y: float64(s.Max)}},
			Labels: []string{fmt.Sprintf("max count: %s\nsize: %s bp", utils.NiceInt(s.Max), strings.Join(at, ", "))},
		})
		if err != nil {
			return err
		}
		labels.Offset = vg.Point{X: vg.Points(6), Y: vg.Points(4)}
		p.Add(labels)
	}

	p.X.Min, p.X.Max = 0, float64(maxX)+0.5
	p.Y.Min, p.Y.Max = 0, yMax*1.08
	return p.Save(8*vg.Inch, 6*vg.Inch, path)
}

func (h *InsertHistogram) barChart(maxX int) *charts.Bar {
	if maxX <= 0 || maxX > h.MaxSize() {
		maxX = h.MaxSize()
	}
	bar := charts.NewBar()
	bar.SetGlobalOptions(
		charts.WithInitializationOpts(opts.Initialization{Theme: types.ThemeWesteros}),
		charts.WithTitleOpts(opts.Title{Title: "Insert Sizes Distribution", Subtitle: h.Sample}),
		charts.WithXAxisOpts(opts.XAxis{Name: "Insert Size"}),
		charts.WithYAxisOpts(opts.YAxis{Name: "Alignment Count"}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true), Trigger: "axis"}),
		charts.WithLegendOpts(opts.Legend{Show: opts.Bool(true)}),
		charts.WithDataZoomOpts(opts.DataZoom{Type: "slider", Start: 0, End: 100}),
	)

	xs := make([]int, maxX)
	for i := range xs {
		xs[i] = i + 1
	}
	bar.SetXAxis(xs)
	for i, o := range h.Orientations {
		data := lo.Map(h.Counts[i][:maxX], func(c float64, _ int) opts.BarData {
			return opts.BarData{Value: int64(c)}
		})
		bar.AddSeries(o.Label, data,
			charts.WithItemStyleOpts(opts.ItemStyle{Color: o.Color, Opacity: opts.Float(0.6)}),
			charts.WithBarChartOpts(opts.BarChart{BarGap: "-100%", BarCategoryGap: "0%"}),
			charts.WithMarkPointNameTypeItemOpts(opts.MarkPointNameTypeItem{Name: "max count", Type: "max"}),
		)
	}
	return bar
}

// WriteInsertHTML renders one interactive bar chart per histogram on a single
// page.
func WriteInsertHTML(w io.Writer, hists []*InsertHistogram, maxX int) error {
	page := components.NewPage()
	page.SetPageTitle("Insert Sizes Distribution")
	for _, h := range hists {
		page.AddCharts(h.barChart(maxX))
	}
	return page.Render(w)
}

// InsertSummaries keys the summary of every histogram by sample.
func InsertSummaries(hists []*InsertHistogram) map[string]map[string]OrientationSummary {
	out := make(map[string]map[string]OrientationSummary, len(hists))
	for _, h := range hists {
		out[h.Sample] = h.Summary()
	}
	return out
}
