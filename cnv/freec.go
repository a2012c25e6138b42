// Package cnv plots copy number calls and the scores behind them.
package cnv

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/components"
	"github.com/go-echarts/go-echarts/v2/opts"
	"github.com/go-echarts/go-echarts/v2/types"
	"github.com/samber/lo"
	"golang.org/x/sync/errgroup"
	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"
	"gonum.org/v1/plot/vg/draw"

	"github.com/gmaffy/biopet-utils/utils"
)

const DefaultPloidy = 2

// Copy number classes relative to the ploidy.
const (
	Normal = "normal"
	Loss   = "loss"
	Gain   = "gain"
)

var classColors = map[string]string{
	Normal: "#008000",
	Loss:   "#0000FF",
	Gain:   "#FF0000",
}

var classOrder = []string{Normal, Loss, Gain}

// Ratio is one window of a Control-FREEC ratio file.
type Ratio struct {
	Chrom      string
	Start      int
	Ratio      float64
	CopyNumber int
}

func CopyClass(cn, ploidy int) string {
	switch {
	case cn < ploidy:
		return Loss
	case cn > ploidy:
		return Gain
	}
	return Normal
}

// Ratios holds the windows of a ratio file per chromosome.
type Ratios struct {
	Chroms  []string
	ByChrom map[string][]Ratio
}

// ReadRatios reads a Control-FREEC ratio.txt file. The copy number is the
// last column and windows without a ratio (-1) are skipped.
func ReadRatios(r io.Reader) (*Ratios, error) {
	out := &Ratios{ByChrom: make(map[string][]Ratio)}
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.Contains(line, "Chromosome") {
			continue
		}
		cols := strings.Split(line, "\t")
		if len(cols) < 4 {
			return nil, fmt.Errorf("line %d: expected at least 4 columns, got %d", lineNo, len(cols))
		}
		start, err := strconv.Atoi(cols[1])
		if err != nil {
			return nil, fmt.Errorf("line %d: start: %w", lineNo, err)
		}
		ratio, err := strconv.ParseFloat(cols[2], 64)
		if err != nil {
			return nil, fmt.Errorf("line %d: ratio: %w", lineNo, err)
		}
		cn, err := strconv.Atoi(cols[len(cols)-1])
		if err != nil {
			return nil, fmt.Errorf("line %d: copy number: %w", lineNo, err)
		}
		if ratio == -1 {
			continue
		}
		if _, ok := out.ByChrom[cols[0]]; !ok {
			out.Chroms = append(out.Chroms, cols[0])
		}
		out.ByChrom[cols[0]] = append(out.ByChrom[cols[0]], Ratio{Chrom: cols[0], Start: start, Ratio: ratio, CopyNumber: cn})
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

// classXYs splits windows by copy number class. y is ratio times ploidy.
func classXYs(rows []Ratio, ploidy int) map[string]plotter.XYs {
	out := make(map[string]plotter.XYs)
	for _, r := range rows {
		c := CopyClass(r.CopyNumber, ploidy)
		out[c] = append(out[c], plotter.XY{X: float64(r.Start), Y: r.Ratio * float64(ploidy)})
	}
	return out
}

// PlotChromPNG draws the windows of one chromosome, colored by copy number
// class.
func PlotChromPNG(path, chrom string, rows []Ratio, ploidy int) error {
	if len(rows) == 0 {
		return fmt.Errorf("chromosome %s has no windows", chrom)
	}
	p := plot.New()
	p.Title.Text = "Chromosome " + chrom
	p.X.Label.Text = "chromosome position"
	p.Y.Label.Text = "CN"
	p.X.Tick.Marker = utils.GroupedTicks

	byClass := classXYs(rows, ploidy)
	for _, class := range classOrder {
		xys, ok := byClass[class]
		if !ok {
			continue
		}
		s, err := plotter.NewScatter(xys)
		if err != nil {
			return err
		}
		s.GlyphStyle.Color = utils.HexColor(classColors[class])
		s.GlyphStyle.Shape = draw.CircleGlyph{}
		s.GlyphStyle.Radius = vg.Points(2)
		p.Add(s)
	}

	maxX := float64(lo.MaxBy(rows, func(a, b Ratio) bool { return a.Start > b.Start }).Start)
	p.X.Min, p.X.Max = -0.1*maxX, 1.1*maxX
	p.Y.Min, p.Y.Max = 0, float64(3*ploidy)
	return p.Save(8*vg.Inch, 6*vg.Inch, path)
}

// PlotRatios writes chr<name>.png for every chromosome into outDir, drawing
// up to threads plots at a time.
func PlotRatios(ctx context.Context, ratios *Ratios, outDir string, ploidy, threads int) error {
	if err := os.MkdirAll(outDir, 0755); err != nil {
		return err
	}
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(max(threads, 1))
	for _, chrom := range ratios.Chroms {
		chrom := chrom
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			fmt.Printf("Plotting chromosome %s\n", chrom)
			return PlotChromPNG(filepath.Join(outDir, "chr"+chrom+".png"), chrom, ratios.ByChrom[chrom], ploidy)
		})
	}
	return g.Wait()
}

// WriteRatiosHTML renders one interactive scatter chart per chromosome.
func WriteRatiosHTML(w io.Writer, ratios *Ratios, ploidy int) error {
	page := components.NewPage()
	page.SetPageTitle("Copy number")
	for _, chrom := range ratios.Chroms {
		sc := charts.NewScatter()
		sc.SetGlobalOptions(
			charts.WithInitializationOpts(opts.Initialization{Theme: types.ThemeWesteros}),
			charts.WithTitleOpts(opts.Title{Title: "Chromosome " + chrom}),
			charts.WithXAxisOpts(opts.XAxis{Name: "chromosome position", Type: "value"}),
			charts.WithYAxisOpts(opts.YAxis{Name: "CN", Min: 0, Max: 3 * ploidy}),
			charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true)}),
			charts.WithLegendOpts(opts.Legend{Show: opts.Bool(true)}),
			charts.WithDataZoomOpts(opts.DataZoom{Type: "inside"}),
		)
		byClass := classXYs(ratios.ByChrom[chrom], ploidy)
		for _, class := range classOrder {
			data := lo.Map(byClass[class], func(xy plotter.XY, _ int) opts.ScatterData {
				return opts.ScatterData{Value: []float64{xy.X, xy.Y}, SymbolSize: 4}
			})
			sc.AddSeries(class, data, charts.WithItemStyleOpts(opts.ItemStyle{Color: classColors[class]}))
		}
		page.AddCharts(sc)
	}
	return page.Render(w)
}
