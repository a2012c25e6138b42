package cnv

import (
	"bufio"
	"fmt"
	"image/color"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/biogo/store/interval"
	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"
	"gonum.org/v1/plot/vg/draw"

	"github.com/gmaffy/biopet-utils/utils"
)

const (
	DefaultMargin = 5000

	zLimit = 30
)

// Score is one scored region of a z-score BED file.
type Score struct {
	Chrom      string
	Start, End int
	Value      float64
	uid        uintptr
}

func (s Score) Overlap(b interval.IntRange) bool { return s.Start < b.End && b.Start < s.End }
func (s Score) ID() uintptr                      { return s.uid }
func (s Score) Range() interval.IntRange         { return interval.IntRange{Start: s.Start, End: s.End} }

// Middle is the midpoint used as the x coordinate of the score.
func (s Score) Middle() int { return s.Start + (s.End-s.Start)/2 }

// query is a half-open window for tree lookups.
type query struct{ start, end int }

func (q query) Overlap(b interval.IntRange) bool { return b.Start < q.end && q.start < b.End }

// ScoreTrack indexes a z-score BED file per chromosome.
type ScoreTrack struct {
	Name  string
	trees map[string]*interval.IntTree
}

// ReadScores loads chrom, start, end and a score in the last column. Header
// and comment lines are skipped.
func ReadScores(r io.Reader, name string) (*ScoreTrack, error) {
	t := &ScoreTrack{Name: name, trees: make(map[string]*interval.IntTree)}
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)
	var uid uintptr
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") || strings.HasPrefix(line, "track") {
			continue
		}
		cols := strings.Split(line, "\t")
		if len(cols) < 4 {
			return nil, fmt.Errorf("%s line %d: expected at least 4 columns", name, lineNo)
		}
		start, err1 := strconv.Atoi(cols[1])
		end, err2 := strconv.Atoi(cols[2])
		if err1 != nil || err2 != nil {
			return nil, fmt.Errorf("%s line %d: bad coordinates", name, lineNo)
		}
		v, err := strconv.ParseFloat(cols[len(cols)-1], 64)
		if err != nil {
			// non numeric scores such as NA carry no point
			continue
		}
		tree, ok := t.trees[cols[0]]
		if !ok {
			tree = &interval.IntTree{}
			t.trees[cols[0]] = tree
		}
		uid++
		if err := tree.Insert(Score{Chrom: cols[0], Start: start, End: end, Value: v, uid: uid}, false); err != nil {
			return nil, fmt.Errorf("%s line %d: %w", name, lineNo, err)
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	return t, nil
}

func ReadScoresFile(path string) (*ScoreTrack, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return ReadScores(f, filepath.Base(path))
}

// Fetch returns the scores overlapping [start, end) sorted by position.
func (t *ScoreTrack) Fetch(chrom string, start, end int) []Score {
	if t == nil {
		return nil
	}
	tree, ok := t.trees[chrom]
	if !ok {
		return nil
	}
	var out []Score
	for _, hit := range tree.Get(query{start: start, end: end}) {
		out = append(out, hit.(Score))
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Start == out[j].Start {
			return out[i].End < out[j].End
		}
		return out[i].Start < out[j].Start
	})
	return out
}

// Call is one CNV call region.
type Call struct {
	Chrom      string
	Start, End int
}

func (c Call) FileName() string { return fmt.Sprintf("%s_%d-%d.png", c.Chrom, c.Start, c.End) }

func ReadCalls(r io.Reader) ([]Call, error) {
	var calls []Call
	scanner := bufio.NewScanner(r)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") || strings.HasPrefix(line, "track") {
			continue
		}
		cols := strings.Split(line, "\t")
		if len(cols) < 3 {
			return nil, fmt.Errorf("calls line %d: expected at least 3 columns", lineNo)
		}
		start, err1 := strconv.Atoi(cols[1])
		end, err2 := strconv.Atoi(cols[2])
		if err1 != nil || err2 != nil {
			return nil, fmt.Errorf("calls line %d: bad coordinates", lineNo)
		}
		calls = append(calls, Call{Chrom: cols[0], Start: start, End: end})
	}
	return calls, scanner.Err()
}

// TarmacTracks are the score tracks drawn around a call. Stouffer may be nil.
type TarmacTracks struct {
	Wisecondor *ScoreTrack
	XHMM       *ScoreTrack
	Stouffer   *ScoreTrack
}

func scoreXYs(scores []Score) plotter.XYs {
	xys := make(plotter.XYs, len(scores))
	for i, s := range scores {
		xys[i] = plotter.XY{X: float64(s.Middle()), Y: s.Value}
	}
	return xys
}

func addScatter(p *plot.Plot, label string, xys plotter.XYs, c color.NRGBA) error {
	if len(xys) == 0 {
		return nil
	}
	s, err := plotter.NewScatter(xys)
	if err != nil {
		return err
	}
	s.GlyphStyle.Color = utils.WithAlpha(c, 0.3)
	s.GlyphStyle.Shape = draw.CircleGlyph{}
	s.GlyphStyle.Radius = vg.Points(3)
	p.Add(s)
	p.Legend.Add(label, s)
	return nil
}

// PlotCall draws the scores within margin of the call, with the call itself
// shaded. Z-scores are clamped to the plot range.
func PlotCall(path string, call Call, tracks TarmacTracks, margin int) error {
	from, to := call.Start-margin, call.End+margin

	p := plot.New()
	p.Title.Text = fmt.Sprintf("%s:%d-%d", call.Chrom, call.Start, call.End)
	p.X.Label.Text = "Position along " + call.Chrom
	p.Y.Label.Text = "Z-score"
	p.X.Tick.Marker = utils.GroupedTicks
	p.Legend.Top = true

	region, err := plotter.NewPolygon(plotter.XYs{
		{X: float64(call.Start), Y: -zLimit}, {X: float64(call.End), Y: -zLimit},
		{X: float64(call.End), Y: zLimit}, {X: float64(call.Start), Y: zLimit},
	})
	if err != nil {
		return err
	}
	region.Color = color.NRGBA{R: 128, G: 128, B: 128, A: 40}
	region.LineStyle.Width = 0
	p.Add(region)

	if stouffer := tracks.Stouffer.Fetch(call.Chrom, from, to); len(stouffer) > 0 {
		l, err := plotter.NewLine(scoreXYs(stouffer))
		if err != nil {
			return err
		}
		l.LineStyle.Color = utils.HexColor("#FF0000")
		l.LineStyle.Width = vg.Points(3)
		p.Add(l)
		p.Legend.Add("Aggregated Z-score", l)
	}
	if err := addScatter(p, "Wisecondor Z-scores", scoreXYs(tracks.Wisecondor.Fetch(call.Chrom, from, to)), utils.HexColor("#008000")); err != nil {
		return err
	}
	if err := addScatter(p, "XHMM Z-scores", scoreXYs(tracks.XHMM.Fetch(call.Chrom, from, to)), color.NRGBA{A: 255}); err != nil {
		return err
	}

	p.X.Min, p.X.Max = float64(from), float64(to)
	p.Y.Min, p.Y.Max = -zLimit, zLimit
	return p.Save(11*vg.Inch, 6*vg.Inch, path)
}

// TarmacPlot writes one PNG per call into outDir and returns the paths.
func TarmacPlot(calls []Call, tracks TarmacTracks, margin int, outDir string) ([]string, error) {
	if err := os.MkdirAll(outDir, 0755); err != nil {
		return nil, err
	}
	var paths []string
	for _, c := range calls {
		path := filepath.Join(outDir, c.FileName())
		if err := PlotCall(path, c, tracks, margin); err != nil {
			return paths, fmt.Errorf("plotting %s:%d-%d: %w", c.Chrom, c.Start, c.End, err)
		}
		paths = append(paths, path)
	}
	return paths, nil
}
