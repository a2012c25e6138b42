package coverage

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"math"
	"sort"
	"strconv"
	"strings"
	"sync"

	"golang.org/x/sync/errgroup"
)

// AllChroms is the key under which the genome-wide histogram is stored.
const AllChroms = "_all"

// Coverage is a depth histogram: how many positions were covered how many
// times.
type Coverage struct {
	counts  map[int]int64
	width   int64
	nonZero int64
	total   int64
	depths  []int
}

func NewCoverage() *Coverage {
	return &Coverage{counts: make(map[int]int64)}
}

func (c *Coverage) Add(depth int) {
	c.AddN(depth, 1)
}

func (c *Coverage) AddN(depth int, n int64) {
	if _, ok := c.counts[depth]; !ok {
		c.depths = nil
	}
	c.counts[depth] += n
	c.width += n
	c.total += int64(depth) * n
	if depth > 0 {
		c.nonZero += n
	}
}

func (c *Coverage) Width() int64   { return c.width }
func (c *Coverage) NonZero() int64 { return c.nonZero }
func (c *Coverage) Total() int64   { return c.total }

func (c *Coverage) Count(depth int) int64 { return c.counts[depth] }

// Depths returns the observed depths in increasing order.
func (c *Coverage) Depths() []int {
	if c.depths == nil {
		c.depths = make([]int, 0, len(c.counts))
		for d := range c.counts {
			c.depths = append(c.depths, d)
		}
		sort.Ints(c.depths)
	}
	return c.depths
}

func (c *Coverage) Max() int {
	d := c.Depths()
	if len(d) == 0 {
		return 0
	}
	return d[len(d)-1]
}

func (c *Coverage) Min() int {
	d := c.Depths()
	if len(d) == 0 {
		return 0
	}
	return d[0]
}

func (c *Coverage) Mean() float64 {
	if c.width == 0 {
		return 0
	}
	return float64(c.total) / float64(c.width)
}

func (c *Coverage) Horizontal() float64 {
	if c.width == 0 {
		return 0
	}
	return float64(c.nonZero) / float64(c.width)
}

// AtLeast is the fraction of positions covered n or more times.
func (c *Coverage) AtLeast(n int) float64 {
	if c.width == 0 {
		return 0
	}
	var x int64
	for d, cnt := range c.counts {
		if d >= n {
			x += cnt
		}
	}
	return float64(x) / float64(c.width)
}

// Rank returns the k-th smallest depth (0-based) over all positions.
func (c *Coverage) Rank(k int64) int {
	var seen int64
	for _, d := range c.Depths() {
		seen += c.counts[d]
		if k < seen {
			return d
		}
	}
	return c.Max()
}

// Percentile interpolates linearly between the two closest ranks, the same
// rule numpy.percentile uses by default.
func (c *Coverage) Percentile(p float64) float64 {
	if c.width == 0 {
		return math.NaN()
	}
	pos := p / 100 * float64(c.width-1)
	lo := math.Floor(pos)
	hi := math.Ceil(pos)
	vlo := float64(c.Rank(int64(lo)))
	if lo == hi {
		return vlo
	}
	vhi := float64(c.Rank(int64(hi)))
	return vlo + (vhi-vlo)*(pos-lo)
}

type Stats struct {
	FracMin10x   float64 `json:"frac_min_10x"`
	FracMin20x   float64 `json:"frac_min_20x"`
	FracMin30x   float64 `json:"frac_min_30x"`
	FracMin40x   float64 `json:"frac_min_40x"`
	FracMin50x   float64 `json:"frac_min_50x"`
	Horizontal   float64 `json:"horizontal"`
	Max          int     `json:"max"`
	Mean         float64 `json:"mean"`
	Median       float64 `json:"median"`
	Total        int64   `json:"total"`
	Width        int64   `json:"width"`
	WidthNonzero int64   `json:"width_nonzero"`
}

func (c *Coverage) QuickStats() Stats {
	return Stats{
		FracMin10x:   c.AtLeast(10),
		FracMin20x:   c.AtLeast(20),
		FracMin30x:   c.AtLeast(30),
		FracMin40x:   c.AtLeast(40),
		FracMin50x:   c.AtLeast(50),
		Horizontal:   c.Horizontal(),
		Max:          c.Max(),
		Mean:         c.Mean(),
		Median:       c.Percentile(50),
		Total:        c.total,
		Width:        c.width,
		WidthNonzero: c.nonZero,
	}
}

// Collect reads "bedtools coverage -d" output, where the first column is the
// chromosome and the last one the depth at a position. It returns a histogram
// per chromosome plus the genome-wide one under AllChroms.
func Collect(r io.Reader) (map[string]*Coverage, error) {
	covs := map[string]*Coverage{AllChroms: NewCoverage()}

	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		cols := strings.Split(line, "\t")
		if len(cols) < 2 {
			return nil, fmt.Errorf("line %d: expected at least 2 columns, got %d", lineNo, len(cols))
		}
		depth, err := strconv.Atoi(cols[len(cols)-1])
		if err != nil {
			return nil, fmt.Errorf("line %d: invalid depth %q: %w", lineNo, cols[len(cols)-1], err)
		}

		chrom := cols[0]
		cov, ok := covs[chrom]
		if !ok {
			cov = NewCoverage()
			covs[chrom] = cov
		}
		cov.Add(depth)
		covs[AllChroms].Add(depth)
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	if covs[AllChroms].Width() == 0 {
		return nil, fmt.Errorf("no coverage records found")
	}
	return covs, nil
}

// QuickStatsAll computes the stats of every histogram concurrently.
func QuickStatsAll(ctx context.Context, covs map[string]*Coverage) (map[string]Stats, error) {
	var (
		mu  sync.Mutex
		out = make(map[string]Stats, len(covs))
	)
	g, ctx := errgroup.WithContext(ctx)
	for name, cov := range covs {
		name, cov := name, cov
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return fmt.Errorf("stats of %s: %w", name, err)
			}
			s := cov.QuickStats()
			mu.Lock()
			out[name] = s
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}
