package utils

import (
	"fmt"
	"image/color"
	"os"
	"strconv"
	"strings"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/vg"
	"gonum.org/v1/plot/vg/draw"
	"gonum.org/v1/plot/vg/vgimg"
)

// HexColor parses "#RRGGBB" into an opaque color. Malformed input is black.
func HexColor(hex string) color.NRGBA {
	v, err := strconv.ParseUint(strings.TrimPrefix(hex, "#"), 16, 32)
	if err != nil {
		return color.NRGBA{A: 255}
	}
	return color.NRGBA{R: uint8(v >> 16), G: uint8(v >> 8), B: uint8(v), A: 255}
}

func WithAlpha(c color.NRGBA, alpha float64) color.NRGBA {
	c.A = uint8(alpha * 255)
	return c
}

// GroupedTicks labels the major ticks with digit-grouped integers.
var GroupedTicks = plot.TickerFunc(func(min, max float64) []plot.Tick {
	ticks := plot.DefaultTicks{}.Ticks(min, max)
	for i := range ticks {
		if ticks[i].Label != "" {
			ticks[i].Label = NiceInt(int64(ticks[i].Value))
		}
	}
	return ticks
})

// SaveStackedPNG draws plots top to bottom on one PNG. ratios gives the
// relative height of each plot; nil means equal heights.
func SaveStackedPNG(path string, width, height vg.Length, plots []*plot.Plot, ratios []float64) error {
	if len(plots) == 0 {
		return fmt.Errorf("no plots to save")
	}
	if ratios == nil {
		ratios = make([]float64, len(plots))
		for i := range ratios {
			ratios[i] = 1
		}
	}
	if len(ratios) != len(plots) {
		return fmt.Errorf("got %d height ratios for %d plots", len(ratios), len(plots))
	}

	var sum float64
	for _, r := range ratios {
		sum += r
	}

	img := vgimg.New(width, height)
	dc := draw.New(img)
	var above float64
	for i, p := range plots {
		frac := ratios[i] / sum
		c := draw.Crop(dc, 0, 0, height*vg.Length(1-above-frac), -height*vg.Length(above))
		p.Draw(c)
		above += frac
	}

	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if _, err := (vgimg.PngCanvas{Canvas: img}).WriteTo(f); err != nil {
		f.Close()
		return fmt.Errorf("writing %s: %w", path, err)
	}
	return f.Close()
}
