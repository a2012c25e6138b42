// Package bed holds BED interval utilities.
package bed

import (
	"bufio"
	"bytes"
	"errors"
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/biogo/biogo/io/featio"
	"github.com/biogo/biogo/io/featio/bed"
	"github.com/biogo/biogo/seq"
)

// coord is one end of a feature on the sweep line.
type coord struct {
	name   string
	start  bool
	point  int
	fStart int
	strand seq.Strand
}

// strandState tracks the overlap level and the open output row of one strand.
type strandState struct {
	level int
	row   bed.Bed6
}

// ReadBed6 reads BED6 features grouped by chromosome, in first-seen order.
// Header, track and comment lines are skipped.
func ReadBed6(r io.Reader) ([]string, map[string][]*bed.Bed6, error) {
	var clean bytes.Buffer
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		line := scanner.Text()
		if strings.TrimSpace(line) == "" || strings.HasPrefix(line, "#") ||
			strings.HasPrefix(line, "track") || strings.HasPrefix(line, "browser") {
			continue
		}
		clean.WriteString(line)
		clean.WriteByte('\n')
	}
	if err := scanner.Err(); err != nil {
		return nil, nil, err
	}

	br, err := bed.NewReader(&clean, 6)
	if err != nil {
		return nil, nil, err
	}
	var order []string
	byChrom := make(map[string][]*bed.Bed6)
	sc := featio.NewScanner(br)
	for sc.Next() {
		f, ok := sc.Feat().(*bed.Bed6)
		if !ok {
			return nil, nil, fmt.Errorf("unexpected feature type %T", sc.Feat())
		}
		if f.ChromStart > f.ChromEnd {
			return nil, nil, fmt.Errorf("feature %s %s:%d-%d starts after its end", f.FeatName, f.Chrom, f.ChromStart, f.ChromEnd)
		}
		if _, seen := byChrom[f.Chrom]; !seen {
			order = append(order, f.Chrom)
		}
		byChrom[f.Chrom] = append(byChrom[f.Chrom], f)
	}
	if err := sc.Error(); err != nil && !errors.Is(err, io.EOF) {
		return nil, nil, fmt.Errorf("reading bed: %w", err)
	}
	return order, byChrom, nil
}

// SquishChrom removes every base covered by more than one feature of the same
// strand. A feature enveloped by another disappears and splits the enveloping
// one in two.
func SquishChrom(chrom string, feats []*bed.Bed6) ([]*bed.Bed6, error) {
	coords := make([]coord, 0, 2*len(feats))
	for _, f := range feats {
		coords = append(coords,
			coord{name: f.FeatName, start: true, point: f.ChromStart, fStart: f.ChromStart, strand: f.FeatStrand},
			coord{name: f.FeatName, start: false, point: f.ChromEnd, fStart: f.ChromStart, strand: f.FeatStrand})
	}
	sort.SliceStable(coords, func(i, j int) bool {
		if coords[i].point == coords[j].point {
			return coords[i].fStart < coords[j].fStart
		}
		return coords[i].point < coords[j].point
	})

	states := make(map[seq.Strand]*strandState)
	var out []*bed.Bed6
	emit := func(st *strandState) {
		if st.row.ChromStart == st.row.ChromEnd {
			return
		}
		row := st.row
		out = append(out, &row)
	}

	for _, c := range coords {
		st, ok := states[c.strand]
		if !ok {
			st = &strandState{row: bed.Bed6{Chrom: chrom, FeatStrand: c.strand}}
			states[c.strand] = st
		}
		if c.start {
			st.level++
			switch st.level {
			case 1:
				st.row.ChromStart = c.point
				st.row.FeatName = c.name
			case 2:
				st.row.ChromEnd = c.point
				if st.row.ChromStart > st.row.ChromEnd {
					return nil, fmt.Errorf("%s: squished row %d-%d is inverted", chrom, st.row.ChromStart, st.row.ChromEnd)
				}
				emit(st)
			}
			continue
		}

		st.level--
		switch st.level {
		case 0:
			st.row.ChromEnd = c.point
			st.row.FeatName = c.name
			if st.row.ChromStart > st.row.ChromEnd {
				return nil, fmt.Errorf("%s: squished row %d-%d is inverted", chrom, st.row.ChromStart, st.row.ChromEnd)
			}
			emit(st)
		case 1:
			st.row.ChromStart = c.point
		}
		if st.level < 0 {
			return nil, fmt.Errorf("%s: unexpected feature level %d on strand %v", chrom, st.level, c.strand)
		}
	}

	for strand, st := range states {
		if st.level != 0 {
			return nil, fmt.Errorf("%s: unexpected end feature level %d on strand %v", chrom, st.level, strand)
		}
	}
	return out, nil
}

// Squish reads BED6 from r and writes the overlap-free features to w.
func Squish(r io.Reader, w io.Writer) error {
	order, byChrom, err := ReadBed6(r)
	if err != nil {
		return err
	}
	bw, err := bed.NewWriter(w, 6)
	if err != nil {
		return err
	}
	for _, chrom := range order {
		rows, err := SquishChrom(chrom, byChrom[chrom])
		if err != nil {
			return err
		}
		for _, row := range rows {
			if _, err := bw.Write(row); err != nil {
				return fmt.Errorf("writing bed: %w", err)
			}
		}
	}
	return nil
}
