package coverage

import (
	"bufio"
	"fmt"
	"io"
	"strconv"
	"strings"
)

type region struct {
	chrom      string
	start, end int64
	sum        int64
	extra      string
}

func (r *region) write(w io.Writer) error {
	_, err := fmt.Fprintf(w, "%s\t%d\t%d\t%d\t%f%s\n",
		r.chrom, r.start, r.end, r.sum, float64(r.sum)/float64(r.end-r.start), r.extra)
	return err
}

// Hist2Count turns "coverageBed -hist" output into one line per region with
// the number of mapped nucleotides and that number divided by the region
// length. Columns listed in copyCols are appended from the region's first
// line.
func Hist2Count(r io.Reader, w io.Writer, copyCols []int) error {
	var cur *region

	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		data := strings.Fields(scanner.Text())
		if len(data) == 0 || data[0] == "all" {
			continue
		}
		if len(data) < 7 {
			return fmt.Errorf("line %d: expected at least 7 columns, got %d", lineNo, len(data))
		}
		start, err := strconv.ParseInt(data[1], 10, 64)
		if err != nil {
			return fmt.Errorf("line %d: invalid start: %w", lineNo, err)
		}
		end, err := strconv.ParseInt(data[2], 10, 64)
		if err != nil {
			return fmt.Errorf("line %d: invalid end: %w", lineNo, err)
		}
		depth, err := strconv.ParseInt(data[len(data)-4], 10, 64)
		if err != nil {
			return fmt.Errorf("line %d: invalid depth: %w", lineNo, err)
		}
		count, err := strconv.ParseInt(data[len(data)-3], 10, 64)
		if err != nil {
			return fmt.Errorf("line %d: invalid count: %w", lineNo, err)
		}

		if cur == nil || cur.chrom != data[0] || cur.start != start || cur.end != end {
			if cur != nil {
				if err := cur.write(w); err != nil {
					return err
				}
			}
			if end <= start {
				return fmt.Errorf("line %d: empty region %s:%d-%d", lineNo, data[0], start, end)
			}
			var extra strings.Builder
			for _, c := range copyCols {
				if c < 0 || c >= len(data) {
					return fmt.Errorf("line %d: no column %d to copy", lineNo, c)
				}
				extra.WriteString("\t" + data[c])
			}
			cur = &region{chrom: data[0], start: start, end: end, extra: extra.String()}
		}
		cur.sum += depth * count
	}
	if err := scanner.Err(); err != nil {
		return err
	}
	if cur != nil {
		return cur.write(w)
	}
	return nil
}
