package bed

import (
	"bufio"
	"fmt"
	"io"
	"math"
	"os"
	"strconv"
	"strings"

	"github.com/go-gota/gota/dataframe"
	"github.com/go-gota/gota/series"
)

func newScanner(r io.Reader) *bufio.Scanner {
	s := bufio.NewScanner(r)
	s.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)
	return s
}

// Threshold copies the lines whose last column is a number with an absolute
// value of at least threshold. Lines without a numeric last column are
// skipped.
func Threshold(r io.Reader, w io.Writer, threshold float64) error {
	scanner := newScanner(r)
	for scanner.Scan() {
		line := strings.TrimRight(scanner.Text(), "\r\n")
		cols := strings.Split(strings.TrimSpace(line), "\t")
		v, err := strconv.ParseFloat(cols[len(cols)-1], 64)
		if err != nil {
			continue
		}
		if math.Abs(v) >= threshold {
			if _, err := fmt.Fprintln(w, line); err != nil {
				return err
			}
		}
	}
	return scanner.Err()
}

func regionKey(line string) string {
	cols := strings.SplitN(line, "\t", 4)
	if len(cols) > 3 {
		cols = cols[:3]
	}
	return strings.Join(cols, "\t")
}

func loadRegions(path string) (map[string]struct{}, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	regions := make(map[string]struct{})
	scanner := newScanner(f)
	for scanner.Scan() {
		regions[regionKey(strings.TrimRight(scanner.Text(), "\r\n"))] = struct{}{}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}
	return regions, nil
}

// FindAllCommon copies the lines of r whose chrom, start and end occur in
// every database file.
func FindAllCommon(r io.Reader, w io.Writer, dbPaths []string) error {
	dbs := make([]map[string]struct{}, 0, len(dbPaths))
	for _, p := range dbPaths {
		regions, err := loadRegions(p)
		if err != nil {
			return err
		}
		dbs = append(dbs, regions)
	}

	scanner := newScanner(r)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		key := regionKey(line)
		common := true
		for _, db := range dbs {
			if _, ok := db[key]; !ok {
				common = false
				break
			}
		}
		if common {
			if _, err := fmt.Fprintln(w, line); err != nil {
				return err
			}
		}
	}
	return scanner.Err()
}

// XhmmRegionToBed turns "chr:start-end" into its three BED columns.
func XhmmRegionToBed(region string) (string, string, string, error) {
	chrom, interval, ok := strings.Cut(region, ":")
	if !ok {
		return "", "", "", fmt.Errorf("region %q has no ':'", region)
	}
	start, end, ok := strings.Cut(interval, "-")
	if !ok {
		return "", "", "", fmt.Errorf("region %q has no '-'", region)
	}
	return chrom, start, end, nil
}

// SelectSample writes the row of one sample of an XHMM matrix as BED lines
// with the value in the fourth column.
func SelectSample(r io.Reader, w io.Writer, sample string) error {
	df := dataframe.ReadCSV(r,
		dataframe.WithDelimiter('\t'),
		dataframe.HasHeader(true),
		dataframe.DetectTypes(false),
		dataframe.DefaultType(series.String),
		dataframe.WithLazyQuotes(true),
	)
	if df.Err != nil {
		return fmt.Errorf("reading matrix: %w", df.Err)
	}
	names := df.Names()
	if len(names) < 2 {
		return fmt.Errorf("matrix has no region columns")
	}

	row := df.Filter(dataframe.F{Colidx: 0, Comparator: series.Eq, Comparando: sample})
	if row.Err != nil {
		return fmt.Errorf("selecting sample: %w", row.Err)
	}
	if row.Nrow() == 0 {
		return fmt.Errorf("sample %s does not exist", sample)
	}

	for c, region := range names[1:] {
		chrom, start, end, err := XhmmRegionToBed(region)
		if err != nil {
			return err
		}
		val := row.Elem(0, c+1).String()
		if _, err := fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", chrom, start, end, val); err != nil {
			return err
		}
	}
	return nil
}
