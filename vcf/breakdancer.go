// Package vcf converts structural variant caller output to VCF.
package vcf

import (
	"bufio"
	"bytes"
	"fmt"
	"io"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/go-gota/gota/dataframe"
	"github.com/go-gota/gota/series"
)

const DefaultSample = "SAMPLE"

const breakdancerHeader = `##fileformat=VCFv4.2
##fileDate=%s
##source=breakdancer-max
##INFO=<ID=NS,Number=1,Type=Integer,Description="Number of Samples With Data">
##INFO=<ID=DP,Number=1,Type=Integer,Description="Total Depth">
##INFO=<ID=AF,Number=A,Type=Float,Description="Allele Frequency">
##INFO=<ID=IMPRECISE,Number=0,Type=Flag,Description="Imprecise structural variation">
##INFO=<ID=NOVEL,Number=0,Type=Flag,Description="Indicates a novel structural variation">
##INFO=<ID=SVEND,Number=1,Type=Integer,Description="End position of the variant described in this record">
##INFO=<ID=END,Number=1,Type=Integer,Description="End position of the variant described in this record">
##INFO=<ID=SVMETHOD,Number=0,Type=String,Description="Program called with">
##INFO=<ID=SVTYPE,Number=1,Type=String,Description="Type of structural variant">
##INFO=<ID=SVLEN,Number=.,Type=Integer,Description="Difference in length between REF and ALT alleles">
##INFO=<ID=CIPOS,Number=2,Type=Integer,Description="Confidence interval around POS for imprecise variants">
##INFO=<ID=CIEND,Number=2,Type=Integer,Description="Confidence interval around END for imprecise variants">
##INFO=<ID=MATEID,Number=.,Type=String,Description="ID of mate breakends">
##INFO=<ID=EVENT,Number=1,Type=String,Description="ID of event associated to breakend">
##ALT=<ID=DEL,Description="Deletion">
##ALT=<ID=INS,Description="Insertion">
##ALT=<ID=INV,Description="Inversion">
##ALT=<ID=ITX,Description="Intra-chromosomal translocation">
##ALT=<ID=CTX,Description="Inter-chromosomal translocation">
##FORMAT=<ID=GT,Number=1,Type=String,Description="Genotype">
##FORMAT=<ID=GQ,Number=1,Type=Integer,Description="Genotype Quality">
##FORMAT=<ID=DP,Number=1,Type=Integer,Description="Read Depth">
`

var vcfColumns = []string{"CHROM", "POS", "ID", "REF", "ALT", "QUAL", "FILTER", "INFO", "FORMAT"}

var breakdancerColumns = []string{"Chr1", "Pos1", "Chr2", "Pos2", "Type", "Size", "num_Reads"}

// Record is one VCF data line.
type Record struct {
	Chrom  string
	Pos    int
	Alt    string
	Info   string
	Sample string
}

func (r Record) String() string {
	return strings.Join([]string{
		r.Chrom, strconv.Itoa(r.Pos), ".", "N", r.Alt, ".", "PASS", r.Info, "GT:DP", r.Sample,
	}, "\t")
}

// readBreakdancer loads the calls of a BreakDancer TSV. The last '#' line
// before the data holds the column names. Short rows are padded and long rows
// cut to the header width. A file without calls gives a nil frame.
func readBreakdancer(r io.Reader) (*dataframe.DataFrame, error) {
	var rows [][]string
	var header []string
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)
	for scanner.Scan() {
		line := strings.TrimRight(scanner.Text(), "\r")
		if strings.HasPrefix(line, "#") {
			header = strings.Split(strings.TrimPrefix(line, "#"), "\t")
			continue
		}
		if strings.TrimSpace(line) == "" {
			continue
		}
		rows = append(rows, strings.Split(line, "\t"))
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	if len(header) == 0 {
		return nil, fmt.Errorf("breakdancer file has no header line")
	}
	if len(rows) == 0 {
		return nil, nil
	}

	var table bytes.Buffer
	table.WriteString(strings.Join(header, "\t"))
	table.WriteByte('\n')
	for _, row := range rows {
		fields := make([]string, len(header))
		copy(fields, row)
		table.WriteString(strings.Join(fields, "\t"))
		table.WriteByte('\n')
	}

	df := dataframe.ReadCSV(&table,
		dataframe.WithDelimiter('\t'),
		dataframe.HasHeader(true),
		dataframe.DetectTypes(false),
		dataframe.DefaultType(series.String),
		dataframe.WithLazyQuotes(true),
	)
	if df.Err != nil {
		return nil, fmt.Errorf("reading breakdancer calls: %w", df.Err)
	}
	return &df, nil
}

// BreakdancerRecords turns BreakDancer calls into VCF records sorted by
// chromosome and position.
func BreakdancerRecords(r io.Reader) ([]Record, error) {
	df, err := readBreakdancer(r)
	if err != nil {
		return nil, err
	}
	if df == nil || df.Nrow() == 0 {
		return nil, nil
	}
	cols := make(map[string][]string, len(breakdancerColumns))
	for _, name := range breakdancerColumns {
		s := df.Col(name)
		if s.Err != nil {
			return nil, fmt.Errorf("breakdancer column %s: %w", name, s.Err)
		}
		cols[name] = s.Records()
	}

	records := make([]Record, 0, df.Nrow())
	for i := 0; i < df.Nrow(); i++ {
		pos, err := strconv.Atoi(cols["Pos1"][i])
		if err != nil {
			return nil, fmt.Errorf("line %d: Pos1: %w", i+1, err)
		}
		end, err := strconv.Atoi(cols["Pos2"][i])
		if err != nil {
			return nil, fmt.Errorf("line %d: Pos2: %w", i+1, err)
		}
		svType := cols["Type"][i]
		rec := Record{
			Chrom:  cols["Chr1"][i],
			Pos:    pos,
			Alt:    "<" + svType + ">",
			Info:   "SVMETHOD=breakdancer;SVTYPE=" + svType,
			Sample: "1/.:" + cols["num_Reads"][i],
		}
		if svType == "CTX" {
			rec.Alt = fmt.Sprintf("N[%s:%d[", cols["Chr2"][i], end)
		} else {
			size, err := strconv.Atoi(cols["Size"][i])
			if err != nil {
				return nil, fmt.Errorf("line %d: Size: %w", i+1, err)
			}
			rec.Info += fmt.Sprintf(";SVLEN=%d;SVEND=%d;END=%d", size, end, end)
		}
		records = append(records, rec)
	}

	sort.SliceStable(records, func(i, j int) bool {
		a, b := records[i], records[j]
		if a.Chrom != b.Chrom {
			return a.Chrom < b.Chrom
		}
		if a.Pos != b.Pos {
			return a.Pos < b.Pos
		}
		return a.String() < b.String()
	})
	return records, nil
}

// Breakdancer2VCF writes the calls of r as VCF 4.2 for one sample.
func Breakdancer2VCF(r io.Reader, w io.Writer, sample string, date time.Time) error {
	records, err := BreakdancerRecords(r)
	if err != nil {
		return err
	}
	if sample == "" {
		sample = DefaultSample
	}
	bw := bufio.NewWriter(w)
	fmt.Fprintf(bw, breakdancerHeader, date.Format("20060102"))
	fmt.Fprintf(bw, "#%s\t%s\n", strings.Join(vcfColumns, "\t"), sample)
	for _, rec := range records {
		fmt.Fprintln(bw, rec.String())
	}
	return bw.Flush()
}
