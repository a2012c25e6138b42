package picard

import (
	"embed"
	"fmt"
	"html/template"
	"io"

	"github.com/samber/lo"

	"github.com/gmaffy/biopet-utils/utils"
)

//go:embed templates/rna_metrics.html templates/rna_metrics.css
var templateFS embed.FS

var rnaTemplate = template.Must(template.ParseFS(templateFS, "templates/rna_metrics.html"))

type readRow struct {
	Chrom              string
	Mapped             string
	SenseCorrect       string
	SenseIncorrect     string
	AntisenseCorrect   string
	AntisenseIncorrect string
}

type baseRow struct {
	Region       string
	Sense        string
	SensePct     string
	Antisense    string
	AntisensePct string
}

type rnaPage struct {
	CSS            template.CSS
	StrandSpecific bool
	Reads          []readRow
	Bases          []baseRow
}

// BaseCounts splits the aligned bases of m into exonic (UTR plus coding),
// intronic and intergenic counts.
type BaseCounts struct {
	Total, Exonic, Intronic, Intergenic int64
}

func NewBaseCounts(m Metrics) BaseCounts {
	return BaseCounts{
		Total:      m.Int("pfAlignedBases"),
		Exonic:     m.Int("utrBases") + m.Int("codingBases"),
		Intronic:   m.Int("intronicBases"),
		Intergenic: m.Int("intergenicBases"),
	}
}

func (b BaseCounts) Pct(n int64) float64 {
	if b.Total == 0 {
		return 0
	}
	return float64(n) * 100 / float64(b.Total)
}

func chromMetrics(b *BamMetrics, chrom string) (Metrics, error) {
	cm, ok := b.AllMetrics[chrom]
	if !ok {
		return nil, fmt.Errorf("no metrics for chromosome %s in %s", chrom, b.BamFile)
	}
	return cm.Metrics, nil
}

func buildRnaPage(report *RnaReport, chroms []string) (*rnaPage, error) {
	if report.Mix == nil {
		return nil, fmt.Errorf("report has no mapped read counts")
	}
	css, err := templateFS.ReadFile("templates/rna_metrics.css")
	if err != nil {
		return nil, err
	}
	page := &rnaPage{CSS: template.CSS(css), StrandSpecific: report.Fwd != nil && report.Rev != nil}
	if page.StrandSpecific != (report.Fwd != nil || report.Rev != nil) {
		return nil, fmt.Errorf("report has only one of the sense and antisense metrics")
	}

	chroms = reportChroms(chroms)
	if chroms == nil {
		chroms = sortedChroms(report.Mix.AllMetrics)
	}
	for _, chrom := range chroms {
		mix, err := chromMetrics(report.Mix, chrom)
		if err != nil {
			return nil, err
		}
		row := readRow{Chrom: chrom, Mapped: utils.NiceInt(mix.Int("countMapped"))}
		if page.StrandSpecific {
			fwd, err := chromMetrics(report.Fwd, chrom)
			if err != nil {
				return nil, err
			}
			rev, err := chromMetrics(report.Rev, chrom)
			if err != nil {
				return nil, err
			}
			row.SenseCorrect = utils.NiceInt(fwd.Int("correctStrandReads"))
			row.SenseIncorrect = utils.NiceInt(fwd.Int("incorrectStrandReads"))
			row.AntisenseCorrect = utils.NiceInt(rev.Int("correctStrandReads"))
			row.AntisenseIncorrect = utils.NiceInt(rev.Int("incorrectStrandReads"))
		}
		page.Reads = append(page.Reads, row)
	}

	if !page.StrandSpecific {
		return page, nil
	}
	fwdAll, err := chromMetrics(report.Fwd, AllChroms)
	if err != nil {
		return nil, err
	}
	revAll, err := chromMetrics(report.Rev, AllChroms)
	if err != nil {
		return nil, err
	}
	fwd, rev := NewBaseCounts(fwdAll), NewBaseCounts(revAll)
	page.Bases = lo.Map([]string{"Exonic", "Intronic", "Intergenic"}, func(region string, _ int) baseRow {
		pick := func(b BaseCounts) int64 {
			switch region {
			case "Exonic":
				return b.Exonic
			case "Intronic":
				return b.Intronic
			}
			return b.Intergenic
		}
		return baseRow{
			Region:       region,
			Sense:        utils.NiceInt(pick(fwd)),
			SensePct:     utils.NiceFloat(fwd.Pct(pick(fwd))),
			Antisense:    utils.NiceInt(pick(rev)),
			AntisensePct: utils.NiceFloat(rev.Pct(pick(rev))),
		}
	})
	return page, nil
}

// WriteRnaHTML renders the read count table, and for strand specific reports
// the base count table, as a standalone HTML page.
func WriteRnaHTML(w io.Writer, report *RnaReport, chroms []string) error {
	page, err := buildRnaPage(report, chroms)
	if err != nil {
		return err
	}
	return rnaTemplate.Execute(w, page)
}
