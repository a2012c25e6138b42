// Package cuffcmp reads the statistics written by cuffcompare.
package cuffcmp

import (
	"fmt"
	"io"
	"regexp"
	"strconv"
)

var (
	datasetRe = regexp.MustCompile(`Summary for dataset:\s+(.*?)\s+:`)
	mrnasRe   = regexp.MustCompile(`Query mRNAs\s*:\s+(\d+) in\s+(\d+) loci`)

	// (not in other, total) counts
	countRes = []struct {
		re     *regexp.Regexp
		missed string
		total  string
	}{
		{regexp.MustCompile(`Missed exons:\s+(\d+)/(\d+)`), "refExonsNotInQuery", "refExonsTotal"},
		{regexp.MustCompile(`Novel exons:\s+(\d+)/(\d+)`), "queryExonsNotInRef", "queryExonsTotal"},
		{regexp.MustCompile(`Missed introns:\s+(\d+)/(\d+)`), "refIntronsNotInQuery", "refIntronsTotal"},
		{regexp.MustCompile(`Novel introns:\s+(\d+)/(\d+)`), "queryIntronsNotInRef", "queryIntronsTotal"},
		{regexp.MustCompile(`Missed loci:\s+(\d+)/(\d+)`), "refLociNotInQuery", "refLociTotal"},
		{regexp.MustCompile(`Novel loci:\s+(\d+)/(\d+)`), "queryLociNotInRef", "queryLociTotal"},
	}

	// sensitivity and specificity tables, key prefix per level
	levelRes = []struct {
		re     *regexp.Regexp
		prefix string
	}{
		{levelRe("Base"), "baseLevel"},
		{levelRe("Exon"), "exonLevel"},
		{levelRe("Intron"), "intronLevel"},
		{levelRe("Intron chain"), "intronChainLevel"},
		{levelRe("Transcript"), "transcriptLevel"},
		{levelRe("Locus"), "locusLevel"},
	}

	levelSuffixes = []string{"Sn", "Sp", "FSn", "FSp"}
)

func levelRe(level string) *regexp.Regexp {
	return regexp.MustCompile(`(?m)^\s*` + level + ` level:\s+(\S+)\s+(\S+)\s+(\S+)\s+(\S+)`)
}

// Stats maps camelCase statistic names to a string, int64, float64 or nil.
type Stats map[string]any

// Parse reads a cuffcmp.stats file. A '-' in a level table becomes nil.
func Parse(r io.Reader) (Stats, error) {
	raw, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}
	text := string(raw)

	stats := make(Stats)
	m := datasetRe.FindStringSubmatch(text)
	if m == nil {
		return nil, fmt.Errorf("dataset summary line not found")
	}
	stats["dataSet"] = m[1]

	// older cuffcompare versions do not print the query totals
	if m := mrnasRe.FindStringSubmatch(text); m != nil {
		mrnas, _ := strconv.ParseInt(m[1], 10, 64)
		loci, _ := strconv.ParseInt(m[2], 10, 64)
		stats["queryMRNAs"] = mrnas
		stats["queryMRNALoci"] = loci
	}

	for _, c := range countRes {
		m := c.re.FindStringSubmatch(text)
		if m == nil {
			return nil, fmt.Errorf("%s not found", c.total)
		}
		for i, key := range []string{c.missed, c.total} {
			n, err := strconv.ParseInt(m[i+1], 10, 64)
			if err != nil {
				return nil, fmt.Errorf("%s: %w", key, err)
			}
			stats[key] = n
		}
	}

	for _, l := range levelRes {
		m := l.re.FindStringSubmatch(text)
		if m == nil {
			return nil, fmt.Errorf("%s table not found", l.prefix)
		}
		for i, suffix := range levelSuffixes {
			key := l.prefix + suffix
			if m[i+1] == "-" {
				stats[key] = nil
				continue
			}
			f, err := strconv.ParseFloat(m[i+1], 64)
			if err != nil {
				return nil, fmt.Errorf("%s: %w", key, err)
			}
			stats[key] = f
		}
	}
	return stats, nil
}
