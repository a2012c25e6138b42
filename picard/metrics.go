// Package picard runs Picard metric collectors and reads their output.
package picard

import (
	"bufio"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strconv"
	"strings"
)

// RnaDataMark is the first column of the CollectRnaSeqMetrics table.
const RnaDataMark = "PF_BASES"

var rnaColumns = map[string]string{
	"PF_BASES":                     "pfBases",
	"PF_ALIGNED_BASES":             "pfAlignedBases",
	"RIBOSOMAL_BASES":              "ribosomalBases",
	"CODING_BASES":                 "codingBases",
	"UTR_BASES":                    "utrBases",
	"INTRONIC_BASES":               "intronicBases",
	"INTERGENIC_BASES":             "intergenicBases",
	"IGNORED_READS":                "ignoredReads",
	"CORRECT_STRAND_READS":         "correctStrandReads",
	"INCORRECT_STRAND_READS":       "incorrectStrandReads",
	"PCT_RIBOSOMAL_BASES":          "pctRibosomalBases",
	"PCT_CODING_BASES":             "pctCodingBases",
	"PCT_UTR_BASES":                "pctUtrBases",
	"PCT_INTRONIC_BASES":           "pctIntronicBases",
	"PCT_INTERGENIC_BASES":         "pctIntergenicBases",
	"PCT_MRNA_BASES":               "pctMrnaBases",
	"PCT_USABLE_BASES":             "pctUsableBases",
	"PCT_CORRECT_STRAND_READS":     "pctCorrectStrandReads",
	"MEDIAN_CV_COVERAGE":           "medianCvCoverage",
	"MEDIAN_5PRIME_BIAS":           "median5PrimeBias",
	"MEDIAN_3PRIME_BIAS":           "median3PrimeBias",
	"MEDIAN_5PRIME_TO_3PRIME_BIAS": "median5PrimeTo3PrimeBias",
}

// Metrics maps camelCase metric names to int64, float64 or nil values.
type Metrics map[string]any

// Int returns an integer metric, or 0 when it is missing or not an integer.
func (m Metrics) Int(key string) int64 {
	v, _ := m[key].(int64)
	return v
}

// ReadMetricsTable returns the header row starting with mark and the value row
// right after it.
func ReadMetricsTable(r io.Reader, mark string) ([]string, []string, error) {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if !strings.HasPrefix(line, mark) {
			continue
		}
		header := strings.Split(line, "\t")
		if !scanner.Scan() {
			break
		}
		values := strings.Split(strings.Trim(scanner.Text(), "\r\n"), "\t")
		return header, values, nil
	}
	if err := scanner.Err(); err != nil {
		return nil, nil, err
	}
	return nil, nil, fmt.Errorf("metrics starting with %s not found", mark)
}

// ParseRnaMetrics reads the table of a CollectRnaSeqMetrics output. name is
// only used in messages.
func ParseRnaMetrics(r io.Reader, name string) (Metrics, error) {
	header, values, err := ReadMetricsTable(r, RnaDataMark)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", name, err)
	}

	m := make(Metrics, len(header))
	for i, col := range header {
		key, ok := rnaColumns[col]
		if !ok {
			return nil, fmt.Errorf("%s: unknown column %s", name, col)
		}
		value := ""
		if i < len(values) {
			value = strings.TrimSpace(values[i])
		}

		switch {
		case value == "":
			m[key] = nil
		case strings.HasPrefix(col, "PCT") || strings.HasPrefix(col, "MEDIAN"):
			if value == "?" {
				slog.Warn("undefined metric value", "FILE", name, "COLUMN", col, "VALUE", value)
				m[key] = nil
				continue
			}
			f, err := strconv.ParseFloat(value, 64)
			if err != nil {
				return nil, fmt.Errorf("%s: column %s: %w", name, col, err)
			}
			m[key] = f
		default:
			n, err := strconv.ParseInt(value, 10, 64)
			if err != nil {
				return nil, fmt.Errorf("%s: column %s: %w", name, col, err)
			}
			m[key] = n
		}
	}
	return m, nil
}

func ParseRnaMetricsFile(path string) (Metrics, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return ParseRnaMetrics(f, path)
}
