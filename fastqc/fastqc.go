// Package fastqc reads the fastqc_data.txt file FastQC writes for every run.
package fastqc

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/samber/lo"
)

const (
	DataFile  = "fastqc_data.txt"
	endModule = ">>END_MODULE"
)

const (
	BasicStatistics           = "basic_statistics"
	PerBaseSequenceQuality    = "per_base_sequence_quality"
	PerSequenceQualityScores  = "per_sequence_quality_scores"
	PerBaseSequenceContent    = "per_base_sequence_content"
	PerBaseGCContent          = "per_base_gc_content"
	PerSequenceGCContent      = "per_sequence_gc_content"
	PerBaseNContent           = "per_base_n_content"
	SequenceLengthDistrib     = "sequence_length_distribution"
	SequenceDuplicationLevels = "sequence_duplication_levels"
	OverrepresentedSequences  = "overrepresented_sequences"
	KmerContent               = "kmer_content"
)

var moduleKeys = map[string]string{
	"Basic Statistics":             BasicStatistics,
	"Per base sequence quality":    PerBaseSequenceQuality,
	"Per sequence quality scores":  PerSequenceQualityScores,
	"Per base sequence content":    PerBaseSequenceContent,
	"Per base GC content":          PerBaseGCContent,
	"Per sequence GC content":      PerSequenceGCContent,
	"Per base N content":           PerBaseNContent,
	"Sequence Length Distribution": SequenceLengthDistrib,
	"Sequence Duplication Levels":  SequenceDuplicationLevels,
	"Overrepresented sequences":    OverrepresentedSequences,
	"Kmer content":                 KmerContent,
}

// ModuleKey gives the attribute key for a module name. Modules FastQC added
// after the known set get their name lower-cased with spaces as underscores.
func ModuleKey(name string) string {
	if k, ok := moduleKeys[name]; ok {
		return k
	}
	return strings.ReplaceAll(strings.ToLower(name), " ", "_")
}

type Module struct {
	Name    string
	Status  string
	Columns []string
	Rows    [][]string
}

// Column returns the values of the named column, or nil.
func (m *Module) Column(name string) []string {
	i := lo.IndexOf(m.Columns, name)
	if i < 0 {
		return nil
	}
	return lo.FilterMap(m.Rows, func(row []string, _ int) (string, bool) {
		if i < len(row) {
			return row[i], true
		}
		return "", false
	})
}

// KeyValues reads two-column rows as a map, as Basic Statistics is laid out.
func (m *Module) KeyValues() map[string]string {
	out := make(map[string]string, len(m.Rows))
	for _, row := range m.Rows {
		if len(row) >= 2 {
			out[row[0]] = row[1]
		}
	}
	return out
}

type FastQC struct {
	Path    string
	Version string
	Modules map[string]*Module
}

func (f *FastQC) Module(key string) (*Module, bool) {
	m, ok := f.Modules[key]
	return m, ok
}

func (f *FastQC) BasicStats() map[string]string {
	m, ok := f.Modules[BasicStatistics]
	if !ok {
		return map[string]string{}
	}
	return m.KeyValues()
}

func (f *FastQC) withStatus(status string) []string {
	names := lo.FilterMap(lo.Values(f.Modules), func(m *Module, _ int) (string, bool) {
		return m.Name, m.Status == status
	})
	sort.Strings(names)
	return names
}

func (f *FastQC) Passes() []string { return f.withStatus("pass") }
func (f *FastQC) Warns() []string  { return f.withStatus("warn") }
func (f *FastQC) Fails() []string  { return f.withStatus("fail") }

// Parse reads a FastQC data file. name is used in error messages and kept as
// Path.
func Parse(r io.Reader, name string) (*FastQC, error) {
	f := &FastQC{Path: name, Modules: make(map[string]*Module)}

	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)
	lineNo := 0
	next := func() (string, bool) {
		if !scanner.Scan() {
			return "", false
		}
		lineNo++
		return strings.TrimRight(scanner.Text(), "\r\n"), true
	}

	for {
		line, ok := next()
		if !ok {
			break
		}
		switch {
		case strings.HasPrefix(line, "##FastQC"):
			fields := strings.Fields(line)
			if len(fields) > 1 {
				f.Version = fields[1]
			}
		case strings.HasPrefix(line, ">>") && !strings.HasPrefix(line, endModule):
			tokens := strings.Split(strings.TrimSpace(line), "\t")
			m := &Module{Name: strings.TrimPrefix(tokens[0], ">>"), Status: tokens[len(tokens)-1]}
			switch m.Status {
			case "pass", "warn", "fail":
			default:
				return nil, fmt.Errorf("%s line %d: unknown module status %q", name, lineNo, m.Status)
			}
			start := lineNo
			first := true
			for {
				body, ok := next()
				if !ok {
					return nil, fmt.Errorf("%s: unexpected end of file in module %q starting at line %d", name, m.Name, start)
				}
				if strings.HasPrefix(body, endModule) {
					break
				}
				if first && strings.HasPrefix(body, "#") {
					m.Columns = strings.Split(strings.TrimSpace(body[1:]), "\t")
					first = false
					continue
				}
				first = false
				m.Rows = append(m.Rows, strings.Split(strings.TrimSpace(body), "\t"))
			}
			f.Modules[ModuleKey(m.Name)] = m
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("reading %s: %w", name, err)
	}
	return f, nil
}

func LoadFile(path string) (*FastQC, error) {
	fp, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer fp.Close()
	return Parse(fp, path)
}

// LoadFromDir loads a FastQC result given either the data file itself, a
// directory holding it, or an output directory whose first subdirectory
// holds it.
func LoadFromDir(path string) (*FastQC, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, err
	}
	if !info.IsDir() {
		return LoadFile(path)
	}
	if _, err := os.Stat(filepath.Join(path, DataFile)); err == nil {
		return LoadFile(filepath.Join(path, DataFile))
	}

	entries, err := os.ReadDir(path)
	if err != nil {
		return nil, err
	}
	for _, e := range entries {
		if e.IsDir() {
			return LoadFile(filepath.Join(path, e.Name(), DataFile))
		}
	}
	return nil, fmt.Errorf("no FastQC result directory in %s", path)
}
