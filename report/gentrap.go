// Package report renders run summaries into LaTeX and documentation pages.
package report

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/mitchellh/mapstructure"

	"github.com/gmaffy/biopet-utils/fastqc"
	"github.com/gmaffy/biopet-utils/utils"
)

// FastQC result keys in the flexiprep files section, mapped to the name used
// by templates.
var fastqcRoles = map[string]string{
	"fastqc_R1":    "R1",
	"fastqc_R2":    "R2",
	"fastqc_R1_qc": "R1_qc",
	"fastqc_R2_qc": "R2_qc",
}

// FileEntry is one file of a summary files section. Only the path is read.
type FileEntry struct {
	Path string `mapstructure:"path"`
}

type FlexiprepSettings struct {
	SkipClip bool `mapstructure:"skip_clip"`
	SkipTrim bool `mapstructure:"skip_trim"`
	Paired   bool `mapstructure:"paired"`
}

type libraryDoc struct {
	Flexiprep struct {
		Settings FlexiprepSettings `mapstructure:"settings"`
		Files    map[string]any    `mapstructure:"files"`
	} `mapstructure:"flexiprep"`
}

type summaryDoc struct {
	Samples map[string]struct {
		Libraries map[string]libraryDoc `mapstructure:"libraries"`
	} `mapstructure:"samples"`
	Gentrap struct {
		Files       map[string]any `mapstructure:"files"`
		Executables map[string]any `mapstructure:"executables"`
		Settings    map[string]any `mapstructure:"settings"`
	} `mapstructure:"gentrap"`
}

type Library struct {
	Name      string
	Sample    string
	Clipping  bool
	Trimming  bool
	PairedEnd bool
	// Files holds the flexiprep files section as found in the summary.
	Files map[string]any
	// FastQC is keyed by R1, R2, R1_qc and R2_qc.
	FastQC map[string]*fastqc.FastQC
}

type Sample struct {
	Name     string
	LibNames []string
	Libs     map[string]*Library
}

type Run struct {
	SummaryFile string
	SampleNames []string
	Samples     map[string]*Sample
	Files       map[string]any
	Executables map[string]any
	Settings    map[string]any
	Version     string
	Logo        string
}

// LoadRun reads a Gentrap summary JSON file and the FastQC results it
// points at.
func LoadRun(path, logo string) (*Run, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var raw map[string]any
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("parsing %s: %w", path, err)
	}
	run, err := DecodeRun(raw)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	run.SummaryFile = path
	run.Logo = logo
	return run, nil
}

// DecodeRun builds a Run from a decoded summary document.
func DecodeRun(raw map[string]any) (*Run, error) {
	var doc summaryDoc
	if err := mapstructure.Decode(raw, &doc); err != nil {
		return nil, fmt.Errorf("decoding summary: %w", err)
	}
	if doc.Samples == nil {
		return nil, fmt.Errorf("summary has no samples section")
	}
	if doc.Gentrap.Settings == nil {
		return nil, fmt.Errorf("summary has no gentrap settings")
	}
	version, ok := doc.Gentrap.Settings["version"]
	if !ok {
		return nil, fmt.Errorf("gentrap settings have no version")
	}

	run := &Run{
		SampleNames: utils.SortedKeys(doc.Samples),
		Samples:     make(map[string]*Sample, len(doc.Samples)),
		Files:       doc.Gentrap.Files,
		Executables: doc.Gentrap.Executables,
		Settings:    doc.Gentrap.Settings,
		Version:     fmt.Sprint(version),
	}
	for _, name := range run.SampleNames {
		libs := doc.Samples[name].Libraries
		s := &Sample{Name: name, LibNames: utils.SortedKeys(libs), Libs: make(map[string]*Library, len(libs))}
		for _, lib := range s.LibNames {
			l, err := newLibrary(name, lib, libs[lib])
			if err != nil {
				return nil, err
			}
			s.Libs[lib] = l
		}
		run.Samples[name] = s
	}
	return run, nil
}

func newLibrary(sample, name string, doc libraryDoc) (*Library, error) {
	settings := doc.Flexiprep.Settings
	l := &Library{
		Name:      name,
		Sample:    sample,
		Clipping:  !settings.SkipClip,
		Trimming:  !settings.SkipTrim,
		PairedEnd: settings.Paired,
		Files:     doc.Flexiprep.Files,
		FastQC:    make(map[string]*fastqc.FastQC),
	}
	for key, role := range fastqcRoles {
		section, ok := doc.Flexiprep.Files[key]
		if !ok {
			continue
		}
		var files map[string]FileEntry
		if err := mapstructure.Decode(section, &files); err != nil {
			return nil, fmt.Errorf("sample %s library %s: %s: %w", sample, name, key, err)
		}
		entry, ok := files["fastqc_data"]
		if !ok || entry.Path == "" {
			return nil, fmt.Errorf("sample %s library %s: %s has no fastqc_data path", sample, name, key)
		}
		f, err := fastqc.LoadFile(entry.Path)
		if err != nil {
			return nil, fmt.Errorf("sample %s library %s: %w", sample, name, err)
		}
		l.FastQC[role] = f
	}
	return l, nil
}
