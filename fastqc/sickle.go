package fastqc

import (
	"fmt"
	"io"
	"sort"
	"strings"
)

type SickleEncoding struct {
	Name   string
	Offset int
}

// sickleEncodings maps FastQC's PhredEncoding names to sickle's quality types.
var sickleEncodings = map[string]SickleEncoding{
	"Sanger / Illumina 1.9": {"sanger", 33},
	"Illumina <1.3":         {"solexa", 59},
	"Illumina 1.3":          {"illumina", 64},
	"Illumina 1.5":          {"illumina", 64},
}

// SickleQualType returns the sickle quality type of a FastQC run. A non-empty
// force picks the type by sickle name instead.
func SickleQualType(f *FastQC, force string) (SickleEncoding, error) {
	if force != "" {
		for _, enc := range sickleEncodings {
			if enc.Name == force {
				return enc, nil
			}
		}
		return SickleEncoding{}, fmt.Errorf("unknown sickle quality type %q", force)
	}

	encoding, ok := f.BasicStats()["Encoding"]
	if !ok {
		return SickleEncoding{}, fmt.Errorf("%s: no Encoding in Basic Statistics", f.Path)
	}
	enc, ok := sickleEncodings[encoding]
	if !ok {
		return SickleEncoding{}, fmt.Errorf("%s: unknown FastQC encoding %q", f.Path, encoding)
	}
	return enc, nil
}

// Contaminants reads a "name<TAB>sequence" file. Comment and blank lines are
// skipped.
func Contaminants(r io.Reader) (map[string]string, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}
	out := make(map[string]string)
	for i, line := range strings.Split(string(data), "\n") {
		if strings.HasPrefix(line, "#") {
			continue
		}
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		fields := strings.FieldsFunc(line, func(c rune) bool { return c == '\t' })
		if len(fields) != 2 {
			return nil, fmt.Errorf("line %d: expected name and sequence, got %d fields", i+1, len(fields))
		}
		out[fields[0]] = fields[1]
	}
	return out, nil
}

type Contaminant struct {
	Name     string
	Sequence string
}

// PresentContaminants returns the contaminants named as the possible source
// of an overrepresented sequence, sorted by name.
func PresentContaminants(f *FastQC, contams map[string]string) []Contaminant {
	var sources []string
	if m, ok := f.Module(OverrepresentedSequences); ok {
		for _, row := range m.Rows {
			if len(row) > 3 {
				sources = append(sources, row[3])
			}
		}
	}

	var present []Contaminant
	for name, seq := range contams {
		for _, src := range sources {
			if strings.HasPrefix(src, name) {
				present = append(present, Contaminant{name, seq})
				break
			}
		}
	}
	sort.Slice(present, func(i, j int) bool { return present[i].Name < present[j].Name })
	return present
}

func WriteContaminants(w io.Writer, cs []Contaminant, seqOnly bool) error {
	for _, c := range cs {
		var err error
		if seqOnly {
			_, err = fmt.Fprintln(w, c.Sequence)
		} else {
			_, err = fmt.Fprintf(w, "%s\t%s\n", c.Name, c.Sequence)
		}
		if err != nil {
			return err
		}
	}
	return nil
}
