package bamstats

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/biogo/hts/bam"
	"github.com/biogo/hts/sam"
)

const (
	ReconditionID      = "TopHat-Recondition"
	ReconditionVersion = "0.3"
	MappedFile         = "accepted_hits.bam"
	UnmappedFile       = "unmapped.bam"
	FixupFile          = "unmapped_fixup.sam"
)

type mateInfo struct {
	ref string
	pos int
}

func readAll(path string) (*sam.Header, []*sam.Record, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, nil, err
	}
	defer f.Close()
	br, err := bam.NewReader(f, 0)
	if err != nil {
		return nil, nil, fmt.Errorf("opening %s: %w", path, err)
	}
	defer br.Close()

	var recs []*sam.Record
	for {
		r, err := br.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, nil, fmt.Errorf("reading %s: %w", path, err)
		}
		recs = append(recs, r)
	}
	return br.Header(), recs, nil
}

// mappedMates indexes the mapped reads whose mate is unmapped by name. The
// last alignment of a name wins.
func mappedMates(path string) (map[string]mateInfo, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	br, err := bam.NewReader(f, 0)
	if err != nil {
		return nil, fmt.Errorf("opening %s: %w", path, err)
	}
	defer br.Close()
	br.Omit(bam.AllVariableLengthData)

	mates := make(map[string]mateInfo)
	for {
		r, err := br.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("reading %s: %w", path, err)
		}
		if r.Flags&sam.MateUnmapped != 0 && r.Flags&sam.Unmapped == 0 {
			mates[r.Name] = mateInfo{ref: r.Ref.Name(), pos: r.Pos}
		}
	}
	return mates, nil
}

func stripPairSuffix(name string) string {
	if strings.Contains(name, "/") && len(name) >= 2 {
		return name[:len(name)-2]
	}
	return name
}

// Recondition rewrites TopHat's unmapped.bam so downstream tools accept it:
// pair suffixes are dropped, MAPQ is zeroed, pairs that are both unmapped get
// the mate-unmapped flag, and reads with a mapped mate are placed at the
// mate's position when the mate's reference is in the unmapped header. The
// result is written as SAM to outDir.
func Recondition(tophatDir, outDir, cmdline string) (string, error) {
	h, unmapped, err := readAll(filepath.Join(tophatDir, UnmappedFile))
	if err != nil {
		return "", err
	}

	seen := make(map[string]int)
	last := make(map[string]int)
	for i, r := range unmapped {
		r.Name = stripPairSuffix(r.Name)
		r.MapQ = 0
		seen[r.Name]++
		last[r.Name] = i
	}
	for _, r := range unmapped {
		if seen[r.Name] > 1 {
			r.Flags |= sam.MateUnmapped
		}
	}

	mates, err := mappedMates(filepath.Join(tophatDir, MappedFile))
	if err != nil {
		return "", err
	}
	refs := make(map[string]*sam.Reference)
	for _, ref := range h.Refs() {
		refs[ref.Name()] = ref
	}
	fixed := 0
	for name, m := range mates {
		i, ok := last[name]
		if !ok {
			continue
		}
		r := unmapped[i]
		ref := refs[m.ref]
		if ref == nil {
			// left unplaced; a position without a reference is not valid SAM
			slog.Warn("TOPHAT RECONDITION", "READ", name, "STATUS", "reference missing from unmapped header", "REF", m.ref)
			continue
		}
		r.Ref, r.MateRef = ref, ref
		r.Pos = m.pos
		r.MatePos = 0
		fixed++
	}

	if err := h.AddProgram(sam.NewProgram(ReconditionID, ReconditionID, cmdline, "", ReconditionVersion)); err != nil {
		return "", fmt.Errorf("adding @PG line: %w", err)
	}

	outPath := filepath.Join(outDir, FixupFile)
	out, err := os.Create(outPath)
	if err != nil {
		return "", err
	}
	sw, err := sam.NewWriter(out, h, sam.FlagDecimal)
	if err != nil {
		out.Close()
		return "", fmt.Errorf("writing %s: %w", outPath, err)
	}
	for _, r := range unmapped {
		if err := sw.Write(r); err != nil {
			out.Close()
			return "", fmt.Errorf("writing %s: %w", outPath, err)
		}
	}
	slog.Info("TOPHAT RECONDITION", "READS", len(unmapped), "MATES_PLACED", fixed, "OUTPUT", outPath)
	return outPath, out.Close()
}
