// Package bamstats counts and repairs alignments in BAM files.
package bamstats

import (
	"errors"
	"fmt"
	"hash/fnv"
	"io"
	"os"

	"github.com/biogo/hts/bam"
	"github.com/biogo/hts/sam"

	"github.com/gmaffy/biopet-utils/utils"
)

// Flag is a read or alignment category counted by bamRna.
type Flag int

const (
	Total Flag = iota
	Unmapped
	Mapped
	MappedPair
	MappedPairProper
	MappedDiffChr
	MappedDiffChrQ
	Singleton
	TotalSplice
	SplicePairProper
	SpliceSingleton
	numFlags
)

var flagNames = [numFlags]string{
	"total", "unmapped", "mapped", "mappedPair", "mappedPairProper", "mappedDiffChr",
	"mappedDiffChrQ", "singleton", "totalSplice", "splicePairProper", "spliceSingleton",
}

func (f Flag) String() string { return flagNames[f] }

// minDiffChrMapQ is the MAPQ a pair on different chromosomes needs to count
// as mappedDiffChrQ.
const minDiffChrMapQ = 5

// Counts holds one tally per Flag.
type Counts [numFlags]int64

func isSpliced(r *sam.Record) bool {
	for _, co := range r.Cigar {
		if co.Type() == sam.CigarSkipped {
			return true
		}
	}
	return false
}

// Classify returns the categories an alignment record falls in.
func Classify(r *sam.Record) []Flag {
	flags := []Flag{Total}
	spliced := isSpliced(r)
	if spliced {
		flags = append(flags, TotalSplice)
	}

	switch {
	case r.Flags&sam.Unmapped != 0 && r.Flags&sam.MateUnmapped != 0:
		flags = append(flags, Unmapped)
	case r.Flags&sam.Unmapped == 0:
		flags = append(flags, Mapped)
		switch {
		case r.Flags&sam.MateUnmapped == 0:
			flags = append(flags, MappedPair)
			if r.Flags&sam.ProperPair != 0 {
				flags = append(flags, MappedPairProper)
				if spliced {
					flags = append(flags, SplicePairProper)
				}
			} else if r.MateRef.ID() != r.Ref.ID() {
				flags = append(flags, MappedDiffChr)
				if r.MapQ >= minDiffChrMapQ {
					flags = append(flags, MappedDiffChrQ)
				}
			}
		default:
			flags = append(flags, Singleton)
			if spliced {
				flags = append(flags, SpliceSingleton)
			}
		}
	}
	return flags
}

// RnaStats holds alignment counts, the counts of QC-failed alignments and
// the counts of distinct reads.
type RnaStats struct {
	Aln   Counts
	AlnQC Counts
	Read  Counts
}

type readCounter interface {
	add(name string, flags []Flag)
	counts() Counts
}

// sortedReads counts each flag once per run of equal read names.
type sortedReads struct {
	cur   string
	begun bool
	seen  [numFlags]bool
	total Counts
}

func (s *sortedReads) flush() {
	for i, hit := range s.seen {
		if hit {
			s.total[i]++
		}
	}
	s.seen = [numFlags]bool{}
}

func (s *sortedReads) add(name string, flags []Flag) {
	if !s.begun || name != s.cur {
		s.flush()
		s.cur, s.begun = name, true
	}
	for _, f := range flags {
		s.seen[f] = true
	}
}

func (s *sortedReads) counts() Counts {
	s.flush()
	return s.total
}

// hashedReads keeps a set of name hashes per flag.
type hashedReads struct {
	sets [numFlags]map[uint64]struct{}
}

func newHashedReads() *hashedReads {
	h := &hashedReads{}
	for i := range h.sets {
		h.sets[i] = make(map[uint64]struct{})
	}
	return h
}

func (h *hashedReads) add(name string, flags []Flag) {
	f := fnv.New64a()
	f.Write([]byte(name))
	key := f.Sum64()
	for _, fl := range flags {
		h.sets[fl][key] = struct{}{}
	}
}

func (h *hashedReads) counts() Counts {
	var c Counts
	for i, s := range h.sets {
		c[i] = int64(len(s))
	}
	return c
}

// trimName drops the last suffixLen characters of a read name, e.g. "/1".
func trimName(name string, suffixLen int) string {
	if suffixLen <= 0 {
		return name
	}
	if len(name) <= suffixLen {
		return ""
	}
	return name[:len(name)-suffixLen]
}

// CountRna tallies the records of a BAM stream. With idSorted the reads are
// expected grouped by name; otherwise distinct names are tracked by hash.
func CountRna(r io.Reader, suffixLen int, idSorted bool) (*RnaStats, error) {
	br, err := bam.NewReader(r, 0)
	if err != nil {
		return nil, fmt.Errorf("opening bam: %w", err)
	}
	defer br.Close()
	br.Omit(bam.AuxTags)

	var reads readCounter
	if idSorted {
		reads = &sortedReads{}
	} else {
		reads = newHashedReads()
	}

	st := &RnaStats{}
	for {
		rec, err := br.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("reading bam: %w", err)
		}
		flags := Classify(rec)
		qc := rec.Flags&sam.QCFail != 0
		for _, f := range flags {
			st.Aln[f]++
			if qc {
				st.AlnQC[f]++
			}
		}
		reads.add(trimName(rec.Name, suffixLen), flags)
	}
	st.Read = reads.counts()

	// the unmapped mates of singletons are not counted as unmapped pairs
	st.Aln[Unmapped] += st.Read[Singleton]
	return st, nil
}

// CountRnaFile runs CountRna on the BAM file at path.
func CountRnaFile(path string, suffixLen int, idSorted bool) (*RnaStats, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	st, err := CountRna(f, suffixLen, idSorted)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return st, nil
}

// Validate checks that the counts of both levels add up.
func (s *RnaStats) Validate() error {
	for _, lvl := range []struct {
		name string
		c    Counts
	}{{"read", s.Read}, {"aln", s.Aln}} {
		c := lvl.c
		if c[Mapped] != c[MappedPair]+c[Singleton] {
			return fmt.Errorf("%s: mapped %d != pairs %d + singletons %d", lvl.name, c[Mapped], c[MappedPair], c[Singleton])
		}
		if c[MappedPairProper]+c[MappedDiffChr] > c[MappedPair] {
			return fmt.Errorf("%s: proper %d + different chromosomes %d > pairs %d", lvl.name, c[MappedPairProper], c[MappedDiffChr], c[MappedPair])
		}
		if c[TotalSplice] > c[Total] {
			return fmt.Errorf("%s: spliced %d > total %d", lvl.name, c[TotalSplice], c[Total])
		}
		if c[SplicePairProper] > c[MappedPairProper] || c[SpliceSingleton] > c[Singleton] {
			return fmt.Errorf("%s: spliced subsets exceed their totals", lvl.name)
		}
		if c[SplicePairProper]+c[SpliceSingleton] > c[TotalSplice] {
			return fmt.Errorf("%s: spliced proper %d + spliced singletons %d > spliced %d", lvl.name, c[SplicePairProper], c[SpliceSingleton], c[TotalSplice])
		}
	}
	return nil
}

func formatCounts(c Counts, withPct bool) map[string]string {
	out := make(map[string]string, 2*numFlags)
	for i := Flag(0); i < numFlags; i++ {
		out[i.String()] = utils.NiceInt(c[i])
		if !withPct {
			continue
		}
		if i == Total {
			out["totalPct"] = "100"
			continue
		}
		pct := 0.0
		if c[Total] > 0 {
			pct = float64(c[i]) * 100 / float64(c[Total])
		}
		out[i.String()+"Pct"] = utils.NiceFloat(pct)
	}
	return out
}

// Report gives the counts as grouped-number strings, with percentages of the
// total for the read and alignment levels.
func (s *RnaStats) Report() map[string]map[string]string {
	return map[string]map[string]string{
		"read":   formatCounts(s.Read, true),
		"aln":    formatCounts(s.Aln, true),
		"aln_qc": formatCounts(s.AlnQC, false),
	}
}
