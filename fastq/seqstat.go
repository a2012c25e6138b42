package fastq

import (
	"crypto/sha1"
	"encoding/hex"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"

	"github.com/biogo/biogo/alphabet"
	"github.com/biogo/biogo/io/seqio"
	"github.com/biogo/biogo/io/seqio/fastq"
	"github.com/biogo/biogo/seq/linear"

	"github.com/gmaffy/biopet-utils/utils"
)

// QualThresholds are the quality values base and read counts are reported for.
var QualThresholds = []int{1, 10, 20, 30, 40, 50, 60}

// Encoding maps a quality encoding name to its biogo decoder.
func Encoding(name string) (alphabet.Encoding, error) {
	switch name {
	case "sanger", "":
		return alphabet.Sanger, nil
	case "illumina":
		return alphabet.Illumina1_3, nil
	case "solexa":
		return alphabet.Solexa, nil
	}
	return alphabet.Sanger, fmt.Errorf("unknown quality encoding %q, want sanger, illumina or solexa", name)
}

// NewScanner reads FASTQ records from r, decoding qualities with enc.
func NewScanner(r io.Reader, enc alphabet.Encoding) *seqio.Scanner {
	t := linear.NewQSeq("", nil, alphabet.DNA, enc)
	return seqio.NewScanner(fastq.NewReader(r, t))
}

// SeqStat fields are declared in key order so the JSON comes out sorted.
type SeqStat struct {
	Files FileInfo  `json:"files"`
	Stats StatBlock `json:"stats"`
}

type FileInfo struct {
	Fastq struct {
		ChecksumSHA1 *string `json:"checksum_sha1"`
		Path         string  `json:"path"`
	} `json:"fastq"`
}

type StatBlock struct {
	Bases        BaseStats `json:"bases"`
	QualEncoding string    `json:"qual_encoding"`
	Reads        ReadStats `json:"reads"`
}

type BaseStats struct {
	NumN       int64            `json:"num_n"`
	NumQualGte map[string]int64 `json:"num_qual_gte"`
	NumTotal   int64            `json:"num_total"`
}

type ReadStats struct {
	LenMax         int              `json:"len_max"`
	LenMin         *int             `json:"len_min"`
	NumMeanQualGte map[string]int64 `json:"num_mean_qual_gte"`
	NumTotal       int64            `json:"num_total"`
	NumWithN       int64            `json:"num_with_n"`
}

// GatherStats counts base and read qualities, read lengths and N content of
// one FASTQ stream. The mean quality of a read is the floored integer mean.
func GatherStats(r io.Reader, encName string) (*SeqStat, error) {
	enc, err := Encoding(encName)
	if err != nil {
		return nil, err
	}

	baseCounts := make([]int64, len(QualThresholds))
	readCounts := make([]int64, len(QualThresholds))
	st := &SeqStat{}
	st.Stats.QualEncoding = encName

	sc := NewScanner(r, enc)
	for sc.Next() {
		s := sc.Seq().(*linear.QSeq)
		readLen := len(s.Seq)
		if readLen == 0 {
			return nil, fmt.Errorf("read %q has no bases", s.Name())
		}

		var sum, nCount int
		for _, ql := range s.Seq {
			q := int(ql.Q)
			sum += q
			for i, t := range QualThresholds {
				if q >= t {
					baseCounts[i]++
				}
			}
			if ql.L == 'n' || ql.L == 'N' {
				nCount++
			}
		}
		avg := sum / readLen
		for i, t := range QualThresholds {
			if avg >= t {
				readCounts[i]++
			}
		}

		rs := &st.Stats.Reads
		if readLen > rs.LenMax {
			rs.LenMax = readLen
		}
		if rs.LenMin == nil || readLen < *rs.LenMin {
			l := readLen
			rs.LenMin = &l
		}
		st.Stats.Bases.NumN += int64(nCount)
		if nCount > 0 {
			rs.NumWithN++
		}
		st.Stats.Bases.NumTotal += int64(readLen)
		rs.NumTotal++
	}
	if err := sc.Error(); err != nil {
		return nil, fmt.Errorf("reading fastq: %w", err)
	}

	st.Stats.Bases.NumQualGte = make(map[string]int64, len(QualThresholds))
	st.Stats.Reads.NumMeanQualGte = make(map[string]int64, len(QualThresholds))
	for i, t := range QualThresholds {
		st.Stats.Bases.NumQualGte[strconv.Itoa(t)] = baseCounts[i]
		st.Stats.Reads.NumMeanQualGte[strconv.Itoa(t)] = readCounts[i]
	}
	return st, nil
}

// SeqStatFile runs GatherStats on a file and records its absolute path, and
// its SHA-1 when withSHA1 is set.
func SeqStatFile(path, encName string, withSHA1 bool) (*SeqStat, error) {
	in, err := utils.OpenInput(path)
	if err != nil {
		return nil, err
	}
	defer in.Close()

	st, err := GatherStats(in, encName)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	if path != "-" {
		if abs, err := filepath.Abs(path); err == nil {
			path = abs
		}
	}
	st.Files.Fastq.Path = path

	if withSHA1 && path != "-" {
		sum, err := fileSHA1(path)
		if err != nil {
			return nil, err
		}
		st.Files.Fastq.ChecksumSHA1 = &sum
	}
	return st, nil
}

func fileSHA1(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()
	h := sha1.New()
	if _, err := io.Copy(h, f); err != nil {
		return "", fmt.Errorf("hashing %s: %w", path, err)
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}
