package fastq

import (
	"fmt"
	"io"
	"strings"

	"github.com/biogo/biogo/alphabet"
	"github.com/biogo/biogo/io/seqio/fastq"
	"github.com/biogo/biogo/seq/linear"
)

const (
	DefaultPrefix = "CATG"
	prefixQual    = alphabet.Qphred(40)
)

// PrefixReads writes every read of r to w with prefix prepended to its
// sequence. Prefix bases get quality 40. It returns the number of reads
// written.
func PrefixReads(r io.Reader, w io.Writer, prefix string) (int, error) {
	if prefix == "" {
		return 0, fmt.Errorf("empty prefix")
	}
	if i := strings.IndexFunc(prefix, func(c rune) bool { return !strings.ContainsRune("ACGTNacgtn", c) }); i >= 0 {
		return 0, fmt.Errorf("prefix %q has non-nucleotide letter %q", prefix, prefix[i])
	}

	head := make(alphabet.QLetters, len(prefix))
	for i := range prefix {
		head[i] = alphabet.QLetter{L: alphabet.Letter(prefix[i]), Q: prefixQual}
	}

	fw := fastq.NewWriter(w)
	n := 0
	sc := NewScanner(r, alphabet.Sanger)
	for sc.Next() {
		s := sc.Seq().(*linear.QSeq)
		s.Seq = append(append(alphabet.QLetters{}, head...), s.Seq...)
		if _, err := fw.Write(s); err != nil {
			return n, fmt.Errorf("writing read %q: %w", s.Name(), err)
		}
		n++
	}
	if err := sc.Error(); err != nil {
		return n, fmt.Errorf("reading fastq: %w", err)
	}
	return n, nil
}
