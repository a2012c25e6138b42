// Package mpileup repairs samtools mpileup output for downstream callers.
package mpileup

import (
	"bufio"
	"fmt"
	"io"
	"regexp"
	"strconv"
	"strings"
)

var iupacCodes = regexp.MustCompile(`[RYKMSWBDHVrykmswbdhv]`)

type Options struct {
	// IUPAC replaces ambiguity codes in the reference column with N.
	IUPAC bool
	// IUPACOnly skips the read skip repair.
	IUPACOnly bool
}

// FixLine repairs one mpileup line. Read skips ('<' and '>') are removed from
// the bases column and the depth is set to what remains. Empty trailing
// columns of zero depth lines are kept.
func FixLine(line string, o Options) string {
	cols := strings.Split(strings.TrimRight(line, "\r\n"), "\t")
	if (o.IUPAC || o.IUPACOnly) && len(cols) > 2 {
		cols[2] = iupacCodes.ReplaceAllString(cols[2], "N")
	}
	if o.IUPACOnly || len(cols) < 5 || cols[3] == "0" {
		return strings.Join(cols, "\t")
	}

	fixed := strings.NewReplacer("<", "", ">", "").Replace(cols[4])
	if len(fixed) != len(cols[4]) {
		cols[4] = fixed
		cols[3] = strconv.Itoa(len(fixed))
	}
	if len(fixed) == 0 && len(cols) > 5 {
		cols[5] = ""
	}
	return strings.Join(cols, "\t")
}

func Fix(r io.Reader, w io.Writer, o Options) error {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 64*1024*1024)
	bw := bufio.NewWriter(w)
	for scanner.Scan() {
		if _, err := fmt.Fprintln(bw, FixLine(scanner.Text(), o)); err != nil {
			return err
		}
	}
	if err := scanner.Err(); err != nil {
		return fmt.Errorf("reading mpileup: %w", err)
	}
	return bw.Flush()
}
