package bamstats

import (
	"bytes"
	"errors"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/biogo/hts/bam"
	"github.com/biogo/hts/sam"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	plain   = []sam.CigarOp{sam.NewCigarOp(sam.CigarMatch, 4)}
	spliced = []sam.CigarOp{
		sam.NewCigarOp(sam.CigarMatch, 2),
		sam.NewCigarOp(sam.CigarSkipped, 10),
		sam.NewCigarOp(sam.CigarMatch, 2),
	}
)

func newHeader(t *testing.T) *sam.Header {
	a, err := sam.NewReference("chr1", "", "", 10000, nil, nil)
	require.NoError(t, err)
	b, err := sam.NewReference("chr2", "", "", 10000, nil, nil)
	require.NoError(t, err)
	h, err := sam.NewHeader(nil, []*sam.Reference{a, b})
	require.NoError(t, err)
	return h
}

func rec(name string, flags sam.Flags, ref *sam.Reference, pos int, mate *sam.Reference, mapq byte, cigar []sam.CigarOp) *sam.Record {
	if ref == nil {
		pos = -1
	}
	return &sam.Record{
		Name:    name,
		Ref:     ref,
		Pos:     pos,
		MateRef: mate,
		MatePos: -1,
		MapQ:    mapq,
		Flags:   flags,
		Cigar:   cigar,
		Seq:     sam.NewSeq([]byte("ACGT")),
		Qual:    []byte{30, 30, 30, 30},
	}
}

func writeBAM(t *testing.T, w io.Writer, h *sam.Header, recs []*sam.Record) {
	bw, err := bam.NewWriter(w, h, 1)
	require.NoError(t, err)
	for _, r := range recs {
		require.NoError(t, bw.Write(r))
	}
	require.NoError(t, bw.Close())
}

func rnaRecords(h *sam.Header) []*sam.Record {
	const pp = sam.Paired | sam.ProperPair
	chr1, chr2 := h.Refs()[0], h.Refs()[1]
	return []*sam.Record{
		rec("p1/1", pp|sam.Read1, chr1, 100, chr1, 60, plain),
		rec("p1/2", pp|sam.Read2, chr1, 300, chr1, 60, spliced),
		rec("d1/1", sam.Paired|sam.Read1, chr1, 500, chr2, 10, plain),
		rec("d1/2", sam.Paired|sam.Read2, chr2, 500, chr1, 3, plain),
		rec("s1/1", sam.Paired|sam.MateUnmapped|sam.Read1, chr1, 700, chr1, 60, spliced),
		rec("s1/2", sam.Paired|sam.Unmapped|sam.Read2, chr1, 700, chr1, 0, nil),
		rec("u1/1", sam.Paired|sam.Unmapped|sam.MateUnmapped|sam.Read1|sam.QCFail, nil, 0, nil, 0, nil),
		rec("u1/2", sam.Paired|sam.Unmapped|sam.MateUnmapped|sam.Read2, nil, 0, nil, 0, nil),
	}
}

func TestClassify(t *testing.T) {
	recs := rnaRecords(newHeader(t))
	assert.Equal(t, []Flag{Total, Mapped, MappedPair, MappedPairProper}, Classify(recs[0]))
	assert.Equal(t, []Flag{Total, TotalSplice, Mapped, MappedPair, MappedPairProper, SplicePairProper}, Classify(recs[1]))
	assert.Equal(t, []Flag{Total, Mapped, MappedPair, MappedDiffChr, MappedDiffChrQ}, Classify(recs[2]))
	assert.Equal(t, []Flag{Total, Mapped, MappedPair, MappedDiffChr}, Classify(recs[3]))
	assert.Equal(t, []Flag{Total, TotalSplice, Mapped, Singleton, SpliceSingleton}, Classify(recs[4]))
	assert.Equal(t, []Flag{Total}, Classify(recs[5]))
	assert.Equal(t, []Flag{Total, Unmapped}, Classify(recs[6]))
}

func TestCountRna(t *testing.T) {
	for _, idSorted := range []bool{true, false} {
		var buf bytes.Buffer
		h := newHeader(t)
		writeBAM(t, &buf, h, rnaRecords(h))

		st, err := CountRna(&buf, 2, idSorted)
		require.NoError(t, err)

		assert.Equal(t, Counts{8, 3, 5, 4, 2, 2, 1, 1, 2, 1, 1}, st.Aln, "idSorted=%v", idSorted)
		assert.Equal(t, Counts{4, 1, 3, 2, 1, 1, 1, 1, 2, 1, 1}, st.Read, "idSorted=%v", idSorted)
		assert.Equal(t, Counts{1, 1}, st.AlnQC, "idSorted=%v", idSorted)
		assert.NoError(t, st.Validate())

		rep := st.Report()
		assert.Equal(t, "100", rep["read"]["totalPct"])
		assert.Equal(t, "75.00", rep["read"]["mappedPct"])
		assert.Equal(t, "8", rep["aln"]["total"])
		assert.Equal(t, "62.50", rep["aln"]["mappedPct"])
		assert.NotContains(t, rep["aln_qc"], "totalPct")
		assert.Equal(t, "1", rep["aln_qc"]["unmapped"])
	}
}

func TestCountRnaWithoutSuffixTrim(t *testing.T) {
	var buf bytes.Buffer
	h := newHeader(t)
	writeBAM(t, &buf, h, rnaRecords(h))

	st, err := CountRna(&buf, 0, false)
	require.NoError(t, err)
	assert.EqualValues(t, 8, st.Read[Total])
}

func TestValidateFails(t *testing.T) {
	st := &RnaStats{}
	st.Aln[Mapped] = 3
	st.Aln[MappedPair] = 1
	assert.ErrorContains(t, st.Validate(), "aln: mapped 3")
}

func TestRecondition(t *testing.T) {
	dir := t.TempDir()

	uh := newHeader(t)
	unmapped := []*sam.Record{
		rec("a/1", sam.Paired|sam.Unmapped|sam.Read1, nil, 0, nil, 255, nil),
		rec("b/1", sam.Paired|sam.Unmapped|sam.Read1, nil, 0, nil, 255, nil),
		rec("b/2", sam.Paired|sam.Unmapped|sam.Read2, nil, 0, nil, 255, nil),
	}
	f, err := os.Create(filepath.Join(dir, UnmappedFile))
	require.NoError(t, err)
	writeBAM(t, f, uh, unmapped)
	require.NoError(t, f.Close())

	mh := newHeader(t)
	mapped := []*sam.Record{
		rec("a", sam.Paired|sam.MateUnmapped|sam.Read2, mh.Refs()[1], 500, mh.Refs()[1], 60, plain),
		rec("c", sam.Paired|sam.ProperPair|sam.Read1, mh.Refs()[0], 10, mh.Refs()[0], 60, plain),
	}
	f, err = os.Create(filepath.Join(dir, MappedFile))
	require.NoError(t, err)
	writeBAM(t, f, mh, mapped)
	require.NoError(t, f.Close())

	out, err := Recondition(dir, dir, "biopet-utils tophatRecondition "+dir)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, FixupFile), out)

	data, err := os.ReadFile(out)
	require.NoError(t, err)
	assert.Contains(t, string(data), "@PG\tID:TopHat-Recondition")

	sr, err := sam.NewReader(bytes.NewReader(data))
	require.NoError(t, err)
	var got []*sam.Record
	for {
		r, err := sr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		require.NoError(t, err)
		got = append(got, r)
	}
	require.Len(t, got, 3)

	a := got[0]
	assert.Equal(t, "a", a.Name)
	assert.Equal(t, "chr2", a.Ref.Name())
	assert.Equal(t, "chr2", a.MateRef.Name())
	assert.Equal(t, 500, a.Pos)
	assert.Equal(t, 0, a.MatePos)
	assert.Zero(t, a.MapQ)
	assert.Zero(t, a.Flags&sam.MateUnmapped)

	for _, b := range got[1:] {
		assert.Equal(t, "b", b.Name)
		assert.NotZero(t, b.Flags&sam.MateUnmapped)
		assert.Nil(t, b.Ref)
	}
}

func TestReconditionMissingMateReference(t *testing.T) {
	dir := t.TempDir()

	uh := newHeader(t)
	f, err := os.Create(filepath.Join(dir, UnmappedFile))
	require.NoError(t, err)
	writeBAM(t, f, uh, []*sam.Record{rec("a/1", sam.Paired|sam.Unmapped|sam.Read1, nil, 0, nil, 255, nil)})
	require.NoError(t, f.Close())

	chrM, err := sam.NewReference("chrM", "", "", 16569, nil, nil)
	require.NoError(t, err)
	mh, err := sam.NewHeader(nil, []*sam.Reference{chrM})
	require.NoError(t, err)
	f, err = os.Create(filepath.Join(dir, MappedFile))
	require.NoError(t, err)
	writeBAM(t, f, mh, []*sam.Record{rec("a", sam.Paired|sam.MateUnmapped|sam.Read2, chrM, 42, chrM, 60, plain)})
	require.NoError(t, f.Close())

	out, err := Recondition(dir, dir, "biopet-utils tophatRecondition "+dir)
	require.NoError(t, err)
	data, err := os.ReadFile(out)
	require.NoError(t, err)

	sr, err := sam.NewReader(bytes.NewReader(data))
	require.NoError(t, err)
	r, err := sr.Read()
	require.NoError(t, err)
	assert.Equal(t, "a", r.Name)
	assert.Nil(t, r.Ref)
	assert.Equal(t, -1, r.Pos)
	assert.Zero(t, r.MapQ)
}
