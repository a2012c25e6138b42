package vcf

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const calls = `#Software: 1.4.5
#Command: breakdancer-max cfg
#Chr1	Pos1	Orientation1	Chr2	Pos2	Orientation2	Type	Size	Score	num_Reads	num_Reads_lib	s.bam
2	500	3+3-	2	900	3+3-	DEL	400	99	3	s.bam|3	NA
1	20000	5+5-	1	21000	5+5-	INV	1000	80	5	s.bam|5	NA
1	3000	2+2-	X	7000	2+2-	CTX	-300	60	2	s.bam|2	NA
`

func TestBreakdancerRecords(t *testing.T) {
	recs, err := BreakdancerRecords(strings.NewReader(calls))
	require.NoError(t, err)
	require.Len(t, recs, 3)

	assert.Equal(t, "1", recs[0].Chrom)
	assert.Equal(t, 3000, recs[0].Pos)
	assert.Equal(t, "N[X:7000[", recs[0].Alt)
	assert.Equal(t, "SVMETHOD=breakdancer;SVTYPE=CTX", recs[0].Info)

	assert.Equal(t, 20000, recs[1].Pos)
	assert.Equal(t, "1\t20000\t.\tN\t<INV>\t.\tPASS\tSVMETHOD=breakdancer;SVTYPE=INV;SVLEN=1000;SVEND=21000;END=21000\tGT:DP\t1/.:5",
		recs[1].String())

	assert.Equal(t, "2", recs[2].Chrom)
}

func TestBreakdancerNumericPositionOrder(t *testing.T) {
	in := "#Chr1\tPos1\tChr2\tPos2\tType\tSize\tnum_Reads\n" +
		"1\t900\t1\t950\tDEL\t50\t1\n" +
		"1\t10000\t1\t10050\tDEL\t50\t1\n"
	recs, err := BreakdancerRecords(strings.NewReader(in))
	require.NoError(t, err)
	assert.Equal(t, 900, recs[0].Pos)
	assert.Equal(t, 10000, recs[1].Pos)
}

func TestBreakdancer2VCF(t *testing.T) {
	var out bytes.Buffer
	date := time.Date(2015, 3, 18, 0, 0, 0, 0, time.UTC)
	require.NoError(t, Breakdancer2VCF(strings.NewReader(calls), &out, "", date))

	text := out.String()
	assert.True(t, strings.HasPrefix(text, "##fileformat=VCFv4.2\n##fileDate=20150318\n"))
	assert.Contains(t, text, "##ALT=<ID=CTX,")
	assert.Contains(t, text, "#CHROM\tPOS\tID\tREF\tALT\tQUAL\tFILTER\tINFO\tFORMAT\tSAMPLE\n")
	assert.True(t, strings.HasSuffix(text, "\tGT:DP\t1/.:3\n"))
}

func TestBreakdancerNoCalls(t *testing.T) {
	in := "#Software: 1.4.5\n#Chr1\tPos1\tOrientation1\tChr2\tPos2\tOrientation2\tType\tSize\tScore\tnum_Reads\tnum_Reads_lib\n"
	recs, err := BreakdancerRecords(strings.NewReader(in))
	require.NoError(t, err)
	assert.Empty(t, recs)

	var out bytes.Buffer
	date := time.Date(2015, 3, 18, 0, 0, 0, 0, time.UTC)
	require.NoError(t, Breakdancer2VCF(strings.NewReader(in), &out, "s1", date))
	assert.True(t, strings.HasPrefix(out.String(), "##fileformat=VCFv4.2\n"))
	assert.True(t, strings.HasSuffix(out.String(), "#CHROM\tPOS\tID\tREF\tALT\tQUAL\tFILTER\tINFO\tFORMAT\ts1\n"))
}

func TestBreakdancerRaggedRows(t *testing.T) {
	in := "#Chr1\tPos1\tChr2\tPos2\tType\tSize\tnum_Reads\tnum_Reads_lib\n" +
		"1\t900\t1\t950\tDEL\t50\t4\n" +
		"1\t100\t1\t300\tINS\t200\t2\ts.bam|2\textra\r\n"
	recs, err := BreakdancerRecords(strings.NewReader(in))
	require.NoError(t, err)
	require.Len(t, recs, 2)
	assert.Equal(t, 100, recs[0].Pos)
	assert.Equal(t, "1/.:2", recs[0].Sample)
	assert.Equal(t, 900, recs[1].Pos)
	assert.Equal(t, "1/.:4", recs[1].Sample)
}

func TestBreakdancerErrors(t *testing.T) {
	_, err := BreakdancerRecords(strings.NewReader("1\t2\t3\n"))
	assert.Error(t, err)

	_, err = BreakdancerRecords(strings.NewReader("#Chr1\tPos1\n1\t2\n"))
	assert.Error(t, err)

	_, err = BreakdancerRecords(strings.NewReader("#Chr1\tPos1\tChr2\tPos2\tType\tSize\tnum_Reads\n1\tx\t1\t5\tDEL\t4\t1\n"))
	assert.Error(t, err)
}
