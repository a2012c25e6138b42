// Package flexiprep summarizes the output directory of a flexiprep QC run.
package flexiprep

import (
	"bufio"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/Jeffail/gabs"
	"github.com/samber/lo"

	"github.com/gmaffy/biopet-utils/fastqc"
)

const (
	ModeNone     = "none"
	ModeClip     = "clip"
	ModeTrim     = "trim"
	ModeClipTrim = "cliptrim"

	imagesDir = "Images"
)

var (
	cutadaptAffected = regexp.MustCompile(`\s*Trimmed reads:\s*(\d+)`)
	cutadaptShort    = regexp.MustCompile(`\s*Too short reads:\s*(\d+)`)
	cutadaptLong     = regexp.MustCompile(`\s*Too long reads:\s*(\d+)`)

	syncDiscarded1 = regexp.MustCompile(`Filtered (\d+) .+ first`)
	syncDiscarded2 = regexp.MustCompile(`Filtered (\d+) reads from second`)
	syncKept       = regexp.MustCompile(`Synced read .+ (\d+) reads.`)

	sicklePairedKept      = regexp.MustCompile(`paired records kept: \d+ \((\d+) pairs\)`)
	sickleSingleDiscarded = regexp.MustCompile(`single records discarded: \d+ \(from PE1: (\d+), from PE2: (\d+)\)`)
	sicklePairedDiscarded = regexp.MustCompile(`paired records discarded: \d+ \((\d+) pairs\)`)
	sickleKept            = regexp.MustCompile(`records kept: (\d+)`)
	sickleDiscarded       = regexp.MustCompile(`records discarded: (\d+)`)
)

type Options struct {
	RunName string
	QCMode  string
	SampleA string
	// SampleB is set for paired-end libraries.
	SampleB string
	RunDir  string
	// Now stamps the summary; the current time when zero.
	Now time.Time
}

func (o Options) paired() bool { return o.SampleB != "" }

// statMark is the infix of the processed seqstats file for the QC mode.
func (o Options) statMark() string {
	switch o.QCMode {
	case ModeClip:
		if o.paired() {
			return ".clip.sync"
		}
		return ".clip"
	case ModeTrim:
		return ".trim"
	case ModeClipTrim:
		if o.paired() {
			return ".clip.sync.trim"
		}
		return ".clip.trim"
	}
	return ""
}

// role is one FASTQ of the run, such as "raw_1" or "proc_2".
type role struct {
	name   string
	proc   bool
	second bool
}

func (o Options) roles() []role {
	roles := []role{{name: "raw_1"}}
	if o.paired() {
		roles = append(roles, role{name: "raw_2", second: true})
	}
	if o.QCMode != ModeNone {
		roles = append(roles, role{name: "proc_1", proc: true})
		if o.paired() {
			roles = append(roles, role{name: "proc_2", proc: true, second: true})
		}
	}
	return roles
}

// runFiles are the names in the run directory used by the summary.
type runFiles struct {
	checksums []string
	fastqcs   []string
	seqstats  []string
}

func listRunDir(dir string) (runFiles, error) {
	var rf runFiles
	entries, err := os.ReadDir(dir)
	if err != nil {
		return rf, err
	}
	for _, e := range entries {
		name := e.Name()
		switch {
		case strings.HasSuffix(name, ".sha1"):
			rf.checksums = append(rf.checksums, name)
		case strings.HasSuffix(name, ".fastqc") && e.IsDir():
			rf.fastqcs = append(rf.fastqcs, name)
		case strings.HasSuffix(name, ".seqstats.json"):
			rf.seqstats = append(rf.seqstats, name)
		}
	}
	return rf, nil
}

// pick selects the single name matching r. procSuffix marks processed files,
// and paired runs tell the reads apart by the SampleA prefix.
func (o Options) pick(names []string, r role, procSuffix, kind string) (string, error) {
	matches := lo.Filter(names, func(n string, _ int) bool {
		isProc := procSuffix != "" && strings.HasSuffix(n, procSuffix)
		if isProc != r.proc {
			return false
		}
		if o.paired() && strings.HasPrefix(n, o.SampleA) == r.second {
			return false
		}
		return true
	})
	if len(matches) != 1 {
		return "", fmt.Errorf("expected one %s file for %s, found %d", kind, r.name, len(matches))
	}
	return matches[0], nil
}

func readChecksum(path string) (string, string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", "", err
	}
	defer f.Close()
	sc := bufio.NewScanner(f)
	if !sc.Scan() {
		return "", "", fmt.Errorf("%s: empty checksum file", path)
	}
	fields := strings.Fields(sc.Text())
	if len(fields) < 2 {
		return "", "", fmt.Errorf("%s: expected hash and file name", path)
	}
	return fields[0], fields[1], nil
}

// fastqcFiles finds the data file and the images of one FastQC output
// directory, looking inside its first subdirectory.
func fastqcFiles(dir string) (string, []string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return "", nil, err
	}
	sub, ok := lo.Find(entries, func(e fs.DirEntry) bool { return e.IsDir() })
	if !ok {
		return "", nil, fmt.Errorf("%s: no FastQC result directory", dir)
	}
	core := filepath.Join(dir, sub.Name())

	var dataFile, imageDir string
	err = filepath.WalkDir(core, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		switch {
		case d.IsDir() && d.Name() == imagesDir && imageDir == "":
			imageDir = path
		case !d.IsDir() && d.Name() == fastqc.DataFile && dataFile == "":
			dataFile = path
		}
		return nil
	})
	if err != nil {
		return "", nil, err
	}
	if dataFile == "" || imageDir == "" {
		return "", nil, fmt.Errorf("%s: could not find data file and/or image directory in FastQC result", dir)
	}

	images, err := os.ReadDir(imageDir)
	if err != nil {
		return "", nil, err
	}
	paths := lo.Map(images, func(e fs.DirEntry, _ int) string { return filepath.Join(imageDir, e.Name()) })
	return dataFile, paths, nil
}

func fileEntry(path string, checksum any) map[string]any {
	return map[string]any{"checksum_sha1": checksum, "path": path}
}

// addRole fills in the files and stats of one FASTQ.
func (o Options) addRole(doc *gabs.Container, rf runFiles, r role) error {
	sumName, err := o.pick(rf.checksums, r, ".qc.sha1", "checksum")
	if err != nil {
		return err
	}
	hash, fqName, err := readChecksum(filepath.Join(o.RunDir, sumName))
	if err != nil {
		return err
	}
	if _, err := doc.Set(fileEntry(filepath.Join(o.RunDir, filepath.Base(fqName)), hash), "files", "fastq_"+r.name); err != nil {
		return err
	}

	fqcName, err := o.pick(rf.fastqcs, r, ".qc.fastqc", "FastQC")
	if err != nil {
		return err
	}
	dataFile, images, err := fastqcFiles(filepath.Join(o.RunDir, fqcName))
	if err != nil {
		return err
	}
	if _, err := doc.Set(fileEntry(dataFile, nil), "files", "txt_fastqc_"+r.name); err != nil {
		return err
	}
	for _, img := range images {
		abs, err := filepath.Abs(img)
		if err != nil {
			return err
		}
		key := strings.TrimSuffix(filepath.Base(img), filepath.Ext(img))
		if _, err := doc.Set(fileEntry(abs, nil), "files", "plot_"+key+"_"+r.name); err != nil {
			return err
		}
	}

	procStats := ""
	if o.QCMode != ModeNone {
		procStats = o.statMark() + ".seqstats.json"
	}
	statName, err := o.pick(rf.seqstats, r, procStats, "seqstats")
	if err != nil {
		return err
	}
	ss, err := gabs.ParseJSONFile(filepath.Join(o.RunDir, statName))
	if err != nil {
		return fmt.Errorf("%s: %w", statName, err)
	}
	stats := ss.Search("stats")
	if stats.Data() == nil {
		return fmt.Errorf("%s: no stats section", statName)
	}
	fq, err := fastqc.LoadFile(dataFile)
	if err != nil {
		return err
	}
	gc, err := strconv.Atoi(fq.BasicStats()["%GC"])
	if err != nil {
		return fmt.Errorf("%s: %%GC: %w", dataFile, err)
	}
	if _, err := stats.Set(gc, "mean_gc"); err != nil {
		return err
	}
	_, err = doc.Set(stats.Data(), "stats", "fastq_"+r.name)
	return err
}

func readText(dir, name string) (string, error) {
	data, err := os.ReadFile(filepath.Join(dir, name))
	return string(data), err
}

func findInt(re *regexp.Regexp, text string, group int, what string) (int64, error) {
	m := re.FindStringSubmatch(text)
	if m == nil {
		return 0, fmt.Errorf("%s not found", what)
	}
	return strconv.ParseInt(m[group], 10, 64)
}

// cutadaptStats reads the clipping log of one read file. A missing log means
// no adapter was found.
func (o Options) cutadaptStats(sample string) (map[string]any, error) {
	stats := map[string]any{}
	f, err := os.Open(filepath.Join(o.RunDir, sample+".contams.txt"))
	if err != nil {
		return nil, err
	}
	contams, err := fastqc.Contaminants(f)
	f.Close()
	if err != nil {
		return nil, fmt.Errorf("%s.contams.txt: %w", sample, err)
	}
	adapters := make(map[string]any, len(contams))
	for name, seq := range contams {
		adapters[name] = []any{seq, nil}
	}
	stats["adapters"] = adapters

	text, err := readText(o.RunDir, sample+".clip.stats")
	if os.IsNotExist(err) {
		stats["num_reads_discarded"] = 0
		stats["num_reads_affected"] = 0
		return stats, nil
	}
	if err != nil {
		return nil, err
	}

	short, err := findInt(cutadaptShort, text, 1, "too short reads")
	if err != nil {
		return nil, err
	}
	long, err := findInt(cutadaptLong, text, 1, "too long reads")
	if err != nil {
		return nil, err
	}
	affected, err := findInt(cutadaptAffected, text, 1, "trimmed reads")
	if err != nil {
		return nil, err
	}
	stats["num_reads_discarded"] = short + long
	stats["num_reads_affected"] = affected

	for name, seq := range contams {
		re := regexp.MustCompile(`Adapter.+'` + regexp.QuoteMeta(seq) + `'.+trimmed (\d+) times.`)
		n, err := findInt(re, text, 1, "adapter "+name)
		if err != nil {
			return nil, err
		}
		adapters[name] = []any{seq, n}
	}
	return stats, nil
}

func (o Options) syncStats() (map[string]any, error) {
	text, err := readText(o.RunDir, o.RunName+".clip.sync.stats")
	if err != nil {
		return nil, err
	}
	d1, err := findInt(syncDiscarded1, text, 1, "first read discards")
	if err != nil {
		return nil, err
	}
	d2, err := findInt(syncDiscarded2, text, 1, "second read discards")
	if err != nil {
		return nil, err
	}
	kept, err := findInt(syncKept, text, 1, "synced reads")
	if err != nil {
		return nil, err
	}
	return map[string]any{
		"num_reads_discarded_1":     d1,
		"num_reads_discarded_2":     d2,
		"num_reads_kept":            kept,
		"num_reads_discarded_total": d1 + d2,
	}, nil
}

func (o Options) clipStats() (map[string]any, error) {
	r1, err := o.cutadaptStats(o.SampleA)
	if err != nil {
		return nil, err
	}
	out := map[string]any{"fastq_1": r1, "sync": map[string]any{}}
	if !o.paired() {
		return out, nil
	}
	if out["fastq_2"], err = o.cutadaptStats(o.SampleB); err != nil {
		return nil, err
	}
	if out["sync"], err = o.syncStats(); err != nil {
		return nil, err
	}
	return out, nil
}

func (o Options) trimStats() (map[string]any, error) {
	mark := ".trim.stats"
	if o.QCMode != ModeTrim {
		mark = ".clip.trim.stats"
		if o.paired() {
			mark = ".clip.sync.trim.stats"
		}
	}
	text, err := readText(o.RunDir, o.RunName+mark)
	if err != nil {
		return nil, err
	}

	if !o.paired() {
		kept, err := findInt(sickleKept, text, 1, "kept records")
		if err != nil {
			return nil, err
		}
		disc, err := findInt(sickleDiscarded, text, 1, "discarded records")
		if err != nil {
			return nil, err
		}
		return map[string]any{"num_reads_kept": kept, "num_reads_discarded_total": disc}, nil
	}

	kept, err := findInt(sicklePairedKept, text, 1, "kept pairs")
	if err != nil {
		return nil, err
	}
	d1, err := findInt(sickleSingleDiscarded, text, 1, "PE1 discards")
	if err != nil {
		return nil, err
	}
	d2, err := findInt(sickleSingleDiscarded, text, 2, "PE2 discards")
	if err != nil {
		return nil, err
	}
	both, err := findInt(sicklePairedDiscarded, text, 1, "discarded pairs")
	if err != nil {
		return nil, err
	}
	return map[string]any{
		"num_reads_kept":            kept,
		"num_reads_discarded_1":     d1,
		"num_reads_discarded_2":     d2,
		"num_reads_discarded_both":  both,
		"num_reads_discarded_total": d1 + d2 + both,
	}, nil
}

// Summarize builds the summary document of one flexiprep run.
func Summarize(o Options) (*gabs.Container, error) {
	switch o.QCMode {
	case ModeNone, ModeClip, ModeTrim, ModeClipTrim:
	default:
		return nil, fmt.Errorf("unknown QC mode %q", o.QCMode)
	}
	if o.Now.IsZero() {
		o.Now = time.Now()
	}
	libType := "single"
	if o.paired() {
		libType = "paired"
	}

	doc := gabs.New()
	sets := []struct {
		value any
		path  []string
	}{
		{"flexiprep", []string{"_meta", "module"}},
		{o.RunName, []string{"_meta", "run_name"}},
		{o.Now.UTC().Format("2006-01-02T15:04:05.000000"), []string{"_meta", "run_time"}},
		{o.QCMode, []string{"stats", "qc_mode"}},
		{libType, []string{"stats", "lib_type"}},
		{o.RunDir, []string{"dirs", "run"}},
		{map[string]any{}, []string{"files"}},
	}
	for _, s := range sets {
		if _, err := doc.Set(s.value, s.path...); err != nil {
			return nil, err
		}
	}

	rf, err := listRunDir(o.RunDir)
	if err != nil {
		return nil, err
	}
	roles := o.roles()
	if len(rf.fastqcs) != len(roles) || len(rf.seqstats) != len(roles) {
		return nil, fmt.Errorf("expected %d FastQC and seqstats results, found %d and %d",
			len(roles), len(rf.fastqcs), len(rf.seqstats))
	}
	for _, r := range roles {
		if err := o.addRole(doc, rf, r); err != nil {
			return nil, err
		}
	}

	if strings.Contains(o.QCMode, ModeClip) {
		clip, err := o.clipStats()
		if err != nil {
			return nil, fmt.Errorf("clipping stats: %w", err)
		}
		if _, err := doc.Set(clip, "stats", "clip"); err != nil {
			return nil, err
		}
	}
	if strings.Contains(o.QCMode, ModeTrim) {
		trim, err := o.trimStats()
		if err != nil {
			return nil, fmt.Errorf("trimming stats: %w", err)
		}
		if _, err := doc.Set(trim, "stats", "trim"); err != nil {
			return nil, err
		}
	}
	return doc, nil
}
