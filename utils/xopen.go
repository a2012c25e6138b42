package utils

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/klauspost/compress/gzip"
)

type multiCloser struct {
	io.Reader
	closers []io.Closer
}

func (m *multiCloser) Close() error {
	var errs []error
	for _, c := range m.closers {
		errs = append(errs, c.Close())
	}
	return errors.Join(errs...)
}

// OpenInput opens path for reading, with "-" meaning stdin. Gzip input is
// detected from the magic bytes and decompressed.
func OpenInput(path string) (io.ReadCloser, error) {
	var rc io.ReadCloser
	if path == "-" || path == "" {
		rc = io.NopCloser(os.Stdin)
	} else {
		f, err := os.Open(path)
		if err != nil {
			return nil, err
		}
		rc = f
	}

	br := bufio.NewReader(rc)
	magic, err := br.Peek(2)
	if err == nil && magic[0] == 0x1f && magic[1] == 0x8b {
		gz, err := gzip.NewReader(br)
		if err != nil {
			rc.Close()
			return nil, fmt.Errorf("opening gzip stream %s: %w", path, err)
		}
		return &multiCloser{Reader: gz, closers: []io.Closer{gz, rc}}, nil
	}
	return &multiCloser{Reader: br, closers: []io.Closer{rc}}, nil
}

type outputWriter struct {
	*bufio.Writer
	gz   *gzip.Writer
	file io.Closer
}

func (w *outputWriter) Close() error {
	err := w.Writer.Flush()
	if w.gz != nil {
		err = errors.Join(err, w.gz.Close())
	}
	if w.file != nil {
		err = errors.Join(err, w.file.Close())
	}
	return err
}

// CreateOutput creates path for writing, with "-" or "" meaning stdout. A .gz
// suffix turns on gzip compression. Close must be called to flush.
func CreateOutput(path string) (io.WriteCloser, error) {
	return createOutput(path, strings.HasSuffix(path, ".gz"))
}

func CreateGzipOutput(path string) (io.WriteCloser, error) {
	return createOutput(path, true)
}

func createOutput(path string, compress bool) (io.WriteCloser, error) {
	var (
		w    io.Writer = os.Stdout
		file io.Closer
	)
	if path != "-" && path != "" {
		f, err := os.Create(path)
		if err != nil {
			return nil, err
		}
		w, file = f, f
	}
	if compress {
		gz := gzip.NewWriter(w)
		return &outputWriter{Writer: bufio.NewWriter(gz), gz: gz, file: file}, nil
	}
	return &outputWriter{Writer: bufio.NewWriter(w), file: file}, nil
}
