package eventstream

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zstd"
)

// Compressed table suffixes recognised by Open.
const (
	SuffixGzip = ".gz"
	SuffixZstd = ".zst"
)

type decodedFile struct {
	io.Reader
	closeDecoder func() error
	file         *os.File
}

func (d *decodedFile) Close() error {
	var err error
	if d.closeDecoder != nil {
		err = d.closeDecoder()
	}
	if cerr := d.file.Close(); err == nil {
		err = cerr
	}
	return err
}

// Open opens a table, decompressing it when the name ends in .gz or .zst.
func Open(path string) (io.ReadCloser, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open table: %w", err)
	}

	switch {
	case strings.HasSuffix(path, SuffixGzip):
		zr, err := gzip.NewReader(f)
		if err != nil {
			_ = f.Close()
			return nil, fmt.Errorf("failed to decode gzip table %s: %w", path, err)
		}
		return &decodedFile{Reader: zr, closeDecoder: zr.Close, file: f}, nil
	case strings.HasSuffix(path, SuffixZstd):
		zr, err := zstd.NewReader(f)
		if err != nil {
			_ = f.Close()
			return nil, fmt.Errorf("failed to decode zstd table %s: %w", path, err)
		}
		return &decodedFile{
			Reader: zr,
			closeDecoder: func() error {
				zr.Close()
				return nil
			},
			file: f,
		}, nil
	default:
		return f, nil
	}
}
