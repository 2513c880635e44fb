// Package compression opens the compressed repodata files found in yum and
// dnf caches.
package compression

import (
	"compress/bzip2"
	"io"
	"os"
	"strings"

	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zstd"
	"github.com/ulikunitz/xz"
)

type compressionReader func(io.Reader) (io.ReadCloser, error)

func gzipNewReader(r io.Reader) (io.ReadCloser, error) {
	return gzip.NewReader(r)
}

func xzNewReader(r io.Reader) (io.ReadCloser, error) {
	xr, err := xz.NewReader(r)
	if err != nil {
		return nil, err
	}
	return io.NopCloser(xr), nil
}

func bzipNewReader(r io.Reader) (io.ReadCloser, error) {
	return io.NopCloser(bzip2.NewReader(r)), nil
}

func zstdNewReader(r io.Reader) (io.ReadCloser, error) {
	zr, err := zstd.NewReader(r)
	if err != nil {
		return nil, err
	}
	return zr.IOReadCloser(), nil
}

var knownReaders = map[string]compressionReader{
	".gz":  gzipNewReader,
	".bz2": bzipNewReader,
	".xz":  xzNewReader,
	".zst": zstdNewReader,
}

// Suffixes lists the compression suffixes Decompress understands.
func Suffixes() []string {
	return []string{".gz", ".bz2", ".xz", ".zst"}
}

// Decompress wraps reader with a decompressor chosen by the suffix of
// fileName. Unknown suffixes pass the reader through.
func Decompress(reader io.Reader, fileName string) (io.ReadCloser, error) {
	for suffix, decompressor := range knownReaders {
		if strings.HasSuffix(fileName, suffix) {
			return decompressor(reader)
		}
	}

	return io.NopCloser(reader), nil
}

type fileReader struct {
	io.ReadCloser
	f *os.File
}

func (r fileReader) Close() error {
	err := r.ReadCloser.Close()
	if ferr := r.f.Close(); err == nil {
		err = ferr
	}
	return err
}

// Open opens path and decompresses it by suffix. Closing the result closes
// the file too.
func Open(path string) (io.ReadCloser, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}

	r, err := Decompress(f, path)
	if err != nil {
		f.Close()
		return nil, err
	}
	return fileReader{ReadCloser: r, f: f}, nil
}
