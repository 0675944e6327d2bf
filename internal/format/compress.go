package format

import (
	"compress/gzip"
	"io"
	"strings"

	"github.com/klauspost/compress/zstd"
)

// decompressByExtension wraps r with a decompressing reader chosen by the
// object key's trailing extension, or returns r unchanged if the key names
// no known compression. The caller must close the returned ReadCloser.
func decompressByExtension(key string, r io.ReadCloser) (io.ReadCloser, error) {
	switch {
	case strings.HasSuffix(key, ".gz"):
		gz, err := gzip.NewReader(r)
		if err != nil {
			_ = r.Close()
			return nil, err
		}
		return gzipReadCloser{gz, r}, nil
	case strings.HasSuffix(key, ".zst"):
		dec, err := zstd.NewReader(r)
		if err != nil {
			_ = r.Close()
			return nil, err
		}
		return zstdReadCloser{dec, r}, nil
	default:
		return r, nil
	}
}

// gzipReadCloser closes both the gzip reader and the underlying object
// stream it was built from.
type gzipReadCloser struct {
	*gzip.Reader
	underlying io.Closer
}

func (g gzipReadCloser) Close() error {
	err := g.Reader.Close()
	if uErr := g.underlying.Close(); err == nil {
		err = uErr
	}
	return err
}

// zstdReadCloser adapts *zstd.Decoder (which has no error-returning Close)
// to io.ReadCloser, and closes the underlying object stream too.
type zstdReadCloser struct {
	dec        *zstd.Decoder
	underlying io.Closer
}

func (z zstdReadCloser) Read(p []byte) (int, error) { return z.dec.Read(p) }

func (z zstdReadCloser) Close() error {
	z.dec.Close()
	return z.underlying.Close()
}
