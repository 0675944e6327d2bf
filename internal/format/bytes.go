package format

import (
	"io"

	"github.com/justapithecus/s3ingest/ingest"
)

// bytesReader treats an entire object as a single opaque record. It exists
// for sources that are not line- or row-oriented at all (arbitrary blobs
// dropped into a bucket for archival, not for parsing).
type bytesReader struct {
	body io.ReadCloser
	done bool
}

func newBytesReader(body io.ReadCloser, startLine int) *bytesReader {
	// A single-record format has nothing to resume past line 0.
	return &bytesReader{body: body, done: startLine > 0}
}

func (r *bytesReader) Next() (ingest.SourceData, error) {
	if r.done {
		return ingest.SourceData{}, io.EOF
	}
	r.done = true
	data, err := io.ReadAll(r.body)
	if err != nil {
		return ingest.SourceData{}, err
	}
	return ingest.SourceData{Value: data, Line: 0}, nil
}

func (r *bytesReader) Close() error { return r.body.Close() }
