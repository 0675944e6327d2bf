package format

import (
	"bufio"
	"io"

	"github.com/justapithecus/s3ingest/ingest"
)

// textReader emits one record per line, as a plain string. Its Line is a
// 0-based index, matching the offset semantics the rest of the pipeline
// resumes against.
type textReader struct {
	body    io.ReadCloser
	scanner *scannerCursor
}

func newTextReader(body io.ReadCloser, startLine int) *textReader {
	return &textReader{body: body, scanner: newScannerCursor(body, startLine)}
}

func (r *textReader) Next() (ingest.SourceData, error) {
	line, idx, err := r.scanner.next()
	if err != nil {
		return ingest.SourceData{}, err
	}
	return ingest.SourceData{Value: line, Line: idx}, nil
}

func (r *textReader) Close() error { return r.body.Close() }

// scannerCursor wraps a line scanner and skips startLine lines before the
// first Next() returns, so resuming an object mid-way costs a linear scan
// but no re-decoding of already-committed records.
type scannerCursor struct {
	sc  *bufio.Scanner
	idx int
}

func newScannerCursor(r io.Reader, startLine int) *scannerCursor {
	c := &scannerCursor{sc: newBufScanner(r)}
	for c.idx < startLine && c.sc.Scan() {
		c.idx++
	}
	return c
}

func (c *scannerCursor) next() (string, int, error) {
	if !c.sc.Scan() {
		if err := c.sc.Err(); err != nil {
			return "", 0, err
		}
		return "", 0, io.EOF
	}
	line := c.sc.Text()
	idx := c.idx
	c.idx++
	return line, idx, nil
}
