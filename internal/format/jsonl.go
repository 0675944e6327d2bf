package format

import (
	"io"

	"github.com/justapithecus/s3ingest/ingest"
)

// jsonlReader emits one decoded record per JSON Lines line, per §6's JSONL
// grounding in ingest.OffsetValue's own codec choice: this reader and the
// offset store both go through json-iterator so the module carries one JSON
// implementation.
type jsonlReader struct {
	body    io.ReadCloser
	scanner *scannerCursor
}

func newJSONLReader(body io.ReadCloser, startLine int) *jsonlReader {
	return &jsonlReader{body: body, scanner: newScannerCursor(body, startLine)}
}

func (r *jsonlReader) Next() (ingest.SourceData, error) {
	for {
		line, idx, err := r.scanner.next()
		if err != nil {
			return ingest.SourceData{}, err
		}
		if len(line) == 0 {
			continue
		}
		var v any
		if err := json.Unmarshal([]byte(line), &v); err != nil {
			return ingest.SourceData{}, ingest.NewStorageError(ingest.StorageMalformed, "decode", "", err)
		}
		return ingest.SourceData{Value: v, Line: idx}, nil
	}
}

func (r *jsonlReader) Close() error { return r.body.Close() }
