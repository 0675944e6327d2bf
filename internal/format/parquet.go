package format

import (
	"bytes"
	"errors"
	"io"

	"github.com/parquet-go/parquet-go"

	"github.com/justapithecus/s3ingest/ingest"
)

// parquetReader decodes an entire Parquet object into memory up front.
// Parquet's footer carries the row-group index needed to read the file at
// all, so unlike jsonlReader or textReader this cannot stream incrementally
// off the object body; the whole object must be buffered before the first
// row is available. Once decoded, Next() serves rows lazily from the
// in-memory slice, so resuming mid-object (startLine > 0) only skips
// already-decoded rows rather than re-reading anything from storage.
type parquetReader struct {
	records []map[string]any
	idx     int
}

func newParquetReader(body io.ReadCloser, startLine int) (*parquetReader, error) {
	defer func() { _ = body.Close() }()

	data, err := io.ReadAll(body)
	if err != nil {
		return nil, err
	}
	if len(data) == 0 {
		return nil, ingest.NewStorageError(ingest.StorageMalformed, "decode", "", errors.New("empty parquet object"))
	}

	file, err := parquet.OpenFile(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, ingest.NewStorageError(ingest.StorageMalformed, "decode", "", err)
	}

	names := columnNames(file.Schema())
	reader := parquet.NewReader(file)
	defer func() { _ = reader.Close() }()

	var records []map[string]any
	rows := make([]parquet.Row, 100)
	for {
		n, err := reader.ReadRows(rows)
		for i := 0; i < n; i++ {
			records = append(records, rowToMap(rows[i], names))
		}
		if err != nil {
			if errors.Is(err, io.EOF) {
				break
			}
			return nil, ingest.NewStorageError(ingest.StorageMalformed, "decode", "", err)
		}
	}

	if startLine > len(records) {
		startLine = len(records)
	}
	return &parquetReader{records: records, idx: startLine}, nil
}

func (r *parquetReader) Next() (ingest.SourceData, error) {
	if r.idx >= len(r.records) {
		return ingest.SourceData{}, io.EOF
	}
	v := r.records[r.idx]
	line := r.idx
	r.idx++
	return ingest.SourceData{Value: v, Line: line}, nil
}

// Close is a no-op: the object body was fully consumed and closed while
// decoding in newParquetReader.
func (r *parquetReader) Close() error { return nil }

func columnNames(schema *parquet.Schema) []string {
	fields := schema.Fields()
	names := make([]string, len(fields))
	for i, f := range fields {
		names[i] = f.Name()
	}
	return names
}

func rowToMap(row parquet.Row, names []string) map[string]any {
	m := make(map[string]any, len(names))
	for i, v := range row {
		if i >= len(names) {
			break
		}
		if v.IsNull() {
			m[names[i]] = nil
			continue
		}
		m[names[i]] = valueToGo(v)
	}
	return m
}

func valueToGo(v parquet.Value) any {
	switch v.Kind() {
	case parquet.Boolean:
		return v.Boolean()
	case parquet.Int32:
		return v.Int32()
	case parquet.Int64:
		return v.Int64()
	case parquet.Float:
		return v.Float()
	case parquet.Double:
		return v.Double()
	case parquet.ByteArray, parquet.FixedLenByteArray:
		return v.String()
	default:
		return v.String()
	}
}
