// Package format implements the Format Stream Reader capability: a lazy,
// restartable sequence of records read from a single object, with
// transparent decompression by file extension.
package format

import (
	"bufio"
	"context"
	"errors"
	"io"
	"strings"

	jsoniter "github.com/json-iterator/go"

	"github.com/justapithecus/s3ingest/ingest"
)

// json is a drop-in encoding/json replacement, matching the codec used by
// ingest.OffsetValue so the module has one JSON implementation, not two.
var json = jsoniter.ConfigCompatibleWithStandardLibrary

// Type enumerates the supported record formats.
type Type string

// Supported format types.
const (
	Bytes   Type = "bytes"
	Text    Type = "text"
	JSONL   Type = "jsonl"
	Parquet Type = "parquet"
)

// StreamReader is a lazy sequence of records read from one object. Next
// returns io.EOF once the object is exhausted. A StreamReader is
// restartable: Open with startLine > 0 begins after that many records have
// already been read, so a caller can resume mid-object without redoing the
// records it already committed downstream.
type StreamReader interface {
	Next() (ingest.SourceData, error)
	Close() error
}

// Open builds a StreamReader over path's object body, dispatching on typ.
// Compression is inferred from path.Key's extension and applied before
// format-specific decoding, so ".jsonl.gz" and ".jsonl" both decode as
// JSONL.
func Open(ctx context.Context, storage ingest.Storage, path ingest.PathLocation, typ Type, startLine int) (StreamReader, error) {
	raw, err := storage.Get(ctx, path)
	if err != nil {
		return nil, err
	}
	body, err := decompressByExtension(path.Key, raw)
	if err != nil {
		return nil, err
	}

	switch typ {
	case Bytes:
		return newBytesReader(body, startLine), nil
	case Text:
		return newTextReader(body, startLine), nil
	case JSONL:
		return newJSONLReader(body, startLine), nil
	case Parquet:
		return newParquetReader(body, startLine)
	default:
		_ = body.Close()
		return nil, errors.New("format: unknown type " + string(typ))
	}
}

// TypeFromKey infers a format Type from an object key's base extension,
// stripping a compression suffix first. It returns ("", false) when the
// extension is not recognized, leaving the caller to fall back to a
// configured default.
func TypeFromKey(key string) (Type, bool) {
	base := strings.TrimSuffix(strings.TrimSuffix(key, ".gz"), ".zst")
	switch {
	case strings.HasSuffix(base, ".jsonl") || strings.HasSuffix(base, ".ndjson"):
		return JSONL, true
	case strings.HasSuffix(base, ".parquet"):
		return Parquet, true
	case strings.HasSuffix(base, ".txt") || strings.HasSuffix(base, ".log"):
		return Text, true
	default:
		return "", false
	}
}

// newBufScanner builds a line scanner with a larger-than-default buffer:
// the stdlib's 64KiB token limit is routinely too small for JSONL records
// carrying embedded arrays or base64 payloads.
func newBufScanner(r io.Reader) *bufio.Scanner {
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 64*1024), 16*1024*1024)
	return sc
}
