package ingest

import (
	"time"

	jsoniter "github.com/json-iterator/go"
)

// offsetJSON is a drop-in encoding/json replacement, matching the codec
// used for the JSONL record format elsewhere in this module (see
// internal/format), so the offset store and the record stream share one
// JSON implementation rather than pulling in two.
var offsetJSON = jsoniter.ConfigCompatibleWithStandardLibrary

// OffsetKey identifies a partition's slot in the host's external offset
// store, per §6: `{"container":"<bucket>","prefix":"<partition-prefix>"}`.
type OffsetKey struct {
	Container string `json:"container"`
	Prefix    string `json:"prefix"`
}

// OffsetValue is the value stored per partition, per §6:
// `{"path":"<object-key>","line":<int>,"ts":<epochMillis>}`.
type OffsetValue struct {
	Path string `json:"path"`
	Line int    `json:"line"`
	TS   int64  `json:"ts"`
}

// MarshalOffsetKey encodes an OffsetKey to its canonical JSON form.
func MarshalOffsetKey(k OffsetKey) ([]byte, error) {
	return offsetJSON.Marshal(k)
}

// MarshalOffsetValue encodes an OffsetValue to its canonical JSON form.
func MarshalOffsetValue(v OffsetValue) ([]byte, error) {
	return offsetJSON.Marshal(v)
}

// UnmarshalOffsetValue decodes an OffsetValue from its canonical JSON form.
func UnmarshalOffsetValue(data []byte) (OffsetValue, error) {
	var v OffsetValue
	err := offsetJSON.Unmarshal(data, &v)
	return v, err
}

// NewOffsetValue builds the offset-store value for a committed
// PathWithLine, stamped with now.
func NewOffsetValue(p PathWithLine, now time.Time) OffsetValue {
	return OffsetValue{
		Path: p.Path.Key,
		Line: p.Line,
		TS:   now.UnixMilli(),
	}
}

// ToPathWithLine reconstructs the PathWithLine an OffsetValue represents,
// for the given bucket.
func (v OffsetValue) ToPathWithLine(bucket string) PathWithLine {
	return PathWithLine{
		Path: PathLocation{Bucket: bucket, Key: v.Path},
		Line: v.Line,
	}
}

// OffsetFn is the host-supplied resumption capability from §4.6:
// contextOffsetFn(root) -> Option[PathWithLine]. It is queried once per
// partition, at Manager construction time.
type OffsetFn func(key OffsetKey) (PathWithLine, bool)

// NoOffsets is an OffsetFn that never has prior offsets, for tasks
// starting cold.
func NoOffsets(OffsetKey) (PathWithLine, bool) { return PathWithLine{}, false }
