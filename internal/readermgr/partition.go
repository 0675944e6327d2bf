package readermgr

import (
	"fmt"
	"regexp"

	"github.com/justapithecus/s3ingest/ingest"
)

// PartitionFunc computes the partition value attached to a SourceRecord
// from the key of the object it was read from, per §4.5's "FormatStreamReader
// plus target-topic metadata and a partition function" and the
// connect.s3.source.partition.extractor.type/.regex keys.
type PartitionFunc func(key string) (string, error)

// partitionExtractor compiles an ingest.ExtractorType/regex pair once per
// Service, in the compile-once-apply-many shape of
// snonux-dtail/internal/regex.Regex, and hands out a PartitionFunc scoped to
// each Manager's discovery partition.
type partitionExtractor struct {
	typ     ingest.ExtractorType
	pattern *regexp.Regexp
}

// newPartitionExtractor validates typ/pattern once, at Service construction,
// so a bad regex fails Task.Start rather than the first object read.
func newPartitionExtractor(typ ingest.ExtractorType, pattern string) (*partitionExtractor, error) {
	e := &partitionExtractor{typ: typ}
	if typ != ingest.ExtractorRegex {
		return e, nil
	}
	re, err := regexp.Compile(pattern)
	if err != nil {
		return nil, &ingest.ConfigError{Key: ingest.KeyExtractorRegex, Message: "invalid pattern: " + err.Error()}
	}
	e.pattern = re
	return e, nil
}

// forPartition returns the PartitionFunc a Manager scoped to
// discoveryPartition should apply to each object it reads.
//
// ExtractorNone resolves §9's open question: an absent extractor treats the
// whole object key as the partition key. ExtractorHierarchical yields the
// discovery partition itself — the directory-depth prefix the Directory
// Lister already found is the hierarchical partition segment, so there is
// nothing further to extract. ExtractorRegex applies pattern to the object
// key and takes capture group 1, per §6's "capture group 1 = partition
// number".
func (e *partitionExtractor) forPartition(discoveryPartition string) PartitionFunc {
	switch e.typ {
	case ingest.ExtractorHierarchical:
		return func(string) (string, error) { return discoveryPartition, nil }
	case ingest.ExtractorRegex:
		pattern := e.pattern
		return func(key string) (string, error) {
			m := pattern.FindStringSubmatch(key)
			if len(m) < 2 {
				return "", ingest.NewStorageError(ingest.StorageMalformed, "partition-extract", key,
					fmt.Errorf("pattern %q has no capture group 1 match", pattern.String()))
			}
			return m[1], nil
		}
	default:
		return func(key string) (string, error) { return key, nil }
	}
}
