package readermgr

import (
	"context"
	"testing"

	"github.com/justapithecus/s3ingest/ingest"
	"github.com/justapithecus/s3ingest/internal/format"
)

func TestNewPartitionExtractor_NoneUsesWholeObjectKey(t *testing.T) {
	extractor, err := newPartitionExtractor(ingest.ExtractorNone, "")
	if err != nil {
		t.Fatalf("newPartitionExtractor: %v", err)
	}
	fn := extractor.forPartition("p1/")

	got, err := fn("p1/2024/01/1.jsonl")
	if err != nil {
		t.Fatalf("fn: %v", err)
	}
	if got != "p1/2024/01/1.jsonl" {
		t.Fatalf("Partition = %q, want the whole object key", got)
	}
}

func TestNewPartitionExtractor_HierarchicalUsesDiscoveryPrefix(t *testing.T) {
	extractor, err := newPartitionExtractor(ingest.ExtractorHierarchical, "")
	if err != nil {
		t.Fatalf("newPartitionExtractor: %v", err)
	}
	fn := extractor.forPartition("p1/")

	got, err := fn("p1/2024/01/1.jsonl")
	if err != nil {
		t.Fatalf("fn: %v", err)
	}
	if got != "p1/" {
		t.Fatalf("Partition = %q, want the discovery partition %q", got, "p1/")
	}
}

func TestNewPartitionExtractor_RegexUsesCaptureGroup(t *testing.T) {
	extractor, err := newPartitionExtractor(ingest.ExtractorRegex, `partition-(\d+)/`)
	if err != nil {
		t.Fatalf("newPartitionExtractor: %v", err)
	}
	fn := extractor.forPartition("ignored")

	got, err := fn("data/partition-7/1.jsonl")
	if err != nil {
		t.Fatalf("fn: %v", err)
	}
	if got != "7" {
		t.Fatalf("Partition = %q, want capture group 1 (%q)", got, "7")
	}
}

func TestNewPartitionExtractor_RegexNoMatchIsMalformedError(t *testing.T) {
	extractor, err := newPartitionExtractor(ingest.ExtractorRegex, `partition-(\d+)/`)
	if err != nil {
		t.Fatalf("newPartitionExtractor: %v", err)
	}
	fn := extractor.forPartition("ignored")

	if _, err := fn("data/no-match-here/1.jsonl"); err == nil {
		t.Fatalf("expected an error when the pattern has no capture group 1 match")
	} else if se, ok := err.(*ingest.StorageError); !ok || se.Kind != ingest.StorageMalformed {
		t.Fatalf("err = %v, want a StorageMalformed StorageError", err)
	}
}

func TestNewPartitionExtractor_InvalidRegexIsConfigError(t *testing.T) {
	_, err := newPartitionExtractor(ingest.ExtractorRegex, `partition-(`)
	if err == nil {
		t.Fatalf("expected an error for an unparseable regex")
	}
	if _, ok := err.(*ingest.ConfigError); !ok {
		t.Fatalf("err = %v (%T), want *ingest.ConfigError", err, err)
	}
}

func TestManager_UsesPartitionFuncForRecordPartition(t *testing.T) {
	storage := &memStorage{objects: map[string][]byte{
		"data/partition-3/1.jsonl": []byte("{\"n\":1}\n"),
	}}
	root := ingest.RootLocation{Bucket: "b"}
	extractor, err := newPartitionExtractor(ingest.ExtractorRegex, `partition-(\d+)/`)
	if err != nil {
		t.Fatalf("newPartitionExtractor: %v", err)
	}
	m := NewManager(storage, root, "data/partition-3/", format.JSONL, "topic1", ingest.NoOffsets, 0, extractor.forPartition("data/partition-3/"))

	batch, err := m.Poll(context.Background())
	if err != nil {
		t.Fatalf("Poll: %v", err)
	}
	if len(batch.Records) != 1 || batch.Records[0].Partition != "3" {
		t.Fatalf("unexpected batch: %+v", batch)
	}
}
