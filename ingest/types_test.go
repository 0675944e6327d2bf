package ingest

import (
	"testing"
	"time"
)

func TestRootLocation_PrefixDepth(t *testing.T) {
	tests := []struct {
		prefix string
		want   int
	}{
		{"", 0},
		{"data", 0},
		{"data/2026", 1},
		{"data/2026/01", 2},
		{"data/2026/01/", 3},
	}
	for _, tc := range tests {
		got := RootLocation{Prefix: tc.prefix}.PrefixDepth()
		if got != tc.want {
			t.Errorf("PrefixDepth(%q) = %d, want %d", tc.prefix, got, tc.want)
		}
	}
}

func TestPathWithLine_Less(t *testing.T) {
	a := PathWithLine{Path: PathLocation{Key: "a"}, Line: 5}
	b := PathWithLine{Path: PathLocation{Key: "b"}, Line: 0}
	if !a.Less(b) {
		t.Error("expected a < b by key ordering")
	}
	if b.Less(a) {
		t.Error("did not expect b < a")
	}

	c := PathWithLine{Path: PathLocation{Key: "a"}, Line: 1}
	d := PathWithLine{Path: PathLocation{Key: "a"}, Line: 2}
	if !c.Less(d) {
		t.Error("expected c < d by line ordering within the same key")
	}
}

func TestDirectoryFindResult_Continuation(t *testing.T) {
	completed := DirectoryFindResult{Prefixes: []string{"p/"}}
	if got := completed.Continuation(); got != (DirectoryFindContinuation{}) {
		t.Errorf("Continuation() on a completed result = %+v, want zero value", got)
	}

	paused := DirectoryFindResult{Paused: true, LastPrefix: "p2/", ContinuationKey: "p2/9.txt"}
	want := DirectoryFindContinuation{LastPrefix: "p2/", ContinuationKey: "p2/9.txt"}
	if got := paused.Continuation(); got != want {
		t.Errorf("Continuation() = %+v, want %+v", got, want)
	}
}

func TestPartitionSearcherResponse_MergeGrowsAndDedupes(t *testing.T) {
	resp := &PartitionSearcherResponse{Root: RootLocation{Bucket: "b"}}

	resp.Merge(time.Unix(1, 0), DirectoryFindResult{Prefixes: []string{"a/", "b/"}})
	if len(resp.AllPartitions) != 2 {
		t.Fatalf("after first merge: %v", resp.AllPartitions)
	}

	resp.Merge(time.Unix(2, 0), DirectoryFindResult{Prefixes: []string{"b/", "c/"}})
	if len(resp.AllPartitions) != 3 {
		t.Fatalf("after second merge: %v", resp.AllPartitions)
	}
	if !resp.hasPartition("a/") || !resp.hasPartition("b/") || !resp.hasPartition("c/") {
		t.Fatalf("missing expected partitions: %v", resp.AllPartitions)
	}
}
