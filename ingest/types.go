// Package ingest provides the source-side discovery and read pipeline for
// ingesting objects from an S3-compatible object store into a downstream
// record stream.
//
// The package focuses on discovery, resumption, and read scheduling. It
// does not implement record-format decoding beyond a minimal contract, nor
// does it own configuration parsing for the embedding host — see
// internal/config and internal/format for those collaborators.
package ingest

import "time"

// RootLocation identifies a configured ingestion source: a bucket and an
// optional prefix beneath it. AllowSlash controls whether a prefix that
// does not end in "/" is treated as a literal object-key prefix (true) or
// rejected during config validation (false); see Config.
type RootLocation struct {
	Bucket     string
	Prefix     string
	AllowSlash bool
}

// PrefixDepth returns the number of "/"-delimited path segments in the
// root's prefix. An empty prefix has depth 0.
func (r RootLocation) PrefixDepth() int {
	if r.Prefix == "" {
		return 0
	}
	depth := 0
	for _, c := range r.Prefix {
		if c == '/' {
			depth++
		}
	}
	return depth
}

// PathLocation identifies a single object: its bucket and full key.
type PathLocation struct {
	Bucket string
	Key    string
}

// PathWithLine identifies a specific record within a specific object by
// its 0-based line index. It is used as a resumable offset.
type PathWithLine struct {
	Path PathLocation
	Line int
}

// Less reports whether p sorts strictly before o under (lex(key),
// numeric(line)) ordering, the monotonic-offset invariant from §3.
func (p PathWithLine) Less(o PathWithLine) bool {
	if p.Path.Key != o.Path.Key {
		return p.Path.Key < o.Path.Key
	}
	return p.Line < o.Line
}

// DirectoryFindConfig bounds a single Directory Lister invocation.
type DirectoryFindConfig struct {
	// RecurseLevels is the directory depth below the root to treat as the
	// partitioning boundary. Zero means immediate subdirectories.
	RecurseLevels int

	// MaxPrefixesBeforePause pauses discovery once this many new prefixes
	// have been found in this call. Zero means never pause on count.
	MaxPrefixesBeforePause int

	// WallClockDeadline pauses discovery once now() reaches this instant.
	// The zero value means no deadline.
	WallClockDeadline time.Time
}

// DirectoryFindContinuation resumes a paused Directory Lister invocation.
type DirectoryFindContinuation struct {
	LastPrefix      string
	ContinuationKey string
}

// DirectoryFindResult is the outcome of one Directory Lister invocation.
// Exactly one of Paused/Completed is true, mirroring the variant described
// in §3: Completed results never carry a continuation key, and Paused
// results always do.
type DirectoryFindResult struct {
	Prefixes []string // newly discovered prefixes, insertion order

	Paused          bool
	LastPrefix      string
	ContinuationKey string
}

// Continuation extracts a DirectoryFindContinuation from a Paused result.
// Calling it on a Completed result returns the zero value.
func (r DirectoryFindResult) Continuation() DirectoryFindContinuation {
	if !r.Paused {
		return DirectoryFindContinuation{}
	}
	return DirectoryFindContinuation{
		LastPrefix:      r.LastPrefix,
		ContinuationKey: r.ContinuationKey,
	}
}

// PartitionSearcherResponse tracks one root's cumulative discovery state
// across process-run cycles.
type PartitionSearcherResponse struct {
	Root         RootLocation
	ObservedAt   time.Time
	AllPartitions []string // cumulative, insertion order, only grows
	Result       DirectoryFindResult
}

// hasPartition reports whether prefix is already known for this root.
func (r *PartitionSearcherResponse) hasPartition(prefix string) bool {
	for _, p := range r.AllPartitions {
		if p == prefix {
			return true
		}
	}
	return false
}

// Merge appends newly discovered prefixes (deduped) and records the latest
// result, per §4.3: "the cumulative partition set for a root only grows
// within a process run." Exported so internal/discover.Searcher, which
// owns the cumulative PartitionSearcherResponse per root, can apply the
// same invariant-enforcing logic instead of reimplementing it.
func (r *PartitionSearcherResponse) Merge(now time.Time, result DirectoryFindResult) {
	for _, p := range result.Prefixes {
		if !r.hasPartition(p) {
			r.AllPartitions = append(r.AllPartitions, p)
		}
	}
	r.ObservedAt = now
	r.Result = result
}

// SourceData is one decoded record produced by a FormatStreamReader, along
// with the line offset it was read from.
type SourceData struct {
	Value any
	Line  int
}

// SourceRecord is a single record ready to be handed to the embedding
// host, carrying enough provenance to build an offset-store entry.
type SourceRecord struct {
	Root      RootLocation
	Partition string
	Path      PathLocation
	Line      int
	Value     any
	Topic     string
}

// PollBatch bounds a single poll's records from one partition's reader.
type PollBatch struct {
	Records []SourceRecord
	Origin  PathLocation
	Topic   string
}
