// Package readermgr implements the Result Reader and Reader Manager: the
// per-partition read state machine that walks objects within a partition
// prefix in key order, opens each with a Format Stream Reader, and yields
// bounded batches of records for a poll cycle.
package readermgr

import (
	"context"
	"io"
	"sync"

	"github.com/justapithecus/s3ingest/ingest"
	"github.com/justapithecus/s3ingest/internal/format"
)

// State enumerates a Manager's lifecycle, per §4.6: Idle between polls,
// Reading mid-poll, Closed once retired.
type State int

// Manager states.
const (
	Idle State = iota
	Reading
	Closed
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Reading:
		return "reading"
	case Closed:
		return "closed"
	default:
		return "unknown"
	}
}

// defaultMaxBatch bounds the number of records a single Poll returns.
const defaultMaxBatch = 500

// Manager is the Reader Manager for one partition: it owns a cursor over
// the objects within root+partition, walking them in key order and
// resuming mid-object from a prior committed offset.
type Manager struct {
	storage     ingest.Storage
	root        ingest.RootLocation
	partition   string
	typ         format.Type // fallback when the object key's extension is unrecognized
	topic       string
	maxBatch    int
	partitionFn PartitionFunc

	retireAfterEmptyPolls int

	mu               sync.Mutex
	state            State
	reader           format.StreamReader
	current          ingest.PathLocation
	currentPartition string
	afterKey         string
	emptyPolls       int

	havePending     bool
	pendingPath     ingest.PathLocation
	pendingStartLine int
}

// NewManager builds a Manager for root+partition. offsetFn is queried once,
// at construction, per §4.6: a Manager resumes from whatever offset was
// recorded for this partition, or starts cold if offsetFn reports none.
// retireAfterEmptyPolls, when > 0, closes the Manager after that many
// consecutive empty polls once Idle — resolving §9's design note about
// partitions that disappear mid-run. partitionFn computes each SourceRecord's
// Partition value from the object key that produced it; a nil partitionFn
// falls back to reusing partition itself, unchanged per object.
func NewManager(storage ingest.Storage, root ingest.RootLocation, partition string, typ format.Type, topic string, offsetFn ingest.OffsetFn, retireAfterEmptyPolls int, partitionFn PartitionFunc) *Manager {
	if partitionFn == nil {
		partitionFn = func(string) (string, error) { return partition, nil }
	}
	m := &Manager{
		storage:               storage,
		root:                  root,
		partition:             partition,
		typ:                   typ,
		topic:                 topic,
		maxBatch:              defaultMaxBatch,
		partitionFn:           partitionFn,
		retireAfterEmptyPolls: retireAfterEmptyPolls,
		state:                 Idle,
	}
	if offsetFn != nil {
		if pw, ok := offsetFn(ingest.OffsetKey{Container: root.Bucket, Prefix: partition}); ok {
			m.havePending = true
			m.pendingPath = pw.Path
			m.pendingStartLine = pw.Line + 1
		}
	}
	return m
}

// State returns the Manager's current lifecycle state.
func (m *Manager) State() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

// Poll reads up to maxBatch records from the current object, advancing to
// the partition's next object on exhaustion. A poll that finds no more
// objects and no pending records returns an empty PollBatch, not an error;
// callers distinguish "nothing new yet" from a genuine failure via err.
func (m *Manager) Poll(ctx context.Context) (ingest.PollBatch, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.state == Closed {
		return ingest.PollBatch{}, &ingest.StateError{State: "closed", Op: "poll"}
	}
	m.state = Reading

	if m.reader == nil {
		path, startLine, ok, err := m.nextObject(ctx)
		if err != nil {
			return ingest.PollBatch{}, err
		}
		if !ok {
			return ingest.PollBatch{}, m.markEmpty()
		}
		typ := m.typ
		if inferred, ok := format.TypeFromKey(path.Key); ok {
			typ = inferred
		}
		reader, err := format.Open(ctx, m.storage, path, typ, startLine)
		if err != nil {
			return ingest.PollBatch{}, err
		}
		partitionValue, err := m.partitionFn(path.Key)
		if err != nil {
			_ = reader.Close()
			return ingest.PollBatch{}, err
		}
		m.reader = reader
		m.current = path
		m.currentPartition = partitionValue
	}

	var records []ingest.SourceRecord
	for len(records) < m.maxBatch {
		data, err := m.reader.Next()
		if err == io.EOF {
			_ = m.reader.Close()
			m.reader = nil
			break
		}
		if err != nil {
			return ingest.PollBatch{}, err
		}
		records = append(records, ingest.SourceRecord{
			Root:      m.root,
			Partition: m.currentPartition,
			Path:      m.current,
			Line:      data.Line,
			Value:     data.Value,
			Topic:     m.topic,
		})
	}

	if len(records) == 0 {
		return ingest.PollBatch{}, m.markEmpty()
	}

	m.emptyPolls = 0
	m.state = Idle
	return ingest.PollBatch{Records: records, Origin: m.current, Topic: m.topic}, nil
}

// markEmpty records an empty poll cycle and retires the Manager once
// retireAfterEmptyPolls consecutive empty polls have occurred. Called with
// mu held.
func (m *Manager) markEmpty() error {
	m.emptyPolls++
	if m.retireAfterEmptyPolls > 0 && m.emptyPolls >= m.retireAfterEmptyPolls {
		m.state = Closed
		return nil
	}
	m.state = Idle
	return nil
}

// nextObject returns the next object to read within the partition, in key
// order. A pending resume path (set at construction from a prior offset)
// is returned first; afterward, nextObject lists one key at a time via
// Storage.List's StartAfter-style pagination.
func (m *Manager) nextObject(ctx context.Context) (ingest.PathLocation, int, bool, error) {
	if m.havePending {
		m.havePending = false
		m.afterKey = m.pendingPath.Key
		return m.pendingPath, m.pendingStartLine, true, nil
	}

	page, err := m.storage.List(ctx, ingest.RootLocation{Bucket: m.root.Bucket, Prefix: m.partition}, m.afterKey, 1)
	if err != nil {
		return ingest.PathLocation{}, 0, false, err
	}
	if len(page.Keys) == 0 {
		return ingest.PathLocation{}, 0, false, nil
	}
	key := page.Keys[0]
	m.afterKey = key
	return ingest.PathLocation{Bucket: m.root.Bucket, Key: key}, 0, true, nil
}

// Close transitions the Manager to Closed, releasing any open reader.
func (m *Manager) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.reader != nil {
		err := m.reader.Close()
		m.reader = nil
		m.state = Closed
		return err
	}
	m.state = Closed
	return nil
}
