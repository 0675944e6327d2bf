package readermgr

import (
	"context"
	"sort"
	"sync"

	"github.com/justapithecus/s3ingest/ingest"
	"github.com/justapithecus/s3ingest/internal/format"
)

// Service implements the Reader Manager Service: a registry of Managers
// keyed by (root, partition), created on demand as the Partition Searcher
// discovers new partitions, and polled in a stable order per §4.7.
type Service struct {
	storage               ingest.Storage
	typ                   format.Type
	offsetFn              ingest.OffsetFn
	retireAfterEmptyPolls int
	extractor             *partitionExtractor

	mu       sync.Mutex
	managers map[managerKey]*Manager
	order    []managerKey
}

type managerKey struct {
	bucket    string
	partition string
	topic     string
}

// NewService builds a Service. typ is the record format applied to every
// object across every managed partition; offsetFn resumes each newly
// created Manager from its prior committed offset, if any. extractorType
// and extractorRegex (the §6 partition.extractor.type/.regex config) decide
// how each Manager derives a SourceRecord's Partition value from its
// object's key; an invalid regex pattern is a ConfigError returned here
// rather than surfacing on the first object read.
func NewService(storage ingest.Storage, typ format.Type, offsetFn ingest.OffsetFn, retireAfterEmptyPolls int, extractorType ingest.ExtractorType, extractorRegex string) (*Service, error) {
	extractor, err := newPartitionExtractor(extractorType, extractorRegex)
	if err != nil {
		return nil, err
	}
	return &Service{
		storage:               storage,
		typ:                   typ,
		offsetFn:              offsetFn,
		retireAfterEmptyPolls: retireAfterEmptyPolls,
		extractor:             extractor,
		managers:              make(map[managerKey]*Manager),
	}, nil
}

// Ensure registers a Manager for root+partition+topic if one does not
// already exist, and returns it. Calling Ensure again for an
// already-known partition is a no-op returning the existing Manager, so
// the Partition Searcher's cumulative (only-grows) partition set can be
// replayed into Ensure on every search cycle without duplicating readers.
func (s *Service) Ensure(root ingest.RootLocation, partition, topic string) *Manager {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := managerKey{bucket: root.Bucket, partition: partition, topic: topic}
	if m, ok := s.managers[key]; ok {
		return m
	}
	m := NewManager(s.storage, root, partition, s.typ, topic, s.offsetFn, s.retireAfterEmptyPolls, s.extractor.forPartition(partition))
	s.managers[key] = m
	s.order = append(s.order, key)
	return m
}

// PollAll polls every registered, non-Closed Manager in a stable order
// (insertion order of Ensure calls) and returns the non-empty batches.
// Closed managers are skipped but left registered, so a partition that
// later reappears is not silently re-created as a fresh cold Manager.
func (s *Service) PollAll(ctx context.Context) ([]ingest.PollBatch, error) {
	s.mu.Lock()
	keys := append([]managerKey(nil), s.order...)
	s.mu.Unlock()

	var batches []ingest.PollBatch
	for _, key := range keys {
		s.mu.Lock()
		m := s.managers[key]
		s.mu.Unlock()
		if m == nil || m.State() == Closed {
			continue
		}
		batch, err := m.Poll(ctx)
		if err != nil {
			return batches, err
		}
		if len(batch.Records) > 0 {
			batches = append(batches, batch)
		}
	}
	return batches, nil
}

// CloseAll closes every registered Manager, releasing any open reader.
// Per §4.8, a Task closes all of its managers before its storage handle.
// The first error encountered is returned after every Manager has been
// given a chance to close, so one stuck reader doesn't leak the rest.
func (s *Service) CloseAll() error {
	s.mu.Lock()
	managers := make([]*Manager, 0, len(s.managers))
	for _, m := range s.managers {
		managers = append(managers, m)
	}
	s.mu.Unlock()

	var firstErr error
	for _, m := range managers {
		if err := m.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

// Managers returns a stable, sorted snapshot of registered partitions, for
// diagnostics and tests.
func (s *Service) Managers() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	names := make([]string, 0, len(s.managers))
	for k := range s.managers {
		names = append(names, k.bucket+"/"+k.partition+"->"+k.topic)
	}
	sort.Strings(names)
	return names
}
