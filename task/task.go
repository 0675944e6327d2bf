// Package task implements the Task State Machine (§4.8): the
// per-task-instance composition of configuration, the Storage capability,
// the Partition Searcher, and the Reader Manager Service into a single
// Clean -> Open -> Closed lifecycle.
package task

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/justapithecus/s3ingest/ingest"
	"github.com/justapithecus/s3ingest/internal/discover"
	"github.com/justapithecus/s3ingest/internal/format"
	"github.com/justapithecus/s3ingest/internal/readermgr"
)

// State enumerates the Task's lifecycle.
type State int

// Task states.
const (
	Clean State = iota
	Open
	Closed
)

func (s State) String() string {
	switch s {
	case Clean:
		return "clean"
	case Open:
		return "open"
	case Closed:
		return "closed"
	default:
		return "unknown"
	}
}

// rootRoute pairs an assigned root with the topic it feeds.
type rootRoute struct {
	root  ingest.RootLocation
	topic string
}

// Task is one instance of the Task State Machine. Its correlation ID is
// threaded through every error it returns, so a fleet of parallel task
// instances can be told apart in shared logs.
type Task struct {
	id       uuid.UUID
	cfg      ingest.Config
	storage  ingest.Storage
	clock    ingest.Clock
	offsetFn ingest.OffsetFn

	state    State
	routes   []rootRoute
	searcher *discover.Searcher
	service  *readermgr.Service
}

// New builds a Task in the Clean state. storage must already be configured
// with credentials and, for a source that also sinks, write access;
// clock defaults to the system clock when nil; offsetFn defaults to
// ingest.NoOffsets when nil, meaning the task starts every partition cold.
func New(cfg ingest.Config, storage ingest.Storage, clock ingest.Clock, offsetFn ingest.OffsetFn) *Task {
	if clock == nil {
		clock = ingest.NewSystemClock()
	}
	if offsetFn == nil {
		offsetFn = ingest.NoOffsets
	}
	return &Task{
		id:       uuid.New(),
		cfg:      cfg,
		storage:  storage,
		clock:    clock,
		offsetFn: offsetFn,
		state:    Clean,
	}
}

// ID returns the task instance's correlation ID.
func (t *Task) ID() uuid.UUID { return t.id }

// State returns the Task's current lifecycle state.
func (t *Task) State() State { return t.state }

// Start resolves this instance's assigned roots (per §5's deterministic
// (taskCount, taskIndex) partitioning) and moves the Task from Clean to
// Open. Calling Start on a non-Clean Task is a StateError.
func (t *Task) Start(ctx context.Context) error {
	if t.state != Clean {
		return t.wrapErr(&ingest.StateError{State: t.state.String(), Op: "start"})
	}

	var roots []ingest.RootLocation
	byRoot := make(map[string]string, len(t.cfg.Routes))
	for _, r := range t.cfg.Routes {
		roots = append(roots, r.Root)
		byRoot[rootID(r.Root)] = r.Topic
	}

	mine := ingest.AssignRoots(roots, t.cfg.TaskCount, t.cfg.TaskIndex)
	for _, r := range mine {
		t.routes = append(t.routes, rootRoute{root: r, topic: byRoot[rootID(r)]})
	}

	lister := discover.NewLister(t.storage, t.clock)
	t.searcher = discover.NewSearcher(lister, t.clock)
	service, err := readermgr.NewService(t.storage, format.JSONL, t.offsetFn, defaultRetireAfterEmptyPolls, t.cfg.ExtractorType, t.cfg.ExtractorRegex)
	if err != nil {
		return t.wrapErr(err)
	}
	t.service = service

	t.state = Open
	return nil
}

// defaultRetireAfterEmptyPolls closes a partition's Reader Manager after
// this many consecutive empty polls once it is caught up, per §9's design
// note on partitions that disappear mid-run.
const defaultRetireAfterEmptyPolls = 10

// Poll runs one discovery-and-read cycle: it refreshes each assigned
// root's partition set (debounced by cfg.SearchInterval), registers a
// Reader Manager for every partition discovered so far, and returns
// whatever batches those managers have ready. Calling Poll before Start or
// after Close is a StateError.
func (t *Task) Poll(ctx context.Context) ([]ingest.PollBatch, error) {
	if t.state != Open {
		return nil, t.wrapErr(&ingest.StateError{State: t.state.String(), Op: "poll"})
	}

	discoverCfg := ingest.DirectoryFindConfig{
		RecurseLevels:          t.cfg.RecurseLevels,
		MaxPrefixesBeforePause: t.cfg.PauseAfterCount,
	}
	if t.cfg.PauseAfterMillis > 0 {
		discoverCfg.WallClockDeadline = t.clock.Now().Add(t.cfg.PauseAfterMillis)
	}

	for _, rr := range t.routes {
		resp, err := t.searcher.Search(ctx, rr.root, discoverCfg, t.cfg.SearchInterval)
		if err != nil {
			return nil, t.wrapErr(fmt.Errorf("search %s: %w", rootID(rr.root), err))
		}
		for _, partition := range resp.AllPartitions {
			t.service.Ensure(rr.root, partition, rr.topic)
		}
	}

	batches, err := t.service.PollAll(ctx)
	if err != nil {
		return nil, t.wrapErr(err)
	}
	return batches, nil
}

// Close moves the Task to Closed. Calling Close on an already-Closed Task
// is a no-op; calling it on a Clean Task (never Started) is a StateError,
// since there is nothing to release. Per §4.8, closing a Task closes all
// of its Reader Managers first, then its storage handle; storage is a
// capability owned by the caller of New, not by the Task, so only the
// managers are closed here.
func (t *Task) Close(ctx context.Context) error {
	if t.state == Closed {
		return nil
	}
	if t.state != Open {
		return t.wrapErr(&ingest.StateError{State: t.state.String(), Op: "close"})
	}
	err := t.service.CloseAll()
	t.state = Closed
	if err != nil {
		return t.wrapErr(err)
	}
	return nil
}

// wrapErr threads this Task's correlation ID through every error it
// surfaces, so a fleet of concurrent task instances remains distinguishable
// in shared logs.
func (t *Task) wrapErr(err error) error {
	return fmt.Errorf("task %s: %w", t.id, err)
}

// rootID is the same bucket+prefix key used for hashing in
// ingest.RootTaskIndex, reused here to correlate a resolved root back to
// the route it came from.
func rootID(r ingest.RootLocation) string {
	return r.Bucket + "/" + r.Prefix
}
