package discover

import (
	"context"
	"sync"
	"time"

	"github.com/justapithecus/s3ingest/ingest"
)

// Searcher implements the Partition Searcher: it runs the Directory Lister
// against each configured root, debounced by a minimum interval between
// searches, and accumulates a cumulative, monotonically growing partition
// set per root for the lifetime of the process.
type Searcher struct {
	lister *Lister
	clock  ingest.Clock

	mu    sync.Mutex
	state map[rootKey]*ingest.PartitionSearcherResponse
}

type rootKey struct {
	bucket string
	prefix string
}

func keyOf(r ingest.RootLocation) rootKey { return rootKey{r.Bucket, r.Prefix} }

// NewSearcher builds a Searcher over lister, using clock to decide whether
// a root's debounce interval has elapsed.
func NewSearcher(lister *Lister, clock ingest.Clock) *Searcher {
	return &Searcher{
		lister: lister,
		clock:  clock,
		state:  make(map[rootKey]*ingest.PartitionSearcherResponse),
	}
}

// Response returns the current cumulative state for root, or the zero value
// if root has never been searched.
func (s *Searcher) Response(root ingest.RootLocation) ingest.PartitionSearcherResponse {
	s.mu.Lock()
	defer s.mu.Unlock()
	if r, ok := s.state[keyOf(root)]; ok {
		return *r
	}
	return ingest.PartitionSearcherResponse{Root: root}
}

// Search runs one debounced search cycle over root: if less than interval
// has elapsed since the last search that observed root and that search
// completed, it returns the current cumulative state unchanged. A Paused
// result is never debounced — it is resumed on the very next call
// regardless of interval, since pausing exists to bound one call's work,
// not to slow down how quickly an unfinished listing gets resumed.
// Otherwise it runs the Directory Lister (resuming a prior pause if the
// last cycle left one) and merges any newly discovered prefixes into the
// cumulative set, which per the discovery algorithm's design only ever
// grows within a process run.
func (s *Searcher) Search(ctx context.Context, root ingest.RootLocation, cfg ingest.DirectoryFindConfig, interval time.Duration) (ingest.PartitionSearcherResponse, error) {
	s.mu.Lock()
	resp, ok := s.state[keyOf(root)]
	if !ok {
		resp = &ingest.PartitionSearcherResponse{Root: root}
		s.state[keyOf(root)] = resp
	}
	due := !ok || resp.ObservedAt.IsZero() || resp.Result.Paused || s.clock.Now().Sub(resp.ObservedAt) >= interval
	s.mu.Unlock()

	if !due {
		return *resp, nil
	}

	s.mu.Lock()
	var continueFrom *ingest.DirectoryFindContinuation
	if resp.Result.Paused {
		c := resp.Result.Continuation()
		continueFrom = &c
	}
	exclude := make(map[string]struct{}, len(resp.AllPartitions))
	for _, p := range resp.AllPartitions {
		exclude[p] = struct{}{}
	}
	s.mu.Unlock()

	result, err := s.lister.Find(ctx, root, cfg, exclude, continueFrom)
	if err != nil {
		return ingest.PartitionSearcherResponse{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	resp.Merge(s.clock.Now(), result)
	return *resp, nil
}
