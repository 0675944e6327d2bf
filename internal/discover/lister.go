// Package discover implements directory discovery and per-root partition
// search atop the ingest.Storage capability's flat List operation.
package discover

import (
	"context"
	"strings"

	"github.com/justapithecus/s3ingest/ingest"
)

// defaultPageSize is the number of keys requested per List call when a
// Lister is not otherwise configured.
const defaultPageSize = 1000

// Listing is the narrow capability the Lister depends on: one page of a
// flat, key-ordered listing. ingest.Storage satisfies it; tests use a
// smaller in-memory double instead of a full Storage.
type Listing interface {
	List(ctx context.Context, root ingest.RootLocation, afterKey string, max int) (ingest.ListPage, error)
}

// Lister implements the Directory Lister: paginated, delimiter-style
// discovery of immediate (or configurably deeper) subdirectory prefixes
// beneath a root, built entirely on a flat Listing. Backends that only
// offer flat listing (no native CommonPrefixes) get directory discovery for
// free; backends that do offer it may still choose this implementation to
// keep pause/resume state a plain object key rather than a
// backend-specific continuation token.
type Lister struct {
	storage  Listing
	clock    ingest.Clock
	pageSize int
}

// NewLister builds a Lister over storage, using clock to evaluate
// DirectoryFindConfig.WallClockDeadline.
func NewLister(storage Listing, clock ingest.Clock) *Lister {
	return &Lister{storage: storage, clock: clock, pageSize: defaultPageSize}
}

// WithPageSize overrides the number of keys requested per List call. Tests
// use this to force multi-page discovery over a small fixture.
func (l *Lister) WithPageSize(n int) *Lister {
	if n > 0 {
		l.pageSize = n
	}
	return l
}

// Find performs one Directory Lister invocation: it lists root in
// pageSize-sized pages, deriving a candidate prefix from each key at depth
// root.PrefixDepth()+cfg.RecurseLevels+1, skipping prefixes already present
// in exclude, until either the listing is exhausted (Completed) or a pause
// condition trips (Paused) after a full page has been processed.
//
// continueFrom, when non-nil, resumes a previously Paused invocation: the
// underlying List call starts immediately after continueFrom's last-seen
// key, so a fresh process with no in-memory state can pick up exactly
// where a prior one paused.
func (l *Lister) Find(ctx context.Context, root ingest.RootLocation, cfg ingest.DirectoryFindConfig, exclude map[string]struct{}, continueFrom *ingest.DirectoryFindContinuation) (ingest.DirectoryFindResult, error) {
	depth := root.PrefixDepth() + cfg.RecurseLevels + 1

	afterKey := ""
	lastPrefix := ""
	if continueFrom != nil {
		afterKey = continueFrom.ContinuationKey
		lastPrefix = continueFrom.LastPrefix
	}

	var found []string
	seen := make(map[string]struct{}, len(exclude))
	for p := range exclude {
		seen[p] = struct{}{}
	}

	for {
		page, err := l.storage.List(ctx, root, afterKey, l.pageSize)
		if err != nil {
			return ingest.DirectoryFindResult{}, err
		}

		var lastKeyInPage string
		for _, key := range page.Keys {
			lastKeyInPage = key
			candidate := derivePrefix(root.Prefix, key, depth)
			if candidate == "" {
				continue
			}
			if _, ok := seen[candidate]; ok {
				continue
			}
			seen[candidate] = struct{}{}
			found = append(found, candidate)
			lastPrefix = candidate
		}

		if shouldPause(cfg, len(found), l.clock) {
			return ingest.DirectoryFindResult{
				Prefixes:        found,
				Paused:          true,
				LastPrefix:      lastPrefix,
				ContinuationKey: lastKeyInPage,
			}, nil
		}

		if page.NextToken == "" {
			return ingest.DirectoryFindResult{Prefixes: found}, nil
		}
		afterKey = page.NextToken
	}
}

// shouldPause evaluates the two pause conditions from the algorithm: a
// found-count ceiling and a wall-clock deadline. Either being zero-valued
// disables that condition.
func shouldPause(cfg ingest.DirectoryFindConfig, foundCount int, clock ingest.Clock) bool {
	if cfg.MaxPrefixesBeforePause > 0 && foundCount >= cfg.MaxPrefixesBeforePause {
		return true
	}
	if !cfg.WallClockDeadline.IsZero() && !clock.Now().Before(cfg.WallClockDeadline) {
		return true
	}
	return false
}

// derivePrefix extracts the candidate directory prefix at depth path
// segments below the bucket root from key, or "" if key does not have a
// delimiter that deep (per §4.2: "keys lacking the delimiter below the root
// are ignored"). The returned prefix includes rootPrefix, since callers use
// it directly as the Prefix of a further List/Get call.
func derivePrefix(rootPrefix, key string, depth int) string {
	if depth <= 0 {
		return ""
	}
	rel := strings.TrimPrefix(key, rootPrefix)
	parts := strings.Split(rel, "/")
	if len(parts) <= depth {
		return ""
	}
	return rootPrefix + strings.Join(parts[:depth], "/") + "/"
}
