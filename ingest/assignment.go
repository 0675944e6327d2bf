package ingest

import "hash/fnv"

// AssignRoots partitions roots across taskCount task instances using a
// stable hash of "bucket/prefix", per §5: "a prefix belongs to exactly one
// task" via "a deterministic (taskCount, taskIndex) assignment over
// configured roots (computed by a stable hash of root+prefix modulo
// taskCount)".
//
// FNV-1a is used rather than a keyed hash: assignment must be identical
// across process restarts with no shared state, which rules out anything
// seeded per-run (e.g. maphash).
func AssignRoots(roots []RootLocation, taskCount, taskIndex int) []RootLocation {
	if taskCount <= 0 {
		taskCount = 1
	}
	var mine []RootLocation
	for _, r := range roots {
		if RootTaskIndex(r, taskCount) == taskIndex {
			mine = append(mine, r)
		}
	}
	return mine
}

// RootTaskIndex computes the task index a root is assigned to under
// taskCount total tasks.
func RootTaskIndex(r RootLocation, taskCount int) int {
	if taskCount <= 0 {
		taskCount = 1
	}
	h := fnv.New32a()
	_, _ = h.Write([]byte(r.Bucket))
	_, _ = h.Write([]byte("/"))
	_, _ = h.Write([]byte(r.Prefix))
	return int(h.Sum32() % uint32(taskCount))
}
