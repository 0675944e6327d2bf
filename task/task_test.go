package task

import (
	"bytes"
	"context"
	"io"
	"sort"
	"testing"

	"github.com/justapithecus/s3ingest/ingest"
)

type memStorage struct {
	objects map[string][]byte
}

func (m *memStorage) sortedKeys(prefix string) []string {
	var keys []string
	for k := range m.objects {
		if len(k) >= len(prefix) && k[:len(prefix)] == prefix {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)
	return keys
}

func (m *memStorage) List(_ context.Context, root ingest.RootLocation, afterKey string, max int) (ingest.ListPage, error) {
	keys := m.sortedKeys(root.Prefix)
	start := 0
	for i, k := range keys {
		if k > afterKey {
			start = i
			break
		}
		start = i + 1
	}
	end := start + max
	if end > len(keys) {
		end = len(keys)
	}
	page := ingest.ListPage{Keys: append([]string(nil), keys[start:end]...)}
	if end < len(keys) {
		page.NextToken = keys[end-1]
	}
	return page, nil
}

func (m *memStorage) Head(context.Context, ingest.PathLocation) (ingest.ObjectInfo, error) {
	return ingest.ObjectInfo{}, nil
}

func (m *memStorage) Get(_ context.Context, p ingest.PathLocation) (io.ReadCloser, error) {
	data, ok := m.objects[p.Key]
	if !ok {
		return nil, ingest.ErrStorageNotFound
	}
	return io.NopCloser(bytes.NewReader(data)), nil
}

func (m *memStorage) Put(context.Context, ingest.PathLocation, io.Reader, int64) error { return nil }

func (m *memStorage) Delete(context.Context, string, []string) error { return nil }

func (m *memStorage) FindDirectories(ctx context.Context, root ingest.RootLocation, cfg ingest.DirectoryFindConfig, exclude map[string]struct{}, cont *ingest.DirectoryFindContinuation) (ingest.DirectoryFindResult, error) {
	panic("Task must discover via its own Lister atop List, not by calling FindDirectories directly")
}

// trackingReadCloser records whether Close was called on it.
type trackingReadCloser struct {
	io.Reader
	closed *bool
}

func (t *trackingReadCloser) Close() error {
	*t.closed = true
	return nil
}

// trackingStorage wraps memStorage, recording whether each object's Get
// body was closed, so a test can assert Task.Close releases them.
type trackingStorage struct {
	*memStorage
	closed map[string]*bool
}

func newTrackingStorage(objects map[string][]byte) *trackingStorage {
	return &trackingStorage{memStorage: &memStorage{objects: objects}, closed: make(map[string]*bool)}
}

func (s *trackingStorage) Get(ctx context.Context, p ingest.PathLocation) (io.ReadCloser, error) {
	rc, err := s.memStorage.Get(ctx, p)
	if err != nil {
		return nil, err
	}
	closed := new(bool)
	s.closed[p.Key] = closed
	return &trackingReadCloser{Reader: rc, closed: closed}, nil
}

func testConfig(t *testing.T) ingest.Config {
	t.Helper()
	cfg, err := ingest.ParseConfig(map[string]string{
		ingest.KeyRoutes: "INSERT INTO topic1 SELECT * FROM bucket/data",
	}, 1, 0)
	if err != nil {
		t.Fatalf("ParseConfig: %v", err)
	}
	return cfg
}

func TestTask_StartPollClose(t *testing.T) {
	storage := &memStorage{objects: map[string][]byte{
		"data/p1/1.jsonl": []byte("{\"n\":1}\n{\"n\":2}\n"),
	}}
	tsk := New(testConfig(t), storage, nil, nil)

	if err := tsk.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}
	if tsk.State() != Open {
		t.Fatalf("State() = %v, want Open", tsk.State())
	}

	batches, err := tsk.Poll(context.Background())
	if err != nil {
		t.Fatalf("Poll: %v", err)
	}
	if len(batches) != 1 || len(batches[0].Records) != 2 {
		t.Fatalf("unexpected batches: %+v", batches)
	}
	if batches[0].Topic != "topic1" {
		t.Fatalf("Topic = %q, want topic1", batches[0].Topic)
	}

	if err := tsk.Close(context.Background()); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if tsk.State() != Closed {
		t.Fatalf("State() = %v, want Closed", tsk.State())
	}
	if err := tsk.Close(context.Background()); err != nil {
		t.Fatalf("Close on already-closed Task should be a no-op, got %v", err)
	}
}

func TestTask_CloseClosesOpenManagerReaders(t *testing.T) {
	// More lines than a Manager's batch size, so Poll leaves the object's
	// reader open (io.EOF is never reached) and Close must release it.
	var body bytes.Buffer
	for i := 0; i < 550; i++ {
		body.WriteString("{\"n\":1}\n")
	}
	storage := newTrackingStorage(map[string][]byte{"data/p1/1.jsonl": body.Bytes()})
	tsk := New(testConfig(t), storage, nil, nil)

	if err := tsk.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}
	if _, err := tsk.Poll(context.Background()); err != nil {
		t.Fatalf("Poll: %v", err)
	}
	if closed := storage.closed["data/p1/1.jsonl"]; closed != nil && *closed {
		t.Fatalf("reader should still be open after a partial-object poll")
	}

	if err := tsk.Close(context.Background()); err != nil {
		t.Fatalf("Close: %v", err)
	}
	closed, ok := storage.closed["data/p1/1.jsonl"]
	if !ok || !*closed {
		t.Fatalf("expected Task.Close to close every Manager's open reader")
	}
}

func TestTask_PollBeforeStartIsStateError(t *testing.T) {
	storage := &memStorage{objects: map[string][]byte{}}
	tsk := New(testConfig(t), storage, nil, nil)

	if _, err := tsk.Poll(context.Background()); err == nil {
		t.Fatalf("expected an error polling before Start")
	}
}

func TestTask_AssignsRootsByTaskIndex(t *testing.T) {
	storage := &memStorage{objects: map[string][]byte{}}
	props := map[string]string{
		ingest.KeyRoutes: "INSERT INTO topic1 SELECT * FROM bucket/a; INSERT INTO topic2 SELECT * FROM bucket/b",
	}

	cfg0, err := ingest.ParseConfig(props, 2, 0)
	if err != nil {
		t.Fatalf("ParseConfig: %v", err)
	}
	cfg1, err := ingest.ParseConfig(props, 2, 1)
	if err != nil {
		t.Fatalf("ParseConfig: %v", err)
	}

	t0 := New(cfg0, storage, nil, nil)
	t1 := New(cfg1, storage, nil, nil)
	if err := t0.Start(context.Background()); err != nil {
		t.Fatalf("Start t0: %v", err)
	}
	if err := t1.Start(context.Background()); err != nil {
		t.Fatalf("Start t1: %v", err)
	}

	total := len(t0.routes) + len(t1.routes)
	if total != 2 {
		t.Fatalf("routes split across tasks = %d, want 2 total", total)
	}
	if len(t0.routes) > 0 && len(t1.routes) > 0 {
		if t0.routes[0].root.Prefix == t1.routes[0].root.Prefix {
			t.Fatalf("both tasks were assigned the same root")
		}
	}
}
