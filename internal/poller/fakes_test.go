package poller

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/JakeFAU/availmon/internal/monitor"
)

type fetchStep struct {
	page monitor.Page
	err  error
	fn   func()
}

type fakeFetcher struct {
	mu    sync.Mutex
	steps []fetchStep
	calls int
}

func (f *fakeFetcher) Fetch(_ context.Context, url string) (monitor.Page, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.steps) == 0 {
		return monitor.Page{}, fmt.Errorf("%w: no scripted response", monitor.ErrFetch)
	}
	i := f.calls
	if i >= len(f.steps) {
		i = len(f.steps) - 1
	}
	f.calls++
	step := f.steps[i]
	if step.fn != nil {
		step.fn()
	}
	if step.err != nil {
		return monitor.Page{}, step.err
	}
	page := step.page
	page.URL = url
	return page, nil
}

func pageOf(html string) fetchStep {
	return fetchStep{page: monitor.Page{HTML: []byte(html), StatusCode: 200, Engine: "fake"}}
}

// fakeExtractor maps HTML bodies to readings.
type fakeExtractor map[string]monitor.Reading

func (f fakeExtractor) Extract(html []byte) monitor.Reading {
	if string(html) == "panic" {
		panic("extractor exploded")
	}
	return f[string(html)]
}

type fakeHistory struct {
	mu        sync.Mutex
	entries   []monitor.Observation
	loadErr   error
	appendErr error
}

func (h *fakeHistory) LoadLast(context.Context) (monitor.Observation, bool, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.loadErr != nil {
		return monitor.Observation{}, false, h.loadErr
	}
	if len(h.entries) == 0 {
		return monitor.Observation{}, false, nil
	}
	return h.entries[len(h.entries)-1], true, nil
}

func (h *fakeHistory) Append(_ context.Context, obs monitor.Observation) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.appendErr != nil {
		return h.appendErr
	}
	h.entries = append(h.entries, obs)
	return nil
}

func (h *fakeHistory) List(context.Context) ([]monitor.Observation, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	return append([]monitor.Observation(nil), h.entries...), nil
}

type fakeNotifier struct {
	mu       sync.Mutex
	messages []monitor.Message
	err      error
}

func (n *fakeNotifier) Notify(_ context.Context, msg monitor.Message) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.messages = append(n.messages, msg)
	return n.err
}

type fakeBlobStore struct {
	paths []string
	data  [][]byte
	err   error
}

func (b *fakeBlobStore) PutObject(_ context.Context, path, _ string, r io.Reader) (string, error) {
	if b.err != nil {
		return "", b.err
	}
	data, err := io.ReadAll(r)
	if err != nil {
		return "", err
	}
	b.paths = append(b.paths, path)
	b.data = append(b.data, data)
	return "mem://" + path, nil
}

type fakeHasher struct{}

func (fakeHasher) Hash([]byte) (string, error) {
	return "abcdef0123456789", nil
}

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(time.Second)
	return c.now
}

type fakeIDs struct {
	mu sync.Mutex
	n  int
}

func (g *fakeIDs) NewID() (string, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.n++
	return fmt.Sprintf("cycle-%d", g.n), nil
}

type failingIDs struct{}

func (failingIDs) NewID() (string, error) {
	return "", errors.New("entropy exhausted")
}

type fakeRecorder struct {
	mu            sync.Mutex
	outcomes      []monitor.Outcome
	available     []int
	notifications []error
	writes        []error
}

func (r *fakeRecorder) ObservePoll(o monitor.Outcome, _ time.Duration) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.outcomes = append(r.outcomes, o)
}

func (r *fakeRecorder) SetAvailable(c int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.available = append(r.available, c)
}

func (r *fakeRecorder) ObserveNotification(err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.notifications = append(r.notifications, err)
}

func (r *fakeRecorder) ObserveHistoryWrite(err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.writes = append(r.writes, err)
}
