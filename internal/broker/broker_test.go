package broker

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"nostrss/internal/domain"
	"nostrss/internal/nostrevent"
	"nostrss/internal/registry"
	"nostrss/internal/template"
	"nostrss/pkg/logger"
)

func init() {
	logger.Init("error")
}

const testKey = "6789abcdef0123456789abcdef0123456789abcdef0123456789abcdef0123"

// fakeFetcher returns a scripted, ordered sequence of responses: each call
// to Fetch pops the next entry from calls, or repeats the last one once
// exhausted.
type fakeFetcher struct {
	mu    sync.Mutex
	calls [][]domain.Entry
	n     int
}

func (f *fakeFetcher) Fetch(_ context.Context, _ string) ([]domain.Entry, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.n >= len(f.calls) {
		return f.calls[len(f.calls)-1], nil
	}
	out := f.calls[f.n]
	f.n++
	return out, nil
}

type erroringFetcher struct{}

func (erroringFetcher) Fetch(context.Context, string) ([]domain.Entry, error) {
	return nil, assertError{"fetch failed"}
}

type assertError struct{ msg string }

func (e assertError) Error() string { return e.msg }

// fakePublisher records every publish call; it never fails.
type fakePublisher struct {
	mu    sync.Mutex
	calls []publishCall
}

type publishCall struct {
	ProfileID string
	Content   string
}

func (p *fakePublisher) Publish(_ context.Context, profile domain.Profile, _ []domain.Relay, content string, tags [][]string) (*nostrevent.Event, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.calls = append(p.calls, publishCall{ProfileID: profile.ID, Content: content})
	return &nostrevent.Event{ID: "fake", Tags: tags}, nil
}

func (p *fakePublisher) count() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.calls)
}

func newTestRegistry(t *testing.T, extra ...domain.Profile) *registry.Profiles {
	t.Helper()
	r := registry.New()
	require.NoError(t, r.Add(domain.Profile{ID: "default", PrivateKey: testKey}))
	for _, p := range extra {
		require.NoError(t, r.Add(p))
	}
	return r
}

func newTestRenderer(t *testing.T) *template.Renderer {
	t.Helper()
	r, err := template.NewRenderer("{title}")
	require.NoError(t, err)
	return r
}

func TestInitialSnapshotSuppressesBacklog(t *testing.T) {
	fetcher := &fakeFetcher{calls: [][]domain.Entry{
		{{ID: "1"}, {ID: "2"}},
		{{ID: "1"}, {ID: "2"}},
	}}
	publisher := &fakePublisher{}
	state := NewState(newTestRegistry(t))
	sched := NewScheduler(state, fetcher, newTestRenderer(t), publisher)

	f := domain.Feed{ID: "f1", Name: "Feed", URL: "https://example.com/feed", Schedule: "*/1 * * * * *", CacheSize: 100}
	require.NoError(t, sched.AddFeed(f))

	handle, ok := state.jobFor("f1")
	require.True(t, ok)
	job := NewJob("f1", state, fetcher, newTestRenderer(t), publisher)
	job.Tick(handle)

	assert.Equal(t, 0, publisher.count())
	c, ok := state.cacheFor("f1")
	require.True(t, ok)
	assert.ElementsMatch(t, []string{"1", "2"}, c.Snapshot())
}

func TestNewEntryPublishedToTwoProfiles(t *testing.T) {
	fetcher := &fakeFetcher{calls: [][]domain.Entry{
		{{ID: "b", Title: "new"}, {ID: "a", Title: "old"}},
	}}
	publisher := &fakePublisher{}
	reg := newTestRegistry(t, domain.Profile{ID: "p2", PrivateKey: testKey})
	state := NewState(reg)

	f := domain.Feed{ID: "f1", Name: "Feed", URL: "https://example.com/feed", Schedule: "*/1 * * * * *", Profiles: []string{"default", "p2"}, Tags: []string{"rss"}, CacheSize: 100}

	handle := &JobHandle{}
	job := NewJob(f.ID, state, fetcher, newTestRenderer(t), publisher)

	dedup := newSeededCache(f.CacheSize, []string{"a"})
	require.NoError(t, state.register(f, dedup, handle))

	job.Tick(handle)

	require.Equal(t, 2, publisher.count())
	snap := dedup.Snapshot()
	assert.Equal(t, []string{"b", "a"}, snap)
}

func TestTemplateErrorAbortsTick(t *testing.T) {
	fetcher := &fakeFetcher{calls: [][]domain.Entry{{{ID: "c"}}}}
	publisher := &fakePublisher{}
	state := NewState(newTestRegistry(t))

	r, err := template.NewRenderer("{unknown}")
	require.NoError(t, err)

	f := domain.Feed{ID: "f1", URL: "https://example.com/feed", Schedule: "*/1 * * * * *", CacheSize: 10}
	handle := &JobHandle{}
	job := NewJob(f.ID, state, fetcher, r, publisher)
	dedup := newSeededCache(f.CacheSize, nil)
	require.NoError(t, state.register(f, dedup, handle))

	job.Tick(handle)

	assert.Equal(t, 0, publisher.count())
	assert.False(t, dedup.Contains("c"))
}

func TestCacheEviction(t *testing.T) {
	fetcher := &fakeFetcher{calls: [][]domain.Entry{{{ID: "c"}}}}
	publisher := &fakePublisher{}
	state := NewState(newTestRegistry(t))

	f := domain.Feed{ID: "f1", URL: "https://example.com/feed", Schedule: "*/1 * * * * *", CacheSize: 2}
	handle := &JobHandle{}
	job := NewJob(f.ID, state, fetcher, newTestRenderer(t), publisher)
	dedup := newSeededCache(f.CacheSize, []string{"b", "a"})
	require.NoError(t, state.register(f, dedup, handle))

	job.Tick(handle)

	assert.Equal(t, []string{"c", "b"}, dedup.Snapshot())
	assert.False(t, dedup.Contains("a"))
}

func TestDeleteDefaultProfileForbidden(t *testing.T) {
	r := newTestRegistry(t)
	err := r.Delete("default")
	require.ErrorIs(t, err, registry.ErrForbidden)
}

func TestAddFeedInvalidScheduleRejected(t *testing.T) {
	state := NewState(newTestRegistry(t))
	sched := NewScheduler(state, &fakeFetcher{calls: [][]domain.Entry{{}}}, newTestRenderer(t), &fakePublisher{})

	err := sched.AddFeed(domain.Feed{ID: "bad", URL: "https://example.com", Schedule: "not a cron"})
	require.Error(t, err)

	assert.Len(t, sched.ListFeeds(), 0)
	_, ok := state.jobFor("bad")
	assert.False(t, ok)
}

func TestConcurrentAddFeedSameIDOnlyOneSucceeds(t *testing.T) {
	state := NewState(newTestRegistry(t))
	sched := NewScheduler(state, &fakeFetcher{calls: [][]domain.Entry{{}}}, newTestRenderer(t), &fakePublisher{})

	f := domain.Feed{ID: "dup", URL: "https://example.com", Schedule: "*/5 * * * * *", CacheSize: 10}

	var successes int32
	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if sched.AddFeed(f) == nil {
				atomic.AddInt32(&successes, 1)
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, int32(1), successes)
}

func TestFetchFailureLeavesCacheUnchanged(t *testing.T) {
	state := NewState(newTestRegistry(t))
	publisher := &fakePublisher{}
	f := domain.Feed{ID: "f1", URL: "https://example.com", Schedule: "*/1 * * * * *", CacheSize: 10}

	handle := &JobHandle{}
	job := NewJob(f.ID, state, erroringFetcher{}, newTestRenderer(t), publisher)
	dedup := newSeededCache(f.CacheSize, []string{"x"})
	require.NoError(t, state.register(f, dedup, handle))

	job.Tick(handle)

	assert.Equal(t, []string{"x"}, dedup.Snapshot())
	assert.Equal(t, 0, publisher.count())
}

func TestStateInvariantHoldsAcrossAddDelete(t *testing.T) {
	state := NewState(newTestRegistry(t))
	sched := NewScheduler(state, &fakeFetcher{calls: [][]domain.Entry{{}}}, newTestRenderer(t), &fakePublisher{})

	f := domain.Feed{ID: "f1", URL: "https://example.com", Schedule: "*/5 * * * * *", CacheSize: 10}
	require.NoError(t, sched.AddFeed(f))
	assert.True(t, state.Invariant())

	require.NoError(t, sched.DeleteFeed("f1"))
	assert.True(t, state.Invariant())
}

func TestDeleteFeedNotFound(t *testing.T) {
	state := NewState(newTestRegistry(t))
	sched := NewScheduler(state, &fakeFetcher{calls: [][]domain.Entry{{}}}, newTestRenderer(t), &fakePublisher{})

	err := sched.DeleteFeed("ghost")
	require.Error(t, err)
}

func TestEmptyProfilesFanOutIsDefaultOnly(t *testing.T) {
	f := domain.Feed{ID: "f1"}
	assert.Equal(t, []string{"default"}, f.ProfileIDs())
}

func TestAddDeleteAddIsObservationallyEqual(t *testing.T) {
	state := NewState(newTestRegistry(t))
	sched := NewScheduler(state, &fakeFetcher{calls: [][]domain.Entry{{}}}, newTestRenderer(t), &fakePublisher{})

	f := domain.Feed{ID: "f1", URL: "https://example.com", Schedule: "*/5 * * * * *", CacheSize: 10}
	require.NoError(t, sched.AddFeed(f))
	require.NoError(t, sched.DeleteFeed("f1"))
	require.NoError(t, sched.AddFeed(f))

	feeds := sched.ListFeeds()
	require.Len(t, feeds, 1)
	assert.Equal(t, f.ID, feeds[0].ID)
}

func TestStartStopJobPause(t *testing.T) {
	state := NewState(newTestRegistry(t))
	sched := NewScheduler(state, &fakeFetcher{calls: [][]domain.Entry{{}}}, newTestRenderer(t), &fakePublisher{})

	f := domain.Feed{ID: "f1", URL: "https://example.com", Schedule: "*/5 * * * * *", CacheSize: 10}
	require.NoError(t, sched.AddFeed(f))

	require.NoError(t, sched.StopJob("f1"))
	require.NoError(t, sched.StartJob("f1"))

	// Feed and cache remain untouched by pause/resume.
	assert.True(t, state.Invariant())
}

func TestSchedulerStartIsIdempotent(t *testing.T) {
	state := NewState(newTestRegistry(t))
	sched := NewScheduler(state, &fakeFetcher{calls: [][]domain.Entry{{}}}, newTestRenderer(t), &fakePublisher{})
	sched.Start()
	sched.Start()
	time.Sleep(time.Millisecond)
}
