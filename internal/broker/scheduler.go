package broker

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"nostrss/internal/cache"
	"nostrss/internal/domain"
	"nostrss/internal/feed"
	"nostrss/internal/relay"
	"nostrss/internal/template"
	"nostrss/pkg/apperror"
	"nostrss/pkg/logger"
)

// Scheduler owns the set of Feed Jobs, driving them with a single
// cron.Cron instance (6-field, seconds precision) per spec §4.5/§9. State
// transitions per feed: Created → Snapshotting (AddFeed, synchronous) →
// Armed (timer registered) → Firing/Armed (each tick) → Stopped
// (DeleteFeed, letting an in-flight tick run to completion).
type Scheduler struct {
	state     *State
	cron      *cron.Cron
	fetcher   feed.Fetcher
	renderer  *template.Renderer
	publisher relay.Publisher

	defaultCacheSize int

	mu      sync.Mutex
	started bool
}

var cronParser = cron.NewParser(cron.Second | cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow)

// defaultCacheSizeFallback is the "else 1000" half of spec §3's
// DEFAULT_CACHE_SIZE rule, used when no SchedulerOption overrides it.
const defaultCacheSizeFallback = 1000

// SchedulerOption configures optional Scheduler behavior at construction.
type SchedulerOption func(*Scheduler)

// WithDefaultCacheSize overrides the cache_size fallback AddFeed applies to
// any feed whose cache_size is unset, matching spec §3's env
// DEFAULT_CACHE_SIZE rule.
func WithDefaultCacheSize(n int) SchedulerOption {
	return func(s *Scheduler) { s.defaultCacheSize = n }
}

// NewScheduler creates a Scheduler over the given BrokerState and
// collaborators. Start must be called once to begin firing timers.
func NewScheduler(state *State, fetcher feed.Fetcher, renderer *template.Renderer, publisher relay.Publisher, opts ...SchedulerOption) *Scheduler {
	s := &Scheduler{
		state:            state,
		cron:             cron.New(cron.WithParser(cronParser)),
		fetcher:          fetcher,
		renderer:         renderer,
		publisher:        publisher,
		defaultCacheSize: defaultCacheSizeFallback,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Start begins firing timers for every currently armed feed.
func (s *Scheduler) Start() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.started {
		return
	}
	s.cron.Start()
	s.started = true
}

// Stop halts the underlying cron driver, waiting for in-flight ticks to
// finish. It does not remove any feed, job or cache.
func (s *Scheduler) Stop() {
	ctx := s.cron.Stop()
	<-ctx.Done()
}

// AddFeed atomically registers a feed, takes its initial snapshot, and
// arms its timer. It validates the feed first so no partial registration
// ever becomes observable.
func (s *Scheduler) AddFeed(f domain.Feed) error {
	if err := f.Validate(); err != nil {
		return apperror.Wrap(err, apperror.CodeInvalidArgument, "invalid feed").WithField("feed")
	}
	if f.CacheSize == 0 {
		f.CacheSize = s.defaultCacheSize
	}

	handle := &JobHandle{}
	job := NewJob(f.ID, s.state, s.fetcher, s.renderer, s.publisher)

	snapshotCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	initialIDs := job.Snapshot(snapshotCtx, f)

	c := newSeededCache(f.CacheSize, initialIDs)

	if err := s.state.register(f, c, handle); err != nil {
		return apperror.Wrap(err, apperror.CodeAlreadyExists, fmt.Sprintf("feed %q already exists", f.ID))
	}

	entryID, err := s.cron.AddFunc(f.Schedule, func() { job.Tick(handle) })
	if err != nil {
		// Should not happen since Validate already parsed the schedule, but
		// unregister to preserve the feeds/jobs/caches invariant if it does.
		s.state.unregister(f.ID)
		return apperror.Wrap(err, apperror.CodeInvalidSchedule, "failed to arm schedule")
	}
	handle.EntryID = entryID

	logger.Log.Info("feed armed", "feed_id", f.ID, "schedule", f.Schedule, "initial_snapshot_size", len(initialIDs))
	return nil
}

// DeleteFeed stops the feed's timer, waits for any in-flight tick to
// finish, then removes its cache and feed entry. It blocks until a
// concurrently-running tick yields, per spec §5.
func (s *Scheduler) DeleteFeed(id string) error {
	handle, ok := s.state.jobFor(id)
	if !ok {
		return apperror.New(apperror.CodeNotFound, fmt.Sprintf("feed %q not found", id))
	}

	s.cron.Remove(handle.EntryID)

	// Block until any in-flight tick releases the handle before tearing
	// down the feed/cache/job triple.
	handle.mu.Lock()
	defer handle.mu.Unlock()

	if _, ok := s.state.unregister(id); !ok {
		return apperror.New(apperror.CodeNotFound, fmt.Sprintf("feed %q not found", id))
	}

	logger.Log.Info("feed removed", "feed_id", id)
	return nil
}

// ListFeeds returns a consistent snapshot of every registered feed.
func (s *Scheduler) ListFeeds() []domain.Feed {
	return s.state.ListFeeds()
}

// GetFeed returns one feed by id.
func (s *Scheduler) GetFeed(id string) (domain.Feed, error) {
	f, ok := s.state.GetFeed(id)
	if !ok {
		return domain.Feed{}, apperror.New(apperror.CodeNotFound, fmt.Sprintf("feed %q not found", id))
	}
	return f, nil
}

// StartJob re-arms a paused feed's timer without touching its cache or
// feed entry (the pause/resume semantics decided for the formerly
// no-op StartJob/StopJob RPCs — see DESIGN.md).
func (s *Scheduler) StartJob(id string) error {
	handle, ok := s.state.jobFor(id)
	if !ok {
		return apperror.New(apperror.CodeNotFound, fmt.Sprintf("feed %q not found", id))
	}

	handle.mu.Lock()
	defer handle.mu.Unlock()

	if !handle.paused {
		return nil
	}

	f, ok := s.state.GetFeed(id)
	if !ok {
		return apperror.New(apperror.CodeNotFound, fmt.Sprintf("feed %q not found", id))
	}

	job := NewJob(f.ID, s.state, s.fetcher, s.renderer, s.publisher)
	entryID, err := s.cron.AddFunc(f.Schedule, func() { job.Tick(handle) })
	if err != nil {
		return apperror.Wrap(err, apperror.CodeInvalidSchedule, "failed to re-arm schedule")
	}
	handle.EntryID = entryID
	handle.paused = false

	logger.Log.Info("feed job resumed", "feed_id", id)
	return nil
}

// StopJob pauses a feed's timer without removing its feed entry or cache.
// It blocks until any in-flight tick completes before detaching the timer.
func (s *Scheduler) StopJob(id string) error {
	handle, ok := s.state.jobFor(id)
	if !ok {
		return apperror.New(apperror.CodeNotFound, fmt.Sprintf("feed %q not found", id))
	}

	s.cron.Remove(handle.EntryID)

	handle.mu.Lock()
	defer handle.mu.Unlock()
	handle.paused = true

	logger.Log.Info("feed job paused", "feed_id", id)
	return nil
}

func newSeededCache(size int, ids []string) *cache.Dedup {
	c := cache.New(size)
	c.Seed(ids)
	return c
}
