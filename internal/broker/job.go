package broker

import (
	"context"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"nostrss/internal/domain"
	"nostrss/internal/feed"
	"nostrss/internal/nostrevent"
	"nostrss/internal/relay"
	"nostrss/internal/template"
	"nostrss/pkg/logger"
	"nostrss/pkg/metrics"
)

// JobHandle is the opaque scheduler reference to one feed's armed cron
// entry. Its mutex serializes ticks for that feed: Tick uses TryLock so an
// overlapping firing is dropped rather than queued (spec §4.4 "MUST NOT
// run two instances concurrently"), while DeleteFeed takes a blocking Lock
// so it waits for an in-flight tick to finish before tearing the feed down
// (spec §5: "no delete returns success while a tick is mid-publish").
type JobHandle struct {
	mu      sync.Mutex
	EntryID cron.EntryID
	paused  bool
}

// Job binds the collaborators a tick needs: the fetcher, renderer and
// publisher are shared across every feed's jobs, while the feed id is
// looked up fresh from State on every firing.
type Job struct {
	FeedID    string
	state     *State
	fetcher   feed.Fetcher
	renderer  *template.Renderer
	publisher relay.Publisher
	clock     func() time.Time
}

// NewJob constructs a Job bound to the given feed id and collaborators.
func NewJob(feedID string, state *State, fetcher feed.Fetcher, renderer *template.Renderer, publisher relay.Publisher) *Job {
	return &Job{
		FeedID:    feedID,
		state:     state,
		fetcher:   fetcher,
		renderer:  renderer,
		publisher: publisher,
	}
}

func (j *Job) now() time.Time {
	if j.clock != nil {
		return j.clock()
	}
	return time.Now()
}

// Snapshot performs the initial fetch-and-seed described in spec §4.4: it
// fetches the feed once and returns the ids of every entry present, so the
// broker does not flood relays with pre-existing content on first boot. A
// fetch failure here returns a nil slice, which the caller seeds as an
// empty cache — the next scheduled tick then treats every current entry as
// new, a deliberate, documented trade-off (spec §4.4, §9).
func (j *Job) Snapshot(ctx context.Context, f domain.Feed) []string {
	entries, err := j.fetcher.Fetch(ctx, f.URL)
	if err != nil {
		logger.Log.Error("initial snapshot fetch failed, cache will start empty",
			"feed_id", f.ID, "url", f.URL, "error", err)
		return nil
	}

	ids := make([]string, 0, len(entries))
	for _, e := range entries {
		ids = append(ids, e.ID)
	}
	return ids
}

// Tick is the cron-invoked entry point. It drops the firing (rather than
// queuing it) if a previous tick for this feed is still running.
func (j *Job) Tick(handle *JobHandle) {
	if !handle.mu.TryLock() {
		logger.Log.Debug("tick already running for feed, dropping this firing", "feed_id", j.FeedID)
		return
	}
	defer handle.mu.Unlock()

	ctx := context.Background()
	start := j.now()
	err := j.run(ctx)

	if m := metrics.Get(); m != nil {
		m.RecordTick(j.FeedID, err == nil, time.Since(start))
	}
}

func (j *Job) run(ctx context.Context) error {
	f, ok := j.state.GetFeed(j.FeedID)
	if !ok {
		// Deleted between firing and lock acquisition; nothing to do.
		return nil
	}

	c, ok := j.state.cacheFor(j.FeedID)
	if !ok {
		return nil
	}

	entries, err := j.fetcher.Fetch(ctx, f.URL)
	if err != nil {
		logger.Log.Warn("feed fetch failed, skipping tick", "feed_id", f.ID, "url", f.URL, "error", err)
		return err
	}

	if m := metrics.Get(); m != nil {
		m.RecordFetch(f.ID, len(entries))
	}

	baseTags := buildBaseTags(f)

	for _, entry := range entries {
		if c.Contains(entry.ID) {
			continue
		}

		content, err := j.renderer.Render(f, entry)
		if err != nil {
			// Template errors are systemic, not per-entry: abort the whole
			// tick without admitting this or any later entry (spec §4.4.2).
			logger.Log.Error("template render failed, aborting tick", "feed_id", f.ID, "entry_id", entry.ID, "error", err)
			return err
		}

		j.publishToProfiles(ctx, f, entry, content, baseTags)
		c.Admit(entry.ID)
	}

	if m := metrics.Get(); m != nil {
		m.SetCacheSize(f.ID, c.Len())
	}

	return nil
}

func (j *Job) publishToProfiles(ctx context.Context, f domain.Feed, entry domain.Entry, content string, baseTags [][]string) {
	for _, profileID := range f.ProfileIDs() {
		profile, err := j.state.Profiles.Get(profileID)
		if err != nil {
			logger.Log.Error("profile not found for feed, skipping this profile",
				"feed_id", f.ID, "profile_id", profileID, "error", err)
			continue
		}

		relays, err := j.state.Profiles.ResolveRelays(profile)
		if err != nil {
			logger.Log.Error("could not resolve relays for profile, skipping",
				"feed_id", f.ID, "profile_id", profileID, "error", err)
			continue
		}

		powLevel := f.PoWLevel
		if powLevel == 0 {
			powLevel = profile.PoWLevel
		}
		publishProfile := profile
		publishProfile.PoWLevel = powLevel

		tags := append(append([][]string{}, baseTags...), recommendedRelayTags(profile, relays)...)

		ev, err := j.publisher.Publish(ctx, publishProfile, relays, content, tags)
		success := err == nil
		if err != nil {
			logger.Log.Error("publish failed for profile", "feed_id", f.ID, "profile_id", profileID, "entry_id", entry.ID, "error", err)
		} else {
			logger.Log.Info("entry published", "feed_id", f.ID, "profile_id", profileID, "entry_id", entry.ID, "event_id", ev.ID)
		}

		if m := metrics.Get(); m != nil {
			m.RecordPublish(f.ID, profileID, success)
		}
	}
}

func buildBaseTags(f domain.Feed) [][]string {
	tags := make([][]string, 0, len(f.Tags)+1)
	for _, t := range f.Tags {
		tags = append(tags, nostrevent.HashtagTag(t))
	}
	tags = append(tags, nostrevent.ProxyTag(f.ID))
	return tags
}

func recommendedRelayTags(profile domain.Profile, relays []domain.Relay) [][]string {
	if len(profile.RecommendedRelays) == 0 {
		return nil
	}

	byName := make(map[string]domain.Relay, len(relays))
	for _, r := range relays {
		byName[r.Name] = r
	}

	var tags [][]string
	for _, name := range profile.RecommendedRelays {
		r, ok := byName[name]
		if !ok {
			continue
		}
		tags = append(tags, nostrevent.RelayMetadataTag(r.Target))
	}
	return tags
}
