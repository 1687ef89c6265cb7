package telemetry

import (
	"go.opentelemetry.io/otel/attribute"
)

// Standard attribute keys used across broker and control-plane spans.
const (
	AttrFeedID       = "feed.id"
	AttrFeedURL      = "feed.url"
	AttrEntryID      = "feed.entry_id"
	AttrEntriesCount = "feed.entries_count"

	AttrProfileID  = "profile.id"
	AttrRelayCount = "profile.relay_count"
	AttrPoWLevel   = "profile.pow_level"

	AttrPublishSuccess = "publish.success"
	AttrPublishRelay   = "publish.relay"

	AttrCacheSize = "cache.size"
)

// FeedAttributes returns the standard span attributes for a feed tick.
func FeedAttributes(feedID, url string, entries int) []attribute.KeyValue {
	return []attribute.KeyValue{
		attribute.String(AttrFeedID, feedID),
		attribute.String(AttrFeedURL, url),
		attribute.Int(AttrEntriesCount, entries),
	}
}

// ProfileAttributes returns the standard span attributes for a publish
// operation carried out under a given signing profile.
func ProfileAttributes(profileID string, relayCount, powLevel int) []attribute.KeyValue {
	return []attribute.KeyValue{
		attribute.String(AttrProfileID, profileID),
		attribute.Int(AttrRelayCount, relayCount),
		attribute.Int(AttrPoWLevel, powLevel),
	}
}

// PublishAttributes returns the standard span attributes for a single
// relay publish attempt.
func PublishAttributes(relay string, success bool) []attribute.KeyValue {
	return []attribute.KeyValue{
		attribute.String(AttrPublishRelay, relay),
		attribute.Bool(AttrPublishSuccess, success),
	}
}
