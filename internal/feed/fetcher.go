// Package feed provides the FeedFetcher collaborator interface and its
// default RSS 2.0 / Atom implementation. No syndication-parsing library
// appears anywhere in the retrieval pack (see DESIGN.md), so this is the
// one ambient concern built on the standard library's encoding/xml.
package feed

import (
	"context"

	"nostrss/internal/domain"
)

// Fetcher retrieves and parses a feed URL into a list of Entries, in the
// order the source considers current (freshest first, by convention of
// RSS/Atom publishers, but the broker never re-sorts it: the fetcher
// defines freshness order).
type Fetcher interface {
	Fetch(ctx context.Context, url string) ([]domain.Entry, error)
}
