package domain

import (
	"fmt"
	"net/url"

	"github.com/robfig/cron/v3"
)

// Feed is a configured syndication source: where to fetch it, how often,
// which profiles publish its new entries, and the dedup/PoW parameters
// that govern publication.
type Feed struct {
	ID        string   `yaml:"id" json:"id"`
	Name      string   `yaml:"name" json:"name"`
	URL       string   `yaml:"url" json:"url"`
	Schedule  string   `yaml:"schedule" json:"schedule"`
	Profiles  []string `yaml:"profiles,omitempty" json:"profiles,omitempty"`
	Tags      []string `yaml:"tags,omitempty" json:"tags,omitempty"`
	Template  string   `yaml:"template,omitempty" json:"template,omitempty"`
	CacheSize int      `yaml:"cache_size" json:"cache_size"`
	PoWLevel  uint8    `yaml:"pow_level" json:"pow_level"`
}

// ProfileIDs returns the feed's bound profile ids, defaulting to the
// single-element {"default"} set when the feed declares none.
func (f Feed) ProfileIDs() []string {
	if len(f.Profiles) == 0 {
		return []string{"default"}
	}
	return f.Profiles
}

// cronParser is shared across validation and scheduling: 6-field,
// seconds-precision expressions.
var cronParser = cron.NewParser(cron.Second | cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow)

// Validate checks the invariants a Feed must satisfy before it can be
// admitted to the scheduler: a parseable URL and a valid 6-field cron
// schedule. Profile-reference validity is checked at publish time, not
// here, per spec (a missing profile skips that profile, not the feed).
func (f Feed) Validate() error {
	if f.ID == "" {
		return fmt.Errorf("feed id must not be empty")
	}

	if _, err := url.ParseRequestURI(f.URL); err != nil {
		return fmt.Errorf("feed url %q is not a valid URL: %w", f.URL, err)
	}

	if _, err := cronParser.Parse(f.Schedule); err != nil {
		return fmt.Errorf("feed schedule %q is not a valid 6-field cron expression: %w", f.Schedule, err)
	}

	if f.CacheSize < 0 {
		return fmt.Errorf("feed cache_size must not be negative, got %d", f.CacheSize)
	}

	return nil
}
