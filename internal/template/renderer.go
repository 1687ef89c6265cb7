// Package template renders a feed entry through a `{placeholder}` template,
// modeled on the upstream nostrss template engine (new_string_template)
// but hand-rolled since no such templating library appears in the
// retrieval pack — justified in DESIGN.md.
package template

import (
	"fmt"
	"os"
	"regexp"
	"sort"
	"strings"

	"nostrss/internal/domain"
)

// FormatError is returned when a template references a placeholder the
// renderer does not recognize.
type FormatError struct {
	Placeholder string
}

func (e *FormatError) Error() string {
	return fmt.Sprintf("unknown template placeholder {%s}", e.Placeholder)
}

// knownPlaceholders is the closed set of substitutable names. Keeping this
// as a set (rather than "substitute whatever key exists in the map") is
// what lets an unrecognized {placeholder} surface as a FormatError instead
// of silently passing through as literal text.
var knownPlaceholders = map[string]struct{}{
	"name": {}, "title": {}, "url": {}, "summary": {},
	"content": {}, "published": {}, "author": {}, "tags": {},
}

var placeholderPattern = regexp.MustCompile(`\{([a-zA-Z0-9_]+)\}`)

// Renderer renders Entries into note bodies using a Feed's template (or
// the process default template when the feed declares none).
type Renderer struct {
	// DefaultTemplate is the fallback template body, sourced from the
	// DEFAULT_TEMPLATE environment variable at boot. Its absence, when a
	// Feed also has no per-feed template, is a fatal boot error — checked
	// by NewRenderer, not deferred to first render.
	DefaultTemplate string
}

// NewRenderer loads the default template from the given body (typically
// read from the DEFAULT_TEMPLATE env var by the caller) and fails fast if
// it is empty, since an empty default combined with a feed that has no
// template is a fatal boot condition per spec §4.1.
func NewRenderer(defaultTemplate string) (*Renderer, error) {
	if strings.TrimSpace(defaultTemplate) == "" {
		return nil, fmt.Errorf("DEFAULT_TEMPLATE is not set; a default template is required at boot")
	}
	return &Renderer{DefaultTemplate: defaultTemplate}, nil
}

// loadTemplate reads a feed's template file, falling back to the process
// default when the feed declares none.
func (r *Renderer) loadTemplate(feed domain.Feed) (string, error) {
	if feed.Template == "" {
		return r.DefaultTemplate, nil
	}

	content, err := os.ReadFile(feed.Template)
	if err != nil {
		return "", fmt.Errorf("loading template %q for feed %q: %w", feed.Template, feed.ID, err)
	}
	return string(content), nil
}

// Render substitutes {placeholder} tokens in the feed's template against
// the entry and feed context, returning a FormatError for any placeholder
// outside the known set.
func (r *Renderer) Render(feed domain.Feed, entry domain.Entry) (string, error) {
	tmpl, err := r.loadTemplate(feed)
	if err != nil {
		return "", err
	}

	values := r.values(feed, entry)

	var renderErr error
	result := placeholderPattern.ReplaceAllStringFunc(tmpl, func(match string) string {
		if renderErr != nil {
			return match
		}
		name := match[1 : len(match)-1]
		if _, known := knownPlaceholders[name]; !known {
			renderErr = &FormatError{Placeholder: name}
			return match
		}
		return values[name]
	})

	if renderErr != nil {
		return "", renderErr
	}

	return result, nil
}

func (r *Renderer) values(feed domain.Feed, entry domain.Entry) map[string]string {
	return map[string]string{
		"name":      feed.Name,
		"title":     entry.Title,
		"url":       entry.URL(),
		"summary":   entry.Summary,
		"content":   entry.Content,
		"published": formatPublished(entry),
		"author":    strings.Join(entry.Authors, ", "),
		"tags":      formatTags(feed.Tags),
	}
}

func formatPublished(entry domain.Entry) string {
	if entry.Published.IsZero() {
		return ""
	}
	return entry.Published.UTC().Format("2006-01-02T15:04:05Z")
}

// formatTags renders the feed's tags as hashtags, space-joined, in the
// order given. Sorting is NOT applied: tag order is feed-declaration
// order, matching upstream iteration behavior.
func formatTags(tags []string) string {
	if len(tags) == 0 {
		return ""
	}
	parts := make([]string, 0, len(tags))
	for _, t := range tags {
		parts = append(parts, "#"+t)
	}
	return strings.Join(parts, " ")
}

// KnownPlaceholders returns a sorted copy of the recognized placeholder
// names, useful for CLI help text and validation tooling.
func KnownPlaceholders() []string {
	out := make([]string, 0, len(knownPlaceholders))
	for k := range knownPlaceholders {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}
