package template

import (
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"nostrss/internal/domain"
)

func TestNewRendererRejectsEmptyDefault(t *testing.T) {
	_, err := NewRenderer("")
	require.Error(t, err)
}

func TestRenderDefaultTemplate(t *testing.T) {
	r, err := NewRenderer("{name}: {title} ({url}) {tags}")
	require.NoError(t, err)

	feed := domain.Feed{Name: "My Feed", Tags: []string{"rss", "news"}}
	entry := domain.Entry{Title: "Hello", Links: []string{"https://example.com/1"}}

	out, err := r.Render(feed, entry)
	require.NoError(t, err)
	assert.Equal(t, "My Feed: Hello (https://example.com/1) #rss #news", out)
}

func TestRenderUnknownPlaceholderFails(t *testing.T) {
	r, err := NewRenderer("{unknown}")
	require.NoError(t, err)

	_, err = r.Render(domain.Feed{}, domain.Entry{})
	require.Error(t, err)

	var fmtErr *FormatError
	require.ErrorAs(t, err, &fmtErr)
	assert.Equal(t, "unknown", fmtErr.Placeholder)
}

func TestRenderMissingOptionalFieldsAreEmpty(t *testing.T) {
	r, err := NewRenderer("[{author}][{summary}][{content}][{published}]")
	require.NoError(t, err)

	out, err := r.Render(domain.Feed{}, domain.Entry{})
	require.NoError(t, err)
	assert.Equal(t, "[][][][]", out)
}

func TestRenderAuthorsCommaJoined(t *testing.T) {
	r, err := NewRenderer("{author}")
	require.NoError(t, err)

	out, err := r.Render(domain.Feed{}, domain.Entry{Authors: []string{"Ada", "Grace"}})
	require.NoError(t, err)
	assert.Equal(t, "Ada, Grace", out)
}

func TestRenderPublishedFormatsTimestamp(t *testing.T) {
	r, err := NewRenderer("{published}")
	require.NoError(t, err)

	when := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	out, err := r.Render(domain.Feed{}, domain.Entry{Published: when})
	require.NoError(t, err)
	assert.Equal(t, "2026-01-02T03:04:05Z", out)
}

func TestRenderPrefersFeedTemplateFile(t *testing.T) {
	r, err := NewRenderer("unused default")
	require.NoError(t, err)

	dir := t.TempDir()
	path := dir + "/note.tmpl"
	require.NoError(t, os.WriteFile(path, []byte("custom: {title}"), 0o644))

	out, err := r.Render(domain.Feed{Template: path}, domain.Entry{Title: "X"})
	require.NoError(t, err)
	assert.Equal(t, "custom: X", out)
}
