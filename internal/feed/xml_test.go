package feed

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleRSS = `<?xml version="1.0"?>
<rss version="2.0">
  <channel>
    <title>Example</title>
    <item>
      <title>First post</title>
      <link>https://example.com/1</link>
      <guid>https://example.com/1</guid>
      <description>Summary one</description>
      <pubDate>Mon, 02 Jan 2006 15:04:05 +0000</pubDate>
      <author>jane@example.com (Jane Doe)</author>
    </item>
    <item>
      <title>Second post</title>
      <link>https://example.com/2</link>
      <description>Summary two</description>
    </item>
  </channel>
</rss>`

const sampleAtom = `<?xml version="1.0"?>
<feed xmlns="http://www.w3.org/2005/Atom">
  <title>Example Atom</title>
  <entry>
    <id>urn:uuid:1</id>
    <title>Atom entry</title>
    <summary>An atom summary</summary>
    <link href="https://example.com/atom/1" rel="alternate"/>
    <published>2006-01-02T15:04:05Z</published>
    <author><name>Ada Lovelace</name></author>
  </entry>
</feed>`

func TestParseRSS(t *testing.T) {
	entries, err := Parse([]byte(sampleRSS))
	require.NoError(t, err)
	require.Len(t, entries, 2)

	assert.Equal(t, "https://example.com/1", entries[0].ID)
	assert.Equal(t, "First post", entries[0].Title)
	assert.Equal(t, "https://example.com/1", entries[0].URL())
	assert.False(t, entries[0].Published.IsZero())

	assert.Equal(t, "https://example.com/2", entries[1].ID, "falls back to link when guid absent")
}

func TestParseAtom(t *testing.T) {
	entries, err := Parse([]byte(sampleAtom))
	require.NoError(t, err)
	require.Len(t, entries, 1)

	assert.Equal(t, "urn:uuid:1", entries[0].ID)
	assert.Equal(t, []string{"Ada Lovelace"}, entries[0].Authors)
	assert.Equal(t, "https://example.com/atom/1", entries[0].URL())
}

func TestParseRejectsGarbage(t *testing.T) {
	_, err := Parse([]byte("not xml at all"))
	require.Error(t, err)
}
