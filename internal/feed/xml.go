package feed

import (
	"context"
	"encoding/xml"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"nostrss/internal/domain"
)

// HTTPFetcher is the default Fetcher: it downloads the feed body over
// HTTP(S) and parses it as RSS 2.0 or Atom, trying RSS first and falling
// back to Atom on a parse failure, since there is no reliable content-type
// signal across real-world feeds.
type HTTPFetcher struct {
	Client *http.Client
}

// NewHTTPFetcher builds a fetcher with a bounded-timeout HTTP client.
func NewHTTPFetcher(timeout time.Duration) *HTTPFetcher {
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	return &HTTPFetcher{Client: &http.Client{Timeout: timeout}}
}

func (f *HTTPFetcher) httpClient() *http.Client {
	if f.Client != nil {
		return f.Client
	}
	return http.DefaultClient
}

// Fetch downloads and parses the feed at url.
func (f *HTTPFetcher) Fetch(ctx context.Context, url string) ([]domain.Entry, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("building request for %s: %w", url, err)
	}
	req.Header.Set("User-Agent", "nostrssd/1.0 (+https://github.com/nostrss)")

	resp, err := f.httpClient().Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetching %s: %w", url, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("fetching %s: unexpected status %d", url, resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("reading body of %s: %w", url, err)
	}

	return Parse(body)
}

// Parse parses feed bytes as RSS 2.0, falling back to Atom.
func Parse(body []byte) ([]domain.Entry, error) {
	if entries, err := parseRSS(body); err == nil {
		return entries, nil
	}

	entries, err := parseAtom(body)
	if err != nil {
		return nil, fmt.Errorf("body is neither valid RSS nor valid Atom: %w", err)
	}
	return entries, nil
}

type rssFeed struct {
	XMLName xml.Name `xml:"rss"`
	Channel struct {
		Items []rssItem `xml:"item"`
	} `xml:"channel"`
}

type rssItem struct {
	Title       string `xml:"title"`
	Link        string `xml:"link"`
	GUID        string `xml:"guid"`
	Description string `xml:"description"`
	PubDate     string `xml:"pubDate"`
	Author      string `xml:"author"`
	Creator     string `xml:"http://purl.org/dc/elements/1.1/ creator"`
}

func parseRSS(body []byte) ([]domain.Entry, error) {
	var f rssFeed
	if err := xml.Unmarshal(body, &f); err != nil {
		return nil, err
	}
	if f.XMLName.Local != "rss" {
		return nil, fmt.Errorf("not an RSS document")
	}

	entries := make([]domain.Entry, 0, len(f.Channel.Items))
	for _, item := range f.Channel.Items {
		id := item.GUID
		if id == "" {
			id = item.Link
		}

		var published time.Time
		if item.PubDate != "" {
			if t, err := parseTime(item.PubDate); err == nil {
				published = t
			}
		}

		author := item.Author
		if author == "" {
			author = item.Creator
		}

		var authors []string
		if author != "" {
			authors = []string{author}
		}

		var links []string
		if item.Link != "" {
			links = []string{item.Link}
		}

		entries = append(entries, domain.Entry{
			ID:        id,
			Title:     item.Title,
			Summary:   item.Description,
			Content:   item.Description,
			Links:     links,
			Authors:   authors,
			Published: published,
		})
	}
	return entries, nil
}

type atomFeed struct {
	XMLName xml.Name    `xml:"http://www.w3.org/2005/Atom feed"`
	Entries []atomEntry `xml:"entry"`
}

type atomEntry struct {
	ID        string `xml:"id"`
	Title     string `xml:"title"`
	Summary   string `xml:"summary"`
	Content   string `xml:"content"`
	Published string `xml:"published"`
	Updated   string `xml:"updated"`
	Links     []struct {
		Href string `xml:"href,attr"`
		Rel  string `xml:"rel,attr"`
	} `xml:"link"`
	Authors []struct {
		Name string `xml:"name"`
	} `xml:"author"`
}

func parseAtom(body []byte) ([]domain.Entry, error) {
	var f atomFeed
	if err := xml.Unmarshal(body, &f); err != nil {
		return nil, err
	}

	entries := make([]domain.Entry, 0, len(f.Entries))
	for _, e := range f.Entries {
		var published time.Time
		raw := e.Published
		if raw == "" {
			raw = e.Updated
		}
		if raw != "" {
			if t, err := parseTime(raw); err == nil {
				published = t
			}
		}

		var links []string
		for _, l := range e.Links {
			if l.Rel == "" || l.Rel == "alternate" {
				links = append(links, l.Href)
			}
		}
		if len(links) == 0 {
			for _, l := range e.Links {
				links = append(links, l.Href)
			}
		}

		var authors []string
		for _, a := range e.Authors {
			if a.Name != "" {
				authors = append(authors, a.Name)
			}
		}

		content := e.Content
		if content == "" {
			content = e.Summary
		}

		entries = append(entries, domain.Entry{
			ID:        e.ID,
			Title:     e.Title,
			Summary:   e.Summary,
			Content:   content,
			Links:     links,
			Authors:   authors,
			Published: published,
		})
	}
	return entries, nil
}

var timeLayouts = []string{
	time.RFC1123Z,
	time.RFC1123,
	time.RFC3339,
	"2006-01-02T15:04:05Z07:00",
	"Mon, 2 Jan 2006 15:04:05 -0700",
}

func parseTime(raw string) (time.Time, error) {
	raw = strings.TrimSpace(raw)
	var lastErr error
	for _, layout := range timeLayouts {
		if t, err := time.Parse(layout, raw); err == nil {
			return t, nil
		} else {
			lastErr = err
		}
	}
	return time.Time{}, lastErr
}
