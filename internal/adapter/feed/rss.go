package feed

import (
	"bytes"
	"context"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"newsrag/internal/domain"
	"newsrag/internal/port"
)

var _ port.FeedFetcher = (*Fetcher)(nil)

const (
	DefaultMaxContent = 1000
	maxFeedBytes      = 10 << 20
	userAgent         = "newsrag/1.0 (+feed ingestion)"
)

// Fetcher downloads RSS 2.0 and Atom feeds and turns their items into
// articles ready to be embedded.
type Fetcher struct {
	client     *http.Client
	maxContent int
	excluder   *Excluder
	log        *slog.Logger
	now        func() time.Time
}

type FetcherOption func(*Fetcher)

func WithExcluder(e *Excluder) FetcherOption {
	return func(f *Fetcher) { f.excluder = e }
}

func WithMaxContent(n int) FetcherOption {
	return func(f *Fetcher) { f.maxContent = n }
}

func WithLogger(l *slog.Logger) FetcherOption {
	return func(f *Fetcher) { f.log = l }
}

func WithClock(now func() time.Time) FetcherOption {
	return func(f *Fetcher) { f.now = now }
}

func NewFetcher(timeout time.Duration, opts ...FetcherOption) *Fetcher {
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	f := &Fetcher{
		client:     &http.Client{Timeout: timeout},
		maxContent: DefaultMaxContent,
		log:        slog.Default(),
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

func (f *Fetcher) Fetch(ctx context.Context, source domain.FeedSource) ([]domain.Article, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, source.URL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request for %s: %w", source.Name, err)
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Accept", "application/rss+xml, application/atom+xml, application/xml, text/xml")

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch %s: %w", source.Name, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("failed to fetch %s: status %d", source.Name, resp.StatusCode)
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxFeedBytes))
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", source.Name, err)
	}

	articles, err := f.Parse(data, source)
	if err != nil {
		return nil, err
	}

	kept := articles[:0]
	for _, a := range articles {
		if f.excluder.Excluded(a.URL) {
			continue
		}
		kept = append(kept, a)
	}
	if skipped := len(articles) - len(kept); skipped > 0 {
		f.log.Debug("excluded feed items", "source", source.Name, "count", skipped)
	}
	return kept, nil
}

// Parse decodes an RSS 2.0 or Atom document.
func (f *Fetcher) Parse(data []byte, source domain.FeedSource) ([]domain.Article, error) {
	root, err := rootElement(data)
	if err != nil {
		return nil, fmt.Errorf("failed to parse feed %s: %w", source.Name, err)
	}

	switch root {
	case "rss", "RDF":
		var doc rssDocument
		if err := xml.Unmarshal(data, &doc); err != nil {
			return nil, fmt.Errorf("failed to parse rss feed %s: %w", source.Name, err)
		}
		items := doc.Channel.Items
		if root == "RDF" {
			items = doc.Items
		}
		out := make([]domain.Article, 0, len(items))
		for i, it := range items {
			out = append(out, f.fromRSS(it, source, i))
		}
		return out, nil
	case "feed":
		var doc atomFeed
		if err := xml.Unmarshal(data, &doc); err != nil {
			return nil, fmt.Errorf("failed to parse atom feed %s: %w", source.Name, err)
		}
		out := make([]domain.Article, 0, len(doc.Entries))
		for i, e := range doc.Entries {
			out = append(out, f.fromAtom(e, source, i))
		}
		return out, nil
	default:
		return nil, fmt.Errorf("unsupported feed format %q for %s", root, source.Name)
	}
}

func rootElement(data []byte) (string, error) {
	dec := xml.NewDecoder(bytes.NewReader(data))
	for {
		tok, err := dec.Token()
		if err != nil {
			if errors.Is(err, io.EOF) {
				return "", errors.New("empty document")
			}
			return "", err
		}
		if se, ok := tok.(xml.StartElement); ok {
			return se.Name.Local, nil
		}
	}
}

type rssDocument struct {
	Channel struct {
		Items []rssItem `xml:"item"`
	} `xml:"channel"`
	// RSS 1.0 keeps items next to the channel.
	Items []rssItem `xml:"item"`
}

type rssItem struct {
	Title       string `xml:"title"`
	Link        string `xml:"link"`
	GUID        string `xml:"guid"`
	PubDate     string `xml:"pubDate"`
	Date        string `xml:"http://purl.org/dc/elements/1.1/ date"`
	Description string `xml:"description"`
	Encoded     string `xml:"http://purl.org/rss/1.0/modules/content/ encoded"`
}

type atomFeed struct {
	Entries []atomEntry `xml:"entry"`
}

type atomEntry struct {
	ID        string     `xml:"id"`
	Title     string     `xml:"title"`
	Links     []atomLink `xml:"link"`
	Published string     `xml:"published"`
	Updated   string     `xml:"updated"`
	Summary   string     `xml:"summary"`
	Content   string     `xml:"content"`
}

type atomLink struct {
	Href string `xml:"href,attr"`
	Rel  string `xml:"rel,attr"`
}

func (f *Fetcher) fromRSS(it rssItem, source domain.FeedSource, pos int) domain.Article {
	link := strings.TrimSpace(it.Link)
	body := it.Encoded
	if strings.TrimSpace(body) == "" {
		body = it.Description
	}
	published := it.PubDate
	if published == "" {
		published = it.Date
	}
	return domain.Article{
		ID:            f.itemID(strings.TrimSpace(it.GUID), link, source, pos),
		Title:         titleOrDefault(it.Title),
		Content:       truncate(stripHTML(body), f.maxContent),
		URL:           link,
		Source:        source.Name,
		PublishedDate: f.parseDate(published),
	}
}

func (f *Fetcher) fromAtom(e atomEntry, source domain.FeedSource, pos int) domain.Article {
	var link string
	for _, l := range e.Links {
		if l.Rel == "" || l.Rel == "alternate" {
			link = strings.TrimSpace(l.Href)
			break
		}
	}
	if link == "" && len(e.Links) > 0 {
		link = strings.TrimSpace(e.Links[0].Href)
	}
	body := e.Content
	if strings.TrimSpace(body) == "" {
		body = e.Summary
	}
	published := e.Published
	if published == "" {
		published = e.Updated
	}
	return domain.Article{
		ID:            f.itemID(strings.TrimSpace(e.ID), link, source, pos),
		Title:         titleOrDefault(e.Title),
		Content:       truncate(stripHTML(body), f.maxContent),
		URL:           link,
		Source:        source.Name,
		PublishedDate: f.parseDate(published),
	}
}

// itemID prefers the feed's own identifier, then the link. Items with
// neither get a synthetic id that is unique within this fetch.
func (f *Fetcher) itemID(guid, link string, source domain.FeedSource, pos int) string {
	if guid != "" {
		return guid
	}
	if link != "" {
		return link
	}
	return fmt.Sprintf("%s-%d-%d", source.Name, f.now().UnixNano(), pos)
}

func titleOrDefault(title string) string {
	title = stripHTML(title)
	if title == "" {
		return "Untitled"
	}
	return title
}

var dateLayouts = []string{
	time.RFC1123Z,
	time.RFC1123,
	"Mon, 2 Jan 2006 15:04:05 -0700",
	"Mon, 2 Jan 2006 15:04:05 MST",
	time.RFC3339,
	time.RFC3339Nano,
}

// parseDate accepts the date formats seen in RSS and Atom feeds and falls
// back to the current time.
func (f *Fetcher) parseDate(s string) time.Time {
	s = strings.TrimSpace(s)
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t
		}
	}
	return f.now()
}
