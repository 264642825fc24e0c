package corpus

import (
	"context"
	"crypto/tls"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"regexp"
	"time"

	"voicerag/internal/rag"
)

const maxPageBytes = 10 << 20

type CrawlOptions struct {
	MaxDepth   int
	Timeout    time.Duration
	Exclusions []string
}

// Crawler walks a site depth-first, staying on the start URL's host.
type Crawler struct {
	client     *http.Client
	maxDepth   int
	exclusions []*regexp.Regexp
}

type CrawlerOption func(*Crawler)

// WithHTTPClient replaces the default fetch client.
func WithHTTPClient(c *http.Client) CrawlerOption {
	return func(cr *Crawler) { cr.client = c }
}

func NewCrawler(opts CrawlOptions, options ...CrawlerOption) (*Crawler, error) {
	ex, err := CompileExclusions(opts.Exclusions)
	if err != nil {
		return nil, err
	}
	c := &Crawler{
		client:     newInsecureClient(opts.Timeout),
		maxDepth:   opts.MaxDepth,
		exclusions: ex,
	}
	for _, o := range options {
		o(c)
	}
	return c, nil
}

// newInsecureClient skips certificate verification. Crawled sites are trusted
// as configured by the caller.
func newInsecureClient(timeout time.Duration) *http.Client {
	transport := http.DefaultTransport.(*http.Transport).Clone()
	transport.TLSClientConfig = &tls.Config{InsecureSkipVerify: true} // #nosec G402 -- crawl targets are operator supplied
	return &http.Client{Timeout: timeout, Transport: transport}
}

type frontierItem struct {
	url   string
	depth int
}

// Crawl returns one document per fetched page with non-empty visible text.
// Page failures are logged and skipped.
func (c *Crawler) Crawl(ctx context.Context, startURL string) ([]rag.Document, error) {
	base, err := url.Parse(startURL)
	if err != nil || base.Host == "" {
		return nil, fmt.Errorf("%w: invalid start url %q", rag.ErrIngestion, startURL)
	}

	visited := make(map[string]bool)
	return c.traverse(ctx, normalizeURL(base), base.Host, visited), nil
}

func (c *Crawler) traverse(ctx context.Context, startURL, host string, visited map[string]bool) []rag.Document {
	var docs []rag.Document
	stack := []frontierItem{{url: startURL, depth: 0}}

	for len(stack) > 0 {
		item := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		if item.depth > c.maxDepth || visited[item.url] {
			continue
		}
		visited[item.url] = true

		if ctx.Err() != nil {
			break
		}

		text, links, err := c.fetch(ctx, item.url, host)
		if err != nil {
			slog.WarnContext(ctx, "failed to fetch page", "url", item.url, "depth", item.depth, "error", err)
			continue
		}
		if text != "" {
			docs = append(docs, rag.Document{
				Content:  text,
				Metadata: map[string]string{rag.MetaSource: item.url},
			})
		}

		// Reverse push keeps document order equal to a recursive walk.
		for i := len(links) - 1; i >= 0; i-- {
			if !visited[links[i]] {
				stack = append(stack, frontierItem{url: links[i], depth: item.depth + 1})
			}
		}
	}

	slog.InfoContext(ctx, "crawl finished", "start_url", startURL, "pages_visited", len(visited), "documents", len(docs))
	return docs
}

func (c *Crawler) fetch(ctx context.Context, pageURL, host string) (string, []string, error) {
	page, err := url.Parse(pageURL)
	if err != nil {
		return "", nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, pageURL, nil)
	if err != nil {
		return "", nil, err
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return "", nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return "", nil, fmt.Errorf("unexpected status %d", resp.StatusCode)
	}

	text, hrefs, err := extractPage(io.LimitReader(resp.Body, maxPageBytes))
	if err != nil {
		return "", nil, fmt.Errorf("parse html: %w", err)
	}

	return text, DiscoverLinks(page, host, hrefs, c.exclusions), nil
}
