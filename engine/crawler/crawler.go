// Package crawler walks a documentation site, discovering content pages by
// BFS and extracting their text. Requests are paced so the target server is
// never hammered.
package crawler

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"golang.org/x/time/rate"
)

// Extraction and fetch failures.
var (
	ErrNotFound    = errors.New("crawler: page not found")
	ErrForbidden   = errors.New("crawler: access forbidden")
	ErrRateLimited = errors.New("crawler: rate limited by server")
	ErrThinContent = errors.New("crawler: content too short")
)

// MinContentChars is the smallest extraction worth keeping.
const MinContentChars = 50

// Page is an extracted content page.
type Page struct {
	URL     string `json:"url"`
	Title   string `json:"title"`
	Content string `json:"content"`
}

// Options configures crawl behaviour.
type Options struct {
	// MaxDepth is how many link hops from the root to follow.
	MaxDepth int
	// Delay is the minimum gap between requests.
	Delay time.Duration
	// MaxRPS caps the request rate.
	MaxRPS float64
	// Cooldown is how long to back off after a server-side 429.
	Cooldown  time.Duration
	Timeout   time.Duration
	UserAgent string
}

// DefaultOptions returns polite crawl defaults.
func DefaultOptions() Options {
	return Options{
		MaxDepth:  2,
		Delay:     500 * time.Millisecond,
		MaxRPS:    2,
		Cooldown:  5 * time.Second,
		Timeout:   10 * time.Second,
		UserAgent: "pagelore-crawler/1.0",
	}
}

// Crawler fetches pages from a single site with request pacing.
type Crawler struct {
	client  *http.Client
	limiter *rate.Limiter
	opts    Options
	log     *slog.Logger
	sleep   func(context.Context, time.Duration) error
}

// New creates a Crawler. The Delay and MaxRPS limits collapse into a single
// token rate; the stricter bound wins.
func New(opts Options, log *slog.Logger) *Crawler {
	if log == nil {
		log = slog.Default()
	}
	limit := opts.MaxRPS
	if opts.Delay > 0 {
		perDelay := float64(time.Second) / float64(opts.Delay)
		if limit <= 0 || perDelay < limit {
			limit = perDelay
		}
	}
	if limit <= 0 {
		limit = 1
	}
	return &Crawler{
		client:  &http.Client{Timeout: opts.Timeout},
		limiter: rate.NewLimiter(rate.Limit(limit), 1),
		opts:    opts,
		log:     log,
		sleep:   sleepCtx,
	}
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// Validate checks that root is a well-formed URL and the site answers.
func (c *Crawler) Validate(ctx context.Context, root string) error {
	if !IsValidURL(root) {
		return fmt.Errorf("crawler: invalid root URL %q", root)
	}
	resp, err := c.get(ctx, root)
	if err != nil {
		return fmt.Errorf("crawler: site not accessible: %w", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("crawler: site returned status %d", resp.StatusCode)
	}
	return nil
}

// Discover walks the site BFS from root, following same-host links up to
// MaxDepth hops, and returns content page URLs in discovery order.
func (c *Crawler) Discover(ctx context.Context, root string) ([]string, error) {
	rootURL, err := url.Parse(root)
	if err != nil || !IsValidURL(root) {
		return nil, fmt.Errorf("crawler: invalid root URL %q", root)
	}

	type item struct {
		url   string
		depth int
	}

	var discovered []string
	seen := map[string]bool{}
	visited := map[string]bool{}

	if IsContentURL(root) {
		discovered = append(discovered, root)
		seen[root] = true
	}

	queue := []item{{url: root, depth: 0}}
	for len(queue) > 0 {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		cur := queue[0]
		queue = queue[1:]
		if visited[cur.url] || cur.depth > c.opts.MaxDepth {
			continue
		}
		visited[cur.url] = true
		c.log.Info("crawling", "url", cur.url, "depth", cur.depth)

		resp, err := c.get(ctx, cur.url)
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			c.log.Warn("fetch failed", "url", cur.url, "error", err)
			continue
		}

		switch {
		case resp.StatusCode == http.StatusTooManyRequests:
			resp.Body.Close()
			c.log.Warn("rate limited by server, backing off", "url", cur.url)
			if err := c.sleep(ctx, c.opts.Cooldown); err != nil {
				return nil, err
			}
			continue
		case resp.StatusCode == http.StatusForbidden:
			resp.Body.Close()
			c.log.Warn("access forbidden, skipping", "url", cur.url)
			continue
		case resp.StatusCode != http.StatusOK:
			resp.Body.Close()
			c.log.Warn("unexpected status, skipping", "url", cur.url, "status", resp.StatusCode)
			continue
		}

		page, err := parseHTML(resp.Body)
		resp.Body.Close()
		if err != nil {
			c.log.Warn("parse failed", "url", cur.url, "error", err)
			continue
		}

		base, err := url.Parse(cur.url)
		if err != nil {
			continue
		}
		for _, href := range page.links {
			abs := resolveLink(base, href)
			if abs == "" || seen[abs] {
				continue
			}
			u, err := url.Parse(abs)
			if err != nil || !sameHost(rootURL, u) {
				continue
			}
			if !IsValidURL(abs) || !IsContentURL(abs) {
				continue
			}
			seen[abs] = true
			discovered = append(discovered, abs)
			if cur.depth < c.opts.MaxDepth {
				queue = append(queue, item{url: abs, depth: cur.depth + 1})
			}
		}
	}

	c.log.Info("discovery complete", "root", root, "pages", len(discovered))
	return discovered, nil
}

// Extract fetches one page and returns its title and cleaned text. Pages with
// less than MinContentChars of text fail with ErrThinContent.
func (c *Crawler) Extract(ctx context.Context, pageURL string) (Page, error) {
	if !IsValidURL(pageURL) {
		return Page{}, fmt.Errorf("crawler: invalid URL %q", pageURL)
	}

	resp, err := c.get(ctx, pageURL)
	if err != nil {
		return Page{}, fmt.Errorf("crawler: fetch %s: %w", pageURL, err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return Page{}, fmt.Errorf("%w: %s", ErrNotFound, pageURL)
	case resp.StatusCode == http.StatusForbidden:
		return Page{}, fmt.Errorf("%w: %s", ErrForbidden, pageURL)
	case resp.StatusCode == http.StatusTooManyRequests:
		return Page{}, fmt.Errorf("%w: %s", ErrRateLimited, pageURL)
	case resp.StatusCode != http.StatusOK:
		return Page{}, fmt.Errorf("crawler: fetch %s: status %d", pageURL, resp.StatusCode)
	}

	parsed, err := parseHTML(resp.Body)
	if err != nil {
		return Page{}, fmt.Errorf("crawler: parse %s: %w", pageURL, err)
	}

	title := parsed.title
	if title == "" {
		title = "No Title"
	}
	page := Page{URL: pageURL, Title: title, Content: parsed.content}
	if len(parsed.content) < MinContentChars {
		return page, fmt.Errorf("%w: %s has %d chars", ErrThinContent, pageURL, len(parsed.content))
	}
	return page, nil
}

// get performs a paced GET request.
func (c *Crawler) get(ctx context.Context, u string) (*http.Response, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, err
	}
	req, err := http.NewRequestWithContext(ctx, "GET", u, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", c.opts.UserAgent)
	return c.client.Do(req)
}

// resolveLink makes href absolute against base and strips fragments.
func resolveLink(base *url.URL, href string) string {
	ref, err := url.Parse(href)
	if err != nil {
		return ""
	}
	abs := base.ResolveReference(ref)
	abs.Fragment = ""
	return abs.String()
}
