// Package crawl discovers the internal pages of a site for `convert --all`.
// It reads sitemap.xml (following one level of sitemap index) and falls
// back to breadth-first link discovery.
package crawl

import (
	"context"
	"encoding/xml"
	"fmt"
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"go.uber.org/zap"

	"github.com/gaurav-prasanna/mdmend/core"
)

type sitemapLoc struct {
	Loc string `xml:"loc"`
}

// sitemapDoc covers both <urlset> and <sitemapindex> roots.
type sitemapDoc struct {
	XMLName  xml.Name
	URLs     []sitemapLoc `xml:"url"`
	Sitemaps []sitemapLoc `xml:"sitemap"`
}

// Discoverer finds internal URLs reachable from a base URL.
type Discoverer struct {
	fetcher  core.Fetcher
	maxPages int
	log      *zap.Logger
}

// NewDiscoverer returns a Discoverer that stops after maxPages URLs.
func NewDiscoverer(fetcher core.Fetcher, maxPages int, log *zap.Logger) *Discoverer {
	if log == nil {
		log = zap.NewNop()
	}
	return &Discoverer{fetcher: fetcher, maxPages: maxPages, log: log}
}

// Discover returns the internal URLs to process, sitemap first. The base
// URL is always the first entry.
func (d *Discoverer) Discover(ctx context.Context, baseURL string) ([]string, error) {
	parsed, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("parsing base URL: %w", err)
	}
	if parsed.Scheme == "" || parsed.Host == "" {
		return nil, fmt.Errorf("base URL %q must be absolute", baseURL)
	}
	domain := parsed.Host

	queue := NewQueue(d.maxPages)
	queue.Add(NormalizeURL(baseURL))

	sitemap := fmt.Sprintf("%s://%s/sitemap.xml", parsed.Scheme, domain)
	if err := d.fromSitemap(ctx, sitemap, domain, queue, true); err != nil {
		d.log.Debug("Sitemap unavailable, crawling links", zap.String("sitemap", sitemap), zap.Error(err))
	}
	if queue.Len() > 1 {
		d.log.Info("Discovered pages from sitemap", zap.Int("pages", queue.Len()))
		return queue.All(), nil
	}

	d.fromLinks(ctx, domain, queue)
	d.log.Info("Discovered pages from links", zap.Int("pages", queue.Len()))
	return queue.All(), ctx.Err()
}

func (d *Discoverer) fromSitemap(ctx context.Context, sitemapURL, domain string, queue *Queue, nested bool) error {
	res, err := d.fetcher.Fetch(ctx, sitemapURL)
	if err != nil {
		return err
	}

	var doc sitemapDoc
	if err := xml.Unmarshal([]byte(res.HTML), &doc); err != nil {
		return fmt.Errorf("parsing sitemap: %w", err)
	}

	for _, u := range doc.URLs {
		loc := strings.TrimSpace(u.Loc)
		if IsSameDomain(loc, domain) && !IsStaticAsset(loc) {
			queue.Add(NormalizeURL(loc))
		}
	}
	if !nested {
		return nil
	}
	for _, s := range doc.Sitemaps {
		if queue.Full() {
			break
		}
		loc := strings.TrimSpace(s.Loc)
		if !IsSameDomain(loc, domain) {
			continue
		}
		if err := d.fromSitemap(ctx, loc, domain, queue, false); err != nil {
			d.log.Warn("Skipping child sitemap", zap.String("sitemap", loc), zap.Error(err))
		}
	}
	return nil
}

// fromLinks walks pages breadth first, adding same-domain links.
func (d *Discoverer) fromLinks(ctx context.Context, domain string, queue *Queue) {
	for queue.HasNext() && !queue.Full() {
		if ctx.Err() != nil {
			return
		}
		current := queue.Next()

		res, err := d.fetcher.Fetch(ctx, current)
		if err != nil {
			d.log.Warn("Skipping page during discovery", zap.String("url", current), zap.Error(err))
			continue
		}

		links, err := extractLinks(res.HTML, current)
		if err != nil {
			continue
		}
		for _, link := range links {
			if IsSameDomain(link, domain) && !IsStaticAsset(link) {
				queue.Add(NormalizeURL(link))
			}
		}
	}
}

// extractLinks returns every href of an <a> tag resolved against baseURL.
func extractLinks(html, baseURL string) ([]string, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil, err
	}
	base, err := url.Parse(baseURL)
	if err != nil {
		return nil, err
	}

	var links []string
	doc.Find("a[href]").Each(func(_ int, s *goquery.Selection) {
		href, _ := s.Attr("href")
		if resolved := resolveURL(strings.TrimSpace(href), base); resolved != "" {
			links = append(links, resolved)
		}
	})
	return links, nil
}

func resolveURL(href string, base *url.URL) string {
	if href == "" || strings.HasPrefix(href, "#") {
		return ""
	}
	for _, scheme := range []string{"mailto:", "javascript:", "tel:", "data:"} {
		if strings.HasPrefix(strings.ToLower(href), scheme) {
			return ""
		}
	}

	parsed, err := url.Parse(href)
	if err != nil {
		return ""
	}
	resolved := base.ResolveReference(parsed)
	resolved.Fragment = ""
	return resolved.String()
}
