package crawl

import (
	"context"
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gaurav-prasanna/mdmend/core"
)

// siteFetcher serves pages from a map; missing pages fail.
type siteFetcher map[string]string

func (s siteFetcher) Fetch(_ context.Context, url string) (*core.FetchResult, error) {
	body, ok := s[url]
	if !ok {
		return nil, errors.New("not found")
	}
	return &core.FetchResult{URL: url, StatusCode: 200, HTML: body}, nil
}

func TestDiscoverFromSitemap(t *testing.T) {
	site := siteFetcher{
		"https://docs.example/sitemap.xml": `<?xml version="1.0"?>
<urlset>
  <url><loc>https://docs.example/a/</loc></url>
  <url><loc>https://docs.example/logo.png</loc></url>
  <url><loc>https://other.example/x</loc></url>
  <url><loc> https://docs.example/b#top </loc></url>
</urlset>`,
	}

	got, err := NewDiscoverer(site, 10, nil).Discover(context.Background(), "https://docs.example/")
	require.NoError(t, err)

	want := []string{"https://docs.example/", "https://docs.example/a", "https://docs.example/b"}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("Discover difference (-want +got):\n%s", diff)
	}
}

func TestDiscoverFollowsSitemapIndex(t *testing.T) {
	site := siteFetcher{
		"https://docs.example/sitemap.xml": `<sitemapindex>
  <sitemap><loc>https://docs.example/pages.xml</loc></sitemap>
  <sitemap><loc>https://docs.example/missing.xml</loc></sitemap>
</sitemapindex>`,
		"https://docs.example/pages.xml": `<urlset><url><loc>https://docs.example/guide</loc></url></urlset>`,
	}

	got, err := NewDiscoverer(site, 10, nil).Discover(context.Background(), "https://docs.example")
	require.NoError(t, err)
	assert.Equal(t, []string{"https://docs.example", "https://docs.example/guide"}, got)
}

func TestDiscoverFallsBackToLinks(t *testing.T) {
	site := siteFetcher{
		"https://docs.example": `<a href="/one">1</a><a href="mailto:x@y">m</a>
<a href="https://elsewhere.example/">e</a><a href="#frag">f</a><a href="/style.css">s</a>`,
		"https://docs.example/one": `<a href="two/">2</a><a href="/">home</a>`,
		"https://docs.example/two": `<a href="/three">3</a>`,
	}

	got, err := NewDiscoverer(site, 3, nil).Discover(context.Background(), "https://docs.example")
	require.NoError(t, err)
	assert.Equal(t, []string{
		"https://docs.example",
		"https://docs.example/one",
		"https://docs.example/two",
	}, got)
}

func TestDiscoverRejectsRelativeBase(t *testing.T) {
	_, err := NewDiscoverer(siteFetcher{}, 10, nil).Discover(context.Background(), "docs/page")
	require.Error(t, err)
}

func TestQueue(t *testing.T) {
	q := NewQueue(2)
	assert.True(t, q.Add("a"))
	assert.False(t, q.Add("a"))
	assert.True(t, q.Add("b"))
	assert.False(t, q.Add("c"))
	assert.True(t, q.Full())

	require.True(t, q.HasNext())
	assert.Equal(t, "a", q.Next())
	assert.Equal(t, "b", q.Next())
	assert.False(t, q.HasNext())
	assert.Equal(t, []string{"a", "b"}, q.All())
}

func TestRules(t *testing.T) {
	assert.True(t, IsSameDomain("https://Docs.Example/x", "docs.example"))
	assert.False(t, IsSameDomain("https://docs.example.evil/x", "docs.example"))
	assert.True(t, IsStaticAsset("https://docs.example/img/Logo.PNG"))
	assert.False(t, IsStaticAsset("https://docs.example/guide"))
	assert.Equal(t, "https://docs.example/a?b=1", NormalizeURL("https://DOCS.example/a/?b=1#c"))
	assert.Equal(t, "https://docs.example/", NormalizeURL("https://docs.example/#top"))
}
