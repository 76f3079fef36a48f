// Convert command.
// Orchestrates the page pipeline:
// fetch → extract → HTML to Markdown → post-process → render → write.
// It handles flag validation, renderer selection, and the --only / --all modes.

package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/spf13/cobra"
	"go.uber.org/multierr"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/gaurav-prasanna/mdmend/core"
	"github.com/gaurav-prasanna/mdmend/core/extract"
	"github.com/gaurav-prasanna/mdmend/core/fetch"
	"github.com/gaurav-prasanna/mdmend/core/normalize"
	"github.com/gaurav-prasanna/mdmend/core/output"
	"github.com/gaurav-prasanna/mdmend/core/postprocess"
	"github.com/gaurav-prasanna/mdmend/core/render"
	"github.com/gaurav-prasanna/mdmend/crawl"
)

var (
	flagOnly      bool
	flagAll       bool
	flagPDF       bool
	flagMarkdown  bool
	flagJSON      bool
	flagOutputDir string
)

var convertCmd = &cobra.Command{
	Use:   "convert <url>",
	Short: "Convert a web page to repaired Markdown, JSON, or PDF",
	Long: `Convert fetches a webpage, extracts its main content, converts it to
Markdown, repairs the Markdown with the configured post-processing passes,
and renders it in the requested format.

Examples:
  mdmend convert https://example.com --markdown
  mdmend convert https://example.com --json --output_dir ./out
  mdmend convert https://example.com --all --pdf`,
	Args: cobra.ExactArgs(1),
	RunE: runConvert,
}

func init() {
	rootCmd.AddCommand(convertCmd)

	convertCmd.Flags().BoolVar(&flagOnly, "only", false, "Convert only the given URL (default)")
	convertCmd.Flags().BoolVar(&flagAll, "all", false, "Convert all discovered sub-pages")

	// Output format flags (mutually exclusive).
	convertCmd.Flags().BoolVar(&flagPDF, "pdf", false, "Output PDF")
	convertCmd.Flags().BoolVar(&flagMarkdown, "markdown", false, "Output Markdown")
	convertCmd.Flags().BoolVar(&flagJSON, "json", false, "Output structured JSON")

	convertCmd.Flags().StringVar(&flagOutputDir, "output_dir", "", "Output directory (default: output.dir, then the current directory)")
}

// pipeline bundles the stages a page goes through.
type pipeline struct {
	fetcher    core.Fetcher
	extractor  core.Extractor
	normalizer core.Normalizer
	renderer   core.Renderer
	writer     *output.Writer
	out        io.Writer
	log        *zap.Logger
}

func runConvert(cmd *cobra.Command, args []string) error {
	rawURL := args[0]

	if err := validateFlags(); err != nil {
		return wrapValidationError(err)
	}
	parsed, err := url.Parse(rawURL)
	if err != nil || parsed.Scheme == "" || parsed.Host == "" {
		return wrapValidationError(fmt.Errorf("invalid URL: %s (must include scheme, e.g. https://example.com)", rawURL))
	}

	renderer, err := selectRenderer()
	if err != nil {
		return wrapValidationError(err)
	}
	chain, err := postprocess.New(cfg.Postprocess.Passes, logger)
	if err != nil {
		return wrapValidationError(err)
	}

	outDir := flagOutputDir
	if outDir == "" {
		outDir = cfg.Output.Dir
	}
	writer, err := output.New(outDir)
	if err != nil {
		return wrapRunError(fmt.Errorf("initializing output writer: %w", err))
	}

	p := &pipeline{
		fetcher:    fetch.New(cfg.Fetch.Timeout, cfg.Fetch.UserAgent, logger),
		extractor:  extract.New(cfg.Extract.NoiseSelectors),
		normalizer: normalize.New(chain),
		renderer:   renderer,
		writer:     writer,
		out:        cmd.OutOrStdout(),
		log:        logger,
	}

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	if flagAll {
		discoverer := crawl.NewDiscoverer(p.fetcher, cfg.Crawl.MaxPages, logger)
		return wrapRunError(p.runAll(ctx, rawURL, discoverer, cfg.Crawl.Concurrency))
	}
	return wrapRunError(p.runOnly(ctx, rawURL))
}

// runOnly processes a single URL.
func (p *pipeline) runOnly(ctx context.Context, rawURL string) error {
	data, _, err := p.process(ctx, rawURL)
	if err != nil {
		return err
	}
	path, err := p.writer.WriteOnly(rawURL, data, p.renderer.Extension())
	if err != nil {
		return err
	}
	fmt.Fprintf(p.out, "✓ Written: %s\n", path)
	return nil
}

// runAll discovers internal pages and converts them concurrently. Failed
// pages are reported; the run fails only when every page failed.
func (p *pipeline) runAll(ctx context.Context, rawURL string, discoverer *crawl.Discoverer, concurrency int) error {
	p.log.Info("Discovering pages", zap.String("url", rawURL))
	urls, err := discoverer.Discover(ctx, rawURL)
	if err != nil {
		return fmt.Errorf("discovering pages: %w", err)
	}
	fmt.Fprintf(p.out, "Found %d pages to process\n", len(urls))

	var (
		mu       sync.Mutex
		errs     error
		failed   int
		progress int
	)
	fail := func(pageURL string, err error) {
		mu.Lock()
		defer mu.Unlock()
		failed++
		errs = multierr.Append(errs, fmt.Errorf("%s: %w", pageURL, err))
		p.log.Error("Page failed", zap.String("url", pageURL), zap.Error(err))
	}

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(concurrency)
	for _, pageURL := range urls {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			data, _, err := p.process(ctx, pageURL)
			if err != nil {
				fail(pageURL, err)
				return nil
			}
			path, err := p.writer.WriteAll(pageURL, data, p.renderer.Extension())
			if err != nil {
				fail(pageURL, err)
				return nil
			}

			mu.Lock()
			progress++
			fmt.Fprintf(p.out, "[%d/%d] ✓ Written: %s\n", progress, len(urls), path)
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}

	if failed > 0 {
		fmt.Fprintf(p.out, "\n%d/%d pages failed\n", failed, len(urls))
	}
	if failed == len(urls) && failed > 0 {
		return errs
	}
	return nil
}

// process runs a single URL through the pipeline.
func (p *pipeline) process(ctx context.Context, rawURL string) ([]byte, core.PageMetadata, error) {
	result, err := p.fetcher.Fetch(ctx, rawURL)
	if err != nil {
		return nil, core.PageMetadata{}, fmt.Errorf("fetch: %w", err)
	}

	content, err := p.extractor.Extract(result.HTML)
	if err != nil {
		return nil, core.PageMetadata{}, fmt.Errorf("extract: %w", err)
	}

	markdown, err := p.normalizer.Normalize(content)
	if err != nil {
		return nil, core.PageMetadata{}, fmt.Errorf("normalize: %w", err)
	}

	meta := buildMetadata(rawURL, result.HTML, time.Now())

	data, err := p.renderer.Render(markdown, meta)
	if err != nil {
		return nil, core.PageMetadata{}, fmt.Errorf("render: %w", err)
	}
	return data, meta, nil
}

// buildMetadata reads the title and language from the page head.
func buildMetadata(rawURL, html string, fetchedAt time.Time) core.PageMetadata {
	meta := core.PageMetadata{
		URL:       rawURL,
		Language:  "en",
		FetchedAt: fetchedAt.UTC().Format(time.RFC3339),
	}
	if parsed, err := url.Parse(rawURL); err == nil {
		meta.Domain = parsed.Host
		meta.Path = parsed.Path
		if meta.Path == "" {
			meta.Path = "/"
		}
	}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return meta
	}
	meta.Title = strings.TrimSpace(doc.Find("title").First().Text())
	if lang := strings.TrimSpace(doc.Find("html").AttrOr("lang", "")); lang != "" {
		meta.Language = lang
	}
	return meta
}

// validateFlags checks that exactly one output format is chosen and
// that --only and --all are not both specified.
func validateFlags() error {
	if flagOnly && flagAll {
		return errors.New("--only and --all are mutually exclusive")
	}

	formats := 0
	for _, set := range []bool{flagPDF, flagMarkdown, flagJSON} {
		if set {
			formats++
		}
	}
	switch {
	case formats == 0:
		return errors.New("exactly one output format is required: --pdf, --markdown, or --json")
	case formats > 1:
		return fmt.Errorf("only one output format allowed per run (got %d)", formats)
	}
	return nil
}

func selectRenderer() (core.Renderer, error) {
	switch {
	case flagMarkdown:
		return render.NewMarkdownRenderer(), nil
	case flagJSON:
		return render.NewJSONRenderer(), nil
	case flagPDF:
		return render.NewPDFRenderer(), nil
	default:
		return nil, errors.New("no output format selected")
	}
}
