package cmd

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	goerrors "github.com/goliatone/go-errors"
	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
	"gopkg.in/yaml.v3"

	"github.com/gaurav-prasanna/mdmend/config"
	"github.com/gaurav-prasanna/mdmend/core/extract"
	"github.com/gaurav-prasanna/mdmend/core/fetch"
	"github.com/gaurav-prasanna/mdmend/core/normalize"
	"github.com/gaurav-prasanna/mdmend/core/output"
	"github.com/gaurav-prasanna/mdmend/core/postprocess"
	"github.com/gaurav-prasanna/mdmend/core/render"
	"github.com/gaurav-prasanna/mdmend/crawl"
)

const broken = "- ** Query databases ** : find\n- ** Integrate designs **: update\n"
const repaired = "- **Query databases**: find\n- **Integrate designs**: update\n"

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	dir := t.TempDir()
	t.Chdir(dir)
	t.Setenv("HOME", dir)
	t.Setenv("XDG_CONFIG_HOME", filepath.Join(dir, "xdg"))

	c, err := config.Load(viper.New())
	require.NoError(t, err)
	return c
}

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

func readFile(t *testing.T, path string) string {
	t.Helper()
	b, err := os.ReadFile(path)
	require.NoError(t, err)
	return string(b)
}

func TestFixModeFromFlags(t *testing.T) {
	mode, err := fixModeFromFlags(false, "", false)
	require.NoError(t, err)
	assert.Equal(t, modeStdout, mode)

	mode, err = fixModeFromFlags(true, "", false)
	require.NoError(t, err)
	assert.Equal(t, modeWrite, mode)

	mode, err = fixModeFromFlags(false, "out", false)
	require.NoError(t, err)
	assert.Equal(t, modeWrite, mode)

	mode, err = fixModeFromFlags(false, "", true)
	require.NoError(t, err)
	assert.Equal(t, modeCheck, mode)

	_, err = fixModeFromFlags(true, "out", false)
	assert.Error(t, err)
	_, err = fixModeFromFlags(true, "", true)
	assert.Error(t, err)
}

func TestCollectTargets(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "a.md"), "a")
	writeFile(t, filepath.Join(root, "sub", "b.markdown"), "b")
	writeFile(t, filepath.Join(root, "sub", "c.txt"), "c")
	writeFile(t, filepath.Join(root, ".git", "d.md"), "d")
	explicit := filepath.Join(root, "sub", "c.txt")

	targets, err := collectTargets([]string{root, explicit, filepath.Join(root, "a.md")},
		config.FixConfig{Extensions: []string{".md", ".markdown"}})
	require.NoError(t, err)

	var paths []string
	for _, tg := range targets {
		paths = append(paths, tg.path)
	}
	assert.Equal(t, []string{
		filepath.Join(root, "a.md"),
		filepath.Join(root, "sub", "b.markdown"),
		explicit,
	}, paths)

	_, err = collectTargets([]string{filepath.Join(root, "missing.md")}, config.FixConfig{})
	assert.Error(t, err)
}

func TestFixStream(t *testing.T) {
	c := testConfig(t)
	var out bytes.Buffer
	f, err := newFixer(c, modeStdout, "", &out, zap.NewNop())
	require.NoError(t, err)

	require.NoError(t, f.fixStream(strings.NewReader("---\ntitle: \"** keep **\"\n---\n"+broken)))
	assert.Equal(t, "---\ntitle: \"** keep **\"\n---\n"+repaired, out.String())
}

func TestFixStreamCheck(t *testing.T) {
	c := testConfig(t)
	var out bytes.Buffer
	f, err := newFixer(c, modeCheck, "", &out, nil)
	require.NoError(t, err)

	require.NoError(t, f.fixStream(strings.NewReader(repaired)))
	assert.ErrorIs(t, f.fixStream(strings.NewReader(broken)), ErrNeedsFix)
}

func TestFixAllInPlace(t *testing.T) {
	c := testConfig(t)
	root := t.TempDir()
	bad := filepath.Join(root, "bad.md")
	good := filepath.Join(root, "good.md")
	writeFile(t, bad, broken)
	writeFile(t, good, repaired)
	before, err := os.Stat(good)
	require.NoError(t, err)

	core, logs := observer.New(zap.InfoLevel)
	f, err := newFixer(c, modeWrite, "", &bytes.Buffer{}, zap.New(core))
	require.NoError(t, err)

	targets, err := collectTargets([]string{root}, c.Fix)
	require.NoError(t, err)
	require.NoError(t, f.fixAll(context.Background(), targets))

	assert.Equal(t, repaired, readFile(t, bad))
	after, err := os.Stat(good)
	require.NoError(t, err)
	assert.Equal(t, before.ModTime(), after.ModTime())
	assert.Equal(t, 1, logs.FilterMessage("Fixed document").Len())
}

func TestFixAllOutputDir(t *testing.T) {
	c := testConfig(t)
	root := t.TempDir()
	outDir := filepath.Join(t.TempDir(), "fixed")
	src := filepath.Join(root, "docs", "guide.md")
	writeFile(t, src, broken)

	f, err := newFixer(c, modeWrite, outDir, &bytes.Buffer{}, nil)
	require.NoError(t, err)
	require.NoError(t, f.fixAll(context.Background(), []target{{path: src, root: root}}))

	assert.Equal(t, repaired, readFile(t, filepath.Join(outDir, "docs", "guide.md")))
	assert.Equal(t, broken, readFile(t, src))
}

func TestFixIgnoresConvertOutputDir(t *testing.T) {
	c := testConfig(t)
	c.Output.Dir = filepath.Join(t.TempDir(), "pages")
	root := t.TempDir()
	src := filepath.Join(root, "guide.md")
	writeFile(t, src, broken)

	var out bytes.Buffer
	f, err := newFixer(c, modeStdout, "", &out, nil)
	require.NoError(t, err)
	require.NoError(t, f.fixAll(context.Background(), []target{{path: src, root: root}}))

	assert.Equal(t, repaired, out.String())
	assert.NoDirExists(t, c.Output.Dir)

	f, err = newFixer(c, modeWrite, "", &bytes.Buffer{}, nil)
	require.NoError(t, err)
	require.NoError(t, f.fixAll(context.Background(), []target{{path: src, root: root}}))

	assert.Equal(t, repaired, readFile(t, src))
	assert.NoDirExists(t, c.Output.Dir)
}

func TestFixAllCheckKeepsGoingAfterFailure(t *testing.T) {
	c := testConfig(t)
	root := t.TempDir()
	bad := filepath.Join(root, "bad.md")
	writeFile(t, bad, broken)
	writeFile(t, filepath.Join(root, "good.md"), repaired)

	var out bytes.Buffer
	f, err := newFixer(c, modeCheck, "", &out, nil)
	require.NoError(t, err)

	targets := []target{
		{path: filepath.Join(root, "gone.md"), root: root},
		{path: bad, root: root},
		{path: filepath.Join(root, "good.md"), root: root},
	}
	err = f.fixAll(context.Background(), targets)
	require.ErrorIs(t, err, ErrNeedsFix)
	assert.Contains(t, err.Error(), "gone.md")
	assert.Equal(t, bad+"\n", out.String())
	assert.Equal(t, broken, readFile(t, bad))
}

func TestFixAllStdoutKeepsOrder(t *testing.T) {
	c := testConfig(t)
	root := t.TempDir()
	var targets []target
	var want strings.Builder
	for _, name := range []string{"a.md", "b.md", "c.md", "d.md", "e.md"} {
		p := filepath.Join(root, name)
		writeFile(t, p, "** "+name+" **\n")
		targets = append(targets, target{path: p, root: root})
		want.WriteString("**" + name + "**\n")
	}

	var out bytes.Buffer
	f, err := newFixer(c, modeStdout, "", &out, nil)
	require.NoError(t, err)
	require.NoError(t, f.fixAll(context.Background(), targets))
	assert.Equal(t, want.String(), out.String())
}

func TestAuditAll(t *testing.T) {
	root := t.TempDir()
	p := filepath.Join(root, "mcp.md")
	writeFile(t, p, "---\ntitle: MCP\n---\n"+broken)

	chain, err := postprocess.New([]string{postprocess.BoldSpacing}, nil)
	require.NoError(t, err)

	var out bytes.Buffer
	targets := []target{{path: p, root: root}, {path: filepath.Join(root, "gone.md"), root: root}}
	require.NoError(t, auditAll(context.Background(), chain, targets, 2, &out, zap.NewNop()))

	lines := strings.Split(strings.TrimSpace(out.String()), "\n")
	require.Len(t, lines, 2)
	assert.Contains(t, lines[0], "BOLD AFTER")
	assert.Contains(t, lines[1], "MCP")
	assert.Contains(t, lines[1], "yes")
	assert.True(t, strings.HasSuffix(lines[1], "2"), lines[1])
}

func TestPreviewRendersBold(t *testing.T) {
	chain, err := postprocess.New([]string{postprocess.BoldSpacing}, nil)
	require.NoError(t, err)

	var out bytes.Buffer
	require.NoError(t, preview(&out, "** Query databases ** : find", chain, "notty", 80))
	assert.Contains(t, out.String(), "Query databases")
	assert.NotContains(t, out.String(), "** Query")
}

func TestPreviewStyleWithoutTerminal(t *testing.T) {
	assert.Equal(t, "notty", previewStyle(&bytes.Buffer{}, "dracula"))
}

func TestWriteConfig(t *testing.T) {
	c := testConfig(t)
	var out bytes.Buffer
	require.NoError(t, writeConfig(&out, c))

	var back map[string]any
	require.NoError(t, yaml.Unmarshal(out.Bytes(), &back))
	assert.Contains(t, back, "fix")
	assert.Contains(t, out.String(), "timeout: 30s")
	assert.Contains(t, out.String(), "- bold-spacing")
}

func TestBuildMetadata(t *testing.T) {
	at := time.Date(2026, 1, 2, 3, 4, 5, 0, time.FixedZone("X", 3600))
	meta := buildMetadata("https://docs.example/guide",
		`<html lang="de"><head><title> Guide </title></head><body></body></html>`, at)

	assert.Equal(t, "docs.example", meta.Domain)
	assert.Equal(t, "/guide", meta.Path)
	assert.Equal(t, "Guide", meta.Title)
	assert.Equal(t, "de", meta.Language)
	assert.Equal(t, "2026-01-02T02:04:05Z", meta.FetchedAt)

	meta = buildMetadata("https://docs.example", "<p>x</p>", at)
	assert.Equal(t, "/", meta.Path)
	assert.Equal(t, "en", meta.Language)
	assert.Empty(t, meta.Title)
}

func newTestPipeline(t *testing.T, outDir string, out *bytes.Buffer) *pipeline {
	t.Helper()
	chain, err := postprocess.New(postprocess.DefaultPasses(), nil)
	require.NoError(t, err)
	writer, err := output.New(outDir)
	require.NoError(t, err)
	return &pipeline{
		fetcher:    fetch.New(5*time.Second, "mdmend-test", nil),
		extractor:  extract.New(config.DefaultNoiseSelectors()),
		normalizer: normalize.New(chain),
		renderer:   render.NewMarkdownRenderer(),
		writer:     writer,
		out:        out,
		log:        zap.NewNop(),
	}
}

func TestPipelineRunOnly(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`<html><head><title>MCP</title></head><body><nav>skip</nav>
<main><ul><li><strong>Query databases</strong>: find</li></ul></main></body></html>`))
	}))
	defer srv.Close()

	outDir := t.TempDir()
	var out bytes.Buffer
	p := newTestPipeline(t, outDir, &out)
	require.NoError(t, p.runOnly(context.Background(), srv.URL))

	entries, err := os.ReadDir(outDir)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	md := readFile(t, filepath.Join(outDir, entries[0].Name()))
	assert.Contains(t, md, "**Query databases**: find")
	assert.NotContains(t, md, "skip")
	assert.Contains(t, out.String(), "Written")
}

func TestPipelineRunAll(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/":
			_, _ = w.Write([]byte(`<body><p>home</p><a href="/a">a</a><a href="/broken">b</a></body>`))
		case "/a":
			_, _ = w.Write([]byte(`<body><p>page <strong>a</strong></p></body>`))
		default:
			http.NotFound(w, r)
		}
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	outDir := t.TempDir()
	var out bytes.Buffer
	p := newTestPipeline(t, outDir, &out)
	d := crawl.NewDiscoverer(p.fetcher, 10, nil)

	require.NoError(t, p.runAll(context.Background(), srv.URL, d, 2))
	assert.FileExists(t, filepath.Join(outDir, "index.md"))
	assert.Contains(t, readFile(t, filepath.Join(outDir, "a.md")), "**a**")
	assert.Contains(t, out.String(), "1/3 pages failed")
}

func TestValidateFlags(t *testing.T) {
	defer func() { flagOnly, flagAll, flagPDF, flagMarkdown, flagJSON = false, false, false, false, false }()

	assert.Error(t, validateFlags())

	flagMarkdown = true
	assert.NoError(t, validateFlags())

	flagJSON = true
	assert.Error(t, validateFlags())

	flagJSON = false
	flagOnly, flagAll = true, true
	assert.Error(t, validateFlags())
}

func TestErrorClassification(t *testing.T) {
	v := wrapValidationError(assert.AnError)
	assert.True(t, goerrors.IsCategory(v, goerrors.CategoryValidation))
	assert.Equal(t, 2, exitCode(v))
	assert.Equal(t, v, wrapRunError(v))

	r := wrapRunError(ErrNeedsFix)
	assert.True(t, goerrors.IsCategory(r, goerrors.CategoryCommand))
	assert.Equal(t, 1, exitCode(r))

	assert.NoError(t, wrapRunError(nil))
	assert.NoError(t, wrapValidationError(nil))
}
