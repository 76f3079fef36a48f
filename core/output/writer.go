// Package output handles file naming and writing for mdmend outputs.
// Repaired documents are written in place or mirrored under an output
// directory. Converted pages use URL-derived names: in --only mode the
// filename comes from the domain (e.g., example_com.md), in --all mode it
// mirrors the URL path structure.
package output

import (
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"

	"github.com/gaurav-prasanna/mdmend/core/document"
)

// Writer writes documents and rendered pages to disk.
type Writer struct {
	// OutputDir is the destination root. Empty means documents are
	// rewritten in place and pages go to the working directory.
	OutputDir string
}

// New creates a Writer targeting the given output directory, creating it
// when needed.
func New(outputDir string) (*Writer, error) {
	if outputDir == "" {
		return &Writer{}, nil
	}

	if err := os.MkdirAll(outputDir, 0o755); err != nil {
		return nil, fmt.Errorf("creating output directory: %w", err)
	}

	return &Writer{OutputDir: outputDir}, nil
}

// InPlace reports whether documents are rewritten where they were loaded.
func (w *Writer) InPlace() bool {
	return w.OutputDir == ""
}

// WriteDocument writes doc and returns the path written. In place, the file
// is replaced atomically and keeps its mode. Otherwise the document path
// relative to root is mirrored under OutputDir.
func (w *Writer) WriteDocument(doc *document.Document, root string) (string, error) {
	if w.InPlace() {
		return doc.Path, writeAtomic(doc.Path, doc.Bytes(), doc.Mode)
	}

	rel, err := filepath.Rel(root, doc.Path)
	if err != nil || rel == "." || strings.HasPrefix(rel, "..") {
		rel = filepath.Base(doc.Path)
	}

	dest := filepath.Join(w.OutputDir, rel)
	if err := os.MkdirAll(filepath.Dir(dest), 0o755); err != nil {
		return "", fmt.Errorf("creating directory %s: %w", filepath.Dir(dest), err)
	}
	if err := os.WriteFile(dest, doc.Bytes(), doc.Mode); err != nil {
		return "", fmt.Errorf("writing file %s: %w", dest, err)
	}
	return dest, nil
}

// writeAtomic writes data to a temporary file next to path and renames it
// over path.
func writeAtomic(path string, data []byte, mode os.FileMode) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), "."+filepath.Base(path)+".*")
	if err != nil {
		return fmt.Errorf("creating temp file for %s: %w", path, err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("writing temp file for %s: %w", path, err)
	}
	if err := tmp.Chmod(mode); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("setting mode on %s: %w", path, err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("closing temp file for %s: %w", path, err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("replacing %s: %w", path, err)
	}
	return nil
}

// pageDir is where converted pages go.
func (w *Writer) pageDir() (string, error) {
	if w.OutputDir != "" {
		return w.OutputDir, nil
	}
	wd, err := os.Getwd()
	if err != nil {
		return "", fmt.Errorf("getting working directory: %w", err)
	}
	return wd, nil
}

// WriteOnly writes a converted page for --only mode.
// Filename: domain_path.ext (e.g., example_com.md).
func (w *Writer) WriteOnly(rawURL string, data []byte, ext string) (string, error) {
	dir, err := w.pageDir()
	if err != nil {
		return "", err
	}

	path := filepath.Join(dir, filenameFromURL(rawURL)+ext)
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", fmt.Errorf("writing file %s: %w", path, err)
	}
	return path, nil
}

// WriteAll writes a converted page for --all mode, mirroring the URL path.
// Example: https://site.com/docs/intro → ./docs/intro.md
func (w *Writer) WriteAll(rawURL string, data []byte, ext string) (string, error) {
	dir, err := w.pageDir()
	if err != nil {
		return "", err
	}

	parsed, err := url.Parse(rawURL)
	if err != nil {
		return "", fmt.Errorf("parsing URL: %w", err)
	}

	urlPath := strings.Trim(parsed.Path, "/")
	if urlPath == "" {
		urlPath = "index"
	}

	fullPath := filepath.Join(dir, filepath.FromSlash(urlPath)+ext)
	if rel, err := filepath.Rel(dir, fullPath); err != nil || strings.HasPrefix(rel, "..") {
		return "", fmt.Errorf("URL path %q escapes the output directory", parsed.Path)
	}

	if err := os.MkdirAll(filepath.Dir(fullPath), 0o755); err != nil {
		return "", fmt.Errorf("creating directory %s: %w", filepath.Dir(fullPath), err)
	}
	if err := os.WriteFile(fullPath, data, 0o644); err != nil {
		return "", fmt.Errorf("writing file %s: %w", fullPath, err)
	}
	return fullPath, nil
}

// filenameFromURL converts a URL into a flat filename.
// Example: https://example.com/docs/intro → example_com_docs_intro
func filenameFromURL(rawURL string) string {
	parsed, err := url.Parse(rawURL)
	if err != nil {
		return sanitize(rawURL)
	}

	parts := []string{sanitize(parsed.Host)}
	if p := strings.Trim(parsed.Path, "/"); p != "" {
		for _, seg := range strings.Split(p, "/") {
			parts = append(parts, sanitize(seg))
		}
	}
	return strings.Join(parts, "_")
}

// sanitize replaces non-alphanumeric characters with underscores.
func sanitize(s string) string {
	return strings.Map(func(ch rune) rune {
		if (ch >= 'a' && ch <= 'z') || (ch >= 'A' && ch <= 'Z') || (ch >= '0' && ch <= '9') {
			return ch
		}
		return '_'
	}, s)
}
