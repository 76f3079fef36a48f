package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"

	"github.com/spf13/cobra"
	"go.uber.org/multierr"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/gaurav-prasanna/mdmend/config"
	"github.com/gaurav-prasanna/mdmend/core"
	"github.com/gaurav-prasanna/mdmend/core/document"
	"github.com/gaurav-prasanna/mdmend/core/output"
	"github.com/gaurav-prasanna/mdmend/core/postprocess"
)

var (
	flagFixWrite     bool
	flagFixOutputDir string
	flagFixCheck     bool
)

var fixCmd = &cobra.Command{
	Use:   "fix [paths...]",
	Short: "Repair bold spacing and other Markdown defects",
	Long: `Fix loads Markdown documents, runs the configured post-processing passes
over their bodies (front matter is left untouched), and writes the result.

With no paths, or "-", fix reads standard input and writes standard output.
Directories are walked for files with a configured extension.

Examples:
  mdmend fix README.md
  mdmend fix docs --write
  mdmend fix docs --output_dir ./fixed
  mdmend fix docs --check
  cat notes.md | mdmend fix`,
	RunE: runFixCmd,
}

func init() {
	rootCmd.AddCommand(fixCmd)

	fixCmd.Flags().BoolVar(&flagFixWrite, "write", false, "Rewrite files in place")
	fixCmd.Flags().StringVar(&flagFixOutputDir, "output_dir", "", "Write fixed files under this directory, mirroring their paths")
	fixCmd.Flags().BoolVar(&flagFixCheck, "check", false, "List files that would change and fail if any would")
}

type fixMode int

const (
	modeStdout fixMode = iota
	modeWrite
	modeCheck
)

// fixer runs the post-processing chain over documents.
type fixer struct {
	chain       core.Postprocessor
	mode        fixMode
	writer      *output.Writer
	concurrency int
	out         io.Writer
	log         *zap.Logger
}

func runFixCmd(cmd *cobra.Command, args []string) error {
	mode, err := fixModeFromFlags(flagFixWrite, flagFixOutputDir, flagFixCheck)
	if err != nil {
		return wrapValidationError(err)
	}

	f, err := newFixer(cfg, mode, flagFixOutputDir, cmd.OutOrStdout(), logger)
	if err != nil {
		return wrapValidationError(err)
	}

	if readsStdin(args) {
		if mode == modeWrite {
			return wrapValidationError(errors.New("--write and --output_dir need file arguments"))
		}
		return wrapRunError(f.fixStream(cmd.InOrStdin()))
	}

	targets, err := collectTargets(args, cfg.Fix)
	if err != nil {
		return wrapValidationError(err)
	}
	return wrapRunError(f.fixAll(cmd.Context(), targets))
}

func fixModeFromFlags(write bool, outputDir string, check bool) (fixMode, error) {
	switch {
	case write && outputDir != "":
		return 0, errors.New("--write and --output_dir are mutually exclusive")
	case check && (write || outputDir != ""):
		return 0, errors.New("--check cannot be combined with --write or --output_dir")
	case check:
		return modeCheck, nil
	case write || outputDir != "":
		return modeWrite, nil
	default:
		return modeStdout, nil
	}
}

func newFixer(c *config.Config, mode fixMode, outputDir string, out io.Writer, log *zap.Logger) (*fixer, error) {
	if log == nil {
		log = zap.NewNop()
	}
	chain, err := postprocess.New(c.Fix.Passes, log)
	if err != nil {
		return nil, err
	}
	writer, err := output.New(outputDir)
	if err != nil {
		return nil, err
	}
	return &fixer{
		chain:       chain,
		mode:        mode,
		writer:      writer,
		concurrency: c.Fix.Concurrency,
		out:         out,
		log:         log,
	}, nil
}

// fixStream repairs one document from r.
func (f *fixer) fixStream(r io.Reader) error {
	doc, err := document.Read(r, "<stdin>")
	if err != nil {
		return err
	}
	fixed := doc.WithBody(f.chain.Process(doc.Body))

	if f.mode == modeCheck {
		if fixed.Body != doc.Body {
			fmt.Fprintln(f.out, doc.Path)
			return fmt.Errorf("%w: %s", ErrNeedsFix, doc.Path)
		}
		return nil
	}
	_, err = f.out.Write(fixed.Bytes())
	return err
}

type fixResult struct {
	changed bool
	data    []byte
}

// fixAll repairs targets concurrently. A failing document is logged and
// reported but never stops the others.
func (f *fixer) fixAll(ctx context.Context, targets []target) error {
	if ctx == nil {
		ctx = context.Background()
	}
	results := make([]fixResult, len(targets))

	var (
		mu   sync.Mutex
		errs error
	)
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(f.concurrency)

	for i, t := range targets {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			res, err := f.fixOne(t)
			if err != nil {
				f.log.Error("Failed to fix document", zap.String("path", t.path), zap.Error(err))
				mu.Lock()
				errs = multierr.Append(errs, err)
				mu.Unlock()
				return nil
			}
			results[i] = res
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}

	var pending int
	for i, res := range results {
		switch f.mode {
		case modeStdout:
			if _, err := f.out.Write(res.data); err != nil {
				return err
			}
		case modeCheck:
			if res.changed {
				pending++
				fmt.Fprintln(f.out, targets[i].path)
			}
		}
	}
	if pending > 0 {
		errs = multierr.Append(errs, fmt.Errorf("%w: %d of %d files", ErrNeedsFix, pending, len(targets)))
	}
	return errs
}

func (f *fixer) fixOne(t target) (fixResult, error) {
	doc, err := document.Load(t.path)
	if err != nil {
		return fixResult{}, err
	}
	fixed := doc.WithBody(f.chain.Process(doc.Body))
	res := fixResult{changed: fixed.Body != doc.Body}

	switch f.mode {
	case modeStdout:
		res.data = fixed.Bytes()
	case modeWrite:
		// In place, untouched files keep their timestamps.
		if f.writer.InPlace() && !res.changed {
			return res, nil
		}
		path, err := f.writer.WriteDocument(fixed, t.root)
		if err != nil {
			return fixResult{}, err
		}
		f.log.Info("Fixed document", zap.String("path", path), zap.Bool("changed", res.changed))
	}
	return res, nil
}
