package cmd

import (
	"context"
	"io"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/gaurav-prasanna/mdmend/core"
	"github.com/gaurav-prasanna/mdmend/core/audit"
	"github.com/gaurav-prasanna/mdmend/core/document"
	"github.com/gaurav-prasanna/mdmend/core/postprocess"
)

var auditCmd = &cobra.Command{
	Use:   "audit [paths...]",
	Short: "Report how many bold spans a fix would bring back",
	Long: `Audit fixes documents in memory and prints, per document, whether it would
change, how many characters the fix removes, and how many bold spans a
CommonMark renderer finds before and after. Nothing is written.`,
	RunE: runAuditCmd,
}

func init() {
	rootCmd.AddCommand(auditCmd)
}

func runAuditCmd(cmd *cobra.Command, args []string) error {
	chain, err := postprocess.New(cfg.Fix.Passes, logger)
	if err != nil {
		return wrapValidationError(err)
	}

	if readsStdin(args) {
		doc, err := document.Read(cmd.InOrStdin(), "<stdin>")
		if err != nil {
			return wrapRunError(err)
		}
		report := inspect(chain, doc)
		return wrapRunError(audit.WriteTable(cmd.OutOrStdout(), []audit.Report{report}))
	}

	targets, err := collectTargets(args, cfg.Fix)
	if err != nil {
		return wrapValidationError(err)
	}
	return wrapRunError(auditAll(cmd.Context(), chain, targets, cfg.Fix.Concurrency, cmd.OutOrStdout(), logger))
}

func inspect(chain core.Postprocessor, doc *document.Document) audit.Report {
	return audit.Inspect(doc.Path, doc.Title(), doc.Body, chain.Process(doc.Body))
}

// auditAll loads and inspects targets concurrently, then writes one table
// in target order. Unreadable documents are logged and left out.
func auditAll(ctx context.Context, chain core.Postprocessor, targets []target, limit int, w io.Writer, log *zap.Logger) error {
	if ctx == nil {
		ctx = context.Background()
	}
	reports := make([]*audit.Report, len(targets))

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(limit)
	for i, t := range targets {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			doc, err := document.Load(t.path)
			if err != nil {
				log.Warn("Skipping document", zap.String("path", t.path), zap.Error(err))
				return nil
			}
			r := inspect(chain, doc)
			reports[i] = &r
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}

	out := make([]audit.Report, 0, len(reports))
	for _, r := range reports {
		if r != nil {
			out = append(out, *r)
		}
	}
	return audit.WriteTable(w, out)
}
