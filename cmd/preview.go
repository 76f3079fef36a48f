package cmd

import (
	"fmt"
	"io"
	"os"

	"github.com/charmbracelet/glamour"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/gaurav-prasanna/mdmend/core"
	"github.com/gaurav-prasanna/mdmend/core/document"
	"github.com/gaurav-prasanna/mdmend/core/postprocess"
)

var flagPreviewRaw bool

var previewCmd = &cobra.Command{
	Use:   "preview <file>",
	Short: "Render a fixed document in the terminal",
	Long: `Preview fixes a document in memory and renders it to the terminal, so the
restored bold spans can be checked by eye. Use "-" to read standard input
and --raw to render the document as it is on disk.`,
	Args: cobra.ExactArgs(1),
	RunE: runPreviewCmd,
}

func init() {
	rootCmd.AddCommand(previewCmd)
	previewCmd.Flags().BoolVar(&flagPreviewRaw, "raw", false, "Render without fixing")
}

func runPreviewCmd(cmd *cobra.Command, args []string) error {
	var (
		doc *document.Document
		err error
	)
	if args[0] == "-" {
		doc, err = document.Read(cmd.InOrStdin(), "<stdin>")
	} else {
		doc, err = document.Load(args[0])
	}
	if err != nil {
		return wrapRunError(err)
	}

	var post core.Postprocessor
	if !flagPreviewRaw {
		chain, err := postprocess.New(cfg.Fix.Passes, logger)
		if err != nil {
			return wrapValidationError(err)
		}
		post = chain
	}

	return wrapRunError(preview(cmd.OutOrStdout(), doc.Body, post, previewStyle(cmd.OutOrStdout(), cfg.Preview.Style), cfg.Preview.Width))
}

// previewStyle drops colors and escapes when w is not a terminal.
func previewStyle(w io.Writer, style string) string {
	if f, ok := w.(*os.File); ok && term.IsTerminal(int(f.Fd())) {
		return style
	}
	return "notty"
}

// preview renders markdown with glamour after running post, if any.
func preview(w io.Writer, markdown string, post core.Postprocessor, style string, width int) error {
	if post != nil {
		markdown = post.Process(markdown)
	}

	r, err := glamour.NewTermRenderer(
		glamour.WithStandardStyle(style),
		glamour.WithWordWrap(width),
	)
	if err != nil {
		return fmt.Errorf("creating terminal renderer: %w", err)
	}
	out, err := r.Render(markdown)
	if err != nil {
		return fmt.Errorf("rendering preview: %w", err)
	}
	_, err = io.WriteString(w, out)
	return err
}
