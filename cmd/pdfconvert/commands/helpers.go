package commands

import (
	"fmt"
	"io"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/adverant/nexus/pdfocr-worker/internal/model"
)

// requestFlags are the per-request overrides shared by convert and submit
type requestFlags struct {
	mode      string
	language  string
	threshold int
	pages     string
	workers   int
	dpi       int
	timeout   time.Duration
}

func (f *requestFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVarP(&f.mode, "mode", "m", "text", "output mode: text or table")
	cmd.Flags().StringVarP(&f.language, "lang", "l", "", "OCR language code, e.g. eng or eng+fra (default from config)")
	cmd.Flags().IntVarP(&f.threshold, "threshold", "t", 0, "minimum confidence 0-100 (default from config)")
	cmd.Flags().StringVarP(&f.pages, "pages", "p", "", "page selection, e.g. 1,3-5 (default all)")
	cmd.Flags().IntVarP(&f.workers, "workers", "w", 0, "parallel page workers (default from config)")
	cmd.Flags().IntVar(&f.dpi, "dpi", 0, "rasterization DPI (default from config)")
	cmd.Flags().DurationVar(&f.timeout, "timeout", 0, "request timeout (default from config)")
}

// options applies the flags the user set on top of the configured defaults
func (f *requestFlags) options(cmd *cobra.Command) (model.Options, error) {
	opts := cfg.Options()

	mode, err := model.ParseMode(f.mode)
	if err != nil {
		return opts, err
	}
	opts.Mode = mode

	if cmd.Flags().Changed("lang") {
		opts.Language = f.language
	}
	if cmd.Flags().Changed("threshold") {
		opts.Threshold = f.threshold
	}
	if cmd.Flags().Changed("workers") {
		opts.MaxWorkers = f.workers
	}
	if cmd.Flags().Changed("dpi") {
		opts.DPI = f.dpi
	}
	if cmd.Flags().Changed("timeout") {
		opts.Timeout = f.timeout
	}

	pages, err := model.ParsePageSelection(f.pages)
	if err != nil {
		return opts, err
	}
	opts.Pages = pages

	return opts, opts.Validate()
}

func configFileFromEnv() string {
	return os.Getenv("CONFIG_FILE")
}

func printSummary(w io.Writer, artifact *model.Artifact, output string) {
	s := artifact.Stats
	fmt.Fprintf(w, "Request:    %s\n", artifact.RequestID)
	fmt.Fprintf(w, "Pages:      %d attempted, %d succeeded, %d failed, %d pending\n",
		s.PagesAttempted, s.PagesSucceeded, s.PagesFailed, s.PagesPending)
	fmt.Fprintf(w, "Confidence: %.1f\n", s.MeanConfidence)
	fmt.Fprintf(w, "Elapsed:    %s\n", s.Elapsed.Round(time.Millisecond))
	if artifact.Mode == model.ModeTable {
		fmt.Fprintf(w, "Tables:     %d\n", len(artifact.Tables))
	}
	if artifact.TimedOut {
		fmt.Fprintf(w, "Timed out; pending pages: %v\n", artifact.PendingPages)
	}
	for _, e := range artifact.Errors {
		fmt.Fprintf(w, "  page %d skipped: %s\n", e.Page, e.Reason)
	}
	if output != "" {
		fmt.Fprintf(w, "Output:     %s\n", output)
	}
}
