package commands

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/adverant/nexus/pdfocr-worker/internal/app"
	"github.com/adverant/nexus/pdfocr-worker/internal/export"
)

var (
	convertFlags  requestFlags
	convertOutput string
)

var convertCmd = &cobra.Command{
	Use:   "convert <file.pdf>",
	Short: "Convert a PDF in-process",
	Long: `Convert a PDF to text (.txt) or tables (.xlsx). Use an output path ending
in .json to write the full artifact including statistics and page errors.`,
	Args: cobra.ExactArgs(1),
	RunE: runConvert,
}

func init() {
	convertFlags.register(convertCmd)
	convertCmd.Flags().StringVarP(&convertOutput, "out", "o", "", "output path (default <output_dir>/<name>.txt or .xlsx)")
	rootCmd.AddCommand(convertCmd)
}

func runConvert(cmd *cobra.Command, args []string) error {
	opts, err := convertFlags.options(cmd)
	if err != nil {
		return err
	}

	stack, err := app.Build(cfg)
	if err != nil {
		return fmt.Errorf("initialize: %w", err)
	}
	defer stack.Close()

	artifact, err := stack.Orchestrator.ConvertFile(context.Background(), args[0], opts)
	if err != nil {
		return err
	}

	output := convertOutput
	if output == "" {
		output = filepath.Join(cfg.Processing.OutputDir, export.DefaultFilename(args[0], opts.Mode))
	}
	if err := export.Save(output, artifact); err != nil {
		return fmt.Errorf("write output: %w", err)
	}

	printSummary(cmd.OutOrStdout(), artifact, output)
	return nil
}
