package commands

import (
	"fmt"
	"slices"

	"github.com/spf13/cobra"

	"github.com/adverant/nexus/pdfocr-worker/internal/ocr"
)

var languagesCmd = &cobra.Command{
	Use:   "languages",
	Short: "List installed OCR languages",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		backend, err := ocr.NewTesseractBackend(&ocr.TesseractConfig{
			TessdataPath: cfg.OCR.TesseractPath,
			PageSegMode:  cfg.OCR.PageSegMode,
			DPI:          cfg.OCR.DPI,
		})
		if err != nil {
			return err
		}

		installed, err := backend.Languages()
		if err != nil {
			return fmt.Errorf("list languages: %w", err)
		}
		slices.Sort(installed)

		out := cmd.OutOrStdout()
		for _, lang := range installed {
			marker := " "
			if slices.Contains(cfg.OCR.SupportedLanguages, lang) {
				marker = "*"
			}
			fmt.Fprintf(out, "%s %-10s table code: %s\n", marker, lang, ocr.TableLanguage(lang))
		}
		fmt.Fprintln(out, "* enabled in configuration")
		return nil
	},
}

func init() {
	rootCmd.AddCommand(languagesCmd)
}
