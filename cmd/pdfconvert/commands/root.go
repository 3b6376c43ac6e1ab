package commands

import (
	"io"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/adverant/nexus/pdfocr-worker/internal/config"
	"github.com/adverant/nexus/pdfocr-worker/internal/logging"
)

var (
	cfgFile string
	verbose bool

	cfg       *config.Config
	logCloser io.Closer
)

var rootCmd = &cobra.Command{
	Use:   "pdfconvert",
	Short: "Convert scanned PDFs to text or spreadsheets",
	Long: `pdfconvert runs OCR over the pages of a PDF and writes either the page text
or the detected tables (one spreadsheet sheet per table). Conversions can run
in-process or be submitted to the worker queue.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		_ = godotenv.Load()

		path := cfgFile
		if path == "" {
			path = configFileFromEnv()
		}
		loaded, err := config.LoadConfigFrom(path)
		if err != nil {
			return err
		}
		if verbose {
			loaded.Logging.Level = "debug"
		}

		closer, err := logging.Configure(loaded.LoggingOptions())
		if err != nil {
			return err
		}
		cfg = loaded
		logCloser = closer
		return nil
	},
	PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
		if logCloser != nil {
			return logCloser.Close()
		}
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "", "config file path (YAML or JSON)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}
