package commands

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/hibiken/asynq"
	"github.com/spf13/cobra"

	"github.com/adverant/nexus/pdfocr-worker/internal/export"
	"github.com/adverant/nexus/pdfocr-worker/internal/model"
	"github.com/adverant/nexus/pdfocr-worker/internal/queue"
)

var (
	submitFlags  requestFlags
	submitWait   time.Duration
	submitOutput string
)

var submitCmd = &cobra.Command{
	Use:   "submit <file.pdf>",
	Short: "Submit a PDF to the worker queue",
	Long: `Submit a PDF as a pdf:convert task. With --wait the command polls until the
worker finishes and writes the artifact like convert does.`,
	Args: cobra.ExactArgs(1),
	RunE: runSubmit,
}

func init() {
	submitFlags.register(submitCmd)
	submitCmd.Flags().DurationVar(&submitWait, "wait", 0, "wait up to this long for the result (0 returns immediately)")
	submitCmd.Flags().StringVarP(&submitOutput, "out", "o", "", "output path used with --wait")
	rootCmd.AddCommand(submitCmd)
}

func runSubmit(cmd *cobra.Command, args []string) error {
	opts, err := submitFlags.options(cmd)
	if err != nil {
		return err
	}

	data, err := os.ReadFile(args[0])
	if err != nil {
		return fmt.Errorf("read %s: %w", args[0], err)
	}
	if int64(len(data)) > opts.MaxFileSizeBytes() {
		return fmt.Errorf("%s is %d bytes, limit is %d", args[0], len(data), opts.MaxFileSizeBytes())
	}

	producer, err := queue.NewProducer(&queue.ProducerConfig{
		RedisURL:  cfg.Queue.RedisURL,
		QueueName: cfg.Queue.Name,
		Retention: cfg.Queue.Retention,
		MaxRetry:  cfg.Queue.MaxRetry,
	})
	if err != nil {
		return err
	}
	defer producer.Close()

	ctx := context.Background()
	info, err := producer.Enqueue(ctx, &queue.ConvertPayload{
		Filename:   filepath.Base(args[0]),
		FileBuffer: data,
		Options:    overridesFrom(opts),
	})
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Submitted job %s to queue %s\n", info.ID, info.Queue)

	if submitWait <= 0 {
		return nil
	}

	artifact, err := waitForResult(ctx, producer, info.ID, submitWait)
	if err != nil {
		return err
	}

	output := submitOutput
	if output == "" {
		output = filepath.Join(cfg.Processing.OutputDir, export.DefaultFilename(args[0], opts.Mode))
	}
	if err := export.Save(output, artifact); err != nil {
		return fmt.Errorf("write output: %w", err)
	}
	printSummary(cmd.OutOrStdout(), artifact, output)
	return nil
}

func overridesFrom(opts model.Options) *queue.OptionOverrides {
	timeout := opts.Timeout.Milliseconds()
	o := &queue.OptionOverrides{
		Language:   &opts.Language,
		Threshold:  &opts.Threshold,
		Mode:       string(opts.Mode),
		MaxWorkers: &opts.MaxWorkers,
		DPI:        &opts.DPI,
		TimeoutMs:  &timeout,
	}
	for i, p := range opts.Pages {
		if i > 0 {
			o.Pages += ","
		}
		o.Pages += fmt.Sprint(p)
	}
	return o
}

func waitForResult(ctx context.Context, producer *queue.Producer, id string, wait time.Duration) (*model.Artifact, error) {
	deadline := time.Now().Add(wait)
	ticker := time.NewTicker(time.Second)
	defer ticker.Stop()

	for {
		info, err := producer.Lookup(id)
		if err != nil {
			return nil, err
		}
		switch info.State {
		case asynq.TaskStateCompleted:
			var artifact model.Artifact
			if err := json.Unmarshal(info.Result, &artifact); err != nil {
				return nil, fmt.Errorf("decode result: %w", err)
			}
			return &artifact, nil
		case asynq.TaskStateArchived:
			return nil, fmt.Errorf("job %s failed: %s", id, info.LastErr)
		}

		if time.Now().After(deadline) {
			return nil, fmt.Errorf("job %s still %s after %s", id, info.State, wait)
		}
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-ticker.C:
		}
	}
}
