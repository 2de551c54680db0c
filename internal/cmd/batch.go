package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"runtime"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/MeKo-Tech/darkroom/internal/adjust"
	"github.com/MeKo-Tech/darkroom/internal/imageio"
	"github.com/MeKo-Tech/darkroom/internal/pipeline"
	"github.com/MeKo-Tech/darkroom/internal/worker"
)

var batchCmd = &cobra.Command{
	Use:   "batch <input>...",
	Short: "Apply the same adjustments to many images in parallel",
	Long: `Apply one set of adjustments to every input image and write the results into
--out-dir under the input's base name. Inputs may be glob patterns.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runBatch,
}

func init() {
	rootCmd.AddCommand(batchCmd)

	addAdjustmentFlags(batchCmd, "batch")
	batchCmd.Flags().StringP("out-dir", "o", "./out", "Directory for rendered images")
	batchCmd.Flags().String("format", "", "Output extension (e.g. png, jpg); defaults to the input's")
	batchCmd.Flags().IntP("workers", "w", 0, "Number of parallel workers (default: number of CPUs)")
	batchCmd.Flags().Bool("progress", true, "Show progress bar")
	batchCmd.Flags().Bool("allow-failures", false, "Exit zero even if some images fail")
	batchCmd.Flags().Bool("force", false, "Overwrite existing outputs")

	bindFlags := []struct {
		key  string
		flag string
	}{
		{"batch.out_dir", "out-dir"},
		{"batch.format", "format"},
		{"batch.workers", "workers"},
		{"batch.progress", "progress"},
		{"batch.allow_failures", "allow-failures"},
		{"batch.force", "force"},
	}
	for _, bf := range bindFlags {
		if err := viper.BindPFlag(bf.key, batchCmd.Flags().Lookup(bf.flag)); err != nil {
			panic(fmt.Sprintf("failed to bind flag %s: %v", bf.flag, err))
		}
	}
}

func runBatch(cmd *cobra.Command, args []string) error {
	if logger == nil {
		initLogging()
	}
	outDir := viper.GetString("batch.out_dir")
	format := viper.GetString("batch.format")
	workers := viper.GetInt("batch.workers")
	showProgress := viper.GetBool("batch.progress")
	allowFailures := viper.GetBool("batch.allow_failures")
	force := viper.GetBool("batch.force")

	if workers <= 0 {
		workers = runtime.NumCPU()
	}

	adj, err := resolveAdjustments(commandContext(cmd), cmd, "batch")
	if err != nil {
		return err
	}
	engine, err := newEngine("batch")
	if err != nil {
		return err
	}

	inputs, err := expandInputs(args)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(outDir, 0o755); err != nil {
		return fmt.Errorf("failed to create output dir: %w", err)
	}
	tasks, err := buildTasks(inputs, outDir, format)
	if err != nil {
		return err
	}

	logger.Info("Starting batch",
		"images", len(tasks),
		"workers", workers,
		"out_dir", outDir,
		"force", force,
	)

	ctx, cancel := context.WithCancel(commandContext(cmd))
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sigCh)
	go func() {
		select {
		case <-sigCh:
			logger.Info("Received interrupt signal, cancelling...")
			cancel()
		case <-ctx.Done():
		}
	}()

	progress := worker.NewProgress(len(tasks), showProgress)
	pool := worker.New(worker.Config{
		Workers:    workers,
		Renderer:   &fileRenderer{engine: engine, adj: adj, logger: logger, force: force},
		OnProgress: progress.Callback(),
	})

	results := pool.Run(ctx, tasks)
	progress.Done()

	var failedCount int
	for _, r := range results {
		if r.Err != nil {
			failedCount++
			logger.Error("Image failed", "input", r.Task.Input, "error", r.Err)
		}
	}
	logger.Info(progress.Summary())

	if failedCount > 0 {
		if allowFailures {
			logger.Warn("Some images failed, continuing due to --allow-failures flag", "failed_count", failedCount)
			return nil
		}
		return fmt.Errorf("%d images failed", failedCount)
	}
	return nil
}

// expandInputs resolves glob patterns; plain paths are kept as they are.
func expandInputs(args []string) ([]string, error) {
	var out []string
	seen := make(map[string]bool)
	for _, a := range args {
		matches, err := filepath.Glob(a)
		if err != nil {
			return nil, fmt.Errorf("invalid pattern %q: %w", a, err)
		}
		if len(matches) == 0 {
			matches = []string{a}
		}
		for _, m := range matches {
			if !seen[m] {
				seen[m] = true
				out = append(out, m)
			}
		}
	}
	return out, nil
}

// buildTasks maps every input to outDir under its base name. Two inputs that would
// write the same output file are rejected before anything renders.
func buildTasks(inputs []string, outDir, format string) ([]worker.Task, error) {
	tasks := make([]worker.Task, 0, len(inputs))
	claimed := make(map[string]string, len(inputs))
	for _, in := range inputs {
		name := filepath.Base(in)
		if format != "" {
			name = name[:len(name)-len(filepath.Ext(name))] + "." + format
		}
		out := filepath.Join(outDir, name)
		if prev, ok := claimed[out]; ok {
			return nil, fmt.Errorf("inputs %s and %s both write %s", prev, in, out)
		}
		claimed[out] = in
		tasks = append(tasks, worker.Task{Input: in, Output: out})
	}
	return tasks, nil
}

// fileRenderer loads, renders and saves one image per call.
type fileRenderer struct {
	engine *pipeline.Engine
	adj    adjust.Adjustments
	logger *slog.Logger
	force  bool
}

func (r *fileRenderer) log() *slog.Logger {
	if r.logger != nil {
		return r.logger
	}
	return slog.Default()
}

func (r *fileRenderer) RenderFile(ctx context.Context, input, output string) error {
	if !r.force {
		if _, err := os.Stat(output); err == nil {
			r.log().Info("Output already exists; skipping", "path", output)
			return nil
		}
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	img, err := imageio.Load(input)
	if err != nil {
		return err
	}
	out, err := r.engine.Render(img, r.adj, nil)
	if err != nil {
		return fmt.Errorf("failed to render %s: %w", input, err)
	}
	return imageio.Save(out, output)
}
