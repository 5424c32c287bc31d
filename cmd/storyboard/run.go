package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/maauso/newsvideo-api/internal/bootstrap"
	"github.com/maauso/newsvideo-api/internal/config"
	"github.com/maauso/newsvideo-api/internal/storyboard"
)

var errRunFailed = errors.New("storyboard: run failed")

type runOptions struct {
	file      string
	preset    string
	outputDir string
}

func newRunCmd() *cobra.Command {
	opts := &runOptions{}

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run a storyboard file through the pipeline",
		Example: `  storyboard run --file storyboard.json
  storyboard run --file storyboard.json --preset full --output ./out`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return runStoryboard(ctx, cmd, opts)
		},
	}

	cmd.Flags().StringVarP(&opts.file, "file", "f", "", "storyboard JSON file (required)")
	cmd.Flags().StringVarP(&opts.preset, "preset", "p", "", "layout preset (overrides LAYOUT_PRESET)")
	cmd.Flags().StringVarP(&opts.outputDir, "output", "o", "", "output directory (overrides OUTPUT_DIR)")
	_ = cmd.MarkFlagRequired("file")

	return cmd
}

func runStoryboard(ctx context.Context, cmd *cobra.Command, opts *runOptions) error {
	sb, err := readStoryboard(opts.file)
	if err != nil {
		return err
	}

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if opts.preset != "" {
		cfg.LayoutPreset = opts.preset
	}
	if opts.outputDir != "" {
		cfg.OutputDir = opts.outputDir
	}

	logger := cfg.NewLogger()
	slog.SetDefault(logger)

	deps, err := bootstrap.NewDependencies(ctx, cfg, logger)
	if err != nil {
		return fmt.Errorf("initialize dependencies: %w", err)
	}
	defer func() {
		if err := deps.Close(); err != nil {
			logger.Warn("failed to close dependencies", slog.String("error", err.Error()))
		}
	}()

	logger.Info("running storyboard",
		slog.String("file", opts.file),
		slog.String("title", sb.Title),
		slog.Int("scenes", len(sb.Scenes)),
		slog.String("layout_preset", deps.Preset.Name),
	)

	res, err := deps.VideoService.Generate(ctx, sb)
	if err != nil {
		return err
	}
	if res.FinalVideoPath != "" {
		logger.Info("final video written", slog.String("path", res.FinalVideoPath))
	}

	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	if err := enc.Encode(res); err != nil {
		return fmt.Errorf("write result: %w", err)
	}

	if !res.Succeeded() {
		return fmt.Errorf("%w: %s", errRunFailed, res.ErrorMessage)
	}
	return nil
}

func readStoryboard(path string) (storyboard.Storyboard, error) {
	f, err := os.Open(path) // #nosec G304 - path is a CLI argument
	if err != nil {
		return storyboard.Storyboard{}, fmt.Errorf("open storyboard: %w", err)
	}
	defer func() { _ = f.Close() }()

	sb, err := storyboard.Decode(f)
	if err != nil {
		return storyboard.Storyboard{}, fmt.Errorf("read %s: %w", path, err)
	}
	return sb, nil
}
