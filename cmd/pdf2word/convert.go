package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/visionocr/pdf2word/internal/config"
	"github.com/visionocr/pdf2word/internal/ocr"
	"github.com/visionocr/pdf2word/internal/pipeline"
	"github.com/visionocr/pdf2word/internal/render"
	"github.com/visionocr/pdf2word/internal/tracker"
)

func convertCmd() *cobra.Command {
	var out string
	var model string
	var provider string
	var mode string
	var source string
	var dpi int
	var workers int
	var timeoutSec int
	var retries int
	var failFast bool
	var pollMs int
	var verbose bool

	cmd := &cobra.Command{
		Use:   "convert <pdf|image|dir> [more inputs...]",
		Short: "Recognise inputs with the vision model and emit Word (or Excel) output",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := config.Load()
			applyFlagOverrides(cmd, &cfg, model, provider, source, dpi, workers, timeoutSec, retries, pollMs)

			logger := logrus.New()
			if verbose {
				logger.SetLevel(logrus.DebugLevel)
			}

			pdfs, images, err := collectInputs(args)
			if err != nil {
				return err
			}
			if len(pdfs) == 0 && len(images) == 0 {
				return fmt.Errorf("no PDF or image inputs found")
			}

			rec, err := buildRecognizer(cmd.Context(), cfg, ocr.Mode(mode), logger)
			if err != nil {
				return err
			}

			reg := tracker.NewRegistry(0, logger)
			reg.StartSweeper(cmd.Context(), time.Minute)
			pipe := pipeline.New(rec, reg, logger, pipeline.Options{
				OutDir:   out,
				Mode:     ocr.Mode(mode),
				Source:   render.SourceMode(cfg.Source),
				DPI:      cfg.DPI,
				Workers:  cfg.Workers,
				FailFast: failFast,
			})

			var summaries []pipeline.Summary
			for _, pdf := range pdfs {
				s, err := runWithProgress(cmd.Context(), reg, cfg.PollInterval, logger, func(ctx context.Context) (pipeline.Summary, error) {
					return pipe.ConvertPDF(ctx, pdf)
				})
				if err != nil {
					logger.WithField("source", pdf).WithError(err).Error("job failed")
				}
				summaries = append(summaries, s)
			}
			if len(images) > 0 {
				batch := batchName(images)
				s, err := runWithProgress(cmd.Context(), reg, cfg.PollInterval, logger, func(ctx context.Context) (pipeline.Summary, error) {
					return pipe.ConvertImages(ctx, images, batch)
				})
				if err != nil {
					logger.WithField("source", batch).WithError(err).Error("job failed")
				}
				summaries = append(summaries, s)
			}

			b, _ := json.MarshalIndent(summaries, "", "  ")
			fmt.Fprintln(cmd.OutOrStdout(), string(b))
			return nil
		},
	}

	cmd.Flags().StringVarP(&out, "out", "o", "output", "output root directory")
	cmd.Flags().StringVar(&model, "model", "", "vision model identifier (default from ARK_MODEL)")
	cmd.Flags().StringVar(&provider, "provider", "", "recognition provider: ark|gemini (default from ARK_PROVIDER)")
	cmd.Flags().StringVar(&mode, "mode", "text", "extraction mode: text (Word output) | table (Excel output)")
	cmd.Flags().StringVar(&source, "source", "", "PDF image source: embedded|page|both (default from ARK_SOURCE)")
	cmd.Flags().IntVar(&dpi, "dpi", 0, "full-page rendering DPI (default from ARK_DPI)")
	cmd.Flags().IntVar(&workers, "workers", 0, "concurrent recognition requests per job (default from ARK_WORKERS)")
	cmd.Flags().IntVar(&timeoutSec, "timeout", 0, "per-attempt request timeout in seconds (default from ARK_TIMEOUT)")
	cmd.Flags().IntVar(&retries, "retries", -1, "retry count per page (default from ARK_RETRIES)")
	cmd.Flags().BoolVar(&failFast, "fail-fast", false, "abort the whole job on the first permanently failed page")
	cmd.Flags().IntVar(&pollMs, "poll", 0, "progress poll interval in milliseconds (default from ARK_POLL_MS)")
	cmd.Flags().BoolVarP(&verbose, "verbose", "v", false, "debug logging")
	return cmd
}

func applyFlagOverrides(cmd *cobra.Command, cfg *config.Config, model, provider, source string, dpi, workers, timeoutSec, retries, pollMs int) {
	if model != "" {
		cfg.Model = model
	}
	if provider != "" {
		cfg.Provider = provider
	}
	if source != "" {
		cfg.Source = source
	}
	if dpi > 0 {
		cfg.DPI = dpi
	}
	if workers > 0 {
		cfg.Workers = workers
	}
	if timeoutSec > 0 {
		cfg.Timeout = time.Duration(timeoutSec) * time.Second
	}
	if retries >= 0 && cmd.Flags().Changed("retries") {
		cfg.Retries = retries
	}
	if pollMs > 0 {
		cfg.PollInterval = time.Duration(pollMs) * time.Millisecond
	}
}

func buildRecognizer(ctx context.Context, cfg config.Config, mode ocr.Mode, logger *logrus.Logger) (ocr.Recognizer, error) {
	switch strings.ToLower(cfg.Provider) {
	case "", "ark":
		return ocr.NewArk(ocr.ArkConfig{
			APIKey:  cfg.APIKey,
			BaseURL: cfg.BaseURL,
			Model:   cfg.Model,
			Mode:    mode,
			Timeout: cfg.Timeout,
			Retries: cfg.Retries,
			Logger:  logger,
		})
	case "noop":
		// Dry run: exercises rendering and assembly without model calls.
		return ocr.Noop{}, nil
	case "gemini":
		model := cfg.Model
		if model == config.DefaultModel {
			// The ark default model makes no sense for gemini.
			model = ""
		}
		return ocr.NewGemini(ctx, ocr.GeminiConfig{
			APIKey:  cfg.GoogleAPIKey,
			Model:   model,
			Mode:    mode,
			Timeout: cfg.Timeout,
			Retries: cfg.Retries,
			Logger:  logger,
		})
	}
	return nil, fmt.Errorf("unknown provider %q (want ark, gemini or noop)", cfg.Provider)
}

// runWithProgress polls the tracker at the configured interval while the
// job runs, logging progress the way a status endpoint would report it.
func runWithProgress(ctx context.Context, reg *tracker.Registry, poll time.Duration, logger *logrus.Logger, run func(context.Context) (pipeline.Summary, error)) (pipeline.Summary, error) {
	if poll <= 0 {
		poll = config.DefaultPoll
	}
	pollCtx, stop := context.WithCancel(ctx)
	defer stop()
	go func() {
		t := time.NewTicker(poll)
		defer t.Stop()
		for {
			select {
			case <-pollCtx.Done():
				return
			case <-t.C:
				for _, snap := range reg.Active() {
					logger.WithFields(logrus.Fields{
						"job":       snap.ID,
						"status":    snap.Status,
						"completed": snap.PagesCompleted,
						"total":     snap.PagesTotal,
					}).Info("progress")
				}
			}
		}
	}()
	s, err := run(ctx)
	// The summary carries the job id; flush one final status line.
	if snap, ok := reg.Get(s.JobID); ok {
		logger.WithFields(logrus.Fields{
			"job":       snap.ID,
			"status":    snap.Status,
			"completed": snap.PagesCompleted,
			"total":     snap.PagesTotal,
		}).Info("progress")
	}
	return s, err
}

// collectInputs splits the arguments into PDF sources (directories are
// scanned recursively, sorted) and image files (one batch per invocation).
func collectInputs(args []string) (pdfs, images []string, err error) {
	for _, a := range args {
		info, err := os.Stat(a)
		if err != nil {
			return nil, nil, fmt.Errorf("input %s: %w", a, err)
		}
		switch {
		case info.IsDir():
			found, err := findPDFs(a)
			if err != nil {
				return nil, nil, err
			}
			pdfs = append(pdfs, found...)
		case strings.EqualFold(filepath.Ext(a), ".pdf"):
			pdfs = append(pdfs, a)
		case render.IsImagePath(a):
			images = append(images, a)
		default:
			return nil, nil, fmt.Errorf("unsupported input type: %s", a)
		}
	}
	return pdfs, images, nil
}

func findPDFs(dir string) ([]string, error) {
	var out []string
	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() && strings.EqualFold(filepath.Ext(path), ".pdf") {
			out = append(out, path)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	sort.Strings(out)
	return out, nil
}

// batchName labels a multi-image job after its first file.
func batchName(images []string) string {
	first := strings.TrimSuffix(filepath.Base(images[0]), filepath.Ext(images[0]))
	if len(images) == 1 {
		return first
	}
	return fmt.Sprintf("%s-and-%d-more", first, len(images)-1)
}
