package main

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/mamamialezatoz/go-pmaudit/internal/api"
	"github.com/mamamialezatoz/go-pmaudit/internal/config"
	"github.com/mamamialezatoz/go-pmaudit/internal/logger"
	"github.com/mamamialezatoz/go-pmaudit/pkg/audit"
)

type analyzeOptions struct {
	json       bool
	option     string
	scores     bool
	output     string
	noColor    bool
	silent     bool
	requestLog bool
}

func newAnalyzeCommand() *cobra.Command {
	opts := &analyzeOptions{}

	cmd := &cobra.Command{
		Use:   "analyze <url>",
		Short: "Audit a single page",
		Long: `Fetch a page and list which delayed scripts of the detected plugins and
themes should be excluded from delay.

Example:
  pmaudit analyze https://example.com/
  pmaudit analyze https://example.com/ --option nocache --scores --json`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runAnalyze(cmd, args[0], opts)
		},
	}

	cmd.Flags().BoolVar(&opts.json, "json", false, "Output in JSON format")
	cmd.Flags().StringVar(&opts.option, "option", string(audit.VariantDefault),
		"Request variant: default, perfmattersoff or nocache")
	cmd.Flags().BoolVar(&opts.scores, "scores", false, "Also fetch PageSpeed Insights and CrUX scores")
	cmd.Flags().StringVarP(&opts.output, "output", "o", "", "Output file path")
	cmd.Flags().BoolVar(&opts.noColor, "no-color", false, "Disable colored output")
	cmd.Flags().BoolVar(&opts.silent, "silent", false, "Don't display any output")
	cmd.Flags().BoolVar(&opts.requestLog, "request-log", false, "Write a request log file like the API does")
	return cmd
}

// applyAnalyzeConfig adapts the service configuration to a one-shot CLI run.
// Logs go to stderr so stdout stays free for the report, and request log
// files are only written on request.
func applyAnalyzeConfig(cfg *config.Config, opts *analyzeOptions) {
	cfg.Logger.OutputPaths = []string{"stderr"}
	cfg.Logger.Format = logger.FormatConsole
	if !debug {
		cfg.Logger.Level = "warn"
	}
	cfg.RequestLog.Enabled = opts.requestLog
}

func runAnalyze(cmd *cobra.Command, target string, opts *analyzeOptions) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	applyAnalyzeConfig(cfg, opts)
	log, err := logger.New(cfg.Logger)
	if err != nil {
		return fmt.Errorf("failed to create logger: %w", err)
	}
	defer func() { _ = log.Sync() }()

	d, err := newDeps(cmd.Context(), cfg, log, nil)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if !opts.silent && !opts.json && opts.output == "" {
		fmt.Fprintf(out, "Analyzing %s...\n", target)
	}

	result, err := d.auditor.AnalyzeURL(cmd.Context(), target, audit.AnalyzeOptions{
		Variant: audit.Variant(opts.option),
		Scores:  opts.scores,
	})
	if err != nil {
		return err
	}

	var report []byte
	if opts.json {
		report, err = json.MarshalIndent(api.NewAnalyzeResponse(result), "", "  ")
		if err != nil {
			return fmt.Errorf("error formatting JSON output: %w", err)
		}
		report = append(report, '\n')
	} else {
		var b strings.Builder
		useColors := !opts.noColor && opts.output == ""
		renderReport(&b, result, useColors)
		report = []byte(b.String())
	}

	if opts.output != "" {
		if err := os.WriteFile(opts.output, report, 0o644); err != nil {
			return fmt.Errorf("error writing output to file: %w", err)
		}
		if !opts.silent {
			fmt.Fprintf(out, "Results written to %s\n", opts.output)
		}
		return nil
	}
	if !opts.silent {
		_, err = out.Write(report)
	}
	return err
}
