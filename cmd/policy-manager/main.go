// Command policy-manager inspects, validates and caches exclusion policy documents.
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/mamamialezatoz/go-pmaudit/internal/policy"
)

// Version information
const (
	Version    = "0.3.0"
	BuildDate  = "2026-10-15"
	CommitHash = "development"
)

type sourceFlags struct {
	url      string
	path     string
	cacheDir string
	cacheTTL int
	force    bool
}

func (f *sourceFlags) config() *policy.Config {
	cfg := policy.DefaultConfig()
	if f.cacheDir != "" {
		cfg.CacheDir = f.cacheDir
	}
	if f.cacheTTL >= 0 {
		cfg.CacheExpiry = time.Duration(f.cacheTTL) * time.Hour
	}
	cfg.URL = f.url
	cfg.Path = f.path
	cfg.ForceDownload = f.force
	return cfg
}

func main() {
	if err := newRootCommand().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func newRootCommand() *cobra.Command {
	flags := &sourceFlags{}

	root := &cobra.Command{
		Use:           "policy-manager",
		Short:         "Manage the exclusion policy table",
		SilenceUsage:  true,
		SilenceErrors: true,
		Version:       fmt.Sprintf("%s (build: %s, commit: %s)", Version, BuildDate, CommitHash),
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}

	pf := root.PersistentFlags()
	pf.StringVar(&flags.url, "url", "", "URL to download the policy from")
	pf.StringVar(&flags.path, "path", "", "Local policy file")
	pf.StringVar(&flags.cacheDir, "cache-dir", "", "Custom cache directory for the downloaded policy")
	pf.IntVar(&flags.cacheTTL, "cache-ttl", 24, "Cache TTL in hours (0 for no expiry)")
	pf.BoolVar(&flags.force, "force", false, "Force download even if cache is valid")

	root.AddCommand(
		&cobra.Command{
			Use:   "status",
			Short: "Show the policy cache and the policy currently in effect",
			RunE: func(cmd *cobra.Command, args []string) error {
				return showStatus(cmd.Context(), cmd.OutOrStdout(), flags.config())
			},
		},
		&cobra.Command{
			Use:   "validate <file>",
			Short: "Check that a policy document parses",
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				return validateFile(cmd.OutOrStdout(), args[0])
			},
		},
		&cobra.Command{
			Use:   "pull",
			Short: "Download the policy and store it in the cache",
			RunE: func(cmd *cobra.Command, args []string) error {
				return pull(cmd.Context(), cmd.OutOrStdout(), flags.config())
			},
		},
		&cobra.Command{
			Use:   "clear",
			Short: "Clear the policy cache",
			RunE: func(cmd *cobra.Command, args []string) error {
				cfg := flags.config()
				if err := policy.ClearCache(cfg); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Cache cleared: %s\n", cfg.CachePath())
				return nil
			},
		},
	)
	return root
}

func validateFile(w io.Writer, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read policy file: %w", err)
	}
	snap, err := policy.Parse(data)
	if err != nil {
		return fmt.Errorf("%s is not a valid policy: %w", path, err)
	}
	fmt.Fprintf(w, "%s is valid: version %q, %d owners, digest %s\n", path, snap.Version(), snap.Len(), snap.Digest())
	return nil
}

func pull(ctx context.Context, w io.Writer, cfg *policy.Config) error {
	if cfg.URL == "" {
		return errors.New("--url is required")
	}

	fmt.Fprintln(w, "Downloading policy...")
	snap, err := policy.Load(ctx, cfg)
	if err != nil {
		return fmt.Errorf("error downloading policy: %w", err)
	}
	fmt.Fprintf(w, "Policy version %q with %d owners cached successfully!\n", snap.Version(), snap.Len())
	return showStatus(ctx, w, cfg)
}

// showStatus displays the cache state and the policy that Load would serve
func showStatus(ctx context.Context, w io.Writer, cfg *policy.Config) error {
	fmt.Fprintf(w, "Cache directory: %s\n", cfg.CacheDir)
	fmt.Fprintf(w, "Cache expiry: %v\n", cfg.CacheExpiry)
	if cfg.URL != "" {
		fmt.Fprintf(w, "Download URL: %s\n", cfg.URL)
	}

	info := policy.Inspect(cfg)
	fmt.Fprintln(w, "\nCached policy:")
	if !info.Exists {
		fmt.Fprintln(w, "  Not found")
	} else {
		age := time.Since(info.ModTime)
		fmt.Fprintf(w, "  %.1f KB, modified %s ago", float64(info.Size)/1024.0, formatDuration(age))
		if cfg.CacheExpiry > 0 {
			if info.Expired {
				fmt.Fprint(w, " (EXPIRED)")
			} else {
				fmt.Fprintf(w, " (expires in %s)", formatDuration(cfg.CacheExpiry-age))
			}
		}
		fmt.Fprintln(w)
	}

	// Never download from status
	probe := *cfg
	probe.ForceDownload = false
	if cfg.URL != "" && (!info.Exists || info.Expired) {
		fmt.Fprintln(w, "\nActive policy: not cached, run pull")
		return nil
	}

	snap, err := policy.Load(ctx, &probe)
	if err != nil {
		return err
	}
	source := "built-in"
	switch {
	case cfg.URL != "":
		source = "cache"
	case cfg.Path != "":
		source = cfg.Path
	}
	fmt.Fprintf(w, "\nActive policy (%s): version %q, %d owners, digest %s\n", source, snap.Version(), snap.Len(), snap.Digest())
	return nil
}

// formatDuration formats a duration in a human-readable format
func formatDuration(d time.Duration) string {
	if d.Hours() > 48 {
		days := int(d.Hours() / 24)
		return fmt.Sprintf("%d days", days)
	}
	if d.Hours() >= 1 {
		return fmt.Sprintf("%.1f hours", d.Hours())
	}
	if d.Minutes() >= 1 {
		return fmt.Sprintf("%.1f minutes", d.Minutes())
	}
	return fmt.Sprintf("%.1f seconds", d.Seconds())
}
