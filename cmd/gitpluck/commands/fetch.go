package commands

import (
	"context"
	"strings"
	"sync"

	"github.com/pterm/pterm"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"gitlab.com/tozd/go/errors"

	"github.com/gitpluck/gitpluck/pkg/config"
	"github.com/gitpluck/gitpluck/pkg/fetch"
	"github.com/gitpluck/gitpluck/pkg/log"
	"github.com/gitpluck/gitpluck/pkg/operation"
	"github.com/gitpluck/gitpluck/pkg/progress"
	"github.com/gitpluck/gitpluck/pkg/remote/github"
)

// parseRepo splits "owner/name[@ref]" into its parts
func parseRepo(s string) (owner, name, ref string, err error) {
	if at := strings.Index(s, "@"); at >= 0 {
		ref = s[at+1:]
		s = s[:at]
	}
	parts := strings.Split(s, "/")
	if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
		return "", "", "", errors.Errorf("invalid repository format %q, want owner/name", s)
	}
	return parts[0], parts[1], ref, nil
}

// NewFetchCmd creates the fetch command
func NewFetchCmd() *cobra.Command {
	var (
		configFile  string
		repoArg     string
		pathArg     string
		destination string
		concurrency int
		maxAttempts int
		ignore      []string
		quiet       bool
	)

	cmd := &cobra.Command{
		Use:   "fetch",
		Short: "Fetch a repository subdirectory to local disk",
		Long: `Fetch downloads every file under one subdirectory of a remote
repository, without cloning the rest of it. Files that fail after
retries are reported at the end; the ones that succeeded stay on disk.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			ctx = zerolog.Ctx(ctx).With().Str("command", "fetch").Logger().WithContext(ctx)

			cfg, err := buildConfig(ctx, configFile, repoArg, pathArg, destination, concurrency, maxAttempts, ignore)
			if err != nil {
				return err
			}

			client, err := github.New(ctx)
			if err != nil {
				return errors.Errorf("creating github client: %w", err)
			}

			console := log.New(cmd.OutOrStdout(), zerolog.InfoLevel)
			console.StartDownload(log.DownloadOperation{
				Repo:        cfg.RepoRef().String(),
				Path:        cfg.Repository.Path,
				Destination: cfg.Destination,
			})

			var (
				barMu sync.Mutex
				bar   *pterm.ProgressbarPrinter
			)
			onProgress := progress.Observer(func(snap progress.Snapshot) {
				if quiet {
					return
				}
				barMu.Lock()
				defer barMu.Unlock()
				if bar == nil {
					bar, _ = pterm.DefaultProgressbar.
						WithTotal(snap.Total).
						WithTitle("downloading").
						Start()
				}
				bar.Increment()
			})

			summary, err := operation.Download(ctx, operation.Options{
				Config:     cfg,
				Client:     client,
				OnProgress: onProgress,
				OnResult: func(res fetch.Result) {
					op := log.FileOperation{Path: res.Task.RelativePath, Status: "downloaded", Bytes: res.Bytes}
					if res.Err != nil {
						op.Status = "failed"
						op.Failed = true
						op.Reason = string(res.Kind)
					}
					console.LogFileOperation(op)
				},
			})

			barMu.Lock()
			if bar != nil {
				bar.Stop()
			}
			barMu.Unlock()

			if summary != nil {
				console.EndDownload(summary.Succeeded, len(summary.Failed))
			}
			if err != nil {
				return errors.Errorf("fetching %s: %w", cfg, err)
			}

			console.Successf("downloaded %d file(s) to %s", summary.Succeeded, cfg.Destination)
			return nil
		},
	}

	cmd.Flags().StringVarP(&configFile, "config", "c", "", "config file path (.yaml or .hcl)")
	cmd.Flags().StringVarP(&repoArg, "repo", "r", "", "repository as owner/name[@ref]")
	cmd.Flags().StringVarP(&pathArg, "path", "p", "", "target path within the repository (empty for root)")
	cmd.Flags().StringVarP(&destination, "dest", "o", "", "destination directory (defaults to the target path's base name)")
	cmd.Flags().IntVarP(&concurrency, "concurrency", "n", 0, "max concurrent downloads")
	cmd.Flags().IntVar(&maxAttempts, "max-attempts", 0, "attempts per file before giving up")
	cmd.Flags().StringSliceVar(&ignore, "ignore", nil, "glob patterns of files to skip")
	cmd.Flags().BoolVarP(&quiet, "quiet", "q", false, "suppress the progress bar")

	return cmd
}

// buildConfig merges the optional config file with command-line flags;
// flags win where both are set
func buildConfig(ctx context.Context, configFile, repoArg, pathArg, destination string, concurrency, maxAttempts int, ignore []string) (*config.Config, error) {
	cfg := &config.Config{}

	if configFile != "" {
		loaded, err := config.Load(ctx, configFile)
		if err != nil {
			return nil, errors.Errorf("loading config: %w", err)
		}
		cfg = loaded
	}

	if repoArg != "" {
		owner, name, ref, err := parseRepo(repoArg)
		if err != nil {
			return nil, err
		}
		cfg.Repository.Owner = owner
		cfg.Repository.Name = name
		if ref != "" {
			cfg.Repository.Ref = ref
		}
	}
	if pathArg != "" {
		cfg.Repository.Path = pathArg
	}
	if destination != "" {
		cfg.Destination = destination
	}
	if concurrency != 0 {
		cfg.Concurrency = concurrency
	}
	if maxAttempts != 0 {
		cfg.MaxAttempts = maxAttempts
	}
	if len(ignore) > 0 {
		cfg.IgnorePatterns = append(cfg.IgnorePatterns, ignore...)
	}

	if err := cfg.Validate(); err != nil {
		return nil, errors.Errorf("validating config: %w", err)
	}

	return cfg, nil
}
