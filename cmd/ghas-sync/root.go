package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"

	"github.com/nickhealDD/ghas-jira-sync/common/id"
	"github.com/nickhealDD/ghas-jira-sync/common/logger"
	"github.com/nickhealDD/ghas-jira-sync/common/otel"
	"github.com/nickhealDD/ghas-jira-sync/core/config"
	"github.com/nickhealDD/ghas-jira-sync/internal/model"
	"github.com/nickhealDD/ghas-jira-sync/internal/runlock"
	"github.com/nickhealDD/ghas-jira-sync/internal/service"
)

var version = "1.0.0"

// errSyncFailed is returned after the summary was printed; main only sets
// the exit status for it.
var errSyncFailed = errors.New("sync finished with errors")

type syncFlags struct {
	owner   string
	repo    string
	epic    string
	project string
	dryRun  bool
	debug   bool
}

func newRootCmd() *cobra.Command {
	var flags syncFlags

	cmd := &cobra.Command{
		Use:   "ghas-sync",
		Short: "Sync GitHub Advanced Security alerts into Jira tickets",
		Long: `ghas-sync reads open code scanning, Dependabot and secret scanning alerts
for one repository and files a Jira task under an epic for every alert that
does not have one yet. Existing tickets are found by label, so repeated runs
are safe.

Inside a GitHub Action, inputs (INPUT_*) and GITHUB_REPOSITORY are honored.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			overrides := config.Overrides{
				Owner:   flags.owner,
				Repo:    flags.repo,
				Epic:    flags.epic,
				Project: flags.project,
				Debug:   flags.debug,
			}
			if cmd.Flags().Changed("dry-run") {
				overrides.DryRun = &flags.dryRun
			}
			return runSync(cmd.Context(), cmd.OutOrStdout(), overrides)
		},
	}

	cmd.Flags().StringVar(&flags.owner, "owner", "", "GitHub repository owner")
	cmd.Flags().StringVar(&flags.repo, "repo", "", "GitHub repository name")
	cmd.Flags().StringVar(&flags.epic, "epic", "", "Jira epic key new tickets are filed under")
	cmd.Flags().StringVar(&flags.project, "project", "", "Jira project key")
	cmd.Flags().BoolVar(&flags.dryRun, "dry-run", false, "Report what would be created without writing to Jira")
	cmd.PersistentFlags().BoolVar(&flags.debug, "debug", false, "Enable debug logging")

	cmd.AddCommand(&cobra.Command{
		Use:   "version",
		Short: "Print the version",
		Run: func(cmd *cobra.Command, _ []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "ghas-sync %s\n", version)
		},
	})

	return cmd
}

func runSync(ctx context.Context, out io.Writer, overrides config.Overrides) error {
	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load(config.ServiceTypeCLI, overrides)
	if err != nil {
		return err
	}

	telemetry, err := otel.Setup(ctx, cfg.OTel)
	if err != nil {
		return fmt.Errorf("initializing otel: %w", err)
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
		defer cancel()
		if err := telemetry.Shutdown(shutdownCtx); err != nil {
			slog.ErrorContext(shutdownCtx, "otel shutdown error", "error", err)
		}
	}()

	logger.Setup(cfg)

	if err := id.Init(3); err != nil {
		return fmt.Errorf("initializing id generator: %w", err)
	}

	locker, closeLocker, err := newLocker(ctx, cfg.Redis)
	if err != nil {
		return err
	}
	defer closeLocker()

	syncer, err := service.NewSyncerFromConfig(cfg, locker)
	if err != nil {
		return err
	}

	params := service.ParamsFromConfig(cfg)
	slog.InfoContext(ctx, "starting ghas sync",
		"repository", params.Repository.String(),
		"project", params.ProjectKey,
		"epic", params.EpicKey,
		"dry_run", params.DryRun,
		"github_action", config.IsGitHubAction())

	result, err := syncer.Sync(ctx, params)
	if err != nil {
		if errors.Is(err, runlock.ErrLocked) {
			slog.WarnContext(ctx, "another sync for this repository is running, skipping")
		}
		return err
	}

	printSummary(out, result, params.DryRun)
	if result.Failed() {
		return errSyncFailed
	}
	return nil
}

func newLocker(ctx context.Context, cfg config.RedisConfig) (runlock.Locker, func(), error) {
	if !cfg.Enabled() {
		return runlock.NewNoopLocker(), func() {}, nil
	}

	opts, err := redis.ParseURL(cfg.URL)
	if err != nil {
		return nil, nil, fmt.Errorf("parsing redis url: %w", err)
	}
	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, nil, fmt.Errorf("connecting to redis: %w", err)
	}

	return runlock.NewRedisLocker(client, cfg.LockTTL), func() { _ = client.Close() }, nil
}

func printSummary(out io.Writer, result *model.SyncResult, dryRun bool) {
	fmt.Fprintln(out)
	if dryRun {
		fmt.Fprintln(out, "--- Sync Summary (dry run) ---")
	} else {
		fmt.Fprintln(out, "--- Sync Summary ---")
	}
	fmt.Fprintf(out, "Total alerts: %d\n", result.TotalAlerts)
	for _, category := range model.Categories() {
		fmt.Fprintf(out, "  - %s: %d\n", category, result.ByCategory[category])
	}
	fmt.Fprintf(out, "New tickets created: %d\n", result.NewTickets)
	fmt.Fprintf(out, "Existing tickets found: %d\n", result.ExistingTickets)
	fmt.Fprintf(out, "Errors: %d\n", result.Errors)
}
