// Package plugin implements the leaderboard host's plugin contract:
// a one-time Setup hook and a periodic Scrape hook that ingests EOD
// updates from a Slack channel.
package plugin

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/ohcnetwork/leaderboard-slack-plugin/internal/config"
	"github.com/ohcnetwork/leaderboard-slack-plugin/internal/domain"
	"github.com/ohcnetwork/leaderboard-slack-plugin/internal/service"
	"github.com/ohcnetwork/leaderboard-slack-plugin/internal/slack"
	"github.com/ohcnetwork/leaderboard-slack-plugin/internal/storage/postgres"
)

const (
	Name    = "leaderboard-slack-plugin"
	Version = "0.1.0"

	// Required keys in the host-supplied plugin config map.
	configKeyChannel = "slackChannel"
	configKeyToken   = "slackApiToken"
)

// Context is what the host supplies to each lifecycle hook.
type Context struct {
	DB     *sqlx.DB
	Config map[string]string
	Org    config.OrgConfig
	Logger *slog.Logger
}

// Options tunes plugin behavior beyond the host config map.
type Options struct {
	PageSize     int
	Timeout      time.Duration
	Retry        config.RetryConfig
	LookbackDays int
	Publisher    service.Publisher
}

// Plugin ingests Slack EOD updates into leaderboard activities.
type Plugin struct {
	opts Options
}

func New(opts Options) *Plugin {
	if opts.LookbackDays == 0 {
		opts.LookbackDays = 1
	}
	return &Plugin{opts: opts}
}

// Setup registers the EOD activity definition, creates the staging
// schema and validates the Slack token. Runs once before the first
// scrape and is idempotent.
func (p *Plugin) Setup(ctx context.Context, pctx *Context) error {
	pctx.Logger.Info("setting up plugin", "plugin", Name, "version", Version)

	client, err := p.newSlackClient(pctx)
	if err != nil {
		return err
	}
	if err := client.AuthTest(ctx); err != nil {
		return fmt.Errorf("validate slack token: %w", err)
	}

	activities := postgres.NewActivityStore(pctx.DB)
	err = activities.InsertDefinitionIgnore(ctx, &domain.ActivityDefinition{
		Slug:        service.ActivityDefinitionSlug,
		Name:        "EOD Update",
		Description: "EOD Update",
		Points:      2,
		Icon:        "message-square",
	})
	if err != nil {
		return fmt.Errorf("register activity definition: %w", err)
	}

	if err := postgres.NewStagingStore(pctx.DB).CreateSchema(ctx); err != nil {
		return fmt.Errorf("create staging schema: %w", err)
	}

	pctx.Logger.Info("setup complete")
	return nil
}

// Scrape fetches the channel's recent history into the staging store
// and reconciles everything staged into activities.
func (p *Plugin) Scrape(ctx context.Context, pctx *Context) (*domain.ScrapeStats, error) {
	pctx.Logger.Info("starting scrape", "plugin", Name)

	client, err := p.newSlackClient(pctx)
	if err != nil {
		return nil, err
	}

	staging := postgres.NewStagingStore(pctx.DB)

	since := time.Now().AddDate(0, 0, -p.opts.LookbackDays)
	fetcher := service.NewFetcher(client, staging, pctx.Logger)
	staged, err := fetcher.Fetch(ctx, &since)
	if err != nil {
		return nil, fmt.Errorf("fetch slack messages: %w", err)
	}

	reconciler := service.NewReconciler(
		staging,
		postgres.NewContributorStore(pctx.DB),
		postgres.NewActivityStore(pctx.DB),
		p.opts.Publisher,
		pctx.Logger,
	)
	stats, err := reconciler.Reconcile(ctx)
	if err != nil {
		return nil, fmt.Errorf("reconcile staged messages: %w", err)
	}
	stats.Staged = staged

	pctx.Logger.Info("scrape complete", "staged", stats.Staged, "activities", stats.Activities)
	return stats, nil
}

// newSlackClient constructs the API client from the host config map.
// The client is built explicitly per hook invocation rather than cached
// in process-global state; a missing channel or token fails here, before
// any network call.
func (p *Plugin) newSlackClient(pctx *Context) (*slack.Client, error) {
	return slack.New(slack.Config{
		Channel:        pctx.Config[configKeyChannel],
		Token:          pctx.Config[configKeyToken],
		PageSize:       p.opts.PageSize,
		Timeout:        p.opts.Timeout,
		MaxAttempts:    p.opts.Retry.MaxAttempts,
		InitialBackoff: p.opts.Retry.InitialBackoff,
		MaxBackoff:     p.opts.Retry.MaxBackoff,
	}, pctx.Logger)
}

// Runner binds a plugin to a host context so a scheduler can drive it.
type Runner struct {
	plugin *Plugin
	pctx   *Context
}

func NewRunner(p *Plugin, pctx *Context) *Runner {
	return &Runner{plugin: p, pctx: pctx}
}

func (r *Runner) Scrape(ctx context.Context) (*domain.ScrapeStats, error) {
	return r.plugin.Scrape(ctx, r.pctx)
}
