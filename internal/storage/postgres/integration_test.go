//go:build integration

package postgres

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	"github.com/stretchr/testify/suite"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/ohcnetwork/leaderboard-slack-plugin/internal/domain"
	"github.com/ohcnetwork/leaderboard-slack-plugin/internal/service"
)

type PostgresIntegrationSuite struct {
	suite.Suite
	ctx       context.Context
	container *postgres.PostgresContainer
	db        *sqlx.DB
}

func (s *PostgresIntegrationSuite) SetupSuite() {
	s.ctx = context.Background()

	migrationsPath, err := filepath.Abs("../../../migrations")
	s.Require().NoError(err)

	container, err := postgres.Run(s.ctx,
		"postgres:16-alpine",
		postgres.WithDatabase("test_db"),
		postgres.WithUsername("test"),
		postgres.WithPassword("test"),
		postgres.WithInitScripts(
			filepath.Join(migrationsPath, "001_create_host_tables.up.sql"),
			filepath.Join(migrationsPath, "002_create_staging.up.sql"),
		),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(30*time.Second),
		),
	)
	s.Require().NoError(err)
	s.container = container

	connStr, err := container.ConnectionString(s.ctx, "sslmode=disable")
	s.Require().NoError(err)

	db, err := sqlx.Connect("postgres", connStr)
	s.Require().NoError(err)
	s.db = db
}

func (s *PostgresIntegrationSuite) TearDownSuite() {
	if s.db != nil {
		s.db.Close()
	}
	if s.container != nil {
		_ = s.container.Terminate(s.ctx)
	}
}

func (s *PostgresIntegrationSuite) SetupTest() {
	_, _ = s.db.ExecContext(s.ctx, "DELETE FROM slack_anonymous_eod_update")
	_, _ = s.db.ExecContext(s.ctx, "DELETE FROM activity")
	_, _ = s.db.ExecContext(s.ctx, "DELETE FROM activity_definition")
	_, _ = s.db.ExecContext(s.ctx, "DELETE FROM contributor")
}

func TestPostgresIntegrationSuite(t *testing.T) {
	suite.Run(t, new(PostgresIntegrationSuite))
}

func (s *PostgresIntegrationSuite) insertContributor(username, slackUserID string) {
	_, err := s.db.ExecContext(s.ctx,
		"INSERT INTO contributor (username, meta) VALUES ($1, jsonb_build_object('slack_user_id', $2::text))",
		username, slackUserID,
	)
	s.Require().NoError(err)
}

func (s *PostgresIntegrationSuite) TestStagingStore_UpsertOverwrites() {
	store := NewStagingStore(s.db)
	ts := time.Now().UTC().Truncate(time.Millisecond)

	msg := &domain.StagedMessage{ID: 1714557600001, UserID: "U0001", Timestamp: ts, Text: "first version"}
	s.NoError(store.Upsert(s.ctx, msg))

	msg.Text = "edited version"
	s.NoError(store.Upsert(s.ctx, msg))

	all, err := store.GetAll(s.ctx)
	s.NoError(err)
	s.Len(all, 1)
	s.Equal("edited version", all[0].Text)
}

func (s *PostgresIntegrationSuite) TestStagingStore_GetAllNewestFirst() {
	store := NewStagingStore(s.db)
	now := time.Now().UTC().Truncate(time.Millisecond)

	s.NoError(store.Upsert(s.ctx, &domain.StagedMessage{ID: 1, UserID: "U0001", Timestamp: now.Add(-time.Hour), Text: "older"}))
	s.NoError(store.Upsert(s.ctx, &domain.StagedMessage{ID: 2, UserID: "U0001", Timestamp: now, Text: "newer"}))

	all, err := store.GetAll(s.ctx)
	s.NoError(err)
	s.Require().Len(all, 2)
	s.Equal("newer", all[0].Text)
	s.Equal("older", all[1].Text)
}

func (s *PostgresIntegrationSuite) TestStagingStore_DeleteBatch() {
	store := NewStagingStore(s.db)
	now := time.Now().UTC().Truncate(time.Millisecond)

	for i := int64(1); i <= 3; i++ {
		s.NoError(store.Upsert(s.ctx, &domain.StagedMessage{ID: i, UserID: "U0001", Timestamp: now, Text: "msg"}))
	}

	s.NoError(store.DeleteBatch(s.ctx, []int64{1, 3}))

	all, err := store.GetAll(s.ctx)
	s.NoError(err)
	s.Require().Len(all, 1)
	s.Equal(int64(2), all[0].ID)

	// Empty batch is a no-op, not an error.
	s.NoError(store.DeleteBatch(s.ctx, nil))
}

func (s *PostgresIntegrationSuite) TestContributorStore_BulkResolve() {
	store := NewContributorStore(s.db)
	s.insertContributor("alice", "UALICE")
	s.insertContributor("bob", "UBOB")

	resolved, err := store.UsernamesBySlackUserIDs(s.ctx, []string{"UALICE", "UBOB", "UNOBODY"})
	s.NoError(err)
	s.Equal(map[string]string{"UALICE": "alice", "UBOB": "bob"}, resolved)
}

func (s *PostgresIntegrationSuite) TestContributorStore_EmptyInput() {
	store := NewContributorStore(s.db)

	resolved, err := store.UsernamesBySlackUserIDs(s.ctx, nil)
	s.NoError(err)
	s.Empty(resolved)
}

func (s *PostgresIntegrationSuite) TestActivityStore_UpsertReportsIsNew() {
	store := NewActivityStore(s.db)
	now := time.Now().UTC().Truncate(time.Millisecond)

	activity := &domain.Activity{
		Slug:               "eod_update_2024-05-01_alice",
		Contributor:        "alice",
		ActivityDefinition: "eod_update",
		Title:              "EOD Update",
		OccurredAt:         now,
		Text:               "shipped the importer",
	}

	isNew, err := store.Upsert(s.ctx, activity)
	s.NoError(err)
	s.True(isNew)

	activity.Text = "shipped the importer\n\nand the exporter"
	isNew, err = store.Upsert(s.ctx, activity)
	s.NoError(err)
	s.False(isNew)

	all, err := store.GetAll(s.ctx)
	s.NoError(err)
	s.Require().Len(all, 1)
	s.Equal("shipped the importer\n\nand the exporter", all[0].Text)
}

func (s *PostgresIntegrationSuite) TestActivityStore_DefinitionInsertIgnore() {
	store := NewActivityStore(s.db)

	def := &domain.ActivityDefinition{
		Slug:        "eod_update",
		Name:        "EOD Update",
		Description: "EOD Update",
		Points:      2,
		Icon:        "message-square",
	}
	s.NoError(store.InsertDefinitionIgnore(s.ctx, def))

	// A second registration never overwrites the existing definition.
	changed := *def
	changed.Points = 10
	s.NoError(store.InsertDefinitionIgnore(s.ctx, &changed))

	var points int
	err := s.db.GetContext(s.ctx, &points, "SELECT points FROM activity_definition WHERE slug = $1", "eod_update")
	s.NoError(err)
	s.Equal(2, points)
}

// TestReconcilePipeline runs the reconciler against real stores: user A
// resolves to a contributor, user B does not. A gets one activity for
// the day, B's messages stay staged.
func (s *PostgresIntegrationSuite) TestReconcilePipeline() {
	staging := NewStagingStore(s.db)
	contributors := NewContributorStore(s.db)
	activities := NewActivityStore(s.db)

	s.insertContributor("alice", "UALICE")

	day := time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)
	s.NoError(staging.Upsert(s.ctx, &domain.StagedMessage{ID: 1, UserID: "UALICE", Timestamp: day.Add(19 * time.Hour), Text: "evening update"}))
	s.NoError(staging.Upsert(s.ctx, &domain.StagedMessage{ID: 2, UserID: "UALICE", Timestamp: day.Add(9 * time.Hour), Text: "morning update"}))
	s.NoError(staging.Upsert(s.ctx, &domain.StagedMessage{ID: 3, UserID: "UNOBODY", Timestamp: day.Add(18 * time.Hour), Text: "who am i"}))

	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError}))
	reconciler := service.NewReconciler(staging, contributors, activities, nil, logger)

	stats, err := reconciler.Reconcile(s.ctx)
	s.NoError(err)
	s.Equal(2, stats.Processed)
	s.Equal(1, stats.Skipped)
	s.Equal(1, stats.Activities)
	s.Equal([]string{"UNOBODY"}, stats.Unmatched)

	all, err := activities.GetAll(s.ctx)
	s.NoError(err)
	s.Require().Len(all, 1)
	s.Equal("eod_update_2024-05-01_alice", all[0].Slug)
	s.Equal("evening update\n\nmorning update", all[0].Text)
	s.True(all[0].OccurredAt.Equal(day.Add(9 * time.Hour)))

	remaining, err := staging.GetAll(s.ctx)
	s.NoError(err)
	s.Require().Len(remaining, 1)
	s.Equal("UNOBODY", remaining[0].UserID)
}
