package postgres

import (
	"context"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/ohcnetwork/leaderboard-slack-plugin/internal/domain"
)

// StagingStore persists fetched channel messages until they are
// reconciled into activities.
type StagingStore struct {
	db *sqlx.DB
}

func NewStagingStore(db *sqlx.DB) *StagingStore {
	return &StagingStore{db: db}
}

// CreateSchema creates the staging table and its indexes. Safe to run on
// every setup.
func (s *StagingStore) CreateSchema(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS slack_anonymous_eod_update (
			id        BIGINT PRIMARY KEY,
			user_id   VARCHAR NOT NULL,
			timestamp TIMESTAMPTZ NOT NULL,
			text      TEXT NOT NULL
		);

		CREATE INDEX IF NOT EXISTS idx_slack_anonymous_eod_update_timestamp
			ON slack_anonymous_eod_update (timestamp DESC);
		CREATE INDEX IF NOT EXISTS idx_slack_anonymous_eod_update_user_id
			ON slack_anonymous_eod_update (user_id);
	`)
	return err
}

// Upsert writes a staged message, overwriting any existing row with the
// same derived id.
func (s *StagingStore) Upsert(ctx context.Context, msg *domain.StagedMessage) error {
	query := `
		INSERT INTO slack_anonymous_eod_update (id, user_id, timestamp, text)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (id) DO UPDATE SET
			user_id = EXCLUDED.user_id,
			timestamp = EXCLUDED.timestamp,
			text = EXCLUDED.text`

	_, err := s.db.ExecContext(ctx, query, msg.ID, msg.UserID, msg.Timestamp, msg.Text)
	return err
}

// GetAll returns every staged message, newest first.
func (s *StagingStore) GetAll(ctx context.Context) ([]domain.StagedMessage, error) {
	query := `
		SELECT id, user_id, timestamp, text
		FROM slack_anonymous_eod_update
		ORDER BY timestamp DESC`

	var messages []domain.StagedMessage
	err := s.db.SelectContext(ctx, &messages, query)
	return messages, err
}

// DeleteBatch removes the staged messages with the given ids.
func (s *StagingStore) DeleteBatch(ctx context.Context, ids []int64) error {
	if len(ids) == 0 {
		return nil
	}

	_, err := s.db.ExecContext(ctx,
		"DELETE FROM slack_anonymous_eod_update WHERE id = ANY($1)",
		pq.Array(ids),
	)
	return err
}
