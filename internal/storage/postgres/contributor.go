package postgres

import (
	"context"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
)

// ContributorStore resolves Slack user ids against the host's
// contributor directory, which keeps the Slack id in the contributor's
// JSON meta attribute.
type ContributorStore struct {
	db *sqlx.DB
}

func NewContributorStore(db *sqlx.DB) *ContributorStore {
	return &ContributorStore{db: db}
}

// UsernamesBySlackUserIDs maps Slack user ids to contributor usernames
// with a single bulk query. Ids with no matching contributor are absent
// from the result.
func (s *ContributorStore) UsernamesBySlackUserIDs(ctx context.Context, userIDs []string) (map[string]string, error) {
	result := make(map[string]string)
	if len(userIDs) == 0 {
		return result, nil
	}

	query := `
		SELECT username, meta->>'slack_user_id' AS slack_user_id
		FROM contributor
		WHERE meta->>'slack_user_id' = ANY($1)`

	rows, err := s.db.QueryContext(ctx, query, pq.Array(userIDs))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	for rows.Next() {
		var username, slackUserID string
		if err := rows.Scan(&username, &slackUserID); err != nil {
			return nil, err
		}
		result[slackUserID] = username
	}

	return result, rows.Err()
}
