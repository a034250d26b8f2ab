package postgres

import (
	"context"

	"github.com/jmoiron/sqlx"

	"github.com/ohcnetwork/leaderboard-slack-plugin/internal/domain"
)

// ActivityStore writes to the host-owned activity tables.
type ActivityStore struct {
	db *sqlx.DB
}

func NewActivityStore(db *sqlx.DB) *ActivityStore {
	return &ActivityStore{db: db}
}

// InsertDefinitionIgnore registers an activity definition once; an
// existing definition with the same slug is left untouched.
func (s *ActivityStore) InsertDefinitionIgnore(ctx context.Context, def *domain.ActivityDefinition) error {
	query := `
		INSERT INTO activity_definition (slug, name, description, points, icon)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (slug) DO NOTHING`

	_, err := s.db.ExecContext(ctx, query,
		def.Slug, def.Name, def.Description, def.Points, def.Icon)
	return err
}

// Upsert writes an activity keyed by slug and reports whether the row
// was newly inserted.
func (s *ActivityStore) Upsert(ctx context.Context, activity *domain.Activity) (bool, error) {
	query := `
		INSERT INTO activity (
			slug, contributor, activity_definition, title, occured_at, link, text, points, meta
		) VALUES (
			$1, $2, $3, $4, $5, $6, $7, $8, $9
		)
		ON CONFLICT (slug) DO UPDATE SET
			contributor = EXCLUDED.contributor,
			activity_definition = EXCLUDED.activity_definition,
			title = EXCLUDED.title,
			occured_at = EXCLUDED.occured_at,
			link = EXCLUDED.link,
			text = EXCLUDED.text,
			points = EXCLUDED.points,
			meta = EXCLUDED.meta
		RETURNING (xmax = 0) AS inserted`

	var inserted bool
	err := s.db.QueryRowContext(ctx, query,
		activity.Slug,
		activity.Contributor,
		activity.ActivityDefinition,
		activity.Title,
		activity.OccurredAt,
		activity.Link,
		activity.Text,
		activity.Points,
		activity.Meta,
	).Scan(&inserted)
	if err != nil {
		return false, err
	}

	return inserted, nil
}

// GetAll returns every activity, newest first.
func (s *ActivityStore) GetAll(ctx context.Context) ([]domain.Activity, error) {
	query := `
		SELECT slug, contributor, activity_definition, title, occured_at, link, text, points, meta
		FROM activity
		ORDER BY occured_at DESC`

	var activities []domain.Activity
	err := s.db.SelectContext(ctx, &activities, query)
	return activities, err
}
