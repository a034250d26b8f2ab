package domain

import "time"

// Activity is the host-owned leaderboard record the pipeline writes. The
// slug encodes (activity kind, day, contributor), so repeated scrapes
// upsert the same row instead of duplicating it.
type Activity struct {
	Slug               string    `db:"slug" json:"slug"`
	Contributor        string    `db:"contributor" json:"contributor"`
	ActivityDefinition string    `db:"activity_definition" json:"activity_definition"`
	Title              string    `db:"title" json:"title"`
	OccurredAt         time.Time `db:"occured_at" json:"occured_at"`
	Link               *string   `db:"link" json:"link"`
	Text               string    `db:"text" json:"text"`
	Points             *int      `db:"points" json:"points"`
	Meta               *string   `db:"meta" json:"meta"`
}

// ActivityDefinition is a host-registered category of scorable action.
type ActivityDefinition struct {
	Slug        string `db:"slug"`
	Name        string `db:"name"`
	Description string `db:"description"`
	Points      int    `db:"points"`
	Icon        string `db:"icon"`
}
