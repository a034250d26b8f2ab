package domain

import "time"

// StagedMessage is a channel message that has been fetched but not yet
// reconciled against a contributor. The id is derived from the message's
// Slack timestamp (milliseconds since epoch), so re-fetching the same
// message always maps to the same row.
type StagedMessage struct {
	ID        int64     `db:"id"`
	UserID    string    `db:"user_id"`
	Timestamp time.Time `db:"timestamp"`
	Text      string    `db:"text"`
}

// ChannelMessage is a single message as delivered by the Slack
// conversations.history API. TS is Slack's decimal-seconds timestamp
// string (e.g. "1714489200.123456").
type ChannelMessage struct {
	Type string `json:"type"`
	User string `json:"user,omitempty"`
	Text string `json:"text,omitempty"`
	TS   string `json:"ts"`
}

// MessagePage is one page of channel history. NextCursor is empty when
// the sequence is exhausted.
type MessagePage struct {
	Messages   []ChannelMessage
	NextCursor string
}
