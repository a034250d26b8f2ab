package slack

import "github.com/ohcnetwork/leaderboard-slack-plugin/internal/domain"

// historyResponse is the Slack conversations.history envelope.
type historyResponse struct {
	OK               bool                    `json:"ok"`
	Error            string                  `json:"error"`
	Messages         []domain.ChannelMessage `json:"messages"`
	HasMore          bool                    `json:"has_more"`
	ResponseMetadata responseMetadata        `json:"response_metadata"`
}

type responseMetadata struct {
	NextCursor string `json:"next_cursor"`
}

// authTestResponse is the Slack auth.test envelope.
type authTestResponse struct {
	OK    bool   `json:"ok"`
	Error string `json:"error"`
	Team  string `json:"team"`
	User  string `json:"user"`
}
