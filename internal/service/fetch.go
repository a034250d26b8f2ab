package service

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/ohcnetwork/leaderboard-slack-plugin/internal/domain"
	"github.com/ohcnetwork/leaderboard-slack-plugin/internal/mrkdwn"
)

// minTextLength filters out noise like emoji acknowledgments; messages
// whose trimmed text is this short are never staged.
const minTextLength = 5

// Fetcher pulls channel history for a date window and stages every
// qualifying message.
type Fetcher struct {
	source  MessageSource
	staging StagingStore
	logger  *slog.Logger
}

func NewFetcher(source MessageSource, staging StagingStore, logger *slog.Logger) *Fetcher {
	return &Fetcher{
		source:  source,
		staging: staging,
		logger:  logger,
	}
}

// Fetch stages all qualifying channel messages between the start of
// since's calendar day (today when since is nil) and the end of today.
// The window covers whole calendar days rather than a rolling 24-hour
// span so late-night messages at partial-day boundaries are not missed.
// If the API fails mid-pagination the fetch aborts; messages staged
// from earlier pages are retained, which is safe because staging is an
// idempotent upsert.
func (f *Fetcher) Fetch(ctx context.Context, since *time.Time) (int, error) {
	oldest, latest := dateRange(since, time.Now())

	f.logger.Info("fetching slack messages",
		"oldest", oldest.Format(time.RFC3339),
		"latest", latest.Format(time.RFC3339),
	)

	staged := 0
	cursor := ""
	for page := 0; ; page++ {
		resp, err := f.source.HistoryPage(ctx, oldest, latest, cursor)
		if err != nil {
			return staged, fmt.Errorf("fetch page %d: %w", page, err)
		}

		count := 0
		for _, msg := range resp.Messages {
			if !qualifies(msg) {
				continue
			}

			stagedMsg, err := normalize(msg)
			if err != nil {
				f.logger.Warn("failed to parse message timestamp",
					"user_id", msg.User,
					"ts", msg.TS,
				)
				continue
			}

			if err := f.staging.Upsert(ctx, stagedMsg); err != nil {
				return staged, fmt.Errorf("stage message %d: %w", stagedMsg.ID, err)
			}
			staged++
			count++
		}

		f.logger.Debug("staged page",
			"page", page,
			"messages", count,
			"total", staged,
		)

		cursor = resp.NextCursor
		if cursor == "" {
			break
		}
	}

	f.logger.Info("fetch completed", "staged", staged)
	return staged, nil
}

// qualifies reports whether a raw channel message should be staged:
// a genuine user message with non-trivial text.
func qualifies(msg domain.ChannelMessage) bool {
	return msg.Type == "message" &&
		msg.User != "" &&
		msg.Text != "" &&
		len(strings.TrimSpace(msg.Text)) > minTextLength
}

// normalize derives the staging row for a channel message. The id is
// the message's fractional-second timestamp converted to milliseconds
// and truncated, so the same source message always maps to the same row.
func normalize(msg domain.ChannelMessage) (*domain.StagedMessage, error) {
	ts, err := strconv.ParseFloat(msg.TS, 64)
	if err != nil {
		return nil, fmt.Errorf("parse ts %q: %w", msg.TS, err)
	}

	id := int64(ts * 1000)
	return &domain.StagedMessage{
		ID:        id,
		UserID:    msg.User,
		Timestamp: time.UnixMilli(id).UTC(),
		Text:      mrkdwn.ToHTML(msg.Text),
	}, nil
}

// dateRange computes the fetch window: start of since's day (or now's,
// when since is nil) through the end of now's day.
func dateRange(since *time.Time, now time.Time) (oldest, latest time.Time) {
	start := now
	if since != nil {
		start = *since
	}

	oldest = time.Date(start.Year(), start.Month(), start.Day(), 0, 0, 0, 0, start.Location())
	latest = time.Date(now.Year(), now.Month(), now.Day(), 23, 59, 59, int(999*time.Millisecond), now.Location())
	return oldest, latest
}
