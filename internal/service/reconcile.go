package service

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"time"

	"github.com/ohcnetwork/leaderboard-slack-plugin/internal/domain"
)

const (
	// ActivityDefinitionSlug tags the activities this plugin emits.
	ActivityDefinitionSlug = "eod_update"

	activityTitle = "EOD Update"
	dayKeyFormat  = "2006-01-02"
)

// Reconciler matches staged messages to contributors and folds them
// into one activity per contributor per calendar day. Staged rows are
// deleted only after their activity has been written; rows belonging to
// unresolved users are retained for a future run.
type Reconciler struct {
	staging      StagingStore
	contributors ContributorResolver
	activities   ActivitySink
	publisher    Publisher
	logger       *slog.Logger
}

func NewReconciler(
	staging StagingStore,
	contributors ContributorResolver,
	activities ActivitySink,
	publisher Publisher,
	logger *slog.Logger,
) *Reconciler {
	return &Reconciler{
		staging:      staging,
		contributors: contributors,
		activities:   activities,
		publisher:    publisher,
		logger:       logger,
	}
}

// dayGroup aggregates one contributor's messages for one calendar day.
type dayGroup struct {
	texts      []string
	occurredAt time.Time
	ids        []int64
}

// Reconcile processes all staged messages and reports what happened.
func (r *Reconciler) Reconcile(ctx context.Context) (*domain.ScrapeStats, error) {
	start := time.Now()

	staged, err := r.staging.GetAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("load staged messages: %w", err)
	}

	byUser := make(map[string][]domain.StagedMessage)
	var userIDs []string
	for _, msg := range staged {
		if _, seen := byUser[msg.UserID]; !seen {
			userIDs = append(userIDs, msg.UserID)
		}
		byUser[msg.UserID] = append(byUser[msg.UserID], msg)
	}

	r.logger.Info("loaded staged messages", "messages", len(staged), "users", len(userIDs))

	contributors, err := r.contributors.UsernamesBySlackUserIDs(ctx, userIDs)
	if err != nil {
		return nil, fmt.Errorf("resolve contributors: %w", err)
	}

	stats := &domain.ScrapeStats{}
	var activities []domain.Activity
	var processedIDs []int64

	for _, userID := range userIDs {
		messages := byUser[userID]

		username, ok := contributors[userID]
		if !ok {
			r.logger.Warn("no contributor found for slack user",
				"slack_user_id", userID,
				"skipped", len(messages),
			)
			stats.Unmatched = append(stats.Unmatched, userID)
			stats.Skipped += len(messages)
			continue
		}

		days := groupByDay(messages)
		for _, date := range sortedKeys(days) {
			group := days[date]
			activities = append(activities, domain.Activity{
				Slug:               fmt.Sprintf("%s_%s_%s", ActivityDefinitionSlug, date, username),
				Contributor:        username,
				ActivityDefinition: ActivityDefinitionSlug,
				Title:              activityTitle,
				OccurredAt:         group.occurredAt,
				Text:               strings.Join(group.texts, "\n\n"),
			})
			processedIDs = append(processedIDs, group.ids...)
			stats.Processed += len(group.ids)
		}

		r.logger.Info("prepared EOD activities", "contributor", username, "days", len(days))
	}

	for i := range activities {
		activity := &activities[i]

		isNew, err := r.activities.Upsert(ctx, activity)
		if err != nil {
			return nil, fmt.Errorf("upsert activity %s: %w", activity.Slug, err)
		}

		if r.publisher != nil {
			if err := r.publisher.Publish(ctx, activity, isNew); err != nil {
				r.logger.Error("failed to publish activity event",
					"slug", activity.Slug,
					"error", err,
				)
			}
		}
	}
	stats.Activities = len(activities)

	// Staged rows are removed only after every activity write succeeded,
	// so a failed write never loses staged data.
	if err := r.staging.DeleteBatch(ctx, processedIDs); err != nil {
		return stats, fmt.Errorf("delete staged messages: %w", err)
	}

	stats.Duration = time.Since(start)

	r.logger.Info("reconcile completed",
		"processed", stats.Processed,
		"skipped", stats.Skipped,
		"activities", stats.Activities,
		"unmatched", len(stats.Unmatched),
		"duration", stats.Duration,
	)
	if len(stats.Unmatched) > 0 {
		r.logger.Info("unmatched slack user ids",
			"count", len(stats.Unmatched),
			"user_ids", strings.Join(stats.Unmatched, ", "),
		)
	}

	return stats, nil
}

// groupByDay buckets a user's messages by calendar day (UTC). Texts keep
// encounter order; occurredAt is the earliest message time of the day.
func groupByDay(messages []domain.StagedMessage) map[string]*dayGroup {
	days := make(map[string]*dayGroup)
	for _, msg := range messages {
		date := msg.Timestamp.UTC().Format(dayKeyFormat)

		group, ok := days[date]
		if !ok {
			group = &dayGroup{occurredAt: msg.Timestamp}
			days[date] = group
		}

		group.texts = append(group.texts, msg.Text)
		group.ids = append(group.ids, msg.ID)
		if msg.Timestamp.Before(group.occurredAt) {
			group.occurredAt = msg.Timestamp
		}
	}
	return days
}

func sortedKeys(days map[string]*dayGroup) []string {
	keys := make([]string, 0, len(days))
	for key := range days {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return keys
}
