package service

//go:generate mockgen -source=interfaces.go -destination=mocks/mocks.go -package=mocks

import (
	"context"
	"time"

	"github.com/ohcnetwork/leaderboard-slack-plugin/internal/domain"
)

type MessageSource interface {
	HistoryPage(ctx context.Context, oldest, latest time.Time, cursor string) (*domain.MessagePage, error)
}

type StagingStore interface {
	Upsert(ctx context.Context, msg *domain.StagedMessage) error
	GetAll(ctx context.Context) ([]domain.StagedMessage, error)
	DeleteBatch(ctx context.Context, ids []int64) error
}

type ContributorResolver interface {
	UsernamesBySlackUserIDs(ctx context.Context, userIDs []string) (map[string]string, error)
}

type ActivitySink interface {
	Upsert(ctx context.Context, activity *domain.Activity) (bool, error)
}

type Publisher interface {
	Publish(ctx context.Context, activity *domain.Activity, isNew bool) error
	Close() error
}
