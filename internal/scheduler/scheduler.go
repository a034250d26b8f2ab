package scheduler

import (
	"context"
	"log/slog"
	"time"

	"github.com/ohcnetwork/leaderboard-slack-plugin/internal/domain"
)

// Scraper defines the interface for scrape operations.
type Scraper interface {
	Scrape(ctx context.Context) (*domain.ScrapeStats, error)
}

type Scheduler struct {
	scraper  Scraper
	interval time.Duration
	logger   *slog.Logger
}

func NewScheduler(scraper Scraper, interval time.Duration, logger *slog.Logger) *Scheduler {
	return &Scheduler{
		scraper:  scraper,
		interval: interval,
		logger:   logger,
	}
}

func (s *Scheduler) Start(ctx context.Context) error {
	s.logger.Info("scheduler started", "interval", s.interval)

	s.runScrape(ctx)

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			s.logger.Info("scheduler stopped")
			return ctx.Err()
		case <-ticker.C:
			s.runScrape(ctx)
		}
	}
}

func (s *Scheduler) runScrape(ctx context.Context) {
	scrapeCtx, cancel := context.WithTimeout(ctx, 5*time.Minute)
	defer cancel()

	if _, err := s.scraper.Scrape(scrapeCtx); err != nil {
		s.logger.Error("scrape failed", "error", err)
	}
}
