// Package scheduler runs the periodic work: a sweep every interval and the
// digest once a day at the configured hour.
package scheduler

import (
	"context"
	"log"
	"time"

	"github.com/tobolak1/ppc-checker/internal/digest"
	"github.com/tobolak1/ppc-checker/internal/orchestrator"
)

type Scheduler struct {
	orchestrator *orchestrator.Orchestrator
	digest       *digest.Builder
	interval     time.Duration
	digestHour   int
	now          func() time.Time
}

func New(o *orchestrator.Orchestrator, d *digest.Builder, interval time.Duration, digestHour int) *Scheduler {
	return &Scheduler{
		orchestrator: o,
		digest:       d,
		interval:     interval,
		digestHour:   digestHour,
		now:          time.Now,
	}
}

// Run blocks until ctx is cancelled. The first sweep fires immediately; the
// digest fires at most once per day, on the first tick at or past the digest
// hour.
func (s *Scheduler) Run(ctx context.Context) {
	log.Printf("Scheduler started: sweep every %s, digest at %02d:00", s.interval, s.digestHour)

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	var lastDigestDay string

	s.sweep(ctx)
	lastDigestDay = s.maybeDigest(ctx, lastDigestDay)

	for {
		select {
		case <-ctx.Done():
			log.Printf("Scheduler stopped")
			return
		case <-ticker.C:
			s.sweep(ctx)
			lastDigestDay = s.maybeDigest(ctx, lastDigestDay)
		}
	}
}

func (s *Scheduler) sweep(ctx context.Context) {
	if _, err := s.orchestrator.RunAll(ctx); err != nil {
		log.Printf("Scheduled sweep failed: %v", err)
	}
}

func (s *Scheduler) maybeDigest(ctx context.Context, lastDay string) string {
	now := s.now()
	day := now.Format("2006-01-02")
	if now.Hour() < s.digestHour || day == lastDay {
		return lastDay
	}

	if err := s.digest.Run(ctx); err != nil {
		log.Printf("Scheduled digest failed: %v", err)
		return lastDay
	}

	return day
}
