// Package ledger implements the optional run ledger (component C10):
// additive-only persistence of job lifecycle events to Postgres via
// gorm, so a pipeline's history survives past its workdir. Grounded on
// the teacher's entity-writer service shape (a goroutine that owns the
// *gorm.DB exclusively and drains events off a channel) but trimmed to
// one responsibility — this service never answers queries, it only
// writes; the status surface (package api) reads live engine state
// instead of the ledger.
package ledger

import (
	"context"
	"log/slog"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"pipex/pkg/model"
)

// JobEvent is one row of job history. Table name job_events.
type JobEvent struct {
	ID        uint   `gorm:"primaryKey"`
	Pipeline  string `gorm:"index"`
	Process   string `gorm:"index"`
	JobIndex  int
	Status    string
	Detail    string
	Timestamp int64 `gorm:"index"`
}

func (JobEvent) TableName() string { return "job_events" }

// Open connects to Postgres and migrates the job_events table. Returns
// (nil, nil) if dsn is empty — the ledger is disabled by default, and
// callers should treat a nil *gorm.DB as "don't start the service".
func Open(dsn string) (*gorm.DB, error) {
	if dsn == "" {
		return nil, nil
	}
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{})
	if err != nil {
		return nil, err
	}
	if err := db.AutoMigrate(&JobEvent{}); err != nil {
		return nil, err
	}
	return db, nil
}

// Service drains model.Event values emitted by the running pipeline and
// appends them to job_events. It never updates or deletes a row once
// written.
type Service struct {
	db     *gorm.DB
	events <-chan model.Event
}

// New builds a Service. db must be non-nil (callers only construct a
// Service when the ledger is enabled).
func New(db *gorm.DB, events <-chan model.Event) *Service {
	return &Service{db: db, events: events}
}

// Run drains the event channel until ctx is canceled.
func (s *Service) Run(ctx context.Context) {
	slog.Info("starting run ledger", "component", "ledger")
	for {
		select {
		case <-ctx.Done():
			slog.Info("stopping run ledger", "component", "ledger")
			return
		case ev, ok := <-s.events:
			if !ok {
				return
			}
			row := JobEvent{
				Pipeline:  ev.Pipeline,
				Process:   ev.Process,
				JobIndex:  ev.JobIndex,
				Status:    string(ev.Status),
				Detail:    ev.Detail,
				Timestamp: ev.Timestamp,
			}
			if err := s.db.Create(&row).Error; err != nil {
				slog.Error("failed to append job event", "component", "ledger", "error", err)
			}
		}
	}
}
