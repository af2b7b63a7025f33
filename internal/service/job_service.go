package service

import (
	"fmt"
	"log"
	"time"

	"github.com/robfig/cron/v3"

	"valetpartner/internal/repository"
)

// JobService runs the scheduled sweeps: offer-expiry backstop and session
// timers reaching zero.
type JobService struct {
	cron     *cron.Cron
	sessions repository.SessionRepository
	dispatch *DispatchService
}

func NewJobService(sessions repository.SessionRepository, dispatch *DispatchService) *JobService {
	return &JobService{
		cron:     cron.New(),
		sessions: sessions,
		dispatch: dispatch,
	}
}

func (s *JobService) Start() {
	s.cron.AddFunc("@every 30s", func() {
		if err := s.dispatch.ExpireOverdue(); err != nil {
			log.Printf("Cron Job: %v", err)
		}
	})
	s.cron.AddFunc("@every 1m", func() {
		if err := s.SweepElapsedSessions(); err != nil {
			log.Printf("Cron Job: %v", err)
		}
	})
	s.cron.Start()
	log.Println("Scheduled sweeps started")
}

func (s *JobService) Stop() {
	ctx := s.cron.Stop()
	<-ctx.Done()
	log.Println("Scheduled sweeps stopped")
}

// SweepElapsedSessions moves active sessions whose scheduled end has passed
// into return_pending.
func (s *JobService) SweepElapsedSessions() error {
	ids, err := s.sessions.ActiveIDsPastScheduledEnd(time.Now().UTC())
	if err != nil {
		return fmt.Errorf("failed to list sessions past scheduled end: %w", err)
	}
	if len(ids) == 0 {
		return nil
	}
	if err := s.sessions.MarkReturnPending(ids); err != nil {
		return fmt.Errorf("failed to mark sessions return_pending: %w", err)
	}
	log.Printf("Cron Job: %d session(s) moved to return_pending. IDs: %v", len(ids), ids)
	return nil
}
