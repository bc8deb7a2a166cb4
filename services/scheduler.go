// services/scheduler.go
package services

import (
	"context"
	"log"
	"time"

	"agent-arena-system/models"

	"github.com/go-co-op/gocron/v2"
)

// StartTournamentScheduler launches scheduled tournaments whose start time has
// arrived. Tournaments below the minimum field stay in registration and are
// retried on the next tick.
func (s *TournamentService) StartTournamentScheduler() {
	sched, _ := gocron.NewScheduler()
	sched.Start()

	// Every minute: start due tournaments
	_, _ = sched.NewJob(
		gocron.DurationJob(1*time.Minute),
		gocron.NewTask(func() {
			var tournaments []models.Tournament
			now := time.Now()
			err := s.DB.Where("status = ? AND scheduled_start IS NOT NULL AND scheduled_start <= ?",
				models.TournamentRegistration, now).
				Find(&tournaments).Error
			if err != nil {
				log.Printf("[Scheduler] DB error: %v", err)
				return
			}

			for i := range tournaments {
				t := &tournaments[i]
				if err := s.Orchestrator.Start(context.Background(), t); err != nil {
					log.Printf("[Scheduler] Tournament %s not started yet: %v", t.ID, err)
					continue
				}
				log.Printf("✅ Auto-started tournament: %s", t.Name)
				go s.runTournament(t)
			}
		}),
	)
}
