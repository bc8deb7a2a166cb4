// workers/tournament_worker.go
package workers

import (
	"context"
	"log"
	"time"
)

// TournamentResumer is the slice of the tournament service the worker drives.
type TournamentResumer interface {
	ResumeRunning(ctx context.Context) (int, error)
}

// TournamentRecoveryWorker re-drives tournaments stranded in the running state
// after a restart. The orchestrator skips rounds that already resolved, so
// resuming a partially played bracket is safe.
type TournamentRecoveryWorker struct {
	resumer  TournamentResumer
	interval time.Duration
}

func NewTournamentRecoveryWorker(resumer TournamentResumer) *TournamentRecoveryWorker {
	return &TournamentRecoveryWorker{
		resumer:  resumer,
		interval: 5 * time.Minute,
	}
}

func (w *TournamentRecoveryWorker) Start(ctx context.Context) {
	log.Println("🔁 Starting Tournament Recovery Worker (stranded running tournaments)…")
	go w.run(ctx)
}

func (w *TournamentRecoveryWorker) run(ctx context.Context) {
	// Boot-time sweep catches tournaments interrupted by the last shutdown.
	w.sweep(ctx)

	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			w.sweep(ctx)
		case <-ctx.Done():
			log.Println("⏹️ Tournament Recovery Worker stopped")
			return
		}
	}
}

func (w *TournamentRecoveryWorker) sweep(ctx context.Context) {
	resumed, err := w.resumer.ResumeRunning(ctx)
	if err != nil {
		log.Printf("[Recovery] ❌ Sweep failed: %v", err)
		return
	}
	if resumed > 0 {
		log.Printf("[Recovery] ▶️  Resumed %d running tournament(s)", resumed)
	}
}
