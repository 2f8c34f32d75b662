package main

import (
	"context"
	"log"
	"os/signal"
	"syscall"
	"time"

	"github.com/medibridge/appointment-scheduling/internal/config"
	"github.com/medibridge/appointment-scheduling/internal/db"
	metrics "github.com/medibridge/appointment-scheduling/internal/observability/metrics"
	"github.com/medibridge/appointment-scheduling/internal/reminder"
)

func main() {
	log.SetFlags(log.LstdFlags | log.Lshortfile)
	log.Println("reminder-worker starting up")

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config load error: %v", err)
	}

	log.Printf("running reminder worker in env=%s interval=%s batch=%d", cfg.Env, cfg.WorkerInterval, cfg.WorkerBatch)

	rootCtx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Connect Postgres
	pgCtx, cancelPg := context.WithTimeout(rootCtx, 10*time.Second)
	pgPool, err := db.ConnectPostgres(pgCtx, cfg.PostgresDSN)
	cancelPg()
	if err != nil {
		log.Fatalf("postgres connection error: %v", err)
	}
	defer pgPool.Close()
	log.Println("connected to Postgres")

	repo := reminder.NewPgRepository(pgPool)
	dispatcher := reminder.NewDispatcher(repo, reminder.LogNotifier{}, cfg.WorkerBatch)
	m := metrics.NewSchedulingMetrics(nil)

	// Run once at startup
	runOnce(rootCtx, dispatcher, m)

	ticker := time.NewTicker(cfg.WorkerInterval)
	defer ticker.Stop()

	for {
		select {
		case <-rootCtx.Done():
			log.Println("shutdown signal received, stopping reminder worker")
			return
		case <-ticker.C:
			runOnce(rootCtx, dispatcher, m)
		}
	}
}

func runOnce(ctx context.Context, dispatcher *reminder.Dispatcher, m *metrics.SchedulingMetrics) {
	runCtx, cancel := context.WithTimeout(ctx, 20*time.Second)
	defer cancel()

	start := time.Now()
	sent, err := dispatcher.DispatchDue(runCtx, time.Now().UTC())
	if err != nil {
		log.Printf("reminder dispatch error: %v", err)
		return
	}
	for i := 0; i < sent; i++ {
		m.ObserveReminder("sent")
	}
	log.Printf("dispatched %d reminders in %s", sent, time.Since(start))
}
