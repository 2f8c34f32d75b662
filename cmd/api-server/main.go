package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/medibridge/appointment-scheduling/internal/api"
	"github.com/medibridge/appointment-scheduling/internal/config"
	"github.com/medibridge/appointment-scheduling/internal/db"
	metrics "github.com/medibridge/appointment-scheduling/internal/observability/metrics"
	redisclient "github.com/medibridge/appointment-scheduling/internal/redis"
	"github.com/medibridge/appointment-scheduling/internal/reminder"
	"github.com/medibridge/appointment-scheduling/internal/scheduling"
)

const version = "0.2.0"

func main() {
	log.SetFlags(log.LstdFlags | log.Lshortfile)
	log.Println("api-server starting up")

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config load error: %v", err)
	}

	log.Printf("running in env=%s http_port=%s search_window_days=%d", cfg.Env, cfg.HTTPPort, cfg.SearchWindowDays)

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

	// Connect Redis
	rdb, err := redisclient.NewRedisClient(cfg.RedisAddr, cfg.RedisUsername, cfg.RedisPassword)
	if err != nil {
		log.Fatalf("redis connection error: %v", err)
	}
	defer func() {
		if err := rdb.Close(); err != nil {
			log.Printf("error closing redis: %v", err)
		}
	}()
	log.Println("connected to Redis")

	repo := scheduling.NewPgRepository(pgPool)
	locker := redisclient.NewRedisDayLocker(rdb, cfg.LockTTL)

	reminders := reminder.NewScheduler(reminder.NewPgRepository(pgPool), cfg.ReminderLead)

	directory := scheduling.NewDirectory(repo)
	calendar := scheduling.NewCalendar(repo, locker)
	matcher := scheduling.NewMatcher(directory, calendar, cfg.SearchWindowDays, cfg.PreferredTimeWindow)
	bookings := scheduling.NewBookingService(repo, locker, reminders, cfg.BookingLockRetries)

	router := api.NewRouter(api.RouterConfig{
		Matcher:   matcher,
		Bookings:  bookings,
		Calendar:  calendar,
		Directory: directory,
		Metrics:   metrics.NewSchedulingMetrics(nil),
		PgPool:    pgPool,
		Redis:     rdb,
		Env:       cfg.Env,
		Version:   version,
	})

	srv := &http.Server{
		Addr:              ":" + cfg.HTTPPort,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		log.Printf("listening on %s", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("http server error: %v", err)
		}
	}()

	<-rootCtx.Done()
	log.Println("shutting down api-server")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Printf("graceful shutdown failed: %v", err)
	}
}
