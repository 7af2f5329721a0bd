package main

import (
	"context"
	"errors"
	"flag"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"nstrack/internal/cfg"
	"nstrack/internal/importer"
	"nstrack/internal/metrics"
	"nstrack/internal/store"
	"nstrack/internal/web"
)

func main() {
	configPath := flag.String("config", "./nstrack.json", "path to config (.json, .yaml or .yml)")
	flag.Parse()

	c := cfg.Load(*configPath)

	db, err := store.Open(c.DBPath)
	if err != nil {
		log.Fatalf("db open: %v", err)
	}
	defer db.Close()
	if err := store.Migrate(db); err != nil {
		log.Fatalf("migrate: %v", err)
	}

	switch err := db.EnsureInitialUser(c.AuthUser, c.AuthPass); {
	case errors.Is(err, store.ErrNoUsers):
		log.Printf("auth: %v", err)
	case err != nil:
		log.Fatalf("auth bootstrap: %v", err)
	}

	var m *metrics.Metrics
	if c.Metrics {
		m = metrics.New()
	}
	im := importer.New(c, db, m)

	// Context that cancels on SIGINT/SIGTERM
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if c.PollMs > 0 {
		go im.Run(ctx)
	}

	srv := web.New(c, db, im, m)
	go func() {
		log.Printf("http: listening on %s", c.HTTPAddr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Printf("http: %v", err)
			stop()
		}
	}()

	<-ctx.Done()
	log.Printf("shutting down...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Printf("http shutdown: %v", err)
	}
	log.Printf("bye")
}
