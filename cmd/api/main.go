package main

import (
	"context"
	"net/http"
	"os"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/mkale/payfeed/internal/api"
	"github.com/mkale/payfeed/internal/config"
	"github.com/mkale/payfeed/internal/logging"
	"github.com/mkale/payfeed/internal/service"
	"github.com/mkale/payfeed/internal/store"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		os.Stderr.WriteString(err.Error() + "\n")
		os.Exit(1)
	}

	log := logging.New(cfg)

	ctx := context.Background()
	st, err := store.NewPostgres(ctx, cfg.DBSource)
	if err != nil {
		log.Error("unable to connect to database", "error", err)
		os.Exit(1)
	}
	defer st.Close()

	if err := st.EnsureSchema(ctx); err != nil {
		log.Error("schema setup failed", "error", err)
		os.Exit(1)
	}

	// Initialize Layers
	ledger := service.NewLedger(st, log)
	feed := service.NewFeed(st)
	social := service.NewSocial(st)
	notifications := service.NewNotifications(st, log)
	users := service.NewUsers(st)
	handler := api.NewHandler(ledger, feed, social, notifications, users, log)

	// Router
	r := mux.NewRouter()
	r.Handle("/metrics", promhttp.Handler())
	r.HandleFunc("/health", handler.HealthCheckHandler)
	handler.Register(r.PathPrefix("/api/v1").Subrouter())

	log.Info("server starting", "port", cfg.Port, "env", cfg.Env)
	if err := http.ListenAndServe(":"+cfg.Port, r); err != nil {
		log.Error("server exited", "error", err)
		os.Exit(1)
	}
}
