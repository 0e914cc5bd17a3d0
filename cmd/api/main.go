package main

import (
	"database/sql"
	"net/http"

	_ "github.com/go-sql-driver/mysql"
	"github.com/rs/zerolog/log"

	"voyago_booking/internal/adapters/gateway"
	server "voyago_booking/internal/adapters/http_server"
	"voyago_booking/internal/adapters/observability"
	redisad "voyago_booking/internal/adapters/redis"
	"voyago_booking/internal/app"
	"voyago_booking/internal/shared"
	mysqlrepo "voyago_booking/internal/storage/mysql"
)

func main() {
	cfg := shared.Load()

	// set global logger (console in dev, JSON otherwise)
	log.Logger = observability.NewLogger(cfg.AppEnv)

	observability.Serve()

	// db: durable archive of committed reservations
	db, err := sql.Open("mysql", cfg.MySQLDSN)
	if err != nil {
		log.Fatal().Err(err).Msg("sql.Open failed")
	}
	if err := db.Ping(); err != nil {
		log.Fatal().Err(err).Msg("db.Ping failed")
	}
	log.Info().Msg("database connection ok")

	// deps
	archive := mysqlrepo.New(db)
	store := redisad.New(cfg.RedisAddr, cfg.RedisPass, cfg.RedisDB)
	gw, err := gateway.New(cfg.GatewayBase, cfg.GatewayKey, cfg.GatewayRPS)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to initialize booking gateway client")
	}

	sessions := app.NewSessionManager(gw, store, archive, app.WorkflowConfig{
		Currency:      cfg.Currency,
		Culture:       cfg.Culture,
		Domestic:      cfg.Domestic,
		CommitRetries: cfg.CommitRetries,
	})
	sessions.SetTransitionObserver(observability.ObserveTransition)

	// http
	srv := server.New()
	reg := observability.InitRegistry()
	srv.Mount("/metrics", observability.MetricsHandler(reg))
	srv.MountHandlers(&server.Handlers{S: sessions, Archive: archive})

	log.Info().Str("addr", cfg.HTTPAddr).Msg("API listening")
	httpSrv := &http.Server{Addr: cfg.HTTPAddr, Handler: srv.Mux()}

	if err := httpSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		log.Fatal().Err(err).Msg("http server failed")
	}
}
