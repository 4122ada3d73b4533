// Command authority runs the survey authority service.
//
// The authority hosts the campaign ledger, the token issuer with its
// blind-signing and encryption keys, and the result publisher behind a
// single HTTP server.
//
// # Endpoints
//
// Public (no auth):
//   - GET /campaigns/{campaign_id} - Campaign state and public keys
//   - GET /campaigns/{campaign_id}/proof/{index} - Merkle inclusion proof
//   - POST /blind-sign - Blind signature on a token-holder's message
//   - POST /submissions - Anonymous response submission
//   - POST /tokens/validate - Token state lookup
//   - GET /university/{university_id} - University final root
//   - GET /surveys/{survey_id} - Survey state
//
// Admin (signed envelope, authorization decided by account authority):
//   - POST /admin/campaigns - Create a campaign
//   - POST /admin/campaigns/transition - Advance the campaign status
//   - POST /admin/campaigns/flush - Flush queued submissions to the ledger
//   - POST /admin/campaigns/publish - Publish the campaign Merkle root
//   - POST /admin/tokens/batch - Issue a token batch
//   - POST /admin/university - Initialize a university record
//   - POST /admin/university/root - Fold published roots into the final root
//
// # Usage
//
//	go run ./cmd/authority --addr=:8080
//	go run ./cmd/authority --addr=:8080 --metrics-addr=:9090 --postgres-host=localhost
package main

import (
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/meomun1/anonsurvey/aggregator"
	"github.com/meomun1/anonsurvey/api/httpserver"
	"github.com/meomun1/anonsurvey/cmd/common"
	"github.com/meomun1/anonsurvey/issuer"
	"github.com/meomun1/anonsurvey/ledger"
	"github.com/meomun1/anonsurvey/services"
	"github.com/meomun1/anonsurvey/tokens"
)

func main() {
	var (
		addr        = flag.String("addr", ":8080", "HTTP listen address")
		metricsAddr = flag.String("metrics-addr", "", "Metrics listen address (empty disables metrics)")
		enablePprof = flag.Bool("pprof", false, "Enable pprof debug API")
		drain       = flag.Duration("drain", 5*time.Second, "Drain duration before shutdown")
		gracePeriod = flag.Duration("grace", 10*time.Second, "Graceful shutdown timeout")
		logJSON     = flag.Bool("log-json", false, "Log in JSON format")
		logDebug    = flag.Bool("log-debug", false, "Log at debug level")
		pgHost      = flag.String("postgres-host", "", "Postgres host (empty uses in-memory token store)")
		pgPort      = flag.Int("postgres-port", 5432, "Postgres port")
		pgUser      = flag.String("postgres-user", "survey", "Postgres user")
		pgPassword  = flag.String("postgres-password", "", "Postgres password")
		pgDatabase  = flag.String("postgres-db", "survey", "Postgres database")
		pgSSLMode   = flag.String("postgres-sslmode", "", "Postgres sslmode")
	)
	flag.Parse()

	if err := run(&config{
		Addr:        *addr,
		MetricsAddr: *metricsAddr,
		EnablePprof: *enablePprof,
		Drain:       *drain,
		GracePeriod: *gracePeriod,
		LogJSON:     *logJSON,
		LogDebug:    *logDebug,
		Postgres: &tokens.PostgresConfig{
			Host:     *pgHost,
			Port:     *pgPort,
			User:     *pgUser,
			Password: *pgPassword,
			Database: *pgDatabase,
			SSLMode:  *pgSSLMode,
		},
	}); err != nil {
		fmt.Printf("Error: %v\n", err)
		os.Exit(1)
	}
}

type config struct {
	Addr        string
	MetricsAddr string
	EnablePprof bool
	Drain       time.Duration
	GracePeriod time.Duration
	LogJSON     bool
	LogDebug    bool
	Postgres    *tokens.PostgresConfig
}

func run(cfg *config) error {
	log := common.NewLogger(cfg.LogJSON, cfg.LogDebug)

	store, err := common.NewTokenStore(cfg.Postgres)
	if err != nil {
		return fmt.Errorf("opening token store: %w", err)
	}
	defer store.Close()
	if cfg.Postgres.Host == "" {
		log.Warn("no Postgres host configured, tokens are held in memory only")
	}

	tokenManager := tokens.NewManager(store)
	l := ledger.New()
	iss := issuer.New(tokenManager, log)
	publisher := aggregator.NewPublisher(l, log)
	svc := services.New(l, iss, tokenManager, publisher, log)

	srv, err := httpserver.New(&httpserver.HTTPServerConfig{
		ListenAddr:               cfg.Addr,
		MetricsAddr:              cfg.MetricsAddr,
		EnablePprof:              cfg.EnablePprof,
		Log:                      log,
		DrainDuration:            cfg.Drain,
		GracefulShutdownDuration: cfg.GracePeriod,
		ReadTimeout:              15 * time.Second,
		WriteTimeout:             15 * time.Second,
	}, svc)
	if err != nil {
		return fmt.Errorf("creating server: %w", err)
	}

	srv.RunInBackground()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	<-sigChan

	log.Info("shutting down authority")
	srv.Shutdown()
	return nil
}
