package main

import (
	"context"
	"errors"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"spacesim/internal/auth"
	"spacesim/internal/blueprint"
	"spacesim/internal/config"
	"spacesim/internal/logging"
	"spacesim/internal/match"
	"spacesim/internal/scenario"
	"spacesim/internal/server"
	"spacesim/internal/store"
	"spacesim/internal/transport"
)

func serveCmd(args []string) error {
	fs := flag.NewFlagSet("serve", flag.ExitOnError)
	cfgPath := fs.String("config", "", "config file (default: ./spacesim.{yaml,toml,json})")
	addr := fs.String("addr", "", "HTTP listen address, overrides http.addr")
	var autostart stringList
	fs.Var(&autostart, "scenario", "scenario file to start on boot (repeatable)")
	fs.Parse(args)

	cfg, err := config.Load(*cfgPath)
	if err != nil {
		return err
	}
	if *addr != "" {
		cfg.HTTP.Addr = *addr
	}
	log := logging.New(cfg.LogLevel, os.Stderr)

	tables, err := loadTables(cfg.Blueprints.Path)
	if err != nil {
		return err
	}

	db, err := store.Open(cfg.DB.Path)
	if err != nil {
		return err
	}
	defer db.Close()
	archiver := store.NewArchiver(db, log)
	defer archiver.Stop()

	a, err := auth.New(db, cfg.Auth.Secret, log)
	if err != nil {
		return err
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	hub := transport.NewHub(log)
	go hub.Run(ctx)

	deps := match.Deps{DB: db, Archiver: archiver, Hub: hub, Log: log}
	matches := match.NewManager(tables, deps, matchOptions(cfg), cfg.Match.MaxActive)
	defer matches.Shutdown()

	for _, path := range autostart {
		sc, err := scenario.Load(path)
		if err != nil {
			return err
		}
		r, err := matches.Start(ctx, sc)
		if err != nil {
			return err
		}
		log.Info().Str("match", r.ID).Str("scenario", path).Strs("waiting", r.Info().Waiting).Msg("match started")
	}

	srv := &server.Server{
		DB:        db,
		Auth:      a,
		Hub:       hub,
		Limiter:   transport.NewLimiter(cfg.Limits.ConnsPerIP, cfg.Limits.TotalConns),
		Matches:   matches,
		PublicURL: cfg.HTTP.PublicURL,
		TokenTTL:  cfg.Auth.ShipTokenTTL,
		Log:       log,
	}
	httpServer := &http.Server{Addr: cfg.HTTP.Addr, Handler: srv.Routes()}

	errs := make(chan error, 1)
	go func() {
		log.Info().Str("addr", cfg.HTTP.Addr).Str("db", cfg.DB.Path).Msg("server starting")
		if err := httpServer.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			errs <- err
		}
		close(errs)
	}()

	select {
	case err := <-errs:
		return err
	case <-ctx.Done():
	}
	log.Info().Msg("shutting down")
	shutdownCtx, done := context.WithTimeout(context.Background(), 5*time.Second)
	defer done()
	return httpServer.Shutdown(shutdownCtx)
}

func matchOptions(cfg config.Config) match.Options {
	return match.Options{
		TickRate:      cfg.Match.TickRate,
		SnapshotEvery: cfg.Match.SnapshotEvery,
		MaxTicks:      cfg.Match.MaxTicks,
		Engine:        cfg.Engine,
	}
}

func loadTables(overrides string) (*blueprint.Tables, error) {
	tables := blueprint.Default()
	if overrides != "" {
		if err := tables.LoadOverrides(overrides); err != nil {
			return nil, err
		}
	}
	return tables, nil
}

type stringList []string

func (s *stringList) String() string { return "" }

func (s *stringList) Set(v string) error {
	*s = append(*s, v)
	return nil
}
