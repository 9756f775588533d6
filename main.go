package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/ZaoGabo/encuentra-las-diferencias-web/assets"
	"github.com/ZaoGabo/encuentra-las-diferencias-web/internal/auth"
	"github.com/ZaoGabo/encuentra-las-diferencias-web/internal/config"
	"github.com/ZaoGabo/encuentra-las-diferencias-web/internal/database"
	"github.com/ZaoGabo/encuentra-las-diferencias-web/internal/httpserver"
	"github.com/ZaoGabo/encuentra-las-diferencias-web/internal/level"
	"github.com/ZaoGabo/encuentra-las-diferencias-web/internal/persist"
	"github.com/ZaoGabo/encuentra-las-diferencias-web/internal/results"
	"github.com/ZaoGabo/encuentra-las-diferencias-web/internal/store"
)

func main() {
	cfg := config.Load()
	if lvl, err := zerolog.ParseLevel(cfg.LogLevel); err == nil {
		zerolog.SetGlobalLevel(lvl)
	}
	if cfg.DevMode {
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.Kitchen})
	}

	db, err := database.Open(cfg.DBPath)
	if err != nil {
		log.Fatal().Err(err).Str("path", cfg.DBPath).Msg("open database")
	}
	defer db.Close()
	if err := database.Migrate(db, assets.MigrationsFS()); err != nil {
		log.Fatal().Err(err).Msg("migrate")
	}

	catalog, err := level.Open(cfg.LevelsDir)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load levels")
	}

	srv := httpserver.New(httpserver.Deps{
		Config:  cfg,
		Catalog: catalog,
		Games:   store.NewMemoryStore(),
		Results: results.NewStore(db),
		Auth: auth.NewService(db, auth.Config{
			Secret:     cfg.JWTSecret,
			TTL:        cfg.JWTTTL,
			CookieName: cfg.CookieName,
			Secure:     cfg.Production(),
		}),
		Persist: persist.NewAdapter(persist.NewSQLiteBackend(db)),
	})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	go func() {
		log.Info().Str("port", cfg.Port).Bool("dev", cfg.DevMode).Int("levels", catalog.Len()).Msg("starting diferencias server")
		if err := srv.Start(":" + cfg.Port); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("server exited")
		}
	}()

	<-ctx.Done()
	log.Info().Msg("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Warn().Err(err).Msg("shutdown")
	}
}
