package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"runtime/debug"
	"syscall"
	"time"

	"github.com/common-nighthawk/go-figure"
	"github.com/joho/godotenv"
	"github.com/jrsteele09/pigmy-admin/credentials"
	"github.com/jrsteele09/pigmy-admin/credentials/memstore"
	"github.com/jrsteele09/pigmy-admin/credentials/sqlitestore"
	"github.com/jrsteele09/pigmy-admin/internal/config"
	"github.com/jrsteele09/pigmy-admin/server"
	"github.com/jrsteele09/pigmy-admin/server/loginsession"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

func main() {
	// A missing .env is normal outside development
	_ = godotenv.Load()

	if err := run(); err != nil {
		log.Fatal().Err(err).Msg("Error running server")
	}
	log.Info().Msg("Server stopped")
}

func run() (returnError error) {
	defer func() {
		if r := recover(); r != nil {
			log.Error().Msgf("Recovered from panic: %v\n%s", r, debug.Stack())
			returnError = errors.New("panic recovered")
		}
	}()

	c, err := config.Load(os.Getenv(config.ConfigPathEnvVar))
	if err != nil {
		return err
	}
	setupLogging(c)
	displayAppname(c.GetAppName())

	storage, closeStorage, err := openStorage(c)
	if err != nil {
		return err
	}
	defer closeStorage()

	handler, err := server.New(c, storage, loginsession.NewInMemoryLoginSessionRepo())
	if err != nil {
		return fmt.Errorf("server.New: %w", err)
	}

	httpServer := &http.Server{
		Addr:              c.GetPort(),
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}
	serveErr := make(chan error, 1)
	go func() { serveErr <- listenAndServe(httpServer) }()

	select {
	case err := <-serveErr:
		return err
	case <-waitForStopSignal():
	}
	return shutdown(httpServer)
}

func setupLogging(c config.Config) {
	level, err := zerolog.ParseLevel(c.GetLogLevel())
	if err != nil || level == zerolog.NoLevel {
		level = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(level)
	if c.GetEnv() == "DEV" {
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.Kitchen})
	}
}

// openStorage persists credentials in sqlite and keeps an in-memory copy
// that serves reads if the database becomes unavailable.
func openStorage(c config.Config) (credentials.Storage, func(), error) {
	key, err := c.GetCredentialKey()
	if err != nil {
		return nil, nil, err
	}
	var sealer *credentials.Sealer
	if key != nil {
		if sealer, err = credentials.NewSealer(key); err != nil {
			return nil, nil, fmt.Errorf("credentials.NewSealer: %w", err)
		}
	} else {
		log.Warn().Msg("No credential key configured, tokens are stored unsealed")
	}

	db, err := sqlitestore.Open(c.GetDatabasePath(), sealer)
	if err != nil {
		return nil, nil, fmt.Errorf("sqlitestore.Open: %w", err)
	}
	log.Info().Str("path", c.GetDatabasePath()).Msg("Credential store opened")

	closeFn := func() {
		if err := db.Close(); err != nil {
			log.Err(err).Msg("Failed to close credential store")
		}
	}
	return credentials.NewRedundant(db, memstore.New()), closeFn, nil
}

func listenAndServe(server *http.Server) error {
	log.Info().Msgf("Server listening on %s", server.Addr)
	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("server.ListenAndServe %w", err)
	}
	return nil
}

func waitForStopSignal() <-chan os.Signal {
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	return stop
}

func shutdown(server *http.Server) error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		return fmt.Errorf("server.Shutdown: %w", err)
	}
	return nil
}

func displayAppname(appname string) {
	myFigure := figure.NewFigure(appname, "cybermedium", true)
	myFigure.Print()
	fmt.Println()
}
