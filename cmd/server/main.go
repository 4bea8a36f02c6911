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
	"github.com/jrsteele09/go-members-gateway/internal/config"
	"github.com/jrsteele09/go-members-gateway/internal/logging"
	"github.com/jrsteele09/go-members-gateway/server"
	"github.com/jrsteele09/go-members-gateway/sessions"
	"github.com/jrsteele09/go-members-gateway/sessions/redisrepo"
	"github.com/jrsteele09/go-members-gateway/users"
	"github.com/jrsteele09/go-members-gateway/users/postgres"
	"github.com/rs/zerolog/log"
)

const (
	shutdownTimeout = 5 * time.Second
	sweepInterval   = time.Minute
)

func main() {
	if err := run(); err != nil {
		log.Fatal().Err(err).Msg("Error running server")
	}
	log.Info().Msg("Server stopped")
}

func run() (returnError error) {
	defer func() {
		if r := recover(); r != nil {
			log.Error().Str("stack", string(debug.Stack())).Msgf("Recovered from panic: %v", r)
			returnError = errors.New("panic recovered")
		}
	}()

	c, err := config.New()
	if err != nil {
		return err
	}
	logging.Setup(c.GetEnv())
	displayAppname(c.GetAppName())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	repos, closeStores, err := openStores(ctx, c)
	if err != nil {
		return err
	}
	defer closeStores()

	handler, err := server.New(c, repos)
	if err != nil {
		return err
	}

	httpServer := &http.Server{
		Addr:              c.GetPort(),
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}
	serveErr := make(chan error, 1)
	go func() {
		serveErr <- listenAndServe(httpServer)
	}()

	select {
	case err := <-serveErr:
		return err
	case <-waitForStopSignal():
	}
	return shutdown(httpServer)
}

// openStores picks PostgreSQL and Redis when their URLs are configured, in-memory stores otherwise
func openStores(ctx context.Context, c config.Config) (server.Repos, func(), error) {
	var repos server.Repos
	var closers []func() error
	closeAll := func() {
		for i := len(closers) - 1; i >= 0; i-- {
			if err := closers[i](); err != nil {
				log.Warn().Err(err).Msg("closing store")
			}
		}
	}

	openCtx, cancel := context.WithTimeout(ctx, c.GetStoreTimeout())
	defer cancel()

	if dsn := c.GetDatabaseURL(); dsn != "" {
		pg, err := postgres.Open(openCtx, dsn)
		if err != nil {
			return repos, nil, fmt.Errorf("open user store: %w", err)
		}
		closers = append(closers, pg.Close)
		repos.Users = pg
		log.Info().Msg("User store: PostgreSQL")
	} else {
		repos.Users = users.NewInMemoryUserRepo()
		log.Warn().Msg("DATABASE_URL not set, users are kept in memory (DEV only)")
	}

	if redisURL := c.GetRedisURL(); redisURL != "" {
		rr, err := redisrepo.Open(openCtx, redisURL, c.GetSessionKeyPrefix())
		if err != nil {
			closeAll()
			return repos, nil, fmt.Errorf("open session store: %w", err)
		}
		closers = append(closers, rr.Close)
		repos.Sessions = rr
		log.Info().Msg("Session store: Redis")
	} else {
		mem := sessions.NewInMemoryRepo()
		go mem.Sweep(ctx, sweepInterval)
		repos.Sessions = mem
		log.Warn().Msg("REDIS_URL not set, sessions are kept in memory and lost on restart (DEV only)")
	}

	return repos, closeAll, nil
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
	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
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
