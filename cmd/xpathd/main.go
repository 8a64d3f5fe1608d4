// Command xpathd serves XPath queries over HTTP.
//
// Configuration comes from the environment:
//
//	XPATHD_ADDR       listen address (default :8080)
//	XPATHD_LOG_LEVEL  zerolog level (default info)
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jacoelho/xpath/internal/log"
	"github.com/jacoelho/xpath/internal/service"
)

var version = "dev"

const shutdownTimeout = 10 * time.Second

func main() {
	showVersion := flag.Bool("version", false, "print version and exit")
	addr := flag.String("addr", "", "listen address (overrides XPATHD_ADDR)")
	flag.Parse()

	if *showVersion {
		fmt.Println(version)
		os.Exit(0)
	}

	log.Configure(log.Config{Service: "xpathd"})
	logger := log.WithComponent("daemon")

	listenAddr := *addr
	if listenAddr == "" {
		listenAddr = os.Getenv("XPATHD_ADDR")
	}
	if listenAddr == "" {
		listenAddr = ":8080"
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	srv := &http.Server{
		Addr:              listenAddr,
		Handler:           service.New().Router(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info().
			Str("addr", listenAddr).
			Str("version", version).
			Msg("listening")
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal().Err(err).Msg("server failed")
		}
	case <-ctx.Done():
		logger.Info().Msg("shutting down")
		stop()

		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Error().Err(err).Msg("shutdown incomplete")
		}
	}
}
