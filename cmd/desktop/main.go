// Package main provides the desktop server for FixDesk.
// Desktop clients communicate via REST/WebSocket on localhost:8090.
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gorilla/mux"

	"github.com/kimhsiao/fixdesk/backend/cmd/desktop/handlers"
	"github.com/kimhsiao/fixdesk/backend/internal/app"
	"github.com/kimhsiao/fixdesk/backend/internal/config"
	"github.com/kimhsiao/fixdesk/backend/internal/logging"
)

// Version is set at build time
var Version = "0.1.0"

const shutdownTimeout = 10 * time.Second

func main() {
	if err := run(os.Args[1:]); err != nil {
		fmt.Fprintf(os.Stderr, "fixdesk-desktop: %v\n", err)
		os.Exit(1)
	}
}

func run(args []string) error {
	cfg, err := config.Load(args)
	if err != nil {
		return err
	}
	logging.Init(os.Stderr, cfg.LogLevel)
	log := logging.Get()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	core, err := app.New(ctx, app.Options{Config: cfg, Logger: log})
	if err != nil {
		return err
	}
	defer core.Close()

	hub := NewWSHub(log)
	go hub.Run(ctx)
	unfollow := hub.Follow(core.State, time.Now)
	defer unfollow()

	srv := &http.Server{
		Addr:              cfg.ListenAddr,
		Handler:           newRouter(core, hub),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errc := make(chan error, 1)
	go func() {
		log.Info("FixDesk desktop server starting", map[string]interface{}{
			"addr":    cfg.ListenAddr,
			"version": Version,
		})
		errc <- srv.ListenAndServe()
	}()

	select {
	case err := <-errc:
		if !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	case <-ctx.Done():
	}

	log.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

func newRouter(core *app.App, hub *WSHub) *mux.Router {
	r := mux.NewRouter()
	handlers.Register(r, core, Version)
	r.HandleFunc("/ws", HandleWebSocket(hub))
	return r
}
