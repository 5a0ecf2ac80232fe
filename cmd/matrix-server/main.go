// Command matrix-server serves batch control over HTTP using the same
// persisted settings as the desktop application.
package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"video-matrix/internal/api"
	"video-matrix/internal/bootstrap"
	"video-matrix/internal/config"
)

func main() {
	if err := config.LoadEnv(); err != nil {
		log.Fatalf("load env: %v", err)
	}

	app, err := bootstrap.New()
	if err != nil {
		log.Fatalf("bootstrap app: %v", err)
	}

	origins := strings.Split(os.Getenv(config.EnvAllowedOrigins), ",")
	srv := &http.Server{
		Addr:              config.HTTPAddr(nil),
		Handler:           api.NewRouter(api.NewHandler(app), origins),
		ReadHeaderTimeout: 10 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := app.StopBatch(); err == nil {
			log.Printf("stopped running batch")
		}
		_ = srv.Shutdown(shutdownCtx)
	}()

	log.Printf("video-matrix server listening on %s", srv.Addr)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		log.Fatalf("serve: %v", err)
	}
}
