// Package main runs the development identity and policy endpoint.
package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/goliatone/go-auth-client/internal/devserver"
	"github.com/goliatone/go-logger/glog"
)

func main() {
	addr := flag.String("addr", "127.0.0.1:8572", "listen address")
	accessTTL := flag.Duration("access-ttl", devserver.DefaultAccessTTL, "access token lifetime")
	refreshTTL := flag.Duration("refresh-ttl", devserver.DefaultRefreshTTL, "refresh token lifetime")
	signingKey := flag.String("signing-key", os.Getenv("AUTHCLIENT_DEVSERVER_KEY"), "HS256 signing key")
	seed := flag.Bool("seed", true, "load the demo organization")
	flag.Parse()

	logger := glog.NewLogger(
		glog.WithName("devserver"),
		glog.WithLoggerTypePretty(),
		glog.WithAddSource(false),
	)

	srv := devserver.New(
		devserver.WithLogger(logger),
		devserver.WithAccessTTL(*accessTTL),
		devserver.WithRefreshTTL(*refreshTTL),
		devserver.WithSigningKey([]byte(*signingKey)),
	)

	if *seed {
		if err := srv.Seed(); err != nil {
			logger.Fatal("failed to seed devserver", "error", err)
		}
		logger.Info("seeded demo organization", "users", []string{"admin@example.com", "viewer@example.com"})
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	go func() {
		<-ctx.Done()
		shutdown := make(chan struct{})
		go func() {
			if err := srv.Shutdown(); err != nil {
				logger.Error("devserver shutdown failed", "error", err)
			}
			close(shutdown)
		}()
		select {
		case <-shutdown:
		case <-time.After(5 * time.Second):
			logger.Warn("devserver shutdown timed out")
		}
	}()

	if err := srv.Listen(*addr); err != nil {
		logger.Fatal("devserver stopped", "error", err)
	}
}
