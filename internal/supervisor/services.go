// Muselet - Content Sharing Platform Discovery Service
// Copyright 2026 Muselet Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/muselet/muselet

package supervisor

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/rs/zerolog"
)

// HTTPService runs the HTTP server under supervision. The underlying
// http.Server is rebuilt on every Serve call so a supervised restart
// gets a fresh listener.
type HTTPService struct {
	Addr            string
	Handler         http.Handler
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	ShutdownTimeout time.Duration
	Logger          zerolog.Logger
}

// String names the service in supervisor logs.
func (s *HTTPService) String() string { return "http-server" }

// Serve runs the server until it fails or the context is canceled.
func (s *HTTPService) Serve(ctx context.Context) error {
	srv := &http.Server{
		Addr:         s.Addr,
		Handler:      s.Handler,
		ReadTimeout:  s.ReadTimeout,
		WriteTimeout: s.WriteTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		s.Logger.Info().Str("addr", s.Addr).Msg("http server listening")
		errCh <- srv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), s.shutdownTimeout())
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			s.Logger.Warn().Err(err).Msg("http server shutdown incomplete")
		}
		<-errCh
		return ctx.Err()
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	}
}

func (s *HTTPService) shutdownTimeout() time.Duration {
	if s.ShutdownTimeout > 0 {
		return s.ShutdownTimeout
	}
	return 10 * time.Second
}

// GCService periodically runs Badger value-log garbage collection.
// Badger never reclaims value-log space on its own; this loop is the
// documented way to do it.
type GCService struct {
	DB           *badger.DB
	Interval     time.Duration
	DiscardRatio float64
	Logger       zerolog.Logger
}

// String names the service in supervisor logs.
func (g *GCService) String() string { return "badger-gc" }

// Serve runs the GC loop until the context is canceled.
func (g *GCService) Serve(ctx context.Context) error {
	interval := g.Interval
	if interval <= 0 {
		interval = 10 * time.Minute
	}
	ratio := g.DiscardRatio
	if ratio <= 0 || ratio >= 1 {
		ratio = 0.5
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			rewrites := 0
			for {
				if err := g.DB.RunValueLogGC(ratio); err != nil {
					// ErrNoRewrite means nothing left to reclaim;
					// in-memory databases report GC as unsupported.
					if !errors.Is(err, badger.ErrNoRewrite) {
						g.Logger.Debug().Err(err).Msg("value log gc skipped")
					}
					break
				}
				rewrites++
			}
			if rewrites > 0 {
				g.Logger.Info().Int("rewrites", rewrites).Msg("value log gc reclaimed space")
			}
		}
	}
}
