// Muselet - Content Sharing Platform Discovery Service
// Copyright 2026 Muselet Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/muselet/muselet

package supervisor

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"testing"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/rs/zerolog"
)

// freePort grabs an ephemeral port so parallel test runs do not
// collide.
func freePort(t *testing.T) string {
	t.Helper()
	l, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	addr := l.Addr().String()
	if err := l.Close(); err != nil {
		t.Fatalf("close listener: %v", err)
	}
	return addr
}

func TestHTTPServiceServesAndStops(t *testing.T) {
	addr := freePort(t)
	svc := &HTTPService{
		Addr: addr,
		Handler: http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusNoContent)
		}),
		ShutdownTimeout: time.Second,
		Logger:          zerolog.Nop(),
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- svc.Serve(ctx) }()

	// Wait for the listener to come up.
	url := fmt.Sprintf("http://%s/", addr)
	var resp *http.Response
	var err error
	for i := 0; i < 50; i++ {
		resp, err = http.Get(url)
		if err == nil {
			break
		}
		time.Sleep(20 * time.Millisecond)
	}
	if err != nil {
		t.Fatalf("server never came up: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusNoContent {
		t.Errorf("expected 204, got %d", resp.StatusCode)
	}

	cancel()
	select {
	case err := <-done:
		if !errors.Is(err, context.Canceled) {
			t.Errorf("expected context.Canceled, got %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("service did not stop after cancel")
	}
}

func TestHTTPServiceReportsBindFailure(t *testing.T) {
	// Occupy the port so ListenAndServe fails immediately.
	l, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	defer l.Close()

	svc := &HTTPService{
		Addr:    l.Addr().String(),
		Handler: http.NewServeMux(),
		Logger:  zerolog.Nop(),
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := svc.Serve(ctx); err == nil {
		t.Fatal("expected bind error")
	}
}

func TestGCServiceStopsOnCancel(t *testing.T) {
	opts := badger.DefaultOptions(t.TempDir())
	opts.Logger = nil
	db, err := badger.Open(opts)
	if err != nil {
		t.Fatalf("open badger: %v", err)
	}
	defer db.Close()

	svc := &GCService{
		DB:           db,
		Interval:     10 * time.Millisecond,
		DiscardRatio: 0.5,
		Logger:       zerolog.Nop(),
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- svc.Serve(ctx) }()

	// Let a few GC ticks fire before stopping.
	time.Sleep(50 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		if !errors.Is(err, context.Canceled) {
			t.Errorf("expected context.Canceled, got %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("gc service did not stop after cancel")
	}
}

func TestServiceNames(t *testing.T) {
	if got := (&HTTPService{}).String(); got != "http-server" {
		t.Errorf("unexpected http service name %q", got)
	}
	if got := (&GCService{}).String(); got != "badger-gc" {
		t.Errorf("unexpected gc service name %q", got)
	}
}
