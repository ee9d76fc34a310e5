package client

import (
	"net"
	"testing"
	"time"

	"polyapprox/pkg/config"
	"polyapprox/pkg/engine"
	"polyapprox/pkg/network"
)

// startServer runs a TCP server on a random port and returns its
// address.
func startServer(t *testing.T) string {
	t.Helper()

	cfg, err := config.Load("")
	if err != nil {
		t.Fatalf("config: %v", err)
	}
	cfg.Storage.Path = t.TempDir()
	cfg.System.ShardCount = 4

	eng, err := engine.New(cfg)
	if err != nil {
		t.Fatalf("engine: %v", err)
	}
	t.Cleanup(func() { eng.Close() })

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	addr := ln.Addr().String()
	ln.Close()

	srv := network.NewTCPServer(addr, eng)
	go srv.Start()
	t.Cleanup(func() { srv.Stop() })

	return addr
}

func dialRetry(t *testing.T, addr string) *Client {
	t.Helper()
	var c *Client
	var err error
	for i := 0; i < 50; i++ {
		c, err = Dial(addr)
		if err == nil {
			t.Cleanup(func() { c.Close() })
			return c
		}
		time.Sleep(20 * time.Millisecond)
	}
	t.Fatalf("Dial: %v", err)
	return nil
}

func TestObserveExtrapolateRoundTrip(t *testing.T) {
	addr := startServer(t)
	c := dialRetry(t, addr)

	for _, s := range []struct{ t, v float64 }{{0, 0}, {1, 1}, {2, 4}} {
		if err := c.Observe("sq", s.t, s.v); err != nil {
			t.Fatalf("Observe: %v", err)
		}
	}

	got, err := c.Extrapolate("sq", 10)
	if err != nil {
		t.Fatalf("Extrapolate: %v", err)
	}
	if got != 100 {
		t.Fatalf("extrapolated x^2 at 10: got %v, want exactly 100", got)
	}

	coefs, err := c.Coefs("sq", 0)
	if err != nil {
		t.Fatalf("Coefs: %v", err)
	}
	if len(coefs) != 3 || coefs[2] != 1 {
		t.Errorf("coefs: got %v", coefs)
	}
}

func TestHistoryAndForget(t *testing.T) {
	addr := startServer(t)
	c := dialRetry(t, addr)

	for i := 0; i < 5; i++ {
		if err := c.Observe("h", float64(i), float64(i*3)); err != nil {
			t.Fatalf("Observe: %v", err)
		}
	}

	recs, err := c.History("h", 1, 3)
	if err != nil {
		t.Fatalf("History: %v", err)
	}
	if len(recs) != 3 {
		t.Fatalf("history: got %d samples, want 3", len(recs))
	}
	if recs[0].Time != 1 || recs[0].Value != 3 {
		t.Errorf("first sample: %+v", recs[0])
	}

	if err := c.Forget("h"); err != nil {
		t.Fatalf("Forget: %v", err)
	}
	if _, err := c.Extrapolate("h", 10); err == nil {
		t.Error("expected error after Forget")
	}
}

func TestServerErrorSurfaces(t *testing.T) {
	addr := startServer(t)
	c := dialRetry(t, addr)

	if _, err := c.Extrapolate("missing", 1); err == nil {
		t.Error("expected unknown series error")
	}

	// The connection stays usable after an error response
	if err := c.Observe("a", 0, 1); err != nil {
		t.Fatalf("Observe after error: %v", err)
	}
}
