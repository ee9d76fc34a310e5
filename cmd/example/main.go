// Example drives the engine in-process: feed a quadratic signal,
// extrapolate it forward, inspect its polynomial and diagnostics.
package main

import (
	"fmt"
	"log"
	"os"

	"polyapprox/pkg/config"
	"polyapprox/pkg/engine"
)

func main() {
	cfg, err := config.Load("")
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	dir, err := os.MkdirTemp("", "polyapprox-example")
	if err != nil {
		log.Fatal(err)
	}
	defer os.RemoveAll(dir)
	cfg.Storage.Path = dir

	eng, err := engine.New(cfg)
	if err != nil {
		log.Fatalf("engine: %v", err)
	}
	defer eng.Close()

	fmt.Println("== observing y = x^2 at x = 0, 1, 2 ==")
	for _, s := range []struct{ t, v float64 }{{0, 0}, {1, 1}, {2, 4}} {
		rank, err := eng.Observe("demo", s.t, s.v)
		if err != nil {
			log.Fatalf("observe: %v", err)
		}
		fmt.Printf("  observe(t=%g, v=%g) -> rank %d\n", s.t, s.v, rank)
	}

	v, err := eng.Extrapolate("demo", 10)
	if err != nil {
		log.Fatalf("extrapolate: %v", err)
	}
	fmt.Printf("\nextrapolate(10) = %g\n", v)

	coefs, err := eng.Coefs("demo", 0)
	if err != nil {
		log.Fatalf("coefs: %v", err)
	}
	fmt.Printf("coefs around 0: %v\n", coefs)

	d, err := eng.Derivative("demo", 1, 3)
	if err != nil {
		log.Fatalf("derivative: %v", err)
	}
	fmt.Printf("d/dt at 3: %g\n", d)

	fmt.Println("\n== continuing the signal to x = 9 ==")
	for i := 3; i < 10; i++ {
		x := float64(i)
		if _, err := eng.Observe("demo", x, x*x); err != nil {
			log.Fatalf("observe: %v", err)
		}
	}

	slope, intercept, err := eng.Trend("demo")
	if err != nil {
		log.Fatalf("trend: %v", err)
	}
	fmt.Printf("linear trend: %.2f*t + %.2f\n", slope, intercept)

	points, err := eng.Export("demo")
	if err != nil {
		log.Fatalf("export: %v", err)
	}
	fmt.Println("\nTime,Actual,Fitted,Error")
	for _, p := range points {
		fmt.Printf("%g,%g,%g,%.2g\n", p.Time, p.Actual, p.Fitted, p.Error)
	}

	stats := eng.Stats()
	fmt.Printf("\nstats: %d series, %d observations\n",
		stats["series_count"], stats["observe_count"])
}
