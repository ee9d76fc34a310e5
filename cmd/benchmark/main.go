// Benchmark compares sample ingestion throughput over the HTTP JSON
// interface and the binary TCP interface against a running server.
package main

import (
	"bytes"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"net/http"
	"time"

	"polyapprox/pkg/client"
)

func main() {
	httpAddr := flag.String("http", "http://127.0.0.1:8080", "http base url")
	tcpAddr := flag.String("tcp", "127.0.0.1:9090", "tcp address")
	n := flag.Int("n", 10000, "samples per run")
	flag.Parse()

	fmt.Printf("ingesting %d samples per transport\n\n", *n)

	httpRate, err := benchHTTP(*httpAddr, *n)
	if err != nil {
		log.Fatalf("http bench: %v", err)
	}
	fmt.Printf("HTTP: %.0f samples/s\n", httpRate)

	tcpRate, err := benchTCP(*tcpAddr, *n)
	if err != nil {
		log.Fatalf("tcp bench: %v", err)
	}
	fmt.Printf("TCP:  %.0f samples/s\n", tcpRate)

	if httpRate > 0 {
		fmt.Printf("\nTCP/HTTP speedup: %.1fx\n", tcpRate/httpRate)
	}
}

func benchHTTP(base string, n int) (float64, error) {
	type observeReq struct {
		Series string  `json:"series"`
		Time   float64 `json:"time"`
		Value  float64 `json:"value"`
	}

	start := time.Now()
	for i := 0; i < n; i++ {
		t := float64(i)
		body, _ := json.Marshal(observeReq{Series: "bench.http", Time: t, Value: t * t})
		resp, err := http.Post(base+"/api/observe", "application/json", bytes.NewReader(body))
		if err != nil {
			return 0, err
		}
		resp.Body.Close()
		if resp.StatusCode != http.StatusOK {
			return 0, fmt.Errorf("status %d at sample %d", resp.StatusCode, i)
		}
	}
	return float64(n) / time.Since(start).Seconds(), nil
}

func benchTCP(addr string, n int) (float64, error) {
	c, err := client.Dial(addr)
	if err != nil {
		return 0, err
	}
	defer c.Close()

	start := time.Now()
	for i := 0; i < n; i++ {
		t := float64(i)
		if err := c.Observe("bench.tcp", t, t*t); err != nil {
			return 0, fmt.Errorf("sample %d: %w", i, err)
		}
	}
	return float64(n) / time.Since(start).Seconds(), nil
}
