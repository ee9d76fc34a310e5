package main

import (
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"

	"polyapprox/pkg/api"
	"polyapprox/pkg/config"
	"polyapprox/pkg/engine"
	"polyapprox/pkg/network"
)

func main() {
	configPath := flag.String("config", "", "path to config file (default: configs/polyapprox.yaml)")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("[Server] load config: %v", err)
	}

	eng, err := engine.New(cfg)
	if err != nil {
		log.Fatalf("[Server] start engine: %v", err)
	}

	tcpSrv := network.NewTCPServer(cfg.Server.TCPAddr, eng)
	go func() {
		if err := tcpSrv.Start(); err != nil {
			log.Fatalf("[Server] tcp: %v", err)
		}
	}()

	httpSrv := api.NewHTTPServer(cfg.Server.Addr, eng)
	go func() {
		if err := httpSrv.Start(); err != nil {
			log.Fatalf("[Server] http: %v", err)
		}
	}()

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	<-sig

	log.Println("[Server] shutting down")
	tcpSrv.Stop()
	if err := eng.Close(); err != nil {
		log.Printf("[Server] close engine: %v", err)
	}
}
