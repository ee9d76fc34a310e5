package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadDefaults(t *testing.T) {
	_, err := Load("/nonexistent/path/polyapprox.yaml")
	if err == nil {
		t.Fatal("expected error for nonexistent path")
	}
	// Load with empty path uses default search (may use defaults if no config file)
	cfg, _ := Load("")
	if cfg.Server.Addr != ":8080" {
		t.Errorf("default addr: got %s", cfg.Server.Addr)
	}
	if cfg.Server.TCPAddr != ":9090" {
		t.Errorf("default tcp_addr: got %s", cfg.Server.TCPAddr)
	}
	if cfg.System.ShardCount != 16 {
		t.Errorf("default shard_count: got %d", cfg.System.ShardCount)
	}
	if cfg.Engine.MaxRank != 8 {
		t.Errorf("default max_rank: got %d", cfg.Engine.MaxRank)
	}
	if cfg.Storage.FlushThreshold != 2000 {
		t.Errorf("default flush_threshold: got %d", cfg.Storage.FlushThreshold)
	}
}

func TestLoadFromFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "test.yaml")
	content := `
server:
  addr: ":9000"
  tcp_addr: ":9001"
storage:
  path: "test_data"
  flush_threshold: 1000
  wal_batch_size: 200
engine:
  max_rank: 5
  gap_threshold: 4
system:
  shard_count: 8
  bloom_size: 50000
`
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Server.Addr != ":9000" {
		t.Errorf("addr: got %s", cfg.Server.Addr)
	}
	if cfg.System.ShardCount != 8 {
		t.Errorf("shard_count: got %d", cfg.System.ShardCount)
	}
	if cfg.Storage.FlushThreshold != 1000 {
		t.Errorf("flush_threshold: got %d", cfg.Storage.FlushThreshold)
	}
	if cfg.Storage.WalBatchSize != 200 {
		t.Errorf("wal_batch_size: got %d", cfg.Storage.WalBatchSize)
	}
	if cfg.Engine.MaxRank != 5 {
		t.Errorf("max_rank: got %d", cfg.Engine.MaxRank)
	}
	if cfg.Engine.GapThreshold != 4 {
		t.Errorf("gap_threshold: got %d", cfg.Engine.GapThreshold)
	}
	// Unset fields fall back to defaults
	if cfg.Engine.HistoryLimit != 1024 {
		t.Errorf("history_limit default: got %d", cfg.Engine.HistoryLimit)
	}
}
