package config

import (
	"os"

	"gopkg.in/yaml.v3"
)

type Config struct {
	Server  ServerConfig  `yaml:"server"`
	Storage StorageConfig `yaml:"storage"`
	Engine  EngineConfig  `yaml:"engine"`
	System  SystemConfig  `yaml:"system"`
}

type ServerConfig struct {
	Addr    string `yaml:"addr"`     // HTTP Listen Address (e.g. :8080)
	TCPAddr string `yaml:"tcp_addr"` // TCP Listen Address (e.g. :9090)
}

type StorageConfig struct {
	Path           string `yaml:"path"`
	WalBufferSize  int    `yaml:"wal_buffer_size"`
	FlushThreshold int    `yaml:"flush_threshold"` // memtable samples per series before a segment flush
	WalBatchSize   int    `yaml:"wal_batch_size"`
}

type EngineConfig struct {
	MaxRank       int     `yaml:"max_rank"`       // highest tracked delta rank per series
	ReduceEpsilon float64 `yaml:"reduce_epsilon"` // deltas below this are trimmed when capping
	GapThreshold  int     `yaml:"gap_threshold"`  // rank-growth streak treated as a regime change
	HistoryLimit  int     `yaml:"history_limit"`  // samples replayed into memory on recovery
}

type SystemConfig struct {
	ShardCount     int     `yaml:"shard_count"`
	BloomSize      uint    `yaml:"bloom_size"`
	BloomFalseProb float64 `yaml:"bloom_false_prob"`
}

func Load(configPath string) (*Config, error) {
	cfg := &Config{
		Server: ServerConfig{
			Addr:    ":8080",
			TCPAddr: ":9090",
		},
		Storage: StorageConfig{
			Path:           "approx_data",
			WalBufferSize:  5000,
			FlushThreshold: 2000,
			WalBatchSize:   500,
		},
		Engine: EngineConfig{
			MaxRank:       8,
			ReduceEpsilon: 1e-12,
			GapThreshold:  3,
			HistoryLimit:  1024,
		},
		System: SystemConfig{
			ShardCount:     16,
			BloomSize:      100000,
			BloomFalseProb: 0.01,
		},
	}

	if configPath == "" {
		for _, p := range []string{"configs/polyapprox.yaml", "polyapprox.yaml"} {
			data, err := os.ReadFile(p)
			if err == nil {
				if err := yaml.Unmarshal(data, cfg); err != nil {
					return cfg, err
				}
				applyDefaults(cfg)
				return cfg, nil
			}
		}
		applyDefaults(cfg)
		return cfg, nil // no file found: use defaults
	}

	data, err := os.ReadFile(configPath)
	if err != nil {
		return cfg, err
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return cfg, err
	}

	applyDefaults(cfg)
	return cfg, nil
}

func applyDefaults(cfg *Config) {
	if cfg.Storage.FlushThreshold <= 0 {
		cfg.Storage.FlushThreshold = 2000
	}
	if cfg.Storage.WalBatchSize <= 0 {
		cfg.Storage.WalBatchSize = 500
	}
	if cfg.Storage.WalBufferSize <= 0 {
		cfg.Storage.WalBufferSize = 5000
	}
	if cfg.Engine.MaxRank <= 0 {
		cfg.Engine.MaxRank = 8
	}
	if cfg.Engine.ReduceEpsilon < 0 {
		cfg.Engine.ReduceEpsilon = 1e-12
	}
	if cfg.Engine.GapThreshold <= 0 {
		cfg.Engine.GapThreshold = 3
	}
	if cfg.Engine.HistoryLimit <= 0 {
		cfg.Engine.HistoryLimit = 1024
	}
	if cfg.System.ShardCount <= 0 {
		cfg.System.ShardCount = 16
	}
	if cfg.System.BloomSize == 0 {
		cfg.System.BloomSize = 100000
	}
	if cfg.System.BloomFalseProb <= 0 || cfg.System.BloomFalseProb >= 1 {
		cfg.System.BloomFalseProb = 0.01
	}
}
