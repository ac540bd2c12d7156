package main

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// bootstrapConfig is the YAML-shaped cluster bootstrap file loaded by
// `serve`, matching the teacher's cluster-init style of reading a single
// flat config document instead of a tree of flags.
type bootstrapConfig struct {
	ClusterName string   `yaml:"cluster_name"`
	NodeID      string   `yaml:"node_id"`
	BindAddr    string   `yaml:"bind_addr"`
	APIAddr     string   `yaml:"api_addr"`
	DataDir     string   `yaml:"data_dir"`
	Peers       []string `yaml:"peers"`
	Bootstrap   bool     `yaml:"bootstrap"`
}

func defaultConfig() bootstrapConfig {
	return bootstrapConfig{
		ClusterName: "clustermeta",
		NodeID:      "node-1",
		BindAddr:    "127.0.0.1:7946",
		APIAddr:     "127.0.0.1:8080",
		DataDir:     "./clustermeta-data",
		Bootstrap:   true,
	}
}

func loadConfig(path string) (bootstrapConfig, error) {
	cfg := defaultConfig()
	if path == "" {
		return cfg, nil
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("read config %s: %w", path, err)
	}
	if err := yaml.Unmarshal(raw, &cfg); err != nil {
		return cfg, fmt.Errorf("parse config %s: %w", path, err)
	}
	return cfg, nil
}
