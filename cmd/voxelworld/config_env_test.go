package main

import (
	"encoding/base64"
	"path/filepath"
	"testing"

	"gopkg.in/yaml.v3"

	"voxelworld/internal/config"
)

func TestWriteConfigFromEnvJSON(t *testing.T) {
	t.Setenv(envConfigYAMLB64, "")
	t.Setenv(envConfigJSON, `{"world":{"seed":99},"render":{"compress":false}}`)

	path := filepath.Join(t.TempDir(), "nested", "config.json")
	wrote, err := writeConfigFromEnv(path)
	if err != nil {
		t.Fatalf("writeConfigFromEnv: %v", err)
	}
	if !wrote {
		t.Fatalf("expected config to be written")
	}

	cfg, err := config.Load(path)
	if err != nil {
		t.Fatalf("load written config: %v", err)
	}
	if cfg.World.Seed != 99 {
		t.Fatalf("unexpected seed: %d", cfg.World.Seed)
	}
	if cfg.Render.Compress {
		t.Fatalf("expected compression to be disabled")
	}
	if cfg.World.ChunkSize != config.Default().World.ChunkSize {
		t.Fatalf("missing fields should keep defaults, got chunk size %d", cfg.World.ChunkSize)
	}
}

func TestWriteConfigFromEnvYAML(t *testing.T) {
	cfg := config.Default()
	cfg.World.Seed = 7
	cfg.Streaming.HighDetailRadius = 4
	data, err := yaml.Marshal(cfg)
	if err != nil {
		t.Fatalf("marshal yaml: %v", err)
	}
	t.Setenv(envConfigJSON, "")
	t.Setenv(envConfigYAMLB64, base64.StdEncoding.EncodeToString(data))

	path := filepath.Join(t.TempDir(), "config.json")
	wrote, err := writeConfigFromEnv(path)
	if err != nil {
		t.Fatalf("writeConfigFromEnv: %v", err)
	}
	if !wrote {
		t.Fatalf("expected config to be written")
	}

	loaded, err := config.Load(path)
	if err != nil {
		t.Fatalf("load written config: %v", err)
	}
	if loaded.World.Seed != 7 || loaded.Streaming.HighDetailRadius != 4 {
		t.Fatalf("unexpected config: %+v", loaded)
	}
	if loaded.Streaming.TickRate != cfg.Streaming.TickRate {
		t.Fatalf("tick rate = %v, want %v", loaded.Streaming.TickRate, cfg.Streaming.TickRate)
	}
}

func TestWriteConfigFromEnvNoPayload(t *testing.T) {
	t.Setenv(envConfigJSON, "")
	t.Setenv(envConfigYAMLB64, "")

	wrote, err := writeConfigFromEnv(filepath.Join(t.TempDir(), "unused.json"))
	if err != nil {
		t.Fatalf("writeConfigFromEnv: %v", err)
	}
	if wrote {
		t.Fatalf("expected no config to be written")
	}
}

func TestWriteConfigFromEnvErrors(t *testing.T) {
	tests := []struct {
		name string
		json string
		yaml string
		path string
	}{
		{name: "no path", json: `{}`, path: ""},
		{name: "unknown field", json: `{"world":{"colour":"red"}}`, path: "x.json"},
		{name: "bad base64", yaml: "%%%", path: "x.json"},
		{name: "invalid values", json: `{"streaming":{"shadowRadius":40}}`, path: "x.json"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv(envConfigJSON, tt.json)
			t.Setenv(envConfigYAMLB64, tt.yaml)
			path := tt.path
			if path != "" {
				path = filepath.Join(t.TempDir(), path)
			}
			if _, err := writeConfigFromEnv(path); err == nil {
				t.Fatalf("expected error")
			}
		})
	}
}

func TestStartupSummary(t *testing.T) {
	cfg := config.Default()
	cfg.World.Seed = 7
	cfg.Render.Listen = "127.0.0.1:9000"
	cfg.Metrics.Listen = ""

	got := startupSummary(cfg)
	want := "seed 7, chunks 16x128, water level 40, renderers on 127.0.0.1:9000/ws, metrics disabled"
	if got != want {
		t.Fatalf("startupSummary = %q, want %q", got, want)
	}
}
