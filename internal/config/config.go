package config

import (
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/santhosh-tekuri/jsonschema/v5"
	"gopkg.in/yaml.v3"

	"voxelworld/internal/stream"
	"voxelworld/internal/worker"
	"voxelworld/internal/world"
)

//go:embed schema.json
var schemaSource string

// Duration is a JSON and YAML friendly wrapper around time.Duration that
// accepts human readable strings such as "150ms" in configuration files while
// still allowing numeric representations when necessary.
type Duration time.Duration

// Duration returns the underlying time.Duration value.
func (d Duration) Duration() time.Duration {
	return time.Duration(d)
}

// MarshalJSON encodes the duration using the canonical string representation.
func (d Duration) MarshalJSON() ([]byte, error) {
	return json.Marshal(time.Duration(d).String())
}

// UnmarshalJSON decodes a duration from either a string (e.g. "250ms") or a
// numeric value representing nanoseconds. Empty strings and null values decode
// to zero.
func (d *Duration) UnmarshalJSON(b []byte) error {
	if len(b) == 0 {
		return fmt.Errorf("duration: empty value")
	}
	if string(b) == "null" {
		*d = 0
		return nil
	}
	if b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return fmt.Errorf("duration: decode string: %w", err)
		}
		return d.parse(s)
	}
	var n int64
	if err := json.Unmarshal(b, &n); err == nil {
		*d = Duration(time.Duration(n))
		return nil
	}
	var f float64
	if err := json.Unmarshal(b, &f); err == nil {
		*d = Duration(time.Duration(f))
		return nil
	}
	return fmt.Errorf("duration: invalid value %s", string(b))
}

// MarshalYAML encodes the duration as its string form.
func (d Duration) MarshalYAML() (interface{}, error) {
	return time.Duration(d).String(), nil
}

// UnmarshalYAML accepts the same forms as UnmarshalJSON.
func (d *Duration) UnmarshalYAML(node *yaml.Node) error {
	if node.Kind != yaml.ScalarNode {
		return fmt.Errorf("duration: expected scalar at line %d", node.Line)
	}
	switch node.Tag {
	case "!!null":
		*d = 0
		return nil
	case "!!int":
		var n int64
		if err := node.Decode(&n); err != nil {
			return fmt.Errorf("duration: decode int: %w", err)
		}
		*d = Duration(time.Duration(n))
		return nil
	case "!!float":
		var f float64
		if err := node.Decode(&f); err != nil {
			return fmt.Errorf("duration: decode float: %w", err)
		}
		*d = Duration(time.Duration(f))
		return nil
	}
	return d.parse(node.Value)
}

func (d *Duration) parse(s string) error {
	if s == "" {
		*d = 0
		return nil
	}
	parsed, err := time.ParseDuration(s)
	if err != nil {
		return fmt.Errorf("duration: parse %q: %w", s, err)
	}
	*d = Duration(parsed)
	return nil
}

// Config captures the tunable parameters of the voxel world process.
type Config struct {
	World     WorldConfig     `json:"world" yaml:"world"`
	Streaming StreamingConfig `json:"streaming" yaml:"streaming"`
	Workers   WorkerConfig    `json:"workers" yaml:"workers"`
	Render    RenderConfig    `json:"render" yaml:"render"`
	Metrics   MetricsConfig   `json:"metrics" yaml:"metrics"`
}

type WorldConfig struct {
	Seed       int64 `json:"seed" yaml:"seed"`
	ChunkSize  int   `json:"chunkSize" yaml:"chunkSize"`
	Height     int   `json:"height" yaml:"height"`
	WaterLevel int   `json:"waterLevel" yaml:"waterLevel"`
}

type StreamingConfig struct {
	HighDetailRadius      int      `json:"highDetailRadius" yaml:"highDetailRadius"`           // meshed chunks
	LowDetailRadius       int      `json:"lowDetailRadius" yaml:"lowDetailRadius"`             // summaries beyond the high ring
	ShadowRadius          int      `json:"shadowRadius" yaml:"shadowRadius"`                   // shadow casting subset of the high ring
	EvictionBuffer        int      `json:"evictionBuffer" yaml:"evictionBuffer"`               // slack before chunks are dropped
	MaxRequestsPerTick    int      `json:"maxRequestsPerTick" yaml:"maxRequestsPerTick"`       // generation admissions per tick
	MaxSpiralStepsPerTick int      `json:"maxSpiralStepsPerTick" yaml:"maxSpiralStepsPerTick"` // scan iterations per tick
	MaxMeshesPerTick      int      `json:"maxMeshesPerTick" yaml:"maxMeshesPerTick"`
	TickRate              Duration `json:"tickRate" yaml:"tickRate"` // e.g. "16ms"
}

type WorkerConfig struct {
	Count     int `json:"count" yaml:"count"` // 0 uses GOMAXPROCS
	QueueSize int `json:"queueSize" yaml:"queueSize"`
}

type RenderConfig struct {
	Listen       string   `json:"listen" yaml:"listen"` // empty disables the websocket hub
	Path         string   `json:"path" yaml:"path"`
	Compress     bool     `json:"compress" yaml:"compress"`
	SendBuffer   int      `json:"sendBuffer" yaml:"sendBuffer"` // frames queued per session before it is dropped
	WriteTimeout Duration `json:"writeTimeout" yaml:"writeTimeout"`
}

type MetricsConfig struct {
	Listen string `json:"listen" yaml:"listen"` // empty disables the endpoint
	Path   string `json:"path" yaml:"path"`
}

// Load reads configuration from a JSON or YAML file if provided. An empty
// path returns defaults. Fields missing from the file keep their defaults.
func Load(path string) (*Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open config: %w", err)
	}
	defer f.Close()

	data, err := io.ReadAll(f)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}

	if err := Decode(data, isYAML(path), cfg); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}
	return cfg, nil
}

// Decode checks a raw document against the config schema and decodes it
// over cfg.
func Decode(data []byte, asYAML bool, cfg *Config) error {
	doc, err := document(data, asYAML)
	if err != nil {
		return fmt.Errorf("parse config: %w", err)
	}
	if err := checkSchema(doc); err != nil {
		return fmt.Errorf("config schema: %w", err)
	}
	if asYAML {
		err = yaml.Unmarshal(data, cfg)
	} else {
		err = json.Unmarshal(data, cfg)
	}
	if err != nil {
		return fmt.Errorf("parse config: %w", err)
	}
	return nil
}

func isYAML(path string) bool {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return true
	}
	return false
}

// document converts the raw file into the generic JSON value form the schema
// validator expects.
func document(data []byte, asYAML bool) (interface{}, error) {
	if asYAML {
		var raw interface{}
		if err := yaml.Unmarshal(data, &raw); err != nil {
			return nil, err
		}
		if raw == nil {
			raw = map[string]interface{}{}
		}
		converted, err := json.Marshal(raw)
		if err != nil {
			return nil, err
		}
		data = converted
	}
	var doc interface{}
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, err
	}
	return doc, nil
}

func checkSchema(doc interface{}) error {
	schema, err := jsonschema.CompileString("voxelworld-config.json", schemaSource)
	if err != nil {
		return fmt.Errorf("compile schema: %w", err)
	}
	return schema.Validate(doc)
}

func Default() *Config {
	return &Config{
		World: WorldConfig{
			Seed:       1337,
			ChunkSize:  16,
			Height:     128,
			WaterLevel: 40,
		},
		Streaming: StreamingConfig{
			HighDetailRadius:      6,
			LowDetailRadius:       10,
			ShadowRadius:          3,
			EvictionBuffer:        2,
			MaxRequestsPerTick:    8,
			MaxSpiralStepsPerTick: 256,
			MaxMeshesPerTick:      6,
			TickRate:              Duration(16 * time.Millisecond),
		},
		Workers: WorkerConfig{
			Count:     0,
			QueueSize: 64,
		},
		Render: RenderConfig{
			Listen:       ":18080",
			Path:         "/ws",
			Compress:     true,
			SendBuffer:   256,
			WriteTimeout: Duration(5 * time.Second),
		},
		Metrics: MetricsConfig{
			Listen: ":18081",
			Path:   "/metrics",
		},
	}
}

func (c *Config) Validate() error {
	if c.World.ChunkSize <= 0 || c.World.Height <= 0 {
		return errors.New("world dimensions must be positive")
	}
	if c.World.Height < 8 {
		return errors.New("world.height must be at least 8")
	}
	if c.World.WaterLevel <= 2 || c.World.WaterLevel >= c.World.Height-2 {
		return errors.New("world.waterLevel must lie inside the world height")
	}
	s := c.Streaming
	if s.HighDetailRadius < 0 || s.LowDetailRadius < 0 || s.ShadowRadius < 0 {
		return errors.New("streaming radii cannot be negative")
	}
	if s.ShadowRadius > s.HighDetailRadius {
		return errors.New("streaming.shadowRadius must be <= highDetailRadius")
	}
	if s.EvictionBuffer < 0 {
		return errors.New("streaming.evictionBuffer cannot be negative")
	}
	if s.MaxRequestsPerTick <= 0 || s.MaxMeshesPerTick <= 0 {
		return errors.New("streaming per tick limits must be positive")
	}
	if s.MaxSpiralStepsPerTick < s.MaxRequestsPerTick {
		return errors.New("streaming.maxSpiralStepsPerTick must be >= maxRequestsPerTick")
	}
	if s.TickRate <= 0 {
		return errors.New("streaming.tickRate must be positive")
	}
	if c.Workers.Count < 0 || c.Workers.QueueSize < 0 {
		return errors.New("workers.count and workers.queueSize cannot be negative")
	}
	if c.Render.Listen != "" {
		if !strings.HasPrefix(c.Render.Path, "/") {
			return errors.New("render.path must start with /")
		}
		if c.Render.SendBuffer <= 0 {
			return errors.New("render.sendBuffer must be positive")
		}
	}
	if c.Metrics.Listen != "" && !strings.HasPrefix(c.Metrics.Path, "/") {
		return errors.New("metrics.path must start with /")
	}
	if c.Render.Listen != "" && c.Render.Listen == c.Metrics.Listen {
		return errors.New("render.listen and metrics.listen must differ")
	}
	return nil
}

// Params derives the immutable generation parameters. Height dependent
// bands keep their default offsets from the water level.
func (c *Config) Params() world.Params {
	p := world.DefaultParams(c.World.Seed)
	shift := c.World.WaterLevel - p.WaterLevel
	p.ChunkSize = c.World.ChunkSize
	p.Height = c.World.Height
	p.WaterLevel = c.World.WaterLevel
	p.RiverBed = clamp(p.RiverBed+shift, 2, p.WaterLevel-1)
	p.MountainLine = clamp(p.MountainLine+shift, p.WaterLevel+1, p.Height-2)
	p.SnowLine = clamp(p.SnowLine+shift, p.MountainLine, p.Height-2)
	return p
}

// StreamOptions builds the streamer limits for params.
func (c *Config) StreamOptions(params world.Params) stream.Options {
	s := c.Streaming
	return stream.Options{
		Params:                params,
		HighDetailRadius:      s.HighDetailRadius,
		LowDetailRadius:       s.LowDetailRadius,
		ShadowRadius:          s.ShadowRadius,
		EvictionBuffer:        s.EvictionBuffer,
		MaxRequestsPerTick:    s.MaxRequestsPerTick,
		MaxSpiralStepsPerTick: s.MaxSpiralStepsPerTick,
		MaxMeshesPerTick:      s.MaxMeshesPerTick,
	}
}

func (c *Config) WorkerOptions() worker.Options {
	return worker.Options{Workers: c.Workers.Count, QueueSize: c.Workers.QueueSize}
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
