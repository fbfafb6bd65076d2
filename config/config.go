// Package config loads engine settings from YAML.
//
// Every field has a default (see Default), and a file only needs to name
// the values it changes:
//
//	graphics:
//	  backend: vulkan
//	  max_quads: 20000
//	terrain:
//	  view_distance: 6
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/hearth-engine/hearth/gfx"
)

// Config holds all engine configuration values.
type Config struct {
	Window    WindowConfig    `yaml:"window"`
	Graphics  GraphicsConfig  `yaml:"graphics"`
	Threading ThreadingConfig `yaml:"threading"`
	Terrain   TerrainConfig   `yaml:"terrain"`
	Profile   ProfileConfig   `yaml:"profile"`
}

// WindowConfig is the initial render target size.
type WindowConfig struct {
	Width  int `yaml:"width"`
	Height int `yaml:"height"`
}

// GraphicsConfig selects the GPU backend and sizes the batch renderers.
type GraphicsConfig struct {
	Backend      string    `yaml:"backend"`
	MaxQuads     int       `yaml:"max_quads"`
	MaxCircles   int       `yaml:"max_circles"`
	MaxCubes     int       `yaml:"max_cubes"`
	TextureSlots int       `yaml:"texture_slots"`
	ClearColor   []float32 `yaml:"clear_color"`
}

// ThreadingConfig sizes the worker pool. Zero workers means GOMAXPROCS.
type ThreadingConfig struct {
	Workers int `yaml:"workers"`
}

// TerrainConfig controls chunk streaming.
type TerrainConfig struct {
	Enabled      bool      `yaml:"enabled"`
	Seed         int64     `yaml:"seed"`
	ChunkSize    int       `yaml:"chunk_size"`
	ViewDistance int       `yaml:"view_distance"`
	LODDistances []float32 `yaml:"lod_distances"`
	CacheSize    int       `yaml:"cache_size"`
	ArenaMiB     int       `yaml:"arena_mib"`
	Amplitude    float32   `yaml:"amplitude"`
}

// ProfileConfig controls trace output.
type ProfileConfig struct {
	Enabled bool   `yaml:"enabled"`
	Output  string `yaml:"output"`
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		Window: WindowConfig{Width: 1280, Height: 720},
		Graphics: GraphicsConfig{
			Backend:      "auto",
			MaxQuads:     10000,
			MaxCircles:   10000,
			MaxCubes:     1000,
			TextureSlots: 16,
			ClearColor:   []float32{0.1, 0.1, 0.12, 1},
		},
		Terrain: TerrainConfig{
			Enabled:      true,
			Seed:         1337,
			ChunkSize:    32,
			ViewDistance: 4,
			LODDistances: []float32{64, 128, 256},
			CacheSize:    16,
			ArenaMiB:     32,
			Amplitude:    12,
		},
		Profile: ProfileConfig{Output: "hearth-trace.json"},
	}
}

// Load reads and parses the YAML file at path on top of Default.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	return Parse(data)
}

// MustLoad is Load that panics on error.
func MustLoad(path string) *Config {
	cfg, err := Load(path)
	if err != nil {
		panic("config: " + err.Error())
	}
	return cfg
}

// Parse decodes YAML on top of Default and validates the result.
// Unknown fields are rejected.
func Parse(data []byte) (*Config, error) {
	cfg := Default()
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Marshal encodes cfg as YAML.
func (c *Config) Marshal() ([]byte, error) {
	return yaml.Marshal(c)
}

// Validate checks value ranges and the backend name.
func (c *Config) Validate() error {
	var errs []error
	if c.Window.Width <= 0 || c.Window.Height <= 0 {
		errs = append(errs, fmt.Errorf("window size %dx%d must be positive", c.Window.Width, c.Window.Height))
	}
	if _, err := gfx.ParseBackend(c.Graphics.Backend); err != nil {
		errs = append(errs, err)
	}
	if c.Graphics.MaxQuads <= 0 || c.Graphics.MaxCircles <= 0 || c.Graphics.MaxCubes <= 0 {
		errs = append(errs, errors.New("batch capacities must be positive"))
	}
	if c.Graphics.TextureSlots < 2 {
		errs = append(errs, fmt.Errorf("texture_slots %d: need at least 2 (white + one texture)", c.Graphics.TextureSlots))
	}
	if n := len(c.Graphics.ClearColor); n != 0 && n != 4 {
		errs = append(errs, fmt.Errorf("clear_color has %d components, want 4", n))
	}
	if c.Threading.Workers < 0 {
		errs = append(errs, fmt.Errorf("workers %d must not be negative", c.Threading.Workers))
	}
	if c.Terrain.Enabled {
		if c.Terrain.ChunkSize < 2 || c.Terrain.ChunkSize&(c.Terrain.ChunkSize-1) != 0 {
			errs = append(errs, fmt.Errorf("terrain chunk_size %d must be a power of two >= 2", c.Terrain.ChunkSize))
		}
		if c.Terrain.ViewDistance < 0 {
			errs = append(errs, fmt.Errorf("terrain view_distance %d must not be negative", c.Terrain.ViewDistance))
		}
		for i := 1; i < len(c.Terrain.LODDistances); i++ {
			if c.Terrain.LODDistances[i] <= c.Terrain.LODDistances[i-1] {
				errs = append(errs, errors.New("terrain lod_distances must increase"))
				break
			}
		}
		if c.Terrain.ArenaMiB <= 0 {
			errs = append(errs, fmt.Errorf("terrain arena_mib %d must be positive", c.Terrain.ArenaMiB))
		}
	}
	if err := errors.Join(errs...); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	return nil
}
