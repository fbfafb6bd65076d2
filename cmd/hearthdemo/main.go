// Command hearthdemo renders a generated scene over streamed terrain for a
// fixed number of frames and logs per-frame statistics.
package main

import (
	"flag"
	"fmt"
	"log"
	"log/slog"
	"math"
	"math/rand/v2"
	"os"

	_ "github.com/gogpu/wgpu/hal/allbackends"

	"github.com/hearth-engine/hearth"
	"github.com/hearth-engine/hearth/config"
	"github.com/hearth-engine/hearth/geom"
	"github.com/hearth-engine/hearth/scene"
)

func main() {
	var (
		configPath = flag.String("config", "", "YAML config file (defaults built in)")
		frames     = flag.Int("frames", 120, "frames to render")
		backend    = flag.String("backend", "", "override graphics.backend")
		trace      = flag.String("trace", "", "write a Chrome trace to this file")
		quads      = flag.Int("quads", 2000, "number of generated sprites")
		cubes      = flag.Int("cubes", 200, "number of generated cubes")
		dumpConfig = flag.Bool("dump-config", false, "print the effective config and exit")
		verbose    = flag.Bool("v", false, "debug logging")
	)
	flag.Parse()

	level := slog.LevelInfo
	if *verbose {
		level = slog.LevelDebug
	}
	hearth.SetLogger(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})))

	cfg := config.Default()
	if *configPath != "" {
		var err error
		if cfg, err = config.Load(*configPath); err != nil {
			log.Fatalf("Failed to load config: %v", err)
		}
	}
	if *backend != "" {
		cfg.Graphics.Backend = *backend
	}
	if *trace != "" {
		cfg.Profile.Enabled = true
		cfg.Profile.Output = *trace
	}
	if *dumpConfig {
		out, err := cfg.Marshal()
		if err != nil {
			log.Fatalf("Failed to encode config: %v", err)
		}
		_, _ = os.Stdout.Write(out)
		return
	}

	if err := run(cfg, buildScene(*quads, *cubes), *frames); err != nil {
		log.Fatal(err)
	}
}

func run(cfg *config.Config, s *scene.Static, frames int) error {
	engine, err := hearth.New(hearth.WithConfig(cfg), hearth.WithScene(s))
	if err != nil {
		return fmt.Errorf("start engine: %w", err)
	}
	defer engine.Close()

	for i := range frames {
		orbit(s, float64(i)/60)
		stats, err := engine.Frame()
		if err != nil {
			return err
		}
		if i%30 == 0 || i == frames-1 {
			slog.Info("frame",
				"frame", stats.Frame,
				"duration", stats.Duration,
				"draw_calls", stats.DrawCalls(),
				"quads", stats.Quads.Quads,
				"cubes", stats.Cubes.Cubes,
				"chunks_drawn", stats.Terrain.Drawn,
				"chunks_missing", stats.Terrain.Missing,
				"arena_vertices", stats.MultiDraw.VertexUsed)
		}
	}

	t := engine.Target()
	picked, err := engine.ReadEntity(t.Width()/2, t.Height()/2)
	if err != nil {
		return err
	}
	slog.Info("picked entity at target center", "entity", picked)
	return nil
}

// buildScene scatters sprites, rings and cubes around the origin.
func buildScene(quads, cubes int) *scene.Static {
	rng := rand.New(rand.NewPCG(1, 2)) //nolint:gosec // demo layout
	s := scene.NewStatic()
	s.SetCamera(scene.NewPerspectiveCamera(math.Pi/3, 16.0/9, 0.1, 1000))

	for i := range quads {
		pos := geom.V3(rng.Float32()*200-100, rng.Float32()*10+15, rng.Float32()*200-100)
		tint := geom.Color{R: rng.Float32(), G: rng.Float32(), B: rng.Float32(), A: 1}
		if i%4 == 0 {
			s.AddCircle(geom.Translate(pos), scene.Circle{Color: tint, Thickness: 0.2, Fade: 0.01})
			continue
		}
		s.AddSprite(geom.Translate(pos), scene.Sprite{Tint: tint})
	}
	for range cubes {
		pos := geom.V3(rng.Float32()*200-100, rng.Float32()*5+10, rng.Float32()*200-100)
		transform := geom.Translate(pos).Mul(geom.RotateY(rng.Float32() * math.Pi))
		s.AddCube(transform, scene.Cube{Color: geom.Color{R: 0.8, G: 0.5, B: 0.2, A: 1}})
	}
	return s
}

// orbit moves the camera on a circle above the terrain.
func orbit(s *scene.Static, t float64) {
	cam, _ := s.ActiveCamera()
	const radius = 60
	x, z := float32(radius*math.Cos(t)), float32(radius*math.Sin(t))
	cam.Transform = geom.Translate(geom.V3(x, 30, z)).Mul(geom.RotateY(float32(-t + math.Pi/2)))
	s.SetCamera(cam)
}
