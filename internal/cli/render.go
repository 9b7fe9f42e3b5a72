// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package cli

import (
	"fmt"
	"image/color"
	"image/png"
	"log/slog"
	"math"
	"os"
	"time"

	"github.com/google/uuid"
	"github.com/paulmach/orb"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"

	"github.com/gogpu/tilemap/coverage"
	"github.com/gogpu/tilemap/internal/config"
	"github.com/gogpu/tilemap/internal/metrics"
	"github.com/gogpu/tilemap/policy"
	"github.com/gogpu/tilemap/render"
	"github.com/gogpu/tilemap/screen"
	"github.com/gogpu/tilemap/tilerender"
)

const maxSettleRounds = 8

// RenderOptions holds flags for the render command.
type RenderOptions struct {
	*RootOptions
	Output     string
	MetricsOut string
	DragPixels float64
	DragSteps  int

	// Overrides for config values; applied only when set on the command line.
	Width      int
	Height     int
	Lon        float64
	Lat        float64
	Zoom       float64
	Rasterizer string
	Queued     bool
}

// NewRenderCommand creates the render command.
func NewRenderCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &RenderOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "render",
		Short: "Render a view, replay a drag gesture and save the frame",
		Long: `Render the configured view until every tile is available, drag the view
horizontally in --steps frames, let the coverage settle again and write the
final frame as a PNG.

Example:
  tiledemo render -o paris.png --zoom 13
  tiledemo render --queued --rasterizer solid --metrics-out metrics.prom`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runRender(cmd, opts)
		},
	}

	f := cmd.Flags()
	f.StringVarP(&opts.Output, "output", "o", "tiledemo.png", "output PNG file")
	f.StringVar(&opts.MetricsOut, "metrics-out", "", "write Prometheus metrics to this file")
	f.Float64Var(&opts.DragPixels, "drag", 200, "horizontal drag distance in pixels")
	f.IntVar(&opts.DragSteps, "steps", 8, "frames drawn during the drag")
	f.IntVar(&opts.Width, "width", 0, "screen width (overrides config)")
	f.IntVar(&opts.Height, "height", 0, "screen height (overrides config)")
	f.Float64Var(&opts.Lon, "lon", 0, "view center longitude (overrides config)")
	f.Float64Var(&opts.Lat, "lat", 0, "view center latitude (overrides config)")
	f.Float64Var(&opts.Zoom, "zoom", 0, "view zoom (overrides config)")
	f.StringVar(&opts.Rasterizer, "rasterizer", "", "tile source: checker, solid or empty (overrides config)")
	f.BoolVar(&opts.Queued, "queued", false, "publish tiles through the queued renderer (overrides config)")

	return cmd
}

func applyOverrides(cmd *cobra.Command, opts *RenderOptions, cfg *config.Config) {
	f := cmd.Flags()
	if f.Changed("width") {
		cfg.Screen.Width = opts.Width
	}
	if f.Changed("height") {
		cfg.Screen.Height = opts.Height
	}
	if f.Changed("lon") {
		cfg.View.Lon = opts.Lon
	}
	if f.Changed("lat") {
		cfg.View.Lat = opts.Lat
	}
	if f.Changed("zoom") {
		cfg.View.Zoom = opts.Zoom
	}
	if f.Changed("rasterizer") {
		cfg.Render.Rasterizer = opts.Rasterizer
	}
	if f.Changed("queued") {
		cfg.Render.Queued = opts.Queued
	}
}

func newRasterizer(name string) tilerender.Rasterizer {
	switch name {
	case "solid":
		return tilerender.SolidRasterizer{Color: color.RGBA{R: 0xAA, G: 0xD3, B: 0xDF, A: 0xFF}}
	case "empty":
		return tilerender.EmptyRasterizer{}
	default:
		return tilerender.CheckerRasterizer{}
	}
}

func runRender(cmd *cobra.Command, opts *RenderOptions) error {
	cfg, err := config.Load(opts.ConfigPath)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to load config", err)
	}
	applyOverrides(cmd, opts, &cfg)
	if err := cfg.Validate(); err != nil {
		return WrapExitError(ExitCommandError, "invalid configuration", err)
	}
	if opts.DragSteps < 1 {
		return WrapExitError(ExitCommandError, "invalid flags", fmt.Errorf("--steps must be at least 1, got %d", opts.DragSteps))
	}

	runID := uuid.New()
	logger := setupLogger(cfg.Log.Level, opts.Verbose).With("run", runID.String())

	reg := prometheus.NewRegistry()
	metrics.Register(reg)

	bg, _ := config.ParseColor(cfg.Render.Background)
	var platform policy.Platform = policy.HostPlatform{}
	if cfg.Render.Workers > 0 {
		platform = policy.FixedPlatform(cfg.Render.Workers)
	}

	st, err := policy.NewStack(cmd.Context(), policy.StackConfig{
		Width:             cfg.Screen.Width,
		Height:            cfg.Screen.Height,
		Rasterizer:        newRasterizer(cfg.Render.Rasterizer),
		Platform:          platform,
		UseQueuedRenderer: cfg.Render.Queued,
		CacheCapacity:     cfg.Render.CacheCapacity,
		MaxFreeTextures:   cfg.Render.MaxFreeTextures,
		Background:        bg,
	})
	if err != nil {
		return WrapExitError(ExitFailure, "failed to build render stack", err)
	}
	defer st.Close()

	d := &driver{st: st, surf: render.NewPixmapSurface(cfg.Screen.Width, cfg.Screen.Height), log: logger}
	s := screen.New(orb.Point{cfg.View.Lon, cfg.View.Lat}, cfg.View.Zoom,
		cfg.Screen.Width, cfg.Screen.Height, cfg.View.Angle*math.Pi/180)

	d.settle(s)
	s = d.drag(s, opts.DragPixels, opts.DragSteps)
	d.settle(s)

	if err := writePNG(opts.Output, d.surf); err != nil {
		return WrapExitError(ExitFailure, "failed to write image", err)
	}
	if opts.MetricsOut != "" {
		if err := prometheus.WriteToTextfile(opts.MetricsOut, reg); err != nil {
			return WrapExitError(ExitFailure, "failed to write metrics", err)
		}
	}

	pool := st.Resources.Stats()
	_, err = fmt.Fprintf(cmd.OutOrStdout(),
		"run %s: %d frames, tile size %d, draw scale %d, %d tiles cached, %d textures allocated, wrote %s\n",
		runID, d.frames, st.Policy.TileSize(), st.Policy.DrawScale(), st.Cache.Len(), pool.Allocated, opts.Output)
	return err
}

// driver plays frames against a stack the way a host UI loop would.
type driver struct {
	st     *policy.Stack
	surf   *render.PixmapSurface
	log    *slog.Logger
	frames int
}

func (d *driver) frame(s screen.Screen) {
	p := d.st.Policy
	p.BeginFrame(s)
	p.DrawFrame(d.surf, s)
	p.EndFrame(s)
	d.frames++
}

func (d *driver) fence() {
	start := time.Now()
	id := d.st.Policy.InsertBenchmarkFence()
	d.st.Policy.JoinBenchmarkFence(id)
	d.log.Debug("fence joined", "id", int(id), "elapsed", time.Since(start))
}

// settle draws frames until the coverage of s is complete, then draws the
// final frame.
func (d *driver) settle(s screen.Screen) {
	for range maxSettleRounds {
		d.frame(s)
		d.fence()
		d.st.Renderer.Wait()
		d.fence()
		if !d.partial() {
			break
		}
	}
	d.frame(s)
	d.log.Info("view settled", "frames", d.frames, "drawScale", d.st.Policy.DrawScale())
}

func (d *driver) partial() bool {
	partial := true
	d.st.Generator.Guard().With(func(c *coverage.Coverage) {
		partial = c.IsPartial()
	})
	return partial
}

// drag pans the view right to left by dx pixels over steps frames and
// returns the final view.
func (d *driver) drag(s screen.Screen, dx float64, steps int) screen.Screen {
	p := d.st.Policy
	p.StartDrag()
	cur := s
	for i := 1; i <= steps; i++ {
		offset := dx * float64(i) / float64(steps)
		cur = s.WithCenter(s.Unproject(float64(s.Width())/2+offset, float64(s.Height())/2))
		d.frame(cur)
	}
	p.StopDrag()
	d.log.Info("drag finished", "pixels", dx, "frames", steps)
	return cur
}

func writePNG(path string, surf *render.PixmapSurface) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	if err := png.Encode(f, surf.Snapshot()); err != nil {
		_ = f.Close()
		return fmt.Errorf("encode %s: %w", path, err)
	}
	return f.Close()
}
