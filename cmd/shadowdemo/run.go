package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/Carmen-Shannon/oxy-shadow/common"
	"github.com/Carmen-Shannon/oxy-shadow/engine/gpu"
	"github.com/Carmen-Shannon/oxy-shadow/engine/logger"
	"github.com/Carmen-Shannon/oxy-shadow/engine/profiler"
	"github.com/Carmen-Shannon/oxy-shadow/engine/render"
	"github.com/Carmen-Shannon/oxy-shadow/engine/shader"
	"github.com/Carmen-Shannon/oxy-shadow/engine/shadow"
	"github.com/Carmen-Shannon/oxy-shadow/engine/texture"
	"github.com/Carmen-Shannon/oxy-shadow/engine/window"
	"github.com/cogentcore/webgpu/wgpu"
)

const shutdownTimeout = 5 * time.Second

var lightUp = common.Vec3{0, 1, 0}

// demo holds everything a frame needs.
type demo struct {
	cfg      *Config
	ctx      render.Context
	prof     *profiler.Profiler
	program  shader.Program
	scene    *scene
	geoms    []render.Geometry
	shadow   shadow.ShadowMap
	textures []texture.Texture
	frame    int
}

func run(ctx context.Context, cfg *Config, logOut io.Writer) error {
	level, err := cfg.Level()
	if err != nil {
		return err
	}
	logger.SetLogger(slog.New(slog.NewTextHandler(logOut, &slog.HandlerOptions{Level: level})))
	log := logger.Logger()

	var win window.Window
	if !cfg.Headless {
		api := window.APIOpenGL
		if cfg.Backend == BackendWGPU {
			api = window.APIWebGPU
		}
		win, err = window.NewWindow(
			window.WithTitle("oxy-shadow"),
			window.WithAPI(api),
			window.WithSize(cfg.Width, cfg.Height),
		)
		if err != nil {
			return err
		}
		defer func() {
			if err := win.Close(); err != nil && !errors.Is(err, window.ErrNotInitialized) {
				log.Warn("failed to close window", "error", err)
			}
		}()
	}

	device, err := openDevice(cfg, win)
	if err != nil {
		return err
	}

	d := &demo{cfg: cfg, prof: profiler.NewProfiler()}
	d.ctx = render.NewContext(device,
		render.WithMaxImageUnits(cfg.MaxUnits),
		render.WithFrameObserver(d.prof),
	)
	defer d.ctx.Dispose()
	if err := d.prof.Watch(d.ctx); err != nil {
		return err
	}

	if cfg.MetricsAddr != "" {
		stop := serveMetrics(cfg.MetricsAddr, d.prof.Handler())
		defer stop()
	}

	defer d.teardown()
	if err := d.setup(); err != nil {
		return err
	}

	if cfg.Headless {
		for range cfg.Frames {
			if err := ctx.Err(); err != nil {
				return nil
			}
			if err := d.drawFrame(); err != nil {
				return err
			}
		}
		return nil
	}

	var frameErr error
	win.SetUpdateCallback(func() {
		if ctx.Err() != nil || frameErr != nil || (cfg.Frames > 0 && d.frame >= cfg.Frames) {
			win.RequestClose()
			return
		}
		frameErr = d.drawFrame()
	})
	win.SetKeyDownCallback(func(key uint32) {
		log.Debug("key", "code", key, "frame", d.frame)
	})
	win.SetResizeCallback(func(width, height int) {
		log.Debug("resize", "width", width, "height", height)
	})
	win.ProcessMessages()
	return frameErr
}

func openDevice(cfg *Config, win window.Window) (gpu.Device, error) {
	switch cfg.Backend {
	case BackendWGPU:
		var surface *wgpu.SurfaceDescriptor
		if win != nil {
			surface = win.SurfaceDescriptor()
		}
		return gpu.NewWGPUDevice(surface, false)
	default:
		return gpu.NewGLDevice()
	}
}

func (d *demo) setup() error {
	log := logger.Logger()

	if len(d.cfg.Textures) > 0 {
		textures, err := texture.LoadAll(d.ctx, d.cfg.Textures, texture.WithDecodeWorkers(d.cfg.Decoders))
		if err != nil {
			return err
		}
		d.textures = textures
		for _, t := range textures {
			log.Info("texture loaded", "label", t.Label(), "unit", t.Unit(), "width", t.Width(), "height", t.Height())
		}
	}

	program, err := shader.NewDepthProgram(d.ctx)
	if err != nil {
		return err
	}
	d.program = program

	d.scene, err = buildScene(d.ctx, d.cfg.Grid)
	if err != nil {
		return err
	}
	d.geoms = d.scene.geometries()

	position, forward := d.scene.lightPosition(0)
	d.shadow, err = shadow.NewShadowMap(d.ctx, program,
		shadow.WithLabel("sun"),
		shadow.WithResolution(d.cfg.Resolution),
		shadow.WithProjection(d.scene.lightProjection()),
		shadow.WithView(position, forward, lightUp),
	)
	if err != nil {
		return err
	}
	for _, g := range d.geoms {
		if err := d.shadow.RegisterGeometry(g); err != nil {
			return err
		}
	}

	log.Info("scene ready",
		"backend", d.cfg.Backend,
		"geometry", len(d.geoms),
		"shadow_map", fmt.Sprintf("%dx%d", d.shadow.Width(), d.shadow.Height()),
		"units_in_use", d.ctx.Units().Len(),
	)
	return nil
}

// drawFrame moves the light and renders one shadow pass.
func (d *demo) drawFrame() error {
	d.frame++
	position, forward := d.scene.lightPosition(d.frame)
	d.shadow.SetView(position, forward, lightUp)

	d.shadow.BindDepthProgram()
	if err := d.shadow.DrawPass(d.geoms); err != nil {
		return fmt.Errorf("frame %d: %w", d.frame, err)
	}
	d.prof.Tick()
	return nil
}

// teardown releases what setup created, newest first. Context.Dispose only
// reclaims image units and vertex bindings, not buffers or programs.
func (d *demo) teardown() {
	if d.shadow != nil {
		d.shadow.Dispose()
	}
	if d.scene != nil {
		d.scene.dispose()
	}
	if d.program != nil {
		d.program.Dispose()
	}
	for _, t := range d.textures {
		t.Dispose()
	}
}

// serveMetrics serves handler on /metrics until the returned stop is called.
func serveMetrics(addr string, handler http.Handler) (stop func()) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", handler)
	srv := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: shutdownTimeout}

	go func() {
		logger.Logger().Info("serving metrics", "addr", addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Logger().Error("metrics server failed", "error", err)
		}
	}()

	return func() {
		ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(ctx); err != nil {
			logger.Logger().Warn("metrics server shutdown", "error", err)
		}
	}
}
