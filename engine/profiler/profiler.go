// Package profiler tracks frame rate, shadow draw calls and memory statistics,
// exporting them as Prometheus metrics and logging a summary at an interval.
package profiler

import (
	"net/http"
	"runtime"
	"time"

	"github.com/Carmen-Shannon/oxy-shadow/engine/logger"
	"github.com/Carmen-Shannon/oxy-shadow/engine/render"
	"github.com/dustin/go-humanize"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "oxy_shadow"

// Profiler tracks frame rate and memory statistics for performance monitoring.
// It implements render.FrameObserver so shadow passes report their draw calls.
type Profiler struct {
	registry *prometheus.Registry
	now      func() time.Time

	frames    prometheus.Counter
	drawCalls prometheus.Counter
	watched   *contextGauges

	frameCount     int
	drawCount      int
	lastTime       time.Time
	updateInterval time.Duration
	memStats       runtime.MemStats
	lastGCCount    uint32
	lastTotalAlloc uint64
}

var _ render.FrameObserver = &Profiler{}

// NewProfiler creates a new Profiler. The update interval defaults to 1 second
// and metrics go to a private registry unless WithRegistry is given.
//
// Parameters:
//   - opts: variadic list of ProfilerBuilderOption functions
//
// Returns:
//   - *Profiler: the newly created profiler instance
func NewProfiler(opts ...ProfilerBuilderOption) *Profiler {
	p := &Profiler{
		now:            time.Now,
		updateInterval: time.Second,
	}
	for _, opt := range opts {
		opt(p)
	}
	if p.registry == nil {
		p.registry = prometheus.NewRegistry()
	}
	p.lastTime = p.now()

	p.frames = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "frames_total",
		Help:      "Frames ticked by the profiler.",
	})
	p.drawCalls = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "draw_calls_total",
		Help:      "Indexed draws issued by shadow passes.",
	})
	p.registry.MustRegister(p.frames, p.drawCalls)

	return p
}

// Watch exports gauges for the image units and geometry bindings held by a
// rendering context. Call it once, from the graphics goroutine, after the
// context is created with the profiler as its frame observer. The gauges are
// refreshed by Tick, so scrapes never touch the context.
//
// Parameters:
//   - ctx: the rendering context to watch
//
// Returns:
//   - error: the registration error if a context is already watched
func (p *Profiler) Watch(ctx render.Context) error {
	g := newContextGauges(ctx)
	if err := g.register(p.registry); err != nil {
		return err
	}
	g.sample()
	p.watched = g
	return nil
}

// ObserveDrawCalls records the draws issued by one shadow pass.
//
// Parameters:
//   - n: the number of draws
func (p *Profiler) ObserveDrawCalls(n int) {
	if n <= 0 {
		return
	}
	p.drawCalls.Add(float64(n))
	p.drawCount += n
}

// Registry returns the registry the profiler's collectors are registered with.
//
// Returns:
//   - *prometheus.Registry: the registry
func (p *Profiler) Registry() *prometheus.Registry {
	return p.registry
}

// Handler serves the profiler's metrics in the Prometheus exposition format.
//
// Returns:
//   - http.Handler: the /metrics handler
func (p *Profiler) Handler() http.Handler {
	return promhttp.HandlerFor(p.registry, promhttp.HandlerOpts{})
}

// Tick should be called once per frame, on the graphics goroutine, to track
// frame timing and refresh the watched context's gauges.
// Logs performance statistics when the update interval has elapsed.
// Statistics include: FPS, draws per frame, heap usage, allocation rate, GC count/pause times, total memory.
//
// Returns:
//   - bool: true if stats were logged this tick, false otherwise
func (p *Profiler) Tick() bool {
	p.frameCount++
	p.frames.Inc()
	if p.watched != nil {
		p.watched.sample()
	}
	currentTime := p.now()
	elapsed := currentTime.Sub(p.lastTime)

	if elapsed < p.updateInterval {
		return false
	}

	fps := float64(p.frameCount) / elapsed.Seconds()
	drawsPerFrame := float64(p.drawCount) / float64(p.frameCount)

	runtime.ReadMemStats(&p.memStats)
	// TotalAlloc only grows, so the delta is the churn since the last report.
	allocDelta := p.memStats.TotalAlloc - p.lastTotalAlloc
	allocRate := uint64(float64(allocDelta) / elapsed.Seconds())

	gcCount := p.memStats.NumGC
	var lastPause, maxPause time.Duration
	if gcCount > 0 {
		// PauseNs is a circular buffer of the last 256 pauses.
		lastPause = time.Duration(p.memStats.PauseNs[(gcCount-1)%256])

		startIdx := p.lastGCCount
		if gcCount-startIdx > 256 {
			startIdx = gcCount - 256
		}
		for i := startIdx; i < gcCount; i++ {
			if pause := time.Duration(p.memStats.PauseNs[i%256]); pause > maxPause {
				maxPause = pause
			}
		}
	}

	logger.Logger().Info("profiler",
		"fps", humanize.FtoaWithDigits(fps, 2),
		"draws_per_frame", humanize.FtoaWithDigits(drawsPerFrame, 1),
		"heap", humanize.IBytes(p.memStats.Alloc),
		"alloc_rate", humanize.IBytes(allocRate)+"/s",
		"gc", gcCount,
		"gc_last_pause", lastPause,
		"gc_max_pause", maxPause,
		"sys", humanize.IBytes(p.memStats.Sys),
	)

	p.frameCount = 0
	p.drawCount = 0
	p.lastTime = currentTime
	p.lastGCCount = gcCount
	p.lastTotalAlloc = p.memStats.TotalAlloc
	return true
}
