package profiler

import (
	"github.com/Carmen-Shannon/oxy-shadow/engine/render"
	"github.com/prometheus/client_golang/prometheus"
)

// contextGauges mirrors the occupancy of a rendering context into gauges.
// The context is only read by sample, which runs on the graphics goroutine;
// scrapes read the gauges.
type contextGauges struct {
	ctx              render.Context
	unitsInUse       prometheus.Gauge
	geometryBindings prometheus.Gauge
}

func newContextGauges(ctx render.Context) *contextGauges {
	return &contextGauges{
		ctx: ctx,
		unitsInUse: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "image_units_in_use",
			Help:      "Image units currently held by textures.",
		}),
		geometryBindings: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "geometry_bindings",
			Help:      "Geometry with a cached vertex binding.",
		}),
	}
}

func (g *contextGauges) register(reg prometheus.Registerer) error {
	if err := reg.Register(g.unitsInUse); err != nil {
		return err
	}
	if err := reg.Register(g.geometryBindings); err != nil {
		reg.Unregister(g.unitsInUse)
		return err
	}
	return nil
}

func (g *contextGauges) sample() {
	g.unitsInUse.Set(float64(g.ctx.Units().Len()))
	g.geometryBindings.Set(float64(g.ctx.Geometries().Len()))
}
