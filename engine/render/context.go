package render

import (
	"github.com/Carmen-Shannon/oxy-shadow/engine/gpu"
	"github.com/Carmen-Shannon/oxy-shadow/engine/logger"
	"github.com/Carmen-Shannon/oxy-shadow/engine/slot"
)

// contextImpl is the implementation of the Context interface.
type contextImpl struct {
	device     gpu.Device
	units      slot.Allocator[Resource]
	geometries GeometryCache
	observer   FrameObserver

	maxUnits int
	disposed bool
}

// Context owns the device and the state resource wrappers share. One Context
// serves one graphics goroutine.
type Context interface {
	// Device returns the device every resource of this context is created on.
	//
	// Returns:
	//   - gpu.Device: the device
	Device() gpu.Device

	// Units returns the allocator handing out image units. Its maximum capacity
	// is the device's image unit count.
	//
	// Returns:
	//   - slot.Allocator[Resource]: the unit allocator
	Units() slot.Allocator[Resource]

	// Geometries returns the vertex binding cache shared by every shadow map of
	// this context.
	//
	// Returns:
	//   - GeometryCache: the cache
	Geometries() GeometryCache

	// Observer returns the sink for draw statistics. Never nil.
	//
	// Returns:
	//   - FrameObserver: the observer
	Observer() FrameObserver

	// Dispose releases every resource still holding a unit, every cached vertex
	// binding, and finally the device. Later calls are no-ops.
	Dispose()
}

var _ Context = &contextImpl{}

// NewContext creates a Context around a device.
//
// Parameters:
//   - device: the graphics device the context takes ownership of
//   - opts: variadic list of ContextBuilderOption functions
//
// Returns:
//   - Context: the new context
func NewContext(device gpu.Device, opts ...ContextBuilderOption) Context {
	c := &contextImpl{
		device:   device,
		observer: nopObserver{},
	}
	for _, opt := range opts {
		opt(c)
	}

	if limit := device.MaxImageUnits(); c.maxUnits <= 0 || c.maxUnits > limit {
		c.maxUnits = limit
	}
	c.units = slot.NewAllocator[Resource](slot.WithMaxCapacity(c.maxUnits))
	c.geometries = NewGeometryCache(device)

	logger.Logger().Debug("render context created", "imageUnits", c.maxUnits)
	return c
}

func (c *contextImpl) Device() gpu.Device {
	return c.device
}

func (c *contextImpl) Units() slot.Allocator[Resource] {
	return c.units
}

func (c *contextImpl) Geometries() GeometryCache {
	return c.geometries
}

func (c *contextImpl) Observer() FrameObserver {
	return c.observer
}

func (c *contextImpl) Dispose() {
	if c.disposed {
		return
	}
	c.disposed = true

	// Dispose removes from the allocator, so collect first.
	var live []Resource
	c.units.Each(func(_ slot.Handle, r Resource) {
		live = append(live, r)
	})
	if len(live) > 0 {
		logger.Logger().Warn("disposing resources still holding image units", "count", len(live))
	}
	for _, r := range live {
		r.Dispose()
	}

	c.geometries.Dispose()
	c.device.Release()
}
