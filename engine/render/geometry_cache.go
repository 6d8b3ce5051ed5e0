package render

import (
	"errors"
	"fmt"
	"reflect"

	"github.com/Carmen-Shannon/oxy-shadow/engine/gpu"
	"github.com/Carmen-Shannon/oxy-shadow/engine/logger"
)

var (
	// ErrUnregisteredGeometry is returned when a pass draws a geometry that has no
	// cached vertex binding.
	ErrUnregisteredGeometry = errors.New("geometry is not registered")

	// ErrNilGeometry is returned when registering a nil geometry.
	ErrNilGeometry = errors.New("geometry must not be nil")

	// ErrIncomparableGeometry is returned when registering a geometry whose
	// dynamic type cannot be used as a map key, such as a struct value holding a slice.
	ErrIncomparableGeometry = errors.New("geometry type is not comparable")
)

// GeometryBinding is the cached device state needed to draw one geometry.
type GeometryBinding struct {
	// VertexBinding remembers the attribute and index buffer wiring.
	VertexBinding gpu.VertexBindingID
	// IndexCount is the number of indices to draw.
	IndexCount int
}

// geometryCacheImpl is the implementation of the GeometryCache interface.
type geometryCacheImpl struct {
	device  gpu.Device
	entries map[Geometry]GeometryBinding
}

// GeometryCache maps geometry identity to its vertex binding. Entries live until
// they are unregistered or the cache is disposed.
type GeometryCache interface {
	// Register builds the vertex binding for g, wiring its position attribute at
	// positionLocation. Registering a geometry twice returns the first binding and
	// issues no device calls.
	//
	// Parameters:
	//   - g: the geometry to register
	//   - positionLocation: the shader location of the position attribute
	//
	// Returns:
	//   - GeometryBinding: the cached binding
	//   - error: ErrNilGeometry, ErrIncomparableGeometry or a device error
	Register(g Geometry, positionLocation int) (GeometryBinding, error)

	// Lookup returns the binding cached for g.
	//
	// Parameters:
	//   - g: the geometry to look up
	//
	// Returns:
	//   - GeometryBinding: the binding, or the zero value
	//   - bool: true if g is registered
	Lookup(g Geometry) (GeometryBinding, bool)

	// Unregister deletes the vertex binding of g. Unknown geometry is a no-op.
	//
	// Parameters:
	//   - g: the geometry to forget
	//
	// Returns:
	//   - bool: true if an entry was removed
	Unregister(g Geometry) bool

	// Len returns the number of cached bindings.
	//
	// Returns:
	//   - int: the entry count
	Len() int

	// Dispose deletes every cached vertex binding.
	Dispose()
}

var _ GeometryCache = &geometryCacheImpl{}

// NewGeometryCache creates an empty cache whose bindings live on device.
//
// Parameters:
//   - device: the device vertex bindings are created on
//
// Returns:
//   - GeometryCache: the new cache
func NewGeometryCache(device gpu.Device) GeometryCache {
	return &geometryCacheImpl{
		device:  device,
		entries: make(map[Geometry]GeometryBinding),
	}
}

func (c *geometryCacheImpl) Register(g Geometry, positionLocation int) (GeometryBinding, error) {
	if g == nil {
		return GeometryBinding{}, ErrNilGeometry
	}
	if !isComparable(g) {
		return GeometryBinding{}, fmt.Errorf("%T: %w", g, ErrIncomparableGeometry)
	}
	if b, ok := c.entries[g]; ok {
		return b, nil
	}

	id, err := c.device.CreateVertexBinding()
	if err != nil {
		return GeometryBinding{}, fmt.Errorf("failed to create vertex binding: %w", err)
	}

	c.device.BindVertexBinding(id)
	g.ActivateAttribute(gpu.AttributePosition, positionLocation)
	count := g.BindIndexBuffer()
	c.device.BindVertexBinding(gpu.NoVertexBinding)

	b := GeometryBinding{VertexBinding: id, IndexCount: count}
	c.entries[g] = b
	logger.Logger().Debug("geometry registered", "binding", id, "indices", count)
	return b, nil
}

func (c *geometryCacheImpl) Lookup(g Geometry) (GeometryBinding, bool) {
	if g == nil || !isComparable(g) {
		return GeometryBinding{}, false
	}
	b, ok := c.entries[g]
	return b, ok
}

func (c *geometryCacheImpl) Unregister(g Geometry) bool {
	b, ok := c.Lookup(g)
	if !ok {
		return false
	}
	delete(c.entries, g)
	if err := c.device.DeleteVertexBinding(b.VertexBinding); err != nil {
		logger.Logger().Warn("failed to delete vertex binding", "binding", b.VertexBinding, "error", err)
	}
	return true
}

func (c *geometryCacheImpl) Len() int {
	return len(c.entries)
}

func (c *geometryCacheImpl) Dispose() {
	for g := range c.entries {
		c.Unregister(g)
	}
}

// isComparable reports whether g can key the cache without panicking.
func isComparable(g Geometry) bool {
	return reflect.TypeOf(g).Comparable()
}
