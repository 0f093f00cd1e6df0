// Package session holds the per-client modeling state: an Engine owning the
// identifier-keyed registries for planes, sketches, features, and shapes,
// and a Registry mapping session ids to engines.
package session

import (
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/latticecad/lattice/internal/feature"
	"github.com/latticecad/lattice/internal/geom"
	"github.com/latticecad/lattice/internal/kernel"
	"github.com/latticecad/lattice/internal/sketch"
	"github.com/latticecad/lattice/pkg/model"
)

// Engine is one client's modeling workspace. All public methods are safe for
// concurrent use; the registries are guarded by a single RWMutex held for the
// duration of each operation, so operations within one session serialize.
type Engine struct {
	id string
	k  kernel.Kernel

	mu       sync.RWMutex
	shapes   map[string]kernel.Shape
	planes   map[string]*sketch.Plane
	sketches map[string]*sketch.Sketch
	features map[string]*feature.Extrude

	// Reserved for parametric rebuilding. Written by UpdateParameter, not
	// yet read anywhere.
	parameters map[string]float64

	planeSeq   int
	sketchSeq  int
	featureSeq int
	shapeSeq   int

	lastUsed time.Time
}

// NewEngine creates an empty modeling session backed by the given kernel.
func NewEngine(id string, k kernel.Kernel) *Engine {
	return &Engine{
		id:         id,
		k:          k,
		shapes:     make(map[string]kernel.Shape),
		planes:     make(map[string]*sketch.Plane),
		sketches:   make(map[string]*sketch.Sketch),
		features:   make(map[string]*feature.Extrude),
		parameters: make(map[string]float64),
		lastUsed:   time.Now(),
	}
}

// ID returns the session identifier.
func (e *Engine) ID() string { return e.id }

// LastUsed returns the time of the most recent operation.
func (e *Engine) LastUsed() time.Time {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.lastUsed
}

// touch must be called with the write lock held.
func (e *Engine) touch() { e.lastUsed = time.Now() }

// refresh marks the session as recently used. For callers that resolve a
// session without holding the engine lock, so read-only traffic also keeps
// the session alive.
func (e *Engine) refresh() {
	e.mu.Lock()
	e.lastUsed = time.Now()
	e.mu.Unlock()
}

// CreatePlane creates a canonical sketch plane at the given origin.
// planeType is one of "XY", "XZ", "YZ".
func (e *Engine) CreatePlane(planeType string, origin geom.Vec3) (string, error) {
	typ, err := model.ParsePlaneType(planeType)
	if err != nil {
		return "", err
	}
	if typ == model.PlaneCustom {
		return "", fmt.Errorf("%w: custom planes require a normal, use CreateCustomPlane", model.ErrInvalidParameters)
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	e.touch()

	e.planeSeq++
	id := fmt.Sprintf("plane_%d", e.planeSeq)
	p, err := sketch.NewCanonicalPlane(id, typ, origin)
	if err != nil {
		e.planeSeq--
		return "", err
	}
	e.planes[id] = p
	log.Debug().Str("session", e.id).Str("plane", id).Str("type", planeType).Msg("plane created")
	return id, nil
}

// CreateCustomPlane creates a plane from an explicit origin and normal.
func (e *Engine) CreateCustomPlane(origin, normal geom.Vec3) (string, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.touch()

	e.planeSeq++
	id := fmt.Sprintf("plane_%d", e.planeSeq)
	p, err := sketch.NewCustomPlane(id, origin, normal)
	if err != nil {
		e.planeSeq--
		return "", err
	}
	e.planes[id] = p
	log.Debug().Str("session", e.id).Str("plane", id).Msg("custom plane created")
	return id, nil
}

// CreateSketch creates an empty sketch bound to an existing plane.
func (e *Engine) CreateSketch(planeID string) (string, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.touch()

	p, ok := e.planes[planeID]
	if !ok {
		return "", fmt.Errorf("%w: plane %q", model.ErrNotFound, planeID)
	}

	e.sketchSeq++
	id := fmt.Sprintf("sketch_%d", e.sketchSeq)
	e.sketches[id] = sketch.New(id, p)
	log.Debug().Str("session", e.id).Str("sketch", id).Str("plane", planeID).Msg("sketch created")
	return id, nil
}

// sketchByID must be called with a lock held.
func (e *Engine) sketchByID(id string) (*sketch.Sketch, error) {
	sk, ok := e.sketches[id]
	if !ok {
		return nil, fmt.Errorf("%w: sketch %q", model.ErrNotFound, id)
	}
	return sk, nil
}

// AddLine appends a line element to a sketch.
func (e *Engine) AddLine(sketchID string, start, end geom.Point2D) (string, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.touch()

	sk, err := e.sketchByID(sketchID)
	if err != nil {
		return "", err
	}
	return sk.AddLine(start, end), nil
}

// AddCircle appends a circle element to a sketch.
func (e *Engine) AddCircle(sketchID string, center geom.Point2D, radius float64) (string, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.touch()

	sk, err := e.sketchByID(sketchID)
	if err != nil {
		return "", err
	}
	return sk.AddCircle(center, radius)
}

// AddRectangle appends a rectangle element to a sketch.
func (e *Engine) AddRectangle(sketchID string, corner geom.Point2D, width, height float64) (string, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.touch()

	sk, err := e.sketchByID(sketchID)
	if err != nil {
		return "", err
	}
	return sk.AddRectangle(corner, width, height)
}

// AddArcThreePoints appends an arc through three points.
func (e *Engine) AddArcThreePoints(sketchID string, start, mid, end geom.Point2D) (string, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.touch()

	sk, err := e.sketchByID(sketchID)
	if err != nil {
		return "", err
	}
	return sk.AddArcThreePoints(start, mid, end)
}

// AddArcEndpointsRadius appends an arc from endpoints and a radius.
func (e *Engine) AddArcEndpointsRadius(sketchID string, start, end geom.Point2D, radius float64, largeArc bool) (string, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.touch()

	sk, err := e.sketchByID(sketchID)
	if err != nil {
		return "", err
	}
	return sk.AddArcEndpointsRadius(start, end, radius, largeArc)
}

// AddFillet rounds the corner between two line elements of a sketch.
func (e *Engine) AddFillet(sketchID, element1, element2 string, radius float64) (string, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.touch()

	sk, err := e.sketchByID(sketchID)
	if err != nil {
		return "", err
	}
	return sk.AddFillet(element1, element2, radius)
}

// AddChamfer cuts the corner between two line elements of a sketch.
func (e *Engine) AddChamfer(sketchID, element1, element2 string, distance float64) (string, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.touch()

	sk, err := e.sketchByID(sketchID)
	if err != nil {
		return "", err
	}
	return sk.AddChamfer(element1, element2, distance)
}

// RemoveSketchElement removes an element from a sketch. Unknown element ids
// are a no-op.
func (e *Engine) RemoveSketchElement(sketchID, elementID string) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.touch()

	sk, err := e.sketchByID(sketchID)
	if err != nil {
		return err
	}
	sk.RemoveElement(elementID)
	return nil
}

// ClearSketch removes every element from a sketch.
func (e *Engine) ClearSketch(sketchID string) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.touch()

	sk, err := e.sketchByID(sketchID)
	if err != nil {
		return err
	}
	sk.ClearAll()
	return nil
}

// ExtrudeSketch extrudes a whole sketch profile. On success the feature and
// its resulting shape are registered and both ids returned; a failed extrude
// registers nothing.
func (e *Engine) ExtrudeSketch(sketchID string, params feature.ExtrudeParams) (featureID, shapeID string, err error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.touch()

	sk, err := e.sketchByID(sketchID)
	if err != nil {
		return "", "", err
	}

	featureID = fmt.Sprintf("extrude_%d", e.featureSeq+1)
	f := feature.NewFromSketch(featureID, sk, params)
	return e.registerExtrude(f)
}

// ExtrudeSketchElement extrudes a single element of a sketch promoted to a
// standalone face.
func (e *Engine) ExtrudeSketchElement(sketchID, elementID string, params feature.ExtrudeParams) (featureID, shapeID string, err error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.touch()

	sk, err := e.sketchByID(sketchID)
	if err != nil {
		return "", "", err
	}
	face, err := sk.CreateFaceFromElement(e.k, elementID)
	if err != nil {
		return "", "", err
	}

	featureID = fmt.Sprintf("extrude_%d", e.featureSeq+1)
	f := feature.NewFromFace(featureID, face, sk.Plane(), params)
	return e.registerExtrude(f)
}

// registerExtrude executes a feature and, only on success, commits it and
// its shape to the registries. Must be called with the write lock held.
func (e *Engine) registerExtrude(f *feature.Extrude) (string, string, error) {
	if err := f.Execute(e.k); err != nil {
		return "", "", err
	}

	e.featureSeq++
	e.shapeSeq++
	shapeID := fmt.Sprintf("shape_%d", e.shapeSeq)
	e.features[f.ID()] = f
	e.shapes[shapeID] = f.Shape()
	log.Debug().Str("session", e.id).Str("feature", f.ID()).Str("shape", shapeID).Msg("extrude registered")
	return f.ID(), shapeID, nil
}

// Tessellate triangulates a stored shape. Quality maps to the kernel's
// deflection tolerance.
func (e *Engine) Tessellate(shapeID string, quality float64) (*kernel.MeshData, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.touch()

	shape, ok := e.shapes[shapeID]
	if !ok {
		return nil, fmt.Errorf("%w: shape %q", model.ErrNotFound, shapeID)
	}
	mesh, err := e.k.Tessellate(shape, quality)
	if err != nil {
		return nil, fmt.Errorf("%w: tessellate %s: %v", model.ErrKernelFailure, shapeID, err)
	}
	return mesh, nil
}

// CreateBox registers a box primitive.
func (e *Engine) CreateBox(pos geom.Vec3, dx, dy, dz float64) (string, error) {
	return e.registerPrimitive("box", func() (kernel.Shape, error) {
		return e.k.MakeBox(pos, dx, dy, dz)
	})
}

// CreateCylinder registers a cylinder primitive.
func (e *Engine) CreateCylinder(pos geom.Vec3, radius, height float64) (string, error) {
	return e.registerPrimitive("cylinder", func() (kernel.Shape, error) {
		return e.k.MakeCylinder(pos, radius, height)
	})
}

// CreateSphere registers a sphere primitive.
func (e *Engine) CreateSphere(pos geom.Vec3, radius float64) (string, error) {
	return e.registerPrimitive("sphere", func() (kernel.Shape, error) {
		return e.k.MakeSphere(pos, radius)
	})
}

func (e *Engine) registerPrimitive(kind string, build func() (kernel.Shape, error)) (string, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.touch()

	shape, err := build()
	if err != nil {
		return "", fmt.Errorf("%w: make %s: %v", model.ErrKernelFailure, kind, err)
	}
	e.shapeSeq++
	id := fmt.Sprintf("shape_%d", e.shapeSeq)
	e.shapes[id] = shape
	log.Debug().Str("session", e.id).Str("shape", id).Str("kind", kind).Msg("primitive created")
	return id, nil
}

// Union combines two stored shapes into a new stored shape.
func (e *Engine) Union(id1, id2 string) (string, error) {
	return e.combine("union", id1, id2, e.k.Union)
}

// Cut subtracts the second stored shape from the first.
func (e *Engine) Cut(id1, id2 string) (string, error) {
	return e.combine("cut", id1, id2, e.k.Subtract)
}

// Intersect intersects two stored shapes.
func (e *Engine) Intersect(id1, id2 string) (string, error) {
	return e.combine("intersect", id1, id2, e.k.Intersect)
}

func (e *Engine) combine(op, id1, id2 string, f func(a, b kernel.Shape) (kernel.Shape, error)) (string, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.touch()

	a, ok := e.shapes[id1]
	if !ok {
		return "", fmt.Errorf("%w: shape %q", model.ErrNotFound, id1)
	}
	b, ok := e.shapes[id2]
	if !ok {
		return "", fmt.Errorf("%w: shape %q", model.ErrNotFound, id2)
	}

	result, err := f(a, b)
	if err != nil {
		return "", fmt.Errorf("%w: %s: %v", model.ErrKernelFailure, op, err)
	}
	e.shapeSeq++
	id := fmt.Sprintf("shape_%d", e.shapeSeq)
	e.shapes[id] = result
	log.Debug().Str("session", e.id).Str("op", op).Str("shape", id).Msg("boolean result registered")
	return id, nil
}

// ShapeExists reports whether a shape id is registered.
func (e *Engine) ShapeExists(id string) bool {
	e.mu.RLock()
	defer e.mu.RUnlock()
	_, ok := e.shapes[id]
	return ok
}

// PlaneExists reports whether a plane id is registered.
func (e *Engine) PlaneExists(id string) bool {
	e.mu.RLock()
	defer e.mu.RUnlock()
	_, ok := e.planes[id]
	return ok
}

// SketchExists reports whether a sketch id is registered.
func (e *Engine) SketchExists(id string) bool {
	e.mu.RLock()
	defer e.mu.RUnlock()
	_, ok := e.sketches[id]
	return ok
}

// FeatureExists reports whether a feature id is registered.
func (e *Engine) FeatureExists(id string) bool {
	e.mu.RLock()
	defer e.mu.RUnlock()
	_, ok := e.features[id]
	return ok
}

// ShapeIDs lists registered shape ids in sorted order.
func (e *Engine) ShapeIDs() []string {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return sortedKeys(e.shapes)
}

// PlaneIDs lists registered plane ids in sorted order.
func (e *Engine) PlaneIDs() []string {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return sortedKeys(e.planes)
}

// SketchIDs lists registered sketch ids in sorted order.
func (e *Engine) SketchIDs() []string {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return sortedKeys(e.sketches)
}

// FeatureIDs lists registered feature ids in sorted order.
func (e *Engine) FeatureIDs() []string {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return sortedKeys(e.features)
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// RemoveShape deletes a stored shape. Its id is never reused.
func (e *Engine) RemoveShape(id string) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.touch()

	if _, ok := e.shapes[id]; !ok {
		return fmt.Errorf("%w: shape %q", model.ErrNotFound, id)
	}
	delete(e.shapes, id)
	log.Debug().Str("session", e.id).Str("shape", id).Msg("shape removed")
	return nil
}

// ClearAll empties every registry. Sequence counters are not reset, so
// previously issued ids are never reused.
func (e *Engine) ClearAll() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.touch()

	e.shapes = make(map[string]kernel.Shape)
	e.planes = make(map[string]*sketch.Plane)
	e.sketches = make(map[string]*sketch.Sketch)
	e.features = make(map[string]*feature.Extrude)
	log.Debug().Str("session", e.id).Msg("session cleared")
}

// UpdateParameter records a named scalar for future parametric rebuilding.
// Nothing reads the table yet.
func (e *Engine) UpdateParameter(name string, value float64) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.touch()

	e.parameters[name] = value
	log.Debug().Str("session", e.id).Str("parameter", name).Float64("value", value).Msg("parameter updated")
}

// RebuildModel regenerates every stored feature with its current parameters.
func (e *Engine) RebuildModel() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.touch()

	for _, id := range sortedKeys(e.features) {
		if err := e.features[id].Regenerate(e.k); err != nil {
			return fmt.Errorf("rebuild %s: %w", id, err)
		}
	}
	log.Debug().Str("session", e.id).Int("features", len(e.features)).Msg("model rebuilt")
	return nil
}
