// Package feature implements parametric features built on sketches. The only
// feature currently implemented is the extrude, which sweeps a sketch
// profile (or a single promoted element face) along a direction into a
// solid.
package feature

import (
	"fmt"

	"github.com/rs/zerolog/log"

	"github.com/latticecad/lattice/internal/geom"
	"github.com/latticecad/lattice/internal/kernel"
	"github.com/latticecad/lattice/internal/sketch"
	"github.com/latticecad/lattice/pkg/model"
)

// minDirection is the smallest usable extrude direction magnitude.
const minDirection = 1e-6

// ExtrudeParams is the full extrude parameter record. ThroughAll and
// ToSurface are declared but not implemented; execution falls back to blind
// behavior for them. TaperAngle is carried for parameter-model completeness
// and is not applied.
type ExtrudeParams struct {
	Type       model.ExtrudeType
	Distance   float64
	Direction  geom.Vec3
	Reverse    bool
	TaperAngle float64

	// Symmetric distances in the positive and negative direction.
	Distance1 float64
	Distance2 float64
}

// DefaultParams returns a blind extrude of the given distance with the
// direction left to the base plane normal.
func DefaultParams(distance float64) ExtrudeParams {
	return ExtrudeParams{Type: model.ExtrudeBlind, Distance: distance}
}

// Extrude is one extrude feature: a base profile, its parameters, and the
// execution result. A feature starts unvalidated; Execute moves it to
// executed-valid, executed-invalid, or failed.
type Extrude struct {
	id     string
	params ExtrudeParams

	// Exactly one base: a whole sketch, or a pre-built face with the plane
	// it came from.
	baseSketch *sketch.Sketch
	baseFace   kernel.Face
	basePlane  *sketch.Plane

	shape kernel.Shape
	valid bool
}

// NewFromSketch creates an extrude feature over a whole sketch profile.
func NewFromSketch(id string, sk *sketch.Sketch, params ExtrudeParams) *Extrude {
	return &Extrude{id: id, baseSketch: sk, params: params}
}

// NewFromFace creates an extrude feature over a pre-built face. The plane
// supplies the default direction.
func NewFromFace(id string, face kernel.Face, plane *sketch.Plane, params ExtrudeParams) *Extrude {
	return &Extrude{id: id, baseFace: face, basePlane: plane, params: params}
}

// ID returns the feature identifier.
func (e *Extrude) ID() string { return e.id }

// Shape returns the resulting solid, nil until a successful Execute.
func (e *Extrude) Shape() kernel.Shape { return e.shape }

// IsValid reports whether the last execution produced an analyzer-approved
// solid.
func (e *Extrude) IsValid() bool { return e.valid }

// Params returns the current parameter record.
func (e *Extrude) Params() ExtrudeParams { return e.params }

// SetDistance updates the blind distance. Takes effect on the next
// Regenerate.
func (e *Extrude) SetDistance(d float64) { e.params.Distance = d }

// SetDirection updates the explicit extrude direction.
func (e *Extrude) SetDirection(v geom.Vec3) { e.params.Direction = v }

// SetType updates the extrude type.
func (e *Extrude) SetType(t model.ExtrudeType) { e.params.Type = t }

// SetSymmetricDistances updates the symmetric distance pair.
func (e *Extrude) SetSymmetricDistances(d1, d2 float64) {
	e.params.Distance1 = d1
	e.params.Distance2 = d2
}

// ValidationErrors returns every reason the feature cannot execute, empty
// when it can. Sketch validation errors propagate.
func (e *Extrude) ValidationErrors(k kernel.Kernel) []string {
	var errs []string

	if e.baseSketch == nil && e.baseFace == nil {
		errs = append(errs, "no base sketch or face provided")
		return errs
	}
	if e.baseSketch != nil && !e.baseSketch.IsValid(k) {
		errs = append(errs, "base sketch is invalid")
		errs = append(errs, e.baseSketch.ValidationErrors(k)...)
	}
	if e.params.Type == model.ExtrudeBlind && e.params.Distance <= 0 {
		errs = append(errs, "extrude distance must be positive")
	}
	if e.params.Type == model.ExtrudeSymmetric && (e.params.Distance1 <= 0 || e.params.Distance2 <= 0) {
		errs = append(errs, "symmetric extrude distances must be positive")
	}
	if dir := e.direction(); dir.Length() < minDirection {
		errs = append(errs, "extrude direction vector is too small")
	}
	return errs
}

// CanExtrude reports whether the validation predicate passes.
func (e *Extrude) CanExtrude(k kernel.Kernel) bool {
	return len(e.ValidationErrors(k)) == 0
}

// direction resolves the extrude direction: an explicitly supplied
// non-degenerate direction wins, otherwise the base plane normal.
func (e *Extrude) direction() geom.Vec3 {
	if e.params.Direction.Length() >= minDirection {
		return e.params.Direction.Normalized()
	}
	if e.baseSketch != nil {
		return e.baseSketch.Plane().Normal()
	}
	if e.basePlane != nil {
		return e.basePlane.Normal()
	}
	return geom.Vec3{}
}

// Execute runs the extrude, storing the resulting shape and validity flag.
// Validation failure leaves the feature invalid without touching the kernel.
func (e *Extrude) Execute(k kernel.Kernel) error {
	if errs := e.ValidationErrors(k); len(errs) > 0 {
		e.valid = false
		e.shape = nil
		return fmt.Errorf("%w: %s", model.ErrInvalidParameters, errs[0])
	}

	shape, err := e.sweep(k)
	if err != nil {
		e.valid = false
		e.shape = nil
		log.Warn().Str("feature", e.id).Err(err).Msg("extrude failed")
		return err
	}

	e.shape = shape
	e.valid = shape != nil && k.Validate(shape)
	if !e.valid {
		log.Warn().Str("feature", e.id).Msg("extrude produced invalid geometry")
		return fmt.Errorf("%w: extrude produced invalid geometry", model.ErrGeometricFailure)
	}
	log.Debug().Str("feature", e.id).Msg("extrude executed")
	return nil
}

// Regenerate re-runs Execute with the current parameters. Idempotent for
// unchanged inputs.
func (e *Extrude) Regenerate(k kernel.Kernel) error {
	log.Debug().Str("feature", e.id).Msg("regenerating extrude")
	return e.Execute(k)
}

// Preview runs the extrude branch logic without mutating feature state.
func (e *Extrude) Preview(k kernel.Kernel) (kernel.Shape, error) {
	if errs := e.ValidationErrors(k); len(errs) > 0 {
		return nil, fmt.Errorf("%w: %s", model.ErrInvalidParameters, errs[0])
	}
	return e.sweep(k)
}

// sweep dispatches on the extrude type. ThroughAll and ToSurface are not yet
// supported and deliberately behave as blind; this fallback is part of the
// documented contract, not an accident.
func (e *Extrude) sweep(k kernel.Kernel) (shape kernel.Shape, err error) {
	// A kernel fault must surface as an error, never escape the operation
	// boundary.
	defer func() {
		if r := recover(); r != nil {
			shape = nil
			err = fmt.Errorf("%w: %v", model.ErrKernelFailure, r)
		}
	}()

	switch e.params.Type {
	case model.ExtrudeSymmetric:
		return e.symmetricSweep(k)
	case model.ExtrudeThroughAll, model.ExtrudeToSurface:
		log.Warn().
			Str("feature", e.id).
			Str("type", string(e.params.Type)).
			Msg("extrude type not yet supported, behaving as blind")
		return e.blindSweep(k)
	default:
		return e.blindSweep(k)
	}
}

// blindSweep extrudes by direction * distance, reversed when requested.
func (e *Extrude) blindSweep(k kernel.Kernel) (kernel.Shape, error) {
	face, err := e.resolveFace(k)
	if err != nil {
		return nil, err
	}

	vec := e.direction().Scale(e.params.Distance)
	if e.params.Reverse {
		vec = vec.Neg()
	}

	shape, err := k.Prism(face, vec)
	if err != nil {
		return nil, fmt.Errorf("%w: prism: %v", model.ErrGeometricFailure, err)
	}
	return shape, nil
}

// symmetricSweep extrudes in both directions: the positive and negative
// displacements are summed into one sweep vector, so the total depth is
// Distance1 + Distance2.
func (e *Extrude) symmetricSweep(k kernel.Kernel) (kernel.Shape, error) {
	face, err := e.resolveFace(k)
	if err != nil {
		return nil, err
	}

	vec := e.direction().Scale(e.params.Distance1 + e.params.Distance2)

	shape, err := k.Prism(face, vec)
	if err != nil {
		return nil, fmt.Errorf("%w: symmetric prism: %v", model.ErrGeometricFailure, err)
	}
	return shape, nil
}

// resolveFace returns the base face, building it from the base sketch when
// needed.
func (e *Extrude) resolveFace(k kernel.Kernel) (kernel.Face, error) {
	if e.baseFace != nil {
		return e.baseFace, nil
	}
	return e.baseSketch.CreateFace(k)
}
