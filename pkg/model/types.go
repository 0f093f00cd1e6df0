// Package model contains the shared domain vocabulary of the modeling
// service: plane, element and extrude type tags, and the error taxonomy
// every public operation reports against.
package model

import "fmt"

// PlaneType selects the orientation of a sketch plane.
type PlaneType string

const (
	PlaneXY     PlaneType = "XY"
	PlaneXZ     PlaneType = "XZ"
	PlaneYZ     PlaneType = "YZ"
	PlaneCustom PlaneType = "CUSTOM"
)

// ParsePlaneType maps a wire-level plane type string to a PlaneType.
func ParsePlaneType(s string) (PlaneType, error) {
	switch s {
	case "XY", "xy":
		return PlaneXY, nil
	case "XZ", "xz":
		return PlaneXZ, nil
	case "YZ", "yz":
		return PlaneYZ, nil
	case "CUSTOM", "custom":
		return PlaneCustom, nil
	default:
		return "", fmt.Errorf("%w: unknown plane type %q", ErrInvalidParameters, s)
	}
}

// ElementType tags a sketch element variant.
type ElementType string

const (
	ElementLine      ElementType = "line"
	ElementCircle    ElementType = "circle"
	ElementArc       ElementType = "arc"
	ElementRectangle ElementType = "rectangle"
	ElementFillet    ElementType = "fillet"
	ElementChamfer   ElementType = "chamfer"
)

// ExtrudeType selects the termination policy of an extrude feature.
type ExtrudeType string

const (
	ExtrudeBlind      ExtrudeType = "blind"
	ExtrudeThroughAll ExtrudeType = "through_all"
	ExtrudeToSurface  ExtrudeType = "to_surface"
	ExtrudeSymmetric  ExtrudeType = "symmetric"
)

// ParseExtrudeType maps a wire-level extrude type string to an ExtrudeType.
// The empty string defaults to blind.
func ParseExtrudeType(s string) (ExtrudeType, error) {
	switch s {
	case "", "blind":
		return ExtrudeBlind, nil
	case "through_all":
		return ExtrudeThroughAll, nil
	case "to_surface":
		return ExtrudeToSurface, nil
	case "symmetric":
		return ExtrudeSymmetric, nil
	default:
		return "", fmt.Errorf("%w: unknown extrude type %q", ErrInvalidParameters, s)
	}
}
