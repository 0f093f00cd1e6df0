package server

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	json "github.com/goccy/go-json"
	"github.com/rs/zerolog/log"

	"github.com/latticecad/lattice/internal/export"
	"github.com/latticecad/lattice/internal/feature"
	"github.com/latticecad/lattice/internal/geom"
	"github.com/latticecad/lattice/internal/server/sse"
	"github.com/latticecad/lattice/internal/session"
	"github.com/latticecad/lattice/pkg/model"
)

// publish pushes a modeling event to SSE subscribers.
func (s *Service) publish(r *http.Request, kind, objectID string) {
	s.broadcaster.Publish(sse.Event{
		SessionID: sessionID(r),
		Kind:      kind,
		ObjectID:  objectID,
	})
}

type ctxKey int

const engineKey ctxKey = 0

// sessionID extracts the session identifier from the header or query.
func sessionID(r *http.Request) string {
	if id := r.Header.Get("X-Session-ID"); id != "" {
		return id
	}
	return r.URL.Query().Get("session_id")
}

// requireSession resolves the engine for the request's session id and stores
// it on the context. Requests without a session id are rejected.
func (s *Service) requireSession(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := sessionID(r)
		if id == "" {
			writeError(w, fmt.Errorf("%w: missing session id", model.ErrInvalidParameters))
			return
		}
		engine := s.registry.GetOrCreate(id)
		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), engineKey, engine)))
	})
}

func engineFrom(r *http.Request) *session.Engine {
	return r.Context().Value(engineKey).(*session.Engine)
}

// writeJSON encodes a response body. Encoding failures are logged, not
// recoverable mid-response.
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Error().Err(err).Msg("response encoding failed")
	}
}

// writeError maps the error taxonomy onto HTTP statuses.
func writeError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, model.ErrNotFound):
		status = http.StatusNotFound
	case errors.Is(err, model.ErrInvalidParameters):
		status = http.StatusBadRequest
	case errors.Is(err, model.ErrGeometricFailure):
		status = http.StatusUnprocessableEntity
	case errors.Is(err, model.ErrKernelFailure):
		status = http.StatusInternalServerError
	}
	writeJSON(w, status, map[string]string{"error": err.Error()})
}

func decodeBody(r *http.Request, v any) error {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		return fmt.Errorf("%w: malformed request body: %v", model.ErrInvalidParameters, err)
	}
	return nil
}

func (s *Service) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status": "ok",
		"uptime": time.Since(s.startTime).String(),
	})
}

func (s *Service) handleReady(w http.ResponseWriter, r *http.Request) {
	if !s.ready.Load() {
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "not ready"})
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
}

func (s *Service) handleVersion(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"version": s.version})
}

func (s *Service) handleCreateSession(w http.ResponseWriter, r *http.Request) {
	id := sessionID(r)
	if id == "" {
		id = session.NewSessionID()
	}
	s.registry.GetOrCreate(id)
	writeJSON(w, http.StatusCreated, map[string]string{"session_id": id})
}

func (s *Service) handleSessionCount(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]int{"active": s.registry.ActiveCount()})
}

func (s *Service) handleCleanupSession(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "sessionID")
	if !s.registry.Cleanup(id) {
		writeError(w, fmt.Errorf("%w: session %q", model.ErrNotFound, id))
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"session_id": id})
}

func (s *Service) handleCleanupAllSessions(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]int{"removed": s.registry.CleanupAll()})
}

type vec3Payload struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
	Z float64 `json:"z"`
}

func (p vec3Payload) vec() geom.Vec3 { return geom.Vec3{X: p.X, Y: p.Y, Z: p.Z} }

type point2DPayload struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

func (p point2DPayload) point() geom.Point2D { return geom.Point2D{X: p.X, Y: p.Y} }

func (s *Service) handleCreatePlane(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Type   string       `json:"type"`
		Origin vec3Payload  `json:"origin"`
		Normal *vec3Payload `json:"normal,omitempty"`
	}
	if err := decodeBody(r, &req); err != nil {
		writeError(w, err)
		return
	}

	engine := engineFrom(r)
	var (
		id  string
		err error
	)
	if req.Normal != nil {
		id, err = engine.CreateCustomPlane(req.Origin.vec(), req.Normal.vec())
	} else {
		id, err = engine.CreatePlane(req.Type, req.Origin.vec())
	}
	if err != nil {
		writeError(w, err)
		return
	}
	s.publish(r, "plane_created", id)
	writeJSON(w, http.StatusCreated, map[string]string{"plane_id": id})
}

func (s *Service) handleListPlanes(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string][]string{"planes": engineFrom(r).PlaneIDs()})
}

func (s *Service) handlePlaneViz(w http.ResponseWriter, r *http.Request) {
	viz, err := engineFrom(r).PlaneVisualization(chi.URLParam(r, "planeID"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, viz)
}

func (s *Service) handleCreateSketch(w http.ResponseWriter, r *http.Request) {
	var req struct {
		PlaneID string `json:"plane_id"`
	}
	if err := decodeBody(r, &req); err != nil {
		writeError(w, err)
		return
	}

	id, err := engineFrom(r).CreateSketch(req.PlaneID)
	if err != nil {
		writeError(w, err)
		return
	}
	s.publish(r, "sketch_created", id)
	writeJSON(w, http.StatusCreated, map[string]string{"sketch_id": id})
}

func (s *Service) handleListSketches(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string][]string{"sketches": engineFrom(r).SketchIDs()})
}

func (s *Service) handleSketchViz(w http.ResponseWriter, r *http.Request) {
	viz, err := engineFrom(r).SketchVisualization(chi.URLParam(r, "sketchID"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, viz)
}

// elementRequest is the union of all element payloads; the handler
// dispatches on Type.
type elementRequest struct {
	Type string `json:"type"`

	Start  point2DPayload `json:"start"`
	End    point2DPayload `json:"end"`
	Mid    point2DPayload `json:"mid"`
	Center point2DPayload `json:"center"`
	Corner point2DPayload `json:"corner"`

	Radius   float64 `json:"radius"`
	Width    float64 `json:"width"`
	Height   float64 `json:"height"`
	Distance float64 `json:"distance"`
	LargeArc bool    `json:"large_arc"`

	// Fillet and chamfer reference two existing elements.
	Element1 string `json:"element1_id"`
	Element2 string `json:"element2_id"`

	// Arc construction mode: "three_points" or "endpoints_radius".
	ArcMode string `json:"arc_mode"`
}

func (s *Service) handleAddElement(w http.ResponseWriter, r *http.Request) {
	var req elementRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, err)
		return
	}

	engine := engineFrom(r)
	sketchID := chi.URLParam(r, "sketchID")

	var (
		id  string
		err error
	)
	switch req.Type {
	case "line":
		id, err = engine.AddLine(sketchID, req.Start.point(), req.End.point())
	case "circle":
		id, err = engine.AddCircle(sketchID, req.Center.point(), req.Radius)
	case "rectangle":
		id, err = engine.AddRectangle(sketchID, req.Corner.point(), req.Width, req.Height)
	case "arc":
		if req.ArcMode == "endpoints_radius" {
			id, err = engine.AddArcEndpointsRadius(sketchID, req.Start.point(), req.End.point(), req.Radius, req.LargeArc)
		} else {
			id, err = engine.AddArcThreePoints(sketchID, req.Start.point(), req.Mid.point(), req.End.point())
		}
	case "fillet":
		id, err = engine.AddFillet(sketchID, req.Element1, req.Element2, req.Radius)
	case "chamfer":
		id, err = engine.AddChamfer(sketchID, req.Element1, req.Element2, req.Distance)
	default:
		err = fmt.Errorf("%w: unknown element type %q", model.ErrInvalidParameters, req.Type)
	}
	if err != nil {
		writeError(w, err)
		return
	}
	s.publish(r, "element_added", id)
	writeJSON(w, http.StatusCreated, map[string]string{"element_id": id})
}

func (s *Service) handleRemoveElement(w http.ResponseWriter, r *http.Request) {
	err := engineFrom(r).RemoveSketchElement(chi.URLParam(r, "sketchID"), chi.URLParam(r, "elementID"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "removed"})
}

func (s *Service) handleClearSketch(w http.ResponseWriter, r *http.Request) {
	if err := engineFrom(r).ClearSketch(chi.URLParam(r, "sketchID")); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "cleared"})
}

func (s *Service) handleElementViz(w http.ResponseWriter, r *http.Request) {
	viz, err := engineFrom(r).ElementVisualization(chi.URLParam(r, "sketchID"), chi.URLParam(r, "elementID"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, viz)
}

type extrudeRequest struct {
	SketchID  string       `json:"sketch_id"`
	ElementID string       `json:"element_id,omitempty"`
	Type      string       `json:"type,omitempty"`
	Distance  float64      `json:"distance"`
	Direction *vec3Payload `json:"direction,omitempty"`
	Reverse   bool         `json:"reverse"`
	Distance1 float64      `json:"distance1,omitempty"`
	Distance2 float64      `json:"distance2,omitempty"`
}

func (s *Service) handleExtrude(w http.ResponseWriter, r *http.Request) {
	var req extrudeRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, err)
		return
	}

	extrudeType, err := model.ParseExtrudeType(req.Type)
	if err != nil {
		writeError(w, err)
		return
	}
	params := feature.ExtrudeParams{
		Type:      extrudeType,
		Distance:  req.Distance,
		Reverse:   req.Reverse,
		Distance1: req.Distance1,
		Distance2: req.Distance2,
	}
	if req.Direction != nil {
		params.Direction = req.Direction.vec()
	}

	engine := engineFrom(r)
	var featureID, shapeID string
	if req.ElementID != "" {
		featureID, shapeID, err = engine.ExtrudeSketchElement(req.SketchID, req.ElementID, params)
	} else {
		featureID, shapeID, err = engine.ExtrudeSketch(req.SketchID, params)
	}
	if err != nil {
		writeError(w, err)
		return
	}
	s.publish(r, "feature_created", featureID)
	writeJSON(w, http.StatusCreated, map[string]string{
		"feature_id": featureID,
		"shape_id":   shapeID,
	})
}

func (s *Service) handleCreatePrimitive(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Kind     string      `json:"kind"`
		Position vec3Payload `json:"position"`
		DX       float64     `json:"dx"`
		DY       float64     `json:"dy"`
		DZ       float64     `json:"dz"`
		Radius   float64     `json:"radius"`
		Height   float64     `json:"height"`
	}
	if err := decodeBody(r, &req); err != nil {
		writeError(w, err)
		return
	}

	engine := engineFrom(r)
	var (
		id  string
		err error
	)
	switch req.Kind {
	case "box":
		id, err = engine.CreateBox(req.Position.vec(), req.DX, req.DY, req.DZ)
	case "cylinder":
		id, err = engine.CreateCylinder(req.Position.vec(), req.Radius, req.Height)
	case "sphere":
		id, err = engine.CreateSphere(req.Position.vec(), req.Radius)
	default:
		err = fmt.Errorf("%w: unknown primitive %q", model.ErrInvalidParameters, req.Kind)
	}
	if err != nil {
		writeError(w, err)
		return
	}
	s.publish(r, "shape_created", id)
	writeJSON(w, http.StatusCreated, map[string]string{"shape_id": id})
}

func (s *Service) handleBoolean(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Op     string `json:"op"`
		Shape1 string `json:"shape1"`
		Shape2 string `json:"shape2"`
	}
	if err := decodeBody(r, &req); err != nil {
		writeError(w, err)
		return
	}

	engine := engineFrom(r)
	var (
		id  string
		err error
	)
	switch req.Op {
	case "union":
		id, err = engine.Union(req.Shape1, req.Shape2)
	case "cut":
		id, err = engine.Cut(req.Shape1, req.Shape2)
	case "intersect":
		id, err = engine.Intersect(req.Shape1, req.Shape2)
	default:
		err = fmt.Errorf("%w: unknown boolean op %q", model.ErrInvalidParameters, req.Op)
	}
	if err != nil {
		writeError(w, err)
		return
	}
	s.publish(r, "shape_created", id)
	writeJSON(w, http.StatusCreated, map[string]string{"shape_id": id})
}

func (s *Service) handleListShapes(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string][]string{"shapes": engineFrom(r).ShapeIDs()})
}

func (s *Service) handleRemoveShape(w http.ResponseWriter, r *http.Request) {
	shapeID := chi.URLParam(r, "shapeID")
	if err := engineFrom(r).RemoveShape(shapeID); err != nil {
		writeError(w, err)
		return
	}
	s.publish(r, "shape_removed", shapeID)
	writeJSON(w, http.StatusOK, map[string]string{"status": "removed"})
}

// quality parses the tessellation quality query parameter, falling back to
// the configured default.
func (s *Service) quality(r *http.Request) (float64, error) {
	raw := r.URL.Query().Get("quality")
	if raw == "" {
		return s.config.TessellationQuality, nil
	}
	q, err := strconv.ParseFloat(raw, 64)
	if err != nil || q <= 0 {
		return 0, fmt.Errorf("%w: invalid quality %q", model.ErrInvalidParameters, raw)
	}
	return q, nil
}

func (s *Service) handleMesh(w http.ResponseWriter, r *http.Request) {
	q, err := s.quality(r)
	if err != nil {
		writeError(w, err)
		return
	}
	mesh, err := engineFrom(r).Tessellate(chi.URLParam(r, "shapeID"), q)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, mesh)
}

func (s *Service) handleExport(w http.ResponseWriter, r *http.Request) {
	format := export.Format(r.URL.Query().Get("format"))
	if format == "" {
		format = export.FormatSTL
	}
	q, err := s.quality(r)
	if err != nil {
		writeError(w, err)
		return
	}

	shapeID := chi.URLParam(r, "shapeID")
	mesh, err := engineFrom(r).Tessellate(shapeID, q)
	if err != nil {
		writeError(w, err)
		return
	}

	// Encode to a buffer first so failures still get a proper status.
	var buf bytes.Buffer
	if err := export.Write(&buf, mesh, format); err != nil {
		writeError(w, err)
		return
	}
	w.Header().Set("Content-Type", format.ContentType())
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%s.%s", shapeID, format))
	w.WriteHeader(http.StatusOK)
	if _, err := buf.WriteTo(w); err != nil {
		log.Error().Err(err).Msg("export write failed")
	}
}

func (s *Service) handleUpdateParameter(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Name  string  `json:"name"`
		Value float64 `json:"value"`
	}
	if err := decodeBody(r, &req); err != nil {
		writeError(w, err)
		return
	}
	if req.Name == "" {
		writeError(w, fmt.Errorf("%w: parameter name is required", model.ErrInvalidParameters))
		return
	}
	engineFrom(r).UpdateParameter(req.Name, req.Value)
	writeJSON(w, http.StatusOK, map[string]string{"status": "updated"})
}

func (s *Service) handleRebuild(w http.ResponseWriter, r *http.Request) {
	if err := engineFrom(r).RebuildModel(); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "rebuilt"})
}

func (s *Service) handleClearModel(w http.ResponseWriter, r *http.Request) {
	engineFrom(r).ClearAll()
	writeJSON(w, http.StatusOK, map[string]string{"status": "cleared"})
}
