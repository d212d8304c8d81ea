package models

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"math"
	"time"

	"github.com/google/uuid"
)

// SceneModel is a scene object scoped to exactly one project.
//
// ParentID, if present, references another model in the same project. The
// relation is a back reference only: deleting a parent does not cascade, so a
// child can be left with a dangling ParentID. Visible and Locked are
// independent flags; locking is advisory and never blocks writes here.
type SceneModel struct {
	ID             uuid.UUID     `json:"id"`
	ProjectID      uuid.UUID     `json:"projectId"`
	Name           string        `json:"name"`
	Type           string        `json:"type"`
	Transform      Transform     `json:"transform"`
	Geometry       *Geometry     `json:"geometry,omitempty"`
	Material       *MaterialSpec `json:"material,omitempty"`
	ParentID       *uuid.UUID    `json:"parentId,omitempty"`
	Visible        bool          `json:"visible"`
	Locked         bool          `json:"locked"`
	CreatedBy      uuid.UUID     `json:"createdBy"`
	LastModified   time.Time     `json:"lastModified"`
	LastModifiedBy uuid.UUID     `json:"lastModifiedBy"`
	CreatedAt      time.Time     `json:"createdAt"`
	UpdatedAt      time.Time     `json:"updatedAt"`
}

// Common model types. Type is an open string in the schema; these are the
// values the editor emits, not a closed set.
const (
	ModelTypeMesh   = "mesh"
	ModelTypeLight  = "light"
	ModelTypeCamera = "camera"
	ModelTypeEmpty  = "empty"
)

// Vec3 is a fixed-length 3-vector. It serializes as a JSON array, so stored
// coordinates round-trip without reordering.
type Vec3 [3]float64

// Transform is the position/rotation/scale triple applied to a model.
// Rotation is Euler angles in radians. Updates replace all three vectors
// together; there are no partial vector patches.
type Transform struct {
	Position Vec3 `json:"position"`
	Rotation Vec3 `json:"rotation"`
	Scale    Vec3 `json:"scale"`
}

// DefaultTransform returns the transform applied when a model is created
// without one.
func DefaultTransform() Transform {
	return Transform{
		Position: Vec3{0, 0, 0},
		Rotation: Vec3{0, 0, 0},
		Scale:    Vec3{1, 1, 1},
	}
}

// Validate rejects non-finite components. A zero scale is legal (the editor
// uses it for collapse animations); NaN and Inf are not.
func (t Transform) Validate() error {
	for _, v := range []Vec3{t.Position, t.Rotation, t.Scale} {
		for _, c := range v {
			if math.IsNaN(c) || math.IsInf(c, 0) {
				return fmt.Errorf("transform components must be finite")
			}
		}
	}
	return nil
}

// Value implements driver.Valuer for database serialization.
func (t Transform) Value() (driver.Value, error) {
	return json.Marshal(t)
}

// Scan implements sql.Scanner for database deserialization.
func (t *Transform) Scan(value interface{}) error {
	if value == nil {
		*t = DefaultTransform()
		return nil
	}
	bytes, ok := value.([]byte)
	if !ok {
		return fmt.Errorf("cannot scan %T into Transform", value)
	}
	return json.Unmarshal(bytes, t)
}

// Geometry variant types. The free-form parameter map of the original schema
// is closed here: each type names its required and optional parameters, and
// construction rejects anything else.
const (
	GeometryBox      = "box"
	GeometrySphere   = "sphere"
	GeometryCylinder = "cylinder"
	GeometryPlane    = "plane"
	GeometryCustom   = "custom"
)

// geometryParams maps each parametric geometry type to its required and
// optional parameter names.
var geometryParams = map[string]struct {
	required []string
	optional []string
}{
	GeometryBox:      {[]string{"width", "height", "depth"}, []string{"widthSegments", "heightSegments", "depthSegments"}},
	GeometrySphere:   {[]string{"radius"}, []string{"widthSegments", "heightSegments"}},
	GeometryCylinder: {[]string{"radiusTop", "radiusBottom", "height"}, []string{"radialSegments", "heightSegments"}},
	GeometryPlane:    {[]string{"width", "height"}, []string{"widthSegments", "heightSegments"}},
}

// Geometry describes a model's shape. Parametric types (box, sphere,
// cylinder, plane) carry dimensions in Parameters; custom meshes carry raw
// vertex and face arrays instead.
type Geometry struct {
	Type       string             `json:"type"`
	Parameters map[string]float64 `json:"parameters,omitempty"`
	Vertices   []float64          `json:"vertices,omitempty"`
	Faces      []int              `json:"faces,omitempty"`
	Normals    []float64          `json:"normals,omitempty"`
	UVs        []float64          `json:"uvs,omitempty"`
}

// Validate checks the geometry against its variant's schema. Malformed
// geometry is rejected at construction time, not at render time.
func (g *Geometry) Validate() error {
	if g.Type == GeometryCustom {
		return g.validateCustom()
	}

	schema, ok := geometryParams[g.Type]
	if !ok {
		return fmt.Errorf("unknown geometry type %q", g.Type)
	}
	if len(g.Vertices) > 0 || len(g.Faces) > 0 || len(g.Normals) > 0 || len(g.UVs) > 0 {
		return fmt.Errorf("%s geometry does not accept raw mesh arrays", g.Type)
	}

	for _, name := range schema.required {
		v, present := g.Parameters[name]
		if !present {
			return fmt.Errorf("%s geometry requires parameter %q", g.Type, name)
		}
		if !(v > 0) || math.IsInf(v, 0) {
			return fmt.Errorf("%s geometry parameter %q must be positive and finite", g.Type, name)
		}
	}

	for name, v := range g.Parameters {
		if !knownParam(schema.required, schema.optional, name) {
			return fmt.Errorf("%s geometry does not accept parameter %q", g.Type, name)
		}
		if !(v > 0) || math.IsInf(v, 0) {
			return fmt.Errorf("%s geometry parameter %q must be positive and finite", g.Type, name)
		}
	}

	return nil
}

func (g *Geometry) validateCustom() error {
	if len(g.Parameters) > 0 {
		return fmt.Errorf("custom geometry does not accept parameters")
	}
	if len(g.Vertices) == 0 || len(g.Vertices)%3 != 0 {
		return fmt.Errorf("custom geometry requires vertices as a non-empty flat xyz array")
	}
	if len(g.Faces) == 0 || len(g.Faces)%3 != 0 {
		return fmt.Errorf("custom geometry requires faces as a non-empty triangle index array")
	}

	vertexCount := len(g.Vertices) / 3
	for _, idx := range g.Faces {
		if idx < 0 || idx >= vertexCount {
			return fmt.Errorf("face index %d out of range for %d vertices", idx, vertexCount)
		}
	}
	if len(g.Normals) > 0 && len(g.Normals) != len(g.Vertices) {
		return fmt.Errorf("normals array must match vertices array length")
	}
	if len(g.UVs) > 0 && len(g.UVs) != vertexCount*2 {
		return fmt.Errorf("uvs array must hold one uv pair per vertex")
	}
	return nil
}

func knownParam(required, optional []string, name string) bool {
	for _, r := range required {
		if r == name {
			return true
		}
	}
	for _, o := range optional {
		if o == name {
			return true
		}
	}
	return false
}

// Material variant types.
const (
	MaterialStandard = "standard"
	MaterialPBR      = "pbr"
	MaterialBasic    = "basic"
)

// materialProps maps each material type to its accepted numeric properties.
// All listed properties range over [0,1] except ior ([1,3]) and
// emissiveIntensity (non-negative, unbounded).
var materialProps = map[string][]string{
	MaterialBasic:    {"opacity"},
	MaterialStandard: {"opacity", "roughness", "metalness", "emissiveIntensity"},
	MaterialPBR:      {"opacity", "roughness", "metalness", "emissiveIntensity", "clearcoat", "clearcoatRoughness", "transmission", "ior"},
}

// MaterialSpec is material data carried inline on a scene model, and the
// payload of a library material. A model's inline material is a denormalized
// copy; it is never reconciled with the workspace library.
type MaterialSpec struct {
	Type       string             `json:"type"`
	Color      string             `json:"color,omitempty"`
	Properties map[string]float64 `json:"properties,omitempty"`
	Textures   map[string]string  `json:"textures,omitempty"`
}

// Validate checks the material against its variant's schema.
func (m *MaterialSpec) Validate() error {
	allowed, ok := materialProps[m.Type]
	if !ok {
		return fmt.Errorf("unknown material type %q", m.Type)
	}

	if m.Color != "" && !validHexColor(m.Color) {
		return fmt.Errorf("material color must be a #rrggbb hex value")
	}

	for name, v := range m.Properties {
		if !knownParam(allowed, nil, name) {
			return fmt.Errorf("%s material does not accept property %q", m.Type, name)
		}
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return fmt.Errorf("material property %q must be finite", name)
		}
		switch name {
		case "ior":
			if v < 1 || v > 3 {
				return fmt.Errorf("material property ior must be within [1,3]")
			}
		case "emissiveIntensity":
			if v < 0 {
				return fmt.Errorf("material property emissiveIntensity must be non-negative")
			}
		default:
			if v < 0 || v > 1 {
				return fmt.Errorf("material property %q must be within [0,1]", name)
			}
		}
	}

	return nil
}

func validHexColor(s string) bool {
	if len(s) != 7 || s[0] != '#' {
		return false
	}
	for _, c := range s[1:] {
		switch {
		case c >= '0' && c <= '9':
		case c >= 'a' && c <= 'f':
		case c >= 'A' && c <= 'F':
		default:
			return false
		}
	}
	return true
}
