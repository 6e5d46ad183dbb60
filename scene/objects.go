package scene

import "go.uber.org/multierr"

type ObjectKind uint8

const (
	SurfaceObject ObjectKind = iota
	EdgeObject
	LightObject
)

func (k ObjectKind) String() string {
	return [...]string{"Surface", "Edges", "Light"}[k]
}

type LightType uint8

const (
	AmbientLight LightType = iota
	DirectionalLight
)

type Light struct {
	Type      LightType
	Intensity float32
	Position  [3]float32 // directional lights only
}

// Material is the fixed shading setup of an object.
type Material struct {
	Color       uint32 // 0xRRGGBB
	FlatShading bool
	DoubleSided bool
	LineWidth   float32
}

var (
	SurfaceMaterial = Material{Color: 0xffffff, FlatShading: true, DoubleSided: true}
	EdgeMaterial    = Material{Color: 0x000000, LineWidth: 1}
)

// DefaultLights is one ambient light and two opposing directional lights.
func DefaultLights() []Light {
	return []Light{
		{Type: AmbientLight, Intensity: 0.5},
		{Type: DirectionalLight, Intensity: 0.7, Position: [3]float32{10, 10, 5}},
		{Type: DirectionalLight, Intensity: 0.7, Position: [3]float32{-10, 10, -5}},
	}
}

// Object is one child of the scene. Surface and edge objects own device
// resources; lights own none.
type Object struct {
	Name      string
	Kind      ObjectKind
	Visible   bool
	Light     *Light
	Material  Material
	resources []Resource
}

// ObjectInfo is the read-only view of an Object returned by Manager.Objects.
type ObjectInfo struct {
	Name      string
	Kind      ObjectKind
	Visible   bool
	Resources int
}

func (o *Object) info() ObjectInfo {
	return ObjectInfo{Name: o.Name, Kind: o.Kind, Visible: o.Visible, Resources: len(o.resources)}
}

// dispose releases every resource of the object; all are attempted even if
// some fail.
func (o *Object) dispose() (err error) {
	for _, r := range o.resources {
		err = multierr.Append(err, r.Release())
	}
	o.resources = nil
	return err
}
