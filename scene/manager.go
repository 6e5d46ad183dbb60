package scene

import (
	"errors"
	"fmt"
	"sync"

	"github.com/charmbracelet/log"
	"github.com/google/uuid"
	"go.uber.org/multierr"

	"github.com/notargets/tetraview/logging"
	"github.com/notargets/tetraview/mesh"
)

type State uint8

const (
	Empty State = iota
	Populated
)

func (s State) String() string {
	if s == Populated {
		return "Populated"
	}
	return "Empty"
}

type Options struct {
	Edges  bool    // build an edge overlay for every mesh
	Margin float32 // camera fit margin around the bounding sphere
	FovY   float32 // degrees
	Aspect float32
	Logger *log.Logger
}

func DefaultOptions() Options {
	return Options{Edges: true, Margin: 1.2, FovY: 50, Aspect: 1}
}

// Snapshot is a read-only view of the installed generation. Its slices are
// shared with the Manager and must not be modified.
type Snapshot struct {
	State        State
	Generation   uuid.UUID
	Positions    []float32
	Normals      []float32
	Indices      []uint32
	Edges        []float32 // line segments, six floats each
	Bounds       mesh.BoundingBox
	Offset       [3]float32
	Triangles    int
	Visible      bool
	EdgesVisible bool
	Camera       Camera
	Lights       []Light
}

type Stats struct {
	LiveGenerations int
	Installed       int
	Released        int
	ReleaseFailures int
	LiveResources   int
}

type generation struct {
	id      uuid.UUID
	geom    *Geometry
	edges   []float32
	surface *Object
	overlay *Object // nil when edges are disabled
}

func (g *generation) objects() []*Object {
	if g.overlay == nil {
		return []*Object{g.surface}
	}
	return []*Object{g.surface, g.overlay}
}

func (g *generation) dispose() (err error) {
	for _, o := range g.objects() {
		err = multierr.Append(err, o.dispose())
	}
	return err
}

// Manager owns every device resource of the scene. At most one mesh
// generation is live at a time: installing a new mesh allocates the new
// generation first and then releases the old one.
type Manager struct {
	mu           sync.Mutex
	dev          Device
	opts         Options
	log          *log.Logger
	lights       []*Object
	gen          *generation
	camera       Camera
	visible      bool
	edgesVisible bool
	stats        Stats
}

func NewManager(dev Device, opts Options) *Manager {
	def := DefaultOptions()
	if opts.Margin <= 0 {
		opts.Margin = def.Margin
	}
	if opts.FovY <= 0 {
		opts.FovY = def.FovY
	}
	if opts.Aspect <= 0 {
		opts.Aspect = def.Aspect
	}
	m := &Manager{
		dev:          dev,
		opts:         opts,
		log:          logging.Or(opts.Logger),
		camera:       NewCamera(opts.FovY, opts.Aspect),
		visible:      true,
		edgesVisible: true,
	}
	for i, l := range DefaultLights() {
		l := l
		m.lights = append(m.lights, &Object{
			Name:    fmt.Sprintf("light-%d", i),
			Kind:    LightObject,
			Visible: true,
			Light:   &l,
		})
	}
	return m
}

// InstallMesh replaces the displayed mesh with msh and returns the id of the
// new generation. An invalid mesh, or a failure while allocating, leaves the
// current generation in place. An empty mesh clears the scene.
func (m *Manager) InstallMesh(msh *mesh.Mesh) (uuid.UUID, error) {
	if msh == nil {
		return uuid.Nil, errors.New("install: nil mesh")
	}
	if err := msh.Validate(); err != nil {
		return uuid.Nil, fmt.Errorf("install: %w", err)
	}
	if msh.IsEmpty() {
		return uuid.Nil, m.Clear()
	}

	geom := BuildGeometry(msh)
	next := &generation{id: uuid.New(), geom: geom}
	if m.opts.Edges {
		next.edges = EdgeSegments(geom)
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if err := m.allocate(next); err != nil {
		return uuid.Nil, fmt.Errorf("install: %w", err)
	}
	prev := m.gen
	m.gen = next
	m.camera.Fit(geom.Bounds, m.opts.Margin)
	m.stats.Installed++
	if prev != nil {
		m.retire(prev)
	}
	m.log.Debug("installed mesh", "generation", next.id, "triangles", geom.Triangles,
		"vertices", len(geom.Positions)/3, "edges", len(next.edges)/6)
	return next.id, nil
}

// allocate creates the device resources of g. On failure everything
// allocated so far is released again.
func (m *Manager) allocate(g *generation) error {
	short := g.id.String()[:8]
	g.surface = &Object{Name: "surface-" + short, Kind: SurfaceObject, Visible: m.visible, Material: SurfaceMaterial}
	descs := []BufferDesc{
		{Label: g.surface.Name + "/position", Kind: PositionBuffer, Size: 4 * len(g.geom.Positions)},
		{Label: g.surface.Name + "/normal", Kind: NormalBuffer, Size: 4 * len(g.geom.Normals)},
	}
	if g.geom.Indices != nil {
		descs = append(descs, BufferDesc{Label: g.surface.Name + "/index", Kind: IndexBuffer, Size: 4 * len(g.geom.Indices)})
	}
	descs = append(descs, BufferDesc{Label: g.surface.Name + "/material", Kind: MaterialBlock, Size: 64})
	if err := m.fill(g.surface, descs); err != nil {
		return multierr.Append(err, g.surface.dispose())
	}
	if !m.opts.Edges {
		return nil
	}

	g.overlay = &Object{Name: "edges-" + short, Kind: EdgeObject, Visible: m.visible && m.edgesVisible, Material: EdgeMaterial}
	descs = []BufferDesc{
		{Label: g.overlay.Name + "/line", Kind: LineBuffer, Size: 4 * len(g.edges)},
		{Label: g.overlay.Name + "/material", Kind: MaterialBlock, Size: 64},
	}
	if err := m.fill(g.overlay, descs); err != nil {
		return multierr.Append(err, g.dispose())
	}
	return nil
}

func (m *Manager) fill(o *Object, descs []BufferDesc) error {
	for _, d := range descs {
		r, err := m.dev.NewBuffer(d)
		if err != nil {
			return err
		}
		o.resources = append(o.resources, r)
	}
	return nil
}

// retire releases a generation that is no longer displayed. Release
// failures are logged and counted; the generation is gone either way.
func (m *Manager) retire(g *generation) {
	m.stats.Released++
	if err := g.dispose(); err != nil {
		m.stats.ReleaseFailures++
		m.log.Warn("releasing generation", "generation", g.id, "err", err)
	}
}

// Clear removes and releases every non-light object.
func (m *Manager) Clear() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.gen == nil {
		return nil
	}
	g := m.gen
	m.gen = nil
	m.stats.Released++
	if err := g.dispose(); err != nil {
		m.stats.ReleaseFailures++
		return fmt.Errorf("clear: %w", err)
	}
	m.log.Debug("cleared scene", "generation", g.id)
	return nil
}

// SetVisible shows or hides the mesh and its edges. The setting carries over
// to later generations.
func (m *Manager) SetVisible(v bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.visible = v
	m.applyVisibility()
}

// SetEdgesVisible toggles the edge overlay only.
func (m *Manager) SetEdgesVisible(v bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.edgesVisible = v
	m.applyVisibility()
}

func (m *Manager) applyVisibility() {
	if m.gen == nil {
		return
	}
	m.gen.surface.Visible = m.visible
	if m.gen.overlay != nil {
		m.gen.overlay.Visible = m.visible && m.edgesVisible
	}
}

// SetAspect updates the camera for a resized viewport.
func (m *Manager) SetAspect(aspect float32) {
	if aspect <= 0 {
		return
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.camera.Aspect = aspect
}

func (m *Manager) State() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.gen == nil {
		return Empty
	}
	return Populated
}

func (m *Manager) Current() Snapshot {
	m.mu.Lock()
	defer m.mu.Unlock()
	s := Snapshot{
		Visible:      m.visible,
		EdgesVisible: m.edgesVisible,
		Camera:       m.camera,
	}
	for _, l := range m.lights {
		s.Lights = append(s.Lights, *l.Light)
	}
	if m.gen == nil {
		return s
	}
	g := m.gen
	s.State = Populated
	s.Generation = g.id
	s.Positions = g.geom.Positions
	s.Normals = g.geom.Normals
	s.Indices = g.geom.Indices
	s.Edges = g.edges
	s.Bounds = g.geom.Bounds
	s.Offset = g.geom.Offset
	s.Triangles = g.geom.Triangles
	return s
}

// Objects lists the scene children: lights first, then the mesh objects.
func (m *Manager) Objects() []ObjectInfo {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []ObjectInfo
	for _, l := range m.lights {
		out = append(out, l.info())
	}
	if m.gen != nil {
		for _, o := range m.gen.objects() {
			out = append(out, o.info())
		}
	}
	return out
}

func (m *Manager) Stats() Stats {
	m.mu.Lock()
	defer m.mu.Unlock()
	s := m.stats
	if m.gen != nil {
		s.LiveGenerations = 1
		for _, o := range m.gen.objects() {
			s.LiveResources += len(o.resources)
		}
	}
	return s
}
