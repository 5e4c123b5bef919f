package solver

import (
	"math"

	"gonum.org/v1/gonum/spatial/r3"

	"github.com/san-kum/mbody/internal/spatial"
)

// CliqueID groups contact surfaces whose mutual contacts the broadphase
// suppresses.
type CliqueID int

// ContactMaterial parameterizes a compliant contact surface.
type ContactMaterial struct {
	Stiffness       float64
	Dissipation     float64
	StaticFriction  float64
	DynamicFriction float64
	ViscousFriction float64
}

// GeometryKind tags contact geometry.
type GeometryKind int

const (
	HalfSpaceGeometry GeometryKind = iota
	SphereGeometry
	TriMeshGeometry
)

func (k GeometryKind) String() string {
	switch k {
	case HalfSpaceGeometry:
		return "halfspace"
	case SphereGeometry:
		return "sphere"
	case TriMeshGeometry:
		return "trimesh"
	}
	return "unknown"
}

// TriMesh is a tessellated contact surface.
type TriMesh struct {
	Vertices []r3.Vec
	Faces    [][3]int
}

// ContactGeometry is a closed variant over the supported geometry kinds.
// The canonical half-space occupies x <= 0; placements orient it.
type ContactGeometry struct {
	Kind   GeometryKind
	Radius float64
	Mesh   *TriMesh
}

// HalfSpace returns the canonical half-space geometry.
func HalfSpace() ContactGeometry {
	return ContactGeometry{Kind: HalfSpaceGeometry}
}

// Sphere returns a sphere of radius r.
func Sphere(r float64) ContactGeometry {
	return ContactGeometry{Kind: SphereGeometry, Radius: r}
}

// BrickMesh tessellates a box with the given half-extents; resolution is
// the number of times each face edge is subdivided.
func BrickMesh(half r3.Vec, resolution int) ContactGeometry {
	if resolution < 1 {
		resolution = 1
	}
	m := &TriMesh{}
	n := resolution
	// Each face is an n x n grid in its own plane.
	addFace := func(origin, du, dv r3.Vec) {
		base := len(m.Vertices)
		for i := 0; i <= n; i++ {
			for j := 0; j <= n; j++ {
				p := r3.Add(origin, r3.Add(
					r3.Scale(float64(i)/float64(n), du),
					r3.Scale(float64(j)/float64(n), dv)))
				m.Vertices = append(m.Vertices, p)
			}
		}
		for i := 0; i < n; i++ {
			for j := 0; j < n; j++ {
				a := base + i*(n+1) + j
				b := a + n + 1
				m.Faces = append(m.Faces,
					[3]int{a, b, a + 1},
					[3]int{a + 1, b, b + 1})
			}
		}
	}
	hx, hy, hz := half.X, half.Y, half.Z
	addFace(r3.Vec{X: hx, Y: -hy, Z: -hz}, r3.Vec{Y: 2 * hy}, r3.Vec{Z: 2 * hz})  // +x
	addFace(r3.Vec{X: -hx, Y: hy, Z: -hz}, r3.Vec{Y: -2 * hy}, r3.Vec{Z: 2 * hz}) // -x
	addFace(r3.Vec{X: hx, Y: hy, Z: -hz}, r3.Vec{X: -2 * hx}, r3.Vec{Z: 2 * hz})  // +y
	addFace(r3.Vec{X: -hx, Y: -hy, Z: -hz}, r3.Vec{X: 2 * hx}, r3.Vec{Z: 2 * hz}) // -y
	addFace(r3.Vec{X: -hx, Y: -hy, Z: hz}, r3.Vec{X: 2 * hx}, r3.Vec{Y: 2 * hy})  // +z
	addFace(r3.Vec{X: hx, Y: -hy, Z: -hz}, r3.Vec{X: -2 * hx}, r3.Vec{Y: 2 * hy}) // -z
	return ContactGeometry{Kind: TriMeshGeometry, Mesh: m}
}

// CylinderMesh tessellates a cylinder of radius r and half-length hl along
// the z axis as a prism with 6*resolution sides; resolution 1 gives the
// chunky hexagonal shape.
func CylinderMesh(r, hl float64, resolution int) ContactGeometry {
	if resolution < 1 {
		resolution = 1
	}
	sides := 6 * resolution
	m := &TriMesh{}
	// Ring vertices top and bottom, then the two cap centers.
	for _, z := range []float64{-hl, hl} {
		for i := 0; i < sides; i++ {
			a := 2 * math.Pi * float64(i) / float64(sides)
			m.Vertices = append(m.Vertices,
				r3.Vec{X: r * math.Cos(a), Y: r * math.Sin(a), Z: z})
		}
	}
	bot := len(m.Vertices)
	m.Vertices = append(m.Vertices, r3.Vec{Z: -hl}, r3.Vec{Z: hl})
	top := bot + 1
	for i := 0; i < sides; i++ {
		j := (i + 1) % sides
		b0, b1 := i, j
		t0, t1 := sides+i, sides+j
		m.Faces = append(m.Faces,
			[3]int{b0, t0, b1},
			[3]int{b1, t0, t1},
			[3]int{bot, b1, b0},
			[3]int{top, t0, t1})
	}
	return ContactGeometry{Kind: TriMeshGeometry, Mesh: m}
}

// ContactSurface pairs geometry with material and clique memberships.
type ContactSurface struct {
	Geometry ContactGeometry
	Material ContactMaterial
	cliques  []CliqueID
}

// NewContactSurface returns a surface with no clique memberships.
func NewContactSurface(g ContactGeometry, mat ContactMaterial) ContactSurface {
	return ContactSurface{Geometry: g, Material: mat}
}

// JoinClique adds the surface to a clique.
func (c *ContactSurface) JoinClique(id CliqueID) {
	c.cliques = append(c.cliques, id)
}

// Cliques returns the surface's clique memberships.
func (c *ContactSurface) Cliques() []CliqueID { return c.cliques }

// AllowContact reports whether the broadphase may generate contacts
// between two surfaces: false when they share a clique.
func AllowContact(a, b *ContactSurface) bool {
	for _, ca := range a.cliques {
		for _, cb := range b.cliques {
			if ca == cb {
				return false
			}
		}
	}
	return true
}

// AttachedSurface is a contact surface placed on a body.
type AttachedSurface struct {
	Placement spatial.Transform
	Surface   ContactSurface
}

// NewContactClique allocates a fresh clique.
func (s *System) NewContactClique() CliqueID {
	s.cliqueCounter++
	return s.cliqueCounter
}

// AddContactSurface attaches a surface to a body at a body-relative
// placement.
func (s *System) AddContactSurface(b BodyID, placement spatial.Transform, surf ContactSurface) {
	s.bodies[b].surfaces = append(s.bodies[b].surfaces, AttachedSurface{
		Placement: placement,
		Surface:   surf,
	})
}

// SurfacesOn returns the surfaces attached to a body.
func (s *System) SurfacesOn(b BodyID) []AttachedSurface {
	return s.bodies[b].surfaces
}
