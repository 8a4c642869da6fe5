// Package shade computes pixel colors for a frame from an
// analytic scene of spheres resting on a checkered plane.
package shade

import (
	"math"

	"github.com/unixpickle/dist-render/frame"
)

const epsilon = 1e-6

// A Sphere is a solid ball with a flat color.
type Sphere struct {
	Center Vec3
	Radius float64
	Color  frame.Color
}

// intersect returns the distance along the ray to the
// nearest hit in front of the origin.
func (s *Sphere) intersect(origin, dir Vec3) (float64, bool) {
	oc := origin.Sub(s.Center)
	b := oc.Dot(dir)
	c := oc.Dot(oc) - s.Radius*s.Radius
	disc := b*b - c
	if disc < 0 {
		return 0, false
	}
	sq := math.Sqrt(disc)
	for _, t := range []float64{-b - sq, -b + sq} {
		if t > epsilon {
			return t, true
		}
	}
	return 0, false
}

// A Plane is the horizontal plane y = Height, checkered
// with squares of side Tile.
type Plane struct {
	Height float64
	Tile   float64
	Colors [2]frame.Color
}

func (p *Plane) intersect(origin, dir Vec3) (float64, bool) {
	if math.Abs(dir.Y) < epsilon {
		return 0, false
	}
	t := (p.Height - origin.Y) / dir.Y
	return t, t > epsilon
}

func (p *Plane) colorAt(point Vec3) frame.Color {
	ix := int(math.Floor(point.X / p.Tile))
	iz := int(math.Floor(point.Z / p.Tile))
	return p.Colors[(ix+iz)&1]
}

// A Camera looks from Position towards Target with a
// horizontal field of view of FOV radians.
type Camera struct {
	Position Vec3
	Target   Vec3
	FOV      float64
}

// Scene is a pure, deterministic pixel shader.
//
// Pixels are lit by one point light with hard shadows
// plus an ambient term, and never depend on which rank
// shades them.
type Scene struct {
	Camera     Camera
	Spheres    []Sphere
	Floor      *Plane
	Light      Vec3
	Ambient    float64
	Background frame.Color
}

// DefaultScene is a few spheres over a checkered floor.
func DefaultScene() *Scene {
	return &Scene{
		Camera: Camera{
			Position: Vec3{0, 1, -5},
			Target:   Vec3{0, 0.5, 0},
			FOV:      math.Pi / 3,
		},
		Spheres: []Sphere{
			{Center: Vec3{0, 0.5, 0}, Radius: 1, Color: frame.Color{0.9, 0.2, 0.2}},
			{Center: Vec3{-2, 0, 1}, Radius: 0.5, Color: frame.Color{0.2, 0.8, 0.3}},
			{Center: Vec3{1.8, 0.1, -0.5}, Radius: 0.6, Color: frame.Color{0.2, 0.3, 0.9}},
		},
		Floor: &Plane{
			Height: -0.5,
			Tile:   1,
			Colors: [2]frame.Color{{0.9, 0.9, 0.9}, {0.15, 0.15, 0.15}},
		},
		Light:      Vec3{-4, 6, -6},
		Ambient:    0.15,
		Background: frame.Color{0.5, 0.7, 1.0},
	}
}

// Shade computes the color of pixel (row, col).
func (s *Scene) Shade(cfg frame.Config, row, col int) frame.Color {
	origin, dir := s.primaryRay(cfg.Width, cfg.Height, row, col)
	t, color, normal, ok := s.nearest(origin, dir)
	if !ok {
		return s.Background
	}
	point := origin.Add(dir.Scale(t))

	toLight := s.Light.Sub(point)
	lightDist := toLight.Norm()
	toLight = toLight.Scale(1 / lightDist)

	intensity := s.Ambient
	shadowOrigin := point.Add(normal.Scale(1e-4))
	if st, _, _, hit := s.nearest(shadowOrigin, toLight); !hit || st > lightDist {
		intensity += math.Max(0, normal.Dot(toLight)) * (1 - s.Ambient)
	}
	for i := range color {
		color[i] = math.Min(1, color[i]*intensity)
	}
	return color
}

// primaryRay maps the center of a pixel onto a unit-distance
// image plane in front of the camera.
func (s *Scene) primaryRay(width, height, row, col int) (origin, dir Vec3) {
	cam := s.Camera
	forward := cam.Target.Sub(cam.Position).Normalize()
	right := Vec3{0, 1, 0}.Cross(forward).Normalize()
	up := forward.Cross(right)

	halfWidth := math.Tan(cam.FOV / 2)
	halfHeight := halfWidth * float64(height) / float64(width)
	x := (2*(float64(col)+0.5)/float64(width) - 1) * halfWidth
	y := (1 - 2*(float64(row)+0.5)/float64(height)) * halfHeight

	dir = forward.Add(right.Scale(x)).Add(up.Scale(y)).Normalize()
	return cam.Position, dir
}

func (s *Scene) nearest(origin, dir Vec3) (t float64, color frame.Color, normal Vec3, ok bool) {
	for i := range s.Spheres {
		sphere := &s.Spheres[i]
		if st, hit := sphere.intersect(origin, dir); hit && (!ok || st < t) {
			t, ok = st, true
			color = sphere.Color
			normal = origin.Add(dir.Scale(st)).Sub(sphere.Center).Normalize()
		}
	}
	if s.Floor != nil {
		if pt, hit := s.Floor.intersect(origin, dir); hit && (!ok || pt < t) {
			t, ok = pt, true
			color = s.Floor.colorAt(origin.Add(dir.Scale(pt)))
			normal = Vec3{0, 1, 0}
			if dir.Y > 0 {
				normal = Vec3{0, -1, 0}
			}
		}
	}
	return
}
