package shade

import "math"

// A Vec3 is a point or direction in 3D space.
type Vec3 struct {
	X, Y, Z float64
}

func (v Vec3) Add(v1 Vec3) Vec3 {
	return Vec3{v.X + v1.X, v.Y + v1.Y, v.Z + v1.Z}
}

func (v Vec3) Sub(v1 Vec3) Vec3 {
	return Vec3{v.X - v1.X, v.Y - v1.Y, v.Z - v1.Z}
}

func (v Vec3) Scale(s float64) Vec3 {
	return Vec3{v.X * s, v.Y * s, v.Z * s}
}

func (v Vec3) Dot(v1 Vec3) float64 {
	return v.X*v1.X + v.Y*v1.Y + v.Z*v1.Z
}

func (v Vec3) Cross(v1 Vec3) Vec3 {
	return Vec3{
		v.Y*v1.Z - v.Z*v1.Y,
		v.Z*v1.X - v.X*v1.Z,
		v.X*v1.Y - v.Y*v1.X,
	}
}

func (v Vec3) Norm() float64 {
	return math.Sqrt(v.Dot(v))
}

// Normalize returns a unit vector in the direction of v.
func (v Vec3) Normalize() Vec3 {
	return v.Scale(1 / v.Norm())
}
