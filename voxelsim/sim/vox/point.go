package vox

import (
	"github.com/go-gl/mathgl/mgl32"
)

// Point is an integer lattice coordinate (voxel or chunk-min space).
type Point struct {
	X, Y, Z int32
}

func Pt(x, y, z int32) Point {
	return Point{X: x, Y: y, Z: z}
}

func Splat(v int32) Point {
	return Point{X: v, Y: v, Z: v}
}

func (p Point) Add(o Point) Point {
	return Point{p.X + o.X, p.Y + o.Y, p.Z + o.Z}
}

func (p Point) Sub(o Point) Point {
	return Point{p.X - o.X, p.Y - o.Y, p.Z - o.Z}
}

func (p Point) Mul(s int32) Point {
	return Point{p.X * s, p.Y * s, p.Z * s}
}

// Min returns the component-wise minimum.
func (p Point) Min(o Point) Point {
	return Point{min(p.X, o.X), min(p.Y, o.Y), min(p.Z, o.Z)}
}

// Max returns the component-wise maximum.
func (p Point) Max(o Point) Point {
	return Point{max(p.X, o.X), max(p.Y, o.Y), max(p.Z, o.Z)}
}

func (p Point) Vec3() mgl32.Vec3 {
	return mgl32.Vec3{float32(p.X), float32(p.Y), float32(p.Z)}
}

// PointFromVec3 truncates toward negative infinity, so fractional camera
// positions land in the voxel that actually contains them.
func PointFromVec3(v mgl32.Vec3) Point {
	return Point{floorF32(v.X()), floorF32(v.Y()), floorF32(v.Z())}
}

func floorF32(v float32) int32 {
	i := int32(v)
	if float32(i) > v {
		i--
	}
	return i
}
