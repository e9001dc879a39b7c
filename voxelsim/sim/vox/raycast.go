package vox

import (
	"math"

	"github.com/go-gl/mathgl/mgl32"
)

// GridRay walks a ray through the voxel lattice one cell per step (3D DDA).
// The caller normalises dir; a zero component never advances its axis.
type GridRay struct {
	voxel  Point
	step   [3]int32
	tMax   [3]float32
	tDelta [3]float32
}

func NewGridRay(origin, dir mgl32.Vec3) GridRay {
	r := GridRay{voxel: PointFromVec3(origin)}
	inf := float32(math.Inf(1))
	for i := 0; i < 3; i++ {
		d := dir[i]
		o := origin[i]
		cell := float32(math.Floor(float64(o)))
		switch {
		case d > 0:
			r.step[i] = 1
			r.tMax[i] = (cell + 1 - o) / d
			r.tDelta[i] = 1 / d
		case d < 0:
			r.step[i] = -1
			r.tMax[i] = (o - cell) / -d
			r.tDelta[i] = 1 / -d
		default:
			r.step[i] = 0
			r.tMax[i] = inf
			r.tDelta[i] = inf
		}
	}
	return r
}

func (r *GridRay) CurrentVoxel() Point {
	return r.voxel
}

// Step advances to the next voxel along the axis whose boundary is nearest.
func (r *GridRay) Step() {
	axis := 0
	if r.tMax[1] < r.tMax[axis] {
		axis = 1
	}
	if r.tMax[2] < r.tMax[axis] {
		axis = 2
	}
	switch axis {
	case 0:
		r.voxel.X += r.step[0]
	case 1:
		r.voxel.Y += r.step[1]
	case 2:
		r.voxel.Z += r.step[2]
	}
	r.tMax[axis] += r.tDelta[axis]
}
