package mesh

import (
	"github.com/go-gl/mathgl/mgl32"

	"github.com/gekko3d/voxrts/voxelsim/sim/vox"
)

type AxisAlignedBoundingBox struct {
	Min mgl32.Vec3
	Max mgl32.Vec3
}

type BoundingSphere struct {
	Center mgl32.Vec3
	Radius float32
}

// VisibleBounds is the cull model handed to the visibility registry, in
// local chunk coordinates.
type VisibleBounds struct {
	AABB           AxisAlignedBoundingBox
	BoundingSphere BoundingSphere
}

// MakeVisibleBounds builds bounds for the unpadded chunk extent: an AABB
// from the origin to shape+1, and a sphere on its centroid.
func MakeVisibleBounds(extent vox.Extent) VisibleBounds {
	max := extent.Shape.Vec3().Add(mgl32.Vec3{1, 1, 1})
	center := max.Mul(0.5)
	radius := center.Sub(max).Len()
	return VisibleBounds{
		AABB: AxisAlignedBoundingBox{
			Min: mgl32.Vec3{},
			Max: max,
		},
		BoundingSphere: BoundingSphere{
			Center: center,
			Radius: radius,
		},
	}
}
