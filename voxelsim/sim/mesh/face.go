package mesh

import (
	"github.com/gekko3d/voxrts/voxelsim/sim/vox"
)

// uFlipFaceAxis picks which face pair mirrors its U axis so that texture
// sampling stays consistent across the cube. Tangents follow the same rule.
const uFlipFaceAxis = 0

// OrientedFace is one of the six axis-aligned face directions. N is the
// signed unit normal; U and V are the positive unit axes a quad's width and
// height run along, chosen so cross(U, V) points along N.
type OrientedFace struct {
	N     vox.Point
	U     vox.Point
	V     vox.Point
	NAxis int
	NSign int32
}

// Faces returns the six oriented faces in +X, -X, +Y, -Y, +Z, -Z order.
func Faces() [6]OrientedFace {
	return [6]OrientedFace{
		{N: vox.Pt(1, 0, 0), U: vox.Pt(0, 1, 0), V: vox.Pt(0, 0, 1), NAxis: 0, NSign: 1},
		{N: vox.Pt(-1, 0, 0), U: vox.Pt(0, 0, 1), V: vox.Pt(0, 1, 0), NAxis: 0, NSign: -1},
		{N: vox.Pt(0, 1, 0), U: vox.Pt(0, 0, 1), V: vox.Pt(1, 0, 0), NAxis: 1, NSign: 1},
		{N: vox.Pt(0, -1, 0), U: vox.Pt(1, 0, 0), V: vox.Pt(0, 0, 1), NAxis: 1, NSign: -1},
		{N: vox.Pt(0, 0, 1), U: vox.Pt(1, 0, 0), V: vox.Pt(0, 1, 0), NAxis: 2, NSign: 1},
		{N: vox.Pt(0, 0, -1), U: vox.Pt(0, 1, 0), V: vox.Pt(1, 0, 0), NAxis: 2, NSign: -1},
	}
}

func (f *OrientedFace) flipU() bool {
	if f.NSign < 0 {
		return uFlipFaceAxis != f.NAxis
	}
	return uFlipFaceAxis == f.NAxis
}

func (f *OrientedFace) MeshNormal() [3]float32 {
	return [3]float32{float32(f.N.X), float32(f.N.Y), float32(f.N.Z)}
}

// Tangent is the quad U axis, mirrored per the flip rule, with w fixed to +1
// (right handed).
func (f *OrientedFace) Tangent() [4]float32 {
	u := f.U
	if f.flipU() {
		u = vox.Pt(-u.X, -u.Y, -u.Z)
	}
	return [4]float32{float32(u.X), float32(u.Y), float32(u.Z), 1}
}

// QuadMeshPositions returns the four face corners. Positive faces sit one
// voxel along the normal from the quad minimum; negative faces sit on it.
func (f *OrientedFace) QuadMeshPositions(q Quad, voxelSize float32) [4][3]float32 {
	base := q.Minimum
	if f.NSign > 0 {
		base = base.Add(f.N)
	}
	c0 := base
	c1 := base.Add(f.U.Mul(q.Width))
	c2 := base.Add(f.V.Mul(q.Height))
	c3 := c1.Add(f.V.Mul(q.Height))
	scale := func(p vox.Point) [3]float32 {
		return [3]float32{
			float32(p.X) * voxelSize,
			float32(p.Y) * voxelSize,
			float32(p.Z) * voxelSize,
		}
	}
	return [4][3]float32{scale(c0), scale(c1), scale(c2), scale(c3)}
}

func (f *OrientedFace) TexCoords(q Quad) [4][2]float32 {
	w := float32(q.Width)
	h := float32(q.Height)
	if f.flipU() {
		return [4][2]float32{{w, 0}, {0, 0}, {w, h}, {0, h}}
	}
	return [4][2]float32{{0, 0}, {w, 0}, {0, h}, {w, h}}
}

// QuadMeshIndices emits two counter-clockwise triangles over the corner
// order of QuadMeshPositions, offset by the part-local vertex base.
func (f *OrientedFace) QuadMeshIndices(start uint32) [6]uint32 {
	return [6]uint32{start, start + 1, start + 3, start, start + 3, start + 2}
}
