package mesh

import (
	"github.com/gekko3d/voxrts/voxelsim/sim/vox"
)

// Quad is a merged rectangular face. Minimum is the solid voxel at the
// quad's low corner; Width runs along the face's U axis, Height along V.
type Quad struct {
	Minimum vox.Point
	Width   int32
	Height  int32
}

type QuadGroup struct {
	Face  OrientedFace
	Quads []Quad
}

// GreedyQuadsBuffer holds the merged quads of one chunk, grouped per face
// direction.
type GreedyQuadsBuffer struct {
	Groups [6]QuadGroup
}

func NewGreedyQuadsBuffer() *GreedyQuadsBuffer {
	b := &GreedyQuadsBuffer{}
	faces := Faces()
	for i := range b.Groups {
		b.Groups[i].Face = faces[i]
	}
	return b
}

func (b *GreedyQuadsBuffer) NumQuads() int {
	n := 0
	for i := range b.Groups {
		n += len(b.Groups[i].Quads)
	}
	return n
}

// GreedyQuads meshes the interior of a padded slab. The slab must be the
// chunk extent grown by one voxel on every face; the padding supplies
// neighbour occupancy and never emits faces itself. A face is emitted
// between two adjacent voxels iff exactly one is empty, and coplanar faces
// of equal material merge into maximal rectangles: a width scan along U,
// then a height scan along V that stops at the first mismatched cell.
func GreedyQuads(slab *vox.Array, buf *GreedyQuadsBuffer) {
	interior := slab.Extent().Padded(-1)
	if interior.Empty() {
		return
	}
	lo := [3]int32{interior.Min.X, interior.Min.Y, interior.Min.Z}
	lub3 := interior.Lub()
	lub := [3]int32{lub3.X, lub3.Y, lub3.Z}

	for gi := range buf.Groups {
		group := &buf.Groups[gi]
		face := &group.Face
		uAxis := axisOf(face.U)
		vAxis := axisOf(face.V)
		un := lub[uAxis] - lo[uAxis]
		vn := lub[vAxis] - lo[vAxis]
		mask := make([]vox.Voxel, int(un)*int(vn))

		for s := lo[face.NAxis]; s < lub[face.NAxis]; s++ {
			// Mark visible faces of this slice
			for vi := int32(0); vi < vn; vi++ {
				for ui := int32(0); ui < un; ui++ {
					cell := composePoint(face.NAxis, s, uAxis, lo[uAxis]+ui, vAxis, lo[vAxis]+vi)
					m := slab.Get(cell)
					if !m.Empty() && slab.Get(cell.Add(face.N)).Empty() {
						mask[vi*un+ui] = m
					} else {
						mask[vi*un+ui] = vox.EmptyVoxel
					}
				}
			}

			// Merge runs into maximal rectangles
			for vi := int32(0); vi < vn; vi++ {
				for ui := int32(0); ui < un; ui++ {
					m := mask[vi*un+ui]
					if m.Empty() {
						continue
					}
					w := int32(1)
					for ui+w < un && mask[vi*un+ui+w] == m {
						w++
					}
					h := int32(1)
				grow:
					for vi+h < vn {
						for k := int32(0); k < w; k++ {
							if mask[(vi+h)*un+ui+k] != m {
								break grow
							}
						}
						h++
					}
					for dv := int32(0); dv < h; dv++ {
						for du := int32(0); du < w; du++ {
							mask[(vi+dv)*un+ui+du] = vox.EmptyVoxel
						}
					}
					group.Quads = append(group.Quads, Quad{
						Minimum: composePoint(face.NAxis, s, uAxis, lo[uAxis]+ui, vAxis, lo[vAxis]+vi),
						Width:   w,
						Height:  h,
					})
				}
			}
		}
	}
}

func axisOf(unit vox.Point) int {
	if unit.X != 0 {
		return 0
	}
	if unit.Y != 0 {
		return 1
	}
	return 2
}

func composePoint(aAxis int, a int32, bAxis int, b int32, cAxis int, c int32) vox.Point {
	var p [3]int32
	p[aAxis] = a
	p[bAxis] = b
	p[cAxis] = c
	return vox.Pt(p[0], p[1], p[2])
}
