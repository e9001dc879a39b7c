package world

import (
	"fmt"

	"github.com/gekko3d/voxrts/voxelsim/sim/vox"
)

// FillStyle selects the initial voxel field of a universe.
type FillStyle interface{ fillStyle() }

// FlatBoard fills a single layer of Material under the origin plane.
type FlatBoard struct {
	Material string
}

// CheckersBoard alternates Zero and One per cell of the base layer.
type CheckersBoard struct {
	Zero string
	One  string
}

// PerlinNoise extrudes 8-voxel columns whose tops follow the noise field.
type PerlinNoise struct {
	Params   vox.PerlinNoise2D
	Material string
}

func (FlatBoard) fillStyle()     {}
func (CheckersBoard) fillStyle() {}
func (PerlinNoise) fillStyle()   {}

func fillVoxel(materials map[string]uint16, name string) vox.Voxel {
	idx, ok := materials[name]
	if !ok {
		panic(fmt.Sprintf("fill style references unknown material %q", name))
	}
	return vox.Voxel(idx + 1)
}

// generateVoxels builds the voxel field for a fresh or reset universe. The
// base extent is a size x size layer one voxel below origin.Z, centred on
// origin in X and Y.
func generateVoxels(materials map[string]uint16, origin vox.Point, size uint32, style FillStyle) *vox.ChunkMap {
	voxels := vox.NewChunkMap(vox.DefaultChunkShape())
	s := int32(size)
	baseMin := vox.Pt(origin.X-s/2, origin.Y-s/2, origin.Z-1)
	baseExtent := vox.ExtentFromMinShape(baseMin, vox.Pt(s, s, 1))
	switch st := style.(type) {
	case FlatBoard:
		voxels.FillExtent(baseExtent, fillVoxel(materials, st.Material))
	case CheckersBoard:
		zero := fillVoxel(materials, st.Zero)
		one := fillVoxel(materials, st.One)
		baseExtent.ForEach(func(p vox.Point) {
			if (p.X%2+p.Y%2)%2 == 0 {
				voxels.Set(p, zero)
			} else {
				voxels.Set(p, one)
			}
		})
	case PerlinNoise:
		v := fillVoxel(materials, st.Material)
		baseExtent.ForEach(func(p vox.Point) {
			noise := int32(st.Params.GetNoise(float64(p.X), float64(p.Y)))
			top := vox.Pt(p.X, p.Y, noise-8)
			voxels.FillExtent(vox.ExtentFromMinShape(top, vox.Pt(1, 1, 8)), v)
		})
	}
	return voxels
}
