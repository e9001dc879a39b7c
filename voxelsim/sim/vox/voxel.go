package vox

// Voxel is a material reference. Zero means empty; any other value v refers
// to entry v-1 of the owning universe's material table.
type Voxel uint16

const EmptyVoxel Voxel = 0

func (v Voxel) Empty() bool {
	return v == EmptyVoxel
}
