package vox

// Array is a dense voxel block covering a fixed extent, stored x-fastest.
// It carries padded mesh-job slabs and decoded tile voxels.
type Array struct {
	extent Extent
	data   []Voxel
}

func NewArray(extent Extent) *Array {
	return NewArrayFill(extent, EmptyVoxel)
}

func NewArrayFill(extent Extent, v Voxel) *Array {
	data := make([]Voxel, extent.Volume())
	if v != EmptyVoxel {
		for i := range data {
			data[i] = v
		}
	}
	return &Array{extent: extent, data: data}
}

func (a *Array) Extent() Extent {
	return a.extent
}

// SetMinimum re-anchors the array at a new minimum corner without touching
// the stored voxels. Tiles are authored at origin and moved before stamping.
func (a *Array) SetMinimum(min Point) {
	a.extent.Min = min
}

func (a *Array) index(p Point) int {
	d := p.Sub(a.extent.Min)
	return int(d.X) + int(a.extent.Shape.X)*(int(d.Y)+int(a.extent.Shape.Y)*int(d.Z))
}

func (a *Array) Get(p Point) Voxel {
	return a.data[a.index(p)]
}

func (a *Array) Set(p Point, v Voxel) {
	a.data[a.index(p)] = v
}

// Fill writes v over the intersection of e with the array extent.
func (a *Array) Fill(e Extent, v Voxel) {
	e.Intersection(a.extent).ForEach(func(p Point) {
		a.Set(p, v)
	})
}

// ForEach visits every stored voxel in x-fastest order.
func (a *Array) ForEach(f func(Point, Voxel)) {
	i := 0
	a.extent.ForEach(func(p Point) {
		f(p, a.data[i])
		i++
	})
}

// CopyFrom copies the intersection of e, src and the destination extent.
func (a *Array) CopyFrom(e Extent, src *Array) {
	e.Intersection(src.extent).Intersection(a.extent).ForEach(func(p Point) {
		a.Set(p, src.Get(p))
	})
}
