package vox

// ChunkEdge is the cubic chunk edge length used by the streaming pipeline.
const ChunkEdge int32 = 16

func DefaultChunkShape() Point {
	return Splat(ChunkEdge)
}

// ChunkMap is a sparse voxel grid chunked at a fixed shape. Chunks are keyed
// by their minimum corner, always a multiple of the chunk shape. Everything
// outside materialized chunks reads as empty.
type ChunkMap struct {
	shape  Point
	chunks map[Point]*Array
}

func NewChunkMap(shape Point) *ChunkMap {
	return &ChunkMap{
		shape:  shape,
		chunks: make(map[Point]*Array),
	}
}

func (m *ChunkMap) ChunkShape() Point {
	return m.shape
}

func floorDiv(a, b int32) int32 {
	q := a / b
	if a%b != 0 && (a < 0) != (b < 0) {
		q--
	}
	return q
}

// ChunkMinForPoint returns the minimum corner of the chunk containing p.
// Division rounds toward negative infinity on every axis.
func (m *ChunkMap) ChunkMinForPoint(p Point) Point {
	return Point{
		X: floorDiv(p.X, m.shape.X) * m.shape.X,
		Y: floorDiv(p.Y, m.shape.Y) * m.shape.Y,
		Z: floorDiv(p.Z, m.shape.Z) * m.shape.Z,
	}
}

func (m *ChunkMap) ExtentForChunkWithMin(min Point) Extent {
	return ExtentFromMinShape(min, m.shape)
}

// ChunkMinsForExtent enumerates the minimum corners of every chunk whose
// extent intersects e, materialized or not.
func (m *ChunkMap) ChunkMinsForExtent(e Extent) []Point {
	if e.Empty() {
		return nil
	}
	lo := m.ChunkMinForPoint(e.Min)
	hi := m.ChunkMinForPoint(e.Max())
	var mins []Point
	for z := lo.Z; z <= hi.Z; z += m.shape.Z {
		for y := lo.Y; y <= hi.Y; y += m.shape.Y {
			for x := lo.X; x <= hi.X; x += m.shape.X {
				mins = append(mins, Point{x, y, z})
			}
		}
	}
	return mins
}

func (m *ChunkMap) chunk(min Point) *Array {
	c, ok := m.chunks[min]
	if !ok {
		c = NewArray(m.ExtentForChunkWithMin(min))
		m.chunks[min] = c
	}
	return c
}

func (m *ChunkMap) Get(p Point) Voxel {
	c, ok := m.chunks[m.ChunkMinForPoint(p)]
	if !ok {
		return EmptyVoxel
	}
	return c.Get(p)
}

// Set materializes the containing chunk if needed, even for an empty write;
// the scheduler relies on that to pick up clears of never-meshed regions.
func (m *ChunkMap) Set(p Point, v Voxel) {
	m.chunk(m.ChunkMinForPoint(p)).Set(p, v)
}

func (m *ChunkMap) FillExtent(e Extent, v Voxel) {
	for _, min := range m.ChunkMinsForExtent(e) {
		m.chunk(min).Fill(e, v)
	}
}

// VisitOccupiedChunks calls f for every materialized chunk whose extent
// intersects e, in unspecified order.
func (m *ChunkMap) VisitOccupiedChunks(e Extent, f func(chunk *Array)) {
	for _, c := range m.chunks {
		if c.Extent().Intersects(e) {
			f(c)
		}
	}
}

// BoundingExtent returns the extent covering every materialized chunk.
func (m *ChunkMap) BoundingExtent() Extent {
	first := true
	var lo, hi Point
	for min := range m.chunks {
		if first {
			lo, hi = min, min
			first = false
			continue
		}
		lo = lo.Min(min)
		hi = hi.Max(min)
	}
	if first {
		return Extent{}
	}
	return ExtentFromMinMax(lo, hi.Add(m.shape).Sub(Splat(1)))
}

// CopyExtentTo copies the voxels of e into dst, reading ambient empty for
// anything outside materialized chunks. dst must cover e.
func (m *ChunkMap) CopyExtentTo(e Extent, dst *Array) {
	for _, min := range m.ChunkMinsForExtent(e) {
		c, ok := m.chunks[min]
		if !ok {
			continue
		}
		dst.CopyFrom(e, c)
	}
}
