package vox

import (
	"testing"
)

func TestChunkMapReadWrite(t *testing.T) {
	m := NewChunkMap(DefaultChunkShape())

	if m.Get(Pt(5, 5, 5)) != EmptyVoxel {
		t.Error("Unwritten points should read empty")
	}

	m.Set(Pt(5, 5, 5), 3)
	if m.Get(Pt(5, 5, 5)) != 3 {
		t.Errorf("Expected 3 after write, got %d", m.Get(Pt(5, 5, 5)))
	}

	// Negative coordinates land in the right chunk
	m.Set(Pt(-1, -1, -1), 9)
	if m.Get(Pt(-1, -1, -1)) != 9 {
		t.Errorf("Expected 9 at (-1,-1,-1), got %d", m.Get(Pt(-1, -1, -1)))
	}
}

func TestChunkMinForPoint(t *testing.T) {
	m := NewChunkMap(DefaultChunkShape())

	cases := []struct {
		p    Point
		want Point
	}{
		{Pt(0, 0, 0), Pt(0, 0, 0)},
		{Pt(15, 15, 15), Pt(0, 0, 0)},
		{Pt(16, 0, 0), Pt(16, 0, 0)},
		{Pt(-1, 0, 0), Pt(-16, 0, 0)},
		{Pt(-16, -16, -16), Pt(-16, -16, -16)},
		{Pt(-17, 5, 31), Pt(-32, 0, 16)},
	}
	for _, c := range cases {
		if got := m.ChunkMinForPoint(c.p); got != c.want {
			t.Errorf("ChunkMinForPoint(%v): expected %v, got %v", c.p, c.want, got)
		}
	}
}

func TestChunkMinsForPaddedWrite(t *testing.T) {
	m := NewChunkMap(DefaultChunkShape())

	// The padded single-voxel extent drives dirty propagation: interior
	// write touches 1 chunk, face 2, edge 4, corner 8.
	cases := []struct {
		p    Point
		want int
	}{
		{Pt(5, 5, 5), 1},
		{Pt(0, 5, 5), 2},
		{Pt(15, 5, 5), 2},
		{Pt(0, 0, 5), 4},
		{Pt(0, 0, 0), 8},
		{Pt(15, 15, 15), 8},
	}
	for _, c := range cases {
		e := ExtentFromMinShape(c.p, Splat(1)).Padded(1)
		if got := len(m.ChunkMinsForExtent(e)); got != c.want {
			t.Errorf("Padded write at %v: expected %d chunks, got %d", c.p, c.want, got)
		}
	}
}

func TestVisitOccupiedChunks(t *testing.T) {
	m := NewChunkMap(DefaultChunkShape())
	m.Set(Pt(0, 0, 0), 1)
	m.Set(Pt(40, 0, 0), 1)

	count := 0
	m.VisitOccupiedChunks(ExtentFromMinShape(Pt(0, 0, 0), Splat(16)), func(c *Array) {
		count++
		if c.Extent().Min != Pt(0, 0, 0) {
			t.Errorf("Unexpected chunk visited: %v", c.Extent().Min)
		}
	})
	if count != 1 {
		t.Errorf("Expected 1 chunk in range, visited %d", count)
	}

	count = 0
	m.VisitOccupiedChunks(ExtentFromMinShape(Pt(-8, -8, -8), Splat(64)), func(c *Array) {
		count++
	})
	if count != 2 {
		t.Errorf("Expected both chunks in range, visited %d", count)
	}
}

func TestFillExtentAndBoundingExtent(t *testing.T) {
	m := NewChunkMap(DefaultChunkShape())
	fill := ExtentFromMinShape(Pt(-16, -16, -1), Pt(32, 32, 1))
	m.FillExtent(fill, 2)

	if m.Get(Pt(-16, -16, -1)) != 2 || m.Get(Pt(15, 15, -1)) != 2 {
		t.Error("FillExtent should write the whole extent")
	}
	if m.Get(Pt(0, 0, 0)) != EmptyVoxel {
		t.Error("FillExtent should not write outside the extent")
	}

	b := m.BoundingExtent()
	if !b.Contains(Pt(-16, -16, -1)) || !b.Contains(Pt(15, 15, -1)) {
		t.Errorf("Bounding extent %v should cover the filled layer", b)
	}
}

func TestCopyExtentTo(t *testing.T) {
	m := NewChunkMap(DefaultChunkShape())
	m.Set(Pt(0, 0, 0), 5)
	m.Set(Pt(15, 0, 0), 6)

	// Padded slab extraction: everything outside materialized chunks is
	// ambient empty.
	padded := ExtentFromMinShape(Pt(0, 0, 0), Splat(16)).Padded(1)
	slab := NewArray(padded)
	m.CopyExtentTo(padded, slab)

	if slab.Get(Pt(0, 0, 0)) != 5 || slab.Get(Pt(15, 0, 0)) != 6 {
		t.Error("Slab should contain the written voxels")
	}
	if slab.Get(Pt(-1, 0, 0)) != EmptyVoxel || slab.Get(Pt(16, 0, 0)) != EmptyVoxel {
		t.Error("Padding outside materialized chunks should be empty")
	}

	// A materialized neighbour shows up in the padding
	m.Set(Pt(16, 0, 0), 7)
	slab = NewArray(padded)
	m.CopyExtentTo(padded, slab)
	if slab.Get(Pt(16, 0, 0)) != 7 {
		t.Error("Neighbour chunk voxels should appear in the padding")
	}
}
