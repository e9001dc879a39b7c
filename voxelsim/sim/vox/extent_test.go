package vox

import (
	"testing"
)

func TestExtentFromMinMax(t *testing.T) {
	e := ExtentFromMinMax(Pt(-2, 0, 1), Pt(1, 0, 3))
	if e.Shape != Pt(4, 1, 3) {
		t.Errorf("Expected shape (4,1,3), got %v", e.Shape)
	}
	if e.Max() != Pt(1, 0, 3) {
		t.Errorf("Max should round-trip, got %v", e.Max())
	}
	if e.Volume() != 12 {
		t.Errorf("Expected volume 12, got %d", e.Volume())
	}
}

func TestExtentPadded(t *testing.T) {
	e := ExtentFromMinShape(Pt(0, 0, 0), Splat(16)).Padded(1)
	if e.Min != Pt(-1, -1, -1) {
		t.Errorf("Padded min should be (-1,-1,-1), got %v", e.Min)
	}
	if e.Shape != Splat(18) {
		t.Errorf("Padded shape should be (18,18,18), got %v", e.Shape)
	}
}

func TestExtentContains(t *testing.T) {
	e := ExtentFromMinShape(Pt(-4, -4, -4), Splat(8))
	if !e.Contains(Pt(-4, -4, -4)) {
		t.Error("Min corner should be contained")
	}
	if !e.Contains(Pt(3, 3, 3)) {
		t.Error("Inclusive max should be contained")
	}
	if e.Contains(Pt(4, 0, 0)) {
		t.Error("Lub should not be contained")
	}
}

func TestExtentIntersection(t *testing.T) {
	a := ExtentFromMinShape(Pt(0, 0, 0), Splat(4))
	b := ExtentFromMinShape(Pt(2, 2, 2), Splat(4))
	i := a.Intersection(b)
	if i.Min != Pt(2, 2, 2) || i.Shape != Splat(2) {
		t.Errorf("Expected intersection min (2,2,2) shape (2,2,2), got %v %v", i.Min, i.Shape)
	}

	// Disjoint boxes intersect in an empty extent
	c := ExtentFromMinShape(Pt(10, 0, 0), Splat(2))
	if !a.Intersection(c).Empty() {
		t.Error("Disjoint extents should have an empty intersection")
	}
	if a.Intersects(c) {
		t.Error("Disjoint extents should not report intersecting")
	}
}

func TestExtentForEachOrder(t *testing.T) {
	e := ExtentFromMinShape(Pt(0, 0, 0), Pt(2, 2, 1))
	var got []Point
	e.ForEach(func(p Point) {
		got = append(got, p)
	})
	want := []Point{{0, 0, 0}, {1, 0, 0}, {0, 1, 0}, {1, 1, 0}}
	if len(got) != len(want) {
		t.Fatalf("Expected %d points, got %d", len(want), len(got))
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("Point %d: expected %v, got %v", i, want[i], got[i])
		}
	}
}

func TestArrayAnchorAndCopy(t *testing.T) {
	src := NewArray(ExtentFromMinShape(Pt(0, 0, 0), Pt(2, 2, 1)))
	src.Set(Pt(1, 0, 0), 7)

	// Re-anchor like a tile stamped away from origin
	src.SetMinimum(Pt(10, 10, 0))
	if src.Get(Pt(11, 10, 0)) != 7 {
		t.Error("SetMinimum should keep voxels at their relative offsets")
	}

	dst := NewArray(ExtentFromMinShape(Pt(10, 10, 0), Splat(4)))
	dst.CopyFrom(src.Extent(), src)
	if dst.Get(Pt(11, 10, 0)) != 7 {
		t.Error("CopyFrom should copy the overlapping voxels")
	}
	if dst.Get(Pt(10, 10, 0)) != EmptyVoxel {
		t.Error("Untouched destination voxels should stay empty")
	}
}
