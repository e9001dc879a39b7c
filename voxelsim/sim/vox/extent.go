package vox

// Extent is an axis-aligned box of voxels given by its minimum corner and
// shape. Max is inclusive; iteration is x-fastest, then y, then z.
type Extent struct {
	Min   Point
	Shape Point
}

func ExtentFromMinShape(min, shape Point) Extent {
	return Extent{Min: min, Shape: shape}
}

// ExtentFromMinMax builds the extent covering min..max inclusive.
func ExtentFromMinMax(min, max Point) Extent {
	return Extent{Min: min, Shape: max.Sub(min).Add(Splat(1))}
}

// Max returns the inclusive maximum corner.
func (e Extent) Max() Point {
	return e.Min.Add(e.Shape).Sub(Splat(1))
}

// Lub returns the exclusive upper bound, Min + Shape.
func (e Extent) Lub() Point {
	return e.Min.Add(e.Shape)
}

// Padded grows the extent by n voxels on every face.
func (e Extent) Padded(n int32) Extent {
	return Extent{Min: e.Min.Sub(Splat(n)), Shape: e.Shape.Add(Splat(2 * n))}
}

func (e Extent) Empty() bool {
	return e.Shape.X <= 0 || e.Shape.Y <= 0 || e.Shape.Z <= 0
}

func (e Extent) Volume() int {
	if e.Empty() {
		return 0
	}
	return int(e.Shape.X) * int(e.Shape.Y) * int(e.Shape.Z)
}

func (e Extent) Contains(p Point) bool {
	lub := e.Lub()
	return p.X >= e.Min.X && p.Y >= e.Min.Y && p.Z >= e.Min.Z &&
		p.X < lub.X && p.Y < lub.Y && p.Z < lub.Z
}

// Intersection clips e against o; the result may be empty.
func (e Extent) Intersection(o Extent) Extent {
	min := e.Min.Max(o.Min)
	lub := e.Lub().Min(o.Lub())
	return Extent{Min: min, Shape: lub.Sub(min)}
}

func (e Extent) Intersects(o Extent) bool {
	return !e.Intersection(o).Empty()
}

// ForEach visits every point of the extent in x-fastest order.
func (e Extent) ForEach(f func(Point)) {
	if e.Empty() {
		return
	}
	lub := e.Lub()
	for z := e.Min.Z; z < lub.Z; z++ {
		for y := e.Min.Y; y < lub.Y; y++ {
			for x := e.Min.X; x < lub.X; x++ {
				f(Point{x, y, z})
			}
		}
	}
}
