package world

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/gekko3d/voxrts/voxelsim/sim/vox"
)

var (
	ErrTilePaletteTooLarge = errors.New("tile palette exceeds 256 materials")
	ErrTileOddLine         = errors.New("tile voxel line has odd length")
	ErrTileBadHex          = errors.New("tile voxel line is not hex pairs")
	ErrTilePaletteIndex    = errors.New("tile material index outside palette")
)

// TileRecord is the on-disk form of a tile. Voxels[z][y] is a string of hex
// pairs; every pair is a palette index, 00 meaning empty and any other
// value v meaning Palette[v-1]. Lines may be shorter than the widest line
// of the tile; missing trailing cells are empty.
type TileRecord struct {
	Name    string     `json:"name"`
	Palette []string   `json:"palette"`
	Voxels  [][]string `json:"voxels"`
}

// Tile is a decoded tile. Voxel values are 1-based palette indices, not
// world material indices; stamping remaps them through a universe's
// material table.
type Tile struct {
	Name    string
	Palette []string
	Voxels  *vox.Array
}

// Decode parses the hex rows into a dense voxel array anchored at the
// origin. The array shape is the maximum line width by the maximum line
// count by the layer count. Any malformed line fails the whole tile.
func (r *TileRecord) Decode() (*Tile, error) {
	if len(r.Palette) > 256 {
		return nil, fmt.Errorf("%w: %d", ErrTilePaletteTooLarge, len(r.Palette))
	}
	var xMax, yMax int32
	for _, slice := range r.Voxels {
		if int32(len(slice)) > yMax {
			yMax = int32(len(slice))
		}
		for _, line := range slice {
			if w := int32(len(line) / 2); w > xMax {
				xMax = w
			}
		}
	}
	shape := vox.Pt(xMax, yMax, int32(len(r.Voxels)))
	voxels := vox.NewArray(vox.ExtentFromMinShape(vox.Point{}, shape))
	for z, slice := range r.Voxels {
		for y, line := range slice {
			if len(line)%2 != 0 {
				return nil, fmt.Errorf("%w: %q", ErrTileOddLine, line)
			}
			for x := 0; 2*x < len(line); x++ {
				pair := line[2*x : 2*x+2]
				mat, err := strconv.ParseUint(pair, 16, 16)
				if err != nil {
					return nil, fmt.Errorf("%w: %q", ErrTileBadHex, pair)
				}
				if int(mat) > len(r.Palette) {
					return nil, fmt.Errorf("%w: index %d, palette has %d materials",
						ErrTilePaletteIndex, mat, len(r.Palette))
				}
				voxels.Set(vox.Pt(int32(x), int32(y), int32(z)), vox.Voxel(mat))
			}
		}
	}
	return &Tile{Name: r.Name, Palette: r.Palette, Voxels: voxels}, nil
}

// Record re-encodes the tile into its on-disk form with full rectangular
// lines.
func (t *Tile) Record() *TileRecord {
	e := t.Voxels.Extent()
	lub := e.Lub()
	voxels := make([][]string, 0, e.Shape.Z)
	for z := e.Min.Z; z < lub.Z; z++ {
		slice := make([]string, 0, e.Shape.Y)
		for y := e.Min.Y; y < lub.Y; y++ {
			var line strings.Builder
			for x := e.Min.X; x < lub.X; x++ {
				fmt.Fprintf(&line, "%02X", uint16(t.Voxels.Get(vox.Pt(x, y, z))))
			}
			slice = append(slice, line.String())
		}
		voxels = append(voxels, slice)
	}
	return &TileRecord{Name: t.Name, Palette: t.Palette, Voxels: voxels}
}
