package world

import (
	"testing"

	"github.com/gekko3d/voxrts/voxelsim/sim/vox"
)

func testGenMaterials() map[string]uint16 {
	return map[string]uint16{"flat_red": 0, "flat_green": 1}
}

func TestGenerateFlatBoard(t *testing.T) {
	voxels := generateVoxels(testGenMaterials(), vox.Pt(0, 0, 0), 4, FlatBoard{Material: "flat_red"})

	// A size x size layer one voxel below the origin, centred in X and Y
	for x := int32(-2); x < 2; x++ {
		for y := int32(-2); y < 2; y++ {
			if voxels.Get(vox.Pt(x, y, -1)) != 1 {
				t.Errorf("Expected board material at (%d,%d,-1)", x, y)
			}
		}
	}
	if !voxels.Get(vox.Pt(0, 0, 0)).Empty() {
		t.Error("The layer above the board should be empty")
	}
	if !voxels.Get(vox.Pt(2, 0, -1)).Empty() || !voxels.Get(vox.Pt(-3, 0, -1)).Empty() {
		t.Error("The board should stop at the half-size boundary")
	}
}

func TestGenerateCheckersBoard(t *testing.T) {
	voxels := generateVoxels(testGenMaterials(), vox.Pt(0, 0, 0), 4, CheckersBoard{Zero: "flat_red", One: "flat_green"})

	for x := int32(-2); x < 2; x++ {
		for y := int32(-2); y < 2; y++ {
			want := vox.Voxel(2)
			if (x%2+y%2)%2 == 0 {
				want = 1
			}
			if got := voxels.Get(vox.Pt(x, y, -1)); got != want {
				t.Errorf("Expected %d at (%d,%d,-1), got %d", want, x, y, got)
			}
		}
	}
}

func TestGeneratePerlinColumns(t *testing.T) {
	// Zero amplitude pins the noise to the bias, giving columns of a known
	// height everywhere
	style := PerlinNoise{
		Params: vox.PerlinNoise2D{
			Amplitude: 0,
			Bias:      4,
			Scale:     [2]float64{1, 1},
		},
		Material: "flat_green",
	}
	voxels := generateVoxels(testGenMaterials(), vox.Pt(0, 0, 0), 4, style)

	for z := int32(-4); z < 4; z++ {
		if voxels.Get(vox.Pt(0, 0, z)) != 2 {
			t.Errorf("Expected column material at z=%d", z)
		}
	}
	if !voxels.Get(vox.Pt(0, 0, 4)).Empty() {
		t.Error("Column should stop below the noise height")
	}
	if !voxels.Get(vox.Pt(0, 0, -5)).Empty() {
		t.Error("Column should be eight voxels tall")
	}
	if !voxels.Get(vox.Pt(2, 0, 0)).Empty() {
		t.Error("Columns should stop at the half-size boundary")
	}
}

func TestFillVoxelUnknownMaterialPanics(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Error("An unknown fill material should panic")
		}
	}()
	fillVoxel(testGenMaterials(), "no_such_material")
}
