package world

import (
	"testing"

	"github.com/gekko3d/voxrts/voxelsim/sim/vox"
)

func TestSectorKeyForChunk(t *testing.T) {
	cases := []struct {
		min  vox.Point
		want vox.Point
	}{
		{vox.Pt(0, 0, 0), vox.Pt(0, 0, 0)},
		{vox.Pt(16, 240, 0), vox.Pt(0, 0, 0)},
		{vox.Pt(255, 0, 0), vox.Pt(0, 0, 0)},
		{vox.Pt(256, 0, 0), vox.Pt(256, 0, 0)},
		{vox.Pt(-1, 0, 0), vox.Pt(-256, 0, 0)},
		{vox.Pt(-16, -16, -16), vox.Pt(-256, -256, -256)},
		// Exact negative multiples map to themselves
		{vox.Pt(-256, 0, 0), vox.Pt(-256, 0, 0)},
		{vox.Pt(-257, 0, 0), vox.Pt(-512, 0, 0)},
		{vox.Pt(16, -16, 528), vox.Pt(0, -256, 512)},
	}
	for _, c := range cases {
		if got := SectorKeyForChunk(c.min); got != c.want {
			t.Errorf("SectorKeyForChunk(%v): expected %v, got %v", c.min, c.want, got)
		}
	}
}

func TestChunkMeshed(t *testing.T) {
	c := &Chunk{}
	if c.Meshed() {
		t.Error("A fresh chunk record should not be meshed")
	}
	c.mesh = 7
	if !c.Meshed() {
		t.Error("A chunk with a mesh handle should be meshed")
	}
}
