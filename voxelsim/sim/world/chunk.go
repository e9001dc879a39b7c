package world

import (
	"github.com/gekko3d/voxrts/voxelsim/sim/mesh"
	"github.com/gekko3d/voxrts/voxelsim/sim/upload"
	"github.com/gekko3d/voxrts/voxelsim/sim/vox"
)

const (
	MaxChunkMeshJobs            = 16
	MaxNewChunkMeshJobsPerFrame = 4
	MaxChunkMeshJobsInit        = 65536
	MaxDistanceFromCamera       = 256
	SectorSize                  = 256
)

// Chunk is the scheduler's record for one chunk key. All handles are zero
// while the chunk has no uploaded mesh; building is true while a mesh task
// is in flight.
type Chunk struct {
	entity       EntityID
	mesh         upload.MeshHandle
	renderObject upload.RenderObjectHandle
	visibility   VisibilityObject
	dirty        bool
	building     bool
}

func (c *Chunk) Dirty() bool    { return c.dirty }
func (c *Chunk) Building() bool { return c.building }

func (c *Chunk) Entity() EntityID                        { return c.entity }
func (c *Chunk) Mesh() upload.MeshHandle                 { return c.mesh }
func (c *Chunk) RenderObject() upload.RenderObjectHandle { return c.renderObject }

// Meshed reports whether the chunk carries an uploaded mesh and its scene
// handles.
func (c *Chunk) Meshed() bool { return c.mesh != 0 }

// ChunkTaskResult is what a mesh build task sends back to the scheduler.
// Mesh is nil when the chunk produced no geometry or the build failed;
// Metrics.Failed distinguishes the two.
type ChunkTaskResult struct {
	Key     vox.Point
	Mesh    *mesh.DynMeshData
	Metrics ChunkTaskMetrics
}

func floorDiv(a, b int32) int32 {
	q := a / b
	if a%b != 0 && (a < 0) != (b < 0) {
		q--
	}
	return q
}

// SectorKeyForChunk maps a chunk minimum to its sector key, rounding toward
// negative infinity on every axis.
func SectorKeyForChunk(chunkMin vox.Point) vox.Point {
	return vox.Point{
		X: floorDiv(chunkMin.X, SectorSize) * SectorSize,
		Y: floorDiv(chunkMin.Y, SectorSize) * SectorSize,
		Z: floorDiv(chunkMin.Z, SectorSize) * SectorSize,
	}
}
