package voxrts

import (
	"github.com/go-gl/mathgl/mgl32"

	"github.com/gekko3d/voxrts/voxelsim/sim/world"
)

// Chunk entities carry the world package's components directly; the aliases
// keep game code inside the engine namespace.
type TransformComponent = world.TransformComponent
type MeshComponent = world.MeshComponent
type VisibilityComponent = world.VisibilityComponent

// ViewerResource is the camera eye the chunk scheduler measures streaming
// distance from. Whatever drives the camera writes it; the universe tick
// system reads it every frame.
type ViewerResource struct {
	Eye mgl32.Vec3
}
