package world

import (
	"sync"

	"github.com/go-gl/mathgl/mgl32"

	"github.com/gekko3d/voxrts/voxelsim/sim/mesh"
	"github.com/gekko3d/voxrts/voxelsim/sim/upload"
)

// VisibilityRegion is the default VisibilityRegistry. It only tracks
// registrations; culling itself belongs to a renderer.
type VisibilityRegion struct {
	mu      sync.Mutex
	nextID  uint64
	objects map[uint64]*visibilityRecord
}

func NewVisibilityRegion() *VisibilityRegion {
	return &VisibilityRegion{
		nextID:  1,
		objects: make(map[uint64]*visibilityRecord),
	}
}

func (r *VisibilityRegion) RegisterStaticObject(entity EntityID, bounds mesh.VisibleBounds) VisibilityObject {
	r.mu.Lock()
	defer r.mu.Unlock()
	id := r.nextID
	r.nextID++
	rec := &visibilityRecord{
		region: r,
		id:     id,
		entity: entity,
		bounds: bounds,
		scale:  mgl32.Vec3{1, 1, 1},
	}
	r.objects[id] = rec
	return rec
}

func (r *VisibilityRegion) ObjectCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.objects)
}

type visibilityRecord struct {
	region        *VisibilityRegion
	id            uint64
	entity        EntityID
	bounds        mesh.VisibleBounds
	translation   mgl32.Vec3
	rotation      mgl32.Quat
	scale         mgl32.Vec3
	renderObjects []upload.RenderObjectHandle
}

func (o *visibilityRecord) SetTransform(translation mgl32.Vec3, rotation mgl32.Quat, scale mgl32.Vec3) {
	o.region.mu.Lock()
	o.translation = translation
	o.rotation = rotation
	o.scale = scale
	o.region.mu.Unlock()
}

func (o *visibilityRecord) AddRenderObject(handle upload.RenderObjectHandle) {
	o.region.mu.Lock()
	o.renderObjects = append(o.renderObjects, handle)
	o.region.mu.Unlock()
}

func (o *visibilityRecord) Release() {
	o.region.mu.Lock()
	delete(o.region.objects, o.id)
	o.region.mu.Unlock()
}
