package world

import (
	"github.com/go-gl/mathgl/mgl32"

	"github.com/gekko3d/voxrts/voxelsim/sim/mesh"
	"github.com/gekko3d/voxrts/voxelsim/sim/upload"
)

// EntityID identifies an entity in the scene store. Zero means none.
type EntityID uint64

// SceneStore is the entity store chunk entities live in. The engine's
// archetype world satisfies it through a thin adapter.
type SceneStore interface {
	PushEntity(components ...any) EntityID
	AddComponent(entity EntityID, component any)
	RemoveEntity(entity EntityID)
}

// EntityStore is the default SceneStore: a flat entity table. Universes
// created without an engine scene fall back to it.
type EntityStore struct {
	nextID   EntityID
	entities map[EntityID][]any
}

func NewEntityStore() *EntityStore {
	return &EntityStore{nextID: 1, entities: make(map[EntityID][]any)}
}

func (s *EntityStore) PushEntity(components ...any) EntityID {
	id := s.nextID
	s.nextID++
	s.entities[id] = components
	return id
}

func (s *EntityStore) AddComponent(entity EntityID, component any) {
	if components, ok := s.entities[entity]; ok {
		s.entities[entity] = append(components, component)
	}
}

func (s *EntityStore) RemoveEntity(entity EntityID) {
	delete(s.entities, entity)
}

func (s *EntityStore) Len() int { return len(s.entities) }

func (s *EntityStore) Components(entity EntityID) []any {
	return s.entities[entity]
}

// VisibilityObject is a registered culling record. Releasing it unregisters
// the object.
type VisibilityObject interface {
	SetTransform(translation mgl32.Vec3, rotation mgl32.Quat, scale mgl32.Vec3)
	AddRenderObject(handle upload.RenderObjectHandle)
	Release()
}

type VisibilityRegistry interface {
	RegisterStaticObject(entity EntityID, bounds mesh.VisibleBounds) VisibilityObject
}

// MaterialHandle refers to a material asset owned by an external store.
type MaterialHandle string

// NamedMaterial binds a universe-local material name to its asset handle.
// Slice order defines the voxel material indices: voxel value v refers to
// entry v-1.
type NamedMaterial struct {
	Name   string
	Handle MaterialHandle
}

// MaterialStore resolves material handles. A handle that is not yet
// committed reports false; the scheduler skips dispatch for the frame until
// every handle resolves.
type MaterialStore interface {
	CommittedMaterial(handle MaterialHandle) (mesh.MaterialRecord, bool)
}

// TaskPool runs mesh build tasks. Spawn must not block the caller.
type TaskPool interface {
	Spawn(task func())
}

// Logger is the subset of the engine logger the scheduler needs.
type Logger interface {
	Debugf(format string, args ...any)
	Infof(format string, args ...any)
	Warnf(format string, args ...any)
	Errorf(format string, args ...any)
}

type nopLogger struct{}

func NopLogger() Logger { return nopLogger{} }

func (nopLogger) Debugf(format string, args ...any) {}
func (nopLogger) Infof(format string, args ...any)  {}
func (nopLogger) Warnf(format string, args ...any)  {}
func (nopLogger) Errorf(format string, args ...any) {}

// Components attached to chunk entities.

type TransformComponent struct {
	Position mgl32.Vec3
	Rotation mgl32.Quat
	Scale    mgl32.Vec3
}

type MeshComponent struct {
	RenderObject upload.RenderObjectHandle
}

type VisibilityComponent struct {
	VisibilityObject VisibilityObject
}
