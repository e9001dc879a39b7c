package world

import (
	"github.com/go-gl/mathgl/mgl32"

	"github.com/gekko3d/voxrts/voxelsim/sim/upload"
	"github.com/gekko3d/voxrts/voxelsim/sim/vox"
)

// Services are the engine facilities universes run against. Any nil field
// falls back to a self-contained default, so a Simulation works standalone
// in tests and tools.
type Services struct {
	Scene         SceneStore
	Visibility    VisibilityRegistry
	RenderObjects *upload.RenderObjectSet
	Materials     MaterialStore
	Manager       *upload.Manager
	Pool          TaskPool
	Log           Logger
}

// Simulation owns the multiverse. Universe 0 always exists: it is the empty
// default world the simulation falls back to when the active universe is
// removed.
type Simulation struct {
	services  Services
	ownedPool *WorkerPool
	log       Logger

	multiverse       map[UniverseID]*Universe
	nextUniverseID   UniverseID
	activeUniverseID UniverseID
}

func NewSimulation(services Services) *Simulation {
	if services.Log == nil {
		services.Log = NopLogger()
	}
	s := &Simulation{
		services:       services,
		log:            services.Log,
		multiverse:     make(map[UniverseID]*Universe),
		nextUniverseID: 1,
	}
	if services.Pool == nil {
		s.ownedPool = NewWorkerPool(0)
		s.services.Pool = s.ownedPool
	}
	s.multiverse[0] = newUniverse(0, s.services, nil, vox.NewChunkMap(vox.DefaultChunkShape()), true)
	return s
}

// NewUniverse generates a fresh world, activates it and returns its id.
func (s *Simulation) NewUniverse(materials []NamedMaterial, origin vox.Point, size uint32, style FillStyle) (UniverseID, *Universe) {
	id := s.nextUniverseID
	s.nextUniverseID++
	s.log.Infof("Inflating universe #%d...", id)

	u := newUniverse(id, s.services, materials, vox.NewChunkMap(vox.DefaultChunkShape()), false)
	u.voxels = generateVoxels(u.materialsMap, origin, size, style)
	u.resetChunks()

	s.multiverse[id] = u
	s.activeUniverseID = id
	s.log.Infof("Universe inflated")
	return id, u
}

func (s *Simulation) GetUniverse(id UniverseID) (*Universe, bool) {
	u, ok := s.multiverse[id]
	return u, ok
}

// ActiveUniverse returns the universe ticks run against. Universe 0 backs
// it when nothing else is active.
func (s *Simulation) ActiveUniverse() *Universe {
	return s.multiverse[s.activeUniverseID]
}

func (s *Simulation) ActiveUniverseID() UniverseID { return s.activeUniverseID }

func (s *Simulation) SetActiveUniverse(id UniverseID) bool {
	if _, ok := s.multiverse[id]; !ok {
		return false
	}
	s.activeUniverseID = id
	return true
}

func (s *Simulation) UniverseCount() int { return len(s.multiverse) }

// RemoveUniverse tears a universe down and deletes it. Removing the active
// universe falls back to universe 0; universe 0 itself cannot be removed.
func (s *Simulation) RemoveUniverse(id UniverseID) {
	if id == 0 {
		s.log.Warnf("Refusing to remove the default universe")
		return
	}
	u, ok := s.multiverse[id]
	if !ok {
		return
	}
	u.teardown()
	delete(s.multiverse, id)
	if s.activeUniverseID == id {
		s.activeUniverseID = 0
	}
}

// Reset removes every universe except the default and reactivates it. The
// id counter keeps counting so removed universe ids are never reused.
func (s *Simulation) Reset() {
	for id, u := range s.multiverse {
		if id == 0 {
			continue
		}
		u.teardown()
		delete(s.multiverse, id)
	}
	s.activeUniverseID = 0
}

// Tick advances the active universe by one scheduler step.
func (s *Simulation) Tick(eye mgl32.Vec3) {
	s.ActiveUniverse().Tick(eye)
}

// Shutdown releases every universe and stops the owned worker pool.
func (s *Simulation) Shutdown() {
	for _, u := range s.multiverse {
		u.teardown()
	}
	if s.ownedPool != nil {
		s.ownedPool.Stop()
		s.ownedPool = nil
	}
}
