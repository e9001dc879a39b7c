package voxrts

import (
	"reflect"

	"github.com/gekko3d/voxrts/voxelsim/sim/upload"
	"github.com/gekko3d/voxrts/voxelsim/sim/world"
)

// UniverseModule wires the voxel streaming pipeline into the app: the
// multiverse simulation, the dyn-mesh upload manager, the render object
// registry and the per-frame systems driving them. The GPU device comes
// from the embedder (the renderer's wgpu device in a game, a fake in
// tests); with a nil Device the pipeline runs headless and meshes never
// become resident.
type UniverseModule struct {
	Device upload.Device
	Upload upload.UploadQueueConfig
	Pool   world.TaskPool
}

func (mod UniverseModule) Install(app *App, cmd *Commands) {
	logger := app.Logger()

	server := appAssetServer(app)
	renders := upload.NewRenderObjectSet()

	manager := upload.NewManager(logger)
	if mod.Device != nil {
		config := mod.Upload
		if config == (upload.UploadQueueConfig{}) {
			config = upload.DefaultUploadQueueConfig()
		}
		manager.InitUploader(mod.Device, config)
	}

	sim := world.NewSimulation(world.Services{
		Scene:         &ecsSceneStore{app: app},
		Visibility:    world.NewVisibilityRegion(),
		RenderObjects: renders,
		Materials:     server,
		Manager:       manager,
		Pool:          mod.Pool,
		Log:           logger,
	})

	cmd.AddResources(sim, manager, renders, &ViewerResource{})

	app.UseSystem(
		System(universeTickSystem).
			InStage(Update).
			RunAlways(),
	)
	app.UseSystem(
		System(uploadUpdateSystem).
			InStage(PostUpdate).
			RunAlways(),
	)
}

// Universe materials resolve through the asset server; install one when the
// embedder has not.
func appAssetServer(app *App) *AssetServer {
	if r, ok := app.resources[reflect.TypeOf(AssetServer{})]; ok {
		return r.(*AssetServer)
	}
	server := NewAssetServer()
	app.addResources(server)
	return server
}

// ecsSceneStore bridges the scheduler's scene interface onto the archetype
// store through command buffering; pushed entities land at the end of the
// stage that queued them.
type ecsSceneStore struct {
	app *App
}

func (s *ecsSceneStore) PushEntity(components ...any) world.EntityID {
	eid := s.app.Commands().AddEntity(components...)
	return world.EntityID(eid)
}

func (s *ecsSceneStore) AddComponent(entity world.EntityID, component any) {
	s.app.Commands().AddComponents(EntityId(entity), component)
}

func (s *ecsSceneStore) RemoveEntity(entity world.EntityID) {
	s.app.Commands().RemoveEntity(EntityId(entity))
}

// universeTickSystem advances the active universe one frame from the
// viewer's eye: dirty scan, mesh job dispatch, result and upload handling.
func universeTickSystem(sim *world.Simulation, viewer *ViewerResource) {
	sim.Tick(viewer.Eye)
}

// uploadUpdateSystem drives the dyn-mesh manager: upload queue stepping,
// buffer completion routing and command intake.
func uploadUpdateSystem(manager *upload.Manager) {
	manager.Update()
}
