package world

import (
	"fmt"
	"slices"
	"sort"
	"strings"
	"time"

	"github.com/go-gl/mathgl/mgl32"

	"github.com/gekko3d/voxrts/voxelsim/sim/mesh"
	"github.com/gekko3d/voxrts/voxelsim/sim/upload"
	"github.com/gekko3d/voxrts/voxelsim/sim/vox"
)

// mesherResultCapacity bounds the task result channel. In steady state the
// depth never exceeds MaxChunkMeshJobs; the headroom covers the oversized
// initial-world dispatch, where workers may briefly block between ticks.
const mesherResultCapacity = 4096

type UniverseID uint64

type addRequest struct {
	key    vox.Point
	bounds mesh.VisibleBounds
}

// Universe owns one voxel world: the store, the material table, the chunk
// and sector maps, and the per-frame scheduler that turns edits into
// uploaded meshes. All methods run on the coordinator goroutine.
type Universe struct {
	id          UniverseID
	initialized bool

	scene         SceneStore
	visibility    VisibilityRegistry
	renderObjects *upload.RenderObjectSet
	materialStore MaterialStore
	pool          TaskPool
	log           Logger

	materials     []MaterialHandle
	materialNames []string
	materialsMap  map[string]uint16

	voxels        *vox.ChunkMap
	activeMeshers int
	chunks        map[vox.Point]*Chunk
	sectors       map[vox.Point]map[vox.Point]struct{}

	mesherResults chan ChunkTaskResult
	metrics       chunkMetrics

	meshCmdTx chan<- upload.Command
	meshCmdRx <-chan upload.CommandResult

	meshAddRequests       map[uint64]addRequest
	currentMeshAddRequest uint64
}

// DefaultMaterialNames is the stock material table of the bundled assets.
func DefaultMaterialNames() []string {
	return []string{
		"flat_red",
		"flat_green",
		"flat_blue",
		"blue_metal",
		"old_bronze",
		"basic_tile",
		"round_tile",
		"diamond_inlay_tile",
		"black_plastic",
		"curly_tile",
	}
}

func newUniverse(id UniverseID, services Services, materials []NamedMaterial, voxels *vox.ChunkMap, initialized bool) *Universe {
	u := &Universe{
		id:              id,
		initialized:     initialized,
		scene:           services.Scene,
		visibility:      services.Visibility,
		renderObjects:   services.RenderObjects,
		materialStore:   services.Materials,
		pool:            services.Pool,
		log:             services.Log,
		materialsMap:    make(map[string]uint16),
		voxels:          voxels,
		chunks:          make(map[vox.Point]*Chunk),
		sectors:         make(map[vox.Point]map[vox.Point]struct{}),
		mesherResults:   make(chan ChunkTaskResult, mesherResultCapacity),
		metrics:         newChunkMetrics(),
		meshAddRequests: make(map[uint64]addRequest),
	}
	if u.scene == nil {
		u.scene = NewEntityStore()
	}
	if u.visibility == nil {
		u.visibility = NewVisibilityRegion()
	}
	if u.renderObjects == nil {
		u.renderObjects = upload.NewRenderObjectSet()
	}
	if u.log == nil {
		u.log = NopLogger()
	}
	for _, m := range materials {
		u.materialsMap[m.Name] = uint16(len(u.materialNames))
		u.materialNames = append(u.materialNames, m.Name)
		u.materials = append(u.materials, m.Handle)
	}
	if services.Manager != nil {
		u.meshCmdTx, u.meshCmdRx = services.Manager.CommandChannels()
	}
	return u
}

func (u *Universe) ID() UniverseID     { return u.id }
func (u *Universe) ActiveMeshers() int { return u.activeMeshers }
func (u *Universe) ChunkCount() int    { return len(u.chunks) }

func (u *Universe) GetChunk(key vox.Point) (*Chunk, bool) {
	c, ok := u.chunks[key]
	return c, ok
}

// Material table lookups. Voxel value v refers to material v-1.

func (u *Universe) MaterialNameByVoxel(v vox.Voxel) (string, bool) {
	if v.Empty() || int(v) > len(u.materialNames) {
		return "", false
	}
	return u.materialNames[v-1], true
}

func (u *Universe) VoxelByMaterial(name string) (vox.Voxel, bool) {
	idx, ok := u.materialsMap[name]
	if !ok {
		return vox.EmptyVoxel, false
	}
	return vox.Voxel(idx + 1), true
}

// PaletteVoxelString encodes a voxel as a tile hex pair, interning its
// material name into palette on first use. builder maps names to their
// 1-based palette indices.
func (u *Universe) PaletteVoxelString(v vox.Voxel, palette *[]string, builder map[string]uint8) (string, error) {
	if v.Empty() {
		return "00", nil
	}
	name, ok := u.MaterialNameByVoxel(v)
	if !ok {
		return "", fmt.Errorf("voxel %d references no known material", v)
	}
	idx, ok := builder[name]
	if !ok {
		if len(*palette) >= 255 {
			return "", fmt.Errorf("tile palette full: %d materials", len(*palette))
		}
		*palette = append(*palette, name)
		idx = uint8(len(*palette))
		builder[name] = idx
	}
	return fmt.Sprintf("%02X", idx), nil
}

type RayCastResult struct {
	Hit       vox.Point
	BeforeHit vox.Point
}

// RayCast walks up to 256 voxels along dir and returns the first non-empty
// cell together with the empty cell just before it. The caller normalises
// dir.
func (u *Universe) RayCast(origin, dir mgl32.Vec3) (RayCastResult, bool) {
	ray := vox.NewGridRay(origin, dir)
	prev := vox.PointFromVec3(origin)
	for i := 0; i < 256; i++ {
		current := ray.CurrentVoxel()
		if !u.voxels.Get(current).Empty() {
			return RayCastResult{Hit: current, BeforeHit: prev}, true
		}
		prev = current
		ray.Step()
	}
	return RayCastResult{}, false
}

func (u *Universe) ReadVoxel(p vox.Point) vox.Voxel {
	return u.voxels.Get(p)
}

// WriteVoxel sets one voxel and dirties every chunk whose extent intersects
// the 1-voxel padded box around it, so neighbours re-mesh their shared
// faces.
func (u *Universe) WriteVoxel(p vox.Point, v vox.Voxel) {
	u.voxels.Set(p, v)
	dirtied := vox.ExtentFromMinShape(p, vox.Splat(1)).Padded(1)
	for _, min := range u.voxels.ChunkMinsForExtent(dirtied) {
		u.setChunkDirty(min)
	}
}

func (u *Universe) ClearVoxel(p vox.Point) {
	u.WriteVoxel(p, vox.EmptyVoxel)
}

// StampTile places a decoded tile centred on position in X and Y and
// bottom-aligned in Z. Tile voxels are remapped through the universe
// material table; empty tile voxels never overwrite world voxels.
func (u *Universe) StampTile(tile *Tile, position vox.Point) error {
	palette := make([]vox.Voxel, len(tile.Palette))
	for i, name := range tile.Palette {
		v, ok := u.VoxelByMaterial(name)
		if !ok {
			return fmt.Errorf("tile %q references unknown material %q", tile.Name, name)
		}
		palette[i] = v
	}

	shape := tile.Voxels.Extent().Shape
	center := vox.Pt(shape.X/2, shape.Y/2, 0)
	offset := position.Sub(center).Sub(tile.Voxels.Extent().Min)
	tile.Voxels.ForEach(func(p vox.Point, v vox.Voxel) {
		if v.Empty() {
			return
		}
		u.voxels.Set(p.Add(offset), palette[v-1])
	})

	stamped := vox.ExtentFromMinShape(tile.Voxels.Extent().Min.Add(offset), shape)
	u.voxels.VisitOccupiedChunks(stamped.Padded(1), func(chunk *vox.Array) {
		u.setChunkDirty(chunk.Extent().Min)
	})
	return nil
}

// ExportTile encodes the voxels of extent as a tile record, building the
// palette from the materials in use.
func (u *Universe) ExportTile(name string, extent vox.Extent) (*TileRecord, error) {
	var palette []string
	builder := make(map[string]uint8)
	lub := extent.Lub()
	voxels := make([][]string, 0, extent.Shape.Z)
	for z := extent.Min.Z; z < lub.Z; z++ {
		slice := make([]string, 0, extent.Shape.Y)
		for y := extent.Min.Y; y < lub.Y; y++ {
			var line strings.Builder
			for x := extent.Min.X; x < lub.X; x++ {
				s, err := u.PaletteVoxelString(u.voxels.Get(vox.Pt(x, y, z)), &palette, builder)
				if err != nil {
					return nil, err
				}
				line.WriteString(s)
			}
			slice = append(slice, line.String())
		}
		voxels = append(voxels, slice)
	}
	return &TileRecord{Name: name, Palette: palette, Voxels: voxels}, nil
}

// Reset regenerates the voxel field and re-dirties every occupied chunk.
// Results of in-flight build tasks are discarded as orphans when they
// arrive.
func (u *Universe) Reset(origin vox.Point, size uint32, style FillStyle) {
	u.log.Infof("Resetting universe...")

	u.voxels = generateVoxels(u.materialsMap, origin, size, style)
	u.resetChunks()

	u.log.Infof("Universe reset")
}

func (u *Universe) resetChunks() {
	u.teardown()
	var occupied []vox.Point
	u.voxels.VisitOccupiedChunks(u.voxels.BoundingExtent(), func(chunk *vox.Array) {
		occupied = append(occupied, chunk.Extent().Min)
	})
	for _, min := range occupied {
		u.setChunkDirty(min)
	}
}

// teardown releases every chunk record and its handles.
func (u *Universe) teardown() {
	u.activeMeshers = 0
	for _, c := range u.chunks {
		u.clearChunk(c)
	}
	u.chunks = make(map[vox.Point]*Chunk)
	u.sectors = make(map[vox.Point]map[vox.Point]struct{})
}

func (u *Universe) setChunkDirty(key vox.Point) {
	sectorKey := SectorKeyForChunk(key)
	sector, ok := u.sectors[sectorKey]
	if !ok {
		sector = make(map[vox.Point]struct{})
		u.sectors[sectorKey] = sector
	}
	sector[key] = struct{}{}
	c, ok := u.chunks[key]
	if !ok {
		c = &Chunk{}
		u.chunks[key] = c
	}
	c.dirty = true
}

// Tick runs one scheduler step: dispatch new mesh builds near the eye,
// consume finished builds, drive upload commands, and roll metrics.
func (u *Universe) Tick(eye mgl32.Vec3) {
	u.startMeshJobs(eye)
	u.processJobResults()
	u.checkResetMetrics(5*time.Second, true)
}

type meshJob struct {
	key  vox.Point
	slab *vox.Array
}

// extractMeshVoxels collects the dirty chunks within reach of the eye,
// nearest first, up to the frame budget, and copies out their padded
// slabs.
func (u *Universe) extractMeshVoxels(eye vox.Point) []meshJob {
	var changed []vox.Point
	sectorCenter := vox.Splat(SectorSize / 2)
	for sectorKey, chunkSet := range u.sectors {
		center := sectorKey.Add(sectorCenter)
		if abs32(center.X-eye.X) > MaxDistanceFromCamera+SectorSize ||
			abs32(center.Y-eye.Y) > MaxDistanceFromCamera+SectorSize {
			continue
		}
		for key := range chunkSet {
			if abs32(key.X-eye.X) > MaxDistanceFromCamera ||
				abs32(key.Y-eye.Y) > MaxDistanceFromCamera {
				continue
			}
			if c, ok := u.chunks[key]; ok && c.dirty && !c.building {
				changed = append(changed, key)
			}
		}
	}
	sort.Slice(changed, func(i, j int) bool {
		return chebyshevXY(changed[i], eye) < chebyshevXY(changed[j], eye)
	})

	budget := MaxChunkMeshJobsInit
	if u.initialized {
		budget = min(MaxNewChunkMeshJobsPerFrame, MaxChunkMeshJobs-u.activeMeshers)
		if budget < 0 {
			budget = 0
		}
	}
	if budget > len(changed) {
		budget = len(changed)
	}

	jobs := make([]meshJob, 0, budget)
	for _, key := range changed[:budget] {
		padded := u.voxels.ExtentForChunkWithMin(key).Padded(1)
		slab := vox.NewArray(padded)
		u.voxels.CopyExtentTo(padded, slab)
		jobs = append(jobs, meshJob{key: key, slab: slab})
	}
	return jobs
}

func abs32(v int32) int32 {
	if v < 0 {
		return -v
	}
	return v
}

func chebyshevXY(p, eye vox.Point) int32 {
	return max(abs32(p.X-eye.X), abs32(p.Y-eye.Y))
}

func (u *Universe) startMeshJobs(eye mgl32.Vec3) {
	if u.initialized && u.activeMeshers >= MaxChunkMeshJobs {
		return
	}
	extractStart := time.Now()
	toRender := u.extractMeshVoxels(vox.PointFromVec3(eye))
	if len(toRender) == 0 {
		return
	}
	materials, ok := u.loadedMaterials()
	if !ok {
		// Not every material is committed yet; candidates stay dirty and
		// are retried next frame.
		return
	}
	extractTime := uint32(time.Since(extractStart).Microseconds())
	u.log.Debugf("Starting %d greedy mesh jobs (data extraction took %dµs)", len(toRender), extractTime)
	u.metrics.extract = append(u.metrics.extract, ChunkExtractMetrics{
		Tasks:       uint32(len(toRender)),
		ExtractTime: extractTime,
	})
	u.initialized = true

	for _, job := range toRender {
		u.spawnMeshTask(job, materials)
		if c, ok := u.chunks[job.key]; ok {
			c.building = true
			c.dirty = false
			u.activeMeshers++
		}
	}
}

func (u *Universe) loadedMaterials() ([]mesh.MaterialRecord, bool) {
	if len(u.materials) == 0 {
		return nil, true
	}
	if u.materialStore == nil {
		return nil, false
	}
	records := make([]mesh.MaterialRecord, 0, len(u.materials))
	for _, handle := range u.materials {
		record, ok := u.materialStore.CommittedMaterial(handle)
		if !ok {
			return nil, false
		}
		records = append(records, record)
	}
	return records, true
}

// spawnMeshTask runs the greedy mesher on a worker. The task owns its slab
// and material list and touches no universe state; it reports back on the
// result channel.
func (u *Universe) spawnMeshTask(job meshJob, materials []mesh.MaterialRecord) {
	key := job.key
	slab := job.slab
	records := slices.Clone(materials)
	results := u.mesherResults
	log := u.log
	u.pool.Spawn(func() {
		quadsStart := time.Now()
		buf := mesh.NewGreedyQuadsBuffer()
		mesh.GreedyQuads(slab, buf)
		quadsDuration := time.Since(quadsStart)

		meshStart := time.Now()
		var data *mesh.DynMeshData
		failed := false
		if buf.NumQuads() > 0 {
			var err error
			data, err = mesh.BuildMeshData(slab, buf, records)
			if err != nil {
				log.Errorf("chunk %v mesh build failed: %v", key, err)
			}
			failed = data == nil
		}
		meshDuration := time.Since(meshStart)

		results <- ChunkTaskResult{
			Key:  key,
			Mesh: data,
			Metrics: ChunkTaskMetrics{
				QuadsTime: uint32(quadsDuration.Microseconds()),
				MeshTime:  uint32(meshDuration.Microseconds()),
				Failed:    failed,
			},
		}
	})
}

func (u *Universe) processJobResults() {
	cleared := u.drainTaskResults()
	u.drainMeshCommandResults()
	for _, key := range cleared {
		u.collectSector(key)
	}
}

func (u *Universe) drainTaskResults() []vox.Point {
	var cleared []vox.Point
	for {
		select {
		case r := <-u.mesherResults:
			metrics := r.Metrics
			c, ok := u.chunks[r.Key]
			if !ok || !c.building {
				// Orphaned result: the record was cleared or replaced
				// between dispatch and completion.
				metrics.Failed = true
				u.metrics.tasks = append(u.metrics.tasks, metrics)
				continue
			}
			c.building = false
			u.activeMeshers--
			switch {
			case r.Mesh != nil:
				if c.mesh != 0 {
					u.sendMeshCommand(upload.UpdateCommand{Handle: c.mesh, Data: r.Mesh})
				} else {
					// Request handles carry the universe id so universes
					// sharing one manager never confuse each other's
					// uploads.
					u.currentMeshAddRequest++
					handle := uint64(u.id)<<32 | u.currentMeshAddRequest&0xffffffff
					u.meshAddRequests[handle] = addRequest{key: r.Key, bounds: r.Mesh.VisibleBounds}
					u.sendMeshCommand(upload.AddCommand{RequestHandle: handle, Data: r.Mesh})
				}
			case metrics.Failed:
				// Failed build: drop the stale handles but keep the chunk
				// dirty so it rebuilds once the material table resolves.
				u.clearChunk(c)
				u.setChunkDirty(r.Key)
			default:
				u.clearChunk(c)
				cleared = append(cleared, r.Key)
			}
			u.metrics.tasks = append(u.metrics.tasks, metrics)
		default:
			return cleared
		}
	}
}

func (u *Universe) drainMeshCommandResults() {
	if u.meshCmdRx == nil {
		return
	}
	for {
		select {
		case r := <-u.meshCmdRx:
			switch result := r.(type) {
			case upload.AddResult:
				u.finishMeshAdd(result)
			case upload.UpdateResult:
				if result.Err != nil {
					u.log.Errorf("mesh update failed: %v", result.Err)
				}
			}
		default:
			return
		}
	}
}

func (u *Universe) finishMeshAdd(result upload.AddResult) {
	request, ok := u.meshAddRequests[result.RequestHandle]
	if !ok {
		// Not ours; release the mesh so the manager does not keep it
		// alive for a request nobody remembers.
		if result.Err == nil {
			u.sendMeshCommand(upload.RemoveCommand{Handle: result.Handle})
		}
		return
	}
	delete(u.meshAddRequests, result.RequestHandle)
	if result.Err != nil {
		u.log.Errorf("mesh add failed: %v", result.Err)
		return
	}
	c, ok := u.chunks[request.key]
	if !ok {
		// Chunk cleared while the upload was in flight.
		u.sendMeshCommand(upload.RemoveCommand{Handle: result.Handle})
		return
	}
	c.mesh = result.Handle

	renderObject := u.renderObjects.Register(upload.DynMeshRenderObject{Mesh: result.Handle})
	entity := u.scene.PushEntity(
		TransformComponent{Rotation: mgl32.QuatIdent(), Scale: mgl32.Vec3{1, 1, 1}},
		MeshComponent{RenderObject: renderObject},
	)
	c.entity = entity

	visibility := u.visibility.RegisterStaticObject(entity, request.bounds)
	visibility.SetTransform(request.key.Vec3(), mgl32.QuatIdent(), mgl32.Vec3{1, 1, 1})
	visibility.AddRenderObject(renderObject)
	u.scene.AddComponent(entity, VisibilityComponent{VisibilityObject: visibility})

	c.renderObject = renderObject
	c.visibility = visibility
}

func (u *Universe) clearChunk(c *Chunk) {
	if c.mesh != 0 {
		u.sendMeshCommand(upload.RemoveCommand{Handle: c.mesh})
		c.mesh = 0
	}
	if c.renderObject != 0 {
		u.renderObjects.Unregister(c.renderObject)
		c.renderObject = 0
	}
	if c.visibility != nil {
		c.visibility.Release()
		c.visibility = nil
	}
	if c.entity != 0 {
		u.scene.RemoveEntity(c.entity)
		c.entity = 0
	}
}

// collectSector forgets a cleared chunk and garbage-collects its sector
// once the last chunk leaves it.
func (u *Universe) collectSector(key vox.Point) {
	delete(u.chunks, key)
	sectorKey := SectorKeyForChunk(key)
	if sector, ok := u.sectors[sectorKey]; ok {
		delete(sector, key)
		if len(sector) == 0 {
			delete(u.sectors, sectorKey)
		}
	}
}

func (u *Universe) sendMeshCommand(cmd upload.Command) {
	if u.meshCmdTx == nil {
		return
	}
	select {
	case u.meshCmdTx <- cmd:
	default:
		u.log.Errorf("mesh command channel full, dropping %T", cmd)
	}
}

func (u *Universe) checkResetMetrics(interval time.Duration, infoLog bool) *ChunkDistributionMetrics {
	if u.metrics.empty() {
		u.metrics.start = time.Now()
		return nil
	}
	if time.Since(u.metrics.start) < interval {
		return nil
	}
	metrics := u.metrics.distributionMetrics()
	if infoLog {
		metrics.InfoLog(u.log)
	}
	u.metrics = newChunkMetrics()
	return &metrics
}
