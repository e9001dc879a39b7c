package world

import (
	"testing"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/google/uuid"

	"github.com/gekko3d/voxrts/voxelsim/sim/mesh"
	"github.com/gekko3d/voxrts/voxelsim/sim/vox"
)

type immediatePool struct{}

func (immediatePool) Spawn(task func()) { task() }

// capturePool holds tasks until the test runs them by hand.
type capturePool struct {
	tasks []func()
}

func (p *capturePool) Spawn(task func()) { p.tasks = append(p.tasks, task) }

type testMaterialStore struct {
	pending bool
	records map[MaterialHandle]mesh.MaterialRecord
}

func newTestMaterialStore(names ...string) *testMaterialStore {
	s := &testMaterialStore{records: make(map[MaterialHandle]mesh.MaterialRecord)}
	for _, name := range names {
		s.records[MaterialHandle(name)] = mesh.MaterialRecord{ID: uuid.New(), Name: name}
	}
	return s
}

func (s *testMaterialStore) CommittedMaterial(handle MaterialHandle) (mesh.MaterialRecord, bool) {
	if s.pending {
		return mesh.MaterialRecord{}, false
	}
	r, ok := s.records[handle]
	return r, ok
}

func namedMaterials(names ...string) []NamedMaterial {
	named := make([]NamedMaterial, len(names))
	for i, name := range names {
		named[i] = NamedMaterial{Name: name, Handle: MaterialHandle(name)}
	}
	return named
}

func newTestUniverse(pool TaskPool, names ...string) (*Universe, *testMaterialStore) {
	store := newTestMaterialStore(names...)
	u := newUniverse(1, Services{Materials: store, Pool: pool},
		namedMaterials(names...), vox.NewChunkMap(vox.DefaultChunkShape()), true)
	return u, store
}

// assertChunkSectorInvariant checks that chunks and sectors always agree:
// every chunk record is filed under its sector and no empty sector
// lingers.
func assertChunkSectorInvariant(t *testing.T, u *Universe) {
	t.Helper()
	for key := range u.chunks {
		sector, ok := u.sectors[SectorKeyForChunk(key)]
		if !ok {
			t.Fatalf("Chunk %v has no sector", key)
		}
		if _, ok := sector[key]; !ok {
			t.Fatalf("Chunk %v is missing from sector %v", key, SectorKeyForChunk(key))
		}
	}
	for sectorKey, chunkSet := range u.sectors {
		if len(chunkSet) == 0 {
			t.Errorf("Sector %v should have been collected", sectorKey)
		}
		for key := range chunkSet {
			if SectorKeyForChunk(key) != sectorKey {
				t.Errorf("Chunk %v filed under wrong sector %v", key, sectorKey)
			}
			if _, ok := u.chunks[key]; !ok {
				t.Errorf("Sector member %v has no chunk record", key)
			}
		}
	}
}

func TestDefaultMaterialNames(t *testing.T) {
	names := DefaultMaterialNames()
	if len(names) != 10 {
		t.Fatalf("Expected 10 stock materials, got %d", len(names))
	}
	if names[0] != "flat_red" || names[5] != "basic_tile" || names[9] != "curly_tile" {
		t.Errorf("Unexpected stock material order: %v", names)
	}
}

func TestMaterialLookups(t *testing.T) {
	u, _ := newTestUniverse(immediatePool{}, "flat_red", "flat_green")

	if name, ok := u.MaterialNameByVoxel(1); !ok || name != "flat_red" {
		t.Errorf("Voxel 1 should resolve to flat_red, got %q/%v", name, ok)
	}
	if _, ok := u.MaterialNameByVoxel(vox.EmptyVoxel); ok {
		t.Error("The empty voxel has no material")
	}
	if _, ok := u.MaterialNameByVoxel(3); ok {
		t.Error("A voxel past the material table should not resolve")
	}
	if v, ok := u.VoxelByMaterial("flat_green"); !ok || v != 2 {
		t.Errorf("flat_green should map to voxel 2, got %d/%v", v, ok)
	}
	if _, ok := u.VoxelByMaterial("marble"); ok {
		t.Error("An unknown material name should not resolve")
	}
}

func TestWriteVoxelDirtiesChunks(t *testing.T) {
	cases := []struct {
		p    vox.Point
		want int
	}{
		{vox.Pt(5, 5, 5), 1},
		{vox.Pt(0, 5, 5), 2},
		{vox.Pt(0, 0, 5), 4},
		{vox.Pt(0, 0, 0), 8},
	}
	for _, c := range cases {
		u, _ := newTestUniverse(immediatePool{}, "flat_red")
		u.WriteVoxel(c.p, 1)
		if u.ChunkCount() != c.want {
			t.Errorf("Write at %v should dirty %d chunks, got %d", c.p, c.want, u.ChunkCount())
		}
		for key, chunk := range u.chunks {
			if !chunk.Dirty() {
				t.Errorf("Chunk %v should be dirty after the write at %v", key, c.p)
			}
		}
		assertChunkSectorInvariant(t, u)
	}
}

func TestExtractOrdersNearestFirstWithinBudget(t *testing.T) {
	u, _ := newTestUniverse(immediatePool{}, "flat_red")
	u.setChunkDirty(vox.Pt(256, 0, 0))
	u.setChunkDirty(vox.Pt(0, 0, 0))
	u.setChunkDirty(vox.Pt(16, 0, 0))

	// 14 active jobs leave a budget of two
	u.activeMeshers = 14
	jobs := u.extractMeshVoxels(vox.Pt(0, 0, 50))

	if len(jobs) != 2 {
		t.Fatalf("Expected the budget to cap extraction at 2 jobs, got %d", len(jobs))
	}
	if jobs[0].key != vox.Pt(0, 0, 0) || jobs[1].key != vox.Pt(16, 0, 0) {
		t.Errorf("Expected the two nearest chunks first, got %v and %v", jobs[0].key, jobs[1].key)
	}

	padded := jobs[0].slab.Extent()
	if padded.Min != vox.Pt(-1, -1, -1) || padded.Shape != vox.Pt(18, 18, 18) {
		t.Errorf("Slab should cover the chunk padded by one voxel, got %+v", padded)
	}
}

func TestExtractFiltersCandidates(t *testing.T) {
	u, _ := newTestUniverse(immediatePool{}, "flat_red")
	u.setChunkDirty(vox.Pt(0, 0, 0))
	// Beyond the chunk distance cap, but inside the sector prefilter
	u.setChunkDirty(vox.Pt(288, 0, 0))
	// Whole sector out of reach
	u.setChunkDirty(vox.Pt(768, 0, 0))
	// Distance ignores Z
	u.setChunkDirty(vox.Pt(0, 0, 2048))
	// In flight and clean records are skipped
	u.setChunkDirty(vox.Pt(16, 0, 0))
	u.chunks[vox.Pt(16, 0, 0)].building = true
	u.setChunkDirty(vox.Pt(32, 0, 0))
	u.chunks[vox.Pt(32, 0, 0)].dirty = false

	jobs := u.extractMeshVoxels(vox.Pt(0, 0, 0))

	got := make(map[vox.Point]bool)
	for _, job := range jobs {
		got[job.key] = true
	}
	if len(got) != 2 || !got[vox.Pt(0, 0, 0)] || !got[vox.Pt(0, 0, 2048)] {
		t.Errorf("Expected exactly the near chunk and the high chunk, got %v", got)
	}
}

func TestStartMeshJobsRespectsJobCeiling(t *testing.T) {
	u, _ := newTestUniverse(immediatePool{}, "flat_red")
	u.WriteVoxel(vox.Pt(8, 8, 8), 1)
	u.activeMeshers = MaxChunkMeshJobs

	u.startMeshJobs(mgl32.Vec3{})

	c, _ := u.GetChunk(vox.Pt(0, 0, 0))
	if c.Building() || !c.Dirty() {
		t.Error("A saturated scheduler should not dispatch")
	}
	if len(u.mesherResults) != 0 {
		t.Error("No task should have run")
	}
}

func TestMaterialGateHoldsDispatch(t *testing.T) {
	u, store := newTestUniverse(immediatePool{}, "flat_red")
	u.initialized = false
	store.pending = true
	u.WriteVoxel(vox.Pt(8, 8, 8), 1)

	u.startMeshJobs(mgl32.Vec3{})

	c, _ := u.GetChunk(vox.Pt(0, 0, 0))
	if u.initialized {
		t.Error("The material gate must hold the init flag")
	}
	if c.Building() || !c.Dirty() || u.ActiveMeshers() != 0 {
		t.Error("Nothing should dispatch while materials are pending")
	}

	// Once the store commits, the same candidates dispatch
	store.pending = false
	u.startMeshJobs(mgl32.Vec3{})
	if !u.initialized {
		t.Error("A successful dispatch should initialise the scheduler")
	}
	if !c.Building() || c.Dirty() || u.ActiveMeshers() != 1 {
		t.Error("The chunk should be building after dispatch")
	}
}

func TestBuildLifecycleWithoutManager(t *testing.T) {
	u, _ := newTestUniverse(immediatePool{}, "flat_red")
	u.WriteVoxel(vox.Pt(8, 8, 8), 1)

	u.startMeshJobs(mgl32.Vec3{})
	c, _ := u.GetChunk(vox.Pt(0, 0, 0))
	if !c.Building() || c.Dirty() || u.ActiveMeshers() != 1 {
		t.Fatal("Dispatch should mark the chunk building and clean")
	}

	u.processJobResults()
	if c.Building() || u.ActiveMeshers() != 0 {
		t.Error("The consumed result should release the mesher slot")
	}
	if len(u.meshAddRequests) != 1 {
		t.Fatalf("Expected one pending add request, got %d", len(u.meshAddRequests))
	}
	for _, req := range u.meshAddRequests {
		if req.key != vox.Pt(0, 0, 0) {
			t.Errorf("Add request should remember the chunk key, got %v", req.key)
		}
	}
	if len(u.metrics.tasks) != 1 || u.metrics.tasks[0].Failed {
		t.Errorf("Expected one successful task sample, got %+v", u.metrics.tasks)
	}
}

func TestEmptyRebuildClearsRecord(t *testing.T) {
	u, _ := newTestUniverse(immediatePool{}, "flat_red")
	u.WriteVoxel(vox.Pt(8, 8, 8), 1)
	u.ClearVoxel(vox.Pt(8, 8, 8))
	if u.ChunkCount() != 1 {
		t.Fatalf("The chunk should stay materialized after the clear, got %d", u.ChunkCount())
	}

	u.startMeshJobs(mgl32.Vec3{})
	u.processJobResults()

	if u.ChunkCount() != 0 {
		t.Error("An empty rebuild should remove the chunk record")
	}
	if len(u.sectors) != 0 {
		t.Error("The last chunk leaving a sector should collect it")
	}
	if u.ActiveMeshers() != 0 {
		t.Errorf("Expected no active meshers, got %d", u.ActiveMeshers())
	}
}

func TestOrphanedResultAfterReset(t *testing.T) {
	pool := &capturePool{}
	u, _ := newTestUniverse(pool, "flat_red")
	u.WriteVoxel(vox.Pt(8, 8, 9), 1)

	u.startMeshJobs(mgl32.Vec3{})
	if len(pool.tasks) != 1 || u.ActiveMeshers() != 1 {
		t.Fatalf("Expected one task in flight, got %d/%d", len(pool.tasks), u.ActiveMeshers())
	}

	// The reset lands while the task is still running; the regenerated
	// board occupies the same chunk key
	u.Reset(vox.Pt(8, 8, 10), 16, FlatBoard{Material: "flat_red"})
	if u.ActiveMeshers() != 0 {
		t.Fatalf("Reset should zero the mesher count, got %d", u.ActiveMeshers())
	}
	c, ok := u.GetChunk(vox.Pt(0, 0, 0))
	if !ok || !c.Dirty() {
		t.Fatal("The regenerated chunk should be dirty again")
	}

	pool.tasks[0]()
	u.processJobResults()

	if u.ActiveMeshers() != 0 {
		t.Error("An orphaned result must not decrement the mesher count")
	}
	if !c.Dirty() || c.Building() {
		t.Error("The orphaned result must not touch the regenerated record")
	}
	if len(u.metrics.tasks) != 1 || !u.metrics.tasks[0].Failed {
		t.Errorf("An orphaned result should count as a failed sample, got %+v", u.metrics.tasks)
	}
}

func TestFailedBuildKeepsChunkDirty(t *testing.T) {
	u, _ := newTestUniverse(immediatePool{}, "flat_red")
	// Voxel 2 points past the single-entry material table
	u.WriteVoxel(vox.Pt(8, 8, 8), 2)

	u.startMeshJobs(mgl32.Vec3{})
	u.processJobResults()

	c, ok := u.GetChunk(vox.Pt(0, 0, 0))
	if !ok {
		t.Fatal("A failed build should keep the chunk record")
	}
	if !c.Dirty() || c.Building() || c.Meshed() {
		t.Error("A failed build should leave the chunk dirty for a retry")
	}
	if u.ActiveMeshers() != 0 {
		t.Errorf("Expected no active meshers, got %d", u.ActiveMeshers())
	}
	if len(u.metrics.tasks) != 1 || !u.metrics.tasks[0].Failed {
		t.Errorf("Expected one failed task sample, got %+v", u.metrics.tasks)
	}
	assertChunkSectorInvariant(t, u)
}

func TestRayCast(t *testing.T) {
	u, _ := newTestUniverse(immediatePool{}, "flat_red")
	u.WriteVoxel(vox.Pt(0, 0, -1), 1)

	hit, ok := u.RayCast(mgl32.Vec3{0.5, 0.5, 4.5}, mgl32.Vec3{0, 0, -1})
	if !ok {
		t.Fatal("The ray should hit the board")
	}
	if hit.Hit != vox.Pt(0, 0, -1) || hit.BeforeHit != vox.Pt(0, 0, 0) {
		t.Errorf("Expected hit (0,0,-1) before (0,0,0), got %+v", hit)
	}

	if _, ok := u.RayCast(mgl32.Vec3{0.5, 0.5, 4.5}, mgl32.Vec3{0, 0, 1}); ok {
		t.Error("A ray pointing away should miss")
	}
}

func TestStampTile(t *testing.T) {
	u, _ := newTestUniverse(immediatePool{}, "flat_red", "flat_green")

	record := &TileRecord{
		Name:    "pad",
		Palette: []string{"flat_green"},
		Voxels:  [][]string{{"0100", "0101"}},
	}
	tile, err := record.Decode()
	if err != nil {
		t.Fatalf("Decode failed: %v", err)
	}

	// Pre-existing voxel under the tile's empty cell survives the stamp
	u.WriteVoxel(vox.Pt(10, 9, 0), 1)

	if err := u.StampTile(tile, vox.Pt(10, 10, 0)); err != nil {
		t.Fatalf("StampTile failed: %v", err)
	}

	// Tile palette index 1 remaps to the universe's flat_green
	for _, p := range []vox.Point{vox.Pt(9, 9, 0), vox.Pt(9, 10, 0), vox.Pt(10, 10, 0)} {
		if got := u.ReadVoxel(p); got != 2 {
			t.Errorf("Expected green at %v, got %d", p, got)
		}
	}
	if got := u.ReadVoxel(vox.Pt(10, 9, 0)); got != 1 {
		t.Errorf("The empty tile cell should not overwrite, got %d", got)
	}
	assertChunkSectorInvariant(t, u)
}

func TestStampTileDirtiesMaterializedChunksOnly(t *testing.T) {
	u, _ := newTestUniverse(immediatePool{}, "flat_green")
	record := &TileRecord{Palette: []string{"flat_green"}, Voxels: [][]string{{"01"}}}
	tile, err := record.Decode()
	if err != nil {
		t.Fatalf("Decode failed: %v", err)
	}

	if err := u.StampTile(tile, vox.Pt(8, 8, 8)); err != nil {
		t.Fatalf("StampTile failed: %v", err)
	}
	if u.ChunkCount() != 1 {
		t.Errorf("An interior stamp should dirty only the written chunk, got %d", u.ChunkCount())
	}
	c, _ := u.GetChunk(vox.Pt(0, 0, 0))
	if c == nil || !c.Dirty() {
		t.Error("The stamped chunk should be dirty")
	}
}

func TestStampTileUnknownMaterial(t *testing.T) {
	u, _ := newTestUniverse(immediatePool{}, "flat_red")
	record := &TileRecord{Palette: []string{"marble"}, Voxels: [][]string{{"01"}}}
	tile, err := record.Decode()
	if err != nil {
		t.Fatalf("Decode failed: %v", err)
	}

	if err := u.StampTile(tile, vox.Pt(0, 0, 0)); err == nil {
		t.Error("Stamping a tile with an unknown material should fail")
	}
	if u.ChunkCount() != 0 {
		t.Error("A failed stamp should not dirty anything")
	}
}

func TestPaletteVoxelStringInterning(t *testing.T) {
	u, _ := newTestUniverse(immediatePool{}, "flat_red", "flat_green")
	var palette []string
	builder := make(map[string]uint8)

	if s, err := u.PaletteVoxelString(vox.EmptyVoxel, &palette, builder); err != nil || s != "00" {
		t.Errorf("Empty voxel should encode as 00, got %q/%v", s, err)
	}
	if s, _ := u.PaletteVoxelString(2, &palette, builder); s != "01" {
		t.Errorf("First material in use should intern as 01, got %q", s)
	}
	if s, _ := u.PaletteVoxelString(1, &palette, builder); s != "02" {
		t.Errorf("Second material in use should intern as 02, got %q", s)
	}
	if s, _ := u.PaletteVoxelString(2, &palette, builder); s != "01" {
		t.Errorf("Re-encoding should reuse the interned index, got %q", s)
	}
	if len(palette) != 2 || palette[0] != "flat_green" || palette[1] != "flat_red" {
		t.Errorf("Palette should list materials in first-use order, got %v", palette)
	}
}

func TestExportTile(t *testing.T) {
	u, _ := newTestUniverse(immediatePool{}, "flat_red", "flat_green")
	u.voxels.Set(vox.Pt(0, 0, 0), 2)
	u.voxels.Set(vox.Pt(1, 0, 0), 1)

	record, err := u.ExportTile("slice", vox.ExtentFromMinShape(vox.Pt(0, 0, 0), vox.Pt(3, 1, 1)))
	if err != nil {
		t.Fatalf("ExportTile failed: %v", err)
	}
	if len(record.Palette) != 2 || record.Palette[0] != "flat_green" || record.Palette[1] != "flat_red" {
		t.Errorf("Unexpected palette: %v", record.Palette)
	}
	if len(record.Voxels) != 1 || len(record.Voxels[0]) != 1 || record.Voxels[0][0] != "010200" {
		t.Errorf("Unexpected voxel rows: %v", record.Voxels)
	}

	// A voxel outside the material table fails the export
	u.voxels.Set(vox.Pt(0, 0, 1), 9)
	if _, err := u.ExportTile("bad", vox.ExtentFromMinShape(vox.Pt(0, 0, 1), vox.Pt(1, 1, 1))); err == nil {
		t.Error("Exporting an unknown material index should fail")
	}
}

func TestResetRebuildsChunkRecords(t *testing.T) {
	u, _ := newTestUniverse(immediatePool{}, "flat_red")
	u.Reset(vox.Pt(0, 0, 0), 32, FlatBoard{Material: "flat_red"})

	if u.ChunkCount() != 4 {
		t.Fatalf("A 32-board should occupy 4 chunks, got %d", u.ChunkCount())
	}
	for key, c := range u.chunks {
		if !c.Dirty() || c.Building() {
			t.Errorf("Chunk %v should be dirty and idle after reset", key)
		}
	}
	if u.ActiveMeshers() != 0 {
		t.Errorf("Expected no active meshers after reset, got %d", u.ActiveMeshers())
	}
	assertChunkSectorInvariant(t, u)
}
