package voxrts

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/google/uuid"

	"github.com/gekko3d/voxrts/voxelsim/sim/mesh"
	"github.com/gekko3d/voxrts/voxelsim/sim/world"
)

type AssetId string

// AssetServer owns material and tile assets. Materials are two-phase: a
// created material stays pending until CommitMaterials, and the chunk
// scheduler holds back mesh dispatch for a universe while any of its
// materials is pending.
type AssetServer struct {
	materials       map[AssetId]MaterialAsset
	materialsByName map[world.MaterialHandle]AssetId
	tiles           map[AssetId]TileAsset
}

type MaterialAsset struct {
	version   uint
	record    mesh.MaterialRecord
	committed bool
}

type TileAsset struct {
	version uint
	record  *world.TileRecord
}

type AssetServerModule struct{}

func (AssetServerModule) Install(app *App, cmd *Commands) {
	app.addResources(NewAssetServer())
}

func NewAssetServer() *AssetServer {
	return &AssetServer{
		materials:       make(map[AssetId]MaterialAsset),
		materialsByName: make(map[world.MaterialHandle]AssetId),
		tiles:           make(map[AssetId]TileAsset),
	}
}

// CreateMaterial registers a pending material under its name and returns
// the binding universe material tables are built from. Creating the same
// name twice returns the existing binding.
func (server AssetServer) CreateMaterial(name string) world.NamedMaterial {
	handle := world.MaterialHandle(name)
	if _, ok := server.materialsByName[handle]; !ok {
		id := makeAssetId()
		server.materials[id] = MaterialAsset{
			record: mesh.MaterialRecord{ID: uuid.New(), Name: name},
		}
		server.materialsByName[handle] = id
	}
	return world.NamedMaterial{Name: name, Handle: handle}
}

// CreateMaterials registers a batch of materials in table order, e.g.
// world.DefaultMaterialNames().
func (server AssetServer) CreateMaterials(names ...string) []world.NamedMaterial {
	res := make([]world.NamedMaterial, 0, len(names))
	for _, name := range names {
		res = append(res, server.CreateMaterial(name))
	}
	return res
}

// CommitMaterials marks every pending material committed. In a full engine
// the ingest pipeline commits a material once its GPU side is resident;
// headless embedders call this directly.
func (server AssetServer) CommitMaterials() {
	for id, asset := range server.materials {
		if !asset.committed {
			asset.committed = true
			asset.version++
			server.materials[id] = asset
		}
	}
}

// CommittedMaterial resolves a material handle, reporting false while the
// material is unknown or still pending.
func (server AssetServer) CommittedMaterial(handle world.MaterialHandle) (mesh.MaterialRecord, bool) {
	id, ok := server.materialsByName[handle]
	if !ok {
		return mesh.MaterialRecord{}, false
	}
	asset := server.materials[id]
	if !asset.committed {
		return mesh.MaterialRecord{}, false
	}
	return asset.record, true
}

// CreateTile registers an in-memory tile record.
func (server AssetServer) CreateTile(record *world.TileRecord) AssetId {
	id := makeAssetId()
	server.tiles[id] = TileAsset{record: record}
	return id
}

func (server AssetServer) Tile(id AssetId) (*world.TileRecord, bool) {
	asset, ok := server.tiles[id]
	if !ok {
		return nil, false
	}
	return asset.record, true
}

// LoadTile reads a tile record from a JSON file and registers it. The
// record is validated by decoding it once, so a malformed tile never
// enters the server.
func (server AssetServer) LoadTile(filename string) (AssetId, *world.TileRecord, error) {
	data, err := os.ReadFile(filename)
	if err != nil {
		return "", nil, fmt.Errorf("read tile %s: %w", filename, err)
	}

	var record world.TileRecord
	if err := json.Unmarshal(data, &record); err != nil {
		return "", nil, fmt.Errorf("parse tile %s: %w", filename, err)
	}
	if _, err := record.Decode(); err != nil {
		return "", nil, fmt.Errorf("decode tile %s: %w", filename, err)
	}

	return server.CreateTile(&record), &record, nil
}

// SaveTile writes a tile record as indented JSON.
func (server AssetServer) SaveTile(filename string, record *world.TileRecord) error {
	data, err := json.MarshalIndent(record, "", "  ")
	if err != nil {
		return fmt.Errorf("encode tile %s: %w", record.Name, err)
	}
	if err := os.WriteFile(filename, data, 0o644); err != nil {
		return fmt.Errorf("write tile %s: %w", filename, err)
	}
	return nil
}

func makeAssetId() AssetId {
	return AssetId(uuid.NewString())
}
