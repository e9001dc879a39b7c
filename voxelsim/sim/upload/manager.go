package upload

import (
	"errors"
	"fmt"

	"github.com/gekko3d/voxrts/voxelsim/sim/mesh"
)

// Command is a request to the mesh manager. Commands arrive on a channel so
// producers never touch manager state directly.
type Command interface{ uploadCommand() }

// AddCommand uploads a fresh mesh. RequestHandle is an opaque caller tag
// echoed back in the AddResult.
type AddCommand struct {
	RequestHandle uint64
	Data          *mesh.DynMeshData
}

// UpdateCommand replaces the mesh behind an existing handle.
type UpdateCommand struct {
	RequestHandle uint64
	Handle        MeshHandle
	Data          *mesh.DynMeshData
}

// RemoveCommand releases a mesh and its device buffers. It produces no
// result.
type RemoveCommand struct {
	Handle MeshHandle
}

func (AddCommand) uploadCommand()    {}
func (UpdateCommand) uploadCommand() {}
func (RemoveCommand) uploadCommand() {}

type CommandResult interface{ uploadCommandResult() }

type AddResult struct {
	RequestHandle uint64
	Handle        MeshHandle
	Err           error
}

type UpdateResult struct {
	RequestHandle uint64
	Err           error
}

func (AddResult) uploadCommandResult()    {}
func (UpdateResult) uploadCommandResult() {}

const commandChannelCapacity = 256

// Manager owns every dynamic mesh: it routes build output through the
// buffer uploader, assembles the DynMesh when both buffers land, and serves
// mesh lookups to the render side. All methods must be called from the
// coordinator.
type Manager struct {
	log      Logger
	uploader *BufferUploader

	storage    map[MeshHandle]*meshState
	nextHandle MeshHandle

	cmdIn  chan Command
	cmdOut chan CommandResult

	vertexUploads map[UploadID]MeshHandle
	vertexResults chan UploadResult
	indexUploads  map[UploadID]MeshHandle
	indexResults  chan UploadResult
}

func NewManager(log Logger) *Manager {
	return &Manager{
		log:           log,
		storage:       make(map[MeshHandle]*meshState),
		nextHandle:    1,
		cmdIn:         make(chan Command, commandChannelCapacity),
		cmdOut:        make(chan CommandResult, commandChannelCapacity),
		vertexUploads: make(map[UploadID]MeshHandle),
		vertexResults: make(chan UploadResult, opResultCapacity),
		indexUploads:  make(map[UploadID]MeshHandle),
		indexResults:  make(chan UploadResult, opResultCapacity),
	}
}

// InitUploader attaches the GPU device. Until it is called, every Add and
// Update fails.
func (m *Manager) InitUploader(device Device, config UploadQueueConfig) {
	if m.uploader != nil {
		m.log.Errorf("Buffer uploader already initialized")
		return
	}
	m.uploader = NewBufferUploader(device, config, m.log)
}

// CommandChannels returns the channel pair producers use: commands in,
// results out.
func (m *Manager) CommandChannels() (chan<- Command, <-chan CommandResult) {
	return m.cmdIn, m.cmdOut
}

// Update pumps the uploader, attaches finished buffers and processes
// queued commands. Call once per frame.
func (m *Manager) Update() {
	if m.uploader != nil {
		if err := m.uploader.Update(); err != nil {
			m.log.Errorf("Buffer upload: %v", err)
		}
	}
	m.processUploadResults()
	m.processCommands()
}

// GetMesh returns the renderable mesh for a handle: the uploaded mesh when
// complete, the previous mesh while a replacement uploads, nil otherwise.
func (m *Manager) GetMesh(handle MeshHandle) *DynMesh {
	state, ok := m.storage[handle]
	if !ok {
		return nil
	}
	return state.mesh
}

func (m *Manager) MeshCount() int {
	return len(m.storage)
}

// Shutdown resolves or drops every outstanding upload and releases every
// stored mesh.
func (m *Manager) Shutdown() {
	if m.uploader != nil {
		m.uploader.Shutdown()
		m.processUploadResults()
	}
	for handle := range m.storage {
		m.removeMesh(handle)
	}
}

func (m *Manager) startUpload(data *mesh.DynMeshData, existing *meshState) (*meshState, error) {
	if data == nil || data.VertexBuffer == nil || data.IndexBuffer == nil {
		return nil, errors.New("mesh data is not initialized")
	}
	vertexData, indexData := data.VertexBuffer, data.IndexBuffer
	data.VertexBuffer, data.IndexBuffer = nil, nil
	if len(vertexData) == 0 || len(indexData) == 0 {
		return nil, errors.New("mesh data does not contain data")
	}
	if m.uploader == nil {
		return nil, errors.New("buffer uploader is not initialized")
	}

	vertexID, err := m.uploader.UploadBuffer(BufferKindVertex, vertexData, m.vertexResults)
	if err != nil {
		return nil, err
	}
	// If this second enqueue fails the vertex op stays queued; its result
	// resolves as stale because no route is registered for it.
	indexID, err := m.uploader.UploadBuffer(BufferKindIndex, indexData, m.indexResults)
	if err != nil {
		return nil, err
	}

	var oldMesh *DynMesh
	if existing != nil {
		oldMesh = existing.mesh
	}
	return &meshState{
		kind: meshStateUploading,
		upload: &meshUpload{
			data:           data,
			vertexUploadID: vertexID,
			indexUploadID:  indexID,
		},
		mesh: oldMesh,
	}, nil
}

func (m *Manager) processCommands() {
	for {
		var cmd Command
		select {
		case cmd = <-m.cmdIn:
		default:
			return
		}
		switch c := cmd.(type) {
		case AddCommand:
			handle, err := m.addMesh(c.Data)
			m.sendResult(AddResult{RequestHandle: c.RequestHandle, Handle: handle, Err: err})
		case UpdateCommand:
			err := m.updateMesh(c.Handle, c.Data)
			m.sendResult(UpdateResult{RequestHandle: c.RequestHandle, Err: err})
		case RemoveCommand:
			m.removeMesh(c.Handle)
		}
	}
}

func (m *Manager) addMesh(data *mesh.DynMeshData) (MeshHandle, error) {
	state, err := m.startUpload(data, nil)
	if err != nil {
		return 0, err
	}
	handle := m.nextHandle
	m.nextHandle++
	m.storage[handle] = state
	m.vertexUploads[state.upload.vertexUploadID] = handle
	m.indexUploads[state.upload.indexUploadID] = handle
	return handle, nil
}

func (m *Manager) updateMesh(handle MeshHandle, data *mesh.DynMeshData) error {
	existing, ok := m.storage[handle]
	if !ok {
		return fmt.Errorf("unknown mesh handle %d", handle)
	}
	state, err := m.startUpload(data, existing)
	if err != nil {
		return err
	}
	// Any unfinished previous upload is superseded: its landed buffers are
	// released now, its in-flight results resolve as stale later.
	if existing.kind == meshStateUploading {
		existing.upload.releaseBuffers()
	}
	m.storage[handle] = state
	m.vertexUploads[state.upload.vertexUploadID] = handle
	m.indexUploads[state.upload.indexUploadID] = handle
	return nil
}

func (m *Manager) removeMesh(handle MeshHandle) {
	state, ok := m.storage[handle]
	if !ok {
		m.log.Warnf("Remove for unknown mesh handle %d", handle)
		return
	}
	if state.upload != nil {
		state.upload.releaseBuffers()
	}
	if state.mesh != nil {
		state.mesh.release()
	}
	delete(m.storage, handle)
}

func (m *Manager) processUploadResults() {
	m.drainUploadResults(m.vertexResults, m.vertexUploads, BufferKindVertex)
	m.drainUploadResults(m.indexResults, m.indexUploads, BufferKindIndex)
}

func (m *Manager) drainUploadResults(results chan UploadResult, routes map[UploadID]MeshHandle, kind BufferKind) {
	for {
		var r UploadResult
		select {
		case r = <-results:
		default:
			return
		}

		handle, routed := routes[r.ID]
		if !routed {
			m.log.Debugf("Discarding unrouted %s upload result %d", kind, r.ID)
			if r.Buffer != nil {
				r.Buffer.Release()
			}
			continue
		}
		delete(routes, r.ID)

		state, exists := m.storage[handle]
		current := exists && state.kind == meshStateUploading && uploadIDFor(state.upload, kind) == r.ID
		if !current {
			m.log.Debugf("Discarding stale %s upload result %d for mesh %d", kind, r.ID, handle)
			if r.Buffer != nil {
				r.Buffer.Release()
			}
			continue
		}

		if r.Status != UploadStatusComplete {
			m.log.Errorf("%s buffer upload %s (upload id %d) for mesh %d", kind, r.Status, r.ID, handle)
			m.failUpload(state)
			continue
		}

		if kind == BufferKindVertex {
			state.upload.vertexBuffer = r.Buffer
			state.upload.vertexUploaded = true
		} else {
			state.upload.indexBuffer = r.Buffer
			state.upload.indexUploaded = true
		}
		m.checkFinishedUpload(state)
	}
}

func uploadIDFor(u *meshUpload, kind BufferKind) UploadID {
	if kind == BufferKindVertex {
		return u.vertexUploadID
	}
	return u.indexUploadID
}

// failUpload resolves a failed upload: an update falls back to the mesh it
// meant to replace, a fresh add becomes an error slot.
func (m *Manager) failUpload(state *meshState) {
	state.upload.releaseBuffers()
	state.upload = nil
	if state.mesh != nil {
		state.kind = meshStateCompleted
	} else {
		state.kind = meshStateUploadError
	}
}

func (m *Manager) checkFinishedUpload(state *meshState) {
	up := state.upload
	if !up.vertexUploaded || !up.indexUploaded {
		return
	}
	dynMesh := &DynMesh{
		Parts:         up.data.Parts,
		VisibleBounds: up.data.VisibleBounds,
		VertexBuffer:  up.vertexBuffer,
		IndexBuffer:   up.indexBuffer,
	}
	if state.mesh != nil {
		state.mesh.release()
	}
	state.kind = meshStateCompleted
	state.mesh = dynMesh
	state.upload = nil
}

func (m *Manager) sendResult(result CommandResult) {
	select {
	case m.cmdOut <- result:
	default:
		m.log.Errorf("Command result channel full, dropping a result")
	}
}
