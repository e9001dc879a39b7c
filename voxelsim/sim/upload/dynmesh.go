package upload

import "github.com/gekko3d/voxrts/voxelsim/sim/mesh"

// MeshHandle identifies a mesh held by the Manager. Zero is never a valid
// handle.
type MeshHandle uint64

// DynMesh is a fully uploaded mesh: the part table and bounds from the
// build, plus the device buffers the parts slice into.
type DynMesh struct {
	Parts         []mesh.DynMeshPart
	VisibleBounds mesh.VisibleBounds
	VertexBuffer  DeviceBuffer
	IndexBuffer   DeviceBuffer
}

func (m *DynMesh) release() {
	if m.VertexBuffer != nil {
		m.VertexBuffer.Release()
	}
	if m.IndexBuffer != nil {
		m.IndexBuffer.Release()
	}
}

type meshStateKind uint8

const (
	meshStateUploading meshStateKind = iota
	meshStateCompleted
	meshStateUploadError
)

type meshUpload struct {
	data           *mesh.DynMeshData
	vertexUploadID UploadID
	vertexBuffer   DeviceBuffer
	vertexUploaded bool
	indexUploadID  UploadID
	indexBuffer    DeviceBuffer
	indexUploaded  bool
}

func (u *meshUpload) releaseBuffers() {
	if u.vertexBuffer != nil {
		u.vertexBuffer.Release()
		u.vertexBuffer = nil
	}
	if u.indexBuffer != nil {
		u.indexBuffer.Release()
		u.indexBuffer = nil
	}
}

// meshState is one slot of the manager storage. While uploading, mesh keeps
// the previously completed mesh (if any) so readers see it until the
// replacement lands and a failed replacement can fall back to it.
type meshState struct {
	kind   meshStateKind
	upload *meshUpload
	mesh   *DynMesh
}
