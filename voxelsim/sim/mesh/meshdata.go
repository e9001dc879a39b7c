package mesh

import (
	"encoding/binary"
	"fmt"
	"math"
	"sort"

	"github.com/google/uuid"

	"github.com/gekko3d/voxrts/voxelsim/sim/vox"
)

// MaterialRecord is the resolved material a mesh part refers to. Records are
// cloned into build tasks and never mutated after universe construction.
type MaterialRecord struct {
	ID   uuid.UUID
	Name string
}

type IndexType uint8

const (
	IndexTypeUint16 IndexType = iota
	IndexTypeUint32
)

// VertexSize is the interleaved vertex stride: position 3xf32, normal 3xf32,
// tangent 4xf32, texcoord 2xf32.
const VertexSize = 48

// DynMeshPart is the per-material slice of a mesh. Offsets and sizes are
// byte ranges into the shared buffers; indices are relative to the part's
// own vertex range.
type DynMeshPart struct {
	MaterialIndex             uint16
	VertexBufferOffsetInBytes uint32
	VertexBufferSizeInBytes   uint32
	IndexBufferOffsetInBytes  uint32
	IndexBufferSizeInBytes    uint32
	IndexType                 IndexType
}

type DynMeshData struct {
	Parts         []DynMeshPart
	VertexBuffer  []byte
	IndexBuffer   []byte
	VisibleBounds VisibleBounds
}

// BuildMeshData turns a chunk's merged quads into a per-material indexed
// triangle mesh. The slab supplies the material of every quad minimum. A
// voxel referencing a material index with no record fails the whole chunk.
// Returns nil and no error when there are no quads.
func BuildMeshData(slab *vox.Array, quads *GreedyQuadsBuffer, materials []MaterialRecord) (*DynMeshData, error) {
	type perMaterial struct {
		groups [6][]Quad
	}
	parts := make(map[uint16]*perMaterial)
	for gi := range quads.Groups {
		for _, quad := range quads.Groups[gi].Quads {
			mat := slab.Get(quad.Minimum)
			entry, ok := parts[uint16(mat)-1]
			if !ok {
				entry = &perMaterial{}
				parts[uint16(mat)-1] = entry
			}
			entry.groups[gi] = append(entry.groups[gi], quad)
		}
	}
	if len(parts) == 0 {
		return nil, nil
	}

	// Fixed material order keeps the output byte-identical across runs.
	matIndices := make([]uint16, 0, len(parts))
	for mat := range parts {
		matIndices = append(matIndices, mat)
	}
	sort.Slice(matIndices, func(i, j int) bool { return matIndices[i] < matIndices[j] })

	numQuads := quads.NumQuads()
	globalIndexSize := 2
	if numQuads*6 >= 0xFFFF {
		globalIndexSize = 4
	}
	allVertices := make([]byte, 0, numQuads*4*VertexSize)
	allIndices := make([]byte, 0, numQuads*6*globalIndexSize)

	meshParts := make([]DynMeshPart, 0, len(parts))
	faces := Faces()
	for _, mat := range matIndices {
		if int(mat) >= len(materials) {
			return nil, fmt.Errorf("invalid material index %d (materials: %d)", mat, len(materials))
		}
		part := parts[mat]

		partQuads := 0
		for gi := range part.groups {
			partQuads += len(part.groups[gi])
		}
		indexType := IndexTypeUint16
		if partQuads*6 >= 0xFFFF {
			indexType = IndexTypeUint32
		}

		vertexOffset := len(allVertices)
		indexOffset := len(allIndices)
		vertexBase := uint32(0)
		for gi := range part.groups {
			face := &faces[gi]
			normal := face.MeshNormal()
			tangent := face.Tangent()
			for _, quad := range part.groups[gi] {
				positions := face.QuadMeshPositions(quad, 1.0)
				uvs := face.TexCoords(quad)
				for i := 0; i < 4; i++ {
					allVertices = pushF32s(allVertices, positions[i][:])
					allVertices = pushF32s(allVertices, normal[:])
					allVertices = pushF32s(allVertices, tangent[:])
					allVertices = pushF32s(allVertices, uvs[i][:])
				}
				indices := face.QuadMeshIndices(vertexBase)
				for _, idx := range indices {
					if indexType == IndexTypeUint16 {
						allIndices = binary.LittleEndian.AppendUint16(allIndices, uint16(idx))
					} else {
						allIndices = binary.LittleEndian.AppendUint32(allIndices, idx)
					}
				}
				vertexBase += 4
			}
		}

		meshParts = append(meshParts, DynMeshPart{
			MaterialIndex:             mat,
			VertexBufferOffsetInBytes: uint32(vertexOffset),
			VertexBufferSizeInBytes:   uint32(len(allVertices) - vertexOffset),
			IndexBufferOffsetInBytes:  uint32(indexOffset),
			IndexBufferSizeInBytes:    uint32(len(allIndices) - indexOffset),
			IndexType:                 indexType,
		})
	}

	return &DynMeshData{
		Parts:         meshParts,
		VertexBuffer:  allVertices,
		IndexBuffer:   allIndices,
		VisibleBounds: MakeVisibleBounds(slab.Extent().Padded(-1)),
	}, nil
}

func pushF32s(dst []byte, vals []float32) []byte {
	for _, v := range vals {
		dst = binary.LittleEndian.AppendUint32(dst, math.Float32bits(v))
	}
	return dst
}
