package upload

// DynMeshRenderObject binds a mesh to the render side.
type DynMeshRenderObject struct {
	Mesh MeshHandle
}

// RenderObjectHandle identifies a registered render object. Zero is never a
// valid handle.
type RenderObjectHandle uint64

// RenderObjectSet is the registry the render side iterates when drawing.
type RenderObjectSet struct {
	objects map[RenderObjectHandle]DynMeshRenderObject
	next    RenderObjectHandle
}

func NewRenderObjectSet() *RenderObjectSet {
	return &RenderObjectSet{
		objects: make(map[RenderObjectHandle]DynMeshRenderObject),
		next:    1,
	}
}

func (s *RenderObjectSet) Register(obj DynMeshRenderObject) RenderObjectHandle {
	handle := s.next
	s.next++
	s.objects[handle] = obj
	return handle
}

func (s *RenderObjectSet) Unregister(handle RenderObjectHandle) {
	delete(s.objects, handle)
}

func (s *RenderObjectSet) Get(handle RenderObjectHandle) (DynMeshRenderObject, bool) {
	obj, ok := s.objects[handle]
	return obj, ok
}

func (s *RenderObjectSet) Len() int {
	return len(s.objects)
}
