package upload

import (
	"testing"

	"github.com/gekko3d/voxrts/voxelsim/sim/mesh"
)

func testMeshData() *mesh.DynMeshData {
	return &mesh.DynMeshData{
		Parts: []mesh.DynMeshPart{{
			MaterialIndex:           0,
			VertexBufferSizeInBytes: 8,
			IndexBufferSizeInBytes:  4,
			IndexType:               mesh.IndexTypeUint16,
		}},
		VertexBuffer: []byte{1, 2, 3, 4, 5, 6, 7, 8},
		IndexBuffer:  []byte{1, 0, 2, 0},
	}
}

func newTestManager(device Device) (*Manager, chan<- Command, <-chan CommandResult) {
	mgr := NewManager(NopLogger())
	mgr.InitUploader(device, DefaultUploadQueueConfig())
	cmdIn, cmdOut := mgr.CommandChannels()
	return mgr, cmdIn, cmdOut
}

func nextResult(t *testing.T, ch <-chan CommandResult) CommandResult {
	t.Helper()
	select {
	case r := <-ch:
		return r
	default:
		t.Fatal("Expected a command result")
		return nil
	}
}

func addTestMesh(t *testing.T, mgr *Manager, cmdIn chan<- Command, cmdOut <-chan CommandResult) MeshHandle {
	t.Helper()
	cmdIn <- AddCommand{RequestHandle: 1, Data: testMeshData()}
	mgr.Update()
	add, ok := nextResult(t, cmdOut).(AddResult)
	if !ok || add.Err != nil || add.Handle == 0 {
		t.Fatalf("Add should succeed, got %+v", add)
	}
	mgr.Update()
	if mgr.GetMesh(add.Handle) == nil {
		t.Fatal("Mesh should be complete after the upload lands")
	}
	return add.Handle
}

func TestManagerAddLifecycle(t *testing.T) {
	device := &fakeDevice{instant: true}
	mgr, cmdIn, cmdOut := newTestManager(device)

	cmdIn <- AddCommand{RequestHandle: 42, Data: testMeshData()}
	mgr.Update()

	// The result acknowledges the command; the upload is still in flight
	add, ok := nextResult(t, cmdOut).(AddResult)
	if !ok {
		t.Fatal("Expected an AddResult")
	}
	if add.RequestHandle != 42 || add.Err != nil || add.Handle == 0 {
		t.Fatalf("Unexpected add result %+v", add)
	}
	if mgr.GetMesh(add.Handle) != nil {
		t.Error("Mesh should not be visible before the upload completes")
	}

	mgr.Update()
	dyn := mgr.GetMesh(add.Handle)
	if dyn == nil {
		t.Fatal("Mesh should be complete after the second frame")
	}
	if len(dyn.Parts) != 1 || dyn.VertexBuffer == nil || dyn.IndexBuffer == nil {
		t.Errorf("Assembled mesh is incomplete: %+v", dyn)
	}
	if dyn.VertexBuffer.Size() != 8 || dyn.IndexBuffer.Size() != 4 {
		t.Errorf("Device buffer sizes should match the blobs, got %d and %d",
			dyn.VertexBuffer.Size(), dyn.IndexBuffer.Size())
	}
}

func TestManagerUpdateReplacesMesh(t *testing.T) {
	device := &fakeDevice{instant: true}
	mgr, cmdIn, cmdOut := newTestManager(device)
	handle := addTestMesh(t, mgr, cmdIn, cmdOut)
	old := mgr.GetMesh(handle)

	cmdIn <- UpdateCommand{RequestHandle: 2, Handle: handle, Data: testMeshData()}
	mgr.Update()
	upd, ok := nextResult(t, cmdOut).(UpdateResult)
	if !ok || upd.Err != nil {
		t.Fatalf("Update should succeed, got %+v", upd)
	}
	// The old mesh keeps rendering while the replacement uploads
	if mgr.GetMesh(handle) != old {
		t.Error("Previous mesh should stay visible during the re-upload")
	}

	mgr.Update()
	current := mgr.GetMesh(handle)
	if current == nil || current == old {
		t.Fatal("Mesh should be replaced after the upload lands")
	}
	if !old.VertexBuffer.(*fakeBuffer).released || !old.IndexBuffer.(*fakeBuffer).released {
		t.Error("Old mesh buffers should be released after a successful update")
	}
}

func TestManagerFailedUpdateKeepsPreviousMesh(t *testing.T) {
	device := &fakeDevice{instant: true}
	mgr, cmdIn, cmdOut := newTestManager(device)
	handle := addTestMesh(t, mgr, cmdIn, cmdOut)
	old := mgr.GetMesh(handle)

	device.failNext = true
	cmdIn <- UpdateCommand{RequestHandle: 3, Handle: handle, Data: testMeshData()}
	mgr.Update()
	if upd := nextResult(t, cmdOut).(UpdateResult); upd.Err != nil {
		t.Fatalf("Command itself should be accepted, got %v", upd.Err)
	}

	mgr.Update()
	if mgr.GetMesh(handle) != old {
		t.Error("Failed update should leave the previous mesh intact")
	}
	if old.VertexBuffer.(*fakeBuffer).released {
		t.Error("Previous mesh buffers must survive a failed update")
	}
}

func TestManagerFailedAddLeavesNoMesh(t *testing.T) {
	device := &fakeDevice{instant: true, failNext: true}
	mgr, cmdIn, cmdOut := newTestManager(device)

	cmdIn <- AddCommand{RequestHandle: 4, Data: testMeshData()}
	mgr.Update()
	add := nextResult(t, cmdOut).(AddResult)
	if add.Err != nil {
		t.Fatalf("Command itself should be accepted, got %v", add.Err)
	}

	mgr.Update()
	if mgr.GetMesh(add.Handle) != nil {
		t.Error("Failed add should leave the handle without a mesh")
	}
}

func TestManagerRemoveReleasesBuffers(t *testing.T) {
	device := &fakeDevice{instant: true}
	mgr, cmdIn, cmdOut := newTestManager(device)
	handle := addTestMesh(t, mgr, cmdIn, cmdOut)
	dyn := mgr.GetMesh(handle)

	cmdIn <- RemoveCommand{Handle: handle}
	mgr.Update()

	if mgr.MeshCount() != 0 {
		t.Errorf("Storage should be empty after remove, got %d", mgr.MeshCount())
	}
	if mgr.GetMesh(handle) != nil {
		t.Error("Removed handle should resolve to no mesh")
	}
	if !dyn.VertexBuffer.(*fakeBuffer).released || !dyn.IndexBuffer.(*fakeBuffer).released {
		t.Error("Removed mesh buffers should be released")
	}
}

func TestManagerUpdateUnknownHandle(t *testing.T) {
	mgr, cmdIn, cmdOut := newTestManager(&fakeDevice{instant: true})

	cmdIn <- UpdateCommand{RequestHandle: 5, Handle: 999, Data: testMeshData()}
	mgr.Update()
	if upd := nextResult(t, cmdOut).(UpdateResult); upd.Err == nil {
		t.Error("Updating an unknown handle should fail")
	}
}

func TestManagerAddRequiresUploader(t *testing.T) {
	mgr := NewManager(NopLogger())
	cmdIn, cmdOut := mgr.CommandChannels()

	cmdIn <- AddCommand{RequestHandle: 6, Data: testMeshData()}
	mgr.Update()
	if add := nextResult(t, cmdOut).(AddResult); add.Err == nil {
		t.Error("Add without an initialized uploader should fail")
	}
}

func TestManagerAddRejectsEmptyMeshData(t *testing.T) {
	mgr, cmdIn, cmdOut := newTestManager(&fakeDevice{instant: true})

	cmdIn <- AddCommand{RequestHandle: 7, Data: &mesh.DynMeshData{
		VertexBuffer: []byte{},
		IndexBuffer:  []byte{},
	}}
	mgr.Update()
	if add := nextResult(t, cmdOut).(AddResult); add.Err == nil {
		t.Error("Empty mesh data should be rejected")
	}
}

func TestRenderObjectSet(t *testing.T) {
	set := NewRenderObjectSet()

	h1 := set.Register(DynMeshRenderObject{Mesh: 1})
	h2 := set.Register(DynMeshRenderObject{Mesh: 2})
	if h1 == h2 || h1 == 0 {
		t.Fatalf("Handles should be distinct and non-zero: %d, %d", h1, h2)
	}
	if set.Len() != 2 {
		t.Errorf("Expected two registered objects, got %d", set.Len())
	}
	if obj, ok := set.Get(h2); !ok || obj.Mesh != 2 {
		t.Errorf("Lookup returned %+v, %v", obj, ok)
	}

	set.Unregister(h1)
	if set.Len() != 1 {
		t.Errorf("Expected one object after unregister, got %d", set.Len())
	}
	if _, ok := set.Get(h1); ok {
		t.Error("Unregistered handle should not resolve")
	}
}
