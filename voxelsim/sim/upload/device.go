package upload

import "errors"

// ErrTransferFull is returned by Transfer.Enqueue when the staging buffer
// cannot hold the blob. The caller keeps the blob for the next transfer.
var ErrTransferFull = errors.New("transfer staging buffer is full")

// BufferKind selects the destination usage of an uploaded blob.
type BufferKind uint8

const (
	BufferKindVertex BufferKind = iota
	BufferKindIndex
)

func (k BufferKind) String() string {
	if k == BufferKindIndex {
		return "index"
	}
	return "vertex"
}

// DeviceBuffer is a GPU resident buffer produced by a completed upload.
// Release must be called exactly once when the buffer is no longer needed.
type DeviceBuffer interface {
	Size() uint64
	Release()
}

// Transfer is one staging allocation that batches buffer copies to the GPU.
// Enqueue stages blobs until ErrTransferFull; SubmitTransfer sends the batch
// to the transfer queue; SubmitDst performs the destination-queue ownership
// transfer. The Done methods poll the corresponding fences without blocking.
type Transfer interface {
	BufferSize() uint64
	BytesFree() uint64
	BytesWritten() uint64
	Enqueue(kind BufferKind, data []byte) (DeviceBuffer, error)
	SubmitTransfer() error
	TransferDone() (bool, error)
	SubmitDst() error
	DstDone() (bool, error)
	Release()
}

// Device creates transfers. WaitIdle blocks until all submitted work has
// drained; the upload queue calls it on shutdown.
type Device interface {
	NewTransfer(size uint64) (Transfer, error)
	WaitIdle()
}
