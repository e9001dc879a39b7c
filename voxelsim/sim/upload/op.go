package upload

// UploadID identifies one buffer upload from submission to its final result.
type UploadID uint64

type UploadStatus uint8

const (
	UploadStatusComplete UploadStatus = iota
	UploadStatusError
	UploadStatusDropped
)

func (s UploadStatus) String() string {
	switch s {
	case UploadStatusComplete:
		return "complete"
	case UploadStatusError:
		return "error"
	default:
		return "dropped"
	}
}

// UploadResult is delivered on the channel the caller passed to
// UploadBuffer. Buffer is set only when Status is UploadStatusComplete.
type UploadResult struct {
	ID     UploadID
	Status UploadStatus
	Buffer DeviceBuffer
}

type opResult struct {
	id       UploadID
	resultTx chan<- UploadResult
	status   UploadStatus
	buffer   DeviceBuffer
}

// UploadOp tracks one upload through the queue. Exactly one of Complete,
// Error or Drop must be called; later calls are ignored. Every path that
// abandons an op before completion must call Drop so the caller observes
// the cancellation.
type UploadOp struct {
	id       UploadID
	resultTx chan<- UploadResult
	notify   chan<- opResult
	done     bool
}

func newUploadOp(id UploadID, resultTx chan<- UploadResult, notify chan<- opResult) *UploadOp {
	return &UploadOp{id: id, resultTx: resultTx, notify: notify}
}

func (op *UploadOp) Complete(buffer DeviceBuffer) {
	op.finish(opResult{id: op.id, resultTx: op.resultTx, status: UploadStatusComplete, buffer: buffer})
}

func (op *UploadOp) Error() {
	op.finish(opResult{id: op.id, resultTx: op.resultTx, status: UploadStatusError})
}

func (op *UploadOp) Drop() {
	op.finish(opResult{id: op.id, resultTx: op.resultTx, status: UploadStatusDropped})
}

func (op *UploadOp) finish(r opResult) {
	if op.done {
		return
	}
	op.done = true
	select {
	case op.notify <- r:
	default:
		// The notify channel is sized for every op the queue can hold;
		// overflowing it means results are being produced without Update
		// draining them.
		if r.buffer != nil {
			r.buffer.Release()
		}
	}
}
