package upload

import "time"

type transferState uint8

const (
	transferStateWritable transferState = iota
	transferStateSentToTransferQueue
	transferStatePendingSubmitDstQueue
	transferStateSentToDstQueue
	transferStateComplete
)

type pollResult uint8

const (
	pollPending pollResult = iota
	pollComplete
	pollError
)

type inFlightUpload struct {
	op     *UploadOp
	buffer DeviceBuffer
}

// inProgressTransfer drives one submitted batch through the GPU handoff.
// All uploads in the batch complete or fail together.
type inProgressTransfer struct {
	uploads  []inFlightUpload
	transfer Transfer
	state    transferState

	id        int
	startTime time.Time
	size      uint64
	count     int
}

func (t *inProgressTransfer) poll() pollResult {
	for {
		switch t.state {
		case transferStateWritable:
			if err := t.transfer.SubmitTransfer(); err != nil {
				return t.fail()
			}
			t.state = transferStateSentToTransferQueue
		case transferStateSentToTransferQueue:
			done, err := t.transfer.TransferDone()
			if err != nil {
				return t.fail()
			}
			if !done {
				return pollPending
			}
			t.state = transferStatePendingSubmitDstQueue
		case transferStatePendingSubmitDstQueue:
			if err := t.transfer.SubmitDst(); err != nil {
				return t.fail()
			}
			t.state = transferStateSentToDstQueue
		case transferStateSentToDstQueue:
			done, err := t.transfer.DstDone()
			if err != nil {
				return t.fail()
			}
			if !done {
				return pollPending
			}
			t.state = transferStateComplete
		case transferStateComplete:
			for i := range t.uploads {
				t.uploads[i].op.Complete(t.uploads[i].buffer)
			}
			t.uploads = nil
			t.transfer.Release()
			return pollComplete
		}
	}
}

func (t *inProgressTransfer) fail() pollResult {
	for i := range t.uploads {
		t.uploads[i].buffer.Release()
		t.uploads[i].op.Error()
	}
	t.uploads = nil
	t.transfer.Release()
	return pollError
}
