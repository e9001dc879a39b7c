package upload

import (
	"errors"
	"sync/atomic"
	"time"
)

// Channel capacities. Both exceed every op the queue can hold at once, so
// sends from the queue's own thread never block.
const (
	pendingUploadCapacity = 256
	opResultCapacity      = 2 * pendingUploadCapacity
)

type pendingUpload struct {
	op   *UploadOp
	kind BufferKind
	data []byte
}

type uploadQueue struct {
	device Device
	config UploadQueueConfig
	log    Logger

	pending    chan pendingUpload
	nextUpload *pendingUpload

	inProgress []*inProgressTransfer

	nextTransferID int
}

func newUploadQueue(device Device, config UploadQueueConfig, log Logger) *uploadQueue {
	return &uploadQueue{
		device:         device,
		config:         config,
		log:            log,
		pending:        make(chan pendingUpload, pendingUploadCapacity),
		nextTransferID: 1,
	}
}

func (q *uploadQueue) update() error {
	if err := q.startNewTransfers(); err != nil {
		return err
	}
	q.updateExistingTransfers()
	return nil
}

func (q *uploadQueue) startNewTransfers() error {
	for i := 0; i < q.config.MaxNewTransfersInSingleFrame; i++ {
		if len(q.pending) == 0 && q.nextUpload == nil {
			return nil
		}
		if len(q.inProgress) >= q.config.MaxConcurrentTransfers {
			q.log.Debugf("Max number of transfers already in progress, waiting to start a new one")
			return nil
		}
		started, err := q.startNewTransfer()
		if err != nil {
			return err
		}
		if !started {
			return nil
		}
	}
	return nil
}

func (q *uploadQueue) startNewTransfer() (bool, error) {
	transfer, err := q.device.NewTransfer(q.config.MaxBytesPerTransfer)
	if err != nil {
		return false, err
	}

	uploads, err := q.startNewUploads(transfer)
	if err != nil {
		transfer.Release()
		return false, err
	}
	if len(uploads) == 0 {
		transfer.Release()
		return false, nil
	}

	id := q.nextTransferID
	q.nextTransferID++
	q.log.Debugf("Submitting %d byte transfer with %d buffers, transfer id %d",
		transfer.BytesWritten(), len(uploads), id)

	size := transfer.BytesWritten()
	if err := transfer.SubmitTransfer(); err != nil {
		dropUploads(uploads)
		transfer.Release()
		return false, err
	}
	q.inProgress = append(q.inProgress, &inProgressTransfer{
		uploads:   uploads,
		transfer:  transfer,
		state:     transferStateSentToTransferQueue,
		id:        id,
		startTime: time.Now(),
		size:      size,
		count:     len(uploads),
	})
	return true, nil
}

func (q *uploadQueue) startNewUploads(transfer Transfer) ([]inFlightUpload, error) {
	var uploads []inFlightUpload

	if q.nextUpload != nil {
		carried := *q.nextUpload
		q.nextUpload = nil
		leftover, err := q.tryEnqueueUpload(transfer, carried, &uploads)
		if err != nil {
			dropUploads(uploads)
			return nil, err
		}
		if leftover != nil {
			// The blob did not fit even into a fresh transfer, so it can
			// never be satisfied. Drop it so the queue keeps flowing.
			q.log.Errorf("Buffer of %d bytes has repeatedly exceeded the available room in the transfer buffer (%d of %d bytes free), dropping it",
				len(leftover.data), transfer.BytesFree(), transfer.BufferSize())
			leftover.op.Drop()
		}
	}

	for {
		select {
		case p := <-q.pending:
			leftover, err := q.tryEnqueueUpload(transfer, p, &uploads)
			if err != nil {
				dropUploads(uploads)
				return nil, err
			}
			if leftover != nil {
				q.log.Debugf("Buffer of %d bytes exceeds the available room in the transfer buffer (%d of %d bytes free)",
					len(leftover.data), transfer.BytesFree(), transfer.BufferSize())
				q.nextUpload = leftover
				return uploads, nil
			}
		default:
			return uploads, nil
		}
	}
}

// tryEnqueueUpload stages one pending upload into the transfer. Returns the
// upload back when the staging buffer is full so the caller can carry it
// over to the next transfer.
func (q *uploadQueue) tryEnqueueUpload(transfer Transfer, p pendingUpload, uploads *[]inFlightUpload) (*pendingUpload, error) {
	buffer, err := transfer.Enqueue(p.kind, p.data)
	if err != nil {
		if errors.Is(err, ErrTransferFull) {
			return &p, nil
		}
		p.op.Drop()
		return nil, err
	}
	*uploads = append(*uploads, inFlightUpload{op: p.op, buffer: buffer})
	return nil, nil
}

func dropUploads(uploads []inFlightUpload) {
	for i := range uploads {
		uploads[i].buffer.Release()
		uploads[i].op.Drop()
	}
}

func (q *uploadQueue) updateExistingTransfers() {
	// iterate backwards so we can swap-remove finished transfers
	for i := len(q.inProgress) - 1; i >= 0; i-- {
		t := q.inProgress[i]
		switch t.poll() {
		case pollPending:
		case pollComplete:
			q.log.Debugf("Completed %d byte transfer with %d buffers in %.2f ms, transfer id %d",
				t.size, t.count, float64(time.Since(t.startTime).Microseconds())/1000.0, t.id)
			q.removeTransfer(i)
		case pollError:
			q.log.Errorf("Failed %d byte transfer with %d buffers in %.2f ms, transfer id %d",
				t.size, t.count, float64(time.Since(t.startTime).Microseconds())/1000.0, t.id)
			q.removeTransfer(i)
		}
	}
}

func (q *uploadQueue) removeTransfer(i int) {
	last := len(q.inProgress) - 1
	q.inProgress[i] = q.inProgress[last]
	q.inProgress[last] = nil
	q.inProgress = q.inProgress[:last]
}

// shutdown drains the device, resolves every in-flight transfer and drops
// every pending upload that never started.
func (q *uploadQueue) shutdown() {
	q.log.Infof("Cleaning up buffer upload queue")
	q.device.WaitIdle()
	for len(q.inProgress) > 0 {
		q.updateExistingTransfers()
	}
	for {
		select {
		case p := <-q.pending:
			p.op.Drop()
		default:
			if q.nextUpload != nil {
				q.nextUpload.op.Drop()
				q.nextUpload = nil
			}
			return
		}
	}
}

// BufferUploader accepts buffer blobs and delivers each exactly one
// UploadResult on the channel the caller supplied.
type BufferUploader struct {
	queue     *uploadQueue
	currentID atomic.Uint64
	log       Logger

	results chan opResult
}

func NewBufferUploader(device Device, config UploadQueueConfig, log Logger) *BufferUploader {
	return &BufferUploader{
		queue:   newUploadQueue(device, config, log),
		log:     log,
		results: make(chan opResult, opResultCapacity),
	}
}

// Update advances the queue one step and forwards finished op results to
// their callers. Call once per frame from the coordinator.
func (u *BufferUploader) Update() error {
	err := u.queue.update()
	u.forwardResults()
	return err
}

func (u *BufferUploader) forwardResults() {
	for {
		select {
		case r := <-u.results:
			switch r.status {
			case UploadStatusComplete:
				u.log.Debugf("Uploading buffer %d complete", r.id)
			case UploadStatusError:
				u.log.Debugf("Uploading buffer %d failed", r.id)
			case UploadStatusDropped:
				u.log.Debugf("Uploading buffer %d cancelled", r.id)
			}
			result := UploadResult{ID: r.id, Status: r.status, Buffer: r.buffer}
			select {
			case r.resultTx <- result:
			default:
				u.log.Errorf("Upload result channel full, dropping result for upload %d", r.id)
				if result.Buffer != nil {
					result.Buffer.Release()
				}
			}
		default:
			return
		}
	}
}

// UploadBuffer enqueues one blob for upload. The returned id matches the
// eventual UploadResult on resultTx, which must have room for every result
// routed to it.
func (u *BufferUploader) UploadBuffer(kind BufferKind, data []byte, resultTx chan<- UploadResult) (UploadID, error) {
	if len(data) == 0 {
		return 0, errors.New("cannot upload an empty buffer")
	}
	id := UploadID(u.currentID.Add(1) - 1)
	p := pendingUpload{
		op:   newUploadOp(id, resultTx, u.results),
		kind: kind,
		data: data,
	}
	select {
	case u.queue.pending <- p:
		return id, nil
	default:
		u.log.Errorf("Could not enqueue buffer upload")
		return 0, errors.New("could not enqueue buffer upload")
	}
}

// Shutdown resolves or drops every outstanding upload and delivers the
// final results.
func (u *BufferUploader) Shutdown() {
	u.queue.shutdown()
	u.forwardResults()
}
