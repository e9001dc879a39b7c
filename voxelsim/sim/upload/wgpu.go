package upload

import (
	"fmt"

	"github.com/cogentcore/webgpu/wgpu"
)

// copyAlignment is the wgpu requirement on buffer copy sizes and offsets.
const copyAlignment = 4

// WgpuDevice adapts a webgpu device to the upload Device interface. wgpu
// exposes a single queue, so the destination-queue ownership hop completes
// immediately after the copy submission.
type WgpuDevice struct {
	device *wgpu.Device
	queue  *wgpu.Queue
}

func NewWgpuDevice(device *wgpu.Device, queue *wgpu.Queue) *WgpuDevice {
	return &WgpuDevice{device: device, queue: queue}
}

func (d *WgpuDevice) NewTransfer(size uint64) (Transfer, error) {
	staging, err := d.device.CreateBuffer(&wgpu.BufferDescriptor{
		Label:            "dyn mesh transfer staging",
		Size:             size,
		Usage:            wgpu.BufferUsageCopySrc,
		MappedAtCreation: true,
	})
	if err != nil {
		return nil, fmt.Errorf("create staging buffer: %w", err)
	}
	return &wgpuTransfer{
		device:  d,
		staging: staging,
		mapped:  staging.GetMappedRange(0, uint(size)),
		size:    size,
	}, nil
}

func (d *WgpuDevice) WaitIdle() {
	d.device.Poll(true, nil)
}

type bufferCopy struct {
	dst    *wgpu.Buffer
	offset uint64
	size   uint64
}

type wgpuTransfer struct {
	device  *WgpuDevice
	staging *wgpu.Buffer
	mapped  []byte
	size    uint64
	written uint64
	copies  []bufferCopy
}

func (t *wgpuTransfer) BufferSize() uint64   { return t.size }
func (t *wgpuTransfer) BytesFree() uint64    { return t.size - t.written }
func (t *wgpuTransfer) BytesWritten() uint64 { return t.written }

func (t *wgpuTransfer) Enqueue(kind BufferKind, data []byte) (DeviceBuffer, error) {
	aligned := alignUp(uint64(len(data)), copyAlignment)
	if t.written+aligned > t.size {
		return nil, ErrTransferFull
	}
	usage := wgpu.BufferUsageCopyDst | wgpu.BufferUsageVertex
	if kind == BufferKindIndex {
		usage = wgpu.BufferUsageCopyDst | wgpu.BufferUsageIndex
	}
	dst, err := t.device.device.CreateBuffer(&wgpu.BufferDescriptor{
		Label: fmt.Sprintf("dyn mesh %s buffer", kind),
		Size:  aligned,
		Usage: usage,
	})
	if err != nil {
		return nil, fmt.Errorf("create %s buffer: %w", kind, err)
	}
	copy(t.mapped[t.written:], data)
	t.copies = append(t.copies, bufferCopy{dst: dst, offset: t.written, size: aligned})
	t.written += aligned
	return &WgpuBuffer{buffer: dst, size: uint64(len(data))}, nil
}

func (t *wgpuTransfer) SubmitTransfer() error {
	t.staging.Unmap()
	t.mapped = nil

	encoder, err := t.device.device.CreateCommandEncoder(nil)
	if err != nil {
		return fmt.Errorf("create transfer encoder: %w", err)
	}
	defer encoder.Release()
	for _, c := range t.copies {
		if err := encoder.CopyBufferToBuffer(t.staging, c.offset, c.dst, 0, c.size); err != nil {
			return fmt.Errorf("copy to destination buffer: %w", err)
		}
	}
	cmd, err := encoder.Finish(nil)
	if err != nil {
		return fmt.Errorf("finish transfer encoder: %w", err)
	}
	defer cmd.Release()
	t.device.queue.Submit(cmd)
	return nil
}

func (t *wgpuTransfer) TransferDone() (bool, error) {
	return t.device.device.Poll(false, nil), nil
}

func (t *wgpuTransfer) SubmitDst() error {
	return nil
}

func (t *wgpuTransfer) DstDone() (bool, error) {
	return true, nil
}

func (t *wgpuTransfer) Release() {
	t.staging.Release()
}

// WgpuBuffer wraps a destination buffer; the render side binds Buffer()
// directly.
type WgpuBuffer struct {
	buffer *wgpu.Buffer
	size   uint64
}

func (b *WgpuBuffer) Buffer() *wgpu.Buffer { return b.buffer }
func (b *WgpuBuffer) Size() uint64         { return b.size }
func (b *WgpuBuffer) Release()             { b.buffer.Release() }

func alignUp(n, align uint64) uint64 {
	return (n + align - 1) / align * align
}
