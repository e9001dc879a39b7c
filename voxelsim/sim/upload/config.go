package upload

// UploadQueueConfig bounds the per-frame work of the upload queue.
type UploadQueueConfig struct {
	// MaxBytesPerTransfer is the staging buffer size of one transfer. A
	// single upload larger than this can never be satisfied and is dropped.
	MaxBytesPerTransfer uint64
	// MaxConcurrentTransfers caps transfers in flight at once.
	MaxConcurrentTransfers int
	// MaxNewTransfersInSingleFrame caps transfers started per Update call.
	MaxNewTransfersInSingleFrame int
}

func DefaultUploadQueueConfig() UploadQueueConfig {
	return UploadQueueConfig{
		MaxBytesPerTransfer:          16 * 1024 * 1024,
		MaxConcurrentTransfers:       2,
		MaxNewTransfersInSingleFrame: 2,
	}
}
