package bind_group_provider

// BufferWrite stages bytes for one binding of a provider. The renderer collects the camera
// uniform and per-splat reveal parameters as writes and the backend flushes them in one batch.
type BufferWrite struct {
	Provider BindGroupProvider
	Binding  int
	Offset   uint64
	Data     []byte
}
