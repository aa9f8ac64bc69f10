package ffivalue

// Memory is the guest side of the boundary: linear memory addressed by
// 32-bit offsets. Multi-byte accessors are little-endian.
type Memory interface {
	Read(offset uint32, length uint32) ([]byte, error)
	Write(offset uint32, data []byte) error
	ReadU32(offset uint32) (uint32, error)
	ReadU64(offset uint32) (uint64, error)
	WriteU64(offset uint32, value uint64) error
	Size() uint32
}

// Allocator allocates memory in guest linear memory. Memory obtained from
// it belongs to the guest allocator and must be returned through Free, never
// through the host's own allocator.
type Allocator interface {
	Alloc(size, align uint32) (uint32, error)
	Free(ptr, size, align uint32)
}
