package abi

import (
	"encoding/binary"
	"fmt"
)

// mockMemory implements Memory over a byte slice
type mockMemory struct {
	data []byte
}

func newMockMemory(size int) *mockMemory {
	return &mockMemory{data: make([]byte, size)}
}

func (m *mockMemory) check(offset, length uint32) error {
	if uint64(offset)+uint64(length) > uint64(len(m.data)) {
		return fmt.Errorf("out of bounds: offset=%d, length=%d", offset, length)
	}
	return nil
}

func (m *mockMemory) Read(offset uint32, length uint32) ([]byte, error) {
	if err := m.check(offset, length); err != nil {
		return nil, err
	}
	return m.data[offset : offset+length], nil
}

func (m *mockMemory) Write(offset uint32, data []byte) error {
	if err := m.check(offset, uint32(len(data))); err != nil {
		return err
	}
	copy(m.data[offset:], data)
	return nil
}

func (m *mockMemory) ReadU32(offset uint32) (uint32, error) {
	if err := m.check(offset, 4); err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint32(m.data[offset:]), nil
}

func (m *mockMemory) ReadU64(offset uint32) (uint64, error) {
	if err := m.check(offset, 8); err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint64(m.data[offset:]), nil
}

func (m *mockMemory) WriteU64(offset uint32, value uint64) error {
	if err := m.check(offset, 8); err != nil {
		return err
	}
	binary.LittleEndian.PutUint64(m.data[offset:], value)
	return nil
}

func (m *mockMemory) Size() uint32 {
	return uint32(len(m.data))
}

// mockAllocator is a bump allocator that counts frees per pointer
type mockAllocator struct {
	frees  map[uint32]int
	offset uint32
	limit  uint32
}

func newMockAllocator(start, limit uint32) *mockAllocator {
	return &mockAllocator{offset: start, limit: limit, frees: make(map[uint32]int)}
}

func alignTo(offset, align uint32) uint32 {
	if align == 0 {
		return offset
	}
	return (offset + align - 1) &^ (align - 1)
}

func (a *mockAllocator) Alloc(size, align uint32) (uint32, error) {
	ptr := alignTo(a.offset, align)
	if ptr+size > a.limit {
		return 0, fmt.Errorf("out of guest memory")
	}
	a.offset = ptr + size
	return ptr, nil
}

func (a *mockAllocator) Free(ptr, size, align uint32) {
	a.frees[ptr]++
}

func (a *mockAllocator) totalFrees() int {
	n := 0
	for _, c := range a.frees {
		n += c
	}
	return n
}
