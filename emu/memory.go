package emu

// DefaultMemorySize is the default backing memory capacity (16MB).
const DefaultMemorySize = 16 * 1024 * 1024

// Memory is a flat, byte-addressable backing store with a capacity fixed
// at construction time. All multi-byte accesses are little-endian.
//
// Out-of-range reads return zero and out-of-range writes are dropped;
// range checking with an error response belongs to the bus slave
// (timing/bus), which is the only path hardware has to this array.
type Memory struct {
	data []byte
}

// NewMemory creates a memory with the default capacity.
func NewMemory() *Memory {
	return NewMemoryWithSize(DefaultMemorySize)
}

// NewMemoryWithSize creates a memory with the given capacity in bytes.
func NewMemoryWithSize(size int) *Memory {
	return &Memory{data: make([]byte, size)}
}

// Size returns the memory capacity in bytes.
func (m *Memory) Size() int {
	return len(m.data)
}

// InRange reports whether an access of the given width fits in memory.
func (m *Memory) InRange(addr uint32, size int) bool {
	return int(addr) >= 0 && int(addr)+size <= len(m.data)
}

// Read8 reads a byte.
func (m *Memory) Read8(addr uint32) uint8 {
	if !m.InRange(addr, 1) {
		return 0
	}
	return m.data[addr]
}

// Write8 writes a byte.
func (m *Memory) Write8(addr uint32, value uint8) {
	if !m.InRange(addr, 1) {
		return
	}
	m.data[addr] = value
}

// Read16 reads a little-endian halfword.
func (m *Memory) Read16(addr uint32) uint16 {
	return uint16(m.Read8(addr)) | uint16(m.Read8(addr+1))<<8
}

// Write16 writes a little-endian halfword.
func (m *Memory) Write16(addr uint32, value uint16) {
	m.Write8(addr, uint8(value))
	m.Write8(addr+1, uint8(value>>8))
}

// Read32 reads a little-endian word.
func (m *Memory) Read32(addr uint32) uint32 {
	return uint32(m.Read8(addr)) |
		uint32(m.Read8(addr+1))<<8 |
		uint32(m.Read8(addr+2))<<16 |
		uint32(m.Read8(addr+3))<<24
}

// Write32 writes a little-endian word.
func (m *Memory) Write32(addr uint32, value uint32) {
	m.Write8(addr, uint8(value))
	m.Write8(addr+1, uint8(value>>8))
	m.Write8(addr+2, uint8(value>>16))
	m.Write8(addr+3, uint8(value>>24))
}
