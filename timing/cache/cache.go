// Package cache provides L1 cache controllers using Akita cache components.
//
// Tag and replacement state lives in an Akita cache directory; the data
// array is owned by the controller. Hits complete in the same cycle.
// Misses start a bus transaction (writeback of the dirty victim first,
// then a line fill) and complete only when the fill finishes, so the
// requesting pipeline stage stalls for the real transaction duration.
package cache

import (
	akitacache "github.com/sarchlab/akita/v4/mem/cache"

	"github.com/sarchlab/rv32sim/timing/bus"
)

// Config holds cache configuration parameters.
type Config struct {
	// Size in bytes
	Size int
	// Associativity (number of ways)
	Associativity int
	// BlockSize in bytes (cache line size)
	BlockSize int
}

// DefaultIConfig returns the default configuration for the L1
// instruction cache: 4KB, 2-way, 16B lines.
func DefaultIConfig() Config {
	return Config{
		Size:          4 * 1024,
		Associativity: 2,
		BlockSize:     16,
	}
}

// DefaultDConfig returns the default configuration for the L1 data
// cache: 4KB, 4-way, 16B lines.
func DefaultDConfig() Config {
	return Config{
		Size:          4 * 1024,
		Associativity: 4,
		BlockSize:     16,
	}
}

// Result is the outcome of one cache access attempt.
type Result struct {
	// Done indicates the access completed this cycle. When false, the
	// requester must stall and retry the same access after Tick.
	Done bool
	// Hit indicates the access was served without a bus transaction.
	Hit bool
	// Data is the value read (for read accesses).
	Data uint32
	// Fault indicates the bus returned an error response for this
	// access. The line is not installed.
	Fault bool
}

// Statistics holds cache performance counters.
type Statistics struct {
	Reads      uint64
	Writes     uint64
	Hits       uint64
	Misses     uint64
	Evictions  uint64
	Writebacks uint64
}

// HitRate returns hits over total accesses.
func (s Statistics) HitRate() float64 {
	total := s.Hits + s.Misses
	if total == 0 {
		return 0
	}
	return float64(s.Hits) / float64(total)
}

type missState int

const (
	missIdle missState = iota
	missWriteback
	missFill
)

// Cache is a write-back, write-allocate L1 cache controller.
type Cache struct {
	config    Config
	directory *akitacache.DirectoryImpl

	// Data storage - indexed by (setID * associativity + wayID)
	dataStore [][]byte

	adapter *bus.Adapter
	stats   Statistics

	state         missState
	pendingValid  bool
	pendingAddr   uint32
	pendingFault  bool
	pendingVictim *akitacache.Block
}

// New creates a cache with the given configuration, attached to the
// given bus slave.
func New(config Config, slave bus.Slave) *Cache {
	numSets := config.Size / (config.Associativity * config.BlockSize)
	totalBlocks := numSets * config.Associativity

	dataStore := make([][]byte, totalBlocks)
	for i := range dataStore {
		dataStore[i] = make([]byte, config.BlockSize)
	}

	return &Cache{
		config: config,
		directory: akitacache.NewDirectory(
			numSets,
			config.Associativity,
			config.BlockSize,
			akitacache.NewLRUVictimFinder(),
		),
		dataStore: dataStore,
		adapter:   bus.NewAdapter(slave),
	}
}

// Config returns the cache configuration.
func (c *Cache) Config() Config {
	return c.config
}

// Statistics returns a copy of the cache performance counters.
func (c *Cache) Statistics() Statistics {
	return c.stats
}

// BusStatistics returns the traffic counters of the cache's bus master.
func (c *Cache) BusStatistics() bus.Statistics {
	return c.adapter.Statistics()
}

// Busy reports whether a miss is being serviced.
func (c *Cache) Busy() bool {
	return c.state != missIdle
}

func (c *Cache) blockIndex(block *akitacache.Block) int {
	return block.SetID*c.config.Associativity + block.WayID
}

func (c *Cache) blockAlign(addr uint32) uint32 {
	return addr &^ uint32(c.config.BlockSize-1)
}

// Access attempts a read or write of size bytes at addr. The access
// must not cross a cache line boundary. A hit completes in the calling
// cycle. A miss returns Done=false and starts the bus transaction; the
// caller stalls, calls Tick once per cycle, and repeats the same Access
// until it completes.
func (c *Cache) Access(addr uint32, size int, isWrite bool, writeData uint32) Result {
	blockAddr := c.blockAlign(addr)

	if c.pendingValid && c.pendingAddr == blockAddr {
		return c.finishPending(addr, size, isWrite, writeData)
	}

	if c.state != missIdle {
		// A different line's miss is still in flight.
		return Result{}
	}

	// A fresh access supersedes a pending result that was abandoned,
	// e.g. when a flush redirected fetch away from a missing line.
	c.pendingValid = false
	c.pendingFault = false

	if isWrite {
		c.stats.Writes++
	} else {
		c.stats.Reads++
	}

	block := c.directory.Lookup(0, uint64(blockAddr))
	if block != nil && block.IsValid {
		c.stats.Hits++
		c.directory.Visit(block)
		return Result{
			Done: true,
			Hit:  true,
			Data: c.apply(block, addr, size, isWrite, writeData),
		}
	}

	c.stats.Misses++
	c.startMiss(blockAddr)
	return Result{}
}

// finishPending resolves a replayed access whose miss was started
// earlier. Statistics were counted on the first attempt.
func (c *Cache) finishPending(addr uint32, size int, isWrite bool, writeData uint32) Result {
	if c.state != missIdle {
		return Result{}
	}

	c.pendingValid = false

	if c.pendingFault {
		c.pendingFault = false
		return Result{Done: true, Fault: true}
	}

	block := c.directory.Lookup(0, uint64(c.blockAlign(addr)))
	c.directory.Visit(block)
	return Result{
		Done: true,
		Data: c.apply(block, addr, size, isWrite, writeData),
	}
}

// apply performs the data array read or write for a resident block.
func (c *Cache) apply(block *akitacache.Block, addr uint32, size int, isWrite bool, writeData uint32) uint32 {
	offset := int(addr) - int(c.blockAlign(addr))
	blockData := c.dataStore[c.blockIndex(block)]

	if isWrite {
		storeData(blockData, offset, size, writeData)
		block.IsDirty = true
		return 0
	}

	return extractData(blockData, offset, size)
}

func (c *Cache) startMiss(blockAddr uint32) {
	victim := c.directory.FindVictim(uint64(blockAddr))

	c.pendingValid = true
	c.pendingAddr = blockAddr
	c.pendingFault = false
	c.pendingVictim = victim

	if victim.IsValid {
		c.stats.Evictions++
		if victim.IsDirty {
			c.stats.Writebacks++
			victimData := c.dataStore[c.blockIndex(victim)]
			c.adapter.StartLineWrite(uint32(victim.Tag), victimData)
			c.state = missWriteback
			return
		}
	}

	c.startFill()
}

func (c *Cache) startFill() {
	c.adapter.StartLineRead(c.pendingAddr, c.config.BlockSize)
	c.state = missFill
}

// Tick advances the miss state machine by one cycle.
func (c *Cache) Tick() {
	if c.state == missIdle {
		return
	}

	c.adapter.Tick()

	switch c.state {
	case missWriteback:
		if c.adapter.WriteComplete() {
			if c.adapter.FinishWrite() {
				c.abortMiss()
				return
			}
			c.startFill()
		}

	case missFill:
		if c.adapter.ReadComplete() {
			data, errResp := c.adapter.FinishRead()
			if errResp {
				c.abortMiss()
				return
			}
			c.install(data)
		}
	}
}

// abortMiss records a bus fault for the pending access. The victim is
// invalidated: its old data may already be gone and no fill arrived.
func (c *Cache) abortMiss() {
	c.pendingFault = true
	c.pendingVictim.IsValid = false
	c.pendingVictim.IsDirty = false
	c.state = missIdle
}

func (c *Cache) install(data []byte) {
	victim := c.pendingVictim
	copy(c.dataStore[c.blockIndex(victim)], data)
	victim.Tag = uint64(c.pendingAddr)
	victim.IsValid = true
	victim.IsDirty = false
	c.directory.Visit(victim)
	c.state = missIdle
}

// Invalidate marks the line containing addr as invalid without
// writeback.
func (c *Cache) Invalidate(addr uint32) {
	block := c.directory.Lookup(0, uint64(c.blockAlign(addr)))
	if block != nil && block.IsValid {
		block.IsValid = false
		block.IsDirty = false
	}
}

// Reset invalidates all lines and clears statistics. Dirty data is
// discarded.
func (c *Cache) Reset() {
	c.directory.Reset()
	c.stats = Statistics{}
	c.state = missIdle
	c.pendingValid = false
	c.pendingFault = false
	c.pendingVictim = nil
}

func extractData(data []byte, offset, size int) uint32 {
	var result uint32
	for i := 0; i < size; i++ {
		result |= uint32(data[offset+i]) << (i * 8)
	}
	return result
}

func storeData(data []byte, offset, size int, value uint32) {
	for i := 0; i < size; i++ {
		data[offset+i] = byte(value >> (i * 8))
	}
}
