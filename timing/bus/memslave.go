package bus

import "github.com/sarchlab/rv32sim/emu"

type pendingRead struct {
	addr      uint32
	remaining int
}

type pendingWrite struct {
	addr      uint32
	data      uint32
	strb      uint8
	remaining int
}

// MemorySlave serves bus transactions from a flat backing memory. Each
// accepted request waits a fixed access latency before its response
// becomes valid. Read responses are returned in request order, and
// every accepted write produces exactly one response. Accesses outside
// the memory range complete with RespSlaveErr.
type MemorySlave struct {
	memory  *emu.Memory
	latency int
	depth   int

	readQueue []pendingRead

	writeAddrs []uint32
	writeDatas []WriteData
	writeQueue []pendingWrite
	respQueue  []Resp
}

// MemorySlaveOption configures a MemorySlave.
type MemorySlaveOption func(*MemorySlave)

// WithAccessLatency sets the per-beat access latency in cycles. The
// default is 2.
func WithAccessLatency(cycles int) MemorySlaveOption {
	return func(s *MemorySlave) {
		s.latency = cycles
	}
}

// WithQueueDepth sets how many requests each channel can hold before
// its ready deasserts. The default is 4.
func WithQueueDepth(depth int) MemorySlaveOption {
	return func(s *MemorySlave) {
		s.depth = depth
	}
}

// NewMemorySlave creates a bus slave backed by the given memory.
func NewMemorySlave(memory *emu.Memory, opts ...MemorySlaveOption) *MemorySlave {
	s := &MemorySlave{
		memory:  memory,
		latency: 2,
		depth:   4,
	}

	for _, opt := range opts {
		opt(s)
	}

	return s
}

// ReadAddrReady reports whether the read address channel can accept a
// request this cycle.
func (s *MemorySlave) ReadAddrReady() bool {
	return len(s.readQueue) < s.depth
}

// AcceptReadAddr enqueues a read request.
func (s *MemorySlave) AcceptReadAddr(ar ReadAddr) {
	s.readQueue = append(s.readQueue, pendingRead{
		addr:      ar.Addr,
		remaining: s.latency,
	})
}

// WriteAddrReady reports whether the write address channel can accept a
// request this cycle.
func (s *MemorySlave) WriteAddrReady() bool {
	return len(s.writeAddrs) < s.depth
}

// AcceptWriteAddr enqueues a write address.
func (s *MemorySlave) AcceptWriteAddr(aw WriteAddr) {
	s.writeAddrs = append(s.writeAddrs, aw.Addr)
	s.pairWrites()
}

// WriteDataReady reports whether the write data channel can accept an
// item this cycle.
func (s *MemorySlave) WriteDataReady() bool {
	return len(s.writeDatas) < s.depth
}

// AcceptWriteData enqueues write data.
func (s *MemorySlave) AcceptWriteData(w WriteData) {
	s.writeDatas = append(s.writeDatas, w)
	s.pairWrites()
}

// Addresses and data can arrive in either order; a write starts its
// access once the head of both queues is present.
func (s *MemorySlave) pairWrites() {
	for len(s.writeAddrs) > 0 && len(s.writeDatas) > 0 {
		s.writeQueue = append(s.writeQueue, pendingWrite{
			addr:      s.writeAddrs[0],
			data:      s.writeDatas[0].Data,
			strb:      s.writeDatas[0].Strb,
			remaining: s.latency,
		})
		s.writeAddrs = s.writeAddrs[1:]
		s.writeDatas = s.writeDatas[1:]
	}
}

// ReadDataValid reports whether a read response is available.
func (s *MemorySlave) ReadDataValid() bool {
	return len(s.readQueue) > 0 && s.readQueue[0].remaining <= 0
}

// TakeReadData consumes the oldest ready read response.
func (s *MemorySlave) TakeReadData() ReadData {
	r := s.readQueue[0]
	s.readQueue = s.readQueue[1:]

	if !s.memory.InRange(r.addr, 4) {
		return ReadData{Resp: RespSlaveErr}
	}

	return ReadData{Data: s.memory.Read32(r.addr), Resp: RespOK}
}

// WriteRespValid reports whether a write response is available.
func (s *MemorySlave) WriteRespValid() bool {
	return len(s.respQueue) > 0
}

// TakeWriteResp consumes the oldest write response.
func (s *MemorySlave) TakeWriteResp() WriteResp {
	resp := s.respQueue[0]
	s.respQueue = s.respQueue[1:]
	return WriteResp{Resp: resp}
}

// Tick advances the access latency counters and retires writes whose
// latency has elapsed.
func (s *MemorySlave) Tick() {
	for i := range s.readQueue {
		if s.readQueue[i].remaining > 0 {
			s.readQueue[i].remaining--
		}
	}

	for i := range s.writeQueue {
		if s.writeQueue[i].remaining > 0 {
			s.writeQueue[i].remaining--
		}
	}

	for len(s.writeQueue) > 0 && s.writeQueue[0].remaining <= 0 {
		w := s.writeQueue[0]
		s.writeQueue = s.writeQueue[1:]
		s.respQueue = append(s.respQueue, s.applyWrite(w))
	}
}

func (s *MemorySlave) applyWrite(w pendingWrite) Resp {
	if !s.memory.InRange(w.addr, 4) {
		return RespSlaveErr
	}

	for lane := 0; lane < 4; lane++ {
		if w.strb&(1<<lane) != 0 {
			s.memory.Write8(w.addr+uint32(lane), byte(w.data>>(8*lane)))
		}
	}

	return RespOK
}
