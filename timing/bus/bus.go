// Package bus models the handshake-based memory bus connecting the cache
// controllers to backing memory.
//
// The protocol is an AXI-Lite-style split-channel design: reads use an
// address channel (AR) and a data/response channel (R); writes use an
// address channel (AW), a data channel (W), and a response channel (B).
// Each channel transfers exactly one item in a cycle where the
// initiator's valid and the receiver's ready are both high, and an
// asserted valid is never withdrawn before the transfer happens.
package bus

// Resp is a transaction response code.
type Resp uint8

// Response codes.
const (
	// RespOK indicates the transaction completed successfully.
	RespOK Resp = iota
	// RespSlaveErr indicates a slave-side error (e.g. address out of
	// range). The controller surfaces this as a memory fault; it is
	// never silently retried.
	RespSlaveErr
)

// ReadAddr is one read address channel item.
type ReadAddr struct {
	Addr uint32
}

// ReadData is one read data channel item.
type ReadData struct {
	Data uint32
	Resp Resp
}

// WriteAddr is one write address channel item.
type WriteAddr struct {
	Addr uint32
}

// WriteData is one write data channel item. Strb is the byte-enable
// mask: bit i enables byte lane i.
type WriteData struct {
	Data uint32
	Strb uint8
}

// WriteResp is one write response channel item.
type WriteResp struct {
	Resp Resp
}

// Slave is the receiver side of the five bus channels. Ready methods are
// sampled by the master each cycle; Accept methods perform the transfer
// for the cycle in which valid and ready coincided. Response channel
// items are produced by the slave and consumed with the Take methods
// (the master in this design is always ready for responses).
type Slave interface {
	ReadAddrReady() bool
	AcceptReadAddr(ReadAddr)

	WriteAddrReady() bool
	AcceptWriteAddr(WriteAddr)

	WriteDataReady() bool
	AcceptWriteData(WriteData)

	ReadDataValid() bool
	TakeReadData() ReadData

	WriteRespValid() bool
	TakeWriteResp() WriteResp

	// Tick advances slave-internal state by one cycle. The adapter
	// calls it exactly once per cycle, before sampling the channels.
	Tick()
}
