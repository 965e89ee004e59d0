package bus

// Statistics tracks bus traffic on the master side of an adapter.
type Statistics struct {
	ReadTransactions  uint64
	WriteTransactions uint64
	ReadBeats         uint64
	WriteBeats        uint64
	ErrorResponses    uint64
}

// Adapter is the master side of the bus. It turns line-sized read and
// write requests from a cache controller into per-word channel
// transfers, holding each valid until the slave is ready, and collects
// the responses. At most one read and one write transaction can be in
// flight at a time.
type Adapter struct {
	slave Slave

	readActive bool
	readAddr   uint32
	readTotal  int
	readIssued int
	readDone   int
	readBuf    []byte
	readErr    bool

	writeActive bool
	writeAddr   uint32
	writeData   []byte
	writeTotal  int
	awIssued    int
	wIssued     int
	bDone       int
	writeErr    bool

	stats Statistics
}

// NewAdapter creates a master adapter attached to the given slave.
func NewAdapter(slave Slave) *Adapter {
	return &Adapter{slave: slave}
}

// StartLineRead begins a read of size bytes at addr. Addr and size must
// be word-aligned. It panics if a read is already in flight.
func (a *Adapter) StartLineRead(addr uint32, size int) {
	if a.readActive {
		panic("bus: read transaction already in flight")
	}

	a.readActive = true
	a.readAddr = addr
	a.readTotal = size / 4
	a.readIssued = 0
	a.readDone = 0
	a.readBuf = make([]byte, size)
	a.readErr = false
	a.stats.ReadTransactions++
}

// StartLineWrite begins a write of the given data at addr. Addr and
// len(data) must be word-aligned. It panics if a write is already in
// flight.
func (a *Adapter) StartLineWrite(addr uint32, data []byte) {
	if a.writeActive {
		panic("bus: write transaction already in flight")
	}

	a.writeActive = true
	a.writeAddr = addr
	a.writeData = append([]byte(nil), data...)
	a.writeTotal = len(data) / 4
	a.awIssued = 0
	a.wIssued = 0
	a.bDone = 0
	a.writeErr = false
	a.stats.WriteTransactions++
}

// ReadAddrValid reports whether the adapter is presenting a read
// address this cycle.
func (a *Adapter) ReadAddrValid() bool {
	return a.readActive && a.readIssued < a.readTotal
}

// WriteAddrValid reports whether the adapter is presenting a write
// address this cycle.
func (a *Adapter) WriteAddrValid() bool {
	return a.writeActive && a.awIssued < a.writeTotal
}

// WriteDataValid reports whether the adapter is presenting write data
// this cycle.
func (a *Adapter) WriteDataValid() bool {
	return a.writeActive && a.wIssued < a.writeTotal
}

// ReadComplete reports whether the in-flight read has received all of
// its data beats.
func (a *Adapter) ReadComplete() bool {
	return a.readActive && a.readDone == a.readTotal
}

// WriteComplete reports whether the in-flight write has received all of
// its write responses.
func (a *Adapter) WriteComplete() bool {
	return a.writeActive && a.bDone == a.writeTotal
}

// FinishRead returns the data of a completed read and whether any beat
// carried an error response, and clears the transaction.
func (a *Adapter) FinishRead() (data []byte, err bool) {
	data, err = a.readBuf, a.readErr
	a.readActive = false
	a.readBuf = nil
	return data, err
}

// FinishWrite returns whether any response of a completed write carried
// an error, and clears the transaction.
func (a *Adapter) FinishWrite() (err bool) {
	err = a.writeErr
	a.writeActive = false
	a.writeData = nil
	return err
}

// Busy reports whether any transaction is in flight.
func (a *Adapter) Busy() bool {
	return a.readActive || a.writeActive
}

// Statistics returns a copy of the accumulated bus statistics.
func (a *Adapter) Statistics() Statistics {
	return a.stats
}

// Tick advances the bus by one cycle: the slave state first, then
// response draining, then at most one transfer on each request channel.
// An address or data item stays presented until the slave's ready is
// sampled high, so a valid is never withdrawn before its transfer.
func (a *Adapter) Tick() {
	a.slave.Tick()

	a.drainResponses()
	a.issueRead()
	a.issueWrite()
}

func (a *Adapter) drainResponses() {
	if a.readActive && a.readDone < a.readIssued && a.slave.ReadDataValid() {
		r := a.slave.TakeReadData()
		offset := a.readDone * 4
		a.readBuf[offset] = byte(r.Data)
		a.readBuf[offset+1] = byte(r.Data >> 8)
		a.readBuf[offset+2] = byte(r.Data >> 16)
		a.readBuf[offset+3] = byte(r.Data >> 24)
		if r.Resp != RespOK {
			a.readErr = true
			a.stats.ErrorResponses++
		}
		a.readDone++
		a.stats.ReadBeats++
	}

	if a.writeActive && a.bDone < a.writeTotal && a.slave.WriteRespValid() {
		b := a.slave.TakeWriteResp()
		if b.Resp != RespOK {
			a.writeErr = true
			a.stats.ErrorResponses++
		}
		a.bDone++
	}
}

func (a *Adapter) issueRead() {
	if !a.ReadAddrValid() {
		return
	}

	if a.slave.ReadAddrReady() {
		addr := a.readAddr + uint32(a.readIssued*4)
		a.slave.AcceptReadAddr(ReadAddr{Addr: addr})
		a.readIssued++
	}
}

func (a *Adapter) issueWrite() {
	if a.WriteAddrValid() && a.slave.WriteAddrReady() {
		addr := a.writeAddr + uint32(a.awIssued*4)
		a.slave.AcceptWriteAddr(WriteAddr{Addr: addr})
		a.awIssued++
	}

	if a.WriteDataValid() && a.slave.WriteDataReady() {
		offset := a.wIssued * 4
		data := uint32(a.writeData[offset]) |
			uint32(a.writeData[offset+1])<<8 |
			uint32(a.writeData[offset+2])<<16 |
			uint32(a.writeData[offset+3])<<24
		a.slave.AcceptWriteData(WriteData{Data: data, Strb: 0x0F})
		a.wIssued++
		a.stats.WriteBeats++
	}
}
