package testing

import (
	"context"
	"sync"
	"time"

	"github.com/zerkman/zest"
)

// FakeRegisters is a scripted [zest.Registers]. Every call to Wait posts the
// next request word of the script as if the hardware raised an interrupt. Once
// the script is exhausted, Wait returns WaitErr if it is set, or else cancels
// the controller through Cancel and reports a timeout.
type FakeRegisters struct {
	// Script lists the request words to post, in order.
	Script []uint32
	// Incoming is the data the hardware "writes": each ReadFIFO call consumes
	// one entry. When it runs out, ReadFIFO fills its buffer with zeros.
	Incoming [][]byte
	// SkipSequence lists the script indices before which the interrupt counter
	// skips one value.
	SkipSequence map[int]bool
	// WaitErr is returned by Wait after the script is exhausted.
	WaitErr error
	// Cancel is called once the script is exhausted.
	Cancel context.CancelFunc

	mu      sync.Mutex
	next    int
	seq     uint32
	request uint32
	armed   int
	served  [][]byte
}

var _ zest.Registers = (*FakeRegisters)(nil)

func (r *FakeRegisters) Arm() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.armed++
	return nil
}

func (r *FakeRegisters) Wait(timeout time.Duration) (uint32, bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.next >= len(r.Script) {
		if r.WaitErr != nil {
			return 0, false, r.WaitErr
		}
		if r.Cancel != nil {
			r.Cancel()
		}
		return 0, false, nil
	}

	if r.SkipSequence[r.next] {
		r.seq++
	}
	r.seq++
	r.request = r.Script[r.next]
	r.next++
	return r.seq, true, nil
}

func (r *FakeRegisters) Request() uint32 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.request
}

func (r *FakeRegisters) WriteFIFO(src []byte) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.served = append(r.served, append([]byte(nil), src...))
}

func (r *FakeRegisters) ReadFIFO(dst []byte) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.Incoming) == 0 {
		for i := range dst {
			dst[i] = 0
		}
		return
	}
	copy(dst, r.Incoming[0])
	r.Incoming = r.Incoming[1:]
}

// Served returns a copy of every buffer the controller wrote to the FIFO, in
// order.
func (r *FakeRegisters) Served() [][]byte {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([][]byte(nil), r.served...)
}

// Armed returns the number of times the interrupt was re-armed.
func (r *FakeRegisters) Armed() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.armed
}

// RequestWord builds a request register value.
func RequestWord(read, write bool, drive, track, side, addr int) uint32 {
	var word uint32
	if read {
		word |= zest.RequestRead
	}
	if write {
		word |= zest.RequestWrite
	}
	word |= uint32(addr&zest.RequestAddrMask) << zest.RequestAddrShift
	word |= uint32((track<<1|side)&zest.RequestTrackMask) << zest.RequestTrackShift
	word |= uint32(drive&zest.RequestDriveMask) << zest.RequestDriveShift
	return word
}
