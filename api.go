package zest

import (
	"fmt"
	"time"
)

// Registers is the memory-mapped register window shared with the FPGA floppy
// controller.
//
// Implementations must not allocate in any of these methods: they are called
// from the real-time controller loop.
type Registers interface {
	// Arm re-enables (acknowledges) the floppy interrupt so that the next
	// hardware request can be signalled.
	Arm() error

	// Wait blocks until an interrupt fires or `timeout` elapses. `seq` is the
	// interrupt counter maintained by the kernel driver; it is only meaningful
	// when `fired` is true.
	Wait(timeout time.Duration) (seq uint32, fired bool, err error)

	// Request returns the current value of the request register.
	Request() uint32

	// WriteFIFO stores up to FIFOSize bytes to be read by the hardware.
	WriteFIFO(src []byte)

	// ReadFIFO loads up to FIFOSize bytes written by the hardware.
	ReadFIFO(dst []byte)
}

// Status is the drive activity as seen in the most recent hardware request.
// It is meant for display only.
type Status struct {
	Reading bool
	Writing bool
	Drive   int
	Track   int
	Side    int
}

// String formats the status for a status line, e.g. "R A T05 S1". It is empty
// when the drive is idle.
func (s Status) String() string {
	var mode string
	switch {
	case s.Writing:
		mode = "W"
	case s.Reading:
		mode = "R"
	default:
		return ""
	}
	return fmt.Sprintf("%s %c T%02d S%d", mode, rune('A'+s.Drive), s.Track, s.Side)
}

// FloppyChanger is implemented by anything able to swap the disk in a drive.
// An empty path ejects the disk.
type FloppyChanger interface {
	ChangeFloppy(path string, drive int) error
}

// StatusReporter gives the current floppy activity.
type StatusReporter interface {
	FloppyStatus() Status
}
