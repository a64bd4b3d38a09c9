package floppy

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/hashicorp/go-multierror"
	"github.com/zerkman/zest"
	"github.com/zerkman/zest/flopimg"
	"github.com/zerkman/zest/logger"
)

// DefaultPollInterval bounds how long Run waits for an interrupt before it
// checks for cancellation again.
const DefaultPollInterval = 5 * time.Millisecond

// noAddr marks the rotational address as unknown.
const noAddr = -1

// Controller answers the requests of the hardware floppy controller.
//
// Run must only be called from one goroutine. The other methods may be called
// from any goroutine while Run is active.
type Controller struct {
	regs         zest.Registers
	drives       [zest.NumDrives]*Drive
	pollInterval time.Duration

	// status is the last request word served.
	status atomic.Uint32

	// Owned by the goroutine running Run.
	pipeline Pipeline
	lastSeq  uint32
	lastAddr int
	outgoing [zest.FIFOSize]byte
	incoming [zest.FIFOSize]byte
}

// New creates a controller with two empty drives. `options` is used to open
// every image inserted in the drives.
func New(regs zest.Registers, options flopimg.Options) *Controller {
	c := &Controller{
		regs:         regs,
		pollInterval: DefaultPollInterval,
		lastAddr:     noAddr,
	}
	for i := range c.drives {
		c.drives[i] = NewDrive(i, options)
	}
	return c
}

// SetPollInterval changes the interrupt wait timeout. It must be called before
// Run.
func (c *Controller) SetPollInterval(interval time.Duration) {
	if interval > 0 {
		c.pollInterval = interval
	}
}

// Drive returns drive 0 (A) or 1 (B).
func (c *Controller) Drive(drive int) (*Drive, error) {
	if drive < 0 || drive >= zest.NumDrives {
		return nil, zest.ErrInvalidDrive.WithMessage(fmt.Sprintf("no drive %d", drive))
	}
	return c.drives[drive], nil
}

// ChangeFloppy inserts the image at `path` in a drive, keeping the drive's
// write-protect setting. An empty path ejects the disk.
func (c *Controller) ChangeFloppy(path string, drive int) error {
	d, err := c.Drive(drive)
	if err != nil {
		return err
	}
	return d.Change(path, d.WriteProtected())
}

// SetWriteProtect changes the write-protect setting of a drive.
func (c *Controller) SetWriteProtect(drive int, protect bool) error {
	d, err := c.Drive(drive)
	if err != nil {
		return err
	}
	d.SetWriteProtect(protect)
	return nil
}

// FloppyStatus returns the drive activity of the last request.
func (c *Controller) FloppyStatus() zest.Status {
	return DecodeRequest(c.status.Load()).Status()
}

// Run serves hardware requests until `ctx` is cancelled or the register
// device fails, then ejects both disks so that modified images are written
// back. Errors from the device and from the write-back are returned together.
func (c *Controller) Run(ctx context.Context) error {
	var result *multierror.Error
	for ctx.Err() == nil {
		if err := c.regs.Arm(); err != nil {
			result = multierror.Append(result, zest.ErrDeviceFailed.Wrap(err))
			break
		}
		seq, fired, err := c.regs.Wait(c.pollInterval)
		if err != nil {
			result = multierror.Append(result, zest.ErrDeviceFailed.Wrap(err))
			break
		}
		if !fired {
			continue
		}
		c.checkSequence(seq)
		c.Serve(c.regs.Request())
	}

	for _, d := range c.drives {
		if err := d.Eject(); err != nil {
			result = multierror.Append(result, err)
		}
	}
	return result.ErrorOrNil()
}

// Serve answers one request word. Reads copy the window under the head to the
// FIFO. Writes arrive with the read of a later window: the data in the FIFO
// belongs to the window read WriteDelay requests earlier, and is dropped if
// the disk was changed in between.
func (c *Controller) Serve(word uint32) {
	c.status.Store(word)
	req := DecodeRequest(word)
	c.checkAddress(req.Addr)
	if !req.Read {
		return
	}

	offset, count := ReadOffset(req.Addr)
	disk, ok := c.drives[req.Drive].read(req.Track, req.Side, offset, c.outgoing[:count])
	if ok {
		c.regs.WriteFIFO(c.outgoing[:count])
	}
	c.pipeline.Push(Position{
		Offset: offset,
		Count:  count,
		Drive:  req.Drive,
		Track:  req.Track,
		Side:   req.Side,
		Disk:   disk,
	})

	if !req.Write {
		return
	}
	target, ok := c.pipeline.Delayed(WriteDelay)
	if !ok {
		return
	}
	buf := c.incoming[:target.Count]
	c.regs.ReadFIFO(buf)
	c.drives[target.Drive].writeDisk(target.Disk, target.Track, target.Side, target.Offset, buf)
}

func (c *Controller) checkSequence(seq uint32) {
	if c.lastSeq != 0 && seq != c.lastSeq+1 {
		logger.Logf("floppy", "interrupt %d follows %d", seq, c.lastSeq)
	}
	c.lastSeq = seq
}

func (c *Controller) checkAddress(addr int) {
	if c.lastAddr != noAddr {
		expected := c.lastAddr + 1
		if c.lastAddr >= zest.MaxAddr {
			expected = 0
		}
		if addr != expected {
			logger.Logf("floppy", "missed addr=%d", expected)
		}
	}
	c.lastAddr = addr
}
