//go:build !unix

package uio

import (
	"fmt"
	"runtime"
	"time"

	"github.com/zerkman/zest"
)

// DefaultPath is the UIO device of the zeST register window.
const DefaultPath = "/dev/uio0"

// Device is a UIO device. UIO only exists on Linux, so on this system no
// device can be opened.
type Device struct{}

var _ zest.Registers = (*Device)(nil)

// Open always fails on systems without UIO.
func Open(path string) (*Device, error) {
	return nil, zest.ErrDeviceFailed.WithMessage(
		fmt.Sprintf("cannot open %s: no UIO devices on %s", path, runtime.GOOS))
}

func (d *Device) Arm() error {
	return zest.ErrDeviceFailed
}

func (d *Device) Wait(timeout time.Duration) (uint32, bool, error) {
	return 0, false, zest.ErrDeviceFailed
}

func (d *Device) Request() uint32 {
	return 0
}

func (d *Device) WriteFIFO(src []byte) {}

func (d *Device) ReadFIFO(dst []byte) {}

func (d *Device) Close() error {
	return nil
}
