//go:build unix

// Package uio drives the register window of the FPGA floppy controller through
// a Linux userspace I/O (UIO) device.
//
// The device file is mapped in memory to access the registers. Writing a 32-bit
// 1 to the file re-enables the interrupt, and once the interrupt fires, reading
// the file returns the 32-bit interrupt count.
package uio

import (
	"encoding/binary"
	"os"
	"sync/atomic"
	"time"
	"unsafe"

	"github.com/hashicorp/go-multierror"
	"github.com/pkg/errors"
	"github.com/zerkman/zest"
	"golang.org/x/sys/unix"
)

// DefaultPath is the UIO device of the zeST register window.
const DefaultPath = "/dev/uio0"

// Device is an open UIO device. The register window is little-endian.
type Device struct {
	path string
	file *os.File
	fd   int
	mem  []byte

	pollFds  [1]unix.PollFd
	armBuf   [4]byte
	countBuf [4]byte
	word     [4]byte
}

var _ zest.Registers = (*Device)(nil)

// Open opens and maps a UIO device.
func Open(path string) (*Device, error) {
	file, err := os.OpenFile(path, os.O_RDWR, 0)
	if err != nil {
		return nil, errors.Wrapf(err, "opening %s", path)
	}

	fd := int(file.Fd())
	mem, err := unix.Mmap(
		fd, 0, zest.RegisterWindowSize, unix.PROT_READ|unix.PROT_WRITE, unix.MAP_SHARED)
	if err != nil {
		file.Close()
		return nil, errors.Wrapf(err, "mapping %d bytes of %s", zest.RegisterWindowSize, path)
	}

	d := &Device{path: path, file: file, fd: fd, mem: mem}
	d.pollFds[0] = unix.PollFd{Fd: int32(fd), Events: unix.POLLIN}
	binary.LittleEndian.PutUint32(d.armBuf[:], 1)
	return d, nil
}

func (d *Device) register(offset int) *uint32 {
	return (*uint32)(unsafe.Pointer(&d.mem[offset]))
}

// Arm unmasks the interrupt.
func (d *Device) Arm() error {
	n, err := unix.Write(d.fd, d.armBuf[:])
	if err != nil {
		return errors.Wrapf(err, "unmasking interrupt of %s", d.path)
	}
	if n != len(d.armBuf) {
		return errors.Errorf("unmasking interrupt of %s: short write", d.path)
	}
	return nil
}

// Wait polls the device for an interrupt. An interrupted system call is
// reported as a timeout.
func (d *Device) Wait(timeout time.Duration) (uint32, bool, error) {
	n, err := unix.Poll(d.pollFds[:], int(timeout/time.Millisecond))
	if err == unix.EINTR || (err == nil && n == 0) {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, errors.Wrapf(err, "polling %s", d.path)
	}

	n, err = unix.Read(d.fd, d.countBuf[:])
	if err != nil {
		return 0, false, errors.Wrapf(err, "reading interrupt count of %s", d.path)
	}
	if n != len(d.countBuf) {
		return 0, false, errors.Errorf("reading interrupt count of %s: got %d bytes", d.path, n)
	}
	return binary.LittleEndian.Uint32(d.countBuf[:]), true, nil
}

// Request loads the request register.
func (d *Device) Request() uint32 {
	return atomic.LoadUint32(d.register(zest.RequestRegisterOffset))
}

// WriteFIFO stores `src` in the FIFO window one 32-bit word at a time. A
// trailing partial word is padded with zeros.
func (d *Device) WriteFIFO(src []byte) {
	for i := 0; i < len(src) && i < zest.FIFOSize; i += 4 {
		d.word = [4]byte{}
		copy(d.word[:], src[i:])
		atomic.StoreUint32(d.register(zest.FIFOOffset+i), binary.LittleEndian.Uint32(d.word[:]))
	}
}

// ReadFIFO loads `dst` from the FIFO window one 32-bit word at a time.
func (d *Device) ReadFIFO(dst []byte) {
	for i := 0; i < len(dst) && i < zest.FIFOSize; i += 4 {
		binary.LittleEndian.PutUint32(d.word[:], atomic.LoadUint32(d.register(zest.FIFOOffset+i)))
		copy(dst[i:], d.word[:])
	}
}

// Close unmaps and closes the device.
func (d *Device) Close() error {
	var result *multierror.Error
	if d.mem != nil {
		if err := unix.Munmap(d.mem); err != nil {
			result = multierror.Append(result, errors.Wrapf(err, "unmapping %s", d.path))
		}
		d.mem = nil
	}
	if err := d.file.Close(); err != nil {
		result = multierror.Append(result, errors.Wrapf(err, "closing %s", d.path))
	}
	return result.ErrorOrNil()
}
