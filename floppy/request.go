// Package floppy serves the track requests of the FPGA floppy controller from
// the disk images inserted in two emulated drives.
package floppy

import "github.com/zerkman/zest"

// Request is a decoded request register word.
type Request struct {
	Read  bool
	Write bool
	// Addr is the rotational position of the head, in 16-byte windows. It
	// counts from 0 to zest.MaxAddr once per revolution.
	Addr  int
	Track int
	Side  int
	Drive int
}

// DecodeRequest unpacks a request register word.
func DecodeRequest(word uint32) Request {
	trackField := int(word>>zest.RequestTrackShift) & zest.RequestTrackMask
	return Request{
		Read:  word&zest.RequestRead != 0,
		Write: word&zest.RequestWrite != 0,
		Addr:  int(word>>zest.RequestAddrShift) & zest.RequestAddrMask,
		Track: trackField >> 1,
		Side:  trackField & 1,
		Drive: int(word>>zest.RequestDriveShift) & zest.RequestDriveMask,
	}
}

// Status converts the request to the status shown to the user.
func (r Request) Status() zest.Status {
	return zest.Status{
		Reading: r.Read,
		Writing: r.Write,
		Drive:   r.Drive,
		Track:   r.Track,
		Side:    r.Side,
	}
}

// ReadOffset gives the position in the track of the data served for a
// rotational address, and how many bytes are served. The hardware reads one
// window ahead of the head; the window after the last one wraps to the start of
// the track, and the last full window is followed by a 10-byte tail.
func ReadOffset(addr int) (offset, count int) {
	offset = addr*zest.FIFOSize + zest.FIFOSize
	if offset >= zest.TrackSize {
		offset = 0
	}
	count = zest.FIFOSize
	if offset >= zest.TrackSize-zest.TrackTailSize {
		count = zest.TrackTailSize
	}
	return offset, count
}
