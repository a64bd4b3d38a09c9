package floppy_test

import (
	"bytes"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/zerkman/zest"
	"github.com/zerkman/zest/floppy"
	ztesting "github.com/zerkman/zest/testing"
)

// Each disk k is filled with 0x10*k; a write whose window was read from disk k
// carries 0xA0+k.
const writeMarker = 0xA0

func diskOf(b byte) int {
	if b >= writeMarker {
		return int(b - writeMarker)
	}
	return int(b >> 4)
}

func TestChangeFloppyWhileServing(t *testing.T) {
	const numDisks = 3
	const numSwaps = 30

	paths := make([]string, numDisks+1)
	for k := 1; k <= numDisks; k++ {
		raw := bytes.Repeat([]byte{byte(0x10 * k)}, 160*zest.TrackSize)
		paths[k] = ztesting.WriteImageFile(t, fmt.Sprintf("disk%d.mfm", k), raw)
	}

	regs := &ztesting.FakeRegisters{}
	controller := floppy.New(regs, testOptions)
	require.NoError(t, controller.ChangeFloppy(paths[1], zest.DriveA))

	var served atomic.Int64
	done := make(chan struct{})
	var swapErrs []error
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		defer close(done)
		for i := 0; i < numSwaps; i++ {
			// Let some requests through with the disk in place.
			for start := served.Load(); served.Load() < start+50; {
				time.Sleep(10 * time.Microsecond)
			}
			if err := controller.ChangeFloppy(paths[(i+1)%numDisks+1], zest.DriveA); err != nil {
				swapErrs = append(swapErrs, err)
			}
		}
	}()

	// sources[i] is the disk request i was read from, 0 when the drive was
	// empty.
	var sources []int
	for i := 0; ; i++ {
		select {
		case <-done:
		default:
			source := 0
			if i >= floppy.WriteDelay {
				source = sources[i-floppy.WriteDelay]
			}
			regs.Incoming = [][]byte{bytes.Repeat([]byte{byte(writeMarker + source)}, zest.FIFOSize)}

			before := len(regs.Served())
			controller.Serve(ztesting.RequestWord(true, true, zest.DriveA, 3, 0, i%(zest.MaxAddr+1)))
			read := 0
			if after := regs.Served(); len(after) > before {
				read = diskOf(after[len(after)-1][0])
			}
			sources = append(sources, read)
			served.Add(1)
			continue
		}
		break
	}
	wg.Wait()

	// Every eject closed its image exactly once: a second close of the same
	// image would have failed with ErrClosed.
	assert.Empty(t, swapErrs)
	drive, err := controller.Drive(zest.DriveA)
	require.NoError(t, err)
	require.NoError(t, drive.Eject())

	landed := 0
	for k := 1; k <= numDisks; k++ {
		for offset, b := range ztesting.ReadImageFile(t, paths[k]) {
			if b == byte(0x10*k) {
				continue
			}
			require.Equal(t, byte(writeMarker+k), b, "disk %d offset %d", k, offset)
			landed++
		}
	}
	assert.Positive(t, landed)
}
