package floppy_test

import (
	"bytes"
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/zerkman/zest"
	"github.com/zerkman/zest/disks"
	"github.com/zerkman/zest/floppy"
	"github.com/zerkman/zest/logger"
	ztesting "github.com/zerkman/zest/testing"
)

func runScript(t *testing.T, controller *floppy.Controller, regs *ztesting.FakeRegisters) error {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	regs.Cancel = cancel
	return controller.Run(ctx)
}

func revolution(drive, track, side int) []uint32 {
	script := make([]uint32, 0, zest.MaxAddr+1)
	for addr := 0; addr <= zest.MaxAddr; addr++ {
		script = append(script, ztesting.RequestWord(true, false, drive, track, side, addr))
	}
	return script
}

func TestControllerServesReads(t *testing.T) {
	path := writeSTImage(t, "disk.st", disks.Geometry{Tracks: 80, Sides: 2, Sectors: 10})
	expected := referenceTrack(t, path, 5, 1)

	regs := &ztesting.FakeRegisters{Script: revolution(zest.DriveA, 5, 1)}
	controller := floppy.New(regs, testOptions)
	require.NoError(t, controller.ChangeFloppy(path, zest.DriveA))
	require.NoError(t, runScript(t, controller, regs))

	served := regs.Served()
	require.Len(t, served, zest.MaxAddr+1)
	var track []byte
	// The last window wraps to the start of the track.
	track = append(track, served[zest.MaxAddr]...)
	for _, window := range served[:zest.MaxAddr] {
		track = append(track, window...)
	}
	assert.Equal(t, expected, track)
	assert.Equal(t, len(regs.Script)+1, regs.Armed())
}

func TestControllerWritesToDelayedPosition(t *testing.T) {
	raw := ztesting.RandomBytes(t, 160*zest.TrackSize)
	path := ztesting.WriteImageFile(t, "disk.mfm", raw)

	first := bytes.Repeat([]byte{0xAA}, zest.FIFOSize)
	second := bytes.Repeat([]byte{0xBB}, zest.FIFOSize)
	regs := &ztesting.FakeRegisters{
		Script: []uint32{
			ztesting.RequestWord(true, false, zest.DriveA, 3, 1, 10),
			ztesting.RequestWord(true, false, zest.DriveA, 3, 1, 11),
			ztesting.RequestWord(true, true, zest.DriveA, 3, 1, 12),
			ztesting.RequestWord(true, true, zest.DriveA, 3, 1, 13),
		},
		Incoming: [][]byte{first, second},
	}
	controller := floppy.New(regs, testOptions)
	require.NoError(t, controller.ChangeFloppy(path, zest.DriveA))
	require.NoError(t, runScript(t, controller, regs))

	// Shutdown ejects the disk, which writes it back.
	slot := (3*2 + 1) * zest.TrackSize
	expected := append([]byte(nil), raw...)
	copy(expected[slot+10*16+16:], first)
	copy(expected[slot+11*16+16:], second)
	assert.Equal(t, expected, ztesting.ReadImageFile(t, path))

	drive, err := controller.Drive(zest.DriveA)
	require.NoError(t, err)
	assert.False(t, drive.Inserted())
}

func TestControllerWriteProtect(t *testing.T) {
	raw := ztesting.RandomBytes(t, 160*zest.TrackSize)
	path := ztesting.WriteImageFile(t, "disk.mfm", raw)

	regs := &ztesting.FakeRegisters{
		Script: []uint32{
			ztesting.RequestWord(true, false, zest.DriveB, 0, 0, 0),
			ztesting.RequestWord(true, false, zest.DriveB, 0, 0, 1),
			ztesting.RequestWord(true, true, zest.DriveB, 0, 0, 2),
		},
		Incoming: [][]byte{bytes.Repeat([]byte{0xAA}, zest.FIFOSize)},
	}
	controller := floppy.New(regs, testOptions)
	require.NoError(t, controller.SetWriteProtect(zest.DriveB, true))
	require.NoError(t, controller.ChangeFloppy(path, zest.DriveB))
	require.NoError(t, runScript(t, controller, regs))

	assert.Equal(t, raw, ztesting.ReadImageFile(t, path))
}

func TestControllerEmptyDrive(t *testing.T) {
	regs := &ztesting.FakeRegisters{Script: revolution(zest.DriveB, 0, 0)}
	controller := floppy.New(regs, testOptions)
	require.NoError(t, runScript(t, controller, regs))

	assert.Empty(t, regs.Served())
	status := controller.FloppyStatus()
	assert.True(t, status.Reading)
	assert.Equal(t, zest.DriveB, status.Drive)
}

func TestControllerStatus(t *testing.T) {
	controller := floppy.New(&ztesting.FakeRegisters{}, testOptions)
	assert.Equal(t, zest.Status{}, controller.FloppyStatus())

	controller.Serve(ztesting.RequestWord(true, true, zest.DriveA, 42, 1, 7))
	assert.Equal(
		t,
		zest.Status{Reading: true, Writing: true, Drive: zest.DriveA, Track: 42, Side: 1},
		controller.FloppyStatus())
}

func TestControllerDeviceFailure(t *testing.T) {
	raw := ztesting.RandomBytes(t, 160*zest.TrackSize)
	path := ztesting.WriteImageFile(t, "disk.mfm", raw)

	deviceErr := errors.New("device went away")
	regs := &ztesting.FakeRegisters{
		Script: []uint32{
			ztesting.RequestWord(true, false, zest.DriveA, 0, 0, 0),
			ztesting.RequestWord(true, false, zest.DriveA, 0, 0, 1),
			ztesting.RequestWord(true, true, zest.DriveA, 0, 0, 2),
		},
		WaitErr: deviceErr,
	}
	controller := floppy.New(regs, testOptions)
	require.NoError(t, controller.ChangeFloppy(path, zest.DriveA))

	err := controller.Run(context.Background())
	assert.ErrorIs(t, err, zest.ErrDeviceFailed)
	assert.ErrorIs(t, err, deviceErr)

	// The disk was still written back.
	written := ztesting.ReadImageFile(t, path)
	assert.Equal(t, make([]byte, zest.FIFOSize), written[16:32])
}

func TestControllerLogsDiscontinuities(t *testing.T) {
	logger.Clear()
	regs := &ztesting.FakeRegisters{
		Script: []uint32{
			ztesting.RequestWord(true, false, zest.DriveA, 0, 0, 389),
			ztesting.RequestWord(true, false, zest.DriveA, 0, 0, 390),
			ztesting.RequestWord(true, false, zest.DriveA, 0, 0, 0),
			ztesting.RequestWord(true, false, zest.DriveA, 0, 0, 2),
		},
		SkipSequence: map[int]bool{2: true},
	}
	controller := floppy.New(regs, testOptions)
	require.NoError(t, runScript(t, controller, regs))

	log := &bytes.Buffer{}
	logger.Write(log)
	assert.Contains(t, log.String(), "missed addr=1")
	assert.Contains(t, log.String(), "interrupt 4 follows 2")
	assert.NotContains(t, log.String(), "missed addr=390")
	assert.NotContains(t, log.String(), "missed addr=0")
}

func TestInvalidDrive(t *testing.T) {
	controller := floppy.New(&ztesting.FakeRegisters{}, testOptions)
	assert.ErrorIs(t, controller.ChangeFloppy("", 2), zest.ErrInvalidDrive)
	assert.ErrorIs(t, controller.SetWriteProtect(-1, true), zest.ErrInvalidDrive)
	_, err := controller.Drive(5)
	assert.ErrorIs(t, err, zest.ErrInvalidDrive)
}

func TestControllerDropsWritesForChangedDisk(t *testing.T) {
	firstRaw := ztesting.RandomBytes(t, 160*zest.TrackSize)
	secondRaw := ztesting.RandomBytes(t, 160*zest.TrackSize)
	first := ztesting.WriteImageFile(t, "first.mfm", firstRaw)
	second := ztesting.WriteImageFile(t, "second.mfm", secondRaw)

	regs := &ztesting.FakeRegisters{
		Incoming: [][]byte{bytes.Repeat([]byte{0xCC}, zest.FIFOSize)},
	}
	controller := floppy.New(regs, testOptions)
	require.NoError(t, controller.ChangeFloppy(first, zest.DriveA))

	controller.Serve(ztesting.RequestWord(true, false, zest.DriveA, 3, 0, 10))
	controller.Serve(ztesting.RequestWord(true, false, zest.DriveA, 3, 0, 11))
	require.NoError(t, controller.ChangeFloppy(second, zest.DriveA))
	// This write belongs to the window read from the first disk.
	controller.Serve(ztesting.RequestWord(true, true, zest.DriveA, 3, 0, 12))

	drive, err := controller.Drive(zest.DriveA)
	require.NoError(t, err)
	require.NoError(t, drive.Eject())
	assert.Equal(t, firstRaw, ztesting.ReadImageFile(t, first))
	assert.Equal(t, secondRaw, ztesting.ReadImageFile(t, second))
}
