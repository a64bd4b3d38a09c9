//go:build linux

package uio_test

import (
	"encoding/binary"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/zerkman/zest"
	"github.com/zerkman/zest/uio"
)

// A regular file stands in for the device: it can be mapped, is always
// readable, and reads and writes go through the file offset.
func fakeDevice(t *testing.T, content []byte) string {
	window := make([]byte, zest.RegisterWindowSize)
	copy(window, content)
	path := filepath.Join(t.TempDir(), "uio0")
	require.NoError(t, os.WriteFile(path, window, 0o600))
	return path
}

func TestRegisters(t *testing.T) {
	content := make([]byte, 8)
	binary.LittleEndian.PutUint32(content, 0x80a0_1800)
	dev, err := uio.Open(fakeDevice(t, content))
	require.NoError(t, err)
	defer dev.Close()

	assert.EqualValues(t, 0x80a0_1800, dev.Request())

	data := []byte("0123456789abcdef")
	dev.WriteFIFO(data)
	read := make([]byte, zest.FIFOSize)
	dev.ReadFIFO(read)
	assert.Equal(t, data, read)

	dev.WriteFIFO(data[:zest.TrackTailSize])
	read = make([]byte, zest.TrackTailSize)
	dev.ReadFIFO(read)
	assert.Equal(t, data[:zest.TrackTailSize], read)

	// The request register is untouched by the FIFO.
	assert.EqualValues(t, 0x80a0_1800, dev.Request())
}

func TestArmAndWait(t *testing.T) {
	content := make([]byte, 8)
	binary.LittleEndian.PutUint32(content[4:], 42)
	path := fakeDevice(t, content)
	dev, err := uio.Open(path)
	require.NoError(t, err)

	// Arm writes the first word, Wait reads the next one.
	require.NoError(t, dev.Arm())
	seq, fired, err := dev.Wait(5 * time.Millisecond)
	require.NoError(t, err)
	assert.True(t, fired)
	assert.EqualValues(t, 42, seq)
	assert.EqualValues(t, 1, dev.Request())

	require.NoError(t, dev.Close())
}

func TestOpenMissingDevice(t *testing.T) {
	_, err := uio.Open(filepath.Join(t.TempDir(), "uio9"))
	assert.ErrorIs(t, err, os.ErrNotExist)
}
