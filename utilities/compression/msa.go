package compression

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"io"

	"github.com/noxer/bytewriter"
	"github.com/zerkman/zest"
)

// RunMarker introduces a run in a packed MSA track.
const RunMarker = 0xE5

// minRunLength is the shortest run worth packing. Runs of RunMarker are always
// packed regardless of their length.
const minRunLength = 4

// maxRunLength is the longest run that fits in the 16-bit length field.
const maxRunLength = 0xFFFF

// PackTrack compresses `src` and writes the packed bytes to `output`. The
// return value is the number of bytes written, only valid if no error
// occurred.
func PackTrack(src []byte, output io.Writer) (int64, error) {
	scanner := NewRunScanner(src, maxRunLength)

	totalBytesWritten := int64(0)
	for {
		run, ok := scanner.Next()
		if !ok {
			return totalBytesWritten, nil
		}

		var chunk []byte
		if run.Byte == RunMarker || run.RunLength >= minRunLength {
			chunk = []byte{RunMarker, run.Byte, byte(run.RunLength >> 8), byte(run.RunLength)}
		} else {
			chunk = bytes.Repeat([]byte{run.Byte}, run.RunLength)
		}

		n, err := output.Write(chunk)
		totalBytesWritten += int64(n)
		if err == nil && n < len(chunk) {
			err = io.ErrShortWrite
		}
		if err != nil {
			return totalBytesWritten, err
		}
	}
}

// PackTrackBytes compresses `src` into a new slice. Packing fails with
// [zest.ErrPackFailed] when the result would be more than four bytes longer
// than the input.
func PackTrackBytes(src []byte) ([]byte, error) {
	buffer := make([]byte, len(src)+4)
	n, err := PackTrack(src, bytewriter.New(buffer))
	if err != nil {
		return nil, zest.ErrPackFailed.WithMessage(
			fmt.Sprintf("%d bytes do not pack into %d", len(src), len(buffer)))
	}
	return buffer[:n], nil
}

// UnpackTrack expands a packed track to exactly `size` bytes.
func UnpackTrack(src []byte, size int) ([]byte, error) {
	dest := make([]byte, 0, size)
	for i := 0; len(dest) < size; {
		if i >= len(src) {
			return nil, fmt.Errorf(
				"%w: packed track ends after %d of %d bytes",
				io.ErrUnexpectedEOF,
				len(dest),
				size)
		}

		b := src[i]
		if b != RunMarker {
			dest = append(dest, b)
			i++
			continue
		}

		if i+4 > len(src) {
			return nil, fmt.Errorf(
				"%w: truncated run at offset %d", io.ErrUnexpectedEOF, i)
		}
		value := src[i+1]
		length := int(binary.BigEndian.Uint16(src[i+2:]))
		if len(dest)+length > size {
			return nil, zest.ErrCorruptTrack.WithMessage(
				fmt.Sprintf(
					"run of %d bytes at offset %d overflows the %d-byte track",
					length,
					i,
					size))
		}
		for j := 0; j < length; j++ {
			dest = append(dest, value)
		}
		i += 4
	}
	return dest, nil
}
