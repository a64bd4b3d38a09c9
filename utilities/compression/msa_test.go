package compression_test

import (
	"bytes"
	"crypto/rand"
	"io"
	"testing"

	"github.com/noxer/bytewriter"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/zerkman/zest"
	c "github.com/zerkman/zest/utilities/compression"
)

type MSATestCase struct {
	Input          []byte
	ExpectedOutput []byte
	Name           string
}

func TestPackTrack__Basic(t *testing.T) {
	tests := []MSATestCase{
		{[]byte{}, []byte{}, "empty"},
		{[]byte{1, 2, 3}, []byte{1, 2, 3}, "no runs"},
		{[]byte{4, 4, 4}, []byte{4, 4, 4}, "short run stays literal"},
		{[]byte{4, 4, 4, 4}, []byte{0xE5, 4, 0, 4}, "shortest packed run"},
		{[]byte{0xE5}, []byte{0xE5, 0xE5, 0, 1}, "single marker byte"},
		{[]byte{0xE5, 0xE5}, []byte{0xE5, 0xE5, 0, 2}, "two marker bytes"},
		{
			[]byte{0x41, 0x42, 0x42, 0x42, 0x42, 0x42, 0x42, 0xE5, 0x43},
			[]byte{0x41, 0xE5, 0x42, 0x00, 0x06, 0xE5, 0xE5, 0x00, 0x01, 0x43},
			"mixed",
		},
		{
			make([]byte, 512*9),
			[]byte{0xE5, 0, 0x12, 0x00},
			"blank track",
		},
	}

	for _, test := range tests {
		t.Run(test.Name, func(t *testing.T) {
			out := &bytes.Buffer{}
			n, err := c.PackTrack(test.Input, out)
			require.NoError(t, err)
			assert.EqualValues(t, len(test.ExpectedOutput), n)
			assert.Equal(t, test.ExpectedOutput, out.Bytes())
		})
	}
}

func TestMSARoundTrip(t *testing.T) {
	randomData := make([]byte, 512*10)
	rand.Read(randomData)

	markerHeavy := make([]byte, 512*9)
	for i := range markerHeavy {
		if i%3 != 0 {
			markerHeavy[i] = 0xE5
		}
	}

	mixed := append([]byte{}, randomData[:1000]...)
	mixed = append(mixed, bytes.Repeat([]byte{0xE5}, 700)...)
	mixed = append(mixed, bytes.Repeat([]byte{0x00}, 3)...)
	mixed = append(mixed, 0xE5)
	mixed = append(mixed, bytes.Repeat([]byte{0x4E}, 1200)...)

	tests := []struct {
		Name string
		Data []byte
	}{
		{"random", randomData},
		{"marker heavy", markerHeavy},
		{"all markers", bytes.Repeat([]byte{0xE5}, 512*11)},
		{"mixed", mixed},
		{"blank", make([]byte, 512*11)},
	}

	for _, test := range tests {
		t.Run(test.Name, func(t *testing.T) {
			packed := &bytes.Buffer{}
			_, err := c.PackTrack(test.Data, packed)
			require.NoError(t, err)

			unpacked, err := c.UnpackTrack(packed.Bytes(), len(test.Data))
			require.NoError(t, err)
			assert.Equal(t, test.Data, unpacked)
		})
	}
}

func TestPackTrackBytes__Bounded(t *testing.T) {
	randomData := make([]byte, 512*9)
	rand.Read(randomData)

	packed, err := c.PackTrackBytes(randomData)
	if err != nil {
		assert.ErrorIs(t, err, zest.ErrPackFailed)
		return
	}
	assert.LessOrEqual(t, len(packed), len(randomData)+4)

	unpacked, err := c.UnpackTrack(packed, len(randomData))
	require.NoError(t, err)
	assert.Equal(t, randomData, unpacked)
}

func TestPackTrackBytes__FailsWhenTooLong(t *testing.T) {
	// Isolated marker bytes expand fourfold.
	data := make([]byte, 64)
	for i := range data {
		if i%2 == 0 {
			data[i] = 0xE5
		}
	}

	_, err := c.PackTrackBytes(data)
	assert.ErrorIs(t, err, zest.ErrPackFailed)
}

func TestPackTrack__ShortWriter(t *testing.T) {
	output := make([]byte, 3)
	_, err := c.PackTrack(make([]byte, 100), bytewriter.New(output))
	assert.Error(t, err)
}

func TestUnpackTrack__Truncated(t *testing.T) {
	_, err := c.UnpackTrack([]byte{1, 2, 3}, 10)
	assert.ErrorIs(t, err, io.ErrUnexpectedEOF)

	_, err = c.UnpackTrack([]byte{1, 0xE5, 7}, 10)
	assert.ErrorIs(t, err, io.ErrUnexpectedEOF)
}

func TestUnpackTrack__Overflow(t *testing.T) {
	_, err := c.UnpackTrack([]byte{0xE5, 7, 0x10, 0x00}, 512)
	assert.ErrorIs(t, err, zest.ErrCorruptTrack)
}

func TestUnpackTrack__IgnoresTrailingBytes(t *testing.T) {
	unpacked, err := c.UnpackTrack([]byte{0xE5, 7, 0, 4, 9, 9}, 4)
	require.NoError(t, err)
	assert.Equal(t, []byte{7, 7, 7, 7}, unpacked)
}
