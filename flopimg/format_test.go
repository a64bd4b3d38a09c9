package flopimg_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/zerkman/zest"
	"github.com/zerkman/zest/flopimg"
)

func TestFormatFromPath(t *testing.T) {
	tests := map[string]flopimg.Format{
		"disk.st":            flopimg.FormatST,
		"DISK.ST":            flopimg.FormatST,
		"/games/Dungeon.Msa": flopimg.FormatMSA,
		"boot.mfm":           flopimg.FormatMFM,
		"a.b.MFM":            flopimg.FormatMFM,
	}
	for path, expected := range tests {
		t.Run(path, func(t *testing.T) {
			format, err := flopimg.FormatFromPath(path)
			require.NoError(t, err)
			assert.Equal(t, expected, format)
		})
	}
}

func TestFormatFromPathRejectsUnknownExtensions(t *testing.T) {
	for _, path := range []string{"disk.img", "disk", "disk.st.bak", "st"} {
		_, err := flopimg.FormatFromPath(path)
		assert.ErrorIs(t, err, zest.ErrUnknownFormat, path)
	}
}

func TestFormatExtension(t *testing.T) {
	assert.Equal(t, ".st", flopimg.FormatST.Extension())
	assert.Equal(t, ".msa", flopimg.FormatMSA.Extension())
	assert.Equal(t, ".mfm", flopimg.FormatMFM.Extension())
	assert.Equal(t, "MSA", flopimg.FormatMSA.String())
}
