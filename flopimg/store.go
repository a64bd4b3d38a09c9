package flopimg

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"

	"github.com/hashicorp/go-multierror"
	"github.com/zerkman/zest"
	"github.com/zerkman/zest/disks"
	"github.com/zerkman/zest/logger"
)

// Open loads the image file at `path`. The format is chosen from the file
// extension. Unless `options.ReadOnly` is set, the file stays open for
// write-back until the image is closed.
func Open(path string, options Options) (*Image, error) {
	format, err := FormatFromPath(path)
	if err != nil {
		return nil, err
	}
	if options.Dialect == nil {
		return nil, zest.ErrNoDialect
	}

	flags := os.O_RDWR
	if options.ReadOnly {
		flags = os.O_RDONLY
	}
	file, err := os.OpenFile(path, flags, 0)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, zest.ErrNotFound.WithMessage(path)
	} else if err != nil {
		return nil, err
	}

	img, err := Load(file, format, options)
	if err != nil {
		file.Close()
		return nil, err
	}
	img.path = path
	img.file = file
	logger.Logf("flopimg", "opened %s: %s, %s", path, format, img.geometry)
	return img, nil
}

// Load decodes an image from a stream. The returned image has no backing file:
// it can be exported but not flushed.
func Load(stream io.ReadSeeker, format Format, options Options) (*Image, error) {
	if options.Dialect == nil {
		return nil, zest.ErrNoDialect
	}

	size, err := stream.Seek(0, io.SeekEnd)
	if err != nil {
		return nil, err
	}
	if _, err = stream.Seek(0, io.SeekStart); err != nil {
		return nil, err
	}

	img := newImage(format, options)
	switch format {
	case FormatMFM:
		err = img.loadMFM(stream, size)
	case FormatST:
		err = img.loadST(stream, size)
	case FormatMSA:
		err = img.loadMSA(stream)
	default:
		err = zest.ErrUnknownFormat.WithMessage(format.String())
	}
	if err != nil {
		return nil, err
	}
	img.loadedTracks = img.tracks
	img.loadedSides = img.sides
	return img, nil
}

// Create writes a blank, freshly formatted disk with the given geometry to a
// new file at `path` and returns it opened. It fails if the file exists.
func Create(path string, geometry disks.Geometry, options Options) (*Image, error) {
	format, err := FormatFromPath(path)
	if err != nil {
		return nil, err
	}
	if err = geometry.Validate(); err != nil {
		return nil, err
	}
	options.ReadOnly = false

	img, err := Load(bytes.NewReader(blankDisk(geometry)), FormatST, options)
	if err != nil {
		return nil, err
	}

	file, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		return nil, err
	}
	img.path = path
	img.file = file
	img.format = format
	img.loadedTracks = 0
	img.loadedSides = 0
	img.markAllDirty()

	if err = img.Flush(); err != nil {
		file.Close()
		os.Remove(path)
		return nil, err
	}
	return img, nil
}

// blankDisk builds the sectors of an empty disk: a boot sector and two FATs
// with only their media descriptor entries set.
func blankDisk(geometry disks.Geometry) []byte {
	raw := make([]byte, geometry.SizeBytes())
	copy(raw, disks.NewBootSector(geometry))
	for _, fat := range []int{1, 6} {
		copy(raw[fat*disks.BytesPerSector:], []byte{0xF9, 0xFF, 0xFF})
	}
	return raw
}

// Flush writes modified tracks back to the file. It does nothing if the image
// is clean.
func (img *Image) Flush() error {
	if img.closed {
		return zest.ErrClosed
	}
	if !img.Dirty() {
		return nil
	}
	if img.ReadOnly() {
		return zest.ErrReadOnly.WithMessage(
			fmt.Sprintf("cannot write back %s", img.describe()))
	}

	var err error
	if img.format == FormatMFM {
		err = img.flushMFM()
	} else {
		err = img.flushSectors()
	}
	if err != nil {
		return zest.ErrWriteback.Wrap(err)
	}
	img.clearDirty()
	return nil
}

func (img *Image) flushMFM() error {
	if img.tracks == img.loadedTracks && img.sides == img.loadedSides {
		for t := 0; t < img.tracks; t++ {
			for s := 0; s < img.sides; s++ {
				if !img.trackDirty(t, s) {
					continue
				}
				offset := int64((t*img.sides + s) * len(img.slot(t, s)))
				if _, err := img.file.WriteAt(img.slot(t, s), offset); err != nil {
					return err
				}
			}
		}
		return nil
	}

	if err := img.rewrite(img.buffer); err != nil {
		return err
	}
	img.loadedTracks = img.tracks
	img.loadedSides = img.sides
	return nil
}

func (img *Image) flushSectors() error {
	out := &bytes.Buffer{}
	geometry, err := img.encodeSectors(out, img.format)
	if err != nil {
		return err
	}
	if err = img.rewrite(out.Bytes()); err != nil {
		return err
	}
	img.geometry = geometry
	return nil
}

// rewrite replaces the whole content of the backing file.
func (img *Image) rewrite(data []byte) error {
	if _, err := img.file.WriteAt(data, 0); err != nil {
		return err
	}
	return img.file.Truncate(int64(len(data)))
}

// Export writes the whole disk to `w` in the given format, whatever format it
// was loaded from.
func (img *Image) Export(w io.Writer, format Format) error {
	if img.closed {
		return zest.ErrClosed
	}
	if format == FormatMFM {
		_, err := w.Write(img.buffer)
		return err
	}
	_, err := img.encodeSectors(w, format)
	return err
}

// Close flushes the image if it was modified and closes the backing file.
// The file is closed even when the flush fails. Closing an image twice fails
// with [zest.ErrClosed].
func (img *Image) Close() error {
	if img.closed {
		return zest.ErrClosed
	}

	var result *multierror.Error
	if err := img.Flush(); err != nil {
		logger.Logf("flopimg", "%s: %v", img.describe(), err)
		result = multierror.Append(result, err)
	}
	img.closed = true
	if img.file != nil {
		if err := img.file.Close(); err != nil {
			result = multierror.Append(result, err)
		}
		img.file = nil
	}
	return result.ErrorOrNil()
}

func (img *Image) describe() string {
	if img.path == "" {
		return fmt.Sprintf("in-memory %s image", img.format)
	}
	return img.path
}
